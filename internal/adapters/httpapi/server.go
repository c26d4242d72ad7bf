// Package httpapi is the request-serving surface: a thin JSON router over
// the use-case services. It runs concurrently with the worker and shares
// the store with it.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"splitpot/internal/core/services"
)

// Server wraps the chi router and its http.Server.
type Server struct {
	log    zerolog.Logger
	server *http.Server
}

// NewServer builds the router over the services.
func NewServer(addr string, users *services.UserService, groups *services.GroupService, baseLogger *zerolog.Logger) *Server {
	log := baseLogger.With().Str("component", "httpapi").Logger()

	h := &handlers{log: log, users: users, groups: groups}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Post("/users", h.registerUser)
	r.Post("/users/login", h.login)
	r.Post("/users/{userID}/logout", h.logout)
	r.Delete("/users/{userID}", h.deleteUser)
	r.Post("/users/{userID}/devices", h.registerDevice)

	r.Post("/groups", h.createGroup)
	r.Delete("/groups/{groupID}", h.deleteGroup)
	r.Post("/groups/{groupID}/members", h.addMember)
	r.Put("/groups/{groupID}/members/{memberID}/color", h.changeColor)
	r.Post("/groups/{groupID}/expenses", h.addExpense)
	r.Put("/expenses/{expenseID}", h.modifyExpense)
	r.Delete("/expenses/{expenseID}", h.deleteExpense)
	r.Post("/groups/{groupID}/settle", h.settle)

	return &Server{
		log: log,
		server: &http.Server{
			Addr:              addr,
			Handler:           r,
			ReadHeaderTimeout: 5 * time.Second,
		},
	}
}

// Run serves until the context is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.log.Info().Str("addr", s.server.Addr).Msg("HTTP server listening")
		errCh <- s.server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.server.Shutdown(shutdownCtx); err != nil {
			return err
		}
		err := <-errCh
		if errors.Is(err, http.ErrServerClosed) {
			return ctx.Err()
		}
		return err
	}
}
