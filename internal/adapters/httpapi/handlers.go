package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"splitpot/internal/core/domain"
	"splitpot/internal/core/services"
)

type handlers struct {
	log    zerolog.Logger
	users  *services.UserService
	groups *services.GroupService
}

// writeError maps the service error taxonomy onto status codes. Validation
// failures carry their reason; infrastructure and corrupted-data failures
// stay generic, with details only in the logs.
func (h *handlers) writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, services.ErrValidation):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	case errors.Is(err, services.ErrNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
	case errors.Is(err, services.ErrInvalidCredentials):
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid credentials"})
	default:
		h.log.Error().Err(err).Str("path", r.URL.Path).Msg("Request failed")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func decodeJSON(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return services.ErrValidation
	}
	return nil
}

func pathID(r *http.Request, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		return uuid.Nil, services.ErrValidation
	}
	return id, nil
}

type colorPayload struct {
	R uint8 `json:"r"`
	G uint8 `json:"g"`
	B uint8 `json:"b"`
}

func (c colorPayload) domain() domain.Color { return domain.Color{R: c.R, G: c.G, B: c.B} }

func (h *handlers) registerUser(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name     string `json:"name"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	user, err := h.users.Register(r.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, user)
}

func (h *handlers) login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	user, err := h.users.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (h *handlers) logout(w http.ResponseWriter, r *http.Request) {
	userID, err := pathID(r, "userID")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := h.users.Logout(r.Context(), userID); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handlers) deleteUser(w http.ResponseWriter, r *http.Request) {
	userID, err := pathID(r, "userID")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := h.users.Delete(r.Context(), userID); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handlers) registerDevice(w http.ResponseWriter, r *http.Request) {
	userID, err := pathID(r, "userID")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	var req struct {
		ChatID   int64  `json:"chat_id"`
		Platform string `json:"platform"`
	}
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	device, err := h.users.RegisterDevice(r.Context(), userID, req.ChatID, req.Platform)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, device)
}

func (h *handlers) createGroup(w http.ResponseWriter, r *http.Request) {
	var req struct {
		CreatorID uuid.UUID    `json:"creator_id"`
		Name      string       `json:"name"`
		Color     colorPayload `json:"color"`
	}
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	group, err := h.groups.CreateGroup(r.Context(), req.CreatorID, req.Name, req.Color.domain())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, group)
}

func (h *handlers) deleteGroup(w http.ResponseWriter, r *http.Request) {
	groupID, err := pathID(r, "groupID")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	var req struct {
		ActorID uuid.UUID `json:"actor_id"`
	}
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := h.groups.DeleteGroup(r.Context(), groupID, req.ActorID); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handlers) addMember(w http.ResponseWriter, r *http.Request) {
	groupID, err := pathID(r, "groupID")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	var req struct {
		UserID uuid.UUID    `json:"user_id"`
		Color  colorPayload `json:"color"`
	}
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := h.groups.AddMember(r.Context(), groupID, req.UserID, req.Color.domain()); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handlers) changeColor(w http.ResponseWriter, r *http.Request) {
	groupID, err := pathID(r, "groupID")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	memberID, err := pathID(r, "memberID")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	var req colorPayload
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := h.groups.ChangeMemberColor(r.Context(), groupID, memberID, req.domain()); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handlers) addExpense(w http.ResponseWriter, r *http.Request) {
	groupID, err := pathID(r, "groupID")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	var req struct {
		PaidBy      uuid.UUID `json:"paid_by"`
		Description string    `json:"description"`
		AmountCents int64     `json:"amount_cents"`
		Date        time.Time `json:"date"`
	}
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	expense, err := h.groups.AddExpense(r.Context(), groupID, req.PaidBy, req.Description, req.AmountCents, req.Date)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, expense)
}

func (h *handlers) modifyExpense(w http.ResponseWriter, r *http.Request) {
	expenseID, err := pathID(r, "expenseID")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	var req struct {
		ActorID     uuid.UUID `json:"actor_id"`
		Description string    `json:"description"`
		AmountCents int64     `json:"amount_cents"`
	}
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := h.groups.ModifyExpense(r.Context(), expenseID, req.ActorID, req.Description, req.AmountCents); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handlers) deleteExpense(w http.ResponseWriter, r *http.Request) {
	expenseID, err := pathID(r, "expenseID")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	var req struct {
		ActorID uuid.UUID `json:"actor_id"`
	}
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := h.groups.DeleteExpense(r.Context(), expenseID, req.ActorID); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handlers) settle(w http.ResponseWriter, r *http.Request) {
	groupID, err := pathID(r, "groupID")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	var req struct {
		ActorID uuid.UUID `json:"actor_id"`
	}
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	settlement, err := h.groups.Settle(r.Context(), groupID, req.ActorID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, settlement)
}
