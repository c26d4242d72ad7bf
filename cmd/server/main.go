package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"golang.org/x/sync/errgroup"

	"splitpot/internal/adapters/eventbus"
	"splitpot/internal/adapters/httpapi"
	"splitpot/internal/adapters/memory"
	"splitpot/internal/adapters/postgres"
	"splitpot/internal/adapters/push"
	"splitpot/internal/adapters/security"
	"splitpot/internal/adapters/telegram"
	"splitpot/internal/core/ports"
	"splitpot/internal/core/services"
	"splitpot/internal/notification"
	"splitpot/internal/shared/config"
	"splitpot/internal/shared/logger"
	"splitpot/internal/worker"
)

func main() {
	// 1. Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("FATAL: Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// 2. Initialize logger
	isDevMode := cfg.AppEnv == "dev"
	baseLogger := logger.New(isDevMode)
	baseLogger.Info().
		Str("app_env", cfg.AppEnv).
		Str("store", cfg.StoreBackend).
		Str("bus", cfg.BusBackend).
		Msg("Configuration loaded")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 3. Initialize the store backend
	var store ports.Store
	switch cfg.StoreBackend {
	case config.StorePostgres:
		if err := postgres.Migrate(cfg.DatabaseURL, &baseLogger); err != nil {
			baseLogger.Fatal().Err(err).Msg("Failed to run migrations")
		}
		db, err := postgres.NewDB(ctx, cfg.DatabaseURL, &baseLogger)
		if err != nil {
			baseLogger.Fatal().Err(err).Msg("Failed to initialize database")
		}
		defer db.Close()
		store = postgres.NewStore(db, &baseLogger)
	default:
		store = memory.NewStore(&baseLogger)
	}

	// 4. Initialize the event bus
	var bus ports.EventBus
	switch cfg.BusBackend {
	case config.BusRedis:
		redisBus, err := eventbus.NewRedisBus(ctx, cfg.RedisAddr, cfg.RedisChannel, &baseLogger)
		if err != nil {
			baseLogger.Fatal().Err(err).Msg("Failed to connect to redis")
		}
		defer redisBus.Close()
		bus = redisBus
	default:
		bus = eventbus.NewMemoryBus(cfg.BusBuffer, &baseLogger)
	}

	// 5. Initialize the push transport
	var sender ports.PushSender
	var botAPI *tgbotapi.BotAPI
	if cfg.TelegramToken != "" {
		api, err := tgbotapi.NewBotAPI(cfg.TelegramToken)
		if err != nil {
			baseLogger.Fatal().Err(err).Msg("Failed to initialize Telegram bot")
		}
		botAPI = api
		sender = push.NewTelegramSender(api, store.Devices(), &baseLogger)
	} else {
		baseLogger.Warn().Msg("No TELEGRAM_BOT_TOKEN set, notifications go to the log")
		sender = push.NewLogSender(&baseLogger)
	}

	// 6. Initialize services
	hasher := security.NewBcryptHasher(&baseLogger)
	userService := services.NewUserService(store, bus, hasher, &baseLogger)
	groupService := services.NewGroupService(store, bus, &baseLogger)

	// 7. Initialize the worker and register processors
	w := worker.New(bus, store.Events(), &baseLogger)
	w.Register(notification.NewProcessor(store, sender, &baseLogger))

	// 8. Run all long-lived tasks; the process exits as soon as one fails
	server := httpapi.NewServer(cfg.HTTPAddr, userService, groupService, &baseLogger)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return server.Run(gctx) })
	g.Go(func() error { return w.Listen(gctx) })
	if botAPI != nil {
		linkBot := telegram.NewLinkBot(botAPI, userService, &baseLogger)
		g.Go(func() error { return linkBot.Run(gctx) })
	}

	baseLogger.Info().Msg("All services initialized successfully")
	if err := g.Wait(); err != nil && ctx.Err() == nil {
		baseLogger.Fatal().Err(err).Msg("Service terminated")
	}
	baseLogger.Info().Msg("Shutdown complete")
}
