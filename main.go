package main

import (
	"context"
	"errors"
	stdlog "log"
	"math/rand/v2"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nuerofin/backend/src/config"
	"github.com/nuerofin/backend/src/database"
	"github.com/nuerofin/backend/src/handlers"
	"github.com/nuerofin/backend/src/logger"
	"github.com/nuerofin/backend/src/sandbox"
	"github.com/nuerofin/backend/src/security"
	"github.com/nuerofin/backend/src/services"
	"github.com/nuerofin/backend/src/store"
	"github.com/patrickmn/go-cache"
)

const shutdownTimeout = 30 * time.Second

func openStore(ctx context.Context, cfg *config.AppConfig) (store.Store, error) {
	switch cfg.StoreBackend {
	case config.StoreMongo:
		logger.L.Info("Connecting to MongoDB...", "database", cfg.MongoDatabase)
		return store.NewMongoStore(ctx, cfg.MongoURI, cfg.MongoDatabase)
	default:
		logger.L.Info("Initializing database...", "path", cfg.DatabasePath)
		database.InitDB(cfg.DatabasePath)
		database.RunMigrations()
		return store.NewSQLiteStore(database.DB), nil
	}
}

func main() {
	config.LoadConfig()
	logger.InitLogger(config.Cfg.LogLevel)

	logger.L.Info("NueroFin sandbox backend starting...")

	if len(config.Cfg.JWTSecret) < 32 {
		logger.L.Error("JWT_SECRET configuration invalid.")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	connectCtx, cancelConnect := context.WithTimeout(ctx, 15*time.Second)
	st, err := openStore(connectCtx, config.Cfg)
	cancelConnect()
	if err != nil {
		stdlog.Fatalf("Failed to open store: %v", err)
	}

	seed := config.Cfg.SandboxSeed
	if seed == 0 {
		seed = rand.Uint64()
	}
	generator := sandbox.NewGenerator(time.Now, seed)

	sandboxCache := cache.New(config.Cfg.CacheExpiration, services.CacheCleanupInterval)
	queryService := services.NewSandboxQueryService(st, sandboxCache, config.Cfg.CacheExpiration)

	accrualService := services.NewAccrualService(
		st, st, st,
		generator,
		services.NewCronScheduler(logger.L),
		queryService,
		services.AccrualConfig{
			Schedule:    config.Cfg.SandboxCronSchedule,
			RunOnStart:  config.Cfg.SandboxRunOnStart,
			CardTimeout: config.Cfg.SandboxCardTimeout,
			Policy: sandbox.Policy{
				BackfillCount:  config.Cfg.SandboxBackfillCount,
				IncrementCount: config.Cfg.SandboxIncrementCount,
			},
		},
	)
	if config.Cfg.SandboxEnabled {
		if err := accrualService.Start(context.Background()); err != nil {
			stdlog.Fatalf("Failed to start sandbox accrual: %v", err)
		}
	} else {
		logger.L.Info("Sandbox accrual disabled")
	}

	router := handlers.NewRouter(handlers.RouterConfig{
		AuthService:     security.NewAuthService(config.Cfg.JWTSecret),
		CardHandler:     handlers.NewCardHandler(st),
		SandboxHandler:  handlers.NewSandboxHandler(queryService, accrualService),
		FrontendBaseURL: config.Cfg.FrontendBaseURL,
		RateLimitRPS:    config.Cfg.RateLimitRPS,
		RateLimitBurst:  config.Cfg.RateLimitBurst,
	})

	serverAddr := ":" + config.Cfg.Port
	server := &http.Server{
		Addr:         serverAddr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.L.Info("Server starting", "address", serverAddr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case err := <-serverErr:
		if err != nil {
			logger.L.Error("Server failed", "error", err)
		}
	case <-ctx.Done():
		logger.L.Info("Shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.L.Error("HTTP server shutdown failed", "error", err)
	}
	if err := accrualService.Stop(shutdownCtx); err != nil {
		logger.L.Error("Sandbox accrual did not stop in time", "error", err)
	}
	if err := st.Close(shutdownCtx); err != nil {
		logger.L.Error("Failed to close store", "error", err)
	}
	logger.L.Info("Server stopped")
}
