package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/example/mediation-platform/internal/application"
	"github.com/example/mediation-platform/internal/config"
	httptransport "github.com/example/mediation-platform/internal/http"
	"github.com/example/mediation-platform/internal/persistence/sqlite"
)

// publicPaths bypass session authentication.
var publicPaths = map[string]bool{
	"/auth/login": true,
	"/health":     true,
	"/api":        true,
}

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	storage, err := sqlite.Open(cfg.SQLiteDSN)
	if err != nil {
		logger.Error("failed to open storage", "error", err)
		os.Exit(1)
	}
	defer func() {
		if cerr := storage.Close(); cerr != nil {
			logger.Error("failed to close storage", "error", cerr)
		}
	}()

	if err := storage.Migrate(context.Background()); err != nil {
		logger.Error("failed to apply migrations", "error", err)
		os.Exit(1)
	}

	tokenGenerator := uuid.NewString
	now := time.Now

	caseRepo := sqlite.NewCaseRepository(storage)
	sessionRepo := sqlite.NewSessionRepository(storage)
	activityRepo := sqlite.NewActivityRepository(storage)
	userRepo := sqlite.NewUserRepository(storage)
	authSessionRepo := sqlite.NewAuthSessionRepository(storage)

	access := application.NewAccessController()
	caseService := application.NewCaseService(caseRepo, sessionRepo, activityRepo, access, now, logger)
	sessionService := application.NewSessionService(sessionRepo, caseRepo, access, now, logger)
	authService := application.NewAuthService(userRepo, authSessionRepo, nil, tokenGenerator, now, cfg.SessionTTL, logger)

	router := httptransport.NewRouter(httptransport.RouterConfig{
		Auth:     httptransport.NewAuthHandler(authService, logger),
		Meta:     httptransport.NewMetaHandler(storage, now, logger),
		Cases:    httptransport.NewCaseHandler(caseService, logger),
		Sessions: httptransport.NewSessionHandler(sessionService, logger),
	})

	protected := httptransport.RequireSession(authService, logger)(router)
	handler := httptransport.RequestLogger(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if publicPaths[r.URL.Path] {
			router.ServeHTTP(w, r)
			return
		}
		protected.ServeHTTP(w, r)
	}))

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("failed to shutdown server", "error", err)
		}
	}()

	logger.Info("mediation API listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server encountered error", "error", err)
		os.Exit(1)
	}
}
