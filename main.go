package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"willdraft-go/chatbot"
	"willdraft-go/config"
	"willdraft-go/database"
	"willdraft-go/document"
	"willdraft-go/handlers"
	"willdraft-go/lifecycle"
	"willdraft-go/logger"
	"willdraft-go/middleware"
	"willdraft-go/store"
	"willdraft-go/utils"
	"willdraft-go/wizard"
)

// Run is the testable entrypoint for the application.
func Run(ctx context.Context) error {
	// a missing .env is fine; real deployments use the environment
	_ = godotenv.Load()

	cfg := config.Load()
	log := logger.New(cfg.Environment)
	defer log.Sync()

	warnings, err := config.ValidateConfig(cfg)
	if err != nil {
		log.Error("invalid configuration", zap.Error(err))
		return err
	}
	for _, w := range warnings {
		log.Warn(w)
	}

	if err := utils.InitializeEncryption(cfg.EncryptionKey); err != nil {
		return fmt.Errorf("initialize encryption: %w", err)
	}
	if err := utils.InitializeJWT(cfg.JWTSecret, cfg.TokenTTL); err != nil {
		return fmt.Errorf("initialize jwt: %w", err)
	}

	db, err := database.Initialize(cfg.DatabaseDriver, cfg.DatabaseURL, cfg.Environment)
	if err != nil {
		log.Error("database unavailable", zap.Error(err))
		return err
	}
	if sqlDB, err := db.DB(); err == nil {
		defer sqlDB.Close()
	}

	objects, err := document.NewObjectStore(ctx, cfg.Export)
	if err != nil {
		return fmt.Errorf("initialize export storage: %w", err)
	}

	drafts := store.New(db, log.Named("store"))
	h := handlers.NewHandlers(handlers.Deps{
		DB:        db,
		Config:    cfg,
		Log:       log.Named("http"),
		Store:     drafts,
		Lifecycle: lifecycle.NewManager(db, drafts, log.Named("lifecycle")),
		Navigator: wizard.NewNavigator(drafts, cfg.DashboardPath, log.Named("wizard")),
		Exporter:  document.NewExporter(db, objects, document.PDFWriter{Author: "WillDraft"}, log.Named("export")),
		Chatbot:   chatbot.New(cfg.Chatbot, log.Named("chatbot")),
	})

	limiter := middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)
	done := make(chan struct{})
	defer close(done)
	go limiter.Run(done)

	r := mux.NewRouter()
	r.Use(middleware.RequestLogger(log.Named("access")))
	r.Use(middleware.CORS(cfg.AllowedOrigin))
	r.Use(limiter.Middleware)
	h.Routes(r)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info("server starting",
			zap.String("port", cfg.Port),
			zap.String("environment", cfg.Environment),
			zap.String("database_driver", cfg.DatabaseDriver),
			zap.String("export_backend", objects.Backend()))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			log.Error("server error", zap.Error(err))
			return err
		}
	case <-ctx.Done():
	}

	log.Info("shutting down server")
	ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(ctxShutdown)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := Run(ctx); err != nil {
		os.Exit(1)
	}
}
