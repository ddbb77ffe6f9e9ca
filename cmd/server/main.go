package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/ibrahimsoomro/game-of-three/internal/config"
	"github.com/ibrahimsoomro/game-of-three/internal/httpapi"
	"github.com/ibrahimsoomro/game-of-three/internal/hub"
	"github.com/ibrahimsoomro/game-of-three/internal/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var participants storage.ParticipantStore
	var sessions storage.SessionStore
	if cfg.DatabaseURL != "" {
		db, err := storage.Open(cfg.DatabaseURL)
		if err != nil {
			logger.Fatal("open database", zap.Error(err))
		}
		participants = storage.NewGormParticipantStore(db)
		sessions = storage.NewGormSessionStore(db)
	} else {
		logger.Info("DATABASE_URL not set, keeping records in memory")
		participants = storage.NewMemoryParticipantStore()
		sessions = storage.NewMemorySessionStore()
	}

	h, err := hub.New(ctx, hub.Config{
		Participants:  participants,
		Sessions:      sessions,
		Log:           logger,
		CohortSize:    cfg.CohortSize,
		PurgeAllOnEnd: cfg.PurgeAllOnEnd,
	})
	if err != nil {
		logger.Fatal("start hub", zap.Error(err))
	}

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: httpapi.SetupRoutes(h, logger),
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warn("http shutdown", zap.Error(err))
		}
		h.Inbox() <- hub.ShutdownHub{}
	}()

	logger.Info("listening", zap.Int("port", cfg.Port))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal("serve", zap.Error(err))
	}
}

func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("parse LOG_LEVEL: %w", err)
	}
	zcfg := zap.NewProductionConfig()
	zcfg.Level = zap.NewAtomicLevelAt(lvl)
	return zcfg.Build()
}
