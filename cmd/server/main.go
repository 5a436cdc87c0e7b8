// @title           WMS API
// @version         1.0
// @description     Warehouse and production management backend: materials, products, stock ledger, orders.
// @BasePath        /api
// @securityDefinitions.apikey BearerAuth
// @in              header
// @name            Authorization
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/replika-labs/wms-01-sub000/internal/cache"
	"github.com/replika-labs/wms-01-sub000/internal/config"
	"github.com/replika-labs/wms-01-sub000/internal/infra"
	"github.com/replika-labs/wms-01-sub000/internal/router"
	"github.com/replika-labs/wms-01-sub000/internal/worker"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	// Structured logger. Pretty in dev, JSON in prod.
	if !cfg.IsProduction() {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}
	if cfg.JWTSecret == "" {
		log.Fatal().Msg("JWT_SECRET is required")
	}

	db, err := infra.NewDatabase(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to postgres")
	}

	rdb, err := infra.NewRedis(cfg.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to redis")
	}

	lookupCache, err := cache.New(cfg.CacheDriver, rdb)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build lookup cache")
	}

	storage, err := infra.NewStorage(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open photo storage")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Stock alerts go through the redis queue; without redis they are dropped.
	dispatcher := worker.NewDispatcher(rdb)
	workers := worker.StartWorkerPool(ctx, rdb, &worker.WorkerHandlers{
		StockAlert: worker.NewStockAlertWorker(infra.DefaultCBConfig(), notifiers(cfg)...),
	}, cfg.WorkerPoolSize)

	r, err := router.New(ctx, router.Deps{
		Config:  cfg,
		DB:      db,
		Redis:   rdb,
		Cache:   lookupCache,
		Storage: storage,
		Alerts:  dispatcher,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build router")
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown on SIGINT / SIGTERM
	go func() {
		log.Info().Msgf("wms backend listening on :%d", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server…")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("forced shutdown")
	}

	cancel()
	workers.Wait()

	if err := lookupCache.Close(); err != nil {
		log.Warn().Err(err).Msg("cache close")
	}
	if closer, ok := storage.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			log.Warn().Err(err).Msg("storage close")
		}
	}
	if rdb != nil {
		_ = rdb.Close()
	}
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
	log.Info().Msg("server exited")
}

// notifiers returns the alert channels that are configured.
func notifiers(cfg *config.Config) []worker.Notifier {
	var out []worker.Notifier
	if mailer := infra.NewMailer(cfg); mailer != nil && cfg.AlertEmailTo != "" {
		out = append(out, worker.EmailNotifier{Mailer: mailer, To: splitList(cfg.AlertEmailTo)})
	}
	bot, err := infra.NewTelegram(cfg.TelegramBotToken, cfg.TelegramChatID)
	if err != nil {
		log.Error().Err(err).Msg("telegram notifier disabled")
	} else if bot != nil {
		out = append(out, worker.TelegramNotifier{Bot: bot})
	}
	return out
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
