package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver
	"github.com/redis/go-redis/v9"

	"github.com/ignite/audience-engine/internal/api"
	"github.com/ignite/audience-engine/internal/config"
	"github.com/ignite/audience-engine/internal/pkg/logger"
	"github.com/ignite/audience-engine/internal/segmentation"
	"github.com/ignite/audience-engine/internal/templates"
)

func main() {
	cfg, err := config.LoadFromEnv("config/config.yaml")
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	logger.SetLevel(logger.ParseLevel(cfg.Logging.Level))
	if cfg.Logging.RedactPII != nil {
		logger.SetRedactPII(*cfg.Logging.RedactPII)
	}

	db, err := sql.Open("postgres", cfg.Database.URL)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	if err := db.PingContext(pingCtx); err != nil {
		cancel()
		logger.Error("database unreachable", "error", err)
		os.Exit(1)
	}
	cancel()

	registry := segmentation.DefaultRegistry()
	store := segmentation.NewStore(db)

	var cache *segmentation.CountCache
	if cfg.Redis.Enabled {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer rdb.Close()
		cache = segmentation.NewCountCache(rdb, time.Duration(cfg.Redis.CountTTLMinutes)*time.Minute)
		logger.Info("count cache enabled", "addr", cfg.Redis.Addr)
	}

	engine := segmentation.NewEngine(registry, store, cache)

	catalogCtx, cancelCatalog := context.WithTimeout(context.Background(), 15*time.Second)
	catalog, err := templates.Load(catalogCtx, cfg.Templates, registry)
	cancelCatalog()
	if err != nil {
		// The catalog is seed data; fall back to built-ins rather than refuse to start.
		logger.Warn("template catalog load failed, using built-ins", "source", cfg.Templates.Type, "error", err)
		catalog = templates.Builtin(registry)
	}

	handlers := api.NewHandlers(engine, catalog)
	router := api.SetupRoutes(handlers)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	go func() {
		logger.Info("audience engine listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
	}
}
