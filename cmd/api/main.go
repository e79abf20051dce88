package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/campusdesk/consulthub/internal/cache"
	"github.com/campusdesk/consulthub/internal/config"
	"github.com/campusdesk/consulthub/internal/db"
	httpx "github.com/campusdesk/consulthub/internal/http"
	"github.com/campusdesk/consulthub/internal/observability"
)

func main() {
	cfg := config.Load()

	log := observability.NewLogger(cfg.Env)
	slog.SetDefault(log)

	// trace exporter is optional; without an endpoint spans stay local
	shutdownTracer, err := observability.InitTracer(context.Background(), "consulthub", cfg.OTLPEndpoint)

	if err != nil {
		log.Warn("tracer init failed, continuing without export", "err", err)
	}

	pool, err := db.NewPool(cfg.DBURL)

	if err != nil {
		log.Error("database connection failed", "err", err)
		os.Exit(1)
	}
	defer pool.Close()

	startCtx, cancelStart := config.WithTimeout(30 * time.Second)

	err = db.Migrate(startCtx, pool)

	if err != nil {
		cancelStart()
		log.Error("migration failed", "err", err)
		os.Exit(1)
	}

	err = db.EnsureConsultantUser(startCtx, pool, cfg)
	cancelStart()

	if err != nil {
		log.Error("consultant seed failed", "err", err)
		os.Exit(1)
	}

	store := newCacheStore(cfg, log)

	prom := observability.NewProm(nil)

	router := httpx.NewRouter(log, pool, cfg, store, prom)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info("server starting", "port", cfg.Port, "env", cfg.Env)
		err := srv.ListenAndServe()

		if err != nil && err != http.ErrServerClosed {
			log.Error("server failed", "err", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	log.Info("server shutting down")

	shutdownCh := make(chan struct{})

	go func() {
		defer close(shutdownCh)

		ctx, cancel := config.WithTimeout(10 * time.Second)
		defer cancel()

		err := srv.Shutdown(ctx)

		if err != nil {
			log.Error("graceful shutdown failed", "err", err)
			return
		}

		if shutdownTracer != nil {
			err = shutdownTracer(ctx)

			if err != nil {
				log.Error("tracer shutdown failed", "err", err)
			}
		}
	}()

	select {
	case <-shutdownCh:
		log.Info("shutdown complete")

	case <-time.After(12 * time.Second):
		log.Error("shutdown timed out")
	}
}

// newCacheStore picks redis when an address is configured, otherwise the
// in-process cache. A redis that does not answer the startup ping is
// treated as absent rather than fatal.
func newCacheStore(cfg config.Config, log *slog.Logger) cache.Store {
	if cfg.RedisAddr == "" {
		return cache.NewMemory(cfg.CacheTTL())
	}

	r := cache.NewRedis(cache.RedisConfig{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
		TTL:      cfg.CacheTTL(),
	})

	ctx, cancel := config.WithTimeout(2 * time.Second)
	defer cancel()

	err := r.Ping(ctx)

	if err != nil {
		log.Warn("redis unreachable, using in-process cache", "addr", cfg.RedisAddr, "err", err)
		return cache.NewMemory(cfg.CacheTTL())
	}

	log.Info("redis cache enabled", "addr", cfg.RedisAddr)

	return r
}
