package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"barledger/backend/internal/cache"
	"barledger/backend/internal/config"
	"barledger/backend/internal/domain"
	"barledger/backend/internal/httpapi"
	"barledger/backend/internal/remote/postgres"
	"barledger/backend/internal/service"
)

func main() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("WARN: could not read .env: %v", err)
	}
	cfg := config.Load()
	if cfg.DatabaseURL == "" {
		log.Fatalf("DATABASE_URL is required; the ledger has no remote to sync against without it")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	closers := make([]func() error, 0, 2)

	offline := pickOfflineCache(ctx, cfg, &closers)

	ledger, err := postgres.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("invalid DATABASE_URL: %v", err)
	}
	closers = append(closers, ledger.Close)

	engine := service.New(ledger, offline)
	if cfg.TargetDaily > 0 || cfg.TargetWeekly > 0 || cfg.TargetMonthly > 0 {
		engine.SetTargets(ctx, domain.TargetConfig{
			Daily:   cfg.TargetDaily,
			Weekly:  cfg.TargetWeekly,
			Monthly: cfg.TargetMonthly,
		})
	}
	engine.Start(ctx)

	httpapi.RegisterMetrics()
	service.RegisterMetrics()
	api := httpapi.New(engine, cfg.AllowedOrigin)

	server := &http.Server{
		Addr:              cfg.Address(),
		Handler:           api.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Printf("ledger backend listening on %s", cfg.Address())
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 8*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown error: %v", err)
	}

	engine.Close()

	for _, closeFn := range closers {
		if err := closeFn(); err != nil {
			log.Printf("close error: %v", err)
		}
	}

	log.Println("server stopped")
}

// pickOfflineCache prefers Redis when configured and reachable, then the
// SQLite file, then no cache at all. A missing cache only costs the offline
// fallback, never startup.
func pickOfflineCache(ctx context.Context, cfg config.Config, closers *[]func() error) cache.OfflineCache {
	if cfg.RedisAddr != "" {
		redisCache := cache.NewRedisOfflineCache(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err := redisCache.Ping(ctx); err != nil {
			log.Printf("redis unavailable (%v), falling back to sqlite cache", err)
		} else {
			*closers = append(*closers, redisCache.Close)
			log.Println("offline cache: redis")
			return redisCache
		}
	}

	sqliteCache, err := cache.NewSQLiteOfflineCache(cfg.CachePath)
	if err != nil {
		log.Printf("sqlite cache unavailable at %s (%v), running without offline fallback", cfg.CachePath, err)
		log.Println("offline cache: noop")
		return cache.NoopOfflineCache{}
	}
	*closers = append(*closers, sqliteCache.Close)
	log.Printf("offline cache: sqlite (%s)", cfg.CachePath)
	return sqliteCache
}
