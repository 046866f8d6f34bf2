package main

import (
	"context"
	"path/filepath"
	"testing"

	"barledger/backend/internal/cache"
	"barledger/backend/internal/config"
)

func TestPickOfflineCacheUsesSQLiteWithoutRedis(t *testing.T) {
	cfg := config.Config{CachePath: filepath.Join(t.TempDir(), "cache.db")}
	closers := make([]func() error, 0, 1)

	picked := pickOfflineCache(context.Background(), cfg, &closers)
	if _, ok := picked.(*cache.SQLiteOfflineCache); !ok {
		t.Fatalf("expected sqlite cache, got %T", picked)
	}
	if len(closers) != 1 {
		t.Fatalf("expected one registered closer, got %d", len(closers))
	}
	for _, closeFn := range closers {
		if err := closeFn(); err != nil {
			t.Fatalf("close: %v", err)
		}
	}
}

func TestPickOfflineCacheFallsBackToNoop(t *testing.T) {
	cfg := config.Config{CachePath: filepath.Join(t.TempDir(), "missing-dir", "cache.db")}
	closers := make([]func() error, 0, 1)

	picked := pickOfflineCache(context.Background(), cfg, &closers)
	if _, ok := picked.(cache.NoopOfflineCache); !ok {
		t.Fatalf("expected noop cache, got %T", picked)
	}
	if len(closers) != 0 {
		t.Fatalf("expected no closers, got %d", len(closers))
	}
}
