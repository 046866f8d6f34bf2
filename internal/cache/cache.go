package cache

import (
	"context"

	"barledger/backend/internal/domain"
)

// Keys under which the offline snapshot is stored. Absence of a key is a
// valid state, reported via the bool return, never as an error.
const (
	salesKey   = "sales_snapshot"
	targetsKey = "targets"
)

// OfflineCache is the persistent local fallback for the Record Store. It is
// a convenience, not a durability guarantee: callers treat every write as
// best-effort.
type OfflineCache interface {
	LoadSales(ctx context.Context) ([]domain.Sale, bool, error)
	SaveSales(ctx context.Context, sales []domain.Sale) error
	LoadTargets(ctx context.Context) (domain.TargetConfig, bool, error)
	SaveTargets(ctx context.Context, targets domain.TargetConfig) error
}

type NoopOfflineCache struct{}

func (NoopOfflineCache) LoadSales(_ context.Context) ([]domain.Sale, bool, error) {
	return nil, false, nil
}

func (NoopOfflineCache) SaveSales(_ context.Context, _ []domain.Sale) error {
	return nil
}

func (NoopOfflineCache) LoadTargets(_ context.Context) (domain.TargetConfig, bool, error) {
	return domain.TargetConfig{}, false, nil
}

func (NoopOfflineCache) SaveTargets(_ context.Context, _ domain.TargetConfig) error {
	return nil
}
