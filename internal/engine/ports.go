package engine

//go:generate mockgen -source=ports.go -destination=ports_mock.go -package=engine

import (
	"context"
	"time"

	"github.com/theirongolddev/finscore/internal/model"
)

// Repository supplies read-only record snapshots for one user.
//
// DatasetVersion must change whenever any of the user's records change; it
// is part of every cache key.
type Repository interface {
	Transactions(ctx context.Context, userID string, w model.PeriodWindow) ([]model.TransactionRecord, error)
	Budgets(ctx context.Context, userID string) ([]model.BudgetRecord, error)
	Lendings(ctx context.Context, userID string) ([]model.LendingRecord, error)
	DatasetVersion(ctx context.Context, userID string) (string, error)
}

// Cache stores serialized reports. A miss is (nil, false, nil).
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// Clock supplies "today".
type Clock interface {
	Now() time.Time
}

// SystemClock is the wall clock.
type SystemClock struct{}

// Now returns time.Now().
func (SystemClock) Now() time.Time { return time.Now() }

// FixedClock always returns the same instant.
type FixedClock time.Time

// Now returns the fixed instant.
func (c FixedClock) Now() time.Time { return time.Time(c) }

type nopCache struct{}

func (nopCache) Get(context.Context, string) ([]byte, bool, error)        { return nil, false, nil }
func (nopCache) Set(context.Context, string, []byte, time.Duration) error { return nil }
