package store

import (
	"context"
	"errors"
	"time"

	"github.com/theirongolddev/finscore/internal/engine"
)

// RefillTTL is how long a hit from a slower tier stays in the faster ones.
const RefillTTL = 5 * time.Minute

// Tiered checks caches fastest first and writes through to all of them.
type Tiered struct {
	tiers []engine.Cache
}

// NewTiered combines tiers, fastest first.
func NewTiered(tiers ...engine.Cache) *Tiered {
	return &Tiered{tiers: tiers}
}

// Get returns the first hit. A tier that fails is skipped; the error is
// reported only when no tier hits.
func (t *Tiered) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var errs []error
	for i, c := range t.tiers {
		v, ok, err := c.Get(ctx, key)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if !ok {
			continue
		}
		for _, faster := range t.tiers[:i] {
			_ = faster.Set(ctx, key, v, RefillTTL)
		}
		return v, true, nil
	}
	return nil, false, errors.Join(errs...)
}

// Set writes value to every tier.
func (t *Tiered) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	var errs []error
	for _, c := range t.tiers {
		if err := c.Set(ctx, key, value, ttl); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
