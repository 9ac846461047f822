package store

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// ReportCache keeps serialized reports in the report_cache table until
// they expire. It implements engine.Cache.
type ReportCache struct {
	s   *Store
	now func() time.Time
}

// NewReportCache returns a cache sharing the store's database.
func NewReportCache(s *Store) *ReportCache {
	return &ReportCache{s: s, now: time.Now}
}

// Get returns the payload under key unless it is missing or expired.
func (c *ReportCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var payload string
	err := c.s.db.QueryRowContext(ctx,
		c.s.rebind("SELECT payload FROM report_cache WHERE cache_key = ? AND expires_at > ?"),
		key, c.now().UnixNano()).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return []byte(payload), true, nil
}

// Set stores value under key for ttl.
func (c *ReportCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	_, err := c.s.db.ExecContext(ctx, c.s.rebind(`INSERT INTO report_cache (cache_key, payload, expires_at)
		VALUES (?, ?, ?)
		ON CONFLICT (cache_key) DO UPDATE SET payload = excluded.payload, expires_at = excluded.expires_at`),
		key, string(value), c.now().Add(ttl).UnixNano())
	return err
}

// Purge deletes expired entries and returns how many were removed.
func (c *ReportCache) Purge(ctx context.Context) (int64, error) {
	res, err := c.s.db.ExecContext(ctx, c.s.rebind("DELETE FROM report_cache WHERE expires_at <= ?"), c.now().UnixNano())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
