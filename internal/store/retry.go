package store

import (
	"context"
	"database/sql/driver"
	"math"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mattn/go-sqlite3"

	"go-pricewatch/internal/errors"
)

// RetryConfig defines how audit writes are retried on transient failures.
type RetryConfig struct {
	MaxAttempts       int
	InitialDelay      time.Duration
	MaxDelay          time.Duration
	BackoffMultiplier float64
}

// DefaultRetryConfig keeps a locked SQLite file or a Postgres serialization
// failure from losing an audit record.
var DefaultRetryConfig = RetryConfig{
	MaxAttempts:       3,
	InitialDelay:      50 * time.Millisecond,
	MaxDelay:          time.Second,
	BackoffMultiplier: 2.0,
}

// SetRetry replaces the retry policy for audit writes.
func (s *Store) SetRetry(cfg RetryConfig) { s.retry = cfg }

// retryDelay is the wait before attempt+1, growing exponentially and
// capped at MaxDelay.
func (c RetryConfig) retryDelay(attempt int) time.Duration {
	delay := time.Duration(float64(c.InitialDelay) * math.Pow(c.BackoffMultiplier, float64(attempt-1)))
	if delay > c.MaxDelay {
		delay = c.MaxDelay
	}
	return delay
}

// isRetryableError reports whether err is worth another attempt.
func isRetryableError(err error) bool {
	if errors.Is(err, driver.ErrBadConn) {
		return true
	}
	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) {
		return liteErr.Code == sqlite3.ErrBusy || liteErr.Code == sqlite3.ErrLocked
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "40001", "40P01", "57P03": // serialization_failure, deadlock_detected, cannot_connect_now
			return true
		}
	}
	return false
}

// withRetry runs op until it succeeds, fails permanently, runs out of
// attempts or ctx is done. It returns op's last error.
func withRetry(ctx context.Context, cfg RetryConfig, op func() error) error {
	attempts := cfg.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	var err error
	for attempt := 1; ; attempt++ {
		if err = op(); err == nil || attempt >= attempts || !isRetryableError(err) {
			return err
		}
		t := time.NewTimer(cfg.retryDelay(attempt))
		select {
		case <-ctx.Done():
			t.Stop()
			return err
		case <-t.C:
		}
	}
}
