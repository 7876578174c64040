package store

import (
	"context"
	"database/sql/driver"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-pricewatch/internal/errors"
	"go-pricewatch/internal/model"
	"go-pricewatch/internal/sqlq"
)

var fastRetry = RetryConfig{MaxAttempts: 3, InitialDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond, BackoffMultiplier: 2}

func TestRetryDelay(t *testing.T) {
	cfg := RetryConfig{InitialDelay: 100 * time.Millisecond, MaxDelay: 300 * time.Millisecond, BackoffMultiplier: 2}
	assert.Equal(t, 100*time.Millisecond, cfg.retryDelay(1))
	assert.Equal(t, 200*time.Millisecond, cfg.retryDelay(2))
	assert.Equal(t, 300*time.Millisecond, cfg.retryDelay(3))
}

func TestIsRetryableError(t *testing.T) {
	assert.True(t, isRetryableError(errors.Wrap(sqlite3.Error{Code: sqlite3.ErrBusy}, "save")))
	assert.True(t, isRetryableError(sqlite3.Error{Code: sqlite3.ErrLocked}))
	assert.True(t, isRetryableError(&pgconn.PgError{Code: "40001"}))
	assert.True(t, isRetryableError(driver.ErrBadConn))

	assert.False(t, isRetryableError(sqlite3.Error{Code: sqlite3.ErrConstraint}))
	assert.False(t, isRetryableError(&pgconn.PgError{Code: "23505"}))
	assert.False(t, isRetryableError(errors.New("syntax error")))
}

func TestWithRetry(t *testing.T) {
	busy := sqlite3.Error{Code: sqlite3.ErrBusy}

	calls := 0
	err := withRetry(context.Background(), fastRetry, func() error {
		calls++
		if calls < 3 {
			return busy
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)

	calls = 0
	err = withRetry(context.Background(), fastRetry, func() error {
		calls++
		return busy
	})
	assert.Equal(t, busy, err)
	assert.Equal(t, 3, calls)

	calls = 0
	permanent := errors.New("no such table")
	err = withRetry(context.Background(), fastRetry, func() error {
		calls++
		return permanent
	})
	assert.Equal(t, permanent, err)
	assert.Equal(t, 1, calls)
}

func TestWithRetryStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	err := withRetry(ctx, RetryConfig{MaxAttempts: 5, InitialDelay: time.Hour, MaxDelay: time.Hour, BackoffMultiplier: 1}, func() error {
		calls++
		return sqlite3.Error{Code: sqlite3.ErrBusy}
	})
	assert.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestSaveRunRetriesBusyDatabase(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	s := New(db, sqlq.SQLite, nil)
	s.SetRetry(fastRetry)

	mock.ExpectExec("INSERT INTO export_runs").WillReturnError(sqlite3.Error{Code: sqlite3.ErrBusy})
	mock.ExpectExec("INSERT INTO export_runs").WillReturnResult(sqlmock.NewResult(0, 1))

	err = s.SaveRun(context.Background(), model.ExportRun{
		ID: "r1", ExportType: "marcas", Mode: model.ModeBuffered, Status: model.RunRunning, StartedAt: time.Now(),
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
