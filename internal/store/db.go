package store

import (
	"context"
	"database/sql"
	"strconv"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"go-pricewatch/internal/errors"
	"go-pricewatch/internal/sqlq"
)

// SQLiteBusyTimeoutMS is how long SQLite waits on a locked database.
const SQLiteBusyTimeoutMS = 5000

// Rows is a forward-only cursor over query results. *sql.Rows satisfies it.
type Rows interface {
	Columns() ([]string, error)
	Next() bool
	Scan(dest ...any) error
	Err() error
	Close() error
}

// Conn is a connection leased from the pool for exclusive use. Close
// returns it to the pool.
type Conn interface {
	QueryContext(ctx context.Context, query string, args ...any) (Rows, error)
	Close() error
}

// Store wraps the connection pool together with its SQL dialect.
type Store struct {
	db      *sql.DB
	dialect sqlq.Dialect
	logger  *zap.SugaredLogger
	retry   RetryConfig
}

// Open opens the database for driver ("sqlite3" or "pgx") and verifies it is
// reachable. If logger is provided, logs database operations; otherwise
// operates silently.
func Open(ctx context.Context, driver, dsn string, maxOpen int, logger *zap.SugaredLogger) (*Store, error) {
	dialect, ok := sqlq.DialectForDriver(driver)
	if !ok {
		return nil, errors.Newf("unsupported database driver %q", driver)
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	logger.Debugw("Opening database", "driver", driver)

	if dialect == sqlq.SQLite {
		dsn = sqliteDSN(dsn)
	}
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, errors.Wrap(err, "open database")
	}
	if maxOpen > 0 {
		db.SetMaxOpenConns(maxOpen)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "ping database")
	}

	logger.Infow("Database opened", "driver", driver, "dialect", dialect.String())
	return New(db, dialect, logger), nil
}

// sqliteDSN appends the connection options every pooled SQLite connection
// needs. They go through the DSN because PRAGMAs only affect the connection
// they run on.
func sqliteDSN(dsn string) string {
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + "_journal_mode=WAL&_foreign_keys=on&_busy_timeout=" + strconv.Itoa(SQLiteBusyTimeoutMS)
}

// New wraps an already opened pool.
func New(db *sql.DB, dialect sqlq.Dialect, logger *zap.SugaredLogger) *Store {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Store{db: db, dialect: dialect, logger: logger, retry: DefaultRetryConfig}
}

// Dialect reports the SQL dialect of the underlying database.
func (s *Store) Dialect() sqlq.Dialect { return s.dialect }

// DB exposes the pool for callers that need database/sql directly.
func (s *Store) DB() *sql.DB { return s.db }

// Ping checks the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the pool.
func (s *Store) Close() error {
	return s.db.Close()
}

// QueryContext runs q on any pooled connection.
func (s *Store) QueryContext(ctx context.Context, q sqlq.Query) (Rows, error) {
	return s.db.QueryContext(ctx, q.Text, q.Args...)
}

// Lease takes one connection out of the pool. The caller owns it until it
// calls Close, and nothing else runs on it in the meantime.
func (s *Store) Lease(ctx context.Context) (Conn, error) {
	c, err := s.db.Conn(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "lease connection")
	}
	return &sqlConn{c: c}, nil
}

type sqlConn struct {
	c *sql.Conn
}

func (c *sqlConn) QueryContext(ctx context.Context, query string, args ...any) (Rows, error) {
	return c.c.QueryContext(ctx, query, args...)
}

func (c *sqlConn) Close() error {
	return c.c.Close()
}
