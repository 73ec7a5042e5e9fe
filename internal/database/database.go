// Package database opens the relational store behind the repositories.
//
// Two drivers are supported and both are exposed through a *bun.DB:
//   - PostgreSQL, through a pgx connection pool with query tracing
//     (pgx tracelog) and optional New Relic instrumentation (nrpgx5).
//   - SQLite, a local file used when no DATABASE_URL is configured.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/deppfellow/iban-manager/internal/config"
	loggerConfig "github.com/deppfellow/iban-manager/internal/logger"
	pgxzero "github.com/jackc/pgx-zerolog"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/jackc/pgx/v5/tracelog"
	"github.com/mattn/go-sqlite3"
	"github.com/newrelic/go-agent/v3/integrations/nrpgx5"
	"github.com/rs/zerolog"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
)

// Database wraps the bun handle and, for PostgreSQL, the pgx pool under it.
type Database struct {
	DB     *bun.DB
	Pool   *pgxpool.Pool // nil for SQLite
	Driver config.Driver
	log    *zerolog.Logger
}

// multiTracer fans pgx tracer callbacks out to several tracers, since
// ConnConfig has a single Tracer slot.
type multiTracer struct {
	tracers []any
}

func (mt *multiTracer) TraceQueryStart(ctx context.Context, conn *pgx.Conn, data pgx.TraceQueryStartData) context.Context {
	for _, tracer := range mt.tracers {
		if t, ok := tracer.(interface {
			TraceQueryStart(context.Context, *pgx.Conn, pgx.TraceQueryStartData) context.Context
		}); ok {
			ctx = t.TraceQueryStart(ctx, conn, data)
		}
	}
	return ctx
}

func (mt *multiTracer) TraceQueryEnd(ctx context.Context, conn *pgx.Conn, data pgx.TraceQueryEndData) {
	for _, tracer := range mt.tracers {
		if t, ok := tracer.(interface {
			TraceQueryEnd(context.Context, *pgx.Conn, pgx.TraceQueryEndData)
		}); ok {
			t.TraceQueryEnd(ctx, conn, data)
		}
	}
}

// DatabasePingTimeout is the number of seconds to wait for the startup ping.
const DatabasePingTimeout = 10

// sqliteBusyTimeout is how long SQLite waits on a locked database, in ms.
const sqliteBusyTimeout = 5000

// New opens the store selected by cfg.Database and pings it.
func New(cfg *config.Config, logger *zerolog.Logger, loggerService *loggerConfig.LoggerService) (*Database, error) {
	driver, err := cfg.Database.Driver()
	if err != nil {
		return nil, err
	}

	database := &Database{Driver: driver, log: logger}

	switch driver {
	case config.DriverPostgres:
		pool, err := newPgxPool(cfg, logger, loggerService)
		if err != nil {
			return nil, err
		}
		database.Pool = pool
		database.DB = bun.NewDB(stdlib.OpenDBFromPool(pool), pgdialect.New())

	case config.DriverSQLite:
		sqldb, err := openSQLite(cfg.Database.SQLitePath)
		if err != nil {
			return nil, err
		}
		database.DB = bun.NewDB(sqldb, sqlitedialect.New())
	}

	if threshold := cfg.Observability.Logging.SlowQueryThreshold; threshold > 0 {
		database.DB.AddQueryHook(&slowQueryHook{log: logger, threshold: threshold})
	}

	ctx, cancel := context.WithTimeout(context.Background(), DatabasePingTimeout*time.Second)
	defer cancel()
	if err := database.Ping(ctx); err != nil {
		_ = database.DB.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logger.Info().Str("driver", string(driver)).Msg("connected to the database")

	return database, nil
}

func newPgxPool(cfg *config.Config, logger *zerolog.Logger, loggerService *loggerConfig.LoggerService) (*pgxpool.Pool, error) {
	pgxPoolConfig, err := pgxpool.ParseConfig(cfg.Database.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse pgx pool config: %w", err)
	}

	if n := cfg.Database.MaxOpenConns; n > 0 {
		pgxPoolConfig.MaxConns = int32(n)
	}
	if s := cfg.Database.ConnMaxLifetime; s > 0 {
		pgxPoolConfig.MaxConnLifetime = time.Duration(s) * time.Second
	}
	if s := cfg.Database.ConnMaxIdleTime; s > 0 {
		pgxPoolConfig.MaxConnIdleTime = time.Duration(s) * time.Second
	}

	if loggerService.GetApplication() != nil {
		pgxPoolConfig.ConnConfig.Tracer = nrpgx5.NewTracer()
	}

	// SQL statement logging is too noisy outside local development.
	if cfg.Primary.Env == "local" {
		globalLevel := logger.GetLevel()
		localTracer := &tracelog.TraceLog{
			Logger:   pgxzero.NewLogger(loggerConfig.NewPgxLogger(globalLevel)),
			LogLevel: tracelog.LogLevel(loggerConfig.GetPgxTraceLogLevel(globalLevel)),
		}

		if pgxPoolConfig.ConnConfig.Tracer != nil {
			pgxPoolConfig.ConnConfig.Tracer = &multiTracer{
				tracers: []any{pgxPoolConfig.ConnConfig.Tracer, localTracer},
			}
		} else {
			pgxPoolConfig.ConnConfig.Tracer = localTracer
		}
	}

	pool, err := pgxpool.NewWithConfig(context.Background(), pgxPoolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create pgx pool: %w", err)
	}

	return pool, nil
}

// sqliteDriverName is the go-sqlite3 driver registered with Unicode aware
// case folding.
const sqliteDriverName = "sqlite3_unicode"

func init() {
	sql.Register(sqliteDriverName, &sqlite3.SQLiteDriver{
		ConnectHook: func(conn *sqlite3.SQLiteConn) error {
			// The builtin lower() only folds ASCII, so "AYŞE" would never
			// match "ayşe". Searches lower both sides with strings.ToLower.
			return conn.RegisterFunc("lower", unicodeLower, true)
		},
	})
}

// unicodeLower backs lower() on SQLite. Non text values pass through.
func unicodeLower(v any) any {
	if s, ok := v.(string); ok {
		return strings.ToLower(s)
	}
	return v
}

// openSQLite opens the database file at path, creating its directory.
// The special path ":memory:" opens a private in-memory database.
func openSQLite(path string) (*sql.DB, error) {
	dsn := fmt.Sprintf("file::memory:?_busy_timeout=%d&_foreign_keys=on", sqliteBusyTimeout)
	if path != ":memory:" {
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("failed to create sqlite directory %s: %w", dir, err)
			}
		}
		dsn = fmt.Sprintf("file:%s?_busy_timeout=%d&_foreign_keys=on", path, sqliteBusyTimeout)
	}

	sqldb, err := sql.Open(sqliteDriverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}

	// SQLite allows one writer. A single connection serializes every
	// statement and keeps an in-memory database alive.
	sqldb.SetMaxOpenConns(1)
	sqldb.SetMaxIdleConns(1)
	sqldb.SetConnMaxLifetime(0)
	sqldb.SetConnMaxIdleTime(0)

	return sqldb, nil
}

// Ping checks that the store answers.
func (db *Database) Ping(ctx context.Context) error {
	if db.Pool != nil {
		return db.Pool.Ping(ctx)
	}
	return db.DB.PingContext(ctx)
}

// Close closes the bun handle and the pgx pool under it.
func (db *Database) Close() error {
	db.log.Info().Msg("closing database connection")
	err := db.DB.Close()
	if db.Pool != nil {
		db.Pool.Close()
	}
	return err
}
