// Package testutil builds real dependencies for package tests: a migrated
// in-memory SQLite database, a quiet logger and a server container without
// Redis or New Relic.
package testutil

import (
	"context"
	"testing"

	"github.com/deppfellow/iban-manager/internal/config"
	"github.com/deppfellow/iban-manager/internal/database"
	"github.com/deppfellow/iban-manager/internal/server"
	"github.com/rs/zerolog"
)

// Config returns the default configuration pointed at an in-memory SQLite
// database, with rate limiting off.
func Config(t *testing.T) *config.Config {
	t.Helper()

	t.Setenv("PORT", "")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("REDIS_URL", "")
	t.Setenv("REDIS_ADDRESS", "")
	t.Setenv("NEW_RELIC_LICENSE_KEY", "")
	t.Setenv(config.EnvPrefix+"DATABASE__SQLITE_PATH", ":memory:")
	t.Setenv(config.EnvPrefix+"RATELIMIT__ENABLED", "false")

	cfg, err := config.LoadConfig()
	if err != nil {
		t.Fatalf("load test config: %v", err)
	}
	return cfg
}

// Logger returns a logger that discards all output.
func Logger() *zerolog.Logger {
	l := zerolog.Nop()
	return &l
}

// NewDB opens and migrates an in-memory SQLite database, closed with the test.
func NewDB(t *testing.T, cfg *config.Config) *database.Database {
	t.Helper()

	db, err := database.New(cfg, Logger(), nil)
	if err != nil {
		t.Fatalf("open test database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if err := db.Migrate(context.Background(), cfg.Database.URL); err != nil {
		t.Fatalf("migrate test database: %v", err)
	}

	return db
}

// NewServer returns a server container over a fresh test database.
func NewServer(t *testing.T, cfg *config.Config) *server.Server {
	t.Helper()

	return &server.Server{
		Config: cfg,
		Logger: Logger(),
		DB:     NewDB(t, cfg),
	}
}
