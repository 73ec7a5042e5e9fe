package database

import (
	"context"
	"embed"
	"fmt"
	"io/fs"

	"github.com/deppfellow/iban-manager/internal/model/iban"
	"github.com/jackc/pgx/v5"
	tern "github.com/jackc/tern/v2/migrate"
	"github.com/rs/zerolog"
	"github.com/uptrace/bun"
)

// PostgreSQL migrations ship inside the binary.
//
//go:embed migrations/*.sql
var migrations embed.FS

// Migrate brings the schema of the connected store up to date.
//
// PostgreSQL is migrated with tern from the embedded SQL files, over a
// dedicated connection. SQLite gets its tables created from the bun models.
func (db *Database) Migrate(ctx context.Context, databaseURL string) error {
	if db.Pool != nil {
		return migratePostgres(ctx, db.log, databaseURL)
	}
	return migrateSQLite(ctx, db.log, db.DB)
}

func migratePostgres(ctx context.Context, logger *zerolog.Logger, databaseURL string) error {
	conn, err := pgx.Connect(ctx, databaseURL)
	if err != nil {
		return fmt.Errorf("connecting for migrations: %w", err)
	}
	defer conn.Close(ctx)

	m, err := tern.NewMigrator(ctx, conn, "schema_version")
	if err != nil {
		return fmt.Errorf("constructing database migrator: %w", err)
	}

	subtree, err := fs.Sub(migrations, "migrations")
	if err != nil {
		return fmt.Errorf("retrieving database migrations subtree: %w", err)
	}

	if err := m.LoadMigrations(subtree); err != nil {
		return fmt.Errorf("loading database migrations: %w", err)
	}

	from, err := m.GetCurrentVersion(ctx)
	if err != nil {
		return fmt.Errorf("retrieving current database migration version: %w", err)
	}

	if err := m.Migrate(ctx); err != nil {
		return fmt.Errorf("applying database migrations: %w", err)
	}

	if from == int32(len(m.Migrations)) {
		logger.Info().Msgf("database schema up to date, version %d", len(m.Migrations))
	} else {
		logger.Info().Msgf("migrated database schema, from %d to %d", from, len(m.Migrations))
	}
	return nil
}

func migrateSQLite(ctx context.Context, logger *zerolog.Logger, db *bun.DB) error {
	_, err := db.NewCreateTable().
		Model((*iban.IBAN)(nil)).
		IfNotExists().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("creating ibans table: %w", err)
	}

	_, err = db.NewCreateIndex().
		Model((*iban.IBAN)(nil)).
		Index("ibans_created_at_idx").
		Column("created_at", "id").
		IfNotExists().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("creating ibans created_at index: %w", err)
	}

	logger.Info().Msg("sqlite schema ready")
	return nil
}
