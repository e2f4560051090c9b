package database

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/tern/v2/migrate"
	"go.uber.org/zap"
)

// schemaVersionTable is where tern records the applied migration.
const schemaVersionTable = "blog_schema_version"

//go:embed migrations/*.sql
var migrationFiles embed.FS

// Migrator applies the embedded SQL migrations to a single connection.
type Migrator struct {
	migrator *migrate.Migrator
}

func NewMigrator(ctx context.Context, conn *pgx.Conn) (Migrator, error) {
	m, err := migrate.NewMigratorEx(ctx, conn, schemaVersionTable, &migrate.MigratorOptions{})
	if err != nil {
		return Migrator{}, fmt.Errorf("unable to create migrator: %w", err)
	}

	root, err := fs.Sub(migrationFiles, "migrations")
	if err != nil {
		return Migrator{}, err
	}
	if err := m.LoadMigrations(root); err != nil {
		return Migrator{}, fmt.Errorf("unable to load migrations: %w", err)
	}

	m.OnStart = func(sequence int32, name, direction, _ string) {
		zap.L().Info("applying migration",
			zap.Int32("sequence", sequence),
			zap.String("name", name),
			zap.String("direction", direction))
	}
	return Migrator{migrator: m}, nil
}

// Info returns the applied schema version, the newest embedded version and
// one line per migration, with an arrow marking the applied one.
func (m Migrator) Info(ctx context.Context) (int32, int32, string, error) {
	version, err := m.migrator.GetCurrentVersion(ctx)
	if err != nil {
		return 0, 0, "", fmt.Errorf("unable to read schema version: %w", err)
	}

	var (
		last int32
		b    strings.Builder
	)
	for _, mig := range m.migrator.Migrations {
		last = mig.Sequence
		marker := "  "
		if mig.Sequence == version {
			marker = "->"
		}
		fmt.Fprintf(&b, "%2s %3d %s\n", marker, mig.Sequence, mig.Name)
	}
	return version, last, b.String(), nil
}

// Migrate brings the schema to the newest embedded version.
func (m Migrator) Migrate(ctx context.Context) error {
	return m.migrator.Migrate(ctx)
}

// MigrateTo moves the schema up or down to ver. 0 drops everything.
func (m Migrator) MigrateTo(ctx context.Context, ver int32) error {
	last := int32(len(m.migrator.Migrations))
	if ver < 0 || ver > last {
		return fmt.Errorf("migration version %d out of range (0..%d)", ver, last)
	}
	return m.migrator.MigrateTo(ctx, ver)
}
