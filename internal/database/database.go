package database

import (
	"context"
	"fmt"

	"github.com/mpilhlt/dhamps-blog/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// InitDB connects to the database described by options, brings the
// schema up to date and returns a ready connection pool.
func InitDB(ctx context.Context, options *models.Options) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, options.DatabaseURL())
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("unable to reach database %s:%d/%s: %w", options.DBHost, options.DBPort, options.DBName, err)
	}
	zap.L().Info("connected to postgres database",
		zap.String("user", options.DBUser),
		zap.String("host", options.DBHost),
		zap.Int("port", options.DBPort),
		zap.String("database", options.DBName))

	// Make sure tables and indices are created
	conn, err := pool.Acquire(ctx)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("unable to acquire connection for migrations: %w", err)
	}
	defer conn.Release()

	if err := migrateConn(ctx, conn.Conn()); err != nil {
		pool.Close()
		return nil, err
	}
	zap.L().Info("database setup completed")

	return pool, nil
}

// VerifySchema connects to connString and applies all pending migrations.
func VerifySchema(ctx context.Context, connString string) error {
	conn, err := pgx.Connect(ctx, connString)
	if err != nil {
		return fmt.Errorf("unable to connect to database: %w", err)
	}
	defer conn.Close(ctx)

	return migrateConn(ctx, conn)
}

func migrateConn(ctx context.Context, conn *pgx.Conn) error {
	m, err := NewMigrator(ctx, conn)
	if err != nil {
		return fmt.Errorf("unable to load migrations: %w", err)
	}
	if err := m.Migrate(ctx); err != nil {
		return fmt.Errorf("unable to migrate database: %w", err)
	}
	version, _, _, err := m.Info(ctx)
	if err != nil {
		return fmt.Errorf("unable to read schema version: %w", err)
	}
	zap.L().Debug("schema is up to date", zap.Int32("version", version))
	return nil
}
