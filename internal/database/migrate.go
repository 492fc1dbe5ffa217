// internal/database/migrate.go
package database

import (
	"context"
	"database/sql"
	"embed"
	"fmt"

	_ "github.com/lib/pq"
	"github.com/pressly/goose/v3"
	"github.com/sirupsen/logrus"

	"github.com/agriqcert/agriqcert-backend/internal/config"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// RunMigrations applies all pending embedded migrations over a dedicated
// lib/pq connection.
func RunMigrations(ctx context.Context, cfg config.DatabaseConfig) error {
	return MigrateDSN(ctx, cfg.DSN())
}

func MigrateDSN(ctx context.Context, dsn string) error {
	logrus.Info("Running database migrations...")

	db, err := openMigrationDB(dsn)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := goose.UpContext(ctx, db, "migrations"); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	logrus.Info("Database migrations completed successfully")
	return nil
}

// MigrationStatus logs the applied state of every embedded migration.
func MigrationStatus(ctx context.Context, cfg config.DatabaseConfig) error {
	db, err := openMigrationDB(cfg.DSN())
	if err != nil {
		return err
	}
	defer db.Close()

	return goose.StatusContext(ctx, db, "migrations")
}

func openMigrationDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open migration connection: %w", err)
	}

	goose.SetBaseFS(migrationsFS)
	goose.SetLogger(logrus.StandardLogger())
	if err := goose.SetDialect("postgres"); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}
