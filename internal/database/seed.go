// internal/database/seed.go
package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/agriqcert/agriqcert-backend/internal/config"
	"github.com/agriqcert/agriqcert-backend/internal/errs"
	"github.com/agriqcert/agriqcert-backend/internal/models"
	"github.com/agriqcert/agriqcert-backend/internal/repository"
	"github.com/agriqcert/agriqcert-backend/internal/utils"
)

type seedAccount struct {
	username string
	role     models.Role
	admin    bool
}

var seedAccounts = []seedAccount{
	{username: "exporter1", role: models.RoleExporter},
	{username: "qa_agency1", role: models.RoleQA},
	{username: "importer1", role: models.RoleImporter},
	{username: "admin", role: models.RoleAdmin, admin: true},
}

// SeedInitialData creates the demo accounts that are missing. Existing
// accounts are left untouched.
func SeedInitialData(ctx context.Context, store repository.Store, cfg config.SeedConfig) (int, error) {
	logrus.Info("Seeding initial data...")

	created := 0
	for _, acc := range seedAccounts {
		_, err := store.Users().GetByUsername(ctx, acc.username)
		if err == nil {
			continue
		}
		if !errors.Is(err, errs.ErrNotFound) {
			return created, fmt.Errorf("failed to look up %s: %w", acc.username, err)
		}

		wallet, err := utils.GenerateWalletAddress()
		if err != nil {
			return created, err
		}

		user := &models.User{
			Username:      acc.username,
			Role:          acc.role,
			WalletAddress: wallet,
		}

		password := cfg.DefaultPassword
		if acc.admin {
			password = cfg.AdminPassword
		}
		if err := user.SetPassword(password); err != nil {
			return created, fmt.Errorf("failed to set password for %s: %w", acc.username, err)
		}

		if err := store.Users().Create(ctx, user); err != nil {
			return created, fmt.Errorf("failed to create %s: %w", acc.username, err)
		}

		created++
		logrus.WithFields(logrus.Fields{
			"username": acc.username,
			"role":     acc.role,
		}).Info("Seed user created")
	}

	logrus.WithField("created", created).Info("Initial data seeding completed")
	return created, nil
}

// ResetLifecycleData deletes every batch and inspection and keeps users.
func ResetLifecycleData(ctx context.Context, store repository.Store) (batches, inspections int64, err error) {
	err = store.WithinTx(ctx, func(tx repository.Store) error {
		var err error
		if inspections, err = tx.Inspections().DeleteAll(ctx); err != nil {
			return fmt.Errorf("failed to delete inspections: %w", err)
		}
		if batches, err = tx.Batches().DeleteAll(ctx); err != nil {
			return fmt.Errorf("failed to delete batches: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, 0, err
	}

	logrus.WithFields(logrus.Fields{
		"batches":     batches,
		"inspections": inspections,
	}).Info("Lifecycle data reset")
	return batches, inspections, nil
}
