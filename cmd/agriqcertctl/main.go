// cmd/agriqcertctl/main.go
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/agriqcert/agriqcert-backend/internal/config"
	"github.com/agriqcert/agriqcert-backend/internal/database"
	"github.com/agriqcert/agriqcert-backend/internal/utils"
)

var (
	cfg     *config.Config
	rootCtx context.Context

	migrateStatus bool
	resetConfirm  bool
)

var rootCmd = &cobra.Command{
	Use:           "agriqcertctl",
	Short:         "Operator commands for the AgriQCert database",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load()
		if err != nil {
			return fmt.Errorf("load configuration: %w", err)
		}
		utils.InitLogger(cfg.Environment, cfg.Observability.LogLevel, cfg.Observability.LogFormat)

		if cfg.Database.InMemory() {
			return fmt.Errorf("%s requires DB_DRIVER=postgres, got %q", cmd.CommandPath(), cfg.Database.Driver)
		}
		return nil
	},
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending schema migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		if migrateStatus {
			return database.MigrationStatus(rootCtx, cfg.Database)
		}
		if err := database.RunMigrations(rootCtx, cfg.Database); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
		return nil
	},
}

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Create the demo exporter, QA agency, importer and admin accounts",
	Long: `Create the demo accounts used by the web client.

Existing accounts are left untouched, so seeding twice is safe.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := database.RunMigrations(rootCtx, cfg.Database); err != nil {
			return err
		}

		db, err := database.Initialize(cfg.Database)
		if err != nil {
			return err
		}
		defer database.Close(db)

		created, err := database.SeedInitialData(rootCtx, database.NewStore(db), cfg.Seed)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "seeded %d account(s)\n", created)
		return nil
	},
}

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Delete every batch and inspection, keeping user accounts",
	RunE: func(cmd *cobra.Command, args []string) error {
		if !resetConfirm {
			return fmt.Errorf("reset deletes all lifecycle data; rerun with --yes to confirm")
		}

		db, err := database.Initialize(cfg.Database)
		if err != nil {
			return err
		}
		defer database.Close(db)

		batches, inspections, err := database.ResetLifecycleData(rootCtx, database.NewStore(db))
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "removed %d batch(es) and %d inspection(s)\n", batches, inspections)
		return nil
	},
}

func init() {
	migrateCmd.Flags().BoolVar(&migrateStatus, "status", false, "print migration status instead of migrating")
	resetCmd.Flags().BoolVarP(&resetConfirm, "yes", "y", false, "confirm deletion")

	rootCmd.AddCommand(migrateCmd, seedCmd, resetCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	rootCtx = ctx

	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		logrus.WithError(err).Error("Command failed")
		os.Exit(1)
	}
}
