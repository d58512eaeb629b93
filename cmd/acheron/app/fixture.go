package app

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/golang-migrate/migrate/v4"
	"github.com/spf13/cobra"

	"github.com/NationalGenomicsInfrastructure/acheron/database"
)

// errNotConfirmed is returned when a fixture command runs without --yes
var errNotConfirmed = errors.New("refusing to change the database schema without --yes")

var fixtureCmd = &cobra.Command{
	Use:   "fixture",
	Short: "Manage the LIMS fixture schema of a development database",
	Long: `Create or drop the subset of the LIMS schema acheron reads, so a sync can be
tried against a local Postgres. Never point this at the production LIMS.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return cmd.Usage()
	},
}

var fixtureUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Create the LIMS fixture schema",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runFixture(cmd, database.Migrator.Up)
	},
}

var fixtureDownCmd = &cobra.Command{
	Use:   "down",
	Short: "Drop the LIMS fixture schema",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runFixture(cmd, database.Migrator.Down)
	},
}

func init() {
	fixtureCmd.PersistentFlags().BoolP("yes", "y", false, "Confirm the schema change")

	fixtureCmd.AddCommand(fixtureUpCmd)
	fixtureCmd.AddCommand(fixtureDownCmd)
}

func runFixture(cmd *cobra.Command, apply func(database.Migrator) error) error {
	yes, err := cmd.Flags().GetBool("yes")
	if err != nil {
		return fmt.Errorf("failed to get yes flag: %w", err)
	}
	if !yes {
		return errNotConfirmed
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cfg.Database == nil {
		return fmt.Errorf("database configuration is required")
	}
	connString, err := cfg.Database.GetConnectionString()
	if err != nil {
		return fmt.Errorf("failed to build database connection string: %w", err)
	}

	m, err := database.NewFromConnectionString(connString)
	if err != nil {
		return fmt.Errorf("failed to open migrations: %w", err)
	}
	defer func() {
		if srcErr, dbErr := m.Close(); srcErr != nil || dbErr != nil {
			slog.Error("Error closing migrations", "source_error", srcErr, "database_error", dbErr)
		}
	}()

	if err := apply(m); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to migrate fixture schema: %w", err)
	}

	version, dirty, err := m.Version()
	switch {
	case errors.Is(err, migrate.ErrNilVersion):
		slog.Info("Fixture schema dropped", "database", cfg.Database.Database)
	case err != nil:
		slog.Warn("Unable to get fixture schema version", "error", err)
	case dirty:
		slog.Warn("Fixture schema is in a dirty state", "version", version)
	default:
		slog.Info("Fixture schema ready", "database", cfg.Database.Database, "version", version)
	}
	return nil
}
