package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	syncapp "github.com/NationalGenomicsInfrastructure/acheron/internal/app"
	"github.com/NationalGenomicsInfrastructure/acheron/internal/config"
	pkgsync "github.com/NationalGenomicsInfrastructure/acheron/internal/sync"
	"github.com/NationalGenomicsInfrastructure/acheron/internal/sync/coordinator"
	"github.com/NationalGenomicsInfrastructure/acheron/internal/telemetry"
)

const (
	// TokenEnv and URLEnv back the --token and --url flags
	TokenEnv = "CHARON_API_TOKEN"
	URLEnv   = "CHARON_BASE_URL"

	telemetryShutdownTimeout = 10 * time.Second
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Sync LIMS projects to Charon",
	Long: `Sync one project, the recently modified projects or every project from the
LIMS to Charon. Exactly one of --project, --new or --all is required.

A single project is synced in-process. --new and --all spread the projects
over a pool of workers, each with its own LIMS session and Charon client.

Failures of individual documents are logged and do not change the exit code.`,
	Args: cobra.NoArgs,
	RunE: runSync,
}

func init() {
	registerSyncFlags(syncCmd)

	for key, flag := range map[string]string{
		"charon.token": "token",
		"charon.url":   "url",
	} {
		if err := viper.BindPFlag(key, syncCmd.Flags().Lookup(flag)); err != nil {
			slog.Error("Error binding flag", "flag", flag, "error", err)
		}
	}
	if err := viper.BindEnv("charon.token", TokenEnv); err != nil {
		slog.Error("Error binding environment", "env", TokenEnv, "error", err)
	}
	if err := viper.BindEnv("charon.url", URLEnv); err != nil {
		slog.Error("Error binding environment", "env", URLEnv, "error", err)
	}
}

func registerSyncFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("project", "p", "", "Sync the project with this LIMS id or name")
	cmd.Flags().BoolP("new", "n", false, "Sync the recently modified projects")
	cmd.Flags().BoolP("all", "a", false, "Sync every project")
	cmd.Flags().IntP("processes", "k", coordinator.DefaultWorkers, "Number of workers")
	cmd.Flags().StringP("token", "t", "", "Charon API token (env "+TokenEnv+")")
	cmd.Flags().StringP("url", "u", "", "Charon base URL (env "+URLEnv+")")

	cmd.MarkFlagsMutuallyExclusive("project", "new", "all")
}

// selectionFromFlags reads --project, --new and --all
func selectionFromFlags(cmd *cobra.Command) (pkgsync.Selection, error) {
	var sel pkgsync.Selection
	var err error
	if sel.ProjectID, err = cmd.Flags().GetString("project"); err != nil {
		return sel, fmt.Errorf("failed to get project flag: %w", err)
	}
	if sel.Recent, err = cmd.Flags().GetBool("new"); err != nil {
		return sel, fmt.Errorf("failed to get new flag: %w", err)
	}
	if sel.All, err = cmd.Flags().GetBool("all"); err != nil {
		return sel, fmt.Errorf("failed to get all flag: %w", err)
	}
	return sel, sel.Validate()
}

// applyOverrides lets flags and environment win over the configuration file
func applyOverrides(cmd *cobra.Command, cfg *config.Config) error {
	if cfg.Charon == nil {
		cfg.Charon = &config.CharonConfig{}
	}
	if token := viper.GetString("charon.token"); token != "" {
		cfg.Charon.Token = token
		cfg.Charon.TokenFile = ""
	}
	if url := viper.GetString("charon.url"); url != "" {
		cfg.Charon.BaseURL = url
	}

	if cmd.Flags().Changed("processes") || cfg.Workers == nil || cfg.Workers.Count == 0 {
		n, err := cmd.Flags().GetInt("processes")
		if err != nil {
			return fmt.Errorf("failed to get processes flag: %w", err)
		}
		if cfg.Workers == nil {
			cfg.Workers = &config.WorkersConfig{}
		}
		cfg.Workers.Count = n
	}
	return cfg.Validate()
}

func runSync(cmd *cobra.Command, _ []string) error {
	sel, err := selectionFromFlags(cmd)
	if err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := applyOverrides(cmd, cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	handler, sink := setupLogging()
	defer sink.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return runSelection(ctx, cfg, sel, handler)
}

// runSelection runs one selection with telemetry set up around it
func runSelection(ctx context.Context, cfg *config.Config, sel pkgsync.Selection, handler slog.Handler) error {
	runID := uuid.NewString()
	logger := slog.New(handler).With("run_id", runID)

	tel, err := telemetry.New(ctx, telemetry.WithTelemetryConfig(cfg.Telemetry), telemetry.WithRunID(runID))
	if err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), telemetryShutdownTimeout)
		defer cancel()
		if err := tel.Shutdown(shutdownCtx); err != nil {
			logger.Error("Telemetry shutdown failed", "error", err)
		}
	}()

	app, err := syncapp.NewSyncApp(ctx,
		syncapp.WithConfig(cfg),
		syncapp.WithRunID(runID),
		syncapp.WithLogHandler(handler, logLevel),
		syncapp.WithTracerProvider(tel.TracerProvider()),
		syncapp.WithMeterProvider(tel.MeterProvider()),
	)
	if err != nil {
		return fmt.Errorf("failed to create sync app: %w", err)
	}
	defer app.Close()

	summary, err := app.Run(ctx, sel)
	if err != nil {
		return fmt.Errorf("sync failed: %w", err)
	}
	logSummary(logger, summary)
	return nil
}

func logSummary(logger *slog.Logger, summary *coordinator.Summary) {
	attrs := []any{
		"projects_synced", len(summary.Results),
		"projects_failed", len(summary.Errors),
		"projects_pending", summary.Pending,
		"duration", summary.Duration.String(),
	}
	for outcome, n := range summary.Documents() {
		attrs = append(attrs, "documents_"+string(outcome), n)
	}
	for _, e := range summary.Errors {
		logger.Warn("Project not synced", "project_id", e.ProjectID, "stage", e.Stage, "error", e.Message)
	}
	logger.Info("Sync complete", attrs...)
}
