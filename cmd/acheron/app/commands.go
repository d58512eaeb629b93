// Package app provides the command line interface of acheron.
package app

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/NationalGenomicsInfrastructure/acheron/internal/config"
	"github.com/NationalGenomicsInfrastructure/acheron/internal/logging"
	"github.com/NationalGenomicsInfrastructure/acheron/pkg/versions"
)

const defaultLogFile = "acheron.log"

var (
	// logLevel is the level main resolved from the environment
	logLevel = new(slog.LevelVar)

	rootOnce sync.Once
)

var rootCmd = &cobra.Command{
	Use:               "acheron",
	DisableAutoGenTag: true,
	Short:             "Sync LIMS project tracking data to Charon",
	Long: `acheron reads projects, samples, library preparations and sequencing runs
from the LIMS Postgres database and creates or updates the matching documents
in the Charon tracking database.`,
	SilenceUsage: true,
	Run: func(cmd *cobra.Command, _ []string) {
		// If no subcommand is provided, print help
		if err := cmd.Help(); err != nil {
			slog.Error("Error displaying help", "error", err)
		}
	},
}

// NewRootCmd creates the root command. level is the lowest level logged.
func NewRootCmd(level slog.Level) *cobra.Command {
	logLevel.Set(level)
	rootOnce.Do(initRootCmd)
	return rootCmd
}

func initRootCmd() {
	rootCmd.PersistentFlags().String("config", "", "Path to configuration file (YAML format)")
	rootCmd.PersistentFlags().StringP("log", "l", defaultLogPath(), "Log file (empty for stderr)")
	for _, name := range []string{"config", "log"} {
		if err := viper.BindPFlag(name, rootCmd.PersistentFlags().Lookup(name)); err != nil {
			slog.Error("Error binding flag", "flag", name, "error", err)
		}
	}

	rootCmd.AddCommand(syncCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(fixtureCmd)
	rootCmd.AddCommand(versionCmd)
}

// defaultLogPath is acheron.log in the home directory, or in the working
// directory when there is no home
func defaultLogPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return defaultLogFile
	}
	return filepath.Join(home, defaultLogFile)
}

// setupLogging points the default logger at the --log destination. The
// returned closer flushes the file.
func setupLogging() (slog.Handler, io.Closer) {
	sink := logging.NewSink(viper.GetString("log"))
	handler := logging.NewHandler(sink, logLevel)
	slog.SetDefault(slog.New(handler))
	return handler, sink
}

// loadConfig reads --config. Without it every section uses its defaults.
func loadConfig() (*config.Config, error) {
	var opts []config.Option
	if path := viper.GetString("config"); path != "" {
		opts = append(opts, config.WithConfigPath(path))
	}
	cfg, err := config.LoadConfig(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return cfg, nil
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, _ []string) {
		info := versions.GetVersionInfo()
		format, err := cmd.Flags().GetString("format")
		if err != nil {
			slog.Error("Error retrieving format flag", "error", err)
			return
		}

		if format == "json" {
			output, err := json.MarshalIndent(info, "", "  ")
			if err != nil {
				slog.Error("Error formatting version info as JSON", "error", err)
				return
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(output))
			return
		}
		fmt.Fprintln(cmd.OutOrStdout(), info.String())
	},
}

func init() {
	versionCmd.Flags().String("format", "", "Output format (json)")
}
