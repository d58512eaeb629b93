// Package main is the entry point of acheron, the LIMS to Charon tracking sync.
package main

import (
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/viper"

	"github.com/NationalGenomicsInfrastructure/acheron/cmd/acheron/app"
	"github.com/NationalGenomicsInfrastructure/acheron/internal/config"
	"github.com/NationalGenomicsInfrastructure/acheron/internal/logging"
)

// getLogLevel parses ACHERON_LOG_LEVEL, falling back to LOG_LEVEL.
// Defaults to slog.LevelInfo if neither is set or if the value is invalid.
func getLogLevel() slog.Level {
	v := viper.New()
	v.SetEnvPrefix(config.EnvPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	levelStr := v.GetString("LOG_LEVEL")
	if levelStr == "" {
		levelStr = os.Getenv("LOG_LEVEL")
	}

	switch strings.ToLower(levelStr) {
	case "debug":
		return slog.LevelDebug
	case "info", "":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		slog.Warn("Invalid LOG_LEVEL, using INFO", "value", levelStr)
		return slog.LevelInfo
	}
}

func main() {
	// stderr until a command opens its log file; stdout stays clean for
	// commands that print data (list, version --format json)
	level := getLogLevel()
	slog.SetDefault(slog.New(logging.NewHandler(os.Stderr, level)))

	if err := app.NewRootCmd(level).Execute(); err != nil {
		os.Exit(1)
	}
}
