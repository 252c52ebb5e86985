// Package cmd contains the CLI entry points for the portfolio backend.
package cmd

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/rushikeshxdev/AI-Powered-Portfolio/internal/config"
	"github.com/rushikeshxdev/AI-Powered-Portfolio/internal/log"
)

var rootCmd = &cobra.Command{
	Use:   "portfolio",
	Short: "AI-powered portfolio chat backend",
	Long: `Backend for the AI-powered portfolio site.

It serves an HTTP API that answers questions about the portfolio owner by
retrieving relevant profile chunks from a pgvector index and streaming
Gemini-generated answers over SSE.

Run "portfolio serve" to start the API server, or "portfolio index" to
(re)build the vector index from the profile document.`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// loadConfig loads and logs the effective configuration. The returned
// logger is configured from the loaded settings.
func loadConfig() (*config.Config, log.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("loading config: %w", err)
	}

	logger := log.New(log.Config{
		Level: parseLogLevel(cfg.LogLevel),
		JSON:  cfg.LogJSON,
	})
	return cfg, logger, nil
}

// parseLogLevel maps a config string to a slog level. Unknown values fall
// back to info rather than failing startup.
func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
