// Frontdesk - AI receptionist escalation service
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/ashureev/frontdesk/internal/config"
	"github.com/ashureev/frontdesk/internal/store"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "frontdesk",
	Short: "frontdesk - escalate what the AI receptionist cannot answer",
	Long: `Runs the help request lifecycle: questions the receptionist cannot answer
are escalated to a supervisor, time out after the SLA window, and resolved
answers are learned into the knowledge base.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := godotenv.Load(); err != nil {
			slog.Debug("No .env file found, using environment variables")
		}
		return nil
	},
}

func main() {
	rootCmd.AddCommand(serveCmd, requestsCmd, knowledgeCmd)
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func setupLogging(level slog.Level) *slog.Logger {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)
	return logger
}

// loadConfig reads configuration and installs the JSON logger at the
// configured level. CLI subcommands log to stderr so stdout stays parseable.
func loadConfig(stderr bool) (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	if stderr {
		logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.LogLevel}))
		slog.SetDefault(logger)
		return cfg, logger, nil
	}
	return cfg, setupLogging(cfg.LogLevel), nil
}

// openStore opens and pings the configured repository.
func openStore(ctx context.Context, cfg *config.Config) (store.Repository, error) {
	repo, err := store.Open(cfg.Store.Driver, cfg.Store.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", cfg.Store.Driver, err)
	}
	if err := repo.Ping(ctx); err != nil {
		_ = repo.Close()
		return nil, fmt.Errorf("store health check failed: %w", err)
	}
	return repo, nil
}

func closeStore(repo store.Repository) {
	if err := repo.Close(); err != nil {
		slog.Error("Failed to close repository", "error", err)
	}
}
