// Command homectl administers a homestead installation from the shell.
package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lmittmann/tint"
	"github.com/spf13/cobra"

	"github.com/homestead/homestead/internal/repository"
)

var (
	verbose     bool
	databaseURL string

	logger *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "homectl",
	Short: "Administer a homestead installation",
	Long: `homectl runs maintenance tasks against the homestead database and API.

Database commands read the connection string from --database-url or
$DATABASE_URL. Offline commands work on a local SQLite copy of the
recipe catalog.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := slog.LevelInfo
		if verbose {
			level = slog.LevelDebug
		}
		logger = slog.New(tint.NewHandler(os.Stderr, &tint.Options{
			Level:      level,
			TimeFormat: time.Kitchen,
		}))
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&databaseURL, "database-url", os.Getenv("DATABASE_URL"), "PostgreSQL connection string")
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

var errNoDatabase = errors.New("no database configured: set --database-url or DATABASE_URL")

// openRepository connects to the configured database. The caller closes it.
func openRepository(ctx context.Context) (*repository.Repository, error) {
	if databaseURL == "" {
		return nil, errNoDatabase
	}
	return repository.New(ctx, databaseURL)
}
