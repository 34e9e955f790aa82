// Package main provides hobbyctl, the HobbyShelf administration CLI.
//
// It opens the same database, search engine and backup directory as the
// server, so it should not run against a database the server is writing to.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/samber/do/v2"
	"github.com/spf13/cobra"

	"github.com/hobbyshelf/hobbyshelf-server/internal/config"
	"github.com/hobbyshelf/hobbyshelf-server/internal/di"
	"github.com/hobbyshelf/hobbyshelf-server/internal/di/providers"
)

var (
	overrides config.Overrides

	// injector is built by PersistentPreRunE and shut down afterwards.
	injector *do.RootScope
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "hobbyctl",
	Short: "Administer a HobbyShelf data directory",
	Long: `hobbyctl manages a HobbyShelf installation from the command line:
snapshots, search index maintenance, statistics and seed data.

Configuration follows the server: flags override environment variables,
which override the .env file.`,
	SilenceUsage:      true,
	PersistentPreRunE: openContainer,
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		return closeContainer()
	},
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&overrides.EnvFile, "env-file", ".env", "path to .env file")
	flags.StringVar(&overrides.Environment, "env", "", "environment (development, staging, production)")
	flags.StringVar(&overrides.LogLevel, "log-level", "warn", "log level (debug, info, warn, error)")
	flags.StringVar(&overrides.DataPath, "data-path", "", "base directory for data (default ~/HobbyShelf)")
	flags.StringVar(&overrides.DatabasePath, "db", "", "SQLite database path (default {data}/hobbyshelf.db)")
	flags.StringVar(&overrides.SearchEngine, "search-engine", "", "search engine (fts5, bleve)")
	flags.StringVar(&overrides.SchemaEnforcement, "schema-enforcement", "", "property schema enforcement (off, warn, strict)")
	flags.StringVar(&overrides.BackupPath, "backup-path", "", "directory for snapshots (default {data}/backups)")

	rootCmd.AddCommand(backupCmd)
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(reindexCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(seedCmd)
	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), "hobbyctl", providers.Version)
	},
}

func openContainer(cmd *cobra.Command, args []string) error {
	if cmd.Name() == "version" || cmd.Name() == "help" {
		return nil
	}

	injector = di.NewCLIContainer(overrides)
	if err := di.BootstrapServices(injector); err != nil {
		return fmt.Errorf("open data directory: %w", err)
	}
	return nil
}

func closeContainer() error {
	if injector == nil {
		return nil
	}
	if err := injector.Shutdown(); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
