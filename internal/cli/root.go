// Package cli implements the docudb command line tool.
package cli

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Database string
	Verbose  bool
}

// NewRootCommand creates the root command for the docudb CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "docudb",
		Short: "Inspect and manage docudb document stores",
		Long: `docudb is a document store over SQLite's JSON1 functions.

Every command operates on the store named by --db, creating it when
it does not exist yet.`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := slog.LevelInfo
			if opts.Verbose {
				level = slog.LevelDebug
			}
			handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
			slog.SetDefault(slog.New(handler))
		},
	}

	cmd.PersistentFlags().StringVar(&opts.Database, "db", "", "path to database file (required)")
	_ = cmd.MarkPersistentFlagRequired("db")
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")

	cmd.AddCommand(NewSeedCommand(opts))
	cmd.AddCommand(NewFindCommand(opts))
	cmd.AddCommand(NewCountCommand(opts))
	cmd.AddCommand(NewBackupCommand(opts))

	return cmd
}
