package cli

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/docudb/docudb"
)

// NewBackupCommand creates the backup command.
func NewBackupCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "backup <dest>",
		Short: "Copy the store to a new file using the online backup API",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := docudb.Open(rootOpts.Database)
			if err != nil {
				return err
			}
			defer db.Close()

			err = db.Backup(cmd.Context(), args[0], func(remaining, total int) {
				slog.Debug("backup progress", "remaining", remaining, "total", total)
			})
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "backed up to %s\n", args[0])
			return nil
		},
	}
}
