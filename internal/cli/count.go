package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/docudb/docudb"
	"github.com/docudb/docudb/query"
)

// CountOptions holds flags for the count command.
type CountOptions struct {
	*RootOptions
	Op string
}

// NewCountCommand creates the count command.
func NewCountCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CountOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "count <collection> [<path> <value>]",
		Short: "Count documents, optionally matching a predicate",
		Args:  cobra.RangeArgs(1, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 2 {
				return fmt.Errorf("a predicate needs both <path> and <value>")
			}
			return runCount(opts, args, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Op, "op", "eq", "predicate operator (eq|neq|gt|lt|ge|le|like|regexp)")

	return cmd
}

func runCount(opts *CountOptions, args []string, cmd *cobra.Command) error {
	expr := query.All()
	if len(args) == 3 {
		var err error
		expr, err = buildExpr(opts.Op, args[1], args[2])
		if err != nil {
			return err
		}
	}

	db, err := docudb.Open(opts.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	ctx := cmd.Context()
	coll, err := db.Collection(ctx, args[0])
	if err != nil {
		return err
	}

	n, err := coll.Count(ctx, expr)
	if err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), n)
	return nil
}
