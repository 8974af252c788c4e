package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/docudb/docudb"
	"github.com/docudb/docudb/query"
)

// FindOptions holds flags for the find command.
type FindOptions struct {
	*RootOptions
	Op       string
	OrderBy  string
	Desc     bool
	Limit    int
	ShowBody bool
}

// NewFindCommand creates the find command.
func NewFindCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &FindOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "find <collection> <path> <value>",
		Short: "Find documents matching a predicate",
		Long: `Find documents where the field at <path> matches <value>.

Paths starting with $ address the JSON body; anything else names a
projected index column. Values are parsed as integer, then real, then
the literal null, then string.

Example:
  docudb find --db app.db users '$.name' alice
  docudb find --db app.db users '$.score' 10 --op gt --order '$.score' --desc --limit 5`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFind(opts, args[0], args[1], args[2], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Op, "op", "eq", "predicate operator (eq|neq|gt|lt|ge|le|like|regexp)")
	cmd.Flags().StringVar(&opts.OrderBy, "order", "", "field to order results by")
	cmd.Flags().BoolVar(&opts.Desc, "desc", false, "order descending")
	cmd.Flags().IntVar(&opts.Limit, "limit", 0, "maximum number of results")
	cmd.Flags().BoolVar(&opts.ShowBody, "body", false, "print document bodies instead of ids")

	return cmd
}

func runFind(opts *FindOptions, collection, path, value string, cmd *cobra.Command) error {
	expr, err := buildExpr(opts.Op, path, value)
	if err != nil {
		return err
	}

	db, err := docudb.Open(opts.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	ctx := cmd.Context()
	coll, err := db.Collection(ctx, collection)
	if err != nil {
		return err
	}

	var findOpts []docudb.FindOption
	if opts.OrderBy != "" {
		order := query.Asc(opts.OrderBy)
		if opts.Desc {
			order = query.Desc(opts.OrderBy)
		}
		findOpts = append(findOpts, docudb.OrderBy(order))
	}
	if opts.Limit > 0 {
		findOpts = append(findOpts, docudb.Limit(opts.Limit))
	}

	refs, err := coll.Find(ctx, expr, findOpts...)
	if err != nil {
		return err
	}

	for _, ref := range refs {
		if opts.ShowBody {
			doc, err := ref.Doc(ctx)
			if err != nil {
				return err
			}
			body, err := doc.Body(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), body)
		} else {
			fmt.Fprintln(cmd.OutOrStdout(), ref.ID())
		}
	}
	return nil
}

// buildExpr maps the operator flag and a raw value onto a predicate.
func buildExpr(op, path, value string) (query.Expr, error) {
	switch op {
	case "like":
		return query.Like(path, value), nil
	case "regexp":
		return query.Regexp(path, value), nil
	}

	v := parseValue(value)
	switch op {
	case "eq":
		return query.Eq(path, v), nil
	case "neq":
		return query.Neq(path, v), nil
	case "gt":
		return query.Gt(path, v), nil
	case "lt":
		return query.Lt(path, v), nil
	case "ge":
		return query.Ge(path, v), nil
	case "le":
		return query.Le(path, v), nil
	default:
		return query.Expr{}, fmt.Errorf("unknown operator %q", op)
	}
}

// parseValue interprets a flag value: integer, then real, then the
// literal null, then string.
func parseValue(raw string) query.Value {
	if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return query.Int64(n)
	}
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		return query.Float64(f)
	}
	if raw == "null" {
		return query.Null{}
	}
	return query.String(raw)
}
