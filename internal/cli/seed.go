package cli

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/docudb/docudb"
	"github.com/docudb/docudb/schema"
)

// SeedFile is the on-disk fixture format for the seed command.
type SeedFile struct {
	// Schema is an optional JSON Schema every seeded body must satisfy.
	Schema string `yaml:"schema,omitempty"`

	// Documents are the bodies to insert, one document each.
	Documents []map[string]any `yaml:"documents"`
}

// NewSeedCommand creates the seed command.
func NewSeedCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "seed <collection> <fixtures.yaml>",
		Short: "Load documents from a YAML fixture file",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSeed(rootOpts, args[0], args[1], cmd)
		},
	}
}

func runSeed(opts *RootOptions, collection, path string, cmd *cobra.Command) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read fixtures: %w", err)
	}

	var seed SeedFile
	if err := yaml.Unmarshal(raw, &seed); err != nil {
		return fmt.Errorf("parse fixtures: %w", err)
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

	if seed.Schema != "" {
		check, err := schema.New(seed.Schema)
		if err != nil {
			return err
		}
		coll.SetSchema(check)
	}

	for i, fields := range seed.Documents {
		body, err := json.Marshal(fields)
		if err != nil {
			return fmt.Errorf("encode document %d: %w", i, err)
		}

		doc, err := coll.Create(ctx)
		if err != nil {
			return err
		}
		if err := doc.SetBody(ctx, string(body)); err != nil {
			return fmt.Errorf("document %d: %w", i, err)
		}
		slog.Debug("seeded document", "collection", collection, "id", doc.ID())
	}

	fmt.Fprintf(cmd.OutOrStdout(), "seeded %d documents into %s\n", len(seed.Documents), collection)
	return nil
}
