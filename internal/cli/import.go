package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/artpar/arbor/internal/app"
	"github.com/artpar/arbor/internal/core"
	"github.com/artpar/arbor/internal/dataset"
	datasetdb "github.com/artpar/arbor/internal/dataset/sqlite"
	"github.com/spf13/cobra"
)

// NewImportCommand creates the import command.
func NewImportCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import SRC DST",
		Short: "Convert a taxonomy between JSON, YAML and SQLite",
		Long: `Read the taxonomy in SRC and write it to DST. The formats follow the file
extensions: .json, .yaml/.yml, or .db/.sqlite for a SQLite dataset. An empty
SRC ("") reads the bundled taxonomy. Importing into an existing database
replaces its taxa.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(cmd, app.ExpandPath(args[0]), app.ExpandPath(args[1]))
		},
	}
	return cmd
}

func runImport(cmd *cobra.Command, src, dst string) error {
	ctx := context.Background()

	loader, err := dataset.Open(src)
	if err != nil {
		return err
	}
	roots, err := loader.Load(ctx)
	if err != nil {
		return fmt.Errorf("failed to load %s: %w", loader.Source(), err)
	}

	format, err := dataset.DetectFormat(dst)
	if err != nil {
		return err
	}
	if format == dataset.FormatSQLite {
		err = importSQLite(ctx, dst, roots)
	} else {
		err = dataset.Save(dst, roots)
	}
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Imported %d taxa from %s into %s\n", core.Count(roots), loader.Source(), dst)
	return nil
}

func importSQLite(ctx context.Context, path string, roots []*core.Taxon) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create dataset directory: %w", err)
	}
	store, err := datasetdb.New(path)
	if err != nil {
		return err
	}
	defer store.Close()

	return store.Import(ctx, roots)
}
