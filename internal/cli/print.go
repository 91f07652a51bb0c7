package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/artpar/arbor/internal/app"
	"github.com/artpar/arbor/internal/core"
	"github.com/artpar/arbor/internal/logging"
	"github.com/artpar/arbor/internal/tree"
	"github.com/goccy/go-json"
	"github.com/spf13/cobra"
)

// PrintOptions holds options for the print command.
type PrintOptions struct {
	Search    string
	ExpandAll bool
	JSON      bool
}

// printedRow is the JSON shape of one visible row.
type printedRow struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Taxon       string `json:"taxon,omitempty"`
	CommonName  string `json:"common_name,omitempty"`
	Depth       int    `json:"depth"`
	HasChildren bool   `json:"has_children"`
	Expanded    bool   `json:"expanded"`
	Matched     bool   `json:"matched,omitempty"`
}

// NewPrintCommand creates the print command.
func NewPrintCommand(root *RootOptions) *cobra.Command {
	opts := &PrintOptions{}

	cmd := &cobra.Command{
		Use:   "print",
		Short: "Print the visible rows of the tree",
		Long:  "Print the rows the browser would show for a search term and expansion state.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPrint(cmd, root, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.Search, "search", "s", "", "Search term to apply")
	cmd.Flags().BoolVarP(&opts.ExpandAll, "expand-all", "a", false, "Expand every node before searching")
	cmd.Flags().BoolVar(&opts.JSON, "json", false, "Output rows as JSON")

	return cmd
}

func runPrint(cmd *cobra.Command, root *RootOptions, opts *PrintOptions) error {
	application, roots, err := loadForCommand(cmd, root)
	if err != nil {
		return err
	}
	defer application.Close()

	treeOpts, err := application.TreeOptions()
	if err != nil {
		return err
	}

	state := tree.NewState(roots, treeOpts)
	if opts.ExpandAll {
		state.ExpandAll()
	}
	state.SetSearchTerm(opts.Search)
	rows := state.Rows()

	application.Logger().Debug("printing rows", "rows", len(rows), "term", opts.Search)

	if opts.JSON {
		return printRowsJSON(cmd.OutOrStdout(), rows)
	}
	return printRows(cmd.OutOrStdout(), rows)
}

// loadForCommand resolves the config for a non-interactive command and
// loads the dataset without the simulated delay. Logs go to stderr.
func loadForCommand(cmd *cobra.Command, root *RootOptions) (*app.App, []*core.Taxon, error) {
	cfg, err := resolveConfig(cmd, root)
	if err != nil {
		return nil, nil, err
	}
	cfg.Delay = 0

	level := slog.LevelWarn
	if cmd.Flags().Changed("log-level") {
		level, _ = logging.ParseLevel(cfg.LogLevel)
	}
	application := app.New(
		app.WithConfig(cfg),
		app.WithLogger(logging.New(cmd.ErrOrStderr(), level)),
	)

	loader, err := application.Loader()
	if err != nil {
		return nil, nil, err
	}
	roots, err := loader.Load(context.Background())
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load %s: %w", loader.Source(), err)
	}
	return application, roots, nil
}

func printRows(w io.Writer, rows []tree.Row[*core.Taxon]) error {
	if len(rows) == 0 {
		_, err := fmt.Fprintln(w, "No results found")
		return err
	}
	for _, row := range rows {
		affordance := "  "
		if row.HasChildren {
			if row.Expanded {
				affordance = "▼ "
			} else {
				affordance = "▶ "
			}
		}
		line := strings.Repeat("  ", row.Depth) + affordance + row.Item.Label()
		if c := row.Item.CommonName; c != "" && c != row.Item.Name {
			line += " · " + c
		}
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

func printRowsJSON(w io.Writer, rows []tree.Row[*core.Taxon]) error {
	out := make([]printedRow, 0, len(rows))
	for _, row := range rows {
		out = append(out, printedRow{
			ID:          row.Key,
			Name:        row.Item.Name,
			Taxon:       row.Item.Taxon,
			CommonName:  row.Item.CommonName,
			Depth:       row.Depth,
			HasChildren: row.HasChildren,
			Expanded:    row.Expanded,
			Matched:     row.Matched,
		})
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(out)
}
