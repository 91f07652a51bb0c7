package cli

import (
	"fmt"
	"strings"

	"github.com/artpar/arbor/internal/core"
	"github.com/goccy/go-json"
	"github.com/spf13/cobra"
)

// SearchOptions holds options for the search command.
type SearchOptions struct {
	JSON bool
}

type searchResult struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	Taxon      string   `json:"taxon,omitempty"`
	CommonName string   `json:"common_name,omitempty"`
	Path       []string `json:"path"`
}

// NewSearchCommand creates the search command.
func NewSearchCommand(root *RootOptions) *cobra.Command {
	opts := &SearchOptions{}

	cmd := &cobra.Command{
		Use:   "search TERM",
		Short: "List taxa matching a term",
		Long:  "List every taxon the matcher accepts for TERM, with its path from the root.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSearch(cmd, root, args[0], opts)
		},
	}

	cmd.Flags().BoolVar(&opts.JSON, "json", false, "Output results as JSON")

	return cmd
}

func runSearch(cmd *cobra.Command, root *RootOptions, term string, opts *SearchOptions) error {
	application, roots, err := loadForCommand(cmd, root)
	if err != nil {
		return err
	}
	defer application.Close()

	match, err := application.Matcher()
	if err != nil {
		return err
	}

	results := []searchResult{}
	core.Walk(roots, func(t *core.Taxon, depth int) bool {
		if match(t, term) {
			var path []string
			for _, p := range core.Path(roots, t.ID) {
				path = append(path, p.Name)
			}
			results = append(results, searchResult{
				ID:         t.ID,
				Name:       t.Name,
				Taxon:      t.Taxon,
				CommonName: t.CommonName,
				Path:       path,
			})
		}
		return true
	})

	out := cmd.OutOrStdout()
	if opts.JSON {
		encoder := json.NewEncoder(out)
		encoder.SetIndent("", "  ")
		return encoder.Encode(results)
	}

	if len(results) == 0 {
		fmt.Fprintln(out, "No results found")
		return nil
	}
	for _, r := range results {
		fmt.Fprintf(out, "%s (%s)\n", strings.Join(r.Path, " > "), r.Taxon)
	}
	return nil
}
