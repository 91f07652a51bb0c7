package components

import (
	"github.com/artpar/arbor/internal/core"
	"github.com/artpar/arbor/internal/tui"
)

// TaxonRenderer returns a row renderer showing the name, rank, common name
// and a star for starred taxa. isStarred may be nil.
func TaxonRenderer(styles tui.Styles, isStarred func(id string) bool) func(*core.Taxon) string {
	return func(t *core.Taxon) string {
		label := t.Name
		if t.Taxon != "" {
			label += " " + styles.Muted.Render("("+t.Taxon+")")
		}
		if t.CommonName != "" && t.CommonName != t.Name {
			label += " " + styles.Status.Render("· "+t.CommonName)
		}
		if isStarred != nil && isStarred(t.ID) {
			label += " " + styles.Star.Render("★")
		}
		return label
	}
}
