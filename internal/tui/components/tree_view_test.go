package components

import (
	"strings"
	"testing"
	"time"

	"github.com/artpar/arbor/internal/core"
	"github.com/artpar/arbor/internal/tree"
	"github.com/artpar/arbor/internal/tui"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/x/ansi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type taxonView = TreeView[*core.Taxon]

func testForest() []*core.Taxon {
	return []*core.Taxon{
		{
			ID: "plantae", Taxon: "Kingdom", Name: "Plantae", CommonName: "Plants",
			Children: []*core.Taxon{{
				ID: "rosaceae", Taxon: "Family", Name: "Rosaceae", CommonName: "Rose family",
				Children: []*core.Taxon{
					{ID: "malus", Taxon: "Species", Name: "Malus domestica", CommonName: "Apple tree"},
				},
			}},
		},
		{
			ID: "animalia", Taxon: "Kingdom", Name: "Animalia", CommonName: "Animals",
			Children: []*core.Taxon{{
				ID: "felidae", Taxon: "Family", Name: "Felidae", CommonName: "Cat family",
				Children: []*core.Taxon{
					{ID: "leo", Taxon: "Species", Name: "Panthera leo", CommonName: "Lion"},
					{ID: "catus", Taxon: "Species", Name: "Felis catus", CommonName: "Domestic cat"},
				},
			}},
		},
	}
}

func testConfig() TreeConfig[*core.Taxon] {
	return TreeConfig[*core.Taxon]{
		Items:        testForest(),
		Children:     core.TaxonChildren,
		Key:          core.TaxonKey,
		SearchFilter: core.MatchTaxon,
		Filter:       true,
		Renderer:     func(t *core.Taxon) string { return t.Name },
	}
}

func newTestView(t *testing.T, cfg TreeConfig[*core.Taxon]) *taxonView {
	t.Helper()
	v := NewTreeView("Taxonomy", cfg)
	v.Focus()
	return v
}

// Test helpers for key event simulation

func send(v *taxonView, msg tea.Msg) (*taxonView, tea.Cmd) {
	updated, cmd := v.Update(msg)
	return updated.(*taxonView), cmd
}

func pressKey(v *taxonView, key rune) (*taxonView, tea.Cmd) {
	return send(v, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{key}})
}

func pressType(v *taxonView, keyType tea.KeyType) (*taxonView, tea.Cmd) {
	return send(v, tea.KeyMsg{Type: keyType})
}

// typeSearch focuses the input, types query and leaves the input.
func typeSearch(v *taxonView, query string) *taxonView {
	v, _ = pressKey(v, '/')
	for _, r := range query {
		v, _ = pressKey(v, r)
	}
	v, _ = pressType(v, tea.KeyEnter)
	return v
}

func plainView(v *taxonView) string {
	return ansi.Strip(v.View())
}

func rowIDs(v *taxonView) []string {
	var ids []string
	for _, row := range v.Rows() {
		ids = append(ids, row.Key)
	}
	return ids
}

func TestNewTreeView(t *testing.T) {
	t.Run("starts collapsed with the first row focused", func(t *testing.T) {
		v := newTestView(t, testConfig())

		assert.Equal(t, "Taxonomy", v.Title())
		assert.Equal(t, []string{"plantae", "animalia"}, rowIDs(v))
		sel, ok := v.Selected()
		require.True(t, ok)
		assert.Equal(t, "plantae", sel.ID)
		assert.Equal(t, 0, v.Cursor())
	})

	t.Run("renders placeholder and affordances", func(t *testing.T) {
		v := newTestView(t, testConfig())
		view := plainView(v)

		assert.Contains(t, view, "Search...")
		assert.Contains(t, view, "▶ Plantae")
		assert.Contains(t, view, "▶ Animalia")
		assert.NotContains(t, view, "Rosaceae")
	})

	t.Run("custom placeholder", func(t *testing.T) {
		cfg := testConfig()
		cfg.FilterPlaceholder = "Find a taxon"
		assert.Contains(t, plainView(newTestView(t, cfg)), "Find a taxon")
	})

	t.Run("without filter there is no input", func(t *testing.T) {
		cfg := testConfig()
		cfg.Filter = false
		v := newTestView(t, cfg)
		assert.NotContains(t, plainView(v), "Search...")

		v, _ = pressKey(v, '/')
		assert.False(t, v.IsSearching())
	})
}

func TestTreeView_EmptyStates(t *testing.T) {
	t.Run("no items", func(t *testing.T) {
		cfg := testConfig()
		cfg.Items = nil
		assert.Contains(t, plainView(newTestView(t, cfg)), NoResultsText)
	})

	t.Run("loading hides the empty message", func(t *testing.T) {
		cfg := testConfig()
		cfg.Items = nil
		cfg.Loading = true
		v := newTestView(t, cfg)

		view := plainView(v)
		assert.Contains(t, view, LoadingText)
		assert.NotContains(t, view, NoResultsText)
		assert.NotNil(t, v.Init(), "spinner starts ticking")
	})

	t.Run("set loading", func(t *testing.T) {
		v := newTestView(t, testConfig())
		assert.NotNil(t, v.SetLoading(true))
		assert.Nil(t, v.SetLoading(true), "already loading")
		assert.True(t, v.Loading())
		assert.Nil(t, v.SetLoading(false))
		assert.NotContains(t, plainView(v), LoadingText)
	})

	t.Run("error line", func(t *testing.T) {
		v := newTestView(t, testConfig())
		v.SetError("Error fetching taxonomy data")
		assert.Contains(t, plainView(v), "Error fetching taxonomy data")
		assert.Equal(t, "Error fetching taxonomy data", v.ErrorText())
	})
}

func TestTreeView_Keyboard(t *testing.T) {
	t.Run("l expands and emits toggle", func(t *testing.T) {
		var toggled []*core.Taxon
		cfg := testConfig()
		cfg.OnToggle = func(t *core.Taxon) { toggled = append(toggled, t) }
		v := newTestView(t, cfg)

		v, cmd := pressKey(v, 'l')
		require.NotNil(t, cmd)
		msg, ok := cmd().(ItemToggledMsg[*core.Taxon])
		require.True(t, ok)
		assert.True(t, msg.Expanded)
		assert.Equal(t, "plantae", msg.Item.ID)
		require.Len(t, toggled, 1)

		assert.Contains(t, plainView(v), "▼ Plantae")
		assert.Equal(t, []string{"plantae", "rosaceae", "animalia"}, rowIDs(v))
	})

	t.Run("right arrow on a leaf does nothing", func(t *testing.T) {
		toggles := 0
		cfg := testConfig()
		cfg.OnToggle = func(*core.Taxon) { toggles++ }
		v := newTestView(t, cfg)
		v.State().ExpandAll()
		v.State().Focus("malus")

		_, cmd := pressType(v, tea.KeyRight)
		assert.Nil(t, cmd)
		assert.Zero(t, toggles)
	})

	t.Run("h collapses", func(t *testing.T) {
		v := newTestView(t, testConfig())
		v, _ = pressKey(v, 'l')
		v, _ = pressKey(v, 'h')
		assert.Equal(t, []string{"plantae", "animalia"}, rowIDs(v))
	})

	t.Run("j and k move focus", func(t *testing.T) {
		v := newTestView(t, testConfig())
		v, _ = pressKey(v, 'l')

		v, _ = pressKey(v, 'j')
		assert.Equal(t, 1, v.Cursor())
		sel, _ := v.Selected()
		assert.Equal(t, "rosaceae", sel.ID)

		v, _ = pressType(v, tea.KeyDown)
		v, _ = pressType(v, tea.KeyDown)
		assert.Equal(t, 2, v.Cursor(), "clamped at the last row")

		v, _ = pressKey(v, 'k')
		assert.Equal(t, 1, v.Cursor())
	})

	t.Run("g and G jump", func(t *testing.T) {
		v := newTestView(t, testConfig())
		v, _ = pressKey(v, '+')
		require.Len(t, v.Rows(), 7)

		v, _ = pressKey(v, 'G')
		assert.Equal(t, 6, v.Cursor())
		v, _ = pressKey(v, 'g')
		assert.Equal(t, 0, v.Cursor())

		v, _ = pressKey(v, '-')
		assert.Len(t, v.Rows(), 2)
	})

	t.Run("enter emits the exact item", func(t *testing.T) {
		var clicked *core.Taxon
		cfg := testConfig()
		cfg.OnItemClick = func(t *core.Taxon) { clicked = t }
		v := newTestView(t, cfg)
		root := cfg.Items[0]

		v, cmd := pressType(v, tea.KeyEnter)
		require.NotNil(t, cmd)
		msg, ok := cmd().(ItemClickedMsg[*core.Taxon])
		require.True(t, ok)
		assert.Same(t, root, msg.Item)
		assert.Same(t, root, clicked)
		assert.Zero(t, v.State().Expanded().Len(), "activation does not expand")
	})

	t.Run("space activates", func(t *testing.T) {
		v := newTestView(t, testConfig())
		_, cmd := send(v, tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}})
		require.NotNil(t, cmd)
		_, ok := cmd().(ItemClickedMsg[*core.Taxon])
		assert.True(t, ok)
	})

	t.Run("unfocused view ignores keys", func(t *testing.T) {
		v := newTestView(t, testConfig())
		v.Blur()
		v, _ = pressKey(v, 'l')
		assert.Len(t, v.Rows(), 2)

		v, _ = send(v, tui.FocusMsg{})
		assert.True(t, v.Focused())
		v, _ = send(v, tui.BlurMsg{})
		assert.False(t, v.Focused())
	})
}

func TestTreeView_Search(t *testing.T) {
	t.Run("auto-expands ancestors of matches", func(t *testing.T) {
		v := newTestView(t, testConfig())
		v = typeSearch(v, "apple")

		assert.Equal(t, "apple", v.SearchTerm())
		assert.False(t, v.IsSearching())
		assert.Equal(t, []string{"plantae", "rosaceae", "malus"}, rowIDs(v))
		assert.Contains(t, plainView(v), "Malus domestica")
		assert.NotContains(t, plainView(v), "Animalia")
	})

	t.Run("no matches", func(t *testing.T) {
		v := newTestView(t, testConfig())
		v = typeSearch(v, "zzz")
		assert.Empty(t, v.Rows())
		assert.Contains(t, plainView(v), NoResultsText)
	})

	t.Run("esc clears the term and collapses", func(t *testing.T) {
		v := newTestView(t, testConfig())
		v = typeSearch(v, "cat")
		require.Contains(t, rowIDs(v), "catus")

		v, _ = pressType(v, tea.KeyEsc)
		assert.Empty(t, v.SearchTerm())
		assert.Equal(t, []string{"plantae", "animalia"}, rowIDs(v))
	})

	t.Run("restore policy brings back manual expansion", func(t *testing.T) {
		cfg := testConfig()
		cfg.ClearPolicy = tree.ClearRestoreManual
		v := newTestView(t, cfg)
		v, _ = pressKey(v, 'l')

		v = typeSearch(v, "lion")
		v, _ = pressType(v, tea.KeyEsc)
		assert.Equal(t, []string{"plantae", "rosaceae", "animalia"}, rowIDs(v))
	})

	t.Run("backspace widens the search", func(t *testing.T) {
		v := newTestView(t, testConfig())
		v, _ = pressKey(v, '/')
		for _, r := range "lionx" {
			v, _ = pressKey(v, r)
		}
		assert.Empty(t, v.Rows())

		v, _ = pressType(v, tea.KeyBackspace)
		assert.Equal(t, "lion", v.SearchTerm())
		assert.Contains(t, rowIDs(v), "leo")
		assert.True(t, v.IsSearching())
	})

	t.Run("typed keys do not navigate", func(t *testing.T) {
		v := newTestView(t, testConfig())
		v, _ = pressKey(v, '/')
		v, _ = pressKey(v, 'l')
		assert.Equal(t, "l", v.SearchTerm())
		assert.True(t, v.IsSearching())
		assert.Equal(t, 0, v.Cursor())
	})

	t.Run("debounced terms apply on the latest tick only", func(t *testing.T) {
		cfg := testConfig()
		cfg.SearchDebounce = 50 * time.Millisecond
		v := newTestView(t, cfg)

		v, _ = pressKey(v, '/')
		v, cmd := pressKey(v, 'a')
		assert.NotNil(t, cmd)
		v, _ = pressKey(v, 'p')
		assert.Empty(t, v.SearchTerm(), "not applied before the tick")

		stale := searchDebounceMsg{id: v.id, tag: v.debounce - 1}
		v, _ = send(v, stale)
		assert.Empty(t, v.SearchTerm())

		other := searchDebounceMsg{id: v.id + 1000, tag: v.debounce}
		v, _ = send(v, other)
		assert.Empty(t, v.SearchTerm())

		v, _ = send(v, searchDebounceMsg{id: v.id, tag: v.debounce})
		assert.Equal(t, "ap", v.SearchTerm())
	})

	t.Run("focus follows into the filtered rows", func(t *testing.T) {
		v := newTestView(t, testConfig())
		v, _ = pressKey(v, 'j') // animalia
		v = typeSearch(v, "apple")

		sel, ok := v.Selected()
		require.True(t, ok)
		assert.Contains(t, []string{"plantae", "rosaceae", "malus"}, sel.ID)
	})

	t.Run("set matcher", func(t *testing.T) {
		v := newTestView(t, testConfig())
		v.SetSearchTerm("Species")
		assert.Len(t, v.Rows(), 7)

		v.SetMatcher(func(t *core.Taxon, term string) bool { return t.Name == term })
		assert.Empty(t, v.Rows())
	})
}

func TestTreeView_SetItemsKeepsExpansion(t *testing.T) {
	v := newTestView(t, testConfig())
	v, _ = pressKey(v, 'l')
	v, _ = pressKey(v, 'j')

	v.SetItems(testForest())

	assert.Equal(t, []string{"plantae", "rosaceae", "animalia"}, rowIDs(v))
	sel, ok := v.Selected()
	require.True(t, ok)
	assert.Equal(t, "rosaceae", sel.ID)
}

func TestTreeView_Indentation(t *testing.T) {
	tests := []struct {
		indent int
		prefix string
	}{
		{0, "    ▶ Rosaceae"},   // default 20: marker + 2 cells
		{40, "      ▶ Rosaceae"}, // marker + 4 cells
	}
	for _, tt := range tests {
		cfg := testConfig()
		cfg.IndentSize = tt.indent
		v := newTestView(t, cfg)
		v, _ = pressKey(v, 'l')

		lines := strings.Split(plainView(v), "\n")
		require.GreaterOrEqual(t, len(lines), 3)
		assert.Equal(t, tt.prefix, strings.TrimRight(lines[2], " "))
	}
}

func TestTreeView_Mouse(t *testing.T) {
	click := func(x, y int) tea.MouseMsg {
		return tea.MouseMsg{X: x, Y: y, Action: tea.MouseActionPress, Button: tea.MouseButtonLeft}
	}

	t.Run("click on the affordance toggles", func(t *testing.T) {
		v := newTestView(t, testConfig())
		// Line 0 is the search input.
		v, cmd := send(v, click(2, 1))
		require.NotNil(t, cmd)
		_, ok := cmd().(ItemToggledMsg[*core.Taxon])
		assert.True(t, ok)
		assert.Equal(t, []string{"plantae", "rosaceae", "animalia"}, rowIDs(v))
	})

	t.Run("click on the affordance while searching changes nothing", func(t *testing.T) {
		v := newTestView(t, testConfig())
		v = typeSearch(v, "apple")
		before := rowIDs(v)
		require.Equal(t, []string{"plantae", "rosaceae", "malus"}, before)

		v, cmd := send(v, click(2, 1))
		assert.Nil(t, cmd, "no toggle event")
		assert.Equal(t, before, rowIDs(v))
		assert.Contains(t, plainView(v), "▼ Plantae")
	})

	t.Run("click on the label activates and focuses", func(t *testing.T) {
		cfg := testConfig()
		v := newTestView(t, cfg)

		v, cmd := send(v, click(8, 2))
		require.NotNil(t, cmd)
		msg, ok := cmd().(ItemClickedMsg[*core.Taxon])
		require.True(t, ok)
		assert.Same(t, cfg.Items[1], msg.Item)
		assert.Equal(t, 1, v.Cursor())
	})

	t.Run("click below the rows is ignored", func(t *testing.T) {
		v := newTestView(t, testConfig())
		_, cmd := send(v, click(8, 10))
		assert.Nil(t, cmd)
	})

	t.Run("wheel moves focus", func(t *testing.T) {
		v := newTestView(t, testConfig())
		v, _ = send(v, tea.MouseMsg{Button: tea.MouseButtonWheelDown, Action: tea.MouseActionPress})
		assert.Equal(t, 1, v.Cursor())
	})
}

func TestTreeView_Scrolling(t *testing.T) {
	v := newTestView(t, testConfig())
	v, _ = pressKey(v, '+')
	v, _ = send(v, tea.WindowSizeMsg{Width: 40, Height: 3}) // input + 2 rows

	v, _ = pressKey(v, 'G')
	lines := strings.Split(plainView(v), "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[1], "Panthera leo")
	assert.Contains(t, lines[2], "Felis catus")

	v, _ = pressKey(v, 'g')
	lines = strings.Split(plainView(v), "\n")
	assert.Contains(t, lines[1], "Plantae")

	v, _ = send(v, tea.KeyMsg{Type: tea.KeyPgDown})
	assert.Equal(t, 2, v.Cursor())
}

func TestTreeView_RowsAreTruncatedToWidth(t *testing.T) {
	v := newTestView(t, testConfig())
	v.SetSize(10, 10)

	for _, line := range strings.Split(plainView(v), "\n")[1:] {
		assert.LessOrEqual(t, ansi.StringWidth(line), 10)
	}
}
