package views

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/artpar/arbor/internal/app"
	"github.com/artpar/arbor/internal/core"
	"github.com/artpar/arbor/internal/starred"
	"github.com/artpar/arbor/internal/tui"
	"github.com/artpar/arbor/internal/tui/components"
	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// LoadErrorText is shown when the dataset cannot be loaded. The cause goes
// to the log.
const LoadErrorText = "Error fetching taxonomy data"

const notificationTTL = 2 * time.Second

// DatasetChangedMsg asks the view to reload, e.g. after the file watcher saw
// the dataset change on disk.
type DatasetChangedMsg struct {
	Path string
}

// taxaLoadedMsg carries the result of one load. Results whose generation is
// not the current one are dropped.
type taxaLoadedMsg struct {
	gen     int
	roots   []*core.Taxon
	starred map[string]bool
	err     error
}

type starToggledMsg struct {
	id      string
	name    string
	starred bool
	err     error
}

type starsClearedMsg struct {
	removed int64
	err     error
}

// clearNotificationMsg is sent to clear the notification.
type clearNotificationMsg struct {
	seq int
}

// viewKeyMap holds the bindings the taxonomy view handles itself.
type viewKeyMap struct {
	tree   components.TreeKeyMap
	Copy      key.Binding
	Star      key.Binding
	UnstarAll key.Binding
	Reload    key.Binding
	Help   key.Binding
	Quit   key.Binding
}

func defaultViewKeyMap(tree components.TreeKeyMap) viewKeyMap {
	return viewKeyMap{
		tree: tree,
		Copy: key.NewBinding(
			key.WithKeys("y"),
			key.WithHelp("y", "copy path"),
		),
		Star: key.NewBinding(
			key.WithKeys("s"),
			key.WithHelp("s", "star"),
		),
		UnstarAll: key.NewBinding(
			key.WithKeys("S"),
			key.WithHelp("S", "unstar all"),
		),
		Reload: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "reload"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "help"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
	}
}

// ShortHelp implements help.KeyMap.
func (k viewKeyMap) ShortHelp() []key.Binding {
	return append(k.tree.ShortHelp(), k.Help, k.Quit)
}

// FullHelp implements help.KeyMap.
func (k viewKeyMap) FullHelp() [][]key.Binding {
	return append(k.tree.FullHelp(), []key.Binding{k.Copy, k.Star, k.UnstarAll, k.Reload, k.Help, k.Quit})
}

// TaxonomyView browses a taxonomy forest.
type TaxonomyView struct {
	app    *app.App
	logger *slog.Logger
	tree   *components.TreeView[*core.Taxon]
	styles tui.Styles
	keys   viewKeyMap
	help   help.Model

	width    int
	height   int
	showHelp bool

	source  string
	starred map[string]bool

	gen    int
	cancel context.CancelFunc

	notification string
	notifySeq    int

	copy func(string) error
}

// NewTaxonomyView creates the view. It fails only on an invalid match
// script.
func NewTaxonomyView(a *app.App) (*TaxonomyView, error) {
	opts, err := a.TreeOptions()
	if err != nil {
		return nil, err
	}
	cfg := a.Config()

	v := &TaxonomyView{
		app:     a,
		logger:  a.Logger(),
		styles:  tui.DefaultStyles(),
		help:    help.New(),
		starred: make(map[string]bool),
		copy:    clipboard.WriteAll,
	}
	v.tree = components.NewTreeView("Taxonomy", components.TreeConfig[*core.Taxon]{
		Children:          opts.Children,
		Key:               opts.Key,
		SearchFilter:      opts.Match,
		ClearPolicy:       opts.ClearPolicy,
		Filter:            cfg.Filter,
		FilterPlaceholder: cfg.Placeholder,
		IndentSize:        cfg.IndentSize,
		SearchDebounce:    cfg.Debounce,
		Renderer:          components.TaxonRenderer(v.styles, v.isStarred),
	})
	v.tree.Focus()
	v.keys = defaultViewKeyMap(v.tree.KeyMap())
	return v, nil
}

// Init starts the first load.
func (v *TaxonomyView) Init() tea.Cmd {
	return v.reload()
}

// Close cancels an in-flight load.
func (v *TaxonomyView) Close() {
	if v.cancel != nil {
		v.cancel()
		v.cancel = nil
	}
}

// reload cancels any in-flight load and starts a new generation.
func (v *TaxonomyView) reload() tea.Cmd {
	v.Close()
	v.gen++
	gen := v.gen

	loader, err := v.app.Loader()
	if err != nil {
		return func() tea.Msg { return taxaLoadedMsg{gen: gen, err: err} }
	}
	v.source = loader.Source()

	ctx, cancel := context.WithCancel(context.Background())
	v.cancel = cancel
	store := v.app.Starred()
	logger := v.logger

	load := func() tea.Msg {
		roots, err := loader.Load(ctx)
		if err != nil {
			return taxaLoadedMsg{gen: gen, err: err}
		}
		stars := make(map[string]bool)
		if store != nil {
			// Stars are optional; the taxonomy still shows without them.
			if set, err := starred.Set(ctx, store); err != nil {
				logger.Warn("load starred taxa", "error", err)
			} else {
				stars = set
			}
		}
		return taxaLoadedMsg{gen: gen, roots: roots, starred: stars}
	}

	return tea.Batch(v.tree.SetLoading(true), load)
}

// Update handles messages.
func (v *TaxonomyView) Update(msg tea.Msg) (tui.Component, tea.Cmd) {
	// Help overlay swallows keys until dismissed.
	if v.showHelp {
		if keyMsg, ok := msg.(tea.KeyMsg); ok {
			switch {
			case keyMsg.Type == tea.KeyCtrlC:
				v.Close()
				return v, tea.Quit
			case keyMsg.Type == tea.KeyEsc, key.Matches(keyMsg, v.keys.Help):
				v.showHelp = false
			}
			return v, nil
		}
	}

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.SetSize(msg.Width, msg.Height)
		return v, nil

	case taxaLoadedMsg:
		return v, v.handleLoaded(msg)

	case DatasetChangedMsg:
		v.logger.Info("dataset changed", "path", msg.Path)
		return v, v.reload()

	case components.ItemClickedMsg[*core.Taxon]:
		v.handleClicked(msg.Item)
		return v, nil

	case components.ItemToggledMsg[*core.Taxon]:
		v.logger.Debug("taxon toggled", "id", msg.Item.ID, "name", msg.Item.Name, "expanded", msg.Expanded)
		if _, err := v.app.ExecuteHooks(context.Background(), app.HookItemToggled, msg.Item); err != nil {
			v.logger.Warn("toggle hook failed", "error", err)
		}
		return v, nil

	case starToggledMsg:
		if msg.err != nil {
			v.logger.Error("toggle star", "id", msg.id, "error", msg.err)
			return v, v.notify("✗ Star failed")
		}
		if msg.starred {
			v.starred[msg.id] = true
			return v, v.notify("★ Starred " + msg.name)
		}
		delete(v.starred, msg.id)
		return v, v.notify("Unstarred " + msg.name)

	case starsClearedMsg:
		if msg.err != nil {
			v.logger.Error("clear stars", "error", msg.err)
			return v, v.notify("✗ Unstar failed")
		}
		v.starred = make(map[string]bool)
		return v, v.notify(fmt.Sprintf("Unstarred %d taxa", msg.removed))

	case clearNotificationMsg:
		if msg.seq == v.notifySeq {
			v.notification = ""
		}
		return v, nil

	case tea.MouseMsg:
		msg.Y -= v.headerHeight()
		return v.forward(msg)

	case tea.KeyMsg:
		return v.handleKeyMsg(msg)
	}

	return v.forward(msg)
}

func (v *TaxonomyView) handleKeyMsg(msg tea.KeyMsg) (tui.Component, tea.Cmd) {
	// Ctrl+C always quits
	if msg.Type == tea.KeyCtrlC {
		v.Close()
		return v, tea.Quit
	}

	// Typed characters belong to the search input.
	if v.tree.IsSearching() {
		return v.forward(msg)
	}

	switch {
	case key.Matches(msg, v.keys.Quit):
		v.Close()
		return v, tea.Quit
	case key.Matches(msg, v.keys.Help):
		v.showHelp = true
		return v, nil
	case key.Matches(msg, v.keys.Reload):
		v.logger.Info("reloading taxonomy", "source", v.source)
		return v, v.reload()
	case key.Matches(msg, v.keys.Copy):
		return v, v.copySelected()
	case key.Matches(msg, v.keys.Star):
		return v, v.toggleStar()
	case key.Matches(msg, v.keys.UnstarAll):
		return v, v.clearStars()
	}

	return v.forward(msg)
}

func (v *TaxonomyView) forward(msg tea.Msg) (tui.Component, tea.Cmd) {
	_, cmd := v.tree.Update(msg)
	return v, cmd
}

func (v *TaxonomyView) handleLoaded(msg taxaLoadedMsg) tea.Cmd {
	if msg.gen != v.gen {
		return nil
	}
	v.cancel = nil
	v.tree.SetLoading(false)

	if msg.err != nil {
		if errors.Is(msg.err, context.Canceled) {
			return nil
		}
		v.logger.Error("load taxonomy", "source", v.source, "error", msg.err)
		v.tree.SetError(LoadErrorText)
		return nil
	}

	v.tree.SetError("")
	v.starred = msg.starred
	v.tree.SetItems(msg.roots)
	v.logger.Info("taxonomy loaded", "source", v.source, "taxa", core.Count(msg.roots))

	if _, err := v.app.ExecuteHooks(context.Background(), app.HookLoaded, msg.roots); err != nil {
		v.logger.Warn("load hook failed", "error", err)
	}
	return nil
}

func (v *TaxonomyView) handleClicked(t *core.Taxon) {
	v.logger.Info("taxon clicked", "id", t.ID, "name", t.Name, "taxon", t.Taxon)
	if _, err := v.app.ExecuteHooks(context.Background(), app.HookItemClicked, t); err != nil {
		v.logger.Warn("click hook failed", "error", err)
	}
}

// copySelected copies the ancestor path of the focused taxon.
func (v *TaxonomyView) copySelected() tea.Cmd {
	t, ok := v.tree.Selected()
	if !ok {
		return nil
	}
	path := core.Path(v.tree.State().Roots(), t.ID)
	names := make([]string, 0, len(path))
	for _, p := range path {
		names = append(names, p.Name)
	}
	content := strings.Join(names, " > ")

	if err := v.copy(content); err != nil {
		v.logger.Warn("copy to clipboard", "error", err)
		return v.notify("✗ Copy failed")
	}
	return v.notify("✓ Copied " + content)
}

func (v *TaxonomyView) toggleStar() tea.Cmd {
	store := v.app.Starred()
	t, ok := v.tree.Selected()
	if !ok {
		return nil
	}
	if store == nil {
		return v.notify("✗ Starring is disabled")
	}
	id, name := t.ID, t.Name
	return func() tea.Msg {
		on, err := store.Toggle(context.Background(), id)
		return starToggledMsg{id: id, name: name, starred: on, err: err}
	}
}

func (v *TaxonomyView) clearStars() tea.Cmd {
	store := v.app.Starred()
	if store == nil {
		return v.notify("✗ Starring is disabled")
	}
	return func() tea.Msg {
		n, err := store.Clear(context.Background())
		return starsClearedMsg{removed: n, err: err}
	}
}

func (v *TaxonomyView) notify(text string) tea.Cmd {
	v.notification = text
	v.notifySeq++
	seq := v.notifySeq
	return tea.Tick(notificationTTL, func(time.Time) tea.Msg {
		return clearNotificationMsg{seq: seq}
	})
}

func (v *TaxonomyView) isStarred(id string) bool {
	return v.starred[id]
}

// headerHeight is the number of lines above the tree.
func (v *TaxonomyView) headerHeight() int {
	return 1
}

const footerHeight = 1

// View renders the title bar, the tree and the status bar.
func (v *TaxonomyView) View() string {
	title := tui.RenderTitle("arbor · "+v.source, v.width, true)

	body := v.tree.View()
	if v.showHelp {
		v.help.ShowAll = true
		body = v.help.View(v.keys)
	}
	if h := v.height - v.headerHeight() - footerHeight; h > 0 {
		body = lipgloss.NewStyle().Height(h).MaxHeight(h).Render(body)
	}

	return lipgloss.JoinVertical(lipgloss.Left, title, body, v.renderStatusBar())
}

func (v *TaxonomyView) renderStatusBar() string {
	var items []string
	if n := core.Count(v.tree.State().Roots()); n > 0 {
		items = append(items, fmt.Sprintf("%d taxa", n))
	}
	if term := v.tree.SearchTerm(); term != "" {
		items = append(items, fmt.Sprintf("%d rows for %q", len(v.tree.Rows()), term))
	}
	if len(v.starred) > 0 {
		items = append(items, v.styles.Star.Render(fmt.Sprintf("★ %d", len(v.starred))))
	}
	if v.notification != "" {
		style := v.styles.Status
		if strings.HasPrefix(v.notification, "✗") {
			style = v.styles.Error
		}
		items = append(items, style.Render(v.notification))
	}
	if !v.showHelp {
		v.help.ShowAll = false
		items = append(items, v.help.View(v.keys))
	}
	return tui.Truncate(strings.Join(items, v.styles.Muted.Render(" │ ")), v.width)
}

// Title returns the view title.
func (v *TaxonomyView) Title() string {
	return "Taxonomy"
}

// Focused always returns true; the view is the whole screen.
func (v *TaxonomyView) Focused() bool {
	return true
}

// Focus is a no-op.
func (v *TaxonomyView) Focus() {}

// Blur is a no-op.
func (v *TaxonomyView) Blur() {}

// SetSize sets the view dimensions.
func (v *TaxonomyView) SetSize(width, height int) {
	v.width = width
	v.height = height
	v.help.Width = width
	v.tree.SetSize(width, max(height-v.headerHeight()-footerHeight, 1))
}

// Width returns the width.
func (v *TaxonomyView) Width() int {
	return v.width
}

// Height returns the height.
func (v *TaxonomyView) Height() int {
	return v.height
}

// Tree returns the hosted tree view.
func (v *TaxonomyView) Tree() *components.TreeView[*core.Taxon] {
	return v.tree
}

// Source describes the loaded dataset.
func (v *TaxonomyView) Source() string {
	return v.source
}

// ShowingHelp reports whether the help overlay is open.
func (v *TaxonomyView) ShowingHelp() bool {
	return v.showHelp
}

// Notification returns the current notification message.
func (v *TaxonomyView) Notification() string {
	return v.notification
}

// IsStarred reports whether the taxon with id is starred.
func (v *TaxonomyView) IsStarred(id string) bool {
	return v.isStarred(id)
}
