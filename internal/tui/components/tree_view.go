package components

import (
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/artpar/arbor/internal/tree"
	"github.com/artpar/arbor/internal/tui"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// DefaultPlaceholder is shown in an empty search input.
const DefaultPlaceholder = "Search..."

// Empty-state texts.
const (
	NoResultsText = "No results found"
	LoadingText   = "Loading..."
)

var lastID int64

func nextID() int {
	return int(atomic.AddInt64(&lastID, 1))
}

// TreeConfig is the embedding contract of TreeView.
type TreeConfig[T any] struct {
	Items    []T
	Children tree.ChildrenFunc[T]
	Key      tree.KeyFunc[T]

	// SearchFilter decides matches. Without one a non-empty term hides
	// every row.
	SearchFilter tree.Matcher[T]
	OnItemClick  func(T)
	OnToggle     func(T)

	// Filter shows the search input.
	Filter            bool
	FilterPlaceholder string

	Loading bool
	Error   string

	// IndentSize is the per-level indentation in layout units; ten units
	// make one cell.
	IndentSize int

	// Renderer draws the label of a row. Defaults to fmt.Sprint.
	Renderer func(T) string

	ClearPolicy tree.ClearPolicy

	// SearchDebounce delays applying typed terms. Zero applies every
	// keystroke immediately.
	SearchDebounce time.Duration

	MaxDepth int
}

// ItemClickedMsg is emitted when a row is activated by keyboard or mouse.
type ItemClickedMsg[T any] struct {
	Item T
}

// ItemToggledMsg is emitted when a row is expanded or collapsed.
type ItemToggledMsg[T any] struct {
	Item     T
	Expanded bool
}

type searchDebounceMsg struct {
	id  int
	tag int
}

// TreeView renders a collapsible, searchable tree.
type TreeView[T any] struct {
	*tui.BaseComponent

	id     int
	config TreeConfig[T]
	state  *tree.State[T]
	styles tui.Styles
	keys   TreeKeyMap

	input     textinput.Model
	searching bool
	debounce  int

	spinner spinner.Model
	loading bool
	err     string

	cursor int
	offset int
}

// NewTreeView creates a tree view. Config.Key is required.
func NewTreeView[T any](title string, cfg TreeConfig[T]) *TreeView[T] {
	if cfg.IndentSize == 0 {
		cfg.IndentSize = DefaultIndentSize
	}
	if cfg.FilterPlaceholder == "" {
		cfg.FilterPlaceholder = DefaultPlaceholder
	}
	if cfg.Renderer == nil {
		cfg.Renderer = func(item T) string { return fmt.Sprint(item) }
	}

	input := textinput.New()
	input.Prompt = "/ "
	input.Placeholder = cfg.FilterPlaceholder
	input.CharLimit = 256
	input.Width = 40

	s := spinner.New()
	s.Spinner = spinner.Dot

	v := &TreeView[T]{
		BaseComponent: tui.NewBaseComponent(title),
		id:            nextID(),
		config:        cfg,
		styles:        tui.DefaultStyles(),
		keys:          DefaultTreeKeyMap,
		input:         input,
		spinner:       s,
		loading:       cfg.Loading,
		err:           cfg.Error,
	}
	v.state = tree.NewState(cfg.Items, tree.Options[T]{
		Children:    cfg.Children,
		Key:         cfg.Key,
		Match:       cfg.SearchFilter,
		ClearPolicy: cfg.ClearPolicy,
		MaxDepth:    cfg.MaxDepth,
		OnToggle:    cfg.OnToggle,
		OnItemClick: cfg.OnItemClick,
	})
	v.syncCursor()
	return v
}

// Init starts the spinner when created in the loading state.
func (v *TreeView[T]) Init() tea.Cmd {
	if v.loading {
		return v.spinner.Tick
	}
	return nil
}

// State exposes the tree engine.
func (v *TreeView[T]) State() *tree.State[T] {
	return v.state
}

// KeyMap returns the key bindings for help rendering.
func (v *TreeView[T]) KeyMap() TreeKeyMap {
	return v.keys
}

// SetSize sets the dimensions and keeps the focused row in view.
func (v *TreeView[T]) SetSize(width, height int) {
	v.BaseComponent.SetSize(width, height)
	if w := width - lipgloss.Width(v.input.Prompt) - 1; w > 0 {
		v.input.Width = w
	}
	v.syncCursor()
}

// SetItems replaces the roots, keeping expansion and focus by key.
func (v *TreeView[T]) SetItems(items []T) {
	v.state.SetItems(items)
	v.syncCursor()
}

// SetLoading toggles the loading indicator. Turning it on returns the
// spinner tick command.
func (v *TreeView[T]) SetLoading(loading bool) tea.Cmd {
	wasLoading := v.loading
	v.loading = loading
	if loading && !wasLoading {
		return v.spinner.Tick
	}
	return nil
}

// Loading reports whether the loading indicator is shown.
func (v *TreeView[T]) Loading() bool {
	return v.loading
}

// SetError sets the error line. An empty message hides it.
func (v *TreeView[T]) SetError(msg string) {
	v.err = msg
}

// ErrorText returns the error line.
func (v *TreeView[T]) ErrorText() string {
	return v.err
}

// SetMatcher swaps the search predicate.
func (v *TreeView[T]) SetMatcher(m tree.Matcher[T]) {
	v.state.SetMatcher(m)
	v.syncCursor()
}

// SearchTerm returns the applied search term.
func (v *TreeView[T]) SearchTerm() string {
	return v.state.Term()
}

// SetSearchTerm applies term immediately and mirrors it in the input.
func (v *TreeView[T]) SetSearchTerm(term string) {
	v.input.SetValue(term)
	v.applyTerm(term)
}

// IsSearching reports whether the search input has keyboard focus.
func (v *TreeView[T]) IsSearching() bool {
	return v.searching
}

// Selected returns the focused item.
func (v *TreeView[T]) Selected() (T, bool) {
	row, ok := v.state.FocusedRow()
	return row.Item, ok
}

// Rows returns the visible rows.
func (v *TreeView[T]) Rows() []tree.Row[T] {
	return v.state.Rows()
}

// Cursor returns the index of the focused row.
func (v *TreeView[T]) Cursor() int {
	return v.cursor
}

// Update handles messages.
func (v *TreeView[T]) Update(msg tea.Msg) (tui.Component, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.SetSize(msg.Width, msg.Height)
		return v, nil

	case tui.FocusMsg:
		v.Focus()
		return v, nil

	case tui.BlurMsg:
		v.Blur()
		return v, nil

	case spinner.TickMsg:
		if !v.loading {
			return v, nil
		}
		var cmd tea.Cmd
		v.spinner, cmd = v.spinner.Update(msg)
		return v, cmd

	case searchDebounceMsg:
		if msg.id == v.id && msg.tag == v.debounce {
			v.applyTerm(v.input.Value())
		}
		return v, nil

	case tea.MouseMsg:
		if !v.Focused() {
			return v, nil
		}
		return v, v.handleMouse(msg)

	case tea.KeyMsg:
		if !v.Focused() {
			return v, nil
		}
		if v.searching {
			return v, v.handleSearchKey(msg)
		}
		return v, v.handleKey(msg)
	}

	return v, nil
}

func (v *TreeView[T]) handleKey(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, v.keys.Search):
		if !v.config.Filter {
			return nil
		}
		v.searching = true
		return v.input.Focus()

	case key.Matches(msg, v.keys.ClearSearch):
		if v.state.Term() != "" {
			v.SetSearchTerm("")
		}
		return nil

	case key.Matches(msg, v.keys.ExpandAll):
		v.state.ExpandAll()
		v.syncCursor()
		return nil

	case key.Matches(msg, v.keys.CollapseAll):
		v.state.CollapseAll()
		v.syncCursor()
		return nil

	case key.Matches(msg, v.keys.PageUp):
		v.state.MoveFocus(-v.contentHeight())
		v.syncCursor()
		return nil

	case key.Matches(msg, v.keys.PageDown):
		v.state.MoveFocus(v.contentHeight())
		v.syncCursor()
		return nil

	case key.Matches(msg, v.keys.Home):
		v.state.MoveFocus(-len(v.state.Rows()))
		v.syncCursor()
		return nil

	case key.Matches(msg, v.keys.End):
		v.state.MoveFocus(len(v.state.Rows()))
		v.syncCursor()
		return nil
	}

	k := treeKey(v.keys, msg)
	if k == tree.KeyNone {
		return nil
	}
	row, ok := v.state.FocusedRow()
	if !ok {
		if k == tree.KeyDown || k == tree.KeyUp {
			v.state.MoveFocus(0)
			v.syncCursor()
		}
		return nil
	}

	res := v.state.HandleKey(row.Item, k)
	v.syncCursor()
	switch {
	case res.Clicked:
		return emit(ItemClickedMsg[T]{Item: row.Item})
	case res.Toggled:
		return emit(ItemToggledMsg[T]{Item: row.Item, Expanded: v.state.IsExpanded(row.Item)})
	}
	return nil
}

// treeKey maps a key press to the engine's key vocabulary.
func treeKey(keys TreeKeyMap, msg tea.KeyMsg) tree.Key {
	switch {
	case key.Matches(msg, keys.Right):
		return tree.KeyRight
	case key.Matches(msg, keys.Left):
		return tree.KeyLeft
	case key.Matches(msg, keys.Up):
		return tree.KeyUp
	case key.Matches(msg, keys.Down):
		return tree.KeyDown
	case msg.Type == tea.KeySpace:
		return tree.KeySpace
	case key.Matches(msg, keys.Activate):
		return tree.KeyEnter
	}
	return tree.KeyNone
}

func (v *TreeView[T]) handleSearchKey(msg tea.KeyMsg) tea.Cmd {
	switch msg.Type {
	case tea.KeyEsc, tea.KeyEnter:
		// Leave the input, keeping the term.
		v.searching = false
		v.input.Blur()
		v.applyTerm(v.input.Value())
		return nil
	case tea.KeyUp, tea.KeyDown:
		v.applyTerm(v.input.Value())
		return v.handleKey(msg)
	}

	before := v.input.Value()
	var cmd tea.Cmd
	v.input, cmd = v.input.Update(msg)
	if v.input.Value() == before {
		return cmd
	}
	return tea.Batch(cmd, v.scheduleTerm())
}

func (v *TreeView[T]) scheduleTerm() tea.Cmd {
	if v.config.SearchDebounce <= 0 {
		v.applyTerm(v.input.Value())
		return nil
	}
	v.debounce++
	id, tag := v.id, v.debounce
	return tea.Tick(v.config.SearchDebounce, func(time.Time) tea.Msg {
		return searchDebounceMsg{id: id, tag: tag}
	})
}

func (v *TreeView[T]) applyTerm(term string) {
	if term == v.state.Term() {
		return
	}
	v.state.SetSearchTerm(term)
	v.offset = 0
	v.syncCursor()
}

func (v *TreeView[T]) handleMouse(msg tea.MouseMsg) tea.Cmd {
	switch msg.Button {
	case tea.MouseButtonWheelUp:
		v.state.MoveFocus(-1)
		v.syncCursor()
		return nil
	case tea.MouseButtonWheelDown:
		v.state.MoveFocus(1)
		v.syncCursor()
		return nil
	}
	if msg.Action != tea.MouseActionPress || msg.Button != tea.MouseButtonLeft {
		return nil
	}

	rows := v.state.Rows()
	idx := RowAt(msg.Y-v.headerLines(), v.offset, len(rows))
	if idx < 0 {
		return nil
	}
	row := rows[idx]

	start := markerWidth + IndentCells(row.Depth, v.config.IndentSize)
	if row.HasChildren && msg.X >= start && msg.X < start+affordanceWidth {
		v.state.Focus(row.Key)
		if !v.state.Toggle(row.Item) {
			// Expansion is frozen while a search term is set.
			v.syncCursor()
			return nil
		}
		v.syncCursor()
		return emit(ItemToggledMsg[T]{Item: row.Item, Expanded: v.state.IsExpanded(row.Item)})
	}

	v.state.Click(row.Item)
	v.syncCursor()
	return emit(ItemClickedMsg[T]{Item: row.Item})
}

// syncCursor derives the cursor from the engine focus. When the focused row
// disappears, focus falls to the row now at the old cursor position.
func (v *TreeView[T]) syncCursor() {
	rows := v.state.Rows()
	if len(rows) == 0 {
		v.cursor, v.offset = 0, 0
		return
	}

	idx := -1
	for i, row := range rows {
		if row.Focused {
			idx = i
			break
		}
	}
	if idx < 0 {
		idx = MoveCursor(v.cursor, 0, len(rows))
		v.state.Focus(rows[idx].Key)
	}

	height := v.contentHeight()
	v.cursor = idx
	v.offset = ClampOffset(AdjustOffset(idx, v.offset, height), len(rows), height)
}

// headerLines counts the lines above the first row.
func (v *TreeView[T]) headerLines() int {
	n := 0
	if v.config.Filter {
		n++
	}
	if v.err != "" {
		n++
	}
	return n
}

// contentHeight is the number of row lines that fit. An unsized view shows
// every row.
func (v *TreeView[T]) contentHeight() int {
	if v.Height() <= 0 {
		return len(v.state.Rows()) + 1
	}
	h := v.Height() - v.headerLines()
	if h < 1 {
		h = 1
	}
	return h
}

const (
	markerWidth     = 2
	affordanceWidth = 2
)

// View renders the search input, status lines and visible rows.
func (v *TreeView[T]) View() string {
	var lines []string

	if v.config.Filter {
		lines = append(lines, v.input.View())
	}
	if v.err != "" {
		lines = append(lines, v.styles.Error.Render(v.err))
	}

	rows := v.state.Rows()
	switch {
	case v.loading:
		lines = append(lines, v.spinner.View()+" "+LoadingText)
	case len(rows) == 0:
		lines = append(lines, v.styles.Muted.Render(NoResultsText))
	default:
		height := v.contentHeight()
		for i := v.offset; i < len(rows) && i < v.offset+height; i++ {
			lines = append(lines, v.renderRow(rows[i]))
		}
	}

	return strings.Join(lines, "\n")
}

func (v *TreeView[T]) renderRow(row tree.Row[T]) string {
	marker := "  "
	if row.Focused {
		marker = "→ "
	}

	indent := strings.Repeat(" ", IndentCells(row.Depth, v.config.IndentSize))

	affordance := "  "
	if row.HasChildren {
		if row.Expanded {
			affordance = "▼ "
		} else {
			affordance = "▶ "
		}
	}

	label := v.config.Renderer(row.Item)
	if row.Matched {
		label = v.styles.Match.Render(label)
	}

	line := marker + indent + affordance + label
	if w := v.Width(); w > 0 {
		line = tui.PadRight(tui.Truncate(line, w), w)
	}

	if row.Focused {
		if v.Focused() {
			return v.styles.Selected.Render(line)
		}
		return v.styles.SelectedDim.Render(line)
	}
	return line
}

func emit(msg tea.Msg) tea.Cmd {
	return func() tea.Msg { return msg }
}
