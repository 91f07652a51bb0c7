package tui

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
)

// Component is the interface for all TUI components.
type Component interface {
	Init() tea.Cmd

	// Update handles messages and returns the updated component.
	Update(msg tea.Msg) (Component, tea.Cmd)

	View() string
	Title() string

	Focused() bool
	Focus()
	Blur()

	SetSize(width, height int)
	Width() int
	Height() int
}

// FocusMsg is sent when a component should gain focus.
type FocusMsg struct{}

// BlurMsg is sent when a component should lose focus.
type BlurMsg struct{}

// BaseComponent carries the title, focus and size shared by components.
// Embedders supply Init, Update and View.
type BaseComponent struct {
	title   string
	focused bool
	width   int
	height  int
}

// NewBaseComponent creates a new base component.
func NewBaseComponent(title string) *BaseComponent {
	return &BaseComponent{
		title: title,
	}
}

// Title returns the component title.
func (c *BaseComponent) Title() string {
	return c.title
}

// Focused returns true if focused.
func (c *BaseComponent) Focused() bool {
	return c.focused
}

// Focus sets the component as focused.
func (c *BaseComponent) Focus() {
	c.focused = true
}

// Blur removes focus.
func (c *BaseComponent) Blur() {
	c.focused = false
}

// SetSize sets dimensions.
func (c *BaseComponent) SetSize(width, height int) {
	c.width = width
	c.height = height
}

// Width returns the width.
func (c *BaseComponent) Width() int {
	return c.width
}

// Height returns the height.
func (c *BaseComponent) Height() int {
	return c.height
}

// Styles is the shared palette.
type Styles struct {
	Selected    lipgloss.Style
	SelectedDim lipgloss.Style
	Match       lipgloss.Style
	Muted       lipgloss.Style
	Error       lipgloss.Style
	Star        lipgloss.Style
	Status      lipgloss.Style
}

// DefaultStyles returns default styling.
func DefaultStyles() Styles {
	return Styles{
		Selected: lipgloss.NewStyle().
			Background(lipgloss.Color("62")).
			Foreground(lipgloss.Color("229")),
		SelectedDim: lipgloss.NewStyle().
			Background(lipgloss.Color("238")).
			Foreground(lipgloss.Color("252")),
		Match: lipgloss.NewStyle().
			Foreground(lipgloss.Color("214")).
			Bold(true),
		Muted: lipgloss.NewStyle().
			Foreground(lipgloss.Color("243")),
		Error: lipgloss.NewStyle().
			Foreground(lipgloss.Color("160")),
		Star: lipgloss.NewStyle().
			Foreground(lipgloss.Color("220")),
		Status: lipgloss.NewStyle().
			Foreground(lipgloss.Color("245")),
	}
}

// RenderTitle renders a title bar.
func RenderTitle(title string, width int, focused bool) string {
	style := lipgloss.NewStyle().
		Width(width).
		Align(lipgloss.Center).
		Bold(true)

	if focused {
		style = style.Foreground(lipgloss.Color("229")).
			Background(lipgloss.Color("62"))
	} else {
		style = style.Foreground(lipgloss.Color("252")).
			Background(lipgloss.Color("238"))
	}

	return style.Render(title)
}

// Truncate shortens s to width display cells, ending in "..." when cut.
// Escape sequences are preserved and do not count toward the width.
func Truncate(s string, width int) string {
	if width <= 0 {
		return ""
	}
	if ansi.StringWidth(s) <= width {
		return s
	}
	if width <= 3 {
		return ansi.Truncate(s, width, "")
	}
	return ansi.Truncate(s, width, "...")
}

// PadRight pads or truncates s to exactly width display cells.
func PadRight(s string, width int) string {
	w := ansi.StringWidth(s)
	if w >= width {
		return ansi.Truncate(s, width, "")
	}
	return s + strings.Repeat(" ", width-w)
}
