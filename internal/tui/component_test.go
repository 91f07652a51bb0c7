package tui

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBaseComponent(t *testing.T) {
	t.Run("creates with title", func(t *testing.T) {
		c := NewBaseComponent("Test Component")
		assert.Equal(t, "Test Component", c.Title())
	})

	t.Run("starts unfocused", func(t *testing.T) {
		c := NewBaseComponent("Test")
		assert.False(t, c.Focused())
	})

	t.Run("can be focused", func(t *testing.T) {
		c := NewBaseComponent("Test")
		c.Focus()
		assert.True(t, c.Focused())
	})

	t.Run("can be blurred", func(t *testing.T) {
		c := NewBaseComponent("Test")
		c.Focus()
		c.Blur()
		assert.False(t, c.Focused())
	})

	t.Run("tracks dimensions", func(t *testing.T) {
		c := NewBaseComponent("Test")
		c.SetSize(80, 24)
		assert.Equal(t, 80, c.Width())
		assert.Equal(t, 24, c.Height())
	})

	t.Run("has default dimensions", func(t *testing.T) {
		c := NewBaseComponent("Test")
		assert.Equal(t, 0, c.Width())
		assert.Equal(t, 0, c.Height())
	})
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		name     string
		in       string
		width    int
		expected string
	}{
		{"fits", "Plantae", 10, "Plantae"},
		{"cut with ellipsis", "Malus domestica", 8, "Malus..."},
		{"narrow", "Malus", 2, "Ma"},
		{"zero width", "Malus", 0, ""},
		{"wide runes count as cells", "▶ Fungi", 7, "▶ Fungi"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Truncate(tt.in, tt.width))
		})
	}
}

func TestPadRight(t *testing.T) {
	assert.Equal(t, "ab   ", PadRight("ab", 5))
	assert.Equal(t, "abc", PadRight("abcdef", 3))
	assert.Equal(t, "▼ x ", PadRight("▼ x", 4))
}

func TestRenderTitle(t *testing.T) {
	assert.Contains(t, RenderTitle("Taxonomy", 20, true), "Taxonomy")
	assert.Contains(t, RenderTitle("Taxonomy", 20, false), "Taxonomy")
}
