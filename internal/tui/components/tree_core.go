package components

// Pure helpers for the tree view. They take values and return values so the
// component's scroll and layout arithmetic can be tested without a terminal.

// DefaultIndentSize is the indentation per level in layout units.
const DefaultIndentSize = 20

// layoutUnitsPerCell converts layout units to terminal cells.
const layoutUnitsPerCell = 10

// MoveCursor computes new cursor position within bounds.
func MoveCursor(cursor, delta, itemCount int) int {
	if itemCount == 0 {
		return 0
	}
	newCursor := cursor + delta
	if newCursor < 0 {
		return 0
	}
	if newCursor >= itemCount {
		return itemCount - 1
	}
	return newCursor
}

// AdjustOffset ensures cursor is visible within viewport.
func AdjustOffset(cursor, offset, visibleHeight int) int {
	if visibleHeight < 1 {
		visibleHeight = 1
	}
	if cursor < offset {
		return cursor
	}
	if cursor >= offset+visibleHeight {
		return cursor - visibleHeight + 1
	}
	return offset
}

// ClampOffset keeps offset inside the scrollable range after rows shrink.
func ClampOffset(offset, itemCount, visibleHeight int) int {
	maxOffset := itemCount - visibleHeight
	if maxOffset < 0 {
		maxOffset = 0
	}
	if offset > maxOffset {
		return maxOffset
	}
	if offset < 0 {
		return 0
	}
	return offset
}

// IndentCells returns the indentation in cells for a row at depth. Layout
// units are tenths of a cell, so the default of 20 indents two cells per
// level.
func IndentCells(depth, indentSize int) int {
	if depth <= 0 || indentSize <= 0 {
		return 0
	}
	return depth * indentSize / layoutUnitsPerCell
}

// RowAt maps a line within the row area to a row index, or -1.
func RowAt(line, offset, itemCount int) int {
	if line < 0 {
		return -1
	}
	idx := offset + line
	if idx >= itemCount {
		return -1
	}
	return idx
}
