package tree

// Key is a keyboard input the tree reacts to.
type Key int

const (
	KeyNone Key = iota
	KeyRight
	KeyLeft
	KeyUp
	KeyDown
	KeyEnter
	KeySpace
)

// KeyResult describes what a key press did.
type KeyResult struct {
	// Handled means the key was consumed and its default action (scrolling)
	// should be suppressed.
	Handled    bool
	Toggled    bool
	Clicked    bool
	FocusMoved bool
}

// HandleKey applies key to item, the row that currently has keyboard focus.
//
//	Right on a collapsed node with children: expand.
//	Left on an expanded node with children:  collapse.
//	Enter / Space:                           OnItemClick, no state change.
//	Down / Up:                               focus the next / previous visible row.
//
// Right and Left do nothing on leaves and never fire OnToggle there.
func (s *State[T]) HandleKey(item T, key Key) KeyResult {
	switch key {
	case KeyRight:
		if s.opts.hasChildren(item) && !s.IsExpanded(item) && s.Toggle(item) {
			return KeyResult{Handled: true, Toggled: true}
		}
	case KeyLeft:
		if s.opts.hasChildren(item) && s.IsExpanded(item) && s.Toggle(item) {
			return KeyResult{Handled: true, Toggled: true}
		}
	case KeyEnter, KeySpace:
		s.activate(item)
		return KeyResult{Handled: true, Clicked: true}
	case KeyDown:
		return KeyResult{Handled: true, FocusMoved: s.moveFocusFrom(s.opts.Key(item), 1)}
	case KeyUp:
		return KeyResult{Handled: true, FocusMoved: s.moveFocusFrom(s.opts.Key(item), -1)}
	}
	return KeyResult{}
}

// MoveFocus moves focus delta visible rows from the focused row. With nothing
// focused, the first row gets focus. Reports whether focus changed.
func (s *State[T]) MoveFocus(delta int) bool {
	return s.moveFocusFrom(s.focus, delta)
}

func (s *State[T]) moveFocusFrom(from string, delta int) bool {
	rows := s.Rows()
	if len(rows) == 0 {
		return false
	}

	idx := -1
	for i, row := range rows {
		if row.Key == from {
			idx = i
			break
		}
	}

	next := 0
	if idx >= 0 {
		next = clamp(idx+delta, 0, len(rows)-1)
	}
	if rows[next].Key == s.focus {
		return false
	}
	s.focus = rows[next].Key
	return true
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
