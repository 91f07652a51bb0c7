package tree

// maxCachedTerms bounds the per-term memo. Typing a long query produces one
// entry per prefix, so the cache is simply dropped once it fills up.
const maxCachedTerms = 64

// Row is one visible line of the flattened tree.
type Row[T any] struct {
	Item        T
	Key         string
	Depth       int
	HasChildren bool
	Expanded    bool
	Matched     bool
	Focused     bool
}

// State owns the expansion set, the search term and the focus of one tree.
// It is not safe for concurrent use; the UI loop is its only writer.
type State[T any] struct {
	opts     Options[T]
	roots    []T
	expanded ExpansionSet
	manual   ExpansionSet // manual expansion saved when a search starts
	term     string
	focus    string
	cache    map[string]*Visibility
}

// NewState creates a collapsed, unfiltered tree over roots.
func NewState[T any](roots []T, opts Options[T]) *State[T] {
	if opts.Key == nil {
		panic("tree: Options.Key is required")
	}
	return &State[T]{
		opts:     opts,
		roots:    roots,
		expanded: NewExpansionSet(),
		cache:    make(map[string]*Visibility),
	}
}

// Options returns the engine options.
func (s *State[T]) Options() Options[T] {
	return s.opts
}

// SetMatcher swaps the search predicate and re-applies the current term.
func (s *State[T]) SetMatcher(m Matcher[T]) {
	s.opts.Match = m
	s.cache = make(map[string]*Visibility)
	if s.term != "" {
		s.expanded = s.visibility().Expanded.Clone()
	}
}

// Roots returns the current roots.
func (s *State[T]) Roots() []T {
	return s.roots
}

// SetItems replaces the roots. Expansion and focus are keyed by identity and
// carry over; memoized search results do not.
func (s *State[T]) SetItems(roots []T) {
	s.roots = roots
	s.cache = make(map[string]*Visibility)
	if s.term != "" {
		s.expanded = s.visibility().Expanded.Clone()
	}
}

// Term returns the active search term.
func (s *State[T]) Term() string {
	return s.term
}

// Searching reports whether a search term is active.
func (s *State[T]) Searching() bool {
	return s.term != ""
}

// SetSearchTerm applies term. A non-empty term replaces the expansion set
// with the ancestors of its matches; an empty term applies the clear policy.
func (s *State[T]) SetSearchTerm(term string) {
	if term == s.term {
		return
	}
	if s.term == "" {
		s.manual = s.expanded.Clone()
	}
	s.term = term

	if term != "" {
		s.expanded = s.visibility().Expanded.Clone()
		return
	}

	if s.opts.ClearPolicy == ClearRestoreManual && s.manual != nil {
		s.expanded = s.manual
	} else {
		s.expanded = NewExpansionSet()
	}
	s.manual = nil
}

// Visibility returns the memoized search result for the active term, or nil
// when no term is active.
func (s *State[T]) Visibility() *Visibility {
	if s.term == "" {
		return nil
	}
	return s.visibility()
}

func (s *State[T]) visibility() *Visibility {
	if v, ok := s.cache[s.term]; ok {
		return v
	}
	if len(s.cache) >= maxCachedTerms {
		s.cache = make(map[string]*Visibility)
	}
	v := Evaluate(s.roots, s.term, s.opts)
	s.cache[s.term] = v
	return v
}

// Expanded returns a copy of the expansion set.
func (s *State[T]) Expanded() ExpansionSet {
	return s.expanded.Clone()
}

// IsExpanded reports whether item's children are shown.
func (s *State[T]) IsExpanded(item T) bool {
	return s.expanded.Has(s.opts.Key(item))
}

// Toggle flips item's expansion. It does nothing for leaves and while a
// search term is active, and reports whether anything changed.
func (s *State[T]) Toggle(item T) bool {
	if s.term != "" || !s.opts.hasChildren(item) {
		return false
	}
	key := s.opts.Key(item)
	if s.expanded.Has(key) {
		s.expanded.Delete(key)
	} else {
		s.expanded.Add(key)
	}
	if s.opts.OnToggle != nil {
		s.opts.OnToggle(item)
	}
	return true
}

// ExpandAll expands every node with children. Ignored while searching.
func (s *State[T]) ExpandAll() {
	if s.term != "" {
		return
	}
	s.walk(func(item T, key string, _ int) bool {
		if s.opts.hasChildren(item) {
			s.expanded.Add(key)
		}
		return true
	}, false)
}

// CollapseAll empties the expansion set. Ignored while searching.
func (s *State[T]) CollapseAll() {
	if s.term != "" {
		return
	}
	s.expanded = NewExpansionSet()
}

// Rows flattens the visible part of the tree in document order.
func (s *State[T]) Rows() []Row[T] {
	vis := s.Visibility()
	var rows []Row[T]
	s.walk(func(item T, key string, depth int) bool {
		if !vis.IsVisible(key) {
			return false
		}
		hasChildren := s.opts.hasChildren(item)
		expanded := hasChildren && s.expanded.Has(key)
		rows = append(rows, Row[T]{
			Item:        item,
			Key:         key,
			Depth:       depth,
			HasChildren: hasChildren,
			Expanded:    expanded,
			Matched:     vis.IsMatched(key),
			Focused:     key != "" && key == s.focus,
		})
		return expanded
	}, true)
	return rows
}

// walk visits nodes pre-order. When gated, children are only visited if visit
// returned true for their parent. Depth is capped by MaxDepth and cycles are
// skipped.
func (s *State[T]) walk(visit func(item T, key string, depth int) bool, gated bool) {
	type entry struct {
		item  T
		depth int
	}

	maxDepth := s.opts.maxDepth()
	stack := make([]entry, 0, len(s.roots))
	for i := len(s.roots) - 1; i >= 0; i-- {
		stack = append(stack, entry{item: s.roots[i]})
	}
	var path []string

	for len(stack) > 0 {
		e := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		key := s.opts.Key(e.item)
		path = path[:e.depth]
		if onPath(path, key) {
			continue
		}

		descend := visit(e.item, key, e.depth)
		if gated && !descend {
			continue
		}
		if e.depth+1 >= maxDepth {
			continue
		}
		path = append(path, key)

		children := s.opts.children(e.item)
		for i := len(children) - 1; i >= 0; i-- {
			stack = append(stack, entry{item: children[i], depth: e.depth + 1})
		}
	}
}

// Focus sets the focused key.
func (s *State[T]) Focus(key string) {
	s.focus = key
}

// Focused returns the focused key, or "" when nothing has focus.
func (s *State[T]) Focused() string {
	return s.focus
}

// FocusedRow returns the focused row if it is currently visible.
func (s *State[T]) FocusedRow() (Row[T], bool) {
	for _, row := range s.Rows() {
		if row.Focused {
			return row, true
		}
	}
	return Row[T]{}, false
}

// Click focuses item and reports it to OnItemClick.
func (s *State[T]) Click(item T) {
	s.focus = s.opts.Key(item)
	s.activate(item)
}

func (s *State[T]) activate(item T) {
	if s.opts.OnItemClick != nil {
		s.opts.OnItemClick(item)
	}
}
