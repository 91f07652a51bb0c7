// Package tree holds the expansion, search and visibility engine behind the
// tree view. Nothing here renders: the engine decides which nodes are
// expanded, which are visible under a search term and where focus sits, and
// the TUI draws whatever Rows returns.
package tree

// Matcher reports whether item matches the search term.
type Matcher[T any] func(item T, term string) bool

// ChildrenFunc returns the children of item. Nil or empty means leaf.
type ChildrenFunc[T any] func(item T) []T

// KeyFunc returns a stable identity for item. Expansion and focus are keyed
// by it, so it must not change when items are reloaded or cloned.
type KeyFunc[T any] func(item T) string

// ClearPolicy decides what happens to the expansion set when the search term
// is cleared.
type ClearPolicy int

const (
	// ClearCollapseAll empties the expansion set, discarding manual toggles.
	ClearCollapseAll ClearPolicy = iota
	// ClearRestoreManual restores the manual expansion set that was active
	// when the search began.
	ClearRestoreManual
)

// String returns the flag spelling of the policy.
func (p ClearPolicy) String() string {
	switch p {
	case ClearRestoreManual:
		return "restore"
	default:
		return "collapse"
	}
}

// ParseClearPolicy converts a flag value into a ClearPolicy.
func ParseClearPolicy(s string) (ClearPolicy, bool) {
	switch s {
	case "", "collapse":
		return ClearCollapseAll, true
	case "restore":
		return ClearRestoreManual, true
	}
	return ClearCollapseAll, false
}

// DefaultMaxDepth bounds how deep Rows descends.
const DefaultMaxDepth = 256

// Options configures the engine for one item type.
type Options[T any] struct {
	Children ChildrenFunc[T]
	Key      KeyFunc[T]
	// Match may be nil, in which case nothing matches an active term.
	Match       Matcher[T]
	ClearPolicy ClearPolicy
	MaxDepth    int

	// OnToggle fires after an item's expansion actually changed.
	OnToggle func(item T)
	// OnItemClick fires on Click and on Enter/Space.
	OnItemClick func(item T)
}

func (o Options[T]) children(item T) []T {
	if o.Children == nil {
		return nil
	}
	return o.Children(item)
}

func (o Options[T]) hasChildren(item T) bool {
	return len(o.children(item)) > 0
}

func (o Options[T]) matches(item T, term string) bool {
	if o.Match == nil {
		return false
	}
	return o.Match(item, term)
}

func (o Options[T]) maxDepth() int {
	if o.MaxDepth <= 0 {
		return DefaultMaxDepth
	}
	return o.MaxDepth
}

// HasChildren reports whether item shows an expand affordance.
func HasChildren[T any](item T, opts Options[T]) bool {
	return opts.hasChildren(item)
}
