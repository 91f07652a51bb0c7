package tree

// This file contains the traversal functions. They take values and return
// values: no mutation of the input tree, no recursion. Trees come from
// callers, so every walk keeps its own stack and skips a child whose key is
// already on the current path.

// Visibility is the result of one search pass over a forest.
type Visibility struct {
	Term string
	// Expanded holds every ancestor of a match.
	Expanded ExpansionSet
	// Matched holds nodes the matcher accepted.
	Matched ExpansionSet
	// Visible holds nodes that match or have a matching descendant.
	Visible ExpansionSet
}

// IsVisible reports whether key survived the filter.
func (v *Visibility) IsVisible(key string) bool {
	if v == nil || v.Term == "" {
		return true
	}
	return v.Visible.Has(key)
}

// IsMatched reports whether key matched the term directly.
func (v *Visibility) IsMatched(key string) bool {
	if v == nil {
		return false
	}
	return v.Matched.Has(key)
}

type frame[T any] struct {
	item      T
	key       string
	children  []T
	next      int
	qualifies bool // some child matched or has a matching descendant
}

// Evaluate walks every root post-order and records, for term, which nodes
// match, which are visible and which must be expanded.
func Evaluate[T any](roots []T, term string, opts Options[T]) *Visibility {
	v := &Visibility{
		Term:     term,
		Expanded: NewExpansionSet(),
		Matched:  NewExpansionSet(),
		Visible:  NewExpansionSet(),
	}
	if term == "" {
		return v
	}

	for _, root := range roots {
		evaluateRoot(root, term, opts, v)
	}
	return v
}

func evaluateRoot[T any](root T, term string, opts Options[T], v *Visibility) {
	rootKey := opts.Key(root)
	stack := []*frame[T]{{item: root, key: rootKey, children: opts.children(root)}}
	onPath := map[string]struct{}{rootKey: {}}

	for len(stack) > 0 {
		top := stack[len(stack)-1]

		if top.next < len(top.children) {
			child := top.children[top.next]
			top.next++
			childKey := opts.Key(child)
			if _, cycle := onPath[childKey]; cycle {
				continue
			}
			onPath[childKey] = struct{}{}
			stack = append(stack, &frame[T]{item: child, key: childKey, children: opts.children(child)})
			continue
		}

		stack = stack[:len(stack)-1]
		delete(onPath, top.key)

		matched := opts.matches(top.item, term)
		if matched {
			v.Matched.Add(top.key)
		}
		if top.qualifies {
			v.Expanded.Add(top.key)
		}
		if matched || top.qualifies {
			v.Visible.Add(top.key)
			if len(stack) > 0 {
				stack[len(stack)-1].qualifies = true
			}
		}
	}
}

// ComputeAutoExpand returns the minimal expansion set that reveals every node
// matching term: exactly the ancestors of matches. Leaves never contribute.
func ComputeAutoExpand[T any](roots []T, term string, opts Options[T]) ExpansionSet {
	return Evaluate(roots, term, opts).Expanded
}

// IsVisible reports whether item is shown under term. It walks the item's
// subtree itself and ignores any expansion state.
func IsVisible[T any](item T, term string, opts Options[T]) bool {
	if term == "" {
		return true
	}
	return opts.matches(item, term) || HasMatchingDescendant(item, term, opts)
}

// HasMatchingDescendant reports whether any node below item matches term.
func HasMatchingDescendant[T any](item T, term string, opts Options[T]) bool {
	type entry struct {
		item  T
		depth int
	}

	path := []string{opts.Key(item)}
	stack := make([]entry, 0, 8)
	children := opts.children(item)
	for i := len(children) - 1; i >= 0; i-- {
		stack = append(stack, entry{item: children[i], depth: 1})
	}

	for len(stack) > 0 {
		e := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		key := opts.Key(e.item)
		path = path[:e.depth]
		if onPath(path, key) {
			continue
		}
		if opts.matches(e.item, term) {
			return true
		}
		path = append(path, key)

		children := opts.children(e.item)
		for i := len(children) - 1; i >= 0; i-- {
			stack = append(stack, entry{item: children[i], depth: e.depth + 1})
		}
	}
	return false
}

func onPath(path []string, key string) bool {
	for _, k := range path {
		if k == key {
			return true
		}
	}
	return false
}
