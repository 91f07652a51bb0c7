package tree

import "strings"

// node is the item type used by the engine tests.
type node struct {
	id       string
	name     string
	children []*node
}

func leaf(id, name string) *node {
	return &node{id: id, name: name}
}

func branch(id, name string, children ...*node) *node {
	return &node{id: id, name: name, children: children}
}

func nodeOptions() Options[*node] {
	return Options[*node]{
		Children: func(n *node) []*node { return n.children },
		Key:      func(n *node) string { return n.id },
		Match: func(n *node, term string) bool {
			return strings.Contains(strings.ToLower(n.name), strings.ToLower(term))
		},
	}
}

// taxon mirrors the demo dataset shape for the end-to-end scenarios.
type taxon struct {
	rank       string
	name       string
	commonName string
	children   []*taxon
}

func taxonOptions() Options[*taxon] {
	return Options[*taxon]{
		Children: func(t *taxon) []*taxon { return t.children },
		Key:      func(t *taxon) string { return t.rank + ":" + t.name },
		Match: func(t *taxon, term string) bool {
			term = strings.ToLower(term)
			return strings.Contains(strings.ToLower(t.name), term) ||
				strings.Contains(strings.ToLower(t.commonName), term) ||
				strings.Contains(strings.ToLower(t.rank), term)
		},
	}
}

// plantae builds Kingdom(Plantae) -> Family(Rosaceae) -> Species(Malus domestica).
func plantae() *taxon {
	return &taxon{
		rank: "Kingdom", name: "Plantae", commonName: "Plants",
		children: []*taxon{{
			rank: "Family", name: "Rosaceae", commonName: "Rose family",
			children: []*taxon{{
				rank: "Species", name: "Malus domestica", commonName: "Apple tree",
			}},
		}},
	}
}

// forest adds unrelated sibling branches next to plantae.
func forest() []*taxon {
	return []*taxon{
		plantae(),
		{
			rank: "Kingdom", name: "Animalia", commonName: "Animals",
			children: []*taxon{{
				rank: "Family", name: "Felidae", commonName: "Cats",
				children: []*taxon{
					{rank: "Species", name: "Panthera leo", commonName: "Lion"},
					{rank: "Species", name: "Felis catus", commonName: "Domestic cat"},
				},
			}},
		},
	}
}

func rowKeys[T any](rows []Row[T]) []string {
	keys := make([]string, len(rows))
	for i, r := range rows {
		keys[i] = r.Key
	}
	return keys
}
