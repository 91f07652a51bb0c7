package core

import (
	"strings"

	"github.com/google/uuid"
)

// taxonNamespace seeds the name-based UUIDs derived for taxa without an id.
var taxonNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://github.com/artpar/arbor/taxon"))

// Taxon is one node of a taxonomy: a kingdom, family, species and so on.
type Taxon struct {
	ID         string   `json:"id,omitempty" yaml:"id,omitempty"`
	Taxon      string   `json:"taxon" yaml:"taxon"`
	Name       string   `json:"name" yaml:"name"`
	CommonName string   `json:"common_name" yaml:"common_name"`
	Children   []*Taxon `json:"children,omitempty" yaml:"children,omitempty"`
}

// Key returns the stable identity of t.
func (t *Taxon) Key() string { return t.ID }

// HasChildren reports whether t has at least one child.
func (t *Taxon) HasChildren() bool { return len(t.Children) > 0 }

// Label returns "Name (Taxon)" for plain-text output.
func (t *Taxon) Label() string {
	if t.Taxon == "" {
		return t.Name
	}
	return t.Name + " (" + t.Taxon + ")"
}

// Clone returns a deep copy.
func (t *Taxon) Clone() *Taxon {
	if t == nil {
		return nil
	}
	c := *t
	if t.Children != nil {
		c.Children = make([]*Taxon, len(t.Children))
		for i, child := range t.Children {
			c.Children[i] = child.Clone()
		}
	}
	return &c
}

// TaxonChildren returns the children of t.
func TaxonChildren(t *Taxon) []*Taxon { return t.Children }

// TaxonKey returns the stable identity of t.
func TaxonKey(t *Taxon) string { return t.ID }

// MatchTaxon reports whether name, common name or rank contains term,
// ignoring case.
func MatchTaxon(t *Taxon, term string) bool {
	term = strings.ToLower(term)
	return strings.Contains(strings.ToLower(t.Name), term) ||
		strings.Contains(strings.ToLower(t.CommonName), term) ||
		strings.Contains(strings.ToLower(t.Taxon), term)
}

// AssignIDs fills in missing ids. A derived id is a SHA-1 UUID of the
// rank/name path from the root, so reloading the same data yields the same
// ids. Existing ids are kept.
func AssignIDs(roots []*Taxon) {
	var assign func(nodes []*Taxon, parent string)
	assign = func(nodes []*Taxon, parent string) {
		for _, t := range nodes {
			path := parent + "/" + t.Taxon + ":" + t.Name
			if t.ID == "" {
				t.ID = uuid.NewSHA1(taxonNamespace, []byte(path)).String()
			}
			assign(t.Children, path)
		}
	}
	assign(roots, "")
}

// Walk calls fn for every taxon in document order with its depth. Returning
// false from fn skips that taxon's children.
func Walk(roots []*Taxon, fn func(t *Taxon, depth int) bool) {
	var walk func(nodes []*Taxon, depth int)
	walk = func(nodes []*Taxon, depth int) {
		for _, t := range nodes {
			if fn(t, depth) {
				walk(t.Children, depth+1)
			}
		}
	}
	walk(roots, 0)
}

// Count returns the number of taxa in the forest.
func Count(roots []*Taxon) int {
	n := 0
	Walk(roots, func(*Taxon, int) bool {
		n++
		return true
	})
	return n
}

// Find returns the taxon with id, or nil.
func Find(roots []*Taxon, id string) *Taxon {
	var found *Taxon
	Walk(roots, func(t *Taxon, _ int) bool {
		if found != nil {
			return false
		}
		if t.ID == id {
			found = t
			return false
		}
		return true
	})
	return found
}

// Path returns the chain of taxa from a root down to the taxon with id, or
// nil when id is unknown.
func Path(roots []*Taxon, id string) []*Taxon {
	for _, root := range roots {
		if p := pathFrom(root, id); p != nil {
			return p
		}
	}
	return nil
}

func pathFrom(t *Taxon, id string) []*Taxon {
	if t.ID == id {
		return []*Taxon{t}
	}
	for _, child := range t.Children {
		if p := pathFrom(child, id); p != nil {
			return append([]*Taxon{t}, p...)
		}
	}
	return nil
}
