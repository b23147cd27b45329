package categories

import (
	"sort"
	"strings"

	"github.com/cleared-dev/releve/internal/model"
)

// PathSeparator joins category names into a path, e.g. "Logement > Charges".
const PathSeparator = " > "

// Forest is an immutable snapshot of the category hierarchy: an arena of
// nodes keyed by id, with children derived from parent ids.
type Forest struct {
	byID     map[int64]model.Category
	children map[int64][]int64 // parent id (0 = roots) -> child ids sorted by name
}

// NewForest indexes cats. Children are ordered by name, then id.
func NewForest(cats []model.Category) *Forest {
	f := &Forest{
		byID:     make(map[int64]model.Category, len(cats)),
		children: make(map[int64][]int64),
	}
	for _, c := range cats {
		f.byID[c.ID] = c
		f.children[c.ParentID] = append(f.children[c.ParentID], c.ID)
	}
	for _, ids := range f.children {
		sort.Slice(ids, func(i, j int) bool {
			a, b := f.byID[ids[i]], f.byID[ids[j]]
			if a.Name != b.Name {
				return a.Name < b.Name
			}
			return a.ID < b.ID
		})
	}
	return f
}

// Len returns the number of categories.
func (f *Forest) Len() int {
	return len(f.byID)
}

// Get returns the category with id.
func (f *Forest) Get(id int64) (model.Category, bool) {
	c, ok := f.byID[id]
	return c, ok
}

// Children returns the direct children of id in name order. id 0 yields
// the roots.
func (f *Forest) Children(id int64) []model.Category {
	ids := f.children[id]
	out := make([]model.Category, len(ids))
	for i, cid := range ids {
		out[i] = f.byID[cid]
	}
	return out
}

// Ancestors returns the chain from id's parent up to its root.
func (f *Forest) Ancestors(id int64) []model.Category {
	var out []model.Category
	c, ok := f.byID[id]
	for ok && c.ParentID != 0 && len(out) <= len(f.byID) {
		c, ok = f.byID[c.ParentID]
		if ok {
			out = append(out, c)
		}
	}
	return out
}

// IsAncestor reports whether anc is id itself or one of its ancestors.
func (f *Forest) IsAncestor(anc, id int64) bool {
	if anc == id {
		return true
	}
	for _, c := range f.Ancestors(id) {
		if c.ID == anc {
			return true
		}
	}
	return false
}

// Descendants returns id and every category below it, depth first.
func (f *Forest) Descendants(id int64) []int64 {
	out := []int64{id}
	for _, cid := range f.children[id] {
		out = append(out, f.Descendants(cid)...)
	}
	return out
}

// Path returns the names from the root down to id joined by
// PathSeparator, or "" for an unknown id.
func (f *Forest) Path(id int64) string {
	c, ok := f.byID[id]
	if !ok {
		return ""
	}
	anc := f.Ancestors(id)
	names := make([]string, 0, len(anc)+1)
	for i := len(anc) - 1; i >= 0; i-- {
		names = append(names, anc[i].Name)
	}
	names = append(names, c.Name)
	return strings.Join(names, PathSeparator)
}

// Root returns the root category above id, or id itself when it is a root.
func (f *Forest) Root(id int64) (model.Category, bool) {
	anc := f.Ancestors(id)
	if len(anc) > 0 {
		return anc[len(anc)-1], true
	}
	return f.Get(id)
}

// Order selects the traversal used by List.
type Order int

const (
	DepthFirst Order = iota
	BreadthFirst
)

// Node is a category positioned in a listing.
type Node struct {
	model.Category
	Depth int
	Path  string
}

// Walk lists the whole forest in the given order. Siblings come in name
// order in both traversals.
func (f *Forest) Walk(order Order) []Node {
	out := make([]Node, 0, len(f.byID))
	if order == BreadthFirst {
		type item struct {
			id    int64
			depth int
		}
		var queue []item
		for _, id := range f.children[0] {
			queue = append(queue, item{id, 0})
		}
		for len(queue) > 0 {
			it := queue[0]
			queue = queue[1:]
			out = append(out, Node{Category: f.byID[it.id], Depth: it.depth, Path: f.Path(it.id)})
			for _, cid := range f.children[it.id] {
				queue = append(queue, item{cid, it.depth + 1})
			}
		}
		return out
	}

	var visit func(id int64, depth int)
	visit = func(id int64, depth int) {
		out = append(out, Node{Category: f.byID[id], Depth: depth, Path: f.Path(id)})
		for _, cid := range f.children[id] {
			visit(cid, depth+1)
		}
	}
	for _, id := range f.children[0] {
		visit(id, 0)
	}
	return out
}
