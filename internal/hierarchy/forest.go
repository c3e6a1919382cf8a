// Package hierarchy maintains parent/child trees encoded as nested sets and
// materialized paths, so "all descendants of N" is an interval or prefix test
// instead of a recursive walk.
//
// A Forest is immutable from the caller's point of view: Attach and Insert return
// a new Forest and leave the receiver untouched, which is what lets services
// abort a failed re-parenting without rolling anything back in memory.
package hierarchy

import (
	"cmp"
	"slices"
	"strings"

	dErrors "complyhub/pkg/domain-errors"
)

// Key is satisfied by the typed IDs in pkg/domain.
type Key interface {
	comparable
	String() string
}

// Node is the parent-pointer view of one record. Parent is the zero Key for roots.
// Scope groups nodes that may be linked to each other (the owning Standard for
// domains and requirements); "" means unscoped.
type Node[K Key] struct {
	ID       K
	Parent   K
	Scope    string
	Sequence int
}

// Position holds the derived ordering fields of a node.
//
// Invariants for a built forest:
//   - Left < Right
//   - every descendant's bounds fall strictly inside its ancestors' bounds
//   - sibling intervals never overlap
//   - Level is 1 for roots and parent.Level+1 otherwise
//   - Path is the parent's Path followed by "<id>/"
type Position struct {
	Left  int    `json:"parent_left"`
	Right int    `json:"parent_right"`
	Level int    `json:"path_level"`
	Path  string `json:"parent_path"`
}

// Contains reports whether q lies strictly inside p's interval.
func (p Position) Contains(q Position) bool {
	return p.Left < q.Left && q.Right < p.Right
}

// Forest is a fully numbered set of trees of one entity type.
type Forest[K Key] struct {
	nodes    map[K]Node[K]
	children map[K][]K
	roots    []K
	pos      map[K]Position
}

// Build numbers every node from parent pointers alone. It is the rebuild-all
// operation: running it twice over the same nodes yields identical positions.
//
// Fails with CodeNotFound for a parent that is not part of nodes, CodeScopeViolation
// when a parent belongs to another scope, and CodeCycleDetected when any node is its
// own transitive ancestor. On failure no Forest is returned.
func Build[K Key](nodes []Node[K]) (*Forest[K], error) {
	var zero K
	f := &Forest[K]{
		nodes:    make(map[K]Node[K], len(nodes)),
		children: make(map[K][]K),
		pos:      make(map[K]Position, len(nodes)),
	}
	for _, n := range nodes {
		if n.ID == zero {
			return nil, dErrors.New(dErrors.CodeInvalidInput, "hierarchy node without ID")
		}
		if _, dup := f.nodes[n.ID]; dup {
			return nil, dErrors.Newf(dErrors.CodeInvalidInput, "duplicate hierarchy node %s", n.ID)
		}
		f.nodes[n.ID] = n
	}
	for _, n := range nodes {
		if n.Parent == zero {
			f.roots = append(f.roots, n.ID)
			continue
		}
		if n.Parent == n.ID {
			return nil, dErrors.Newf(dErrors.CodeCycleDetected, "node %s is its own parent", n.ID)
		}
		parent, ok := f.nodes[n.Parent]
		if !ok {
			return nil, dErrors.Newf(dErrors.CodeNotFound, "parent %s of node %s not found", n.Parent, n.ID)
		}
		if parent.Scope != n.Scope {
			return nil, dErrors.Newf(dErrors.CodeScopeViolation, "node %s and parent %s belong to different scopes", n.ID, n.Parent)
		}
		f.children[n.Parent] = append(f.children[n.Parent], n.ID)
	}

	f.sortRoots()
	for parent := range f.children {
		f.sortSiblings(f.children[parent])
	}
	f.number()

	// Nodes on a cycle are never reached from a root.
	if len(f.pos) != len(f.nodes) {
		for _, n := range nodes {
			if _, ok := f.pos[n.ID]; !ok {
				return nil, dErrors.Newf(dErrors.CodeCycleDetected, "node %s is part of a parent cycle", n.ID)
			}
		}
	}
	return f, nil
}

func (f *Forest[K]) sortRoots() {
	slices.SortFunc(f.roots, func(a, b K) int {
		na, nb := f.nodes[a], f.nodes[b]
		if c := cmp.Compare(na.Scope, nb.Scope); c != 0 {
			return c
		}
		if c := cmp.Compare(na.Sequence, nb.Sequence); c != 0 {
			return c
		}
		return cmp.Compare(a.String(), b.String())
	})
}

func (f *Forest[K]) sortSiblings(ids []K) {
	slices.SortFunc(ids, func(a, b K) int {
		if c := cmp.Compare(f.nodes[a].Sequence, f.nodes[b].Sequence); c != 0 {
			return c
		}
		return cmp.Compare(a.String(), b.String())
	})
}

// number assigns nested-set bounds with an explicit stack so deep trees
// cannot exhaust the goroutine stack. Each scope is numbered from 1, so a
// forest built from one scope's nodes matches that scope's slice of a forest
// built from all of them.
func (f *Forest[K]) number() {
	type frame struct {
		id   K
		next int
	}
	counter := 0
	scope := ""
	for i, root := range f.roots {
		if s := f.nodes[root].Scope; i == 0 || s != scope {
			scope = s
			counter = 0
		}
		counter++
		f.pos[root] = Position{Left: counter, Level: 1, Path: root.String() + "/"}
		stack := []frame{{id: root}}
		for len(stack) > 0 {
			top := &stack[len(stack)-1]
			kids := f.children[top.id]
			if top.next < len(kids) {
				child := kids[top.next]
				top.next++
				parentPos := f.pos[top.id]
				counter++
				f.pos[child] = Position{
					Left:  counter,
					Level: parentPos.Level + 1,
					Path:  parentPos.Path + child.String() + "/",
				}
				stack = append(stack, frame{id: child})
				continue
			}
			counter++
			p := f.pos[top.id]
			p.Right = counter
			f.pos[top.id] = p
			stack = stack[:len(stack)-1]
		}
	}
}

// Len returns the number of nodes in the forest.
func (f *Forest[K]) Len() int {
	return len(f.nodes)
}

// Has reports whether id is part of the forest.
func (f *Forest[K]) Has(id K) bool {
	_, ok := f.nodes[id]
	return ok
}

// Node returns the parent-pointer record for id.
func (f *Forest[K]) Node(id K) (Node[K], bool) {
	n, ok := f.nodes[id]
	return n, ok
}

// Nodes returns every node ordered by scope, then Left.
func (f *Forest[K]) Nodes() []Node[K] {
	out := make([]Node[K], 0, len(f.nodes))
	for _, n := range f.nodes {
		out = append(out, n)
	}
	slices.SortFunc(out, func(a, b Node[K]) int {
		if c := cmp.Compare(a.Scope, b.Scope); c != 0 {
			return c
		}
		return cmp.Compare(f.pos[a.ID].Left, f.pos[b.ID].Left)
	})
	return out
}

// Position returns the derived ordering fields of id.
func (f *Forest[K]) Position(id K) (Position, bool) {
	p, ok := f.pos[id]
	return p, ok
}

// Positions returns a copy of all positions keyed by ID.
func (f *Forest[K]) Positions() map[K]Position {
	out := make(map[K]Position, len(f.pos))
	for k, v := range f.pos {
		out[k] = v
	}
	return out
}

// Children returns the direct children of id in sibling order.
func (f *Forest[K]) Children(id K) []K {
	return slices.Clone(f.children[id])
}

// LevelOf returns 1 for a root, else the parent's level plus one.
func (f *Forest[K]) LevelOf(id K) (int, error) {
	p, ok := f.pos[id]
	if !ok {
		return 0, notFound(id)
	}
	return p.Level, nil
}

// Ancestors returns the chain of ancestors of id, nearest first.
func (f *Forest[K]) Ancestors(id K) ([]K, error) {
	n, ok := f.nodes[id]
	if !ok {
		return nil, notFound(id)
	}
	var zero K
	var out []K
	for n.Parent != zero {
		out = append(out, n.Parent)
		n = f.nodes[n.Parent]
	}
	return out, nil
}

// DescendantsOf returns every node strictly inside id's interval and in id's scope,
// ordered by Left. The node itself is excluded.
func (f *Forest[K]) DescendantsOf(id K) ([]K, error) {
	p, ok := f.pos[id]
	if !ok {
		return nil, notFound(id)
	}
	scope := f.nodes[id].Scope
	var out []K
	for k, q := range f.pos {
		if p.Contains(q) && f.nodes[k].Scope == scope {
			out = append(out, k)
		}
	}
	f.sortByLeft(out)
	return out, nil
}

// DescendantsByPath answers the same question as DescendantsOf with a prefix test
// on the materialized path. For any forest produced by Build both agree.
func (f *Forest[K]) DescendantsByPath(id K) ([]K, error) {
	p, ok := f.pos[id]
	if !ok {
		return nil, notFound(id)
	}
	scope := f.nodes[id].Scope
	var out []K
	for k, q := range f.pos {
		if k != id && strings.HasPrefix(q.Path, p.Path) && f.nodes[k].Scope == scope {
			out = append(out, k)
		}
	}
	f.sortByLeft(out)
	return out, nil
}

// IsDescendant reports whether candidate lies below ancestor. Intervals are
// numbered per scope, so nodes of different scopes are never related.
func (f *Forest[K]) IsDescendant(candidate, ancestor K) bool {
	if f.nodes[candidate].Scope != f.nodes[ancestor].Scope {
		return false
	}
	a, ok := f.pos[ancestor]
	if !ok {
		return false
	}
	c, ok := f.pos[candidate]
	if !ok {
		return false
	}
	return a.Contains(c)
}

func (f *Forest[K]) sortByLeft(ids []K) {
	slices.SortFunc(ids, func(a, b K) int {
		return cmp.Compare(f.pos[a].Left, f.pos[b].Left)
	})
}

// Attach re-parents id under parent (zero parent makes it a root) and returns the
// renumbered forest. The receiver is never modified.
//
// Fails with CodeScopeViolation when parent belongs to another scope and with
// CodeCycleDetected when parent is id itself or one of its descendants.
func (f *Forest[K]) Attach(id, parent K) (*Forest[K], error) {
	n, ok := f.nodes[id]
	if !ok {
		return nil, notFound(id)
	}
	var zero K
	if parent != zero {
		p, ok := f.nodes[parent]
		if !ok {
			return nil, notFound(parent)
		}
		if p.Scope != n.Scope {
			return nil, dErrors.Newf(dErrors.CodeScopeViolation, "cannot attach %s under %s: different scopes", id, parent)
		}
		if parent == id || f.IsDescendant(parent, id) {
			return nil, dErrors.Newf(dErrors.CodeCycleDetected, "cannot attach %s under its own descendant %s", id, parent)
		}
	}
	n.Parent = parent
	return f.rebuildWith(n)
}

// Insert adds a new node and returns the renumbered forest.
func (f *Forest[K]) Insert(n Node[K]) (*Forest[K], error) {
	if _, exists := f.nodes[n.ID]; exists {
		return nil, dErrors.Newf(dErrors.CodeConflict, "node %s already exists", n.ID)
	}
	return f.rebuildWith(n)
}

// Resequence changes a node's sibling order and returns the renumbered forest.
func (f *Forest[K]) Resequence(id K, sequence int) (*Forest[K], error) {
	n, ok := f.nodes[id]
	if !ok {
		return nil, notFound(id)
	}
	n.Sequence = sequence
	return f.rebuildWith(n)
}

func (f *Forest[K]) rebuildWith(changed Node[K]) (*Forest[K], error) {
	nodes := make([]Node[K], 0, len(f.nodes)+1)
	for k, n := range f.nodes {
		if k == changed.ID {
			continue
		}
		nodes = append(nodes, n)
	}
	nodes = append(nodes, changed)
	return Build(nodes)
}

// Changed returns the positions in f that differ from prev (or are new).
// Services persist only these.
func (f *Forest[K]) Changed(prev *Forest[K]) map[K]Position {
	out := make(map[K]Position)
	for k, p := range f.pos {
		if prev == nil {
			out[k] = p
			continue
		}
		if old, ok := prev.pos[k]; !ok || old != p {
			out[k] = p
		}
	}
	return out
}

func notFound[K Key](id K) error {
	return dErrors.Newf(dErrors.CodeNotFound, "hierarchy node %s not found", id)
}
