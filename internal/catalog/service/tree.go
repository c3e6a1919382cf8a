package service

import (
	"context"

	"complyhub/internal/hierarchy"
)

// tree adapts one record kind to the generic hierarchy operations. The service
// keeps one per kind (standards, categories, domains, requirements).
type tree[K hierarchy.Key, T any] struct {
	kind            string
	list            func(ctx context.Context) ([]T, error)
	node            func(T) hierarchy.Node[K]
	position        func(T) hierarchy.Position
	setPosition     func(T, hierarchy.Position)
	updatePositions func(ctx context.Context, positions map[K]hierarchy.Position) error
}

// snapshot is a loaded tree: the records by ID and the forest built from them.
type snapshot[K hierarchy.Key, T any] struct {
	byID   map[K]T
	forest *hierarchy.Forest[K]
}

func (t tree[K, T]) load(ctx context.Context) (*snapshot[K, T], error) {
	items, err := t.list(ctx)
	if err != nil {
		return nil, wrapStoreErr(err, t.kind)
	}
	byID := make(map[K]T, len(items))
	nodes := make([]hierarchy.Node[K], 0, len(items))
	for _, item := range items {
		n := t.node(item)
		byID[n.ID] = item
		nodes = append(nodes, n)
	}
	forest, err := hierarchy.Build(nodes)
	if err != nil {
		return nil, err
	}
	return &snapshot[K, T]{byID: byID, forest: forest}, nil
}

// persist writes the positions in changed except skip (a record the caller saves itself)
// and mirrors them onto the loaded records.
func (t tree[K, T]) persist(ctx context.Context, snap *snapshot[K, T], changed map[K]hierarchy.Position, skip K) error {
	writes := make(map[K]hierarchy.Position, len(changed))
	for k, p := range changed {
		if item, ok := snap.byID[k]; ok {
			t.setPosition(item, p)
		}
		if k != skip {
			writes[k] = p
		}
	}
	if len(writes) == 0 {
		return nil
	}
	if err := t.updatePositions(ctx, writes); err != nil {
		return wrapStoreErr(err, t.kind)
	}
	return nil
}

// drift returns the positions of next that differ from what is stored on the records.
func (t tree[K, T]) drift(snap *snapshot[K, T], next *hierarchy.Forest[K]) map[K]hierarchy.Position {
	out := make(map[K]hierarchy.Position)
	for k, p := range next.Positions() {
		item, ok := snap.byID[k]
		if !ok || t.position(item) != p {
			out[k] = p
		}
	}
	return out
}

// subtree returns id followed by its descendants, parents before children.
func subtree[K hierarchy.Key](f *hierarchy.Forest[K], root K) ([]K, error) {
	desc, err := f.DescendantsOf(root)
	if err != nil {
		return nil, err
	}
	return append([]K{root}, desc...), nil
}

// insert adds item to the tree, sets its position and persists the positions of
// the records it shifted. The caller creates item itself.
func (t tree[K, T]) insert(ctx context.Context, item T) error {
	snap, err := t.load(ctx)
	if err != nil {
		return err
	}
	n := t.node(item)
	next, err := snap.forest.Insert(n)
	if err != nil {
		return err
	}
	changed := next.Changed(snap.forest)
	t.setPosition(item, changed[n.ID])
	return t.persist(ctx, snap, changed, n.ID)
}
