package hierarchy

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	id "complyhub/pkg/domain"
	dErrors "complyhub/pkg/domain-errors"
)

type ForestSuite struct {
	suite.Suite
}

func TestForestSuite(t *testing.T) {
	suite.Run(t, new(ForestSuite))
}

// chain builds root -> a -> b in scope "s1" plus a lone root in scope "s2".
func chain() (root, a, b, other id.DomainID, nodes []Node[id.DomainID]) {
	root, a, b, other = id.NewDomainID(), id.NewDomainID(), id.NewDomainID(), id.NewDomainID()
	nodes = []Node[id.DomainID]{
		{ID: root, Scope: "s1"},
		{ID: a, Parent: root, Scope: "s1"},
		{ID: b, Parent: a, Scope: "s1"},
		{ID: other, Scope: "s2"},
	}
	return
}

func (s *ForestSuite) TestBuildAssignsNestedSetBounds() {
	root, a, b, other, nodes := chain()
	f, err := Build(nodes)
	s.Require().NoError(err)

	rp, _ := f.Position(root)
	ap, _ := f.Position(a)
	bp, _ := f.Position(b)
	op, _ := f.Position(other)

	s.True(rp.Contains(ap))
	s.True(ap.Contains(bp))
	s.False(rp.Contains(op))
	s.False(f.IsDescendant(other, root))
	s.Equal(1, op.Left, "each scope is numbered from 1")
	s.Equal(1, rp.Level)
	s.Equal(2, ap.Level)
	s.Equal(3, bp.Level)
	s.Equal(root.String()+"/"+a.String()+"/"+b.String()+"/", bp.Path)
	assertInvariants(s.T(), f)
}

func (s *ForestSuite) TestRebuildIsIdempotent() {
	_, _, _, _, nodes := chain()
	first, err := Build(nodes)
	s.Require().NoError(err)
	second, err := Build(first.Nodes())
	s.Require().NoError(err)
	s.Equal(first.Positions(), second.Positions())
	s.Empty(second.Changed(first))
}

func (s *ForestSuite) TestScopeSliceMatchesFullBuild() {
	root, a, b, other, nodes := chain()
	full, err := Build(nodes)
	s.Require().NoError(err)

	onlyS1, err := Build(nodes[:3])
	s.Require().NoError(err)
	onlyS2, err := Build(nodes[3:])
	s.Require().NoError(err)

	for _, k := range []id.DomainID{root, a, b} {
		want, _ := full.Position(k)
		got, _ := onlyS1.Position(k)
		s.Equal(want, got)
	}
	want, _ := full.Position(other)
	got, _ := onlyS2.Position(other)
	s.Equal(want, got)
}

func (s *ForestSuite) TestBuildRejectsBrokenInput() {
	s.Run("cycle between two nodes", func() {
		x, y := id.NewDomainID(), id.NewDomainID()
		_, err := Build([]Node[id.DomainID]{
			{ID: x, Parent: y},
			{ID: y, Parent: x},
		})
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeCycleDetected))
	})

	s.Run("self parent", func() {
		x := id.NewDomainID()
		_, err := Build([]Node[id.DomainID]{{ID: x, Parent: x}})
		s.True(dErrors.HasCode(err, dErrors.CodeCycleDetected))
	})

	s.Run("cross scope parent", func() {
		x, y := id.NewDomainID(), id.NewDomainID()
		_, err := Build([]Node[id.DomainID]{
			{ID: x, Scope: "s1"},
			{ID: y, Parent: x, Scope: "s2"},
		})
		s.True(dErrors.HasCode(err, dErrors.CodeScopeViolation))
	})

	s.Run("dangling parent", func() {
		_, err := Build([]Node[id.DomainID]{{ID: id.NewDomainID(), Parent: id.NewDomainID()}})
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

func (s *ForestSuite) TestAttach() {
	s.Run("rejects attaching under itself", func() {
		root, _, _, _, nodes := chain()
		f, err := Build(nodes)
		s.Require().NoError(err)
		before := f.Positions()

		_, err = f.Attach(root, root)
		s.True(dErrors.HasCode(err, dErrors.CodeCycleDetected))
		s.Equal(before, f.Positions())
	})

	s.Run("rejects attaching under a transitive descendant", func() {
		root, _, b, _, nodes := chain()
		f, err := Build(nodes)
		s.Require().NoError(err)
		before := f.Positions()

		_, err = f.Attach(root, b)
		s.True(dErrors.HasCode(err, dErrors.CodeCycleDetected))
		s.Equal(before, f.Positions())
	})

	s.Run("rejects attaching across scopes", func() {
		_, a, _, other, nodes := chain()
		f, err := Build(nodes)
		s.Require().NoError(err)

		_, err = f.Attach(a, other)
		s.True(dErrors.HasCode(err, dErrors.CodeScopeViolation))
	})

	s.Run("moving a subtree recomputes levels transitively", func() {
		root, a, b, _, nodes := chain()
		f, err := Build(nodes)
		s.Require().NoError(err)

		moved, err := f.Attach(a, id.DomainID{})
		s.Require().NoError(err)

		level, err := moved.LevelOf(a)
		s.Require().NoError(err)
		s.Equal(1, level)
		level, err = moved.LevelOf(b)
		s.Require().NoError(err)
		s.Equal(2, level)

		desc, err := moved.DescendantsOf(root)
		s.Require().NoError(err)
		s.Empty(desc)

		changed := moved.Changed(f)
		s.Contains(changed, a)
		s.Contains(changed, b)
		assertInvariants(s.T(), moved)
	})
}

func (s *ForestSuite) TestAncestorsNearestFirst() {
	root, a, b, _, nodes := chain()
	f, err := Build(nodes)
	s.Require().NoError(err)

	anc, err := f.Ancestors(b)
	s.Require().NoError(err)
	s.Equal([]id.DomainID{a, root}, anc)

	_, err = f.Ancestors(id.NewDomainID())
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

func (s *ForestSuite) TestResequenceReordersSiblings() {
	root, x, y := id.NewDomainID(), id.NewDomainID(), id.NewDomainID()
	f, err := Build([]Node[id.DomainID]{
		{ID: root},
		{ID: x, Parent: root, Sequence: 1},
		{ID: y, Parent: root, Sequence: 2},
	})
	s.Require().NoError(err)
	s.Equal([]id.DomainID{x, y}, f.Children(root))

	g, err := f.Resequence(x, 3)
	s.Require().NoError(err)
	s.Equal([]id.DomainID{y, x}, g.Children(root))
	assertInvariants(s.T(), g)
}

// TestIntervalAndPathAgree drives random attach sequences and checks that the
// interval test and the path-prefix test return the same descendant sets.
func TestIntervalAndPathAgree(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for round := 0; round < 25; round++ {
		scopes := []string{"s1", "s2"}
		var nodes []Node[id.DomainID]
		for i := 0; i < 30; i++ {
			nodes = append(nodes, Node[id.DomainID]{ID: id.NewDomainID(), Scope: scopes[i%2], Sequence: rng.Intn(5)})
		}
		f, err := Build(nodes)
		require.NoError(t, err)

		for step := 0; step < 60; step++ {
			child := nodes[rng.Intn(len(nodes))].ID
			var parent id.DomainID
			if rng.Intn(4) > 0 {
				parent = nodes[rng.Intn(len(nodes))].ID
			}
			next, err := f.Attach(child, parent)
			if err != nil {
				assert.True(t,
					dErrors.HasCode(err, dErrors.CodeCycleDetected) || dErrors.HasCode(err, dErrors.CodeScopeViolation),
					"unexpected error: %v", err)
				continue
			}
			f = next
		}

		assertInvariants(t, f)
		for _, n := range nodes {
			byInterval, err := f.DescendantsOf(n.ID)
			require.NoError(t, err)
			byPath, err := f.DescendantsByPath(n.ID)
			require.NoError(t, err)
			assert.Equal(t, byInterval, byPath)
		}
	}
}

func assertInvariants(t *testing.T, f *Forest[id.DomainID]) {
	t.Helper()
	positions := f.Positions()
	for _, n := range f.Nodes() {
		p := positions[n.ID]
		assert.Less(t, p.Left, p.Right)
		if n.Parent.IsNil() {
			assert.Equal(t, 1, p.Level)
			continue
		}
		pp := positions[n.Parent]
		assert.True(t, pp.Contains(p), "child interval must sit inside parent")
		assert.Equal(t, pp.Level+1, p.Level)

		siblings := f.Children(n.Parent)
		for _, sib := range siblings {
			if sib == n.ID {
				continue
			}
			sp := positions[sib]
			overlap := p.Left < sp.Right && sp.Left < p.Right
			assert.False(t, overlap, "sibling intervals overlap")
		}
	}
}
