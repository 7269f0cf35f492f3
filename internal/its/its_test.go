package its

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aprove-developers/loat-go/internal/symb"
	"github.com/aprove-developers/loat-go/internal/vars"
)

func newTestGraph(t *testing.T) (*Graph, vars.Var) {
	t.Helper()
	vm := vars.NewManager()
	g := NewGraph(vm)
	x := vm.Fresh("x", vars.Int, false)
	return g, x
}

func TestAddRuleUpdatesIndexes(t *testing.T) {
	g, x := newTestGraph(t)
	loc := g.AddLocation("l")

	r := Rule{
		Lhs:  Lhs{Loc: g.Initial(), Guard: symb.True, Cost: symb.One},
		Rhss: []Rhs{{Loc: loc, Update: symb.Subst{x: symb.NewSym(x)}}},
	}
	id := g.AddRule(r)

	from := g.TransitionsFrom(g.Initial())
	require.Contains(t, from, id)

	between := g.TransitionsBetween(g.Initial(), loc)
	require.Contains(t, between, id)
}

func TestRemoveRuleClearsIndexes(t *testing.T) {
	g, _ := newTestGraph(t)
	loc := g.AddLocation("l")
	r := Rule{Lhs: Lhs{Loc: g.Initial(), Guard: symb.True, Cost: symb.Zero}, Rhss: []Rhs{{Loc: loc, Update: symb.Subst{}}}}
	id := g.AddRule(r)

	g.RemoveRule(id)
	assert.Empty(t, g.TransitionsFrom(g.Initial()))
	assert.Empty(t, g.TransitionsBetween(g.Initial(), loc))
	_, ok := g.Rule(id)
	assert.False(t, ok)
}

func TestGetSimpleLoopsAt(t *testing.T) {
	g, x := newTestGraph(t)
	loop := Rule{
		Lhs:  Lhs{Loc: g.Initial(), Guard: symb.True, Cost: symb.One},
		Rhss: []Rhs{{Loc: g.Initial(), Update: symb.Subst{x: symb.Minus(symb.NewSym(x), symb.One)}}},
	}
	loopID := g.AddRule(loop)

	other := g.AddLocation("exit")
	nonLoop := Rule{Lhs: Lhs{Loc: g.Initial(), Guard: symb.True, Cost: symb.Zero}, Rhss: []Rhs{{Loc: other, Update: symb.Subst{}}}}
	g.AddRule(nonLoop)

	loops := g.GetSimpleLoopsAt(g.Initial())
	assert.Equal(t, []TransID{loopID}, loops)
}

func TestRemoveOnlyLocationRefusesWhenReferenced(t *testing.T) {
	g, _ := newTestGraph(t)
	loc := g.AddLocation("l")
	r := Rule{Lhs: Lhs{Loc: g.Initial(), Guard: symb.True, Cost: symb.Zero}, Rhss: []Rhs{{Loc: loc, Update: symb.Subst{}}}}
	id := g.AddRule(r)

	assert.False(t, g.RemoveOnlyLocation(loc))
	g.RemoveRule(id)
	assert.True(t, g.RemoveOnlyLocation(loc))
	assert.False(t, g.HasLocation(loc))
}

func TestStripRhsLocationReturnsFalseWhenAllTargetLoc(t *testing.T) {
	g, _ := newTestGraph(t)
	loc := g.Initial()
	r := Rule{Lhs: Lhs{Loc: loc, Guard: symb.True, Cost: symb.Zero}, Rhss: []Rhs{{Loc: loc, Update: symb.Subst{}}}}

	_, ok := StripRhsLocation(r, loc)
	assert.False(t, ok)
}

func TestStripRhsLocationKeepsOtherRhss(t *testing.T) {
	g, _ := newTestGraph(t)
	loc := g.Initial()
	other := g.AddLocation("other")
	r := Rule{
		Lhs: Lhs{Loc: loc, Guard: symb.True, Cost: symb.Zero},
		Rhss: []Rhs{
			{Loc: loc, Update: symb.Subst{}},
			{Loc: other, Update: symb.Subst{}},
		},
	}
	stripped, ok := StripRhsLocation(r, loc)
	require.True(t, ok)
	assert.Len(t, stripped.Rhss, 1)
	assert.Equal(t, other, stripped.Rhss[0].Loc)
}

func TestIsSimpleLoopAndIsDummy(t *testing.T) {
	g, _ := newTestGraph(t)
	dummy := DummyRule(g.Initial())
	assert.True(t, dummy.IsSimpleLoop())
	assert.True(t, dummy.IsDummy())
	assert.True(t, dummy.IsLinear())
}

func TestBuilderReplacesFieldsImmutably(t *testing.T) {
	g, x := newTestGraph(t)
	orig := DummyRule(g.Initial())
	updated := NewBuilder(orig).WithCost(symb.One).WithGuard(symb.FromRels(symb.NewRel(symb.NewSym(x), symb.Gt, symb.Zero))).Build()

	assert.True(t, symb.Equal(orig.Lhs.Cost, symb.Zero), "original rule must be unchanged")
	assert.True(t, symb.Equal(updated.Lhs.Cost, symb.One))
	assert.False(t, symb.IsTrue(updated.Lhs.Guard))
}

func TestEnsureFreshInitialLocationHasNoIncoming(t *testing.T) {
	g, _ := newTestGraph(t)
	oldInitial := g.Initial()
	g.EnsureFreshInitialLocation()
	newInitial := g.Initial()

	assert.NotEqual(t, oldInitial, newInitial)
	assert.Empty(t, g.TransitionsBetween(oldInitial, newInitial))
	assert.NotEmpty(t, g.TransitionsBetween(newInitial, oldInitial))
}
