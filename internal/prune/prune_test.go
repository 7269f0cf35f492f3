package prune

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aprove-developers/loat-go/internal/its"
	"github.com/aprove-developers/loat-go/internal/smt"
	"github.com/aprove-developers/loat-go/internal/symb"
	"github.com/aprove-developers/loat-go/internal/vars"
)

func TestRemoveDuplicateRulesKeepsHigherCost(t *testing.T) {
	vm := vars.NewManager()
	x := vm.Fresh("x", vars.Int, false)
	from := its.LocID(0)
	to := its.LocID(1)

	a := its.Rule{
		Lhs:  its.Lhs{Loc: from, Guard: symb.FromRels(symb.NewRel(symb.NewSym(x), symb.Gt, symb.Zero)), Cost: symb.One},
		Rhss: []its.Rhs{{Loc: to, Update: symb.Subst{}}},
	}
	b := its.Rule{
		Lhs:  its.Lhs{Loc: from, Guard: symb.FromRels(symb.NewRel(symb.NewSym(x), symb.Gt, symb.Zero)), Cost: symb.NewConst(5)},
		Rhss: []its.Rhs{{Loc: to, Update: symb.Subst{}}},
	}

	g := its.NewGraph(vm)
	idA := g.AddRule(a)
	idB := g.AddRule(b)

	changed := RemoveDuplicateRules(g, []its.TransID{idA, idB}, false)
	assert.True(t, changed)

	_, okA := g.Rule(idA)
	_, okB := g.Rule(idB)
	assert.False(t, okA)
	assert.True(t, okB)
}

func TestRemoveDuplicateRulesIgnoresDifferentGuards(t *testing.T) {
	vm := vars.NewManager()
	x := vm.Fresh("x", vars.Int, false)
	from := its.LocID(0)
	to := its.LocID(1)

	a := its.Rule{
		Lhs:  its.Lhs{Loc: from, Guard: symb.FromRels(symb.NewRel(symb.NewSym(x), symb.Gt, symb.Zero)), Cost: symb.One},
		Rhss: []its.Rhs{{Loc: to, Update: symb.Subst{}}},
	}
	b := its.Rule{
		Lhs:  its.Lhs{Loc: from, Guard: symb.FromRels(symb.NewRel(symb.NewSym(x), symb.Lt, symb.Zero)), Cost: symb.One},
		Rhss: []its.Rhs{{Loc: to, Update: symb.Subst{}}},
	}

	g := its.NewGraph(vm)
	idA := g.AddRule(a)
	idB := g.AddRule(b)

	changed := RemoveDuplicateRules(g, []its.TransID{idA, idB}, false)
	assert.False(t, changed)
	_, okA := g.Rule(idA)
	_, okB := g.Rule(idB)
	assert.True(t, okA)
	assert.True(t, okB)
}

func TestParallelRuleSelectionKeepsMaxParallel(t *testing.T) {
	vm := vars.NewManager()
	x := vm.Fresh("x", vars.Int, false)
	g := its.NewGraph(vm)
	from := g.Initial()
	to := g.AddLocation("to")

	for i := 0; i < 3; i++ {
		g.AddRule(its.Rule{
			Lhs: its.Lhs{
				Loc:   from,
				Guard: symb.FromRels(symb.NewRel(symb.NewSym(x), symb.Gt, symb.NewConst(int64(i)))),
				Cost:  symb.NewConst(int64(i + 1)),
			},
			Rhss: []its.Rhs{{Loc: to, Update: symb.Subst{}}},
		})
	}

	changed := ParallelRuleSelection(context.Background(), smt.NewLinearSolver(), vm, g, 2, time.Second)
	assert.True(t, changed)
	assert.Len(t, g.TransitionsBetween(from, to), 2)
}

func TestParallelRuleSelectionReinsertsDummy(t *testing.T) {
	vm := vars.NewManager()
	x := vm.Fresh("x", vars.Int, false)
	g := its.NewGraph(vm)
	from := g.Initial()
	to := g.AddLocation("to")

	g.AddRule(its.Rule{
		Lhs:  its.Lhs{Loc: from, Guard: symb.True, Cost: symb.Zero},
		Rhss: []its.Rhs{{Loc: to, Update: symb.Subst{}}},
	})
	for i := 0; i < 2; i++ {
		g.AddRule(its.Rule{
			Lhs: its.Lhs{
				Loc:   from,
				Guard: symb.FromRels(symb.NewRel(symb.NewSym(x), symb.Gt, symb.NewConst(int64(i)))),
				Cost:  symb.NewConst(int64(i + 1)),
			},
			Rhss: []its.Rhs{{Loc: to, Update: symb.Subst{}}},
		})
	}

	changed := ParallelRuleSelection(context.Background(), smt.NewLinearSolver(), vm, g, 1, time.Second)
	assert.True(t, changed)

	foundDummy := false
	for _, id := range g.TransitionsBetween(from, to) {
		r, _ := g.Rule(id)
		if r.IsDummy() {
			foundDummy = true
		}
	}
	assert.True(t, foundDummy)
}

func TestRemoveLeafsAndUnreachableDropsConstLeafAndIsolatedLocation(t *testing.T) {
	vm := vars.NewManager()
	g := its.NewGraph(vm)
	init := g.Initial()
	leaf := g.AddLocation("leaf")
	unreachable := g.AddLocation("unreachable")

	g.AddRule(its.Rule{
		Lhs:  its.Lhs{Loc: init, Guard: symb.True, Cost: symb.One},
		Rhss: []its.Rhs{{Loc: leaf, Update: symb.Subst{}}},
	})

	changed := RemoveLeafsAndUnreachable(g)
	require.True(t, changed)
	assert.False(t, g.HasLocation(unreachable))
	assert.False(t, g.HasLocation(leaf))
	assert.Empty(t, g.TransitionsFrom(init))
}

func TestRemoveLeafsAndUnreachableKeepsNonConstLeafRule(t *testing.T) {
	vm := vars.NewManager()
	x := vm.Fresh("x", vars.Int, false)
	g := its.NewGraph(vm)
	init := g.Initial()
	leaf := g.AddLocation("leaf")

	g.AddRule(its.Rule{
		Lhs:  its.Lhs{Loc: init, Guard: symb.True, Cost: symb.NewSym(x)},
		Rhss: []its.Rhs{{Loc: leaf, Update: symb.Subst{}}},
	})

	changed := RemoveLeafsAndUnreachable(g)
	assert.False(t, changed)
	assert.True(t, g.HasLocation(leaf))
}
