package chain

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

func TestChainRulesComposesGuardCostAndUpdate(t *testing.T) {
	vm := vars.NewManager()
	x := vm.Fresh("x", vars.Int, false)
	a := its.LocID(0)
	b := its.LocID(1)
	c := its.LocID(2)

	first := its.Rule{
		Lhs:  its.Lhs{Loc: a, Guard: symb.FromRels(symb.NewRel(symb.NewSym(x), symb.Gt, symb.Zero)), Cost: symb.One},
		Rhss: []its.Rhs{{Loc: b, Update: symb.Subst{x: symb.Minus(symb.NewSym(x), symb.One)}}},
	}
	second := its.Rule{
		Lhs:  its.Lhs{Loc: b, Guard: symb.FromRels(symb.NewRel(symb.NewSym(x), symb.Ge, symb.Zero)), Cost: symb.NewConst(2)},
		Rhss: []its.Rhs{{Loc: c, Update: symb.Subst{x: symb.NewSym(x)}}},
	}

	chained, ok := ChainRules(context.Background(), smt.NewLinearSolver(), first, second, b, time.Second)
	require.True(t, ok)
	assert.Equal(t, a, chained.Lhs.Loc)
	require.Len(t, chained.Rhss, 1)
	assert.Equal(t, c, chained.Rhss[0].Loc)
	// cost: 1 + 2 = 3 (second's cost is constant, unaffected by the subs)
	assert.True(t, symb.Equal(chained.Lhs.Cost, symb.NewConst(3)))
	// update: x := (x-1) substituted through second's x:=x, i.e. still x-1
	want := symb.Minus(symb.NewSym(x), symb.One)
	assert.True(t, symb.Equal(chained.Rhss[0].Update[x], want))
}

func TestChainRulesRejectsUnsatisfiableComposition(t *testing.T) {
	vm := vars.NewManager()
	x := vm.Fresh("x", vars.Int, false)
	a := its.LocID(0)
	b := its.LocID(1)
	c := its.LocID(2)

	first := its.Rule{
		Lhs:  its.Lhs{Loc: a, Guard: symb.FromRels(symb.NewRel(symb.NewSym(x), symb.Gt, symb.NewConst(10))), Cost: symb.One},
		Rhss: []its.Rhs{{Loc: b, Update: symb.Subst{x: symb.NewSym(x)}}},
	}
	second := its.Rule{
		Lhs:  its.Lhs{Loc: b, Guard: symb.FromRels(symb.NewRel(symb.NewSym(x), symb.Lt, symb.NewConst(5))), Cost: symb.One},
		Rhss: []its.Rhs{{Loc: c, Update: symb.Subst{}}},
	}

	_, ok := ChainRules(context.Background(), smt.NewLinearSolver(), first, second, b, time.Second)
	assert.False(t, ok)
}

func TestChainRulesNontermPropagates(t *testing.T) {
	vm := vars.NewManager()
	x := vm.Fresh("x", vars.Int, false)
	a := its.LocID(0)
	b := its.LocID(1)
	c := its.LocID(2)

	first := its.Rule{
		Lhs:  its.Lhs{Loc: a, Guard: symb.True, Cost: symb.Nonterm},
		Rhss: []its.Rhs{{Loc: b, Update: symb.Subst{}}},
	}
	second := its.Rule{
		Lhs:  its.Lhs{Loc: b, Guard: symb.True, Cost: symb.One},
		Rhss: []its.Rhs{{Loc: c, Update: symb.Subst{}}},
	}
	_ = x

	chained, ok := ChainRules(context.Background(), smt.NewLinearSolver(), first, second, b, time.Second)
	require.True(t, ok)
	assert.True(t, symb.IsNonterm(chained.Lhs.Cost))
}

func TestLinearPathPassEliminatesIntermediateLocation(t *testing.T) {
	vm := vars.NewManager()
	x := vm.Fresh("x", vars.Int, false)
	g := its.NewGraph(vm)
	mid := g.AddLocation("mid")
	end := g.AddLocation("end")

	g.AddRule(its.Rule{
		Lhs:  its.Lhs{Loc: g.Initial(), Guard: symb.True, Cost: symb.One},
		Rhss: []its.Rhs{{Loc: mid, Update: symb.Subst{x: symb.NewSym(x)}}},
	})
	g.AddRule(its.Rule{
		Lhs:  its.Lhs{Loc: mid, Guard: symb.True, Cost: symb.One},
		Rhss: []its.Rhs{{Loc: end, Update: symb.Subst{}}},
	})

	pass := &LinearPathPass{Solver: smt.NewLinearSolver(), Timeout: time.Second}
	changed := pass.Apply(g)
	assert.True(t, changed)
	assert.False(t, g.HasLocation(mid))
	assert.Len(t, g.TransitionsFrom(g.Initial()), 1)
}

func TestEliminateLocationRemovesFirstEligibleNonInitialLocation(t *testing.T) {
	vm := vars.NewManager()
	g := its.NewGraph(vm)
	mid := g.AddLocation("mid")
	end := g.AddLocation("end")

	g.AddRule(its.Rule{
		Lhs:  its.Lhs{Loc: g.Initial(), Guard: symb.True, Cost: symb.Zero},
		Rhss: []its.Rhs{{Loc: mid, Update: symb.Subst{}}},
	})
	g.AddRule(its.Rule{
		Lhs:  its.Lhs{Loc: mid, Guard: symb.True, Cost: symb.Zero},
		Rhss: []its.Rhs{{Loc: end, Update: symb.Subst{}}},
	})

	ok := EliminateLocation(context.Background(), smt.NewLinearSolver(), g, time.Second)
	assert.True(t, ok)
	assert.False(t, g.HasLocation(mid))
}
