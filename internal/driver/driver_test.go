package driver

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/aprove-developers/loat-go/internal/complexity"
	"github.com/aprove-developers/loat-go/internal/config"
	"github.com/aprove-developers/loat-go/internal/its"
	"github.com/aprove-developers/loat-go/internal/smt"
	"github.com/aprove-developers/loat-go/internal/symb"
	"github.com/aprove-developers/loat-go/internal/vars"
)

func newCfg() *config.Config {
	c := config.Default()
	c.Timeout = 5 * time.Second
	c.QueryTimeout = time.Second
	return c
}

func TestRunConstantCostLoopYieldsLinearBound(t *testing.T) {
	vm := vars.NewManager()
	x := vm.Fresh("x", vars.Int, false)
	g := its.NewGraph(vm)
	loc := g.Initial()

	g.AddRule(its.Rule{
		Lhs: its.Lhs{Loc: loc, Guard: symb.FromRels(symb.NewRel(symb.NewSym(x), symb.Gt, symb.Zero)), Cost: symb.One},
		Rhss: []its.Rhs{{
			Loc:    loc,
			Update: symb.Subst{x: symb.Minus(symb.NewSym(x), symb.One)},
		}},
	})

	result := Run(context.Background(), g, newCfg(), smt.NewLinearSolver(), smt.NewLinearSolver())

	assert.NotEmpty(t, result.RunID)
	assert.False(t, result.Class.IsUnknown())
	assert.NotEmpty(t, result.Proof.Lines())
}

func TestRunEmptyInitialLocationYieldsUnknown(t *testing.T) {
	vm := vars.NewManager()
	g := its.NewGraph(vm)

	result := Run(context.Background(), g, newCfg(), smt.NewLinearSolver(), smt.NewLinearSolver())
	assert.Equal(t, complexity.Unknown, result.Class)
}

func TestOnlyInitialRulesRemain(t *testing.T) {
	vm := vars.NewManager()
	g := its.NewGraph(vm)
	loc := g.Initial()
	other := g.AddLocation("l1")

	assert.True(t, onlyInitialRulesRemain(g))

	g.AddRule(its.Rule{
		Lhs:  its.Lhs{Loc: loc, Guard: symb.True, Cost: symb.Zero},
		Rhss: []its.Rhs{{Loc: other, Update: symb.Subst{}}},
	})
	assert.True(t, onlyInitialRulesRemain(g))

	g.AddRule(its.Rule{
		Lhs:  its.Lhs{Loc: other, Guard: symb.True, Cost: symb.Zero},
		Rhss: []its.Rhs{{Loc: loc, Update: symb.Subst{}}},
	})
	assert.False(t, onlyInitialRulesRemain(g))
}

func TestOrderForFinalizationPutsNontermFirst(t *testing.T) {
	vm := vars.NewManager()
	g := its.NewGraph(vm)
	loc := g.Initial()

	constID := g.AddRule(its.Rule{
		Lhs:  its.Lhs{Loc: loc, Guard: symb.True, Cost: symb.One},
		Rhss: []its.Rhs{{Loc: loc, Update: symb.Subst{}}},
	})
	nontermID := g.AddRule(its.Rule{
		Lhs:  its.Lhs{Loc: loc, Guard: symb.True, Cost: symb.Nonterm},
		Rhss: []its.Rhs{{Loc: loc, Update: symb.Subst{}}},
	})

	ordered := orderForFinalization(g, vm, []its.TransID{constID, nontermID})
	assert.Equal(t, nontermID, ordered[0])
}

func TestMustInvariantHoldsForAWellFormedGraph(t *testing.T) {
	vm := vars.NewManager()
	g := its.NewGraph(vm)
	loc := g.Initial()

	assert.NoError(t, MustInvariant(g))

	other := g.AddLocation("l1")
	g.AddRule(its.Rule{
		Lhs:  its.Lhs{Loc: loc, Guard: symb.True, Cost: symb.Zero},
		Rhss: []its.Rhs{{Loc: other, Update: symb.Subst{}}},
	})
	assert.NoError(t, MustInvariant(g))
}
