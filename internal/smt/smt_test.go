package smt

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aprove-developers/loat-go/internal/symb"
	"github.com/aprove-developers/loat-go/internal/vars"
)

func TestSatisfiableConjunction(t *testing.T) {
	vm := vars.NewManager()
	x := vm.Fresh("x", vars.Int, false)

	s := NewLinearSolver()
	s.Add(symb.FromRels(symb.NewRel(symb.NewSym(x), symb.Gt, symb.Zero)))
	s.Add(symb.FromRels(symb.NewRel(symb.NewSym(x), symb.Lt, symb.NewConst(10))))

	res, err := s.Check(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Sat, res)

	model, err := s.Model()
	require.NoError(t, err)
	xv, ok := model[x]
	require.True(t, ok)
	assert.True(t, xv.Val.Sign() > 0)
}

func TestUnsatisfiableConjunction(t *testing.T) {
	vm := vars.NewManager()
	x := vm.Fresh("x", vars.Int, false)

	s := NewLinearSolver()
	s.Add(symb.FromRels(symb.NewRel(symb.NewSym(x), symb.Gt, symb.NewConst(10))))
	s.Add(symb.FromRels(symb.NewRel(symb.NewSym(x), symb.Lt, symb.NewConst(5))))

	res, err := s.Check(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Unsat, res)
}

func TestPushPopRestoresPriorFrame(t *testing.T) {
	vm := vars.NewManager()
	x := vm.Fresh("x", vars.Int, false)

	s := NewLinearSolver()
	s.Add(symb.FromRels(symb.NewRel(symb.NewSym(x), symb.Gt, symb.Zero)))

	s.Push()
	s.Add(symb.FromRels(symb.NewRel(symb.NewSym(x), symb.Lt, symb.Zero)))
	res, err := s.Check(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Unsat, res)

	s.Pop()
	res, err = s.Check(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Sat, res)
}

func TestIsImplicationHoldsForTautology(t *testing.T) {
	vm := vars.NewManager()
	x := vm.Fresh("x", vars.Int, false)

	a := symb.FromRels(symb.NewRel(symb.NewSym(x), symb.Gt, symb.NewConst(5)))
	b := symb.FromRels(symb.NewRel(symb.NewSym(x), symb.Gt, symb.Zero))

	holds, err := IsImplication(context.Background(), NewLinearSolver(), a, b, time.Second)
	require.NoError(t, err)
	assert.True(t, holds)
}

func TestIsImplicationFailsWhenNotEntailed(t *testing.T) {
	vm := vars.NewManager()
	x := vm.Fresh("x", vars.Int, false)

	a := symb.FromRels(symb.NewRel(symb.NewSym(x), symb.Gt, symb.Zero))
	b := symb.FromRels(symb.NewRel(symb.NewSym(x), symb.Gt, symb.NewConst(5)))

	holds, err := IsImplication(context.Background(), NewLinearSolver(), a, b, time.Second)
	require.NoError(t, err)
	assert.False(t, holds)
}

func TestChooseLogicPicksLinearIntByDefault(t *testing.T) {
	vm := vars.NewManager()
	x := vm.Fresh("x", vars.Int, false)
	g := symb.FromRels(symb.NewRel(symb.NewSym(x), symb.Gt, symb.Zero))
	assert.Equal(t, LinearInt, ChooseLogic(g))
}

func TestChooseLogicDetectsNonlinear(t *testing.T) {
	vm := vars.NewManager()
	x := vm.Fresh("x", vars.Int, false)
	nonlinear := symb.FromRels(symb.NewRel(symb.Times(symb.NewSym(x), symb.NewSym(x)), symb.Gt, symb.Zero))
	assert.Equal(t, NonlinearMixed, ChooseLogic(nonlinear))
}
