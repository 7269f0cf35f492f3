package meter

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aprove-developers/loat-go/internal/smt"
	"github.com/aprove-developers/loat-go/internal/symb"
	"github.com/aprove-developers/loat-go/internal/vars"
)

func TestGenerateFindsSingleVariableMetering(t *testing.T) {
	vm := vars.NewManager()
	x := vm.Fresh("x", vars.Int, false)

	guard := []symb.Rel{symb.NewRel(symb.NewSym(x), symb.Gt, symb.Zero)}
	update := symb.Subst{x: symb.Minus(symb.NewSym(x), symb.One)}

	res := Generate(context.Background(), smt.NewLinearSolver(), guard, update, []vars.Var{x}, time.Second)
	require.Equal(t, Success, res.Kind)
	assert.True(t, symb.Equal(res.Metering, symb.NewSym(x)))
}

func TestGenerateReportsNonlinearGuard(t *testing.T) {
	vm := vars.NewManager()
	x := vm.Fresh("x", vars.Int, false)

	guard := []symb.Rel{symb.NewRel(symb.Times(symb.NewSym(x), symb.NewSym(x)), symb.Gt, symb.Zero)}
	res := Generate(context.Background(), smt.NewLinearSolver(), guard, symb.Subst{}, []vars.Var{x}, time.Second)
	assert.Equal(t, Nonlinear, res.Kind)
}

func TestGenerateUnsatWhenGuardNeverHolds(t *testing.T) {
	vm := vars.NewManager()
	x := vm.Fresh("x", vars.Int, false)

	guard := []symb.Rel{
		symb.NewRel(symb.NewSym(x), symb.Gt, symb.NewConst(10)),
		symb.NewRel(symb.NewSym(x), symb.Lt, symb.NewConst(5)),
	}
	res := Generate(context.Background(), smt.NewLinearSolver(), guard, symb.Subst{x: symb.NewSym(x)}, []vars.Var{x}, time.Second)
	assert.Equal(t, Unsat, res.Kind)
}

func TestGenerateConflictVariableScenario(t *testing.T) {
	vm := vars.NewManager()
	x := vm.Fresh("x", vars.Int, false)
	y := vm.Fresh("y", vars.Int, false)

	guard := []symb.Rel{symb.NewRel(symb.NewSym(x), symb.Gt, symb.NewSym(y))}
	update := symb.Subst{
		x: symb.Minus(symb.NewSym(x), symb.One),
		y: symb.Plus(symb.NewSym(y), symb.One),
	}

	res := Generate(context.Background(), smt.NewLinearSolver(), guard, update, []vars.Var{x, y}, time.Second)
	require.Equal(t, Success, res.Kind)
	assert.True(t, symb.Equal(res.Metering, symb.Minus(symb.NewSym(x), symb.NewSym(y))))
}
