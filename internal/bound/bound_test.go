package bound

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/aprove-developers/loat-go/internal/complexity"
	"github.com/aprove-developers/loat-go/internal/smt"
	"github.com/aprove-developers/loat-go/internal/symb"
	"github.com/aprove-developers/loat-go/internal/vars"
)

func TestAnalyzeRuleLinearCost(t *testing.T) {
	vm := vars.NewManager()
	x := vm.Fresh("x", vars.Int, false)

	guard := []symb.Rel{symb.NewRel(symb.NewSym(x), symb.Gt, symb.Zero)}
	class, proof := AnalyzeRule(context.Background(), smt.NewLinearSolver(), vm, guard, symb.NewSym(x), time.Second)
	assert.Equal(t, complexity.Poly(1), class)
	assert.NotEmpty(t, proof)
}

func TestAnalyzeRuleConstantCost(t *testing.T) {
	vm := vars.NewManager()
	x := vm.Fresh("x", vars.Int, false)

	guard := []symb.Rel{symb.NewRel(symb.NewSym(x), symb.Gt, symb.Zero)}
	class, _ := AnalyzeRule(context.Background(), smt.NewLinearSolver(), vm, guard, symb.NewConst(1), time.Second)
	assert.Equal(t, complexity.Const, class)
}

func TestAnalyzeRuleNontermCostWithSatisfiableGuard(t *testing.T) {
	vm := vars.NewManager()
	x := vm.Fresh("x", vars.Int, false)

	guard := []symb.Rel{symb.NewRel(symb.NewSym(x), symb.Gt, symb.Zero)}
	class, _ := AnalyzeRule(context.Background(), smt.NewLinearSolver(), vm, guard, symb.Nonterm, time.Second)
	assert.Equal(t, complexity.NonTerm, class)
}

func TestAnalyzeRuleNontermCostWithUnsatisfiableGuard(t *testing.T) {
	vm := vars.NewManager()
	x := vm.Fresh("x", vars.Int, false)

	guard := []symb.Rel{
		symb.NewRel(symb.NewSym(x), symb.Gt, symb.NewConst(10)),
		symb.NewRel(symb.NewSym(x), symb.Lt, symb.NewConst(5)),
	}
	class, _ := AnalyzeRule(context.Background(), smt.NewLinearSolver(), vm, guard, symb.Nonterm, time.Second)
	assert.Equal(t, complexity.Const, class)
}

func TestAnalyzeRuleExponentialCost(t *testing.T) {
	vm := vars.NewManager()
	x := vm.Fresh("x", vars.Int, false)

	guard := []symb.Rel{symb.NewRel(symb.NewSym(x), symb.Gt, symb.Zero)}
	cost := symb.RaisePow(symb.NewConst(2), symb.NewSym(x))
	class, _ := AnalyzeRule(context.Background(), smt.NewLinearSolver(), vm, guard, cost, time.Second)
	assert.Equal(t, complexity.Exp, class)
}

func TestAnalyzeRuleExponentialCostWithRemainder(t *testing.T) {
	vm := vars.NewManager()
	x := vm.Fresh("x", vars.Int, false)

	guard := []symb.Rel{symb.NewRel(symb.NewSym(x), symb.Gt, symb.Zero)}
	cost := symb.Plus(symb.RaisePow(symb.NewConst(2), symb.NewSym(x)), symb.NewConst(3))
	class, _ := AnalyzeRule(context.Background(), smt.NewLinearSolver(), vm, guard, cost, time.Second)
	assert.Equal(t, complexity.Exp, class)
}

func TestAnalyzeRuleUnboundedWhenOnlyTempVarGrows(t *testing.T) {
	vm := vars.NewManager()
	temp := vm.Fresh("t", vars.Int, true)

	guard := []symb.Rel{symb.NewRel(symb.NewSym(temp), symb.Gt, symb.Zero)}
	class, _ := AnalyzeRule(context.Background(), smt.NewLinearSolver(), vm, guard, symb.NewConst(1), time.Second)
	assert.Equal(t, complexity.Unbounded, class)
}

func TestAnalyzeRuleUnknownOnDisequality(t *testing.T) {
	vm := vars.NewManager()
	x := vm.Fresh("x", vars.Int, false)

	guard := []symb.Rel{symb.NewRel(symb.NewSym(x), symb.Ne, symb.Zero)}
	class, proof := AnalyzeRule(context.Background(), smt.NewLinearSolver(), vm, guard, symb.NewConst(1), time.Second)
	assert.Equal(t, complexity.Unknown, class)
	assert.NotEmpty(t, proof)
}

func TestBuildProblemSplitsEquality(t *testing.T) {
	vm := vars.NewManager()
	x := vm.Fresh("x", vars.Int, false)

	guard := []symb.Rel{symb.NewRel(symb.NewSym(x), symb.Eq, symb.NewConst(5))}
	problem, ok := BuildProblem(guard, symb.NewConst(1))
	if assert.True(t, ok) {
		assert.Len(t, problem.Pairs, 3) // two from the split equality, one for cost
	}
}
