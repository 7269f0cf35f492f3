package smt

import (
	"context"
	"math/big"

	"github.com/aprove-developers/loat-go/internal/symb"
	"github.com/aprove-developers/loat-go/internal/vars"
)

// LinearSolver is the bundled Driver implementation: a push/pop stack of
// asserted guards, checked by Fourier-Motzkin elimination over the linear
// fragment with a bounded-instantiation fallback for the mildly nonlinear
// guards the acceleration calculus produces (spec.md §4.4).
type LinearSolver struct {
	stack [][]symb.Guard
	model Model
}

var _ Driver = (*LinearSolver)(nil)

// NewLinearSolver creates an empty solver with one (root) assertion frame.
func NewLinearSolver() *LinearSolver {
	return &LinearSolver{stack: [][]symb.Guard{nil}}
}

func (s *LinearSolver) Push() {
	s.stack = append(s.stack, nil)
}

func (s *LinearSolver) Pop() {
	if len(s.stack) > 1 {
		s.stack = s.stack[:len(s.stack)-1]
	} else {
		s.stack[0] = nil
	}
}

func (s *LinearSolver) Add(g symb.Guard) {
	top := len(s.stack) - 1
	s.stack[top] = append(s.stack[top], g)
}

func (s *LinearSolver) ResetSolver() {
	s.stack = [][]symb.Guard{nil}
	s.model = nil
}

// Check decides satisfiability of the conjunction of every asserted guard
// across all frames (spec.md §4.4 check).
func (s *LinearSolver) Check(ctx context.Context) (Result, error) {
	var all []symb.Guard
	for _, frame := range s.stack {
		all = append(all, frame...)
	}
	combined := symb.MkAnd(all...)
	if symb.IsFalse(combined) {
		s.model = nil
		return Unsat, nil
	}
	if symb.IsTrue(combined) {
		s.model = Model{}
		return Sat, nil
	}

	dnf := symb.ToDNF(combined)
	sawUnknown := false
	for _, conj := range dnf {
		if err := ctx.Err(); err != nil {
			return Unknown, err
		}

		cs, ok := conjunctConstraints(conj)
		if ok {
			feasible, witness := feasibility(cs)
			if feasible {
				s.model = ratModelToConst(witness)
				return Sat, nil
			}
			continue
		}

		res, model := boundedInstantiation(conj)
		switch res {
		case Sat:
			s.model = model
			return Sat, nil
		case Unknown:
			sawUnknown = true
		}
	}

	if sawUnknown {
		return Unknown, nil
	}
	return Unsat, nil
}

func ratModelToConst(m map[vars.Var]*big.Rat) Model {
	out := make(Model, len(m))
	for v, r := range m {
		out[v] = symb.NewConstRat(r)
	}
	return out
}

// Model returns the witness found by the most recent Sat Check call
// (spec.md §4.4 "model() defined only after Sat").
func (s *LinearSolver) Model() (Model, error) {
	if s.model == nil {
		return nil, ErrInvariantViolation
	}
	return s.model, nil
}
