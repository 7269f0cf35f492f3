// Package smt implements the SMT driver abstraction (spec.md §4.4, C4): a
// uniform push/pop/add/check/model interface in front of a bundled decision
// procedure. No Go SMT binding is available in the example corpus this
// repository was grounded on (see DESIGN.md); the Driver is instead backed
// by a from-scratch linear-arithmetic solver (internal/smt/simplex.go) good
// enough for the Farkas encodings C6/C7 actually produce, plus a bounded
// instantiation fallback for the mild nonlinearity the acceleration
// calculus introduces (internal/smt/nonlinear.go).
package smt

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/aprove-developers/loat-go/internal/symb"
	"github.com/aprove-developers/loat-go/internal/vars"
)

// Result is the outcome of a Check call.
type Result int

const (
	Unknown Result = iota
	Sat
	Unsat
)

func (r Result) String() string {
	switch r {
	case Sat:
		return "sat"
	case Unsat:
		return "unsat"
	default:
		return "unknown"
	}
}

// Logic is the weakest sufficient theory for a batch of assertions
// (spec.md §4.4 "chooseLogic").
type Logic int

const (
	LinearInt Logic = iota
	LinearReal
	LinearMixed
	NonlinearMixed
)

// Model maps variables to rational witnesses, defined only after a Sat
// result (spec.md §4.4).
type Model map[vars.Var]symb.Const

// Driver is the uniform SMT interface every analysis component programs
// against (spec.md §4.4).
type Driver interface {
	Push()
	Pop()
	Add(g symb.Guard)
	Check(ctx context.Context) (Result, error)
	Model() (Model, error)
	ResetSolver()
}

// ErrInvariantViolation marks a Driver misuse that spec.md §7 classifies as
// an "invariant violation" — a bug, not a recoverable solver failure. The
// driver distinguishes it from a plain Unknown result because callers must
// treat it as fatal rather than as a query-specific failure policy.
var ErrInvariantViolation = errors.New("smt: invariant violation")

// ChooseLogic inspects the shapes of the given guards and decides the
// weakest sufficient logic: integer vs. mixed, linear vs. nonlinear
// (spec.md §4.4).
func ChooseLogic(guards ...symb.Guard) Logic {
	linear := true
	hasReal := false
	for _, g := range guards {
		for _, r := range symb.Literals(g) {
			if !symb.IsLinear(r.Lhs) || !symb.IsLinear(r.Rhs) {
				linear = false
			}
			for v := range symb.Vars(r.Lhs) {
				if v.Var.Type() == vars.Real {
					hasReal = true
				}
			}
			for v := range symb.Vars(r.Rhs) {
				if v.Var.Type() == vars.Real {
					hasReal = true
				}
			}
		}
	}
	switch {
	case !linear && hasReal:
		return NonlinearMixed
	case !linear:
		return NonlinearMixed
	case hasReal:
		return LinearMixed
	default:
		return LinearInt
	}
}

// IsImplication reports whether a implies b: check(a ∧ ¬b) = Unsat
// (spec.md §4.4). queryTimeout bounds the single underlying Check call;
// the driver never blocks longer than that (spec.md §4.4 "Cancellation").
func IsImplication(ctx context.Context, d Driver, a, b symb.Guard, queryTimeout time.Duration) (bool, error) {
	d.Push()
	defer d.Pop()

	d.Add(a)
	d.Add(negateGuard(b))

	qctx := ctx
	var cancel context.CancelFunc
	if queryTimeout > 0 {
		qctx, cancel = context.WithTimeout(ctx, queryTimeout)
		defer cancel()
	}

	res, err := d.Check(qctx)
	if err != nil {
		return false, err
	}
	return res == Unsat, nil
}

func negateGuard(g symb.Guard) symb.Guard {
	switch v := g.(type) {
	case symb.Lit:
		return symb.Lit{Rel: v.Rel.Negate()}
	default:
		dnf := symb.ToDNF(g)
		var conjuncts []symb.Guard
		for _, conj := range dnf {
			var negs []symb.Guard
			for _, r := range conj {
				negs = append(negs, symb.Lit{Rel: r.Negate()})
			}
			conjuncts = append(conjuncts, symb.MkOr(negs...))
		}
		// De Morgan over a DNF: negate each conjunct (-> a disjunction of
		// negated literals) then conjoin across conjuncts.
		result := symb.Guard(symb.True)
		for _, c := range conjuncts {
			result = symb.MkAnd(result, c)
		}
		return result
	}
}
