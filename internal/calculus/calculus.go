// Package calculus implements the acceleration calculus (spec.md §4.7, C7):
// discharge every literal of a loop's guard by recurrence, monotonic
// decrease, eventual weak decrease/increase, or fixpoint, to turn a
// self-loop into a single accelerated rule (and, as a byproduct, sometimes
// a non-termination witness).
//
// Grounded directly on the original's AccelerationProblem state machine
// (accelerationproblem_naive.cpp): two SMT contexts per problem, a
// persistent one accumulating the growing "done" conclusion across
// literals and a scratch one used for each rule's own two-step Sat/Unsat
// check, discharge order recurrence -> monotonicity -> eventual-decrease ->
// eventual-increase -> fixpoint, repeated to a fixed point, then a second
// pass restricted to recurrence/eventual-increase/fixpoint when the first
// pass didn't already witness non-termination and the cost is provably
// positive.
package calculus

import (
	"context"
	"fmt"

	"github.com/aprove-developers/loat-go/internal/closure"
	"github.com/aprove-developers/loat-go/internal/its"
	"github.com/aprove-developers/loat-go/internal/smt"
	"github.com/aprove-developers/loat-go/internal/symb"
	"github.com/aprove-developers/loat-go/internal/vars"
)

// Outcome is one accepted discharge of a loop's guard (spec.md §4.7
// "Accept iff todo = empty"). A Problem can yield up to two outcomes. The
// first is the accelerated one; it is itself marked as a non-termination
// witness when every literal discharged without using monotonicity/
// eventual-decrease and the cost is provably positive. When it is not so
// marked, a closed form exists and the cost is provably positive, a second
// pass restricted to the non-termination rules runs, and its success adds
// a second outcome that witnesses non-termination.
type Outcome struct {
	NewGuard         symb.Guard
	WitnessesNonterm bool
}

// Problem is one loop's acceleration attempt.
type Problem struct {
	guardLits     []symb.Rel
	todo          []symb.Rel
	conclusion    symb.Guard
	up            symb.Subst
	closed        symb.Subst
	hasClosed     bool
	cost          symb.Expr
	iteratedCost  symb.Expr
	n             vars.Var
	validityBound int

	solver  smt.Driver // persists across literals; accumulates conclusion
	scratch smt.Driver // reused per-literal for the two-step discharge check

	nonterm bool
	proof   []string
}

// NewProblem builds an acceleration problem directly. Most callers should
// use Init or InitForRecurrentSet instead.
func NewProblem(guardLits []symb.Rel, up symb.Subst, closed symb.Subst, hasClosed bool, cost, iteratedCost symb.Expr, n vars.Var, validityBound int, solver, scratch smt.Driver) *Problem {
	return &Problem{
		guardLits:     guardLits,
		todo:          append([]symb.Rel{}, guardLits...),
		conclusion:    symb.True,
		up:            up,
		closed:        closed,
		hasClosed:     hasClosed,
		cost:          cost,
		iteratedCost:  iteratedCost,
		n:             n,
		validityBound: validityBound,
		solver:        solver,
		scratch:       scratch,
		nonterm:       true,
	}
}

// Init builds an acceleration problem for r, closing its recurrence first
// (spec.md §4.5/§4.7 interplay: C7 uses C5's closed form when available,
// and otherwise still tries to discharge literals without one). ok is
// false when r is not a simple self-loop.
func Init(vm *vars.Manager, r its.Rule, solver, scratch smt.Driver) (*Problem, bool) {
	if !r.IsSimpleLoop() {
		return nil, false
	}
	up := r.Rhss[0].Update
	guardLits := symb.Literals(r.Lhs.Guard)

	res := closure.Close(vm, r)
	if res.Success {
		return NewProblem(guardLits, up, res.ClosedUpdate, true, r.Lhs.Cost, res.ClosedCost, res.N, res.ValidityBound, solver, scratch), true
	}
	n := vm.FreshUntracked("n")
	return NewProblem(guardLits, up, nil, false, r.Lhs.Cost, r.Lhs.Cost, n, 0, solver, scratch), true
}

// InitForRecurrentSet builds a problem with no closed form, used by the
// recurrent-set non-termination search (SPEC_FULL.md §3) which only needs
// the recurrence/eventual-increase/fixpoint rules, none of which require a
// closed form.
func InitForRecurrentSet(vm *vars.Manager, r its.Rule, solver, scratch smt.Driver) (*Problem, bool) {
	if !r.IsSimpleLoop() {
		return nil, false
	}
	n := vm.FreshUntracked("n")
	guardLits := symb.Literals(r.Lhs.Guard)
	return NewProblem(guardLits, r.Rhss[0].Update, nil, false, r.Lhs.Cost, r.Lhs.Cost, n, 0, solver, scratch), true
}

// Run executes the discharge fix-point (spec.md §4.7 "State machine per
// loop") and returns every accepted outcome.
func (p *Problem) Run(ctx context.Context) []Outcome {
	p.proof = append(p.proof, fmt.Sprintf("accelerating %s wrt. %s", symb.FromRels(p.guardLits...), formatUpdate(p.up)))
	p.solver.Add(symb.Lit{Rel: symb.NewRel(symb.NewSym(p.n), symb.Ge, symb.NewConst(int64(p.validityBound)))})
	p.solver.Push()

	p.runPass(ctx, fullRules)

	var outcomes []Outcome
	if len(p.todo) != 0 {
		return outcomes
	}

	positiveCost := p.isCostPositive(ctx)
	if p.nonterm {
		p.nonterm = positiveCost
	}
	outcomes = append(outcomes, Outcome{NewGuard: p.conclusion, WitnessesNonterm: p.nonterm})

	if !p.nonterm && p.hasClosed && positiveCost {
		p.proof = append(p.proof, "done, trying nonterm")
		p.todo = append([]symb.Rel{}, p.guardLits...)
		p.conclusion = symb.True
		p.solver.ResetSolver()
		p.solver.Add(symb.Lit{Rel: symb.NewRel(symb.NewSym(p.n), symb.Ge, symb.NewConst(int64(p.validityBound)))})
		p.runPass(ctx, nontermRules)
		if len(p.todo) == 0 {
			outcomes = append(outcomes, Outcome{NewGuard: p.conclusion, WitnessesNonterm: true})
		}
	}
	return outcomes
}

type dischargeFn func(*Problem, context.Context, symb.Rel) bool

var fullRules = []dischargeFn{
	(*Problem).recurrence,
	(*Problem).monotonicity,
	(*Problem).eventualWeakDecrease,
	(*Problem).eventualWeakIncrease,
	(*Problem).fixpoint,
}

var nontermRules = []dischargeFn{
	(*Problem).recurrence,
	(*Problem).eventualWeakIncrease,
	(*Problem).fixpoint,
}

func (p *Problem) runPass(ctx context.Context, rules []dischargeFn) {
	for {
		changed := false
		var remaining []symb.Rel
		for _, rel := range p.todo {
			discharged := false
			for _, rule := range rules {
				if rule(p, ctx, rel) {
					discharged = true
					break
				}
			}
			if discharged {
				changed = true
			} else {
				remaining = append(remaining, rel)
			}
		}
		p.todo = remaining
		if !changed {
			return
		}
	}
}

// recurrence discharges rel when it is preserved by the update: `rel /\
// update => rel[x/x']` (spec.md §4.7 rule 1).
func (p *Problem) recurrence(ctx context.Context, rel symb.Rel) bool {
	p.scratch.Push()
	p.scratch.Add(symb.Lit{Rel: rel})
	if r, err := p.scratch.Check(ctx); err != nil || r != smt.Sat {
		p.scratch.Pop()
		return false
	}
	p.scratch.Add(symb.Lit{Rel: symb.SubsRel(rel, p.up).Negate()})
	if r, err := p.scratch.Check(ctx); err != nil || r != smt.Unsat {
		p.scratch.Pop()
		return false
	}

	p.solver.Push()
	p.solver.Add(symb.Lit{Rel: rel})
	if r, err := p.solver.Check(ctx); err != nil || r != smt.Sat {
		p.solver.Pop()
		p.scratch.Pop()
		return false
	}

	p.conclusion = symb.MkAnd(p.conclusion, symb.Lit{Rel: rel})
	p.proof = append(p.proof, fmt.Sprintf("discharged %s with recurrence", rel))
	p.scratch.Pop()
	p.scratch.Add(symb.Lit{Rel: rel})
	return true
}

// monotonicity discharges rel via a closed form that is eventually never
// re-strengthened (spec.md §4.7 rule 2).
func (p *Problem) monotonicity(ctx context.Context, rel symb.Rel) bool {
	if !p.hasClosed {
		return false
	}
	p.scratch.Push()
	p.scratch.Add(symb.Lit{Rel: symb.SubsRel(rel, p.up)})
	if r, err := p.scratch.Check(ctx); err != nil || r != smt.Sat {
		p.scratch.Pop()
		return false
	}
	p.scratch.Add(symb.Lit{Rel: rel.Negate()})
	if r, err := p.scratch.Check(ctx); err != nil || r != smt.Unsat {
		p.scratch.Pop()
		return false
	}

	newCond := p.atClosedNMinus1(rel)
	p.solver.Push()
	p.solver.Add(symb.Lit{Rel: newCond})
	if r, err := p.solver.Check(ctx); err != nil || r != smt.Sat {
		p.solver.Pop()
		p.scratch.Pop()
		return false
	}

	p.conclusion = symb.MkAnd(p.conclusion, symb.Lit{Rel: newCond})
	p.nonterm = false
	p.proof = append(p.proof, fmt.Sprintf("discharged %s with monotonic decrease, got %s", rel, newCond))
	p.scratch.Pop()
	p.scratch.Add(symb.Lit{Rel: rel})
	return true
}

// eventualWeakDecrease discharges rel when its left side decreases once it
// starts decreasing (spec.md §4.7 rule 3).
func (p *Problem) eventualWeakDecrease(ctx context.Context, rel symb.Rel) bool {
	if !p.hasClosed {
		return false
	}
	updated := symb.Subs(rel.Lhs, p.up)
	dec := symb.NewRel(rel.Lhs, symb.Ge, updated)
	p.scratch.Push()
	p.scratch.Add(symb.Lit{Rel: dec})
	if r, err := p.scratch.Check(ctx); err != nil || r != smt.Sat {
		p.scratch.Pop()
		return false
	}
	decDec := symb.NewRel(updated, symb.Ge, symb.Subs(updated, p.up))
	p.scratch.Add(symb.Lit{Rel: decDec.Negate()})
	if r, err := p.scratch.Check(ctx); err != nil || r != smt.Unsat {
		p.scratch.Pop()
		return false
	}

	newCond := symb.MkAnd(symb.Lit{Rel: rel}, symb.Lit{Rel: p.atClosedNMinus1(rel)})
	p.solver.Push()
	p.solver.Add(newCond)
	if r, err := p.solver.Check(ctx); err != nil || r != smt.Sat {
		p.solver.Pop()
		p.scratch.Pop()
		return false
	}

	p.conclusion = symb.MkAnd(p.conclusion, newCond)
	p.nonterm = false
	p.proof = append(p.proof, fmt.Sprintf("discharged %s with eventual decrease, got %s", rel, newCond))
	p.scratch.Pop()
	p.scratch.Add(symb.Lit{Rel: rel})
	return true
}

// eventualWeakIncrease discharges rel when its left side increases once it
// starts increasing; it is the non-termination direction, so rel itself is
// kept as witness (spec.md §4.7 rule 4).
func (p *Problem) eventualWeakIncrease(ctx context.Context, rel symb.Rel) bool {
	updated := symb.Subs(rel.Lhs, p.up)
	inc := symb.NewRel(rel.Lhs, symb.Le, updated)
	p.scratch.Push()
	p.scratch.Add(symb.Lit{Rel: inc})
	if r, err := p.scratch.Check(ctx); err != nil || r != smt.Sat {
		p.scratch.Pop()
		return false
	}
	incInc := symb.NewRel(updated, symb.Le, symb.Subs(updated, p.up))
	p.scratch.Add(symb.Lit{Rel: incInc.Negate()})
	if r, err := p.scratch.Check(ctx); err != nil || r != smt.Unsat {
		p.scratch.Pop()
		return false
	}

	p.solver.Push()
	p.solver.Add(symb.Lit{Rel: inc})
	if r, err := p.solver.Check(ctx); err != nil || r != smt.Sat {
		p.solver.Pop()
		p.scratch.Pop()
		return false
	}

	p.conclusion = symb.MkAnd(p.conclusion, symb.Lit{Rel: inc})
	p.proof = append(p.proof, fmt.Sprintf("discharged %s with eventual increase, got %s", rel, inc))
	p.scratch.Pop()
	p.scratch.Add(symb.Lit{Rel: rel})
	return true
}

// fixpoint discharges rel when every variable it (transitively, through the
// update) depends on is unchanged by the update (spec.md §4.7 rule 5).
func (p *Problem) fixpoint(ctx context.Context, rel symb.Rel) bool {
	var eqs []symb.Guard
	for v := range relevantVars(rel, p.up) {
		rhs, has := p.up[v]
		if !has {
			continue
		}
		eqs = append(eqs, symb.Lit{Rel: symb.NewRel(symb.NewSym(v), symb.Eq, rhs)})
	}
	allEq := symb.MkAnd(eqs...)

	p.scratch.Push()
	p.scratch.Add(symb.MkAnd(symb.FromRels(p.guardLits...), allEq))
	r, err := p.scratch.Check(ctx)
	p.scratch.Pop()
	if err != nil || r != smt.Sat {
		return false
	}

	p.solver.Push()
	p.solver.Add(allEq)
	if r2, err2 := p.solver.Check(ctx); err2 != nil || r2 != smt.Sat {
		p.solver.Pop()
		return false
	}

	p.conclusion = symb.MkAnd(p.conclusion, allEq)
	p.proof = append(p.proof, fmt.Sprintf("discharged %s with fixpoint, got %s", rel, allEq))
	return true
}

// atClosedNMinus1 substitutes rel's variables by their closed form at
// iteration n-1 (spec.md §4.7 rules 2/3: "discharge with ℓ[x/closed(n-1)]").
func (p *Problem) atClosedNMinus1(rel symb.Rel) symb.Rel {
	atN := symb.SubsRel(rel, p.closed)
	return symb.SubsRel(atN, symb.Subst{p.n: symb.Minus(symb.NewSym(p.n), symb.One)})
}

// relevantVars computes the transitive closure of variables rel depends on
// through the update map: rel's own variables, plus, for each variable
// whose update mentions other variables, those variables too.
func relevantVars(rel symb.Rel, up symb.Subst) map[vars.Var]struct{} {
	seen := make(map[vars.Var]struct{})
	var add func(v vars.Var)
	add = func(v vars.Var) {
		if _, ok := seen[v]; ok {
			return
		}
		seen[v] = struct{}{}
		if rhs, ok := up[v]; ok {
			for s := range symb.Vars(rhs) {
				add(s.Var)
			}
		}
	}
	for s := range symb.Vars(rel.Lhs) {
		add(s.Var)
	}
	for s := range symb.Vars(rel.Rhs) {
		add(s.Var)
	}
	return seen
}

func (p *Problem) isCostPositive(ctx context.Context) bool {
	if symb.IsNonterm(p.cost) {
		return true
	}
	holds, err := smt.IsImplication(ctx, p.scratch, symb.FromRels(p.guardLits...), symb.Lit{Rel: symb.NewRel(p.cost, symb.Gt, symb.Zero)}, 0)
	return err == nil && holds
}

func formatUpdate(up symb.Subst) string {
	s := "{"
	first := true
	for v, e := range up {
		if !first {
			s += ", "
		}
		first = false
		s += v.Name() + " := " + e.String()
	}
	return s + "}"
}

// Proof returns the proof lines accumulated by Run.
func (p *Problem) Proof() []string { return p.proof }

// AcceleratedCost is the cost of the accelerated rule (the closed-form
// accumulated cost if C5 succeeded, the original cost unchanged otherwise).
func (p *Problem) AcceleratedCost() symb.Expr { return p.iteratedCost }

// ClosedForm returns the closed-form update, if C5 succeeded for this loop.
func (p *Problem) ClosedForm() (symb.Subst, bool) { return p.closed, p.hasClosed }

// IterationCounter is the fresh symbol n the closed form and accepted
// outcomes are expressed over.
func (p *Problem) IterationCounter() vars.Var { return p.n }

// ValidityBound is the smallest n for which the closed form is sound.
func (p *Problem) ValidityBound() int { return p.validityBound }

// FindRecurrentSet searches for a recurrent-set non-termination witness for
// the simple loop r: a guard-implied, update-closed subpredicate accepted
// by the same discharge machinery as InitForRecurrentSet, without ever
// needing a closed form (spec.md §4.7's non-termination signal, generalized
// per SPEC_FULL.md §3's supplemented feature). found is false if r is not a
// simple loop or no outcome witnessed non-termination.
//
// Grounded on src/analysis/recurrentsetfinder.cpp's RecurrentSetFinder::run,
// which is itself nothing but a loop calling initForRecurrentSet then
// computeRes and reporting the first non-termination witness — this is
// that same sequence, exposed as a named entry point so internal/driver (C12,
// the only place every simple loop in the graph is visible) does not have
// to reach into Problem's constructors directly.
func FindRecurrentSet(ctx context.Context, vm *vars.Manager, r its.Rule, solver, scratch smt.Driver) (Outcome, bool) {
	p, ok := InitForRecurrentSet(vm, r, solver, scratch)
	if !ok {
		return Outcome{}, false
	}
	for _, o := range p.Run(ctx) {
		if o.WitnessesNonterm {
			return o, true
		}
	}
	return Outcome{}, false
}
