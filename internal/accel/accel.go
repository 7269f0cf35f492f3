// Package accel implements the backward/forward accelerator (spec.md §4.8,
// C8): given a location and the simple loops at it, turn each loop into one
// or more accelerated rules by combining C6 (metering) + C5 (closure) for
// forward acceleration, C7 (the acceleration calculus) for backward
// acceleration and its built-in non-termination retry, a constant-update
// guard-strengthening heuristic, and a partial-deletion fallback for
// nonlinear rules, plus nesting of accelerated simple loops.
//
// Grounded on spec.md §4.8, followed in the order the spec states it
// (forward, then backward, then strengthening, with non-termination search
// alongside); the original's accelerator.cpp actually routes linear rules
// through backward acceleration primarily and reserves direct forward
// metering for nonlinear rules, but spec.md's stated order is the
// authoritative one here and is simpler to reason about, so that is what
// this package implements (documented in DESIGN.md).
package accel

import (
	"context"
	"math/big"
	"time"

	"github.com/aprove-developers/loat-go/internal/bound"
	"github.com/aprove-developers/loat-go/internal/calculus"
	"github.com/aprove-developers/loat-go/internal/chain"
	"github.com/aprove-developers/loat-go/internal/closure"
	"github.com/aprove-developers/loat-go/internal/complexity"
	"github.com/aprove-developers/loat-go/internal/its"
	"github.com/aprove-developers/loat-go/internal/meter"
	"github.com/aprove-developers/loat-go/internal/smt"
	"github.com/aprove-developers/loat-go/internal/symb"
	"github.com/aprove-developers/loat-go/internal/vars"
)

// ResultKind classifies one loop's acceleration attempt.
type ResultKind int

const (
	Success ResultKind = iota
	SuccessWithRestriction
	NoMetering
	TooComplicated
)

// MeteredRule is one accelerated rule plus a short human-readable label for
// how it was derived (spec.md §4.8, and the proof trail it feeds).
type MeteredRule struct {
	Info string
	Rule its.Rule
}

// Result is the outcome of accelerating a single loop.
type Result struct {
	Kind      ResultKind
	Rules     []MeteredRule
	Proof     []string
	ConflictA vars.Var
	ConflictB vars.Var
}

// ForwardAccelerateLinear runs C6 (metering) then C5 (closure) on a linear
// simple loop, instantiating the closed form's iteration counter by the
// metering function itself (spec.md §4.6/§4.5 composed, matching the
// original's default "instantiate tv by meter" path).
func ForwardAccelerateLinear(ctx context.Context, d smt.Driver, vm *vars.Manager, rule its.Rule, sink its.LocID, timeout time.Duration) Result {
	guardLits := symb.Literals(rule.Lhs.Guard)
	up := rule.Rhss[0].Update
	m := meter.Generate(ctx, d, guardLits, up, candidateVars(rule.Lhs.Guard, up), timeout)

	switch m.Kind {
	case meter.Nonlinear:
		return Result{Kind: TooComplicated, Proof: m.Proof}
	case meter.ConflictVar:
		return Result{Kind: NoMetering, Proof: m.Proof, ConflictA: m.ConflictA, ConflictB: m.ConflictB}
	case meter.Unsat:
		return Result{Kind: NoMetering, Proof: m.Proof}
	case meter.Nonterm:
		nontermRule := its.Rule{
			Lhs:  its.Lhs{Loc: rule.Lhs.Loc, Guard: rule.Lhs.Guard, Cost: symb.Nonterm},
			Rhss: []its.Rhs{{Loc: sink, Update: symb.Subst{}}},
		}
		return Result{Kind: Success, Rules: []MeteredRule{{Info: "NONTERM", Rule: nontermRule}}, Proof: m.Proof}
	}

	cres := closure.Close(vm, rule)
	if !cres.Success {
		return Result{Kind: TooComplicated, Proof: append(append([]string{}, m.Proof...), cres.Reason)}
	}
	sub := symb.Subst{cres.N: m.Metering}
	newUpdate := make(symb.Subst, len(cres.ClosedUpdate))
	for v, e := range cres.ClosedUpdate {
		newUpdate[v] = symb.Subs(e, sub)
	}
	newCost := symb.Subs(cres.ClosedCost, sub)
	newGuard := symb.MkAnd(rule.Lhs.Guard, symb.Lit{Rel: symb.NewRel(m.Metering, symb.Ge, symb.One)})

	newRule := its.Rule{
		Lhs:  its.Lhs{Loc: rule.Lhs.Loc, Guard: newGuard, Cost: newCost},
		Rhss: []its.Rhs{{Loc: rule.Rhss[0].Loc, Update: newUpdate}},
	}
	info := "metering function " + m.Metering.String()
	return Result{Kind: Success, Rules: []MeteredRule{{Info: info, Rule: newRule}}, Proof: m.Proof}
}

// BackwardAccelerate runs C7 on a simple loop and converts every accepted
// outcome (including a non-termination witness, when C7 found one) into an
// accelerated rule.
func BackwardAccelerate(ctx context.Context, vm *vars.Manager, solver, scratch smt.Driver, rule its.Rule, sink its.LocID) Result {
	p, ok := calculus.Init(vm, rule, solver, scratch)
	if !ok {
		return Result{Kind: NoMetering}
	}
	outcomes := p.Run(ctx)
	if len(outcomes) == 0 {
		return Result{Kind: NoMetering, Proof: p.Proof()}
	}

	rules := make([]MeteredRule, 0, len(outcomes))
	for _, o := range outcomes {
		info := "acceleration calculus"
		if o.WitnessesNonterm {
			info = "non-termination"
		}
		rules = append(rules, MeteredRule{Info: info, Rule: buildBackwardRule(rule, p, o, sink)})
	}
	return Result{Kind: Success, Rules: rules, Proof: p.Proof()}
}

func buildBackwardRule(rule its.Rule, p *calculus.Problem, o calculus.Outcome, sink its.LocID) its.Rule {
	n := p.IterationCounter()
	guard := symb.MkAnd(o.NewGuard, symb.Lit{Rel: symb.NewRel(symb.NewSym(n), symb.Ge, symb.NewConst(int64(p.ValidityBound())))})
	if o.WitnessesNonterm {
		return its.Rule{
			Lhs:  its.Lhs{Loc: rule.Lhs.Loc, Guard: guard, Cost: symb.Nonterm},
			Rhss: []its.Rhs{{Loc: sink, Update: symb.Subst{}}},
		}
	}
	closed, _ := p.ClosedForm()
	return its.Rule{
		Lhs:  its.Lhs{Loc: rule.Lhs.Loc, Guard: guard, Cost: p.AcceleratedCost()},
		Rhss: []its.Rhs{{Loc: rule.Rhss[0].Loc, Update: closed}},
	}
}

// Strengthen implements the constant-update heuristic: a variable updated
// to a constant in every iteration can, from the second iteration on, also
// be assumed to already hold that constant, which often lets metering
// succeed where it otherwise would not (spec.md §4.8 "strengthening";
// grounded on forward.cpp's ConstantUpdateHeuristic).
func Strengthen(ctx context.Context, d smt.Driver, rule its.Rule, timeout time.Duration) (its.Rule, bool) {
	if !rule.IsLinear() {
		return its.Rule{}, false
	}
	up := rule.Rhss[0].Update
	var extra []symb.Guard
	for v, e := range up {
		if symb.IsIntegerConstant(e) {
			extra = append(extra, symb.Lit{Rel: symb.NewRel(symb.NewSym(v), symb.Eq, e)})
		}
	}
	if len(extra) == 0 {
		return its.Rule{}, false
	}
	newGuard := symb.MkAnd(append([]symb.Guard{rule.Lhs.Guard}, extra...)...)
	sat, err := querySat(ctx, d, newGuard, timeout)
	if err != nil || !sat {
		return its.Rule{}, false
	}
	return its.Rule{Lhs: its.Lhs{Loc: rule.Lhs.Loc, Guard: newGuard, Cost: rule.Lhs.Cost}, Rhss: rule.Rhss}, true
}

// AccelerateRule tries every strategy spec.md §4.8 lists for a single loop.
// For a nonlinear rule (|rhss| > 1), only the partial-deletion fallback
// applies: C6's Farkas candidate search is built for a single update map
// (documented in internal/meter's package doc), so genuinely nonlinear
// metering is out of scope here and partial deletion down to a single rhs
// is the only path, rather than a second-choice fallback as in the
// original.
func AccelerateRule(ctx context.Context, vm *vars.Manager, solver, scratch smt.Driver, rule its.Rule, sink its.LocID, timeout time.Duration) Result {
	if !rule.IsLinear() {
		return accelerateNonlinearByPartialDeletion(ctx, solver, rule, sink, timeout)
	}

	var rules []MeteredRule
	var proof []string

	fwd := ForwardAccelerateLinear(ctx, solver, vm, rule, sink, timeout)
	proof = append(proof, fwd.Proof...)
	if fwd.Kind == Success {
		rules = append(rules, fwd.Rules...)
	}

	bwd := BackwardAccelerate(ctx, vm, solver, scratch, rule, sink)
	proof = append(proof, bwd.Proof...)
	if bwd.Kind == Success {
		rules = append(rules, bwd.Rules...)
	}

	if len(rules) > 0 {
		return Result{Kind: Success, Rules: rules, Proof: proof}
	}

	if strengthened, ok := Strengthen(ctx, solver, rule, timeout); ok {
		sres := ForwardAccelerateLinear(ctx, solver, vm, strengthened, sink, timeout)
		proof = append(proof, sres.Proof...)
		if sres.Kind == Success {
			for i := range sres.Rules {
				sres.Rules[i].Info += " (after strengthening guard)"
			}
			return Result{Kind: SuccessWithRestriction, Rules: sres.Rules, Proof: proof}
		}
	}

	return Result{Kind: NoMetering, Proof: proof}
}

// accelerateNonlinearByPartialDeletion successively tries a single rhs of
// the nonlinear rule, and on success approximates the cost as
// (d^m-1)/(d-1), d = the original rhs count, m = the metering function
// found for the surviving rhs, redirecting every rhs to sink since the
// dropped branches make the exact destination unknown (spec.md §4.8).
func accelerateNonlinearByPartialDeletion(ctx context.Context, d smt.Driver, rule its.Rule, sink its.LocID, timeout time.Duration) Result {
	degree := len(rule.Rhss)
	var proof []string
	for _, rhs := range rule.Rhss {
		guardLits := symb.Literals(rule.Lhs.Guard)
		m := meter.Generate(ctx, d, guardLits, rhs.Update, candidateVars(rule.Lhs.Guard, rhs.Update), timeout)
		proof = append(proof, m.Proof...)
		if m.Kind != meter.Success {
			continue
		}
		newGuard := symb.MkAnd(rule.Lhs.Guard, symb.Lit{Rel: symb.NewRel(m.Metering, symb.Ge, symb.One)})
		newRule := its.Rule{
			Lhs:  its.Lhs{Loc: rule.Lhs.Loc, Guard: newGuard, Cost: partialDeletionCost(m.Metering, degree)},
			Rhss: []its.Rhs{{Loc: sink, Update: symb.Subst{}}},
		}
		return Result{Kind: SuccessWithRestriction, Rules: []MeteredRule{{Info: "partial deletion", Rule: newRule}}, Proof: proof}
	}
	return Result{Kind: NoMetering, Proof: proof}
}

// partialDeletionCost computes (d^m-1)/(d-1), which is always an exact
// rational multiple of (d^m-1) since d is a positive integer constant.
func partialDeletionCost(m symb.Expr, d int) symb.Expr {
	pow := symb.RaisePow(symb.NewConst(int64(d)), m)
	numerator := symb.Minus(pow, symb.One)
	return symb.Times(symb.NewConstRat(big.NewRat(1, int64(d-1))), numerator)
}

func candidateVars(g symb.Guard, up symb.Subst) []vars.Var {
	seen := make(map[vars.Var]struct{})
	var out []vars.Var
	add := func(v vars.Var) {
		if _, ok := seen[v]; !ok {
			seen[v] = struct{}{}
			out = append(out, v)
		}
	}
	for _, r := range symb.Literals(g) {
		for s := range symb.Vars(r.Lhs) {
			add(s.Var)
		}
		for s := range symb.Vars(r.Rhs) {
			add(s.Var)
		}
	}
	for v, e := range up {
		add(v)
		for s := range symb.Vars(e) {
			add(s.Var)
		}
	}
	return out
}

func querySat(ctx context.Context, d smt.Driver, g symb.Guard, timeout time.Duration) (bool, error) {
	qctx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		qctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	d.Push()
	defer d.Pop()
	d.Add(g)
	r, err := d.Check(qctx)
	if err != nil {
		return false, err
	}
	return r == smt.Sat, nil
}

// nestingCandidate pairs an accelerated simple loop with the original loop
// it came from and its best-effort complexity, mirroring the original's
// NestingCandidate (spec.md §4.8 "nesting").
type nestingCandidate struct {
	oldLoop its.TransID
	newLoop its.TransID
	rule    its.Rule
	cpx     complexity.Class
}

// AccelerateSimpleLoops accelerates every simple loop at loc (spec.md
// §4.8), adding the resulting rules to g and removing the original loops
// that were successfully accelerated (loops kept because acceleration
// failed stay, per the "keep unaccelerated" heuristic). Returns false if
// loc had no simple loops. The returned ids are every rule added to g by
// this call (accelerated loops and nested-loop results), so a caller such
// as the driver can feed them to chain.ChainAcceleratedWithPredecessors.
func AccelerateSimpleLoops(ctx context.Context, vm *vars.Manager, g *its.Graph, loc its.LocID, solver, scratch smt.Driver, timeout time.Duration) (bool, []its.TransID) {
	loops := g.GetSimpleLoopsAt(loc)
	if len(loops) == 0 {
		return false, nil
	}
	sink := g.AddLocation("sink")

	var candidates []nestingCandidate
	var keep []its.TransID
	var addedIDs []its.TransID

	for _, loopID := range loops {
		rule, ok := g.Rule(loopID)
		if !ok {
			continue
		}
		res := AccelerateRule(ctx, vm, solver, scratch, rule, sink, timeout)
		if res.Kind != Success && res.Kind != SuccessWithRestriction {
			keep = append(keep, loopID)
			continue
		}
		for _, mr := range res.Rules {
			newID := g.AddRule(mr.Rule)
			addedIDs = append(addedIDs, newID)
			if mr.Rule.IsSimpleLoop() {
				cpx, _ := bound.AnalyzeRule(ctx, solver, vm, symb.Literals(mr.Rule.Lhs.Guard), mr.Rule.Lhs.Cost, timeout)
				candidates = append(candidates, nestingCandidate{oldLoop: loopID, newLoop: newID, rule: mr.Rule, cpx: cpx})
			}
		}
	}

	addedIDs = append(addedIDs, nestLoops(ctx, vm, g, candidates, solver, scratch, sink, timeout)...)

	keepSet := make(map[its.TransID]bool, len(keep))
	for _, id := range keep {
		keepSet[id] = true
	}
	for _, loopID := range loops {
		if !keepSet[loopID] {
			g.RemoveRule(loopID)
		}
	}
	g.RemoveOnlyLocation(sink)

	return true, addedIDs
}

// nestLoops tries every ordered pair of accelerated simple loops from
// distinct original loops, chaining them and re-accelerating, keeping the
// result when it strictly improves on both inputs' complexity (spec.md
// §4.8 "nesting"). Returns the ids of every rule it added to g.
func nestLoops(ctx context.Context, vm *vars.Manager, g *its.Graph, candidates []nestingCandidate, solver, scratch smt.Driver, sink its.LocID, timeout time.Duration) []its.TransID {
	var addedIDs []its.TransID
	for _, outer := range candidates {
		for _, inner := range candidates {
			if outer.oldLoop == inner.oldLoop {
				continue
			}
			if symb.IsNonterm(outer.rule.Lhs.Cost) || symb.IsNonterm(inner.rule.Lhs.Cost) {
				continue
			}
			nested, ok := chain.ChainRules(ctx, solver, outer.rule, inner.rule, outer.rule.Lhs.Loc, timeout)
			if !ok {
				continue
			}
			if !nested.IsSimpleLoop() {
				continue
			}
			accelRes := AccelerateRule(ctx, vm, solver, scratch, nested, sink, timeout)
			if accelRes.Kind != Success && accelRes.Kind != SuccessWithRestriction {
				continue
			}
			best := complexity.Max(outer.cpx, inner.cpx)
			for _, mr := range accelRes.Rules {
				newCpx, _ := bound.AnalyzeRule(ctx, solver, vm, symb.Literals(mr.Rule.Lhs.Guard), mr.Rule.Lhs.Cost, timeout)
				if best.Less(newCpx) {
					addedIDs = append(addedIDs, g.AddRule(mr.Rule))
				}
			}
		}
	}
	return addedIDs
}
