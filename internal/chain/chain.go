// Package chain implements rule chaining (spec.md §4.9, C9): composing two
// rules across a shared location, and the structural simplification passes
// built on top of it (linear/tree path elimination, single-location
// elimination, chaining an accelerated rule with its predecessors).
//
// Grounded on the original's chain.cpp (chainLhss: guard/cost composition
// across the shared location, with a satisfiability check before accepting
// the result) and analysis/chainstrategy.cpp (the path-elimination
// strategies built on top of chaining).
package chain

import (
	"context"
	"time"

	"github.com/aprove-developers/loat-go/internal/its"
	"github.com/aprove-developers/loat-go/internal/smt"
	"github.com/aprove-developers/loat-go/internal/symb"
)

// ChainRules composes first (whose rhs at index matching loc is replaced)
// with second (whose lhs is loc), pulling second's guard and cost back
// through first's update at that rhs (spec.md §4.9). ok is false if loc is
// not a valid rhs of first / lhs of second, or if the composed guard turns
// out unsatisfiable.
func ChainRules(ctx context.Context, d smt.Driver, first, second its.Rule, loc its.LocID, timeout time.Duration) (its.Rule, bool) {
	if second.Lhs.Loc != loc {
		return its.Rule{}, false
	}
	idx := -1
	for i, rhs := range first.Rhss {
		if rhs.Loc == loc {
			idx = i
			break
		}
	}
	if idx < 0 {
		return its.Rule{}, false
	}
	up := first.Rhss[idx].Update

	newGuard := symb.MkAnd(first.Lhs.Guard, symb.SubsGuard(second.Lhs.Guard, up))

	var newCost symb.Expr
	if symb.IsNonterm(first.Lhs.Cost) || symb.IsNonterm(second.Lhs.Cost) {
		newCost = symb.Nonterm
	} else {
		newCost = symb.Plus(first.Lhs.Cost, symb.Subs(second.Lhs.Cost, up))
	}

	newRhss := make([]its.Rhs, 0, len(first.Rhss)-1+len(second.Rhss))
	newRhss = append(newRhss, first.Rhss[:idx]...)
	for _, rhs := range second.Rhss {
		newRhss = append(newRhss, its.Rhs{Loc: rhs.Loc, Update: composeUpdate(up, rhs.Update)})
	}
	newRhss = append(newRhss, first.Rhss[idx+1:]...)

	result := its.Rule{
		Lhs:  its.Lhs{Loc: first.Lhs.Loc, Guard: newGuard, Cost: newCost},
		Rhss: newRhss,
	}

	sat, err := isSatisfiable(ctx, d, newGuard, timeout)
	if err != nil || !sat {
		return its.Rule{}, false
	}
	return result, true
}

// composeUpdate expresses second's update (taken at the shared location, so
// its right-hand sides still refer to that location's variables) in terms
// of first's pre-state, by substituting first's update into every value
// second assigns; a variable first updates but second leaves alone keeps
// first's value, and a variable neither touches is left implicit (identity).
func composeUpdate(first, second symb.Subst) symb.Subst {
	out := make(symb.Subst, len(first)+len(second))
	for v, e := range second {
		out[v] = symb.Subs(e, first)
	}
	for v, e := range first {
		if _, ok := out[v]; !ok {
			out[v] = e
		}
	}
	return out
}

func isSatisfiable(ctx context.Context, d smt.Driver, g symb.Guard, timeout time.Duration) (bool, error) {
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

// Pass is a single graph-level simplification pass (generalized from the
// teacher's OptimizationPass: Name/Description/Apply(*Program), here over
// the ITS graph instead of an IR program).
type Pass interface {
	Name() string
	Description() string
	Apply(g *its.Graph) bool
}

func hasSelfLoop(g *its.Graph, loc its.LocID) bool {
	for _, id := range g.TransitionsFrom(loc) {
		r, ok := g.Rule(id)
		if !ok {
			continue
		}
		for _, rhs := range r.Rhss {
			if rhs.Loc == loc {
				return true
			}
		}
	}
	return false
}

// predecessors returns every rule with lhs != loc that has at least one rhs
// targeting loc.
func predecessors(g *its.Graph, loc its.LocID) []its.TransID {
	var preds []its.TransID
	for id, r := range g.AllRules() {
		if r.Lhs.Loc == loc {
			continue
		}
		for _, rhs := range r.Rhss {
			if rhs.Loc == loc {
				preds = append(preds, id)
				break
			}
		}
	}
	return preds
}

// LinearPathPass eliminates a location with exactly one predecessor, one
// successor and no self-loop by chaining the two incident rules (spec.md
// §4.9 "Linear paths").
type LinearPathPass struct {
	Solver  smt.Driver
	Timeout time.Duration
}

func (p *LinearPathPass) Name() string { return "linear path elimination" }
func (p *LinearPathPass) Description() string {
	return "chains and removes locations with exactly one predecessor and one successor"
}

func (p *LinearPathPass) Apply(g *its.Graph) bool {
	changed := false
	for _, loc := range g.Locations() {
		if loc == g.Initial() || hasSelfLoop(g, loc) {
			continue
		}
		preds := predecessors(g, loc)
		succs := g.TransitionsFrom(loc)
		if len(preds) != 1 || len(succs) != 1 {
			continue
		}
		predRule, _ := g.Rule(preds[0])
		succRule, _ := g.Rule(succs[0])
		chained, ok := ChainRules(context.Background(), p.Solver, predRule, succRule, loc, p.Timeout)
		if !ok {
			continue
		}
		g.RemoveRule(preds[0])
		g.RemoveRule(succs[0])
		g.AddRule(chained)
		g.RemoveOnlyLocation(loc)
		changed = true
	}
	return changed
}

// TreePathPass tolerates multiple successors as long as loc has at most one
// predecessor (spec.md §4.9 "Tree paths"); each successor is chained with
// the shared predecessor independently.
type TreePathPass struct {
	Solver  smt.Driver
	Timeout time.Duration
}

func (p *TreePathPass) Name() string { return "tree path elimination" }
func (p *TreePathPass) Description() string {
	return "chains and removes locations with one predecessor and multiple successors"
}

func (p *TreePathPass) Apply(g *its.Graph) bool {
	changed := false
	for _, loc := range g.Locations() {
		if loc == g.Initial() || hasSelfLoop(g, loc) {
			continue
		}
		preds := predecessors(g, loc)
		succs := g.TransitionsFrom(loc)
		if len(preds) != 1 || len(succs) < 2 {
			continue
		}
		predRule, _ := g.Rule(preds[0])

		newRules := make([]its.Rule, 0, len(succs))
		ok := true
		for _, sid := range succs {
			succRule, _ := g.Rule(sid)
			chained, chok := ChainRules(context.Background(), p.Solver, predRule, succRule, loc, p.Timeout)
			if !chok {
				ok = false
				break
			}
			newRules = append(newRules, chained)
		}
		if !ok {
			continue
		}
		g.RemoveRule(preds[0])
		for _, sid := range succs {
			g.RemoveRule(sid)
		}
		for _, nr := range newRules {
			g.AddRule(nr)
		}
		g.RemoveOnlyLocation(loc)
		changed = true
	}
	return changed
}

// EliminateLocation runs the "eliminate a location" escalation step
// (spec.md §4.9): DFS from the initial location, chain every incoming rule
// with every outgoing rule of the first location found with no self-loop
// that isn't initial, and remove it. Returns false if no such location
// exists.
func EliminateLocation(ctx context.Context, d smt.Driver, g *its.Graph, timeout time.Duration) bool {
	for _, loc := range dfsOrder(g) {
		if loc == g.Initial() || hasSelfLoop(g, loc) {
			continue
		}
		preds := predecessors(g, loc)
		succs := g.TransitionsFrom(loc)
		if len(preds) == 0 || len(succs) == 0 {
			continue
		}

		var newRules []its.Rule
		for _, pid := range preds {
			predRule, _ := g.Rule(pid)
			for _, sid := range succs {
				succRule, _ := g.Rule(sid)
				if chained, ok := ChainRules(ctx, d, predRule, succRule, loc, timeout); ok {
					newRules = append(newRules, chained)
				}
			}
		}
		for _, pid := range preds {
			g.RemoveRule(pid)
		}
		for _, sid := range succs {
			g.RemoveRule(sid)
		}
		for _, nr := range newRules {
			g.AddRule(nr)
		}
		g.RemoveOnlyLocation(loc)
		return true
	}
	return false
}

func dfsOrder(g *its.Graph) []its.LocID {
	visited := make(map[its.LocID]bool)
	var order []its.LocID
	var visit func(loc its.LocID)
	visit = func(loc its.LocID) {
		if visited[loc] {
			return
		}
		visited[loc] = true
		order = append(order, loc)
		for _, id := range g.TransitionsFrom(loc) {
			r, ok := g.Rule(id)
			if !ok {
				continue
			}
			for _, rhs := range r.Rhss {
				visit(rhs.Loc)
			}
		}
	}
	visit(g.Initial())
	return order
}

// ChainAcceleratedWithPredecessors chains every rule in accelerated with
// each of its (non-accelerated) predecessors and adds the result to the
// graph; if at least one chain succeeded for a given predecessor and
// deletePredecessors is set, the predecessor rule is removed (spec.md §4.9
// "Chaining accelerated rules with predecessors").
func ChainAcceleratedWithPredecessors(ctx context.Context, d smt.Driver, g *its.Graph, accelerated map[its.TransID]bool, deletePredecessors bool, timeout time.Duration) bool {
	changed := false
	toDelete := make(map[its.TransID]bool)
	for aid := range accelerated {
		aRule, ok := g.Rule(aid)
		if !ok {
			continue
		}
		for _, pid := range predecessors(g, aRule.Lhs.Loc) {
			if accelerated[pid] {
				continue
			}
			pRule, ok := g.Rule(pid)
			if !ok {
				continue
			}
			chained, chok := ChainRules(ctx, d, pRule, aRule, aRule.Lhs.Loc, timeout)
			if !chok {
				continue
			}
			g.AddRule(chained)
			changed = true
			if deletePredecessors {
				toDelete[pid] = true
			}
		}
	}
	for pid := range toDelete {
		g.RemoveRule(pid)
	}
	return changed
}
