// Package prune implements pruning (spec.md §4.10, C10): syntactic
// duplicate removal, complexity-guided selection among parallel rules
// connecting the same pair of locations, and leaf/unreachable cleanup.
//
// Grounded on the original's simplify/prune.cpp: compareRules /
// removeDuplicateRules, pruneParallelRules, and removeLeafsAndUnreachable /
// removeConstLeafs.
package prune

import (
	"context"
	"time"

	"github.com/aprove-developers/loat-go/internal/bound"
	"github.com/aprove-developers/loat-go/internal/complexity"
	"github.com/aprove-developers/loat-go/internal/its"
	"github.com/aprove-developers/loat-go/internal/smt"
	"github.com/aprove-developers/loat-go/internal/symb"
	"github.com/aprove-developers/loat-go/internal/vars"
)

// rulesAreDuplicates reports whether a and b are the same rule up to a
// constant cost offset (spec.md §4.10 "duplicate removal"). Guards are
// compared via symb.EqualGuard, which is already order-insensitive
// (spec.md's "structurally equal up to the ordering of guard literals"),
// so unlike the original's compareRules this needs no separate
// ExprSymbolSet workaround.
func rulesAreDuplicates(a, b its.Rule, compareRhss bool) bool {
	if a.Lhs.Loc != b.Lhs.Loc {
		return false
	}
	if compareRhss {
		if len(a.Rhss) != len(b.Rhss) {
			return false
		}
		for i := range a.Rhss {
			if a.Rhss[i].Loc != b.Rhss[i].Loc {
				return false
			}
			if len(a.Rhss[i].Update) != len(b.Rhss[i].Update) {
				return false
			}
			for v, e := range a.Rhss[i].Update {
				other, ok := b.Rhss[i].Update[v]
				if !ok || !symb.Equal(e, other) {
					return false
				}
			}
		}
	}
	if !symb.EqualGuard(a.Lhs.Guard, b.Lhs.Guard) {
		return false
	}
	if symb.IsNonterm(a.Lhs.Cost) != symb.IsNonterm(b.Lhs.Cost) {
		return false
	}
	if symb.IsNonterm(a.Lhs.Cost) {
		return true
	}
	diff := symb.Minus(a.Lhs.Cost, b.Lhs.Cost)
	return symb.IsIntegerConstant(diff)
}

// costGreater reports whether a's cost is strictly greater than b's,
// treating NONTERM as greater than any finite cost.
func costGreater(a, b symb.Expr) bool {
	if symb.IsNonterm(a) {
		return !symb.IsNonterm(b)
	}
	if symb.IsNonterm(b) {
		return false
	}
	diff := symb.Minus(a, b)
	c, ok := diff.(symb.Const)
	return ok && c.Val.Sign() > 0
}

// RemoveDuplicateRules removes, among the given candidate transitions of g,
// every rule that duplicates another; the one with strictly greater cost
// survives, otherwise the one with the smaller id (spec.md §4.10). Returns
// true if any rule was removed.
func RemoveDuplicateRules(g *its.Graph, candidates []its.TransID, compareRhss bool) bool {
	toRemove := make(map[its.TransID]bool)
	for i := 0; i < len(candidates); i++ {
		idxA := candidates[i]
		if toRemove[idxA] {
			continue
		}
		ruleA, ok := g.Rule(idxA)
		if !ok {
			continue
		}
		for j := i + 1; j < len(candidates); j++ {
			idxB := candidates[j]
			if toRemove[idxB] {
				continue
			}
			ruleB, ok := g.Rule(idxB)
			if !ok {
				continue
			}
			if !rulesAreDuplicates(ruleA, ruleB, compareRhss) {
				continue
			}
			if costGreater(ruleA.Lhs.Cost, ruleB.Lhs.Cost) || !costGreater(ruleB.Lhs.Cost, ruleA.Lhs.Cost) {
				toRemove[idxB] = true
			} else {
				toRemove[idxA] = true
				break
			}
		}
	}
	for id := range toRemove {
		g.RemoveRule(id)
	}
	return len(toRemove) > 0
}

// approxInftyVars counts the guard's distinct variables as a cheap proxy
// for the original's "number of infinity-tending variables" tiebreak: the
// bundled asymptotic-bound analyser (internal/bound) reports only a
// complexity class, not which variables it found unbounded, so this
// package approximates richness by variable count instead of reproducing
// that bookkeeping (documented in DESIGN.md).
func approxInftyVars(rule its.Rule) int {
	seen := make(map[vars.Var]struct{})
	for _, r := range symb.Literals(rule.Lhs.Guard) {
		for s := range symb.Vars(r.Lhs) {
			seen[s.Var] = struct{}{}
		}
		for s := range symb.Vars(r.Rhs) {
			seen[s.Var] = struct{}{}
		}
	}
	return len(seen)
}

type rankedRule struct {
	id        its.TransID
	cpx       complexity.Class
	inftyVars int
}

// less orders rankedRules so that sorting ascending puts the WORST rule
// first, matching the original's min-priority-queue-of-complexity
// (complexity, then inftyVars, both ascending).
func less(a, b rankedRule) bool {
	if a.cpx.Less(b.cpx) {
		return true
	}
	if b.cpx.Less(a.cpx) {
		return false
	}
	return a.inftyVars < b.inftyVars
}

// ParallelRuleSelection enforces maxParallel on every (from,to) pair of g:
// duplicates are removed first, then if more than maxParallel rules
// remain, only the top maxParallel (ranked by best-effort complexity, then
// variable count) survive; the rest have their rhs to the target location
// stripped, with the whole rule removed if nothing is left. A dummy rule is
// re-added if one of the removed rules was the dummy rule, preserving
// "skip the whole batch" semantics (spec.md §4.10 "Parallel-rule
// selection").
func ParallelRuleSelection(ctx context.Context, d smt.Driver, vm *vars.Manager, g *its.Graph, maxParallel int, timeout time.Duration) bool {
	changed := false
	for _, to := range g.Locations() {
		for _, from := range predecessorLocations(g, to) {
			parallel := g.TransitionsBetween(from, to)
			if RemoveDuplicateRules(g, parallel, false) {
				changed = true
			}
			parallel = g.TransitionsBetween(from, to)
			if len(parallel) <= maxParallel {
				continue
			}

			hasDummy := false
			ranked := make([]rankedRule, 0, len(parallel))
			for _, id := range parallel {
				rule, ok := g.Rule(id)
				if !ok {
					continue
				}
				if rule.IsDummy() {
					hasDummy = true
				}
				cpx, _ := bound.AnalyzeRule(ctx, d, vm, symb.Literals(rule.Lhs.Guard), rule.Lhs.Cost, timeout)
				ranked = append(ranked, rankedRule{id: id, cpx: cpx, inftyVars: approxInftyVars(rule)})
			}

			keep := make(map[its.TransID]bool, maxParallel)
			for len(keep) < maxParallel && len(ranked) > 0 {
				bestIdx := 0
				for i := 1; i < len(ranked); i++ {
					if less(ranked[bestIdx], ranked[i]) {
						bestIdx = i
					}
				}
				keep[ranked[bestIdx].id] = true
				ranked = append(ranked[:bestIdx], ranked[bestIdx+1:]...)
			}

			for _, id := range parallel {
				if keep[id] {
					continue
				}
				rule, ok := g.Rule(id)
				if !ok {
					continue
				}
				if stripped, ok := its.StripRhsLocation(rule, to); ok {
					g.AddRule(stripped)
				}
				g.RemoveRule(id)
			}
			if hasDummy {
				g.AddRule(its.Rule{
					Lhs:  its.Lhs{Loc: from, Guard: symb.True, Cost: symb.Zero},
					Rhss: []its.Rhs{{Loc: to, Update: symb.Subst{}}},
				})
			}
			changed = true
		}
	}
	return changed
}

func predecessorLocations(g *its.Graph, to its.LocID) []its.LocID {
	seen := make(map[its.LocID]bool)
	var out []its.LocID
	for id, r := range g.AllRules() {
		_ = id
		for _, rhs := range r.Rhss {
			if rhs.Loc != to {
				continue
			}
			if !seen[r.Lhs.Loc] {
				seen[r.Lhs.Loc] = true
				out = append(out, r.Lhs.Loc)
			}
		}
	}
	return out
}

// RemoveLeafsAndUnreachable performs a DFS from g's initial location,
// removing rules whose every rhs leads into a leaf (a location with no
// outgoing rules) when the rule's cost is at most Const, then removing any
// location left unreached by the DFS (spec.md §4.10 "Leaf + unreachable").
func RemoveLeafsAndUnreachable(g *its.Graph) bool {
	visited := make(map[its.LocID]bool)
	changed := removeConstLeafs(g, g.Initial(), visited)

	for _, loc := range g.Locations() {
		if !visited[loc] {
			g.RemoveLocationAndRules(loc)
			changed = true
		}
	}
	return changed
}

func isLeaf(g *its.Graph, loc its.LocID) bool {
	return len(g.TransitionsFrom(loc)) == 0
}

func hasTransitionsTo(g *its.Graph, loc its.LocID) bool {
	for _, r := range g.AllRules() {
		for _, rhs := range r.Rhss {
			if rhs.Loc == loc {
				return true
			}
		}
	}
	return false
}

func removeConstLeafs(g *its.Graph, node its.LocID, visited map[its.LocID]bool) bool {
	if visited[node] {
		return false
	}
	visited[node] = true

	changed := false
	var successors []its.LocID
	seenSucc := make(map[its.LocID]bool)
	for _, id := range g.TransitionsFrom(node) {
		r, ok := g.Rule(id)
		if !ok {
			continue
		}
		for _, rhs := range r.Rhss {
			if !seenSucc[rhs.Loc] {
				seenSucc[rhs.Loc] = true
				successors = append(successors, rhs.Loc)
			}
		}
	}

	for _, next := range successors {
		if removeConstLeafs(g, next, visited) {
			changed = true
		}

		if !isLeaf(g, next) {
			continue
		}
		for _, ruleID := range g.TransitionsBetween(node, next) {
			rule, ok := g.Rule(ruleID)
			if !ok {
				continue
			}
			if symb.IsNonterm(rule.Lhs.Cost) {
				continue
			}
			if !costAtMostConst(rule.Lhs.Cost) {
				continue
			}
			allLeaf := true
			for _, rhs := range rule.Rhss {
				if !isLeaf(g, rhs.Loc) {
					allLeaf = false
					break
				}
			}
			if len(rule.Rhss) == 1 || allLeaf {
				g.RemoveRule(ruleID)
				changed = true
			}
		}
		if !hasTransitionsTo(g, next) {
			g.RemoveOnlyLocation(next)
		}
	}
	return changed
}

// costAtMostConst reports whether cost is a plain integer constant (the
// complexity class Const boundary spec.md's leaf-pruning rule checks
// against); a cost involving any variable is never Const.
func costAtMostConst(cost symb.Expr) bool {
	return symb.IsIntegerConstant(cost)
}
