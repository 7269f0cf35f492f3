// Package driver implements the top-level simplification driver (spec.md
// §4.12, C12): the fix-point loop combining acceleration (C8), chaining
// (C9) and pruning (C10), soft/hard timeout handling, and the final
// asymptotic-bound computation over the rules surviving at the initial
// location.
//
// Grounded on the original's analysis.hpp (run/simplify/finalize/
// getMaxRuntime/getMaxPartialResult/removeConstantPathsAfterTimeout), which
// is not itself kept as a source file (header-only, no corresponding .cpp
// in the retrieval pack) but whose method names and control flow pin down
// this package's Run/simplify/finalize split exactly.
package driver

import (
	"context"
	"time"

	"github.com/segmentio/ksuid"

	"github.com/aprove-developers/loat-go/internal/accel"
	"github.com/aprove-developers/loat-go/internal/bound"
	"github.com/aprove-developers/loat-go/internal/calculus"
	"github.com/aprove-developers/loat-go/internal/chain"
	"github.com/aprove-developers/loat-go/internal/complexity"
	"github.com/aprove-developers/loat-go/internal/config"
	"github.com/aprove-developers/loat-go/internal/errors"
	"github.com/aprove-developers/loat-go/internal/its"
	"github.com/aprove-developers/loat-go/internal/prune"
	"github.com/aprove-developers/loat-go/internal/proof"
	"github.com/aprove-developers/loat-go/internal/smt"
	"github.com/aprove-developers/loat-go/internal/symb"
	"github.com/aprove-developers/loat-go/internal/vars"
)

// Result is what a completed (or partially completed, on timeout) run
// produces: the best complexity class established, the run's identifier
// (stamped on the proof header) and the accumulated proof trace.
type Result struct {
	RunID      string
	Class      complexity.Class
	WitnessNTR bool
	Proof      *proof.Proof
}

// Run drives g through Init -> Preprocess -> (AccelChain)* -> Finalize ->
// bound computation -> Report (spec.md §2, §4.12). g is mutated in place.
// The two phases are each bounded: simplification may run until cfg's soft
// timeout, finalisation until the remaining hard timeout (spec.md §5 "two
// cooperatively-cancellable tasks... independent bounded-time awaits").
func Run(ctx context.Context, g *its.Graph, cfg *config.Config, solver, scratch smt.Driver) Result {
	p := proof.New()
	runID := ksuid.New().String()
	p.Headline("LoAT run " + runID)

	vm := g.Vars()

	g.EnsureFreshInitialLocation()
	p.Section("ensured fresh initial location")

	softCtx, cancelSoft := context.WithTimeout(ctx, cfg.SoftTimeout())
	defer cancelSoft()

	if !cfg.NoPreprocessing {
		preprocess(softCtx, g, cfg, solver, p)
	} else {
		p.Section("preprocessing skipped (--no-preprocessing)")
	}

	simplify(softCtx, g, cfg, solver, scratch, p)

	hardCtx, cancelHard := context.WithTimeout(ctx, cfg.HardTimeout())
	defer cancelHard()

	class, witnessesNTR := finalize(hardCtx, g, vm, cfg, solver, p)

	p.ResultLine(class)
	return Result{RunID: runID, Class: class, WitnessNTR: witnessesNTR, Proof: p}
}

// preprocess removes rules whose initial-location guard is unsatisfiable
// and performs one pass of duplicate/leaf cleanup before the main
// acceleration loop (spec.md §4.12 "preprocess rules"; the original's
// Pruning::removeUnsatInitialRules, not named by any §4.10 operation the
// distilled spec keeps, is folded in here rather than into internal/prune
// since it only ever runs once, at the very start of a run).
func preprocess(ctx context.Context, g *its.Graph, cfg *config.Config, d smt.Driver, p *proof.Proof) {
	removed := removeUnsatInitialRules(ctx, g, d, cfg.QueryTimeout)
	if removed > 0 {
		p.Section("removed unsatisfiable initial rules")
	}
	if prune.RemoveLeafsAndUnreachable(g) {
		p.Section("removed unreachable locations and constant leafs")
	}
	if prune.RemoveDuplicateRules(g, allTransIDs(g), true) {
		p.Section("removed duplicate rules")
	}
}

func removeUnsatInitialRules(ctx context.Context, g *its.Graph, d smt.Driver, timeout time.Duration) int {
	removed := 0
	for _, id := range g.TransitionsFrom(g.Initial()) {
		rule, ok := g.Rule(id)
		if !ok {
			continue
		}
		qctx := ctx
		if timeout > 0 {
			var cancel context.CancelFunc
			qctx, cancel = context.WithTimeout(ctx, timeout)
			defer cancel()
		}
		d.Push()
		d.Add(rule.Lhs.Guard)
		result, err := d.Check(qctx)
		d.Pop()
		if err != nil {
			continue
		}
		if result == smt.Unsat {
			g.RemoveRule(id)
			removed++
		}
	}
	return removed
}

func allTransIDs(g *its.Graph) []its.TransID {
	all := g.AllRules()
	ids := make([]its.TransID, 0, len(all))
	for id := range all {
		ids = append(ids, id)
	}
	return ids
}

// simplify runs the main fix-point loop (spec.md §2): accelerate simple
// loops everywhere, chain accelerated rules with their predecessors, chain
// linear paths, clean up leafs/unreachable locations and duplicates; when
// none of that makes progress, escalate to tree-path chaining or
// single-location elimination. Stops when only rules from the initial
// location remain, or the soft timeout (ctx) fires.
func simplify(ctx context.Context, g *its.Graph, cfg *config.Config, solver, scratch smt.Driver, p *proof.Proof) {
	linearPass := &chain.LinearPathPass{Solver: solver, Timeout: cfg.QueryTimeout}
	treePass := &chain.TreePathPass{Solver: solver, Timeout: cfg.QueryTimeout}

	for {
		if softTimedOut(ctx) {
			p.Section("soft timeout reached, salvaging partial simplification")
			return
		}
		if onlyInitialRulesRemain(g) {
			return
		}

		changed := false

		for _, loc := range g.Locations() {
			if softTimedOut(ctx) {
				break
			}
			didAccelerate, added := accel.AccelerateSimpleLoops(ctx, g.Vars(), g, loc, solver, scratch, cfg.QueryTimeout)
			if !didAccelerate {
				continue
			}
			changed = true
			p.Section("accelerated simple loops at a location")

			accelerated := make(map[its.TransID]bool, len(added))
			for _, id := range added {
				accelerated[id] = true
			}
			if chain.ChainAcceleratedWithPredecessors(ctx, solver, g, accelerated, !cfg.KeepIncomingAfterChaining, cfg.QueryTimeout) {
				p.Section("chained accelerated rules with predecessors")
			}
		}

		if linearPass.Apply(g) {
			changed = true
			p.Section(linearPass.Name())
		}

		if prune.RemoveLeafsAndUnreachable(g) {
			changed = true
			p.Section("removed unreachable locations and constant leafs")
		}
		if prune.RemoveDuplicateRules(g, allTransIDs(g), true) {
			changed = true
			p.Section("removed duplicate rules")
		}
		if prune.ParallelRuleSelection(ctx, solver, g.Vars(), g, cfg.MaxParallel, cfg.QueryTimeout) {
			changed = true
			p.Section("enforced max-parallel-rules bound")
		}

		if changed {
			continue
		}

		// Stuck: escalate to tree-path chaining, then single-location
		// elimination, matching spec.md §2's "if stuck" clause.
		if treePass.Apply(g) {
			p.Section(treePass.Name())
			continue
		}
		if chain.EliminateLocation(ctx, solver, g, cfg.QueryTimeout) {
			p.Section("eliminated a single location")
			continue
		}

		// No escalation made progress either: simplification has reached
		// its own fix point, independent of the soft timeout.
		return
	}
}

func softTimedOut(ctx context.Context) bool {
	select {
	case <-ctx.Done():
		return true
	default:
		return false
	}
}

// onlyInitialRulesRemain reports whether every surviving rule leaves from
// the initial location, the loop's success condition (spec.md §2 "until
// only rules from the initial location remain").
func onlyInitialRulesRemain(g *its.Graph) bool {
	for _, r := range g.AllRules() {
		if r.Lhs.Loc != g.Initial() {
			return false
		}
	}
	return true
}

// finalize computes the asymptotic bound over the rules leaving the initial
// location (spec.md §4.12), trying them in decreasing order of (nonterm
// first, nonpoly second, presence of temp vars, syntactic upper bound,
// guard size) and stopping early once Unbounded is established. On a
// finalisation-phase timeout, it reports the best class seen so far, or
// Const witnessed by the first satisfiable initial rule, or Unknown if none
// is satisfiable (spec.md §4.12 "Failure semantics").
func finalize(ctx context.Context, g *its.Graph, vm *vars.Manager, cfg *config.Config, d smt.Driver, p *proof.Proof) (complexity.Class, bool) {
	ids := g.TransitionsFrom(g.Initial())
	if len(ids) == 0 {
		return complexity.Unknown, false
	}

	ordered := orderForFinalization(g, vm, ids)

	best := complexity.Unknown
	bestWitnessed := false
	nonterm := false

	for _, id := range ordered {
		if finalizeTimedOut(ctx) {
			p.Section("finalisation timeout, reporting best bound found so far")
			break
		}
		rule, ok := g.Rule(id)
		if !ok {
			continue
		}

		if cfg.Nonterm {
			if witnessesNonterm(ctx, vm, rule, d, cfg.QueryTimeout) {
				nonterm = true
				break
			}
			continue
		}

		if !cfg.NoConstCpx && !bestWitnessed {
			if sat, _ := isSatisfiable(ctx, d, rule.Lhs.Guard, cfg.QueryTimeout); sat {
				best = complexity.Const
				bestWitnessed = true
			}
		}

		cls, proofLines := bound.AnalyzeRule(ctx, d, vm, symb.Literals(rule.Lhs.Guard), rule.Lhs.Cost, cfg.QueryTimeout)
		if best.Less(cls) {
			best = cls
			bestWitnessed = true
			p.PlainAll(proofLines)
		}
		if best.IsUnbounded() {
			break
		}
	}

	if cfg.Nonterm {
		if nonterm {
			return complexity.Unbounded, true
		}
		return complexity.Unknown, false
	}

	return best, false
}

func finalizeTimedOut(ctx context.Context) bool {
	select {
	case <-ctx.Done():
		return true
	default:
		return false
	}
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

// witnessesNonterm checks whether rule's own simple loop (if it is one)
// admits a non-termination witness via the acceleration calculus's
// recurrent-set search (--nonterm mode, spec.md §6).
func witnessesNonterm(ctx context.Context, vm *vars.Manager, rule its.Rule, d smt.Driver, timeout time.Duration) bool {
	if !rule.IsSimpleLoop() {
		return false
	}
	_, found := calculus.FindRecurrentSet(ctx, vm, rule, smt.NewLinearSolver(), smt.NewLinearSolver())
	return found
}

type finalizeKey struct {
	id            its.TransID
	nonterm       bool
	nonpoly       bool
	hasTempVars   bool
	syntacticDeg  int
	guardSize     int
}

// orderForFinalization sorts ids by spec.md §4.12's tie-break tuple,
// descending, so the rule most likely to witness the largest bound is
// tried first and an Unbounded result can short-circuit the rest.
func orderForFinalization(g *its.Graph, vm *vars.Manager, ids []its.TransID) []its.TransID {
	keys := make([]finalizeKey, 0, len(ids))
	for _, id := range ids {
		rule, ok := g.Rule(id)
		if !ok {
			continue
		}
		cls := symb.Complexity(rule.Lhs.Cost)
		keys = append(keys, finalizeKey{
			id:           id,
			nonterm:      symb.IsNonterm(rule.Lhs.Cost),
			nonpoly:      cls.IsExp() || cls.IsUnbounded(),
			hasTempVars:  ruleHasTempVars(rule, vm),
			syntacticDeg: cls.Degree(),
			guardSize:    len(symb.Literals(rule.Lhs.Guard)),
		})
	}

	for i := 1; i < len(keys); i++ {
		j := i
		for j > 0 && finalizeKeyLess(keys[j], keys[j-1]) {
			keys[j], keys[j-1] = keys[j-1], keys[j]
			j--
		}
	}

	ordered := make([]its.TransID, len(keys))
	for i, k := range keys {
		ordered[i] = k.id
	}
	return ordered
}

// finalizeKeyLess reports whether a should be tried strictly before b:
// true sorts before false on each boolean field, larger degrees/guards
// sort before smaller ones.
func finalizeKeyLess(a, b finalizeKey) bool {
	if a.nonterm != b.nonterm {
		return a.nonterm
	}
	if a.nonpoly != b.nonpoly {
		return a.nonpoly
	}
	if a.hasTempVars != b.hasTempVars {
		return a.hasTempVars
	}
	if a.syntacticDeg != b.syntacticDeg {
		return a.syntacticDeg > b.syntacticDeg
	}
	return a.guardSize > b.guardSize
}

func ruleHasTempVars(rule its.Rule, vm *vars.Manager) bool {
	for s := range symb.Vars(rule.Lhs.Cost) {
		if vm.IsTemp(s.Var) {
			return true
		}
	}
	for _, rel := range symb.Literals(rule.Lhs.Guard) {
		for s := range symb.Vars(rel.Lhs) {
			if vm.IsTemp(s.Var) {
				return true
			}
		}
		for s := range symb.Vars(rel.Rhs) {
			if vm.IsTemp(s.Var) {
				return true
			}
		}
	}
	return false
}

// MustInvariant returns a fatal errors.NewInvariantViolation error if the
// graph is found to reference a location it no longer owns, the one
// failure mode spec.md §4.12 treats as fatal rather than "leave the ITS
// unchanged and continue".
func MustInvariant(g *its.Graph) error {
	for _, r := range g.AllRules() {
		if !g.HasLocation(r.Lhs.Loc) {
			return errors.NewInvariantViolation("rule references a removed location")
		}
		for _, rhs := range r.Rhss {
			if !g.HasLocation(rhs.Loc) {
				return errors.NewInvariantViolation("rule references a removed location")
			}
		}
	}
	return nil
}
