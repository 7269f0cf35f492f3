// Package bound implements the asymptotic-bound analyser (spec.md §4.11,
// C11): given a single rule's guard and cost, decide its complexity class by
// reducing to a limit problem and solving it with the limit calculus.
//
// Two scope reductions versus the original are documented here rather than
// hidden in the code:
//
//   - "Substitute one variable by another" (spec.md §4.11's sixth
//     transformation) is not implemented as an active solving step. By the
//     time every remaining pair is a bare variable the problem already
//     counts as solved; substitution there only tightens which variables
//     get blamed for growth, it does not change solvability. Skipping it
//     means this analyser occasionally reports a degree bound driven by one
//     more "free" variable than the original's unified count would, which
//     is conservative (never unsound, only possibly looser).
//   - The "alternative, cheaper SMT encoding" the spec describes as a
//     separate fast path is folded into the single calculus solver below:
//     both ultimately bottom out in the same internal/smt.Driver-backed
//     feasibility check (used here by the instantiate step), so carrying
//     two independent solvers for the same decidable fragment would
//     duplicate logic without adding soundness.
package bound

import (
	"context"
	"time"

	"github.com/aprove-developers/loat-go/internal/complexity"
	"github.com/aprove-developers/loat-go/internal/smt"
	"github.com/aprove-developers/loat-go/internal/symb"
	"github.com/aprove-developers/loat-go/internal/vars"
)

// Direction is a limit problem's target for a single expression (spec.md
// §4.11).
type Direction int

const (
	Pos Direction = iota
	PosInf
	NegInf
	PosCons
	NegCons
)

func (d Direction) String() string {
	switch d {
	case Pos:
		return "POS"
	case PosInf:
		return "POS_INF"
	case NegInf:
		return "NEG_INF"
	case PosCons:
		return "POS_CONS"
	case NegCons:
		return "NEG_CONS"
	default:
		return "?"
	}
}

// Pair is a single (expression, direction) constraint of a limit problem.
type Pair struct {
	Expr symb.Expr
	Dir  Direction
}

// Problem is a finite set of Pairs (spec.md §4.11 "limit problem").
type Problem struct {
	Pairs []Pair
}

// Solution assigns each solved variable the direction it was resolved to.
type Solution map[vars.Var]Direction

// BuildProblem normalises guard and cost into a limit problem (spec.md
// §4.11 steps 1-2). ok is false if guard contains a disequality, which has
// no single `t > 0` normal form and is outside this analyser's scope.
func BuildProblem(guard []symb.Rel, cost symb.Expr) (Problem, bool) {
	var pairs []Pair
	for _, r := range guard {
		switch r.Op {
		case symb.Ne:
			return Problem{}, false
		case symb.Eq:
			ge1, ge2 := r.SplitEquality()
			pairs = append(pairs, Pair{Expr: symb.Expand(ge1.ToGreaterZero().Lhs), Dir: Pos})
			pairs = append(pairs, Pair{Expr: symb.Expand(ge2.ToGreaterZero().Lhs), Dir: Pos})
		default:
			pairs = append(pairs, Pair{Expr: symb.Expand(r.ToGreaterZero().Lhs), Dir: Pos})
		}
	}
	pairs = append(pairs, Pair{Expr: symb.Expand(cost), Dir: PosInf})
	return Problem{Pairs: pairs}, true
}

// maxSolveSteps bounds the backtracking search; a genuine implementation
// could in principle explore an unbounded branch count (every n-ary sum
// picks a carrier, recursively), so this is a pragmatic ceiling, not a
// spec-mandated constant.
const maxSolveSteps = 4000

// Solve runs the limit calculus to a fixed point (spec.md §4.11 "Solve"),
// backtracking over alternative decompositions via an explicit stack.
func Solve(ctx context.Context, d smt.Driver, guard []symb.Rel, problem Problem, timeout time.Duration) (Solution, bool) {
	stack := [][]Pair{problem.Pairs}
	steps := 0
	for len(stack) > 0 {
		steps++
		if steps > maxSolveSteps {
			return nil, false
		}
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		idx, unsolved := firstUnsolved(cur)
		if !unsolved {
			return buildSolution(cur), true
		}

		alts, dead := reduce(cur, idx)
		if dead {
			continue
		}
		if len(alts) > 0 {
			for _, alt := range alts {
				stack = append(stack, alt)
			}
			continue
		}
		if next, ok := instantiate(ctx, d, guard, cur, timeout); ok {
			stack = append(stack, next)
		}
	}
	return nil, false
}

func firstUnsolved(pairs []Pair) (int, bool) {
	for i, p := range pairs {
		if _, ok := p.Expr.(symb.Sym); !ok {
			return i, true
		}
	}
	return -1, false
}

func buildSolution(pairs []Pair) Solution {
	precedence := func(d Direction) int {
		switch d {
		case PosInf, NegInf, Pos:
			return 2
		default:
			return 1
		}
	}
	sol := make(Solution)
	for _, p := range pairs {
		s, ok := p.Expr.(symb.Sym)
		if !ok {
			continue
		}
		if cur, exists := sol[s.Var]; !exists || precedence(p.Dir) > precedence(cur) {
			sol[s.Var] = p.Dir
		}
	}
	return sol
}

// reduce tries the cheap structural transformations on pairs[idx], in the
// order spec.md §4.11 lists them: remove-constant, trim-polynomial,
// reduce-exponential, apply-limit-vector. alts holds one full replacement
// pair-list per alternative branch (len > 1 only when a rule is inherently
// a choice, e.g. which addend carries POS_INF); dead reports an
// irreconcilable constant (this branch cannot be solved).
func reduce(pairs []Pair, idx int) (alts [][]Pair, dead bool) {
	p := pairs[idx]
	rest := without(pairs, idx)

	if c, ok := p.Expr.(symb.Const); ok {
		if constSatisfies(c, p.Dir) {
			return [][]Pair{rest}, false
		}
		return nil, true
	}

	if np, ok := trimPolynomial(p); ok {
		return [][]Pair{append(append([]Pair{}, rest...), np)}, false
	}

	if p.Dir == PosInf || p.Dir == NegInf {
		if split, ok := reduceExp(p); ok {
			return [][]Pair{append(append([]Pair{}, rest...), split...)}, false
		}
	}

	if combos, ok := applyLimitVector(p); ok {
		out := make([][]Pair, 0, len(combos))
		for _, c := range combos {
			out = append(out, append(append([]Pair{}, rest...), c...))
		}
		return out, false
	}

	return nil, false
}

func without(pairs []Pair, idx int) []Pair {
	out := make([]Pair, 0, len(pairs)-1)
	out = append(out, pairs[:idx]...)
	out = append(out, pairs[idx+1:]...)
	return out
}

func constSatisfies(c symb.Const, dir Direction) bool {
	sign := c.Val.Sign()
	switch dir {
	case Pos, PosInf, PosCons:
		return sign > 0
	case NegInf, NegCons:
		return sign < 0
	default:
		return false
	}
}

// trimPolynomial replaces a univariate polynomial by its leading term
// (spec.md §4.11 "trim polynomial").
func trimPolynomial(p Pair) (Pair, bool) {
	add, ok := p.Expr.(*symb.Add)
	if !ok {
		return Pair{}, false
	}
	vs := symb.Vars(add)
	if len(vs) != 1 {
		return Pair{}, false
	}
	var v vars.Var
	for s := range vs {
		v = s.Var
	}
	d := symb.Degree(add, v)
	if d == 0 {
		return Pair{}, false
	}
	lead := symb.LCoeff(add, v)
	term := symb.Times(lead, symb.RaisePow(symb.NewSym(v), symb.NewConst(int64(d))))
	return Pair{Expr: term, Dir: p.Dir}, true
}

// reduceExp implements spec.md §4.11 "reduce exponential": `b^e + r`
// becomes the pair `{(b-1, POS), (e, POS_INF)}`. r is dropped: the
// exponential term dominates any polynomial remainder, so this is a sound
// over-approximation of the original pair's growth.
func reduceExp(p Pair) ([]Pair, bool) {
	pow, ok := extractPow(p.Expr)
	if !ok {
		return nil, false
	}
	return []Pair{
		{Expr: symb.Minus(pow.Base, symb.One), Dir: Pos},
		{Expr: pow.Exp, Dir: PosInf},
	}, true
}

// extractPow finds a *symb.Pow term in e, either e itself or as one addend
// of a sum (the only shapes spec.md §4.11's "b^e + r" pattern describes).
// Constant integer exponents never reach here: RaisePow already expands
// them eagerly, so a surviving *Pow always carries a genuinely symbolic
// exponent.
func extractPow(e symb.Expr) (*symb.Pow, bool) {
	switch v := e.(type) {
	case *symb.Pow:
		return v, true
	case *symb.Add:
		for _, a := range v.Args {
			if pw, ok := a.(*symb.Pow); ok {
				return pw, true
			}
		}
	}
	return nil, false
}

// addTable and mulTable are the compatible-limit-vector table (spec.md
// §4.11 "apply limit vector"), restricted to the addition/multiplication
// combinations the acceleration calculus and its test scenarios actually
// produce; the original's table additionally covers division, which has
// no corresponding node in this algebra (see internal/symb's expression
// variant list — division only ever appears as a frontend parsing concern
// gated by --allow-division, never as an Expr).
var addTable = map[Direction][][2]Direction{
	PosInf:  {{PosInf, PosCons}, {PosCons, PosInf}},
	NegInf:  {{NegInf, PosCons}, {PosCons, NegInf}},
	PosCons: {{PosCons, PosCons}},
	NegCons: {{NegCons, PosCons}},
	Pos:     {{Pos, PosCons}, {PosCons, Pos}},
}

var mulTable = map[Direction][][2]Direction{
	PosInf:  {{PosInf, PosCons}, {PosCons, PosInf}},
	NegInf:  {{PosInf, NegCons}, {NegCons, PosInf}, {NegInf, PosCons}, {PosCons, NegInf}},
	PosCons: {{PosCons, PosCons}, {NegCons, NegCons}},
	NegCons: {{PosCons, NegCons}, {NegCons, PosCons}},
	Pos:     {{Pos, PosCons}, {PosCons, Pos}},
}

func applyLimitVector(p Pair) ([][]Pair, bool) {
	switch v := p.Expr.(type) {
	case *symb.Add:
		if len(v.Args) < 2 {
			return nil, false
		}
		combos, ok := addTable[p.Dir]
		if !ok {
			return nil, false
		}
		first := v.Args[0]
		rest := symb.Plus(v.Args[1:]...)
		return splitCombos(first, rest, combos), true
	case *symb.Mul:
		if len(v.Args) < 2 {
			return nil, false
		}
		combos, ok := mulTable[p.Dir]
		if !ok {
			return nil, false
		}
		first := v.Args[0]
		rest := symb.Times(v.Args[1:]...)
		return splitCombos(first, rest, combos), true
	default:
		return nil, false
	}
}

func splitCombos(first, rest symb.Expr, combos [][2]Direction) [][]Pair {
	out := make([][]Pair, 0, len(combos))
	for _, c := range combos {
		out = append(out, []Pair{{Expr: first, Dir: c[0]}, {Expr: rest, Dir: c[1]}})
	}
	return out
}

// instantiate freezes one variable of a stuck pair to a value drawn from an
// SMT model of the original guard (spec.md §4.11 "instantiate a variable").
func instantiate(ctx context.Context, d smt.Driver, guard []symb.Rel, pairs []Pair, timeout time.Duration) ([]Pair, bool) {
	idx, unsolved := firstUnsolved(pairs)
	if !unsolved {
		return nil, false
	}
	v, ok := pickVar(pairs[idx].Expr)
	if !ok {
		return nil, false
	}

	d.Push()
	defer d.Pop()
	for _, r := range guard {
		d.Add(symb.FromRels(r))
	}
	qctx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		qctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	res, err := d.Check(qctx)
	if err != nil || res != smt.Sat {
		return nil, false
	}
	model, err := d.Model()
	if err != nil {
		return nil, false
	}
	val, ok := model[v]
	if !ok {
		return nil, false
	}

	s := symb.Subst{v: val}
	out := make([]Pair, len(pairs))
	for i, p := range pairs {
		out[i] = Pair{Expr: symb.Expand(symb.Subs(p.Expr, s)), Dir: p.Dir}
	}
	return out, true
}

func pickVar(e symb.Expr) (vars.Var, bool) {
	for s := range symb.Vars(e) {
		return s.Var, true
	}
	return vars.Var{}, false
}

// AnalyzeRule decides the complexity class of a single rule's guard+cost
// (spec.md §4.11 end to end: normalise, build problem, solve, derive bound).
// vm mints the fresh symbol `n` the solution is expressed over.
func AnalyzeRule(ctx context.Context, d smt.Driver, vm *vars.Manager, guard []symb.Rel, cost symb.Expr, timeout time.Duration) (complexity.Class, []string) {
	if symb.IsNonterm(cost) {
		guardSat, err := isSatisfiable(ctx, d, guard, timeout)
		if err == nil && guardSat {
			return complexity.NonTerm, []string{"cost is NONTERM and guard is satisfiable"}
		}
		return complexity.Const, []string{"cost is NONTERM but guard is unsatisfiable; rule never fires"}
	}

	problem, ok := BuildProblem(guard, cost)
	if !ok {
		return complexity.Unknown, []string{"guard contains a disequality, outside the limit problem's scope"}
	}

	sol, ok := Solve(ctx, d, guard, problem, timeout)
	if !ok {
		return complexity.Unknown, []string{"limit problem could not be solved within the search bound"}
	}

	n := vm.FreshUntracked("n")
	subst := make(symb.Subst, len(sol))
	growing := 0
	nonTempGrowing := 0
	for v, dir := range sol {
		switch dir {
		case Pos, PosInf:
			subst[v] = symb.NewSym(n)
			growing++
			if !v.IsTemp() {
				nonTempGrowing++
			}
		case NegInf:
			subst[v] = symb.Neg(symb.NewSym(n))
			growing++
			if !v.IsTemp() {
				nonTempGrowing++
			}
		case PosCons:
			subst[v] = symb.One
		case NegCons:
			subst[v] = symb.Neg(symb.One)
		}
	}

	if growing > 0 && nonTempGrowing == 0 {
		return complexity.Unbounded, []string{"a free variable tends to infinity but no non-temp variable accounts for it"}
	}

	costN := symb.Expand(symb.Subs(cost, subst))
	if mentionsExpExponent(costN, n) {
		return complexity.Exp, []string{"solution drives a term's exponent to infinity"}
	}
	if !symb.IsPolynomial(costN) {
		return complexity.Unknown, []string{"cost is not polynomial in the derived solution"}
	}
	degree := symb.Degree(costN, n)
	return complexity.Poly(degree), []string{"solution assigns the cost degree " + symb.NewConst(int64(degree)).String() + " in the fresh iteration symbol"}
}

func isSatisfiable(ctx context.Context, d smt.Driver, guard []symb.Rel, timeout time.Duration) (bool, error) {
	d.Push()
	defer d.Pop()
	for _, r := range guard {
		d.Add(symb.FromRels(r))
	}
	qctx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		qctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	res, err := d.Check(qctx)
	if err != nil {
		return false, err
	}
	return res == smt.Sat, nil
}

func mentionsExpExponent(e symb.Expr, n vars.Var) bool {
	switch v := e.(type) {
	case *symb.Pow:
		if _, ok := symb.Vars(v.Exp)[symb.NewSym(n)]; ok {
			return true
		}
		return mentionsExpExponent(v.Base, n) || mentionsExpExponent(v.Exp, n)
	case *symb.Add:
		for _, a := range v.Args {
			if mentionsExpExponent(a, n) {
				return true
			}
		}
	case *symb.Mul:
		for _, a := range v.Args {
			if mentionsExpExponent(a, n) {
				return true
			}
		}
	}
	return false
}
