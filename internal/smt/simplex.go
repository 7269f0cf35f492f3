package smt

import (
	"math/big"

	"github.com/aprove-developers/loat-go/internal/vars"
)

// stage records, for one eliminated variable, the constraints that
// mentioned it before elimination — kept so a witness model can be
// reconstructed by back-substitution once feasibility of the
// fully-eliminated system is confirmed.
type stage struct {
	v       vars.Var
	related []linConstraint
}

// feasibility runs Fourier-Motzkin elimination on cs: a conjunction of
// linear constraints "sum(coeff*v) + konst > 0 (or >= 0)". It returns
// whether the system is satisfiable over the rationals and, if so, a
// witness assignment (spec.md §4.4 "model() defined only after Sat").
//
// This is not a complete decision procedure for integer linear arithmetic
// (it decides the rational relaxation); acceleration/metering queries in
// this codebase only ever need a witness or an unsatisfiability certificate
// for conjunctions Farkas' lemma already turned existential, so the
// rational relaxation is sound for our purposes. Strict constraints over
// Int variables arrive here already tightened to non-strict ones by
// linearize; the returned witness is rational and is not rounded.
func feasibility(cs []linConstraint) (bool, map[vars.Var]*big.Rat) {
	varSet := make(map[vars.Var]struct{})
	for _, c := range cs {
		for v := range c.coeff {
			varSet[v] = struct{}{}
		}
	}
	order := make([]vars.Var, 0, len(varSet))
	for v := range varSet {
		order = append(order, v)
	}

	remaining := cloneConstraints(cs)
	var stages []stage

	for _, v := range order {
		var lower, upper, unrelated []linConstraint
		for _, c := range remaining {
			coeff, has := c.coeff[v]
			if !has || coeff.Sign() == 0 {
				unrelated = append(unrelated, c)
				continue
			}
			if coeff.Sign() > 0 {
				lower = append(lower, c)
			} else {
				upper = append(upper, c)
			}
		}
		stages = append(stages, stage{v: v, related: append(append([]linConstraint{}, lower...), upper...)})

		var combined []linConstraint
		for _, lo := range lower {
			for _, up := range upper {
				nc, ok := combine(lo, up, v)
				if ok {
					combined = append(combined, nc)
				}
			}
		}
		remaining = append(unrelated, combined...)
	}

	for _, c := range remaining {
		ok := c.konst.Sign() > 0 || (!c.strict && c.konst.Sign() == 0)
		if !ok {
			return false, nil
		}
	}

	model := backSubstitute(stages)
	return true, model
}

// combine eliminates v between a lower-bound constraint lo (positive
// coefficient) and an upper-bound constraint up (negative coefficient),
// producing the classic Fourier-Motzkin resolvent.
func combine(lo, up linConstraint, v vars.Var) (linConstraint, bool) {
	a := lo.coeff[v] // > 0
	b := new(big.Rat).Neg(up.coeff[v]) // > 0, since up's coeff is negative

	out := linConstraint{coeff: make(map[vars.Var]*big.Rat), konst: big.NewRat(0, 1), strict: lo.strict || up.strict}

	addScaled(out.coeff, lo.coeff, b, v)
	addScaled(out.coeff, up.coeff, a, v)
	out.konst.Add(out.konst, new(big.Rat).Mul(b, lo.konst))
	out.konst.Add(out.konst, new(big.Rat).Mul(a, up.konst))

	delete(out.coeff, v)
	return out, true
}

func addScaled(dst map[vars.Var]*big.Rat, src map[vars.Var]*big.Rat, scale *big.Rat, skip vars.Var) {
	for v, c := range src {
		if v == skip {
			continue
		}
		cur, ok := dst[v]
		if !ok {
			cur = big.NewRat(0, 1)
		}
		dst[v] = new(big.Rat).Add(cur, new(big.Rat).Mul(scale, c))
	}
}

func cloneConstraints(cs []linConstraint) []linConstraint {
	out := make([]linConstraint, len(cs))
	for i, c := range cs {
		nc := linConstraint{coeff: make(map[vars.Var]*big.Rat, len(c.coeff)), konst: new(big.Rat).Set(c.konst), strict: c.strict}
		for v, k := range c.coeff {
			nc.coeff[v] = new(big.Rat).Set(k)
		}
		out[i] = nc
	}
	return out
}

// backSubstitute assigns each eliminated variable a concrete rational value
// consistent with every constraint that mentioned it, processing stages in
// reverse elimination order so that every later (already-assigned)
// variable it depends on already has a value.
func backSubstitute(stages []stage) map[vars.Var]*big.Rat {
	model := make(map[vars.Var]*big.Rat)
	for i := len(stages) - 1; i >= 0; i-- {
		s := stages[i]
		var lowerBound, upperBound *big.Rat
		lowerStrict, upperStrict := false, false
		for _, c := range s.related {
			coeff := c.coeff[s.v]
			// evaluate the constant term of c with every other variable's
			// current assignment substituted in.
			rest := new(big.Rat).Set(c.konst)
			for v, k := range c.coeff {
				if v == s.v {
					continue
				}
				if val, ok := model[v]; ok {
					rest.Add(rest, new(big.Rat).Mul(k, val))
				}
			}
			// coeff*v + rest > 0 (or >= 0)  =>  v >? -rest/coeff
			bound := new(big.Rat).Neg(rest)
			bound.Quo(bound, coeff)
			if coeff.Sign() > 0 {
				if lowerBound == nil || bound.Cmp(lowerBound) > 0 {
					lowerBound = bound
					lowerStrict = c.strict
				}
			} else {
				if upperBound == nil || bound.Cmp(upperBound) < 0 {
					upperBound = bound
					upperStrict = c.strict
				}
			}
		}
		model[s.v] = pickWitness(lowerBound, lowerStrict, upperBound, upperStrict)
	}
	return model
}

// pickWitness chooses a concrete rational inside (lower, upper) (using the
// strictness flags to decide whether the endpoints themselves qualify).
func pickWitness(lower *big.Rat, lowerStrict bool, upper *big.Rat, upperStrict bool) *big.Rat {
	one := big.NewRat(1, 1)
	switch {
	case lower == nil && upper == nil:
		return big.NewRat(0, 1)
	case lower == nil:
		v := new(big.Rat).Set(upper)
		if upperStrict {
			v.Sub(v, one)
		}
		return v
	case upper == nil:
		v := new(big.Rat).Set(lower)
		if lowerStrict {
			v.Add(v, one)
		}
		return v
	default:
		mid := new(big.Rat).Add(lower, upper)
		mid.Quo(mid, big.NewRat(2, 1))
		return mid
	}
}
