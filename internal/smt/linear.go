package smt

import (
	"math/big"

	"github.com/aprove-developers/loat-go/internal/symb"
	"github.com/aprove-developers/loat-go/internal/vars"
)

// linConstraint is a linear constraint sum(coeff[v]*v) + const `cmp` 0,
// where cmp is either "> 0" (strict) or ">= 0". Every Rel the linear
// backend accepts is normalised into this shape by linearize.
type linConstraint struct {
	coeff  map[vars.Var]*big.Rat
	konst  *big.Rat
	strict bool
}

// linearize converts r into a linConstraint, returning ok=false if r is not
// linear, including products of distinct variables that IsLinear admits
// (the caller then falls back to the nonlinear procedure). A constraint
// whose variables are all Int and whose coefficients and constant are all
// integral is tightened from `t > 0` to `t - 1 >= 0`.
func linearize(r symb.Rel) (linConstraint, bool) {
	gz := r.ToGreaterZero() // handles <, <=, >, >=; Eq/Ne go through linearizeEq
	if r.Op != symb.Gt && r.Op != symb.Ge && r.Op != symb.Lt && r.Op != symb.Le {
		return linConstraint{}, false
	}
	expanded := symb.Expand(gz.Lhs)
	if !symb.IsLinear(expanded) {
		return linConstraint{}, false
	}
	terms := []symb.Expr{expanded}
	if sum, isSum := expanded.(*symb.Add); isSum {
		terms = sum.Args
	}
	for _, t := range terms {
		if len(symb.Vars(t)) > 1 {
			return linConstraint{}, false
		}
	}
	c := linConstraint{coeff: make(map[vars.Var]*big.Rat), konst: big.NewRat(0, 1), strict: true}
	flattenLinear(expanded, big.NewRat(1, 1), &c)
	integral := c.konst.IsInt()
	for v, k := range c.coeff {
		integral = integral && k.IsInt() && v.Type() == vars.Int
	}
	if integral {
		c.konst.Sub(c.konst, big.NewRat(1, 1))
		c.strict = false
	}
	return c, true
}

// flattenLinear accumulates scale*term into c, recursing through Add/Mul.
func flattenLinear(term symb.Expr, scale *big.Rat, c *linConstraint) {
	switch x := term.(type) {
	case symb.Const:
		v := new(big.Rat).Mul(scale, x.Val)
		c.konst.Add(c.konst, v)
	case symb.Sym:
		cur, ok := c.coeff[x.Var]
		if !ok {
			cur = big.NewRat(0, 1)
		}
		cur = new(big.Rat).Add(cur, scale)
		c.coeff[x.Var] = cur
	case *symb.Add:
		for _, a := range x.Args {
			flattenLinear(a, scale, c)
		}
	case *symb.Mul:
		// Linear by construction (linearize rejected products of
		// variables); at most one non-constant factor, rest are constants
		// folded into scale.
		s := new(big.Rat).Set(scale)
		var sym *symb.Sym
		for _, a := range x.Args {
			switch y := a.(type) {
			case symb.Const:
				s.Mul(s, y.Val)
			case symb.Sym:
				yy := y
				sym = &yy
			}
		}
		if sym != nil {
			flattenLinear(*sym, s, c)
		} else {
			c.konst.Add(c.konst, s)
		}
	}
}

// eqToLinear splits an Eq relation into two >= constraints, mirroring
// spec.md §4.11 step 1 ("split equalities into two inequalities").
func eqToLinear(r symb.Rel) ([]linConstraint, bool) {
	ge1, ge2 := r.SplitEquality()
	c1, ok1 := linearize(ge1)
	if !ok1 {
		return nil, false
	}
	c2, ok2 := linearize(ge2)
	if !ok2 {
		return nil, false
	}
	return []linConstraint{c1, c2}, true
}

// conjunctConstraints linearizes every relation in a conjunction, returning
// ok=false at the first non-linear literal.
func conjunctConstraints(rels []symb.Rel) ([]linConstraint, bool) {
	var out []linConstraint
	for _, r := range rels {
		if r.Op == symb.Eq {
			cs, ok := eqToLinear(r)
			if !ok {
				return nil, false
			}
			out = append(out, cs...)
			continue
		}
		if r.Op == symb.Ne {
			return nil, false // disequality is not convex; caller falls back
		}
		c, ok := linearize(r)
		if !ok {
			return nil, false
		}
		out = append(out, c)
	}
	return out, true
}
