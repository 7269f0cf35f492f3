package symb

import "github.com/aprove-developers/loat-go/internal/vars"

// Degree returns the degree of e in v (the highest exponent v is raised to
// across any additive term), 0 if v does not occur.
func Degree(e Expr, v vars.Var) int {
	switch x := e.(type) {
	case Const:
		return 0
	case Sym:
		if x.Var == v {
			return 1
		}
		return 0
	case *Add:
		max := 0
		for _, a := range x.Args {
			if d := Degree(a, v); d > max {
				max = d
			}
		}
		return max
	case *Mul:
		sum := 0
		for _, a := range x.Args {
			sum += Degree(a, v)
		}
		return sum
	case *Pow:
		if c, ok := x.Exp.(Const); ok && c.Val.IsInt() {
			return Degree(x.Base, v) * int(c.Val.Num().Int64())
		}
		return 0
	default:
		return 0
	}
}

// LDegree returns the lowest degree of v across any additive term of e (the
// "low degree", used by the limit calculus's polynomial trimming, spec.md
// §4.11).
func LDegree(e Expr, v vars.Var) int {
	add, ok := e.(*Add)
	if !ok {
		return Degree(e, v)
	}
	min := -1
	for _, a := range add.Args {
		d := Degree(a, v)
		if min == -1 || d < min {
			min = d
		}
	}
	if min == -1 {
		return 0
	}
	return min
}

// Coeff extracts the coefficient of v^degree in e, treating e as a
// polynomial in v. Non-matching terms contribute nothing.
func Coeff(e Expr, v vars.Var, degree int) Expr {
	switch x := e.(type) {
	case *Add:
		terms := make([]Expr, 0, len(x.Args))
		for _, a := range x.Args {
			terms = append(terms, Coeff(a, v, degree))
		}
		return Plus(terms...)
	default:
		d, rest := splitTerm(e, v)
		if d == degree {
			return rest
		}
		return Zero
	}
}

// LCoeff extracts the coefficient of the leading (highest-degree) term of e
// in v.
func LCoeff(e Expr, v vars.Var) Expr {
	return Coeff(e, v, Degree(e, v))
}

// splitTerm decomposes a single multiplicative term into (degree in v, the
// rest of the term with v's factor removed).
func splitTerm(e Expr, v vars.Var) (int, Expr) {
	switch x := e.(type) {
	case Sym:
		if x.Var == v {
			return 1, One
		}
		return 0, e
	case *Pow:
		if base, ok := x.Base.(Sym); ok && base.Var == v {
			if c, ok := x.Exp.(Const); ok && c.Val.IsInt() {
				return int(c.Val.Num().Int64()), One
			}
		}
		return 0, e
	case *Mul:
		degree := 0
		var rest []Expr
		for _, a := range x.Args {
			d, r := splitTerm(a, v)
			degree += d
			if !Equal(r, One) {
				rest = append(rest, r)
			}
		}
		return degree, Times(rest...)
	default:
		return 0, e
	}
}

// Expand distributes products over sums and flattens nested powers into an
// additive normal form (spec.md §3 "expansion").
func Expand(e Expr) Expr {
	switch x := e.(type) {
	case *Add:
		terms := make([]Expr, len(x.Args))
		for i, a := range x.Args {
			terms[i] = Expand(a)
		}
		return Plus(terms...)
	case *Mul:
		acc := Expr(One)
		for _, a := range x.Args {
			acc = expandMulOne(acc, Expand(a))
		}
		return acc
	case *Pow:
		base := Expand(x.Base)
		if c, ok := x.Exp.(Const); ok && c.Val.IsInt() && c.Val.Sign() >= 0 {
			return Expand(RaisePow(base, c))
		}
		return &Pow{Base: base, Exp: Expand(x.Exp)}
	default:
		return e
	}
}

// expandMulOne distributes a*b where either operand may be a sum.
func expandMulOne(a, b Expr) Expr {
	aAdd, aIsAdd := a.(*Add)
	bAdd, bIsAdd := b.(*Add)
	switch {
	case aIsAdd && bIsAdd:
		var terms []Expr
		for _, ai := range aAdd.Args {
			for _, bi := range bAdd.Args {
				terms = append(terms, Times(ai, bi))
			}
		}
		return Plus(terms...)
	case aIsAdd:
		terms := make([]Expr, len(aAdd.Args))
		for i, ai := range aAdd.Args {
			terms[i] = Times(ai, b)
		}
		return Plus(terms...)
	case bIsAdd:
		terms := make([]Expr, len(bAdd.Args))
		for i, bi := range bAdd.Args {
			terms[i] = Times(a, bi)
		}
		return Plus(terms...)
	default:
		return Times(a, b)
	}
}
