package symb

import "math/big"

// Vars collects every Sym appearing in e (spec.md §3 "variable collection").
func Vars(e Expr) map[Sym]struct{} {
	out := make(map[Sym]struct{})
	collectVars(e, out)
	return out
}

func collectVars(e Expr, out map[Sym]struct{}) {
	switch v := e.(type) {
	case Sym:
		out[v] = struct{}{}
	case *Add:
		for _, a := range v.Args {
			collectVars(a, out)
		}
	case *Mul:
		for _, a := range v.Args {
			collectVars(a, out)
		}
	case *Pow:
		collectVars(v.Base, out)
		collectVars(v.Exp, out)
	}
}

// IsIntegerConstant reports whether e is a Const with integer value.
func IsIntegerConstant(e Expr) bool {
	c, ok := e.(Const)
	return ok && c.Val.IsInt()
}

// IsRationalConstant reports whether e is any Const.
func IsRationalConstant(e Expr) bool {
	_, ok := e.(Const)
	return ok
}

// IsProperRational reports whether e is a Const with a non-integer value.
func IsProperRational(e Expr) bool {
	c, ok := e.(Const)
	return ok && !c.Val.IsInt()
}

// IsProperNaturalPower reports whether e is Pow(base, k) with k an integer
// constant strictly greater than 1 (a "proper" power, as opposed to a
// symbolic exponent).
func IsProperNaturalPower(e Expr) bool {
	p, ok := e.(*Pow)
	if !ok {
		return false
	}
	c, ok := p.Exp.(Const)
	return ok && c.Val.IsInt() && c.Val.Cmp(big.NewRat(1, 1)) > 0
}

// IsLinear reports whether e is a polynomial of degree at most 1 in every
// variable it mentions.
func IsLinear(e Expr) bool {
	return isPolynomialDegree(e, 1)
}

// IsPolynomial reports whether e contains no symbolic (non-constant)
// exponents and no division.
func IsPolynomial(e Expr) bool {
	switch v := e.(type) {
	case Const, Sym:
		return true
	case *Add:
		for _, a := range v.Args {
			if !IsPolynomial(a) {
				return false
			}
		}
		return true
	case *Mul:
		for _, a := range v.Args {
			if !IsPolynomial(a) {
				return false
			}
		}
		return true
	case *Pow:
		c, ok := v.Exp.(Const)
		return ok && c.Val.IsInt() && c.Val.Sign() >= 0 && IsPolynomial(v.Base)
	default:
		return false
	}
}

// IsPolynomialWithIntegerCoeffs additionally requires every constant
// appearing in e to be an integer.
func IsPolynomialWithIntegerCoeffs(e Expr) bool {
	if !IsPolynomial(e) {
		return false
	}
	ok := true
	var walk func(Expr)
	walk = func(x Expr) {
		switch v := x.(type) {
		case Const:
			if !v.Val.IsInt() {
				ok = false
			}
		case *Add:
			for _, a := range v.Args {
				walk(a)
			}
		case *Mul:
			for _, a := range v.Args {
				walk(a)
			}
		case *Pow:
			walk(v.Base)
		}
	}
	walk(e)
	return ok
}

func isPolynomialDegree(e Expr, max int) bool {
	if !IsPolynomial(e) {
		return false
	}
	for v := range Vars(e) {
		if Degree(e, v.Var) > max {
			return false
		}
	}
	return true
}

// MaxDegree returns the highest degree of any variable appearing in e, or 0
// if e mentions no variable (spec.md §3 "degree/coefficient extraction").
func MaxDegree(e Expr) int {
	max := 0
	for v := range Vars(e) {
		if d := Degree(e, v.Var); d > max {
			max = d
		}
	}
	return max
}
