package symb

import "github.com/aprove-developers/loat-go/internal/complexity"

// Complexity over-approximates the asymptotic growth of e as its variables
// tend to infinity (spec.md §4.1): constants map to Const, a single
// variable maps to Poly(1), sums are additive, products multiplicative, and
// `b^e` maps to Exp whenever e itself has nontrivial complexity (an integer
// constant exponent k in [0, 2^20] gives b's complexity raised to k; any
// other constant exponent gives b's complexity).
// Shapes the estimator cannot classify yield Unknown; NONTERM yields
// NonTerm.
func Complexity(e Expr) complexity.Class {
	switch x := e.(type) {
	case nontermT:
		return complexity.NonTerm
	case Const:
		return complexity.Const
	case Sym:
		return complexity.Poly(1)
	case *Add:
		c := complexity.Const
		for _, a := range x.Args {
			c = complexity.Add(c, Complexity(a))
		}
		return c
	case *Mul:
		c := complexity.Const
		for _, a := range x.Args {
			c = complexity.Mul(c, Complexity(a))
		}
		return c
	case *Pow:
		expC := Complexity(x.Exp)
		if expC.IsConst() {
			if ic, ok := x.Exp.(Const); ok && ic.Val.IsInt() {
				n := ic.Val.Num().Int64()
				if n >= 0 && n <= 1<<20 {
					return complexity.Pow(Complexity(x.Base), int(n))
				}
			}
			return Complexity(x.Base)
		}
		if expC.IsUnknown() {
			return complexity.Unknown
		}
		return complexity.Exp
	default:
		return complexity.Unknown
	}
}
