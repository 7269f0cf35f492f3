package symb

import "github.com/aprove-developers/loat-go/internal/vars"

// Subst is a variable -> expression substitution map (spec.md §3 "ExprMap
// substitution map").
type Subst map[vars.Var]Expr

// Get returns the replacement for v, or Sym{v} if v is not mapped (the
// identity case: "missing entries mean identity", spec.md §3 Update).
func (s Subst) Get(v vars.Var) Expr {
	if e, ok := s[v]; ok {
		return e
	}
	return Sym{Var: v}
}

// Subs applies s to e, recursing structurally. Handles the nonlinear case
// (substituting into `x^2`) by simple structural recursion into Base and
// Exp, matching spec.md §4.1 "Substitution must handle the nonlinear case
// (x^2 := y) by structural match" — the match is on the Sym leaves, not on
// reassembled subexpressions, so `x^2` substituted by `{x: y}` correctly
// yields `y^2`.
func Subs(e Expr, s Subst) Expr {
	switch x := e.(type) {
	case Const:
		return x
	case Sym:
		return s.Get(x.Var)
	case *Add:
		terms := make([]Expr, len(x.Args))
		for i, a := range x.Args {
			terms[i] = Subs(a, s)
		}
		return Plus(terms...)
	case *Mul:
		terms := make([]Expr, len(x.Args))
		for i, a := range x.Args {
			terms[i] = Subs(a, s)
		}
		return Times(terms...)
	case *Pow:
		return RaisePow(Subs(x.Base, s), Subs(x.Exp, s))
	case nontermT:
		return x
	default:
		return e
	}
}

// Compose returns a substitution equivalent to applying b then a (a ∘ b),
// matching spec.md §8's substitution-as-monoid-homomorphism law
// `subs(a) ∘ subs(b) = subs(a ∘ b)`.
func Compose(a, b Subst) Subst {
	out := make(Subst, len(a)+len(b))
	for v, e := range b {
		out[v] = Subs(e, a)
	}
	for v, e := range a {
		if _, already := out[v]; !already {
			out[v] = e
		}
	}
	return out
}
