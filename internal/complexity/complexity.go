// Package complexity implements the asymptotic complexity lattice used to
// classify rule costs and guard/cost pairs throughout the analysis.
package complexity

import "fmt"

// Class is a point in the totally ordered complexity lattice
//
//	Unknown < Const < Poly(1) < Poly(2) < ... < Exp < Unbounded
//
// Unbounded is used both for "provably unbounded" runtime and for
// non-termination (NonTerm); the two are distinguished by the caller, not by
// the lattice itself, since spec.md defines Unbounded = NonTerm as the same
// top element.
type Class struct {
	kind   kind
	degree int // meaningful only when kind == kindPoly
}

type kind int

const (
	kindUnknown kind = iota
	kindConst
	kindPoly
	kindExp
	kindUnbounded
)

var (
	Unknown   = Class{kind: kindUnknown}
	Const     = Class{kind: kindConst}
	Exp       = Class{kind: kindExp}
	Unbounded = Class{kind: kindUnbounded}
	NonTerm   = Unbounded
)

// Poly returns the complexity class for a polynomial of the given degree.
// Degree 0 is equivalent to Const.
func Poly(degree int) Class {
	if degree <= 0 {
		return Const
	}
	return Class{kind: kindPoly, degree: degree}
}

// Degree returns the polynomial degree, or -1 if this class is not Poly(k).
func (c Class) Degree() int {
	if c.kind != kindPoly {
		return -1
	}
	return c.degree
}

func (c Class) IsPoly() bool     { return c.kind == kindPoly }
func (c Class) IsConst() bool    { return c.kind == kindConst }
func (c Class) IsUnknown() bool  { return c.kind == kindUnknown }
func (c Class) IsExp() bool      { return c.kind == kindExp }
func (c Class) IsUnbounded() bool { return c.kind == kindUnbounded }

// rank assigns each kind its place in the total order; Poly classes are then
// broken down further by degree.
func (c Class) rank() (int, int) {
	switch c.kind {
	case kindUnknown:
		return 0, 0
	case kindConst:
		return 1, 0
	case kindPoly:
		return 2, c.degree
	case kindExp:
		return 3, 0
	case kindUnbounded:
		return 4, 0
	default:
		return -1, 0
	}
}

// Less reports whether c is strictly below other in the lattice order.
func (c Class) Less(other Class) bool {
	ca, cb := c.rank()
	ob, odeg := other.rank()
	if ca != ob {
		return ca < ob
	}
	return cb < odeg
}

// LessEq reports whether c is at most other.
func (c Class) LessEq(other Class) bool {
	return c == other || c.Less(other)
}

// Max returns the larger of the two classes in the lattice order.
func Max(a, b Class) Class {
	if a.Less(b) {
		return b
	}
	return a
}

// Add computes the complexity of a sum of two terms with the given
// complexities: the dominant (larger) of the two.
func Add(a, b Class) Class {
	if a.kind == kindUnbounded || b.kind == kindUnbounded {
		return Unbounded
	}
	if a.kind == kindUnknown || b.kind == kindUnknown {
		if a.kind == kindUnknown && b.kind == kindUnknown {
			return Unknown
		}
		return Max(a, b)
	}
	return Max(a, b)
}

// Mul computes the complexity of a product of two terms.
func Mul(a, b Class) Class {
	if a.kind == kindUnbounded || b.kind == kindUnbounded {
		return Unbounded
	}
	if a.kind == kindUnknown || b.kind == kindUnknown {
		return Unknown
	}
	if a.kind == kindExp || b.kind == kindExp {
		return Exp
	}
	if a.kind == kindConst {
		return b
	}
	if b.kind == kindConst {
		return a
	}
	// Poly(i) * Poly(j) = Poly(i+j)
	return Poly(a.degree + b.degree)
}

// Pow computes the complexity of base^exp, where exp is itself a natural
// number exponent known at analysis time (not a complexity-valued exponent;
// that case is handled by the expression estimator directly, see
// internal/symb).
func Pow(base Class, exp int) Class {
	if exp <= 0 {
		return Const
	}
	result := base
	for i := 1; i < exp; i++ {
		result = Mul(result, base)
	}
	return result
}

func (c Class) String() string {
	switch c.kind {
	case kindUnknown:
		return "?"
	case kindConst:
		return "O(1)"
	case kindPoly:
		if c.degree == 1 {
			return "O(n)"
		}
		return fmt.Sprintf("O(n^%d)", c.degree)
	case kindExp:
		return "O(EXP)"
	case kindUnbounded:
		return "NON_TERM"
	default:
		return "?"
	}
}

// WSTLine renders the WST-style complexity line required by spec.md §6.
func (c Class) WSTLine() string {
	switch c.kind {
	case kindUnknown:
		return "MAYBE"
	case kindConst:
		return "WORST_CASE(Ω(1), ?)"
	case kindPoly:
		return fmt.Sprintf("WORST_CASE(Ω(n^%d), ?)", c.degree)
	case kindExp:
		return "WORST_CASE(Ω(EXP), ?)"
	case kindUnbounded:
		return "WORST_CASE(NON_TERM, ?)"
	default:
		return "MAYBE"
	}
}
