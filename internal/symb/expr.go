// Package symb implements the expression algebra (spec.md §4.1, C1): a
// sealed arithmetic-expression type, relations, Boolean guard formulas and
// the syntactic complexity estimator, following the teacher's sealed
// interface pattern (internal/ast.Expr in the teacher repo) rather than a
// class hierarchy with virtual dispatch — per spec.md §9 "Dynamic dispatch
// in the expression/Boolean AST".
package symb

import (
	"fmt"
	"math/big"
	"sort"
	"strings"

	"github.com/aprove-developers/loat-go/internal/vars"
)

// Expr is the sealed arithmetic expression type. Concrete variants are
// Const, Sym, Add, Mul, Pow and the distinguished Nonterm sentinel.
type Expr interface {
	isExpr()
	String() string
}

func (Const) isExpr()   {}
func (Sym) isExpr()     {}
func (*Add) isExpr()    {}
func (*Mul) isExpr()    {}
func (*Pow) isExpr()    {}
func (nontermT) isExpr() {}

// Const is a rational constant.
type Const struct {
	Val *big.Rat
}

// NewConst wraps an integer constant.
func NewConst(i int64) Const { return Const{Val: big.NewRat(i, 1)} }

// NewConstRat wraps an arbitrary rational constant.
func NewConstRat(r *big.Rat) Const { return Const{Val: new(big.Rat).Set(r)} }

func (c Const) String() string {
	if c.Val.IsInt() {
		return c.Val.Num().String()
	}
	return c.Val.RatString()
}

// Sym is a reference to a program or temporary variable.
type Sym struct {
	Var vars.Var
}

func NewSym(v vars.Var) Sym { return Sym{Var: v} }

func (s Sym) String() string { return s.Var.Name() }

// Add is an n-ary sum. Built by Plus, which flattens nested sums and folds
// constants.
type Add struct {
	Args []Expr
}

func (a *Add) String() string {
	parts := make([]string, len(a.Args))
	for i, e := range a.Args {
		parts[i] = e.String()
	}
	return "(" + strings.Join(parts, " + ") + ")"
}

// Mul is an n-ary product. Built by Times, which flattens nested products
// and folds constants.
type Mul struct {
	Args []Expr
}

func (m *Mul) String() string {
	parts := make([]string, len(m.Args))
	for i, e := range m.Args {
		parts[i] = e.String()
	}
	return "(" + strings.Join(parts, " * ") + ")"
}

// Pow is Base raised to Exp. Exp is itself an expression (not necessarily a
// constant) so that accelerated rules can express costs like `2^n`; the
// complexity estimator treats a non-constant Exp specially (spec.md §4.1).
type Pow struct {
	Base Expr
	Exp  Expr
}

func (p *Pow) String() string {
	return fmt.Sprintf("%s^%s", p.Base.String(), p.Exp.String())
}

// nontermT is the distinguished NONTERM sentinel, legal only inside a
// rule's cost field (spec.md §3 Expression).
type nontermT struct{}

// Nonterm is the unique NONTERM sentinel value.
var Nonterm Expr = nontermT{}

func (nontermT) String() string { return "NONTERM" }

// IsNonterm reports whether e is the NONTERM sentinel.
func IsNonterm(e Expr) bool {
	_, ok := e.(nontermT)
	return ok
}

// Zero and One are the commonly-needed constants.
var (
	Zero = NewConst(0)
	One  = NewConst(1)
)

// Plus builds a flattened, constant-folded sum. A single remaining operand
// is returned unwrapped; an empty sum is Zero.
func Plus(args ...Expr) Expr {
	var flat []Expr
	acc := big.NewRat(0, 1)
	for _, a := range args {
		switch v := a.(type) {
		case Const:
			acc.Add(acc, v.Val)
		case *Add:
			for _, inner := range v.Args {
				if c, ok := inner.(Const); ok {
					acc.Add(acc, c.Val)
				} else {
					flat = append(flat, inner)
				}
			}
		default:
			flat = append(flat, a)
		}
	}
	if acc.Sign() != 0 || len(flat) == 0 {
		flat = append(flat, NewConstRat(acc))
	}
	if len(flat) == 1 {
		return flat[0]
	}
	sortExprs(flat)
	return &Add{Args: flat}
}

// Times builds a flattened, constant-folded product. Multiplying by a
// literal zero collapses the whole product to Zero.
func Times(args ...Expr) Expr {
	var flat []Expr
	acc := big.NewRat(1, 1)
	for _, a := range args {
		switch v := a.(type) {
		case Const:
			acc.Mul(acc, v.Val)
		case *Mul:
			for _, inner := range v.Args {
				if c, ok := inner.(Const); ok {
					acc.Mul(acc, c.Val)
				} else {
					flat = append(flat, inner)
				}
			}
		default:
			flat = append(flat, a)
		}
	}
	if acc.Sign() == 0 {
		return Zero
	}
	if acc.Cmp(big.NewRat(1, 1)) != 0 || len(flat) == 0 {
		flat = append(flat, NewConstRat(acc))
	}
	if len(flat) == 1 {
		return flat[0]
	}
	sortExprs(flat)
	return &Mul{Args: flat}
}

// Neg is unary negation, expressed as multiplication by -1 (the algebra has
// no dedicated Neg variant, matching spec.md §3's "closed under +, -, x, /").
func Neg(e Expr) Expr { return Times(NewConst(-1), e) }

// Minus is a - b.
func Minus(a, b Expr) Expr { return Plus(a, Neg(b)) }

// RaisePow builds base^exp. An integer constant exponent from 1 to 64 is
// expanded eagerly into a product so that degree/coefficient extraction
// (spec.md §4.1) can see through it without special-casing Pow, and
// exponent 0 yields One; any other exponent shape (a variable, a negative,
// larger or non-integer constant) is kept symbolic.
func RaisePow(base Expr, exp Expr) Expr {
	if c, ok := exp.(Const); ok && c.Val.IsInt() {
		n := c.Val.Num().Int64()
		if n == 0 {
			return One
		}
		if n > 0 && n <= 64 {
			args := make([]Expr, n)
			for i := range args {
				args[i] = base
			}
			return Times(args...)
		}
	}
	return &Pow{Base: base, Exp: exp}
}

// canonKey produces a total order key used to sort Add/Mul operands into a
// canonical order, which is how this package implements "syntactic equality
// up to canonical form" (spec.md §3) without a separate normalisation pass.
func canonKey(e Expr) string {
	switch v := e.(type) {
	case Const:
		return "0:" + v.Val.RatString()
	case Sym:
		return "1:" + v.Var.Name()
	case *Pow:
		return "2:" + canonKey(v.Base) + "^" + canonKey(v.Exp)
	case *Mul:
		keys := make([]string, len(v.Args))
		for i, a := range v.Args {
			keys[i] = canonKey(a)
		}
		sort.Strings(keys)
		return "3:" + strings.Join(keys, ",")
	case *Add:
		keys := make([]string, len(v.Args))
		for i, a := range v.Args {
			keys[i] = canonKey(a)
		}
		sort.Strings(keys)
		return "4:" + strings.Join(keys, ",")
	case nontermT:
		return "5:NONTERM"
	default:
		return "9:?"
	}
}

func sortExprs(es []Expr) {
	sort.Slice(es, func(i, j int) bool { return canonKey(es[i]) < canonKey(es[j]) })
}

// Equal reports structural equality up to canonical form (spec.md §3).
func Equal(a, b Expr) bool {
	return canonKey(a) == canonKey(b)
}
