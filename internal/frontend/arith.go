package frontend

import (
	"strconv"

	"github.com/alecthomas/participle/v2/lexer"

	"github.com/aprove-developers/loat-go/internal/errors"
	"github.com/aprove-developers/loat-go/internal/symb"
	"github.com/aprove-developers/loat-go/internal/vars"
)

// The infix arithmetic grammar shared by the KoAT and T2 front-ends
// (spec.md §6's "inequalities over integer polynomial expressions" / T2's
// `x := expr;`), following the teacher's precedence-by-nesting pattern
// (grammar/grammar.go's Expr/BinaryExpr/UnaryExpr chain) but split into one
// struct per precedence level so that `+`/`-` bind looser than `*`/`/`,
// which bind looser than `^` — precedence the teacher's single flat BinOp
// chain does not need, since LoAT's polynomial degree arithmetic does.

type arithExpr struct {
	Left *arithTerm    `@@`
	Ops  []*arithAddOp `{ @@ }`
}

type arithAddOp struct {
	Op   string     `@("+" | "-")`
	Term *arithTerm `@@`
}

type arithTerm struct {
	Left *arithUnary   `@@`
	Ops  []*arithMulOp `{ @@ }`
}

type arithMulOp struct {
	Pos   lexer.Position
	Op    string      `@("*" | "/")`
	Value *arithUnary `@@`
}

type arithUnary struct {
	Neg   bool        `[ @"-" ]`
	Power *arithPower `@@`
}

type arithPower struct {
	Base *arithPrimary `@@`
	Exp  *arithUnary   `[ "^" @@ ]`
}

type arithPrimary struct {
	Pos    lexer.Position
	Nondet bool       `  @"nondet" "(" ")"`
	Number *string    `| @Int`
	Ident  *string    `| @Ident`
	Sub    *arithExpr `| "(" @@ ")"`
}

// arithCtx carries the state a term needs to lower into a symb.Expr: the
// variable manager (for fresh nondet/division placeholders), the front-end's
// name -> variable table and the --allow-division policy.
type arithCtx struct {
	vm       *vars.Manager
	lookup   map[string]vars.Var
	allowDiv bool
	filename string
	opaque   int
}

// freshOpaque allocates an unconstrained temporary standing in for a value
// LoAT's expression algebra cannot represent precisely: a `nondet()` call or
// (when --allow-division permits it) a division result. Treating both the
// same way is deliberate: --allow-division is documented as unsound, and an
// unconstrained placeholder is exactly as unsound as the teacher's `nondet`
// case, so there is no separate "division" expression variant to maintain.
func (c *arithCtx) freshOpaque(base string) symb.Expr {
	c.opaque++
	return symb.NewSym(c.vm.Fresh(base, vars.Int, true))
}

func (e *arithExpr) eval(ctx *arithCtx) (symb.Expr, error) {
	acc, err := e.Left.eval(ctx)
	if err != nil {
		return nil, err
	}
	for _, op := range e.Ops {
		rhs, err := op.Term.eval(ctx)
		if err != nil {
			return nil, err
		}
		if op.Op == "+" {
			acc = symb.Plus(acc, rhs)
		} else {
			acc = symb.Minus(acc, rhs)
		}
	}
	return acc, nil
}

func (t *arithTerm) eval(ctx *arithCtx) (symb.Expr, error) {
	acc, err := t.Left.eval(ctx)
	if err != nil {
		return nil, err
	}
	for _, op := range t.Ops {
		if op.Op == "/" {
			if !ctx.allowDiv {
				return nil, errors.DivisionDisallowed(errors.Position{
					Filename: ctx.filename,
					Line:     op.Pos.Line,
					Column:   op.Pos.Column,
				})
			}
			acc = ctx.freshOpaque("div")
			continue
		}
		rhs, err := op.Value.eval(ctx)
		if err != nil {
			return nil, err
		}
		acc = symb.Times(acc, rhs)
	}
	return acc, nil
}

func (u *arithUnary) eval(ctx *arithCtx) (symb.Expr, error) {
	v, err := u.Power.eval(ctx)
	if err != nil {
		return nil, err
	}
	if u.Neg {
		return symb.Neg(v), nil
	}
	return v, nil
}

func (p *arithPower) eval(ctx *arithCtx) (symb.Expr, error) {
	base, err := p.Base.eval(ctx)
	if err != nil {
		return nil, err
	}
	if p.Exp == nil {
		return base, nil
	}
	exp, err := p.Exp.eval(ctx)
	if err != nil {
		return nil, err
	}
	return symb.RaisePow(base, exp), nil
}

func (p *arithPrimary) eval(ctx *arithCtx) (symb.Expr, error) {
	switch {
	case p.Nondet:
		return ctx.freshOpaque("nondet"), nil
	case p.Number != nil:
		n, err := strconv.ParseInt(*p.Number, 10, 64)
		if err != nil {
			return nil, errors.ParseSyntaxError("malformed integer literal "+*p.Number, errors.Position{
				Filename: ctx.filename, Line: p.Pos.Line, Column: p.Pos.Column,
			})
		}
		return symb.NewConst(n), nil
	case p.Ident != nil:
		v, ok := ctx.lookup[*p.Ident]
		if !ok {
			return nil, errors.UndefinedReference(*p.Ident, errors.Position{
				Filename: ctx.filename, Line: p.Pos.Line, Column: p.Pos.Column,
			})
		}
		return symb.NewSym(v), nil
	default:
		return p.Sub.eval(ctx)
	}
}

// arithRel is a relation over two infix arithmetic expressions (shared by
// KoAT's guard conjuncts and T2's `assume(...)`).
type arithRel struct {
	Pos lexer.Position
	Lhs *arithExpr `@@`
	Op  string     `@("<=" | ">=" | "==" | "!=" | "<" | ">" | "=")`
	Rhs *arithExpr `@@`
}

func relOp(op string) symb.RelOp {
	switch op {
	case "<=":
		return symb.Le
	case ">=":
		return symb.Ge
	case "==", "=":
		return symb.Eq
	case "!=":
		return symb.Ne
	case "<":
		return symb.Lt
	default:
		return symb.Gt
	}
}

func (r *arithRel) eval(ctx *arithCtx) (symb.Rel, error) {
	lhs, err := r.Lhs.eval(ctx)
	if err != nil {
		return symb.Rel{}, err
	}
	rhs, err := r.Rhs.eval(ctx)
	if err != nil {
		return symb.Rel{}, err
	}
	return symb.NewRel(lhs, relOp(r.Op), rhs), nil
}
