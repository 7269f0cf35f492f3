package frontend

import (
	"fmt"
	"strconv"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"

	"github.com/aprove-developers/loat-go/internal/config"
	"github.com/aprove-developers/loat-go/internal/errors"
	"github.com/aprove-developers/loat-go/internal/its"
	"github.com/aprove-developers/loat-go/internal/symb"
	"github.com/aprove-developers/loat-go/internal/vars"
)

// S-expression format (spec.md §6: "S-expression transition system over
// pre/post state variables with equalities connecting them"). Concrete
// grammar (original_source/src/its/sexpressionparser/parser.hpp only
// retains the class skeleton, not the grammar body, so this is a from-
// scratch but literal rendition of that one-sentence description):
//
//	(VARS (x y))
//	(INITIAL l0)
//	(TRANSITIONS
//	  (TRANSITION (FROM l0) (TO l0)
//	    (GUARD (> x 0))
//	    (NEXT (= x' (- x 1)) (= y' y))))
//
// Post-state variables are named by priming the pre-state name (x -> x');
// NEXT's equalities are exactly the "equalities connecting" pre/post state.

type sexprFile struct {
	Vars        []string           `"(" "VARS" "(" { @Ident } ")" ")"`
	Initial     string             `"(" "INITIAL" @Ident ")"`
	Transitions []*sexprTransition `"(" "TRANSITIONS" @@* ")"`
}

type sexprTransition struct {
	Pos   lexer.Position
	From  string       `"(" "TRANSITION" "(" "FROM" @Ident ")"`
	To    string       `"(" "TO" @Ident ")"`
	Guard *sexprGuard  `[ "(" "GUARD" @@ ")" ]`
	Next  []*sexprEq   `[ "(" "NEXT" @@ { @@ } ")" ]`
	Close string       `")"`
}

type sexprEq struct {
	Pos  lexer.Position
	Name string    `"(" "=" @Ident`
	Expr *sexprVal `@@ ")"`
}

// sexprVal is a prefix ("Lisp-style") arithmetic value: a literal, a
// variable or an n-ary operator application.
type sexprVal struct {
	Pos    lexer.Position
	Number *string     `  @Int`
	Ident  *string     `| @Ident`
	Op     *sexprOpApp `| @@`
}

type sexprOpApp struct {
	Op   string      `"(" @("+" | "-" | "*" | "/")`
	Args []*sexprVal `@@ @@* ")"`
}

type sexprGuard struct {
	Rel *sexprRel `  @@`
	And *sexprAnd `| @@`
	Or  *sexprOr  `| @@`
	Not *sexprNot `| @@`
}

type sexprRel struct {
	Pos lexer.Position
	Op  string    `"(" @("<=" | ">=" | "==" | "!=" | "<" | ">" | "=")`
	Lhs *sexprVal `@@`
	Rhs *sexprVal `@@ ")"`
}

type sexprAnd struct {
	Args []*sexprGuard `"(" "and" @@ @@* ")"`
}

type sexprOr struct {
	Args []*sexprGuard `"(" "or" @@ @@* ")"`
}

type sexprNot struct {
	Arg *sexprGuard `"(" "not" @@ ")"`
}

var sexprParser = buildSexprParser()

func buildSexprParser() *participle.Parser[sexprFile] {
	p, err := participle.Build[sexprFile](
		participle.Lexer(sharedLexer),
		participle.Elide("Whitespace", "Comment"),
		participle.UseLookahead(4),
	)
	if err != nil {
		panic(fmt.Errorf("failed to build S-expression parser: %w", err))
	}
	return p
}

func parseSExpr(filename, source string, vm *vars.Manager, cfg *config.Config) (*its.Graph, error) {
	file, err := sexprParser.ParseString(filename, source)
	if err != nil {
		return nil, toParseError(filename, err)
	}

	lookup := make(map[string]vars.Var, len(file.Vars))
	for _, name := range file.Vars {
		lookup[name] = vm.Fresh(normalizeIdent(name), vars.Int, false)
	}
	ctx := &arithCtx{vm: vm, lookup: lookup, allowDiv: cfg.AllowDivision, filename: filename}

	g := its.NewGraph(vm)
	lm := newLocMap(g)
	lm.bindInitial(file.Initial)

	for _, trans := range file.Transitions {
		if err := lowerSexprTransition(trans, g, lm, ctx); err != nil {
			return nil, err
		}
	}
	return g, nil
}

func lowerSexprTransition(trans *sexprTransition, g *its.Graph, lm *locMap, ctx *arithCtx) error {
	var guard symb.Guard = symb.True
	if trans.Guard != nil {
		var err error
		guard, err = evalSexprGuard(trans.Guard, ctx)
		if err != nil {
			return err
		}
	}

	update := symb.Subst{}
	for _, eq := range trans.Next {
		name, isPost := trimPrime(eq.Name)
		if !isPost {
			return errors.UnsupportedConstruct(
				fmt.Sprintf("NEXT equality must target a post-state variable, got %q", eq.Name),
				errors.Position{Filename: ctx.filename, Line: eq.Pos.Line, Column: eq.Pos.Column},
			)
		}
		v, ok := ctx.lookup[name]
		if !ok {
			return errors.UndefinedReference(name, errors.Position{Filename: ctx.filename, Line: eq.Pos.Line, Column: eq.Pos.Column})
		}
		val, err := evalSexprVal(eq.Expr, ctx)
		if err != nil {
			return err
		}
		if !symb.Equal(val, symb.NewSym(v)) {
			update[v] = val
		}
	}

	g.AddRule(its.Rule{
		Lhs:  its.Lhs{Loc: lm.get(trans.From), Guard: guard, Cost: symb.One},
		Rhss: []its.Rhs{{Loc: lm.get(trans.To), Update: update}},
	})
	return nil
}

// trimPrime strips a trailing "'" from a post-state variable reference.
func trimPrime(name string) (string, bool) {
	if len(name) == 0 || name[len(name)-1] != '\'' {
		return name, false
	}
	return name[:len(name)-1], true
}

func evalSexprGuard(g *sexprGuard, ctx *arithCtx) (symb.Guard, error) {
	switch {
	case g.Rel != nil:
		rel, err := evalSexprRel(g.Rel, ctx)
		if err != nil {
			return nil, err
		}
		return symb.FromRels(rel), nil
	case g.And != nil:
		var parts []symb.Guard
		for _, a := range g.And.Args {
			p, err := evalSexprGuard(a, ctx)
			if err != nil {
				return nil, err
			}
			parts = append(parts, p)
		}
		return symb.MkAnd(parts...), nil
	case g.Or != nil:
		var parts []symb.Guard
		for _, a := range g.Or.Args {
			p, err := evalSexprGuard(a, ctx)
			if err != nil {
				return nil, err
			}
			parts = append(parts, p)
		}
		return symb.MkOr(parts...), nil
	default:
		inner, err := evalSexprGuard(g.Not.Arg, ctx)
		if err != nil {
			return nil, err
		}
		return negateGuard(inner), nil
	}
}

// negateGuard pushes negation down to relation literals, since the guard
// algebra (internal/symb) has no Not variant of its own.
func negateGuard(g symb.Guard) symb.Guard {
	switch v := g.(type) {
	case *symb.And:
		parts := make([]symb.Guard, len(v.Args))
		for i, a := range v.Args {
			parts[i] = negateGuard(a)
		}
		return symb.MkOr(parts...)
	case *symb.Or:
		parts := make([]symb.Guard, len(v.Args))
		for i, a := range v.Args {
			parts[i] = negateGuard(a)
		}
		return symb.MkAnd(parts...)
	case symb.Lit:
		return symb.Lit{Rel: symb.NewRel(v.Rel.Lhs, negateOp(v.Rel.Op), v.Rel.Rhs)}
	default:
		if symb.IsTrue(g) {
			return symb.False
		}
		return symb.True
	}
}

func negateOp(op symb.RelOp) symb.RelOp {
	switch op {
	case symb.Eq:
		return symb.Ne
	case symb.Ne:
		return symb.Eq
	case symb.Lt:
		return symb.Ge
	case symb.Le:
		return symb.Gt
	case symb.Gt:
		return symb.Le
	default:
		return symb.Lt
	}
}

func evalSexprRel(r *sexprRel, ctx *arithCtx) (symb.Rel, error) {
	lhs, err := evalSexprVal(r.Lhs, ctx)
	if err != nil {
		return symb.Rel{}, err
	}
	rhs, err := evalSexprVal(r.Rhs, ctx)
	if err != nil {
		return symb.Rel{}, err
	}
	return symb.NewRel(lhs, relOp(r.Op), rhs), nil
}

func evalSexprVal(v *sexprVal, ctx *arithCtx) (symb.Expr, error) {
	switch {
	case v.Number != nil:
		n, err := parseIntLiteral(*v.Number, ctx.filename, v.Pos)
		if err != nil {
			return nil, err
		}
		return symb.NewConst(n), nil
	case v.Ident != nil:
		sym, ok := ctx.lookup[stripIfPresent(*v.Ident)]
		if !ok {
			return nil, errors.UndefinedReference(*v.Ident, errors.Position{Filename: ctx.filename, Line: v.Pos.Line, Column: v.Pos.Column})
		}
		return symb.NewSym(sym), nil
	default:
		return evalSexprOpApp(v.Op, ctx)
	}
}

// stripIfPresent resolves either a pre-state name or a primed post-state
// name against the same pre-state lookup table, since this format has no
// separate tracked variable for x'.
func stripIfPresent(name string) string {
	if base, ok := trimPrime(name); ok {
		return base
	}
	return name
}

func evalSexprOpApp(app *sexprOpApp, ctx *arithCtx) (symb.Expr, error) {
	args := make([]symb.Expr, len(app.Args))
	for i, a := range app.Args {
		v, err := evalSexprVal(a, ctx)
		if err != nil {
			return nil, err
		}
		args[i] = v
	}
	switch app.Op {
	case "+":
		return symb.Plus(args...), nil
	case "*":
		return symb.Times(args...), nil
	case "/":
		if !ctx.allowDiv {
			return nil, errors.DivisionDisallowed(errors.Position{Filename: ctx.filename, Line: app.Args[0].Pos.Line, Column: app.Args[0].Pos.Column})
		}
		return ctx.freshOpaque("div"), nil
	default: // "-"
		if len(args) == 1 {
			return symb.Neg(args[0]), nil
		}
		return symb.Minus(args[0], args[1]), nil
	}
}

func parseIntLiteral(s, filename string, pos lexer.Position) (int64, error) {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, errors.ParseSyntaxError("malformed integer literal "+s, errors.Position{Filename: filename, Line: pos.Line, Column: pos.Column})
	}
	return n, nil
}
