package frontend

import (
	"fmt"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"

	"github.com/aprove-developers/loat-go/internal/config"
	"github.com/aprove-developers/loat-go/internal/its"
	"github.com/aprove-developers/loat-go/internal/symb"
	"github.com/aprove-developers/loat-go/internal/vars"
)

// T2 format (spec.md §6, original_source/src/its/t2parser): a sequence of
// `START: loc;` / `FROM: loc; stmt*; TO: loc;` blocks, where each statement
// is either `assume(rel);` or `var := expr;`. Variables are implicitly
// declared by first use (T2 has no VAR section); `nondet()` denotes an
// unconstrained value (t2parser.cpp's addFreshTemporaryVariable).

type t2File struct {
	Start       string        `"START" ":" @Ident ";"`
	Transitions []*t2Transition `@@*`
}

type t2Transition struct {
	Pos   lexer.Position
	From  string        `"FROM" ":" @Ident ";"`
	Stmts []*t2Stmt     `@@*`
	To    string        `"TO" ":" @Ident ";"`
}

type t2Stmt struct {
	Assume *arithRel `  "assume" "(" @@ ")" ";"`
	Assign *t2Assign `| @@`
}

type t2Assign struct {
	Pos  lexer.Position
	Name string     `@Ident ":="`
	Expr *arithExpr `@@ ";"`
}

var t2Parser = buildT2Parser()

func buildT2Parser() *participle.Parser[t2File] {
	p, err := participle.Build[t2File](
		participle.Lexer(sharedLexer),
		participle.Elide("Whitespace", "Comment"),
		participle.UseLookahead(4),
	)
	if err != nil {
		panic(fmt.Errorf("failed to build T2 parser: %w", err))
	}
	return p
}

func parseT2(filename, source string, vm *vars.Manager, cfg *config.Config) (*its.Graph, error) {
	file, err := t2Parser.ParseString(filename, source)
	if err != nil {
		return nil, toParseError(filename, err)
	}

	g := its.NewGraph(vm)
	lm := newLocMap(g)
	lm.bindInitial(file.Start)

	lookup := map[string]vars.Var{}
	ctx := &arithCtx{vm: vm, lookup: lookup, allowDiv: cfg.AllowDivision, filename: filename}
	namer := func(name string) vars.Var {
		if v, ok := lookup[name]; ok {
			return v
		}
		v := vm.Fresh(normalizeIdent(name), vars.Int, false)
		lookup[name] = v
		return v
	}

	for _, trans := range file.Transitions {
		if err := lowerT2Transition(trans, g, lm, ctx, namer); err != nil {
			return nil, err
		}
	}
	return g, nil
}

func lowerT2Transition(trans *t2Transition, g *its.Graph, lm *locMap, ctx *arithCtx, namer func(string) vars.Var) error {
	var rels []symb.Rel
	update := symb.Subst{}

	for _, stmt := range trans.Stmts {
		switch {
		case stmt.Assume != nil:
			preDeclareRelVars(stmt.Assume, namer)
			rel, err := stmt.Assume.eval(ctx)
			if err != nil {
				return err
			}
			rels = append(rels, rel)
		case stmt.Assign != nil:
			target := namer(stmt.Assign.Name)
			preDeclareExprVars(stmt.Assign.Expr, namer)
			val, err := stmt.Assign.Expr.eval(ctx)
			if err != nil {
				return err
			}
			update[target] = val
		}
	}

	g.AddRule(its.Rule{
		Lhs:  its.Lhs{Loc: lm.get(trans.From), Guard: symb.FromRels(rels...), Cost: symb.One},
		Rhss: []its.Rhs{{Loc: lm.get(trans.To), Update: update}},
	})
	return nil
}

// preDeclareRelVars/preDeclareExprVars walk a parsed expression tree and
// register every identifier it references with namer before evaluation, so
// that T2's implicit first-use variable declaration (no VAR section) is
// resolved the same way regardless of whether a name first appears on the
// assumed-guard side or the updated side of a transition.
func preDeclareRelVars(r *arithRel, namer func(string) vars.Var) {
	preDeclareExprVars(r.Lhs, namer)
	preDeclareExprVars(r.Rhs, namer)
}

func preDeclareExprVars(e *arithExpr, namer func(string) vars.Var) {
	preDeclareTerm(e.Left, namer)
	for _, op := range e.Ops {
		preDeclareTerm(op.Term, namer)
	}
}

func preDeclareTerm(t *arithTerm, namer func(string) vars.Var) {
	preDeclareUnary(t.Left, namer)
	for _, op := range t.Ops {
		preDeclareUnary(op.Value, namer)
	}
}

func preDeclareUnary(u *arithUnary, namer func(string) vars.Var) {
	preDeclarePower(u.Power, namer)
}

func preDeclarePower(p *arithPower, namer func(string) vars.Var) {
	preDeclarePrimary(p.Base, namer)
	if p.Exp != nil {
		preDeclareUnary(p.Exp, namer)
	}
}

func preDeclarePrimary(p *arithPrimary, namer func(string) vars.Var) {
	switch {
	case p.Ident != nil:
		namer(*p.Ident)
	case p.Sub != nil:
		preDeclareExprVars(p.Sub, namer)
	}
}
