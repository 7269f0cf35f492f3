package frontend

import (
	"fmt"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"

	"github.com/aprove-developers/loat-go/internal/config"
	"github.com/aprove-developers/loat-go/internal/errors"
	"github.com/aprove-developers/loat-go/internal/its"
	"github.com/aprove-developers/loat-go/internal/symb"
	"github.com/aprove-developers/loat-go/internal/vars"
)

// KoAT format (spec.md §6): `(GOAL COMPLEXITY) (STARTTERM (FUNCTIONSYMBOLS
// init)) (VAR x y …) (RULES f(x,y) -> g(e,…) :|: guard, …)`. The cost
// annotation `-{expr}>` (defaulting to 1 when the plain `->` arrow is used)
// follows LoAT's own extension of the KoAT format, since runtime
// complexity (cost 1 per step) is only one of the cost models this repo
// supports.

type koatFile struct {
	Goal      string       `"(" "GOAL" @Ident ")"`
	Startterm string       `"(" "STARTTERM" "(" "FUNCTIONSYMBOLS" @Ident ")" ")"`
	Vars      []string     `"(" "VAR" { @Ident } ")"`
	Rules     []*koatRule  `"(" "RULES" @@* ")"`
}

type koatRule struct {
	Lhs   *koatTerm   `@@`
	Cost  *arithExpr  `( "-" "{" @@ "}" ">" | "->" )`
	Rhs   *koatTerm   `@@`
	Guard []*arithRel `[ ":|:" @@ { "," @@ } ]`
}

type koatTerm struct {
	Pos  lexer.Position
	Name string       `@Ident`
	Args []*arithExpr `"(" [ @@ { "," @@ } ] ")"`
}

var koatParser = buildKoatParser()

func buildKoatParser() *participle.Parser[koatFile] {
	p, err := participle.Build[koatFile](
		participle.Lexer(sharedLexer),
		participle.Elide("Whitespace", "Comment"),
		participle.UseLookahead(4),
	)
	if err != nil {
		panic(fmt.Errorf("failed to build KoAT parser: %w", err))
	}
	return p
}

func parseKoAT(filename, source string, vm *vars.Manager, cfg *config.Config) (*its.Graph, error) {
	file, err := koatParser.ParseString(filename, source)
	if err != nil {
		return nil, toParseError(filename, err)
	}

	globalVars := make([]vars.Var, len(file.Vars))
	global := make(map[string]vars.Var, len(file.Vars))
	for i, name := range file.Vars {
		v := vm.Fresh(normalizeIdent(name), vars.Int, false)
		globalVars[i] = v
		global[name] = v
	}

	g := its.NewGraph(vm)
	lm := newLocMap(g)
	lm.bindInitial(file.Startterm)

	for _, rule := range file.Rules {
		if err := lowerKoatRule(filename, rule, globalVars, global, g, lm, cfg); err != nil {
			return nil, err
		}
	}
	return g, nil
}

func lowerKoatRule(filename string, rule *koatRule, globalVars []vars.Var, global map[string]vars.Var, g *its.Graph, lm *locMap, cfg *config.Config) error {
	if len(rule.Lhs.Args) != len(globalVars) {
		return errors.UnsupportedConstruct(
			fmt.Sprintf("location %q has arity %d, expected %d", rule.Lhs.Name, len(rule.Lhs.Args), len(globalVars)),
			errors.Position{Filename: filename, Line: rule.Lhs.Pos.Line, Column: rule.Lhs.Pos.Column},
		)
	}

	lookup := make(map[string]vars.Var, len(global))
	for k, v := range global {
		lookup[k] = v
	}
	for i, arg := range rule.Lhs.Args {
		if name, ok := bareIdent(arg); ok {
			lookup[name] = globalVars[i]
		}
	}

	ctx := &arithCtx{vm: g.Vars(), lookup: lookup, allowDiv: cfg.AllowDivision, filename: filename}

	var rels []symb.Rel
	for _, r := range rule.Guard {
		rel, err := r.eval(ctx)
		if err != nil {
			return err
		}
		rels = append(rels, rel)
	}

	cost := symb.One
	if rule.Cost != nil {
		c, err := rule.Cost.eval(ctx)
		if err != nil {
			return err
		}
		cost = c
	}

	if len(rule.Rhs.Args) != len(globalVars) {
		return errors.UnsupportedConstruct(
			fmt.Sprintf("location %q has arity %d, expected %d", rule.Rhs.Name, len(rule.Rhs.Args), len(globalVars)),
			errors.Position{Filename: filename, Line: rule.Rhs.Pos.Line, Column: rule.Rhs.Pos.Column},
		)
	}

	update := symb.Subst{}
	for i, arg := range rule.Rhs.Args {
		val, err := arg.eval(ctx)
		if err != nil {
			return err
		}
		if !symb.Equal(val, symb.NewSym(globalVars[i])) {
			update[globalVars[i]] = val
		}
	}

	g.AddRule(its.Rule{
		Lhs:  its.Lhs{Loc: lm.get(rule.Lhs.Name), Guard: symb.FromRels(rels...), Cost: cost},
		Rhss: []its.Rhs{{Loc: lm.get(rule.Rhs.Name), Update: update}},
	})
	return nil
}

// bareIdent reports whether e is nothing but a single identifier, used to
// detect a location term argument that is a local alias for a canonical
// tracked variable (spec.md §6 "KoAT format") rather than an expression.
func bareIdent(e *arithExpr) (string, bool) {
	if len(e.Ops) != 0 || len(e.Left.Ops) != 0 {
		return "", false
	}
	u := e.Left.Left
	if u.Neg || u.Power.Exp != nil {
		return "", false
	}
	p := u.Power.Base
	if p.Ident == nil {
		return "", false
	}
	return *p.Ident, true
}

func toParseError(filename string, err error) error {
	if pe, ok := err.(participle.Error); ok {
		pos := pe.Position()
		return errors.ParseSyntaxError(pe.Message(), errors.Position{Filename: filename, Line: pos.Line, Column: pos.Column})
	}
	return errors.ParseSyntaxError(err.Error(), errors.Position{Filename: filename})
}
