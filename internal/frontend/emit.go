package frontend

import (
	"fmt"
	"sort"
	"strings"

	"github.com/aprove-developers/loat-go/internal/its"
	"github.com/aprove-developers/loat-go/internal/symb"
	"github.com/aprove-developers/loat-go/internal/vars"
)

// Emit renders g back into one of the three textual formats (SPEC_FULL.md
// §3, generalizing the original's koatToT2 converter): used by
// --print-simplified to dump the final ITS before complexity analysis.
func Emit(g *its.Graph, format Format) string {
	switch format {
	case T2:
		return emitT2(g)
	case SExpr:
		return emitSExpr(g)
	default:
		return emitKoAT(g)
	}
}

func sortedVars(vm *vars.Manager) []vars.Var {
	vs := vm.TrackedVars()
	sort.Slice(vs, func(i, j int) bool { return vs[i].ID() < vs[j].ID() })
	return vs
}

func sortedRuleIDs(g *its.Graph) []its.TransID {
	rules := g.AllRules()
	ids := make([]its.TransID, 0, len(rules))
	for id := range rules {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func emitKoAT(g *its.Graph) string {
	vm := g.Vars()
	vs := sortedVars(vm)
	names := make([]string, len(vs))
	for i, v := range vs {
		names[i] = v.Name()
	}

	var b strings.Builder
	fmt.Fprintf(&b, "(GOAL COMPLEXITY)\n")
	fmt.Fprintf(&b, "(STARTTERM (FUNCTIONSYMBOLS %s))\n", g.LocationName(g.Initial()))
	fmt.Fprintf(&b, "(VAR %s)\n", strings.Join(names, " "))
	fmt.Fprintf(&b, "(RULES\n")
	for _, id := range sortedRuleIDs(g) {
		r, _ := g.Rule(id)
		lhsArgs := strings.Join(names, ",")
		for _, rhs := range r.Rhss {
			rhsArgs := make([]string, len(vs))
			for i, v := range vs {
				if e, ok := rhs.Update[v]; ok {
					rhsArgs[i] = e.String()
				} else {
					rhsArgs[i] = v.Name()
				}
			}
			fmt.Fprintf(&b, "  %s(%s) -{%s}> %s(%s)%s\n",
				g.LocationName(r.Lhs.Loc), lhsArgs,
				r.Lhs.Cost.String(),
				g.LocationName(rhs.Loc), strings.Join(rhsArgs, ","),
				guardSuffix(r.Lhs.Guard))
		}
	}
	fmt.Fprintf(&b, ")\n")
	return b.String()
}

func guardSuffix(g symb.Guard) string {
	lits := symb.Literals(g)
	if len(lits) == 0 {
		return ""
	}
	parts := make([]string, len(lits))
	for i, l := range lits {
		parts[i] = l.String()
	}
	return " :|: " + strings.Join(parts, ", ")
}

func emitT2(g *its.Graph) string {
	vm := g.Vars()
	vs := sortedVars(vm)
	var b strings.Builder
	fmt.Fprintf(&b, "START: %s;\n", g.LocationName(g.Initial()))
	for _, id := range sortedRuleIDs(g) {
		r, _ := g.Rule(id)
		for _, rhs := range r.Rhss {
			fmt.Fprintf(&b, "FROM: %s;\n", g.LocationName(r.Lhs.Loc))
			for _, lit := range symb.Literals(r.Lhs.Guard) {
				fmt.Fprintf(&b, "assume(%s);\n", lit.String())
			}
			for _, v := range vs {
				if e, ok := rhs.Update[v]; ok {
					fmt.Fprintf(&b, "%s := %s;\n", v.Name(), e.String())
				}
			}
			fmt.Fprintf(&b, "TO: %s;\n", g.LocationName(rhs.Loc))
		}
	}
	return b.String()
}

func emitSExpr(g *its.Graph) string {
	vm := g.Vars()
	vs := sortedVars(vm)
	names := make([]string, len(vs))
	for i, v := range vs {
		names[i] = v.Name()
	}

	var b strings.Builder
	fmt.Fprintf(&b, "(VARS (%s))\n", strings.Join(names, " "))
	fmt.Fprintf(&b, "(INITIAL %s)\n", g.LocationName(g.Initial()))
	fmt.Fprintf(&b, "(TRANSITIONS\n")
	for _, id := range sortedRuleIDs(g) {
		r, _ := g.Rule(id)
		for _, rhs := range r.Rhss {
			fmt.Fprintf(&b, "  (TRANSITION (FROM %s) (TO %s)\n", g.LocationName(r.Lhs.Loc), g.LocationName(rhs.Loc))
			fmt.Fprintf(&b, "    (GUARD %s)\n", toPrefixGuard(r.Lhs.Guard))
			var eqs []string
			for _, v := range vs {
				if e, ok := rhs.Update[v]; ok {
					eqs = append(eqs, fmt.Sprintf("(= %s' %s)", v.Name(), toPrefix(e)))
				}
			}
			fmt.Fprintf(&b, "    (NEXT %s))\n", strings.Join(eqs, " "))
		}
	}
	fmt.Fprintf(&b, ")\n")
	return b.String()
}

func toPrefixGuard(g symb.Guard) string {
	lits := symb.Literals(g)
	if len(lits) == 0 {
		return "(>= 0 0)"
	}
	if len(lits) == 1 {
		return toPrefixRel(lits[0])
	}
	parts := make([]string, len(lits))
	for i, l := range lits {
		parts[i] = toPrefixRel(l)
	}
	return "(and " + strings.Join(parts, " ") + ")"
}

func toPrefixRel(r symb.Rel) string {
	return fmt.Sprintf("(%s %s %s)", r.Op.String(), toPrefix(r.Lhs), toPrefix(r.Rhs))
}

func toPrefix(e symb.Expr) string {
	switch v := e.(type) {
	case symb.Const:
		return v.String()
	case symb.Sym:
		return v.String()
	case *symb.Add:
		parts := make([]string, len(v.Args))
		for i, a := range v.Args {
			parts[i] = toPrefix(a)
		}
		return "(+ " + strings.Join(parts, " ") + ")"
	case *symb.Mul:
		parts := make([]string, len(v.Args))
		for i, a := range v.Args {
			parts[i] = toPrefix(a)
		}
		return "(* " + strings.Join(parts, " ") + ")"
	case *symb.Pow:
		return fmt.Sprintf("(^ %s %s)", toPrefix(v.Base), toPrefix(v.Exp))
	default:
		return e.String()
	}
}
