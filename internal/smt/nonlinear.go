package smt

import (
	"github.com/aprove-developers/loat-go/internal/symb"
	"github.com/aprove-developers/loat-go/internal/vars"
)

// nonlinearBound is the half-width of the integer search window tried per
// variable by boundedInstantiation; kept small since this path is only a
// conservative fallback, not a general nonlinear decision procedure (see
// internal/smt's package doc and DESIGN.md).
const nonlinearBound = 3

// boundedInstantiation tries to discharge a conjunction containing
// nonlinear literals by freezing every variable that appears in a
// nonlinear position to a small integer and re-checking the resulting
// (now constant-in-those-variables) conjunction with the linear procedure.
// It is a conservative, incomplete fallback: returning Unknown here never
// means Unsat, only "no witness found in the search window" (spec.md §4.4
// "a call returning Unknown is treated as failure").
func boundedInstantiation(conj []symb.Rel) (Result, Model) {
	nlVars := nonlinearVars(conj)
	if len(nlVars) == 0 || len(nlVars) > 3 {
		return Unknown, nil
	}

	assignment := make(symb.Subst, len(nlVars))
	ok, model := searchInstantiation(conj, nlVars, 0, assignment)
	if !ok {
		return Unknown, nil
	}
	return Sat, model
}

func nonlinearVars(conj []symb.Rel) []vars.Var {
	seen := make(map[vars.Var]struct{})
	var out []vars.Var
	for _, r := range conj {
		for _, side := range []symb.Expr{r.Lhs, r.Rhs} {
			if symb.IsLinear(side) {
				continue
			}
			for v := range symb.Vars(side) {
				if _, ok := seen[v.Var]; !ok {
					seen[v.Var] = struct{}{}
					out = append(out, v.Var)
				}
			}
		}
	}
	return out
}

func searchInstantiation(conj []symb.Rel, nlVars []vars.Var, idx int, assign symb.Subst) (bool, Model) {
	if idx == len(nlVars) {
		substituted := make([]symb.Rel, len(conj))
		for i, r := range conj {
			substituted[i] = symb.SubsRel(r, assign)
		}
		cs, ok := conjunctConstraints(substituted)
		if !ok {
			return false, nil
		}
		feasible, witness := feasibility(cs)
		if !feasible {
			return false, nil
		}
		model := make(Model, len(assign)+len(witness))
		for v, e := range assign {
			if c, ok := e.(symb.Const); ok {
				model[v] = c
			}
		}
		for v, r := range witness {
			model[v] = symb.NewConstRat(r)
		}
		return true, model
	}

	v := nlVars[idx]
	for n := int64(-nonlinearBound); n <= nonlinearBound; n++ {
		assign[v] = symb.NewConst(n)
		if ok, model := searchInstantiation(conj, nlVars, idx+1, assign); ok {
			return true, model
		}
	}
	delete(assign, v)
	return false, nil
}
