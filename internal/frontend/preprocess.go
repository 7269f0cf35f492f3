package frontend

import (
	"github.com/aprove-developers/loat-go/internal/its"
	"github.com/aprove-developers/loat-go/internal/symb"
)

// EnforceNonNegativeCost appends `cost >= 0` to every rule's guard unless
// the cost is already a non-negative numeric constant (spec.md §6
// "Non-negative-cost enforcement... unless trivially implied"). It runs
// once, right after parsing, unless --no-cost-check is given.
func EnforceNonNegativeCost(g *its.Graph) {
	for id, r := range g.AllRules() {
		if triviallyNonNegative(r.Lhs.Cost) {
			continue
		}
		g.RemoveRule(id)
		g.AddRule(its.NewBuilder(r).
			WithGuard(symb.MkAnd(r.Lhs.Guard, symb.FromRels(symb.NewRel(r.Lhs.Cost, symb.Ge, symb.Zero)))).
			Build())
	}
}

func triviallyNonNegative(cost symb.Expr) bool {
	if symb.IsNonterm(cost) {
		return true
	}
	c, ok := cost.(symb.Const)
	return ok && c.Val.Sign() >= 0
}
