// Package its implements the Rule / ITS graph component (spec.md §4.3, C3):
// rules, the hypergraph index over locations, and the mutation API. The
// graph is guarded by a re-entrant-safe RWMutex (spec.md §5) so that a
// progress printer or partial-result reader may snapshot it between steps
// of the simplification driver.
package its

import (
	"fmt"

	"github.com/aprove-developers/loat-go/internal/symb"
	"github.com/aprove-developers/loat-go/internal/vars"
)

// LocID is a location identifier.
type LocID int

// TransID is a transition (rule) identifier, monotonic and unique for the
// lifetime of a graph (spec.md §3 "ITS graph").
type TransID int

// Lhs is a rule's left-hand side: the source location, its guard and cost.
type Lhs struct {
	Loc   LocID
	Guard symb.Guard
	Cost  symb.Expr
}

// Rhs is one right-hand side of a rule: a target location plus the update
// applied when control flows there.
type Rhs struct {
	Loc    LocID
	Update symb.Subst
}

// Rule is an immutable (lhs, rhss) pair (spec.md §3 "Rule"). Rules are
// never mutated in place; RuleBuilder produces a new Rule from an old one
// (spec.md §9 "Builder pattern for rules").
type Rule struct {
	Lhs  Lhs
	Rhss []Rhs
}

// IsLinear reports whether the rule has exactly one rhs.
func (r Rule) IsLinear() bool { return len(r.Rhss) == 1 }

// IsSimpleLoop reports whether every rhs targets the rule's own lhs
// location (spec.md §3, GLOSSARY "Simple loop").
func (r Rule) IsSimpleLoop() bool {
	for _, rhs := range r.Rhss {
		if rhs.Loc != r.Lhs.Loc {
			return false
		}
	}
	return true
}

// IsDummy reports whether the rule is the trivial identity rule: guard =
// True, cost = 0, and every update is empty.
func (r Rule) IsDummy() bool {
	if !symb.IsTrue(r.Lhs.Guard) {
		return false
	}
	if !symb.Equal(r.Lhs.Cost, symb.Zero) {
		return false
	}
	for _, rhs := range r.Rhss {
		if len(rhs.Update) != 0 {
			return false
		}
	}
	return true
}

// DummyRule builds a dummy (identity, zero-cost) rule from loc to loc
// (spec.md §3 "dummyRule").
func DummyRule(loc LocID) Rule {
	return Rule{
		Lhs:  Lhs{Loc: loc, Guard: symb.True, Cost: symb.Zero},
		Rhss: []Rhs{{Loc: loc, Update: symb.Subst{}}},
	}
}

// String renders the rule in a KoAT-like textual form, used by proof
// output and --print-simplified.
func (r Rule) String() string {
	rhsStrs := make([]string, len(r.Rhss))
	for i, rhs := range r.Rhss {
		rhsStrs[i] = fmt.Sprintf("loc%d%s", rhs.Loc, formatUpdate(rhs.Update))
	}
	joined := rhsStrs[0]
	for _, s := range rhsStrs[1:] {
		joined += ", " + s
	}
	return fmt.Sprintf("loc%d -> %s :|: %s [cost: %s]", r.Lhs.Loc, joined, r.Lhs.Guard.String(), r.Lhs.Cost.String())
}

func formatUpdate(u symb.Subst) string {
	if len(u) == 0 {
		return ""
	}
	s := "("
	first := true
	for v, e := range u {
		if !first {
			s += ", "
		}
		first = false
		s += fmt.Sprintf("%s:=%s", v.Name(), e.String())
	}
	return s + ")"
}

// Builder constructs a new Rule from an existing one via non-destructive
// replacement of its guard, cost or one rhs update (spec.md §9 "Builder
// pattern for rules").
type Builder struct {
	rule Rule
}

// NewBuilder starts a builder seeded with r's current fields.
func NewBuilder(r Rule) *Builder {
	rhss := make([]Rhs, len(r.Rhss))
	copy(rhss, r.Rhss)
	return &Builder{rule: Rule{Lhs: r.Lhs, Rhss: rhss}}
}

// WithGuard replaces the lhs guard.
func (b *Builder) WithGuard(g symb.Guard) *Builder {
	b.rule.Lhs.Guard = g
	return b
}

// WithCost replaces the lhs cost.
func (b *Builder) WithCost(c symb.Expr) *Builder {
	b.rule.Lhs.Cost = c
	return b
}

// WithUpdate replaces the update of the i-th rhs.
func (b *Builder) WithUpdate(i int, u symb.Subst) *Builder {
	b.rule.Rhss[i].Update = u
	return b
}

// WithRhsLoc replaces the target location of the i-th rhs.
func (b *Builder) WithRhsLoc(i int, loc LocID) *Builder {
	b.rule.Rhss[i].Loc = loc
	return b
}

// Build returns the constructed immutable Rule.
func (b *Builder) Build() Rule { return b.rule }

// Subs applies s to every expression reachable from r (guard, cost and
// every rhs update), producing a new rule (rules are immutable, spec.md
// §3 "Lifecycles").
func Subs(r Rule, s symb.Subst) Rule {
	out := Rule{
		Lhs: Lhs{
			Loc:   r.Lhs.Loc,
			Guard: symb.SubsGuard(r.Lhs.Guard, s),
			Cost:  symb.Subs(r.Lhs.Cost, s),
		},
		Rhss: make([]Rhs, len(r.Rhss)),
	}
	for i, rhs := range r.Rhss {
		newUpdate := make(symb.Subst, len(rhs.Update))
		for v, e := range rhs.Update {
			newUpdate[v] = symb.Subs(e, s)
		}
		out.Rhss[i] = Rhs{Loc: rhs.Loc, Update: newUpdate}
	}
	return out
}

// UpdatedVars returns the set of variables any rhs of r assigns to.
func (r Rule) UpdatedVars() map[vars.Var]struct{} {
	out := make(map[vars.Var]struct{})
	for _, rhs := range r.Rhss {
		for v := range rhs.Update {
			out[v] = struct{}{}
		}
	}
	return out
}
