package its

import (
	"fmt"

	"github.com/sasha-s/go-deadlock"

	"github.com/aprove-developers/loat-go/internal/symb"
	"github.com/aprove-developers/loat-go/internal/vars"
)

type pairKey struct {
	from, to LocID
}

// Graph is the ITS hypergraph: locations, a rule store and the incidence
// indexes described by spec.md §3 "ITS graph". Mutation goes exclusively
// through AddRule/RemoveRule/AddLocation/RemoveOnlyLocation/
// RemoveLocationAndRules so the indexes are
// always consistent with the rule store (spec.md §8 invariant on
// getTransitionsFrom/To).
type Graph struct {
	mu deadlock.RWMutex

	vars *vars.Manager

	rules  map[TransID]Rule
	nextID TransID

	locations       map[LocID]struct{}
	initial         LocID
	nextUnusedLoc   LocID
	locationNames   map[LocID]string

	fromIndex map[LocID][]TransID
	pairIndex map[pairKey][]TransID
}

// NewGraph creates an empty graph with a single initial location.
func NewGraph(vm *vars.Manager) *Graph {
	g := &Graph{
		vars:          vm,
		rules:         make(map[TransID]Rule),
		locations:     make(map[LocID]struct{}),
		locationNames: make(map[LocID]string),
		fromIndex:     make(map[LocID][]TransID),
		pairIndex:     make(map[pairKey][]TransID),
	}
	g.initial = g.addLocationLocked("start")
	return g
}

// Vars returns the variable manager shared by this graph's rules.
func (g *Graph) Vars() *vars.Manager { return g.vars }

// Initial returns the initial location.
func (g *Graph) Initial() LocID {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.initial
}

// AddLocation registers a fresh location and returns its id.
func (g *Graph) AddLocation(name string) LocID {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.addLocationLocked(name)
}

func (g *Graph) addLocationLocked(name string) LocID {
	id := g.nextUnusedLoc
	g.nextUnusedLoc++
	g.locations[id] = struct{}{}
	g.locationNames[id] = name
	return id
}

// LocationName returns the printable name of loc, or a synthesized one if
// none was given.
func (g *Graph) LocationName(loc LocID) string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if n, ok := g.locationNames[loc]; ok {
		return n
	}
	return fmt.Sprintf("loc%d", loc)
}

// Locations returns every live location id.
func (g *Graph) Locations() []LocID {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]LocID, 0, len(g.locations))
	for l := range g.locations {
		out = append(out, l)
	}
	return out
}

// HasLocation reports whether loc is currently live.
func (g *Graph) HasLocation(loc LocID) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	_, ok := g.locations[loc]
	return ok
}

// EnsureFreshInitialLocation inserts a fresh location with a dummy rule
// into the old initial location and makes it the new initial, used by the
// driver's "ensure fresh initial location" step (spec.md §2 control flow,
// and the invariant "the initial location has no incoming transition",
// spec.md §3).
func (g *Graph) EnsureFreshInitialLocation() {
	g.mu.Lock()
	oldInitial := g.initial
	newInitial := g.addLocationLocked("start")
	g.initial = newInitial
	g.mu.Unlock()

	g.AddRule(Rule{
		Lhs:  Lhs{Loc: newInitial, Guard: symb.True, Cost: symb.Zero},
		Rhss: []Rhs{{Loc: oldInitial, Update: symb.Subst{}}},
	})
}

// AddRule inserts rule and returns its fresh transition id. O(|rhss|)
// (spec.md §4.3 addRule).
func (g *Graph) AddRule(rule Rule) TransID {
	g.mu.Lock()
	defer g.mu.Unlock()

	id := g.nextID
	g.nextID++
	g.rules[id] = rule

	g.fromIndex[rule.Lhs.Loc] = append(g.fromIndex[rule.Lhs.Loc], id)
	seen := make(map[LocID]bool, len(rule.Rhss))
	for _, rhs := range rule.Rhss {
		key := pairKey{from: rule.Lhs.Loc, to: rhs.Loc}
		if seen[rhs.Loc] {
			continue
		}
		seen[rhs.Loc] = true
		g.pairIndex[key] = append(g.pairIndex[key], id)
	}
	return id
}

// RemoveRule deletes id from the rule store and every incidence list
// (spec.md §4.3 removeRule). It does not remove locations.
func (g *Graph) RemoveRule(id TransID) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.removeRuleLocked(id)
}

func (g *Graph) removeRuleLocked(id TransID) {
	rule, ok := g.rules[id]
	if !ok {
		return
	}
	delete(g.rules, id)
	g.fromIndex[rule.Lhs.Loc] = removeID(g.fromIndex[rule.Lhs.Loc], id)

	seen := make(map[LocID]bool, len(rule.Rhss))
	for _, rhs := range rule.Rhss {
		if seen[rhs.Loc] {
			continue
		}
		seen[rhs.Loc] = true
		key := pairKey{from: rule.Lhs.Loc, to: rhs.Loc}
		g.pairIndex[key] = removeID(g.pairIndex[key], id)
	}
}

func removeID(ids []TransID, target TransID) []TransID {
	out := ids[:0]
	for _, id := range ids {
		if id != target {
			out = append(out, id)
		}
	}
	return out
}

// Rule looks up a rule by id.
func (g *Graph) Rule(id TransID) (Rule, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	r, ok := g.rules[id]
	return r, ok
}

// AllRules returns a snapshot of every live (id, rule) pair.
func (g *Graph) AllRules() map[TransID]Rule {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make(map[TransID]Rule, len(g.rules))
	for id, r := range g.rules {
		out[id] = r
	}
	return out
}

// TransitionsFrom returns the ids of every rule whose lhs location is loc.
func (g *Graph) TransitionsFrom(loc LocID) []TransID {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]TransID, len(g.fromIndex[loc]))
	copy(out, g.fromIndex[loc])
	return out
}

// TransitionsBetween returns the ids of every rule with lhs = from and at
// least one rhs targeting to.
func (g *Graph) TransitionsBetween(from, to LocID) []TransID {
	g.mu.RLock()
	defer g.mu.RUnlock()
	ids := g.pairIndex[pairKey{from: from, to: to}]
	out := make([]TransID, len(ids))
	copy(out, ids)
	return out
}

// GetSimpleLoopsAt returns ids of rules at loc where every rhs targets loc
// (spec.md §4.3 getSimpleLoopsAt).
func (g *Graph) GetSimpleLoopsAt(loc LocID) []TransID {
	g.mu.RLock()
	defer g.mu.RUnlock()
	var out []TransID
	for _, id := range g.fromIndex[loc] {
		if g.rules[id].IsSimpleLoop() {
			out = append(out, id)
		}
	}
	return out
}

// RemoveOnlyLocation removes loc if, and only if, no live rule references
// it (as lhs or as any rhs). Returns false without effect otherwise
// (spec.md §3 invariant "removing a location is only legal when no live
// rule references it").
func (g *Graph) RemoveOnlyLocation(loc LocID) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if len(g.fromIndex[loc]) > 0 {
		return false
	}
	for key, ids := range g.pairIndex {
		if key.to == loc && len(ids) > 0 {
			return false
		}
	}
	delete(g.locations, loc)
	delete(g.locationNames, loc)
	delete(g.fromIndex, loc)
	return true
}

// RemoveLocationAndRules force-removes loc along with every rule touching
// it (used for dead-code cleanup, where referencing rules have already
// been judged unreachable).
func (g *Graph) RemoveLocationAndRules(loc LocID) {
	g.mu.Lock()
	defer g.mu.Unlock()

	var toRemove []TransID
	for id, r := range g.rules {
		if r.Lhs.Loc == loc {
			toRemove = append(toRemove, id)
			continue
		}
		for _, rhs := range r.Rhss {
			if rhs.Loc == loc {
				toRemove = append(toRemove, id)
				break
			}
		}
	}
	for _, id := range toRemove {
		g.removeRuleLocked(id)
	}
	delete(g.locations, loc)
	delete(g.locationNames, loc)
	delete(g.fromIndex, loc)
}

// StripRhsLocation returns a new rule with every rhs targeting loc removed,
// or ok=false if every rhs of id targets loc (spec.md §4.3 stripRhsLocation
// "returns None if every rhs of id targets loc").
func StripRhsLocation(r Rule, loc LocID) (Rule, bool) {
	kept := make([]Rhs, 0, len(r.Rhss))
	for _, rhs := range r.Rhss {
		if rhs.Loc != loc {
			kept = append(kept, rhs)
		}
	}
	if len(kept) == 0 {
		return Rule{}, false
	}
	return Rule{Lhs: r.Lhs, Rhss: kept}, true
}

// ReplaceRhssBySink produces a linear rule with r's lhs and a single rhs
// targeting sink with an empty update (spec.md §4.3 replaceRhssBySink),
// used when a rule can no longer be described accurately (e.g. after a
// failed partial-deletion acceleration attempt).
func ReplaceRhssBySink(r Rule, sink LocID) Rule {
	return Rule{
		Lhs:  r.Lhs,
		Rhss: []Rhs{{Loc: sink, Update: symb.Subst{}}},
	}
}
