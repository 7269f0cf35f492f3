package frontend

import "github.com/aprove-developers/loat-go/internal/its"

// locMap assigns a stable its.LocID to each location name a front-end
// encounters, reusing the graph's pre-existing initial location for
// whichever name the input format designates as the start symbol (KoAT's
// STARTTERM, T2's START:, the S-expression format's INITIAL).
type locMap struct {
	g      *its.Graph
	byName map[string]its.LocID
}

func newLocMap(g *its.Graph) *locMap {
	return &locMap{g: g, byName: make(map[string]its.LocID)}
}

// bindInitial associates name with the graph's existing initial location.
// It must be called, if at all, before any get(name) call for that name.
func (m *locMap) bindInitial(name string) {
	m.byName[name] = m.g.Initial()
}

// get returns the location id for name, allocating a fresh one on first
// use.
func (m *locMap) get(name string) its.LocID {
	if id, ok := m.byName[name]; ok {
		return id
	}
	id := m.g.AddLocation(normalizeIdent(name))
	m.byName[name] = id
	return id
}
