// Package vars implements the variable manager (spec.md §4.2): fresh-name
// allocation over two disjoint pools (tracked program variables and free
// temporary variables), plus a separate untracked-symbol generator used by
// the Farkas/metering machinery.
package vars

import (
	"fmt"

	"github.com/sasha-s/go-deadlock"
)

// Type tags a variable as ranging over integers or reals (spec.md §3).
type Type int

const (
	Int Type = iota
	Real
)

func (t Type) String() string {
	if t == Real {
		return "Real"
	}
	return "Int"
}

// Var is an opaque variable identifier with a printable name and a type tag.
// Vars compare by identity (the id field), not by name: two variables with
// colliding base names get distinct ids via Manager.Fresh.
type Var struct {
	id   int
	name string
	typ  Type
	temp bool
}

func (v Var) ID() int       { return v.id }
func (v Var) Name() string  { return v.name }
func (v Var) Type() Type    { return v.typ }
func (v Var) IsTemp() bool  { return v.temp }
func (v Var) String() string { return v.name }

// Manager allocates fresh program and temporary variables for one ITS
// instance. It is shared across every component that needs a fresh name
// (metering coefficients, chaining's guard pull-back, acceleration's
// iteration counters) and is guarded by a re-entrant-safe mutex so that a
// progress printer or partial-result reader can snapshot it concurrently
// with the simplification driver (spec.md §5).
type Manager struct {
	mu deadlock.RWMutex

	nextID      int
	nextUntracked int
	counters    map[string]int // base name -> next numeric suffix, tracked+temp pools share the namespace of printable names
	tracked     map[int]Var
	temps       map[int]Var

	untrackedCounters map[string]int
}

// NewManager creates an empty variable manager.
func NewManager() *Manager {
	return &Manager{
		counters:          make(map[string]int),
		tracked:           make(map[int]Var),
		temps:             make(map[int]Var),
		untrackedCounters: make(map[string]int),
	}
}

// Fresh allocates a new variable in the given pool (tracked program
// variables when temp is false, free temporaries when temp is true). The
// printable name is base, with a numeric suffix appended if base is already
// taken.
func (m *Manager) Fresh(base string, typ Type, temp bool) Var {
	m.mu.Lock()
	defer m.mu.Unlock()

	name := m.allocName(base)
	v := Var{id: m.nextID, name: name, typ: typ, temp: temp}
	m.nextID++
	if temp {
		m.temps[v.id] = v
	} else {
		m.tracked[v.id] = v
	}
	return v
}

// allocName must be called with mu held.
func (m *Manager) allocName(base string) string {
	n, taken := m.counters[base]
	if !taken {
		m.counters[base] = 0
		return base
	}
	for {
		candidate := fmt.Sprintf("%s%d", base, n)
		if _, clash := m.counters[candidate]; !clash {
			m.counters[base] = n + 1
			m.counters[candidate] = 1
			return candidate
		}
		n++
	}
}

// FreshUntracked returns a new symbol for internal use by the metering
// finder or the Farkas encoding (e.g. coefficient variables). It never
// enters the tracked or temporary pools: two untracked symbols with the same
// base are always distinct, and untracked symbols must never appear in a
// Rule's guard, cost or update once analysis concludes.
func (m *Manager) FreshUntracked(base string) Var {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := m.untrackedCounters[base]
	m.untrackedCounters[base] = n + 1
	name := base
	if n > 0 {
		name = fmt.Sprintf("%s_%d", base, n)
	}
	m.nextUntracked++
	return Var{id: -m.nextUntracked, name: name, typ: Real, temp: true}
}

// IsTracked reports whether v was allocated as a tracked program variable by
// this manager.
func (m *Manager) IsTracked(v Var) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.tracked[v.id]
	return ok
}

// IsTemp reports whether v was allocated as a temporary variable.
func (m *Manager) IsTemp(v Var) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.temps[v.id]
	return ok
}

// TrackedVars returns every tracked program variable registered so far.
func (m *Manager) TrackedVars() []Var {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Var, 0, len(m.tracked))
	for _, v := range m.tracked {
		out = append(out, v)
	}
	return out
}
