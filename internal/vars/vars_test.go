package vars

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFreshAssignsSuffixOnCollision(t *testing.T) {
	m := NewManager()
	x0 := m.Fresh("x", Int, false)
	x1 := m.Fresh("x", Int, false)
	x2 := m.Fresh("x", Int, false)

	assert.Equal(t, "x", x0.Name())
	assert.Equal(t, "x0", x1.Name())
	assert.Equal(t, "x1", x2.Name())
	assert.NotEqual(t, x0.ID(), x1.ID())
}

func TestFreshTrackedVsTemp(t *testing.T) {
	m := NewManager()
	tracked := m.Fresh("x", Int, false)
	temp := m.Fresh("t", Int, true)

	require.True(t, m.IsTracked(tracked))
	require.False(t, m.IsTemp(tracked))
	require.True(t, m.IsTemp(temp))
	require.False(t, m.IsTracked(temp))
	assert.True(t, temp.IsTemp())
	assert.False(t, tracked.IsTemp())
}

func TestFreshUntrackedNeverCollidesWithTrackedPool(t *testing.T) {
	m := NewManager()
	_ = m.Fresh("lambda", Int, false)
	u1 := m.FreshUntracked("lambda")
	u2 := m.FreshUntracked("lambda")

	assert.NotEqual(t, u1.ID(), u2.ID())
	assert.False(t, m.IsTracked(u1))
	assert.False(t, m.IsTemp(u1) && m.IsTracked(u1))
}

func TestTrackedVarsReflectsOnlyTrackedPool(t *testing.T) {
	m := NewManager()
	x := m.Fresh("x", Int, false)
	_ = m.Fresh("t", Int, true)

	names := make(map[string]bool)
	for _, v := range m.TrackedVars() {
		names[v.Name()] = true
	}
	assert.True(t, names[x.Name()])
	assert.Len(t, m.TrackedVars(), 1)
}

func TestTypeString(t *testing.T) {
	assert.Equal(t, "Int", Int.String())
	assert.Equal(t, "Real", Real.String())
}
