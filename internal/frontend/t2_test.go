package frontend

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aprove-developers/loat-go/internal/config"
	"github.com/aprove-developers/loat-go/internal/symb"
	"github.com/aprove-developers/loat-go/internal/vars"
)

func TestParseT2SimpleLoop(t *testing.T) {
	src := `START: l0;
FROM: l0;
assume(x > 0);
x := x - 1;
TO: l0;
`
	vm := vars.NewManager()
	g, err := parseT2("t.t2", src, vm, config.Default())
	require.NoError(t, err)

	ids := g.TransitionsFrom(g.Initial())
	require.Len(t, ids, 1)
	r, _ := g.Rule(ids[0])
	assert.Equal(t, r.Lhs.Loc, r.Rhss[0].Loc)
	assert.True(t, symb.Equal(r.Lhs.Cost, symb.One))

	lits := symb.Literals(r.Lhs.Guard)
	require.Len(t, lits, 1)
	assert.Equal(t, symb.Gt, lits[0].Op)
}

func TestParseT2ImplicitDeclarationOrderIndependent(t *testing.T) {
	// x is first referenced on the assume side here, and only assigned
	// afterwards - the guard-side reference must not require a prior
	// declaration.
	src := `START: l0;
FROM: l0;
assume(x > 0);
y := x;
TO: l1;
FROM: l1;
x := x - 1;
TO: l0;
`
	vm := vars.NewManager()
	g, err := parseT2("t.t2", src, vm, config.Default())
	require.NoError(t, err)
	assert.Len(t, g.AllRules(), 2)
}

func TestParseT2Nondet(t *testing.T) {
	src := `START: l0;
FROM: l0;
y := nondet();
TO: l1;
`
	vm := vars.NewManager()
	g, err := parseT2("t.t2", src, vm, config.Default())
	require.NoError(t, err)

	ids := g.TransitionsFrom(g.Initial())
	require.Len(t, ids, 1)
	r, _ := g.Rule(ids[0])

	var yVar vars.Var
	for v := range r.Rhss[0].Update {
		yVar = v
	}
	assert.Equal(t, "y", yVar.Name())
	assert.False(t, vm.IsTemp(yVar))

	val := r.Rhss[0].Update[yVar]
	sym, ok := val.(symb.Sym)
	require.True(t, ok)
	assert.True(t, vm.IsTemp(sym.Var))
}
