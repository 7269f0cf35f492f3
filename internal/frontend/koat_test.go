package frontend

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aprove-developers/loat-go/internal/config"
	"github.com/aprove-developers/loat-go/internal/errors"
	"github.com/aprove-developers/loat-go/internal/symb"
	"github.com/aprove-developers/loat-go/internal/vars"
)

func TestParseKoATSimpleLoop(t *testing.T) {
	src := `(GOAL COMPLEXITY)
(STARTTERM (FUNCTIONSYMBOLS f))
(VAR x)
(RULES
  f(x) -> f(x-1) :|: x > 0
)
`
	vm := vars.NewManager()
	g, err := parseKoAT("t.koat", src, vm, config.Default())
	require.NoError(t, err)

	ids := g.TransitionsFrom(g.Initial())
	require.Len(t, ids, 1)
	r, _ := g.Rule(ids[0])

	require.True(t, symb.Equal(r.Lhs.Cost, symb.One))
	require.Len(t, r.Rhss, 1)
	assert.Equal(t, r.Lhs.Loc, r.Rhss[0].Loc)

	lits := symb.Literals(r.Lhs.Guard)
	require.Len(t, lits, 1)
	assert.Equal(t, symb.Gt, lits[0].Op)
}

func TestParseKoATCostAnnotation(t *testing.T) {
	src := `(GOAL COMPLEXITY)
(STARTTERM (FUNCTIONSYMBOLS f))
(VAR x)
(RULES
  f(x) -{x}> f(2*x) :|: x > 0
)
`
	vm := vars.NewManager()
	g, err := parseKoAT("t.koat", src, vm, config.Default())
	require.NoError(t, err)

	ids := g.TransitionsFrom(g.Initial())
	require.Len(t, ids, 1)
	r, _ := g.Rule(ids[0])

	assert.False(t, symb.Equal(r.Lhs.Cost, symb.One))
	assert.Contains(t, r.Lhs.Cost.String(), "x")
}

func TestParseKoATRejectsArityMismatch(t *testing.T) {
	src := `(GOAL COMPLEXITY)
(STARTTERM (FUNCTIONSYMBOLS f))
(VAR x y)
(RULES
  f(x) -> f(x,y) :|: x > 0
)
`
	vm := vars.NewManager()
	_, err := parseKoAT("t.koat", src, vm, config.Default())
	require.Error(t, err)
}

func TestParseKoATDivisionRequiresFlag(t *testing.T) {
	src := `(GOAL COMPLEXITY)
(STARTTERM (FUNCTIONSYMBOLS f))
(VAR x)
(RULES
  f(x) -> f(x/2) :|: x > 0
)
`
	vm := vars.NewManager()
	_, err := parseKoAT("t.koat", src, vm, config.Default())
	require.Error(t, err)

	cfg := config.Default()
	cfg.AllowDivision = true
	vm2 := vars.NewManager()
	g, err := parseKoAT("t.koat", src, vm2, cfg)
	require.NoError(t, err)
	ids := g.TransitionsFrom(g.Initial())
	require.Len(t, ids, 1)
}

func TestDetectFormatByExtension(t *testing.T) {
	f, err := DetectFormat("prog.koat")
	require.NoError(t, err)
	assert.Equal(t, KoAT, f)

	f, err = DetectFormat("prog.t2")
	require.NoError(t, err)
	assert.Equal(t, T2, f)

	f, err = DetectFormat("prog.smt2")
	require.NoError(t, err)
	assert.Equal(t, SExpr, f)

	_, err = DetectFormat("prog.xyz")
	require.Error(t, err)
	var ce errors.CompilerError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, errors.ErrorUnknownFormat, ce.Code)
}
