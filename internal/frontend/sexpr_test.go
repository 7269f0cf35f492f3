package frontend

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aprove-developers/loat-go/internal/config"
	"github.com/aprove-developers/loat-go/internal/symb"
	"github.com/aprove-developers/loat-go/internal/vars"
)

func TestParseSExprSimpleLoop(t *testing.T) {
	src := `(VARS (x))
(INITIAL l0)
(TRANSITIONS
  (TRANSITION (FROM l0) (TO l0)
    (GUARD (> x 0))
    (NEXT (= x' (- x 1)))))
`
	vm := vars.NewManager()
	g, err := parseSExpr("t.smt2", src, vm, config.Default())
	require.NoError(t, err)

	ids := g.TransitionsFrom(g.Initial())
	require.Len(t, ids, 1)
	r, _ := g.Rule(ids[0])
	assert.Equal(t, r.Lhs.Loc, r.Rhss[0].Loc)

	lits := symb.Literals(r.Lhs.Guard)
	require.Len(t, lits, 1)
	assert.Equal(t, symb.Gt, lits[0].Op)
}

func TestParseSExprGuardNegation(t *testing.T) {
	src := `(VARS (x y))
(INITIAL l0)
(TRANSITIONS
  (TRANSITION (FROM l0) (TO l0)
    (GUARD (not (and (> x 0) (> y 0))))
    (NEXT (= x' x) (= y' y))))
`
	vm := vars.NewManager()
	g, err := parseSExpr("t.smt2", src, vm, config.Default())
	require.NoError(t, err)

	ids := g.TransitionsFrom(g.Initial())
	require.Len(t, ids, 1)
	r, _ := g.Rule(ids[0])

	// not(and(x>0, y>0)) == or(x<=0, y<=0): two literals, both <=.
	lits := symb.Literals(r.Lhs.Guard)
	require.Len(t, lits, 2)
	for _, l := range lits {
		assert.Equal(t, symb.Le, l.Op)
	}
}

func TestParseSExprRejectsNonPostUpdateTarget(t *testing.T) {
	src := `(VARS (x))
(INITIAL l0)
(TRANSITIONS
  (TRANSITION (FROM l0) (TO l0)
    (NEXT (= x (- x 1)))))
`
	vm := vars.NewManager()
	_, err := parseSExpr("t.smt2", src, vm, config.Default())
	require.Error(t, err)
}
