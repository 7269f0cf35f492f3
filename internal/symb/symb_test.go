package symb

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aprove-developers/loat-go/internal/complexity"
	"github.com/aprove-developers/loat-go/internal/vars"
)

func freshVar(t *testing.T, m *vars.Manager, name string) vars.Var {
	t.Helper()
	return m.Fresh(name, vars.Int, false)
}

func TestPlusFoldsConstants(t *testing.T) {
	e := Plus(NewConst(1), NewConst(2), NewConst(3))
	c, ok := e.(Const)
	require.True(t, ok)
	assert.Equal(t, "6", c.String())
}

func TestTimesByZeroCollapses(t *testing.T) {
	m := vars.NewManager()
	x := NewSym(freshVar(t, m, "x"))
	assert.True(t, Equal(Times(x, Zero), Zero))
}

func TestEqualUpToCanonicalOrder(t *testing.T) {
	m := vars.NewManager()
	x := NewSym(freshVar(t, m, "x"))
	y := NewSym(freshVar(t, m, "y"))
	a := Plus(x, y)
	b := Plus(y, x)
	assert.True(t, Equal(a, b))
}

func TestNormalizeInequalityIdempotent(t *testing.T) {
	m := vars.NewManager()
	x := NewSym(freshVar(t, m, "x"))
	r := NewRel(x, Ge, NewConst(0))
	once := NormalizeInequality(r)
	twice := NormalizeInequality(once)
	assert.True(t, Equal(once.Lhs, twice.Lhs))
	assert.Equal(t, once.Op, twice.Op)
	assert.True(t, Equal(once.Rhs, twice.Rhs))
}

func TestSubsComposeLaw(t *testing.T) {
	m := vars.NewManager()
	x := freshVar(t, m, "x")
	y := freshVar(t, m, "y")
	z := freshVar(t, m, "z")

	expr := Plus(NewSym(x), NewConst(1))
	a := Subst{y: Plus(NewSym(z), NewConst(2))}
	b := Subst{x: NewSym(y)}

	lhs := Subs(Subs(expr, b), a)
	rhs := Subs(expr, Compose(a, b))
	assert.True(t, Equal(lhs, rhs))
}

func TestSubsNonlinearStructuralMatch(t *testing.T) {
	m := vars.NewManager()
	x := freshVar(t, m, "x")
	y := freshVar(t, m, "y")

	xSquared := RaisePow(NewSym(x), NewConst(2))
	got := Subs(xSquared, Subst{x: NewSym(y)})
	want := RaisePow(NewSym(y), NewConst(2))
	assert.True(t, Equal(got, want))
}

func TestComplexityScenarios(t *testing.T) {
	m := vars.NewManager()
	x := NewSym(freshVar(t, m, "x"))

	assert.Equal(t, complexity.Const, Complexity(NewConst(5)))
	assert.Equal(t, complexity.Poly(1), Complexity(x))
	assert.Equal(t, complexity.Poly(2), Complexity(Times(x, x)))
	assert.Equal(t, complexity.Poly(1), Complexity(Plus(x, NewConst(1))))
	assert.True(t, Complexity(Nonterm).IsUnbounded())

	n := NewSym(freshVar(t, m, "n"))
	assert.Equal(t, complexity.Exp, Complexity(RaisePow(NewConst(2), n)))
}

func TestDegreeAndCoeff(t *testing.T) {
	m := vars.NewManager()
	x := freshVar(t, m, "x")
	sx := NewSym(x)

	poly := Plus(Times(NewConst(3), sx, sx), Times(NewConst(2), sx), NewConst(1))
	assert.Equal(t, 2, Degree(poly, x))
	assert.True(t, Equal(LCoeff(poly, x), NewConst(3)))
	assert.True(t, Equal(Coeff(poly, x, 0), NewConst(1)))
}

func TestToDNFDistributesOrOverAnd(t *testing.T) {
	m := vars.NewManager()
	x := NewSym(freshVar(t, m, "x"))
	y := NewSym(freshVar(t, m, "y"))

	a := Lit{Rel: NewRel(x, Gt, Zero)}
	b := Lit{Rel: NewRel(y, Gt, Zero)}
	c := Lit{Rel: NewRel(x, Lt, Zero)}

	g := MkAnd(MkOr(a, c), b)
	dnf := ToDNF(g)
	assert.Len(t, dnf, 2)
	for _, conj := range dnf {
		assert.Len(t, conj, 2)
	}
}

func TestGuardHashStableUnderReorder(t *testing.T) {
	m := vars.NewManager()
	x := NewSym(freshVar(t, m, "x"))
	y := NewSym(freshVar(t, m, "y"))

	a := Lit{Rel: NewRel(x, Gt, Zero)}
	b := Lit{Rel: NewRel(y, Gt, Zero)}

	g1 := MkAnd(a, b)
	g2 := MkAnd(b, a)
	assert.Equal(t, Hash(g1), Hash(g2))
	assert.True(t, EqualGuard(g1, g2))
}

func TestTriviallyTrueFalse(t *testing.T) {
	r := NewRel(NewConst(3), Gt, NewConst(1))
	assert.True(t, r.IsTriviallyTrue())
	assert.False(t, r.IsTriviallyFalse())

	f := NewRel(NewConst(1), Gt, NewConst(3))
	assert.True(t, f.IsTriviallyFalse())
}
