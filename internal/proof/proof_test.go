package proof

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/aprove-developers/loat-go/internal/complexity"
	"github.com/aprove-developers/loat-go/internal/config"
)

func TestProofAccumulatesInOrder(t *testing.T) {
	p := New()
	p.Headline("preprocessing")
	p.Section("removed 2 unsat rules")
	p.Plain("rule 3 -> 7 discarded")
	p.ResultLine(complexity.Poly(2))

	lines := p.Lines()
	assert.Len(t, lines, 4)
	assert.Equal(t, Headline, lines[0].Kind)
	assert.Equal(t, Section, lines[1].Kind)
	assert.Equal(t, Plain, lines[2].Kind)
	assert.Equal(t, Result, lines[3].Kind)
	assert.Equal(t, "WORST_CASE(Ω(n^2), ?)", lines[3].Text)
}

func TestPlainAllAppendsEachLine(t *testing.T) {
	p := New()
	p.PlainAll([]string{"a", "b", "c"})
	lines := p.Lines()
	assert.Len(t, lines, 3)
	for i, want := range []string{"a", "b", "c"} {
		assert.Equal(t, want, lines[i].Text)
	}
}

func TestRenderLevelNoneOnlyKeepsResult(t *testing.T) {
	p := New()
	p.Headline("step")
	p.Section("sub-step")
	p.ResultLine(complexity.Poly(1))

	out := Render(p.Lines(), config.ProofLevelNone, true)
	assert.NotContains(t, out, "step")
	assert.Contains(t, out, "WORST_CASE(Ω(n^1), ?)")
}

func TestRenderVerboseIncludesPlainLines(t *testing.T) {
	p := New()
	p.Headline("step")
	p.Plain("detail")

	verbose := Render(p.Lines(), config.ProofLevelVerbose, true)
	assert.Contains(t, verbose, "detail")

	minimal := Render(p.Lines(), config.ProofLevelMinimal, true)
	assert.NotContains(t, minimal, "detail")
}

func TestRenderPlainDisablesColour(t *testing.T) {
	p := New()
	p.Headline("step")

	out := Render(p.Lines(), config.ProofLevelDefault, true)
	assert.False(t, strings.Contains(out, "\x1b["))
}
