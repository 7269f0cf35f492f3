// Package proof implements LoAT's append-only proof trace (spec.md §3
// "Proof objects accumulate append-only lines", §6 "structured proof trace
// on stdout"): headlined major steps, sectioned minor steps, plain lines
// and a final result line, with ANSI colouring gated by --plain.
package proof

import (
	"strings"

	"github.com/fatih/color"

	"github.com/aprove-developers/loat-go/internal/complexity"
	"github.com/aprove-developers/loat-go/internal/config"
)

// Kind distinguishes a proof line's role in the rendered trace.
type Kind int

const (
	// Headline marks a major step (spec.md §4.12 "a major step appends a
	// headline").
	Headline Kind = iota
	// Section marks a minor step ("a minor step appends a section").
	Section
	// Plain is an unstructured line of detail under the current section.
	Plain
	// Result is the terminal complexity/non-termination verdict line.
	Result
)

// Line is one entry of the append-only proof trace.
type Line struct {
	Kind Kind
	Text string
}

// Proof is the append-only proof sink shared across the driver and its
// components (spec.md §5 "a process-wide proof sink (append-only)").
// Nothing in the module removes or reorders a line once appended.
type Proof struct {
	lines []Line
}

// New returns an empty proof trace.
func New() *Proof { return &Proof{} }

// Headline appends a major-step line.
func (p *Proof) Headline(text string) { p.lines = append(p.lines, Line{Kind: Headline, Text: text}) }

// Section appends a minor-step line.
func (p *Proof) Section(text string) { p.lines = append(p.lines, Line{Kind: Section, Text: text}) }

// Plain appends an unstructured detail line.
func (p *Proof) Plain(text string) { p.lines = append(p.lines, Line{Kind: Plain, Text: text}) }

// PlainAll appends every string in texts as its own plain line, in order.
func (p *Proof) PlainAll(texts []string) {
	for _, t := range texts {
		p.Plain(t)
	}
}

// ResultLine appends the terminal complexity verdict as a WST-style line.
func (p *Proof) ResultLine(c complexity.Class) {
	p.lines = append(p.lines, Line{Kind: Result, Text: c.WSTLine()})
}

// Lines returns the accumulated trace, in append order.
func (p *Proof) Lines() []Line {
	out := make([]Line, len(p.lines))
	copy(out, p.lines)
	return out
}

// Render formats the trace for stdout at the given verbosity (§6
// --proof-level), colourising headlines/sections/results unless plain is
// set (§6 --plain).
func Render(lines []Line, level config.ProofLevel, plain bool) string {
	resultColor := style(plain, color.FgGreen, color.Bold)

	if level == config.ProofLevelNone {
		var b strings.Builder
		for _, l := range lines {
			if l.Kind == Result {
				b.WriteString(resultColor(l.Text))
				b.WriteString("\n")
			}
		}
		return b.String()
	}

	headlineColor := style(plain, color.FgMagenta, color.Bold)
	sectionColor := style(plain, color.FgCyan)

	var b strings.Builder
	for _, l := range lines {
		switch l.Kind {
		case Headline:
			b.WriteString(headlineColor("== " + l.Text + " =="))
			b.WriteString("\n")
		case Section:
			if level < config.ProofLevelDefault {
				continue
			}
			b.WriteString(sectionColor("-- " + l.Text + " --"))
			b.WriteString("\n")
		case Plain:
			if level < config.ProofLevelVerbose {
				continue
			}
			b.WriteString("   " + l.Text)
			b.WriteString("\n")
		case Result:
			b.WriteString(resultColor(l.Text))
			b.WriteString("\n")
		}
	}
	return b.String()
}

func style(plain bool, attrs ...color.Attribute) func(string) string {
	c := color.New(attrs...)
	if plain {
		c.DisableColor()
	}
	return func(s string) string { return c.Sprint(s) }
}
