// Package frontend implements LoAT's three textual front-ends (spec.md §6
// "Input"): KoAT, S-expression and T2. Each produces the same its.Graph /
// vars.Manager pair; Parse dispatches on the input file's extension
// (SPEC_FULL.md §3's koatToT2-style symmetry also gives us Emit, the
// inverse direction used by --print-simplified).
package frontend

import (
	"path/filepath"
	"strings"

	"github.com/aprove-developers/loat-go/internal/config"
	"github.com/aprove-developers/loat-go/internal/errors"
	"github.com/aprove-developers/loat-go/internal/its"
	"github.com/aprove-developers/loat-go/internal/vars"
)

// Format identifies one of the three supported front-ends.
type Format int

const (
	KoAT Format = iota
	SExpr
	T2
)

func (f Format) String() string {
	switch f {
	case KoAT:
		return "koat"
	case SExpr:
		return "sexpr"
	case T2:
		return "t2"
	default:
		return "?"
	}
}

// DetectFormat maps a filename's extension to a Format, per spec.md §6
// "extension determines format".
func DetectFormat(filename string) (Format, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".koat", ".kat":
		return KoAT, nil
	case ".smt2", ".sexpr", ".s":
		return SExpr, nil
	case ".t2", ".c":
		return T2, nil
	default:
		return 0, errors.UnknownFormat(filename, filepath.Ext(filename))
	}
}

// Parsed is the result of a front-end parse: the graph plus the variable
// manager that allocated every variable referenced in it.
type Parsed struct {
	Graph *its.Graph
	Vars  *vars.Manager
}

// Parse reads filename, dispatches on its extension, parses it into an
// its.Graph and applies the cost-nonnegativity preprocessing pass (spec.md
// §6 "Non-negative-cost enforcement... unless trivially implied").
func Parse(filename string, source []byte, cfg *config.Config) (*Parsed, error) {
	format, err := DetectFormat(filename)
	if err != nil {
		return nil, err
	}

	vm := vars.NewManager()
	var g *its.Graph

	switch format {
	case KoAT:
		g, err = parseKoAT(filename, string(source), vm, cfg)
	case SExpr:
		g, err = parseSExpr(filename, string(source), vm, cfg)
	case T2:
		g, err = parseT2(filename, string(source), vm, cfg)
	}
	if err != nil {
		return nil, err
	}

	if !cfg.NoCostCheck {
		EnforceNonNegativeCost(g)
	}

	return &Parsed{Graph: g, Vars: vm}, nil
}
