// Command loat analyses an integer transition system and reports an
// asymptotic lower bound on its worst-case runtime complexity, or (with
// --nonterm) a non-termination witness, per spec.md §6 "CLI surface".
package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/fatih/color"

	"github.com/aprove-developers/loat-go/internal/config"
	"github.com/aprove-developers/loat-go/internal/driver"
	cerrors "github.com/aprove-developers/loat-go/internal/errors"
	"github.com/aprove-developers/loat-go/internal/frontend"
	"github.com/aprove-developers/loat-go/internal/proof"
	"github.com/aprove-developers/loat-go/internal/smt"
)

const usage = `Usage: loat [flags] <file>

Flags:
  --timeout <s>              total wall-clock timeout, seconds (min 10)
  --proof-level <0-3>        none, minimal, default, verbose
  --plain                    disable colour
  --print-simplified         dump the final ITS in input format before analysis
  --allow-division           permit '/' in expressions (unsound)
  --no-cost-check            skip cost >= 0 enforcement (unsound)
  --no-preprocessing         skip the preprocessing simplification pass
  --limit-strategy <s>       smt, calculus or smtAndCalculus
  --no-const-cpx             skip the initial-rule Omega(1) shortcut
  --nonterm                  run non-termination proof mode only
`

func main() {
	cfg, path, err := parseArgs(os.Args[1:])
	if err != nil {
		color.Red("%s", err)
		fmt.Fprint(os.Stderr, usage)
		os.Exit(1)
	}

	source, err := os.ReadFile(path)
	if err != nil {
		color.Red("cannot read %s: %s", path, err)
		os.Exit(1)
	}

	parsed, err := frontend.Parse(path, source, cfg)
	if err != nil {
		reportError(path, string(source), cfg.Plain, err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.HardTimeout()+cfg.QueryTimeout)
	defer cancel()

	solver := smt.NewLinearSolver()
	scratch := smt.NewLinearSolver()
	result := driver.Run(ctx, parsed.Graph, cfg, solver, scratch)

	if cfg.PrintSimplified {
		format, ferr := frontend.DetectFormat(path)
		if ferr == nil {
			fmt.Println(frontend.Emit(parsed.Graph, format))
		}
	}

	fmt.Print(proof.Render(result.Proof.Lines(), cfg.ProofLevel, cfg.Plain))

	// Exit codes: 0 on a completed run, including MAYBE (spec.md §6); only
	// usage errors and parse failures (handled above) exit 1.
	os.Exit(0)
}

// parseArgs hand-parses argv the way the teacher's main.go reads os.Args
// directly: no flag-parsing library exists anywhere in the retrieval pack,
// so this mirrors that convention rather than introducing one.
func parseArgs(args []string) (*config.Config, string, error) {
	cfg := config.Default()
	var path string

	for i := 0; i < len(args); i++ {
		a := args[i]
		switch a {
		case "--timeout":
			v, err := nextInt(args, &i, "--timeout")
			if err != nil {
				return nil, "", err
			}
			if v < 10 {
				v = 10
			}
			cfg.Timeout = time.Duration(v) * time.Second
		case "--proof-level":
			v, err := nextInt(args, &i, "--proof-level")
			if err != nil {
				return nil, "", err
			}
			if v < 0 || v > 3 {
				return nil, "", fmt.Errorf("--proof-level must be between 0 and 3, got %d", v)
			}
			cfg.ProofLevel = config.ProofLevel(v)
		case "--plain":
			cfg.Plain = true
		case "--print-simplified":
			cfg.PrintSimplified = true
		case "--allow-division":
			cfg.AllowDivision = true
		case "--no-cost-check":
			cfg.NoCostCheck = true
		case "--no-preprocessing":
			cfg.NoPreprocessing = true
		case "--limit-strategy":
			v, err := nextString(args, &i, "--limit-strategy")
			if err != nil {
				return nil, "", err
			}
			cfg.LimitStrategy = config.ParseLimitStrategy(v)
		case "--no-const-cpx":
			cfg.NoConstCpx = true
		case "--nonterm":
			cfg.Nonterm = true
		default:
			if len(a) > 0 && a[0] == '-' {
				return nil, "", fmt.Errorf("unknown flag %q", a)
			}
			if path != "" {
				return nil, "", fmt.Errorf("unexpected extra argument %q", a)
			}
			path = a
		}
	}

	if path == "" {
		return nil, "", fmt.Errorf("missing input file")
	}
	return cfg, path, nil
}

func nextInt(args []string, i *int, flag string) (int, error) {
	s, err := nextString(args, i, flag)
	if err != nil {
		return 0, err
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%s expects an integer argument, got %q", flag, s)
	}
	return n, nil
}

func nextString(args []string, i *int, flag string) (string, error) {
	if *i+1 >= len(args) {
		return "", fmt.Errorf("%s requires an argument", flag)
	}
	*i++
	return args[*i], nil
}

// reportError renders err with the teacher's caret-pointer diagnostics when
// it is one of ours (cerrors.CompilerError), falling back to a plain
// message for anything else (file-not-found, internal errors).
func reportError(path, source string, plain bool, err error) {
	var ce cerrors.CompilerError
	if asCompilerError(err, &ce) {
		reporter := cerrors.NewErrorReporter(path, source)
		reporter.SetPlain(plain)
		fmt.Fprint(os.Stderr, reporter.FormatError(ce))
		return
	}
	color.Red("%s", err)
}

func asCompilerError(err error, target *cerrors.CompilerError) bool {
	if ce, ok := err.(cerrors.CompilerError); ok {
		*target = ce
		return true
	}
	return false
}
