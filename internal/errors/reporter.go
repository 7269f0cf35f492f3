// Package errors implements LoAT's diagnostic formatting (SPEC_FULL.md §1
// "Error reporting"): the teacher's caret-pointer rendering
// (source line, --> location marker, underline caret, fatih/color),
// adapted from Kanso's compile-time diagnostics to LoAT's own error
// families (parse, unsupported construct, solver, invariant violation).
package errors

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
)

// Position is a 1-based line/column location in a parsed input file.
type Position struct {
	Filename string
	Line     int
	Column   int
}

// ErrorLevel represents the severity of a diagnostic.
type ErrorLevel string

const (
	Error   ErrorLevel = "error"
	Warning ErrorLevel = "warning"
	Note    ErrorLevel = "note"
	Help    ErrorLevel = "help"
)

// CompilerError is a structured diagnostic with suggestions and context,
// used for every front-end and preprocessing error (SPEC_FULL.md §1).
type CompilerError struct {
	Level       ErrorLevel
	Code        string
	Message     string
	Position    Position
	Length      int
	Suggestions []Suggestion
	Notes       []string
	HelpText    string
}

// Error implements the error interface so a CompilerError can be returned
// and wrapped (errors.As, pkg/errors.Wrap) like any other Go error; callers
// wanting the caret-pointer rendering go through ErrorReporter.FormatError.
func (e CompilerError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s:%d:%d: [%s] %s", e.Position.Filename, e.Position.Line, e.Position.Column, e.Code, e.Message)
	}
	return fmt.Sprintf("%s:%d:%d: %s", e.Position.Filename, e.Position.Line, e.Position.Column, e.Message)
}

// Suggestion is a suggested fix attached to a CompilerError.
type Suggestion struct {
	Message     string
	Replacement string
	Position    Position
	Length      int
}

// ErrorReporter formats CompilerErrors against one file's source.
type ErrorReporter struct {
	filename string
	source   string
	lines    []string
	plain    bool
}

// NewErrorReporter creates a reporter for a file's source text.
func NewErrorReporter(filename, source string) *ErrorReporter {
	return &ErrorReporter{
		filename: filename,
		source:   source,
		lines:    strings.Split(source, "\n"),
	}
}

// SetPlain disables ANSI colouring, honouring the --plain CLI flag.
func (er *ErrorReporter) SetPlain(plain bool) { er.plain = plain }

// FormatError renders err with the teacher's Rust-like styling.
func (er *ErrorReporter) FormatError(err CompilerError) string {
	var result strings.Builder

	levelColor := er.getLevelColor(err.Level)
	bold := er.style(color.Bold)
	dim := er.style(color.Faint)

	if err.Code != "" {
		result.WriteString(fmt.Sprintf("%s[%s]: %s\n",
			levelColor(string(err.Level)), err.Code, err.Message))
	} else {
		result.WriteString(fmt.Sprintf("%s: %s\n",
			levelColor(string(err.Level)), err.Message))
	}

	lineNumberWidth := er.getLineNumberWidth(err.Position.Line)
	indent := strings.Repeat(" ", lineNumberWidth)

	result.WriteString(fmt.Sprintf("%s %s %s:%d:%d\n",
		indent, dim("-->"), er.filename, err.Position.Line, err.Position.Column))
	result.WriteString(fmt.Sprintf("%s %s\n", indent, dim("|")))

	if err.Position.Line > 1 && err.Position.Line-1 < len(er.lines) {
		result.WriteString(fmt.Sprintf("%s %s %s\n",
			dim(fmt.Sprintf("%*d", lineNumberWidth, err.Position.Line-1)),
			dim("|"),
			er.lines[err.Position.Line-2]))
	}

	if err.Position.Line <= len(er.lines) && err.Position.Line > 0 {
		lineContent := er.lines[err.Position.Line-1]
		result.WriteString(fmt.Sprintf("%s %s %s\n",
			bold(fmt.Sprintf("%*d", lineNumberWidth, err.Position.Line)),
			dim("|"),
			lineContent))

		marker := er.createMarker(err.Position.Column, err.Length, err.Level)
		result.WriteString(fmt.Sprintf("%s %s %s\n", indent, dim("|"), marker))
	}

	if err.Position.Line < len(er.lines) {
		result.WriteString(fmt.Sprintf("%s %s %s\n",
			dim(fmt.Sprintf("%*d", lineNumberWidth, err.Position.Line+1)),
			dim("|"),
			er.lines[err.Position.Line]))
	}

	if len(err.Suggestions) > 0 {
		result.WriteString(fmt.Sprintf("%s %s\n", indent, dim("|")))
		suggestionColor := er.style(color.FgCyan)
		for i, suggestion := range err.Suggestions {
			if i == 0 {
				result.WriteString(fmt.Sprintf("%s %s %s: %s\n",
					indent, suggestionColor("help"), suggestionColor("try"), suggestion.Message))
			} else {
				result.WriteString(fmt.Sprintf("%s %s %s\n",
					indent, suggestionColor("    "), suggestion.Message))
			}

			if suggestion.Replacement != "" {
				result.WriteString(fmt.Sprintf("%s %s\n", indent, dim("|")))
				replacement := strings.ReplaceAll(suggestion.Replacement, "\n", fmt.Sprintf("\n%s %s ", indent, dim("|")))
				result.WriteString(fmt.Sprintf("%s %s %s\n",
					indent, suggestionColor("|"), suggestionColor(replacement)))
			}
		}
	}

	noteColor := er.style(color.FgBlue)
	for _, note := range err.Notes {
		result.WriteString(fmt.Sprintf("%s %s %s %s\n",
			indent, dim("|"), noteColor("note:"), note))
	}

	if err.HelpText != "" {
		helpColor := er.style(color.FgGreen)
		result.WriteString(fmt.Sprintf("%s %s %s %s\n",
			indent, dim("|"), helpColor("help:"), err.HelpText))
	}

	result.WriteString("\n")
	return result.String()
}

func (er *ErrorReporter) style(attrs ...color.Attribute) func(...interface{}) string {
	c := color.New(attrs...)
	if er.plain {
		c.DisableColor()
	}
	return c.SprintFunc()
}

func (er *ErrorReporter) getLevelColor(level ErrorLevel) func(...interface{}) string {
	switch level {
	case Error:
		return er.style(color.FgRed, color.Bold)
	case Warning:
		return er.style(color.FgYellow, color.Bold)
	case Note:
		return er.style(color.FgBlue, color.Bold)
	case Help:
		return er.style(color.FgGreen, color.Bold)
	default:
		return er.style(color.FgRed, color.Bold)
	}
}

func (er *ErrorReporter) createMarker(column, length int, level ErrorLevel) string {
	if length <= 0 {
		length = 1
	}
	spaces := strings.Repeat(" ", max(0, column-1))

	markerChar := "^"
	var markerColor func(...interface{}) string
	switch level {
	case Warning:
		markerColor = er.style(color.FgYellow, color.Bold)
	default:
		markerColor = er.style(color.FgRed, color.Bold)
	}

	marker := strings.Repeat(markerChar, length)
	return spaces + markerColor(marker)
}

func (er *ErrorReporter) getLineNumberWidth(line int) int {
	width := len(fmt.Sprintf("%d", line))
	if width < 3 {
		width = 3
	}
	return width
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
