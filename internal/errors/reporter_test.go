package errors

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorReporterFormatsParseError(t *testing.T) {
	source := `(GOAL COMPLEXITY)
(VAR x y)
(RULES f(x,y) -> f(x/y,y) :|: x > 0)`

	reporter := NewErrorReporter("input.koat", source)
	reporter.SetPlain(true)

	err := DivisionDisallowed(Position{Filename: "input.koat", Line: 3, Column: 23})
	formatted := reporter.FormatError(err)

	assert.Contains(t, formatted, "error["+ErrorDivisionDisallowed+"]")
	assert.Contains(t, formatted, "division is not permitted")
	assert.Contains(t, formatted, "input.koat:3:23")
	assert.Contains(t, formatted, "--allow-division")
}

func TestUndefinedReferenceError(t *testing.T) {
	pos := Position{Line: 1, Column: 5}

	err := UndefinedReference("z", pos)
	assert.Equal(t, ErrorUndefinedReference, err.Code)
	assert.Contains(t, err.Message, "'z'")
	assert.Len(t, err.Suggestions, 1)
	assert.Contains(t, err.Suggestions[0].Message, "VAR section")
}

func TestUnsupportedConstructError(t *testing.T) {
	pos := Position{Line: 2, Column: 1}

	err := UnsupportedConstruct("floating point literal", pos)
	assert.Equal(t, ErrorUnsupportedConstruct, err.Code)
	assert.Contains(t, err.Message, "floating point literal")
	assert.NotEmpty(t, err.HelpText)
}

func TestUnknownFormatError(t *testing.T) {
	err := UnknownFormat("program.xyz", ".xyz")
	assert.Equal(t, ErrorUnknownFormat, err.Code)
	assert.Contains(t, err.Message, ".xyz")
}

func TestErrorLevelsProduceDistinctPrefixes(t *testing.T) {
	source := "test"
	reporter := NewErrorReporter("test.koat", source)
	reporter.SetPlain(true)
	pos := Position{Line: 1, Column: 1}

	errorErr := CompilerError{Level: Error, Message: "test error", Position: pos}
	warningErr := CompilerError{Level: Warning, Message: "test warning", Position: pos}

	assert.Contains(t, reporter.FormatError(errorErr), "error:")
	assert.Contains(t, reporter.FormatError(warningErr), "warning:")
}

func TestErrorMarkerCreation(t *testing.T) {
	reporter := NewErrorReporter("test.koat", "let variable = value;")
	reporter.SetPlain(true)

	marker := reporter.createMarker(5, 8, Error)
	spaces := strings.Count(marker, " ")
	assert.Equal(t, 4, spaces)
	carets := strings.Count(marker, "^")
	assert.Equal(t, 8, carets)
}

func TestInvariantViolationWrapsCause(t *testing.T) {
	cause := NewInvariantViolation("removed location still referenced")
	wrapped := WrapInvariantViolation(cause, "graph mutation aborted")

	assert.Contains(t, wrapped.Error(), "graph mutation aborted")
	assert.Contains(t, wrapped.Error(), "removed location still referenced")
}

func TestSolverErrorsCarryCode(t *testing.T) {
	to := SolverTimeout("meter candidate implication")
	un := SolverUnknown("recurrence discharge")

	assert.Contains(t, to.Error(), ErrorSolverTimeout)
	assert.Contains(t, un.Error(), ErrorSolverUnknown)
}
