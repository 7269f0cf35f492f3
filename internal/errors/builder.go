package errors

import (
	"fmt"

	pkgerrors "github.com/pkg/errors"
)

// ErrorBuilder provides a fluent interface for constructing CompilerErrors
// with suggestions, notes and help text (kept from the teacher's
// SemanticErrorBuilder pattern, retargeted at LoAT's own error families).
type ErrorBuilder struct {
	err CompilerError
}

// NewParseError starts a parse-level error (E0001-E0099 range).
func NewParseError(code, message string, pos Position) *ErrorBuilder {
	return &ErrorBuilder{err: CompilerError{Level: Error, Code: code, Message: message, Position: pos, Length: 1}}
}

// NewUnsupportedError starts an unsupported-construct error (E0100-E0199).
func NewUnsupportedError(code, message string, pos Position) *ErrorBuilder {
	return &ErrorBuilder{err: CompilerError{Level: Error, Code: code, Message: message, Position: pos, Length: 1}}
}

func (b *ErrorBuilder) WithLength(length int) *ErrorBuilder {
	b.err.Length = length
	return b
}

func (b *ErrorBuilder) WithSuggestion(message string) *ErrorBuilder {
	b.err.Suggestions = append(b.err.Suggestions, Suggestion{Message: message})
	return b
}

func (b *ErrorBuilder) WithNote(note string) *ErrorBuilder {
	b.err.Notes = append(b.err.Notes, note)
	return b
}

func (b *ErrorBuilder) WithHelp(help string) *ErrorBuilder {
	b.err.HelpText = help
	return b
}

func (b *ErrorBuilder) Build() CompilerError { return b.err }

// ParseSyntaxError wraps a front-end parser's syntax error at pos.
func ParseSyntaxError(message string, pos Position) CompilerError {
	return NewParseError(ErrorParseSyntax, message, pos).
		WithHelp("check the input against the expected KoAT/S-expression/T2 grammar").
		Build()
}

// DivisionDisallowed reports a `/` operator used without --allow-division.
func DivisionDisallowed(pos Position) CompilerError {
	return NewParseError(ErrorDivisionDisallowed, "division is not permitted in this expression", pos).
		WithSuggestion("pass --allow-division to permit it (marked unsound)").
		WithNote("division is rejected by default because it is not sound over the integers LoAT reasons about").
		Build()
}

// UnknownFormat reports an input file whose extension matches no front-end.
func UnknownFormat(filename, ext string) CompilerError {
	return NewParseError(ErrorUnknownFormat, fmt.Sprintf("unrecognized input format %q", ext), Position{Filename: filename}).
		WithSuggestion("use a .koat, .smt2, .t2 or .c file extension").
		Build()
}

// UndefinedReference reports a rule referencing an undeclared variable.
func UndefinedReference(name string, pos Position) CompilerError {
	return NewParseError(ErrorUndefinedReference, fmt.Sprintf("undeclared variable '%s'", name), pos).
		WithLength(len(name)).
		WithSuggestion("declare the variable in the VAR section before using it in a rule").
		Build()
}

// UnsupportedConstruct reports a construct the parser accepted but the
// core cannot express (SPEC_FULL.md §1).
func UnsupportedConstruct(construct string, pos Position) CompilerError {
	return NewUnsupportedError(ErrorUnsupportedConstruct, fmt.Sprintf("unsupported construct: %s", construct), pos).
		WithHelp("LoAT's core only reasons about linear integer transition systems").
		Build()
}

// NonLinearInput reports an expression that did not reduce to linear
// integer arithmetic during preprocessing.
func NonLinearInput(expr string, pos Position) CompilerError {
	return NewUnsupportedError(ErrorNonLinearInput, fmt.Sprintf("expression is not linear: %s", expr), pos).
		WithNote("guards and updates must be linear in the tracked variables").
		Build()
}

// NewInvariantViolation builds a fatal internal error (SPEC_FULL.md §1
// "invariant violation"), stack-traced via pkg/errors so the diagnostic is
// traceable back to the offending call site.
func NewInvariantViolation(message string) error {
	return pkgerrors.New("invariant violation: " + message)
}

// WrapInvariantViolation wraps an existing error as an invariant violation,
// preserving its cause for errors.Cause (SPEC_FULL.md's
// errors.Wrap/errors.Cause convention).
func WrapInvariantViolation(err error, message string) error {
	return pkgerrors.Wrap(err, "invariant violation: "+message)
}

// SolverTimeout reports an SMT query that exceeded its allotted timeout.
func SolverTimeout(query string) error {
	return pkgerrors.Errorf("[%s] solver timeout: %s", ErrorSolverTimeout, query)
}

// SolverUnknown reports an SMT query that returned an inconclusive result.
func SolverUnknown(query string) error {
	return pkgerrors.Errorf("[%s] solver returned unknown: %s", ErrorSolverUnknown, query)
}
