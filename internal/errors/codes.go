package errors

// Error codes for LoAT's front-end and driver.
//
// Error code ranges:
// E0001-E0099: Parse errors (malformed KoAT/S-expression/T2 input)
// E0100-E0199: Preprocessing / unsupported-construct errors
// E0200-E0299: Solver errors (timeout, unknown result)
// E0300-E0399: Invariant violation (internal, always fatal)

const (
	// E0001: Generic syntax error from a front-end parser.
	ErrorParseSyntax = "E0001"

	// E0002: Division used without --allow-division.
	ErrorDivisionDisallowed = "E0002"

	// E0003: Input file extension does not match any known front-end.
	ErrorUnknownFormat = "E0003"

	// E0004: Malformed variable or location reference in a parsed rule.
	ErrorUndefinedReference = "E0004"

	// E0100: A construct the parser accepts but the core cannot express
	// (e.g. non-integer domains, unsupported T2 statement).
	ErrorUnsupportedConstruct = "E0100"

	// E0101: A rule's cost or guard does not reduce to linear integer
	// arithmetic after preprocessing.
	ErrorNonLinearInput = "E0101"

	// E0200: The SMT driver exceeded its timeout for a query.
	ErrorSolverTimeout = "E0200"

	// E0201: The SMT driver returned Unknown for a query the caller needed
	// decided.
	ErrorSolverUnknown = "E0201"

	// E0300: An internal invariant was violated (e.g. removing a location
	// that is still referenced). Always a bug, never user-facing input.
	ErrorInvariantViolation = "E0300"
)

// GetErrorDescription returns a human-readable description of the error code.
func GetErrorDescription(code string) string {
	switch code {
	case ErrorParseSyntax:
		return "Input could not be parsed in the expected format"
	case ErrorDivisionDisallowed:
		return "Division is not permitted unless --allow-division is given"
	case ErrorUnknownFormat:
		return "Input file extension does not match a supported front-end"
	case ErrorUndefinedReference:
		return "Rule references a variable or location that was never declared"
	case ErrorUnsupportedConstruct:
		return "Construct is accepted by the parser but not supported by the core"
	case ErrorNonLinearInput:
		return "Expression is not linear integer arithmetic after preprocessing"
	case ErrorSolverTimeout:
		return "SMT query exceeded its allotted timeout"
	case ErrorSolverUnknown:
		return "SMT query returned an inconclusive result"
	case ErrorInvariantViolation:
		return "Internal invariant violated"
	default:
		return "Unknown error code"
	}
}

// GetErrorCategory returns the category of the error based on its code.
func GetErrorCategory(code string) string {
	switch {
	case code >= "E0001" && code < "E0100":
		return "Parse"
	case code >= "E0100" && code < "E0200":
		return "Unsupported construct"
	case code >= "E0200" && code < "E0300":
		return "Solver"
	case code >= "E0300" && code < "E0400":
		return "Invariant violation"
	default:
		return "Unknown"
	}
}
