package frontend

import (
	"github.com/alecthomas/participle/v2/lexer"
)

// sharedLexer tokenizes all three input formats (spec.md §6): KoAT's
// s-expression-flavoured directives, the SMT-LIB-like S-expression format
// and T2's line-oriented statements, following the teacher's stateful
// lexer-as-package-var pattern (grammar/lexer.go's KansoLexer).
var sharedLexer = lexer.MustStateful(lexer.Rules{
	"Root": {
		{"Comment", `//[^\n]*|;;[^\n]*`, nil},
		{"Ident", `[a-zA-Z_][a-zA-Z0-9_']*`, nil},
		{"Int", `[0-9]+`, nil},
		{"Op", `->|:\|:|<=|>=|==|!=|:=|=`, nil},
		{"Punct", `[(){}\[\],;+\-*/^<>:]`, nil},
		{"Whitespace", `[ \t\r\n]+`, nil},
	},
})
