// Package token defines the token types for FHIRPath parsing.
package token

import "fmt"

// TokenType represents the type of a lexical token.
//
//nolint:revive // Accept stutter as token.TokenType is clear and widely used
type TokenType int32

const (
	// Special tokens
	EOF TokenType = iota
	ILLEGAL

	// Literals
	IDENT    // identifier or `delimited identifier`
	NUMBER   // 123, 45.67
	STRING   // 'hello'
	DATE     // @2015-02-04
	DATETIME // @2015-02-04T14:34:28Z
	TIME     // @T14:34:28

	// Operators
	PLUS     // +
	MINUS    // -
	STAR     // *
	SLASH    // /
	AMP      // & (string concatenation, empty treated as '')
	PIPE     // | (collection union)
	EQ       // =
	NE       // !=
	EQUIV    // ~
	NEQUIV   // !~
	LT       // <
	GT       // >
	LE       // <=
	GE       // >=
	DOT      // .
	COMMA    // ,
	LPAREN   // (
	RPAREN   // )
	LBRACKET // [
	RBRACKET // ]
	LBRACE   // { (empty collection literal)
	RBRACE   // }

	// Special variables and external constants
	DOLLAR  // $this, $index, $total
	PERCENT // %resource, %context, %"vs-name"

	// Keywords
	AND
	AS
	CONTAINS
	DIV
	FALSE
	IMPLIES
	IN
	IS
	MOD
	OR
	TRUE
	XOR
)

// String returns a human-readable representation of the token type.
func (t TokenType) String() string {
	if name, ok := tokenNames[t]; ok {
		return name
	}
	return fmt.Sprintf("TOKEN(%d)", t)
}

// tokenNames maps token types to their string representations.
var tokenNames = map[TokenType]string{
	EOF:     "EOF",
	ILLEGAL: "ILLEGAL",

	IDENT:    "IDENT",
	NUMBER:   "NUMBER",
	STRING:   "STRING",
	DATE:     "DATE",
	DATETIME: "DATETIME",
	TIME:     "TIME",

	PLUS:     "+",
	MINUS:    "-",
	STAR:     "*",
	SLASH:    "/",
	AMP:      "&",
	PIPE:     "|",
	EQ:       "=",
	NE:       "!=",
	EQUIV:    "~",
	NEQUIV:   "!~",
	LT:       "<",
	GT:       ">",
	LE:       "<=",
	GE:       ">=",
	DOT:      ".",
	COMMA:    ",",
	LPAREN:   "(",
	RPAREN:   ")",
	LBRACKET: "[",
	RBRACKET: "]",
	LBRACE:   "{",
	RBRACE:   "}",

	DOLLAR:  "$",
	PERCENT: "%",

	AND:      "AND",
	AS:       "AS",
	CONTAINS: "CONTAINS",
	DIV:      "DIV",
	FALSE:    "FALSE",
	IMPLIES:  "IMPLIES",
	IN:       "IN",
	IS:       "IS",
	MOD:      "MOD",
	OR:       "OR",
	TRUE:     "TRUE",
	XOR:      "XOR",
}

// keywords maps keyword strings to their token types.
// FHIRPath keywords are case-sensitive (all lowercase).
var keywords = map[string]TokenType{
	"and":      AND,
	"as":       AS,
	"contains": CONTAINS,
	"div":      DIV,
	"false":    FALSE,
	"implies":  IMPLIES,
	"in":       IN,
	"is":       IS,
	"mod":      MOD,
	"or":       OR,
	"true":     TRUE,
	"xor":      XOR,
}

// LookupIdent returns the token type for the given identifier.
// If the identifier is a keyword, the keyword token type is returned.
// Otherwise, IDENT is returned.
func LookupIdent(ident string) TokenType {
	if tok, ok := keywords[ident]; ok {
		return tok
	}
	return IDENT
}

// IsKeyword returns true if the token type is a keyword.
func IsKeyword(t TokenType) bool {
	return t >= AND && t <= XOR
}

// IsOperator returns true if the token type is an operator.
func IsOperator(t TokenType) bool {
	return t >= PLUS && t <= RBRACE
}

// Token represents a lexical token with position information.
type Token struct {
	Type    TokenType
	Literal string
	Pos     Position
}
