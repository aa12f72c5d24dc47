// Package parser provides FHIRPath parsing.
//
// # Usage
//
//	expr, err := parser.Parse("Patient.name.where(use = 'official').family")
//	if err != nil {
//	    // handle error
//	}
//
// # Grammar Overview
//
// The parser implements a recursive descent parser for FHIRPath with Pratt
// expression parsing. Operator precedence, lowest to highest:
//
//	implies
//	or, xor
//	and
//	in, contains
//	=, ~, !=, !~
//	<, >, <=, >=
//	| (union)
//	is, as
//	+, -, &
//	*, /, div, mod
//	unary -, +
//	. (path), [] (indexer), () (invocation)
package parser

import (
	"fmt"

	"github.com/fhir4ds/fhirsql/pkg/core"
	"github.com/fhir4ds/fhirsql/pkg/token"
)

// Precedence levels for FHIRPath operators.
const (
	precNone = iota
	precImplies
	precOr // or, xor
	precAnd
	precMembership // in, contains
	precEquality   // =, ~, !=, !~
	precInequality // <, >, <=, >=
	precUnion      // |
	precType       // is, as
	precAdditive   // +, -, &
	precMultiply   // *, /, div, mod
	precUnary
)

// Parser parses FHIRPath into an AST.
type Parser struct {
	lexer  *Lexer
	token  token.Token // current token
	peek   token.Token // lookahead token
	errors []error
}

// NewParser creates a new parser for the given FHIRPath input.
func NewParser(input string) *Parser {
	p := &Parser{lexer: NewLexer(input)}
	// Read two tokens to initialize current and peek
	p.nextToken()
	p.nextToken()
	return p
}

// Parse parses the FHIRPath expression and returns the AST.
func Parse(input string) (core.Expr, error) {
	p := NewParser(input)
	expr := p.parseExpression(precNone + 1)
	if len(p.errors) > 0 {
		return nil, p.errors[0]
	}
	if !p.check(token.EOF) {
		return nil, &ParseError{
			Pos:     p.token.Pos,
			Message: fmt.Sprintf(ErrTrailingInput, p.token.Type),
		}
	}
	return expr, nil
}

// ---------- Token Helpers ----------

// nextToken advances to the next token.
func (p *Parser) nextToken() {
	p.token = p.peek
	p.peek = p.lexer.NextToken()
}

// check returns true if the current token is of the given type.
func (p *Parser) check(t token.TokenType) bool {
	return p.token.Type == t
}

// match consumes the current token if it matches and returns true.
func (p *Parser) match(t token.TokenType) bool {
	if p.check(t) {
		p.nextToken()
		return true
	}
	return false
}

// expect consumes the current token if it matches, otherwise adds an error.
func (p *Parser) expect(t token.TokenType) bool {
	if p.check(t) {
		p.nextToken()
		return true
	}
	p.addError(fmt.Sprintf(ErrUnexpectedToken, p.token.Type, t))
	return false
}

// addError adds a parse error.
func (p *Parser) addError(msg string) {
	p.errors = append(p.errors, &ParseError{
		Pos:     p.token.Pos,
		Message: msg,
	})
}
