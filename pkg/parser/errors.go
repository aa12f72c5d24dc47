package parser

import (
	"fmt"

	"github.com/fhir4ds/fhirsql/pkg/token"
)

// ParseError represents a parsing error with position information.
type ParseError struct {
	Pos     token.Position
	Message string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error at line %d, column %d: %s", e.Pos.Line, e.Pos.Column, e.Message)
}

// Common error messages
const (
	ErrUnexpectedToken  = "unexpected token %s, expected %s"
	ErrUnexpectedExpr   = "unexpected token %s at start of expression"
	ErrExpectedTypeName = "expected type name after %s"
	ErrEmptyIndex       = "expected index expression inside []"
	ErrTrailingInput    = "unexpected trailing input starting at %s"
)
