package token

import "fmt"

// Position represents a location in the source text.
type Position struct {
	Line   int // 1-based line number
	Column int // 1-based column number
	Offset int // 0-based byte offset
}

// String returns a human-readable representation of the position.
func (p Position) String() string {
	return fmt.Sprintf("%d:%d", p.Line, p.Column)
}

// IsValid returns true if the position has been set.
func (p Position) IsValid() bool {
	return p.Line > 0
}

// Span represents a range in the source text.
type Span struct {
	Start Position
	End   Position
}
