// Package core defines the FHIRPath AST, the FHIRPath type system, and the
// SQL fragment types shared by the translator, CTE builder, and dialects.
package core

import "github.com/fhir4ds/fhirsql/pkg/token"

// Node is the base interface for all AST nodes.
type Node interface {
	Pos() token.Position
	End() token.Position
}

// Expr is the interface for all expression nodes.
type Expr interface {
	Node
	exprNode()
}

// NodeInfo holds position information for nodes that track it.
// Embed in node structs to satisfy the Node interface.
type NodeInfo struct {
	StartPos token.Position
	EndPos   token.Position
}

// Pos implements Node.
func (n NodeInfo) Pos() token.Position { return n.StartPos }

// End implements Node.
func (n NodeInfo) End() token.Position { return n.EndPos }
