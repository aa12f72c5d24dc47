package core

import "github.com/fhir4ds/fhirsql/pkg/token"

// ---------- Expression Types ----------

// LiteralKind represents the kind of a literal value.
type LiteralKind int

// LiteralKind constants for FHIRPath literal value kinds.
const (
	LiteralNumber LiteralKind = iota
	LiteralString
	LiteralBool
	LiteralDate
	LiteralDateTime
	LiteralTime
	LiteralQuantity
	LiteralEmpty // the empty collection {}
)

// Literal represents a literal value.
type Literal struct {
	NodeInfo
	Kind  LiteralKind
	Value string
	Unit  string // quantity unit, e.g. 'mg' in 4.5 'mg'
}

func (*Literal) exprNode() {}

// IdentifierExpr represents a bare identifier at the start of a path.
// It may name the resource type (Patient) or an element of the context.
type IdentifierExpr struct {
	NodeInfo
	Name string
}

func (*IdentifierExpr) exprNode() {}

// PathExpr represents member navigation: expr.name.
type PathExpr struct {
	NodeInfo
	Expr Expr
	Name string
}

func (*PathExpr) exprNode() {}

// FunctionCall represents a function invocation, either bare (exists())
// or on a target (name.where(use = 'official')).
type FunctionCall struct {
	NodeInfo
	Target Expr // nil for bare calls on the context
	Name   string
	Args   []Expr
}

func (*FunctionCall) exprNode() {}

// IndexExpr represents collection indexing: expr[index].
type IndexExpr struct {
	NodeInfo
	Expr  Expr
	Index Expr
}

func (*IndexExpr) exprNode() {}

// BinaryExpr represents a binary expression.
type BinaryExpr struct {
	Left  Expr
	Op    token.TokenType
	Right Expr
}

func (*BinaryExpr) exprNode() {}

// Pos implements Node.
func (b *BinaryExpr) Pos() token.Position {
	if b.Left != nil {
		return b.Left.Pos()
	}
	return token.Position{}
}

// End implements Node.
func (b *BinaryExpr) End() token.Position {
	if b.Right != nil {
		return b.Right.End()
	}
	return token.Position{}
}

// UnaryExpr represents a unary expression (-x, +x).
type UnaryExpr struct {
	NodeInfo
	Op   token.TokenType
	Expr Expr
}

func (*UnaryExpr) exprNode() {}

// TypeExpr represents a type operation: expr is Type or expr as Type.
type TypeExpr struct {
	NodeInfo
	Expr Expr
	Op   token.TokenType // token.IS or token.AS
	Type string          // type specifier, possibly qualified (System.String)
}

func (*TypeExpr) exprNode() {}

// VariableExpr represents a special variable: $this, $index, $total.
type VariableExpr struct {
	NodeInfo
	Name string // without the leading $
}

func (*VariableExpr) exprNode() {}

// ExternalConstant represents an environment value: %resource, %"vs-name".
type ExternalConstant struct {
	NodeInfo
	Name string // without the leading %
}

func (*ExternalConstant) exprNode() {}

// ParenExpr represents a parenthesized expression.
type ParenExpr struct {
	NodeInfo
	Expr Expr
}

func (*ParenExpr) exprNode() {}
