package parser

import (
	"testing"

	"github.com/fhir4ds/fhirsql/pkg/core"
	"github.com/fhir4ds/fhirsql/pkg/token"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSimplePath(t *testing.T) {
	expr, err := Parse("Patient.name.family")
	require.NoError(t, err)

	path, ok := expr.(*core.PathExpr)
	require.True(t, ok, "expected PathExpr, got %T", expr)
	assert.Equal(t, "family", path.Name)

	inner, ok := path.Expr.(*core.PathExpr)
	require.True(t, ok)
	assert.Equal(t, "name", inner.Name)

	root, ok := inner.Expr.(*core.IdentifierExpr)
	require.True(t, ok)
	assert.Equal(t, "Patient", root.Name)
}

func TestParseFunctionCall(t *testing.T) {
	expr, err := Parse("name.where(use = 'official')")
	require.NoError(t, err)

	fn, ok := expr.(*core.FunctionCall)
	require.True(t, ok)
	assert.Equal(t, "where", fn.Name)
	require.Len(t, fn.Args, 1)

	cond, ok := fn.Args[0].(*core.BinaryExpr)
	require.True(t, ok)
	assert.Equal(t, token.EQ, cond.Op)
}

func TestParseBareFunctionCall(t *testing.T) {
	expr, err := Parse("exists()")
	require.NoError(t, err)

	fn, ok := expr.(*core.FunctionCall)
	require.True(t, ok)
	assert.Equal(t, "exists", fn.Name)
	assert.Nil(t, fn.Target)
	assert.Empty(t, fn.Args)
}

func TestParseIndexer(t *testing.T) {
	expr, err := Parse("name.given[0]")
	require.NoError(t, err)

	idx, ok := expr.(*core.IndexExpr)
	require.True(t, ok)

	lit, ok := idx.Index.(*core.Literal)
	require.True(t, ok)
	assert.Equal(t, core.LiteralNumber, lit.Kind)
	assert.Equal(t, "0", lit.Value)
}

func TestParsePrecedence(t *testing.T) {
	// and binds tighter than or
	expr, err := Parse("a or b and c")
	require.NoError(t, err)

	or, ok := expr.(*core.BinaryExpr)
	require.True(t, ok)
	assert.Equal(t, token.OR, or.Op)

	and, ok := or.Right.(*core.BinaryExpr)
	require.True(t, ok)
	assert.Equal(t, token.AND, and.Op)
}

func TestParseImpliesIsLowest(t *testing.T) {
	expr, err := Parse("a = 1 implies b = 2")
	require.NoError(t, err)

	implies, ok := expr.(*core.BinaryExpr)
	require.True(t, ok)
	assert.Equal(t, token.IMPLIES, implies.Op)
}

func TestParseArithmeticPrecedence(t *testing.T) {
	expr, err := Parse("1 + 2 * 3")
	require.NoError(t, err)

	add, ok := expr.(*core.BinaryExpr)
	require.True(t, ok)
	assert.Equal(t, token.PLUS, add.Op)

	mul, ok := add.Right.(*core.BinaryExpr)
	require.True(t, ok)
	assert.Equal(t, token.STAR, mul.Op)
}

func TestParseUnionPrecedence(t *testing.T) {
	// union binds tighter than equality
	expr, err := Parse("a | b = c")
	require.NoError(t, err)

	eq, ok := expr.(*core.BinaryExpr)
	require.True(t, ok)
	assert.Equal(t, token.EQ, eq.Op)

	union, ok := eq.Left.(*core.BinaryExpr)
	require.True(t, ok)
	assert.Equal(t, token.PIPE, union.Op)
}

func TestParseTypeExpr(t *testing.T) {
	expr, err := Parse("value is Quantity")
	require.NoError(t, err)

	te, ok := expr.(*core.TypeExpr)
	require.True(t, ok)
	assert.Equal(t, token.IS, te.Op)
	assert.Equal(t, "Quantity", te.Type)
	assert.True(t, te.Pos().IsValid())
	assert.Equal(t, 1, te.Pos().Column)
}

func TestParseQualifiedTypeExpr(t *testing.T) {
	expr, err := Parse("x as System.String")
	require.NoError(t, err)

	te, ok := expr.(*core.TypeExpr)
	require.True(t, ok)
	assert.Equal(t, token.AS, te.Op)
	assert.Equal(t, "System.String", te.Type)
}

func TestParseOfTypeAfterTypeExpr(t *testing.T) {
	// navigation continues after as via parentheses
	expr, err := Parse("(value as Quantity).value")
	require.NoError(t, err)

	path, ok := expr.(*core.PathExpr)
	require.True(t, ok)
	assert.Equal(t, "value", path.Name)

	paren, ok := path.Expr.(*core.ParenExpr)
	require.True(t, ok)
	_, ok = paren.Expr.(*core.TypeExpr)
	assert.True(t, ok)
}

func TestParseLiterals(t *testing.T) {
	tests := []struct {
		input string
		kind  core.LiteralKind
		value string
	}{
		{"true", core.LiteralBool, "true"},
		{"false", core.LiteralBool, "false"},
		{"42", core.LiteralNumber, "42"},
		{"4.5", core.LiteralNumber, "4.5"},
		{"'hello'", core.LiteralString, "hello"},
		{"@2015-02-04", core.LiteralDate, "2015-02-04"},
		{"@2015-02-04T14:34:28Z", core.LiteralDateTime, "2015-02-04T14:34:28Z"},
		{"@T14:34:28", core.LiteralTime, "14:34:28"},
		{"{}", core.LiteralEmpty, ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			expr, err := Parse(tt.input)
			require.NoError(t, err)

			lit, ok := expr.(*core.Literal)
			require.True(t, ok, "expected Literal, got %T", expr)
			assert.Equal(t, tt.kind, lit.Kind)
			assert.Equal(t, tt.value, lit.Value)
		})
	}
}

func TestParseQuantityLiteral(t *testing.T) {
	expr, err := Parse("4.5 'mg'")
	require.NoError(t, err)

	lit, ok := expr.(*core.Literal)
	require.True(t, ok)
	assert.Equal(t, core.LiteralQuantity, lit.Kind)
	assert.Equal(t, "4.5", lit.Value)
	assert.Equal(t, "mg", lit.Unit)
}

func TestParseVariableAndConstant(t *testing.T) {
	expr, err := Parse("$this.value")
	require.NoError(t, err)
	path, ok := expr.(*core.PathExpr)
	require.True(t, ok)
	v, ok := path.Expr.(*core.VariableExpr)
	require.True(t, ok)
	assert.Equal(t, "this", v.Name)

	expr, err = Parse("%resource.id")
	require.NoError(t, err)
	path, ok = expr.(*core.PathExpr)
	require.True(t, ok)
	c, ok := path.Expr.(*core.ExternalConstant)
	require.True(t, ok)
	assert.Equal(t, "resource", c.Name)
}

func TestParseUnaryMinus(t *testing.T) {
	expr, err := Parse("-3 + 4")
	require.NoError(t, err)

	add, ok := expr.(*core.BinaryExpr)
	require.True(t, ok)

	neg, ok := add.Left.(*core.UnaryExpr)
	require.True(t, ok)
	assert.Equal(t, token.MINUS, neg.Op)
}

func TestParseKeywordAsMemberName(t *testing.T) {
	// contains is a keyword but also a valid element name after a dot
	expr, err := Parse("CodeSystem.concept.contains")
	require.NoError(t, err)

	path, ok := expr.(*core.PathExpr)
	require.True(t, ok)
	assert.Equal(t, "contains", path.Name)
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"unclosed paren", "(a = 1"},
		{"empty indexer", "name[]"},
		{"missing operand", "a and"},
		{"trailing input", "a = 1 )"},
		{"missing type name", "x is 3"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.input)
			require.Error(t, err)
			var perr *ParseError
			assert.ErrorAs(t, err, &perr)
		})
	}
}

func TestParseErrorHasPosition(t *testing.T) {
	_, err := Parse("a and")
	require.Error(t, err)
	var perr *ParseError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, 1, perr.Pos.Line)
	assert.Contains(t, err.Error(), "line 1")
}

func TestParseNestedFunctions(t *testing.T) {
	expr, err := Parse("name.where(use = 'official').given.first()")
	require.NoError(t, err)

	first, ok := expr.(*core.FunctionCall)
	require.True(t, ok)
	assert.Equal(t, "first", first.Name)

	given, ok := first.Target.(*core.PathExpr)
	require.True(t, ok)
	assert.Equal(t, "given", given.Name)

	where, ok := given.Expr.(*core.FunctionCall)
	require.True(t, ok)
	assert.Equal(t, "where", where.Name)
}

func TestParseIif(t *testing.T) {
	expr, err := Parse("iif(gender = 'male', 'M', 'F')")
	require.NoError(t, err)

	fn, ok := expr.(*core.FunctionCall)
	require.True(t, ok)
	assert.Equal(t, "iif", fn.Name)
	assert.Len(t, fn.Args, 3)
}
