package parser

import (
	"fmt"
	"strings"

	"github.com/fhir4ds/fhirsql/pkg/core"
	"github.com/fhir4ds/fhirsql/pkg/token"
)

// parseExpression implements Pratt parsing with precedence climbing.
func (p *Parser) parseExpression(minPrecedence int) core.Expr {
	left := p.parsePrefixExpr()
	if left == nil {
		return nil
	}

	for {
		prec := infixPrecedence(p.token.Type)
		if prec < minPrecedence {
			break
		}

		left = p.parseInfixExpr(left, prec)
		if left == nil {
			break
		}
	}

	return left
}

// parsePrefixExpr parses unary operators and primary expressions.
func (p *Parser) parsePrefixExpr() core.Expr {
	switch p.token.Type {
	case token.MINUS:
		pos := p.token.Pos
		p.nextToken()
		expr := p.parseExpression(precUnary)
		return &core.UnaryExpr{
			NodeInfo: core.NodeInfo{StartPos: pos},
			Op:       token.MINUS,
			Expr:     expr,
		}

	case token.PLUS:
		pos := p.token.Pos
		p.nextToken()
		expr := p.parseExpression(precUnary)
		return &core.UnaryExpr{
			NodeInfo: core.NodeInfo{StartPos: pos},
			Op:       token.PLUS,
			Expr:     expr,
		}

	default:
		return p.parsePostfix(p.parsePrimary())
	}
}

// infixPrecedence returns the precedence of a token as an infix operator,
// or precNone if the token is not an infix operator.
func infixPrecedence(t token.TokenType) int {
	switch t {
	case token.IMPLIES:
		return precImplies
	case token.OR, token.XOR:
		return precOr
	case token.AND:
		return precAnd
	case token.IN, token.CONTAINS:
		return precMembership
	case token.EQ, token.NE, token.EQUIV, token.NEQUIV:
		return precEquality
	case token.LT, token.GT, token.LE, token.GE:
		return precInequality
	case token.PIPE:
		return precUnion
	case token.IS, token.AS:
		return precType
	case token.PLUS, token.MINUS, token.AMP:
		return precAdditive
	case token.STAR, token.SLASH, token.DIV, token.MOD:
		return precMultiply
	default:
		return precNone
	}
}

// parseInfixExpr parses an infix expression given the left operand.
func (p *Parser) parseInfixExpr(left core.Expr, prec int) core.Expr {
	// is/as take a type specifier, not an expression
	if p.check(token.IS) || p.check(token.AS) {
		op := p.token.Type
		p.nextToken()
		typeName := p.parseTypeSpecifier(op)
		if typeName == "" {
			return left
		}
		return &core.TypeExpr{
			NodeInfo: core.NodeInfo{StartPos: left.Pos()},
			Expr:     left,
			Op:       op,
			Type:     typeName,
		}
	}

	op := p.token
	p.nextToken()

	// Left-associative: parse right operand at prec+1
	right := p.parseExpression(prec + 1)

	return &core.BinaryExpr{Left: left, Op: op.Type, Right: right}
}

// parseTypeSpecifier parses a possibly qualified type name (Quantity,
// System.String, FHIR.Patient).
func (p *Parser) parseTypeSpecifier(after token.TokenType) string {
	if !p.check(token.IDENT) {
		p.addError(fmt.Sprintf(ErrExpectedTypeName, after))
		return ""
	}

	var parts []string
	parts = append(parts, p.token.Literal)
	p.nextToken()

	for p.check(token.DOT) && p.peek.Type == token.IDENT {
		p.nextToken() // consume '.'
		parts = append(parts, p.token.Literal)
		p.nextToken()
	}

	return strings.Join(parts, ".")
}

// parsePostfix parses path navigation, invocation, and indexing after a
// primary expression: expr.name, expr.fn(args), expr[index].
func (p *Parser) parsePostfix(expr core.Expr) core.Expr {
	if expr == nil {
		return nil
	}

	for {
		switch {
		case p.check(token.DOT):
			p.nextToken() // consume '.'
			expr = p.parseInvocation(expr)
			if expr == nil {
				return nil
			}

		case p.check(token.LBRACKET):
			pos := p.token.Pos
			p.nextToken() // consume '['
			if p.check(token.RBRACKET) {
				p.addError(ErrEmptyIndex)
				return nil
			}
			index := p.parseExpression(precNone + 1)
			p.expect(token.RBRACKET)
			expr = &core.IndexExpr{
				NodeInfo: core.NodeInfo{StartPos: pos},
				Expr:     expr,
				Index:    index,
			}

		default:
			return expr
		}
	}
}

// parseInvocation parses the member or function after a '.'.
func (p *Parser) parseInvocation(target core.Expr) core.Expr {
	// Keywords like contains and div are valid member names after a dot
	// (e.g. CodeSystem.concept.contains); accept them as identifiers.
	if !p.check(token.IDENT) && !token.IsKeyword(p.token.Type) {
		p.addError(fmt.Sprintf(ErrUnexpectedToken, p.token.Type, token.IDENT))
		return nil
	}

	name := p.token.Literal
	pos := p.token.Pos
	p.nextToken()

	if p.check(token.LPAREN) {
		args := p.parseArguments()
		return &core.FunctionCall{
			NodeInfo: core.NodeInfo{StartPos: pos},
			Target:   target,
			Name:     name,
			Args:     args,
		}
	}

	return &core.PathExpr{
		NodeInfo: core.NodeInfo{StartPos: pos},
		Expr:     target,
		Name:     name,
	}
}

// parseArguments parses a parenthesized, comma-separated argument list.
// The current token must be LPAREN.
func (p *Parser) parseArguments() []core.Expr {
	p.expect(token.LPAREN)

	var args []core.Expr
	if p.check(token.RPAREN) {
		p.nextToken()
		return args
	}

	args = append(args, p.parseExpression(precNone+1))
	for p.match(token.COMMA) {
		args = append(args, p.parseExpression(precNone+1))
	}

	p.expect(token.RPAREN)
	return args
}
