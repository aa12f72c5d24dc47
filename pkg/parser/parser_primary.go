package parser

import (
	"fmt"

	"github.com/fhir4ds/fhirsql/pkg/core"
	"github.com/fhir4ds/fhirsql/pkg/token"
)

// parsePrimary parses a primary expression: literals, parenthesized
// expressions, variables, external constants, identifiers, and bare
// function calls.
func (p *Parser) parsePrimary() core.Expr {
	pos := p.token.Pos

	switch p.token.Type {
	case token.NUMBER:
		value := p.token.Literal
		p.nextToken()
		// A number followed by a string is a quantity literal: 4.5 'mg'
		if p.check(token.STRING) {
			unit := p.token.Literal
			p.nextToken()
			return &core.Literal{
				NodeInfo: core.NodeInfo{StartPos: pos},
				Kind:     core.LiteralQuantity,
				Value:    value,
				Unit:     unit,
			}
		}
		return &core.Literal{
			NodeInfo: core.NodeInfo{StartPos: pos},
			Kind:     core.LiteralNumber,
			Value:    value,
		}

	case token.STRING:
		value := p.token.Literal
		p.nextToken()
		return &core.Literal{
			NodeInfo: core.NodeInfo{StartPos: pos},
			Kind:     core.LiteralString,
			Value:    value,
		}

	case token.TRUE, token.FALSE:
		value := "false"
		if p.token.Type == token.TRUE {
			value = "true"
		}
		p.nextToken()
		return &core.Literal{
			NodeInfo: core.NodeInfo{StartPos: pos},
			Kind:     core.LiteralBool,
			Value:    value,
		}

	case token.DATE:
		value := p.token.Literal
		p.nextToken()
		return &core.Literal{
			NodeInfo: core.NodeInfo{StartPos: pos},
			Kind:     core.LiteralDate,
			Value:    value,
		}

	case token.DATETIME:
		value := p.token.Literal
		p.nextToken()
		return &core.Literal{
			NodeInfo: core.NodeInfo{StartPos: pos},
			Kind:     core.LiteralDateTime,
			Value:    value,
		}

	case token.TIME:
		value := p.token.Literal
		p.nextToken()
		return &core.Literal{
			NodeInfo: core.NodeInfo{StartPos: pos},
			Kind:     core.LiteralTime,
			Value:    value,
		}

	case token.LBRACE:
		// {} is the empty collection literal
		p.nextToken()
		p.expect(token.RBRACE)
		return &core.Literal{
			NodeInfo: core.NodeInfo{StartPos: pos},
			Kind:     core.LiteralEmpty,
		}

	case token.LPAREN:
		p.nextToken()
		inner := p.parseExpression(precNone + 1)
		p.expect(token.RPAREN)
		return &core.ParenExpr{
			NodeInfo: core.NodeInfo{StartPos: pos},
			Expr:     inner,
		}

	case token.DOLLAR:
		name := p.token.Literal
		p.nextToken()
		return &core.VariableExpr{
			NodeInfo: core.NodeInfo{StartPos: pos},
			Name:     name,
		}

	case token.PERCENT:
		name := p.token.Literal
		p.nextToken()
		return &core.ExternalConstant{
			NodeInfo: core.NodeInfo{StartPos: pos},
			Name:     name,
		}

	case token.IDENT:
		name := p.token.Literal
		p.nextToken()
		// Bare function call on the context: exists(), today()
		if p.check(token.LPAREN) {
			args := p.parseArguments()
			return &core.FunctionCall{
				NodeInfo: core.NodeInfo{StartPos: pos},
				Name:     name,
				Args:     args,
			}
		}
		return &core.IdentifierExpr{
			NodeInfo: core.NodeInfo{StartPos: pos},
			Name:     name,
		}

	default:
		p.addError(fmt.Sprintf(ErrUnexpectedExpr, p.token.Type))
		return nil
	}
}
