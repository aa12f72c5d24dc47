package parser

import (
	"strings"
	"unicode"

	"github.com/fhir4ds/fhirsql/pkg/token"
)

// Lexer tokenizes FHIRPath input.
type Lexer struct {
	input   string
	pos     int  // current position in input
	readPos int  // reading position (after current char)
	ch      byte // current char under examination
	line    int  // current line number (1-based)
	col     int  // current column number (1-based)
}

// NewLexer creates a new Lexer for the given input.
func NewLexer(input string) *Lexer {
	l := &Lexer{
		input: input,
		line:  1,
		col:   0,
	}
	l.readChar()
	return l
}

// readChar advances to the next character.
func (l *Lexer) readChar() {
	if l.readPos >= len(l.input) {
		l.ch = 0 // ASCII NUL = EOF
	} else {
		l.ch = l.input[l.readPos]
	}
	l.pos = l.readPos
	l.readPos++

	if l.ch == '\n' {
		l.line++
		l.col = 0
	} else {
		l.col++
	}
}

// peekChar returns the next character without advancing.
func (l *Lexer) peekChar() byte {
	if l.readPos >= len(l.input) {
		return 0
	}
	return l.input[l.readPos]
}

// currentPos returns the current position.
func (l *Lexer) currentPos() token.Position {
	return token.Position{
		Line:   l.line,
		Column: l.col,
		Offset: l.pos,
	}
}

// NextToken returns the next token.
func (l *Lexer) NextToken() token.Token {
	l.skipWhitespaceAndComments()

	pos := l.currentPos()

	var tok token.Token
	tok.Pos = pos

	switch l.ch {
	case 0:
		tok.Type = token.EOF
		tok.Literal = ""
	case '+':
		tok = l.newToken(token.PLUS, "+")
	case '-':
		tok = l.newToken(token.MINUS, "-")
	case '*':
		tok = l.newToken(token.STAR, "*")
	case '/':
		tok = l.newToken(token.SLASH, "/")
	case '&':
		tok = l.newToken(token.AMP, "&")
	case '|':
		tok = l.newToken(token.PIPE, "|")
	case '=':
		tok = l.newToken(token.EQ, "=")
	case '~':
		tok = l.newToken(token.EQUIV, "~")
	case '!':
		switch l.peekChar() {
		case '=':
			l.readChar()
			tok = token.Token{Type: token.NE, Literal: "!=", Pos: pos}
		case '~':
			l.readChar()
			tok = token.Token{Type: token.NEQUIV, Literal: "!~", Pos: pos}
		default:
			tok = l.newToken(token.ILLEGAL, string(l.ch))
		}
	case '<':
		if l.peekChar() == '=' {
			l.readChar()
			tok = token.Token{Type: token.LE, Literal: "<=", Pos: pos}
		} else {
			tok = l.newToken(token.LT, "<")
		}
	case '>':
		if l.peekChar() == '=' {
			l.readChar()
			tok = token.Token{Type: token.GE, Literal: ">=", Pos: pos}
		} else {
			tok = l.newToken(token.GT, ">")
		}
	case '.':
		tok = l.newToken(token.DOT, ".")
	case ',':
		tok = l.newToken(token.COMMA, ",")
	case '(':
		tok = l.newToken(token.LPAREN, "(")
	case ')':
		tok = l.newToken(token.RPAREN, ")")
	case '[':
		tok = l.newToken(token.LBRACKET, "[")
	case ']':
		tok = l.newToken(token.RBRACKET, "]")
	case '{':
		tok = l.newToken(token.LBRACE, "{")
	case '}':
		tok = l.newToken(token.RBRACE, "}")
	case '$':
		// Special variable: $this, $index, $total
		l.readChar() // skip $
		name := l.readIdentifier()
		return token.Token{Type: token.DOLLAR, Literal: name, Pos: pos}
	case '%':
		// External constant: %resource or %"vs-name"
		l.readChar() // skip %
		if l.ch == '"' || l.ch == '\'' {
			return token.Token{Type: token.PERCENT, Literal: l.readDelimited(l.ch), Pos: pos}
		}
		return token.Token{Type: token.PERCENT, Literal: l.readIdentifier(), Pos: pos}
	case '@':
		return l.readTemporal(pos)
	case '\'':
		tok.Type = token.STRING
		tok.Literal = l.readString()
		tok.Pos = pos
		return tok
	case '`':
		// Delimited identifier
		tok.Type = token.IDENT
		tok.Literal = l.readDelimited('`')
		tok.Pos = pos
		return tok
	default:
		switch {
		case isLetter(l.ch) || l.ch == '_':
			tok.Literal = l.readIdentifier()
			// FHIRPath keywords are case-sensitive lowercase
			tok.Type = token.LookupIdent(tok.Literal)
			tok.Pos = pos
			return tok
		case isDigit(l.ch):
			tok.Type = token.NUMBER
			tok.Literal = l.readNumber()
			tok.Pos = pos
			return tok
		default:
			tok = l.newToken(token.ILLEGAL, string(l.ch))
		}
	}

	l.readChar()
	return tok
}

// newToken creates a new token.
func (l *Lexer) newToken(tokenType token.TokenType, literal string) token.Token {
	return token.Token{Type: tokenType, Literal: literal, Pos: l.currentPos()}
}

// skipWhitespaceAndComments skips whitespace and // or /* */ comments.
func (l *Lexer) skipWhitespaceAndComments() {
	for {
		for l.ch == ' ' || l.ch == '\t' || l.ch == '\n' || l.ch == '\r' {
			l.readChar()
		}

		if l.ch == '/' && l.peekChar() == '/' {
			for l.ch != '\n' && l.ch != 0 {
				l.readChar()
			}
			continue
		}

		if l.ch == '/' && l.peekChar() == '*' {
			l.readChar() // skip '/'
			l.readChar() // skip '*'
			for l.ch != 0 {
				if l.ch == '*' && l.peekChar() == '/' {
					l.readChar()
					l.readChar()
					break
				}
				l.readChar()
			}
			continue
		}

		break
	}
}

// readString reads a single-quoted string literal with backslash escapes.
func (l *Lexer) readString() string {
	l.readChar() // skip opening quote

	var result strings.Builder
	for l.ch != 0 && l.ch != '\'' {
		if l.ch == '\\' {
			l.readChar()
			switch l.ch {
			case '\'':
				result.WriteByte('\'')
			case '"':
				result.WriteByte('"')
			case '`':
				result.WriteByte('`')
			case '\\':
				result.WriteByte('\\')
			case 'n':
				result.WriteByte('\n')
			case 'r':
				result.WriteByte('\r')
			case 't':
				result.WriteByte('\t')
			case 'f':
				result.WriteByte('\f')
			default:
				result.WriteByte(l.ch)
			}
			l.readChar()
			continue
		}
		result.WriteByte(l.ch)
		l.readChar()
	}
	l.readChar() // skip closing quote
	return result.String()
}

// readDelimited reads a quoted identifier delimited by the given character.
func (l *Lexer) readDelimited(quote byte) string {
	l.readChar() // skip opening delimiter

	var result strings.Builder
	for l.ch != 0 && l.ch != quote {
		if l.ch == '\\' && l.peekChar() == quote {
			l.readChar()
		}
		result.WriteByte(l.ch)
		l.readChar()
	}
	l.readChar() // skip closing delimiter
	return result.String()
}

// readIdentifier reads an unquoted identifier.
func (l *Lexer) readIdentifier() string {
	start := l.pos
	for isLetter(l.ch) || isDigit(l.ch) || l.ch == '_' {
		l.readChar()
	}
	return l.input[start:l.pos]
}

// readNumber reads a numeric literal (integer or decimal).
func (l *Lexer) readNumber() string {
	start := l.pos
	for isDigit(l.ch) {
		l.readChar()
	}
	if l.ch == '.' && isDigit(l.peekChar()) {
		l.readChar() // skip '.'
		for isDigit(l.ch) {
			l.readChar()
		}
	}
	return l.input[start:l.pos]
}

// readTemporal reads a date/datetime/time literal starting at '@'.
// Forms: @2015-02-04, @2015-02-04T14:34:28Z, @T14:34:28.
func (l *Lexer) readTemporal(pos token.Position) token.Token {
	l.readChar() // skip '@'

	// @T14:34:28 is a time literal
	if l.ch == 'T' {
		l.readChar() // skip 'T'
		start := l.pos
		for isDigit(l.ch) || l.ch == ':' || l.ch == '.' {
			l.readChar()
		}
		return token.Token{Type: token.TIME, Literal: l.input[start:l.pos], Pos: pos}
	}

	start := l.pos
	hasT := false
	for isDigit(l.ch) || l.ch == '-' || l.ch == ':' || l.ch == '.' ||
		l.ch == '+' || l.ch == 'Z' || l.ch == 'T' {
		if l.ch == 'T' {
			hasT = true
		}
		l.readChar()
	}

	typ := token.DATE
	if hasT {
		typ = token.DATETIME
	}
	return token.Token{Type: typ, Literal: l.input[start:l.pos], Pos: pos}
}

// isLetter returns true if ch is a letter.
func isLetter(ch byte) bool {
	return unicode.IsLetter(rune(ch))
}

// isDigit returns true if ch is a digit.
func isDigit(ch byte) bool {
	return ch >= '0' && ch <= '9'
}

// Tokenize returns all tokens from the input.
func Tokenize(input string) []token.Token {
	l := NewLexer(input)
	var tokens []token.Token
	for {
		tok := l.NextToken()
		tokens = append(tokens, tok)
		if tok.Type == token.EOF {
			break
		}
	}
	return tokens
}
