// Package dialect defines the SQL dialect contract for the translator.
//
// Dialects are thin: they may differ only in SQL syntax (JSON function
// names, LATERAL flattening form, cast type names, quoting). All
// translation logic (three-valued logic, type coercion, collection
// semantics) lives in pkg/translator and is shared across databases.
package dialect

import (
	"fmt"
	"strings"

	"github.com/fhir4ds/fhirsql/pkg/core"
)

// Dialect is the syntax surface a target database must provide.
type Dialect interface {
	// Config returns the static dialect configuration.
	Config() core.DialectConfig

	// Name returns the dialect identifier.
	Name() string

	// QuoteIdent quotes an identifier.
	QuoteIdent(name string) string

	// FormatPlaceholder formats the nth (1-based) query parameter.
	FormatPlaceholder(n int) string

	// JSONExtract returns an expression extracting a JSON value at the
	// given path segments. The result is JSON-typed.
	JSONExtract(expr string, path ...string) string

	// JSONExtractString returns an expression extracting a JSON value as
	// SQL text (unquoted).
	JSONExtractString(expr string, path ...string) string

	// JSONArrayLength returns an expression for the length of a JSON array.
	JSONArrayLength(expr string) string

	// JSONTypeOf returns an expression yielding the JSON type name of expr.
	JSONTypeOf(expr string) string

	// JSONArrayElement returns an expression indexing a JSON array
	// (zero-based).
	JSONArrayElement(expr string, index string) string

	// LateralUnnest returns a FROM-clause item that flattens a JSON array
	// expression into rows, one JSON value per row, exposed as alias.value
	// with the 1-based array position as alias.ord. Joined laterally
	// against the preceding item.
	LateralUnnest(expr, alias string) string

	// CastTo casts a SQL text expression to the SQL type backing a
	// FHIRPath system type.
	CastTo(expr string, t core.Type) string
}

// Base provides the syntax shared by all supported dialects.
// Concrete dialects embed Base and override only what differs.
type Base struct {
	Cfg core.DialectConfig
}

// Config returns the static dialect configuration.
func (b *Base) Config() core.DialectConfig { return b.Cfg }

// Name returns the dialect identifier.
func (b *Base) Name() string { return b.Cfg.Name }

// QuoteIdent quotes an identifier using the dialect's quote character.
func (b *Base) QuoteIdent(name string) string {
	q := b.Cfg.Identifiers.Quote
	esc := b.Cfg.Identifiers.Escape
	return q + strings.ReplaceAll(name, q, esc) + q
}

// FormatPlaceholder formats the nth (1-based) query parameter.
func (b *Base) FormatPlaceholder(n int) string {
	if b.Cfg.Placeholder == core.PlaceholderDollar {
		return fmt.Sprintf("$%d", n)
	}
	return "?"
}

// DollarPath renders path segments as a $.a.b JSONPath string.
func DollarPath(path []string) string {
	var sb strings.Builder
	sb.WriteString("$")
	for _, seg := range path {
		sb.WriteString(".")
		sb.WriteString(seg)
	}
	return sb.String()
}

// BracePath renders path segments as a Postgres '{a,b}' text array literal.
func BracePath(path []string) string {
	return "{" + strings.Join(path, ",") + "}"
}
