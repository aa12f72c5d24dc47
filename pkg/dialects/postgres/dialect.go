// Package postgres provides the PostgreSQL SQL dialect definition.
// This package is pure Go with no database driver dependencies.
package postgres

import (
	"fmt"
	"strings"

	"github.com/fhir4ds/fhirsql/pkg/core"
	"github.com/fhir4ds/fhirsql/pkg/dialect"
)

// Postgres is the PostgreSQL dialect instance.
var Postgres = &Dialect{
	Base: dialect.Base{
		Cfg: core.DialectConfig{
			Name:          "postgres",
			JSONType:      "JSONB",
			DefaultSchema: "public",
			Identifiers: core.IdentifierConfig{
				Quote:  `"`,
				Escape: `""`,
			},
			Placeholder: core.PlaceholderDollar,
		},
	},
}

func init() {
	dialect.Register(Postgres)
}

// Dialect implements dialect.Dialect for PostgreSQL over JSONB columns.
type Dialect struct {
	dialect.Base
}

// JSONExtract extracts a JSONB value at the given path.
func (d *Dialect) JSONExtract(expr string, path ...string) string {
	if len(path) == 0 {
		return expr
	}
	var sb strings.Builder
	sb.WriteString(expr)
	for _, seg := range path {
		sb.WriteString("->'")
		sb.WriteString(seg)
		sb.WriteString("'")
	}
	return sb.String()
}

// JSONExtractString extracts a JSONB value as unquoted text.
func (d *Dialect) JSONExtractString(expr string, path ...string) string {
	return fmt.Sprintf("%s #>> '%s'", expr, dialect.BracePath(path))
}

// JSONArrayLength returns the length of a JSONB array.
func (d *Dialect) JSONArrayLength(expr string) string {
	return fmt.Sprintf("jsonb_array_length(%s)", expr)
}

// JSONTypeOf returns the JSONB type name of expr.
func (d *Dialect) JSONTypeOf(expr string) string {
	return fmt.Sprintf("jsonb_typeof(%s)", expr)
}

// JSONArrayElement indexes a JSONB array (zero-based).
func (d *Dialect) JSONArrayElement(expr string, index string) string {
	return fmt.Sprintf("%s->(%s)::int", expr, index)
}

// LateralUnnest flattens a JSONB array into rows of alias.value with the
// element position as alias.ord.
func (d *Dialect) LateralUnnest(expr, alias string) string {
	return fmt.Sprintf("LATERAL jsonb_array_elements(%s) WITH ORDINALITY AS %s(value, ord)", expr, alias)
}

// CastTo casts a SQL text expression to the type backing a FHIRPath type.
func (d *Dialect) CastTo(expr string, t core.Type) string {
	switch t {
	case core.TypeBoolean:
		return fmt.Sprintf("(%s)::boolean", expr)
	case core.TypeInteger:
		return fmt.Sprintf("(%s)::bigint", expr)
	case core.TypeDecimal:
		return fmt.Sprintf("(%s)::numeric", expr)
	case core.TypeDate:
		return fmt.Sprintf("(%s)::date", expr)
	case core.TypeDateTime:
		return fmt.Sprintf("(%s)::timestamptz", expr)
	case core.TypeTime:
		return fmt.Sprintf("(%s)::time", expr)
	default:
		return fmt.Sprintf("(%s)::text", expr)
	}
}

// Ensure Dialect implements dialect.Dialect
var _ dialect.Dialect = (*Dialect)(nil)
