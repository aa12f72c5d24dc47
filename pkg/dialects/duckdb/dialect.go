// Package duckdb provides the DuckDB SQL dialect definition.
// This package is pure Go with no database driver dependencies.
package duckdb

import (
	"fmt"

	"github.com/fhir4ds/fhirsql/pkg/core"
	"github.com/fhir4ds/fhirsql/pkg/dialect"
)

// DuckDB is the DuckDB dialect instance.
var DuckDB = &Dialect{
	Base: dialect.Base{
		Cfg: core.DialectConfig{
			Name:          "duckdb",
			JSONType:      "JSON",
			DefaultSchema: "main",
			Identifiers: core.IdentifierConfig{
				Quote:  `"`,
				Escape: `""`,
			},
			Placeholder: core.PlaceholderQuestion,
		},
	},
}

func init() {
	dialect.Register(DuckDB)
}

// Dialect implements dialect.Dialect for DuckDB.
type Dialect struct {
	dialect.Base
}

// JSONExtract extracts a JSON value at the given path.
func (d *Dialect) JSONExtract(expr string, path ...string) string {
	if len(path) == 0 {
		return expr
	}
	return fmt.Sprintf("json_extract(%s, '%s')", expr, dialect.DollarPath(path))
}

// JSONExtractString extracts a JSON value as unquoted text.
func (d *Dialect) JSONExtractString(expr string, path ...string) string {
	return fmt.Sprintf("json_extract_string(%s, '%s')", expr, dialect.DollarPath(path))
}

// JSONArrayLength returns the length of a JSON array.
func (d *Dialect) JSONArrayLength(expr string) string {
	return fmt.Sprintf("json_array_length(%s)", expr)
}

// JSONTypeOf returns the JSON type name of expr.
// DuckDB reports upper-case names (ARRAY, OBJECT, VARCHAR, ...).
func (d *Dialect) JSONTypeOf(expr string) string {
	return fmt.Sprintf("lower(json_type(%s))", expr)
}

// JSONArrayElement indexes a JSON array (zero-based).
func (d *Dialect) JSONArrayElement(expr string, index string) string {
	return fmt.Sprintf("json_extract(%s, '$[' || (%s) || ']')", expr, index)
}

// LateralUnnest flattens a JSON array into rows of alias.value with the
// element position as alias.ord. DuckDB has no WITH ORDINALITY, so the
// positions come from generate_subscripts zipped against the unnest.
func (d *Dialect) LateralUnnest(expr, alias string) string {
	arr := fmt.Sprintf("CAST(%s AS JSON[])", expr)
	return fmt.Sprintf("LATERAL (SELECT UNNEST(%s) AS value, generate_subscripts(%s, 1) AS ord) AS %s", arr, arr, alias)
}

// CastTo casts a SQL text expression to the type backing a FHIRPath type.
func (d *Dialect) CastTo(expr string, t core.Type) string {
	switch t {
	case core.TypeBoolean:
		return fmt.Sprintf("CAST(%s AS BOOLEAN)", expr)
	case core.TypeInteger:
		return fmt.Sprintf("CAST(%s AS BIGINT)", expr)
	case core.TypeDecimal:
		return fmt.Sprintf("CAST(%s AS DOUBLE)", expr)
	case core.TypeDate:
		return fmt.Sprintf("CAST(%s AS DATE)", expr)
	case core.TypeDateTime:
		return fmt.Sprintf("CAST(%s AS TIMESTAMP)", expr)
	case core.TypeTime:
		return fmt.Sprintf("CAST(%s AS TIME)", expr)
	default:
		return fmt.Sprintf("CAST(%s AS VARCHAR)", expr)
	}
}

// Ensure Dialect implements dialect.Dialect
var _ dialect.Dialect = (*Dialect)(nil)
