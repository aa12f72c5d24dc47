package core

// DialectConfig holds the static configuration for a SQL dialect.
// This is pure data, with no handler functions.
//
// The runtime behavior (JSON extraction syntax, LATERAL flattening, casts)
// lives in pkg/dialect.Dialect, which embeds this config. Per the thin
// dialect rule, dialects may differ only in syntax; translation logic stays
// in pkg/translator.
type DialectConfig struct {
	// Name is the dialect identifier (e.g., "duckdb", "postgres")
	Name string

	// JSONType is the column type used for stored resources
	// ("JSON" for DuckDB, "JSONB" for Postgres)
	JSONType string

	// DefaultSchema is the default schema name ("main" for DuckDB, "public" for Postgres)
	DefaultSchema string

	// Identifiers defines quoting rules
	Identifiers IdentifierConfig

	// Placeholder defines how query parameters are formatted
	Placeholder PlaceholderStyle
}

// PlaceholderStyle defines how query parameters are formatted.
type PlaceholderStyle int

const (
	// PlaceholderQuestion uses ? for all parameters (DuckDB, SQLite).
	PlaceholderQuestion PlaceholderStyle = iota
	// PlaceholderDollar uses $1, $2, etc. for parameters (PostgreSQL).
	PlaceholderDollar
)

// IdentifierConfig defines how identifiers are quoted.
type IdentifierConfig struct {
	Quote  string // Quote character: "
	Escape string // Escape sequence for the quote character inside identifiers
}
