package core

import "database/sql"

// AdapterConfig holds database connection configuration.
type AdapterConfig struct {
	// Type is the adapter type ("duckdb" or "postgres")
	Type string
	// Path is the database file path for DuckDB (empty for in-memory)
	Path string
	// URL is a full connection URL (postgres://...); overrides host/port fields
	URL string
	// Host, Port, Database, Username, Password are Postgres connection fields
	Host     string
	Port     int
	Database string
	Username string
	Password string
	// Schema is the target schema (defaults to the dialect's default schema)
	Schema string
	// ResourceTable is the table holding FHIR resources
	ResourceTable string
	// Options holds additional driver options (e.g. sslmode)
	Options map[string]string
	// Params holds adapter-specific settings, decoded by each adapter
	// (e.g. DuckDB extensions and session settings)
	Params map[string]any
}

// Column describes a table column.
type Column struct {
	Name     string
	Type     string
	Nullable bool
	Position int
}

// TableMetadata describes a table.
type TableMetadata struct {
	Schema   string
	Name     string
	Columns  []Column
	RowCount int64
}

// Rows wraps sql.Rows for adapter query results.
type Rows struct {
	*sql.Rows
}
