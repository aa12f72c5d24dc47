// Package adapter provides the database adapter contract for executing
// generated SQL against a FHIR resource store.
//
// Concrete adapter implementations are in pkg/adapters/ subdirectories; each
// pairs a database driver with the matching SQL dialect from pkg/dialects.
package adapter

import (
	"context"
	"io"

	"github.com/fhir4ds/fhirsql/pkg/core"
	"github.com/fhir4ds/fhirsql/pkg/dialect"
)

// Adapter defines the interface that all database adapters must implement.
// It provides methods for connecting to databases, executing SQL, loading
// FHIR resources and retrieving metadata.
type Adapter interface {
	// Connect establishes a connection to the database using the provided config.
	Connect(ctx context.Context, cfg core.AdapterConfig) error

	// Close closes the database connection and releases resources.
	Close() error

	// Exec executes a SQL statement that doesn't return rows.
	Exec(ctx context.Context, sql string, args ...any) error

	// Query executes a SQL statement that returns rows.
	Query(ctx context.Context, sql string, args ...any) (*core.Rows, error)

	// EnsureResourceTable creates the resource table if it does not exist:
	// id, resource_type, and a JSON column holding the resource itself.
	EnsureResourceTable(ctx context.Context, table string) error

	// LoadResources bulk-loads newline-delimited JSON resources into a
	// table, one resource per line. Returns the number of rows inserted.
	LoadResources(ctx context.Context, table string, r io.Reader) (int, error)

	// GetTableMetadata retrieves metadata for a specified table.
	GetTableMetadata(ctx context.Context, table string) (*core.TableMetadata, error)

	// Dialect returns the SQL dialect this adapter executes.
	Dialect() dialect.Dialect
}
