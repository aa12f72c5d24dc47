// Package duckdb provides a DuckDB database adapter backed by an embedded
// or file-based database. DuckDB is the default analytics engine: resources
// live in a JSON column and generated queries run in-process.
package duckdb

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"

	_ "github.com/marcboeker/go-duckdb" // duckdb driver

	"github.com/fhir4ds/fhirsql/pkg/adapter"
	"github.com/fhir4ds/fhirsql/pkg/core"
	"github.com/fhir4ds/fhirsql/pkg/dialect"
	duckdialect "github.com/fhir4ds/fhirsql/pkg/dialects/duckdb"
)

// Adapter implements the adapter.Adapter interface for DuckDB.
type Adapter struct {
	adapter.BaseSQLAdapter
}

// New creates a new DuckDB adapter instance.
// If logger is nil, a discard logger is used.
func New(logger *slog.Logger) *Adapter {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Adapter{
		BaseSQLAdapter: adapter.BaseSQLAdapter{Logger: logger},
	}
}

// Dialect returns the DuckDB SQL dialect.
func (a *Adapter) Dialect() dialect.Dialect {
	return duckdialect.DuckDB
}

// Connect establishes a connection to DuckDB.
// Use ":memory:" as the path for an in-memory database.
func (a *Adapter) Connect(ctx context.Context, cfg core.AdapterConfig) error {
	path := cfg.Path
	if path == "" {
		path = ":memory:"
	}

	a.Logger.Debug("connecting to duckdb", slog.String("path", path))

	db, err := sql.Open("duckdb", path)
	if err != nil {
		return fmt.Errorf("failed to open duckdb connection: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping duckdb: %w", err)
	}

	a.DB = db
	a.Cfg = cfg

	params, err := ParseParams(cfg.Params)
	if err != nil {
		_ = db.Close()
		a.DB = nil
		return err
	}
	if err := a.applyParams(ctx, params); err != nil {
		_ = db.Close()
		a.DB = nil
		return err
	}
	return nil
}

// applyParams loads extensions and applies session settings.
func (a *Adapter) applyParams(ctx context.Context, p Params) error {
	for _, ext := range p.Extensions {
		if err := a.Exec(ctx, fmt.Sprintf("INSTALL %s; LOAD %s", ext, ext)); err != nil {
			return fmt.Errorf("failed to load extension %s: %w", ext, err)
		}
	}
	for key, val := range p.Settings {
		if err := a.Exec(ctx, fmt.Sprintf("SET %s = '%s'", key, val)); err != nil {
			return fmt.Errorf("failed to apply setting %s: %w", key, err)
		}
	}
	return nil
}

// EnsureResourceTable creates the resource table if it does not exist.
func (a *Adapter) EnsureResourceTable(ctx context.Context, table string) error {
	return a.Exec(ctx, fmt.Sprintf(
		"CREATE TABLE IF NOT EXISTS %s (id VARCHAR PRIMARY KEY, resource_type VARCHAR NOT NULL, resource JSON NOT NULL)",
		table))
}

// LoadResources bulk-loads NDJSON resources into a table.
func (a *Adapter) LoadResources(ctx context.Context, table string, r io.Reader) (int, error) {
	return a.LoadResourcesCommon(ctx, table, r, a.Dialect())
}

// GetTableMetadata retrieves metadata for a specified table.
func (a *Adapter) GetTableMetadata(ctx context.Context, table string) (*core.TableMetadata, error) {
	return a.GetTableMetadataCommon(ctx, table, a.Dialect())
}

// Ensure Adapter implements adapter.Adapter interface
var _ adapter.Adapter = (*Adapter)(nil)
