// Package engine orchestrates expression execution: parse, translate to SQL
// for the configured dialect, and run the assembled query over the resource
// table. The database connection is established lazily on first use.
package engine

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/fhir4ds/fhirsql/pkg/adapter"
	"github.com/fhir4ds/fhirsql/pkg/core"
	"github.com/fhir4ds/fhirsql/pkg/dialect"
	"github.com/fhir4ds/fhirsql/pkg/fhirtypes"
	"github.com/fhir4ds/fhirsql/pkg/parser"
	"github.com/fhir4ds/fhirsql/pkg/translator"

	// Register the bundled dialects so translation works without a connection.
	_ "github.com/fhir4ds/fhirsql/pkg/dialects/duckdb"
	_ "github.com/fhir4ds/fhirsql/pkg/dialects/postgres"
)

// Config holds engine configuration.
type Config struct {
	// AdapterConfig is the database connection configuration.
	AdapterConfig core.AdapterConfig
	// Registry is the FHIR type registry (nil uses the built-in R4 registry).
	Registry *fhirtypes.Registry
	// Env maps external constant names to values for %name references.
	Env map[string]string
	// Logger is the structured logger (nil uses a discard logger).
	Logger *slog.Logger
}

// QueryResult holds the rows produced by executing a translated expression.
type QueryResult struct {
	SQL     string
	Columns []string
	Rows    [][]any
}

// Engine translates and executes FHIRPath expressions against one database.
type Engine struct {
	dbConfig core.AdapterConfig
	registry *fhirtypes.Registry
	env      map[string]string
	logger   *slog.Logger

	dbMu        sync.Mutex
	db          adapter.Adapter
	dbConnected bool
}

// New creates an engine with a lazy database connection.
func New(cfg Config) *Engine {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	reg := cfg.Registry
	if reg == nil {
		reg = fhirtypes.NewRegistry()
	}
	if cfg.AdapterConfig.ResourceTable == "" {
		cfg.AdapterConfig.ResourceTable = "fhir_resources"
	}
	return &Engine{
		dbConfig: cfg.AdapterConfig,
		registry: reg,
		env:      cfg.Env,
		logger:   logger,
	}
}

// Translate compiles an expression for the configured database type without
// connecting to it.
func (e *Engine) Translate(expression, resourceType string) (*translator.Result, error) {
	d, ok := dialect.Get(e.dbConfig.Type)
	if !ok {
		return nil, fmt.Errorf("dialect %q not found", e.dbConfig.Type)
	}
	return e.translateWith(d, expression, resourceType)
}

func (e *Engine) translateWith(d dialect.Dialect, expression, resourceType string) (*translator.Result, error) {
	expr, err := parser.Parse(expression)
	if err != nil {
		return nil, err
	}
	tr := translator.New(d, e.registry, translator.Options{
		ResourceType: resourceType,
		Table:        e.dbConfig.ResourceTable,
		Env:          e.env,
	})
	return tr.Translate(expr)
}

// Run translates an expression and executes it, returning all result rows.
func (e *Engine) Run(ctx context.Context, expression, resourceType string) (*QueryResult, error) {
	if err := e.ensureConnected(ctx); err != nil {
		return nil, err
	}

	res, err := e.translateWith(e.db.Dialect(), expression, resourceType)
	if err != nil {
		return nil, err
	}

	e.logger.Debug("executing query", "resource_type", resourceType, "sql", res.SQL)
	rows, err := e.db.Query(ctx, res.SQL)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer func() { _ = rows.Close() }()

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to read columns: %w", err)
	}

	out := &QueryResult{SQL: res.SQL, Columns: cols}
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		for i, v := range values {
			if b, ok := v.([]byte); ok {
				values[i] = string(b)
			}
		}
		out.Rows = append(out.Rows, values)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return out, nil
}

// LoadResources bulk-loads NDJSON resources into the resource table,
// creating the table if needed.
func (e *Engine) LoadResources(ctx context.Context, r io.Reader) (int, error) {
	if err := e.ensureConnected(ctx); err != nil {
		return 0, err
	}
	table := e.dbConfig.ResourceTable
	if err := e.db.EnsureResourceTable(ctx, table); err != nil {
		return 0, fmt.Errorf("failed to ensure resource table: %w", err)
	}
	n, err := e.db.LoadResources(ctx, table, r)
	if err != nil {
		return 0, err
	}
	return n, nil
}

// Describe reports the resource table's schema and row count. The table is
// created first so a fresh database describes cleanly instead of erroring.
func (e *Engine) Describe(ctx context.Context) (*core.TableMetadata, error) {
	if err := e.ensureConnected(ctx); err != nil {
		return nil, err
	}
	table := e.dbConfig.ResourceTable
	if err := e.db.EnsureResourceTable(ctx, table); err != nil {
		return nil, fmt.Errorf("failed to ensure resource table: %w", err)
	}
	return e.db.GetTableMetadata(ctx, table)
}

// Exec runs a raw SQL statement on the underlying database.
func (e *Engine) Exec(ctx context.Context, sql string, args ...any) error {
	if err := e.ensureConnected(ctx); err != nil {
		return err
	}
	return e.db.Exec(ctx, sql, args...)
}

// DialectName reports the configured database type.
func (e *Engine) DialectName() string {
	return e.dbConfig.Type
}

// ResourceTable reports the table queries run against.
func (e *Engine) ResourceTable() string {
	return e.dbConfig.ResourceTable
}

// Registry returns the FHIR type registry used for translation.
func (e *Engine) Registry() *fhirtypes.Registry {
	return e.registry
}

func (e *Engine) ensureConnected(ctx context.Context) error {
	e.dbMu.Lock()
	defer e.dbMu.Unlock()

	if e.dbConnected {
		return nil
	}

	e.logger.Debug("connecting to database", "type", e.dbConfig.Type)

	db, err := adapter.NewAdapter(e.dbConfig, e.logger)
	if err != nil {
		return fmt.Errorf("failed to create database adapter: %w", err)
	}
	if err := db.Connect(ctx, e.dbConfig); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	e.db = db
	e.dbConnected = true
	e.logger.Debug("database connected", "dialect", db.Dialect().Name())
	return nil
}

// Close releases the database connection.
func (e *Engine) Close() error {
	e.dbMu.Lock()
	defer e.dbMu.Unlock()

	if e.db != nil {
		err := e.db.Close()
		e.db = nil
		e.dbConnected = false
		return err
	}
	return nil
}
