// Package postgres provides a PostgreSQL database adapter. Resources live in
// a JSONB column; generated queries use the jsonb operator forms from
// pkg/dialects/postgres.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"

	_ "github.com/jackc/pgx/v5/stdlib" // pgx driver

	"github.com/fhir4ds/fhirsql/pkg/adapter"
	"github.com/fhir4ds/fhirsql/pkg/core"
	"github.com/fhir4ds/fhirsql/pkg/dialect"
	pgdialect "github.com/fhir4ds/fhirsql/pkg/dialects/postgres"
)

// Adapter implements the adapter.Adapter interface for PostgreSQL.
type Adapter struct {
	adapter.BaseSQLAdapter
}

// New creates a new PostgreSQL adapter instance.
// If logger is nil, a discard logger is used.
func New(logger *slog.Logger) *Adapter {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Adapter{
		BaseSQLAdapter: adapter.BaseSQLAdapter{Logger: logger},
	}
}

// Dialect returns the PostgreSQL SQL dialect.
func (a *Adapter) Dialect() dialect.Dialect {
	return pgdialect.Postgres
}

// Connect establishes a connection to PostgreSQL.
// A full DATABASE_URL takes precedence over the individual fields.
func (a *Adapter) Connect(ctx context.Context, cfg core.AdapterConfig) error {
	dsn := BuildDSN(cfg)

	a.Logger.Debug("connecting to postgres",
		slog.String("host", cfg.Host), slog.String("database", cfg.Database))

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return fmt.Errorf("failed to open postgres connection: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping postgres: %w", err)
	}

	a.DB = db
	a.Cfg = cfg
	return nil
}

// BuildDSN constructs a PostgreSQL connection string from the config.
// URL wins when set; otherwise a key=value DSN is assembled.
func BuildDSN(cfg core.AdapterConfig) string {
	if cfg.URL != "" {
		return cfg.URL
	}

	host := cfg.Host
	if host == "" {
		host = "localhost"
	}

	port := cfg.Port
	if port == 0 {
		port = 5432
	}

	sslmode := "disable"
	if cfg.Options != nil {
		if mode, ok := cfg.Options["sslmode"]; ok {
			sslmode = mode
		}
	}

	dsn := fmt.Sprintf("host=%s port=%d dbname=%s sslmode=%s",
		host, port, cfg.Database, sslmode)

	if cfg.Username != "" {
		dsn += fmt.Sprintf(" user=%s", cfg.Username)
	}
	if cfg.Password != "" {
		dsn += fmt.Sprintf(" password=%s", cfg.Password)
	}

	return dsn
}

// EnsureResourceTable creates the resource table if it does not exist.
func (a *Adapter) EnsureResourceTable(ctx context.Context, table string) error {
	return a.Exec(ctx, fmt.Sprintf(
		"CREATE TABLE IF NOT EXISTS %s (id TEXT PRIMARY KEY, resource_type TEXT NOT NULL, resource JSONB NOT NULL)",
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
