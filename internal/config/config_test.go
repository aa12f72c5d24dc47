package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fhir4ds/fhirsql/pkg/adapter"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("", nil)
	require.NoError(t, err)

	assert.Equal(t, "duckdb", cfg.Database.Type)
	assert.Equal(t, "fhir_resources", cfg.Database.Table)
	assert.Equal(t, ".fhirsql/state.db", cfg.StatePath)
	assert.Equal(t, "table", cfg.Output)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestLoadConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "fhirsql.yaml")
	yaml := `
database:
  type: postgres
  host: db.internal
  database: fhir
  table: resources
state_path: /var/lib/fhirsql/state.db
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))

	cfg, err := Load(path, nil)
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Database.Type)
	assert.Equal(t, "db.internal", cfg.Database.Host)
	assert.Equal(t, "resources", cfg.Database.Table)
	assert.Equal(t, "/var/lib/fhirsql/state.db", cfg.StatePath)
	// Postgres port defaults when the file leaves it out.
	assert.Equal(t, 5432, cfg.Database.Port)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("FHIRSQL_DATABASE__TYPE", "postgres")
	t.Setenv("FHIRSQL_LOG_LEVEL", "debug")

	cfg, err := Load("", nil)
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Database.Type)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoadDatabaseShortcutEnvVars(t *testing.T) {
	t.Setenv("DATABASE_TYPE", "postgres")
	t.Setenv("DATABASE_URL", "postgres://etl@db.internal:5432/fhir")

	cfg, err := Load("", nil)
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Database.Type)
	assert.Equal(t, "postgres://etl@db.internal:5432/fhir", cfg.Database.URL)
}

func TestLoadFlagsWin(t *testing.T) {
	t.Setenv("FHIRSQL_OUTPUT", "csv")

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.String("output", "table", "")
	require.NoError(t, fs.Set("output", "json"))

	cfg, err := Load("", fs)
	require.NoError(t, err)
	assert.Equal(t, "json", cfg.Output)
}

func TestValidate(t *testing.T) {
	cfg := &Config{}
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "required")

	cfg.Database.Type = "oracle"
	err = cfg.Validate()
	require.Error(t, err)
	var unknown *adapter.UnknownAdapterError
	require.ErrorAs(t, err, &unknown)
}

func TestAdapterConfig(t *testing.T) {
	cfg := &Config{Database: DatabaseConfig{
		Type:     "Postgres",
		Host:     "db",
		Port:     5433,
		Database: "fhir",
		User:     "etl",
		Table:    "resources",
	}}
	ac := cfg.AdapterConfig()
	assert.Equal(t, "postgres", ac.Type)
	assert.Equal(t, "db", ac.Host)
	assert.Equal(t, 5433, ac.Port)
	assert.Equal(t, "etl", ac.Username)
	assert.Equal(t, "resources", ac.ResourceTable)
}
