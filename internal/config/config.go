// Package config loads fhirsql configuration from defaults, a YAML config
// file, environment variables, and command-line flags, in that order of
// increasing precedence.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"

	"github.com/fhir4ds/fhirsql/pkg/adapter"
	"github.com/fhir4ds/fhirsql/pkg/core"
)

// ConfigFileName is the name of the config file.
const ConfigFileName = "fhirsql.yaml"

// ConfigFileNameAlt is the alternate name of the config file.
const ConfigFileNameAlt = "fhirsql.yml"

// Default configuration values.
const (
	DefaultDatabaseType  = "duckdb"
	DefaultResourceTable = "fhir_resources"
	DefaultStateFile     = ".fhirsql/state.db"
	DefaultSuiteDir      = "testdata/suites"
	DefaultLogLevel      = "info"
	DefaultOutput        = "table"
)

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	Type string `koanf:"type"` // duckdb or postgres

	// DuckDB file path (empty for in-memory)
	Path string `koanf:"path"`

	// Full connection URL; overrides the individual fields below
	URL string `koanf:"url"`

	Host     string `koanf:"host"`
	Port     int    `koanf:"port"`
	Database string `koanf:"database"`
	User     string `koanf:"user"`
	Password string `koanf:"password"`
	Schema   string `koanf:"schema"`

	// Table is the resource table queries run against
	Table string `koanf:"table"`

	// Additional driver options (e.g. sslmode)
	Options map[string]string `koanf:"options"`

	// Params holds adapter-specific settings (e.g. DuckDB extensions)
	Params map[string]any `koanf:"params"`
}

// Config holds all fhirsql configuration options.
type Config struct {
	Database  DatabaseConfig `koanf:"database"`
	StatePath string         `koanf:"state_path"`
	SuiteDir  string         `koanf:"suite_dir"`
	LogLevel  string         `koanf:"log_level"`
	Output    string         `koanf:"output"`
	Verbose   bool           `koanf:"verbose"`
}

func defaults() map[string]any {
	return map[string]any{
		"database.type":  DefaultDatabaseType,
		"database.table": DefaultResourceTable,
		"state_path":     DefaultStateFile,
		"suite_dir":      DefaultSuiteDir,
		"log_level":      DefaultLogLevel,
		"output":         DefaultOutput,
	}
}

// Load builds the configuration. cfgFile may name an explicit config file;
// when empty, fhirsql.yaml is searched for in the working directory and in
// ~/.fhirsql/. flags may be nil.
//
// Precedence (highest to lowest): flags > env vars > config file > defaults.
// DATABASE_TYPE and DATABASE_URL are honored alongside the FHIRSQL_ prefix.
func Load(cfgFile string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	configPath := cfgFile
	if configPath == "" {
		configPath = findConfigFile()
	}
	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", configPath, err)
		}
	}

	// FHIRSQL_DATABASE__TYPE maps to database.type; a double underscore
	// separates nesting levels so keys like state_path stay intact.
	if err := k.Load(env.Provider("FHIRSQL_", ".", func(s string) string {
		key := strings.ToLower(strings.TrimPrefix(s, "FHIRSQL_"))
		return strings.ReplaceAll(key, "__", ".")
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment: %w", err)
	}

	shortcuts := map[string]any{}
	if v := os.Getenv("DATABASE_TYPE"); v != "" {
		shortcuts["database.type"] = v
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		shortcuts["database.url"] = v
	}
	if len(shortcuts) > 0 {
		if err := k.Load(confmap.Provider(shortcuts, "."), nil); err != nil {
			return nil, fmt.Errorf("failed to load environment: %w", err)
		}
	}

	if flags != nil {
		if err := k.Load(posflag.Provider(flags, ".", k), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}
	cfg.applyDefaults()

	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Database.Type == "postgres" && c.Database.Port == 0 {
		c.Database.Port = 5432
	}
	if c.Database.Table == "" {
		c.Database.Table = DefaultResourceTable
	}
}

// Validate checks that the configured database type has a registered adapter.
func (c *Config) Validate() error {
	if c.Database.Type == "" {
		return fmt.Errorf("database type is required")
	}
	if !adapter.IsRegistered(strings.ToLower(c.Database.Type)) {
		return &adapter.UnknownAdapterError{
			Type:      c.Database.Type,
			Available: adapter.ListAdapters(),
		}
	}
	return nil
}

// AdapterConfig converts the database section into the adapter layer's config.
func (c *Config) AdapterConfig() core.AdapterConfig {
	return core.AdapterConfig{
		Type:          strings.ToLower(c.Database.Type),
		Path:          c.Database.Path,
		URL:           c.Database.URL,
		Host:          c.Database.Host,
		Port:          c.Database.Port,
		Database:      c.Database.Database,
		Username:      c.Database.User,
		Password:      c.Database.Password,
		Schema:        c.Database.Schema,
		ResourceTable: c.Database.Table,
		Options:       c.Database.Options,
		Params:        c.Database.Params,
	}
}

func findConfigFile() string {
	candidates := []string{ConfigFileName, ConfigFileNameAlt}
	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates,
			filepath.Join(home, ".fhirsql", ConfigFileName),
			filepath.Join(home, ".fhirsql", ConfigFileNameAlt),
		)
	}
	for _, p := range candidates {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}
