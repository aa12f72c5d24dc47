package duckdb

import (
	"fmt"

	"github.com/go-viper/mapstructure/v2"
)

// Params holds DuckDB-specific configuration.
// Parsed from core.AdapterConfig.Params using mapstructure.
type Params struct {
	// Extensions to install and load (e.g. "httpfs", "json")
	Extensions []string `mapstructure:"extensions"`

	// Settings to apply at session level (e.g. memory_limit, threads)
	Settings map[string]string `mapstructure:"settings"`
}

// ParseParams decodes the raw adapter params map.
func ParseParams(raw map[string]any) (Params, error) {
	var p Params
	if raw == nil {
		return p, nil
	}
	if err := mapstructure.Decode(raw, &p); err != nil {
		return p, fmt.Errorf("invalid duckdb params: %w", err)
	}
	return p, nil
}
