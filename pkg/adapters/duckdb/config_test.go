package duckdb

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseParams(t *testing.T) {
	p, err := ParseParams(map[string]any{
		"extensions": []string{"httpfs"},
		"settings":   map[string]string{"memory_limit": "4GB"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"httpfs"}, p.Extensions)
	assert.Equal(t, "4GB", p.Settings["memory_limit"])
}

func TestParseParamsNil(t *testing.T) {
	p, err := ParseParams(nil)
	require.NoError(t, err)
	assert.Empty(t, p.Extensions)
	assert.Empty(t, p.Settings)
}

func TestDialect(t *testing.T) {
	a := New(nil)
	assert.Equal(t, "duckdb", a.Dialect().Name())
}
