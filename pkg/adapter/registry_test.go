package adapter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fhir4ds/fhirsql/pkg/core"
)

func TestNewAdapterUnknownType(t *testing.T) {
	_, err := NewAdapter(core.AdapterConfig{Type: "oracle"}, nil)
	require.Error(t, err)

	var unknown *UnknownAdapterError
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, "oracle", unknown.Type)
	assert.Contains(t, err.Error(), "DATABASE_TYPE")
}

func TestNewAdapterMissingType(t *testing.T) {
	_, err := NewAdapter(core.AdapterConfig{}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not specified")
}
