package engine

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fhir4ds/fhirsql/internal/testutil"
	"github.com/fhir4ds/fhirsql/pkg/core"

	_ "github.com/fhir4ds/fhirsql/pkg/adapters/duckdb"
)

func TestTranslateWithoutConnection(t *testing.T) {
	e := New(Config{
		AdapterConfig: core.AdapterConfig{Type: "duckdb"},
		Logger:        testutil.NewTestLogger(t),
	})

	res, err := e.Translate("Patient.birthDate", "Patient")
	require.NoError(t, err)
	assert.Equal(t,
		"SELECT r.id AS id, CAST(json_extract_string(r.resource, '$.birthDate') AS DATE) AS value FROM fhir_resources r",
		res.SQL)
}

func TestTranslatePerDialect(t *testing.T) {
	duck := New(Config{AdapterConfig: core.AdapterConfig{Type: "duckdb"}})
	pg := New(Config{AdapterConfig: core.AdapterConfig{Type: "postgres"}})

	duckRes, err := duck.Translate("Patient.gender", "Patient")
	require.NoError(t, err)
	pgRes, err := pg.Translate("Patient.gender", "Patient")
	require.NoError(t, err)

	assert.Contains(t, duckRes.SQL, "json_extract_string")
	assert.Contains(t, pgRes.SQL, "#>>")
	assert.NotEqual(t, duckRes.SQL, pgRes.SQL)
}

func TestTranslateUnknownDialect(t *testing.T) {
	e := New(Config{AdapterConfig: core.AdapterConfig{Type: "oracle"}})
	_, err := e.Translate("Patient.gender", "Patient")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestTranslateParseError(t *testing.T) {
	e := New(Config{AdapterConfig: core.AdapterConfig{Type: "duckdb"}})
	_, err := e.Translate("Patient..name", "Patient")
	require.Error(t, err)
}

func TestDescribeResourceTable(t *testing.T) {
	e := New(Config{
		AdapterConfig: core.AdapterConfig{Type: "duckdb"},
		Logger:        testutil.NewTestLogger(t),
	})
	t.Cleanup(func() { _ = e.Close() })

	_, err := e.LoadResources(context.Background(),
		strings.NewReader(`{"resourceType":"Patient","id":"p1"}`))
	require.NoError(t, err)

	meta, err := e.Describe(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "fhir_resources", meta.Name)
	assert.Equal(t, int64(1), meta.RowCount)

	names := make([]string, 0, len(meta.Columns))
	for _, col := range meta.Columns {
		names = append(names, col.Name)
	}
	assert.Equal(t, []string{"id", "resource_type", "resource"}, names)
}

func TestCustomResourceTable(t *testing.T) {
	e := New(Config{AdapterConfig: core.AdapterConfig{Type: "duckdb", ResourceTable: "patients"}})
	res, err := e.Translate("Patient.gender", "Patient")
	require.NoError(t, err)
	assert.Contains(t, res.SQL, "FROM patients r")
	assert.Equal(t, "patients", e.ResourceTable())
}
