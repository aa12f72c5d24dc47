package cte_test

import (
	"testing"

	"github.com/fhir4ds/fhirsql/pkg/cte"
	"github.com/fhir4ds/fhirsql/pkg/dialects/duckdb"
	"github.com/fhir4ds/fhirsql/pkg/dialects/postgres"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderPlain(t *testing.T) {
	c := &cte.CTE{
		Name:         "flat_1",
		BaseTable:    "fhir_resources",
		BaseAlias:    "r",
		SelectClause: "r.id AS id, u.value AS value",
		FlattenItem:  "LATERAL jsonb_array_elements(r.resource->'name') AS u(value)",
	}
	assert.Equal(t,
		"SELECT r.id AS id, u.value AS value FROM fhir_resources r, LATERAL jsonb_array_elements(r.resource->'name') AS u(value)",
		c.Render())
}

func TestRenderWithWhereAndGroupBy(t *testing.T) {
	c := &cte.CTE{
		Name:         "agg_2",
		BaseTable:    "flat_1",
		BaseAlias:    "f",
		SelectClause: "f.id AS id, COUNT(*) AS value",
		Where:        "f.value IS NOT NULL",
		GroupBy:      "f.id",
	}
	assert.Equal(t,
		"SELECT f.id AS id, COUNT(*) AS value FROM flat_1 f WHERE f.value IS NOT NULL GROUP BY f.id",
		c.Render())
}

func TestFlattenUsesDialectUnnest(t *testing.T) {
	b := cte.NewBuilder(postgres.Postgres)
	c := b.Flatten("fhir_resources", "r", "r.id", "r.resource->'name'")

	assert.Equal(t, "flat_1", c.Name)
	assert.Contains(t, c.Render(), "LATERAL jsonb_array_elements(r.resource->'name') WITH ORDINALITY AS u(value, ord)")

	b2 := cte.NewBuilder(duckdb.DuckDB)
	c2 := b2.Flatten("fhir_resources", "r", "r.id", "json_extract(r.resource, '$.name')")
	assert.Contains(t, c2.Render(),
		"LATERAL (SELECT UNNEST(CAST(json_extract(r.resource, '$.name') AS JSON[])) AS value, generate_subscripts(CAST(json_extract(r.resource, '$.name') AS JSON[]), 1) AS ord) AS u")
}

func TestBuilderDeduplicatesIdenticalCTEs(t *testing.T) {
	b := cte.NewBuilder(postgres.Postgres)
	first := b.Flatten("fhir_resources", "r", "r.id", "r.resource->'name'")
	second := b.Flatten("fhir_resources", "r", "r.id", "r.resource->'name'")

	assert.Same(t, first, second)
	assert.Len(t, b.CTEs(), 1)

	// A different array expression gets its own CTE.
	third := b.Flatten("fhir_resources", "r", "r.id", "r.resource->'address'")
	assert.NotEqual(t, first.Name, third.Name)
	assert.Len(t, b.CTEs(), 2)
}

func TestAssembleOrdersByDependency(t *testing.T) {
	b := cte.NewBuilder(postgres.Postgres)
	flat := b.Flatten("fhir_resources", "r", "r.id", "r.resource->'name'")
	filtered := b.Add("filter", &cte.CTE{
		BaseTable:    flat.Name,
		BaseAlias:    "f",
		SelectClause: "f.id AS id, f.value AS value",
		Where:        "f.value->>'use' = 'official'",
		Deps:         []string{flat.Name},
	})

	sql, err := cte.Assemble(b.CTEs(), "SELECT f.id, f.value FROM "+filtered.Name+" f")
	require.NoError(t, err)

	assert.Equal(t,
		"WITH flat_1 AS (SELECT r.id AS id, u.value AS value, u.ord AS ord FROM fhir_resources r, LATERAL jsonb_array_elements(r.resource->'name') WITH ORDINALITY AS u(value, ord)),\n"+
			"filter_2 AS (SELECT f.id AS id, f.value AS value FROM flat_1 f WHERE f.value->>'use' = 'official')\n"+
			"SELECT f.id, f.value FROM filter_2 f",
		sql)
}

func TestAssembleNoCTEs(t *testing.T) {
	sql, err := cte.Assemble(nil, "SELECT 1")
	require.NoError(t, err)
	assert.Equal(t, "SELECT 1", sql)
}

func TestAssembleUnknownDependency(t *testing.T) {
	ctes := []*cte.CTE{{
		Name:         "flat_1",
		BaseTable:    "t",
		BaseAlias:    "a",
		SelectClause: "a.id AS id",
		Deps:         []string{"missing"},
	}}
	_, err := cte.Assemble(ctes, "SELECT 1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing")
}

func TestAssembleRejectsCycles(t *testing.T) {
	ctes := []*cte.CTE{
		{Name: "a", BaseTable: "b", BaseAlias: "x", SelectClause: "x.id AS id", Deps: []string{"b"}},
		{Name: "b", BaseTable: "a", BaseAlias: "x", SelectClause: "x.id AS id", Deps: []string{"a"}},
	}
	_, err := cte.Assemble(ctes, "SELECT 1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cycle")
}
