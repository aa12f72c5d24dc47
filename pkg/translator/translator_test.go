package translator_test

import (
	"testing"

	"github.com/fhir4ds/fhirsql/pkg/core"
	"github.com/fhir4ds/fhirsql/pkg/dialect"
	"github.com/fhir4ds/fhirsql/pkg/dialects/duckdb"
	"github.com/fhir4ds/fhirsql/pkg/dialects/postgres"
	"github.com/fhir4ds/fhirsql/pkg/fhirtypes"
	"github.com/fhir4ds/fhirsql/pkg/parser"
	"github.com/fhir4ds/fhirsql/pkg/translator"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func translate(t *testing.T, d dialect.Dialect, resourceType, input string) *translator.Result {
	t.Helper()
	expr, err := parser.Parse(input)
	require.NoError(t, err)
	tl := translator.New(d, fhirtypes.NewRegistry(), translator.Options{ResourceType: resourceType})
	res, err := tl.Translate(expr)
	require.NoError(t, err)
	return res
}

func translateErr(t *testing.T, d dialect.Dialect, resourceType, input string) error {
	t.Helper()
	expr, err := parser.Parse(input)
	require.NoError(t, err)
	tl := translator.New(d, fhirtypes.NewRegistry(), translator.Options{ResourceType: resourceType})
	_, err = tl.Translate(expr)
	require.Error(t, err)
	return err
}

func TestSimplePath(t *testing.T) {
	res := translate(t, duckdb.DuckDB, "Patient", "Patient.birthDate")
	assert.Equal(t,
		"SELECT r.id AS id, CAST(json_extract_string(r.resource, '$.birthDate') AS DATE) AS value FROM fhir_resources r",
		res.SQL)
	assert.True(t, res.Fragment.Singleton)
	assert.Equal(t, core.TypeDate, res.Fragment.Type)

	res = translate(t, postgres.Postgres, "Patient", "Patient.birthDate")
	assert.Equal(t,
		"SELECT r.id AS id, (r.resource #>> '{birthDate}')::date AS value FROM fhir_resources r",
		res.SQL)
}

func TestImplicitRootElement(t *testing.T) {
	// The leading resource name is optional: gender == Patient.gender.
	res := translate(t, duckdb.DuckDB, "Patient", "gender")
	assert.Equal(t,
		"SELECT r.id AS id, json_extract_string(r.resource, '$.gender') AS value FROM fhir_resources r",
		res.SQL)
}

func TestArrayFlattening(t *testing.T) {
	res := translate(t, duckdb.DuckDB, "Patient", "Patient.name.family")
	assert.Equal(t,
		"WITH flat_1 AS (SELECT r.id AS id, u.value AS value, u.ord AS ord FROM fhir_resources r, LATERAL (SELECT UNNEST(CAST(json_extract(r.resource, '$.name') AS JSON[])) AS value, generate_subscripts(CAST(json_extract(r.resource, '$.name') AS JSON[]), 1) AS ord) AS u)\n"+
			"SELECT f.id AS id, json_extract_string(f.value, '$.family') AS value FROM flat_1 f ORDER BY f.id, f.ord",
		res.SQL)
	assert.False(t, res.Fragment.Singleton)

	res = translate(t, postgres.Postgres, "Patient", "Patient.name.family")
	assert.Equal(t,
		"WITH flat_1 AS (SELECT r.id AS id, u.value AS value, u.ord AS ord FROM fhir_resources r, LATERAL jsonb_array_elements(r.resource->'name') WITH ORDINALITY AS u(value, ord))\n"+
			"SELECT f.id AS id, f.value #>> '{family}' AS value FROM flat_1 f ORDER BY f.id, f.ord",
		res.SQL)
}

func TestWhereExists(t *testing.T) {
	res := translate(t, duckdb.DuckDB, "Patient", "Patient.name.where(use = 'official').exists()")
	assert.Equal(t,
		"WITH flat_1 AS (SELECT r.id AS id, u.value AS value, u.ord AS ord FROM fhir_resources r, LATERAL (SELECT UNNEST(CAST(json_extract(r.resource, '$.name') AS JSON[])) AS value, generate_subscripts(CAST(json_extract(r.resource, '$.name') AS JSON[]), 1) AS ord) AS u),\n"+
			"filter_2 AS (SELECT f.id AS id, f.value AS value, f.ord AS ord FROM flat_1 f WHERE (json_extract_string(f.value, '$.use') = 'official')),\n"+
			"agg_3 AS (SELECT f.id AS id, COUNT(*) > 0 AS value FROM filter_2 f GROUP BY f.id)\n"+
			"SELECT r.id AS id, COALESCE(agg_3.value, FALSE) AS value FROM fhir_resources r LEFT JOIN agg_3 ON agg_3.id = r.id",
		res.SQL)
	assert.True(t, res.Fragment.Singleton)
	assert.Equal(t, core.TypeBoolean, res.Fragment.Type)
}

func TestWhereExistsPostgres(t *testing.T) {
	res := translate(t, postgres.Postgres, "Patient", "Patient.name.where(use = 'official').exists()")
	assert.Equal(t,
		"WITH flat_1 AS (SELECT r.id AS id, u.value AS value, u.ord AS ord FROM fhir_resources r, LATERAL jsonb_array_elements(r.resource->'name') WITH ORDINALITY AS u(value, ord)),\n"+
			"filter_2 AS (SELECT f.id AS id, f.value AS value, f.ord AS ord FROM flat_1 f WHERE (f.value #>> '{use}' = 'official')),\n"+
			"agg_3 AS (SELECT f.id AS id, COUNT(*) > 0 AS value FROM filter_2 f GROUP BY f.id)\n"+
			"SELECT r.id AS id, COALESCE(agg_3.value, FALSE) AS value FROM fhir_resources r LEFT JOIN agg_3 ON agg_3.id = r.id",
		res.SQL)
}

func TestCountOnJSONArray(t *testing.T) {
	// A top-level array needs no CTE: the JSON array length suffices.
	res := translate(t, duckdb.DuckDB, "Patient", "Patient.name.count()")
	assert.Equal(t,
		"SELECT r.id AS id, COALESCE(json_array_length(json_extract(r.resource, '$.name')), 0) AS value FROM fhir_resources r",
		res.SQL)
	assert.Empty(t, res.CTEs)
}

func TestNestedCollectionCount(t *testing.T) {
	// name.given is a collection of collections: both levels flatten before
	// the per-resource aggregate.
	res := translate(t, duckdb.DuckDB, "Patient", "Patient.name.given.count()")
	assert.Len(t, res.CTEs, 3)
	assert.Contains(t, res.SQL, "flat_2 AS (SELECT f.id AS id, u.value AS value, u.ord AS ord FROM flat_1 f, LATERAL (SELECT UNNEST(CAST(json_extract(f.value, '$.given') AS JSON[])) AS value, generate_subscripts(CAST(json_extract(f.value, '$.given') AS JSON[]), 1) AS ord) AS u)")
	assert.Contains(t, res.SQL, "agg_3 AS (SELECT f.id AS id, COUNT(*) AS value FROM flat_2 f GROUP BY f.id)")
	assert.Contains(t, res.SQL, "SELECT r.id AS id, COALESCE(agg_3.value, 0) AS value FROM fhir_resources r LEFT JOIN agg_3 ON agg_3.id = r.id")
}

func TestBooleanLogic(t *testing.T) {
	res := translate(t, duckdb.DuckDB, "Patient", "Patient.active and Patient.gender = 'male'")
	assert.Equal(t,
		"SELECT r.id AS id, (CAST(json_extract_string(r.resource, '$.active') AS BOOLEAN) AND (json_extract_string(r.resource, '$.gender') = 'male')) AS value FROM fhir_resources r",
		res.SQL)
}

func TestEmptyPropagation(t *testing.T) {
	// {} behaves like SQL NULL: xor with an empty operand is empty.
	res := translate(t, duckdb.DuckDB, "Patient", "true xor {}")
	assert.Equal(t,
		"SELECT r.id AS id, CASE WHEN TRUE IS NULL OR CAST(NULL AS BOOLEAN) IS NULL THEN NULL ELSE TRUE <> CAST(NULL AS BOOLEAN) END AS value FROM fhir_resources r",
		res.SQL)
}

func TestImplies(t *testing.T) {
	res := translate(t, duckdb.DuckDB, "Patient", "Patient.active implies Patient.gender = 'male'")
	a := "CAST(json_extract_string(r.resource, '$.active') AS BOOLEAN)"
	b := "(json_extract_string(r.resource, '$.gender') = 'male')"
	assert.Contains(t, res.SQL,
		"CASE WHEN "+a+" = FALSE THEN TRUE WHEN "+b+" = TRUE THEN TRUE WHEN "+a+" IS NULL OR "+b+" IS NULL THEN NULL ELSE "+b+" END")
}

func TestChoiceTypeExpansion(t *testing.T) {
	res := translate(t, duckdb.DuckDB, "Observation", "Observation.value.ofType(Quantity).unit")
	assert.Equal(t,
		"SELECT r.id AS id, json_extract_string(json_extract(r.resource, '$.valueQuantity'), '$.unit') AS value FROM fhir_resources r",
		res.SQL)
}

func TestChoiceTypeIs(t *testing.T) {
	res := translate(t, duckdb.DuckDB, "Observation", "Observation.value is Quantity")
	// The choice element itself is the COALESCE over all variants, sorted by
	// key for deterministic output.
	assert.Contains(t, res.SQL, "COALESCE(json_extract(r.resource, '$.valueBoolean'), json_extract(r.resource, '$.valueCodeableConcept')")
	assert.Contains(t, res.SQL, "ELSE json_extract(r.resource, '$.valueQuantity') IS NOT NULL END")
}

func TestIndexer(t *testing.T) {
	res := translate(t, duckdb.DuckDB, "Patient", "Patient.name[0].family")
	assert.Equal(t,
		"SELECT r.id AS id, json_extract_string(json_extract(json_extract(r.resource, '$.name'), '$[' || (0) || ']'), '$.family') AS value FROM fhir_resources r",
		res.SQL)
}

func TestSkipNumbersElementsBySourcePosition(t *testing.T) {
	res := translate(t, duckdb.DuckDB, "Patient", "Patient.name.given.skip(1)")
	assert.Contains(t, res.SQL, "row_number() OVER (PARTITION BY id ORDER BY ord) AS rn FROM flat_2")
	assert.Contains(t, res.SQL, "WHERE f.rn > (1)")
	assert.Contains(t, res.SQL, "ORDER BY f.id, f.ord")

	res = translate(t, postgres.Postgres, "Patient", "Patient.name.given.skip(1)")
	assert.Contains(t, res.SQL, "WITH ORDINALITY AS u(value, ord)")
	assert.Contains(t, res.SQL, "row_number() OVER (PARTITION BY id ORDER BY ord) AS rn FROM flat_2")
}

func TestFirstAfterFilter(t *testing.T) {
	res := translate(t, duckdb.DuckDB, "Patient", "Patient.name.where(use = 'official').first().family")
	assert.Contains(t, res.SQL,
		"pick_3 AS (SELECT f.id AS id, f.value AS value, f.rn AS ord FROM (SELECT id, value, row_number() OVER (PARTITION BY id ORDER BY ord) AS rn FROM filter_2) f WHERE f.rn = (0) + 1)")
	assert.Contains(t, res.SQL,
		"SELECT r.id AS id, json_extract_string(pick_3.value, '$.family') AS value FROM fhir_resources r LEFT JOIN pick_3 ON pick_3.id = r.id")
}

func TestLastPicksHighestPosition(t *testing.T) {
	res := translate(t, duckdb.DuckDB, "Patient", "Patient.name.given.last()")
	assert.Contains(t, res.SQL, "row_number() OVER (PARTITION BY id ORDER BY ord DESC) AS rn FROM flat_2")
	assert.Contains(t, res.SQL, "WHERE f.rn = 1")
}

func TestDistinctKeepsFirstOccurrencePosition(t *testing.T) {
	res := translate(t, duckdb.DuckDB, "Patient", "Patient.name.given.distinct()")
	assert.Contains(t, res.SQL,
		"dedup_3 AS (SELECT f.id AS id, f.value AS value, MIN(f.ord) AS ord FROM flat_2 f GROUP BY f.id, f.value)")
	assert.Contains(t, res.SQL, "ORDER BY f.id, f.ord")
}

func TestUnionDeduplicatesFlattens(t *testing.T) {
	res := translate(t, duckdb.DuckDB, "Patient", "Patient.name.given | Patient.name.prefix")
	// Both operands flatten Patient.name; the builder emits that CTE once.
	names := make([]string, 0, len(res.CTEs))
	for _, c := range res.CTEs {
		names = append(names, c.Name)
	}
	assert.Equal(t, []string{"flat_1", "flat_2", "flat_3", "union_4"}, names)
	assert.Contains(t, res.SQL, "(SELECT id, value FROM flat_2 UNION SELECT id, value FROM flat_3)")
}

func TestMembership(t *testing.T) {
	res := translate(t, duckdb.DuckDB, "Patient", "'home' in Patient.address.use")
	assert.Contains(t, res.SQL, "proj_2 AS (SELECT f.id AS id, json_extract(f.value, '$.use') AS value, f.ord AS ord FROM flat_1 f)")
	assert.Contains(t, res.SQL,
		"CASE WHEN 'home' IS NULL THEN NULL ELSE EXISTS (SELECT 1 FROM proj_2 c WHERE c.id = r.id AND json_extract_string(c.value, '$') = 'home') END")
}

func TestArithmetic(t *testing.T) {
	res := translate(t, duckdb.DuckDB, "Patient", "1 + 2 * 3")
	assert.Equal(t, "SELECT r.id AS id, (1 + (2 * 3)) AS value FROM fhir_resources r", res.SQL)

	res = translate(t, duckdb.DuckDB, "Patient", "7 div 2")
	assert.Equal(t,
		"SELECT r.id AS id, CAST(TRUNC(CAST(7 AS DOUBLE) / NULLIF(CAST(2 AS DOUBLE), 0)) AS BIGINT) AS value FROM fhir_resources r",
		res.SQL)

	res = translate(t, duckdb.DuckDB, "Patient", "7 mod 2")
	assert.Equal(t, "SELECT r.id AS id, MOD(7, NULLIF(2, 0)) AS value FROM fhir_resources r", res.SQL)
}

func TestStringFunctions(t *testing.T) {
	res := translate(t, duckdb.DuckDB, "Patient", "Patient.gender.upper()")
	assert.Equal(t,
		"SELECT r.id AS id, UPPER(json_extract_string(r.resource, '$.gender')) AS value FROM fhir_resources r",
		res.SQL)

	res = translate(t, duckdb.DuckDB, "Patient", "Patient.gender.substring(0, 2)")
	assert.Equal(t,
		"SELECT r.id AS id, SUBSTR(json_extract_string(r.resource, '$.gender'), (0) + 1, 2) AS value FROM fhir_resources r",
		res.SQL)

	res = translate(t, duckdb.DuckDB, "Patient", "Patient.gender.startsWith('ma')")
	assert.Equal(t,
		"SELECT r.id AS id, (SUBSTR(json_extract_string(r.resource, '$.gender'), 1, LENGTH('ma')) = 'ma') AS value FROM fhir_resources r",
		res.SQL)
}

func TestIif(t *testing.T) {
	res := translate(t, duckdb.DuckDB, "Patient", "iif(Patient.active, 'yes', 'no')")
	assert.Equal(t,
		"SELECT r.id AS id, CASE WHEN CAST(json_extract_string(r.resource, '$.active') AS BOOLEAN) THEN 'yes' ELSE 'no' END AS value FROM fhir_resources r",
		res.SQL)
}

func TestStringConcatenation(t *testing.T) {
	// & treats empty as '' where + would propagate it.
	res := translate(t, duckdb.DuckDB, "Patient", "Patient.gender & '!'")
	assert.Equal(t,
		"SELECT r.id AS id, (COALESCE(json_extract_string(r.resource, '$.gender'), '') || COALESCE('!', '')) AS value FROM fhir_resources r",
		res.SQL)
}

func TestExternalConstants(t *testing.T) {
	expr, err := parser.Parse("%code")
	require.NoError(t, err)
	tl := translator.New(duckdb.DuckDB, fhirtypes.NewRegistry(), translator.Options{
		ResourceType: "Patient",
		Env:          map[string]string{"code": "final"},
	})
	res, err := tl.Translate(expr)
	require.NoError(t, err)
	assert.Equal(t, "SELECT r.id AS id, 'final' AS value FROM fhir_resources r", res.SQL)

	_, err = tl.Translate(mustParse(t, "%undefined"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "undefined external constant %undefined")
}

func mustParse(t *testing.T, input string) core.Expr {
	t.Helper()
	expr, err := parser.Parse(input)
	require.NoError(t, err)
	return expr
}

func TestCustomResourceTable(t *testing.T) {
	tl := translator.New(duckdb.DuckDB, fhirtypes.NewRegistry(), translator.Options{
		ResourceType: "Patient",
		Table:        "patients",
	})
	res, err := tl.Translate(mustParse(t, "Patient.gender"))
	require.NoError(t, err)
	assert.Equal(t, "SELECT r.id AS id, json_extract_string(r.resource, '$.gender') AS value FROM patients r", res.SQL)
}

func TestTranslateErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"unknown function", "Patient.name.fold()", "unknown function fold()"},
		{"resource mismatch", "Observation.status", "configured for Patient"},
		{"quantity literal", "4.5 'mg'", "quantity literals are not supported"},
		{"index variable", "Patient.name.where($index = 0)", "variable $index is not supported"},
		{"mixed collections", "Patient.name.family = Patient.address.city", "cannot combine expressions over different collections"},
		{"arity", "Patient.name.where()", "where() expects 1 argument(s), got 0"},
		{"iif collection branch", "iif(Patient.active, Patient.name, 'none')", "iif() branches must be singletons"},
		{"iif collection condition", "iif(Patient.name, 'a', 'b')", "iif() condition must be a singleton"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := translateErr(t, duckdb.DuckDB, "Patient", tt.input)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestTranslateErrorPosition(t *testing.T) {
	err := translateErr(t, duckdb.DuckDB, "Patient", "Patient.name.fold()")
	var terr *translator.TranslateError
	require.ErrorAs(t, err, &terr)
	assert.Equal(t, 1, terr.Pos.Line)
}

func TestTypeExprErrorPosition(t *testing.T) {
	err := translateErr(t, duckdb.DuckDB, "Patient", "Patient.gender.extra is Quantity")
	var terr *translator.TranslateError
	require.ErrorAs(t, err, &terr)
	assert.Contains(t, terr.Message, "untyped expression")
	assert.Equal(t, 1, terr.Pos.Line)
	assert.Equal(t, 16, terr.Pos.Column)
}
