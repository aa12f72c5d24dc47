package adapter

import (
	"context"
	"strings"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fhir4ds/fhirsql/pkg/dialects/duckdb"
	"github.com/fhir4ds/fhirsql/pkg/dialects/postgres"
)

func TestExecAndQueryRequireConnection(t *testing.T) {
	b := &BaseSQLAdapter{}
	err := b.Exec(context.Background(), "SELECT 1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not established")

	_, err = b.Query(context.Background(), "SELECT 1")
	require.Error(t, err)
	assert.False(t, b.IsConnected())
}

func TestLoadResourcesCommon(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	ndjson := strings.Join([]string{
		`{"resourceType":"Patient","id":"p1","gender":"male"}`,
		``,
		`{"resourceType":"Patient","id":"p2","gender":"female"}`,
	}, "\n")

	mock.ExpectBegin()
	prep := mock.ExpectPrepare("INSERT INTO fhir_resources")
	prep.ExpectExec().
		WithArgs("p1", "Patient", `{"resourceType":"Patient","id":"p1","gender":"male"}`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	prep.ExpectExec().
		WithArgs("p2", "Patient", `{"resourceType":"Patient","id":"p2","gender":"female"}`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	b := &BaseSQLAdapter{DB: db}
	count, err := b.LoadResourcesCommon(context.Background(), "fhir_resources", strings.NewReader(ndjson), duckdb.DuckDB)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLoadResourcesGeneratesMissingID(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	mock.ExpectBegin()
	prep := mock.ExpectPrepare("INSERT INTO fhir_resources")
	prep.ExpectExec().
		WithArgs(sqlmock.AnyArg(), "Observation", `{"resourceType":"Observation"}`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	b := &BaseSQLAdapter{DB: db}
	count, err := b.LoadResourcesCommon(context.Background(), "fhir_resources",
		strings.NewReader(`{"resourceType":"Observation"}`), duckdb.DuckDB)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLoadResourcesRejectsBadInput(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	mock.ExpectBegin()
	mock.ExpectPrepare("INSERT INTO fhir_resources")
	mock.ExpectRollback()

	b := &BaseSQLAdapter{DB: db}
	_, err = b.LoadResourcesCommon(context.Background(), "fhir_resources",
		strings.NewReader(`{"id":"no-type"}`), duckdb.DuckDB)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing resourceType")

	mock.ExpectBegin()
	mock.ExpectPrepare("INSERT INTO fhir_resources")
	mock.ExpectRollback()

	_, err = b.LoadResourcesCommon(context.Background(), "fhir_resources",
		strings.NewReader(`not json`), duckdb.DuckDB)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid JSON")
}

func TestGetTableMetadataCommon(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	cols := sqlmock.NewRows([]string{"column_name", "data_type", "is_nullable", "ordinal_position"}).
		AddRow("id", "VARCHAR", "NO", 1).
		AddRow("resource_type", "VARCHAR", "NO", 2).
		AddRow("resource", "JSON", "NO", 3)
	mock.ExpectQuery("information_schema.columns").
		WithArgs("main", "fhir_resources").
		WillReturnRows(cols)
	mock.ExpectQuery("SELECT COUNT").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(42))

	b := &BaseSQLAdapter{DB: db}
	meta, err := b.GetTableMetadataCommon(context.Background(), "fhir_resources", duckdb.DuckDB)
	require.NoError(t, err)

	assert.Equal(t, "main", meta.Schema)
	assert.Equal(t, "fhir_resources", meta.Name)
	assert.Len(t, meta.Columns, 3)
	assert.Equal(t, "resource", meta.Columns[2].Name)
	assert.False(t, meta.Columns[0].Nullable)
	assert.Equal(t, int64(42), meta.RowCount)
}

func TestParseQualifiedName(t *testing.T) {
	schema, name := ParseQualifiedName("analytics.patients", postgres.Postgres)
	assert.Equal(t, "analytics", schema)
	assert.Equal(t, "patients", name)

	schema, name = ParseQualifiedName("patients", postgres.Postgres)
	assert.Equal(t, "public", schema)
	assert.Equal(t, "patients", name)
}
