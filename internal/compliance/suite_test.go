package compliance

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeSuite(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadXMLSuite(t *testing.T) {
	path := writeSuite(t, "tests.xml", `<?xml version="1.0" encoding="UTF-8"?>
<tests name="fhirpath-r4">
  <group name="testSimple">
    <test name="testSimple1" inputfile="patient-example.xml">
      <expression>name.given</expression>
      <output type="string">Peter</output>
      <output type="string">James</output>
    </test>
    <test name="testSimpleFail" inputfile="patient-example.xml">
      <expression invalid="syntax">***</expression>
    </test>
  </group>
  <group name="testBoolean">
    <test name="testTrue" inputfile="patient-example.xml" invalid="semantic">
      <expression>true.foo</expression>
    </test>
  </group>
</tests>`)

	suite, err := LoadSuite(path)
	require.NoError(t, err)

	assert.Equal(t, "fhirpath-r4", suite.Name)
	require.Len(t, suite.Groups, 2)
	assert.Equal(t, 3, suite.Cases())

	first := suite.Groups[0].Tests[0]
	assert.Equal(t, "testSimple1", first.Name)
	assert.Equal(t, "patient-example.xml", first.InputFile)
	assert.Equal(t, "name.given", first.Expression)
	assert.False(t, first.Invalid)
	require.Len(t, first.Outputs, 2)
	assert.Equal(t, Output{Type: "string", Value: "Peter"}, first.Outputs[0])

	// invalid can sit on the expression or on the test element
	assert.True(t, suite.Groups[0].Tests[1].Invalid)
	assert.True(t, suite.Groups[1].Tests[0].Invalid)

	assert.Equal(t, []string{"patient-example.xml"}, suite.InputFiles())
}

func TestLoadJSONSuite(t *testing.T) {
	path := writeSuite(t, "tests.json", `{
  "name": "fhirpath-r4",
  "groups": [
    {
      "name": "testSimple",
      "tests": [
        {
          "name": "testSimple1",
          "inputfile": "patient-example.xml",
          "expression": "name.given",
          "outputs": [{"type": "string", "value": "Peter"}]
        }
      ]
    }
  ]
}`)

	suite, err := LoadSuite(path)
	require.NoError(t, err)
	assert.Equal(t, "fhirpath-r4", suite.Name)
	require.Len(t, suite.Groups, 1)
	c := suite.Groups[0].Tests[0]
	assert.Equal(t, "name.given", c.Expression)
	require.Len(t, c.Outputs, 1)
	assert.Equal(t, "Peter", c.Outputs[0].Value)
}

func TestLoadSuiteUnsupportedFormat(t *testing.T) {
	path := writeSuite(t, "tests.yaml", "name: nope")
	_, err := LoadSuite(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported suite format")
}

func TestLoadSuiteMissingFile(t *testing.T) {
	_, err := LoadSuite(filepath.Join(t.TempDir(), "absent.xml"))
	require.Error(t, err)
}
