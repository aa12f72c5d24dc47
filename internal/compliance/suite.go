// Package compliance runs official FHIRPath test suites against the
// translator and a live database, and records the outcome per case.
package compliance

import (
	"encoding/json"
	"encoding/xml"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Output is one expected result value of a test case.
type Output struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

// Case is a single compliance test case.
type Case struct {
	Name       string   `json:"name"`
	InputFile  string   `json:"inputfile"`
	Expression string   `json:"expression"`
	// Invalid marks cases whose expression must be rejected at translation
	// time. Such a case passes when translation fails.
	Invalid bool     `json:"invalid"`
	Outputs []Output `json:"outputs"`
}

// Group is a named set of cases.
type Group struct {
	Name  string `json:"name"`
	Tests []Case `json:"tests"`
}

// Suite is a complete compliance test suite.
type Suite struct {
	Name   string  `json:"name"`
	Groups []Group `json:"groups"`
}

// LoadSuite reads a suite from an XML or JSON file, chosen by extension.
func LoadSuite(path string) (*Suite, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read suite: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".xml":
		return parseXMLSuite(data)
	case ".json":
		return parseJSONSuite(data)
	default:
		return nil, fmt.Errorf("unsupported suite format %q (want .xml or .json)", filepath.Ext(path))
	}
}

// Cases returns the total number of cases in the suite.
func (s *Suite) Cases() int {
	n := 0
	for _, g := range s.Groups {
		n += len(g.Tests)
	}
	return n
}

// InputFiles returns the distinct input file names referenced by the suite.
func (s *Suite) InputFiles() []string {
	seen := map[string]bool{}
	var files []string
	for _, g := range s.Groups {
		for _, c := range g.Tests {
			if c.InputFile != "" && !seen[c.InputFile] {
				seen[c.InputFile] = true
				files = append(files, c.InputFile)
			}
		}
	}
	return files
}

// The official suite ships as tests.xml with this shape:
//
//	<tests name="...">
//	  <group name="...">
//	    <test name="..." inputfile="..." invalid="...">
//	      <expression invalid="...">...</expression>
//	      <output type="...">...</output>
//	    </test>
//	  </group>
//	</tests>
type xmlSuite struct {
	XMLName xml.Name   `xml:"tests"`
	Name    string     `xml:"name,attr"`
	Groups  []xmlGroup `xml:"group"`
}

type xmlGroup struct {
	Name  string    `xml:"name,attr"`
	Tests []xmlTest `xml:"test"`
}

type xmlTest struct {
	Name       string        `xml:"name,attr"`
	InputFile  string        `xml:"inputfile,attr"`
	Invalid    string        `xml:"invalid,attr"`
	Expression xmlExpression `xml:"expression"`
	Outputs    []xmlOutput   `xml:"output"`
}

type xmlExpression struct {
	Invalid string `xml:"invalid,attr"`
	Text    string `xml:",chardata"`
}

type xmlOutput struct {
	Type string `xml:"type,attr"`
	Text string `xml:",chardata"`
}

func parseXMLSuite(data []byte) (*Suite, error) {
	var raw xmlSuite
	if err := xml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse XML suite: %w", err)
	}

	suite := &Suite{Name: raw.Name}
	for _, g := range raw.Groups {
		group := Group{Name: g.Name}
		for _, t := range g.Tests {
			c := Case{
				Name:       t.Name,
				InputFile:  t.InputFile,
				Expression: strings.TrimSpace(t.Expression.Text),
				Invalid:    t.Invalid != "" || t.Expression.Invalid != "",
			}
			for _, o := range t.Outputs {
				c.Outputs = append(c.Outputs, Output{Type: o.Type, Value: o.Text})
			}
			group.Tests = append(group.Tests, c)
		}
		suite.Groups = append(suite.Groups, group)
	}
	return suite, nil
}

func parseJSONSuite(data []byte) (*Suite, error) {
	var suite Suite
	if err := json.Unmarshal(data, &suite); err != nil {
		return nil, fmt.Errorf("failed to parse JSON suite: %w", err)
	}
	return &suite, nil
}
