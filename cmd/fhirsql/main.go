// Command fhirsql compiles FHIRPath expressions to SQL and executes them
// against DuckDB or PostgreSQL at population scale.
package main

import "github.com/fhir4ds/fhirsql/internal/cli"

func main() {
	cli.Execute()
}
