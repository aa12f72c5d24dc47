package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fhir4ds/fhirsql/internal/engine"
	"github.com/fhir4ds/fhirsql/pkg/core"
)

func newTranslateCommand() *cobra.Command {
	var resource, dialectName string

	cmd := &cobra.Command{
		Use:   "translate <expression>",
		Short: "Translate a FHIRPath expression to SQL",
		Long: `Translate a FHIRPath expression to SQL for the configured database
dialect without connecting to a database.`,
		Example: `  fhirsql translate "Patient.name.given" --resource Patient
  fhirsql translate "Observation.value.ofType(Quantity).unit" -r Observation -d postgres`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dbType := cfg.Database.Type
			if dialectName != "" {
				dbType = dialectName
			}

			e := engine.New(engine.Config{
				AdapterConfig: core.AdapterConfig{
					Type:          dbType,
					ResourceTable: cfg.Database.Table,
				},
				Logger: logger,
			})
			res, err := e.Translate(args[0], resource)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), res.SQL)
			return nil
		},
	}

	cmd.Flags().StringVarP(&resource, "resource", "r", "Patient", "FHIR resource type the expression targets")
	cmd.Flags().StringVarP(&dialectName, "dialect", "d", "", "SQL dialect (overrides the configured database type)")
	return cmd
}
