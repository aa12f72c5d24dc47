package cli

import (
	"github.com/spf13/cobra"
)

func newRunCommand() *cobra.Command {
	var resource string

	cmd := &cobra.Command{
		Use:   "run <expression>",
		Short: "Execute a FHIRPath expression against the configured database",
		Long: `Translate a FHIRPath expression and execute it over the resource table.
The result has one row per resource for singleton expressions and one row
per element for collection expressions.`,
		Example: `  fhirsql run "Patient.name.family" --resource Patient
  fhirsql run "Patient.birthDate < @1980-01-01" -o json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := newEngine()
			if err != nil {
				return err
			}
			defer func() { _ = e.Close() }()

			res, err := e.Run(cmd.Context(), args[0], resource)
			if err != nil {
				return err
			}
			return renderResult(cmd.OutOrStdout(), res, cfg.Output)
		},
	}

	cmd.Flags().StringVarP(&resource, "resource", "r", "Patient", "FHIR resource type the expression targets")
	return cmd
}
