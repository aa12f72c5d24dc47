package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func newLoadCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "load <file.ndjson>",
		Short: "Bulk-load FHIR resources from an NDJSON file",
		Long: `Load newline-delimited JSON resources into the resource table, one
resource per line. The table is created if it does not exist.`,
		Example: `  fhirsql load bundle.ndjson`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("failed to open %s: %w", args[0], err)
			}
			defer func() { _ = f.Close() }()

			e, err := newEngine()
			if err != nil {
				return err
			}
			defer func() { _ = e.Close() }()

			n, err := e.LoadResources(cmd.Context(), f)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Loaded %d resources into %s\n", n, e.ResourceTable())
			return nil
		},
	}
	return cmd
}
