package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fhir4ds/fhirsql/pkg/adapter"
	"github.com/fhir4ds/fhirsql/pkg/dialect"
)

func newDialectsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "dialects",
		Short: "List registered SQL dialects and database adapters",
		RunE: func(cmd *cobra.Command, _ []string) error {
			w := cmd.OutOrStdout()
			fmt.Fprintln(w, "Dialects:")
			for _, name := range dialect.Names() {
				fmt.Fprintf(w, "  %s\n", name)
			}
			fmt.Fprintln(w, "Adapters:")
			for _, name := range adapter.ListAdapters() {
				fmt.Fprintf(w, "  %s\n", name)
			}
			return nil
		},
	}
}
