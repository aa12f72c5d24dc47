package cli

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func newDescribeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "describe",
		Short: "Show the resource table's schema and row count",
		Long: `Connect to the configured database and describe the resource table:
its columns as reported by the database catalog and the number of loaded
resources. The table is created if it does not exist.`,
		Example: `  fhirsql describe`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := newEngine()
			if err != nil {
				return err
			}
			defer func() { _ = e.Close() }()

			meta, err := e.Describe(cmd.Context())
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			name := meta.Name
			if meta.Schema != "" {
				name = meta.Schema + "." + name
			}
			fmt.Fprintf(w, "Table %s (%s)\n", name, e.DialectName())

			t := table.NewWriter()
			t.SetOutputMirror(w)
			t.SetStyle(table.StyleLight)
			t.AppendHeader(table.Row{"column", "type", "nullable"})
			for _, col := range meta.Columns {
				t.AppendRow(table.Row{col.Name, col.Type, col.Nullable})
			}
			t.Render()
			fmt.Fprintf(w, "%d resources\n", meta.RowCount)
			return nil
		},
	}
}
