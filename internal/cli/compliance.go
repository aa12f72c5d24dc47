package cli

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/fhir4ds/fhirsql/internal/compliance"
	"github.com/fhir4ds/fhirsql/internal/state"
)

func newComplianceCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "compliance",
		Short: "Run and inspect FHIRPath compliance suites",
	}
	cmd.AddCommand(newComplianceRunCommand())
	cmd.AddCommand(newComplianceHistoryCommand())
	return cmd
}

func newComplianceRunCommand() *cobra.Command {
	var inputDir string
	var concurrency int
	var noStore bool

	cmd := &cobra.Command{
		Use:   "run <suite.(xml|json)>",
		Short: "Execute a compliance suite against the configured database",
		Long: `Execute every case of an official FHIRPath test suite: translate the
expression, run it over the loaded input resources, and compare ordered
outputs. Results are recorded in the state database unless --no-store.`,
		Example: `  fhirsql compliance run testdata/suites/tests.xml
  fhirsql compliance run r4.json --input-dir testdata/suites/input`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := newEngine()
			if err != nil {
				return err
			}
			defer func() { _ = e.Close() }()

			var store *state.Store
			if !noStore {
				store = state.NewStore()
				if err := store.Open(cfg.StatePath); err != nil {
					return err
				}
				defer func() { _ = store.Close() }()
				if err := store.Migrate(); err != nil {
					return err
				}
			}

			dir := inputDir
			if dir == "" {
				dir = filepath.Join(filepath.Dir(args[0]), "input")
			}

			runner := &compliance.Runner{
				Engine:      e,
				Store:       store,
				InputDir:    dir,
				Concurrency: concurrency,
				Logger:      logger,
			}
			report, err := runner.Run(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			renderComplianceReport(cmd, report)
			if report.Failed > 0 || report.Errored > 0 {
				return fmt.Errorf("%d of %d cases did not pass", report.Failed+report.Errored, report.Total)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&inputDir, "input-dir", "", "directory with JSON input resources (default: <suite dir>/input)")
	cmd.Flags().IntVar(&concurrency, "concurrency", 4, "parallel group execution limit")
	cmd.Flags().BoolVar(&noStore, "no-store", false, "do not record the run in the state database")
	return cmd
}

func renderComplianceReport(cmd *cobra.Command, report *compliance.Report) {
	w := cmd.OutOrStdout()

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Suite", "Dialect", "Total", "Passed", "Failed", "Errored", "Duration"})
	t.AppendRow(table.Row{
		report.Suite, report.Dialect, report.Total,
		report.Passed, report.Failed, report.Errored,
		report.Duration.Round(time.Millisecond),
	})
	t.Render()

	if report.Failed == 0 && report.Errored == 0 {
		return
	}

	ft := table.NewWriter()
	ft.SetOutputMirror(w)
	ft.SetStyle(table.StyleLight)
	ft.AppendHeader(table.Row{"Group", "Case", "Status", "Detail"})
	for _, r := range report.Results {
		if r.Status == state.StatusPass {
			continue
		}
		ft.AppendRow(table.Row{r.Group, r.Name, r.Status, r.Detail})
	}
	ft.Render()
}

func newComplianceHistoryCommand() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded compliance runs",
		RunE: func(cmd *cobra.Command, _ []string) error {
			store := state.NewStore()
			if err := store.Open(cfg.StatePath); err != nil {
				return err
			}
			defer func() { _ = store.Close() }()
			if err := store.Migrate(); err != nil {
				return err
			}

			runs, err := store.ListRuns(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if len(runs) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No compliance runs recorded")
				return nil
			}

			t := table.NewWriter()
			t.SetOutputMirror(cmd.OutOrStdout())
			t.SetStyle(table.StyleLight)
			t.AppendHeader(table.Row{"Run", "Suite", "Dialect", "Started", "Total", "Passed", "Failed", "Errored"})
			for _, run := range runs {
				t.AppendRow(table.Row{
					run.ID[:8], run.Suite, run.Dialect,
					run.StartedAt.Format(time.RFC3339),
					run.Total, run.Passed, run.Failed, run.Errored,
				})
			}
			t.Render()
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "maximum number of runs to list")
	return cmd
}
