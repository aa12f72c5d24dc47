package cli

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"

	"github.com/fhir4ds/fhirsql/pkg/translator"
)

func newREPLCommand() *cobra.Command {
	var resource string

	cmd := &cobra.Command{
		Use:   "repl",
		Short: "Interactive FHIRPath shell",
		Long: `Start an interactive shell that translates and executes FHIRPath
expressions against the configured database.

Dot-commands:
  .sql <expression>   show the generated SQL without executing
  .resource <Type>    switch the target resource type
  .help               show help
  .quit               exit`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runREPL(cmd, resource)
		},
	}

	cmd.Flags().StringVarP(&resource, "resource", "r", "Patient", "initial FHIR resource type")
	return cmd
}

func runREPL(cmd *cobra.Command, resource string) error {
	e, err := newEngine()
	if err != nil {
		return err
	}
	defer func() { _ = e.Close() }()

	historyFile := filepath.Join(filepath.Dir(cfg.StatePath), "repl_history")
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "fhirpath> ",
		HistoryFile:     historyFile,
		InterruptPrompt: "^C",
		EOFPrompt:       ".quit",
	})
	if err != nil {
		return fmt.Errorf("failed to initialize REPL: %w", err)
	}
	defer func() { _ = rl.Close() }()

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "fhirsql %s (%s, resource: %s)\n", Version, e.DialectName(), resource)
	fmt.Fprintln(out, "Type .help for commands, .quit to exit")
	fmt.Fprintln(out)

	for {
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			continue
		}
		if errors.Is(err, io.EOF) {
			return nil
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, ".") {
			quit, newResource := handleDotCommand(cmd, e.Translate, line, resource)
			if quit {
				return nil
			}
			resource = newResource
			continue
		}

		res, err := e.Run(cmd.Context(), line, resource)
		if err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "Error: %v\n", err)
			continue
		}
		if err := renderResult(out, res, cfg.Output); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "Error: %v\n", err)
		}
		fmt.Fprintln(out)
	}
}

func handleDotCommand(cmd *cobra.Command, translate func(string, string) (*translator.Result, error), line, resource string) (quit bool, newResource string) {
	out := cmd.OutOrStdout()
	fields := strings.Fields(line)

	switch fields[0] {
	case ".quit", ".exit":
		return true, resource
	case ".help":
		fmt.Fprintln(out, ".sql <expression>   show the generated SQL without executing")
		fmt.Fprintln(out, ".resource <Type>    switch the target resource type")
		fmt.Fprintln(out, ".quit               exit")
	case ".resource":
		if len(fields) != 2 {
			fmt.Fprintln(cmd.ErrOrStderr(), "usage: .resource <Type>")
			return false, resource
		}
		fmt.Fprintf(out, "resource type set to %s\n", fields[1])
		return false, fields[1]
	case ".sql":
		expr := strings.TrimSpace(strings.TrimPrefix(line, ".sql"))
		if expr == "" {
			fmt.Fprintln(cmd.ErrOrStderr(), "usage: .sql <expression>")
			return false, resource
		}
		res, err := translate(expr, resource)
		if err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "Error: %v\n", err)
			return false, resource
		}
		fmt.Fprintln(out, res.SQL)
	default:
		fmt.Fprintf(cmd.ErrOrStderr(), "unknown command %s (try .help)\n", fields[0])
	}
	return false, resource
}
