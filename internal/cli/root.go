// Package cli provides the fhirsql command-line interface.
package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/fhir4ds/fhirsql/internal/config"
	"github.com/fhir4ds/fhirsql/internal/engine"

	// Register database adapters.
	_ "github.com/fhir4ds/fhirsql/pkg/adapters/duckdb"
	_ "github.com/fhir4ds/fhirsql/pkg/adapters/postgres"
)

// Version information (set at build time).
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
)

var (
	cfgFile string
	cfg     *config.Config
	logger  *slog.Logger
)

// NewRootCmd creates and returns the root command.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "fhirsql",
		Short: "fhirsql - FHIRPath to SQL compiler",
		Long: `fhirsql compiles FHIRPath expressions to SQL and executes them at
population scale: one query over the whole resource table instead of a
per-resource interpreter loop.

Supported databases: DuckDB and PostgreSQL.`,
		Version: Version,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Name() == "help" || cmd.Name() == "completion" || cmd.Name() == "__complete" {
				return nil
			}

			var err error
			cfg, err = config.Load(cfgFile, cmd.Root().PersistentFlags())
			if err != nil {
				return err
			}

			logger = newLogger(cfg)
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.SetVersionTemplate(`{{.Name}} {{.Version}}
`)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./fhirsql.yaml)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Verbose output")
	rootCmd.PersistentFlags().StringP("output", "o", "", "Output format (table|json|csv)")

	rootCmd.AddCommand(newTranslateCommand())
	rootCmd.AddCommand(newRunCommand())
	rootCmd.AddCommand(newREPLCommand())
	rootCmd.AddCommand(newComplianceCommand())
	rootCmd.AddCommand(newLoadCommand())
	rootCmd.AddCommand(newDescribeCommand())
	rootCmd.AddCommand(newServeCommand())
	rootCmd.AddCommand(newDialectsCommand())
	rootCmd.AddCommand(newVersionCommand())

	return rootCmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newLogger(cfg *config.Config) *slog.Logger {
	level := slog.LevelInfo
	if cfg.Verbose {
		level = slog.LevelDebug
	} else {
		switch cfg.LogLevel {
		case "debug":
			level = slog.LevelDebug
		case "warn":
			level = slog.LevelWarn
		case "error":
			level = slog.LevelError
		}
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// newEngine builds an engine from the loaded configuration.
func newEngine() (*engine.Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return engine.New(engine.Config{
		AdapterConfig: cfg.AdapterConfig(),
		Logger:        logger,
	}), nil
}
