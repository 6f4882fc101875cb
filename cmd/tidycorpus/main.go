// Package main provides the CLI entry point for the Tidycorpus runtime.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/tidycorpus/runtime/internal/api"
	"github.com/tidycorpus/runtime/internal/chain"
	"github.com/tidycorpus/runtime/internal/config"
	"github.com/tidycorpus/runtime/internal/datasets"
	"github.com/tidycorpus/runtime/internal/errhandling"
	"github.com/tidycorpus/runtime/internal/logger"
	"github.com/tidycorpus/runtime/internal/registry"
	"github.com/tidycorpus/runtime/pkg/corpus"
)

// Exit codes
const (
	ExitSuccess         = 0
	ExitValidationError = 1
	ExitParseError      = 2
	ExitRuntimeError    = 3
)

var (
	// Global flags
	verbose bool
	quiet   bool

	// Build information (set via ldflags during build)
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(ExitRuntimeError)
	}
}

var rootCmd = &cobra.Command{
	Use:   "tidycorpus",
	Short: "Tidycorpus - Parallel-corpus sample filtering runtime",
	Long: `Tidycorpus samples parallel corpora and runs filter chains over the
samples, caching every intermediate result by chain prefix.

Examples:
  # Validate a configuration file
  tidycorpus validate config.json

  # Serve the HTTP API
  tidycorpus serve config.yaml

  # Run a filter chain against a dataset and print the records
  tidycorpus sample config.json my-corpus chain.json`,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		// Configure logger level based on flags
		if verbose {
			logger.SetLevel(slog.LevelDebug)
		} else if quiet {
			logger.SetLevel(slog.LevelError)
		}
	},
}

var validateCmd = &cobra.Command{
	Use:   "validate <config-file>",
	Short: "Validate a runtime configuration file",
	Long: `Validate a runtime configuration file against the schema.

Supports both JSON and YAML formats. The format is auto-detected
based on file extension (.json, .yaml, .yml) or content.

Exit codes:
  0 - Configuration is valid
  1 - Validation errors (schema violations)
  2 - Parse errors (invalid JSON/YAML syntax)

Examples:
  tidycorpus validate config.json
  tidycorpus validate --verbose config.yaml`,
	Args: cobra.ExactArgs(1),
	Run:  runValidate,
}

var serveCmd = &cobra.Command{
	Use:   "serve [config-file]",
	Short: "Serve the sample-filtering HTTP API",
	Long: `Serve the HTTP API: dataset discovery, filter listing, and chain
execution. Without a config file, built-in defaults are used.

Exit codes:
  0 - Clean shutdown
  1 - Validation errors
  2 - Parse errors
  3 - Runtime errors

Examples:
  tidycorpus serve config.yaml
  tidycorpus serve --verbose config.json`,
	Args: cobra.MaximumNArgs(1),
	Run:  runServe,
}

var sampleCmd = &cobra.Command{
	Use:   "sample <config-file> <dataset> [chain-file]",
	Short: "Run a filter chain against a dataset",
	Long: `Run a filter chain against a dataset's sample and print the
resulting records as JSON lines. Without a chain file, the unfiltered
sample is printed.

The chain file is a JSON array of filter steps, each naming a registered
filter with its parameters and, for monolingual filters, a language.

Exit codes:
  0 - Chain executed successfully
  1 - Validation errors (config or chain)
  2 - Parse errors
  3 - Runtime errors

Examples:
  tidycorpus sample config.json my-corpus
  tidycorpus sample config.json my-corpus chain.json`,
	Args: cobra.RangeArgs(2, 3),
	Run:  runSample,
}

var filtersCmd = &cobra.Command{
	Use:   "filters [config-file]",
	Short: "List the registered filters",
	Long: `Print every registered filter as JSON: the builtin table plus any
definitions loaded from the configured definitions directory.

Examples:
  tidycorpus filters
  tidycorpus filters config.json`,
	Args: cobra.MaximumNArgs(1),
	Run:  runFilters,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  "Print version, commit hash, and build date information.",
	Run:   runVersion,
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "Suppress non-error output")

	// Add commands
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(sampleCmd)
	rootCmd.AddCommand(filtersCmd)
	rootCmd.AddCommand(versionCmd)
}

func runValidate(_ *cobra.Command, args []string) {
	configPath := args[0]

	if !quiet {
		fmt.Printf("Validating configuration: %s\n", configPath)
	}

	result := config.ParseConfig(configPath)

	if len(result.ParseErrors) > 0 {
		printParseErrors(result.ParseErrors)
		os.Exit(ExitParseError)
	}

	if len(result.ValidationErrors) > 0 {
		printValidationErrors(result.ValidationErrors)
		os.Exit(ExitValidationError)
	}

	if !quiet {
		fmt.Printf("✓ Configuration is valid (format: %s)\n", result.Format)

		if verbose {
			fmt.Printf("  Data root: %s\n", result.Config.DataRoot)
			fmt.Printf("  Cache dir: %s\n", result.Config.CacheDir)
			fmt.Printf("  Sample size: %d\n", result.Config.SampleSize)
		}
	}

	os.Exit(ExitSuccess)
}

// loadRuntime loads the configuration (defaults when path is empty) and
// builds the filter registry and dataset store. Exits with the parse or
// validation code on bad input.
func loadRuntime(configPath string) (*config.Config, *registry.Registry, *datasets.Store) {
	cfg := config.Default()
	if configPath != "" {
		result := config.ParseConfig(configPath)
		if len(result.ParseErrors) > 0 {
			printParseErrors(result.ParseErrors)
			os.Exit(ExitParseError)
		}
		if len(result.ValidationErrors) > 0 {
			printValidationErrors(result.ValidationErrors)
			os.Exit(ExitValidationError)
		}
		cfg = result.Config
	}

	reg, err := registry.Load(cfg.FiltersDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "✗ Failed to load filter registry: %v\n", err)
		os.Exit(ExitValidationError)
	}

	return cfg, reg, datasets.NewStore(cfg.DataRoot)
}

func runServe(_ *cobra.Command, args []string) {
	configPath := ""
	if len(args) == 1 {
		configPath = args[0]
	}
	cfg, reg, store := loadRuntime(configPath)

	executor := chain.NewExecutor(cfg, reg, store)
	server := api.NewServer(cfg.ListenAddress, executor, store, reg)

	if !quiet {
		fmt.Printf("Serving on %s (data root: %s)\n", cfg.ListenAddress, cfg.DataRoot)
	}

	if err := server.Start(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "✗ Server failed: %v\n", err)
		os.Exit(ExitRuntimeError)
	}

	os.Exit(ExitSuccess)
}

func runSample(_ *cobra.Command, args []string) {
	configPath := args[0]
	datasetName := args[1]

	var steps []corpus.FilterStep
	if len(args) == 3 {
		content, err := os.ReadFile(args[2])
		if err != nil {
			fmt.Fprintf(os.Stderr, "✗ Failed to read chain file: %v\n", err)
			os.Exit(ExitParseError)
		}
		if err := json.Unmarshal(content, &steps); err != nil {
			fmt.Fprintf(os.Stderr, "✗ Failed to parse chain file: %v\n", err)
			os.Exit(ExitParseError)
		}
	}

	cfg, reg, store := loadRuntime(configPath)
	executor := chain.NewExecutor(cfg, reg, store)

	records, err := executor.Execute(context.Background(), datasetName, steps)
	if err != nil {
		fmt.Fprintf(os.Stderr, "✗ Chain execution failed: %v\n", err)
		if errhandling.IsValidation(err) || errhandling.IsMissingResource(err) {
			os.Exit(ExitValidationError)
		}
		os.Exit(ExitRuntimeError)
	}

	encoder := json.NewEncoder(os.Stdout)
	for _, record := range records {
		if err := encoder.Encode(record); err != nil {
			fmt.Fprintf(os.Stderr, "✗ Failed to write record: %v\n", err)
			os.Exit(ExitRuntimeError)
		}
	}

	if !quiet {
		fmt.Fprintf(os.Stderr, "✓ %d records\n", len(records))
	}

	os.Exit(ExitSuccess)
}

func runFilters(_ *cobra.Command, args []string) {
	configPath := ""
	if len(args) == 1 {
		configPath = args[0]
	}
	_, reg, _ := loadRuntime(configPath)

	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(reg.List()); err != nil {
		fmt.Fprintf(os.Stderr, "✗ Failed to write filter listing: %v\n", err)
		os.Exit(ExitRuntimeError)
	}

	os.Exit(ExitSuccess)
}

func runVersion(_ *cobra.Command, _ []string) {
	fmt.Printf("Version: %s\n", version)
	fmt.Printf("Commit: %s\n", commit)
	fmt.Printf("Build Date: %s\n", buildDate)
}

func printParseErrors(errors []config.ParseError) {
	fmt.Fprintln(os.Stderr, "✗ Parse errors:")
	for _, err := range errors {
		var location string
		if err.Path != "" {
			location = err.Path
			if err.Line > 0 {
				location += fmt.Sprintf(":%d", err.Line)
				if err.Column > 0 {
					location += fmt.Sprintf(":%d", err.Column)
				}
			}
		}

		if location != "" {
			fmt.Fprintf(os.Stderr, "  %s: %s\n", location, err.Message)
		} else {
			fmt.Fprintf(os.Stderr, "  %s\n", err.Message)
		}

		if verbose && err.Type != "" {
			fmt.Fprintf(os.Stderr, "    Type: %s\n", err.Type)
		}
	}
}

func printValidationErrors(errors []config.ValidationError) {
	fmt.Fprintln(os.Stderr, "✗ Validation errors:")
	for _, err := range errors {
		path := err.Path
		if path == "" {
			path = "/"
		}

		if verbose {
			fmt.Fprintf(os.Stderr, "  %s:\n", path)
			fmt.Fprintf(os.Stderr, "    Message: %s\n", err.Message)
			if err.Type != "" {
				fmt.Fprintf(os.Stderr, "    Type: %s\n", err.Type)
			}
		} else {
			shortMsg := err.Message
			if len(shortMsg) > 80 {
				shortMsg = shortMsg[:77] + "..."
			}
			fmt.Fprintf(os.Stderr, "  %s: %s\n", path, shortMsg)
		}
	}

	if !quiet {
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Hint: Use --verbose for detailed error information")
	}
}
