// Package cli implements the ecoscore command line tool, which runs the
// emissions pipeline locally without the HTTP server.
package cli

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/ecoscore/backend/config"
	"github.com/ecoscore/backend/internal/bootstrap"
)

var (
	flagConfig  string
	flagCatalog string
	flagJSON    bool
	flagVerbose bool
)

var rootCmd = &cobra.Command{
	Use:   "ecoscore",
	Short: "Estimate the carbon footprint of grocery receipts",
	Long: "CLI tool that matches receipt line items against a reference catalog of\n" +
		"emission factors and reports kg CO2e per item and per receipt.\n\n" +
		"Output is JSON automatically when stdout is not a terminal.",
	Example: `  ecoscore analyze --file items.json
  ecoscore analyze --file - < items.json --json
  ecoscore match "ORG BANANAS" "2% MILK"
  ecoscore scan receipt.jpg --config config.yaml`,
}

func init() {
	rootCmd.SilenceErrors = true
	rootCmd.SilenceUsage = true

	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&flagConfig, "config", "c", "", "Path to config file (default: search ./config.yaml)")
	pf.StringVar(&flagCatalog, "catalog", "", "Path to a JSON or CSV catalog (overrides config)")
	pf.BoolVar(&flagJSON, "json", false, "Output as JSON")
	pf.BoolVarP(&flagVerbose, "verbose", "v", false, "Write pipeline logs to stderr")

	rootCmd.AddCommand(analyzeCmd, matchCmd, scanCmd)
}

// Execute runs the root command.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := runCLI(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func runCLI(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	resetCLIState()

	if shouldAutoJSON(args, isTTY(stdout)) {
		args = withJSONFlag(args)
	}

	prevOutput := log.Writer()
	if hasVerboseFlag(args) {
		log.SetOutput(stderr)
	} else {
		log.SetOutput(io.Discard)
	}
	defer log.SetOutput(prevOutput)

	setCommandIO(rootCmd, stdout, stderr)
	rootCmd.SetArgs(args)

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		cliErr := classifyCLIError(err)
		if hasJSONPreference(args) {
			if jerr := printCLIErrorJSON(stderr, cliErr); jerr != nil {
				fmt.Fprintln(stderr, formatCLIErrorText(classifyCLIError(jerr)))
				return ExitInternal
			}
		} else {
			fmt.Fprintln(stderr, formatCLIErrorText(cliErr))
		}
		return cliErr.ExitCode
	}
	return ExitSuccess
}

func setCommandIO(cmd *cobra.Command, stdout, stderr io.Writer) {
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	for _, child := range cmd.Commands() {
		setCommandIO(child, stdout, stderr)
	}
}

func resetCLIState() {
	flagConfig = ""
	flagCatalog = ""
	flagJSON = false
	flagVerbose = false
	flagFile = ""
	resetHelpFlags(rootCmd)
}

// resetHelpFlags clears --help left set by a previous in-process run
func resetHelpFlags(cmd *cobra.Command) {
	if f := cmd.Flags().Lookup("help"); f != nil {
		_ = f.Value.Set("false")
		f.Changed = false
	}
	for _, child := range cmd.Commands() {
		resetHelpFlags(child)
	}
}

// loadPipeline reads configuration, applies flag overrides and builds the
// emissions pipeline
func loadPipeline() (*config.Config, *bootstrap.Pipeline, error) {
	cfg, err := config.LoadFile(flagConfig)
	if err != nil {
		return nil, nil, invalidArgsError(err.Error(), "ecoscore --config config.yaml analyze --file items.json")
	}
	if flagCatalog != "" {
		cfg.Catalog.Path = flagCatalog
	}

	pipeline, err := bootstrap.Build(cfg)
	if err != nil {
		return nil, nil, err
	}
	return cfg, pipeline, nil
}

func isTTY(w io.Writer) bool {
	file, ok := w.(*os.File)
	if !ok {
		return false
	}
	return term.IsTerminal(int(file.Fd()))
}

// hasJSONPreference reports whether JSON output was requested explicitly
func hasJSONPreference(args []string) bool {
	for _, arg := range args {
		if arg == "--" {
			return false
		}
		if arg == "--json" || arg == "--json=true" {
			return true
		}
	}
	return false
}

func hasJSONFlag(args []string) bool {
	for _, arg := range args {
		if arg == "--" {
			return false
		}
		if arg == "--json" || strings.HasPrefix(arg, "--json=") {
			return true
		}
	}
	return false
}

func hasVerboseFlag(args []string) bool {
	for _, arg := range args {
		if arg == "--" {
			return false
		}
		if arg == "--verbose" || arg == "-v" || arg == "--verbose=true" {
			return true
		}
	}
	return false
}

// withJSONFlag adds --json ahead of any "--" terminator
func withJSONFlag(args []string) []string {
	out := make([]string, 0, len(args)+1)
	for i, arg := range args {
		if arg == "--" {
			out = append(out, "--json")
			return append(out, args[i:]...)
		}
		out = append(out, arg)
	}
	return append(out, "--json")
}

func shouldAutoJSON(args []string, stdoutIsTTY bool) bool {
	if stdoutIsTTY || len(args) == 0 || hasJSONFlag(args) {
		return false
	}
	for _, arg := range args {
		switch arg {
		case "--":
			return true
		case "help", "completion", "--help", "-h":
			return false
		}
	}
	return true
}
