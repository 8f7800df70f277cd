package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jonathan/campus-agents/internal/agents"
	"github.com/jonathan/campus-agents/internal/config"
	"github.com/jonathan/campus-agents/internal/logging"
	"github.com/jonathan/campus-agents/internal/observability"
	"github.com/jonathan/campus-agents/internal/pipeline"
)

var runCmd = &cobra.Command{
	Use:   "run <pipeline>",
	Short: "Run one pipeline locally and print its final state",
	Long: `Run a pipeline in-process with the same registry the server uses.

The input is a JSON object given with --data, read from the file named by
--input, or read from stdin with --input -. Without DATABASE_URL the store is
in-memory; --seed loads it from a JSON file shaped as
{"collection": {"id": {...fields}}}.`,
	Args: cobra.ExactArgs(1),
	RunE: runPipelineCmd,
}

var (
	runInput   string
	runData    string
	runSeed    string
	runVerbose bool
	runSummary bool
)

func init() {
	runCmd.Flags().StringVarP(&runInput, "input", "i", "", "Path to a JSON input file, or - for stdin")
	runCmd.Flags().StringVarP(&runData, "data", "d", "", "Inline JSON input (mutually exclusive with --input)")
	runCmd.Flags().StringVar(&runSeed, "seed", "", "JSON file loaded into the in-memory store")
	runCmd.Flags().BoolVarP(&runVerbose, "verbose", "v", false, "Print the stage trace and debug logs to stderr")
	runCmd.Flags().BoolVar(&runSummary, "summary", false, "Print a readable summary instead of JSON")
	runCmd.MarkFlagsMutuallyExclusive("input", "data")
	rootCmd.AddCommand(runCmd)
}

func runPipelineCmd(cmd *cobra.Command, args []string) error {
	name := args[0]

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logging.Init(logging.Level(cfg.Debug || runVerbose), cfg.LogFormat, cmd.ErrOrStderr())

	input, err := readInput(runInput, runData, cmd.InOrStdin())
	if err != nil {
		return err
	}

	opts := agents.Options{}
	if runSeed != "" {
		f, err := os.Open(runSeed)
		if err != nil {
			return fmt.Errorf("failed to open seed file: %w", err)
		}
		defer f.Close()
		opts.Seed = f
	}

	ctx := cmd.Context()
	a, err := agents.Open(ctx, cfg, opts)
	if err != nil {
		return fmt.Errorf("failed to initialise pipelines: %w", err)
	}
	defer a.Close()

	trace := &pipeline.Trace{}
	out, err := a.Registry.Run(ctx, name, input, trace)
	if runVerbose {
		observability.NewPrinter(cmd.ErrOrStderr()).PrintTrace(name, trace.Events())
	}
	if err != nil {
		return err
	}

	if runSummary {
		observability.NewPrinter(cmd.OutOrStdout()).PrintResult(name, out)
		return nil
	}
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

// readInput decodes the run input. With neither source set the input is an
// empty object.
func readInput(path, data string, stdin io.Reader) (map[string]any, error) {
	var r io.Reader
	switch {
	case data != "":
		r = strings.NewReader(data)
	case path == "-":
		r = stdin
	case path != "":
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open input file: %w", err)
		}
		defer f.Close()
		r = f
	default:
		return map[string]any{}, nil
	}

	var input map[string]any
	if err := json.NewDecoder(r).Decode(&input); err != nil {
		return nil, fmt.Errorf("input must be a JSON object: %w", err)
	}
	if input == nil {
		input = map[string]any{}
	}
	return input, nil
}
