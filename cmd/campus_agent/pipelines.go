package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jonathan/campus-agents/internal/agents"
	"github.com/jonathan/campus-agents/internal/pipeline"
	"github.com/jonathan/campus-agents/internal/store"
)

var pipelinesJSON bool

var pipelinesCmd = &cobra.Command{
	Use:   "pipelines",
	Short: "List the registered pipelines and their stages",
	Args:  cobra.NoArgs,
	RunE:  runPipelines,
}

func init() {
	pipelinesCmd.Flags().BoolVar(&pipelinesJSON, "json", false, "Print descriptions as JSON")
	rootCmd.AddCommand(pipelinesCmd)
}

func runPipelines(cmd *cobra.Command, _ []string) error {
	// Describing a pipeline never touches its collaborators.
	reg, err := agents.NewRegistry(agents.Deps{Campus: store.NewCampus(store.Offline{})})
	if err != nil {
		return err
	}

	descriptions := make([]pipeline.Description, 0, len(reg.Names()))
	for _, name := range reg.Names() {
		runner, err := reg.Get(name)
		if err != nil {
			return err
		}
		descriptions = append(descriptions, runner.Describe())
	}

	if pipelinesJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(descriptions)
	}
	writeDescriptions(cmd.OutOrStdout(), descriptions)
	return nil
}

//nolint:errcheck // writing to a terminal
func writeDescriptions(w io.Writer, descriptions []pipeline.Description) {
	for i, d := range descriptions {
		if i > 0 {
			fmt.Fprintln(w)
		}
		fmt.Fprintf(w, "%s (entry: %s)\n", d.Name, d.Entry)
		for _, s := range d.Stages {
			next := strings.Join(s.Next, " | ")
			if next == "" {
				next = "end"
			}
			marker := "->"
			if s.Conditional {
				marker = "?>"
			}
			fmt.Fprintf(w, "  %-28s %s %s\n", s.Name, marker, next)
		}
	}
}
