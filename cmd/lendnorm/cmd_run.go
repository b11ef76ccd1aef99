package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

var (
	runProjects []string
	runPretty   bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run one pass and print the normalized pools as JSON",
	Long: `Runs every registered adaptor once (or only those named with --project) and
writes the normalized pools to stdout as a JSON array. Markets that fail are
logged and left out; the command only fails on configuration or connection errors.

Example:
  lendnorm run --project hyperlend --pretty`,
	Args: cobra.NoArgs,
	RunE: runPass,
}

func init() {
	runCmd.Flags().StringSliceVarP(&runProjects, "project", "p", nil, "only run the named project (repeatable)")
	runCmd.Flags().BoolVar(&runPretty, "pretty", false, "indent the JSON output")
}

func runPass(cmd *cobra.Command, args []string) error {
	rt, err := setup(cmd.Context())
	if err != nil {
		return err
	}
	defer rt.close()

	for _, project := range runProjects {
		if !rt.aggregator.HasProject(project) {
			return fmt.Errorf("unknown project %q (registered: %v)", project, rt.aggregator.Projects())
		}
	}

	pools := rt.aggregator.RunPass(cmd.Context(), runProjects...)

	encoder := json.NewEncoder(cmd.OutOrStdout())
	if runPretty {
		encoder.SetIndent("", "  ")
	}
	return encoder.Encode(pools)
}
