package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/keyvi-go/pipeline"
	"github.com/keyvi-go/pipeline/internal/manifest"
	"github.com/keyvi-go/pipeline/internal/utils"
)

var (
	describeManifestPath string
	describeJSON         bool
)

// phaseSummary is the JSON-friendly shape printed by describe --json.
type phaseSummary struct {
	Index     int     `json:"index"`
	NodeIDs   []int64 `json:"node_ids"`
	Initiator int64   `json:"initiator"`
}

var describeCmd = &cobra.Command{
	Use:   "describe",
	Short: "Print the planned phase structure of a manifest",
	RunE: func(cmd *cobra.Command, args []string) error {
		content, err := os.ReadFile(describeManifestPath)
		if err != nil {
			return fmt.Errorf("reading manifest: %w", err)
		}

		m, err := manifest.Parse(string(content))
		if err != nil {
			return err
		}

		nm, _, err := manifest.Build(m, nil)
		if err != nil {
			return err
		}

		phases, err := pipeline.Plan(nm)
		if err != nil {
			return fmt.Errorf("planning: %w", err)
		}

		if describeJSON {
			summaries := make([]phaseSummary, len(phases))
			for i, phase := range phases {
				summaries[i] = phaseSummary{
					Index:     phase.Index,
					NodeIDs:   phase.NodeIDs(),
					Initiator: phase.Initiator(),
				}
			}
			fmt.Fprintln(cmd.OutOrStdout(), utils.JSONToString(summaries, true))
			return nil
		}

		for _, phase := range phases {
			fmt.Fprintf(cmd.OutOrStdout(), "phase %d: nodes=%v initiator=%d\n",
				phase.Index, phase.NodeIDs(), phase.Initiator())
		}
		return nil
	},
}

func init() {
	describeCmd.Flags().StringVarP(&describeManifestPath, "manifest", "m", "", "path to a pipeline manifest JSON file")
	describeCmd.Flags().BoolVar(&describeJSON, "json", false, "print phase structure as JSON")
	_ = describeCmd.MarkFlagRequired("manifest")
	rootCmd.AddCommand(describeCmd)
}
