package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/keyvi-go/pipeline"
	"github.com/keyvi-go/pipeline/internal/manifest"
)

var runManifestPath string

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Execute a manifest with no-op node behavior",
	RunE: func(cmd *cobra.Command, args []string) error {
		content, err := os.ReadFile(runManifestPath)
		if err != nil {
			return fmt.Errorf("reading manifest: %w", err)
		}

		m, err := manifest.Parse(string(content))
		if err != nil {
			return err
		}

		nm, nodes, err := manifest.Build(m, func(name string) pipeline.Hooks {
			return pipeline.Hooks{
				Go: func(n *pipeline.Node) (bool, error) { return true, nil },
			}
		})
		if err != nil {
			return err
		}

		ctx := context.Background()
		provider, shutdown, err := buildProvider(ctx, cfg)
		if err != nil {
			return err
		}
		defer shutdown(ctx)

		err = pipeline.Execute(ctx, nm, pipeline.ExecuteOptions{
			MemoryBudget: cfg.Pipeline.MemoryBudgetBytes,
			Provider:     provider,
		})
		if err != nil {
			return fmt.Errorf("executing: %w", err)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "executed %d nodes successfully\n", len(nodes))
		return nil
	},
}

func init() {
	runCmd.Flags().StringVarP(&runManifestPath, "manifest", "m", "", "path to a pipeline manifest JSON file")
	_ = runCmd.MarkFlagRequired("manifest")
	rootCmd.AddCommand(runCmd)
}
