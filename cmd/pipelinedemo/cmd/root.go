package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/keyvi-go/pipeline/internal/config"
)

var (
	configPath string
	verbose    bool
	cfg        *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "pipelinedemo",
	Short: "Plan and run pipeline manifests",
	Long: `pipelinedemo loads a declarative pipeline manifest (a JSON document
of nodes and relations) and either prints its planned phase structure or
executes it with no-op node behavior, to exercise the pipelining
framework end to end.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load(configPath)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		cfg = loaded
		return nil
	},
}

// Execute runs the root command, exiting the process with status 1 on
// error.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to a pipeline config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")
}
