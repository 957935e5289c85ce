package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/keyvi-go/pipeline/internal/jsonschema"
	"github.com/keyvi-go/pipeline/internal/manifest"
)

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Print the JSON Schema a manifest file must conform to",
	RunE: func(cmd *cobra.Command, args []string) error {
		s := jsonschema.GenerateJSONSchema[manifest.Manifest]()
		out, err := s.JsonString(true)
		if err != nil {
			return fmt.Errorf("generating schema: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), out)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(schemaCmd)
}
