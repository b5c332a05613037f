package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aretw0/kiosk/internal/presentation/graph"
	"github.com/aretw0/kiosk/pkg/flow"
)

// graphCmd represents the graph command
var graphCmd = &cobra.Command{
	Use:   "graph",
	Short: "Export the screen graph",
	Long:  `Outputs the kiosk screen graph as a Mermaid diagram (graph TD) or as YAML.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		format, _ := cmd.Flags().GetString("format")
		table := flow.Kiosk()

		switch format {
		case "mermaid":
			fmt.Fprint(cmd.OutOrStdout(), graph.GenerateMermaid(table, nil))
		case "yaml":
			data, err := graph.YAML(table)
			if err != nil {
				return err
			}
			cmd.OutOrStdout().Write(data)
		default:
			return fmt.Errorf("unknown format %q (want mermaid or yaml)", format)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(graphCmd)
	graphCmd.Flags().StringP("format", "f", "mermaid", "Output format: mermaid or yaml")
}
