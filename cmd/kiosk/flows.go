package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/aretw0/kiosk/internal/presentation/graph"
	"github.com/aretw0/kiosk/internal/presentation/tui"
	"github.com/aretw0/kiosk/pkg/flow"
)

var flowsCmd = &cobra.Command{
	Use:   "flows",
	Short: "Print the transition table",
	Long:  `Prints every screen with its legal triggers. Output is rendered for the terminal when stdout is a TTY.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		raw, _ := cmd.Flags().GetBool("raw")
		md := graph.Markdown(flow.Kiosk())

		width, tty := terminalWidth(cmd)
		if raw || !tty {
			fmt.Fprint(cmd.OutOrStdout(), md)
			return nil
		}

		render, err := tui.NewRenderer(width)
		if err != nil {
			return err
		}
		out, err := render(md)
		if err != nil {
			return err
		}
		fmt.Fprint(cmd.OutOrStdout(), out)
		return nil
	},
}

// terminalWidth reports whether the command writes to a terminal, and its width.
func terminalWidth(cmd *cobra.Command) (int, bool) {
	f, ok := cmd.OutOrStdout().(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		return 0, false
	}
	w, _, err := term.GetSize(int(f.Fd()))
	if err != nil || w <= 0 {
		w = 100
	}
	return w, true
}

func init() {
	rootCmd.AddCommand(flowsCmd)
	flowsCmd.Flags().Bool("raw", false, "Print Markdown even on a terminal")
}
