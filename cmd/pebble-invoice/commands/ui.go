package commands

import (
	"github.com/spf13/cobra"

	"github.com/marshallshelly/pebble-invoice/cmd/pebble-invoice/tui"
)

// uiCmd opens the interactive application
var uiCmd = &cobra.Command{
	Use:   "ui [route]",
	Short: "Open the interactive invoice UI",
	Long: `Open the interactive invoice UI at a route.

Routes:
  /create          - New invoice form (default)
  /preview         - Preview of the session draft
  /invoice/<id>    - A saved invoice
  /history         - Invoice history

Examples:
  pebble-invoice ui
  pebble-invoice ui /history
  pebble-invoice ui /invoice/3f0c...`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		route := "/"
		if len(args) == 1 {
			route = args[0]
		}
		return runUI(tui.ParseLocation(route))
	},
}

func init() {
	rootCmd.AddCommand(uiCmd)
}
