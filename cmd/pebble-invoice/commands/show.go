package commands

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/marshallshelly/pebble-invoice/cmd/pebble-invoice/output"
	"github.com/marshallshelly/pebble-invoice/cmd/pebble-invoice/tui"
	"github.com/marshallshelly/pebble-invoice/pkg/client"
)

var showInteractive bool

// showCmd shows a saved invoice
var showCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show a saved invoice",
	Long: `Show a saved invoice by its id.

Examples:
  pebble-invoice show 3f0c...                # Print the invoice
  pebble-invoice show 3f0c... --json         # Output in JSON format
  pebble-invoice show 3f0c... -i             # Open it in the TUI`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runShow(args[0])
	},
}

func init() {
	rootCmd.AddCommand(showCmd)

	showCmd.Flags().BoolVarP(&showInteractive, "interactive", "i", false, "Run in interactive mode with TUI")
}

func runShow(id string) error {
	if showInteractive {
		return runUI(tui.Location{Route: tui.RouteInvoice, ID: id})
	}

	log, err := newLogger()
	if err != nil {
		return err
	}

	inv, err := newClient(log).Get(context.Background(), id)
	if err != nil {
		log.WithError(err).WithField("id", id).Debug("fetch invoice failed")
		output.Error("%s", client.GetFailed)
		output.Muted("Run 'pebble-invoice history' to browse saved invoices.")
		return err
	}
	return printInvoice(*inv)
}
