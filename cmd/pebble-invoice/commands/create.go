package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/marshallshelly/pebble-invoice/cmd/pebble-invoice/output"
	"github.com/marshallshelly/pebble-invoice/cmd/pebble-invoice/tui"
	"github.com/marshallshelly/pebble-invoice/pkg/client"
	"github.com/marshallshelly/pebble-invoice/pkg/invoice"
	"github.com/marshallshelly/pebble-invoice/pkg/render"
)

var (
	// Create flags
	clientName    string
	itemSpecs     []string
	discount      float64
	taxPercentage float64
	previewOnly   bool
)

// createCmd creates an invoice
var createCmd = &cobra.Command{
	Use:   "create",
	Short: "Create an invoice",
	Long: `Create an invoice and save it to the invoice service.

Without --client or --item the interactive form is opened instead.

Examples:
  pebble-invoice create --client "Acme" --item "Design:10:50" --tax 8
  pebble-invoice create --client "Acme" --item "Hosting:1:20" --preview
  pebble-invoice create                      # Open the form`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runCreate()
	},
}

func init() {
	rootCmd.AddCommand(createCmd)

	createCmd.Flags().StringVar(&clientName, "client", "", "Client name")
	createCmd.Flags().StringArrayVar(&itemSpecs, "item", nil, "Line item as NAME:QTY:RATE (repeatable)")
	createCmd.Flags().Float64Var(&discount, "discount", 0, "Flat discount subtracted before tax")
	createCmd.Flags().Float64Var(&taxPercentage, "tax", 0, "Tax percentage applied after the discount")
	createCmd.Flags().BoolVar(&previewOnly, "preview", false, "Store as the session draft and print it instead of saving")
}

func runCreate() error {
	if clientName == "" && len(itemSpecs) == 0 {
		return runUI(tui.Location{Route: tui.RouteCreate})
	}

	inv, err := buildDraft(clientName, itemSpecs, discount, taxPercentage)
	if err != nil {
		return err
	}

	if previewOnly {
		slot, err := newSlot()
		if err != nil {
			return err
		}
		if err := slot.Put(inv); err != nil {
			return fmt.Errorf("failed to store draft: %w", err)
		}
		if err := printInvoice(inv); err != nil {
			return err
		}
		output.Muted("Draft kept in session %q. Run 'pebble-invoice preview --save' to submit it.", session)
		return nil
	}

	log, err := newLogger()
	if err != nil {
		return err
	}
	return submit(context.Background(), newClient(log), inv)
}

// submit saves a draft and shows the stored invoice.
func submit(ctx context.Context, c *client.Client, inv invoice.Invoice) error {
	res, err := c.Create(ctx, inv)
	if err != nil {
		output.Error("%s", client.Message(err))
		return err
	}
	output.Success("%s: %s for %s, total %s", res.Message, res.Invoice.InvoiceNumber, res.Invoice.ClientName, render.Money(res.Invoice.FinalTotal))

	saved, err := c.Get(ctx, res.InvoiceID)
	if err != nil {
		// the create envelope already carries the stored invoice
		return printInvoice(res.Invoice)
	}
	return printInvoice(*saved)
}
