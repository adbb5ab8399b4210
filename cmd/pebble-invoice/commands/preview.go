package commands

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/marshallshelly/pebble-invoice/cmd/pebble-invoice/output"
	"github.com/marshallshelly/pebble-invoice/cmd/pebble-invoice/tui"
	"github.com/marshallshelly/pebble-invoice/pkg/draft"
	"github.com/marshallshelly/pebble-invoice/pkg/render"
)

var (
	// Preview flags
	previewPDF         string
	previewSave        bool
	previewInteractive bool
)

// previewCmd shows the session draft
var previewCmd = &cobra.Command{
	Use:   "preview",
	Short: "Preview the current draft",
	Long: `Show the draft stored by 'create --preview' without saving it.

When there is no draft the create form is opened instead.

Examples:
  pebble-invoice preview                     # Print the draft
  pebble-invoice preview --pdf draft.pdf     # Export it as PDF
  pebble-invoice preview --save              # Submit it to the service
  pebble-invoice preview -i                  # Open it in the TUI`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runPreview()
	},
}

func init() {
	rootCmd.AddCommand(previewCmd)

	previewCmd.Flags().StringVar(&previewPDF, "pdf", "", "Write the draft as a PDF to this file")
	previewCmd.Flags().BoolVar(&previewSave, "save", false, "Submit the draft and clear it")
	previewCmd.Flags().BoolVarP(&previewInteractive, "interactive", "i", false, "Run in interactive mode with TUI")
}

func runPreview() error {
	slot, err := newSlot()
	if err != nil {
		return err
	}

	inv, err := slot.Take()
	if errors.Is(err, draft.ErrNoDraft) {
		return runUI(tui.Location{Route: tui.RouteCreate})
	}
	if err != nil {
		return err
	}

	switch {
	case previewInteractive:
		return runUI(tui.Location{Route: tui.RoutePreview})

	case previewSave:
		log, err := newLogger()
		if err != nil {
			return err
		}
		if err := submit(context.Background(), newClient(log), inv); err != nil {
			return err
		}
		return slot.Clear()

	case previewPDF != "":
		err := writeFile(previewPDF, func(w io.Writer) error {
			return render.PDF(w, inv, render.DefaultOptions())
		})
		if err != nil {
			return fmt.Errorf("failed to export draft: %w", err)
		}
		output.Success("Exported %s", previewPDF)
		return nil
	}

	return printInvoice(inv)
}
