package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/marshallshelly/pebble-invoice/cmd/pebble-invoice/output"
	"github.com/marshallshelly/pebble-invoice/cmd/pebble-invoice/tui"
	"github.com/marshallshelly/pebble-invoice/pkg/invoice"
	"github.com/marshallshelly/pebble-invoice/pkg/render"
)

// printInvoice writes inv as JSON with --json and as the print layout
// otherwise.
func printInvoice(inv invoice.Invoice) error {
	if jsonOutput {
		enc := json.NewEncoder(output.Writer())
		enc.SetIndent("", "  ")
		return enc.Encode(inv)
	}
	output.Plain(render.Text(inv, render.DefaultOptions()))
	return nil
}

// parseItem reads a NAME:QTY:RATE line item. The name may itself contain
// colons; quantity and rate are the last two fields.
func parseItem(spec string) (invoice.LineItem, error) {
	rateAt := strings.LastIndex(spec, ":")
	if rateAt < 0 {
		return invoice.LineItem{}, fmt.Errorf("invalid item %q: want NAME:QTY:RATE", spec)
	}
	qtyAt := strings.LastIndex(spec[:rateAt], ":")
	if qtyAt < 0 {
		return invoice.LineItem{}, fmt.Errorf("invalid item %q: want NAME:QTY:RATE", spec)
	}

	qty, err := strconv.ParseFloat(strings.TrimSpace(spec[qtyAt+1:rateAt]), 64)
	if err != nil {
		return invoice.LineItem{}, fmt.Errorf("invalid quantity in item %q", spec)
	}
	rate, err := strconv.ParseFloat(strings.TrimSpace(spec[rateAt+1:]), 64)
	if err != nil {
		return invoice.LineItem{}, fmt.Errorf("invalid rate in item %q", spec)
	}

	return invoice.LineItem{
		Name:     strings.TrimSpace(spec[:qtyAt]),
		Quantity: qty,
		Rate:     rate,
		Total:    qty * rate,
	}, nil
}

// buildDraft assembles a draft through the same edit operations the form
// uses, so totals are derived identically.
func buildDraft(clientName string, specs []string, discount, taxPercentage float64) (invoice.Invoice, error) {
	inv := invoice.NewDraft()
	inv.SetClientName(clientName)

	for i, spec := range specs {
		item, err := parseItem(spec)
		if err != nil {
			return invoice.Invoice{}, err
		}
		if i > 0 {
			inv.AddItem()
		}
		_ = inv.SetItemName(i, item.Name)
		_ = inv.SetItemQuantity(i, item.Quantity)
		_ = inv.SetItemRate(i, item.Rate)
	}

	inv.SetDiscount(discount)
	inv.SetTaxPercentage(taxPercentage)
	return inv, nil
}

func writeFile(path string, write func(w io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := write(f); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// runUI starts the TUI at loc. Logging is silenced unless --verbose, since
// log lines would tear the alternate screen.
func runUI(loc tui.Location) error {
	log, err := newLogger()
	if err != nil {
		return err
	}
	if !verbose {
		log.SetOutput(io.Discard)
	}

	slot, err := newSlot()
	if err != nil {
		return err
	}

	deps := tui.Deps{
		Store:     newClient(log),
		Slot:      slot,
		Render:    render.DefaultOptions(),
		OutputDir: ".",
	}
	return tui.RunUI(deps, loc)
}
