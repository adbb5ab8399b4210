package render

import (
	"fmt"
	"io"

	"github.com/jung-kurt/gofpdf"

	"github.com/marshallshelly/pebble-invoice/pkg/invoice"
)

// column widths of the items table, in mm
var itemColumns = []float64{90, 25, 32, 33}

// PDF writes inv to w as a single A4 document.
func PDF(w io.Writer, inv invoice.Invoice, opts Options) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	title := "Invoice"
	if inv.InvoiceNumber != "" {
		title += " " + inv.InvoiceNumber
	}
	pdf.SetTitle(title, true)
	pdf.SetAuthor(opts.CompanyName, true)
	if inv.CreatedAt != nil {
		pdf.SetCreationDate(*inv.CreatedAt)
	}
	pdf.AddPage()

	// letterhead
	pdf.SetFont("Arial", "B", 22)
	pdf.CellFormat(110, 10, "INVOICE", "", 0, "L", false, 0, "")
	pdf.SetFont("Arial", "", 10)
	pdf.CellFormat(0, 10, tr("Invoice Number: "+inv.InvoiceNumber), "", 1, "R", false, 0, "")
	pdf.SetFont("Arial", "B", 11)
	pdf.CellFormat(110, 6, tr(opts.CompanyName), "", 0, "L", false, 0, "")
	pdf.SetFont("Arial", "", 10)
	pdf.CellFormat(0, 6, tr("Date: "+Date(inv.CreatedAt)), "", 1, "R", false, 0, "")
	for _, line := range opts.CompanyLines {
		pdf.CellFormat(0, 5, tr(line), "", 1, "L", false, 0, "")
	}
	pdf.Ln(8)

	pdf.SetFont("Arial", "B", 12)
	pdf.CellFormat(0, 7, "Bill To:", "", 1, "L", false, 0, "")
	pdf.SetFont("Arial", "", 11)
	pdf.CellFormat(0, 6, tr(inv.ClientName), "", 1, "L", false, 0, "")
	pdf.Ln(6)

	// items
	pdf.SetFont("Arial", "B", 10)
	pdf.SetFillColor(240, 240, 240)
	for i, h := range []string{"Item", "Quantity", "Rate", "Amount"} {
		align := "R"
		if i == 0 {
			align = "L"
		}
		pdf.CellFormat(itemColumns[i], 8, h, "B", 0, align, true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Arial", "", 10)
	for _, item := range inv.Items {
		pdf.CellFormat(itemColumns[0], 7, tr(item.Name), "B", 0, "L", false, 0, "")
		pdf.CellFormat(itemColumns[1], 7, Quantity(item.Quantity), "B", 0, "R", false, 0, "")
		pdf.CellFormat(itemColumns[2], 7, Money(item.Rate), "B", 0, "R", false, 0, "")
		pdf.CellFormat(itemColumns[3], 7, Money(item.Total), "B", 1, "R", false, 0, "")
	}
	pdf.Ln(4)

	// totals
	labelX := itemColumns[0] + itemColumns[1]
	for _, row := range summary(inv) {
		style := ""
		if row.total {
			style = "B"
		}
		pdf.SetFont("Arial", style, 10)
		pdf.CellFormat(labelX, 7, "", "", 0, "", false, 0, "")
		pdf.CellFormat(itemColumns[2], 7, row.label, "", 0, "R", false, 0, "")
		pdf.CellFormat(itemColumns[3], 7, row.amount, "", 1, "R", false, 0, "")
	}
	pdf.Ln(10)

	pdf.SetFont("Arial", "I", 9)
	for _, line := range opts.FooterLines {
		pdf.CellFormat(0, 5, tr(line), "", 1, "C", false, 0, "")
	}

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("failed to render pdf: %w", err)
	}
	return nil
}
