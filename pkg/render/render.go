// Package render lays an invoice out for printing, either as fixed-width
// text or as a PDF document.
package render

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/marshallshelly/pebble-invoice/pkg/invoice"
)

// Options holds the letterhead printed above every invoice.
type Options struct {
	CompanyName  string
	CompanyLines []string
	FooterLines  []string
}

// DefaultOptions returns the stock letterhead.
func DefaultOptions() Options {
	return Options{
		CompanyName: "Your Company Name",
		CompanyLines: []string{
			"123 Business Street",
			"City, State ZIP",
			"Phone: (555) 555-5555",
		},
		FooterLines: []string{
			"Thank you for your business!",
			"Payment is due within 30 days from the date of this invoice.",
		},
	}
}

// FileName is the export name for inv.
func FileName(inv invoice.Invoice) string {
	if inv.InvoiceNumber == "" {
		return "Invoice-draft.pdf"
	}
	return "Invoice-" + inv.InvoiceNumber + ".pdf"
}

// Money formats an amount with two decimals and a dollar sign.
func Money(v float64) string {
	return fmt.Sprintf("$%.2f", v)
}

// Quantity formats a quantity with no trailing zeros.
func Quantity(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// Date formats the creation date, or returns "" for an unsaved invoice.
func Date(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Local().Format("Jan 2, 2006")
}

type summaryRow struct {
	label  string
	amount string
	total  bool
}

// summary lists the totals block. Discount and tax rows appear only when
// they are positive.
func summary(inv invoice.Invoice) []summaryRow {
	rows := []summaryRow{{label: "Subtotal:", amount: Money(inv.Subtotal)}}
	if inv.Discount > 0 {
		rows = append(rows, summaryRow{label: "Discount:", amount: "-" + Money(inv.Discount)})
	}
	if inv.TaxPercentage > 0 {
		rows = append(rows, summaryRow{
			label:  fmt.Sprintf("Tax (%s%%):", Quantity(inv.TaxPercentage)),
			amount: Money(inv.TaxAmount),
		})
	}
	return append(rows, summaryRow{label: "Total:", amount: Money(inv.FinalTotal), total: true})
}

const textWidth = 64

// Text renders inv as a fixed-width page suitable for a terminal or printer.
func Text(inv invoice.Invoice, opts Options) string {
	var b strings.Builder
	rule := strings.Repeat("=", textWidth)
	thin := strings.Repeat("-", textWidth)

	b.WriteString(rule + "\n")
	fmt.Fprintf(&b, "%-32s%32s\n", "INVOICE", "Invoice Number: "+orDash(inv.InvoiceNumber))
	fmt.Fprintf(&b, "%-32s%32s\n", opts.CompanyName, "Date: "+orDash(Date(inv.CreatedAt)))
	for _, line := range opts.CompanyLines {
		b.WriteString(line + "\n")
	}
	b.WriteString(rule + "\n\n")

	b.WriteString("Bill To:\n")
	b.WriteString("  " + inv.ClientName + "\n\n")

	fmt.Fprintf(&b, "%-28s %8s %12s %13s\n", "Item", "Quantity", "Rate", "Amount")
	b.WriteString(thin + "\n")
	for _, item := range inv.Items {
		fmt.Fprintf(&b, "%-28s %8s %12s %13s\n",
			truncate(item.Name, 28), Quantity(item.Quantity), Money(item.Rate), Money(item.Total))
	}
	b.WriteString(thin + "\n")

	for _, row := range summary(inv) {
		fmt.Fprintf(&b, "%50s %13s\n", row.label, row.amount)
	}
	b.WriteString("\n")

	for _, line := range opts.FooterLines {
		b.WriteString(line + "\n")
	}
	return b.String()
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
