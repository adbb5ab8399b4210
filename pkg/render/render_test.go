package render

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marshallshelly/pebble-invoice/pkg/invoice"
)

func savedInvoice() invoice.Invoice {
	created := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
	inv := invoice.Invoice{
		ID:            "abc",
		ClientName:    "Acme Café",
		InvoiceNumber: "INV-012",
		CreatedAt:     &created,
		Discount:      2,
		TaxPercentage: 10,
		Items: []invoice.LineItem{
			{Name: "Design", Quantity: 2, Rate: 10, Total: 20},
			{Name: "Hosting", Quantity: 1, Rate: 5, Total: 5},
		},
	}
	inv.Recalculate()
	return inv
}

func TestFileName(t *testing.T) {
	assert.Equal(t, "Invoice-INV-012.pdf", FileName(savedInvoice()))
	assert.Equal(t, "Invoice-draft.pdf", FileName(invoice.NewDraft()))
}

func TestFormatting(t *testing.T) {
	assert.Equal(t, "$25.00", Money(25))
	assert.Equal(t, "$2.30", Money(2.3))
	assert.Equal(t, "$-5.00", Money(-5))
	assert.Equal(t, "1.5", Quantity(1.5))
	assert.Equal(t, "3", Quantity(3))
	assert.Empty(t, Date(nil))
}

func TestSummaryRows(t *testing.T) {
	rows := summary(savedInvoice())
	require.Len(t, rows, 4)
	assert.Equal(t, "Subtotal:", rows[0].label)
	assert.Equal(t, "-$2.00", rows[1].amount)
	assert.Equal(t, "Tax (10%):", rows[2].label)
	assert.Equal(t, "$2.30", rows[2].amount)
	assert.Equal(t, "$25.30", rows[3].amount)
	assert.True(t, rows[3].total)

	plain := invoice.NewDraft()
	rows = summary(plain)
	require.Len(t, rows, 2, "zero discount and tax are omitted")
}

func TestText(t *testing.T) {
	out := Text(savedInvoice(), DefaultOptions())

	for _, want := range []string{
		"INVOICE",
		"Invoice Number: INV-012",
		"Bill To:",
		"Acme Café",
		"Design",
		"$20.00",
		"Tax (10%):",
		"$25.30",
		"Thank you for your business!",
	} {
		assert.Contains(t, out, want)
	}

	draft := Text(invoice.NewDraft(), DefaultOptions())
	assert.Contains(t, draft, "Invoice Number: -")
}

func TestTextTruncatesLongNames(t *testing.T) {
	inv := savedInvoice()
	inv.Items[0].Name = strings.Repeat("x", 40)
	out := Text(inv, Options{})
	assert.NotContains(t, out, strings.Repeat("x", 40))
	assert.Contains(t, out, strings.Repeat("x", 27)+"…")
}

func TestPDF(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, PDF(&buf, savedInvoice(), DefaultOptions()))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")))
	assert.Greater(t, buf.Len(), 500)

	buf.Reset()
	require.NoError(t, PDF(&buf, invoice.NewDraft(), Options{}))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")))
}
