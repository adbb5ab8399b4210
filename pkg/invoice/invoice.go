// Package invoice holds the invoice model and the arithmetic that derives its totals.
package invoice

import (
	"time"
)

// LineItem is one billable row of an invoice.
//
// Total is stored rather than computed so the wire shape matches the
// persistence service. It is refreshed by SetItemQuantity and SetItemRate
// only; any other writer owns keeping it equal to Quantity*Rate.
type LineItem struct {
	Name     string  `json:"name"`
	Quantity float64 `json:"quantity" validate:"finite"`
	Rate     float64 `json:"rate" validate:"finite"`
	Total    float64 `json:"total" validate:"finite"`
}

// NewLineItem returns the row appended by AddItem.
func NewLineItem() LineItem {
	return LineItem{Name: "", Quantity: 1, Rate: 0, Total: 0}
}

// Invoice is a client invoice. ID, InvoiceNumber and CreatedAt are assigned
// by the persistence service and are empty on drafts.
type Invoice struct {
	ID            string     `json:"_id,omitempty"`
	ClientName    string     `json:"client_name" validate:"required"`
	Items         []LineItem `json:"items" validate:"required,min=1,dive"`
	TaxPercentage float64    `json:"tax_percentage" validate:"finite"`
	Discount      float64    `json:"discount" validate:"finite"`
	Subtotal      float64    `json:"subtotal" validate:"finite"`
	TaxAmount     float64    `json:"tax_amount" validate:"finite"`
	FinalTotal    float64    `json:"final_total" validate:"finite"`
	InvoiceNumber string     `json:"invoice_number,omitempty"`
	CreatedAt     *time.Time `json:"created_at,omitempty"`
}

// Totals are the derived invoice-level figures.
type Totals struct {
	Subtotal   float64 `json:"subtotal"`
	TaxAmount  float64 `json:"tax_amount"`
	FinalTotal float64 `json:"final_total"`
}

// NewDraft returns an unsaved invoice with a single empty row and zero
// discount and tax.
func NewDraft() Invoice {
	inv := Invoice{
		Items: []LineItem{NewLineItem()},
	}
	inv.Recalculate()
	return inv
}

// DeriveTotals computes subtotal, tax and final total.
//
// A discount larger than the subtotal yields a negative taxable base and
// therefore negative tax and total; no clamping is applied.
func DeriveTotals(items []LineItem, discount, taxPercentage float64) Totals {
	var subtotal float64
	for _, item := range items {
		subtotal += item.Total
	}

	base := subtotal - discount
	tax := base * (taxPercentage / 100)

	return Totals{
		Subtotal:   subtotal,
		TaxAmount:  tax,
		FinalTotal: base + tax,
	}
}

// Totals returns the derived figures currently stored on the invoice.
func (inv *Invoice) Totals() Totals {
	return Totals{
		Subtotal:   inv.Subtotal,
		TaxAmount:  inv.TaxAmount,
		FinalTotal: inv.FinalTotal,
	}
}

// Recalculate replaces all three derived fields from the current items,
// discount and tax percentage.
func (inv *Invoice) Recalculate() {
	t := DeriveTotals(inv.Items, inv.Discount, inv.TaxPercentage)
	inv.Subtotal, inv.TaxAmount, inv.FinalTotal = t.Subtotal, t.TaxAmount, t.FinalTotal
}

// IsSaved reports whether the persistence service has assigned an id.
func (inv *Invoice) IsSaved() bool {
	return inv.ID != ""
}

// CreatedUnix returns the creation time in milliseconds, or 0 when unset.
func (inv *Invoice) CreatedUnix() int64 {
	if inv.CreatedAt == nil {
		return 0
	}
	return inv.CreatedAt.UnixMilli()
}

// Clone returns a deep copy.
func (inv Invoice) Clone() Invoice {
	out := inv
	if inv.Items != nil {
		out.Items = make([]LineItem, len(inv.Items))
		copy(out.Items, inv.Items)
	}
	if inv.CreatedAt != nil {
		t := *inv.CreatedAt
		out.CreatedAt = &t
	}
	return out
}
