// Package history derives the invoice history listing: a free-text filter
// followed by a sort on client name or creation time.
package history

import (
	"fmt"
	"slices"
	"strings"

	"github.com/marshallshelly/pebble-invoice/pkg/invoice"
)

// SortField selects the column the history is ordered by.
type SortField string

const (
	// SortByClientName orders case-insensitively by client name.
	SortByClientName SortField = "client_name"
	// SortByCreatedAt orders by creation timestamp; a missing timestamp counts as 0.
	SortByCreatedAt SortField = "created_at"
)

// SortDirection is asc or desc.
type SortDirection string

const (
	Asc  SortDirection = "asc"
	Desc SortDirection = "desc"
)

// Query is the complete input of DeriveView besides the invoices.
type Query struct {
	Search    string
	Field     SortField
	Direction SortDirection
}

// DefaultQuery lists newest first with no filter.
func DefaultQuery() Query {
	return Query{Field: SortByCreatedAt, Direction: Desc}
}

// ParseSortField validates a user-supplied field name.
func ParseSortField(s string) (SortField, error) {
	switch f := SortField(strings.ToLower(strings.TrimSpace(s))); f {
	case SortByClientName, SortByCreatedAt:
		return f, nil
	case "client", "name":
		return SortByClientName, nil
	case "date", "created":
		return SortByCreatedAt, nil
	}
	return "", fmt.Errorf("unknown sort field %q (want client_name or created_at)", s)
}

// ParseSortDirection validates a user-supplied direction.
func ParseSortDirection(s string) (SortDirection, error) {
	switch d := SortDirection(strings.ToLower(strings.TrimSpace(s))); d {
	case Asc, Desc:
		return d, nil
	}
	return "", fmt.Errorf("unknown sort direction %q (want asc or desc)", s)
}

// Toggle applies a column selection: the active column flips direction, any
// other column becomes active in descending order.
func (q Query) Toggle(field SortField) Query {
	if field == q.Field {
		q.Direction = q.Direction.Flip()
		return q
	}
	q.Field = field
	q.Direction = Desc
	return q
}

// WithSearch returns q with a new search term.
func (q Query) WithSearch(search string) Query {
	q.Search = search
	return q
}

// Flip returns the opposite direction.
func (d SortDirection) Flip() SortDirection {
	if d == Asc {
		return Desc
	}
	return Asc
}

// Arrow is the indicator shown next to the active column.
func (d SortDirection) Arrow() string {
	if d == Asc {
		return "▲"
	}
	return "▼"
}

// DeriveView filters and sorts invoices into a new slice. The input slice and
// its elements are never modified.
func DeriveView(invoices []invoice.Invoice, q Query) []invoice.Invoice {
	view := Filter(invoices, q.Search)
	Sort(view, q.Field, q.Direction)
	return view
}

// Filter returns copies of the invoices whose client name or invoice number
// contains search, ignoring case. An empty search keeps everything.
func Filter(invoices []invoice.Invoice, search string) []invoice.Invoice {
	out := make([]invoice.Invoice, 0, len(invoices))
	needle := strings.ToLower(search)
	for _, inv := range invoices {
		if needle == "" || matches(inv, needle) {
			out = append(out, inv.Clone())
		}
	}
	return out
}

func matches(inv invoice.Invoice, needle string) bool {
	if strings.Contains(strings.ToLower(inv.ClientName), needle) {
		return true
	}
	return inv.InvoiceNumber != "" && strings.Contains(strings.ToLower(inv.InvoiceNumber), needle)
}

// Sort orders invoices in place. Equal keys keep their input order.
func Sort(invoices []invoice.Invoice, field SortField, dir SortDirection) {
	cmp := compareCreatedAt
	if field == SortByClientName {
		cmp = compareClientName
	}

	slices.SortStableFunc(invoices, func(a, b invoice.Invoice) int {
		if dir == Asc {
			return cmp(a, b)
		}
		return cmp(b, a)
	})
}

func compareClientName(a, b invoice.Invoice) int {
	return strings.Compare(strings.ToLower(a.ClientName), strings.ToLower(b.ClientName))
}

func compareCreatedAt(a, b invoice.Invoice) int {
	ta, tb := a.CreatedUnix(), b.CreatedUnix()
	switch {
	case ta < tb:
		return -1
	case ta > tb:
		return 1
	}
	return 0
}
