// Package store persists invoices for the HTTP service: a Postgres
// repository with embedded schema migrations and an in-memory repository for
// running without a database.
package store

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/marshallshelly/pebble-invoice/pkg/invoice"
)

//go:generate mockgen -destination=mocks/repository.go -package=mocks . Repository

// Repository stores invoices. Create assigns the id, invoice number and
// creation time; the totals are stored as given.
type Repository interface {
	Create(ctx context.Context, inv invoice.Invoice) (invoice.Invoice, error)
	// List returns every invoice, newest first.
	List(ctx context.Context) ([]invoice.Invoice, error)
	// ListByClient returns invoices whose client name contains clientName,
	// ignoring case, newest first.
	ListByClient(ctx context.Context, clientName string) ([]invoice.Invoice, error)
	// Get returns ErrNotFound for unknown or malformed ids.
	Get(ctx context.Context, id string) (invoice.Invoice, error)
}

const numberPrefix = "INV-"

// FormatNumber renders the invoice number for sequence seq.
func FormatNumber(seq int) string {
	return fmt.Sprintf("%s%03d", numberPrefix, seq)
}

// Sequence extracts the sequence from an invoice number. ok is false for
// numbers not issued by FormatNumber.
func Sequence(number string) (seq int, ok bool) {
	rest, found := strings.CutPrefix(number, numberPrefix)
	if !found {
		return 0, false
	}
	n, err := strconv.Atoi(rest)
	if err != nil || n < 1 {
		return 0, false
	}
	return n, true
}
