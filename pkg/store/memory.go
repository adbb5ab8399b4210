package store

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/marshallshelly/pebble-invoice/pkg/history"
	"github.com/marshallshelly/pebble-invoice/pkg/invoice"
)

// MemoryRepository keeps invoices in process memory. It backs `serve` when no
// database is configured and the HTTP tests.
type MemoryRepository struct {
	mu       sync.RWMutex
	invoices []invoice.Invoice
	lastSeq  int
	now      func() time.Time
}

// MemoryOption configures a MemoryRepository.
type MemoryOption func(*MemoryRepository)

// WithClock replaces time.Now for creation timestamps.
func WithClock(now func() time.Time) MemoryOption {
	return func(r *MemoryRepository) {
		r.now = now
	}
}

// WithSeed preloads invoices. Numbering continues after the highest seeded
// invoice number.
func WithSeed(invoices ...invoice.Invoice) MemoryOption {
	return func(r *MemoryRepository) {
		for _, inv := range invoices {
			r.invoices = append(r.invoices, inv.Clone())
			if seq, ok := Sequence(inv.InvoiceNumber); ok && seq > r.lastSeq {
				r.lastSeq = seq
			}
		}
	}
}

// NewMemoryRepository returns an empty repository.
func NewMemoryRepository(opts ...MemoryOption) *MemoryRepository {
	r := &MemoryRepository{now: time.Now}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *MemoryRepository) Create(ctx context.Context, inv invoice.Invoice) (invoice.Invoice, error) {
	if err := ctx.Err(); err != nil {
		return invoice.Invoice{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.lastSeq++
	created := r.now().UTC()

	stored := inv.Clone()
	stored.ID = uuid.NewString()
	stored.InvoiceNumber = FormatNumber(r.lastSeq)
	stored.CreatedAt = &created

	r.invoices = append(r.invoices, stored)
	return stored.Clone(), nil
}

func (r *MemoryRepository) List(ctx context.Context) ([]invoice.Invoice, error) {
	return r.find(ctx, func(invoice.Invoice) bool { return true })
}

func (r *MemoryRepository) ListByClient(ctx context.Context, clientName string) ([]invoice.Invoice, error) {
	needle := strings.ToLower(clientName)
	return r.find(ctx, func(inv invoice.Invoice) bool {
		return strings.Contains(strings.ToLower(inv.ClientName), needle)
	})
}

func (r *MemoryRepository) Get(ctx context.Context, id string) (invoice.Invoice, error) {
	if err := ctx.Err(); err != nil {
		return invoice.Invoice{}, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, inv := range r.invoices {
		if inv.ID == id {
			return inv.Clone(), nil
		}
	}
	return invoice.Invoice{}, ErrNotFound
}

// find returns matching invoices newest first; equal timestamps keep the
// most recently inserted first.
func (r *MemoryRepository) find(ctx context.Context, keep func(invoice.Invoice) bool) ([]invoice.Invoice, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	out := make([]invoice.Invoice, 0, len(r.invoices))
	for _, inv := range slices.Backward(r.invoices) {
		if keep(inv) {
			out = append(out, inv.Clone())
		}
	}
	r.mu.RUnlock()

	history.Sort(out, history.SortByCreatedAt, history.Desc)
	return out, nil
}
