package history

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marshallshelly/pebble-invoice/pkg/invoice"
)

func at(ms int64) *time.Time {
	t := time.UnixMilli(ms)
	return &t
}

func clients(invs []invoice.Invoice) []string {
	names := make([]string, len(invs))
	for i, inv := range invs {
		names[i] = inv.ClientName
	}
	return names
}

func sample() []invoice.Invoice {
	return []invoice.Invoice{
		{ClientName: "Acme", InvoiceNumber: "INV-001", CreatedAt: at(100)},
		{ClientName: "Zeta", InvoiceNumber: "INV-002", CreatedAt: at(200)},
		{ClientName: "beta corp", InvoiceNumber: "INV-003", CreatedAt: at(300)},
		{ClientName: "Undated"},
	}
}

func TestDeriveView_Scenario(t *testing.T) {
	invs := []invoice.Invoice{
		{ClientName: "Acme", CreatedAt: at(100)},
		{ClientName: "Zeta", CreatedAt: at(200)},
	}

	got := DeriveView(invs, Query{Search: "acm", Field: SortByClientName, Direction: Asc})

	assert.Equal(t, []string{"Acme"}, clients(got))
}

func TestFilter(t *testing.T) {
	tests := []struct {
		name   string
		search string
		want   []string
	}{
		{"empty keeps all", "", []string{"Acme", "Zeta", "beta corp", "Undated"}},
		{"client name case-insensitive", "BETA", []string{"beta corp"}},
		{"invoice number", "inv-002", []string{"Zeta"}},
		{"matches either field", "a", []string{"Acme", "Zeta", "beta corp", "Undated"}},
		{"number prefix matches all numbered", "INV", []string{"Acme", "Zeta", "beta corp"}},
		{"no match", "nobody", []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, clients(Filter(sample(), tt.search)))
		})
	}
}

func TestSort(t *testing.T) {
	tests := []struct {
		name  string
		field SortField
		dir   SortDirection
		want  []string
	}{
		{"created desc puts undated last", SortByCreatedAt, Desc, []string{"beta corp", "Zeta", "Acme", "Undated"}},
		{"created asc puts undated first", SortByCreatedAt, Asc, []string{"Undated", "Acme", "Zeta", "beta corp"}},
		{"client asc ignores case", SortByClientName, Asc, []string{"Acme", "beta corp", "Undated", "Zeta"}},
		{"client desc", SortByClientName, Desc, []string{"Zeta", "Undated", "beta corp", "Acme"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DeriveView(sample(), Query{Field: tt.field, Direction: tt.dir})
			assert.Equal(t, tt.want, clients(got))
		})
	}
}

func TestDeriveViewDoesNotMutateSource(t *testing.T) {
	src := sample()
	before := clients(src)

	got := DeriveView(src, Query{Search: "a", Field: SortByClientName, Direction: Desc})
	require.NotEmpty(t, got)
	got[0].ClientName = "mutated"
	*got[0].CreatedAt = time.UnixMilli(1)

	assert.Equal(t, before, clients(src))
	assert.Equal(t, int64(200), src[1].CreatedUnix())
}

func TestToggle(t *testing.T) {
	q := DefaultQuery()
	assert.Equal(t, SortByCreatedAt, q.Field)
	assert.Equal(t, Desc, q.Direction)

	q = q.Toggle(SortByCreatedAt)
	assert.Equal(t, Asc, q.Direction)

	q = q.Toggle(SortByCreatedAt)
	assert.Equal(t, Desc, q.Direction)

	q = q.Toggle(SortByCreatedAt).Toggle(SortByClientName)
	assert.Equal(t, SortByClientName, q.Field)
	assert.Equal(t, Desc, q.Direction, "switching field resets to desc")

	q = q.WithSearch("x").Toggle(SortByClientName)
	assert.Equal(t, Asc, q.Direction)
	assert.Equal(t, "x", q.Search)
}

func TestParseSortField(t *testing.T) {
	f, err := ParseSortField("Client_Name")
	require.NoError(t, err)
	assert.Equal(t, SortByClientName, f)

	f, err = ParseSortField("date")
	require.NoError(t, err)
	assert.Equal(t, SortByCreatedAt, f)

	_, err = ParseSortField("total")
	assert.Error(t, err)

	d, err := ParseSortDirection("ASC")
	require.NoError(t, err)
	assert.Equal(t, Asc, d)

	_, err = ParseSortDirection("up")
	assert.Error(t, err)
}
