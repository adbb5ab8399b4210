package tui

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marshallshelly/pebble-invoice/pkg/client"
	"github.com/marshallshelly/pebble-invoice/pkg/history"
	"github.com/marshallshelly/pebble-invoice/pkg/invoice"
)

func ids(invoices []invoice.Invoice) []string {
	out := make([]string, len(invoices))
	for i, inv := range invoices {
		out[i] = inv.ID
	}
	return out
}

func loadedHistory(t *testing.T, store *fakeStore) HistoryModel {
	t.Helper()
	m := NewHistoryModel(testDeps(t, store))
	for _, msg := range runCmd(m.Init()) {
		m, _ = m.Update(msg)
	}
	require.False(t, m.loading)
	return m
}

func TestHistoryModelDefaultsToNewestFirst(t *testing.T) {
	m := loadedHistory(t, &fakeStore{invoices: sampleInvoices()})

	assert.Equal(t, history.DefaultQuery(), m.Query())
	assert.Equal(t, []string{"c", "b", "a"}, ids(m.Visible()))
	assert.Contains(t, m.View(), "Date ▼")
	assert.Contains(t, m.View(), "INV-003")
}

func TestHistoryModelSearchAndSort(t *testing.T) {
	m := loadedHistory(t, &fakeStore{invoices: sampleInvoices()})

	m, _ = m.Update(press("acme"))
	assert.Equal(t, "acme", m.Query().Search)
	assert.Equal(t, []string{"c", "b"}, ids(m.Visible()))

	m, _ = m.Update(press("ctrl+n"))
	assert.Equal(t, history.SortByClientName, m.Query().Field)
	assert.Equal(t, history.Desc, m.Query().Direction)
	assert.Equal(t, []string{"c", "b"}, ids(m.Visible()))
	assert.Contains(t, m.View(), "Client Name ▼")

	m, _ = m.Update(press("ctrl+n"))
	assert.Equal(t, history.Asc, m.Query().Direction)
	assert.Equal(t, []string{"b", "c"}, ids(m.Visible()))
	assert.Contains(t, m.View(), "Client Name ▲")

	m, _ = m.Update(press("ctrl+t"))
	assert.Equal(t, history.SortByCreatedAt, m.Query().Field)
	assert.Equal(t, history.Desc, m.Query().Direction)

	m, _ = m.Update(press("zzz"))
	assert.Empty(t, m.Visible())
	assert.Contains(t, m.View(), "No invoices found.")
}

func TestHistoryModelEnterOpensSelected(t *testing.T) {
	m := loadedHistory(t, &fakeStore{invoices: sampleInvoices()})

	m, _ = m.Update(press("down"))
	_, cmd := m.Update(press("enter"))
	assert.Equal(t, []tea.Msg{navigateMsg{to: Location{Route: RouteInvoice, ID: "b"}}}, runCmd(cmd))
}

func TestHistoryModelEnterWithNothingListed(t *testing.T) {
	m := loadedHistory(t, &fakeStore{})
	_, cmd := m.Update(press("enter"))
	assert.Nil(t, cmd)
}

func TestHistoryModelFetchError(t *testing.T) {
	store := &fakeStore{listErr: &client.Error{StatusCode: 500, Message: client.ListFailed}}
	m := loadedHistory(t, store)

	assert.Empty(t, m.Visible())
	view := m.View()
	assert.Contains(t, view, "No invoices found.")
	assert.Contains(t, view, client.ListFailed)
}

func TestHistoryModelDropsStaleLoads(t *testing.T) {
	store := &fakeStore{invoices: sampleInvoices()}
	m := loadedHistory(t, store)

	m, cmd := m.Update(press("ctrl+r"))
	require.NotNil(t, cmd)
	assert.Contains(t, m.View(), "Loading invoices...")

	m, _ = m.Update(invoicesLoadedMsg{seq: m.seq - 1, invoices: nil})
	assert.True(t, m.loading, "a result from an earlier fetch is ignored")

	for _, msg := range runCmd(cmd) {
		m, _ = m.Update(msg)
	}
	assert.False(t, m.loading)
	assert.Len(t, m.Visible(), 3)
}
