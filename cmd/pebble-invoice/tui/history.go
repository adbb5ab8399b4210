package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/marshallshelly/pebble-invoice/pkg/client"
	"github.com/marshallshelly/pebble-invoice/pkg/history"
	"github.com/marshallshelly/pebble-invoice/pkg/invoice"
)

type historyKeys struct {
	sortClient key.Binding
	sortDate   key.Binding
	view       key.Binding
	refresh    key.Binding
	move       key.Binding
}

var historyKeyMap = historyKeys{
	sortClient: key.NewBinding(key.WithKeys("ctrl+n"), key.WithHelp("ctrl+n", "sort by client")),
	sortDate:   key.NewBinding(key.WithKeys("ctrl+t"), key.WithHelp("ctrl+t", "sort by date")),
	view:       key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "view")),
	refresh:    key.NewBinding(key.WithKeys("ctrl+r"), key.WithHelp("ctrl+r", "refresh")),
	move:       key.NewBinding(key.WithKeys("up", "down", "pgup", "pgdown"), key.WithHelp("↑/↓", "select")),
}

// HistoryModel lists saved invoices with a live search and sortable columns.
type HistoryModel struct {
	deps     Deps
	search   textinput.Model
	list     list.Model
	query    history.Query
	invoices []invoice.Invoice
	seq      uint64
	loading  bool
	err      string
}

// NewHistoryModel returns a history screen that fetches invoices on Init.
func NewHistoryModel(deps Deps) HistoryModel {
	search := textinput.New()
	search.Placeholder = "Search by client name or invoice number..."
	search.Prompt = "🔍 "
	search.Width = 50
	search.Cursor.SetMode(cursorMode)
	search.Focus()

	l := list.New(nil, InvoiceItemDelegate{}, 80, 15)
	l.SetShowTitle(false)
	l.SetShowStatusBar(false)
	l.SetShowHelp(false)
	l.SetFilteringEnabled(false)
	l.KeyMap.Quit.SetEnabled(false)

	return HistoryModel{
		deps:    deps,
		search:  search,
		list:    l,
		query:   history.DefaultQuery(),
		seq:     nextSeq(),
		loading: true,
	}
}

// SetSize fits the list to the terminal.
func (m HistoryModel) SetSize(width, height int) HistoryModel {
	if width > 0 && height > 0 {
		m.list.SetSize(width, max(height-10, 5))
	}
	return m
}

// Query returns the active search and sort.
func (m HistoryModel) Query() history.Query {
	return m.query
}

// Visible returns the invoices currently listed, in display order.
func (m HistoryModel) Visible() []invoice.Invoice {
	items := m.list.Items()
	out := make([]invoice.Invoice, 0, len(items))
	for _, it := range items {
		out = append(out, it.(InvoiceItem).Invoice)
	}
	return out
}

func (m HistoryModel) Init() tea.Cmd {
	return tea.Batch(loadInvoices(m.deps.Store, m.seq), textinput.Blink)
}

func (m HistoryModel) Update(msg tea.Msg) (HistoryModel, tea.Cmd) {
	switch msg := msg.(type) {
	case invoicesLoadedMsg:
		if msg.seq != m.seq {
			return m, nil
		}
		m.loading = false
		m.err = ""
		if msg.err != nil {
			// the list stays empty; the reason is shown as a hint only
			m.err = client.Message(msg.err)
			msg.invoices = nil
		}
		m.invoices = msg.invoices
		return m, m.refreshView()

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, historyKeyMap.sortClient):
			m.query = m.query.Toggle(history.SortByClientName)
			return m, m.refreshView()
		case key.Matches(msg, historyKeyMap.sortDate):
			m.query = m.query.Toggle(history.SortByCreatedAt)
			return m, m.refreshView()
		case key.Matches(msg, historyKeyMap.refresh):
			m.seq = nextSeq()
			m.loading = true
			return m, loadInvoices(m.deps.Store, m.seq)
		case key.Matches(msg, historyKeyMap.view):
			if item, ok := m.list.SelectedItem().(InvoiceItem); ok {
				return m, Navigate(Location{Route: RouteInvoice, ID: item.Invoice.ID})
			}
			return m, nil
		case key.Matches(msg, historyKeyMap.move):
			var cmd tea.Cmd
			m.list, cmd = m.list.Update(msg)
			return m, cmd
		}

		var cmd tea.Cmd
		m.search, cmd = m.search.Update(msg)
		if m.search.Value() != m.query.Search {
			m.query = m.query.WithSearch(m.search.Value())
			cmd = tea.Batch(cmd, m.refreshView())
		}
		return m, cmd
	}

	var cmd tea.Cmd
	m.search, cmd = m.search.Update(msg)
	return m, cmd
}

// refreshView derives the visible rows from the loaded invoices and query.
func (m *HistoryModel) refreshView() tea.Cmd {
	view := history.DeriveView(m.invoices, m.query)
	items := make([]list.Item, len(view))
	for i, inv := range view {
		items[i] = InvoiceItem{Invoice: inv}
	}
	cmd := m.list.SetItems(items)
	m.list.Select(0)
	return cmd
}

func (m HistoryModel) header() string {
	label := func(name string, field history.SortField) string {
		if m.query.Field == field {
			return name + " " + m.query.Direction.Arrow()
		}
		return name
	}
	return columnHeaderStyle.Render("    " + historyRow(
		"Invoice #",
		label("Client Name", history.SortByClientName),
		label("Date", history.SortByCreatedAt),
		"Amount",
	))
}

func (m HistoryModel) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Invoice History"))
	b.WriteString("\n")
	b.WriteString(m.search.View())
	b.WriteString("\n\n")

	switch {
	case m.loading:
		b.WriteString(mutedStyle.Render("Loading invoices..."))
		b.WriteString("\n")
	case len(m.list.Items()) == 0:
		b.WriteString(subtitleStyle.Render("No invoices found."))
		b.WriteString("\n")
		if m.err != "" {
			b.WriteString(mutedStyle.Render(m.err))
			b.WriteString("\n")
		}
	default:
		b.WriteString(m.header())
		b.WriteString("\n")
		b.WriteString(m.list.View())
		b.WriteString("\n")
	}

	b.WriteString(helpLine(historyKeyMap.move, historyKeyMap.view, historyKeyMap.sortClient,
		historyKeyMap.sortDate, historyKeyMap.refresh))
	return b.String()
}
