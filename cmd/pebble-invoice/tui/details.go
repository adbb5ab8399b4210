package tui

import (
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/marshallshelly/pebble-invoice/pkg/client"
)

var backToHistory = key.NewBinding(
	key.WithKeys("enter", "esc", "b"),
	key.WithHelp("enter", "back to invoice history"),
)

// DetailsModel loads one saved invoice by id and shows it.
type DetailsModel struct {
	deps    Deps
	id      string
	seq     uint64
	loading bool
	err     string
	sheet   SheetModel
}

// NewDetailsModel returns a details screen for id. Loading starts on Init.
func NewDetailsModel(deps Deps, id string) DetailsModel {
	return DetailsModel{
		deps:    deps,
		id:      id,
		seq:     nextSeq(),
		loading: true,
		sheet:   newSheet(deps, Location{Route: RouteHistory}),
	}
}

func (m DetailsModel) withSize(width, height int) DetailsModel {
	m.sheet = m.sheet.SetSize(width, height)
	return m
}

// ID returns the invoice id being shown.
func (m DetailsModel) ID() string {
	return m.id
}

func (m DetailsModel) Init() tea.Cmd {
	return loadInvoice(m.deps.Store, m.id, m.seq)
}

func (m DetailsModel) Update(msg tea.Msg) (DetailsModel, tea.Cmd) {
	if msg, ok := msg.(invoiceLoadedMsg); ok {
		if msg.seq != m.seq {
			return m, nil
		}
		m.loading = false
		if msg.err != nil || msg.inv == nil {
			m.err = client.GetFailed
			return m, nil
		}
		m.sheet = m.sheet.SetInvoice(*msg.inv)
		return m, nil
	}

	if m.loading {
		return m, nil
	}
	if m.err != "" {
		if msg, ok := msg.(tea.KeyMsg); ok && key.Matches(msg, backToHistory) {
			return m, Navigate(Location{Route: RouteHistory})
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.sheet, cmd = m.sheet.Update(msg)
	return m, cmd
}

func (m DetailsModel) View() string {
	switch {
	case m.loading:
		return mutedStyle.Render("Loading invoice...")
	case m.err != "":
		return errorView("Invoice Details", m.err, helpLine(backToHistory))
	}
	title := "Invoice " + m.sheet.inv.InvoiceNumber
	return titleStyle.Render(title) + "\n" + m.sheet.View()
}
