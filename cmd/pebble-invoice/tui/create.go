package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/cursor"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/marshallshelly/pebble-invoice/pkg/client"
	"github.com/marshallshelly/pebble-invoice/pkg/invoice"
	"github.com/marshallshelly/pebble-invoice/pkg/render"
)

type createKeys struct {
	next       key.Binding
	prev       key.Binding
	addItem    key.Binding
	deleteItem key.Binding
	preview    key.Binding
	save       key.Binding
	reset      key.Binding
}

var createKeyMap = createKeys{
	next:       key.NewBinding(key.WithKeys("tab", "down"), key.WithHelp("tab", "next field")),
	prev:       key.NewBinding(key.WithKeys("shift+tab", "up"), key.WithHelp("shift+tab", "previous")),
	addItem:    key.NewBinding(key.WithKeys("ctrl+a"), key.WithHelp("ctrl+a", "add item")),
	deleteItem: key.NewBinding(key.WithKeys("ctrl+d"), key.WithHelp("ctrl+d", "delete item")),
	preview:    key.NewBinding(key.WithKeys("ctrl+p"), key.WithHelp("ctrl+p", "preview")),
	save:       key.NewBinding(key.WithKeys("ctrl+s"), key.WithHelp("ctrl+s", "save invoice")),
	reset:      key.NewBinding(key.WithKeys("ctrl+r"), key.WithHelp("ctrl+r", "start over")),
}

// item column widths
const (
	widthName = 30
	widthQty  = 10
	widthRate = 12
	widthSum  = 12
)

type itemRow struct {
	name textinput.Model
	qty  textinput.Model
	rate textinput.Model
}

type resetFormMsg struct{}
type dismissDialogMsg struct{}

// CreateModel is the invoice form. The draft invoice is the source of truth
// for every figure; the text inputs only hold what the user typed.
type CreateModel struct {
	deps       Deps
	draft      invoice.Invoice
	client     textinput.Model
	items      []itemRow
	discount   textinput.Model
	tax        textinput.Model
	focus      int
	seq        uint64
	submitting bool
	err        string
	dialog     *ConfirmationDialog
	width      int
	height     int
}

// NewCreateModel returns an empty form with one line item.
func NewCreateModel(deps Deps) CreateModel {
	m := CreateModel{
		deps:     deps,
		draft:    invoice.NewDraft(),
		client:   newInput("Client name", 40),
		discount: newInput("0", widthRate),
		tax:      newInput("0", widthRate),
	}
	for range m.draft.Items {
		m.items = append(m.items, newItemRow())
	}
	m.client.Focus()
	return m
}

// cursorMode applies to every text input.
var cursorMode = cursor.CursorBlink

func newInput(placeholder string, width int) textinput.Model {
	ti := textinput.New()
	ti.Cursor.SetMode(cursorMode)
	ti.Placeholder = placeholder
	ti.Prompt = ""
	ti.Width = width
	ti.CharLimit = 120
	return ti
}

func newItemRow() itemRow {
	row := itemRow{
		name: newInput("Item description", widthName-2),
		qty:  newInput("1", widthQty-2),
		rate: newInput("0", widthRate-2),
	}
	row.qty.SetValue("1")
	return row
}

// Draft returns a copy of the invoice being edited.
func (m CreateModel) Draft() invoice.Invoice {
	return m.draft.Clone()
}

// SetSize records the terminal size.
func (m CreateModel) SetSize(width, height int) CreateModel {
	m.width, m.height = width, height
	return m
}

func (m CreateModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m CreateModel) fieldCount() int   { return 3*len(m.items) + 3 }
func (m CreateModel) discountField() int { return 3*len(m.items) + 1 }
func (m CreateModel) taxField() int      { return 3*len(m.items) + 2 }

// itemField splits a focus position into row and column when it falls on a
// line item.
func (m CreateModel) itemField(f int) (row, col int, ok bool) {
	if f < 1 || f > 3*len(m.items) {
		return 0, 0, false
	}
	return (f - 1) / 3, (f - 1) % 3, true
}

func (m *CreateModel) input(f int) *textinput.Model {
	switch f {
	case 0:
		return &m.client
	case m.discountField():
		return &m.discount
	case m.taxField():
		return &m.tax
	}
	row, col, ok := m.itemField(f)
	if !ok {
		return nil
	}
	switch col {
	case 0:
		return &m.items[row].name
	case 1:
		return &m.items[row].qty
	default:
		return &m.items[row].rate
	}
}

func (m *CreateModel) setFocus(f int) tea.Cmd {
	if in := m.input(m.focus); in != nil {
		in.Blur()
	}
	n := m.fieldCount()
	m.focus = ((f % n) + n) % n
	return m.input(m.focus).Focus()
}

// apply copies the focused input's text into the draft.
func (m *CreateModel) apply(f int) {
	value := m.input(f).Value()
	switch f {
	case 0:
		m.draft.SetClientName(value)
		return
	case m.discountField():
		m.draft.SetDiscountText(value)
		return
	case m.taxField():
		m.draft.SetTaxPercentageText(value)
		return
	}
	row, col, _ := m.itemField(f)
	switch col {
	case 0:
		_ = m.draft.SetItemName(row, value)
	case 1:
		_ = m.draft.SetItemQuantityText(row, value)
	case 2:
		_ = m.draft.SetItemRateText(row, value)
	}
}

func (m CreateModel) Update(msg tea.Msg) (CreateModel, tea.Cmd) {
	switch msg := msg.(type) {
	case invoiceSavedMsg:
		if msg.seq != m.seq {
			return m, nil
		}
		m.submitting = false
		if msg.err != nil {
			m.err = client.Message(msg.err)
			return m, nil
		}
		_ = m.deps.Slot.Clear()
		fresh := NewCreateModel(m.deps).SetSize(m.width, m.height)
		return fresh, Navigate(Location{Route: RouteInvoice, ID: msg.res.InvoiceID})

	case resetFormMsg:
		_ = m.deps.Slot.Clear()
		return NewCreateModel(m.deps).SetSize(m.width, m.height), textinput.Blink

	case dismissDialogMsg:
		m.dialog = nil
		return m, nil

	case tea.KeyMsg:
		if m.dialog != nil {
			return m, m.dialog.Update(msg)
		}
		return m.handleKey(msg)
	}

	var cmd tea.Cmd
	in := m.input(m.focus)
	*in, cmd = in.Update(msg)
	return m, cmd
}

func (m CreateModel) handleKey(msg tea.KeyMsg) (CreateModel, tea.Cmd) {
	switch {
	case key.Matches(msg, createKeyMap.next):
		return m, m.setFocus(m.focus + 1)

	case key.Matches(msg, createKeyMap.prev):
		return m, m.setFocus(m.focus - 1)

	case key.Matches(msg, createKeyMap.addItem):
		// focus indices past the items shift when a row is inserted
		onTotals := m.focus > 3*len(m.items)
		idx := m.draft.AddItem()
		m.items = append(m.items, newItemRow())
		if onTotals {
			m.focus += 3
		}
		return m, m.setFocus(1 + 3*idx)

	case key.Matches(msg, createKeyMap.deleteItem):
		row, _, ok := m.itemField(m.focus)
		if !ok {
			return m, nil
		}
		if err := m.draft.DeleteItem(row); err != nil {
			return m, nil
		}
		m.items = append(m.items[:row], m.items[row+1:]...)
		m.focus = 0
		return m, m.setFocus(1 + 3*min(row, len(m.items)-1))

	case key.Matches(msg, createKeyMap.preview):
		if err := m.deps.Slot.Put(m.draft.Clone()); err != nil {
			m.err = err.Error()
			return m, nil
		}
		return m, Navigate(Location{Route: RoutePreview})

	case key.Matches(msg, createKeyMap.save):
		if m.submitting {
			return m, nil
		}
		m.submitting = true
		m.err = ""
		m.seq = nextSeq()
		return m, saveInvoice(m.deps.Store, m.draft.Clone(), m.seq)

	case key.Matches(msg, createKeyMap.reset):
		d := NewConfirmationDialog("Start Over", "Discard this invoice and start a new one?")
		d.OnConfirm = func() tea.Cmd { return func() tea.Msg { return resetFormMsg{} } }
		d.OnCancel = func() tea.Cmd { return func() tea.Msg { return dismissDialogMsg{} } }
		m.dialog = &d
		return m, nil
	}

	var cmd tea.Cmd
	in := m.input(m.focus)
	*in, cmd = in.Update(msg)
	m.apply(m.focus)
	return m, cmd
}

func (m CreateModel) View() string {
	if m.dialog != nil {
		return m.dialog.View()
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("Create New Invoice"))
	b.WriteString("\n")

	if m.err != "" {
		b.WriteString(errorStyle.Render(m.err))
		b.WriteString("\n")
	}

	b.WriteString(labelStyle.Render("Client Name") + m.client.View())
	b.WriteString("\n\n")

	b.WriteString(columnHeaderStyle.Render(
		cell("Description", widthName) + cell("Quantity", widthQty) + cell("Rate", widthRate) + right("Total", widthSum)))
	b.WriteString("\n")
	for i, row := range m.items {
		b.WriteString(cell(row.name.View(), widthName))
		b.WriteString(cell(row.qty.View(), widthQty))
		b.WriteString(cell(row.rate.View(), widthRate))
		b.WriteString(amountStyle.Width(widthSum).Render(render.Money(m.draft.Items[i].Total)))
		b.WriteString("\n")
	}
	b.WriteString("\n")

	summary := []struct {
		label string
		value string
	}{
		{"Subtotal", amountStyle.Width(widthSum).Render(render.Money(m.draft.Subtotal))},
		{"Discount ($)", m.discount.View()},
		{"Tax (%)", m.tax.View()},
		{"Tax Amount", amountStyle.Width(widthSum).Render(render.Money(m.draft.TaxAmount))},
		{"Total", totalStyle.Width(widthSum).Render(render.Money(m.draft.FinalTotal))},
	}
	for _, row := range summary {
		b.WriteString(labelStyle.Render(row.label) + row.value + "\n")
	}

	if m.submitting {
		b.WriteString("\n")
		b.WriteString(infoStyle.Render("Saving invoice..."))
		b.WriteString("\n")
	}

	b.WriteString(helpLine(createKeyMap.next, createKeyMap.addItem, createKeyMap.deleteItem,
		createKeyMap.preview, createKeyMap.save, createKeyMap.reset))
	return b.String()
}

func cell(s string, width int) string {
	return lipgloss.NewStyle().Width(width).Render(s)
}

func right(s string, width int) string {
	return lipgloss.NewStyle().Width(width).Align(lipgloss.Right).Render(s)
}
