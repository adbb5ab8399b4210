package tui

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/marshallshelly/pebble-invoice/pkg/invoice"
	"github.com/marshallshelly/pebble-invoice/pkg/render"
)

// ConfirmationDialog represents a yes/no confirmation dialog
type ConfirmationDialog struct {
	Title       string
	Message     string
	YesSelected bool
	OnConfirm   func() tea.Cmd
	OnCancel    func() tea.Cmd
}

// NewConfirmationDialog creates a new confirmation dialog
func NewConfirmationDialog(title, message string) ConfirmationDialog {
	return ConfirmationDialog{
		Title:       title,
		Message:     message,
		YesSelected: true,
	}
}

// Update handles confirmation dialog updates
func (d *ConfirmationDialog) Update(msg tea.Msg) tea.Cmd {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return nil
	}
	switch keyMsg.String() {
	case "left", "h":
		d.YesSelected = true
	case "right", "l":
		d.YesSelected = false
	case "y":
		d.YesSelected = true
		return d.confirm()
	case "n", "esc":
		d.YesSelected = false
		return d.confirm()
	case "enter":
		return d.confirm()
	}
	return nil
}

func (d *ConfirmationDialog) confirm() tea.Cmd {
	if d.YesSelected && d.OnConfirm != nil {
		return d.OnConfirm()
	}
	if !d.YesSelected && d.OnCancel != nil {
		return d.OnCancel()
	}
	return nil
}

// View renders the confirmation dialog
func (d ConfirmationDialog) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render(d.Title))
	b.WriteString("\n")
	b.WriteString(d.Message)
	b.WriteString("\n\n")

	yesButton := inactiveButtonStyle.Render("Yes")
	noButton := inactiveButtonStyle.Render("No")

	if d.YesSelected {
		yesButton = activeButtonStyle.Render("Yes")
	} else {
		noButton = activeButtonStyle.Render("No")
	}

	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Left, yesButton, "  ", noButton))
	b.WriteString("\n")
	b.WriteString(helpStyle.Render(FormatKey("←/→", "choose") + " • " + FormatKey("enter", "confirm") + " • " + FormatKey("esc", "cancel")))

	return boxStyle.Render(b.String())
}

// InvoiceItem is one row of the history list.
type InvoiceItem struct {
	Invoice invoice.Invoice
}

func (i InvoiceItem) FilterValue() string { return i.Invoice.ClientName }
func (i InvoiceItem) Title() string {
	return historyRow(i.Invoice.InvoiceNumber, i.Invoice.ClientName, render.Date(i.Invoice.CreatedAt), render.Money(i.Invoice.FinalTotal))
}
func (i InvoiceItem) Description() string { return "" }

// history column widths
const (
	colNumber = 10
	colClient = 28
	colDate   = 14
	colAmount = 12
)

func historyRow(number, client, date, amount string) string {
	return fmt.Sprintf("%-*s %-*s %-*s %*s",
		colNumber, clip(number, colNumber),
		colClient, clip(client, colClient),
		colDate, clip(date, colDate),
		colAmount, amount)
}

func clip(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

// InvoiceItemDelegate renders history rows on a single line.
type InvoiceItemDelegate struct{}

func (d InvoiceItemDelegate) Height() int                             { return 1 }
func (d InvoiceItemDelegate) Spacing() int                            { return 0 }
func (d InvoiceItemDelegate) Update(_ tea.Msg, _ *list.Model) tea.Cmd { return nil }
func (d InvoiceItemDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	i, ok := item.(InvoiceItem)
	if !ok {
		return
	}

	var s string
	if index == m.Index() {
		s = selectedItemStyle.Render("▸ " + i.Title())
	} else {
		s = unselectedItemStyle.Render(i.Title())
	}

	_, _ = fmt.Fprint(w, s)
}

// errorView renders a page-level error with a hint below it.
func errorView(title, message, hint string) string {
	return lipgloss.JoinVertical(lipgloss.Left,
		titleStyle.Render(title),
		errorStyle.Render(message),
		hint,
	)
}
