package tui

import (
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/marshallshelly/pebble-invoice/pkg/client"
	"github.com/marshallshelly/pebble-invoice/pkg/invoice"
	"github.com/marshallshelly/pebble-invoice/pkg/render"
)

type sheetKeys struct {
	print  key.Binding
	export key.Binding
	close  key.Binding
	scroll key.Binding
}

var sheetKeyMap = sheetKeys{
	print:  key.NewBinding(key.WithKeys("p"), key.WithHelp("p", "print")),
	export: key.NewBinding(key.WithKeys("e"), key.WithHelp("e", "export pdf")),
	close:  key.NewBinding(key.WithKeys("esc", "c"), key.WithHelp("esc", "close")),
	scroll: key.NewBinding(key.WithKeys("up", "down"), key.WithHelp("↑/↓", "scroll")),
}

// SheetModel shows a rendered invoice with print, export and close actions.
// It backs both the draft preview and the saved invoice details.
type SheetModel struct {
	deps     Deps
	inv      invoice.Invoice
	closeTo  Location
	viewport viewport.Model
	seq      uint64
	status   string
	err      string
}

func newSheet(deps Deps, closeTo Location) SheetModel {
	return SheetModel{
		deps:     deps,
		closeTo:  closeTo,
		viewport: viewport.New(80, 24),
	}
}

// SetSize fits the sheet to the terminal, leaving room for the header and help.
func (m SheetModel) SetSize(width, height int) SheetModel {
	if width <= 0 || height <= 0 {
		return m
	}
	m.viewport.Width = width
	m.viewport.Height = max(height-8, 5)
	return m
}

// SetInvoice replaces the displayed invoice.
func (m SheetModel) SetInvoice(inv invoice.Invoice) SheetModel {
	m.inv = inv
	m.viewport.SetContent(render.Text(inv, m.deps.Render))
	m.viewport.GotoTop()
	return m
}

func (m SheetModel) Update(msg tea.Msg) (SheetModel, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, sheetKeyMap.print):
			m.seq = nextSeq()
			m.status, m.err = "", ""
			return m, printInvoice(m.inv, m.deps, m.seq)
		case key.Matches(msg, sheetKeyMap.export):
			m.seq = nextSeq()
			m.status, m.err = "", ""
			return m, exportPDF(m.inv, m.deps, m.seq)
		case key.Matches(msg, sheetKeyMap.close):
			return m, Navigate(m.closeTo)
		}

	case exportedMsg:
		if msg.seq != m.seq {
			return m, nil
		}
		if msg.err != nil {
			m.err = client.Message(msg.err)
			return m, nil
		}
		m.status = "Saved " + msg.path
		return m, nil
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m SheetModel) View() string {
	var b strings.Builder
	b.WriteString(boxStyle.Render(m.viewport.View()))
	b.WriteString("\n")
	if m.err != "" {
		b.WriteString(errorStyle.Render(m.err))
		b.WriteString("\n")
	}
	if m.status != "" {
		b.WriteString(successStyle.Render("✓ " + m.status))
		b.WriteString("\n")
	}
	b.WriteString(helpLine(sheetKeyMap.print, sheetKeyMap.export, sheetKeyMap.close, sheetKeyMap.scroll))
	return b.String()
}

func outputPath(deps Deps, name string) string {
	return filepath.Join(deps.OutputDir, name)
}

// printInvoice writes the text layout next to where the PDF would go.
func printInvoice(inv invoice.Invoice, deps Deps, seq uint64) tea.Cmd {
	return func() tea.Msg {
		path := outputPath(deps, strings.TrimSuffix(render.FileName(inv), ".pdf")+".txt")
		err := os.WriteFile(path, []byte(render.Text(inv, deps.Render)), 0o644)
		return exportedMsg{seq: seq, path: path, err: err}
	}
}

func exportPDF(inv invoice.Invoice, deps Deps, seq uint64) tea.Cmd {
	return func() tea.Msg {
		path := outputPath(deps, render.FileName(inv))
		f, err := os.Create(path)
		if err != nil {
			return exportedMsg{seq: seq, path: path, err: err}
		}
		err = render.PDF(f, inv, deps.Render)
		err = errors.Join(err, f.Close())
		if err != nil {
			return exportedMsg{seq: seq, path: path, err: &client.Error{Message: client.PDFFailed, Err: err}}
		}
		return exportedMsg{seq: seq, path: path}
	}
}
