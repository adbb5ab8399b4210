package tui

import (
	"errors"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/marshallshelly/pebble-invoice/pkg/draft"
)

// PreviewModel shows the draft handed over by the create screen. Closing it
// returns to the form with the draft intact.
type PreviewModel struct {
	deps    Deps
	seq     uint64
	loading bool
	err     string
	sheet   SheetModel
}

// NewPreviewModel returns a preview that reads the draft slot on Init.
func NewPreviewModel(deps Deps) PreviewModel {
	return PreviewModel{
		deps:    deps,
		seq:     nextSeq(),
		loading: true,
		sheet:   newSheet(deps, Location{Route: RouteCreate}),
	}
}

func (m PreviewModel) withSize(width, height int) PreviewModel {
	m.sheet = m.sheet.SetSize(width, height)
	return m
}

func (m PreviewModel) Init() tea.Cmd {
	return loadDraft(m.deps.Slot, m.seq)
}

func (m PreviewModel) Update(msg tea.Msg) (PreviewModel, tea.Cmd) {
	if msg, ok := msg.(draftLoadedMsg); ok {
		if msg.seq != m.seq {
			return m, nil
		}
		m.loading = false
		if errors.Is(msg.err, draft.ErrNoDraft) {
			return m, Navigate(Location{Route: RouteCreate})
		}
		if msg.err != nil {
			m.err = msg.err.Error()
			return m, nil
		}
		m.sheet = m.sheet.SetInvoice(msg.inv)
		return m, nil
	}

	if m.loading {
		return m, nil
	}
	if m.err != "" {
		if _, ok := msg.(tea.KeyMsg); ok {
			return m, Navigate(Location{Route: RouteCreate})
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.sheet, cmd = m.sheet.Update(msg)
	return m, cmd
}

func (m PreviewModel) View() string {
	switch {
	case m.loading:
		return mutedStyle.Render("Loading preview...")
	case m.err != "":
		return errorView("Invoice Preview", m.err, helpStyle.Render(FormatKey("any key", "back to create invoice")))
	}
	return titleStyle.Render("Invoice Preview") + "\n" + m.sheet.View()
}
