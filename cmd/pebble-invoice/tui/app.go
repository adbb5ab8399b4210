package tui

import (
	"context"
	"strings"
	"sync/atomic"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/marshallshelly/pebble-invoice/pkg/client"
	"github.com/marshallshelly/pebble-invoice/pkg/draft"
	"github.com/marshallshelly/pebble-invoice/pkg/invoice"
	"github.com/marshallshelly/pebble-invoice/pkg/render"
)

// Route names a screen.
type Route string

const (
	RouteCreate  Route = "create"
	RoutePreview Route = "preview"
	RouteInvoice Route = "invoice"
	RouteHistory Route = "history"
)

// Location is a route plus its parameter. Only RouteInvoice uses ID.
type Location struct {
	Route Route
	ID    string
}

// ParseLocation maps a path such as "/invoice/abc" to a Location. The root
// path and anything unrecognised resolve to the create screen.
func ParseLocation(path string) Location {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	switch Route(parts[0]) {
	case RoutePreview:
		return Location{Route: RoutePreview}
	case RouteHistory:
		return Location{Route: RouteHistory}
	case RouteInvoice:
		if len(parts) == 2 && parts[1] != "" {
			return Location{Route: RouteInvoice, ID: parts[1]}
		}
	}
	return Location{Route: RouteCreate}
}

// String returns the path form of l.
func (l Location) String() string {
	if l.Route == RouteInvoice {
		return "/invoice/" + l.ID
	}
	return "/" + string(l.Route)
}

// InvoiceStore is the part of the API client the screens use.
type InvoiceStore interface {
	List(ctx context.Context) ([]invoice.Invoice, error)
	Get(ctx context.Context, id string) (*invoice.Invoice, error)
	Create(ctx context.Context, draft invoice.Invoice) (*client.CreateResult, error)
}

// Deps are the collaborators shared by every screen.
type Deps struct {
	Store     InvoiceStore
	Slot      draft.Slot
	Render    render.Options
	OutputDir string // where printed and exported files are written
}

var requestSeq atomic.Uint64

// nextSeq returns a token that identifies one in-flight request. Screens keep
// the latest token and drop results that carry any other.
func nextSeq() uint64 {
	return requestSeq.Add(1)
}

// Messages
type navigateMsg struct {
	to Location
}

type draftLoadedMsg struct {
	seq uint64
	inv invoice.Invoice
	err error
}

type invoiceLoadedMsg struct {
	seq uint64
	inv *invoice.Invoice
	err error
}

type invoicesLoadedMsg struct {
	seq      uint64
	invoices []invoice.Invoice
	err      error
}

type invoiceSavedMsg struct {
	seq uint64
	res *client.CreateResult
	err error
}

type exportedMsg struct {
	seq  uint64
	path string
	err  error
}

// Navigate returns a command that switches screens.
func Navigate(to Location) tea.Cmd {
	return func() tea.Msg {
		return navigateMsg{to: to}
	}
}

type appKeys struct {
	create  key.Binding
	history key.Binding
	quit    key.Binding
}

var globalKeys = appKeys{
	create:  key.NewBinding(key.WithKeys("f2"), key.WithHelp("f2", "create invoice")),
	history: key.NewBinding(key.WithKeys("f3"), key.WithHelp("f3", "invoice history")),
	quit:    key.NewBinding(key.WithKeys("ctrl+c"), key.WithHelp("ctrl+c", "quit")),
}

// App routes between the create, preview, details and history screens.
// The create form survives navigation so a draft can be previewed and
// edited again.
type App struct {
	deps     Deps
	location Location
	create   CreateModel
	preview  PreviewModel
	details  DetailsModel
	history  HistoryModel
	width    int
	height   int
}

// NewApp returns the application positioned at start.
func NewApp(deps Deps, start Location) App {
	return App{
		deps:     deps,
		location: start,
		create:   NewCreateModel(deps),
	}
}

// Location returns the current screen.
func (m App) Location() Location {
	return m.location
}

func (m App) Init() tea.Cmd {
	return Navigate(m.location)
}

func (m App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.create = m.create.SetSize(msg.Width, msg.Height)
		m.preview.sheet = m.preview.sheet.SetSize(msg.Width, msg.Height)
		m.details.sheet = m.details.sheet.SetSize(msg.Width, msg.Height)
		m.history = m.history.SetSize(msg.Width, msg.Height)
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, globalKeys.quit):
			return m, tea.Quit
		case key.Matches(msg, globalKeys.create):
			return m.enter(Location{Route: RouteCreate})
		case key.Matches(msg, globalKeys.history):
			return m.enter(Location{Route: RouteHistory})
		}

	case navigateMsg:
		return m.enter(msg.to)

	case invoiceSavedMsg:
		m.create, cmd = m.create.Update(msg)
		if m.location.Route != RouteCreate {
			// the form still resets; a user who moved on stays put
			return m, nil
		}
		return m, cmd

	case draftLoadedMsg, invoiceLoadedMsg, invoicesLoadedMsg:
		// results for a screen that has since been left are dropped
		if !m.owns(msg) {
			return m, nil
		}
	}

	return m.updateCurrent(msg)
}

func (m App) owns(msg tea.Msg) bool {
	switch msg.(type) {
	case draftLoadedMsg:
		return m.location.Route == RoutePreview
	case invoiceLoadedMsg:
		return m.location.Route == RouteInvoice
	case invoicesLoadedMsg:
		return m.location.Route == RouteHistory
	}
	return true
}

func (m App) updateCurrent(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch m.location.Route {
	case RouteCreate:
		m.create, cmd = m.create.Update(msg)
	case RoutePreview:
		m.preview, cmd = m.preview.Update(msg)
	case RouteInvoice:
		m.details, cmd = m.details.Update(msg)
	case RouteHistory:
		m.history, cmd = m.history.Update(msg)
	}
	return m, cmd
}

// enter switches to loc and starts whatever loading the screen needs.
// Preview, details and history are rebuilt on every visit.
func (m App) enter(loc Location) (App, tea.Cmd) {
	m.location = loc
	switch loc.Route {
	case RoutePreview:
		m.preview = NewPreviewModel(m.deps).withSize(m.width, m.height)
		return m, m.preview.Init()
	case RouteInvoice:
		m.details = NewDetailsModel(m.deps, loc.ID).withSize(m.width, m.height)
		return m, m.details.Init()
	case RouteHistory:
		m.history = NewHistoryModel(m.deps).SetSize(m.width, m.height)
		return m, m.history.Init()
	default:
		m.location = Location{Route: RouteCreate}
		return m, m.create.Init()
	}
}

func (m App) View() string {
	var body string
	switch m.location.Route {
	case RoutePreview:
		body = m.preview.View()
	case RouteInvoice:
		body = m.details.View()
	case RouteHistory:
		body = m.history.View()
	default:
		body = m.create.View()
	}
	return lipgloss.JoinVertical(lipgloss.Left, m.header(), "", body)
}

func (m App) header() string {
	nav := func(label string, active bool) string {
		if active {
			return navActiveStyle.Render(label)
		}
		return navStyle.Render(label)
	}
	route := m.location.Route
	return lipgloss.JoinHorizontal(lipgloss.Top,
		appTitleStyle.Render("Invoice Generator"),
		nav("F2 Create Invoice", route == RouteCreate || route == RoutePreview),
		nav("F3 Invoice History", route == RouteHistory || route == RouteInvoice),
	)
}

// RunUI starts the interactive application at start.
func RunUI(deps Deps, start Location) error {
	p := tea.NewProgram(NewApp(deps, start), tea.WithAltScreen())
	_, err := p.Run()
	return err
}

// Commands

func loadDraft(slot draft.Slot, seq uint64) tea.Cmd {
	return func() tea.Msg {
		inv, err := slot.Take()
		return draftLoadedMsg{seq: seq, inv: inv, err: err}
	}
}

func loadInvoice(store InvoiceStore, id string, seq uint64) tea.Cmd {
	return func() tea.Msg {
		inv, err := store.Get(context.Background(), id)
		return invoiceLoadedMsg{seq: seq, inv: inv, err: err}
	}
}

func loadInvoices(store InvoiceStore, seq uint64) tea.Cmd {
	return func() tea.Msg {
		invoices, err := store.List(context.Background())
		return invoicesLoadedMsg{seq: seq, invoices: invoices, err: err}
	}
}

func saveInvoice(store InvoiceStore, inv invoice.Invoice, seq uint64) tea.Cmd {
	return func() tea.Msg {
		res, err := store.Create(context.Background(), inv)
		return invoiceSavedMsg{seq: seq, res: res, err: err}
	}
}
