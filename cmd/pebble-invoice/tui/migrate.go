package tui

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/marshallshelly/pebble-invoice/pkg/store"
)

// MigrationRunner is satisfied by *store.Migrator.
type MigrationRunner interface {
	Status(ctx context.Context) ([]store.MigrationRecord, error)
	Up(ctx context.Context) ([]store.Migration, error)
	Down(ctx context.Context) (*store.Migration, error)
}

// MigrateMode represents the current mode of the migration UI
type MigrateMode int

const (
	ModeList MigrateMode = iota
	ModeConfirm
	ModeExecuting
	ModeComplete
	ModeError
)

// MigrationItem represents a migration in the list
type MigrationItem struct {
	Record store.MigrationRecord
}

func (i MigrationItem) FilterValue() string { return i.Record.Name }
func (i MigrationItem) Title() string {
	return fmt.Sprintf("%s %s - %s", formatStatus(i.Record.Status), i.Record.Version, i.Record.Name)
}
func (i MigrationItem) Description() string {
	switch {
	case i.Record.Error != nil:
		return errorTextStyle.Render("Failed: " + *i.Record.Error)
	case i.Record.AppliedAt != nil:
		return mutedStyle.Render("Applied: " + i.Record.AppliedAt.Format("2006-01-02 15:04:05"))
	}
	return mutedStyle.Render("Not applied")
}

// MigrationItemDelegate renders a migration on two lines.
type MigrationItemDelegate struct{}

func (d MigrationItemDelegate) Height() int                             { return 2 }
func (d MigrationItemDelegate) Spacing() int                            { return 1 }
func (d MigrationItemDelegate) Update(_ tea.Msg, _ *list.Model) tea.Cmd { return nil }
func (d MigrationItemDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	i, ok := item.(MigrationItem)
	if !ok {
		return
	}

	var s string
	if index == m.Index() {
		s = selectedItemStyle.Render("▸ " + i.Title() + "\n  " + i.Description())
	} else {
		s = unselectedItemStyle.Render(i.Title() + "\n" + i.Description())
	}

	_, _ = fmt.Fprint(w, s)
}

func formatStatus(status store.MigrationStatus) string {
	switch status {
	case store.StatusApplied:
		return successStyle.Render("✓")
	case store.StatusFailed:
		return errorTextStyle.Render("✗")
	default:
		return mutedStyle.Render("○")
	}
}

// MigrateModel lists migration status and applies or rolls back after
// confirmation.
type MigrateModel struct {
	mode         MigrateMode
	action       string // "up" or "down"
	runner       MigrationRunner
	list         list.Model
	confirmation ConfirmationDialog
	spinner      spinner.Model
	records      []store.MigrationRecord
	result       string
	err          error
	width        int
	height       int
}

// NewMigrateModel creates a new migration UI model
func NewMigrateModel(action string, runner MigrationRunner) MigrateModel {
	l := list.New(nil, MigrationItemDelegate{}, 0, 0)
	l.Title = "Database Migrations"
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(false)
	l.SetShowHelp(false)
	l.Styles.Title = titleStyle

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = infoStyle

	return MigrateModel{
		mode:    ModeList,
		action:  action,
		runner:  runner,
		list:    l,
		spinner: s,
	}
}

// Messages
type migrationStatusMsg struct {
	records []store.MigrationRecord
	err     error
}

type migrationDoneMsg struct {
	result string
	err    error
}

type cancelConfirmMsg struct{}

func loadStatus(runner MigrationRunner) tea.Cmd {
	return func() tea.Msg {
		records, err := runner.Status(context.Background())
		return migrationStatusMsg{records: records, err: err}
	}
}

func runMigrations(runner MigrationRunner, action string) tea.Cmd {
	return func() tea.Msg {
		ctx := context.Background()
		if action == "down" {
			mig, err := runner.Down(ctx)
			switch {
			case err != nil:
				return migrationDoneMsg{err: err}
			case mig == nil:
				return migrationDoneMsg{result: "Nothing to roll back"}
			}
			return migrationDoneMsg{result: fmt.Sprintf("Rolled back %s - %s", mig.Version, mig.Name)}
		}

		applied, err := runner.Up(ctx)
		if err != nil {
			return migrationDoneMsg{err: err}
		}
		return migrationDoneMsg{result: fmt.Sprintf("Successfully applied %d migration(s)", len(applied))}
	}
}

func (m MigrateModel) Init() tea.Cmd {
	return loadStatus(m.runner)
}

// actionable counts the migrations the chosen action would touch.
func (m MigrateModel) actionable() int {
	n := 0
	for _, r := range m.records {
		if (m.action == "up") == (r.Status != store.StatusApplied) {
			n++
		}
	}
	if m.action == "down" {
		return min(n, 1)
	}
	return n
}

func (m MigrateModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.list.SetSize(msg.Width-4, msg.Height-8)
		return m, nil

	case migrationStatusMsg:
		if msg.err != nil {
			m.mode = ModeError
			m.err = msg.err
			return m, nil
		}
		m.records = msg.records
		items := make([]list.Item, len(msg.records))
		for i, r := range msg.records {
			items[i] = MigrationItem{Record: r}
		}
		return m, m.list.SetItems(items)

	case migrationDoneMsg:
		if msg.err != nil {
			m.mode = ModeError
			m.err = msg.err
			return m, nil
		}
		m.mode = ModeComplete
		m.result = msg.result
		return m, nil

	case cancelConfirmMsg:
		m.mode = ModeList
		return m, nil

	case spinner.TickMsg:
		if m.mode != ModeExecuting {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		switch m.mode {
		case ModeList:
			switch msg.String() {
			case "ctrl+c", "q":
				return m, tea.Quit
			case "enter", " ":
				n := m.actionable()
				if n == 0 {
					return m, nil
				}
				m.confirmation = m.confirmFor(n)
				m.mode = ModeConfirm
				return m, nil
			}

		case ModeConfirm:
			if msg.String() == "ctrl+c" {
				return m, tea.Quit
			}
			if m.confirmation.YesSelected && msg.String() == "enter" || msg.String() == "y" {
				m.mode = ModeExecuting
			}
			return m, m.confirmation.Update(msg)

		case ModeComplete, ModeError:
			switch msg.String() {
			case "ctrl+c", "q", "enter":
				return m, tea.Quit
			}
		}
	}

	if m.mode == ModeList {
		var cmd tea.Cmd
		m.list, cmd = m.list.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m MigrateModel) confirmFor(n int) ConfirmationDialog {
	message := fmt.Sprintf("Apply %d pending migration(s)?", n)
	if m.action == "down" {
		message = "Roll back the most recently applied migration?"
	}
	d := NewConfirmationDialog(fmt.Sprintf("Confirm Migration %s", strings.ToUpper(m.action)), message)
	runner, action, spin := m.runner, m.action, m.spinner
	d.OnConfirm = func() tea.Cmd {
		return tea.Batch(spin.Tick, runMigrations(runner, action))
	}
	d.OnCancel = func() tea.Cmd {
		return func() tea.Msg { return cancelConfirmMsg{} }
	}
	return d
}

func (m MigrateModel) View() string {
	place := func(s string) string {
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, s)
	}

	switch m.mode {
	case ModeList:
		help := helpStyle.Render(
			FormatKey("↑/↓", "navigate") + " • " +
				FormatKey("enter", "migrate "+m.action) + " • " +
				FormatKey("q", "quit"),
		)
		return lipgloss.JoinVertical(lipgloss.Left, m.list.View(), help)

	case ModeConfirm:
		return place(m.confirmation.View())

	case ModeExecuting:
		return place(boxStyle.Render(m.spinner.View() + " " + infoStyle.Render("Running migrations...")))

	case ModeComplete:
		return place(boxStyle.Render(titleStyle.Render("Migration Complete!") + "\n\n" +
			successStyle.Render(m.result) + "\n\n" +
			helpStyle.Render(FormatKey("enter/q", "exit"))))

	case ModeError:
		return place(boxStyle.Render(titleStyle.Render("Migration Failed") + "\n\n" +
			errorTextStyle.Render(m.err.Error()) + "\n\n" +
			helpStyle.Render(FormatKey("enter/q", "exit"))))
	}

	return "Unknown mode"
}

// RunMigrateUI starts the interactive migration UI
func RunMigrateUI(action string, runner MigrationRunner) error {
	p := tea.NewProgram(NewMigrateModel(action, runner), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
