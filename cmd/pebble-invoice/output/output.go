package output

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	// Color styles for terminal output
	colorSuccess = lipgloss.Color("#10B981")
	colorWarning = lipgloss.Color("#F59E0B")
	colorError   = lipgloss.Color("#EF4444")
	colorInfo    = lipgloss.Color("#3B82F6")
	colorMuted   = lipgloss.Color("#6B7280")
	colorPrimary = lipgloss.Color("#7C3AED")

	successStyle = lipgloss.NewStyle().Foreground(colorSuccess).Bold(true)
	warningStyle = lipgloss.NewStyle().Foreground(colorWarning).Bold(true)
	errorStyle   = lipgloss.NewStyle().Foreground(colorError).Bold(true)
	infoStyle    = lipgloss.NewStyle().Foreground(colorInfo)
	mutedStyle   = lipgloss.NewStyle().Foreground(colorMuted)
	primaryStyle = lipgloss.NewStyle().Foreground(colorPrimary).Bold(true)
)

var out io.Writer = os.Stdout

// SetWriter redirects all output, returning the previous writer.
func SetWriter(w io.Writer) io.Writer {
	prev := out
	out = w
	return prev
}

// Writer returns the current output destination.
func Writer() io.Writer {
	return out
}

// Success prints a success message
func Success(format string, args ...any) {
	fmt.Fprint(out, successStyle.Render("✓ "))
	fmt.Fprintf(out, format+"\n", args...)
}

// Warning prints a warning message
func Warning(format string, args ...any) {
	fmt.Fprint(out, warningStyle.Render("⚠ "))
	fmt.Fprintf(out, format+"\n", args...)
}

// Error prints an error message
func Error(format string, args ...any) {
	fmt.Fprint(out, errorStyle.Render("✗ "))
	fmt.Fprintf(out, format+"\n", args...)
}

// Info prints an info message
func Info(format string, args ...any) {
	fmt.Fprint(out, infoStyle.Render("ℹ "))
	fmt.Fprintf(out, format+"\n", args...)
}

// Muted prints a muted message
func Muted(format string, args ...any) {
	fmt.Fprintln(out, mutedStyle.Render(fmt.Sprintf(format, args...)))
}

// Section prints a section header
func Section(title string) {
	fmt.Fprintln(out)
	fmt.Fprintln(out, primaryStyle.Render(title))
	fmt.Fprintln(out, mutedStyle.Render(strings.Repeat("═", lipgloss.Width(title))))
	fmt.Fprintln(out)
}

// Plain prints s unstyled.
func Plain(s string) {
	fmt.Fprint(out, s)
}

// StatusIcon returns a colored status icon
func StatusIcon(status string) string {
	switch status {
	case "applied":
		return successStyle.Render("✓")
	case "pending":
		return warningStyle.Render("○")
	case "failed":
		return errorStyle.Render("✗")
	default:
		return mutedStyle.Render("•")
	}
}
