package render

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	colorPrimary   = lipgloss.Color("99")
	colorSecondary = lipgloss.Color("241")
	colorSuccess   = lipgloss.Color("82")
	colorWarning   = lipgloss.Color("214")
	colorError     = lipgloss.Color("196")
	colorHighlight = lipgloss.Color("212")
	colorMuted     = lipgloss.Color("245")

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorPrimary).
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(colorPrimary).
			Padding(0, 1)

	sectionStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorHighlight).
			MarginTop(1)

	okStyle = lipgloss.NewStyle().
		Bold(true).
		Foreground(colorSuccess)

	warnStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorWarning)

	errorStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorError)

	labelStyle = lipgloss.NewStyle().
			Foreground(colorMuted)

	valueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252"))

	pathStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("244")).
			Italic(true)

	errorBoxStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(colorError).
			Padding(0, 1)

	warnBoxStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(colorWarning).
			Padding(0, 1)

	dividerStyle = lipgloss.NewStyle().
			Foreground(colorSecondary)

	iconOK      = okStyle.Render("✓")
	iconWarn    = warnStyle.Render("!")
	iconError   = errorStyle.Render("✗")
	iconMissing = errorStyle.Render("○")
)

// Status values accepted by StatusIcon.
const (
	StatusOK      = "ok"
	StatusWarn    = "warn"
	StatusError   = "error"
	StatusMissing = "missing"
)

// StatusIcon returns a coloured glyph for status.
func StatusIcon(status string) string {
	switch status {
	case StatusOK:
		return iconOK
	case StatusWarn:
		return iconWarn
	case StatusError:
		return iconError
	default:
		return iconMissing
	}
}

// Header renders a boxed title.
func Header(title string) string { return headerStyle.Render(title) }

// Section renders a section heading.
func Section(title string) string { return sectionStyle.Render(title) }

// Label renders a muted field label.
func Label(s string) string { return labelStyle.Render(s) }

// Value renders a field value.
func Value(s string) string { return valueStyle.Render(s) }

// Path renders a filesystem path.
func Path(s string) string { return pathStyle.Render(s) }

// Divider renders a horizontal rule width cells wide.
func Divider(width int) string {
	if width < 0 {
		width = 0
	}
	return dividerStyle.Render(strings.Repeat("─", width))
}
