// Package cli provides styled terminal output and the interactive
// outcome review prompt.
package cli

import (
	"github.com/charmbracelet/lipgloss"
)

// The palette leans violet and blue; alerts keep conventional colors.
var (
	accent  = lipgloss.Color("#7C6FF0")
	ok      = lipgloss.Color("#2ECC71")
	caution = lipgloss.Color("#F1C40F")
	alarm   = lipgloss.Color("#E74C3C")
	notice  = lipgloss.Color("#5DADE2")
	faint   = lipgloss.Color("#777777")
)

// Styles shared by the interactive surfaces.
var (
	TitleStyle   = lipgloss.NewStyle().Bold(true).Foreground(accent).MarginBottom(1)
	SuccessStyle = lipgloss.NewStyle().Foreground(ok)
	WarningStyle = lipgloss.NewStyle().Foreground(caution)
	ErrorStyle   = lipgloss.NewStyle().Foreground(alarm)
	InfoStyle    = lipgloss.NewStyle().Foreground(notice)
	SubtleStyle  = lipgloss.NewStyle().Foreground(faint)

	promptStyle = lipgloss.NewStyle().Bold(true).Foreground(accent)

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(faint).
			Padding(1, 2)
)

// Icons.
const (
	SuccessIcon = "✓"
	ErrorIcon   = "✗"
	WarningIcon = "⚠️"
	InfoIcon    = "ℹ️"
	BotIcon     = "🤖"
	ChartIcon   = "📊"
	SpeechIcon  = "💬"
)

// FormatSuccess renders a message with the success icon and color.
func FormatSuccess(message string) string {
	return SuccessStyle.Render(SuccessIcon + " " + message)
}

// FormatError renders a message with the error icon and color.
func FormatError(message string) string {
	return ErrorStyle.Render(ErrorIcon + " " + message)
}

// FormatWarning renders a message with the warning icon and color.
func FormatWarning(message string) string {
	return WarningStyle.Render(WarningIcon + " " + message)
}

// FormatInfo renders a message with the info icon and color.
func FormatInfo(message string) string {
	return InfoStyle.Render(InfoIcon + " " + message)
}

// FormatTitle renders a section title with the bot icon.
func FormatTitle(title string) string {
	return TitleStyle.Render(BotIcon + " " + title)
}

// FormatPrompt renders an input prompt with a trailing arrow.
func FormatPrompt(prompt string) string {
	return promptStyle.Render(prompt + " → ")
}

// RenderBox draws titled content inside a rounded border.
func RenderBox(title, content string) string {
	heading := TitleStyle.UnsetMargins().Render(title)
	return boxStyle.Render(lipgloss.JoinVertical(lipgloss.Left, heading, content))
}
