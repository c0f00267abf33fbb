package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/fentz26/taskboard/internal/models"
)

var (
	// Colors
	primaryColor   = lipgloss.Color("#7C3AED")
	secondaryColor = lipgloss.Color("#6366F1")
	successColor   = lipgloss.Color("#10B981")
	warningColor   = lipgloss.Color("#F59E0B")
	errorColor     = lipgloss.Color("#EF4444")
	mutedColor     = lipgloss.Color("#6B7280")
	fgColor        = lipgloss.Color("#F9FAFB")
	cyanColor      = lipgloss.Color("#06B6D4")

	// Heat-map intensity, level 0 to 4.
	levelColors = [5]lipgloss.Color{"#374151", "#0E4429", "#006D32", "#26A641", "#39D353"}

	// Styles
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(primaryColor).
			Padding(0, 1)

	statusBarStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("#374151")).
			Foreground(fgColor).
			Padding(0, 1)

	inputBoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(primaryColor).
			Padding(0, 1)

	taskItemStyle = lipgloss.NewStyle().
			Padding(0, 2)

	selectedStyle = lipgloss.NewStyle().
			Background(primaryColor).
			Foreground(fgColor).
			Bold(true).
			Padding(0, 2)

	helpStyle = lipgloss.NewStyle().
			Foreground(mutedColor).
			Italic(true)

	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(mutedColor).
			Padding(0, 1)

	headingStyle = lipgloss.NewStyle().Bold(true).Foreground(cyanColor)
	mutedStyle   = lipgloss.NewStyle().Foreground(mutedColor)
	onlineStyle  = lipgloss.NewStyle().Foreground(successColor).Bold(true)
	offlineStyle = lipgloss.NewStyle().Foreground(errorColor)
)

func priorityStyle(p models.Priority) lipgloss.Style {
	switch p {
	case models.PriorityUrgent:
		return lipgloss.NewStyle().Foreground(errorColor).Bold(true)
	case models.PriorityHigh:
		return lipgloss.NewStyle().Foreground(warningColor)
	case models.PriorityMedium:
		return lipgloss.NewStyle().Foreground(secondaryColor)
	default:
		return mutedStyle
	}
}

func formatStatus(t models.Task) string {
	if t.IsCompleted() {
		return lipgloss.NewStyle().Foreground(successColor).Render("● DONE")
	}
	return lipgloss.NewStyle().Foreground(warningColor).Render("○ TODO")
}

func formatStatusPlain(t models.Task) string {
	if t.IsCompleted() {
		return "●"
	}
	return "○"
}
