package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/fentz26/taskboard/internal/models"
)

// Suggestions provides autocomplete for commands and quick-add tokens
type Suggestions struct {
	items        []SuggestionItem
	filtered     []SuggestionItem
	selectedIdx  int
	visible      bool
	prefix       string // "/", "@", "^" or "!"
	currentInput string
	projects     []string
}

// SuggestionItem represents a single autocomplete suggestion
type SuggestionItem struct {
	Text        string
	Description string
	Type        string // "command", "project", "category", "priority"
}

var commandSuggestions = []SuggestionItem{
	{Text: "add", Description: "Create a task (@project #tag !priority ^category due:date 09:00-10:00)", Type: "command"},
	{Text: "done", Description: "Toggle the selected task", Type: "command"},
	{Text: "edit", Description: "Edit a field: edit <title|desc|project|category|priority|date|time|tags> <value>", Type: "command"},
	{Text: "del", Description: "Delete the selected task", Type: "command"},
	{Text: "search", Description: "Search titles, descriptions and projects", Type: "command"},
	{Text: "filter", Description: "Filter: filter category:<c> status:<s> date:<d>", Type: "command"},
	{Text: "clear", Description: "Reset search and filters", Type: "command"},
	{Text: "start", Description: "Start the timer on the selected task", Type: "command"},
	{Text: "pause", Description: "Pause the timer", Type: "command"},
	{Text: "reset", Description: "Discard the running session", Type: "command"},
	{Text: "save", Description: "Save the session to the time log", Type: "command"},
	{Text: "login", Description: "Sign in: login <email>", Type: "command"},
	{Text: "logout", Description: "Sign out", Type: "command"},
	{Text: "whoami", Description: "Show current user info", Type: "command"},
	{Text: "name", Description: "Set your display name", Type: "command"},
	{Text: "tz", Description: "Set your timezone, e.g. tz Europe/Berlin", Type: "command"},
	{Text: "quit", Description: "Exit", Type: "command"},
}

// NewSuggestions creates a new suggestions handler
func NewSuggestions() *Suggestions {
	return &Suggestions{
		items:   commandSuggestions,
		visible: false,
	}
}

// SetProjects updates the project names offered after "@".
func (s *Suggestions) SetProjects(projects []string) {
	s.projects = projects
}

// Update updates suggestions based on current input
func (s *Suggestions) Update(input string) {
	s.currentInput = input
	if input == "" || strings.HasSuffix(input, " ") {
		s.hide()
		return
	}

	if input[0] == '/' && !strings.Contains(input, " ") {
		s.prefix = "/"
		s.items = commandSuggestions
		s.visible = true
		s.filter(strings.ToLower(input[1:]))
		return
	}

	word := lastWord(input)
	if len(word) == 0 {
		s.hide()
		return
	}
	query := strings.ToLower(word[1:])
	switch word[0] {
	case '@':
		s.prefix = "@"
		s.items = make([]SuggestionItem, 0, len(s.projects))
		for _, p := range s.projects {
			s.items = append(s.items, SuggestionItem{Text: p, Description: "Project", Type: "project"})
		}
	case '^':
		s.prefix = "^"
		s.items = make([]SuggestionItem, 0, len(models.Categories))
		for _, c := range models.Categories {
			s.items = append(s.items, SuggestionItem{Text: string(c), Type: "category"})
		}
	case '!':
		s.prefix = "!"
		s.items = make([]SuggestionItem, 0, len(models.Priorities))
		for _, p := range models.Priorities {
			s.items = append(s.items, SuggestionItem{Text: string(p), Type: "priority"})
		}
	default:
		s.hide()
		return
	}
	s.visible = true
	s.filter(query)
}

func (s *Suggestions) hide() {
	s.visible = false
	s.filtered = nil
	s.prefix = ""
}

func lastWord(input string) string {
	if i := strings.LastIndex(input, " "); i >= 0 {
		return input[i+1:]
	}
	return input
}

func (s *Suggestions) filter(query string) {
	if query == "" {
		s.filtered = s.items
		s.selectedIdx = 0
		return
	}

	s.filtered = []SuggestionItem{}
	for _, item := range s.items {
		if strings.Contains(strings.ToLower(item.Text), query) {
			s.filtered = append(s.filtered, item)
		}
	}
	s.selectedIdx = 0
}

// Complete returns the input with the word being typed replaced by the
// selected suggestion.
func (s *Suggestions) Complete() string {
	sel := s.Selected()
	if sel == nil {
		return s.currentInput
	}
	if s.prefix == "/" {
		return sel.Text + " "
	}
	text := sel.Text
	if s.prefix == "@" {
		text = strings.ReplaceAll(text, " ", "_")
	}
	word := lastWord(s.currentInput)
	return s.currentInput[:len(s.currentInput)-len(word)] + s.prefix + text + " "
}

// Next moves to the next suggestion
func (s *Suggestions) Next() {
	if len(s.filtered) == 0 {
		return
	}
	s.selectedIdx = (s.selectedIdx + 1) % len(s.filtered)
}

// Prev moves to the previous suggestion
func (s *Suggestions) Prev() {
	if len(s.filtered) == 0 {
		return
	}
	s.selectedIdx--
	if s.selectedIdx < 0 {
		s.selectedIdx = len(s.filtered) - 1
	}
}

// Selected returns the currently selected suggestion
func (s *Suggestions) Selected() *SuggestionItem {
	if !s.visible || len(s.filtered) == 0 || s.selectedIdx >= len(s.filtered) {
		return nil
	}
	return &s.filtered[s.selectedIdx]
}

// IsVisible returns whether suggestions are currently visible
func (s *Suggestions) IsVisible() bool {
	return s.visible && len(s.filtered) > 0
}

// Render renders the suggestions dropdown
func (s *Suggestions) Render(width int) string {
	if !s.IsVisible() {
		return ""
	}

	var b strings.Builder

	suggestionStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(secondaryColor).
		Padding(0, 1).
		Width(width - 4)

	itemStyle := lipgloss.NewStyle().Foreground(fgColor)
	descStyle := lipgloss.NewStyle().Foreground(mutedColor).Italic(true)
	activeStyle := lipgloss.NewStyle().Background(primaryColor).Foreground(fgColor).Bold(true)

	var header string
	switch s.prefix {
	case "/":
		header = "Commands"
	case "@":
		header = "Projects"
	case "^":
		header = "Categories"
	case "!":
		header = "Priorities"
	}
	b.WriteString(lipgloss.NewStyle().Bold(true).Foreground(primaryColor).Render(header))
	b.WriteString("\n")

	// Show max 5 suggestions
	maxVisible := 5
	for i, item := range s.filtered {
		if i >= maxVisible {
			b.WriteString(descStyle.Render(fmt.Sprintf("  ... and %d more", len(s.filtered)-maxVisible)))
			break
		}

		var line string
		if i == s.selectedIdx {
			line = activeStyle.Render("▶ " + item.Text)
			if item.Description != "" {
				line += " " + activeStyle.Render(item.Description)
			}
		} else {
			line = itemStyle.Render("  " + item.Text)
			if item.Description != "" {
				line += " " + descStyle.Render(item.Description)
			}
		}
		b.WriteString(line)
		b.WriteString("\n")
	}

	return suggestionStyle.Render(b.String())
}
