package tui

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/fentz26/taskboard/internal/gateway"
	"github.com/fentz26/taskboard/internal/models"
)

var timeRange = regexp.MustCompile(`^(\d{1,2}:\d{2})-(\d{1,2}:\d{2})$`)

// ParseQuickAdd turns a one-line task description into a draft:
//
//	Fix login @apollo #auth #web !high ^bug-fixing due:tomorrow 09:00-11:00
//
// @project, #tag, !priority, ^category, due:<date|today|tomorrow|yesterday>
// and a HH:MM-HH:MM range may appear anywhere; the remaining words form the
// title. Values are checked later by the gateway.
func ParseQuickAdd(input string, today models.Date) (gateway.Draft, error) {
	var d gateway.Draft
	var title, tags []string

	for _, word := range strings.Fields(input) {
		switch {
		case len(word) > 1 && word[0] == '@':
			d.Project = strings.ReplaceAll(word[1:], "_", " ")
		case len(word) > 1 && word[0] == '#':
			tags = append(tags, word[1:])
		case len(word) > 1 && word[0] == '!':
			d.Priority = word[1:]
		case len(word) > 1 && word[0] == '^':
			d.Category = word[1:]
		case strings.HasPrefix(word, "due:"):
			date, err := resolveDate(strings.TrimPrefix(word, "due:"), today)
			if err != nil {
				return gateway.Draft{}, err
			}
			d.TaskDate = string(date)
		case timeRange.MatchString(word):
			m := timeRange.FindStringSubmatch(word)
			d.StartTime, d.EndTime = padTime(m[1]), padTime(m[2])
		default:
			title = append(title, word)
		}
	}

	d.Content = strings.Join(title, " ")
	if d.Content == "" {
		return gateway.Draft{}, models.Invalid("content", "task title is required")
	}
	d.Tags = strings.Join(tags, ",")
	return d, nil
}

func resolveDate(s string, today models.Date) (models.Date, error) {
	switch strings.ToLower(s) {
	case "today":
		return today, nil
	case "tomorrow":
		return today.AddDays(1), nil
	case "yesterday":
		return today.AddDays(-1), nil
	}
	d, err := models.ParseDate(s)
	if err != nil {
		return "", models.Invalid("taskDate", "due date must be YYYY-MM-DD, today or tomorrow, got %q", s)
	}
	return d, nil
}

// padTime turns 9:00 into 09:00.
func padTime(s string) string {
	if len(s) == 4 {
		return fmt.Sprintf("0%s", s)
	}
	return s
}
