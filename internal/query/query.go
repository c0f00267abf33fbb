// Package query filters and searches task snapshots.
package query

import (
	"strings"

	"github.com/fentz26/taskboard/internal/models"
)

// All matches every category or status.
const All = "all"

// Criteria selects tasks. Zero-value fields behave like their defaults.
type Criteria struct {
	SearchTerm string      `json:"searchTerm"`
	Category   string      `json:"category"` // "all" or a category value
	Status     string      `json:"status"`   // "all", "pending" or "completed"
	Date       models.Date `json:"date"`     // empty for any date
}

// DefaultCriteria matches every task.
func DefaultCriteria() Criteria {
	return Criteria{Category: All, Status: All}
}

// IsDefault reports whether c matches every task.
func (c Criteria) IsDefault() bool {
	return strings.TrimSpace(c.SearchTerm) == "" &&
		isAll(c.Category) && isAll(c.Status) && c.Date == ""
}

func isAll(v string) bool {
	return v == "" || strings.EqualFold(v, All)
}

// Filter returns the tasks matching c, preserving their order.
func Filter(tasks []models.Task, c Criteria) []models.Task {
	term := strings.ToLower(strings.TrimSpace(c.SearchTerm))
	out := make([]models.Task, 0, len(tasks))
	for _, t := range tasks {
		if matches(t, c, term) {
			out = append(out, t)
		}
	}
	return out
}

// Matches reports whether t satisfies c.
func Matches(t models.Task, c Criteria) bool {
	return matches(t, c, strings.ToLower(strings.TrimSpace(c.SearchTerm)))
}

func matches(t models.Task, c Criteria, term string) bool {
	if !isAll(c.Category) && !strings.EqualFold(string(t.Category), c.Category) {
		return false
	}
	if !isAll(c.Status) && !strings.EqualFold(string(t.Status), c.Status) {
		return false
	}
	if c.Date != "" && t.TaskDate != c.Date {
		return false
	}
	return term == "" || containsTerm(t, term)
}

func containsTerm(t models.Task, term string) bool {
	if strings.Contains(strings.ToLower(t.Content), term) ||
		strings.Contains(strings.ToLower(t.Description), term) ||
		strings.Contains(strings.ToLower(t.Project), term) {
		return true
	}
	for _, tag := range t.Tags {
		if strings.Contains(strings.ToLower(tag), term) {
			return true
		}
	}
	return false
}

// Projects returns the distinct non-empty project names in task order,
// used for project suggestions when creating a task.
func Projects(tasks []models.Task) []string {
	seen := make(map[string]bool)
	var out []string
	for _, t := range tasks {
		p := strings.TrimSpace(t.Project)
		if p == "" || seen[p] {
			continue
		}
		seen[p] = true
		out = append(out, p)
	}
	return out
}

// SuggestProjects returns known projects starting with prefix, case-insensitive.
func SuggestProjects(tasks []models.Task, prefix string) []string {
	prefix = strings.ToLower(strings.TrimSpace(prefix))
	var out []string
	for _, p := range Projects(tasks) {
		if strings.HasPrefix(strings.ToLower(p), prefix) {
			out = append(out, p)
		}
	}
	return out
}
