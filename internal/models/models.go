// Package models defines the core domain types for taskboard.
package models

import (
	"strings"
	"time"
)

// TaskStatus represents the current state of a task.
type TaskStatus string

const (
	TaskStatusPending   TaskStatus = "pending"
	TaskStatusCompleted TaskStatus = "completed"
)

// Toggled returns the opposite status.
func (s TaskStatus) Toggled() TaskStatus {
	if s == TaskStatusCompleted {
		return TaskStatusPending
	}
	return TaskStatusCompleted
}

// Valid reports whether s is one of the two known statuses.
func (s TaskStatus) Valid() bool {
	return s == TaskStatusPending || s == TaskStatusCompleted
}

// Category is the kind of work a task represents.
type Category string

const (
	CategoryDevelopment   Category = "development"
	CategoryDesign        Category = "design"
	CategoryTesting       Category = "testing"
	CategoryDeployment    Category = "deployment"
	CategoryMaintenance   Category = "maintenance"
	CategoryMeetings      Category = "meetings"
	CategoryDocumentation Category = "documentation"
	CategoryResearch      Category = "research"
	CategoryBugFixing     Category = "bug-fixing"
	CategoryPlanning      Category = "planning"

	// CategoryUnspecified collects documents whose category is missing or unknown.
	CategoryUnspecified Category = "unspecified"
)

// Categories lists the selectable categories in display order.
var Categories = []Category{
	CategoryDevelopment,
	CategoryDesign,
	CategoryTesting,
	CategoryDeployment,
	CategoryMaintenance,
	CategoryMeetings,
	CategoryDocumentation,
	CategoryResearch,
	CategoryBugFixing,
	CategoryPlanning,
}

// ParseCategory maps s to a known category, or CategoryUnspecified.
func ParseCategory(s string) Category {
	c := Category(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Categories {
		if c == known {
			return c
		}
	}
	return CategoryUnspecified
}

// Priority is the urgency of a task.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"

	// PriorityUnspecified collects documents whose priority is missing or unknown.
	PriorityUnspecified Priority = "unspecified"
)

// Priorities lists the selectable priorities from least to most severe.
var Priorities = []Priority{PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent}

// Severity orders priorities: unspecified < low < medium < high < urgent.
func (p Priority) Severity() int {
	switch p {
	case PriorityLow:
		return 1
	case PriorityMedium:
		return 2
	case PriorityHigh:
		return 3
	case PriorityUrgent:
		return 4
	default:
		return 0
	}
}

// ParsePriority maps s to a known priority, or PriorityUnspecified.
func ParsePriority(s string) Priority {
	p := Priority(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Priorities {
		if p == known {
			return p
		}
	}
	return PriorityUnspecified
}

// UnassignedProject is the display name for tasks with an empty project.
const UnassignedProject = "Unassigned"

// Task is a unit of work owned by a single user.
type Task struct {
	ID          string     `json:"id"`
	Content     string     `json:"content"`
	Description string     `json:"description,omitempty"`
	Category    Category   `json:"category"`
	Priority    Priority   `json:"priority"`
	Project     string     `json:"project,omitempty"`
	Tags        []string   `json:"tags,omitempty"`
	TaskDate    Date       `json:"taskDate"`
	StartTime   string     `json:"startTime,omitempty"`
	EndTime     string     `json:"endTime,omitempty"`
	FileURL     string     `json:"fileUrl,omitempty"`
	Status      TaskStatus `json:"status"`
	CreatedAt   int64      `json:"createdAt"`             // epoch ms, immutable
	CompletedAt *int64     `json:"completedAt,omitempty"` // epoch ms, set only when completed
	OwnerID     string     `json:"userId"`
}

// IsCompleted reports whether the task is done.
func (t Task) IsCompleted() bool {
	return t.Status == TaskStatusCompleted
}

// ProjectName returns the project, or UnassignedProject when empty.
func (t Task) ProjectName() string {
	if strings.TrimSpace(t.Project) == "" {
		return UnassignedProject
	}
	return t.Project
}

// Hours returns the scheduled duration in hours. Tasks missing either time,
// or with an end not after the start, contribute zero.
func (t Task) Hours() float64 {
	if t.StartTime == "" || t.EndTime == "" {
		return 0
	}
	start, err := ParseTimeOfDay(t.StartTime)
	if err != nil {
		return 0
	}
	end, err := ParseTimeOfDay(t.EndTime)
	if err != nil || end <= start {
		return 0
	}
	return float64(end-start) / 60
}

// Clone returns a deep copy so callers can mutate slices and pointers freely.
func (t Task) Clone() Task {
	c := t
	if t.Tags != nil {
		c.Tags = append([]string(nil), t.Tags...)
	}
	if t.CompletedAt != nil {
		v := *t.CompletedAt
		c.CompletedAt = &v
	}
	return c
}

// Equal reports whether two tasks carry the same content.
func (t Task) Equal(o Task) bool {
	if t.ID != o.ID || t.Content != o.Content || t.Description != o.Description ||
		t.Category != o.Category || t.Priority != o.Priority || t.Project != o.Project ||
		t.TaskDate != o.TaskDate || t.StartTime != o.StartTime || t.EndTime != o.EndTime ||
		t.FileURL != o.FileURL || t.Status != o.Status || t.CreatedAt != o.CreatedAt ||
		t.OwnerID != o.OwnerID {
		return false
	}
	if (t.CompletedAt == nil) != (o.CompletedAt == nil) {
		return false
	}
	if t.CompletedAt != nil && *t.CompletedAt != *o.CompletedAt {
		return false
	}
	if len(t.Tags) != len(o.Tags) {
		return false
	}
	for i := range t.Tags {
		if t.Tags[i] != o.Tags[i] {
			return false
		}
	}
	return true
}

// Check validates the invariants every task in a snapshot must hold.
func (t Task) Check() error {
	if t.ID == "" {
		return &ValidationError{Field: "id", Message: "task id is required"}
	}
	if _, err := ParseDate(string(t.TaskDate)); err != nil {
		return &ValidationError{Field: "taskDate", Message: "task date must be YYYY-MM-DD"}
	}
	if (t.CompletedAt != nil) != t.IsCompleted() {
		return &ValidationError{Field: "completedAt", Message: "completedAt must be set exactly when completed"}
	}
	return nil
}

// TaskPatch is a partial update; nil fields are left unchanged.
type TaskPatch struct {
	Content     *string     `json:"content,omitempty"`
	Description *string     `json:"description,omitempty"`
	Category    *Category   `json:"category,omitempty"`
	Priority    *Priority   `json:"priority,omitempty"`
	Project     *string     `json:"project,omitempty"`
	Tags        *[]string   `json:"tags,omitempty"`
	TaskDate    *Date       `json:"taskDate,omitempty"`
	StartTime   *string     `json:"startTime,omitempty"`
	EndTime     *string     `json:"endTime,omitempty"`
	Status      *TaskStatus `json:"status,omitempty"`
	// ClearCompletedAt removes completedAt; CompletedAt sets it.
	CompletedAt      *int64 `json:"completedAt,omitempty"`
	ClearCompletedAt bool   `json:"clearCompletedAt,omitempty"`
}

// Apply returns t with the patch applied.
func (p TaskPatch) Apply(t Task) Task {
	out := t.Clone()
	if p.Content != nil {
		out.Content = *p.Content
	}
	if p.Description != nil {
		out.Description = *p.Description
	}
	if p.Category != nil {
		out.Category = *p.Category
	}
	if p.Priority != nil {
		out.Priority = *p.Priority
	}
	if p.Project != nil {
		out.Project = *p.Project
	}
	if p.Tags != nil {
		out.Tags = append([]string(nil), (*p.Tags)...)
	}
	if p.TaskDate != nil {
		out.TaskDate = *p.TaskDate
	}
	if p.StartTime != nil {
		out.StartTime = *p.StartTime
	}
	if p.EndTime != nil {
		out.EndTime = *p.EndTime
	}
	if p.Status != nil {
		out.Status = *p.Status
	}
	if p.ClearCompletedAt {
		out.CompletedAt = nil
	}
	if p.CompletedAt != nil {
		v := *p.CompletedAt
		out.CompletedAt = &v
	}
	return out
}

// TimeLogEntry is one saved timer session. Entries are never mutated.
type TimeLogEntry struct {
	ID         string `json:"id"`
	TaskID     string `json:"taskId"`
	TaskTitle  string `json:"taskTitle"`
	DurationMs int64  `json:"duration"`
	SavedAt    int64  `json:"date"` // epoch ms
}

// Preferences are lightweight per-user settings kept in local persistence.
type Preferences struct {
	DisplayName string `json:"displayName"`
	Timezone    string `json:"timezone"`
}

// Attachment describes an uploaded file. The bytes live in the document
// service; tasks only keep its URL.
type Attachment struct {
	ID          string    `json:"id"`
	OwnerID     string    `json:"ownerId"`
	Name        string    `json:"name"`
	ContentType string    `json:"contentType"`
	Size        int64     `json:"size"`
	CreatedAt   time.Time `json:"createdAt"`
}

// AuditRecord is a decision record written for every mutation the document
// service accepts or rejects.
type AuditRecord struct {
	ID         string    `json:"id"`
	Action     string    `json:"action"`
	InputsHash string    `json:"inputsHash"`
	Outcome    string    `json:"outcome"`
	OwnerID    string    `json:"ownerId"`
	TaskID     string    `json:"taskId,omitempty"`
	Details    string    `json:"details,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}
