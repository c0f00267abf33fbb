package models

import (
	"strings"
)

// Document is a task record as it arrives from the document service, before
// any field is trusted. Every field is optional on the wire.
type Document struct {
	ID          *string  `json:"id"`
	Content     *string  `json:"content"`
	Description *string  `json:"description"`
	Category    *string  `json:"category"`
	Priority    *string  `json:"priority"`
	Project     *string  `json:"project"`
	Tags        []string `json:"tags"`
	TaskDate    *string  `json:"taskDate"`
	StartTime   *string  `json:"startTime"`
	EndTime     *string  `json:"endTime"`
	FileURL     *string  `json:"fileUrl"`
	Status      *string  `json:"status"`
	CreatedAt   *int64   `json:"createdAt"`
	CompletedAt *int64   `json:"completedAt"`
	OwnerID     *string  `json:"userId"`
}

func str(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

// Normalize turns a wire document into a Task that satisfies Check. It
// rejects documents without an id, a title or a valid task date, and folds
// unknown enum values into their unspecified buckets instead of failing.
func Normalize(doc Document) (Task, error) {
	id := strings.TrimSpace(str(doc.ID))
	if id == "" {
		return Task{}, Invalid("id", "document has no id")
	}
	content := strings.TrimSpace(str(doc.Content))
	if content == "" {
		return Task{}, Invalid("content", "document %s has no content", id)
	}
	date, err := ParseDate(strings.TrimSpace(str(doc.TaskDate)))
	if err != nil {
		return Task{}, Invalid("taskDate", "document %s has invalid task date %q", id, str(doc.TaskDate))
	}

	t := Task{
		ID:          id,
		Content:     content,
		Description: str(doc.Description),
		Category:    ParseCategory(str(doc.Category)),
		Priority:    ParsePriority(str(doc.Priority)),
		Project:     strings.TrimSpace(str(doc.Project)),
		TaskDate:    date,
		StartTime:   strings.TrimSpace(str(doc.StartTime)),
		EndTime:     strings.TrimSpace(str(doc.EndTime)),
		FileURL:     str(doc.FileURL),
		Status:      TaskStatus(strings.ToLower(str(doc.Status))),
		OwnerID:     str(doc.OwnerID),
	}
	if doc.CreatedAt != nil {
		t.CreatedAt = *doc.CreatedAt
	}
	for _, tag := range doc.Tags {
		if tag = strings.TrimSpace(tag); tag != "" {
			t.Tags = append(t.Tags, tag)
		}
	}
	if !t.Status.Valid() {
		t.Status = TaskStatusPending
	}

	switch {
	case t.IsCompleted() && doc.CompletedAt != nil:
		v := *doc.CompletedAt
		t.CompletedAt = &v
	case t.IsCompleted():
		v := t.CreatedAt
		t.CompletedAt = &v
	default:
		t.CompletedAt = nil
	}
	return t, nil
}

// ToDocument converts a trusted task back into its wire form.
func ToDocument(t Task) Document {
	s := func(v string) *string { return &v }
	doc := Document{
		ID:          s(t.ID),
		Content:     s(t.Content),
		Description: s(t.Description),
		Category:    s(string(t.Category)),
		Priority:    s(string(t.Priority)),
		Project:     s(t.Project),
		Tags:        append([]string(nil), t.Tags...),
		TaskDate:    s(string(t.TaskDate)),
		StartTime:   s(t.StartTime),
		EndTime:     s(t.EndTime),
		FileURL:     s(t.FileURL),
		Status:      s(string(t.Status)),
		OwnerID:     s(t.OwnerID),
	}
	created := t.CreatedAt
	doc.CreatedAt = &created
	if t.CompletedAt != nil {
		v := *t.CompletedAt
		doc.CompletedAt = &v
	}
	return doc
}
