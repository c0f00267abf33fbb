// Package gateway turns user intents into writes against the document
// service. It never touches the live snapshot; changes come back through
// the change feed.
package gateway

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/fentz26/taskboard/internal/livestore"
	"github.com/fentz26/taskboard/internal/models"
)

// Writer issues remote writes scoped to an owner.
type Writer interface {
	CreateTask(ctx context.Context, ownerID string, t models.Task) (string, error)
	UpdateTask(ctx context.Context, ownerID, id string, patch models.TaskPatch) error
	DeleteTask(ctx context.Context, ownerID, id string) error
}

// Uploader stores attachment bytes and returns a reference URL.
type Uploader interface {
	Upload(ctx context.Context, ownerID, name string, data []byte) (string, error)
}

// Lookup reads the current snapshot. *livestore.Store satisfies it.
type Lookup interface {
	Current() livestore.Snapshot
}

// Attachment is a file to upload with a new task.
type Attachment struct {
	Name string
	Data []byte
}

// Draft is the raw form input for a new task.
type Draft struct {
	Content     string
	Description string
	Category    string
	Priority    string
	Project     string
	Tags        string // comma separated
	TaskDate    string // YYYY-MM-DD, empty for today
	StartTime   string // HH:MM
	EndTime     string // HH:MM
	Attachment  *Attachment
}

// Options configures a Gateway.
type Options struct {
	Clock    models.Clock
	Location *time.Location
}

// Gateway validates and forwards task mutations.
type Gateway struct {
	w      Writer
	up     Uploader
	lookup Lookup
	clock  models.Clock
	loc    *time.Location
}

// New creates a gateway. up may be nil when attachments are not supported.
func New(w Writer, up Uploader, lookup Lookup, opts Options) *Gateway {
	if opts.Clock == nil {
		opts.Clock = models.RealClock{}
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	return &Gateway{w: w, up: up, lookup: lookup, clock: opts.Clock, loc: opts.Location}
}

// SetLocation changes the zone used to decide "today".
func (g *Gateway) SetLocation(loc *time.Location) {
	if loc != nil {
		g.loc = loc
	}
}

func (g *Gateway) owner() (string, error) {
	owner := g.lookup.Current().OwnerID()
	if owner == "" {
		return "", models.Invalid("owner", "sign in first")
	}
	return owner, nil
}

// Prepare validates d and builds the task that CreateTask would write,
// without an id.
func (g *Gateway) Prepare(d Draft) (models.Task, error) {
	content := strings.TrimSpace(d.Content)
	if content == "" {
		return models.Task{}, models.Invalid("content", "task title is required")
	}

	date := models.Today(g.clock, g.loc)
	if s := strings.TrimSpace(d.TaskDate); s != "" {
		parsed, err := models.ParseDate(s)
		if err != nil {
			return models.Task{}, models.Invalid("taskDate", "date must be YYYY-MM-DD, got %q", s)
		}
		date = parsed
	}

	start, end := strings.TrimSpace(d.StartTime), strings.TrimSpace(d.EndTime)
	if err := checkTimes(start, end); err != nil {
		return models.Task{}, err
	}

	category := models.CategoryDevelopment
	if s := strings.TrimSpace(d.Category); s != "" {
		if category = models.ParseCategory(s); category == models.CategoryUnspecified {
			return models.Task{}, models.Invalid("category", "unknown category %q", s)
		}
	}
	priority := models.PriorityMedium
	if s := strings.TrimSpace(d.Priority); s != "" {
		if priority = models.ParsePriority(s); priority == models.PriorityUnspecified {
			return models.Task{}, models.Invalid("priority", "unknown priority %q", s)
		}
	}

	return models.Task{
		Content:     content,
		Description: strings.TrimSpace(d.Description),
		Category:    category,
		Priority:    priority,
		Project:     strings.TrimSpace(d.Project),
		Tags:        SplitTags(d.Tags),
		TaskDate:    date,
		StartTime:   start,
		EndTime:     end,
		Status:      models.TaskStatusPending,
		CreatedAt:   models.EpochMillis(g.clock.Now()),
	}, nil
}

func checkTimes(start, end string) error {
	var s, e int
	var err error
	if start != "" {
		if s, err = models.ParseTimeOfDay(start); err != nil {
			return models.Invalid("startTime", "start time must be HH:MM")
		}
	}
	if end != "" {
		if e, err = models.ParseTimeOfDay(end); err != nil {
			return models.Invalid("endTime", "end time must be HH:MM")
		}
	}
	if start != "" && end != "" && s >= e {
		return models.Invalid("endTime", "end time must be after start time")
	}
	return nil
}

// SplitTags splits comma-separated input, dropping blanks.
func SplitTags(s string) []string {
	var tags []string
	for _, tag := range strings.Split(s, ",") {
		if tag = strings.TrimSpace(tag); tag != "" {
			tags = append(tags, tag)
		}
	}
	return tags
}

// CreateTask validates d, uploads its attachment and writes a pending task.
// It returns the id assigned by the store.
func (g *Gateway) CreateTask(ctx context.Context, d Draft) (string, error) {
	owner, err := g.owner()
	if err != nil {
		return "", err
	}
	task, err := g.Prepare(d)
	if err != nil {
		return "", err
	}
	task.OwnerID = owner

	if d.Attachment != nil && len(d.Attachment.Data) > 0 {
		if g.up == nil {
			return "", models.Invalid("attachment", "attachments are not supported")
		}
		url, err := g.up.Upload(ctx, owner, d.Attachment.Name, d.Attachment.Data)
		if err != nil {
			return "", &models.SyncError{Op: "upload", Err: err}
		}
		task.FileURL = url
	}

	id, err := g.w.CreateTask(ctx, owner, task)
	if err != nil {
		return "", remoteErr("create", err)
	}
	return id, nil
}

// ToggleStatus flips a task between pending and completed. A task that is
// not in the snapshot, or already gone remotely, is left alone.
func (g *Gateway) ToggleStatus(ctx context.Context, id string) error {
	snap := g.lookup.Current()
	task, ok := snap.Get(id)
	if !ok {
		return nil
	}

	next := task.Status.Toggled()
	patch := models.TaskPatch{Status: &next}
	if next == models.TaskStatusCompleted {
		now := models.EpochMillis(g.clock.Now())
		patch.CompletedAt = &now
	} else {
		patch.ClearCompletedAt = true
	}

	if err := g.w.UpdateTask(ctx, snap.OwnerID(), id, patch); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil
		}
		return remoteErr("update", err)
	}
	return nil
}

// EditTask applies field edits. Status changes go through ToggleStatus.
func (g *Gateway) EditTask(ctx context.Context, id string, patch models.TaskPatch) error {
	snap := g.lookup.Current()
	task, ok := snap.Get(id)
	if !ok {
		return nil
	}
	if patch.Status != nil || patch.CompletedAt != nil || patch.ClearCompletedAt {
		return models.Invalid("status", "use toggle to change status")
	}
	if patch.Content != nil {
		c := strings.TrimSpace(*patch.Content)
		if c == "" {
			return models.Invalid("content", "task title is required")
		}
		patch.Content = &c
	}
	if patch.Category != nil && models.ParseCategory(string(*patch.Category)) == models.CategoryUnspecified {
		return models.Invalid("category", "unknown category %q", *patch.Category)
	}
	if patch.Priority != nil && models.ParsePriority(string(*patch.Priority)) == models.PriorityUnspecified {
		return models.Invalid("priority", "unknown priority %q", *patch.Priority)
	}
	if patch.TaskDate != nil && !patch.TaskDate.Valid() {
		return models.Invalid("taskDate", "date must be YYYY-MM-DD")
	}
	edited := patch.Apply(task)
	if err := checkTimes(edited.StartTime, edited.EndTime); err != nil {
		return err
	}

	if err := g.w.UpdateTask(ctx, snap.OwnerID(), id, patch); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil
		}
		return remoteErr("update", err)
	}
	return nil
}

// DeleteTask removes a task. Deleting a task that is already gone is a no-op.
func (g *Gateway) DeleteTask(ctx context.Context, id string) error {
	snap := g.lookup.Current()
	if _, ok := snap.Get(id); !ok {
		return nil
	}
	if err := g.w.DeleteTask(ctx, snap.OwnerID(), id); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil
		}
		return remoteErr("delete", err)
	}
	return nil
}

func remoteErr(op string, err error) error {
	if models.IsValidation(err) || models.IsSync(err) {
		return err
	}
	return &models.SyncError{Op: op, Err: err}
}
