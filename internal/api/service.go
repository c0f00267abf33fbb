// Package api provides the HTTP API and service layer of the taskboard
// document service.
package api

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/fentz26/taskboard/internal/audit"
	"github.com/fentz26/taskboard/internal/models"
	"github.com/fentz26/taskboard/internal/store"
)

const (
	// MaxAttachmentSize bounds uploads.
	MaxAttachmentSize = 10 << 20
	// MaxWait bounds a long-poll request.
	MaxWait = 60 * time.Second

	feedPageSize = 500
)

// Service provides the document service business logic.
type Service struct {
	store *store.Store
	audit *audit.Recorder
	poll  time.Duration
}

// NewService creates a new document service.
func NewService(s *store.Store, rec *audit.Recorder) *Service {
	return &Service{
		store: s,
		audit: rec,
		poll:  250 * time.Millisecond,
	}
}

// SetPollInterval changes how often a waiting feed request checks the
// change log.
func (s *Service) SetPollInterval(d time.Duration) {
	if d > 0 {
		s.poll = d
	}
}

func checkOwner(ownerID string) error {
	if strings.TrimSpace(ownerID) == "" {
		return ErrOwnerRequired
	}
	return nil
}

// --- Task Operations ---

// CreateTask stores a new pending task for ownerID.
func (s *Service) CreateTask(ctx context.Context, ownerID string, t models.Task) (models.Task, error) {
	if err := checkOwner(ownerID); err != nil {
		return models.Task{}, err
	}
	t.Content = strings.TrimSpace(t.Content)
	if t.Content == "" {
		return models.Task{}, s.reject("task.create", t, ownerID, "", models.Invalid("content", "task title is required"))
	}
	if err := checkTimes(t.StartTime, t.EndTime); err != nil {
		return models.Task{}, s.reject("task.create", t, ownerID, "", err)
	}
	t.Category = models.ParseCategory(string(t.Category))
	t.Priority = models.ParsePriority(string(t.Priority))
	t.Status = models.TaskStatusPending
	t.CompletedAt = nil
	if t.CreatedAt == 0 {
		t.CreatedAt = models.EpochMillis(time.Now())
	}

	created, err := s.store.CreateTask(ctx, ownerID, t)
	if err != nil {
		if models.IsValidation(err) {
			return models.Task{}, s.reject("task.create", t, ownerID, "", err)
		}
		return models.Task{}, err
	}

	s.audit.Record("task.create", map[string]string{"content": created.Content}, audit.OutcomeSuccess, ownerID, created.ID, "")
	return created, nil
}

// ListTasks returns ownerID's full state and the change-log position it reflects.
func (s *Service) ListTasks(ctx context.Context, ownerID string) ([]models.Task, int64, error) {
	if err := checkOwner(ownerID); err != nil {
		return nil, 0, err
	}
	return s.store.Snapshot(ctx, ownerID)
}

// UpdateTask applies patch to one of ownerID's tasks.
func (s *Service) UpdateTask(ctx context.Context, ownerID, id string, patch models.TaskPatch) (models.Task, error) {
	if err := checkOwner(ownerID); err != nil {
		return models.Task{}, err
	}
	if patch.Content != nil && strings.TrimSpace(*patch.Content) == "" {
		return models.Task{}, s.reject("task.update", patch, ownerID, id, models.Invalid("content", "task title is required"))
	}
	if patch.Status != nil && !patch.Status.Valid() {
		return models.Task{}, s.reject("task.update", patch, ownerID, id, models.Invalid("status", "unknown status %q", *patch.Status))
	}
	if patch.Category != nil && models.ParseCategory(string(*patch.Category)) == models.CategoryUnspecified {
		return models.Task{}, s.reject("task.update", patch, ownerID, id, models.Invalid("category", "unknown category %q", *patch.Category))
	}
	if patch.Priority != nil && models.ParsePriority(string(*patch.Priority)) == models.PriorityUnspecified {
		return models.Task{}, s.reject("task.update", patch, ownerID, id, models.Invalid("priority", "unknown priority %q", *patch.Priority))
	}
	if patch.StartTime != nil || patch.EndTime != nil {
		current, err := s.store.GetTask(ctx, ownerID, id)
		if err != nil {
			return models.Task{}, err
		}
		next := patch.Apply(current)
		if err := checkTimes(next.StartTime, next.EndTime); err != nil {
			return models.Task{}, s.reject("task.update", patch, ownerID, id, err)
		}
	}

	updated, err := s.store.UpdateTask(ctx, ownerID, id, patch)
	if err != nil {
		if models.IsValidation(err) {
			return models.Task{}, s.reject("task.update", patch, ownerID, id, err)
		}
		return models.Task{}, err
	}

	s.audit.Record("task.update", patch, audit.OutcomeSuccess, ownerID, id, string(updated.Status))
	return updated, nil
}

// DeleteTask removes one of ownerID's tasks.
func (s *Service) DeleteTask(ctx context.Context, ownerID, id string) error {
	if err := checkOwner(ownerID); err != nil {
		return err
	}
	if err := s.store.DeleteTask(ctx, ownerID, id); err != nil {
		return err
	}
	s.audit.Record("task.delete", map[string]string{"task_id": id}, audit.OutcomeSuccess, ownerID, id, "")
	return nil
}

func (s *Service) reject(action string, inputs interface{}, ownerID, taskID string, err error) error {
	s.audit.Record(action, inputs, audit.OutcomeRejected, ownerID, taskID, err.Error())
	return err
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

// --- Change Feed ---

// Changes returns ownerID's changes after since. When there are none it
// waits up to wait for new ones before answering with an empty page.
func (s *Service) Changes(ctx context.Context, ownerID string, since int64, wait time.Duration) (FeedResponse, error) {
	if err := checkOwner(ownerID); err != nil {
		return FeedResponse{}, err
	}
	if since < 0 {
		return FeedResponse{}, fmt.Errorf("%w: negative cursor", ErrBadRequest)
	}
	if wait > MaxWait {
		wait = MaxWait
	}

	page, err := s.page(ctx, ownerID, since)
	if err != nil || len(page.Changes) > 0 || wait <= 0 {
		return page, err
	}

	deadline := time.NewTimer(wait)
	defer deadline.Stop()
	ticker := time.NewTicker(s.poll)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return page, nil
		case <-deadline.C:
			return page, nil
		case <-ticker.C:
			page, err = s.page(ctx, ownerID, since)
			if err != nil || len(page.Changes) > 0 {
				return page, err
			}
		}
	}
}

func (s *Service) page(ctx context.Context, ownerID string, since int64) (FeedResponse, error) {
	changes, err := s.store.ChangesSince(ctx, ownerID, since, feedPageSize)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return FeedResponse{Seq: since, Changes: []FeedChange{}}, nil
		}
		return FeedResponse{}, err
	}
	resp := FeedResponse{Seq: since, Changes: make([]FeedChange, 0, len(changes))}
	for _, c := range changes {
		fc := FeedChange{Seq: c.Seq, Kind: c.Kind, TaskID: c.TaskID}
		if c.Task != nil {
			doc := models.ToDocument(*c.Task)
			fc.Task = &doc
		}
		resp.Changes = append(resp.Changes, fc)
		resp.Seq = c.Seq
	}
	return resp, nil
}

// --- Attachment Operations ---

// Upload stores an attachment for ownerID.
func (s *Service) Upload(ctx context.Context, ownerID, name, contentType string, data []byte) (models.Attachment, error) {
	if err := checkOwner(ownerID); err != nil {
		return models.Attachment{}, err
	}
	if len(data) > MaxAttachmentSize {
		return models.Attachment{}, ErrAttachmentTooLarge
	}
	if name = strings.TrimSpace(name); name == "" {
		name = "attachment"
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	a, err := s.store.PutAttachment(ctx, ownerID, name, contentType, data)
	if err != nil {
		return models.Attachment{}, err
	}
	s.audit.Record("attachment.upload", map[string]interface{}{"name": name, "size": len(data)}, audit.OutcomeSuccess, ownerID, "", a.ID)
	return a, nil
}

// Attachment returns a stored attachment.
func (s *Service) Attachment(ctx context.Context, id string) (models.Attachment, []byte, error) {
	return s.store.GetAttachment(ctx, id)
}

// Audit returns ownerID's recent audit records.
func (s *Service) Audit(ctx context.Context, ownerID string, limit int) ([]models.AuditRecord, error) {
	if err := checkOwner(ownerID); err != nil {
		return nil, err
	}
	return s.store.ListAudit(ctx, ownerID, limit)
}

// Ping checks the database.
func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}
