package gateway

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fentz26/taskboard/internal/livestore"
	"github.com/fentz26/taskboard/internal/models"
)

type call struct {
	op    string
	owner string
	id    string
	task  models.Task
	patch models.TaskPatch
}

type fakeWriter struct {
	calls []call
	err   error
}

func (f *fakeWriter) CreateTask(_ context.Context, owner string, t models.Task) (string, error) {
	f.calls = append(f.calls, call{op: "create", owner: owner, task: t})
	if f.err != nil {
		return "", f.err
	}
	return fmt.Sprintf("id-%d", len(f.calls)), nil
}

func (f *fakeWriter) UpdateTask(_ context.Context, owner, id string, p models.TaskPatch) error {
	f.calls = append(f.calls, call{op: "update", owner: owner, id: id, patch: p})
	return f.err
}

func (f *fakeWriter) DeleteTask(_ context.Context, owner, id string) error {
	f.calls = append(f.calls, call{op: "delete", owner: owner, id: id})
	return f.err
}

type fakeUploader struct {
	names []string
	err   error
}

func (f *fakeUploader) Upload(_ context.Context, owner, name string, data []byte) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.names = append(f.names, name)
	return "http://files/" + owner + "/" + name, nil
}

type staticLookup struct{ snap livestore.Snapshot }

func (s staticLookup) Current() livestore.Snapshot { return s.snap }

var now = time.Date(2026, 10, 16, 14, 30, 0, 0, time.UTC)

func newGateway(tasks ...models.Task) (*Gateway, *fakeWriter, *fakeUploader) {
	w := &fakeWriter{}
	up := &fakeUploader{}
	snap := livestore.NewSnapshot("u1", 1, tasks)
	g := New(w, up, staticLookup{snap}, Options{Clock: models.NewFakeClock(now), Location: time.UTC})
	return g, w, up
}

func pendingTask(id string) models.Task {
	return models.Task{ID: id, Content: "x", TaskDate: "2026-10-16", Status: models.TaskStatusPending, OwnerID: "u1"}
}

func TestCreateTask_DefaultsAndTags(t *testing.T) {
	g, w, _ := newGateway()

	id, err := g.CreateTask(context.Background(), Draft{
		Content: "  Ship release  ",
		Tags:    "release, ops,, ",
	})
	require.NoError(t, err)
	assert.Equal(t, "id-1", id)

	require.Len(t, w.calls, 1)
	got := w.calls[0].task
	assert.Equal(t, "u1", w.calls[0].owner)
	assert.Equal(t, "Ship release", got.Content)
	assert.Equal(t, models.CategoryDevelopment, got.Category)
	assert.Equal(t, models.PriorityMedium, got.Priority)
	assert.Equal(t, models.Date("2026-10-16"), got.TaskDate)
	assert.Equal(t, []string{"release", "ops"}, got.Tags)
	assert.Equal(t, models.TaskStatusPending, got.Status)
	assert.Nil(t, got.CompletedAt)
	assert.Equal(t, now.UnixMilli(), got.CreatedAt)
	assert.Equal(t, "u1", got.OwnerID)
}

func TestCreateTask_ValidationIssuesNoWrite(t *testing.T) {
	cases := map[string]Draft{
		"empty title":    {Content: "   "},
		"inverted times": {Content: "a", StartTime: "11:00", EndTime: "09:00"},
		"equal times":    {Content: "a", StartTime: "09:00", EndTime: "09:00"},
		"bad time":       {Content: "a", StartTime: "9am"},
		"bad date":       {Content: "a", TaskDate: "2026-13-01"},
		"bad category":   {Content: "a", Category: "gardening"},
		"bad priority":   {Content: "a", Priority: "asap"},
	}
	for name, d := range cases {
		g, w, _ := newGateway()
		_, err := g.CreateTask(context.Background(), d)
		assert.True(t, models.IsValidation(err), name)
		assert.Empty(t, w.calls, name)
	}
}

func TestCreateTask_UploadsAttachmentFirst(t *testing.T) {
	g, w, up := newGateway()
	_, err := g.CreateTask(context.Background(), Draft{
		Content:    "Spec review",
		StartTime:  "09:00",
		EndTime:    "10:00",
		Attachment: &Attachment{Name: "brief.pdf", Data: []byte("%PDF")},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"brief.pdf"}, up.names)
	assert.Equal(t, "http://files/u1/brief.pdf", w.calls[0].task.FileURL)

	g, w, up = newGateway()
	up.err = errors.New("quota exceeded")
	_, err = g.CreateTask(context.Background(), Draft{
		Content:    "Spec review",
		Attachment: &Attachment{Name: "brief.pdf", Data: []byte("%PDF")},
	})
	assert.True(t, models.IsSync(err))
	assert.Empty(t, w.calls, "no task written when upload fails")
}

func TestCreateTask_RequiresOwner(t *testing.T) {
	w := &fakeWriter{}
	g := New(w, nil, staticLookup{}, Options{})
	_, err := g.CreateTask(context.Background(), Draft{Content: "a"})
	assert.True(t, models.IsValidation(err))
	assert.Empty(t, w.calls)
}

func TestToggleStatus(t *testing.T) {
	done := pendingTask("done")
	done.Status = models.TaskStatusCompleted
	at := int64(5)
	done.CompletedAt = &at
	g, w, _ := newGateway(pendingTask("open"), done)
	ctx := context.Background()

	require.NoError(t, g.ToggleStatus(ctx, "open"))
	require.NoError(t, g.ToggleStatus(ctx, "done"))
	require.Len(t, w.calls, 2)

	p := w.calls[0].patch
	assert.Equal(t, models.TaskStatusCompleted, *p.Status)
	require.NotNil(t, p.CompletedAt)
	assert.Equal(t, now.UnixMilli(), *p.CompletedAt)

	p = w.calls[1].patch
	assert.Equal(t, models.TaskStatusPending, *p.Status)
	assert.True(t, p.ClearCompletedAt)
	assert.Nil(t, p.CompletedAt)
}

func TestToggleAndDelete_MissingTaskIsNoOp(t *testing.T) {
	g, w, _ := newGateway(pendingTask("a"))
	ctx := context.Background()

	assert.NoError(t, g.ToggleStatus(ctx, "ghost"))
	assert.NoError(t, g.DeleteTask(ctx, "ghost"))
	assert.Empty(t, w.calls)

	w.err = fmt.Errorf("remote: %w", models.ErrNotFound)
	assert.NoError(t, g.ToggleStatus(ctx, "a"))
	assert.NoError(t, g.DeleteTask(ctx, "a"))
	assert.Len(t, w.calls, 2)
}

func TestRemoteFailuresAreSyncErrors(t *testing.T) {
	g, w, _ := newGateway(pendingTask("a"))
	w.err = errors.New("connection refused")
	ctx := context.Background()

	err := g.DeleteTask(ctx, "a")
	assert.True(t, models.IsSync(err))
	err = g.ToggleStatus(ctx, "a")
	assert.True(t, models.IsSync(err))
	_, err = g.CreateTask(ctx, Draft{Content: "b"})
	assert.True(t, models.IsSync(err))
}

func TestEditTask(t *testing.T) {
	tk := pendingTask("a")
	tk.StartTime, tk.EndTime = "09:00", "10:00"
	g, w, _ := newGateway(tk)
	ctx := context.Background()

	late := "11:00"
	err := g.EditTask(ctx, "a", models.TaskPatch{EndTime: nil, StartTime: &late})
	assert.True(t, models.IsValidation(err), "start moved after end")

	high := models.PriorityHigh
	require.NoError(t, g.EditTask(ctx, "a", models.TaskPatch{Priority: &high}))
	require.Len(t, w.calls, 1)
	assert.Equal(t, models.PriorityHigh, *w.calls[0].patch.Priority)

	done := models.TaskStatusCompleted
	err = g.EditTask(ctx, "a", models.TaskPatch{Status: &done})
	assert.True(t, models.IsValidation(err))
}

func TestSplitTags(t *testing.T) {
	assert.Nil(t, SplitTags(""))
	assert.Equal(t, []string{"a", "b c"}, SplitTags(" a ,b c,"))
}
