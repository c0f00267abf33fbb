package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/fentz26/taskboard/internal/audit"
	"github.com/fentz26/taskboard/internal/models"
	"github.com/fentz26/taskboard/internal/store"
)

func TestHealthEndpoint_OK(t *testing.T) {
	s, cleanup := newTestServer(t)
	defer cleanup()

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	s.handleHealth(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected status 200, got %d", resp.StatusCode)
	}

	var health HealthResponse
	if err := json.NewDecoder(resp.Body).Decode(&health); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if !health.OK {
		t.Error("Expected health.OK to be true")
	}
	if health.DB != "ok" {
		t.Errorf("Expected DB status 'ok', got '%s'", health.DB)
	}
	if health.Version == "" {
		t.Error("Expected version to be set")
	}
	if health.Time == "" {
		t.Error("Expected time to be set")
	}
}

func TestHealthEndpoint_MethodNotAllowed(t *testing.T) {
	s, cleanup := newTestServer(t)
	defer cleanup()

	req := httptest.NewRequest(http.MethodPost, "/health", nil)
	w := httptest.NewRecorder()
	s.handleHealth(w, req)

	if w.Result().StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("Expected status 405, got %d", w.Result().StatusCode)
	}
}

func TestHealthEndpoint_DBError(t *testing.T) {
	st, err := store.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	server := NewServer(NewService(st, audit.NewRecorder(st)), "127.0.0.1:0")

	// Close the store to simulate a database failure
	st.Close()

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	server.handleHealth(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("Expected status 503, got %d", resp.StatusCode)
	}

	var health HealthResponse
	if err := json.NewDecoder(resp.Body).Decode(&health); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if health.OK {
		t.Error("Expected health.OK to be false")
	}
	if health.DB == "ok" {
		t.Error("Expected DB status to report an error")
	}
}

func TestTaskLifecycle(t *testing.T) {
	s, cleanup := newTestServer(t)
	defer cleanup()
	h := s.Handler()

	body := `{"content":"  Write report  ","category":"documentation","priority":"high","project":"Apollo","taskDate":"2026-10-16","startTime":"09:00","endTime":"10:30","status":"completed"}`
	w := do(h, http.MethodPost, "/owners/u1/tasks", body)
	if w.Code != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d: %s", w.Code, w.Body.String())
	}
	var created CreateResponse
	if err := json.NewDecoder(w.Body).Decode(&created); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if created.ID == "" {
		t.Fatal("Expected an id")
	}
	if *created.Task.Content != "Write report" {
		t.Errorf("Expected trimmed content, got %q", *created.Task.Content)
	}
	if *created.Task.Status != string(models.TaskStatusPending) {
		t.Errorf("New tasks should start pending, got %s", *created.Task.Status)
	}
	if *created.Task.OwnerID != "u1" {
		t.Errorf("Expected owner u1, got %s", *created.Task.OwnerID)
	}

	w = do(h, http.MethodPatch, "/owners/u1/tasks/"+created.ID, `{"status":"completed"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}
	var doc models.Document
	json.NewDecoder(w.Body).Decode(&doc)
	if doc.CompletedAt == nil {
		t.Error("Completing a task should set completedAt")
	}

	w = do(h, http.MethodGet, "/owners/u1/tasks", "")
	var state StateResponse
	json.NewDecoder(w.Body).Decode(&state)
	if len(state.Tasks) != 1 || state.Seq != 2 {
		t.Errorf("Expected 1 task at seq 2, got %d at seq %d", len(state.Tasks), state.Seq)
	}

	// Other owners see nothing.
	w = do(h, http.MethodGet, "/owners/u2/tasks", "")
	json.NewDecoder(w.Body).Decode(&state)
	if len(state.Tasks) != 0 {
		t.Errorf("Expected no tasks for u2, got %d", len(state.Tasks))
	}

	w = do(h, http.MethodDelete, "/owners/u1/tasks/"+created.ID, "")
	if w.Code != http.StatusNoContent {
		t.Errorf("Expected status 204, got %d", w.Code)
	}
	w = do(h, http.MethodDelete, "/owners/u1/tasks/"+created.ID, "")
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404 for second delete, got %d", w.Code)
	}
}

func TestCreateTask_Validation(t *testing.T) {
	s, cleanup := newTestServer(t)
	defer cleanup()
	h := s.Handler()

	tests := []struct {
		name string
		body string
		want int
	}{
		{"empty title", `{"content":"   ","taskDate":"2026-10-16"}`, http.StatusBadRequest},
		{"bad date", `{"content":"x","taskDate":"16/10/2026"}`, http.StatusBadRequest},
		{"end before start", `{"content":"x","taskDate":"2026-10-16","startTime":"11:00","endTime":"10:00"}`, http.StatusBadRequest},
		{"bad json", `{`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(h, http.MethodPost, "/owners/u1/tasks", tt.body)
			if w.Code != tt.want {
				t.Errorf("Expected status %d, got %d: %s", tt.want, w.Code, w.Body.String())
			}
		})
	}

	recs, err := s.service.Audit(context.Background(), "u1", 0)
	if err != nil {
		t.Fatalf("Audit failed: %v", err)
	}
	if len(recs) != 3 {
		t.Errorf("Expected 3 rejected audit records, got %d", len(recs))
	}
}

func TestUpdateTask_RejectsUnknownValues(t *testing.T) {
	s, cleanup := newTestServer(t)
	defer cleanup()
	h := s.Handler()

	w := do(h, http.MethodPost, "/owners/u1/tasks", `{"content":"x","taskDate":"2026-10-16"}`)
	var created CreateResponse
	json.NewDecoder(w.Body).Decode(&created)

	for _, body := range []string{`{"status":"archived"}`, `{"category":"gardening"}`, `{"priority":"extreme"}`, `{"content":""}`} {
		w = do(h, http.MethodPatch, "/owners/u1/tasks/"+created.ID, body)
		if w.Code != http.StatusBadRequest {
			t.Errorf("%s: expected status 400, got %d", body, w.Code)
		}
	}

	w = do(h, http.MethodPatch, "/owners/u1/tasks/missing", `{"content":"y"}`)
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", w.Code)
	}
}

func TestChangesFeed(t *testing.T) {
	s, cleanup := newTestServer(t)
	defer cleanup()
	s.service.SetPollInterval(10 * time.Millisecond)
	h := s.Handler()

	w := do(h, http.MethodGet, "/owners/u1/changes?since=0", "")
	var feed FeedResponse
	json.NewDecoder(w.Body).Decode(&feed)
	if len(feed.Changes) != 0 || feed.Seq != 0 {
		t.Fatalf("Expected empty feed, got %+v", feed)
	}

	done := make(chan FeedResponse, 1)
	go func() {
		w := do(h, http.MethodGet, "/owners/u1/changes?since=0&wait=5s", "")
		var f FeedResponse
		json.NewDecoder(w.Body).Decode(&f)
		done <- f
	}()

	time.Sleep(50 * time.Millisecond)
	do(h, http.MethodPost, "/owners/u1/tasks", `{"content":"Waited for","taskDate":"2026-10-16"}`)

	select {
	case feed = <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("Long poll did not return after a change")
	}
	if len(feed.Changes) != 1 {
		t.Fatalf("Expected 1 change, got %d", len(feed.Changes))
	}
	c := feed.Changes[0]
	if c.Kind != store.KindAdded || c.Task == nil || *c.Task.Content != "Waited for" {
		t.Errorf("Unexpected change %+v", c)
	}
	if feed.Seq != c.Seq {
		t.Errorf("Expected cursor %d, got %d", c.Seq, feed.Seq)
	}

	do(h, http.MethodDelete, "/owners/u1/tasks/"+c.TaskID, "")
	w = do(h, http.MethodGet, "/owners/u1/changes?since="+strconv.FormatInt(feed.Seq, 10), "")
	feed = FeedResponse{}
	json.NewDecoder(w.Body).Decode(&feed)
	if len(feed.Changes) != 1 || feed.Changes[0].Kind != store.KindRemoved || feed.Changes[0].Task != nil {
		t.Errorf("Expected a bare removal, got %+v", feed.Changes)
	}

	w = do(h, http.MethodGet, "/owners/u1/changes?since=abc", "")
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400 for bad cursor, got %d", w.Code)
	}
}

func TestAttachments(t *testing.T) {
	s, cleanup := newTestServer(t)
	defer cleanup()
	h := s.Handler()

	req := httptest.NewRequest(http.MethodPost, "/owners/u1/attachments?name=notes.txt", strings.NewReader("hello"))
	req.Header.Set("Content-Type", "text/plain")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if w.Code != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d: %s", w.Code, w.Body.String())
	}
	var up UploadResponse
	json.NewDecoder(w.Body).Decode(&up)
	if up.Size != 5 || up.Path != AttachmentPath(up.ID) {
		t.Errorf("Unexpected upload response %+v", up)
	}

	w = do(h, http.MethodGet, up.Path, "")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	data, _ := io.ReadAll(w.Body)
	if string(data) != "hello" {
		t.Errorf("Expected body hello, got %q", data)
	}
	if ct := w.Header().Get("Content-Type"); ct != "text/plain" {
		t.Errorf("Expected text/plain, got %s", ct)
	}

	big := bytes.Repeat([]byte("x"), MaxAttachmentSize+1)
	req = httptest.NewRequest(http.MethodPost, "/owners/u1/attachments?name=big.bin", bytes.NewReader(big))
	w = httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if w.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("Expected status 413, got %d", w.Code)
	}

	w = do(h, http.MethodGet, "/attachments/missing", "")
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", w.Code)
	}
}

func TestRouting(t *testing.T) {
	s, cleanup := newTestServer(t)
	defer cleanup()
	h := s.Handler()

	if w := do(h, http.MethodGet, "/owners/u1", ""); w.Code != http.StatusNotFound {
		t.Errorf("Expected 404 without resource, got %d", w.Code)
	}
	if w := do(h, http.MethodPut, "/owners/u1/tasks", ""); w.Code != http.StatusMethodNotAllowed {
		t.Errorf("Expected 405, got %d", w.Code)
	}
	if w := do(h, http.MethodGet, "/owners/u1/widgets", ""); w.Code != http.StatusNotFound {
		t.Errorf("Expected 404 for unknown resource, got %d", w.Code)
	}
}

func do(h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

// newTestServer creates a test server with a temporary database.
func newTestServer(t *testing.T) (*Server, func()) {
	t.Helper()

	st, err := store.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}

	service := NewService(st, audit.NewRecorder(st))
	server := NewServer(service, "127.0.0.1:0")

	cleanup := func() {
		st.Close()
	}
	return server, cleanup
}
