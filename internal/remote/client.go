// Package remote talks to the taskboard document service over HTTP. A
// Client is the change feed of a livestore.Store and the writer behind the
// gateway.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/fentz26/taskboard/internal/api"
	"github.com/fentz26/taskboard/internal/livestore"
	"github.com/fentz26/taskboard/internal/models"
	"github.com/fentz26/taskboard/internal/store"
)

// DefaultTimeout is the default timeout for API requests.
const DefaultTimeout = 10 * time.Second

// DefaultPollWait is how long one feed request waits for new changes.
const DefaultPollWait = 25 * time.Second

// StatusError is a non-2xx answer from the document service.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("API error (%d): %s", e.Code, strings.TrimSpace(e.Body))
}

// Client is an HTTP client for one document service.
type Client struct {
	base     string
	http     *http.Client
	feed     *http.Client
	timeout  time.Duration
	pollWait time.Duration
}

// New creates a client for the service at baseURL.
func New(baseURL string, timeout, pollWait time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if pollWait <= 0 {
		pollWait = DefaultPollWait
	}
	if pollWait > api.MaxWait {
		pollWait = api.MaxWait
	}
	return &Client{
		base: strings.TrimRight(baseURL, "/"),
		http: &http.Client{Timeout: timeout},
		// Feed requests get a per-request deadline instead.
		feed:     &http.Client{},
		timeout:  timeout,
		pollWait: pollWait,
	}
}

// BaseURL returns the service address.
func (c *Client) BaseURL() string { return c.base }

func ownerPath(ownerID string, parts ...string) string {
	p := "/owners/" + url.PathEscape(ownerID)
	for _, part := range parts {
		p += "/" + url.PathEscape(part)
	}
	return p
}

// --- Change Feed ---

// Subscribe loads ownerID's full state, hands it over as a Full batch, then
// follows the change log until ctx is cancelled or a request fails.
// Documents that cannot be normalised are logged and skipped.
func (c *Client) Subscribe(ctx context.Context, ownerID string, handle func(livestore.Batch)) error {
	var state api.StateResponse
	if err := c.do(ctx, c.http, http.MethodGet, ownerPath(ownerID, "tasks"), nil, "", &state); err != nil {
		return err
	}

	full := livestore.Batch{Full: true, Seq: state.Seq, Changes: make([]livestore.Change, 0, len(state.Tasks))}
	for _, doc := range state.Tasks {
		t, err := models.Normalize(doc)
		if err != nil {
			log.Printf("remote: skipping document: %v", err)
			continue
		}
		full.Changes = append(full.Changes, livestore.Change{Kind: livestore.ChangeAdded, Task: t})
	}
	handle(full)

	seq := state.Seq
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		feed, err := c.changes(ctx, ownerID, seq)
		if err != nil {
			return err
		}
		if len(feed.Changes) == 0 {
			continue
		}
		seq = feed.Seq
		handle(toBatch(feed))
	}
}

func (c *Client) changes(ctx context.Context, ownerID string, since int64) (api.FeedResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, c.pollWait+c.timeout)
	defer cancel()

	q := url.Values{}
	q.Set("since", fmt.Sprint(since))
	q.Set("wait", c.pollWait.String())

	var feed api.FeedResponse
	err := c.do(ctx, c.feed, http.MethodGet, ownerPath(ownerID, "changes")+"?"+q.Encode(), nil, "", &feed)
	return feed, err
}

func toBatch(feed api.FeedResponse) livestore.Batch {
	b := livestore.Batch{Seq: feed.Seq, Changes: make([]livestore.Change, 0, len(feed.Changes))}
	for _, fc := range feed.Changes {
		if fc.Kind == store.KindRemoved {
			b.Changes = append(b.Changes, livestore.Change{Kind: livestore.ChangeRemoved, Task: models.Task{ID: fc.TaskID}})
			continue
		}
		if fc.Task == nil {
			log.Printf("remote: change %d for %s has no document", fc.Seq, fc.TaskID)
			continue
		}
		t, err := models.Normalize(*fc.Task)
		if err != nil {
			log.Printf("remote: skipping change %d: %v", fc.Seq, err)
			continue
		}
		kind := livestore.ChangeModified
		if fc.Kind == store.KindAdded {
			kind = livestore.ChangeAdded
		}
		b.Changes = append(b.Changes, livestore.Change{Kind: kind, Task: t})
	}
	return b
}

// --- Writes ---

// CreateTask creates a task and returns its id.
func (c *Client) CreateTask(ctx context.Context, ownerID string, t models.Task) (string, error) {
	var resp api.CreateResponse
	if err := c.doJSON(ctx, http.MethodPost, ownerPath(ownerID, "tasks"), t, &resp); err != nil {
		return "", err
	}
	return resp.ID, nil
}

// UpdateTask patches a task.
func (c *Client) UpdateTask(ctx context.Context, ownerID, id string, patch models.TaskPatch) error {
	return c.doJSON(ctx, http.MethodPatch, ownerPath(ownerID, "tasks", id), patch, nil)
}

// DeleteTask removes a task.
func (c *Client) DeleteTask(ctx context.Context, ownerID, id string) error {
	return c.do(ctx, c.http, http.MethodDelete, ownerPath(ownerID, "tasks", id), nil, "", nil)
}

// Upload stores an attachment and returns its download URL.
func (c *Client) Upload(ctx context.Context, ownerID, name string, data []byte) (string, error) {
	path := ownerPath(ownerID, "attachments") + "?" + url.Values{"name": {name}}.Encode()
	contentType := http.DetectContentType(data)

	var resp api.UploadResponse
	if err := c.do(ctx, c.http, http.MethodPost, path, bytes.NewReader(data), contentType, &resp); err != nil {
		return "", err
	}
	return c.base + resp.Path, nil
}

// --- Reads ---

// Audit returns ownerID's recent audit records.
func (c *Client) Audit(ctx context.Context, ownerID string, limit int) ([]models.AuditRecord, error) {
	path := ownerPath(ownerID, "audit") + "?limit=" + fmt.Sprint(limit)
	var recs []models.AuditRecord
	err := c.do(ctx, c.http, http.MethodGet, path, nil, "", &recs)
	return recs, err
}

// CheckHealth checks the service. It returns the parsed response even when
// the service reports itself unhealthy.
func (c *Client) CheckHealth(ctx context.Context) (*api.HealthResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+"/health", nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("API request failed: %w", err)
	}
	defer resp.Body.Close()

	var health api.HealthResponse
	if err := json.NewDecoder(resp.Body).Decode(&health); err != nil {
		return nil, fmt.Errorf("failed to parse health response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return &health, fmt.Errorf("service unhealthy (%d): %s", resp.StatusCode, health.DB)
	}
	return &health, nil
}

// --- Helpers ---

func (c *Client) doJSON(ctx context.Context, method, path string, in, out interface{}) error {
	data, err := json.Marshal(in)
	if err != nil {
		return err
	}
	return c.do(ctx, c.http, method, path, bytes.NewReader(data), "application/json", out)
}

func (c *Client) do(ctx context.Context, hc *http.Client, method, path string, body io.Reader, contentType string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, body)
	if err != nil {
		return err
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := hc.Do(req)
	if err != nil {
		return fmt.Errorf("API request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}
	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%s %s: %w", method, path, models.ErrNotFound)
	}
	if resp.StatusCode == http.StatusBadRequest {
		return models.Invalid("request", "%s", strings.TrimSpace(string(data)))
	}
	if resp.StatusCode >= 400 {
		return &StatusError{Code: resp.StatusCode, Body: string(data)}
	}
	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}
