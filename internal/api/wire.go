package api

import "github.com/fentz26/taskboard/internal/models"

// FeedChange is one change-log entry on the wire. Task documents are sent
// untyped so clients normalise them at their own boundary.
type FeedChange struct {
	Seq    int64            `json:"seq"`
	Kind   string           `json:"kind"`
	TaskID string           `json:"taskId"`
	Task   *models.Document `json:"task,omitempty"`
}

// FeedResponse answers GET /owners/{o}/changes. Seq is the cursor to pass
// as since on the next call.
type FeedResponse struct {
	Seq     int64        `json:"seq"`
	Changes []FeedChange `json:"changes"`
}

// StateResponse answers GET /owners/{o}/tasks with the full state and the
// change-log position it reflects.
type StateResponse struct {
	Seq   int64             `json:"seq"`
	Tasks []models.Document `json:"tasks"`
}

// CreateResponse answers POST /owners/{o}/tasks.
type CreateResponse struct {
	ID   string          `json:"id"`
	Task models.Document `json:"task"`
}

// UploadResponse answers POST /owners/{o}/attachments.
type UploadResponse struct {
	ID   string `json:"id"`
	Path string `json:"path"`
	Size int64  `json:"size"`
}

// HealthResponse is returned by GET /health.
type HealthResponse struct {
	OK      bool   `json:"ok"`
	DB      string `json:"db"`
	Version string `json:"version"`
	Time    string `json:"time"`
}

// AttachmentPath is the download path of an attachment.
func AttachmentPath(id string) string {
	return "/attachments/" + id
}
