package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/fentz26/taskboard/internal/models"
)

// Version is reported by the health endpoint.
var Version = "dev"

// Server provides the HTTP API of the document service.
type Server struct {
	service *Service
	addr    string
	server  *http.Server
}

// NewServer creates a new HTTP server.
func NewServer(service *Service, addr string) *Server {
	return &Server{
		service: service,
		addr:    addr,
	}
}

// Handler returns the routed HTTP handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/owners/", s.handleOwner)
	mux.HandleFunc("/attachments/", s.handleAttachment)
	return mux
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:        s.addr,
		Handler:     s.Handler(),
		ReadTimeout: 10 * time.Second,
		// Long-poll requests hold the response for up to MaxWait.
		WriteTimeout: MaxWait + 30*time.Second,
	}

	log.Printf("Starting taskboard document service on %s", s.addr)
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	resp := HealthResponse{OK: true, DB: "ok", Version: Version, Time: time.Now().UTC().Format(time.RFC3339)}
	status := http.StatusOK
	if err := s.service.Ping(ctx); err != nil {
		resp.OK = false
		resp.DB = err.Error()
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, resp)
}

// handleOwner handles /owners/{owner}/...
func (s *Server) handleOwner(w http.ResponseWriter, r *http.Request) {
	path := strings.Trim(strings.TrimPrefix(r.URL.Path, "/owners/"), "/")
	parts := strings.Split(path, "/")
	if len(parts) < 2 || parts[0] == "" {
		http.Error(w, "owner and resource required", http.StatusNotFound)
		return
	}
	owner, resource := parts[0], parts[1]
	id := ""
	if len(parts) > 2 {
		id = parts[2]
	}

	switch {
	case resource == "tasks" && id == "" && r.Method == http.MethodGet:
		s.listTasks(w, r, owner)
	case resource == "tasks" && id == "" && r.Method == http.MethodPost:
		s.createTask(w, r, owner)
	case resource == "tasks" && id != "" && r.Method == http.MethodPatch:
		s.updateTask(w, r, owner, id)
	case resource == "tasks" && id != "" && r.Method == http.MethodDelete:
		s.deleteTask(w, r, owner, id)
	case resource == "changes" && r.Method == http.MethodGet:
		s.changes(w, r, owner)
	case resource == "attachments" && r.Method == http.MethodPost:
		s.upload(w, r, owner)
	case resource == "audit" && r.Method == http.MethodGet:
		s.listAudit(w, r, owner)
	case resource == "tasks" || resource == "changes" || resource == "attachments" || resource == "audit":
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	default:
		http.Error(w, "not found", http.StatusNotFound)
	}
}

// --- Task Handlers ---

func (s *Server) listTasks(w http.ResponseWriter, r *http.Request, owner string) {
	tasks, seq, err := s.service.ListTasks(r.Context(), owner)
	if err != nil {
		writeError(w, err)
		return
	}

	resp := StateResponse{Seq: seq, Tasks: make([]models.Document, 0, len(tasks))}
	for _, t := range tasks {
		resp.Tasks = append(resp.Tasks, models.ToDocument(t))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) createTask(w http.ResponseWriter, r *http.Request, owner string) {
	var req models.Task
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}

	task, err := s.service.CreateTask(r.Context(), owner, req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, CreateResponse{ID: task.ID, Task: models.ToDocument(task)})
}

func (s *Server) updateTask(w http.ResponseWriter, r *http.Request, owner, id string) {
	var patch models.TaskPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}

	task, err := s.service.UpdateTask(r.Context(), owner, id, patch)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, models.ToDocument(task))
}

func (s *Server) deleteTask(w http.ResponseWriter, r *http.Request, owner, id string) {
	if err := s.service.DeleteTask(r.Context(), owner, id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- Feed Handlers ---

func (s *Server) changes(w http.ResponseWriter, r *http.Request, owner string) {
	q := r.URL.Query()

	var since int64
	if v := q.Get("since"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			http.Error(w, "since must be an integer", http.StatusBadRequest)
			return
		}
		since = n
	}

	var wait time.Duration
	if v := q.Get("wait"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			http.Error(w, "wait must be a duration", http.StatusBadRequest)
			return
		}
		wait = d
	}

	resp, err := s.service.Changes(r.Context(), owner, since, wait)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// --- Attachment Handlers ---

func (s *Server) upload(w http.ResponseWriter, r *http.Request, owner string) {
	data, err := io.ReadAll(io.LimitReader(r.Body, MaxAttachmentSize+1))
	if err != nil {
		http.Error(w, "read body failed", http.StatusBadRequest)
		return
	}

	a, err := s.service.Upload(r.Context(), owner, r.URL.Query().Get("name"), r.Header.Get("Content-Type"), data)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, UploadResponse{ID: a.ID, Path: AttachmentPath(a.ID), Size: a.Size})
}

func (s *Server) handleAttachment(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	id := strings.Trim(strings.TrimPrefix(r.URL.Path, "/attachments/"), "/")
	if id == "" {
		http.Error(w, "attachment id required", http.StatusBadRequest)
		return
	}

	a, data, err := s.service.Attachment(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", a.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", a.Name))
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

func (s *Server) listAudit(w http.ResponseWriter, r *http.Request, owner string) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	recs, err := s.service.Audit(r.Context(), owner, limit)
	if err != nil {
		writeError(w, err)
		return
	}
	if recs == nil {
		recs = []models.AuditRecord{}
	}
	writeJSON(w, http.StatusOK, recs)
}

// --- Helpers ---

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case models.IsValidation(err), errors.Is(err, ErrBadRequest), errors.Is(err, ErrOwnerRequired):
		status = http.StatusBadRequest
	case errors.Is(err, models.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, ErrAttachmentTooLarge):
		status = http.StatusRequestEntityTooLarge
	}
	if status == http.StatusInternalServerError {
		log.Printf("Request failed: %v", err)
	}
	http.Error(w, err.Error(), status)
}
