package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/fentz26/taskboard/internal/livestore"
	"github.com/fentz26/taskboard/internal/models"
	"github.com/fentz26/taskboard/internal/session"
)

// loadTimeout bounds the wait for the first full snapshot.
const loadTimeout = 15 * time.Second

// openLoaded opens a session and waits for the signed-in user's tasks.
func openLoaded(ctx context.Context) (*session.Session, livestore.Snapshot, error) {
	s, err := session.Open(cfg)
	if err != nil {
		return nil, livestore.Snapshot{}, err
	}
	ctx, cancel := context.WithTimeout(ctx, loadTimeout)
	defer cancel()

	snap, err := s.WaitLoaded(ctx)
	if err != nil {
		s.Close()
		return nil, livestore.Snapshot{}, fmt.Errorf("loading tasks from %s: %w", cfg.Client.API, err)
	}
	return s, snap, nil
}

// resolveTask finds a task by full id or unique id prefix.
func resolveTask(snap livestore.Snapshot, ref string) (models.Task, error) {
	if t, ok := snap.Get(ref); ok {
		return t, nil
	}
	var found []models.Task
	for _, t := range snap.Tasks() {
		if strings.HasPrefix(t.ID, ref) {
			found = append(found, t)
		}
	}
	switch len(found) {
	case 0:
		return models.Task{}, fmt.Errorf("task %s: %w", ref, models.ErrNotFound)
	case 1:
		return found[0], nil
	default:
		return models.Task{}, fmt.Errorf("task prefix %s is ambiguous (%d matches)", ref, len(found))
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}

func truncateID(id string) string {
	if len(id) <= 8 {
		return id
	}
	return id[:8]
}
