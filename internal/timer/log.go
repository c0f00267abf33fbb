package timer

import (
	"context"
	"fmt"
	"sync"

	"github.com/fentz26/taskboard/internal/models"
)

// KV is the local persistence the log is written to.
type KV interface {
	Get(ctx context.Context, key string, v interface{}) (bool, error)
	Put(ctx context.Context, key string, v interface{}) error
}

// LogKey is where an owner's time log is kept.
func LogKey(ownerID string) string {
	return "timeLogs_" + ownerID
}

// Log is an owner's saved sessions, newest first. Entries are only ever
// prepended.
type Log struct {
	kv    KV
	owner string

	mu      sync.Mutex
	entries []models.TimeLogEntry
}

// OpenLog reads the owner's log from kv.
func OpenLog(ctx context.Context, kv KV, ownerID string) (*Log, error) {
	l := &Log{kv: kv, owner: ownerID}
	if _, err := kv.Get(ctx, LogKey(ownerID), &l.entries); err != nil {
		return nil, fmt.Errorf("load time log: %w", err)
	}
	return l, nil
}

// Entries returns a copy of the log, newest first.
func (l *Log) Entries() []models.TimeLogEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]models.TimeLogEntry(nil), l.entries...)
}

// Append prepends e and writes the log through. The in-memory log is left
// unchanged when the write fails.
func (l *Log) Append(ctx context.Context, e models.TimeLogEntry) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	next := make([]models.TimeLogEntry, 0, len(l.entries)+1)
	next = append(next, e)
	next = append(next, l.entries...)
	if err := l.kv.Put(ctx, LogKey(l.owner), next); err != nil {
		return fmt.Errorf("save time log: %w", err)
	}
	l.entries = next
	return nil
}

// Total returns the logged milliseconds for taskID, or for every task when
// taskID is empty.
func (l *Log) Total(taskID string) int64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	var ms int64
	for _, e := range l.entries {
		if taskID == "" || e.TaskID == taskID {
			ms += e.DurationMs
		}
	}
	return ms
}

// FormatDuration renders milliseconds as HH:MM:SS.
func FormatDuration(ms int64) string {
	if ms < 0 {
		ms = 0
	}
	s := ms / 1000
	return fmt.Sprintf("%02d:%02d:%02d", s/3600, (s%3600)/60, s%60)
}
