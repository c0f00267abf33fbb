// Package livestore keeps a live, revision-stamped snapshot of one owner's
// tasks fed by a remote change stream.
package livestore

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/fentz26/taskboard/internal/models"
)

// ChangeKind describes what happened to a task in a batch.
type ChangeKind string

const (
	ChangeAdded    ChangeKind = "added"
	ChangeModified ChangeKind = "modified"
	ChangeRemoved  ChangeKind = "removed"
)

// Change is one entry of a batch. Removed changes only need Task.ID.
type Change struct {
	Kind ChangeKind  `json:"kind"`
	Task models.Task `json:"task"`
}

// Batch moves the remote state from one consistent point to the next.
// A Full batch carries the complete remote state and replaces the mapping.
type Batch struct {
	Changes []Change `json:"changes"`
	Full    bool     `json:"full"`
	Seq     int64    `json:"seq"`
}

// Source is the remote change feed. Subscribe delivers batches to handle
// one at a time and returns when ctx is cancelled or the transport fails.
type Source interface {
	Subscribe(ctx context.Context, ownerID string, handle func(Batch)) error
}

// Options configures a Store.
type Options struct {
	// RetryInterval is the wait before resubscribing after a failure.
	RetryInterval time.Duration
}

// DefaultOptions returns the options used when none are given.
func DefaultOptions() Options {
	return Options{RetryInterval: 3 * time.Second}
}

var errFeedClosed = errors.New("change feed closed")

// Store owns the snapshot. It is the only writer; everything else reads
// Current() or receives snapshots through OnChange.
//
// Listeners run on the feed goroutine, or on the caller's goroutine for the
// cleared snapshot published by SetOwner. They must not call Dispose, which
// waits for the feed goroutine, nor SetOwner or a func returned by
// OnSyncError, which wait for the listener lock held during delivery.
type Store struct {
	src  Source
	opts Options

	mu       sync.Mutex
	snap     Snapshot
	owner    string
	gen      uint64
	seq      int64
	lastErr  error
	disposed bool
	cancel   context.CancelFunc
	changed  chan struct{}

	listenMu sync.Mutex
	onChange []func(Snapshot)
	onError  []errorListener
	nextID   uint64

	wg sync.WaitGroup
}

// New creates a store with no owner. Call SetOwner to start syncing.
func New(src Source, opts Options) *Store {
	if opts.RetryInterval <= 0 {
		opts.RetryInterval = DefaultOptions().RetryInterval
	}
	return &Store{
		src:     src,
		opts:    opts,
		changed: make(chan struct{}),
	}
}

// OnChange registers fn to receive every newly published snapshot.
func (s *Store) OnChange(fn func(Snapshot)) {
	s.listenMu.Lock()
	s.onChange = append(s.onChange, fn)
	s.listenMu.Unlock()
}

type errorListener struct {
	id uint64
	fn func(error)
}

// OnSyncError registers fn to receive subscription failures. The returned
// func removes it; calling it more than once is harmless.
func (s *Store) OnSyncError(fn func(error)) (remove func()) {
	s.listenMu.Lock()
	s.nextID++
	id := s.nextID
	s.onError = append(s.onError, errorListener{id: id, fn: fn})
	s.listenMu.Unlock()

	return func() {
		s.listenMu.Lock()
		defer s.listenMu.Unlock()
		for i, l := range s.onError {
			if l.id == id {
				s.onError = append(s.onError[:i:i], s.onError[i+1:]...)
				return
			}
		}
	}
}

// Current returns the latest published snapshot.
func (s *Store) Current() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snap
}

// LastError returns the most recent sync failure, or nil once a batch has
// been delivered since.
func (s *Store) LastError() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

// SetOwner switches the store to ownerID. Any change of owner, including
// sign-out (empty id), clears the snapshot before the new feed starts.
func (s *Store) SetOwner(ownerID string) {
	s.mu.Lock()
	if s.disposed || (ownerID == s.owner && s.cancel != nil) {
		s.mu.Unlock()
		return
	}
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.gen++
	s.owner = ownerID
	s.seq = 0
	s.lastErr = nil
	cleared := Snapshot{revision: s.snap.revision + 1, owner: ownerID}
	s.publishLocked(cleared)

	gen := s.gen
	if ownerID != "" {
		ctx, cancel := context.WithCancel(context.Background())
		s.cancel = cancel
		s.wg.Add(1)
		go s.run(ctx, gen, ownerID)
	}
	s.mu.Unlock()

	s.notify(cleared)
}

// WaitForRevision blocks until the published revision reaches rev.
func (s *Store) WaitForRevision(ctx context.Context, rev uint64) (Snapshot, error) {
	return s.waitFor(ctx, func(snap Snapshot) bool { return snap.revision >= rev })
}

// WaitLoaded blocks until the first full remote state for the current
// owner has been applied.
func (s *Store) WaitLoaded(ctx context.Context) (Snapshot, error) {
	return s.waitFor(ctx, func(snap Snapshot) bool { return snap.loaded })
}

func (s *Store) waitFor(ctx context.Context, done func(Snapshot) bool) (Snapshot, error) {
	for {
		s.mu.Lock()
		snap, ch := s.snap, s.changed
		s.mu.Unlock()
		if done(snap) {
			return snap, nil
		}
		select {
		case <-ch:
		case <-ctx.Done():
			return snap, ctx.Err()
		}
	}
}

// Dispose stops the feed. When it returns no further batch is applied and
// no listener is called.
func (s *Store) Dispose() {
	s.mu.Lock()
	if s.disposed {
		s.mu.Unlock()
		return
	}
	s.disposed = true
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.mu.Unlock()
	s.wg.Wait()
}

// run keeps one owner's subscription alive until ctx is cancelled.
func (s *Store) run(ctx context.Context, gen uint64, ownerID string) {
	defer s.wg.Done()

	for {
		err := s.src.Subscribe(ctx, ownerID, func(b Batch) { s.apply(gen, b) })
		if ctx.Err() != nil {
			return
		}
		if err == nil {
			err = errFeedClosed
		}
		s.fail(gen, &models.SyncError{Op: "subscribe", Err: err})

		timer := time.NewTimer(s.opts.RetryInterval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
	}
}

func (s *Store) apply(gen uint64, b Batch) {
	s.mu.Lock()
	if s.disposed || gen != s.gen {
		s.mu.Unlock()
		return
	}
	owner := s.owner
	accept := func(t models.Task) bool {
		if err := t.Check(); err != nil {
			log.Printf("livestore: skipping task %q: %v", t.ID, err)
			return false
		}
		if t.OwnerID != "" && t.OwnerID != owner {
			log.Printf("livestore: skipping task %q owned by %q", t.ID, t.OwnerID)
			return false
		}
		return true
	}
	next, changed := s.snap.apply(b, accept)
	if b.Seq > s.seq {
		s.seq = b.Seq
	}
	s.lastErr = nil
	if !changed {
		s.mu.Unlock()
		return
	}
	next.revision = s.snap.revision + 1
	s.publishLocked(next)
	s.mu.Unlock()

	s.notify(next)
}

func (s *Store) fail(gen uint64, err error) {
	s.mu.Lock()
	if s.disposed || gen != s.gen {
		s.mu.Unlock()
		return
	}
	s.lastErr = err
	s.mu.Unlock()

	log.Printf("livestore: %v", err)
	s.listenMu.Lock()
	defer s.listenMu.Unlock()
	for _, l := range s.onError {
		l.fn(err)
	}
}

// publishLocked swaps in snap and wakes waiters. Caller holds s.mu.
func (s *Store) publishLocked(snap Snapshot) {
	s.snap = snap
	close(s.changed)
	s.changed = make(chan struct{})
}

// notify delivers snap to listeners unless a newer revision has already
// been published, so listeners never go backwards.
func (s *Store) notify(snap Snapshot) {
	s.listenMu.Lock()
	defer s.listenMu.Unlock()

	s.mu.Lock()
	stale := s.disposed || s.snap.revision != snap.revision
	s.mu.Unlock()
	if stale {
		return
	}
	for _, fn := range s.onChange {
		fn(snap)
	}
}
