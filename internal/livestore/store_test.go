package livestore

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fentz26/taskboard/internal/models"
)

// fakeSource hands batches to the subscriber one at a time and waits for
// each to be applied before push returns.
type fakeSource struct {
	batches chan Batch
	acked   chan struct{}
	fail    chan error

	mu     sync.Mutex
	owners []string
	handle func(Batch)
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		batches: make(chan Batch),
		acked:   make(chan struct{}),
		fail:    make(chan error),
	}
}

func (f *fakeSource) Subscribe(ctx context.Context, ownerID string, handle func(Batch)) error {
	f.mu.Lock()
	f.owners = append(f.owners, ownerID)
	f.handle = handle
	f.mu.Unlock()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-f.fail:
			return err
		case b := <-f.batches:
			handle(b)
			f.acked <- struct{}{}
		}
	}
}

func (f *fakeSource) push(t *testing.T, b Batch) {
	t.Helper()
	select {
	case f.batches <- b:
	case <-time.After(2 * time.Second):
		t.Fatal("no subscriber took the batch")
	}
	<-f.acked
}

func (f *fakeSource) subscriptions() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.owners...)
}

func task(id string, createdAt int64) models.Task {
	return models.Task{
		ID:        id,
		Content:   "task " + id,
		Category:  models.CategoryDevelopment,
		Priority:  models.PriorityMedium,
		TaskDate:  models.MustDate("2026-10-16"),
		Status:    models.TaskStatusPending,
		CreatedAt: createdAt,
		OwnerID:   "u1",
	}
}

func added(ts ...models.Task) Batch {
	b := Batch{}
	for _, t := range ts {
		b.Changes = append(b.Changes, Change{Kind: ChangeAdded, Task: t})
	}
	return b
}

func newStore(t *testing.T, src Source) *Store {
	t.Helper()
	s := New(src, Options{RetryInterval: 10 * time.Millisecond})
	t.Cleanup(s.Dispose)
	return s
}

func TestStore_AppliesBatchesInDisplayOrder(t *testing.T) {
	src := newFakeSource()
	s := newStore(t, src)
	s.SetOwner("u1")

	src.push(t, added(task("a", 100), task("b", 300), task("c", 200)))

	snap := s.Current()
	require.Equal(t, 3, snap.Len())
	var ids []string
	for _, tk := range snap.Tasks() {
		ids = append(ids, tk.ID)
	}
	assert.Equal(t, []string{"b", "c", "a"}, ids)

	src.push(t, Batch{Changes: []Change{{Kind: ChangeRemoved, Task: models.Task{ID: "c"}}}})
	_, ok := s.Current().Get("c")
	assert.False(t, ok)
	assert.Equal(t, 2, s.Current().Len())
}

func TestStore_IdempotentRedelivery(t *testing.T) {
	src := newFakeSource()
	s := newStore(t, src)
	s.SetOwner("u1")

	tk := task("a", 100)
	src.push(t, added(tk))
	rev := s.Current().Revision()

	src.push(t, Batch{Changes: []Change{{Kind: ChangeModified, Task: tk}}})
	src.push(t, added(tk))

	assert.Equal(t, rev, s.Current().Revision())
	got, _ := s.Current().Get("a")
	assert.True(t, tk.Equal(got))
}

func TestStore_RevisionBumpsOncePerChangingBatch(t *testing.T) {
	src := newFakeSource()
	s := newStore(t, src)
	s.SetOwner("u1")
	cleared := s.Current().Revision()

	src.push(t, added(task("a", 1), task("b", 2)))
	assert.Equal(t, cleared+1, s.Current().Revision())

	src.push(t, added(task("a", 1)))
	assert.Equal(t, cleared+1, s.Current().Revision(), "re-delivery publishes nothing")

	s.SetOwner("u2")
	assert.Equal(t, cleared+2, s.Current().Revision())
}

func TestStore_RemovedSyncErrorListenerIsSilent(t *testing.T) {
	src := newFakeSource()
	s := newStore(t, src)

	var removed int32
	remove := s.OnSyncError(func(error) { atomic.AddInt32(&removed, 1) })
	errs := make(chan error, 4)
	s.OnSyncError(func(err error) { errs <- err })
	remove()
	remove()

	s.SetOwner("u1")
	src.push(t, added(task("a", 1)))
	src.fail <- errors.New("connection reset")

	select {
	case <-errs:
	case <-time.After(2 * time.Second):
		t.Fatal("sync error not reported")
	}
	assert.Equal(t, int32(0), atomic.LoadInt32(&removed))

	s.listenMu.Lock()
	n := len(s.onError)
	s.listenMu.Unlock()
	assert.Equal(t, 1, n)
}

func TestStore_FullBatchReplayConverges(t *testing.T) {
	src := newFakeSource()
	s := newStore(t, src)
	s.SetOwner("u1")

	state := added(task("a", 1), task("b", 2))
	state.Full = true
	src.push(t, state)
	assert.True(t, s.Current().Loaded())
	rev := s.Current().Revision()

	for i := 0; i < 3; i++ {
		src.push(t, state)
	}
	assert.Equal(t, rev, s.Current().Revision())
	assert.Equal(t, 2, s.Current().Len())

	// A full state that no longer contains b drops it.
	smaller := added(task("a", 1))
	smaller.Full = true
	src.push(t, smaller)
	assert.Equal(t, 1, s.Current().Len())
}

func TestStore_SkipsInvalidAndForeignTasks(t *testing.T) {
	src := newFakeSource()
	s := newStore(t, src)
	s.SetOwner("u1")

	bad := task("bad", 1)
	bad.Status = models.TaskStatusCompleted // no completedAt
	foreign := task("foreign", 2)
	foreign.OwnerID = "u2"

	src.push(t, added(task("ok", 3), bad, foreign))

	snap := s.Current()
	assert.Equal(t, 1, snap.Len())
	for _, tk := range snap.Tasks() {
		assert.Equal(t, tk.IsCompleted(), tk.CompletedAt != nil)
	}
}

func TestStore_SyncErrorKeepsSnapshotAndResubscribes(t *testing.T) {
	src := newFakeSource()
	s := newStore(t, src)

	errs := make(chan error, 4)
	s.OnSyncError(func(err error) { errs <- err })
	s.SetOwner("u1")
	src.push(t, added(task("a", 1)))

	src.fail <- errors.New("connection reset")

	select {
	case err := <-errs:
		assert.True(t, models.IsSync(err))
	case <-time.After(2 * time.Second):
		t.Fatal("sync error not reported")
	}
	assert.Equal(t, 1, s.Current().Len(), "last known-good snapshot retained")
	assert.Error(t, s.LastError())

	// The store resubscribes and keeps applying.
	src.push(t, added(task("b", 2)))
	assert.Equal(t, 2, s.Current().Len())
	assert.NoError(t, s.LastError())
	assert.Equal(t, []string{"u1", "u1"}, src.subscriptions())
}

func TestStore_OwnerChangeClearsSnapshot(t *testing.T) {
	src := newFakeSource()
	s := newStore(t, src)
	s.SetOwner("u1")
	src.push(t, added(task("a", 1)))
	before := s.Current().Revision()

	var seen []Snapshot
	var mu sync.Mutex
	s.OnChange(func(snap Snapshot) {
		mu.Lock()
		seen = append(seen, snap)
		mu.Unlock()
	})

	s.SetOwner("")
	snap := s.Current()
	assert.Equal(t, 0, snap.Len())
	assert.Equal(t, "", snap.OwnerID())
	assert.Greater(t, snap.Revision(), before)

	mu.Lock()
	require.Len(t, seen, 1)
	assert.Equal(t, 0, seen[0].Len())
	mu.Unlock()

	s.SetOwner("u2")
	tk := task("z", 1)
	tk.OwnerID = "u2"
	src.push(t, added(tk))
	assert.Equal(t, "u2", s.Current().OwnerID())
	assert.Equal(t, 1, s.Current().Len())
}

func TestStore_ListenerHandsOwnerSwitchOff(t *testing.T) {
	src := newFakeSource()
	s := newStore(t, src)
	s.SetOwner("u1")

	var once sync.Once
	s.OnChange(func(snap Snapshot) {
		if snap.Len() > 0 {
			once.Do(func() { go s.SetOwner("") })
		}
	})
	src.push(t, added(task("a", 1)))

	require.Eventually(t, func() bool { return s.Current().OwnerID() == "" && s.Current().Len() == 0 },
		2*time.Second, 5*time.Millisecond)
}

func TestStore_NoApplyAfterDispose(t *testing.T) {
	src := newFakeSource()
	s := New(src, Options{RetryInterval: 10 * time.Millisecond})
	s.SetOwner("u1")
	src.push(t, added(task("a", 1)))

	var calls int32
	s.OnChange(func(Snapshot) { atomic.AddInt32(&calls, 1) })

	s.Dispose()

	src.mu.Lock()
	late := src.handle
	src.mu.Unlock()
	late(added(task("late", 2)))

	assert.Equal(t, 1, s.Current().Len())
	assert.Equal(t, int32(0), atomic.LoadInt32(&calls))
	s.Dispose()
}

func TestStore_ReadersNeverSeePartialBatch(t *testing.T) {
	src := newFakeSource()
	s := newStore(t, src)
	s.SetOwner("u1")

	const size = 5
	stop := make(chan struct{})
	var torn int32
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-stop:
				return
			default:
			}
			if s.Current().Len()%size != 0 {
				atomic.AddInt32(&torn, 1)
			}
		}
	}()

	for round := 0; round < 50; round++ {
		var add, remove Batch
		for i := 0; i < size; i++ {
			tk := task(fmt.Sprintf("r%d-%d", round, i), int64(i))
			add.Changes = append(add.Changes, Change{Kind: ChangeAdded, Task: tk})
			remove.Changes = append(remove.Changes, Change{Kind: ChangeRemoved, Task: models.Task{ID: tk.ID}})
		}
		src.push(t, add)
		src.push(t, remove)
	}
	close(stop)
	wg.Wait()
	assert.Equal(t, int32(0), torn)
}

func TestStore_WaitForRevision(t *testing.T) {
	src := newFakeSource()
	s := newStore(t, src)
	s.SetOwner("u1")
	target := s.Current().Revision() + 1

	go func() {
		src.batches <- added(task("a", 1))
		<-src.acked
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	snap, err := s.WaitForRevision(ctx, target)
	require.NoError(t, err)
	assert.Equal(t, 1, snap.Len())

	short, cancel2 := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel2()
	_, err = s.WaitForRevision(short, target+10)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
