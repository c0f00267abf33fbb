package livestore

import (
	"sort"

	"github.com/fentz26/taskboard/internal/models"
)

// Snapshot is an immutable, point-in-time view of one owner's tasks.
// The zero value is an empty snapshot at revision 0.
//
// The store bumps the revision by exactly one per published snapshot: an
// owner switch, or a batch that changes a task or the loaded flag. A batch
// that re-delivers what the snapshot already holds publishes nothing and
// keeps the revision.
type Snapshot struct {
	revision uint64
	owner    string
	loaded   bool
	byID     map[string]models.Task
	ordered  []models.Task
}

// NewSnapshot builds a snapshot from tasks. Later duplicates of an id win.
func NewSnapshot(ownerID string, revision uint64, tasks []models.Task) Snapshot {
	byID := make(map[string]models.Task, len(tasks))
	for _, t := range tasks {
		byID[t.ID] = t
	}
	return build(ownerID, revision, true, byID)
}

func build(owner string, revision uint64, loaded bool, byID map[string]models.Task) Snapshot {
	ordered := make([]models.Task, 0, len(byID))
	for _, t := range byID {
		ordered = append(ordered, t)
	}
	sort.Slice(ordered, func(i, j int) bool {
		if ordered[i].CreatedAt != ordered[j].CreatedAt {
			return ordered[i].CreatedAt > ordered[j].CreatedAt
		}
		return ordered[i].ID < ordered[j].ID
	})
	return Snapshot{
		revision: revision,
		owner:    owner,
		loaded:   loaded,
		byID:     byID,
		ordered:  ordered,
	}
}

// Revision increases by one with every published snapshot.
func (s Snapshot) Revision() uint64 { return s.revision }

// OwnerID is the owner whose tasks the snapshot holds, empty when signed out.
func (s Snapshot) OwnerID() string { return s.owner }

// Loaded reports whether a full remote state has been applied since the
// owner was set.
func (s Snapshot) Loaded() bool { return s.loaded }

// Tasks returns the tasks ordered by createdAt descending. The slice is
// shared between readers and must not be modified.
func (s Snapshot) Tasks() []models.Task { return s.ordered }

// Len returns the number of tasks.
func (s Snapshot) Len() int { return len(s.ordered) }

// Get looks a task up by id.
func (s Snapshot) Get(id string) (models.Task, bool) {
	t, ok := s.byID[id]
	return t, ok
}

// apply returns the snapshot that results from b, and whether anything
// observable changed. The receiver is never modified.
func (s Snapshot) apply(b Batch, accept func(models.Task) bool) (Snapshot, bool) {
	var next map[string]models.Task
	if b.Full {
		next = make(map[string]models.Task, len(b.Changes))
	} else {
		next = make(map[string]models.Task, len(s.byID)+len(b.Changes))
		for id, t := range s.byID {
			next[id] = t
		}
	}

	for _, c := range b.Changes {
		switch c.Kind {
		case ChangeRemoved:
			delete(next, c.Task.ID)
		case ChangeAdded, ChangeModified:
			if !accept(c.Task) {
				continue
			}
			next[c.Task.ID] = c.Task.Clone()
		}
	}

	loaded := s.loaded || b.Full
	if loaded == s.loaded && sameContent(s.byID, next) {
		return s, false
	}
	return build(s.owner, s.revision, loaded, next), true
}

func sameContent(a, b map[string]models.Task) bool {
	if len(a) != len(b) {
		return false
	}
	for id, ta := range a {
		tb, ok := b[id]
		if !ok || !ta.Equal(tb) {
			return false
		}
	}
	return true
}
