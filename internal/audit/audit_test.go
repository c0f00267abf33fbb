package audit

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/fentz26/taskboard/internal/store"
)

func TestRecord(t *testing.T) {
	s, err := store.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	defer s.Close()

	r := NewRecorder(s)
	inputs := map[string]string{"content": "Ship it"}
	rec, err := r.Record("task.create", inputs, OutcomeSuccess, "u1", "t1", "created")
	if err != nil {
		t.Fatalf("Record failed: %v", err)
	}
	if rec.InputsHash != HashInputs(inputs) {
		t.Errorf("Expected hash %s, got %s", HashInputs(inputs), rec.InputsHash)
	}

	recs, err := s.ListAudit(context.Background(), "u1", 0)
	if err != nil {
		t.Fatalf("ListAudit failed: %v", err)
	}
	if len(recs) != 1 || recs[0].Outcome != OutcomeSuccess {
		t.Errorf("Unexpected records %+v", recs)
	}
}

func TestHashInputsIsStable(t *testing.T) {
	a := HashInputs(map[string]int{"x": 1, "y": 2})
	b := HashInputs(map[string]int{"y": 2, "x": 1})
	if a != b {
		t.Error("Hash should not depend on map order")
	}
	if len(a) != 64 {
		t.Errorf("Expected 64 hex chars, got %d", len(a))
	}
	if HashInputs(func() {}) != "hash_error" {
		t.Error("Unencodable inputs should hash to hash_error")
	}
}
