// Package audit writes decision records for mutations handled by the
// document service.
package audit

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"

	"github.com/fentz26/taskboard/internal/models"
	"github.com/fentz26/taskboard/internal/store"
)

// Outcomes recorded for each mutation.
const (
	OutcomeSuccess  = "success"
	OutcomeRejected = "rejected"
	OutcomeFailed   = "failed"
)

// Recorder writes audit records to the document store.
type Recorder struct {
	store *store.Store
}

// NewRecorder creates a new Recorder.
func NewRecorder(s *store.Store) *Recorder {
	return &Recorder{store: s}
}

// Record writes an audit record for a state-mutating action. Inputs are
// stored only as a hash.
func (r *Recorder) Record(action string, inputs interface{}, outcome, ownerID, taskID, details string) (*models.AuditRecord, error) {
	return r.store.WriteAudit(action, HashInputs(inputs), outcome, ownerID, taskID, details)
}

// HashInputs returns the hex SHA-256 of inputs encoded as JSON.
func HashInputs(inputs interface{}) string {
	data, err := json.Marshal(inputs)
	if err != nil {
		return "hash_error"
	}
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:])
}
