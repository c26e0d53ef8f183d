package model

import (
	"time"

	"github.com/dustin/go-humanize"
)

// UploadState represents the lifecycle state of an UploadTask.
type UploadState string

const (
	UploadStatePending    UploadState = "PENDING"    // selected and validated, not yet sent
	UploadStateProcessing UploadState = "PROCESSING" // uploaded, backend holds the file
	UploadStateProcessed  UploadState = "PROCESSED"  // report generated
	UploadStateFailed     UploadState = "FAILED"
)

// String returns the string representation of the upload state.
func (s UploadState) String() string {
	return string(s)
}

// IsTerminal returns true if the task is in a final state.
func (s UploadState) IsTerminal() bool {
	return s == UploadStateProcessed || s == UploadStateFailed
}

// ValidUploadTransitions defines the allowed state transitions for
// UploadTasks. A failed or processed task never moves again; replacing the
// selection creates a new task instead.
var ValidUploadTransitions = map[UploadState][]UploadState{
	UploadStatePending:    {UploadStateProcessing, UploadStateFailed},
	UploadStateProcessing: {UploadStateProcessed, UploadStateFailed},
}

// CanTransitionTo returns true if moving from the current state to next is valid.
func (s UploadState) CanTransitionTo(next UploadState) bool {
	for _, allowed := range ValidUploadTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// UploadTask tracks one file moving through validation, upload, and report
// generation. Tasks are ephemeral client state; only the history store
// persists a record of them.
type UploadTask struct {
	ID         string      `json:"id"`
	Tool       string      `json:"tool"`
	Path       string      `json:"path"`
	Name       string      `json:"name"`
	Size       int64       `json:"size"`
	State      UploadState `json:"state"`
	FileID     string      `json:"file_id,omitempty"`     // backend-assigned after upload
	ReportFile string      `json:"report_file,omitempty"` // set when processed
	Error      string      `json:"error,omitempty"`
	CreatedAt  time.Time   `json:"created_at"`
}

// DisplaySize returns the human-readable file size ("1.2 MB").
func (t *UploadTask) DisplaySize() string {
	return humanize.Bytes(uint64(t.Size))
}

// Transition moves the task to next, enforcing the state machine.
func (t *UploadTask) Transition(next UploadState) error {
	if !t.State.CanTransitionTo(next) {
		return &InvalidTransitionError{Entity: "UploadTask", ID: t.ID, From: string(t.State), To: string(next)}
	}
	t.State = next
	return nil
}

// Fail marks the task failed and records the reason. Failing is always
// allowed; it is the sink state for every error path.
func (t *UploadTask) Fail(reason string) {
	t.State = UploadStateFailed
	t.Error = reason
}
