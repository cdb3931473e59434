package upload

import "time"

// Status is the lifecycle state of an upload task.
type Status string

const (
	StatusUploading  Status = "uploading"
	StatusConfirming Status = "confirming"
	StatusDone       Status = "done"
	StatusError      Status = "error"
	StatusCancelled  Status = "cancelled"
)

// Active reports whether the task occupies an upload slot.
func (s Status) Active() bool {
	return s == StatusUploading || s == StatusConfirming
}

// Terminal reports whether the task has stopped moving on its own.
func (s Status) Terminal() bool {
	return s == StatusDone || s == StatusError || s == StatusCancelled
}

// Task is a snapshot of one upload. Snapshots are values; later changes are
// observed through Orchestrator.Task or the change listener.
type Task struct {
	ID       string
	File     File
	Status   Status
	Progress int
	// Error is the user-facing message of an error or cancelled task.
	Error string
	// AttachmentID is the server record of the current attempt, zero until
	// the upload URL is issued.
	AttachmentID int64
	// Retryable is false for validation rejections.
	Retryable bool
	// Attempt counts runs of the upload sequence, starting at 1. Rejected
	// files stay at 0.
	Attempt   int
	CreatedAt time.Time
}

// Event is delivered to the change listener after every task update.
type Event struct {
	Task    Task
	Removed bool
}
