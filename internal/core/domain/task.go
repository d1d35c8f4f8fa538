package domain

import (
	"crypto/rand"
	"encoding/base64"
	"time"
)

// GenerateID returns 16 random bytes as unpadded URL-safe base64
func GenerateID() string {
	var b [16]byte
	_, _ = rand.Read(b[:])
	return base64.RawURLEncoding.EncodeToString(b[:])
}

type TaskType string

// TaskTypeIngestDocument indexes an upload staged in the blob store
const TaskTypeIngestDocument TaskType = "ingest_document"

// TaskStatus moves pending -> processing -> completed|failed, with
// processing -> pending again on a retry.
type TaskStatus string

const (
	TaskStatusPending    TaskStatus = "pending"
	TaskStatusProcessing TaskStatus = "processing"
	TaskStatusCompleted  TaskStatus = "completed"
	TaskStatusFailed     TaskStatus = "failed"
)

// DefaultMaxAttempts is how often a task runs before it is failed
const DefaultMaxAttempts = 3

const maxRetryDelay = 5 * time.Minute

// Payload keys of an ingest task
const (
	PayloadDocumentName = "document_name"
	PayloadContentType  = "content_type"
	PayloadBlobKey      = "blob_key"
)

// Task is a unit of background work. Queues persist it as JSON, so all
// state lives in exported fields.
type Task struct {
	ID      string            `json:"id"`
	Type    TaskType          `json:"type"`
	Payload map[string]string `json:"payload"`
	Status  TaskStatus        `json:"status"`

	Attempts    int           `json:"attempts"`
	MaxAttempts int           `json:"max_attempts"`
	Error       string        `json:"error,omitempty"` // last failure
	Result      *IngestResult `json:"result,omitempty"`

	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
	StartedAt    *time.Time `json:"started_at,omitempty"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
	ScheduledFor time.Time  `json:"scheduled_for"`
}

func NewTask(typ TaskType, payload map[string]string) *Task {
	now := time.Now()
	return &Task{
		ID:           GenerateID(),
		Type:         typ,
		Payload:      payload,
		Status:       TaskStatusPending,
		MaxAttempts:  DefaultMaxAttempts,
		CreatedAt:    now,
		UpdatedAt:    now,
		ScheduledFor: now,
	}
}

// NewIngestTask creates the task for one upload. Its bytes are staged
// under BlobKey, which is derived from the task ID.
func NewIngestTask(documentName, contentType string) *Task {
	t := NewTask(TaskTypeIngestDocument, map[string]string{
		PayloadDocumentName: documentName,
		PayloadContentType:  contentType,
	})
	t.Payload[PayloadBlobKey] = "upload-" + t.ID
	return t
}

func (t *Task) DocumentName() string { return t.Payload[PayloadDocumentName] }
func (t *Task) ContentType() string  { return t.Payload[PayloadContentType] }
func (t *Task) BlobKey() string      { return t.Payload[PayloadBlobKey] }

func (t *Task) CanRetry() bool {
	return t.Attempts < t.MaxAttempts
}

// ReadyAt reports whether a worker may claim the task at now
func (t *Task) ReadyAt(now time.Time) bool {
	return t.Status == TaskStatusPending && !now.Before(t.ScheduledFor)
}

// Settled reports whether the task reached a final status
func (t *Task) Settled() bool {
	switch t.Status {
	case TaskStatusCompleted, TaskStatusFailed:
		return true
	}
	return false
}

// MarkProcessing starts an attempt
func (t *Task) MarkProcessing() {
	now := t.touch(TaskStatusProcessing)
	t.StartedAt = &now
	t.Attempts++
}

func (t *Task) MarkCompleted(result *IngestResult) {
	now := t.touch(TaskStatusCompleted)
	t.CompletedAt = &now
	t.Error = ""
	t.Result = result
}

func (t *Task) MarkFailed(reason string) {
	t.touch(TaskStatusFailed)
	t.Error = reason
}

// Retry puts the task back to pending after RetryDelay(Attempts)
func (t *Task) Retry(reason string) {
	now := t.touch(TaskStatusPending)
	t.Error = reason
	t.ScheduledFor = now.Add(RetryDelay(t.Attempts))
}

func (t *Task) touch(status TaskStatus) time.Time {
	now := time.Now()
	t.Status = status
	t.UpdatedAt = now
	return now
}

// RetryDelay doubles from two seconds per attempt made, up to five minutes
func RetryDelay(attempts int) time.Duration {
	if attempts >= 9 {
		return maxRetryDelay
	}
	return min(time.Duration(1<<max(attempts, 1))*time.Second, maxRetryDelay)
}
