package domain

import (
	"encoding/base64"
	"testing"
	"time"
)

func TestGenerateID(t *testing.T) {
	seen := make(map[string]bool)
	for range 100 {
		id := GenerateID()
		if seen[id] {
			t.Fatalf("duplicate id %q", id)
		}
		seen[id] = true

		raw, err := base64.RawURLEncoding.DecodeString(id)
		if err != nil || len(raw) != 16 {
			t.Fatalf("id %q is not 16 url-safe bytes: %v", id, err)
		}
	}
}

func TestNewIngestTask(t *testing.T) {
	task := NewIngestTask("constitution.pdf", "application/pdf")

	if task.Type != TaskTypeIngestDocument || task.Status != TaskStatusPending {
		t.Fatalf("unexpected new task: %s/%s", task.Type, task.Status)
	}
	if task.DocumentName() != "constitution.pdf" || task.ContentType() != "application/pdf" {
		t.Errorf("payload not carried: %v", task.Payload)
	}
	if task.BlobKey() != "upload-"+task.ID {
		t.Errorf("staging key should derive from the id, got %q", task.BlobKey())
	}
	if task.MaxAttempts != DefaultMaxAttempts {
		t.Errorf("expected %d attempts, got %d", DefaultMaxAttempts, task.MaxAttempts)
	}
	if !task.ReadyAt(time.Now()) {
		t.Error("new task should be claimable immediately")
	}
}

func TestTask_EmptyPayload(t *testing.T) {
	var task Task
	if task.DocumentName()+task.ContentType()+task.BlobKey() != "" {
		t.Error("accessors on a nil payload should be empty")
	}
}

func TestTask_CompletesOnce(t *testing.T) {
	task := NewIngestTask("a.txt", "text/plain")
	task.MarkProcessing()

	if task.Status != TaskStatusProcessing || task.Attempts != 1 || task.StartedAt == nil {
		t.Fatalf("attempt not started: %+v", task)
	}
	if task.Settled() || task.ReadyAt(time.Now()) {
		t.Error("processing task is neither settled nor claimable")
	}

	task.Error = "previous failure"
	result := &IngestResult{DocumentName: "a.txt", TotalChunks: 4}
	task.MarkCompleted(result)

	if !task.Settled() || task.Result != result || task.CompletedAt == nil {
		t.Errorf("completion not recorded: %+v", task)
	}
	if task.Error != "" {
		t.Errorf("completion should clear the last error, got %q", task.Error)
	}
}

func TestTask_RetryWaitsOutBackoff(t *testing.T) {
	task := NewIngestTask("a.txt", "text/plain")
	task.MarkProcessing()
	task.Retry("embedding timeout")

	if task.Status != TaskStatusPending || task.Error != "embedding timeout" {
		t.Fatalf("retry not recorded: %s %q", task.Status, task.Error)
	}
	if task.ReadyAt(time.Now()) {
		t.Error("retried task claimable before its backoff")
	}
	if !task.ReadyAt(time.Now().Add(RetryDelay(1))) {
		t.Error("retried task should be claimable once the backoff passed")
	}
	if !task.CanRetry() {
		t.Error("one of three attempts used")
	}
}

func TestTask_MarkFailed(t *testing.T) {
	task := NewIngestTask("a.txt", "text/plain")
	task.Attempts = DefaultMaxAttempts
	task.MarkFailed("insufficient content")

	if task.Status != TaskStatusFailed || !task.Settled() {
		t.Errorf("expected settled failure, got %s", task.Status)
	}
	if task.CanRetry() {
		t.Error("attempts are exhausted")
	}
}

func TestRetryDelay(t *testing.T) {
	tests := []struct {
		attempts int
		want     time.Duration
	}{
		{0, 2 * time.Second},
		{1, 2 * time.Second},
		{2, 4 * time.Second},
		{3, 8 * time.Second},
		{8, 256 * time.Second},
		{9, 5 * time.Minute},
		{64, 5 * time.Minute},
	}
	for _, tt := range tests {
		if got := RetryDelay(tt.attempts); got != tt.want {
			t.Errorf("RetryDelay(%d) = %v, want %v", tt.attempts, got, tt.want)
		}
	}
}
