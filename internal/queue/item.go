package queue

import (
	"time"
)

type Status string

const (
	StatusQueued     Status = "queued"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Terminal reports whether no further transitions are allowed from s.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// UploadRequest is what the ingestion side hands over for one staged file.
// Ref is an opaque reference (chat/message ids) carried back through
// notifications untouched.
type UploadRequest struct {
	UserID   string
	FilePath string
	MimeType string
	Filename string
	Ref      any
}

// Item is the queue's working record for one admitted request.
// All fields are guarded by the queue mutex after admission.
type Item struct {
	ID          string
	Request     UploadRequest
	Digest      string
	Status      Status
	Progress    int
	Attempt     int
	EnqueuedAt  time.Time
	StartedAt   time.Time
	CompletedAt time.Time
	Link        string
	Err         error
}

// DuplicateRecord remembers a completed upload so identical re-submissions
// can be answered with the original link.
type DuplicateRecord struct {
	Link       string    `json:"link"`
	UploadedAt time.Time `json:"uploaded_at"`
	Filename   string    `json:"filename"`
}

type Outcome string

const (
	OutcomeQueued    Outcome = "queued"
	OutcomeDuplicate Outcome = "duplicate"
	OutcomeQueueFull Outcome = "queue_full"
)

// SubmitResult reports the admission decision. Position is set for
// OutcomeQueued and counts items ahead plus the new item itself.
// Record is set when a completed duplicate was found.
type SubmitResult struct {
	Outcome  Outcome          `json:"outcome"`
	Position int              `json:"position,omitempty"`
	Record   *DuplicateRecord `json:"record,omitempty"`
}

// ProgressEvent is one tick of the advisory progress feed.
type ProgressEvent struct {
	ItemID   string `json:"item_id"`
	UserID   string `json:"user_id"`
	Filename string `json:"filename"`
	Percent  int    `json:"percent"`
	Status   Status `json:"status"`
}

// Stats are the aggregate counters. Total covers every admitted item, so
// Total == Completed + Failed + InProgress + Backlog at all times.
type Stats struct {
	Total      int `json:"total"`
	Completed  int `json:"completed"`
	Failed     int `json:"failed"`
	InProgress int `json:"in_progress"`
	Backlog    int `json:"backlog"`
}

// ItemView is the read-only projection served to the dashboard.
type ItemView struct {
	ID         string    `json:"id"`
	UserID     string    `json:"user_id"`
	Filename   string    `json:"filename"`
	Status     Status    `json:"status"`
	Progress   int       `json:"progress"`
	Attempt    int       `json:"attempt"`
	EnqueuedAt time.Time `json:"enqueued_at"`
	Link       string    `json:"link,omitempty"`
	Error      string    `json:"error,omitempty"`
}

// StatusSnapshot is the full dashboard view: counters plus the live backlog,
// the active set and the most recent terminal items.
type StatusSnapshot struct {
	Stats   Stats      `json:"stats"`
	Backlog []ItemView `json:"backlog"`
	Active  []ItemView `json:"active"`
	Recent  []ItemView `json:"recent"`
}

// UserStatus is the per-user slice of the counters.
type UserStatus struct {
	Queued    int `json:"queued"`
	Active    int `json:"active"`
	Completed int `json:"completed"`
	Failed    int `json:"failed"`
	Total     int `json:"total"`
}
