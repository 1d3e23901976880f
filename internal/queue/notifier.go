package queue

import "time"

// Notifier receives the user-facing outcome of every admission and every
// terminal transition. Callbacks run synchronously on the queue's goroutines
// after the state change is committed, so an implementation must not call
// back into the queue and must swallow its own delivery errors.
type Notifier interface {
	// Queued confirms admission; position counts items ahead plus this one.
	Queued(req UploadRequest, position int)
	// Duplicate reports a completed earlier upload of the same content.
	Duplicate(req UploadRequest, rec DuplicateRecord)
	// AlreadyQueued reports that identical content is in the queue right now.
	AlreadyQueued(req UploadRequest, filename string)
	// QueueFull reports rejection because the backlog is at its bound.
	QueueFull(req UploadRequest, limit int)
	Completed(req UploadRequest, link string, elapsed time.Duration)
	Failed(req UploadRequest, err error)
}

// NopNotifier discards all notifications.
type NopNotifier struct{}

func (NopNotifier) Queued(UploadRequest, int)                      {}
func (NopNotifier) Duplicate(UploadRequest, DuplicateRecord)       {}
func (NopNotifier) AlreadyQueued(UploadRequest, string)            {}
func (NopNotifier) QueueFull(UploadRequest, int)                   {}
func (NopNotifier) Completed(UploadRequest, string, time.Duration) {}
func (NopNotifier) Failed(UploadRequest, error)                    {}
