// Package events fans the queue's progress feed out to its consumers: the
// dashboard websocket hub, the log, and optionally a Redis channel for
// other processes to follow.
package events

// Feed event types, format domain.action.
const (
	TypeProgress = "upload.progress"
	TypeSnapshot = "queue.snapshot"
)

// ProgressChannel is the Redis pub/sub channel carrying progress events.
const ProgressChannel = "channel:upload:progress"

// Envelope wraps every feed payload so consumers can switch on Type.
type Envelope struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}
