package events

import (
	"context"
	"encoding/json"
	"time"

	"media-relay/internal/queue"
	"media-relay/pkg/logger"
)

// EventSource is the queue side of the feed.
type EventSource interface {
	Events() <-chan queue.ProgressEvent
	Snapshot() queue.StatusSnapshot
}

// Broadcaster is the websocket hub side of the feed.
type Broadcaster interface {
	Broadcast(payload []byte)
	BroadcastUser(userID string, payload []byte)
}

// Publisher pushes feed payloads to an external channel. Optional.
type Publisher interface {
	Publish(ctx context.Context, channel string, payload []byte) error
}

// Observer is the dedicated consumer of the queue's progress stream. It is
// the only reader of that channel; everything downstream hangs off it.
type Observer struct {
	source    EventSource
	feed      Broadcaster
	publisher Publisher
	log       *logger.Logger
	snapEvery time.Duration
}

// NewObserver wires the feed. publisher may be nil when no Redis is
// configured; snapEvery <= 0 defaults to 5s.
func NewObserver(source EventSource, feed Broadcaster, publisher Publisher, log *logger.Logger, snapEvery time.Duration) *Observer {
	if snapEvery <= 0 {
		snapEvery = 5 * time.Second
	}
	return &Observer{
		source:    source,
		feed:      feed,
		publisher: publisher,
		log:       log,
		snapEvery: snapEvery,
	}
}

// Run consumes progress events and pushes periodic snapshots until ctx is
// cancelled.
func (o *Observer) Run(ctx context.Context) {
	ticker := time.NewTicker(o.snapEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-o.source.Events():
			o.handleProgress(ctx, ev)
		case <-ticker.C:
			o.broadcastSnapshot()
		}
	}
}

func (o *Observer) handleProgress(ctx context.Context, ev queue.ProgressEvent) {
	payload, err := json.Marshal(Envelope{Type: TypeProgress, Data: ev})
	if err != nil {
		return
	}

	o.feed.BroadcastUser(ev.UserID, payload)

	if o.publisher != nil {
		if err := o.publisher.Publish(ctx, ProgressChannel, payload); err != nil && o.log != nil {
			o.log.Warnf("publishing progress event: %v", err)
		}
	}

	if o.log != nil {
		o.log.Debugf("item %s (%s) at %d%%, %s", ev.ItemID, ev.Filename, ev.Percent, ev.Status)
	}
}

// broadcastSnapshot lets freshly connected dashboards reconcile without a
// dedicated request/response path.
func (o *Observer) broadcastSnapshot() {
	payload, err := json.Marshal(Envelope{Type: TypeSnapshot, Data: o.source.Snapshot()})
	if err != nil {
		return
	}
	o.feed.Broadcast(payload)
}
