package queue

import (
	"math/rand"
	"time"
)

// progressCeiling is the high-water mark synthetic progress may reach.
// Only a real completion moves an item to 100.
const progressCeiling = 90

// reportProgress ticks synthetic progress for one dispatch of item. It stops
// the moment done closes or the item leaves processing, so a terminal item
// never receives another update.
func (q *Queue) reportProgress(item *Item, done <-chan struct{}) {
	ticker := time.NewTicker(q.cfg.ProgressInterval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			q.mu.Lock()
			if item.Status != StatusProcessing {
				q.mu.Unlock()
				return
			}
			if item.Progress < progressCeiling {
				item.Progress += 5 + rand.Intn(16)
				if item.Progress > progressCeiling {
					item.Progress = progressCeiling
				}
			}
			ev := ProgressEvent{
				ItemID:   item.ID,
				UserID:   item.Request.UserID,
				Filename: item.Request.Filename,
				Percent:  item.Progress,
				Status:   StatusProcessing,
			}
			q.mu.Unlock()
			q.emit(ev)
		}
	}
}

// emit pushes ev onto the feed without ever blocking a queue goroutine.
func (q *Queue) emit(ev ProgressEvent) {
	select {
	case q.events <- ev:
	default:
	}
}
