// Package queue implements the upload queue core: FIFO admission with
// per-user duplicate suppression, a bounded set of concurrent uploads,
// synthetic progress reporting and aggregate counters.
package queue

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	relay_errors "media-relay/pkg/errors"
	"media-relay/pkg/logger"
)

// Uploader moves one staged file into remote storage and returns the share
// link. Implementations must be safe for concurrent use.
type Uploader interface {
	Upload(ctx context.Context, filePath, mimeType, filename string) (string, error)
}

type Config struct {
	// Concurrency bounds the number of uploads in flight. Default 3.
	Concurrency int
	// MaxQueue bounds the backlog length; 0 means unbounded.
	MaxQueue int
	// MaxAttempts is how often an item may be tried before it fails for
	// good. Default 1, meaning no retries.
	MaxAttempts int
	// ProgressInterval is the synthetic progress tick. Default 1s.
	ProgressInterval time.Duration
	// EventBuffer sizes the progress event channel. Default 64.
	EventBuffer int
	// RecentLimit caps the terminal-item history kept for the dashboard.
	// Default 20.
	RecentLimit int
}

func (c Config) withDefaults() Config {
	if c.Concurrency <= 0 {
		c.Concurrency = 3
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 1
	}
	if c.ProgressInterval <= 0 {
		c.ProgressInterval = time.Second
	}
	if c.EventBuffer <= 0 {
		c.EventBuffer = 64
	}
	if c.RecentLimit <= 0 {
		c.RecentLimit = 20
	}
	if c.MaxQueue < 0 {
		c.MaxQueue = 0
	}
	return c
}

type Queue struct {
	cfg      Config
	uploader Uploader
	notifier Notifier
	log      *logger.Logger
	index    *DuplicateIndex

	ctx      context.Context
	clock    func() time.Time
	hashFile func(string) (string, error)

	events chan ProgressEvent

	mu            sync.Mutex
	backlog       []*Item
	active        map[string]*Item
	pending       map[string]*Item
	recent        []*Item
	total         int
	completed     int
	failed        int
	userCompleted map[string]int
	userFailed    map[string]int
}

func New(cfg Config, uploader Uploader, notifier Notifier, log *logger.Logger) *Queue {
	cfg = cfg.withDefaults()
	if notifier == nil {
		notifier = NopNotifier{}
	}
	return &Queue{
		cfg:           cfg,
		uploader:      uploader,
		notifier:      notifier,
		log:           log,
		index:         NewDuplicateIndex(),
		ctx:           context.Background(),
		clock:         time.Now,
		hashFile:      HashFile,
		events:        make(chan ProgressEvent, cfg.EventBuffer),
		active:        make(map[string]*Item),
		pending:       make(map[string]*Item),
		userCompleted: make(map[string]int),
		userFailed:    make(map[string]int),
	}
}

// Start binds the queue's upload lifetime to ctx. Must be called before the
// first Submit; cancelling ctx aborts in-flight uploads.
func (q *Queue) Start(ctx context.Context) {
	q.ctx = ctx
}

// Index exposes the duplicate index, mainly for housekeeping and tests.
func (q *Queue) Index() *DuplicateIndex {
	return q.index
}

// Events returns the advisory progress feed. Events are dropped, never
// blocked on, when the consumer falls behind.
func (q *Queue) Events() <-chan ProgressEvent {
	return q.events
}

// Submit runs the admission sequence for one staged file: backlog bound,
// duplicate check against completed and in-flight uploads, then enqueue.
// The duplicate check and the enqueue happen atomically with respect to
// concurrent submissions. Hashing runs outside the critical section; a file
// that cannot be hashed is admitted as a non-duplicate.
func (q *Queue) Submit(ctx context.Context, req UploadRequest) (SubmitResult, error) {
	if req.UserID == "" || req.FilePath == "" {
		return SubmitResult{}, relay_errors.ErrInvalidInput
	}

	digest, err := q.hashFile(req.FilePath)
	if err != nil {
		if q.log != nil {
			q.log.Warnf("hashing %s failed, admitting without duplicate check: %v", req.Filename, err)
		}
		digest = ""
	}

	q.mu.Lock()

	if q.cfg.MaxQueue > 0 && len(q.backlog) >= q.cfg.MaxQueue {
		limit := q.cfg.MaxQueue
		q.mu.Unlock()
		q.notifier.QueueFull(req, limit)
		return SubmitResult{Outcome: OutcomeQueueFull}, relay_errors.ErrQueueFull
	}

	if digest != "" {
		if rec, ok := q.index.Lookup(req.UserID, digest); ok {
			q.mu.Unlock()
			q.notifier.Duplicate(req, rec)
			return SubmitResult{Outcome: OutcomeDuplicate, Record: &rec}, nil
		}
		if prior, ok := q.pending[dupKey(req.UserID, digest)]; ok {
			filename := prior.Request.Filename
			q.mu.Unlock()
			q.notifier.AlreadyQueued(req, filename)
			return SubmitResult{Outcome: OutcomeDuplicate}, nil
		}
	}

	now := q.clock()
	item := &Item{
		ID:         newItemID(req.UserID, now),
		Request:    req,
		Digest:     digest,
		Status:     StatusQueued,
		Attempt:    1,
		EnqueuedAt: now,
	}
	q.backlog = append(q.backlog, item)
	q.total++
	if digest != "" {
		q.pending[dupKey(req.UserID, digest)] = item
	}
	position := len(q.active) + len(q.backlog)
	q.scheduleLocked()
	q.mu.Unlock()

	q.notifier.Queued(req, position)
	return SubmitResult{Outcome: OutcomeQueued, Position: position}, nil
}

// scheduleLocked moves backlog heads into the active set while slots are
// free. Callers hold q.mu.
func (q *Queue) scheduleLocked() {
	for len(q.backlog) > 0 && len(q.active) < q.cfg.Concurrency {
		item := q.backlog[0]
		q.backlog = q.backlog[1:]
		item.Status = StatusProcessing
		item.StartedAt = q.clock()
		item.Progress = 0
		q.active[item.ID] = item
		done := make(chan struct{})
		go q.process(item, done)
	}
}

func (q *Queue) process(item *Item, done chan struct{}) {
	go q.reportProgress(item, done)

	link, err := q.uploader.Upload(q.ctx, item.Request.FilePath, item.Request.MimeType, item.Request.Filename)

	q.mu.Lock()
	close(done)
	delete(q.active, item.ID)

	var (
		retrying bool
		elapsed  time.Duration
	)
	now := q.clock()
	switch {
	case err == nil:
		item.Status = StatusCompleted
		item.Progress = 100
		item.Link = link
		item.CompletedAt = now
		q.completed++
		q.userCompleted[item.Request.UserID]++
		if item.Digest != "" {
			rec := DuplicateRecord{Link: link, UploadedAt: now, Filename: item.Request.Filename}
			q.index.Record(item.Request.UserID, item.Digest, rec)
			delete(q.pending, dupKey(item.Request.UserID, item.Digest))
		}
		q.pushRecentLocked(item)
		elapsed = now.Sub(item.EnqueuedAt)
	case item.Attempt < q.cfg.MaxAttempts:
		retrying = true
		item.Attempt++
		item.Status = StatusQueued
		item.Progress = 0
		item.Err = err
		q.backlog = append(q.backlog, item)
	default:
		item.Status = StatusFailed
		item.Err = err
		item.CompletedAt = now
		q.failed++
		q.userFailed[item.Request.UserID]++
		if item.Digest != "" {
			delete(q.pending, dupKey(item.Request.UserID, item.Digest))
		}
		q.pushRecentLocked(item)
	}
	// a slot freed up either way, keep the backlog moving
	q.scheduleLocked()
	q.mu.Unlock()

	switch {
	case err == nil:
		q.emit(ProgressEvent{ItemID: item.ID, UserID: item.Request.UserID, Filename: item.Request.Filename, Percent: 100, Status: StatusCompleted})
		q.notifier.Completed(item.Request, link, elapsed)
	case retrying:
		if q.log != nil {
			q.log.Warnf("upload of %s failed on attempt %d, requeued: %v", item.Request.Filename, item.Attempt-1, err)
		}
	default:
		q.emit(ProgressEvent{ItemID: item.ID, UserID: item.Request.UserID, Filename: item.Request.Filename, Percent: item.Progress, Status: StatusFailed})
		if q.log != nil {
			q.log.Errorf("upload of %s failed: %v", item.Request.Filename, err)
		}
		q.notifier.Failed(item.Request, err)
	}
}

// RunHousekeeping prunes aged duplicate records until ctx is cancelled.
func (q *Queue) RunHousekeeping(ctx context.Context, interval, maxAge time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := q.index.Prune(maxAge); n > 0 && q.log != nil {
				q.log.Infof("pruned %d duplicate records older than %s", n, maxAge)
			}
		}
	}
}

func (q *Queue) pushRecentLocked(item *Item) {
	q.recent = append([]*Item{item}, q.recent...)
	if len(q.recent) > q.cfg.RecentLimit {
		q.recent = q.recent[:q.cfg.RecentLimit]
	}
}

func dupKey(userID, digest string) string {
	return userID + "\x00" + digest
}

func newItemID(userID string, now time.Time) string {
	buf := make([]byte, 4)
	_, _ = rand.Read(buf)
	return fmt.Sprintf("%s-%d-%s", userID, now.UnixNano(), hex.EncodeToString(buf))
}
