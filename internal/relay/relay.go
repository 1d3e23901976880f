// Package relay bridges the chat gateway to the upload queue. It stages
// inbound files, applies moderation and flood gates before admission, turns
// queue outcomes into chat replies, and owns the staged-file lifecycle.
package relay

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"media-relay/internal/queue"
	relay_errors "media-relay/pkg/errors"
	"media-relay/pkg/logger"
)

// InboundMedia describes one media message delivered by the chat gateway.
// Size is the declared size; the staging copy enforces the limit again since
// gateways have been known to understate it.
type InboundMedia struct {
	UserID    string
	ChatID    string
	MessageID string
	Filename  string
	MimeType  string
	Size      int64
	Data      io.Reader
}

// msgRef travels through the queue as the opaque notification reference.
type msgRef struct {
	ChatID    string
	MessageID string
}

// Submitter is the queue-side contract the relay feeds.
type Submitter interface {
	Submit(ctx context.Context, req queue.UploadRequest) (queue.SubmitResult, error)
}

// Gate decides whether a user may submit uploads at all.
type Gate interface {
	CanUpload(userID string) error
}

type Config struct {
	StagingDir   string
	MaxFileBytes int64
	FloodPerMin  int
	FloodBurst   int
}

type Relay struct {
	cfg       Config
	submitter Submitter
	responder Responder
	gate      Gate
	flood     *floodGuard
	log       *logger.Logger
}

// New builds a relay without a queue attached; call AttachQueue once the
// queue exists. The two reference each other, so one side has to be wired
// late.
func New(cfg Config, responder Responder, gate Gate, log *logger.Logger) *Relay {
	return &Relay{
		cfg:       cfg,
		responder: responder,
		gate:      gate,
		flood:     newFloodGuard(cfg.FloodPerMin, cfg.FloodBurst),
		log:       log,
	}
}

func (r *Relay) AttachQueue(s Submitter) {
	r.submitter = s
}

// HandleMedia runs the full ingestion sequence for one inbound file: size
// gate, moderation gate, flood gate, staging, then queue admission. Every
// rejection is answered in chat before the error is returned.
func (r *Relay) HandleMedia(ctx context.Context, msg InboundMedia) (queue.SubmitResult, error) {
	if msg.UserID == "" || msg.Filename == "" || msg.Data == nil {
		return queue.SubmitResult{}, relay_errors.ErrInvalidInput
	}
	if r.submitter == nil {
		return queue.SubmitResult{}, relay_errors.ErrServiceUnavailable
	}

	if r.cfg.MaxFileBytes > 0 && msg.Size > r.cfg.MaxFileBytes {
		r.reply(ctx, msg.ChatID, msg.MessageID, r.tooLargeText(msg.Filename))
		return queue.SubmitResult{}, relay_errors.ErrTooLarge
	}

	if err := r.gate.CanUpload(msg.UserID); err != nil {
		r.reply(ctx, msg.ChatID, msg.MessageID, "Your uploads are suspended right now. Contact a moderator if you think this is a mistake.")
		return queue.SubmitResult{}, err
	}

	if !r.flood.allow(msg.UserID) {
		r.reply(ctx, msg.ChatID, msg.MessageID, "Easy there! Too many uploads at once, give it a minute.")
		return queue.SubmitResult{}, relay_errors.ErrRateLimited
	}

	staged, err := r.stage(msg)
	if err != nil {
		if errors.Is(err, relay_errors.ErrTooLarge) {
			r.reply(ctx, msg.ChatID, msg.MessageID, r.tooLargeText(msg.Filename))
			return queue.SubmitResult{}, err
		}
		return queue.SubmitResult{}, fmt.Errorf("staging %s: %w", msg.Filename, err)
	}

	res, err := r.submitter.Submit(ctx, queue.UploadRequest{
		UserID:   msg.UserID,
		FilePath: staged,
		MimeType: msg.MimeType,
		Filename: msg.Filename,
		Ref:      msgRef{ChatID: msg.ChatID, MessageID: msg.MessageID},
	})
	if err != nil {
		// rejected admissions never reach a terminal callback, so the
		// staged copy is cleaned up here
		r.removeStaged(staged)
	}
	return res, err
}

// stage copies the inbound stream into the staging directory under a fresh
// name, enforcing the size limit on the actual bytes.
func (r *Relay) stage(msg InboundMedia) (string, error) {
	if err := os.MkdirAll(r.cfg.StagingDir, 0o755); err != nil {
		return "", err
	}

	ext := strings.ToLower(filepath.Ext(msg.Filename))
	path := filepath.Join(r.cfg.StagingDir, uuid.New().String()+ext)
	f, err := os.Create(path)
	if err != nil {
		return "", err
	}

	src := msg.Data
	if r.cfg.MaxFileBytes > 0 {
		src = io.LimitReader(msg.Data, r.cfg.MaxFileBytes+1)
	}
	n, err := io.Copy(f, src)
	if err != nil {
		f.Close()
		r.removeStaged(path)
		return "", err
	}
	if err := f.Close(); err != nil {
		r.removeStaged(path)
		return "", err
	}
	if r.cfg.MaxFileBytes > 0 && n > r.cfg.MaxFileBytes {
		r.removeStaged(path)
		return "", relay_errors.ErrTooLarge
	}
	return path, nil
}

// Queued implements queue.Notifier.
func (r *Relay) Queued(req queue.UploadRequest, position int) {
	r.replyRef(req, fmt.Sprintf("Got it! %s is number %d in line.", req.Filename, position))
}

// Duplicate implements queue.Notifier. The staged copy is dropped since the
// content is already uploaded.
func (r *Relay) Duplicate(req queue.UploadRequest, rec queue.DuplicateRecord) {
	r.removeStaged(req.FilePath)
	r.replyRef(req, fmt.Sprintf("You already uploaded this as %s on %s. Here is the link again: %s",
		rec.Filename, rec.UploadedAt.Format("Jan 2 at 15:04"), rec.Link))
}

// AlreadyQueued implements queue.Notifier.
func (r *Relay) AlreadyQueued(req queue.UploadRequest, filename string) {
	r.removeStaged(req.FilePath)
	r.replyRef(req, fmt.Sprintf("%s is already in the queue, hang tight.", filename))
}

// QueueFull implements queue.Notifier.
func (r *Relay) QueueFull(req queue.UploadRequest, limit int) {
	// admission failed, so HandleMedia removes the staged copy
	r.replyRef(req, fmt.Sprintf("The queue is packed right now (%d waiting). Please try again in a bit.", limit))
}

// Completed implements queue.Notifier.
func (r *Relay) Completed(req queue.UploadRequest, link string, elapsed time.Duration) {
	r.removeStaged(req.FilePath)
	r.replyRef(req, fmt.Sprintf("Done! %s is up after %s: %s", req.Filename, elapsed.Round(time.Second), link))
}

// Failed implements queue.Notifier.
func (r *Relay) Failed(req queue.UploadRequest, err error) {
	r.removeStaged(req.FilePath)
	r.replyRef(req, fmt.Sprintf("Upload of %s did not go through. Please send it again later.", req.Filename))
}

func (r *Relay) tooLargeText(filename string) string {
	return fmt.Sprintf("Sorry, %s is over the %d MB limit.", filename, r.cfg.MaxFileBytes>>20)
}

func (r *Relay) replyRef(req queue.UploadRequest, text string) {
	ref, ok := req.Ref.(msgRef)
	if !ok {
		if r.log != nil {
			r.log.Warnf("upload request for %s carries no chat reference, dropping reply", req.Filename)
		}
		return
	}
	r.reply(context.Background(), ref.ChatID, ref.MessageID, text)
}

// reply delivers text best-effort. Delivery problems are logged and
// swallowed so they never bleed into queue bookkeeping.
func (r *Relay) reply(ctx context.Context, chatID, messageID, text string) {
	if err := r.responder.Reply(ctx, chatID, messageID, text); err != nil && r.log != nil {
		r.log.Warnf("reply to chat %s not delivered: %v", chatID, err)
	}
}

func (r *Relay) removeStaged(path string) {
	if path == "" {
		return
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) && r.log != nil {
		r.log.Warnf("removing staged file %s: %v", path, err)
	}
}
