// Package admin holds the moderation state: user roles, suspensions and
// warnings, with an audit trail. State is kept in memory and persisted to a
// single JSON file; writes are debounced so bursts of moderation actions
// produce one disk write.
package admin

import (
	"encoding/json"
	"os"
	"sync"
	"time"

	relay_errors "media-relay/pkg/errors"
	"media-relay/pkg/logger"
)

type Role string

const (
	RoleAdmin     Role = "admin"
	RoleModerator Role = "moderator"
	RoleUser      Role = "user"
)

func validRole(r Role) bool {
	return r == RoleAdmin || r == RoleModerator || r == RoleUser
}

type Suspension struct {
	UserID    string     `json:"user_id"`
	Reason    string     `json:"reason"`
	IssuedBy  string     `json:"issued_by"`
	IssuedAt  time.Time  `json:"issued_at"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

func (s Suspension) expired(now time.Time) bool {
	return s.ExpiresAt != nil && now.After(*s.ExpiresAt)
}

type Warning struct {
	UserID   string    `json:"user_id"`
	Reason   string    `json:"reason"`
	IssuedBy string    `json:"issued_by"`
	IssuedAt time.Time `json:"issued_at"`
}

type AuditEntry struct {
	At      time.Time `json:"at"`
	Actor   string    `json:"actor"`
	Action  string    `json:"action"`
	Subject string    `json:"subject"`
	Detail  string    `json:"detail,omitempty"`
}

// storeState is the serialized layout of the store file.
type storeState struct {
	Roles       map[string]Role       `json:"roles"`
	Suspensions map[string]Suspension `json:"suspensions"`
	Warnings    map[string][]Warning  `json:"warnings"`
	Audit       []AuditEntry          `json:"audit"`
}

type Config struct {
	Path string
	// WarnThreshold is the warning count at which a user is suspended
	// automatically. Default 3.
	WarnThreshold int
	// AuditLimit caps the audit trail length. Default 1000.
	AuditLimit int
	// SaveDelay is the debounce window for disk writes. Default 2s.
	SaveDelay time.Duration
}

func (c Config) withDefaults() Config {
	if c.WarnThreshold <= 0 {
		c.WarnThreshold = 3
	}
	if c.AuditLimit <= 0 {
		c.AuditLimit = 1000
	}
	if c.SaveDelay <= 0 {
		c.SaveDelay = 2 * time.Second
	}
	return c
}

type Store struct {
	cfg Config
	log *logger.Logger

	mu          sync.RWMutex
	roles       map[string]Role
	suspensions map[string]Suspension
	warnings    map[string][]Warning
	audit       []AuditEntry

	dirty     chan struct{}
	done      chan struct{}
	stopped   chan struct{}
	closeOnce sync.Once
}

// NewStore loads the state file at cfg.Path, if any, and starts the
// debounced saver. Callers must Close the store to flush pending writes.
func NewStore(cfg Config, log *logger.Logger) (*Store, error) {
	cfg = cfg.withDefaults()
	s := &Store{
		cfg:         cfg,
		log:         log,
		roles:       make(map[string]Role),
		suspensions: make(map[string]Suspension),
		warnings:    make(map[string][]Warning),
		dirty:       make(chan struct{}, 1),
		done:        make(chan struct{}),
		stopped:     make(chan struct{}),
	}
	if err := s.load(); err != nil {
		return nil, err
	}
	go s.saver()
	return s, nil
}

func (s *Store) load() error {
	data, err := os.ReadFile(s.cfg.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	var state storeState
	if err := json.Unmarshal(data, &state); err != nil {
		return err
	}
	if state.Roles != nil {
		s.roles = state.Roles
	}
	if state.Suspensions != nil {
		s.suspensions = state.Suspensions
	}
	if state.Warnings != nil {
		s.warnings = state.Warnings
	}
	s.audit = state.Audit
	return nil
}

// Close stops the saver, waits for any write it has in flight, then
// flushes the current state synchronously. Safe to call more than once.
func (s *Store) Close() error {
	s.closeOnce.Do(func() {
		close(s.done)
	})
	<-s.stopped
	return s.save()
}

func (s *Store) saver() {
	defer close(s.stopped)
	for {
		select {
		case <-s.done:
			return
		case <-s.dirty:
			timer := time.NewTimer(s.cfg.SaveDelay)
		wait:
			for {
				select {
				case <-s.dirty:
					// another mutation landed, keep waiting for quiet
				case <-timer.C:
					break wait
				case <-s.done:
					timer.Stop()
					return
				}
			}
			if err := s.save(); err != nil && s.log != nil {
				s.log.Errorf("persisting admin store: %v", err)
			}
		}
	}
}

func (s *Store) save() error {
	s.mu.RLock()
	state := storeState{
		Roles:       s.roles,
		Suspensions: s.suspensions,
		Warnings:    s.warnings,
		Audit:       s.audit,
	}
	data, err := json.MarshalIndent(state, "", "  ")
	s.mu.RUnlock()
	if err != nil {
		return err
	}

	tmp := s.cfg.Path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, s.cfg.Path)
}

func (s *Store) markDirty() {
	select {
	case s.dirty <- struct{}{}:
	default:
	}
}

func (s *Store) appendAuditLocked(actor, action, subject, detail string) {
	s.audit = append(s.audit, AuditEntry{
		At:      time.Now(),
		Actor:   actor,
		Action:  action,
		Subject: subject,
		Detail:  detail,
	})
	if len(s.audit) > s.cfg.AuditLimit {
		s.audit = s.audit[len(s.audit)-s.cfg.AuditLimit:]
	}
}

// SetRole assigns role to userID.
func (s *Store) SetRole(actor, userID string, role Role) error {
	if userID == "" || !validRole(role) {
		return relay_errors.ErrInvalidInput
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.roles[userID] = role
	s.appendAuditLocked(actor, "role.set", userID, string(role))
	s.markDirty()
	return nil
}

// RoleOf returns the user's role, defaulting to RoleUser.
func (s *Store) RoleOf(userID string) Role {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if role, ok := s.roles[userID]; ok {
		return role
	}
	return RoleUser
}

// Suspend bars userID from submitting uploads. duration 0 means until
// lifted.
func (s *Store) Suspend(actor, userID, reason string, duration time.Duration) (Suspension, error) {
	if userID == "" {
		return Suspension{}, relay_errors.ErrInvalidInput
	}
	sus := Suspension{
		UserID:   userID,
		Reason:   reason,
		IssuedBy: actor,
		IssuedAt: time.Now(),
	}
	if duration > 0 {
		expires := sus.IssuedAt.Add(duration)
		sus.ExpiresAt = &expires
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.suspensions[userID] = sus
	s.appendAuditLocked(actor, "user.suspend", userID, reason)
	s.markDirty()
	return sus, nil
}

// Unsuspend lifts an active suspension.
func (s *Store) Unsuspend(actor, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.activeSuspensionLocked(userID); !ok {
		return relay_errors.ErrNotFound
	}
	delete(s.suspensions, userID)
	s.appendAuditLocked(actor, "user.unsuspend", userID, "")
	s.markDirty()
	return nil
}

// activeSuspensionLocked returns the user's suspension if it is still in
// force, dropping it lazily when it has expired. Callers hold the write
// lock.
func (s *Store) activeSuspensionLocked(userID string) (Suspension, bool) {
	sus, ok := s.suspensions[userID]
	if !ok {
		return Suspension{}, false
	}
	if sus.expired(time.Now()) {
		delete(s.suspensions, userID)
		s.markDirty()
		return Suspension{}, false
	}
	return sus, true
}

// SuspensionOf reports the active suspension for userID, if any.
func (s *Store) SuspensionOf(userID string) (Suspension, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.activeSuspensionLocked(userID)
}

// Suspensions lists all suspensions still in force.
func (s *Store) Suspensions() []Suspension {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	out := make([]Suspension, 0, len(s.suspensions))
	for userID, sus := range s.suspensions {
		if sus.expired(now) {
			delete(s.suspensions, userID)
			s.markDirty()
			continue
		}
		out = append(out, sus)
	}
	return out
}

// Warn records a warning against userID. Reaching the threshold suspends
// the user and resets the warning count.
func (s *Store) Warn(actor, userID, reason string) (count int, escalated bool, err error) {
	if userID == "" {
		return 0, false, relay_errors.ErrInvalidInput
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.warnings[userID] = append(s.warnings[userID], Warning{
		UserID:   userID,
		Reason:   reason,
		IssuedBy: actor,
		IssuedAt: time.Now(),
	})
	count = len(s.warnings[userID])
	s.appendAuditLocked(actor, "user.warn", userID, reason)

	if count >= s.cfg.WarnThreshold {
		escalated = true
		delete(s.warnings, userID)
		s.suspensions[userID] = Suspension{
			UserID:   userID,
			Reason:   "warning threshold reached",
			IssuedBy: actor,
			IssuedAt: time.Now(),
		}
		s.appendAuditLocked(actor, "user.suspend", userID, "warning threshold reached")
	}
	s.markDirty()
	return count, escalated, nil
}

// WarningsOf lists the outstanding warnings for userID.
func (s *Store) WarningsOf(userID string) []Warning {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Warning(nil), s.warnings[userID]...)
}

// AuditLog returns up to limit entries, newest first.
func (s *Store) AuditLog(limit int) []AuditEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := len(s.audit)
	if limit <= 0 || limit > n {
		limit = n
	}
	out := make([]AuditEntry, 0, limit)
	for i := n - 1; i >= n-limit; i-- {
		out = append(out, s.audit[i])
	}
	return out
}

// CanUpload reports whether userID may submit uploads right now.
func (s *Store) CanUpload(userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.activeSuspensionLocked(userID); ok {
		return relay_errors.ErrUserSuspended
	}
	return nil
}
