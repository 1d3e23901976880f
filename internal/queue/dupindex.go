package queue

import (
	"sync"
	"time"
)

// DuplicateIndex remembers completed uploads per user, keyed by content
// digest. Scoping is strictly per user: two users uploading the same bytes
// never see each other's links. The index lives in memory only and starts
// empty on every boot.
type DuplicateIndex struct {
	mu      sync.RWMutex
	records map[string]map[string]DuplicateRecord
}

func NewDuplicateIndex() *DuplicateIndex {
	return &DuplicateIndex{
		records: make(map[string]map[string]DuplicateRecord),
	}
}

// Lookup returns the record for (userID, digest) if one exists.
// An empty digest never matches.
func (ix *DuplicateIndex) Lookup(userID, digest string) (DuplicateRecord, bool) {
	if digest == "" {
		return DuplicateRecord{}, false
	}
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	byDigest, ok := ix.records[userID]
	if !ok {
		return DuplicateRecord{}, false
	}
	rec, ok := byDigest[digest]
	return rec, ok
}

// Record stores rec under (userID, digest), overwriting any earlier entry.
// Empty digests are ignored.
func (ix *DuplicateIndex) Record(userID, digest string, rec DuplicateRecord) {
	if digest == "" {
		return
	}
	ix.mu.Lock()
	defer ix.mu.Unlock()

	byDigest, ok := ix.records[userID]
	if !ok {
		byDigest = make(map[string]DuplicateRecord)
		ix.records[userID] = byDigest
	}
	byDigest[digest] = rec
}

// Prune drops records older than maxAge and returns how many were removed.
func (ix *DuplicateIndex) Prune(maxAge time.Duration) int {
	if maxAge <= 0 {
		return 0
	}
	cutoff := time.Now().Add(-maxAge)

	ix.mu.Lock()
	defer ix.mu.Unlock()

	pruned := 0
	for userID, byDigest := range ix.records {
		for digest, rec := range byDigest {
			if rec.UploadedAt.Before(cutoff) {
				delete(byDigest, digest)
				pruned++
			}
		}
		if len(byDigest) == 0 {
			delete(ix.records, userID)
		}
	}
	return pruned
}

// Len returns the number of stored records across all users.
func (ix *DuplicateIndex) Len() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	n := 0
	for _, byDigest := range ix.records {
		n += len(byDigest)
	}
	return n
}
