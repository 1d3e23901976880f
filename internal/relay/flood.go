package relay

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

type userLimiter struct {
	limiter *rate.Limiter
	expires time.Time
}

// floodGuard applies a per-user token bucket so one eager user cannot hog
// the queue. Idle entries age out to keep the map bounded.
type floodGuard struct {
	mu    sync.Mutex
	users map[string]*userLimiter
	limit rate.Limit
	burst int
	ttl   time.Duration
}

func newFloodGuard(perMin, burst int) *floodGuard {
	if perMin < 1 {
		perMin = 1
	}
	if burst < 1 {
		burst = 1
	}
	return &floodGuard{
		users: make(map[string]*userLimiter),
		limit: rate.Every(time.Minute / time.Duration(perMin)),
		burst: burst,
		ttl:   5 * time.Minute,
	}
}

func (g *floodGuard) allow(userID string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.cleanupLocked()

	ul, ok := g.users[userID]
	if !ok {
		ul = &userLimiter{limiter: rate.NewLimiter(g.limit, g.burst)}
		g.users[userID] = ul
	}
	ul.expires = time.Now().Add(g.ttl)
	return ul.limiter.Allow()
}

func (g *floodGuard) cleanupLocked() {
	now := time.Now()
	for userID, ul := range g.users {
		if now.After(ul.expires) {
			delete(g.users, userID)
		}
	}
}
