package relay

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFloodGuardBurstThenDeny(t *testing.T) {
	g := newFloodGuard(1, 2)

	assert.True(t, g.allow("u1"))
	assert.True(t, g.allow("u1"))
	assert.False(t, g.allow("u1"), "burst spent, refill is one per minute")

	// an unrelated user has their own bucket
	assert.True(t, g.allow("u2"))
}

func TestFloodGuardDefaultsSaneOnZeroConfig(t *testing.T) {
	g := newFloodGuard(0, 0)
	assert.True(t, g.allow("u1"))
	assert.False(t, g.allow("u1"))
}

func TestFloodGuardExpiresIdleEntries(t *testing.T) {
	g := newFloodGuard(1, 1)
	g.ttl = 10 * time.Millisecond

	assert.True(t, g.allow("u1"))
	assert.False(t, g.allow("u1"))

	// after the idle window the bucket is rebuilt with a fresh burst
	time.Sleep(25 * time.Millisecond)
	assert.True(t, g.allow("u1"))
}
