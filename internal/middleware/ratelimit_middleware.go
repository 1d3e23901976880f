package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"media-relay/internal/transport/httpdto"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

type clientLimiter struct {
	limiter *rate.Limiter
	expires time.Time
}

// LoginRateLimiter throttles login attempts per client IP so the single
// operator account cannot be brute forced. Idle entries age out.
type LoginRateLimiter struct {
	mu      sync.Mutex
	clients map[string]*clientLimiter
	limit   rate.Limit
	burst   int
	ttl     time.Duration
}

func NewLoginRateLimiter(perMin, burst int) *LoginRateLimiter {
	if perMin < 1 {
		perMin = 1
	}
	if burst < 1 {
		burst = 1
	}
	return &LoginRateLimiter{
		clients: make(map[string]*clientLimiter),
		limit:   rate.Every(time.Minute / time.Duration(perMin)),
		burst:   burst,
		ttl:     10 * time.Minute,
	}
}

func (rl *LoginRateLimiter) allow(clientIP string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	for ip, cl := range rl.clients {
		if now.After(cl.expires) {
			delete(rl.clients, ip)
		}
	}

	cl, ok := rl.clients[clientIP]
	if !ok {
		cl = &clientLimiter{limiter: rate.NewLimiter(rl.limit, rl.burst)}
		rl.clients[clientIP] = cl
	}
	cl.expires = now.Add(rl.ttl)
	return cl.limiter.Allow()
}

// LoginRateLimitMiddleware rejects over-eager login attempts with 429.
func LoginRateLimitMiddleware(rl *LoginRateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !rl.allow(c.ClientIP()) {
			c.Header("Retry-After", strconv.Itoa(int(time.Minute.Seconds())))
			c.JSON(http.StatusTooManyRequests, httpdto.NewErrorResponse("rate limit exceeded", "RATE_LIMITED"))
			c.Abort()
			return
		}
		c.Next()
	}
}
