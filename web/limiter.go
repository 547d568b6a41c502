package web

import (
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

type (
	clientLimiter struct {
		sync.Mutex
		limit   rate.Limit
		burst   int
		idle    time.Duration
		clients map[string]*visitor
		now     func() time.Time
	}

	visitor struct {
		limiter  *rate.Limiter
		lastSeen time.Time
	}
)

func newClientLimiter(limit rate.Limit, burst int) *clientLimiter {
	return &clientLimiter{
		limit:   limit,
		burst:   burst,
		idle:    10 * time.Minute,
		clients: make(map[string]*visitor),
		now:     time.Now,
	}
}

// Allow reports whether the client that sent r may perform one more
// attempt.
func (c *clientLimiter) Allow(r *http.Request) bool {
	if c == nil || c.limit == rate.Inf {
		return true
	}
	key := clientKey(r)
	now := c.now()
	c.Lock()
	defer c.Unlock()
	v := c.clients[key]
	if v == nil {
		c.sweep(now)
		v = &visitor{limiter: rate.NewLimiter(c.limit, c.burst)}
		c.clients[key] = v
	}
	v.lastSeen = now
	return v.limiter.AllowN(now, 1)
}

// sweep drops clients that have not been seen for a while, it is only
// called when a new client shows up.
func (c *clientLimiter) sweep(now time.Time) {
	for k, v := range c.clients {
		if now.Sub(v.lastSeen) > c.idle {
			delete(c.clients, k)
		}
	}
}

func clientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
