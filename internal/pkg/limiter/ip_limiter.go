/*
Package limiter throttles requests per client IP with token buckets from
golang.org/x/time/rate. Idle buckets are swept periodically.
*/
package limiter

import (
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"roomchat/internal/pkg/errs"
	"roomchat/internal/pkg/logx"
	"roomchat/internal/pkg/resp"
)

const sweepInterval = 3 * time.Minute

// IPRateLimiter keeps one token bucket per client IP.
type IPRateLimiter struct {
	mu     sync.Mutex
	limits map[string]*rate.Limiter
	r      rate.Limit
	b      int
	stop   chan struct{}
	once   sync.Once
}

// NewIPRateLimiter creates a limiter allowing r events per second with burst b
// per IP and starts the idle-bucket sweeper. Call Close to stop the sweeper.
func NewIPRateLimiter(r rate.Limit, b int) *IPRateLimiter {
	i := &IPRateLimiter{
		limits: make(map[string]*rate.Limiter),
		r:      r,
		b:      b,
		stop:   make(chan struct{}),
	}

	go i.sweep()

	return i
}

// GetLimiter returns the bucket for ip, creating it on first use.
func (i *IPRateLimiter) GetLimiter(ip string) *rate.Limiter {
	i.mu.Lock()
	defer i.mu.Unlock()

	limiter, ok := i.limits[ip]
	if !ok {
		limiter = rate.NewLimiter(i.r, i.b)
		i.limits[ip] = limiter
	}
	return limiter
}

// Allow consumes a token for the request's client IP.
func (i *IPRateLimiter) Allow(r *http.Request) bool {
	return i.GetLimiter(ClientIP(r)).Allow()
}

// Close stops the sweeper goroutine.
func (i *IPRateLimiter) Close() {
	i.once.Do(func() { close(i.stop) })
}

// sweep drops buckets that have refilled completely, i.e. IPs that went quiet.
func (i *IPRateLimiter) sweep() {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-i.stop:
			return
		case now := <-ticker.C:
			i.mu.Lock()
			removed := 0
			for ip, limiter := range i.limits {
				if limiter.TokensAt(now) >= float64(limiter.Burst()) {
					delete(i.limits, ip)
					removed++
				}
			}
			remaining := len(i.limits)
			i.mu.Unlock()

			logx.Debug("Rate limiter sweep finished", "removed", removed, "active", remaining)
		}
	}
}

// Middleware rejects requests over budget with ErrRateLimitExceeded (429).
func (i *IPRateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !i.Allow(r) {
			resp.RespondError(w, r, errs.NewError(errs.ErrRateLimitExceeded))
			return
		}

		next.ServeHTTP(w, r)
	})
}

// ClientIP returns the host part of r.RemoteAddr. chi's RealIP middleware
// rewrites RemoteAddr from proxy headers before this runs.
func ClientIP(r *http.Request) string {
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		ip = r.RemoteAddr
	}
	if ip == "" {
		ip = "unknown_ip"
	}
	return ip
}
