package httpserver

import (
	"net"
	"net/http"
	"sync"

	"golang.org/x/time/rate"

	"github.com/digitallysavvy/ollama-gateway/internal/anthropic"
)

// ipLimiters hands out one token bucket per client IP, created lazily on
// first sight and kept for the life of the process. The gateway expects a
// small, stable set of LAN clients, so unbounded growth isn't a concern
// worth pruning for.
type ipLimiters struct {
	mu    sync.Mutex
	rps   rate.Limit
	burst int
	byIP  map[string]*rate.Limiter
}

func newIPLimiters(rps float64) *ipLimiters {
	burst := int(rps)
	if burst < 1 {
		burst = 1
	}
	return &ipLimiters{
		rps:   rate.Limit(rps),
		burst: burst,
		byIP:  make(map[string]*rate.Limiter),
	}
}

func (l *ipLimiters) forIP(ip string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()
	lim, ok := l.byIP[ip]
	if !ok {
		lim = rate.NewLimiter(l.rps, l.burst)
		l.byIP[ip] = lim
	}
	return lim
}

// rateLimitMiddleware rejects requests past rps sustained requests per
// second per client IP with a 429. A non-positive rps disables the
// middleware entirely.
func rateLimitMiddleware(rps float64) func(http.Handler) http.Handler {
	if rps <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	limiters := newIPLimiters(rps)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := clientIP(r)
			if !limiters.forIP(ip).Allow() {
				writeError(w, http.StatusTooManyRequests, anthropic.ErrorRateLimit, "rate limit exceeded")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
