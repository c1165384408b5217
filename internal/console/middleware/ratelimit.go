package middleware

import (
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// limiterTTL is how long an idle client's limiter is kept.
const limiterTTL = 15 * time.Minute

// RateLimit throttles each client address to perMinute requests.
//
// Each address gets a token bucket (golang.org/x/time/rate) refilled at
// perMinute per minute with a burst of perMinute. Rejected requests get 429
// with a Retry-After header. Clients are keyed by RemoteAddr host, so the
// console should not sit behind a shared proxy with this enabled.
//
// Static assets, /healthz and /readyz are exempt. perMinute <= 0 disables
// limiting.
func RateLimit(perMinute int) func(http.Handler) http.Handler {
	if perMinute <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	store := newLimiterStore(perMinute, time.Now)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if exempt(r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}
			if !store.limiter(clientKey(r)).Allow() {
				w.Header().Set("Retry-After", strconv.Itoa(int(store.interval.Seconds())+1))
				http.Error(w, "too many requests", http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// exempt reports whether path bypasses rate limiting.
func exempt(path string) bool {
	return strings.HasPrefix(path, "/static/") || path == "/healthz" || path == "/readyz"
}

type limiterStore struct {
	mu        sync.Mutex
	limiters  map[string]*limiterEntry
	interval  time.Duration
	burst     int
	now       func() time.Time
	lastSweep time.Time
}

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func newLimiterStore(perMinute int, now func() time.Time) *limiterStore {
	return &limiterStore{
		limiters:  make(map[string]*limiterEntry),
		interval:  time.Minute / time.Duration(perMinute),
		burst:     perMinute,
		now:       now,
		lastSweep: now(),
	}
}

func (s *limiterStore) limiter(key string) *rate.Limiter {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	// Idle entries are swept inline instead of from a background goroutine;
	// the console serves a handful of local users.
	if now.Sub(s.lastSweep) > limiterTTL {
		for k, e := range s.limiters {
			if now.Sub(e.lastSeen) > limiterTTL {
				delete(s.limiters, k)
			}
		}
		s.lastSweep = now
	}

	if entry, ok := s.limiters[key]; ok {
		entry.lastSeen = now
		return entry.limiter
	}
	entry := &limiterEntry{
		limiter:  rate.NewLimiter(rate.Every(s.interval), s.burst),
		lastSeen: now,
	}
	s.limiters[key] = entry
	return entry.limiter
}

// clientKey is the limiter key for r: the remote IP without its port.
func clientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
