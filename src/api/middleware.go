package api

import (
	"net"
	"net/http"
	"sync"
	"time"

	"portfolio/src/utils"
	redis_utils "portfolio/src/utils/redis"

	"github.com/sirupsen/logrus"
)

// LoggerMiddleware injects the process logger into every request context and
// emits one access log line per request.
func LoggerMiddleware(logger *logrus.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			next.ServeHTTP(w, r.WithContext(utils.WithLogger(r.Context(), logger)))
			logger.WithFields(logrus.Fields{
				"method":   r.Method,
				"path":     r.URL.Path,
				"duration": time.Since(start).String(),
			}).Debug("request handled")
		})
	}
}

// localWindow is the in-process fallback rate limiter used when redis is not
// configured. Same sliding-window semantics, scoped to this process.
type localWindow struct {
	mu     sync.Mutex
	events map[string][]time.Time
}

func (l *localWindow) allow(key string, limit int, window time.Duration) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := time.Now().Add(-window)
	kept := l.events[key][:0]
	for _, t := range l.events[key] {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	kept = append(kept, time.Now())
	l.events[key] = kept
	return len(kept) <= limit
}

// RateLimitMiddleware throttles clients by IP: at most limit requests per
// window. Backed by redis when available so the limit holds across
// replicas, with a per-process fallback otherwise.
func RateLimitMiddleware(redis *redis_utils.RedisHandler, limit int, window time.Duration) func(http.Handler) http.Handler {
	local := &localWindow{events: make(map[string][]time.Time)}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key, _, err := net.SplitHostPort(r.RemoteAddr)
			if err != nil {
				key = r.RemoteAddr
			}

			allowed := true
			if redis != nil {
				allowed, err = redis.Allow(r.Context(), key, limit, window)
				if err != nil {
					// Redis down must not take the API with it.
					allowed = local.allow(key, limit, window)
				}
			} else {
				allowed = local.allow(key, limit, window)
			}

			if !allowed {
				utils.WriteError(w, utils.TooManyRequests("rate limit exceeded"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
