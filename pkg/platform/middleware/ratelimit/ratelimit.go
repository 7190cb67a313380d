// Package ratelimit provides a per-client sliding-window rate limiter. It is
// in-memory and per-instance; put a distributed limiter in front when running
// more than a handful of replicas.
package ratelimit

import (
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	dErrors "attesta/pkg/domain-errors"
	"attesta/pkg/platform/httputil"
	"attesta/pkg/platform/middleware/metadata"
	"attesta/pkg/requestcontext"
)

// Limiter tracks request timestamps per key over a sliding window.
type Limiter struct {
	mu      sync.Mutex
	buckets map[string]*slidingWindow
	limit   int
	window  time.Duration
}

type slidingWindow struct {
	timestamps []time.Time
}

func NewLimiter(limit int, window time.Duration) *Limiter {
	return &Limiter{
		buckets: make(map[string]*slidingWindow),
		limit:   limit,
		window:  window,
	}
}

// Allow records a request for key and reports whether it is within the limit,
// along with the remaining budget.
func (l *Limiter) Allow(key string, now time.Time) (bool, int) {
	l.mu.Lock()
	defer l.mu.Unlock()

	bucket := l.buckets[key]
	if bucket == nil {
		bucket = &slidingWindow{}
		l.buckets[key] = bucket
	}
	bucket.cleanup(now.Add(-l.window))

	if len(bucket.timestamps) >= l.limit {
		return false, 0
	}
	bucket.timestamps = append(bucket.timestamps, now)
	return true, l.limit - len(bucket.timestamps)
}

func (sw *slidingWindow) cleanup(cutoff time.Time) {
	i := 0
	for ; i < len(sw.timestamps); i++ {
		if sw.timestamps[i].After(cutoff) {
			break
		}
	}
	sw.timestamps = sw.timestamps[i:]
}

// Middleware rejects requests over the per-IP limit with 429. The client IP
// comes from the metadata middleware's extraction rules.
func Middleware(limiter *Limiter, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			key := requestcontext.ClientIP(ctx)
			if key == "" {
				key = metadata.ClientIPFromRequest(r)
			}

			allowed, remaining := limiter.Allow(key, time.Now())
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
			if !allowed {
				if logger != nil {
					logger.WarnContext(ctx, "rate limit exceeded",
						"client_ip", key,
						"request_id", requestcontext.RequestID(ctx),
					)
				}
				w.Header().Set("Retry-After", strconv.Itoa(int(limiter.window.Seconds())))
				httputil.WriteError(w, dErrors.New(dErrors.CodeRateLimited, "rate limit exceeded"))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
