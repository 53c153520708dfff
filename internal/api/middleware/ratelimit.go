package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"
)

// MsgTooManyRequests is returned when any budget is exhausted.
const MsgTooManyRequests = "Demasiadas solicitudes. Intenta de nuevo más tarde."

// RateLimiter keeps a sliding window of request times per client.
type RateLimiter struct {
	limit  int
	window time.Duration
	now    func() time.Time

	mu      sync.Mutex
	clients map[string][]time.Time
}

// Decision is the outcome of one Allow call.
type Decision struct {
	Allowed   bool
	Remaining int
	Reset     time.Time
}

// NewRateLimiter allows limit requests per client within window.
func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	if limit <= 0 {
		limit = 100
	}
	if window <= 0 {
		window = time.Minute
	}

	rl := &RateLimiter{
		limit:   limit,
		window:  window,
		now:     time.Now,
		clients: make(map[string][]time.Time),
	}
	go rl.sweep(time.Minute)

	return rl
}

func (rl *RateLimiter) sweep(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for range ticker.C {
		cutoff := rl.now().Add(-rl.window)
		rl.mu.Lock()
		for client, hits := range rl.clients {
			if len(hits) == 0 || !hits[len(hits)-1].After(cutoff) {
				delete(rl.clients, client)
			}
		}
		rl.mu.Unlock()
	}
}

// Allow records a hit for client unless its window is full.
func (rl *RateLimiter) Allow(client string) Decision {
	now := rl.now()
	cutoff := now.Add(-rl.window)

	rl.mu.Lock()
	defer rl.mu.Unlock()

	hits := rl.clients[client]
	i := 0
	for i < len(hits) && !hits[i].After(cutoff) {
		i++
	}
	hits = hits[i:]

	if len(hits) >= rl.limit {
		rl.clients[client] = hits
		return Decision{Reset: hits[0].Add(rl.window)}
	}

	hits = append(hits, now)
	rl.clients[client] = hits
	return Decision{
		Allowed:   true,
		Remaining: rl.limit - len(hits),
		Reset:     now.Add(rl.window),
	}
}

// RateLimit applies every limiter in order; the first one that refuses
// answers 429.
func RateLimit(limiters ...*RateLimiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			client := getClientIP(r)

			for _, limiter := range limiters {
				d := limiter.Allow(client)

				h := w.Header()
				h.Set("X-RateLimit-Limit", strconv.Itoa(limiter.limit))
				h.Set("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))
				h.Set("X-RateLimit-Reset", strconv.FormatInt(d.Reset.Unix(), 10))

				if !d.Allowed {
					retry := int(time.Until(d.Reset).Seconds()) + 1
					h.Set("Retry-After", strconv.Itoa(retry))
					http.Error(w, MsgTooManyRequests, http.StatusTooManyRequests)
					return
				}
			}

			next.ServeHTTP(w, r)
		})
	}
}

// RateLimitMethod limits only requests with the given method.
func RateLimitMethod(method string, limiters ...*RateLimiter) func(http.Handler) http.Handler {
	limited := RateLimit(limiters...)
	return func(next http.Handler) http.Handler {
		guarded := limited(next)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != method {
				next.ServeHTTP(w, r)
				return
			}
			guarded.ServeHTTP(w, r)
		})
	}
}
