package middleware

import (
	"context"
	"math"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"
)

// RateLimiter is per-client token bucket middleware. The console mounts it
// on routes that trigger expensive backend work, such as article
// evaluation.
type RateLimiter struct {
	mu         sync.Mutex
	buckets    map[string]*bucket
	rate       float64 // tokens per second
	burst      float64
	maxClients int
	now        func() time.Time
}

type bucket struct {
	tokens float64
	seen   time.Time
}

// NewRateLimiter creates a limiter with the given sustained rate (requests
// per second) and burst size.
func NewRateLimiter(rate float64, burst int) *RateLimiter {
	if burst < 1 {
		burst = 1
	}
	return &RateLimiter{
		buckets:    make(map[string]*bucket),
		rate:       rate,
		burst:      float64(burst),
		maxClients: 10000,
		now:        time.Now,
	}
}

// Handler returns HTTP middleware that rejects requests over the limit with
// 429 and a Retry-After header.
func (rl *RateLimiter) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		wait, ok := rl.take(clientIP(r))
		if !ok {
			w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(wait.Seconds()))))
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"error":"too many requests, try again shortly"}`))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// take consumes a token for client and reports how long to wait when none
// is available.
func (rl *RateLimiter) take(client string) (time.Duration, bool) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	b, ok := rl.buckets[client]
	if !ok {
		if len(rl.buckets) >= rl.maxClients {
			return time.Second, false
		}
		b = &bucket{tokens: rl.burst, seen: now}
		rl.buckets[client] = b
	}

	b.tokens = math.Min(rl.burst, b.tokens+now.Sub(b.seen).Seconds()*rl.rate)
	b.seen = now

	if b.tokens < 1 {
		secs := (1 - b.tokens) / rl.rate
		return time.Duration(secs * float64(time.Second)), false
	}
	b.tokens--
	return 0, true
}

// StartCleanup drops buckets idle for longer than maxIdle every interval
// until ctx is done.
func (rl *RateLimiter) StartCleanup(ctx context.Context, interval, maxIdle time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				rl.cleanup(maxIdle)
			}
		}
	}()
}

func (rl *RateLimiter) cleanup(maxIdle time.Duration) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	cutoff := rl.now().Add(-maxIdle)
	for ip, b := range rl.buckets {
		if b.seen.Before(cutoff) {
			delete(rl.buckets, ip)
		}
	}
}

// Len returns the number of tracked clients.
func (rl *RateLimiter) Len() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.buckets)
}

// clientIP uses RemoteAddr only; forwarding headers are client-controlled.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
