package restapi

import (
	"encoding/json"
	"log/slog"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/the-lmc-group/trainflow/internal/clock"
	"golang.org/x/time/rate"
)

const (
	limiterIdleTimeout     = 10 * time.Minute
	limiterCleanupInterval = 5 * time.Minute
)

// rateLimitClient tracks the limiter of one client and its last use.
type rateLimitClient struct {
	limiter  *rate.Limiter
	lastSeen atomic.Int64 // unix nanoseconds
}

// RateLimitMiddleware limits requests per client. A client is its API key
// when one is sent, else its remote address.
type RateLimitMiddleware struct {
	limiters    map[string]*rateLimitClient
	mu          sync.RWMutex
	rateLimit   rate.Limit
	burstSize   int
	cleanupTick *time.Ticker
	exemptKeys  map[string]bool
	stopChan    chan struct{}
	stopOnce    sync.Once
	clock       clock.Clock
}

// NewRateLimitMiddleware allows requests per interval for every client, with
// a burst of the same size. A negative value disables limiting and zero
// rejects every request.
func NewRateLimitMiddleware(requests int, interval time.Duration, exemptKeys []string, c clock.Clock) *RateLimitMiddleware {
	var rateLimit rate.Limit
	switch {
	case requests < 0:
		rateLimit = rate.Inf
	case requests == 0:
		rateLimit = 0
	default:
		rateLimit = rate.Every(interval / time.Duration(requests))
	}

	exemptMap := make(map[string]bool)
	for _, key := range exemptKeys {
		if trimmed := strings.TrimSpace(key); trimmed != "" {
			exemptMap[trimmed] = true
		}
	}

	middleware := &RateLimitMiddleware{
		limiters:    make(map[string]*rateLimitClient),
		rateLimit:   rateLimit,
		burstSize:   max(requests, 0),
		cleanupTick: time.NewTicker(limiterCleanupInterval),
		exemptKeys:  exemptMap,
		stopChan:    make(chan struct{}),
		clock:       c,
	}

	go middleware.cleanup()

	return middleware
}

func (rl *RateLimitMiddleware) Handler() func(http.Handler) http.Handler {
	return rl.rateLimitHandler
}

// getLimiter returns the limiter of client, creating it on first use.
func (rl *RateLimitMiddleware) getLimiter(client string) *rate.Limiter {
	now := rl.clock.Now().UnixNano()

	rl.mu.RLock()
	if c, exists := rl.limiters[client]; exists {
		c.lastSeen.Store(now)
		rl.mu.RUnlock()
		return c.limiter
	}
	rl.mu.RUnlock()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	if c, exists := rl.limiters[client]; exists {
		c.lastSeen.Store(now)
		return c.limiter
	}

	c := &rateLimitClient{limiter: rate.NewLimiter(rl.rateLimit, rl.burstSize)}
	c.lastSeen.Store(now)
	rl.limiters[client] = c
	return c.limiter
}

func (rl *RateLimitMiddleware) rateLimitHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.URL.Query().Get("key")
		if key != "" && rl.exemptKeys[key] {
			next.ServeHTTP(w, r)
			return
		}

		if !rl.getLimiter(clientID(r, key)).Allow() {
			rl.sendRateLimitExceeded(w)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func clientID(r *http.Request, key string) string {
	if key != "" {
		return "key:" + key
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	return "addr:" + host
}

func (rl *RateLimitMiddleware) retryAfter() time.Duration {
	switch rl.rateLimit {
	case 0:
		return time.Hour
	case rate.Inf:
		return time.Second
	default:
		return time.Duration(math.Ceil(1/float64(rl.rateLimit))) * time.Second
	}
}

func (rl *RateLimitMiddleware) sendRateLimitExceeded(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Retry-After", strconv.Itoa(int(rl.retryAfter().Seconds())))
	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(rl.burstSize))
	w.Header().Set("X-RateLimit-Remaining", "0")
	w.WriteHeader(http.StatusTooManyRequests)

	errorResponse := map[string]any{
		"code":        http.StatusTooManyRequests,
		"text":        "Rate limit exceeded. Please try again later.",
		"currentTime": rl.clock.Now().UnixMilli(),
	}
	if err := json.NewEncoder(w).Encode(errorResponse); err != nil {
		slog.Error("failed to encode rate limit response", "error", err)
	}
}

// cleanupOnce evicts clients idle for longer than limiterIdleTimeout.
func (rl *RateLimitMiddleware) cleanupOnce() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.clock.Now()
	for client, c := range rl.limiters {
		lastSeen := c.lastSeen.Load()
		if lastSeen == 0 {
			continue
		}
		if now.Sub(time.Unix(0, lastSeen)) > limiterIdleTimeout {
			delete(rl.limiters, client)
		}
	}
}

func (rl *RateLimitMiddleware) cleanup() {
	for {
		select {
		case <-rl.cleanupTick.C:
			rl.cleanupOnce()
		case <-rl.stopChan:
			return
		}
	}
}

// Stop ends the cleanup goroutine. It is safe to call more than once.
func (rl *RateLimitMiddleware) Stop() {
	rl.stopOnce.Do(func() {
		close(rl.stopChan)
		rl.cleanupTick.Stop()
	})
}
