// internal/app/system/ratelimit/ratelimit.go
package ratelimit

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/dalemusser/retrohub/internal/app/system/auth"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Limiter decides whether one more request for key fits in the current window.
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// Window is an in-process fixed-window limiter. It is safe for concurrent use.
type Window struct {
	mu       sync.Mutex
	windows  map[string]*window
	limit    int
	duration time.Duration
	stop     chan struct{}
	once     sync.Once
}

type window struct {
	count     int
	expiresAt time.Time
}

// New creates an in-process limiter allowing limit requests per duration.
// Call Close to stop its cleanup loop.
func New(limit int, duration time.Duration) *Window {
	l := &Window{
		windows:  make(map[string]*window),
		limit:    limit,
		duration: duration,
		stop:     make(chan struct{}),
	}
	go l.cleanupLoop(duration * 2)
	return l
}

func (l *Window) Allow(_ context.Context, key string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	w, exists := l.windows[key]
	if !exists || now.After(w.expiresAt) {
		l.windows[key] = &window{count: 1, expiresAt: now.Add(l.duration)}
		return true, nil
	}
	if w.count >= l.limit {
		return false, nil
	}
	w.count++
	return true, nil
}

// Remaining returns how many requests are left for key in the current window.
func (l *Window) Remaining(key string) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	w, exists := l.windows[key]
	if !exists || time.Now().After(w.expiresAt) {
		return l.limit
	}
	return max(l.limit-w.count, 0)
}

// Close stops the cleanup loop.
func (l *Window) Close() {
	l.once.Do(func() { close(l.stop) })
}

func (l *Window) cleanupLoop(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-l.stop:
			return
		case <-ticker.C:
			l.mu.Lock()
			now := time.Now()
			for key, w := range l.windows {
				if now.After(w.expiresAt) {
					delete(l.windows, key)
				}
			}
			l.mu.Unlock()
		}
	}
}

// RedisWindow is a fixed-window limiter shared by every instance through
// Redis. The counter and its expiry are set in one script, so a key can never
// be left without a TTL.
type RedisWindow struct {
	client   *redis.Client
	limit    int64
	duration time.Duration
}

// windowScript increments KEYS[1] and gives it a TTL of ARGV[1] ms whenever it
// has none, which also repairs keys written before the script existed.
var windowScript = redis.NewScript(`
local n = redis.call("INCR", KEYS[1])
if redis.call("PTTL", KEYS[1]) < 0 then
	redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return n
`)

func NewRedis(client *redis.Client, limit int, duration time.Duration) *RedisWindow {
	return &RedisWindow{client: client, limit: int64(limit), duration: duration}
}

func (l *RedisWindow) Allow(ctx context.Context, key string) (bool, error) {
	k := "retrohub:ratelimit:" + key
	n, err := windowScript.Run(ctx, l.client, []string{k}, l.duration.Milliseconds()).Int64()
	if err != nil {
		return false, err
	}
	return n <= l.limit, nil
}

// ClientIP extracts the client IP from an HTTP request.
// It checks X-Forwarded-For and X-Real-IP headers first (for proxied requests),
// then falls back to RemoteAddr.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

// requestKey limits signed-in callers per user and anonymous ones per IP.
func requestKey(r *http.Request) string {
	if tok, ok := auth.CurrentToken(r); ok && tok.UserID != "" {
		return "user:" + tok.UserID
	}
	return "ip:" + ClientIP(r)
}

// Middleware answers 429 once a caller exceeds l. Limiter failures are
// logged and the request is let through.
func Middleware(l Limiter, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := requestKey(r)
			ok, err := l.Allow(r.Context(), key)
			if err != nil {
				logger.Warn("rate limiter unavailable", zap.String("key", key), zap.Error(err))
				next.ServeHTTP(w, r)
				return
			}
			if !ok {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)
				_ = json.NewEncoder(w).Encode(map[string]any{
					"error": map[string]string{"message": "Too many requests", "kind": "RATE_LIMITED"},
				})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
