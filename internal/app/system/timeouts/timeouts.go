// Package timeouts holds the process-wide deadlines applied to store and
// broker calls.
//
//   - Ping: health checks
//   - Short: single-document reads and writes
//   - Long: whole mutations, which may touch several collections
//
// Values are set once at startup through Configure; zero fields keep their defaults.
package timeouts

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

const (
	DefaultPing  = 2 * time.Second
	DefaultShort = 5 * time.Second
	DefaultLong  = 30 * time.Second
)

// Config overrides the defaults.
type Config struct {
	Ping  time.Duration
	Short time.Duration
	Long  time.Duration
}

var (
	mu  sync.RWMutex
	cur = Config{Ping: DefaultPing, Short: DefaultShort, Long: DefaultLong}
)

// Configure replaces the non-zero fields of c.
func Configure(c Config) {
	mu.Lock()
	defer mu.Unlock()
	if c.Ping > 0 {
		cur.Ping = c.Ping
	}
	if c.Short > 0 {
		cur.Short = c.Short
	}
	if c.Long > 0 {
		cur.Long = c.Long
	}
}

// Current returns a snapshot of the configured values.
func Current() Config {
	mu.RLock()
	defer mu.RUnlock()
	return cur
}

func Ping() time.Duration  { return Current().Ping }
func Short() time.Duration { return Current().Short }
func Long() time.Duration  { return Current().Long }

// WithTimeout wraps context.WithTimeout and logs at debug level when the
// deadline, rather than the parent, ends the operation.
func WithTimeout(parent context.Context, d time.Duration, logger *zap.Logger, op string) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithTimeout(parent, d)
	if logger == nil {
		return ctx, cancel
	}
	return ctx, func() {
		if ctx.Err() == context.DeadlineExceeded && parent.Err() == nil {
			logger.Debug("operation timed out",
				zap.String("op", op),
				zap.Duration("timeout", d))
		}
		cancel()
	}
}
