// internal/app/bootstrap/appconfig.go
package bootstrap

import "time"

// Pub/sub backends.
const (
	PubSubMemory = "memory"
	PubSubRedis  = "redis"
)

// AppConfig holds service-specific configuration for this WAFFLE app.
//
// WAFFLE's CoreConfig covers the HTTP server, logging and CORS. AppConfig
// covers what retrohub itself needs: the record store, the token secret,
// the pub/sub backend and the background workers.
type AppConfig struct {
	// MongoDB connection configuration
	MongoURI         string
	MongoDatabase    string
	MongoMaxPoolSize uint64
	MongoMinPoolSize uint64

	// HS256 secret for bearer tokens
	AuthSecret string

	// Pub/sub: "memory" for a single instance, "redis" to fan out across instances
	PubSubBackend string
	RedisURL      string

	// Subscription sockets: allowed Origin values (blank means same host only)
	WSAllowedOrigins []string

	// Mutations allowed per caller per minute; 0 disables the limit
	MutationRateLimit int

	// Analytics: "all", "db", "log", or "off"
	AnalyticsMode string

	StageTimerInterval time.Duration

	TimeoutShort time.Duration
	TimeoutLong  time.Duration
}
