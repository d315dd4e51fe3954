// internal/app/bootstrap/config.go
package bootstrap

import (
	"fmt"
	"strings"
	"time"

	"github.com/dalemusser/retrohub/internal/app/system/analytics"
	"github.com/dalemusser/retrohub/internal/app/system/timeouts"
	"github.com/dalemusser/waffle/config"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.uber.org/zap"
)

const minAuthSecretLen = 32

// appConfigKeys defines the configuration keys for retrohub.
// These are loaded via WAFFLE's config system with support for:
//   - Config files: mongo_uri, auth_secret, etc.
//   - Environment variables: RETROHUB_MONGO_URI, RETROHUB_AUTH_SECRET, etc.
//   - Command-line flags: --mongo_uri, --auth_secret, etc.
var appConfigKeys = []config.AppKey{
	{Name: "mongo_uri", Default: "mongodb://localhost:27017", Desc: "MongoDB connection URI"},
	{Name: "mongo_database", Default: "retrohub", Desc: "MongoDB database name"},
	{Name: "mongo_max_pool_size", Default: 100, Desc: "MongoDB max connection pool size (default: 100)"},
	{Name: "mongo_min_pool_size", Default: 10, Desc: "MongoDB min connection pool size (default: 10)"},
	{Name: "auth_secret", Default: "", Desc: "HS256 secret for bearer tokens (at least 32 bytes)"},

	// Pub/sub
	{Name: "pubsub_backend", Default: PubSubMemory, Desc: "Pub/sub backend: 'memory' or 'redis'"},
	{Name: "redis_url", Default: "", Desc: "Redis URL, required when pubsub_backend is 'redis'"},
	{Name: "ws_allowed_origins", Default: "", Desc: "Comma-separated Origin values allowed on subscription sockets"},

	{Name: "mutation_rate_limit", Default: 120, Desc: "Mutations per caller per minute (0 disables)"},

	// Analytics
	{Name: "analytics_mode", Default: analytics.ModeLog, Desc: "Analytics events: 'all' (db+log), 'db', 'log', or 'off'"},

	// Background work
	{Name: "stage_timer_interval", Default: "5s", Desc: "How often expired stage timers are delivered (e.g., 5s, 1m)"},

	// Timeouts
	{Name: "timeout_short", Default: timeouts.DefaultShort.String(), Desc: "Deadline for single store calls"},
	{Name: "timeout_long", Default: timeouts.DefaultLong.String(), Desc: "Deadline for a whole mutation"},
}

// LoadConfig loads WAFFLE core config and app-specific config.
//
// WAFFLE's config.LoadWithAppConfig merges .env files, config files,
// RETROHUB_* environment variables and command-line flags with precedence
// flags > env > files > defaults.
func LoadConfig(logger *zap.Logger) (*config.CoreConfig, AppConfig, error) {
	coreCfg, appValues, err := config.LoadWithAppConfig(logger, "RETROHUB", appConfigKeys)
	if err != nil {
		return nil, AppConfig{}, err
	}

	appCfg := AppConfig{
		MongoURI:         appValues.String("mongo_uri"),
		MongoDatabase:    appValues.String("mongo_database"),
		MongoMaxPoolSize: uint64(appValues.Int("mongo_max_pool_size")),
		MongoMinPoolSize: uint64(appValues.Int("mongo_min_pool_size")),
		AuthSecret:       appValues.String("auth_secret"),

		PubSubBackend:    strings.ToLower(strings.TrimSpace(appValues.String("pubsub_backend"))),
		RedisURL:         appValues.String("redis_url"),
		WSAllowedOrigins: splitList(appValues.String("ws_allowed_origins")),

		MutationRateLimit: appValues.Int("mutation_rate_limit"),

		AnalyticsMode: strings.ToLower(strings.TrimSpace(appValues.String("analytics_mode"))),

		StageTimerInterval: appValues.Duration("stage_timer_interval", 5*time.Second),

		TimeoutShort: appValues.Duration("timeout_short", timeouts.DefaultShort),
		TimeoutLong:  appValues.Duration("timeout_long", timeouts.DefaultLong),
	}

	return coreCfg, appCfg, nil
}

// ValidateConfig rejects configurations that cannot start: a malformed
// MongoDB URI, a weak token secret, or an incomplete pub/sub setup.
func ValidateConfig(coreCfg *config.CoreConfig, appCfg AppConfig, logger *zap.Logger) error {
	if err := wafflemongo.ValidateURI(appCfg.MongoURI); err != nil {
		logger.Error("invalid MongoDB URI", zap.Error(err))
		return fmt.Errorf("invalid MongoDB URI: %w", err)
	}
	if appCfg.MongoDatabase == "" {
		return fmt.Errorf("mongo_database must be set")
	}
	if len(appCfg.AuthSecret) < minAuthSecretLen {
		return fmt.Errorf("auth_secret must be at least %d bytes", minAuthSecretLen)
	}

	switch appCfg.PubSubBackend {
	case PubSubMemory:
	case PubSubRedis:
		if appCfg.RedisURL == "" {
			return fmt.Errorf("pubsub_backend %q requires redis_url", PubSubRedis)
		}
	default:
		return fmt.Errorf("unknown pubsub_backend %q (want %q or %q)", appCfg.PubSubBackend, PubSubMemory, PubSubRedis)
	}

	if !analytics.ValidMode(appCfg.AnalyticsMode) {
		return fmt.Errorf("unknown analytics_mode %q", appCfg.AnalyticsMode)
	}
	if appCfg.MutationRateLimit < 0 {
		return fmt.Errorf("mutation_rate_limit must not be negative")
	}
	if appCfg.StageTimerInterval <= 0 {
		return fmt.Errorf("stage_timer_interval must be positive")
	}
	if appCfg.TimeoutShort <= 0 || appCfg.TimeoutLong <= 0 {
		return fmt.Errorf("timeouts must be positive")
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
