// internal/app/bootstrap/shutdown.go
package bootstrap

import (
	"context"

	"github.com/dalemusser/waffle/config"
	"go.uber.org/zap"
)

// Shutdown stops background workers, flushes analytics, closes the broker (ending every live
// subscription), then disconnects MongoDB.
func Shutdown(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	if deps.Background != nil && deps.Background.StageTimer != nil {
		deps.Background.StageTimer.Stop()
	}
	if deps.Background != nil && deps.Background.RateLimiter != nil {
		deps.Background.RateLimiter.Close()
	}
	if deps.Background != nil {
		// Flush queued events before Mongo goes away.
		deps.Background.Analytics.Close()
	}
	if deps.Broker != nil {
		if err := deps.Broker.Close(); err != nil {
			logger.Warn("pub/sub close failed", zap.Error(err))
		}
	}
	if deps.MongoClient != nil {
		logger.Info("disconnecting MongoDB client")
		if err := deps.MongoClient.Disconnect(ctx); err != nil {
			logger.Error("MongoDB disconnect failed", zap.Error(err))
			return err
		}
	}
	return nil
}
