// internal/app/bootstrap/startup.go
package bootstrap

import (
	"context"

	jobstore "github.com/dalemusser/retrohub/internal/app/store/scheduledjobs"
	meetingstore "github.com/dalemusser/retrohub/internal/app/store/meetings"
	"github.com/dalemusser/retrohub/internal/app/system/timeouts"
	"github.com/dalemusser/retrohub/internal/app/system/workers"
	"github.com/dalemusser/waffle/config"
	"go.uber.org/zap"
)

// Startup applies the configured timeouts and starts background workers.
func Startup(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	timeouts.Configure(timeouts.Config{
		Short: appCfg.TimeoutShort,
		Long:  appCfg.TimeoutLong,
	})

	timer := workers.NewStageTimer(
		jobstore.New(deps.MongoDatabase),
		meetingstore.New(deps.MongoDatabase),
		deps.Broker,
		logger,
		appCfg.StageTimerInterval,
	)
	timer.Start()
	deps.Background.StageTimer = timer
	return nil
}
