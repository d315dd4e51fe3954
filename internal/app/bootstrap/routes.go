// internal/app/bootstrap/routes.go
package bootstrap

import (
	"net/http"
	"slices"
	"time"

	healthfeature "github.com/dalemusser/retrohub/internal/app/features/health"
	"github.com/dalemusser/retrohub/internal/app/features/meetingops"
	"github.com/dalemusser/retrohub/internal/app/features/subscriptions"
	analyticsstore "github.com/dalemusser/retrohub/internal/app/store/analytics"
	meetingstore "github.com/dalemusser/retrohub/internal/app/store/meetings"
	reflectiongroupstore "github.com/dalemusser/retrohub/internal/app/store/reflectiongroups"
	reflectionstore "github.com/dalemusser/retrohub/internal/app/store/reflections"
	jobstore "github.com/dalemusser/retrohub/internal/app/store/scheduledjobs"
	teammemberstore "github.com/dalemusser/retrohub/internal/app/store/teammembers"
	"github.com/dalemusser/retrohub/internal/app/system/analytics"
	"github.com/dalemusser/retrohub/internal/app/system/auth"
	"github.com/dalemusser/retrohub/internal/app/system/ratelimit"
	"github.com/dalemusser/retrohub/internal/app/system/txn"
	"github.com/dalemusser/waffle/config"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// BuildHandler constructs the root HTTP handler.
//
// Every route sees the bearer token (if any) through auth.LoadToken.
// Mutations answer anonymous callers with an UNAUTHENTICATED result;
// subscriptions refuse them with 401 before upgrading.
func BuildHandler(coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) (http.Handler, error) {
	db := deps.MongoDatabase

	var eventStore *analyticsstore.Store
	if appCfg.AnalyticsMode == analytics.ModeAll || appCfg.AnalyticsMode == analytics.ModeDB {
		eventStore = analyticsstore.New(db)
	}
	tracker, err := analytics.New(appCfg.AnalyticsMode, eventStore, logger)
	if err != nil {
		logger.Error("analytics init failed", zap.Error(err))
		return nil, err
	}
	if deps.Background != nil {
		deps.Background.Analytics = tracker
	}

	svc := &meetingops.Service{
		Meetings:    meetingstore.New(db),
		Reflections: reflectionstore.New(db),
		Groups:      reflectiongroupstore.New(db),
		TeamMembers: teammemberstore.New(db),
		Jobs:        jobstore.New(db),
		Tx:          txn.Runner{DB: db, Log: logger},
		Broker:      deps.Broker,
		Analytics:   tracker,
		Log:         logger,
	}

	r := chi.NewRouter()
	r.Use(auth.LoadToken(appCfg.AuthSecret, logger))

	// Health check endpoint for load balancers and orchestrators
	healthHandler := healthfeature.NewHandler(deps.MongoClient, deps.Redis, logger)
	r.Mount("/health", healthfeature.Routes(healthHandler))

	r.Route("/mutations", func(r chi.Router) {
		if limiter := mutationLimiter(appCfg, deps); limiter != nil {
			r.Use(ratelimit.Middleware(limiter, logger))
		}
		r.Mount("/", meetingops.Routes(meetingops.NewHandler(svc, logger)))
	})

	subHandler := subscriptions.NewHandler(deps.Broker, tracker, logger, originChecker(coreCfg, appCfg))
	r.Mount("/subscriptions", subscriptions.Routes(subHandler))

	return r, nil
}

// mutationLimiter shares limits through Redis when it is configured.
func mutationLimiter(appCfg AppConfig, deps DBDeps) ratelimit.Limiter {
	if appCfg.MutationRateLimit == 0 {
		return nil
	}
	if deps.Redis != nil {
		return ratelimit.NewRedis(deps.Redis, appCfg.MutationRateLimit, time.Minute)
	}
	w := ratelimit.New(appCfg.MutationRateLimit, time.Minute)
	if deps.Background != nil {
		deps.Background.RateLimiter = w
	}
	return w
}

// originChecker allows the configured origins. With none configured, dev
// accepts any origin and other environments fall back to same-host.
func originChecker(coreCfg *config.CoreConfig, appCfg AppConfig) func(*http.Request) bool {
	if len(appCfg.WSAllowedOrigins) > 0 {
		allowed := appCfg.WSAllowedOrigins
		return func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			return origin == "" || slices.Contains(allowed, origin)
		}
	}
	if coreCfg.Env == "dev" {
		return func(*http.Request) bool { return true }
	}
	return nil
}
