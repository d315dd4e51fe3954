// internal/app/bootstrap/dbdeps.go
package bootstrap

import (
	"github.com/dalemusser/retrohub/internal/app/system/analytics"
	"github.com/dalemusser/retrohub/internal/app/system/ratelimit"
	"github.com/dalemusser/retrohub/internal/app/system/pubsub"
	"github.com/dalemusser/retrohub/internal/app/system/workers"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
)

// DBDeps holds database/back-end dependencies for the app.
type DBDeps struct {
	MongoClient   *mongo.Client
	MongoDatabase *mongo.Database

	// Broker is the in-process Hub or a RedisBroker, per pubsub_backend.
	Broker pubsub.Broker
	// Redis is the broker's client, nil with the memory backend.
	Redis *redis.Client

	// Background is shared by pointer so Startup and Shutdown see the same
	// workers even though DBDeps is passed by value.
	Background *Background
}

// Background holds the workers started in Startup plus the in-process rate
// limiter and analytics queue built with the handler.
type Background struct {
	StageTimer  *workers.StageTimer
	RateLimiter *ratelimit.Window
	Analytics   *analytics.Tracker
}
