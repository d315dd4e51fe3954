package health

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/dalemusser/retrohub/internal/app/system/timeouts"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"
)

// MongoPinger is satisfied by *mongo.Client.
type MongoPinger interface {
	Ping(ctx context.Context, rp *readpref.ReadPref) error
}

// Handler holds dependencies needed for health checks.
type Handler struct {
	Mongo MongoPinger
	Redis *redis.Client // nil when the memory broker is in use
	Log   *zap.Logger
}

// NewHandler constructs a health Handler. redisClient may be nil.
func NewHandler(mongoClient MongoPinger, redisClient *redis.Client, logger *zap.Logger) *Handler {
	return &Handler{
		Mongo: mongoClient,
		Redis: redisClient,
		Log:   logger,
	}
}

// healthResponse is the JSON structure for the health check response.
type healthResponse struct {
	Status   string `json:"status"`
	Database string `json:"database"`
	PubSub   string `json:"pubsub"`
	Message  string `json:"message,omitempty"`
	Error    string `json:"error,omitempty"`
}

// Serve handles GET /health.
//
// On success: 200 and
//
//	{ "status":"ok", "database":"connected", "pubsub":"connected" }
//
// pubsub is "memory" when no Redis client is configured. If either ping
// fails: 503 with status "error" and the failing dependency marked
// "disconnected".
func (h *Handler) Serve(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Ping())
	defer cancel()

	w.Header().Set("Content-Type", "application/json")

	resp := healthResponse{
		Status:   "ok",
		Database: "connected",
		PubSub:   "memory",
	}

	if err := h.Mongo.Ping(ctx, readpref.Primary()); err != nil {
		h.Log.Error("health-check: mongo ping failed", zap.Error(err))
		resp.Status = "error"
		resp.Database = "disconnected"
		resp.Message = "Database unavailable"
		resp.Error = err.Error()
	}

	if h.Redis != nil {
		resp.PubSub = "connected"
		if err := h.Redis.Ping(ctx).Err(); err != nil {
			h.Log.Error("health-check: redis ping failed", zap.Error(err))
			resp.PubSub = "disconnected"
			if resp.Status == "ok" {
				resp.Status = "error"
				resp.Message = "Pub/sub unavailable"
				resp.Error = err.Error()
			}
		}
	}

	if resp.Status != "ok" {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	_ = json.NewEncoder(w).Encode(resp)
}
