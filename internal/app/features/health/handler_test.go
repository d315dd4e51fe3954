package health_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/dalemusser/retrohub/internal/app/features/health"
	"github.com/dalemusser/retrohub/internal/testutil"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"
)

type fakeMongo struct{ err error }

func (f fakeMongo) Ping(context.Context, *readpref.ReadPref) error { return f.err }

type response struct {
	Status   string `json:"status"`
	Database string `json:"database"`
	PubSub   string `json:"pubsub"`
	Message  string `json:"message"`
}

func serve(t *testing.T, h *health.Handler) (int, response) {
	t.Helper()
	req := httptest.NewRequest("GET", "/health", nil)
	rec := httptest.NewRecorder()
	h.Serve(rec, req)

	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type: got %q, want %q", ct, "application/json")
	}
	var resp response
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	return rec.Code, resp
}

func TestServe_DatabaseConnected(t *testing.T) {
	db := testutil.SetupTestDB(t)
	handler := health.NewHandler(db.Client(), nil, zap.NewNop())

	code, resp := serve(t, handler)
	if code != http.StatusOK {
		t.Errorf("expected status %d, got %d", http.StatusOK, code)
	}
	if resp.Status != "ok" || resp.Database != "connected" || resp.PubSub != "memory" {
		t.Errorf("response = %+v", resp)
	}
}

func TestServe_DatabaseDown(t *testing.T) {
	handler := health.NewHandler(fakeMongo{err: errors.New("no reachable servers")}, nil, zap.NewNop())

	code, resp := serve(t, handler)
	if code != http.StatusServiceUnavailable {
		t.Errorf("expected status %d, got %d", http.StatusServiceUnavailable, code)
	}
	if resp.Status != "error" || resp.Database != "disconnected" || resp.Message != "Database unavailable" {
		t.Errorf("response = %+v", resp)
	}
}

func TestServe_Redis(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	handler := health.NewHandler(fakeMongo{}, rdb, zap.NewNop())

	code, resp := serve(t, handler)
	if code != http.StatusOK || resp.PubSub != "connected" {
		t.Fatalf("with redis up: code=%d response=%+v", code, resp)
	}

	mr.Close()
	code, resp = serve(t, handler)
	if code != http.StatusServiceUnavailable {
		t.Errorf("with redis down: expected %d, got %d", http.StatusServiceUnavailable, code)
	}
	if resp.Status != "error" || resp.PubSub != "disconnected" || resp.Database != "connected" {
		t.Errorf("with redis down: response = %+v", resp)
	}
}
