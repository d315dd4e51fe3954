// Package subscriptions streams pub/sub events to clients over WebSocket.
//
// A connection is one subscription. The server subscribes before upgrading,
// acknowledges with the connection's socketId, then forwards every envelope
// the filter accepts. Closing the socket ends the subscription.
package subscriptions

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/dalemusser/retrohub/internal/app/system/analytics"
	"github.com/dalemusser/retrohub/internal/app/system/auth"
	"github.com/dalemusser/retrohub/internal/app/system/pubsub"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
)

// Subscription names, used as the payload key of every frame.
const (
	TeamSubscription         = "teamSubscription"
	TeamMemberSubscription   = "teamMemberSubscription"
	NotificationSubscription = "notificationSubscription"
)

// AckType is the type of the first frame on every connection.
const AckType = "connection_ack"

// Handler serves the subscription endpoints.
type Handler struct {
	Broker    pubsub.Broker
	Analytics *analytics.Tracker
	Log       *zap.Logger

	upgrader websocket.Upgrader
}

// NewHandler builds a Handler. checkOrigin may be nil to accept same-host
// origins only, which is the gorilla default.
func NewHandler(broker pubsub.Broker, tracker *analytics.Tracker, logger *zap.Logger, checkOrigin func(*http.Request) bool) *Handler {
	return &Handler{
		Broker:    broker,
		Analytics: tracker,
		Log:       logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     checkOrigin,
		},
	}
}

func teamChannels(tok auth.Token) []string {
	out := make([]string, 0, len(tok.TeamIDs))
	for _, tid := range tok.TeamIDs {
		out = append(out, pubsub.ChannelName(pubsub.Team, tid))
	}
	return out
}

func teamMemberChannels(tok auth.Token) []string {
	out := make([]string, 0, len(tok.TeamIDs)+1)
	for _, tid := range tok.TeamIDs {
		out = append(out, pubsub.ChannelName(pubsub.TeamMember, tid))
	}
	return append(out, pubsub.ChannelName(pubsub.TeamMember, tok.UserID))
}

func notificationChannels(tok auth.Token) []string {
	return []string{pubsub.ChannelName(pubsub.Notification, tok.UserID)}
}

// Team streams TEAM events for every team the caller belongs to.
func (h *Handler) Team() http.HandlerFunc {
	return h.serve(TeamSubscription, teamChannels)
}

// TeamMember streams TEAM_MEMBER events for the caller's teams and the caller.
func (h *Handler) TeamMember() http.HandlerFunc {
	return h.serve(TeamMemberSubscription, teamMemberChannels)
}

// Notification streams the caller's own notifications.
func (h *Handler) Notification() http.HandlerFunc {
	return h.serve(NotificationSubscription, notificationChannels)
}

type ackFrame struct {
	Type     string `json:"type"`
	SocketID string `json:"socketId"`
}

// frame wraps an envelope as {"<name>": data, "type": ..., "operationId": ...}.
func frame(name string, env pubsub.Envelope) ([]byte, error) {
	return json.Marshal(map[string]any{
		name:          env.Data,
		"type":        env.Type,
		"operationId": env.OperationID,
	})
}

func (h *Handler) serve(name string, channels func(auth.Token) []string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tok, ok := auth.CurrentToken(r)
		if !ok {
			http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
			return
		}
		chans := channels(tok)
		if len(chans) == 0 {
			http.Error(w, "no teams to subscribe to", http.StatusForbidden)
			return
		}
		socketID := r.URL.Query().Get("socketId")
		if socketID == "" {
			socketID = uuid.NewString()
		}

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		sub, err := h.Broker.Subscribe(ctx, chans, pubsub.ExcludeMutator(socketID))
		if err != nil {
			h.Log.Error("subscribe failed",
				zap.String("subscription", name),
				zap.String("user_id", tok.UserID),
				zap.Error(err))
			http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
			return
		}
		defer sub.Close()

		conn, err := h.upgrader.Upgrade(w, r, nil)
		if err != nil {
			h.Log.Debug("websocket upgrade failed", zap.Error(err))
			return
		}

		started := time.Now()
		h.Analytics.Track(ctx, analytics.WebSocketConnected{
			UserID:       tok.UserID,
			SocketID:     socketID,
			Subscription: name,
		})
		log := h.Log.With(
			zap.String("subscription", name),
			zap.String("user_id", tok.UserID),
			zap.String("socket_id", socketID))
		log.Debug("websocket connected")

		c := &client{conn: conn, sub: sub, name: name, socketID: socketID, log: log}
		done := make(chan struct{})
		go func() {
			defer close(done)
			c.writePump(ctx)
		}()
		c.readPump()
		cancel()
		sub.Close()
		<-done

		h.Analytics.Track(context.WithoutCancel(ctx), analytics.WebSocketDisconnected{
			UserID:       tok.UserID,
			SocketID:     socketID,
			Subscription: name,
			Duration:     time.Since(started),
		})
		log.Debug("websocket disconnected")
	}
}
