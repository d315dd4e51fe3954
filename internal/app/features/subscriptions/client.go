package subscriptions

import (
	"context"
	"time"

	"github.com/dalemusser/retrohub/internal/app/system/pubsub"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// client pumps one subscription onto one socket. Only writePump writes.
type client struct {
	conn     *websocket.Conn
	sub      *pubsub.Subscription
	name     string
	socketID string
	log      *zap.Logger
}

// readPump drains and discards client frames so pongs and close frames are
// processed. It returns when the socket closes.
func (c *client) readPump() {
	defer c.conn.Close()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				c.log.Warn("websocket read error", zap.Error(err))
			}
			return
		}
	}
}

// writePump sends the ack, then forwards envelopes and pings until the
// subscription ends or a write fails.
func (c *client) writePump(ctx context.Context) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := c.conn.WriteJSON(ackFrame{Type: AckType, SocketID: c.socketID}); err != nil {
		c.log.Debug("ack write failed", zap.Error(err))
		return
	}

	for {
		select {
		case env, ok := <-c.sub.C():
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			msg, err := frame(c.name, env)
			if err != nil {
				c.log.Error("encode frame", zap.String("type", env.Type), zap.Error(err))
				continue
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				c.log.Debug("websocket write failed", zap.Error(err))
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-ctx.Done():
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = c.conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, ""))
			return
		}
	}
}
