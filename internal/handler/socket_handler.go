package handler

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/mindful-app/realtime-service/internal/auth"
	"github.com/mindful-app/realtime-service/internal/model"
	"github.com/mindful-app/realtime-service/internal/service"
	"github.com/segmentio/encoding/json"
	"go.uber.org/zap"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

// SocketHandler authenticates socket handshakes and runs one read loop per
// connection, applying each relay Outcome before reading the next frame.
type SocketHandler struct {
	auth   *auth.Authenticator
	conns  *service.ConnectionManager
	relay  *service.Relay
	logger *zap.Logger

	mu      sync.Mutex
	onFatal func(error)
}

// NewSocketHandler creates the socket handler.
func NewSocketHandler(a *auth.Authenticator, conns *service.ConnectionManager, relay *service.Relay, logger *zap.Logger) *SocketHandler {
	return &SocketHandler{auth: a, conns: conns, relay: relay, logger: logger}
}

// OnFatal sets the callback invoked when a connection goroutine panics.
func (h *SocketHandler) OnFatal(fn func(error)) {
	h.mu.Lock()
	h.onFatal = fn
	h.mu.Unlock()
}

// ServeWS authenticates the request and upgrades it to a WebSocket.
// Path: /ws (token in Authorization header or ?token=).
func (h *SocketHandler) ServeWS(c *gin.Context) {
	user, err := h.auth.Authenticate(c.Request.Context(), auth.TokenFromRequest(c.Request))
	if err != nil {
		h.logger.Info("socket handshake rejected", zap.String("remote", c.ClientIP()), zap.Error(err))
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication error"})
		return
	}

	conn, err := h.conns.Upgrader().Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	client, cleanup := h.conns.Register(user, conn)
	defer cleanup()

	go h.writePump(client)
	h.readPump(c, client)
}

func (h *SocketHandler) readPump(c *gin.Context, client *service.Client) {
	defer h.recoverFatal(client)

	conn := client.Conn
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	ctx := c.Request.Context()
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.logger.Debug("read error", zap.String("conn_id", client.ID), zap.Error(err))
			}
			return
		}
		var env model.Envelope
		if err := json.Unmarshal(data, &env); err != nil || env.Event == "" {
			h.conns.EmitTo(client, model.EventError, model.ErrorEvent{Message: "malformed frame"})
			continue
		}
		out := h.relay.Handle(ctx, h.conns.Snapshot(client), env)
		h.conns.Apply(client, out)
	}
}

func (h *SocketHandler) writePump(client *service.Client) {
	defer h.recoverFatal(client)

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	conn := client.Conn
	for {
		select {
		case data, ok := <-client.Send:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// recoverFatal treats a panic in a connection goroutine as fatal for the process.
func (h *SocketHandler) recoverFatal(client *service.Client) {
	rec := recover()
	if rec == nil {
		return
	}
	err := fmt.Errorf("panic in connection %s: %v", client.ID, rec)
	h.logger.Error("connection goroutine panicked", zap.String("conn_id", client.ID), zap.Error(err), zap.Stack("stack"))
	_ = client.Conn.Close()

	h.mu.Lock()
	fn := h.onFatal
	h.mu.Unlock()
	if fn != nil {
		fn(err)
	}
}
