// Package websocket exposes the portal's live stream endpoint. Each
// connection restores the caller's session, scopes a realtime coordinator to
// the resolved identity, and relays rendered alert fragments from the hub.
package websocket

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/ecoh2o/portal/internal/hub"
	"github.com/ecoh2o/portal/internal/realtime"
	"github.com/ecoh2o/portal/internal/session"
	"github.com/ecoh2o/portal/internal/view"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Outbound buffer per stream; a client that can't drain this is dropped.
	sendBufferSize = 64
)

// Handler upgrades portal stream requests and owns the per-connection
// session/coordinator pair.
type Handler struct {
	hub            *hub.Hub
	newManager     func() *session.Manager
	newCoordinator func() *realtime.Coordinator
	upgrader       websocket.Upgrader
}

// NewHandler creates a stream handler. The factories yield fresh, isolated
// instances per connection: the manager and coordinator are scoped to the
// stream's lifetime, not shared.
func NewHandler(h *hub.Hub, newManager func() *session.Manager, newCoordinator func() *realtime.Coordinator) *Handler {
	return &Handler{
		hub:            h,
		newManager:     newManager,
		newCoordinator: newCoordinator,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Stream auth rides on the session cookie, so same-origin only.
			CheckOrigin: func(r *http.Request) bool {
				return r.Header.Get("Origin") == "" || r.Header.Get("Origin") == "http://"+r.Host || r.Header.Get("Origin") == "https://"+r.Host
			},
		},
	}
}

// Serve handles GET /portal/stream.
func (h *Handler) Serve(c echo.Context) error {
	var token string
	if cookie, err := c.Cookie("auth_token"); err == nil {
		token = cookie.Value
	}

	conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	mgr := h.newManager()
	coord := h.newCoordinator()

	// The coordinator follows the manager's transitions for the whole life
	// of this stream: a new identity re-scopes it, sign-out or expiry stops
	// it. Both releases are deferred so every exit path tears down cleanly.
	unsubscribe := mgr.OnChange(func(change session.Change) {
		switch change.State {
		case session.StateAuthenticated:
			if err := coord.Start(c.Request().Context(), *change.Identity); err != nil {
				slog.Error("failed to start realtime scope", "error", err)
			}
		case session.StateUnauthenticated:
			coord.Stop()
		}
	})
	defer unsubscribe()
	defer coord.Stop()

	mgr.Restore(c.Request().Context(), token)

	identity, state := mgr.Current()
	if state != session.StateAuthenticated {
		conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "authentication required"),
			time.Now().Add(writeWait),
		)
		return nil
	}

	sub := &hub.Subscriber{
		UserID: identity.ID,
		Send:   make(chan []byte, sendBufferSize),
	}
	h.hub.Register <- sub
	defer func() {
		h.hub.Unregister <- sub
	}()

	go h.writePump(conn, sub)
	h.readPump(c.Request().Context(), conn, coord, sub)
	return nil
}

// writePump relays hub payloads to the peer and keeps the connection alive
// with pings.
func (h *Handler) writePump(conn *websocket.Conn, sub *hub.Subscriber) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()

	for {
		select {
		case payload, ok := <-sub.Send:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel.
				conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}

		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// clientMessage is the single inbound frame shape the stream accepts.
type clientMessage struct {
	Action   string `json:"action"`
	RecordID string `json:"record_id"`
}

// readPump reads client frames until the peer goes away. The only action a
// client may take over the stream is marking a notification as read; anything
// else is dropped.
func (h *Handler) readPump(ctx context.Context, conn *websocket.Conn, coord *realtime.Coordinator, sub *hub.Subscriber) {
	conn.SetReadLimit(512)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				slog.Debug("stream closed unexpectedly", "error", err)
			}
			return
		}

		var msg clientMessage
		if err := json.Unmarshal(payload, &msg); err != nil {
			slog.Debug("dropping malformed stream frame", "error", err)
			continue
		}
		if msg.Action != "mark_read" || msg.RecordID == "" {
			continue
		}

		coord.MarkRead(ctx, msg.RecordID)
		h.pushUnreadBadge(coord, sub)
	}
}

// pushUnreadBadge sends the refreshed unread counter to this stream only. The
// badge swaps out-of-band on the client side.
func (h *Handler) pushUnreadBadge(coord *realtime.Coordinator, sub *hub.Subscriber) {
	fragment, err := view.RenderFragment(view.UnreadBadge(coord.UnreadCount()))
	if err != nil {
		slog.Error("failed to render unread badge", "error", err)
		return
	}
	select {
	case sub.Send <- fragment:
	default:
		// A stalled stream loses the badge refresh; the write pump will drop
		// the connection shortly anyway.
	}
}
