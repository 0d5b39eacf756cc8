package socket

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	usermodel "cratetrack/internal/user/model"
	"cratetrack/pkg/logger"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Browser clients connect from a different origin than the API.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Client is one websocket consumer of a live-query scope. All writes still
// go through the REST API; the socket is a one-way snapshot feed.
type Client struct {
	Hub    *Hub
	Conn   *websocket.Conn
	UserID string
	Scope  string
	Send   chan []byte

	cancel func()
}

// ServeWs authorizes the requested scope, upgrades the connection, and
// registers the client with the hub.
func ServeWs(hub *Hub, w http.ResponseWriter, r *http.Request, userID, role string) {
	scope := r.URL.Query().Get("scope")
	if scope == "" {
		scope = ScopeRecords
	}
	switch scope {
	case ScopeRecords:
	case ScopeAllRecords, ScopeProfiles:
		if role != usermodel.RoleAdmin {
			http.Error(w, "Forbidden: admin role required", http.StatusForbidden)
			return
		}
	default:
		http.Error(w, "Unknown scope", http.StatusBadRequest)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Sugar.Error(err)
		return
	}

	client := &Client{
		Hub:    hub,
		Conn:   conn,
		UserID: userID,
		Scope:  scope,
		Send:   make(chan []byte, 16),
	}
	client.Hub.Register <- client

	go client.writePump()
	go client.readPump()
}

// queue hands a snapshot to the write pump without blocking the feed. A
// client that cannot drain its queue is disconnected.
func (c *Client) queue(msg []byte) {
	if msg == nil {
		return
	}
	select {
	case c.Send <- msg:
	default:
		logger.Sugar.Warnf("Client %s (scope %s) is not draining its send queue. Unregistering.", c.UserID, c.Scope)
		c.Hub.Unregister <- c
	}
}

// readPump discards inbound frames; it exists to process control messages
// and to notice when the peer goes away.
func (c *Client) readPump() {
	defer func() {
		c.Hub.Unregister <- c
		c.Conn.Close()
	}()

	for {
		if _, _, err := c.Conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.Sugar.Errorf("error: %v", err)
			}
			break
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case message, ok := <-c.Send:
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			c.Conn.WriteMessage(websocket.TextMessage, message)
		case <-ticker.C:
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
