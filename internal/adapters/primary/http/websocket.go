package http

import (
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Maximum message size allowed from peer
	maxMessageSize = 1024

	// Per-connection outbound buffer; overflow is dropped by the manager
	sendBufferSize = 256
)

// createUpgrader creates a WebSocket upgrader with origin validation
func (s *Server) createUpgrader() websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			return s.isValidOrigin(r)
		},
	}
}

// wsClient couples one websocket to its manager-tracked connection
type wsClient struct {
	id      string
	conn    *websocket.Conn
	send    chan ServerMessage
	manager *ConnectionManager
	logger  *HTTPLogger
}

// handleWebSocket upgrades the request and registers the client
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	upgrader := s.createUpgrader()
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("WebSocket upgrade failed: %v", err)
		return
	}

	client := &wsClient{
		id:      uuid.New().String(),
		conn:    conn,
		send:    make(chan ServerMessage, sendBufferSize),
		manager: s.connMgr,
		logger:  s.logger,
	}

	go client.writePump()
	go client.readPump()

	s.connMgr.Register(&Connection{
		ID:   client.id,
		Send: client.send,
	})
}

// readPump pumps inbound frames into the connection manager. Heartbeat
// eviction handles dead peers, so the read deadline only guards against
// sockets that stall for several intervals.
func (c *wsClient) readPump() {
	defer func() {
		c.manager.Unregister(c.id)
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	readWait := 4 * c.manager.heartbeat
	_ = c.conn.SetReadDeadline(time.Now().Add(readWait))

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Error("WebSocket connection error: %v", err)
			}
			return
		}
		_ = c.conn.SetReadDeadline(time.Now().Add(readWait))
		c.manager.HandleMessage(c.id, message)
	}
}

// writePump writes outbound frames until the send channel closes
func (c *wsClient) writePump() {
	defer func() { _ = c.conn.Close() }()

	for msg := range c.send {
		_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteJSON(msg); err != nil {
			c.logger.Debug("write to client %s failed: %v", c.id, err)
			return
		}
	}

	// Channel closed: the manager evicted or unregistered us
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
}

// isValidOrigin validates WebSocket connection origins
func (s *Server) isValidOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}

	originURL, err := url.Parse(origin)
	if err != nil {
		s.logger.Warn("WebSocket connection rejected: invalid origin %q", origin)
		return false
	}

	if s.config.IsDevelopment() {
		return isLocalOrigin(originURL)
	}

	for _, allowed := range s.config.CORSOrigins {
		if originURL.String() == allowed {
			return true
		}
	}
	s.logger.Warn("WebSocket connection rejected: origin %s not allowed", originURL)
	return false
}

// isLocalOrigin allows localhost and private-network origins in development
func isLocalOrigin(originURL *url.URL) bool {
	hostname := originURL.Hostname()
	switch hostname {
	case "localhost", "127.0.0.1", "0.0.0.0":
		return true
	}
	return strings.HasPrefix(hostname, "192.168.") || strings.HasPrefix(hostname, "10.")
}
