package http

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/siteforge/siteforge/internal/domain/entities"
)

// Message types exchanged with real-time clients
const (
	MsgConnected    = "connected"
	MsgPing         = "ping"
	MsgPong         = "pong"
	MsgSubscribe    = "subscribe"
	MsgSubscribed   = "subscribed"
	MsgUnsubscribe  = "unsubscribe"
	MsgUnsubscribed = "unsubscribed"
	MsgGetSites     = "getSites"
	MsgSites        = "sites"
	MsgError        = "error"
)

// ServerMessage is one outbound JSON frame. Every message carries a
// server-side send timestamp.
type ServerMessage struct {
	Type      string           `json:"type"`
	Timestamp time.Time        `json:"timestamp"`
	SiteID    string           `json:"siteId,omitempty"`
	Path      string           `json:"path,omitempty"`
	Site      *entities.Site   `json:"site,omitempty"`
	Sites     []*entities.Site `json:"sites,omitempty"`
	Message   string           `json:"message,omitempty"`
}

// ClientMessage is one inbound JSON frame
type ClientMessage struct {
	Type   string `json:"type"`
	SiteID string `json:"siteId,omitempty"`
}

// Connection tracks one live real-time client
type Connection struct {
	ID            string
	Send          chan ServerMessage
	subscriptions map[string]bool
	confirmed     bool
	closed        bool
	closeOnce     sync.Once
}

// siteLister provides the sites snapshot sent on connect and on getSites
type siteLister interface {
	ListSites() []*entities.Site
}

// ConnectionManager tracks live client connections, their subscriptions and
// liveness, and fans bus traffic out to them. Connection state is mutated
// only under the manager's lock, so message handlers and the heartbeat
// sweep never race on a connection.
type ConnectionManager struct {
	mu          sync.RWMutex
	connections map[string]*Connection
	sites       siteLister
	heartbeat   time.Duration
	logger      *HTTPLogger
}

// NewConnectionManager creates a new connection manager
func NewConnectionManager(sites siteLister, heartbeat time.Duration, logger *HTTPLogger) *ConnectionManager {
	if heartbeat <= 0 {
		heartbeat = 30 * time.Second
	}
	if logger == nil {
		logger = NewHTTPLogger("connections", false)
	}
	return &ConnectionManager{
		connections: make(map[string]*Connection),
		sites:       sites,
		heartbeat:   heartbeat,
		logger:      logger,
	}
}

// Run drives the heartbeat sweep until ctx is cancelled
func (cm *ConnectionManager) Run(ctx context.Context) {
	ticker := time.NewTicker(cm.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			cm.CloseAll()
			return
		case <-ticker.C:
			cm.sweep()
		}
	}
}

// Register adds a connection, acknowledges it and sends the current sites
// snapshot
func (cm *ConnectionManager) Register(conn *Connection) {
	conn.subscriptions = make(map[string]bool)
	conn.confirmed = true

	cm.mu.Lock()
	cm.connections[conn.ID] = conn
	count := len(cm.connections)
	cm.mu.Unlock()

	cm.logger.Info("client connected: %s (%d active)", conn.ID, count)
	cm.send(conn, ServerMessage{Type: MsgConnected, Message: "connected to siteforge"})
	cm.send(conn, ServerMessage{Type: MsgSites, Sites: cm.sites.ListSites()})
}

// Unregister removes a connection and discards its subscriptions
func (cm *ConnectionManager) Unregister(id string) {
	cm.mu.Lock()
	conn, ok := cm.connections[id]
	if ok {
		delete(cm.connections, id)
	}
	cm.mu.Unlock()

	if ok {
		cm.closeConn(conn)
		cm.logger.Info("client disconnected: %s", id)
	}
}

// HandleMessage processes one inbound frame from a client. A malformed or
// unrecognized message draws an error ack; the connection stays open and no
// other connection is affected.
func (cm *ConnectionManager) HandleMessage(connID string, raw []byte) {
	cm.mu.Lock()
	conn, ok := cm.connections[connID]
	if !ok {
		cm.mu.Unlock()
		return
	}

	var msg ClientMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		cm.mu.Unlock()
		cm.send(conn, ServerMessage{Type: MsgError, Message: "malformed message"})
		return
	}

	switch msg.Type {
	case MsgPing:
		cm.mu.Unlock()
		cm.send(conn, ServerMessage{Type: MsgPong})
	case MsgPong:
		conn.confirmed = true
		cm.mu.Unlock()
	case MsgSubscribe:
		conn.subscriptions[msg.SiteID] = true
		cm.mu.Unlock()
		cm.send(conn, ServerMessage{Type: MsgSubscribed, SiteID: msg.SiteID})
	case MsgUnsubscribe:
		delete(conn.subscriptions, msg.SiteID)
		cm.mu.Unlock()
		cm.send(conn, ServerMessage{Type: MsgUnsubscribed, SiteID: msg.SiteID})
	case MsgGetSites:
		cm.mu.Unlock()
		cm.send(conn, ServerMessage{Type: MsgSites, Sites: cm.sites.ListSites()})
	default:
		cm.mu.Unlock()
		cm.send(conn, ServerMessage{Type: MsgError, Message: "unknown message type: " + msg.Type})
	}
}

// HandleEvent fans one bus event out to connections. Lifecycle events go to
// every connection; FileChanged only to connections subscribed to the site
// at publish time.
func (cm *ConnectionManager) HandleEvent(event entities.Event) {
	msg := ServerMessage{
		Type:   string(event.Type),
		SiteID: event.SiteID,
		Path:   event.Path,
		Site:   event.Site,
	}

	cm.mu.RLock()
	targets := make([]*Connection, 0, len(cm.connections))
	for _, conn := range cm.connections {
		if event.Type == entities.EventFileChanged && !conn.subscriptions[event.SiteID] {
			continue
		}
		targets = append(targets, conn)
	}
	cm.mu.RUnlock()

	for _, conn := range targets {
		cm.send(conn, msg)
	}
}

// Subscriptions returns a copy of a connection's subscription set
func (cm *ConnectionManager) Subscriptions(connID string) []string {
	cm.mu.RLock()
	defer cm.mu.RUnlock()

	conn, ok := cm.connections[connID]
	if !ok {
		return nil
	}
	out := make([]string, 0, len(conn.subscriptions))
	for id := range conn.subscriptions {
		out = append(out, id)
	}
	return out
}

// Count returns the number of live connections
func (cm *ConnectionManager) Count() int {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return len(cm.connections)
}

// CloseAll closes every connection
func (cm *ConnectionManager) CloseAll() {
	cm.mu.Lock()
	conns := make([]*Connection, 0, len(cm.connections))
	for id, conn := range cm.connections {
		conns = append(conns, conn)
		delete(cm.connections, id)
	}
	cm.mu.Unlock()

	for _, conn := range conns {
		cm.closeConn(conn)
	}
}

// sweep evicts connections that missed a full heartbeat interval, then
// challenges the survivors with a fresh ping
func (cm *ConnectionManager) sweep() {
	cm.mu.Lock()
	var evicted, alive []*Connection
	for id, conn := range cm.connections {
		if !conn.confirmed {
			delete(cm.connections, id)
			evicted = append(evicted, conn)
			continue
		}
		conn.confirmed = false
		alive = append(alive, conn)
	}
	cm.mu.Unlock()

	for _, conn := range evicted {
		cm.logger.Warn("evicting unresponsive client: %s", conn.ID)
		cm.closeConn(conn)
	}
	for _, conn := range alive {
		cm.send(conn, ServerMessage{Type: MsgPing})
	}
}

// send delivers fire-and-forget: a full send buffer is logged and the frame
// dropped so one slow client never blocks the others. The read lock held
// across the send keeps closeConn from closing the channel mid-send.
func (cm *ConnectionManager) send(conn *Connection, msg ServerMessage) {
	msg.Timestamp = time.Now()

	cm.mu.RLock()
	defer cm.mu.RUnlock()
	if conn.closed {
		return
	}
	select {
	case conn.Send <- msg:
	default:
		cm.logger.Warn("dropping %s message for slow client %s", msg.Type, conn.ID)
	}
}

// closeConn marks a connection closed and shuts its send channel, which
// ends the write pump and with it the underlying socket
func (cm *ConnectionManager) closeConn(conn *Connection) {
	cm.mu.Lock()
	conn.closed = true
	cm.mu.Unlock()

	conn.closeOnce.Do(func() { close(conn.Send) })
}
