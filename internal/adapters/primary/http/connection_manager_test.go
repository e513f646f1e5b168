package http

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/siteforge/siteforge/internal/domain/entities"
)

type stubLister struct {
	sites []*entities.Site
}

func (s *stubLister) ListSites() []*entities.Site {
	return s.sites
}

func newTestManager(sites ...*entities.Site) *ConnectionManager {
	return NewConnectionManager(&stubLister{sites: sites}, time.Minute, nil)
}

func newTestConnection(id string) *Connection {
	return &Connection{ID: id, Send: make(chan ServerMessage, 16)}
}

// drain receives buffered messages until the channel is empty
func drain(conn *Connection) []ServerMessage {
	var out []ServerMessage
	for {
		select {
		case msg, ok := <-conn.Send:
			if !ok {
				return out
			}
			out = append(out, msg)
		default:
			return out
		}
	}
}

func TestRegister(t *testing.T) {
	site := &entities.Site{ID: "s1", Name: "demo", Status: entities.StatusReady}
	cm := newTestManager(site)
	conn := newTestConnection("c1")

	cm.Register(conn)

	msgs := drain(conn)
	require.Len(t, msgs, 2)
	assert.Equal(t, MsgConnected, msgs[0].Type)
	assert.False(t, msgs[0].Timestamp.IsZero())
	assert.Equal(t, MsgSites, msgs[1].Type)
	require.Len(t, msgs[1].Sites, 1)
	assert.Equal(t, "s1", msgs[1].Sites[0].ID)
	assert.Equal(t, 1, cm.Count())
}

func TestUnregister(t *testing.T) {
	cm := newTestManager()
	conn := newTestConnection("c1")
	cm.Register(conn)

	cm.Unregister("c1")

	assert.Equal(t, 0, cm.Count())
	drain(conn)
	_, open := <-conn.Send
	assert.False(t, open, "send channel should be closed")

	// unknown ids are ignored
	cm.Unregister("c1")
	cm.Unregister("never-registered")
}

func TestHandleMessage(t *testing.T) {
	setup := func(t *testing.T) (*ConnectionManager, *Connection) {
		t.Helper()
		cm := newTestManager(&entities.Site{ID: "s1", Name: "demo", Status: entities.StatusReady})
		conn := newTestConnection("c1")
		cm.Register(conn)
		drain(conn)
		return cm, conn
	}

	t.Run("ping draws a pong", func(t *testing.T) {
		cm, conn := setup(t)
		cm.HandleMessage("c1", []byte(`{"type":"ping"}`))

		msgs := drain(conn)
		require.Len(t, msgs, 1)
		assert.Equal(t, MsgPong, msgs[0].Type)
	})

	t.Run("subscribe is acknowledged and recorded", func(t *testing.T) {
		cm, conn := setup(t)
		cm.HandleMessage("c1", []byte(`{"type":"subscribe","siteId":"s1"}`))

		msgs := drain(conn)
		require.Len(t, msgs, 1)
		assert.Equal(t, MsgSubscribed, msgs[0].Type)
		assert.Equal(t, "s1", msgs[0].SiteID)
		assert.Equal(t, []string{"s1"}, cm.Subscriptions("c1"))
	})

	t.Run("unsubscribe removes the subscription", func(t *testing.T) {
		cm, conn := setup(t)
		cm.HandleMessage("c1", []byte(`{"type":"subscribe","siteId":"s1"}`))
		cm.HandleMessage("c1", []byte(`{"type":"unsubscribe","siteId":"s1"}`))

		msgs := drain(conn)
		require.Len(t, msgs, 2)
		assert.Equal(t, MsgUnsubscribed, msgs[1].Type)
		assert.Empty(t, cm.Subscriptions("c1"))
	})

	t.Run("getSites returns the snapshot", func(t *testing.T) {
		cm, conn := setup(t)
		cm.HandleMessage("c1", []byte(`{"type":"getSites"}`))

		msgs := drain(conn)
		require.Len(t, msgs, 1)
		assert.Equal(t, MsgSites, msgs[0].Type)
		require.Len(t, msgs[0].Sites, 1)
	})

	t.Run("malformed JSON draws an error and keeps the connection", func(t *testing.T) {
		cm, conn := setup(t)
		cm.HandleMessage("c1", []byte(`{not json`))

		msgs := drain(conn)
		require.Len(t, msgs, 1)
		assert.Equal(t, MsgError, msgs[0].Type)
		assert.Equal(t, 1, cm.Count())
	})

	t.Run("unknown type draws an error", func(t *testing.T) {
		cm, conn := setup(t)
		cm.HandleMessage("c1", []byte(`{"type":"reboot"}`))

		msgs := drain(conn)
		require.Len(t, msgs, 1)
		assert.Equal(t, MsgError, msgs[0].Type)
		assert.Contains(t, msgs[0].Message, "reboot")
	})

	t.Run("unknown connection is ignored", func(t *testing.T) {
		cm, _ := setup(t)
		cm.HandleMessage("ghost", []byte(`{"type":"ping"}`))
	})
}

func TestHandleEvent(t *testing.T) {
	t.Run("lifecycle events reach every connection", func(t *testing.T) {
		cm := newTestManager()
		a := newTestConnection("a")
		b := newTestConnection("b")
		cm.Register(a)
		cm.Register(b)
		drain(a)
		drain(b)

		site := &entities.Site{ID: "s1", Name: "demo", Status: entities.StatusBuilding}
		cm.HandleEvent(entities.NewSiteEvent(entities.EventStatusChanged, site))

		for _, conn := range []*Connection{a, b} {
			msgs := drain(conn)
			require.Len(t, msgs, 1)
			assert.Equal(t, string(entities.EventStatusChanged), msgs[0].Type)
			require.NotNil(t, msgs[0].Site)
			assert.Equal(t, entities.StatusBuilding, msgs[0].Site.Status)
		}
	})

	t.Run("file changes reach only subscribers", func(t *testing.T) {
		cm := newTestManager()
		sub := newTestConnection("sub")
		other := newTestConnection("other")
		cm.Register(sub)
		cm.Register(other)
		cm.HandleMessage("sub", []byte(`{"type":"subscribe","siteId":"s1"}`))
		drain(sub)
		drain(other)

		cm.HandleEvent(entities.NewFileChangedEvent("s1", "/sites/demo/index.md"))

		msgs := drain(sub)
		require.Len(t, msgs, 1)
		assert.Equal(t, string(entities.EventFileChanged), msgs[0].Type)
		assert.Equal(t, "/sites/demo/index.md", msgs[0].Path)
		assert.Empty(t, drain(other))
	})
}

func TestSweep(t *testing.T) {
	t.Run("first sweep challenges, second evicts", func(t *testing.T) {
		cm := newTestManager()
		conn := newTestConnection("c1")
		cm.Register(conn)
		drain(conn)

		cm.sweep()
		msgs := drain(conn)
		require.Len(t, msgs, 1)
		assert.Equal(t, MsgPing, msgs[0].Type)
		assert.Equal(t, 1, cm.Count())

		// no pong arrives, so the next sweep evicts
		cm.sweep()
		assert.Equal(t, 0, cm.Count())
	})

	t.Run("a pong keeps the connection alive", func(t *testing.T) {
		cm := newTestManager()
		conn := newTestConnection("c1")
		cm.Register(conn)
		drain(conn)

		cm.sweep()
		cm.HandleMessage("c1", []byte(`{"type":"pong"}`))
		cm.sweep()

		assert.Equal(t, 1, cm.Count())
	})
}

func TestSlowClientDoesNotBlock(t *testing.T) {
	cm := newTestManager()
	slow := &Connection{ID: "slow", Send: make(chan ServerMessage)} // unbuffered, never read
	fast := newTestConnection("fast")
	cm.Register(slow)
	cm.Register(fast)
	drain(fast)

	done := make(chan struct{})
	go func() {
		cm.HandleEvent(entities.NewSiteEvent(entities.EventSiteBuilt,
			&entities.Site{ID: "s1", Name: "demo", Status: entities.StatusReady}))
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("fan-out blocked on a slow client")
	}
	msgs := drain(fast)
	require.Len(t, msgs, 1)
	assert.Equal(t, string(entities.EventSiteBuilt), msgs[0].Type)
}

func TestCloseAll(t *testing.T) {
	cm := newTestManager()
	a := newTestConnection("a")
	b := newTestConnection("b")
	cm.Register(a)
	cm.Register(b)

	cm.CloseAll()

	assert.Equal(t, 0, cm.Count())
	for _, conn := range []*Connection{a, b} {
		drain(conn)
		_, open := <-conn.Send
		assert.False(t, open)
	}
}
