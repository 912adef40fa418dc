package services

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"greekmatch-backend/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeConn struct {
	mu      sync.Mutex
	written []WSMessage
	closed  bool
	fail    bool
}

func (c *fakeConn) WriteMessage(_ int, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fail {
		return errors.New("broken pipe")
	}
	var msg WSMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return err
	}
	c.written = append(c.written, msg)
	return nil
}

func (c *fakeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func TestHubNotifiesConnectedUsers(t *testing.T) {
	hub := NewWSHub()
	conn := &fakeConn{}
	hub.Register("a", conn)

	m := &models.Match{ID: "m1", UserIDs: [2]string{"a", "b"}}
	hub.NotifyMatchCreated("a", m)
	hub.NotifyMatchCreated("b", m)
	hub.NotifyMatchDeleted("a", "m1")

	require.Len(t, conn.written, 2)
	assert.Equal(t, WSTypeMatchCreated, conn.written[0].Type)
	assert.Equal(t, "m1", conn.written[0].Match.ID)
	assert.Equal(t, WSTypeMatchDeleted, conn.written[1].Type)
	assert.Equal(t, "m1", conn.written[1].MatchID)
	assert.False(t, hub.IsOnline("b"))
}

func TestHubNewestConnectionWins(t *testing.T) {
	hub := NewWSHub()
	old := &fakeConn{}
	cur := &fakeConn{}

	hub.Register("a", old)
	hub.Register("a", cur)
	assert.True(t, old.closed)

	// the stale connection's read loop ending must not drop the new one
	hub.Unregister("a", old)
	assert.True(t, hub.IsOnline("a"))

	require.NoError(t, hub.SendToUser("a", WSMessage{Type: "ping"}))
	assert.Len(t, cur.written, 1)
	assert.Empty(t, old.written)

	hub.Unregister("a", cur)
	assert.False(t, hub.IsOnline("a"))
	assert.True(t, cur.closed)
}

func TestHubDropsBrokenConnection(t *testing.T) {
	hub := NewWSHub()
	hub.Register("a", &fakeConn{fail: true})

	assert.Error(t, hub.SendToUser("a", WSMessage{Type: "ping"}))
	assert.False(t, hub.IsOnline("a"))
	assert.Error(t, hub.SendToUser("a", WSMessage{Type: "ping"}))
}
