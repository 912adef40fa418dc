package services

import (
	"encoding/json"
	"fmt"
	"sync"

	"greekmatch-backend/internal/models"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// WSMessage represents a WebSocket message
type WSMessage struct {
	Type     string            `json:"type"`
	MatchID  string            `json:"match_id,omitempty"`
	Text     string            `json:"text,omitempty"`
	Message  string            `json:"message,omitempty"`
	Match    *models.Match     `json:"match,omitempty"`
	Messages []*models.Message `json:"messages,omitempty"`
}

const (
	WSTypeMatchCreated = "match_created"
	WSTypeMatchDeleted = "match_deleted"
	WSTypeMessages     = "messages"
	WSTypeSendMessage  = "send_message"
	WSTypeError        = "error"
)

// WSConn is the part of *websocket.Conn the hub writes to
type WSConn interface {
	WriteMessage(messageType int, data []byte) error
	Close() error
}

type wsClient struct {
	conn WSConn
	wmu  sync.Mutex
}

func (c *wsClient) write(data []byte) error {
	c.wmu.Lock()
	defer c.wmu.Unlock()
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

// WSHub manages one notification connection per user. A new connection
// replaces the previous one.
type WSHub struct {
	mu      sync.RWMutex
	clients map[string]*wsClient
}

// NewWSHub creates a new WebSocket hub
func NewWSHub() *WSHub {
	return &WSHub{clients: make(map[string]*wsClient)}
}

// Register registers a new WebSocket connection for a user
func (h *WSHub) Register(userID string, conn WSConn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if existing, ok := h.clients[userID]; ok {
		existing.conn.Close()
	}
	h.clients[userID] = &wsClient{conn: conn}

	log.Info().Str("user_id", userID).Msg("WebSocket connection registered")
}

// Unregister removes conn if it is still the user's current connection
func (h *WSHub) Unregister(userID string, conn WSConn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if c, ok := h.clients[userID]; ok && c.conn == conn {
		c.conn.Close()
		delete(h.clients, userID)
		log.Info().Str("user_id", userID).Msg("WebSocket connection unregistered")
	}
}

// SendToUser sends a message to a specific user
func (h *WSHub) SendToUser(userID string, message WSMessage) error {
	h.mu.RLock()
	c, ok := h.clients[userID]
	h.mu.RUnlock()

	if !ok {
		return fmt.Errorf("user %s is not connected", userID)
	}

	data, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	if err := c.write(data); err != nil {
		h.Unregister(userID, c.conn)
		return fmt.Errorf("failed to send message: %w", err)
	}

	return nil
}

// IsOnline checks if a user is online
func (h *WSHub) IsOnline(userID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.clients[userID]
	return ok
}

// NotifyMatchCreated tells userID about a new match
func (h *WSHub) NotifyMatchCreated(userID string, match *models.Match) {
	h.notify(userID, WSMessage{Type: WSTypeMatchCreated, MatchID: match.ID, Match: match})
}

// NotifyMatchDeleted tells userID a match is gone
func (h *WSHub) NotifyMatchDeleted(userID, matchID string) {
	h.notify(userID, WSMessage{Type: WSTypeMatchDeleted, MatchID: matchID})
}

// notify is best effort; offline users see the change on their next fetch
func (h *WSHub) notify(userID string, message WSMessage) {
	if userID == "" || !h.IsOnline(userID) {
		return
	}
	if err := h.SendToUser(userID, message); err != nil {
		log.Error().Err(err).Str("user_id", userID).Str("type", message.Type).Msg("Failed to notify user")
	}
}
