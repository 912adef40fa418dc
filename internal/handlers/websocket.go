package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"greekmatch-backend/internal/feed"
	"greekmatch-backend/internal/middleware"
	"greekmatch-backend/internal/models"
	"greekmatch-backend/internal/services"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

const writeWait = 10 * time.Second

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // mobile clients send no Origin; browsers are gated by token
	},
}

// feedFrame is a full snapshot of a match's messages
type feedFrame struct {
	Type     string            `json:"type"`
	MatchID  string            `json:"match_id"`
	Messages []*models.Message `json:"messages"`
}

// WebSocketHandler handles WebSocket connections
type WebSocketHandler struct {
	hub          *services.WSHub
	feeds        *feed.Hub
	authService  middleware.TokenValidator
	matchService *services.MatchService
	chatService  *services.ChatService
}

// NewWebSocketHandler creates a new WebSocket handler
func NewWebSocketHandler(
	hub *services.WSHub,
	feeds *feed.Hub,
	authService middleware.TokenValidator,
	matchService *services.MatchService,
	chatService *services.ChatService,
) *WebSocketHandler {
	return &WebSocketHandler{
		hub:          hub,
		feeds:        feeds,
		authService:  authService,
		matchService: matchService,
		chatService:  chatService,
	}
}

func (h *WebSocketHandler) authenticate(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID, err := middleware.ValidateWebSocketToken(r.Context(), r.URL.Query().Get("token"), h.authService)
	if err != nil {
		respondError(w, "invalid token", http.StatusUnauthorized)
		return "", false
	}
	return userID, true
}

// HandleNotifications handles GET /ws. The connection receives match
// lifecycle events until the client goes away.
func (h *WebSocketHandler) HandleNotifications(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.authenticate(w, r)
	if !ok {
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("Failed to upgrade WebSocket connection")
		return
	}
	defer conn.Close()

	h.hub.Register(userID, conn)
	defer h.hub.Unregister(userID, conn)

	log.Info().Str("user_id", userID).Msg("WebSocket connection established")

	// client frames are ignored; reading keeps control frames flowing
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Error().Err(err).Str("user_id", userID).Msg("WebSocket error")
			}
			return
		}
	}
}

// feedConn serializes writes to one feed connection
type feedConn struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *feedConn) send(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

func (c *feedConn) sendError(message string) {
	if err := c.send(services.WSMessage{Type: services.WSTypeError, Message: message}); err != nil {
		log.Debug().Err(err).Msg("Failed to send WebSocket error")
	}
}

// HandleFeed handles GET /ws/matches/{match_id}. The server pushes the full
// message list on connect and after every change; the client may send
// send_message frames. The socket closes when the match is deleted.
func (h *WebSocketHandler) HandleFeed(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.authenticate(w, r)
	if !ok {
		return
	}
	matchID := chi.URLParam(r, "match_id")
	if _, err := h.matchService.Authorize(r.Context(), matchID, userID); err != nil {
		respondServiceError(w, err, "Failed to authorize feed")
		return
	}

	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("Failed to upgrade WebSocket connection")
		return
	}
	defer ws.Close()
	conn := &feedConn{conn: ws}

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	sub, err := h.feeds.Subscribe(ctx, matchID)
	if err != nil {
		log.Error().Err(err).Str("match_id", matchID).Msg("Failed to subscribe to feed")
		conn.sendError("failed to load messages")
		return
	}
	defer sub.Close()

	log.Info().Str("user_id", userID).Str("match_id", matchID).Msg("Feed connection established")

	go func() {
		defer cancel()
		h.readFeed(ctx, conn, matchID, userID)
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case msgs, ok := <-sub.Snapshots():
			if !ok {
				conn.send(services.WSMessage{Type: services.WSTypeMatchDeleted, MatchID: matchID})
				return
			}
			if msgs == nil {
				msgs = []*models.Message{}
			}
			if err := conn.send(feedFrame{Type: services.WSTypeMessages, MatchID: matchID, Messages: msgs}); err != nil {
				log.Debug().Err(err).Str("match_id", matchID).Msg("Feed write failed")
				return
			}
		}
	}
}

// readFeed handles client frames until the connection fails
func (h *WebSocketHandler) readFeed(ctx context.Context, conn *feedConn, matchID, userID string) {
	for {
		_, data, err := conn.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Error().Err(err).Str("user_id", userID).Msg("Feed WebSocket error")
			}
			return
		}

		var msg services.WSMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			conn.sendError("Invalid message format")
			continue
		}

		switch msg.Type {
		case services.WSTypeSendMessage:
			if _, err := h.chatService.Send(ctx, matchID, userID, msg.Text); err != nil {
				var verr *services.ValidationError
				if errors.As(err, &verr) {
					conn.sendError(verr.Error())
				} else {
					log.Error().Err(err).Str("match_id", matchID).Msg("Failed to send message")
					conn.sendError("failed to send message")
				}
			}
		default:
			conn.sendError("Unknown message type")
		}
	}
}
