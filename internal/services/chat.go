package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"greekmatch-backend/internal/models"

	"github.com/rs/zerolog/log"
)

const maxMessageLength = 2000

// ChatService appends messages to a match and refreshes its feed
type ChatService struct {
	messages  MessageStore
	publisher Publisher
	now       func() time.Time
}

// NewChatService creates a new chat service. publisher is nil when another
// component (the Postgres listener) republishes on insert.
func NewChatService(messages MessageStore, publisher Publisher) *ChatService {
	return &ChatService{
		messages:  messages,
		publisher: publisher,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// SendMessageRequest is the body of a send call
type SendMessageRequest struct {
	Text string `json:"text"`
}

// Send appends text from senderID to the match. The caller has already
// checked that senderID belongs to the match.
func (s *ChatService) Send(ctx context.Context, matchID, senderID, text string) (*models.Message, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, invalid("text", "cannot be empty")
	}
	if len(text) > maxMessageLength {
		return nil, invalid("text", fmt.Sprintf("must be at most %d bytes", maxMessageLength))
	}

	msg := &models.Message{
		MatchID:  matchID,
		SenderID: senderID,
		Text:     text,
		SentAt:   s.now(),
	}
	if err := s.messages.Create(ctx, msg); err != nil {
		return nil, fmt.Errorf("failed to send message: %w", err)
	}

	log.Debug().Str("match_id", matchID).Str("sender_id", senderID).Msg("Message sent")

	if s.publisher != nil {
		s.publisher.Publish(ctx, matchID)
	}
	return msg, nil
}

// List returns the messages of a match, oldest first
func (s *ChatService) List(ctx context.Context, matchID string) ([]*models.Message, error) {
	msgs, err := s.messages.ListByMatch(ctx, matchID)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	return msgs, nil
}
