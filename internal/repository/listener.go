package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
)

// MessageListener turns MessageChannel notifications into callbacks
type MessageListener struct {
	db       *pgxpool.Pool
	onNotify func(ctx context.Context, matchID string)
	retry    time.Duration
}

// NewMessageListener creates a listener calling onNotify with the match id
// of every inserted message
func NewMessageListener(db *pgxpool.Pool, onNotify func(ctx context.Context, matchID string)) *MessageListener {
	return &MessageListener{db: db, onNotify: onNotify, retry: 2 * time.Second}
}

// Run listens until ctx is cancelled, reconnecting after connection errors
func (l *MessageListener) Run(ctx context.Context) {
	for {
		err := l.listen(ctx)
		if ctx.Err() != nil {
			return
		}
		log.Error().Err(err).Msg("Message listener disconnected, retrying")

		select {
		case <-ctx.Done():
			return
		case <-time.After(l.retry):
		}
	}
}

func (l *MessageListener) listen(ctx context.Context) error {
	conn, err := l.db.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("failed to acquire connection: %w", err)
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, "LISTEN "+pgx.Identifier{MessageChannel}.Sanitize()); err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}
	log.Info().Str("channel", MessageChannel).Msg("Listening for new messages")

	for {
		n, err := conn.Conn().WaitForNotification(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return err
			}
			return fmt.Errorf("failed to wait for notification: %w", err)
		}
		l.onNotify(ctx, n.Payload)
	}
}
