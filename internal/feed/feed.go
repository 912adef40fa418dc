// Package feed streams the message list of a match to live subscribers.
//
// Every update carries the full ordered list. A subscriber that falls
// behind only ever sees the newest snapshot; intermediate ones are dropped.
package feed

import (
	"context"
	"fmt"
	"sync"

	"greekmatch-backend/internal/models"

	"github.com/rs/zerolog/log"
)

// Loader returns the ordered messages of a match
type Loader func(ctx context.Context, matchID string) ([]*models.Message, error)

// Hub fans out message snapshots per match
type Hub struct {
	load Loader

	mu   sync.Mutex
	subs map[string]map[*Subscription]struct{}
}

// NewHub creates a hub reading snapshots through load
func NewHub(load Loader) *Hub {
	return &Hub{
		load: load,
		subs: make(map[string]map[*Subscription]struct{}),
	}
}

// Subscription receives snapshots of one match until closed
type Subscription struct {
	hub     *Hub
	matchID string
	ch      chan []*models.Message

	mu     sync.Mutex
	closed bool
}

// Subscribe registers a subscription and delivers the current snapshot
func (h *Hub) Subscribe(ctx context.Context, matchID string) (*Subscription, error) {
	msgs, err := h.load(ctx, matchID)
	if err != nil {
		return nil, fmt.Errorf("failed to load messages: %w", err)
	}

	sub := &Subscription{hub: h, matchID: matchID, ch: make(chan []*models.Message, 1)}
	sub.offer(msgs)

	h.mu.Lock()
	if h.subs[matchID] == nil {
		h.subs[matchID] = make(map[*Subscription]struct{})
	}
	h.subs[matchID][sub] = struct{}{}
	h.mu.Unlock()

	log.Debug().Str("match_id", matchID).Msg("Feed subscription opened")
	return sub, nil
}

// Publish reloads the messages of a match and pushes them to its subscribers
func (h *Hub) Publish(ctx context.Context, matchID string) {
	subs := h.subscribers(matchID)
	if len(subs) == 0 {
		return
	}

	msgs, err := h.load(ctx, matchID)
	if err != nil {
		log.Error().Err(err).Str("match_id", matchID).Msg("Failed to load messages for feed")
		return
	}

	for _, sub := range subs {
		sub.offer(msgs)
	}
}

// CloseMatch ends every subscription of a match
func (h *Hub) CloseMatch(matchID string) {
	for _, sub := range h.subscribers(matchID) {
		sub.Close()
	}
}

// Subscribers returns the number of open subscriptions of a match
func (h *Hub) Subscribers(matchID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs[matchID])
}

func (h *Hub) subscribers(matchID string) []*Subscription {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]*Subscription, 0, len(h.subs[matchID]))
	for sub := range h.subs[matchID] {
		out = append(out, sub)
	}
	return out
}

func (h *Hub) remove(sub *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if set, ok := h.subs[sub.matchID]; ok {
		delete(set, sub)
		if len(set) == 0 {
			delete(h.subs, sub.matchID)
		}
	}
}

// MatchID returns the match this subscription follows
func (s *Subscription) MatchID() string { return s.matchID }

// Snapshots yields message lists, oldest message first. The channel is
// closed when the subscription ends.
func (s *Subscription) Snapshots() <-chan []*models.Message { return s.ch }

// Close releases the subscription. It is safe to call more than once.
func (s *Subscription) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	close(s.ch)
	s.mu.Unlock()

	s.hub.remove(s)
	log.Debug().Str("match_id", s.matchID).Msg("Feed subscription closed")
}

// offer replaces any undelivered snapshot with msgs
func (s *Subscription) offer(msgs []*models.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	select {
	case <-s.ch:
	default:
	}
	s.ch <- msgs
}
