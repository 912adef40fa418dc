package services

import (
	"context"
	"fmt"

	"greekmatch-backend/internal/models"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

const inboxConcurrency = 8

// MatchService handles match access, the inbox and unmatching
type MatchService struct {
	matches  MatchStore
	messages MessageStore
	users    UserStore
	feeds    FeedCloser
	notifier Notifier
}

// NewMatchService creates a new match service. feeds and notifier may be nil.
func NewMatchService(matches MatchStore, messages MessageStore, users UserStore, feeds FeedCloser, notifier Notifier) *MatchService {
	return &MatchService{
		matches:  matches,
		messages: messages,
		users:    users,
		feeds:    feeds,
		notifier: notifier,
	}
}

// Authorize returns the match if userID is one of its participants
func (s *MatchService) Authorize(ctx context.Context, matchID, userID string) (*models.Match, error) {
	match, err := s.matches.GetByID(ctx, matchID)
	if err != nil {
		return nil, fmt.Errorf("failed to get match: %w", err)
	}
	if !match.Has(userID) {
		return nil, ErrForbidden
	}
	return match, nil
}

// Inbox lists userID's matches with the counterpart's profile. Matches whose
// counterpart has no readable profile are left out.
func (s *MatchService) Inbox(ctx context.Context, userID string) ([]*models.MatchWithUser, error) {
	matches, err := s.matches.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list matches: %w", err)
	}

	rows := make([]*models.MatchWithUser, len(matches))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(inboxConcurrency)
	for i, m := range matches {
		g.Go(func() error {
			other, err := s.users.GetByID(gctx, m.Other(userID))
			if err != nil {
				log.Debug().Err(err).Str("match_id", m.ID).Msg("Skipping match without readable counterpart")
				return nil
			}
			rows[i] = &models.MatchWithUser{Match: m, User: other}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make([]*models.MatchWithUser, 0, len(rows))
	for _, r := range rows {
		if r != nil {
			out = append(out, r)
		}
	}
	return out, nil
}

// Unmatch deletes a match userID belongs to, with its messages
func (s *MatchService) Unmatch(ctx context.Context, matchID, userID string) error {
	match, err := s.Authorize(ctx, matchID, userID)
	if err != nil {
		return err
	}
	if err := s.remove(ctx, match); err != nil {
		return err
	}
	if s.notifier != nil {
		s.notifier.NotifyMatchDeleted(match.Other(userID), match.ID)
	}

	log.Info().Str("match_id", matchID).Str("user_id", userID).Msg("Match deleted")
	return nil
}

// remove deletes messages first, then the match, then ends its feeds
func (s *MatchService) remove(ctx context.Context, match *models.Match) error {
	if _, err := s.messages.DeleteByMatch(ctx, match.ID); err != nil {
		return fmt.Errorf("failed to delete messages: %w", err)
	}
	if err := s.matches.Delete(ctx, match.ID); err != nil {
		return fmt.Errorf("failed to delete match: %w", err)
	}
	if s.feeds != nil {
		s.feeds.CloseMatch(match.ID)
	}
	return nil
}
