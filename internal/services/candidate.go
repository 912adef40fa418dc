package services

import (
	"context"
	"fmt"

	"greekmatch-backend/internal/models"

	"github.com/rs/zerolog/log"
)

// FilterCandidates keeps the users actor may still swipe on: not actor,
// not actor's affiliation, and not already decided. Input order is kept.
func FilterCandidates(actor *models.User, all []*models.User, decided map[string]struct{}) []*models.User {
	out := make([]*models.User, 0, len(all))
	for _, u := range all {
		if u.ID == actor.ID || u.GreekAffiliation == actor.GreekAffiliation {
			continue
		}
		if _, ok := decided[u.ID]; ok {
			continue
		}
		out = append(out, u)
	}
	return out
}

// CandidateService builds the swipe pool
type CandidateService struct {
	users  UserStore
	swipes SwipeStore
}

// NewCandidateService creates a new candidate service
func NewCandidateService(users UserStore, swipes SwipeStore) *CandidateService {
	return &CandidateService{users: users, swipes: swipes}
}

// Candidates returns the profiles actorID has not decided on yet. An actor
// without a readable profile gets an empty pool.
func (s *CandidateService) Candidates(ctx context.Context, actorID string) ([]*models.User, error) {
	actor, err := s.users.GetByID(ctx, actorID)
	if err != nil {
		log.Debug().Err(err).Str("user_id", actorID).Msg("No readable profile for candidate fetch")
		return []*models.User{}, nil
	}

	targets, err := s.swipes.TargetsOf(ctx, actorID)
	if err != nil {
		return nil, fmt.Errorf("failed to get swiped users: %w", err)
	}
	decided := make(map[string]struct{}, len(targets))
	for _, id := range targets {
		decided[id] = struct{}{}
	}

	all, err := s.users.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}

	return FilterCandidates(actor, all, decided), nil
}
