package services

import (
	"context"
	"errors"
	"fmt"

	"greekmatch-backend/internal/models"
	"greekmatch-backend/internal/repository"

	"github.com/rs/zerolog/log"
)

// SwipeService records decisions and detects mutual likes
type SwipeService struct {
	swipes   SwipeStore
	matches  MatchStore
	notifier Notifier
}

// NewSwipeService creates a new swipe service. notifier may be nil.
func NewSwipeService(swipes SwipeStore, matches MatchStore, notifier Notifier) *SwipeService {
	return &SwipeService{swipes: swipes, matches: matches, notifier: notifier}
}

// SwipeRequest is the body of a swipe call
type SwipeRequest struct {
	TargetID string `json:"target_id"`
	Action   string `json:"action"`
}

// SwipeResult carries the stored decision and, on a mutual like, the match
type SwipeResult struct {
	Swipe *models.Swipe `json:"swipe"`
	Match *models.Match `json:"match,omitempty"`
}

// Record stores actorID's decision about targetID, replacing any earlier
// one. A like checks for the reciprocal like and creates the match.
func (s *SwipeService) Record(ctx context.Context, actorID, targetID, action string) (*SwipeResult, error) {
	if targetID == "" {
		return nil, invalid("target_id", "is required")
	}
	if actorID == targetID {
		return nil, invalid("target_id", "cannot swipe on yourself")
	}
	act, err := models.ParseSwipeAction(action)
	if err != nil {
		return nil, invalid("action", err.Error())
	}

	swipe := &models.Swipe{ActorID: actorID, TargetID: targetID, Action: act}
	if err := s.swipes.Upsert(ctx, swipe); err != nil {
		return nil, fmt.Errorf("failed to record swipe: %w", err)
	}

	log.Info().
		Str("actor_id", actorID).
		Str("target_id", targetID).
		Str("action", string(act)).
		Msg("Swipe recorded")

	result := &SwipeResult{Swipe: swipe}
	if act == models.SwipeLike {
		result.Match = s.detectMatch(ctx, actorID, targetID)
	}
	return result, nil
}

// detectMatch returns the match of a mutual like, or nil. Failures are
// logged and leave the swipe in place.
func (s *SwipeService) detectMatch(ctx context.Context, actorID, targetID string) *models.Match {
	reverse, err := s.swipes.Get(ctx, targetID, actorID)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			log.Error().Err(err).Str("actor_id", actorID).Str("target_id", targetID).Msg("Failed to read reciprocal swipe")
		}
		return nil
	}
	if reverse.Action != models.SwipeLike {
		return nil
	}

	match := models.NewMatch(actorID, targetID)
	created, err := s.matches.CreateIfAbsent(ctx, match)
	if err != nil {
		log.Error().Err(err).Str("actor_id", actorID).Str("target_id", targetID).Msg("Failed to create match")
		return nil
	}

	if created {
		log.Info().Str("match_id", match.ID).Str("user_a_id", match.UserIDs[0]).Str("user_b_id", match.UserIDs[1]).Msg("Match created")
		if s.notifier != nil {
			s.notifier.NotifyMatchCreated(match.UserIDs[0], match)
			s.notifier.NotifyMatchCreated(match.UserIDs[1], match)
		}
	}
	return match
}
