package services

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
)

// AccountService removes a user and everything that references them
type AccountService struct {
	users   UserStore
	swipes  SwipeStore
	matches MatchStore
	match   *MatchService
	auth    *AuthService
	purger  AccountPurger
}

// NewAccountService creates a new account service
func NewAccountService(users UserStore, swipes SwipeStore, matches MatchStore, match *MatchService, auth *AuthService) *AccountService {
	return &AccountService{
		users:   users,
		swipes:  swipes,
		matches: matches,
		match:   match,
		auth:    auth,
	}
}

// WithPurger makes Delete run the store-side cascade in one transaction
func (s *AccountService) WithPurger(p AccountPurger) *AccountService {
	s.purger = p
	return s
}

// Delete removes userID's profile, swipes in both directions, matches with
// their messages and the credential, then revokes token. Without a purger
// the steps run in order and stop at the first failure; earlier steps are
// not rolled back.
func (s *AccountService) Delete(ctx context.Context, userID, token string) error {
	if s.purger != nil {
		return s.deleteAtomic(ctx, userID, token)
	}

	if err := s.users.Delete(ctx, userID); err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	if _, err := s.swipes.DeleteByActor(ctx, userID); err != nil {
		return fmt.Errorf("failed to delete swipes by user: %w", err)
	}
	if _, err := s.swipes.DeleteByTarget(ctx, userID); err != nil {
		return fmt.Errorf("failed to delete swipes on user: %w", err)
	}

	matches, err := s.matches.ListByUser(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to list matches: %w", err)
	}
	for _, m := range matches {
		if err := s.match.remove(ctx, m); err != nil {
			return err
		}
		if s.match.notifier != nil {
			s.match.notifier.NotifyMatchDeleted(m.Other(userID), m.ID)
		}
	}

	if err := s.auth.DeleteCredential(ctx, userID); err != nil {
		return err
	}
	s.revoke(ctx, userID, token)

	log.Info().Str("user_id", userID).Int("matches", len(matches)).Msg("Account deleted")
	return nil
}

func (s *AccountService) deleteAtomic(ctx context.Context, userID, token string) error {
	deleted, err := s.purger.Purge(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to delete account: %w", err)
	}

	for _, m := range deleted {
		if s.match.feeds != nil {
			s.match.feeds.CloseMatch(m.ID)
		}
		if s.match.notifier != nil {
			s.match.notifier.NotifyMatchDeleted(m.Other(userID), m.ID)
		}
	}
	s.revoke(ctx, userID, token)

	log.Info().Str("user_id", userID).Int("matches", len(deleted)).Msg("Account deleted in one transaction")
	return nil
}

// revoke signs the deleted user out. The account is already gone, so a
// failure here is only logged.
func (s *AccountService) revoke(ctx context.Context, userID, token string) {
	if token == "" {
		return
	}
	if err := s.auth.SignOut(ctx, token); err != nil {
		log.Warn().Err(err).Str("user_id", userID).Msg("Failed to revoke token of deleted account")
	}
}
