package services

import (
	"context"
	"fmt"
	"strings"

	"greekmatch-backend/internal/models"

	"github.com/rs/zerolog/log"
)

const maxBioLength = 500

// ProfileService reads and edits a user's own profile
type ProfileService struct {
	users        UserStore
	affiliations Affiliations
}

// NewProfileService creates a new profile service
func NewProfileService(users UserStore, affiliations Affiliations) *ProfileService {
	return &ProfileService{users: users, affiliations: affiliations}
}

// ProfileUpdate holds the editable fields. Nil fields are left unchanged.
// An empty Bio clears it.
type ProfileUpdate struct {
	Bio             *string `json:"bio"`
	Grade           *string `json:"grade"`
	AffiliationCode *string `json:"affiliation_code"`
}

// ImageRequest sets the image at Index
type ImageRequest struct {
	Index int    `json:"index"`
	URL   string `json:"url"`
}

// MoveImageRequest reorders one image
type MoveImageRequest struct {
	From int `json:"from"`
	To   int `json:"to"`
}

// Get returns a profile
func (s *ProfileService) Get(ctx context.Context, userID string) (*models.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

// Update applies the non-nil fields of upd
func (s *ProfileService) Update(ctx context.Context, userID string, upd ProfileUpdate) (*models.User, error) {
	var affiliation string
	if upd.AffiliationCode != nil {
		name, ok := s.affiliations.Lookup(*upd.AffiliationCode)
		if !ok {
			return nil, invalid("affiliation_code", "is not a known code")
		}
		affiliation = name
	}
	if upd.Bio != nil && len(*upd.Bio) > maxBioLength {
		return nil, invalid("bio", fmt.Sprintf("must be at most %d bytes", maxBioLength))
	}

	return s.modify(ctx, userID, func(user *models.User) error {
		if upd.Bio != nil {
			bio := strings.TrimSpace(*upd.Bio)
			if bio == "" {
				user.Bio = nil
			} else {
				user.Bio = &bio
			}
		}
		if upd.Grade != nil {
			user.Grade = strings.TrimSpace(*upd.Grade)
		}
		if affiliation != "" {
			user.GreekAffiliation = affiliation
		}
		return nil
	})
}

// SetImage replaces the image at index, or appends when index is one past
// the end
func (s *ProfileService) SetImage(ctx context.Context, userID string, index int, url string) (*models.User, error) {
	url = strings.TrimSpace(url)
	if url == "" {
		return nil, invalid("url", "is required")
	}
	return s.modify(ctx, userID, func(user *models.User) error {
		n := len(user.ProfileImageURLs)
		switch {
		case index >= 0 && index < n:
			user.ProfileImageURLs[index] = url
		case index == n:
			user.ProfileImageURLs = append(user.ProfileImageURLs, url)
		default:
			return invalid("index", fmt.Sprintf("must be between 0 and %d", n))
		}
		return nil
	})
}

// RemoveImage drops the image at index
func (s *ProfileService) RemoveImage(ctx context.Context, userID string, index int) (*models.User, error) {
	return s.modify(ctx, userID, func(user *models.User) error {
		if err := checkIndex("index", index, len(user.ProfileImageURLs)); err != nil {
			return err
		}
		user.ProfileImageURLs = append(user.ProfileImageURLs[:index], user.ProfileImageURLs[index+1:]...)
		return nil
	})
}

// MoveImage moves the image at from to position to
func (s *ProfileService) MoveImage(ctx context.Context, userID string, from, to int) (*models.User, error) {
	return s.modify(ctx, userID, func(user *models.User) error {
		n := len(user.ProfileImageURLs)
		if err := checkIndex("from", from, n); err != nil {
			return err
		}
		if err := checkIndex("to", to, n); err != nil {
			return err
		}
		urls := user.ProfileImageURLs
		moved := urls[from]
		urls = append(urls[:from], urls[from+1:]...)
		urls = append(urls[:to], append([]string{moved}, urls[to:]...)...)
		user.ProfileImageURLs = urls
		return nil
	})
}

func checkIndex(field string, index, n int) error {
	if index < 0 || index >= n {
		return invalid(field, fmt.Sprintf("out of range for %d images", n))
	}
	return nil
}

func (s *ProfileService) modify(ctx context.Context, userID string, apply func(*models.User) error) (*models.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	user = user.Clone()
	if err := apply(user); err != nil {
		return nil, err
	}
	if err := s.users.Update(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to update user: %w", err)
	}

	log.Info().Str("user_id", userID).Msg("Profile updated")
	return user, nil
}
