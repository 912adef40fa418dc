package models

import (
	"fmt"
	"strings"
	"time"
)

// NoBioText is shown in place of an absent bio
const NoBioText = "No bio yet."

// User is a member's public profile document
type User struct {
	ID               string   `json:"id"`
	FullName         string   `json:"fullname"`
	Email            string   `json:"email"`
	Grade            string   `json:"grade"`
	GreekAffiliation string   `json:"greek_affiliation"`
	ProfileImageURLs []string `json:"profile_image_urls"`
	Bio              *string  `json:"bio,omitempty"`
}

// DisplayBio returns the bio, or NoBioText when it is absent or blank
func (u *User) DisplayBio() string {
	if u.Bio == nil || strings.TrimSpace(*u.Bio) == "" {
		return NoBioText
	}
	return *u.Bio
}

// PrimaryImage returns the first profile image, if any
func (u *User) PrimaryImage() (string, bool) {
	if len(u.ProfileImageURLs) == 0 {
		return "", false
	}
	return u.ProfileImageURLs[0], true
}

// Clone returns a deep copy of the user
func (u *User) Clone() *User {
	c := *u
	if u.ProfileImageURLs != nil {
		c.ProfileImageURLs = append([]string(nil), u.ProfileImageURLs...)
	}
	if u.Bio != nil {
		bio := *u.Bio
		c.Bio = &bio
	}
	return &c
}

// SwipeAction is a directional decision about another user
type SwipeAction string

const (
	SwipeLike   SwipeAction = "like"
	SwipeReject SwipeAction = "reject"
)

// ParseSwipeAction validates a wire value
func ParseSwipeAction(s string) (SwipeAction, error) {
	switch a := SwipeAction(strings.ToLower(strings.TrimSpace(s))); a {
	case SwipeLike, SwipeReject:
		return a, nil
	default:
		return "", fmt.Errorf("unknown swipe action %q", s)
	}
}

// Swipe is the latest decision of ActorID about TargetID
type Swipe struct {
	ActorID   string      `json:"from_user_id"`
	TargetID  string      `json:"to_user_id"`
	Action    SwipeAction `json:"action"`
	CreatedAt time.Time   `json:"timestamp"`
}

// Match pairs two users who liked each other. UserIDs is kept sorted.
type Match struct {
	ID        string    `json:"id"`
	UserIDs   [2]string `json:"users"`
	CreatedAt time.Time `json:"timestamp"`
}

// NewMatch builds a match for the unordered pair {a, b}
func NewMatch(a, b string) *Match {
	if a > b {
		a, b = b, a
	}
	return &Match{UserIDs: [2]string{a, b}}
}

// Has reports whether userID is one of the pair
func (m *Match) Has(userID string) bool {
	return m.UserIDs[0] == userID || m.UserIDs[1] == userID
}

// Other returns the counterpart of userID, or "" if userID is not in the pair
func (m *Match) Other(userID string) string {
	switch userID {
	case m.UserIDs[0]:
		return m.UserIDs[1]
	case m.UserIDs[1]:
		return m.UserIDs[0]
	default:
		return ""
	}
}

// Message is a chat line owned by a match
type Message struct {
	ID       string    `json:"id"`
	MatchID  string    `json:"match_id"`
	SenderID string    `json:"sender_id"`
	Text     string    `json:"text"`
	SentAt   time.Time `json:"timestamp"`
}

// Credential is the sign-in secret of a user
type Credential struct {
	UserID       string    `json:"-"`
	Email        string    `json:"-"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"-"`
}

// MatchWithUser is an inbox row
type MatchWithUser struct {
	Match *Match `json:"match"`
	User  *User  `json:"user"`
}
