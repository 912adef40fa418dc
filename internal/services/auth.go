package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"greekmatch-backend/internal/models"
	"greekmatch-backend/internal/repository"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"
)

const minPasswordLength = 6

// Affiliations maps registration codes to affiliation names
type Affiliations map[string]string

// NewAffiliations copies codes with their keys upper-cased
func NewAffiliations(codes map[string]string) Affiliations {
	a := make(Affiliations, len(codes))
	for code, name := range codes {
		a[strings.ToUpper(strings.TrimSpace(code))] = name
	}
	return a
}

// Lookup resolves a code, ignoring case and surrounding space
func (a Affiliations) Lookup(code string) (string, bool) {
	name, ok := a[strings.ToUpper(strings.TrimSpace(code))]
	return name, ok
}

// Claims is the JWT payload. Subject is the user id, ID the token id.
type Claims struct {
	jwt.RegisteredClaims
}

// Session is returned after a successful sign-in
type Session struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
	User      *models.User `json:"user,omitempty"`
}

// RegisterRequest is the body of a registration call
type RegisterRequest struct {
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password"`
	FullName        string `json:"fullname"`
	Grade           string `json:"grade"`
	AffiliationCode string `json:"affiliation_code"`
}

// SignInRequest is the body of a login call
type SignInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthService handles credentials and tokens
type AuthService struct {
	creds        CredentialStore
	users        UserStore
	revoked      RevocationStore
	affiliations Affiliations
	jwtSecret    []byte
	ttl          time.Duration
	now          func() time.Time
}

// NewAuthService creates a new auth service
func NewAuthService(
	creds CredentialStore,
	users UserStore,
	revoked RevocationStore,
	affiliations Affiliations,
	jwtSecret string,
	ttl time.Duration,
) *AuthService {
	return &AuthService{
		creds:        creds,
		users:        users,
		revoked:      revoked,
		affiliations: affiliations,
		jwtSecret:    []byte(jwtSecret),
		ttl:          ttl,
		now:          time.Now,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validateEmailPassword(email, password string) error {
	if email == "" {
		return invalid("email", "is required")
	}
	if !strings.Contains(email, "@") {
		return invalid("email", "is not a valid address")
	}
	if len(password) < minPasswordLength {
		return invalid("password", fmt.Sprintf("must be at least %d characters", minPasswordLength))
	}
	return nil
}

// Register creates a credential and a profile. All input is checked before
// anything is written.
func (s *AuthService) Register(ctx context.Context, req RegisterRequest) (*Session, error) {
	email := normalizeEmail(req.Email)
	if err := validateEmailPassword(email, req.Password); err != nil {
		return nil, err
	}
	if req.ConfirmPassword != req.Password {
		return nil, invalid("confirm_password", "does not match password")
	}
	fullName := strings.TrimSpace(req.FullName)
	if fullName == "" {
		return nil, invalid("fullname", "is required")
	}
	if strings.TrimSpace(req.AffiliationCode) == "" {
		return nil, invalid("affiliation_code", "is required")
	}
	affiliation, ok := s.affiliations.Lookup(req.AffiliationCode)
	if !ok {
		return nil, invalid("affiliation_code", "is not a known code")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		ID:               uuid.New().String(),
		FullName:         fullName,
		Email:            email,
		Grade:            strings.TrimSpace(req.Grade),
		GreekAffiliation: affiliation,
		ProfileImageURLs: []string{},
	}
	cred := &models.Credential{
		UserID:       user.ID,
		Email:        email,
		PasswordHash: string(hash),
		CreatedAt:    s.now().UTC(),
	}

	if err := s.creds.Create(ctx, cred); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, fmt.Errorf("email already registered: %w", ErrConflict)
		}
		return nil, fmt.Errorf("failed to create credential: %w", err)
	}
	if err := s.users.Create(ctx, user); err != nil {
		if derr := s.creds.Delete(ctx, user.ID); derr != nil {
			log.Error().Err(derr).Str("user_id", user.ID).Msg("Failed to roll back credential")
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	session, err := s.issue(user.ID)
	if err != nil {
		return nil, err
	}
	session.User = user

	log.Info().Str("user_id", user.ID).Str("affiliation", affiliation).Msg("User registered")
	return session, nil
}

// SignIn checks the password and issues a token
func (s *AuthService) SignIn(ctx context.Context, email, password string) (*Session, error) {
	email = normalizeEmail(email)
	if err := validateEmailPassword(email, password); err != nil {
		return nil, err
	}

	cred, err := s.creds.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUnauthorized
		}
		return nil, fmt.Errorf("failed to get credential: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(cred.PasswordHash), []byte(password)); err != nil {
		return nil, ErrUnauthorized
	}

	session, err := s.issue(cred.UserID)
	if err != nil {
		return nil, err
	}

	log.Info().Str("user_id", cred.UserID).Msg("User signed in")
	return session, nil
}

// SignOut revokes the token until it would have expired anyway
func (s *AuthService) SignOut(ctx context.Context, token string) error {
	claims, err := s.parse(token)
	if err != nil {
		return err
	}
	ttl := claims.ExpiresAt.Sub(s.now())
	if err := s.revoked.Revoke(ctx, claims.ID, ttl); err != nil {
		return fmt.Errorf("failed to revoke token: %w", err)
	}
	log.Info().Str("user_id", claims.Subject).Msg("User signed out")
	return nil
}

// Validate returns the claims of a live, unrevoked token
func (s *AuthService) Validate(ctx context.Context, token string) (*Claims, error) {
	claims, err := s.parse(token)
	if err != nil {
		return nil, err
	}
	revoked, err := s.revoked.IsRevoked(ctx, claims.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to check revocation: %w", err)
	}
	if revoked {
		return nil, fmt.Errorf("token revoked: %w", ErrUnauthorized)
	}
	return claims, nil
}

// DeleteCredential removes the sign-in secret of userID
func (s *AuthService) DeleteCredential(ctx context.Context, userID string) error {
	if err := s.creds.Delete(ctx, userID); err != nil {
		return fmt.Errorf("failed to delete credential: %w", err)
	}
	return nil
}

func (s *AuthService) issue(userID string) (*Session, error) {
	now := s.now()
	expiresAt := now.Add(s.ttl)
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			ID:        uuid.New().String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return nil, fmt.Errorf("failed to sign token: %w", err)
	}

	return &Session{Token: signed, ExpiresAt: expiresAt.UTC()}, nil
}

func (s *AuthService) parse(tokenString string) (*Claims, error) {
	if tokenString == "" {
		return nil, fmt.Errorf("token required: %w", ErrUnauthorized)
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.jwtSecret, nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %v: %w", err, ErrUnauthorized)
	}
	if !token.Valid || claims.Subject == "" || claims.ID == "" || claims.ExpiresAt == nil {
		return nil, fmt.Errorf("invalid token: %w", ErrUnauthorized)
	}
	return claims, nil
}
