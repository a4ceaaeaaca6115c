package auth

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// ErrInvalidLogin indicates a failed dev-login attempt.
var ErrInvalidLogin = errors.New("auth: invalid login")

const devSessionTTL = 24 * time.Hour

// Service verifies dev logins and mints sessions for them.
type Service struct {
	repo         Repository
	passwordHash string
}

// NewService constructs the auth service. passwordHash is the bcrypt hash
// guarding the dev-login endpoint; empty disables the flow.
func NewService(repo Repository, passwordHash string) *Service {
	return &Service{repo: repo, passwordHash: passwordHash}
}

// Resolve loads the session row behind a cookie id.
func (s *Service) Resolve(ctx context.Context, sessionID string) (Session, error) {
	return s.repo.Get(ctx, sessionID)
}

// DevLogin checks the password and mints a development session for the
// shop. The returned session carries no storefront token; order fetches
// through it degrade until a real OAuth session exists.
func (s *Service) DevLogin(ctx context.Context, shop, password string) (Session, error) {
	if s.passwordHash == "" || shop == "" {
		return Session{}, ErrInvalidLogin
	}
	if err := bcrypt.CompareHashAndPassword([]byte(s.passwordHash), []byte(password)); err != nil {
		return Session{}, ErrInvalidLogin
	}

	expires := time.Now().Add(devSessionTTL)
	sess := Session{
		ID:        uuid.NewString(),
		Shop:      shop,
		State:     "dev",
		ExpiresAt: &expires,
	}
	if err := s.repo.Create(ctx, sess); err != nil {
		return Session{}, err
	}
	return sess, nil
}

// TokenForShop returns the newest storefront token stored for the shop.
func (s *Service) TokenForShop(ctx context.Context, shop string) (string, error) {
	return s.repo.TokenForShop(ctx, shop)
}

// Logout removes the session row.
func (s *Service) Logout(ctx context.Context, sessionID string) error {
	return s.repo.Delete(ctx, sessionID)
}
