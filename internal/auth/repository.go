// Package auth resolves session cookies to shop identities. The sessions
// table is owned by the storefront OAuth collaborator; the engine reads it
// and, in development, mints rows through the dev-login flow.
package auth

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrSessionNotFound indicates no usable session row for the cookie id.
var ErrSessionNotFound = errors.New("auth: session not found")

// Session is one row of the sessions table.
type Session struct {
	ID          string
	Shop        string
	State       string
	AccessToken string
	ExpiresAt   *time.Time
}

// Repository is the session persistence contract.
type Repository interface {
	Get(ctx context.Context, id string) (Session, error)
	Create(ctx context.Context, sess Session) error
	Delete(ctx context.Context, id string) error
	// TokenForShop returns the newest storefront access token stored for
	// the shop, for use outside a request (worker jobs).
	TokenForShop(ctx context.Context, shop string) (string, error)
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a pgx-backed repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

func (r *repository) Get(ctx context.Context, id string) (Session, error) {
	const query = `
		SELECT id, shop, state, access_token, expires_at
		FROM sessions
		WHERE id = $1`

	var sess Session
	err := r.pool.QueryRow(ctx, query, id).Scan(&sess.ID, &sess.Shop, &sess.State, &sess.AccessToken, &sess.ExpiresAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Session{}, ErrSessionNotFound
		}
		return Session{}, err
	}
	if sess.ExpiresAt != nil && !sess.ExpiresAt.After(time.Now()) {
		return Session{}, ErrSessionNotFound
	}
	return sess, nil
}

func (r *repository) Create(ctx context.Context, sess Session) error {
	const query = `
		INSERT INTO sessions (id, shop, state, access_token, expires_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE
		SET shop = EXCLUDED.shop,
		    state = EXCLUDED.state,
		    access_token = EXCLUDED.access_token,
		    expires_at = EXCLUDED.expires_at`

	_, err := r.pool.Exec(ctx, query, sess.ID, sess.Shop, sess.State, sess.AccessToken, sess.ExpiresAt)
	return err
}

func (r *repository) Delete(ctx context.Context, id string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM sessions WHERE id = $1`, id)
	return err
}

func (r *repository) TokenForShop(ctx context.Context, shop string) (string, error) {
	const query = `
		SELECT access_token
		FROM sessions
		WHERE shop = $1 AND access_token <> ''
		ORDER BY expires_at DESC NULLS FIRST
		LIMIT 1`

	var token string
	err := r.pool.QueryRow(ctx, query, shop).Scan(&token)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", ErrSessionNotFound
		}
		return "", err
	}
	return token, nil
}
