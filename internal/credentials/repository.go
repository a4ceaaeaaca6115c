// Package credentials persists per-shop provider secrets: one row per
// (shop, provider), superseded by upsert, never deleted.
package credentials

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Provider tags for stored credentials.
const (
	ProviderAds     = "ads"
	ProviderCourier = "courier"
)

// ErrNotFound indicates no credential row for (shop, provider).
var ErrNotFound = errors.New("credentials: not found")

// Credential is one stored provider secret.
type Credential struct {
	Shop      string
	Provider  string
	Token     string
	Key       string
	ExpiresAt *time.Time
	Metadata  string
}

// Repository is the persistence contract for credentials.
type Repository interface {
	Get(ctx context.Context, shop, provider string) (Credential, error)
	Upsert(ctx context.Context, cred Credential) error
	ListShops(ctx context.Context, provider string) ([]string, error)
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a pgx-backed repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

func (r *repository) Get(ctx context.Context, shop, provider string) (Credential, error) {
	const query = `
		SELECT shop, provider, token, key, expires_at, metadata
		FROM credentials
		WHERE shop = $1 AND provider = $2`

	var cred Credential
	err := r.pool.QueryRow(ctx, query, shop, provider).Scan(
		&cred.Shop, &cred.Provider, &cred.Token, &cred.Key, &cred.ExpiresAt, &cred.Metadata)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Credential{}, ErrNotFound
		}
		return Credential{}, err
	}
	return cred, nil
}

func (r *repository) Upsert(ctx context.Context, cred Credential) error {
	const query = `
		INSERT INTO credentials (shop, provider, token, key, expires_at, metadata, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, now())
		ON CONFLICT (shop, provider) DO UPDATE
		SET token = EXCLUDED.token,
		    key = EXCLUDED.key,
		    expires_at = EXCLUDED.expires_at,
		    metadata = EXCLUDED.metadata,
		    updated_at = now()`

	_, err := r.pool.Exec(ctx, query, cred.Shop, cred.Provider, cred.Token, cred.Key, cred.ExpiresAt, cred.Metadata)
	return err
}

func (r *repository) ListShops(ctx context.Context, provider string) ([]string, error) {
	rows, err := r.pool.Query(ctx, `SELECT shop FROM credentials WHERE provider = $1 ORDER BY shop`, provider)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var shops []string
	for rows.Next() {
		var shop string
		if err := rows.Scan(&shop); err != nil {
			return nil, err
		}
		shops = append(shops, shop)
	}
	return shops, rows.Err()
}
