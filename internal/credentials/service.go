package credentials

import (
	"context"
	"encoding/json"
	"time"

	"github.com/tijara-apps/tijara/internal/providers"
)

// Tokens expiring inside this margin are treated as already expired so
// callers renew before the provider starts rejecting them.
const expiryMargin = 60 * time.Second

// Service layers expiry checks and ads-metadata handling over the store.
type Service struct {
	repo Repository
	now  func() time.Time
}

// NewService constructs the credential service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo, now: time.Now}
}

// Get returns the stored credential without expiry interpretation.
func (s *Service) Get(ctx context.Context, shop, provider string) (Credential, error) {
	return s.repo.Get(ctx, shop, provider)
}

// GetUsable returns the credential, failing with an auth_expired provider
// error when the token expires within the renewal margin. The store never
// auto-refreshes; renewal is an explicit connect flow.
func (s *Service) GetUsable(ctx context.Context, shop, provider string) (Credential, error) {
	cred, err := s.repo.Get(ctx, shop, provider)
	if err != nil {
		return Credential{}, err
	}
	if cred.ExpiresAt != nil && !cred.ExpiresAt.After(s.now().Add(expiryMargin)) {
		return Credential{}, providers.NewError(provider, providers.KindAuthExpired, "stored token expired", nil)
	}
	return cred, nil
}

// Upsert stores or replaces the (shop, provider) credential.
func (s *Service) Upsert(ctx context.Context, cred Credential) error {
	return s.repo.Upsert(ctx, cred)
}

// ListShops returns every shop holding a credential for the provider.
func (s *Service) ListShops(ctx context.Context, provider string) ([]string, error) {
	return s.repo.ListShops(ctx, provider)
}

// AdAccountRef is the cached ad-account picker entry.
type AdAccountRef struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Currency string `json:"currency"`
}

// EncodeAdAccounts serializes the picker list into the metadata text column.
func EncodeAdAccounts(accounts []AdAccountRef) string {
	raw, err := json.Marshal(accounts)
	if err != nil {
		return "[]"
	}
	return string(raw)
}

// DecodeAdAccounts parses the cached picker list; malformed metadata yields
// an empty list.
func DecodeAdAccounts(metadata string) []AdAccountRef {
	if metadata == "" {
		return nil
	}
	var accounts []AdAccountRef
	if err := json.Unmarshal([]byte(metadata), &accounts); err != nil {
		return nil
	}
	return accounts
}
