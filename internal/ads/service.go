// Package ads drives the ads-provider connect flow and the thin campaign
// operations exposed to the console.
package ads

import (
	"context"
	"errors"
	"fmt"

	"github.com/tijara-apps/tijara/internal/credentials"
	"github.com/tijara-apps/tijara/internal/providers/social"
	"github.com/tijara-apps/tijara/internal/window"
)

// ErrNotConnected indicates the shop has no usable ads credential.
var ErrNotConnected = errors.New("ads: provider not connected")

// Provider is the social-ads client surface the service depends on.
type Provider interface {
	ExchangeToken(ctx context.Context, code, redirectURI string) (social.Token, error)
	ListAdAccounts(ctx context.Context, token string) ([]social.AdAccount, error)
	CampaignsWithInsights(ctx context.Context, token, accountID string, win window.Window) ([]social.Campaign, error)
	CreateCampaign(ctx context.Context, token, accountID string, spec social.CampaignSpec) (string, error)
}

// Service coordinates the provider with the credential store.
type Service struct {
	provider Provider
	creds    *credentials.Service
}

// NewService constructs the ads service.
func NewService(provider Provider, creds *credentials.Service) *Service {
	return &Service{provider: provider, creds: creds}
}

// Connect exchanges the login code for a long-lived token, stores it, and
// caches the reachable ad accounts for the account picker.
func (s *Service) Connect(ctx context.Context, shop, code, redirectURI string) ([]credentials.AdAccountRef, error) {
	token, err := s.provider.ExchangeToken(ctx, code, redirectURI)
	if err != nil {
		return nil, err
	}

	accounts, err := s.provider.ListAdAccounts(ctx, token.AccessToken)
	if err != nil {
		return nil, err
	}
	refs := make([]credentials.AdAccountRef, 0, len(accounts))
	for _, account := range accounts {
		refs = append(refs, credentials.AdAccountRef{ID: account.ID, Name: account.Name, Currency: account.Currency})
	}

	cred := credentials.Credential{
		Shop:     shop,
		Provider: credentials.ProviderAds,
		Token:    token.AccessToken,
		Metadata: credentials.EncodeAdAccounts(refs),
	}
	if !token.ExpiresAt.IsZero() {
		expires := token.ExpiresAt
		cred.ExpiresAt = &expires
	}
	if err := s.creds.Upsert(ctx, cred); err != nil {
		return nil, fmt.Errorf("store ads credential: %w", err)
	}
	return refs, nil
}

// CachedAccounts returns the picker list stored at connect time without
// re-hitting the provider.
func (s *Service) CachedAccounts(ctx context.Context, shop string) ([]credentials.AdAccountRef, error) {
	cred, err := s.creds.Get(ctx, shop, credentials.ProviderAds)
	if err != nil {
		if errors.Is(err, credentials.ErrNotFound) {
			return nil, ErrNotConnected
		}
		return nil, err
	}
	return credentials.DecodeAdAccounts(cred.Metadata), nil
}

// Campaigns lists the account's campaigns with windowed insights.
func (s *Service) Campaigns(ctx context.Context, shop, accountID string, win window.Window) ([]social.Campaign, error) {
	cred, err := s.usableCredential(ctx, shop)
	if err != nil {
		return nil, err
	}
	return s.provider.CampaignsWithInsights(ctx, cred.Token, accountID, win)
}

// CreateCampaign forwards a thin creation call to the provider.
func (s *Service) CreateCampaign(ctx context.Context, shop, accountID string, spec social.CampaignSpec) (string, error) {
	cred, err := s.usableCredential(ctx, shop)
	if err != nil {
		return "", err
	}
	return s.provider.CreateCampaign(ctx, cred.Token, accountID, spec)
}

func (s *Service) usableCredential(ctx context.Context, shop string) (credentials.Credential, error) {
	cred, err := s.creds.GetUsable(ctx, shop, credentials.ProviderAds)
	if err != nil {
		if errors.Is(err, credentials.ErrNotFound) {
			return credentials.Credential{}, ErrNotConnected
		}
		return credentials.Credential{}, err
	}
	return cred, nil
}
