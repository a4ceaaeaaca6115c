// Package shipping manages the courier connection and shipment operations
// exposed to the console.
package shipping

import (
	"context"
	"errors"
	"fmt"

	"github.com/tijara-apps/tijara/internal/credentials"
	"github.com/tijara-apps/tijara/internal/providers/courier"
)

// ErrNotConnected indicates the shop has no stored courier credential.
var ErrNotConnected = errors.New("shipping: courier not connected")

// Provider is the courier client surface the service depends on.
type Provider interface {
	ValidateCredentials(ctx context.Context, token, key string) error
	CreateShipment(ctx context.Context, creds courier.Credentials, payload courier.ShipmentRequest) (string, error)
	ListWilayas(ctx context.Context) ([]courier.Wilaya, error)
}

// Service coordinates the courier client with the credential store.
type Service struct {
	provider Provider
	creds    *credentials.Service
}

// NewService constructs the shipping service.
func NewService(provider Provider, creds *credentials.Service) *Service {
	return &Service{provider: provider, creds: creds}
}

// SaveCredentials validates the token/key pair against the courier before
// storing it. Courier credentials do not expire.
func (s *Service) SaveCredentials(ctx context.Context, shop, token, key string) error {
	if err := s.provider.ValidateCredentials(ctx, token, key); err != nil {
		return err
	}
	err := s.creds.Upsert(ctx, credentials.Credential{
		Shop:     shop,
		Provider: credentials.ProviderCourier,
		Token:    token,
		Key:      key,
	})
	if err != nil {
		return fmt.Errorf("store courier credential: %w", err)
	}
	return nil
}

// CreateShipment registers a parcel with the courier under the shop's
// stored credentials.
func (s *Service) CreateShipment(ctx context.Context, shop string, payload courier.ShipmentRequest) (string, error) {
	cred, err := s.creds.GetUsable(ctx, shop, credentials.ProviderCourier)
	if err != nil {
		if errors.Is(err, credentials.ErrNotFound) {
			return "", ErrNotConnected
		}
		return "", err
	}
	return s.provider.CreateShipment(ctx, courier.Credentials{Token: cred.Token, Key: cred.Key}, payload)
}

// Wilayas returns the courier's province/fee reference table.
func (s *Service) Wilayas(ctx context.Context) ([]courier.Wilaya, error) {
	return s.provider.ListWilayas(ctx)
}
