package shipping

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tijara-apps/tijara/internal/credentials"
	"github.com/tijara-apps/tijara/internal/providers"
	"github.com/tijara-apps/tijara/internal/providers/courier"
	"github.com/tijara-apps/tijara/internal/shared"
)

type memCredRepo struct {
	creds map[string]credentials.Credential
}

func newMemCredRepo() *memCredRepo {
	return &memCredRepo{creds: map[string]credentials.Credential{}}
}

func (m *memCredRepo) Get(ctx context.Context, shop, provider string) (credentials.Credential, error) {
	cred, ok := m.creds[shop+"/"+provider]
	if !ok {
		return credentials.Credential{}, credentials.ErrNotFound
	}
	return cred, nil
}

func (m *memCredRepo) Upsert(ctx context.Context, cred credentials.Credential) error {
	m.creds[cred.Shop+"/"+cred.Provider] = cred
	return nil
}

func (m *memCredRepo) ListShops(ctx context.Context, provider string) ([]string, error) {
	return nil, nil
}

type stubCourier struct {
	validateErr error
	tracking    string
	createErr   error
	wilayas     []courier.Wilaya

	lastCreds courier.Credentials
}

func (s *stubCourier) ValidateCredentials(ctx context.Context, token, key string) error {
	return s.validateErr
}

func (s *stubCourier) CreateShipment(ctx context.Context, creds courier.Credentials, payload courier.ShipmentRequest) (string, error) {
	s.lastCreds = creds
	return s.tracking, s.createErr
}

func (s *stubCourier) ListWilayas(ctx context.Context) ([]courier.Wilaya, error) {
	return s.wilayas, nil
}

func newTestRouter(provider Provider, repo credentials.Repository) http.Handler {
	svc := NewService(provider, credentials.NewService(repo))
	handler := NewHandler(slog.Default(), svc)
	r := chi.NewRouter()
	r.Route("/api/shipping", handler.MountRoutes)
	return r
}

func authedRequest(method, target, body string) *http.Request {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	}
	ctx := shared.ContextWithIdentity(req.Context(), &shared.Identity{
		SessionID: "sess-1",
		Shop:      "shop.example.com",
	})
	return req.WithContext(ctx)
}

func TestSaveCredentialsValidatesBeforeStoring(t *testing.T) {
	repo := newMemCredRepo()
	router := newTestRouter(&stubCourier{}, repo)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, authedRequest(http.MethodPost, "/api/shipping/credentials",
		`{"token":"tok","key":"key"}`))

	require.Equal(t, http.StatusOK, rec.Code)

	cred, ok := repo.creds["shop.example.com/courier"]
	require.True(t, ok)
	assert.Equal(t, "tok", cred.Token)
	assert.Equal(t, "key", cred.Key)
	assert.Nil(t, cred.ExpiresAt, "courier credentials do not expire")
}

func TestSaveCredentialsRejectedByCourier(t *testing.T) {
	repo := newMemCredRepo()
	provider := &stubCourier{
		validateErr: providers.NewError("courier", providers.KindAuthExpired, "credentials rejected", nil),
	}
	router := newTestRouter(provider, repo)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, authedRequest(http.MethodPost, "/api/shipping/credentials",
		`{"token":"bad","key":"bad"}`))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Empty(t, repo.creds, "rejected credentials must not be stored")
}

func TestSaveCredentialsRequiresBothFields(t *testing.T) {
	router := newTestRouter(&stubCourier{}, newMemCredRepo())

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, authedRequest(http.MethodPost, "/api/shipping/credentials",
		`{"token":"tok"}`))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateShipmentWithoutCredentialIsConflict(t *testing.T) {
	router := newTestRouter(&stubCourier{}, newMemCredRepo())

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, authedRequest(http.MethodPost, "/api/shipping/shipment",
		`{"order_ref":"#1001","recipient":"A. Merchant","phone":"0550000000","address":"12 Rue Didouche","wilaya_id":16,"amount":4500}`))

	assert.Equal(t, http.StatusConflict, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "credential_missing", body["reason"])
}

func TestCreateShipmentUsesStoredCredentials(t *testing.T) {
	repo := newMemCredRepo()
	repo.creds["shop.example.com/courier"] = credentials.Credential{
		Shop: "shop.example.com", Provider: credentials.ProviderCourier, Token: "tok", Key: "key",
	}
	provider := &stubCourier{tracking: "TRK-9"}
	router := newTestRouter(provider, repo)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, authedRequest(http.MethodPost, "/api/shipping/shipment",
		`{"order_ref":"#1001","recipient":"A. Merchant","phone":"0550000000","address":"12 Rue Didouche","wilaya_id":16,"amount":4500}`))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, courier.Credentials{Token: "tok", Key: "key"}, provider.lastCreds)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "TRK-9", body["tracking"])
}

func TestCreateShipmentValidatesPayload(t *testing.T) {
	router := newTestRouter(&stubCourier{}, newMemCredRepo())

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, authedRequest(http.MethodPost, "/api/shipping/shipment",
		`{"order_ref":"#1001"}`))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestWilayasIsPublic(t *testing.T) {
	provider := &stubCourier{wilayas: []courier.Wilaya{{ID: 16, Name: "Alger", DeliveryFee: 500}}}
	router := newTestRouter(provider, newMemCredRepo())

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/shipping/wilayas", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Wilayas []courier.Wilaya `json:"wilayas"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Wilayas, 1)
	assert.Equal(t, "Alger", body.Wilayas[0].Name)
}
