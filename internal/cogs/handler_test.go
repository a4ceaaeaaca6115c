package cogs

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tijara-apps/tijara/internal/providers"
	"github.com/tijara-apps/tijara/internal/providers/storefront"
	"github.com/tijara-apps/tijara/internal/shared"
	"github.com/tijara-apps/tijara/internal/window"
)

type stubOrderSource struct {
	order     storefront.Order
	getErr    error
	updateErr error

	lastShop    string
	lastVariant string
	lastCost    float64
}

func (s *stubOrderSource) GetOrder(ctx context.Context, shop, token, orderID string) (storefront.Order, error) {
	s.lastShop = shop
	return s.order, s.getErr
}

func (s *stubOrderSource) UpdateVariantUnitCost(ctx context.Context, shop, token, variantID string, cost float64) error {
	s.lastVariant = variantID
	s.lastCost = cost
	return s.updateErr
}

func testResolver() *window.Resolver {
	now := time.Date(2024, time.June, 15, 10, 0, 0, 0, time.UTC)
	return &window.Resolver{Now: func() time.Time { return now }}
}

func newHandlerRouter(source OrderSource, repo Repository) http.Handler {
	return newHandlerRouterWith(source, repo, nil)
}

func newHandlerRouterWith(source OrderSource, repo Repository, invalidator DashboardInvalidator) http.Handler {
	handler := NewHandler(slog.Default(), NewService(repo, slog.Default()), source, testResolver(), invalidator)
	r := chi.NewRouter()
	r.Route("/api/cogs", handler.MountRoutes)
	return r
}

func authedRequest(method, target, body string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	ctx := shared.ContextWithIdentity(req.Context(), &shared.Identity{
		SessionID:   "sess-1",
		Shop:        "shop.example.com",
		AccessToken: "storefront-token",
	})
	return req.WithContext(ctx)
}

func TestRecomputePersistsOrderCosts(t *testing.T) {
	repo := newMemoryRepo()
	source := &stubOrderSource{order: testOrder("1001", 250,
		storefront.LineItem{Title: "Lamp", Quantity: 2, Price: 100, UnitCost: ptr(40)})}
	router := newHandlerRouter(source, repo)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, authedRequest(http.MethodPost, "/api/cogs", `{"orderId":"1001"}`))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "shop.example.com", source.lastShop)

	var body struct {
		Success bool      `json:"success"`
		Cogs    OrderCOGS `json:"cogs"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.True(t, body.Success)
	assert.Equal(t, 80.0, body.Cogs.TotalCost)

	stored, err := repo.Get(context.Background(), "shop.example.com", "1001")
	require.NoError(t, err)
	assert.Equal(t, 80.0, stored.TotalCost)
}

func TestRecomputeRequiresAuthentication(t *testing.T) {
	router := newHandlerRouter(&stubOrderSource{}, newMemoryRepo())

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/cogs", strings.NewReader(`{"orderId":"1001"}`)))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRecomputeUnknownOrderIs404(t *testing.T) {
	source := &stubOrderSource{getErr: providers.NewError("orders", providers.KindNotFound, "order not found", nil)}
	router := newHandlerRouter(source, newMemoryRepo())

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, authedRequest(http.MethodPost, "/api/cogs", `{"orderId":"nope"}`))

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRecomputeValidatesBody(t *testing.T) {
	router := newHandlerRouter(&stubOrderSource{}, newMemoryRepo())

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, authedRequest(http.MethodPost, "/api/cogs", `{}`))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUnitCostForwardsToStorefront(t *testing.T) {
	source := &stubOrderSource{}
	router := newHandlerRouter(source, newMemoryRepo())

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, authedRequest(http.MethodPost, "/api/cogs/unit-cost",
		`{"variantId":"gid://variant/1","cost":19.99}`))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "gid://variant/1", source.lastVariant)
	assert.Equal(t, 19.99, source.lastCost)
}

func TestUnitCostRejectsNegativeCost(t *testing.T) {
	router := newHandlerRouter(&stubOrderSource{}, newMemoryRepo())

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, authedRequest(http.MethodPost, "/api/cogs/unit-cost",
		`{"variantId":"gid://variant/1","cost":-5}`))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUnitCostExpiredTokenIs401(t *testing.T) {
	source := &stubOrderSource{updateErr: providers.NewError("orders", providers.KindAuthExpired, "access token rejected", nil)}
	router := newHandlerRouter(source, newMemoryRepo())

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, authedRequest(http.MethodPost, "/api/cogs/unit-cost",
		`{"variantId":"gid://variant/1","cost":5}`))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "auth_expired", body["reason"])
}

type countingInvalidator struct {
	bumps int
}

func (c *countingInvalidator) Bump(ctx context.Context) error {
	c.bumps++
	return nil
}

func TestSummaryAggregatesStoredRecords(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, slog.Default())

	inside := testOrder("1001", 100,
		storefront.LineItem{Title: "Lamp", Quantity: 1, Price: 100, UnitCost: ptr(40)})
	_, err := svc.EnsureForOrder(context.Background(), "shop.example.com", inside)
	require.NoError(t, err)

	outside := testOrder("1002", 999)
	outside.CreatedAt = time.Date(2024, time.May, 1, 12, 0, 0, 0, time.UTC)
	_, err = svc.EnsureForOrder(context.Background(), "shop.example.com", outside)
	require.NoError(t, err)

	router := newHandlerRouter(&stubOrderSource{}, repo)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, authedRequest(http.MethodGet, "/api/cogs?window=last_7_days", ""))

	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Success bool        `json:"success"`
		Summary Summary     `json:"summary"`
		Orders  []OrderCOGS `json:"orders"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.True(t, body.Success)
	assert.Equal(t, 1, body.Summary.TotalOrders)
	assert.Equal(t, 100.0, body.Summary.TotalRevenue)
	assert.Equal(t, 40.0, body.Summary.TotalCost)
	require.Len(t, body.Orders, 1)
	assert.Equal(t, "1001", body.Orders[0].OrderID)
}

func TestSummaryRejectsInvalidWindow(t *testing.T) {
	router := newHandlerRouter(&stubOrderSource{}, newMemoryRepo())

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, authedRequest(http.MethodGet, "/api/cogs?window=custom&start=2024-06-10&end=2024-06-01", ""))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCostWritesInvalidateDashboards(t *testing.T) {
	invalidator := &countingInvalidator{}
	source := &stubOrderSource{order: testOrder("1001", 250,
		storefront.LineItem{Title: "Lamp", Quantity: 2, Price: 100, UnitCost: ptr(40)})}
	router := newHandlerRouterWith(source, newMemoryRepo(), invalidator)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, authedRequest(http.MethodPost, "/api/cogs", `{"orderId":"1001"}`))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, invalidator.bumps)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, authedRequest(http.MethodPost, "/api/cogs/unit-cost",
		`{"variantId":"gid://variant/1","cost":19.99}`))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 2, invalidator.bumps)
}

func TestFailedUnitCostDoesNotInvalidate(t *testing.T) {
	invalidator := &countingInvalidator{}
	source := &stubOrderSource{updateErr: providers.NewError("orders", providers.KindAuthExpired, "access token rejected", nil)}
	router := newHandlerRouterWith(source, newMemoryRepo(), invalidator)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, authedRequest(http.MethodPost, "/api/cogs/unit-cost",
		`{"variantId":"gid://variant/1","cost":5}`))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, 0, invalidator.bumps)
}
