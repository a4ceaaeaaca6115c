package dashboard

import (
	"context"
	"log/slog"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tijara-apps/tijara/internal/cogs"
	"github.com/tijara-apps/tijara/internal/credentials"
	"github.com/tijara-apps/tijara/internal/providers"
	"github.com/tijara-apps/tijara/internal/providers/courier"
	"github.com/tijara-apps/tijara/internal/providers/social"
	"github.com/tijara-apps/tijara/internal/providers/storefront"
	"github.com/tijara-apps/tijara/internal/window"
)

type fakeOrders struct {
	orders []storefront.Order
	err    error
	calls  int
}

func (f *fakeOrders) ListAllOrders(ctx context.Context, shop, token string, win window.Window) ([]storefront.Order, error) {
	f.calls++
	return f.orders, f.err
}

type fakeAds struct {
	insights social.Insights
	err      error
}

func (f *fakeAds) AccountInsights(ctx context.Context, token, accountID string, win window.Window) (social.Insights, error) {
	return f.insights, f.err
}

type fakeCourier struct {
	shipments []courier.Shipment
	err       error
}

func (f *fakeCourier) ListShipments(ctx context.Context, creds courier.Credentials, win window.Window) ([]courier.Shipment, error) {
	return f.shipments, f.err
}

type fakeRecorder struct {
	records []cogs.OrderCOGS
}

func (f *fakeRecorder) EnsureForOrders(ctx context.Context, shop string, orders []storefront.Order) []cogs.OrderCOGS {
	return f.records
}

type fakeCreds struct {
	stored map[string]credentials.Credential
	errs   map[string]error
}

func (f *fakeCreds) GetUsable(ctx context.Context, shop, provider string) (credentials.Credential, error) {
	if err, ok := f.errs[provider]; ok {
		return credentials.Credential{}, err
	}
	cred, ok := f.stored[provider]
	if !ok {
		return credentials.Credential{}, credentials.ErrNotFound
	}
	return cred, nil
}

func testWindow() window.Window {
	return window.Window{Since: "2024-06-01", Until: "2024-06-15"}
}

func order(id string, total float64, currency string) storefront.Order {
	return storefront.Order{
		ID:         id,
		TotalPrice: total,
		Currency:   currency,
		CreatedAt:  time.Date(2024, time.June, 5, 0, 0, 0, 0, time.UTC),
	}
}

func newService(orders *fakeOrders, ads *fakeAds, cour *fakeCourier, recorder *fakeRecorder, creds *fakeCreds) *Service {
	return NewService(orders, ads, cour, recorder, creds, NewCache(nil, 0), slog.Default())
}

func TestBuildDashboardEmptyShop(t *testing.T) {
	svc := newService(&fakeOrders{}, &fakeAds{}, &fakeCourier{}, &fakeRecorder{}, &fakeCreds{})

	result, err := svc.BuildDashboard(context.Background(), BuildParams{Shop: "empty.example.com", Window: testWindow()})
	require.NoError(t, err)

	assert.Equal(t, 0, result.Stats.TotalOrders)
	assert.Equal(t, 0.0, result.Stats.OrderRevenue)
	assert.Equal(t, 0.0, result.Stats.TotalProfit)
	assert.Equal(t, 0.0, result.Stats.ROAS)
	assert.Equal(t, 0.0, result.Stats.EffectiveROAS)
	assert.Equal(t, 0.0, result.Stats.MER)
	assert.Empty(t, result.Warnings)
	assert.NotNil(t, result.Warnings, "warnings must serialize as an empty array")
}

func TestBuildDashboardProfitWithoutAds(t *testing.T) {
	orders := &fakeOrders{orders: []storefront.Order{
		order("1", 600, "USD"),
		order("2", 400, "USD"),
	}}
	cour := &fakeCourier{shipments: []courier.Shipment{
		{StatusID: courier.StatusDelivered, ShippingFee: 60},
		{StatusID: courier.StatusReturned, CancelFee: 40},
	}}
	recorder := &fakeRecorder{records: []cogs.OrderCOGS{
		{TotalCost: 200}, {TotalCost: 100},
	}}
	creds := &fakeCreds{stored: map[string]credentials.Credential{
		credentials.ProviderCourier: {Token: "t", Key: "k"},
	}}
	svc := newService(orders, &fakeAds{}, cour, recorder, creds)

	result, err := svc.BuildDashboard(context.Background(), BuildParams{Shop: "shop.example.com", Window: testWindow()})
	require.NoError(t, err)

	assert.Equal(t, 1000.0, result.Stats.OrderRevenue)
	assert.Equal(t, 100.0, result.Stats.ShippingAndCancelFees)
	assert.Equal(t, 300.0, result.Stats.CogsCosts)
	assert.Equal(t, 0.0, result.Stats.AdCosts)
	assert.Equal(t, 600.0, result.Stats.TotalProfit)
	assert.Equal(t, 1, result.Stats.ShipmentStatus.Delivered)
	assert.Equal(t, 1, result.Stats.ShipmentStatus.Returned)
	assert.Equal(t, 0, result.Stats.ShipmentStatus.Pending)
	assert.Empty(t, result.Warnings)
}

func TestBuildDashboardAdRatios(t *testing.T) {
	orders := &fakeOrders{orders: []storefront.Order{order("1", 1000, "USD")}}
	ads := &fakeAds{insights: social.Insights{
		Spend:         200,
		PurchaseValue: 500,
		Purchases:     12,
		Impressions:   9000,
	}}
	recorder := &fakeRecorder{records: []cogs.OrderCOGS{{TotalCost: 400}}}
	creds := &fakeCreds{stored: map[string]credentials.Credential{
		credentials.ProviderAds: {Token: "ads-token"},
	}}
	svc := newService(orders, ads, &fakeCourier{}, recorder, creds)

	result, err := svc.BuildDashboard(context.Background(), BuildParams{
		Shop:         "shop.example.com",
		Window:       testWindow(),
		AdsAccountID: "act_1",
	})
	require.NoError(t, err)

	assert.InDelta(t, 2.50, result.Stats.ROAS, 0.0001)
	assert.InDelta(t, 5.00, result.Stats.MER, 0.0001)
	// Attributed COGS: 500/1000 of the 400 recorded cost is charged against
	// ad revenue, so (500-200)/200.
	assert.InDelta(t, 1.50, result.Stats.EffectiveROAS, 0.0001)
	assert.Equal(t, int64(12), result.Stats.AdPurchases)
	assert.Equal(t, int64(9000), result.Stats.AdImpressions)
}

func TestBuildDashboardAppliesExchangeRate(t *testing.T) {
	ads := &fakeAds{insights: social.Insights{Spend: 100, PurchaseValue: 250}}
	creds := &fakeCreds{stored: map[string]credentials.Credential{
		credentials.ProviderAds: {Token: "ads-token"},
	}}
	svc := newService(&fakeOrders{}, ads, &fakeCourier{}, &fakeRecorder{}, creds)

	result, err := svc.BuildDashboard(context.Background(), BuildParams{
		Shop:         "shop.example.com",
		Window:       testWindow(),
		AdsAccountID: "act_1",
		ExchangeRate: 135.5,
	})
	require.NoError(t, err)

	assert.InDelta(t, 13550.0, result.Stats.AdCosts, 0.0001)
	assert.InDelta(t, 33875.0, result.Stats.AdRevenue, 0.0001)
	assert.InDelta(t, 2.5, result.Stats.ROAS, 0.0001, "rate cancels out of the ratio")
}

func TestBuildDashboardExpiredAdsTokenDegrades(t *testing.T) {
	orders := &fakeOrders{orders: []storefront.Order{order("1", 1000, "USD")}}
	creds := &fakeCreds{errs: map[string]error{
		credentials.ProviderAds: providers.NewError("ads", providers.KindAuthExpired, "token expired", nil),
	}}
	svc := newService(orders, &fakeAds{}, &fakeCourier{}, &fakeRecorder{}, creds)

	result, err := svc.BuildDashboard(context.Background(), BuildParams{
		Shop:         "shop.example.com",
		Window:       testWindow(),
		AdsAccountID: "act_1",
	})
	require.NoError(t, err, "a degraded provider must not fail the build")

	assert.Equal(t, 1000.0, result.Stats.OrderRevenue)
	assert.Equal(t, 0.0, result.Stats.AdCosts)
	assert.Contains(t, result.Warnings, "ads:auth_expired")
}

func TestBuildDashboardOrdersOutageDegrades(t *testing.T) {
	orders := &fakeOrders{err: providers.NewError("orders", providers.KindRateLimited, "throttled", nil)}
	svc := newService(orders, &fakeAds{}, &fakeCourier{}, &fakeRecorder{}, &fakeCreds{})

	result, err := svc.BuildDashboard(context.Background(), BuildParams{Shop: "shop.example.com", Window: testWindow()})
	require.NoError(t, err)

	assert.Equal(t, 0, result.Stats.TotalOrders)
	assert.Contains(t, result.Warnings, "orders:rate_limited")
}

func TestBuildDashboardFlagsMixedCurrencies(t *testing.T) {
	orders := &fakeOrders{orders: []storefront.Order{
		order("1", 100, "USD"),
		order("2", 200, "DZD"),
	}}
	svc := newService(orders, &fakeAds{}, &fakeCourier{}, &fakeRecorder{}, &fakeCreds{})

	result, err := svc.BuildDashboard(context.Background(), BuildParams{Shop: "shop.example.com", Window: testWindow()})
	require.NoError(t, err)

	assert.Equal(t, 300.0, result.Stats.OrderRevenue)
	assert.Contains(t, result.Warnings, "orders:mixed_currency")
}

func TestBuildDashboardServesSecondRequestFromCache(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer func() { _ = client.Close() }()

	orders := &fakeOrders{orders: []storefront.Order{order("1", 100, "USD")}}
	svc := NewService(orders, &fakeAds{}, &fakeCourier{}, &fakeRecorder{}, &fakeCreds{}, NewCache(client, time.Minute), slog.Default())

	params := BuildParams{Shop: "shop.example.com", Window: testWindow()}
	first, err := svc.BuildDashboard(context.Background(), params)
	require.NoError(t, err)
	second, err := svc.BuildDashboard(context.Background(), params)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, orders.calls)
}

func TestCacheBumpInvalidates(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer func() { _ = client.Close() }()

	cache := NewCache(client, time.Minute)
	ctx := context.Background()
	require.NoError(t, cache.Bump(ctx))

	before := cache.Key(ctx, "shop", testWindow(), "", 1)
	require.NoError(t, cache.Bump(ctx))
	after := cache.Key(ctx, "shop", testWindow(), "", 1)

	assert.NotEqual(t, before, after)
}
