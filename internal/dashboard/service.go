package dashboard

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
	"golang.org/x/text/currency"

	"github.com/tijara-apps/tijara/internal/cogs"
	"github.com/tijara-apps/tijara/internal/credentials"
	"github.com/tijara-apps/tijara/internal/providers"
	"github.com/tijara-apps/tijara/internal/providers/courier"
	"github.com/tijara-apps/tijara/internal/providers/social"
	"github.com/tijara-apps/tijara/internal/providers/storefront"
	"github.com/tijara-apps/tijara/internal/window"
)

// OrdersClient is the storefront surface the aggregator depends on.
type OrdersClient interface {
	ListAllOrders(ctx context.Context, shop, token string, win window.Window) ([]storefront.Order, error)
}

// AdsClient is the social-ads surface the aggregator depends on.
type AdsClient interface {
	AccountInsights(ctx context.Context, token, accountID string, win window.Window) (social.Insights, error)
}

// CourierClient is the shipment surface the aggregator depends on.
type CourierClient interface {
	ListShipments(ctx context.Context, creds courier.Credentials, win window.Window) ([]courier.Shipment, error)
}

// CogsRecorder persists per-order costs for the fetched orders.
type CogsRecorder interface {
	EnsureForOrders(ctx context.Context, shop string, orders []storefront.Order) []cogs.OrderCOGS
}

// CredentialSource resolves stored provider credentials.
type CredentialSource interface {
	GetUsable(ctx context.Context, shop, provider string) (credentials.Credential, error)
}

// BuildParams identifies one dashboard build.
type BuildParams struct {
	Shop            string
	StorefrontToken string
	Window          window.Window
	AdsAccountID    string
	// ExchangeRate converts ad-account currency into the shop currency
	// (shop-currency units per ad-currency unit). Zero means 1.
	ExchangeRate float64
}

// Service orchestrates the provider fan-out and the reduction to stats.
type Service struct {
	orders  OrdersClient
	ads     AdsClient
	courier CourierClient
	cogs    CogsRecorder
	creds   CredentialSource
	cache   *Cache
	logger  *slog.Logger
	group   singleflight.Group
}

// NewService wires the aggregator's collaborators.
func NewService(orders OrdersClient, ads AdsClient, courierClient CourierClient, recorder CogsRecorder, creds CredentialSource, cache *Cache, logger *slog.Logger) *Service {
	return &Service{
		orders:  orders,
		ads:     ads,
		courier: courierClient,
		cogs:    recorder,
		creds:   creds,
		cache:   cache,
		logger:  logger,
	}
}

// BuildDashboard returns the stats for the window, serving from cache when
// possible and deduplicating identical in-flight builds.
func (s *Service) BuildDashboard(ctx context.Context, params BuildParams) (Result, error) {
	key := s.cache.Key(ctx, params.Shop, params.Window, params.AdsAccountID, params.ExchangeRate)
	value, err, _ := s.group.Do(key, func() (any, error) {
		return s.cache.Fetch(ctx, key, func(ctx context.Context) (Result, error) {
			return s.build(ctx, params)
		})
	})
	if err != nil {
		return Result{}, err
	}
	return value.(Result), nil
}

// build runs the fan-out and reduction. A degradable provider failure zeroes
// that provider's contribution and surfaces a warning; it never fails the
// request.
func (s *Service) build(ctx context.Context, params BuildParams) (Result, error) {
	rate := params.ExchangeRate
	if rate <= 0 {
		rate = 1
	}

	var (
		mu        sync.Mutex
		warnings  []string
		orders    []storefront.Order
		shipments []courier.Shipment
		insights  social.Insights
	)
	warn := func(provider string, err error) {
		kind := providers.KindOf(err)
		if kind == "" {
			kind = providers.KindNetwork
		}
		mu.Lock()
		warnings = append(warnings, provider+":"+string(kind))
		mu.Unlock()
		s.logger.Warn("dashboard provider degraded",
			slog.String("shop", params.Shop),
			slog.String("provider", provider),
			slog.Any("error", err))
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		fetched, err := s.orders.ListAllOrders(gctx, params.Shop, params.StorefrontToken, params.Window)
		if err != nil {
			warn("orders", err)
			return nil
		}
		orders = fetched
		return nil
	})

	g.Go(func() error {
		cred, err := s.creds.GetUsable(gctx, params.Shop, credentials.ProviderCourier)
		if err != nil {
			if !errors.Is(err, credentials.ErrNotFound) {
				warn("courier", err)
			}
			return nil
		}
		fetched, err := s.courier.ListShipments(gctx, courier.Credentials{Token: cred.Token, Key: cred.Key}, params.Window)
		if err != nil {
			warn("courier", err)
			return nil
		}
		shipments = fetched
		return nil
	})

	if params.AdsAccountID != "" {
		g.Go(func() error {
			cred, err := s.creds.GetUsable(gctx, params.Shop, credentials.ProviderAds)
			if err != nil {
				if errors.Is(err, credentials.ErrNotFound) {
					warn("ads", providers.NewError("ads", providers.KindAuthExpired, "no stored credential", nil))
				} else {
					warn("ads", err)
				}
				return nil
			}
			fetched, err := s.ads.AccountInsights(gctx, cred.Token, params.AdsAccountID, params.Window)
			if err != nil {
				warn("ads", err)
				return nil
			}
			insights = fetched
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return Result{}, err
	}

	records := s.cogs.EnsureForOrders(ctx, params.Shop, orders)

	stats := reduce(orders, shipments, insights, records, rate)
	if mixedCurrencies(orders) {
		mu.Lock()
		warnings = append(warnings, "orders:mixed_currency")
		mu.Unlock()
	}
	if warnings == nil {
		warnings = []string{}
	}
	return Result{Stats: stats, Warnings: warnings}, nil
}

func reduce(orders []storefront.Order, shipments []courier.Shipment, insights social.Insights, records []cogs.OrderCOGS, rate float64) Stats {
	var stats Stats

	stats.TotalOrders = len(orders)
	for _, order := range orders {
		stats.OrderRevenue += order.TotalPrice
	}

	for _, record := range records {
		stats.CogsCosts += record.TotalCost
	}

	stats.TotalShipments = len(shipments)
	for _, shipment := range shipments {
		stats.ShippingAndCancelFees += shipment.ShippingFee + shipment.CancelFee
		switch shipment.StatusID {
		case courier.StatusDelivered:
			stats.ShipmentStatus.Delivered++
		case courier.StatusReturned:
			stats.ShipmentStatus.Returned++
		default:
			stats.ShipmentStatus.Pending++
		}
	}

	stats.AdCosts = insights.Spend * rate
	stats.AdRevenue = insights.PurchaseValue * rate
	stats.AdPurchases = insights.Purchases
	stats.AdImpressions = insights.Impressions

	stats.TotalProfit = stats.OrderRevenue - stats.ShippingAndCancelFees - stats.CogsCosts - stats.AdCosts

	if stats.AdCosts != 0 {
		stats.ROAS = stats.AdRevenue / stats.AdCosts
		stats.MER = stats.OrderRevenue / stats.AdCosts
		if stats.OrderRevenue != 0 {
			// Attributed-COGS-adjusted ROAS: COGS is charged against ad
			// revenue in proportion to the ad share of total revenue.
			attributedCogs := stats.AdRevenue / stats.OrderRevenue * stats.CogsCosts
			stats.EffectiveROAS = (stats.AdRevenue - attributedCogs) / stats.AdCosts
		}
	}

	return stats
}

// mixedCurrencies reports whether the orders carry more than one valid
// ISO-4217 currency code. Revenue is still summed numerically; the caller
// flags the result instead of refusing to aggregate.
func mixedCurrencies(orders []storefront.Order) bool {
	seen := ""
	for _, order := range orders {
		if order.Currency == "" {
			continue
		}
		unit, err := currency.ParseISO(order.Currency)
		if err != nil {
			continue
		}
		code := unit.String()
		if seen == "" {
			seen = code
			continue
		}
		if code != seen {
			return true
		}
	}
	return false
}
