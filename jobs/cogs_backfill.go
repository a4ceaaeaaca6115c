package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/tijara-apps/tijara/internal/auth"
	"github.com/tijara-apps/tijara/internal/cogs"
	"github.com/tijara-apps/tijara/internal/credentials"
	"github.com/tijara-apps/tijara/internal/providers/storefront"
	"github.com/tijara-apps/tijara/internal/window"
)

// OrderLister is the storefront surface the backfill job depends on.
type OrderLister interface {
	ListAllOrders(ctx context.Context, shop, token string, win window.Window) ([]storefront.Order, error)
}

// CogsBackfillJob records COGS for recent orders so dashboard requests do
// not pay the first-write cost.
type CogsBackfillJob struct {
	Cogs     *cogs.Service
	Orders   OrderLister
	Creds    *credentials.Service
	Auth     *auth.Service
	Resolver *window.Resolver
	Logger   *slog.Logger
}

// NewCogsBackfillJob wires dependencies for the backfill handler.
func NewCogsBackfillJob(cogsSvc *cogs.Service, orders OrderLister, creds *credentials.Service, authSvc *auth.Service, resolver *window.Resolver, logger *slog.Logger) *CogsBackfillJob {
	return &CogsBackfillJob{Cogs: cogsSvc, Orders: orders, Creds: creds, Auth: authSvc, Resolver: resolver, Logger: logger}
}

// Handle processes COGS backfill tasks.
func (j *CogsBackfillJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil {
		return errors.New("cogs backfill: handler not configured")
	}
	var payload CogsBackfillPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	preset := payload.Preset
	if preset == "" {
		preset = window.PresetYesterday
	}
	win, err := j.Resolver.Resolve(preset, "", "")
	if err != nil {
		return asynq.SkipRetry
	}

	shops, err := j.Creds.ListShops(ctx, credentials.ProviderCourier)
	if err != nil {
		return err
	}

	for _, shop := range shops {
		token, err := j.Auth.TokenForShop(ctx, shop)
		if err != nil {
			j.Logger.Warn("backfill shop skipped, no storefront token", slog.String("shop", shop))
			continue
		}
		orders, err := j.Orders.ListAllOrders(ctx, shop, token, win)
		if err != nil {
			j.Logger.Warn("backfill order fetch failed", slog.String("shop", shop), slog.Any("error", err))
			continue
		}
		records := j.Cogs.EnsureForOrders(ctx, shop, orders)
		j.Logger.Info("cogs backfill done",
			slog.String("shop", shop),
			slog.Int("orders", len(orders)),
			slog.Int("records", len(records)))
	}
	return nil
}
