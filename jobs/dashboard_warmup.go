package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/tijara-apps/tijara/internal/auth"
	"github.com/tijara-apps/tijara/internal/credentials"
	"github.com/tijara-apps/tijara/internal/dashboard"
	"github.com/tijara-apps/tijara/internal/window"
)

// DashboardWarmupJob pre-populates the dashboard cache for every shop with
// a stored courier or ads credential.
type DashboardWarmupJob struct {
	Dashboard *dashboard.Service
	Creds     *credentials.Service
	Auth      *auth.Service
	Resolver  *window.Resolver
	Logger    *slog.Logger
}

// NewDashboardWarmupJob wires dependencies for the warmup handler.
func NewDashboardWarmupJob(dash *dashboard.Service, creds *credentials.Service, authSvc *auth.Service, resolver *window.Resolver, logger *slog.Logger) *DashboardWarmupJob {
	return &DashboardWarmupJob{Dashboard: dash, Creds: creds, Auth: authSvc, Resolver: resolver, Logger: logger}
}

// Handle processes dashboard warmup tasks.
func (j *DashboardWarmupJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil {
		return errors.New("dashboard warmup: handler not configured")
	}
	var payload DashboardWarmupPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	if len(payload.Presets) == 0 {
		payload.Presets = []string{window.PresetYesterday, window.PresetLast7Days}
	}

	shops, err := j.shops(ctx)
	if err != nil {
		return err
	}

	for _, shop := range shops {
		token, err := j.Auth.TokenForShop(ctx, shop)
		if err != nil {
			j.Logger.Warn("warmup shop skipped, no storefront token", slog.String("shop", shop))
			continue
		}
		for _, preset := range payload.Presets {
			win, err := j.Resolver.Resolve(preset, "", "")
			if err != nil {
				j.Logger.Warn("warmup preset skipped", slog.String("preset", preset), slog.Any("error", err))
				continue
			}
			if _, err := j.Dashboard.BuildDashboard(ctx, dashboard.BuildParams{Shop: shop, StorefrontToken: token, Window: win}); err != nil {
				j.Logger.Warn("warmup build failed",
					slog.String("shop", shop),
					slog.String("preset", preset),
					slog.Any("error", err))
			}
		}
	}
	return nil
}

func (j *DashboardWarmupJob) shops(ctx context.Context) ([]string, error) {
	seen := map[string]bool{}
	var shops []string
	for _, provider := range []string{credentials.ProviderCourier, credentials.ProviderAds} {
		list, err := j.Creds.ListShops(ctx, provider)
		if err != nil {
			return nil, err
		}
		for _, shop := range list {
			if !seen[shop] {
				seen[shop] = true
				shops = append(shops, shop)
			}
		}
	}
	return shops, nil
}
