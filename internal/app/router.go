package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/tijara-apps/tijara/internal/ads"
	"github.com/tijara-apps/tijara/internal/auth"
	"github.com/tijara-apps/tijara/internal/cogs"
	"github.com/tijara-apps/tijara/internal/dashboard"
	"github.com/tijara-apps/tijara/internal/observability"
	"github.com/tijara-apps/tijara/internal/shipping"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger           *slog.Logger
	Config           *Config
	AuthService      *auth.Service
	AuthHandler      *auth.Handler
	DashboardHandler *dashboard.Handler
	CogsHandler      *cogs.Handler
	AdsHandler       *ads.Handler
	ShippingHandler  *shipping.Handler
	Metrics          *observability.Metrics
}

// NewRouter constructs the chi.Router with the console defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:      params.Logger,
		Config:      params.Config,
		AuthService: params.AuthService,
		Metrics:     params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	r.Route("/auth", params.AuthHandler.MountRoutes)
	r.Route("/api/dashboard", params.DashboardHandler.MountRoutes)
	r.Route("/api/cogs", params.CogsHandler.MountRoutes)
	r.Route("/api/ads", params.AdsHandler.MountRoutes)
	r.Route("/api/shipping", params.ShippingHandler.MountRoutes)

	return r
}
