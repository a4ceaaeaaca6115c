package dashboard

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"
	"github.com/google/uuid"

	"github.com/tijara-apps/tijara/internal/auth"
	"github.com/tijara-apps/tijara/internal/platform/httpx"
	"github.com/tijara-apps/tijara/internal/shared"
	"github.com/tijara-apps/tijara/internal/window"
)

// Handler exposes the dashboard endpoint.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	resolver *window.Resolver
}

// NewHandler constructs the dashboard handler.
func NewHandler(logger *slog.Logger, service *Service, resolver *window.Resolver) *Handler {
	return &Handler{logger: logger, service: service, resolver: resolver}
}

// MountRoutes registers the dashboard route with a per-shop rate limit.
func (h *Handler) MountRoutes(r chi.Router) {
	limiter := httprate.Limit(20, time.Minute,
		httprate.WithKeyFuncs(shopRateKey),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			httpx.Fail(w, http.StatusTooManyRequests, "too many dashboard requests", "rate_limited")
		}),
	)
	r.With(limiter).Get("/", auth.RequireShop(h.handleDashboard))
}

type dashboardResponse struct {
	Success  bool     `json:"success"`
	Stats    Stats    `json:"stats"`
	Warnings []string `json:"warnings"`
}

func (h *Handler) handleDashboard(w http.ResponseWriter, r *http.Request) {
	id := shared.IdentityFromContext(r.Context())

	query := r.URL.Query()
	win, err := h.resolver.Resolve(query.Get("window"), query.Get("start"), query.Get("end"))
	if err != nil {
		httpx.Fail(w, http.StatusBadRequest, err.Error(), "invalid_input")
		return
	}

	rate := 0.0
	if raw := query.Get("rate"); raw != "" {
		rate, err = strconv.ParseFloat(raw, 64)
		if err != nil || rate < 0 {
			httpx.Fail(w, http.StatusBadRequest, "rate must be a non-negative number", "invalid_input")
			return
		}
	}

	result, err := h.service.BuildDashboard(r.Context(), BuildParams{
		Shop:            id.Shop,
		StorefrontToken: id.AccessToken,
		Window:          win,
		AdsAccountID:    query.Get("adsAccount"),
		ExchangeRate:    rate,
	})
	if err != nil {
		correlation := uuid.NewString()
		h.logger.Error("build dashboard",
			slog.String("shop", id.Shop),
			slog.String("correlation", correlation),
			slog.Any("error", err))
		httpx.Fail(w, http.StatusInternalServerError, "internal error ("+correlation+")", "internal")
		return
	}

	httpx.OK(w, dashboardResponse{Success: true, Stats: result.Stats, Warnings: result.Warnings})
}

func shopRateKey(r *http.Request) (string, error) {
	if id := shared.IdentityFromContext(r.Context()); id != nil {
		return id.Shop, nil
	}
	return httprate.KeyByIP(r)
}
