package cogs

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/tijara-apps/tijara/internal/auth"
	"github.com/tijara-apps/tijara/internal/platform/httpx"
	"github.com/tijara-apps/tijara/internal/providers/storefront"
	"github.com/tijara-apps/tijara/internal/shared"
	"github.com/tijara-apps/tijara/internal/window"
)

// OrderSource fetches single orders and pushes unit-cost updates back to
// the storefront.
type OrderSource interface {
	GetOrder(ctx context.Context, shop, token, orderID string) (storefront.Order, error)
	UpdateVariantUnitCost(ctx context.Context, shop, token, variantID string, cost float64) error
}

// DashboardInvalidator drops cached dashboards after a cost write changes
// what they would show.
type DashboardInvalidator interface {
	Bump(ctx context.Context) error
}

// Handler exposes the COGS summary, recompute, and unit-cost endpoints.
type Handler struct {
	logger      *slog.Logger
	service     *Service
	orders      OrderSource
	resolver    *window.Resolver
	invalidator DashboardInvalidator
	validator   *validator.Validate
}

// NewHandler constructs the COGS handler. invalidator may be nil when no
// dashboard cache is wired.
func NewHandler(logger *slog.Logger, service *Service, orders OrderSource, resolver *window.Resolver, invalidator DashboardInvalidator) *Handler {
	return &Handler{
		logger:      logger,
		service:     service,
		orders:      orders,
		resolver:    resolver,
		invalidator: invalidator,
		validator:   validator.New(),
	}
}

// MountRoutes registers COGS routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", auth.RequireShop(h.handleSummary))
	r.Post("/", auth.RequireShop(h.handleRecompute))
	r.Post("/unit-cost", auth.RequireShop(h.handleUnitCost))
}

func (h *Handler) handleSummary(w http.ResponseWriter, r *http.Request) {
	id := shared.IdentityFromContext(r.Context())

	query := r.URL.Query()
	win, err := h.resolver.Resolve(query.Get("window"), query.Get("start"), query.Get("end"))
	if err != nil {
		httpx.Fail(w, http.StatusBadRequest, err.Error(), "invalid_input")
		return
	}

	records, summary, err := h.service.Aggregate(r.Context(), id.Shop, win)
	if err != nil {
		correlation := uuid.NewString()
		h.logger.Error("aggregate cogs",
			slog.String("shop", id.Shop),
			slog.String("correlation", correlation),
			slog.Any("error", err))
		httpx.Fail(w, http.StatusInternalServerError, "internal error ("+correlation+")", "internal")
		return
	}
	if records == nil {
		records = []OrderCOGS{}
	}

	httpx.OK(w, map[string]any{"success": true, "summary": summary, "orders": records})
}

// invalidateDashboards drops cached dashboards after a write. Failures are
// logged, not surfaced: the write already succeeded.
func (h *Handler) invalidateDashboards(ctx context.Context, shop string) {
	if h.invalidator == nil {
		return
	}
	if err := h.invalidator.Bump(ctx); err != nil {
		h.logger.Warn("dashboard cache invalidation failed",
			slog.String("shop", shop),
			slog.Any("error", err))
	}
}

type recomputeRequest struct {
	OrderID string `json:"orderId" validate:"required"`
}

func (h *Handler) handleRecompute(w http.ResponseWriter, r *http.Request) {
	id := shared.IdentityFromContext(r.Context())

	var req recomputeRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Fail(w, http.StatusBadRequest, "malformed body", "invalid_input")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Fail(w, http.StatusBadRequest, err.Error(), "invalid_input")
		return
	}

	order, err := h.orders.GetOrder(r.Context(), id.Shop, id.AccessToken, req.OrderID)
	if err != nil {
		httpx.RespondProviderError(w, err)
		return
	}

	record, err := h.service.EnsureForOrder(r.Context(), id.Shop, order)
	if err != nil {
		correlation := uuid.NewString()
		h.logger.Error("ensure order cogs",
			slog.String("shop", id.Shop),
			slog.String("order", req.OrderID),
			slog.String("correlation", correlation),
			slog.Any("error", err))
		httpx.Fail(w, http.StatusInternalServerError, "internal error ("+correlation+")", "internal")
		return
	}

	h.invalidateDashboards(r.Context(), id.Shop)
	httpx.OK(w, map[string]any{"success": true, "cogs": record})
}

type unitCostRequest struct {
	VariantID string  `json:"variantId" validate:"required"`
	Cost      float64 `json:"cost" validate:"min=0"`
}

func (h *Handler) handleUnitCost(w http.ResponseWriter, r *http.Request) {
	id := shared.IdentityFromContext(r.Context())

	var req unitCostRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Fail(w, http.StatusBadRequest, "malformed body", "invalid_input")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Fail(w, http.StatusBadRequest, err.Error(), "invalid_input")
		return
	}

	if err := h.orders.UpdateVariantUnitCost(r.Context(), id.Shop, id.AccessToken, req.VariantID, req.Cost); err != nil {
		httpx.RespondProviderError(w, err)
		return
	}

	h.invalidateDashboards(r.Context(), id.Shop)
	httpx.OK(w, map[string]any{"success": true})
}
