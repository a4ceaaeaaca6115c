package ads

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/tijara-apps/tijara/internal/auth"
	"github.com/tijara-apps/tijara/internal/platform/httpx"
	"github.com/tijara-apps/tijara/internal/providers"
	"github.com/tijara-apps/tijara/internal/providers/social"
	"github.com/tijara-apps/tijara/internal/shared"
	"github.com/tijara-apps/tijara/internal/window"
)

// Handler exposes the ads connect, picker, and campaign endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	resolver  *window.Resolver
	validator *validator.Validate
}

// NewHandler constructs the ads handler.
func NewHandler(logger *slog.Logger, service *Service, resolver *window.Resolver) *Handler {
	return &Handler{logger: logger, service: service, resolver: resolver, validator: validator.New()}
}

// MountRoutes registers ads routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/connect", auth.RequireShop(h.handleConnect))
	r.Get("/accounts", auth.RequireShop(h.handleAccounts))
	r.Get("/campaigns", auth.RequireShop(h.handleCampaigns))
	r.Post("/campaign", auth.RequireShop(h.handleCreateCampaign))
}

type connectRequest struct {
	Code        string `json:"code" validate:"required"`
	RedirectURI string `json:"redirectUri" validate:"required,url"`
}

func (h *Handler) handleConnect(w http.ResponseWriter, r *http.Request) {
	id := shared.IdentityFromContext(r.Context())

	var req connectRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Fail(w, http.StatusBadRequest, "malformed body", "invalid_input")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Fail(w, http.StatusBadRequest, err.Error(), "invalid_input")
		return
	}

	accounts, err := h.service.Connect(r.Context(), id.Shop, req.Code, req.RedirectURI)
	if err != nil {
		h.respondError(w, id.Shop, "ads connect", err)
		return
	}
	httpx.OK(w, map[string]any{"success": true, "accounts": accounts})
}

func (h *Handler) handleAccounts(w http.ResponseWriter, r *http.Request) {
	id := shared.IdentityFromContext(r.Context())

	accounts, err := h.service.CachedAccounts(r.Context(), id.Shop)
	if err != nil {
		h.respondError(w, id.Shop, "ads accounts", err)
		return
	}
	httpx.OK(w, map[string]any{"success": true, "accounts": accounts})
}

func (h *Handler) handleCampaigns(w http.ResponseWriter, r *http.Request) {
	id := shared.IdentityFromContext(r.Context())

	query := r.URL.Query()
	accountID := query.Get("account")
	if accountID == "" {
		httpx.Fail(w, http.StatusBadRequest, "account is required", "invalid_input")
		return
	}
	win, err := h.resolver.Resolve(query.Get("window"), query.Get("start"), query.Get("end"))
	if err != nil {
		httpx.Fail(w, http.StatusBadRequest, err.Error(), "invalid_input")
		return
	}

	campaigns, err := h.service.Campaigns(r.Context(), id.Shop, accountID, win)
	if err != nil {
		h.respondError(w, id.Shop, "ads campaigns", err)
		return
	}
	httpx.OK(w, map[string]any{"success": true, "campaigns": campaigns})
}

type createCampaignRequest struct {
	AccountID   string `json:"accountId" validate:"required"`
	Name        string `json:"name" validate:"required"`
	Objective   string `json:"objective" validate:"required"`
	Status      string `json:"status" validate:"omitempty,oneof=ACTIVE PAUSED"`
	DailyBudget int64  `json:"dailyBudget" validate:"min=0"`
}

func (h *Handler) handleCreateCampaign(w http.ResponseWriter, r *http.Request) {
	id := shared.IdentityFromContext(r.Context())

	var req createCampaignRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Fail(w, http.StatusBadRequest, "malformed body", "invalid_input")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Fail(w, http.StatusBadRequest, err.Error(), "invalid_input")
		return
	}

	status := req.Status
	if status == "" {
		status = "PAUSED"
	}
	campaignID, err := h.service.CreateCampaign(r.Context(), id.Shop, req.AccountID, social.CampaignSpec{
		Name:        req.Name,
		Objective:   req.Objective,
		Status:      status,
		DailyBudget: req.DailyBudget,
	})
	if err != nil {
		h.respondError(w, id.Shop, "ads create campaign", err)
		return
	}
	httpx.OK(w, map[string]any{"success": true, "campaignId": campaignID})
}

func (h *Handler) respondError(w http.ResponseWriter, shop, op string, err error) {
	switch {
	case errors.Is(err, ErrNotConnected):
		httpx.Fail(w, http.StatusConflict, "ads provider not connected", "credential_missing")
	case providers.KindOf(err) != "":
		httpx.RespondProviderError(w, err)
	default:
		correlation := uuid.NewString()
		h.logger.Error(op,
			slog.String("shop", shop),
			slog.String("correlation", correlation),
			slog.Any("error", err))
		httpx.Fail(w, http.StatusInternalServerError, "internal error ("+correlation+")", "internal")
	}
}
