package shipping

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
	"github.com/tijara-apps/tijara/internal/providers/courier"
	"github.com/tijara-apps/tijara/internal/shared"
)

// Handler exposes the shipping endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
}

// NewHandler constructs the shipping handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validator: validator.New()}
}

// MountRoutes registers shipping routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/credentials", auth.RequireShop(h.handleCredentials))
	r.Post("/shipment", auth.RequireShop(h.handleCreateShipment))
	r.Get("/wilayas", h.handleWilayas)
}

type credentialsRequest struct {
	Token string `json:"token" validate:"required"`
	Key   string `json:"key" validate:"required"`
}

func (h *Handler) handleCredentials(w http.ResponseWriter, r *http.Request) {
	id := shared.IdentityFromContext(r.Context())

	var req credentialsRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Fail(w, http.StatusBadRequest, "malformed body", "invalid_input")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Fail(w, http.StatusBadRequest, err.Error(), "invalid_input")
		return
	}

	if err := h.service.SaveCredentials(r.Context(), id.Shop, req.Token, req.Key); err != nil {
		h.respondError(w, id.Shop, "save courier credentials", err)
		return
	}
	httpx.OK(w, map[string]any{"success": true})
}

func (h *Handler) handleCreateShipment(w http.ResponseWriter, r *http.Request) {
	id := shared.IdentityFromContext(r.Context())

	var req courier.ShipmentRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Fail(w, http.StatusBadRequest, "malformed body", "invalid_input")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Fail(w, http.StatusBadRequest, err.Error(), "invalid_input")
		return
	}

	tracking, err := h.service.CreateShipment(r.Context(), id.Shop, req)
	if err != nil {
		h.respondError(w, id.Shop, "create shipment", err)
		return
	}
	httpx.OK(w, map[string]any{"success": true, "tracking": tracking})
}

func (h *Handler) handleWilayas(w http.ResponseWriter, r *http.Request) {
	wilayas, err := h.service.Wilayas(r.Context())
	if err != nil {
		h.respondError(w, "", "list wilayas", err)
		return
	}
	httpx.OK(w, map[string]any{"success": true, "wilayas": wilayas})
}

func (h *Handler) respondError(w http.ResponseWriter, shop, op string, err error) {
	switch {
	case errors.Is(err, ErrNotConnected):
		httpx.Fail(w, http.StatusConflict, "courier not connected", "credential_missing")
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
