package auth

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/tijara-apps/tijara/internal/platform/httpx"
	"github.com/tijara-apps/tijara/internal/shared"
)

// CookieName is the session cookie read by the middleware.
const CookieName = "tijara_session"

// Handler exposes the dev-login and logout endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
	secure    bool
}

// NewHandler constructs the auth handler.
func NewHandler(logger *slog.Logger, service *Service, secure bool) *Handler {
	return &Handler{
		logger:    logger,
		service:   service,
		validator: validator.New(),
		secure:    secure,
	}
}

// MountRoutes registers auth routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/dev-login", h.handleDevLogin)
	r.Post("/logout", h.handleLogout)
}

type devLoginRequest struct {
	Shop     string `json:"shop" validate:"required,hostname"`
	Password string `json:"password" validate:"required"`
}

func (h *Handler) handleDevLogin(w http.ResponseWriter, r *http.Request) {
	var req devLoginRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Fail(w, http.StatusBadRequest, "malformed body", "invalid_input")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Fail(w, http.StatusBadRequest, err.Error(), "invalid_input")
		return
	}

	sess, err := h.service.DevLogin(r.Context(), req.Shop, req.Password)
	if err != nil {
		if errors.Is(err, ErrInvalidLogin) {
			httpx.Fail(w, http.StatusUnauthorized, "invalid login", "unauthorized")
			return
		}
		h.logger.Error("dev login", slog.Any("error", err))
		httpx.Fail(w, http.StatusInternalServerError, "internal error", "internal")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    sess.ID,
		Path:     "/",
		HttpOnly: true,
		Secure:   h.secure,
		SameSite: http.SameSiteLaxMode,
	})
	httpx.OK(w, map[string]any{"success": true, "shop": sess.Shop})
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	id := shared.IdentityFromContext(r.Context())
	if id == nil {
		httpx.Fail(w, http.StatusUnauthorized, "not authenticated", "unauthorized")
		return
	}
	if err := h.service.Logout(r.Context(), id.SessionID); err != nil {
		h.logger.Error("logout", slog.Any("error", err))
		httpx.Fail(w, http.StatusInternalServerError, "internal error", "internal")
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secure,
		SameSite: http.SameSiteLaxMode,
	})
	httpx.OK(w, map[string]any{"success": true})
}

// Middleware resolves the session cookie into a request identity. Requests
// without a usable session proceed unauthenticated; API handlers enforce
// 401 themselves.
func Middleware(service *Service, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(CookieName)
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}
			sess, err := service.Resolve(r.Context(), cookie.Value)
			if err != nil {
				if !errors.Is(err, ErrSessionNotFound) {
					logger.Error("resolve session", slog.Any("error", err))
				}
				next.ServeHTTP(w, r)
				return
			}
			ctx := shared.ContextWithIdentity(r.Context(), &shared.Identity{
				SessionID:   sess.ID,
				Shop:        sess.Shop,
				AccessToken: sess.AccessToken,
			})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireShop wraps an API handler, rejecting unauthenticated requests.
func RequireShop(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if shared.IdentityFromContext(r.Context()) == nil {
			httpx.Fail(w, http.StatusUnauthorized, "not authenticated", "unauthorized")
			return
		}
		next(w, r)
	}
}
