package httpx

import (
	"net/http"

	"github.com/tijara-apps/tijara/internal/providers"
)

// RespondProviderError maps a normalized provider failure onto the API
// envelope: 400 invalid input, 401 expired auth, 404 missing, 429 upstream
// rate limit, 502 upstream failure, 500 otherwise.
func RespondProviderError(w http.ResponseWriter, err error) {
	kind := providers.KindOf(err)
	switch kind {
	case providers.KindInvalidInput:
		Fail(w, http.StatusBadRequest, err.Error(), string(kind))
	case providers.KindAuthExpired:
		Fail(w, http.StatusUnauthorized, err.Error(), string(kind))
	case providers.KindNotFound:
		Fail(w, http.StatusNotFound, err.Error(), string(kind))
	case providers.KindRateLimited:
		Fail(w, http.StatusTooManyRequests, err.Error(), string(kind))
	case providers.KindBadResponse, providers.KindNetwork:
		Fail(w, http.StatusBadGateway, err.Error(), string(kind))
	default:
		Fail(w, http.StatusInternalServerError, "internal error", "internal")
	}
}
