package providers

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestKindOfSeesWrappedProviderErrors(t *testing.T) {
	inner := NewError("courier", KindRateLimited, "slow down", nil)
	wrapped := fmt.Errorf("list shipments: %w", inner)

	assert.Equal(t, KindRateLimited, KindOf(wrapped))
	assert.True(t, IsKind(wrapped, KindRateLimited))
	assert.False(t, IsKind(wrapped, KindNetwork))
}

func TestKindOfPlainError(t *testing.T) {
	assert.Equal(t, Kind(""), KindOf(errors.New("boom")))
	assert.Equal(t, Kind(""), KindOf(nil))
}

func TestErrorStringAndUnwrap(t *testing.T) {
	cause := errors.New("dial tcp: refused")
	err := NewError("ads", KindNetwork, "insights fetch", cause)

	assert.Equal(t, "ads: network: insights fetch", err.Error())
	assert.ErrorIs(t, err, cause)

	bare := NewError("ads", KindAuthExpired, "", nil)
	assert.Equal(t, "ads: auth_expired", bare.Error())
}

func TestRetryAfterOf(t *testing.T) {
	err := NewError("orders", KindRateLimited, "throttled", nil)
	err.RetryAfter = 3 * time.Second

	assert.Equal(t, 3*time.Second, RetryAfterOf(fmt.Errorf("wrap: %w", err)))
	assert.Equal(t, time.Duration(0), RetryAfterOf(errors.New("plain")))
}
