package types

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestError_Format(t *testing.T) {
	e := NewError(ErrRateLimited, "quota exceeded").WithHTTPStatus(429).WithProvider("gemini")
	assert.Equal(t, "[RATE_LIMITED] quota exceeded", e.Error())
	assert.Equal(t, 429, e.HTTPStatus)

	cause := errors.New("upstream said no")
	e = NewError(ErrNetwork, "request failed").WithCause(cause).WithRetryable(true)
	assert.Contains(t, e.Error(), "upstream said no")
	assert.True(t, e.Retryable)
	assert.Equal(t, cause, errors.Unwrap(e))
}

func TestGenerationStatus_Terminal(t *testing.T) {
	assert.False(t, StatusPending.Terminal())
	assert.False(t, StatusInProgress.Terminal())
	assert.True(t, StatusSucceeded.Terminal())
	assert.True(t, StatusFailed.Terminal())
}
