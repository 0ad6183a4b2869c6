package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteClassifiedErrorHidesNetworkDetail(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteClassifiedError(rec, errors.New("dial tcp4: connect: connection refused"), nil)

	assert.Equal(t, http.StatusBadGateway, rec.Code)
	resp := decodeResponse(t, rec)
	require.NotNil(t, resp.Error)
	assert.NotContains(t, resp.Error.Message, "dial tcp4")
	assert.Contains(t, resp.Error.Message, "Could not reach the AI service")
	assert.Equal(t, "NETWORK", resp.Error.Code)
}

func TestWriteClassifiedErrorPassesConfigDetail(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteClassifiedError(rec, errors.New("Meshy API is not configured: you must provide an API key in the admin panel"), nil)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	resp := decodeResponse(t, rec)
	assert.Contains(t, resp.Error.Message, "admin panel")
	assert.Equal(t, "CONFIGURATION", resp.Error.Code)
}

func TestUserFromContext(t *testing.T) {
	ctx := context.Background()
	_, ok := UserFromContext(ctx)
	assert.False(t, ok)

	id, ok := UserFromContext(WithUserID(ctx, "user-1"))
	assert.True(t, ok)
	assert.Equal(t, "user-1", id)

	_, ok = UserFromContext(WithUserID(ctx, ""))
	assert.False(t, ok)
}

func TestIdentityMiddleware(t *testing.T) {
	var seen string
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = UserFromContext(r.Context())
	})

	handler := Identity(HeaderIdentity("X-User-ID"))(inner)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-User-ID", "user-42")
	handler.ServeHTTP(httptest.NewRecorder(), req)

	assert.Equal(t, "user-42", seen)
}
