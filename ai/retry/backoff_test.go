package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/BaSui01/artiflow/internal/netutil"
)

func TestDo_AlwaysThrowingAttemptsRetriesPlusOne(t *testing.T) {
	policy := Policy{Retries: 2, Delay: 10 * time.Millisecond, Backoff: 2}

	callCount := 0
	testErr := errors.New("dial tcp: connection refused")

	start := time.Now()
	_, err := Do(context.Background(), zap.NewNop(), policy, func() (*netutil.JSONResponse, error) {
		callCount++
		return nil, testErr
	})
	elapsed := time.Since(start)

	require.Error(t, err)
	assert.Equal(t, testErr, err)
	assert.Equal(t, 3, callCount)
	// Waits: delay*backoff^0 + delay*backoff^1 = 10ms + 20ms.
	assert.GreaterOrEqual(t, elapsed, 30*time.Millisecond)
	assert.Less(t, elapsed, 200*time.Millisecond)
}

func TestDo_ClientErrorReturnsAfterOneAttempt(t *testing.T) {
	policy := Policy{Retries: 2, Delay: 10 * time.Millisecond, Backoff: 2}

	callCount := 0
	resp, err := Do(context.Background(), zap.NewNop(), policy, func() (*netutil.JSONResponse, error) {
		callCount++
		return &netutil.JSONResponse{Status: 404}, nil
	})

	require.NoError(t, err)
	assert.Equal(t, 404, resp.Status)
	assert.Equal(t, 1, callCount, "4xx must not be retried")
}

func TestDo_ServerErrorRetriedThenReturned(t *testing.T) {
	policy := Policy{Retries: 2, Delay: time.Millisecond, Backoff: 1}

	callCount := 0
	resp, err := Do(context.Background(), zap.NewNop(), policy, func() (*netutil.JSONResponse, error) {
		callCount++
		return &netutil.JSONResponse{Status: 503}, nil
	})

	require.NoError(t, err)
	assert.Equal(t, 503, resp.Status)
	assert.Equal(t, 3, callCount)
}

func TestDo_RecoversAfterTransientFailure(t *testing.T) {
	policy := Policy{Retries: 2, Delay: time.Millisecond, Backoff: 1}

	callCount := 0
	resp, err := Do(context.Background(), zap.NewNop(), policy, func() (*netutil.JSONResponse, error) {
		callCount++
		if callCount < 2 {
			return nil, errors.New("request timeout")
		}
		return &netutil.JSONResponse{Status: 200, OK: true}, nil
	})

	require.NoError(t, err)
	assert.True(t, resp.OK)
	assert.Equal(t, 2, callCount)
}

func TestDo_ContextCancelStopsWaiting(t *testing.T) {
	policy := Policy{Retries: 5, Delay: time.Hour, Backoff: 2}

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	_, err := Do(ctx, zap.NewNop(), policy, func() (*netutil.JSONResponse, error) {
		return nil, errors.New("boom")
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}
