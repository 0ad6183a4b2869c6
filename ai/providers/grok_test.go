package providers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BaSui01/artiflow/ai"
)

func TestGrokAnalyzeExtractsJSONFromChatter(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/chat/completions", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{{
				"message": map[string]any{
					"content": "Here is my analysis:\n```json\n{\"type\":\"Oil lamp\",\"material\":\"Bronze\"}\n```\nHope it helps!",
				},
			}},
		})
	}))
	defer srv.Close()

	p := NewGrokProvider(testConfig(srv.URL), nil)
	result, err := p.Analyze(context.Background(), testImageData, "prompt")
	require.NoError(t, err)

	assert.Equal(t, "Oil lamp", result.Type)
	assert.Equal(t, "Bronze", result.Material)
}

func TestGrokAnalyzeNoJSONInReply(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{{
				"message": map[string]any{"content": "I cannot analyze this image."},
			}},
		})
	}))
	defer srv.Close()

	p := NewGrokProvider(testConfig(srv.URL), nil)
	_, err := p.Analyze(context.Background(), testImageData, "prompt")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse Grok response")
}

func TestGrokAnalyzeRejectsBadImageBeforeNetwork(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	defer srv.Close()

	p := NewGrokProvider(testConfig(srv.URL), nil)
	_, err := p.Analyze(context.Background(), "http://example.com/img.jpg", "prompt")

	assert.ErrorIs(t, err, ai.ErrInvalidImageData)
	assert.Zero(t, calls.Load())
}

func TestGrokRestoreRendersTemplate(t *testing.T) {
	var gotRequest grokImageRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/images/generations", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotRequest))

		json.NewEncoder(w).Encode(map[string]any{
			"data": []map[string]any{{"url": "https://imgen.x.ai/restored.png"}},
		})
	}))
	defer srv.Close()

	p := NewGrokProvider(testConfig(srv.URL), nil)
	result, err := p.Restore(context.Background(), "a chipped bowl", "Restore this artifact: {{prompt}}", "")
	require.NoError(t, err)

	assert.Equal(t, "https://imgen.x.ai/restored.png", result.ImageURL)
	assert.Equal(t, "grok-2-image", gotRequest.Model)
	assert.Equal(t, "Restore this artifact: a chipped bowl", gotRequest.Prompt)
	assert.Equal(t, 1, gotRequest.N)
}

func TestGrokRestoreNormalizesBase64Payload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"data": []map[string]any{{"b64_json": "aW1hZ2U="}},
		})
	}))
	defer srv.Close()

	p := NewGrokProvider(testConfig(srv.URL), nil)
	result, err := p.Restore(context.Background(), "prompt", "{{prompt}}", "")
	require.NoError(t, err)

	assert.Equal(t, "data:image/png;base64,aW1hZ2U=", result.ImageURL)
}

func TestGrokErrorEnvelopeWithTopLevelCode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		json.NewEncoder(w).Encode(map[string]any{"code": "The team has insufficient credits"})
	}))
	defer srv.Close()

	p := NewGrokProvider(testConfig(srv.URL), nil)
	_, err := p.Analyze(context.Background(), testImageData, "prompt")

	require.Error(t, err)
	assert.Equal(t, "The team has insufficient credits", err.Error())
}
