package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BaSui01/artiflow/ai"
	"github.com/BaSui01/artiflow/internal/assetcache"
	"github.com/BaSui01/artiflow/internal/store"
	"github.com/BaSui01/artiflow/types"
)

// --- fakes ---

type fakeStore struct {
	artifacts map[string]*store.Artifact
	updates   []map[string]any
}

func (f *fakeStore) ArtifactByID(_ context.Context, id, _ string) (*store.Artifact, error) {
	if a, ok := f.artifacts[id]; ok {
		return a, nil
	}
	return nil, store.ErrNotFound
}

func (f *fakeStore) UpdateArtifact(_ context.Context, id string, fields map[string]any) error {
	f.updates = append(f.updates, fields)
	return nil
}

type fakeAnalyzer struct {
	result *types.AnalysisResult
	err    error
}

func (f *fakeAnalyzer) Name() string { return "fake" }
func (f *fakeAnalyzer) Analyze(context.Context, string, string) (*types.AnalysisResult, error) {
	return f.result, f.err
}

type fakeRestorer struct {
	gotOriginalURL string
	result         *types.RestorationResult
}

func (f *fakeRestorer) Name() string { return "fake" }
func (f *fakeRestorer) Restore(_ context.Context, _, _, originalImageURL string) (*types.RestorationResult, error) {
	f.gotOriginalURL = originalImageURL
	return f.result, nil
}

type fakeGenerator struct {
	textCalls  int
	imageCalls int
	status     *types.StatusResult
}

func (f *fakeGenerator) Name() string { return "meshy" }
func (f *fakeGenerator) Generate(context.Context, string, string) (*types.GenerationResult, error) {
	f.textCalls++
	return &types.GenerationResult{TaskID: "task-1"}, nil
}
func (f *fakeGenerator) GenerateFromImage(context.Context, string) (*types.GenerationResult, error) {
	f.imageCalls++
	return &types.GenerationResult{TaskID: "img:task-2"}, nil
}
func (f *fakeGenerator) CheckStatus(context.Context, string) (*types.StatusResult, error) {
	return f.status, nil
}

type fakeResolver struct {
	analyzer    ai.Analyzer
	restorer    ai.Restorer
	generator   ai.ModelGenerator
	resolveErr  error
	templateErr error
}

func (f *fakeResolver) ResolveAnalyzer(context.Context) (ai.Analyzer, error) {
	return f.analyzer, f.resolveErr
}
func (f *fakeResolver) ResolveRestorer(context.Context) (ai.Restorer, error) {
	return f.restorer, f.resolveErr
}
func (f *fakeResolver) ResolveModelGenerator(context.Context) (ai.ModelGenerator, error) {
	return f.generator, f.resolveErr
}
func (f *fakeResolver) ResolveTemplate(context.Context, string) (string, error) {
	return "Template: {{prompt}}", f.templateErr
}

// --- helpers ---

func newArtifactHandler(t *testing.T, s ArtifactStore, r ProviderResolver) *ArtifactHandler {
	t.Helper()
	cache := assetcache.New(t.TempDir(), "/api/models", nil)
	return NewArtifactHandler(s, r, cache, ai.Poller{}, 0, nil)
}

func doRequest(h http.HandlerFunc, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req = req.WithContext(WithUserID(req.Context(), "user-1"))
	req.SetPathValue("id", "artifact-1")
	rec := httptest.NewRecorder()
	h(rec, req)
	return rec
}

func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder) Response {
	t.Helper()
	var resp Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

// --- analyze ---

func TestHandleAnalyze(t *testing.T) {
	s := &fakeStore{artifacts: map[string]*store.Artifact{
		"artifact-1": {ID: "artifact-1", Name: "Amphora"},
	}}
	r := &fakeResolver{analyzer: &fakeAnalyzer{result: &types.AnalysisResult{Type: "Amphora"}}}
	h := newArtifactHandler(t, s, r)

	rec := doRequest(h.HandleAnalyze, http.MethodPost, "/api/artifacts/artifact-1/analyze",
		`{"imageData":"data:image/jpeg;base64,aGVsbG8=","imageUrl":"https://cdn/orig.jpg"}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decodeResponse(t, rec).Success)

	require.Len(t, s.updates, 1)
	assert.Contains(t, s.updates[0], "analysis_result")
	assert.Equal(t, "https://cdn/orig.jpg", s.updates[0]["original_image_url"])
}

func TestHandleAnalyzeRejectsBadImage(t *testing.T) {
	s := &fakeStore{artifacts: map[string]*store.Artifact{"artifact-1": {ID: "artifact-1"}}}
	h := newArtifactHandler(t, s, &fakeResolver{})

	rec := doRequest(h.HandleAnalyze, http.MethodPost, "/api/artifacts/artifact-1/analyze",
		`{"imageData":"nope"}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, s.updates)
}

func TestHandleAnalyzeNotConfigured(t *testing.T) {
	s := &fakeStore{artifacts: map[string]*store.Artifact{"artifact-1": {ID: "artifact-1"}}}
	r := &fakeResolver{resolveErr: errNotConfigured{}}
	h := newArtifactHandler(t, s, r)

	rec := doRequest(h.HandleAnalyze, http.MethodPost, "/api/artifacts/artifact-1/analyze",
		`{"imageData":"data:image/jpeg;base64,aGVsbG8="}`)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	resp := decodeResponse(t, rec)
	require.NotNil(t, resp.Error)
	assert.Contains(t, resp.Error.Message, "not configured")
}

type errNotConfigured struct{}

func (errNotConfigured) Error() string { return "no analysis service is configured" }

func TestHandleAnalyzeUnknownArtifact(t *testing.T) {
	h := newArtifactHandler(t, &fakeStore{artifacts: map[string]*store.Artifact{}}, &fakeResolver{})

	rec := doRequest(h.HandleAnalyze, http.MethodPost, "/api/artifacts/artifact-1/analyze",
		`{"imageData":"data:image/jpeg;base64,aGVsbG8="}`)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleAnalyzeUnauthenticated(t *testing.T) {
	h := newArtifactHandler(t, &fakeStore{}, &fakeResolver{})

	req := httptest.NewRequest(http.MethodPost, "/api/artifacts/artifact-1/analyze", strings.NewReader("{}"))
	rec := httptest.NewRecorder()
	h.HandleAnalyze(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

// --- restore ---

func TestHandleRestoreRequiresOriginalImage(t *testing.T) {
	s := &fakeStore{artifacts: map[string]*store.Artifact{
		"artifact-1": {ID: "artifact-1", Name: "Amphora"},
	}}
	h := newArtifactHandler(t, s, &fakeResolver{})

	rec := doRequest(h.HandleRestore, http.MethodPost, "/api/artifacts/artifact-1/restore",
		`{"prompt":"a vase"}`)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, decodeResponse(t, rec).Error.Message, "original image not found")
}

func TestHandleRestorePassesOriginalImage(t *testing.T) {
	s := &fakeStore{artifacts: map[string]*store.Artifact{
		"artifact-1": {ID: "artifact-1", OriginalImageURL: "https://cdn/orig.jpg"},
	}}
	restorer := &fakeRestorer{result: &types.RestorationResult{ImageURL: "https://cdn/restored.png"}}
	h := newArtifactHandler(t, s, &fakeResolver{restorer: restorer})

	rec := doRequest(h.HandleRestore, http.MethodPost, "/api/artifacts/artifact-1/restore",
		`{"prompt":"a vase"}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "https://cdn/orig.jpg", restorer.gotOriginalURL)
	require.Len(t, s.updates, 1)
	assert.Equal(t, "https://cdn/restored.png", s.updates[0]["restored_image_url"])
}

// --- generate-3d ---

func TestHandleGenerateTextPath(t *testing.T) {
	s := &fakeStore{artifacts: map[string]*store.Artifact{"artifact-1": {ID: "artifact-1"}}}
	gen := &fakeGenerator{}
	h := newArtifactHandler(t, s, &fakeResolver{generator: gen})

	rec := doRequest(h.HandleGenerate, http.MethodPost, "/api/artifacts/artifact-1/generate-3d",
		`{"prompt":"ancient amphora"}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, gen.textCalls)
	assert.Zero(t, gen.imageCalls)
	require.Len(t, s.updates, 1)
	assert.Equal(t, "task-1", s.updates[0]["meshy_task_id"])
	assert.Equal(t, "PENDING", s.updates[0]["meshy_status"])
}

func TestHandleGenerateImagePath(t *testing.T) {
	s := &fakeStore{artifacts: map[string]*store.Artifact{"artifact-1": {ID: "artifact-1"}}}
	gen := &fakeGenerator{}
	h := newArtifactHandler(t, s, &fakeResolver{generator: gen})

	rec := doRequest(h.HandleGenerate, http.MethodPost, "/api/artifacts/artifact-1/generate-3d",
		`{"imageUrl":"https://cdn/restored.png"}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, gen.imageCalls)
	assert.Zero(t, gen.textCalls)
	require.Len(t, s.updates, 1)
	assert.Equal(t, "img:task-2", s.updates[0]["meshy_task_id"])
}

func TestHandleGenerateRequiresInput(t *testing.T) {
	s := &fakeStore{artifacts: map[string]*store.Artifact{"artifact-1": {ID: "artifact-1"}}}
	h := newArtifactHandler(t, s, &fakeResolver{generator: &fakeGenerator{}})

	rec := doRequest(h.HandleGenerate, http.MethodPost, "/api/artifacts/artifact-1/generate-3d", `{}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// --- generation status ---

func TestHandleGenerationStatusFromDatabase(t *testing.T) {
	urls, _ := json.Marshal(types.ModelURLs{GLB: "/api/models/artifact-1/model.glb"})
	s := &fakeStore{artifacts: map[string]*store.Artifact{
		"artifact-1": {
			ID:          "artifact-1",
			MeshyTaskID: "task-1",
			MeshyStatus: "SUCCEEDED",
			ModelURLs:   string(urls),
		},
	}}
	h := newArtifactHandler(t, s, &fakeResolver{})

	rec := doRequest(h.HandleGenerationStatus, http.MethodGet, "/api/artifacts/artifact-1/generate-3d", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, s.updates, "a stored success must not hit the vendor again")
}

func TestHandleGenerationStatusPersistsTerminal(t *testing.T) {
	s := &fakeStore{artifacts: map[string]*store.Artifact{
		"artifact-1": {ID: "artifact-1", MeshyTaskID: "task-1", MeshyStatus: "IN_PROGRESS"},
	}}
	gen := &fakeGenerator{status: &types.StatusResult{Status: types.StatusFailed}}
	h := newArtifactHandler(t, s, &fakeResolver{generator: gen})

	rec := doRequest(h.HandleGenerationStatus, http.MethodGet, "/api/artifacts/artifact-1/generate-3d", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, s.updates, 1)
	assert.Equal(t, "FAILED", s.updates[0]["meshy_status"])
}

func TestHandleGenerationStatusNoTask(t *testing.T) {
	s := &fakeStore{artifacts: map[string]*store.Artifact{"artifact-1": {ID: "artifact-1"}}}
	h := newArtifactHandler(t, s, &fakeResolver{})

	rec := doRequest(h.HandleGenerationStatus, http.MethodGet, "/api/artifacts/artifact-1/generate-3d", "")

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestWatcherPersistsOutcome(t *testing.T) {
	s := &fakeStore{artifacts: map[string]*store.Artifact{"artifact-1": {ID: "artifact-1"}}}
	gen := &fakeGenerator{status: &types.StatusResult{Status: types.StatusFailed}}

	cache := assetcache.New(t.TempDir(), "/api/models", nil)
	h := NewArtifactHandler(s, &fakeResolver{generator: gen}, cache,
		ai.Poller{Interval: time.Millisecond, MaxAttempts: 5}, time.Second, nil)

	h.watchGeneration("artifact-1", "task-1", gen)

	require.Len(t, s.updates, 1)
	assert.Equal(t, "FAILED", s.updates[0]["meshy_status"])
}
