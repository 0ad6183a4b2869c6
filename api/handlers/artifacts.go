package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/BaSui01/artiflow/ai"
	"github.com/BaSui01/artiflow/internal/assetcache"
	"github.com/BaSui01/artiflow/internal/store"
	"github.com/BaSui01/artiflow/types"
)

// ProviderResolver 按当前数据库配置装配能力适配器。
type ProviderResolver interface {
	ResolveAnalyzer(ctx context.Context) (ai.Analyzer, error)
	ResolveRestorer(ctx context.Context) (ai.Restorer, error)
	ResolveModelGenerator(ctx context.Context) (ai.ModelGenerator, error)
	ResolveTemplate(ctx context.Context, name string) (string, error)
}

// ArtifactStore 是处理器需要的最小存储切面。
type ArtifactStore interface {
	ArtifactByID(ctx context.Context, id, userID string) (*store.Artifact, error)
	UpdateArtifact(ctx context.Context, id string, fields map[string]any) error
}

// ArtifactHandler 驱动单个文物的 AI 流水线：分析 → 修复 → 3D 生成。
type ArtifactHandler struct {
	store    ArtifactStore
	resolver ProviderResolver
	cache    *assetcache.Cache
	poller   ai.Poller
	logger   *zap.Logger

	// watchTimeout bounds the server-side completion watcher. Zero
	// disables the watcher; clients then drive completion via GET.
	watchTimeout time.Duration
}

func NewArtifactHandler(s ArtifactStore, r ProviderResolver, cache *assetcache.Cache, poller ai.Poller, watchTimeout time.Duration, logger *zap.Logger) *ArtifactHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ArtifactHandler{
		store:        s,
		resolver:     r,
		cache:        cache,
		poller:       poller,
		logger:       logger,
		watchTimeout: watchTimeout,
	}
}

func (h *ArtifactHandler) loadArtifact(w http.ResponseWriter, r *http.Request) (*store.Artifact, string, bool) {
	userID, ok := RequireUser(w, r)
	if !ok {
		return nil, "", false
	}
	artifact, err := h.store.ArtifactByID(r.Context(), r.PathValue("id"), userID)
	if errors.Is(err, store.ErrNotFound) {
		WriteErrorMessage(w, http.StatusNotFound, "artifact not found")
		return nil, "", false
	}
	if err != nil {
		WriteClassifiedError(w, err, h.logger)
		return nil, "", false
	}
	return artifact, userID, true
}

// =============================================================================
// 🔍 分析
// =============================================================================

type analyzeRequest struct {
	ImageData string `json:"imageData"` // data URL，必填
	ImageURL  string `json:"imageUrl"`  // 原图的可公开访问地址，供后续修复使用
}

// HandleAnalyze 处理 POST /api/artifacts/{id}/analyze。
func (h *ArtifactHandler) HandleAnalyze(w http.ResponseWriter, r *http.Request) {
	artifact, _, ok := h.loadArtifact(w, r)
	if !ok {
		return
	}

	var req analyzeRequest
	if !DecodeJSONBody(w, r, &req) {
		return
	}
	if _, _, err := ai.ParseDataURL(req.ImageData); err != nil {
		WriteErrorMessage(w, http.StatusBadRequest, err.Error())
		return
	}

	analyzer, err := h.resolver.ResolveAnalyzer(r.Context())
	if err != nil {
		WriteClassifiedError(w, err, h.logger)
		return
	}
	template, err := h.resolver.ResolveTemplate(r.Context(), "analysis")
	if err != nil {
		WriteClassifiedError(w, err, h.logger)
		return
	}

	result, err := analyzer.Analyze(r.Context(), req.ImageData, template)
	if err != nil {
		WriteClassifiedError(w, err, h.logger)
		return
	}

	resultJSON, _ := json.Marshal(result)
	fields := map[string]any{"analysis_result": string(resultJSON)}
	if req.ImageURL != "" {
		fields["original_image_url"] = req.ImageURL
	}
	if err := h.store.UpdateArtifact(r.Context(), artifact.ID, fields); err != nil {
		WriteClassifiedError(w, err, h.logger)
		return
	}

	h.logger.Info("artifact analyzed",
		zap.String("artifact", artifact.ID),
		zap.String("provider", analyzer.Name()),
	)
	WriteSuccess(w, result)
}

// =============================================================================
// 🎨 修复
// =============================================================================

type restoreRequest struct {
	Prompt string `json:"prompt"`
}

// HandleRestore 处理 POST /api/artifacts/{id}/restore。
// 修复必须基于原始照片；没有照片的文物先走分析接口。
func (h *ArtifactHandler) HandleRestore(w http.ResponseWriter, r *http.Request) {
	artifact, _, ok := h.loadArtifact(w, r)
	if !ok {
		return
	}
	if artifact.OriginalImageURL == "" {
		WriteErrorMessage(w, http.StatusNotFound, "original image not found: analyze the artifact with an image URL first")
		return
	}

	var req restoreRequest
	if !DecodeJSONBody(w, r, &req) {
		return
	}
	prompt := req.Prompt
	if prompt == "" {
		prompt = restorationPromptFromAnalysis(artifact)
	}

	restorer, err := h.resolver.ResolveRestorer(r.Context())
	if err != nil {
		WriteClassifiedError(w, err, h.logger)
		return
	}
	template, err := h.resolver.ResolveTemplate(r.Context(), "restoration")
	if err != nil {
		WriteClassifiedError(w, err, h.logger)
		return
	}

	result, err := restorer.Restore(r.Context(), prompt, template, artifact.OriginalImageURL)
	if err != nil {
		WriteClassifiedError(w, err, h.logger)
		return
	}

	if err := h.store.UpdateArtifact(r.Context(), artifact.ID, map[string]any{
		"restored_image_url": result.ImageURL,
	}); err != nil {
		WriteClassifiedError(w, err, h.logger)
		return
	}

	h.logger.Info("artifact restored",
		zap.String("artifact", artifact.ID),
		zap.String("provider", restorer.Name()),
	)
	WriteSuccess(w, result)
}

// restorationPromptFromAnalysis 在请求未给提示词时，从已存的分析结果
// 推一个描述出来，兜底用文物名称。
func restorationPromptFromAnalysis(artifact *store.Artifact) string {
	if artifact.AnalysisResult != "" {
		var analysis types.AnalysisResult
		if err := json.Unmarshal([]byte(artifact.AnalysisResult), &analysis); err == nil {
			if analysis.Description != "" {
				return analysis.Description
			}
			if analysis.Type != "" {
				return analysis.Type
			}
		}
	}
	return artifact.Name
}

// =============================================================================
// 🗿 3D 生成
// =============================================================================

type generateRequest struct {
	Prompt   string `json:"prompt"`
	ImageURL string `json:"imageUrl"`
}

type generateResponse struct {
	TaskID string                 `json:"taskId"`
	Status types.GenerationStatus `json:"status"`
}

// HandleGenerate 处理 POST /api/artifacts/{id}/generate-3d。
// 给了 imageUrl 走图生 3D，否则用提示词模板走文生 3D。
func (h *ArtifactHandler) HandleGenerate(w http.ResponseWriter, r *http.Request) {
	artifact, _, ok := h.loadArtifact(w, r)
	if !ok {
		return
	}

	var req generateRequest
	if !DecodeJSONBody(w, r, &req) {
		return
	}
	if req.Prompt == "" && req.ImageURL == "" {
		WriteErrorMessage(w, http.StatusBadRequest, "either prompt or imageUrl is required")
		return
	}

	generator, err := h.resolver.ResolveModelGenerator(r.Context())
	if err != nil {
		WriteClassifiedError(w, err, h.logger)
		return
	}

	var result *types.GenerationResult
	if req.ImageURL != "" {
		result, err = generator.GenerateFromImage(r.Context(), req.ImageURL)
	} else {
		var template string
		template, err = h.resolver.ResolveTemplate(r.Context(), "3d_generation")
		if err != nil {
			WriteClassifiedError(w, err, h.logger)
			return
		}
		result, err = generator.Generate(r.Context(), req.Prompt, template)
	}
	if err != nil {
		WriteClassifiedError(w, err, h.logger)
		return
	}

	if err := h.store.UpdateArtifact(r.Context(), artifact.ID, map[string]any{
		"meshy_task_id": result.TaskID,
		"meshy_status":  string(types.StatusPending),
	}); err != nil {
		WriteClassifiedError(w, err, h.logger)
		return
	}

	if h.watchTimeout > 0 {
		go h.watchGeneration(artifact.ID, result.TaskID, generator)
	}

	h.logger.Info("3d generation started",
		zap.String("artifact", artifact.ID),
		zap.String("task", result.TaskID),
	)
	WriteSuccess(w, generateResponse{TaskID: result.TaskID, Status: types.StatusPending})
}

// watchGeneration 在服务端后台等待任务完成并落盘资源，
// 客户端即使从不轮询，模型文件也会被缓存下来。
func (h *ArtifactHandler) watchGeneration(artifactID, taskID string, generator ai.ModelGenerator) {
	ctx, cancel := context.WithTimeout(context.Background(), h.watchTimeout)
	defer cancel()

	result, err := h.poller.Run(ctx, func(ctx context.Context) (*types.StatusResult, error) {
		return generator.CheckStatus(ctx, taskID)
	})
	if err != nil {
		// 轮询超时或查询失败都不改已存状态，客户端 GET 仍可实时查询。
		h.logger.Warn("generation watcher stopped",
			zap.String("artifact", artifactID),
			zap.String("task", taskID),
			zap.Error(err),
		)
		return
	}

	if err := h.persistGenerationOutcome(ctx, artifactID, result); err != nil {
		h.logger.Warn("failed to persist generation outcome",
			zap.String("artifact", artifactID),
			zap.Error(err),
		)
	}
}

// HandleGenerationStatus 处理 GET /api/artifacts/{id}/generate-3d。
// 已落库的成功结果直接返回，否则实时查询厂商并在终态时落库。
func (h *ArtifactHandler) HandleGenerationStatus(w http.ResponseWriter, r *http.Request) {
	artifact, _, ok := h.loadArtifact(w, r)
	if !ok {
		return
	}
	if artifact.MeshyTaskID == "" {
		WriteErrorMessage(w, http.StatusNotFound, "no 3D generation task for this artifact")
		return
	}

	if artifact.MeshyStatus == string(types.StatusSucceeded) && artifact.ModelURLs != "" {
		var urls types.ModelURLs
		if err := json.Unmarshal([]byte(artifact.ModelURLs), &urls); err == nil {
			WriteSuccess(w, &types.StatusResult{
				Status:    types.StatusSucceeded,
				ModelURLs: &urls,
				Progress:  100,
			})
			return
		}
	}

	generator, err := h.resolver.ResolveModelGenerator(r.Context())
	if err != nil {
		WriteClassifiedError(w, err, h.logger)
		return
	}
	result, err := generator.CheckStatus(r.Context(), artifact.MeshyTaskID)
	if err != nil {
		WriteClassifiedError(w, err, h.logger)
		return
	}

	if result.Status.Terminal() {
		if err := h.persistGenerationOutcome(r.Context(), artifact.ID, result); err != nil {
			WriteClassifiedError(w, err, h.logger)
			return
		}
	}
	WriteSuccess(w, result)
}

// persistGenerationOutcome 把终态写回数据库；成功时先把厂商资源镜像
// 到本地，响应里返回稳定路径。
func (h *ArtifactHandler) persistGenerationOutcome(ctx context.Context, artifactID string, result *types.StatusResult) error {
	fields := map[string]any{"meshy_status": string(result.Status)}
	if result.Status == types.StatusSucceeded && result.ModelURLs != nil {
		result.ModelURLs = h.cache.FetchModelURLs(ctx, artifactID, result.ModelURLs)
		urlsJSON, _ := json.Marshal(result.ModelURLs)
		fields["model_urls"] = string(urlsJSON)
	}
	return h.store.UpdateArtifact(ctx, artifactID, fields)
}
