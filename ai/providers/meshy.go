package providers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/BaSui01/artiflow/ai"
	"github.com/BaSui01/artiflow/ai/retry"
	"github.com/BaSui01/artiflow/internal/netutil"
	"github.com/BaSui01/artiflow/types"
)

// ImageTaskPrefix marks task identifiers that came from the image-to-3d
// sub-endpoint. Text and image jobs live in unrelated vendor namespaces,
// so CheckStatus needs the marker to pick the right endpoint and version.
const ImageTaskPrefix = "img:"

// MeshyProvider 使用 Meshy API 执行 3D 模型生成。
// 文本任务走 v2/text-to-3d，图像任务走 v1/image-to-3d。
type MeshyProvider struct {
	cfg    Config
	client *http.Client
	logger *zap.Logger
}

// NewMeshyProvider creates a Meshy 3D generation adapter.
func NewMeshyProvider(cfg Config, logger *zap.Logger) *MeshyProvider {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.meshy.ai"
	}
	if cfg.ArtStyle == "" {
		cfg.ArtStyle = "realistic"
	}
	if cfg.NegativePrompt == "" {
		cfg.NegativePrompt = "low quality, blurry, distorted"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = netutil.JSONTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MeshyProvider{
		cfg:    cfg,
		client: netutil.Client(cfg.Timeout),
		logger: logger,
	}
}

func (p *MeshyProvider) Name() string { return "meshy" }

type meshyTextTo3DRequest struct {
	Mode           string `json:"mode"`
	Prompt         string `json:"prompt"`
	ArtStyle       string `json:"art_style"`
	NegativePrompt string `json:"negative_prompt"`
}

type meshyImageTo3DRequest struct {
	ImageURL  string `json:"image_url"`
	EnablePBR bool   `json:"enable_pbr"`
}

type meshyTaskResponse struct {
	Result    string `json:"result"`
	Status    string `json:"status"`
	Progress  int    `json:"progress"`
	ModelURLs struct {
		GLB string `json:"glb"`
		FBX string `json:"fbx"`
	} `json:"model_urls"`
	ThumbnailURL string          `json:"thumbnail_url"`
	Error        json.RawMessage `json:"error,omitempty"`
	Message      string          `json:"message,omitempty"`
}

// meshyErrorMessage: Meshy 的错误信封是顶层 error（可能为裸字符串）
// 或顶层 message。
func meshyErrorMessage(out *meshyTaskResponse, status int) string {
	if len(out.Error) > 0 {
		var s string
		if err := json.Unmarshal(out.Error, &s); err == nil && s != "" {
			return s
		}
		var obj struct {
			Message string `json:"message"`
		}
		if err := json.Unmarshal(out.Error, &obj); err == nil && obj.Message != "" {
			return obj.Message
		}
	}
	if out.Message != "" {
		return out.Message
	}
	return fmt.Sprintf("Meshy API error: %d", status)
}

func (p *MeshyProvider) headers() map[string]string {
	return map[string]string{
		"Content-Type":  "application/json",
		"Authorization": "Bearer " + p.cfg.APIKey,
	}
}

func (p *MeshyProvider) call(ctx context.Context, method, endpoint string, payload []byte) (*meshyTaskResponse, error) {
	resp, err := retry.Do(ctx, p.logger, p.cfg.policy(), func() (*netutil.JSONResponse, error) {
		return netutil.DoJSON(ctx, p.client, method, endpoint, p.headers(), payload)
	})
	if err != nil {
		return nil, err
	}

	var out meshyTaskResponse
	if derr := resp.Decode(&out); derr != nil {
		if !resp.OK {
			return nil, fmt.Errorf("Meshy API error: %d", resp.Status)
		}
		return nil, derr
	}
	if !resp.OK {
		return nil, errors.New(meshyErrorMessage(&out, resp.Status))
	}
	return &out, nil
}

// Generate 提交 text-to-3d 任务，返回厂商任务标识（不加前缀）。
func (p *MeshyProvider) Generate(ctx context.Context, prompt, promptTemplate string) (*types.GenerationResult, error) {
	payload, _ := json.Marshal(meshyTextTo3DRequest{
		Mode:           "preview",
		Prompt:         ai.RenderTemplate(promptTemplate, prompt),
		ArtStyle:       p.cfg.ArtStyle,
		NegativePrompt: p.cfg.NegativePrompt,
	})
	endpoint := strings.TrimRight(p.cfg.BaseURL, "/") + "/v2/text-to-3d"

	out, err := p.call(ctx, http.MethodPost, endpoint, payload)
	if err != nil {
		return nil, err
	}
	return &types.GenerationResult{TaskID: out.Result}, nil
}

// GenerateFromImage 提交 image-to-3d 任务。返回的任务标识加上
// ImageTaskPrefix，之后的状态查询靠它区分子端点。
func (p *MeshyProvider) GenerateFromImage(ctx context.Context, imageURL string) (*types.GenerationResult, error) {
	payload, _ := json.Marshal(meshyImageTo3DRequest{
		ImageURL:  imageURL,
		EnablePBR: true,
	})
	endpoint := strings.TrimRight(p.cfg.BaseURL, "/") + "/v1/image-to-3d"

	out, err := p.call(ctx, http.MethodPost, endpoint, payload)
	if err != nil {
		return nil, err
	}
	return &types.GenerationResult{TaskID: ImageTaskPrefix + out.Result}, nil
}

// CheckStatus 去掉标记前缀还原厂商标识，按来源选择子端点，
// SUCCEEDED 时把厂商字段名映射进统一的 modelUrls 形状。
func (p *MeshyProvider) CheckStatus(ctx context.Context, taskID string) (*types.StatusResult, error) {
	realID := taskID
	version, kind := "v2", "text-to-3d"
	if strings.HasPrefix(taskID, ImageTaskPrefix) {
		realID = strings.TrimPrefix(taskID, ImageTaskPrefix)
		version, kind = "v1", "image-to-3d"
	}

	endpoint := fmt.Sprintf("%s/%s/%s/%s", strings.TrimRight(p.cfg.BaseURL, "/"), version, kind, realID)

	out, err := p.call(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}

	result := &types.StatusResult{
		Status:   types.GenerationStatus(out.Status),
		Progress: out.Progress,
	}
	if result.Status == types.StatusSucceeded {
		result.ModelURLs = &types.ModelURLs{
			GLB:       out.ModelURLs.GLB,
			FBX:       out.ModelURLs.FBX,
			Thumbnail: out.ThumbnailURL,
		}
	}
	return result, nil
}
