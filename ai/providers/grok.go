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

// GrokProvider 使用 grok-2-vision 执行文物分析，grok-2-image 执行
// 单阶段图像修复。
type GrokProvider struct {
	cfg    Config
	client *http.Client
	logger *zap.Logger
}

// NewGrokProvider creates an xAI Grok adapter.
func NewGrokProvider(cfg Config, logger *zap.Logger) *GrokProvider {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.x.ai"
	}
	if cfg.Model == "" {
		cfg.Model = "grok-2-vision-latest"
	}
	if cfg.ImageModel == "" {
		cfg.ImageModel = "grok-2-image"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = netutil.JSONTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GrokProvider{
		cfg:    cfg,
		client: netutil.Client(cfg.Timeout),
		logger: logger,
	}
}

func (p *GrokProvider) Name() string { return "grok" }

type grokChatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

type grokChatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error json.RawMessage `json:"error,omitempty"`
	Code  string          `json:"code,omitempty"`
}

type grokImageRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	N      int    `json:"n"`
}

type grokImageResponse struct {
	Data []struct {
		URL     string `json:"url,omitempty"`
		B64JSON string `json:"b64_json,omitempty"`
	} `json:"data"`
	Error json.RawMessage `json:"error,omitempty"`
	Code  string          `json:"code,omitempty"`
}

// grokErrorMessage: x.ai 的错误信封可能是裸字符串、{message} 对象，
// 或只有顶层 code 字段。
func grokErrorMessage(raw json.RawMessage, code string, status int) string {
	if len(raw) > 0 {
		var s string
		if err := json.Unmarshal(raw, &s); err == nil && s != "" {
			return s
		}
		var obj struct {
			Message string `json:"message"`
		}
		if err := json.Unmarshal(raw, &obj); err == nil && obj.Message != "" {
			return obj.Message
		}
	}
	if code != "" {
		return code
	}
	return fmt.Sprintf("Grok API error: %d", status)
}

// Analyze 调用 x.ai chat/completions。Grok 没有原生 JSON 输出模式，
// 从自由文本中提取首个平衡的 {...} 作为解析回退。
func (p *GrokProvider) Analyze(ctx context.Context, imageData, promptTemplate string) (*types.AnalysisResult, error) {
	if _, _, err := ai.ParseDataURL(imageData); err != nil {
		return nil, err
	}

	payload, _ := json.Marshal(grokChatRequest{
		Model: p.cfg.Model,
		Messages: []chatMessage{{
			Role: "user",
			Content: []chatContentPart{
				{Type: "text", Text: promptTemplate},
				{Type: "image_url", ImageURL: &chatImageURL{URL: imageData, Detail: "high"}},
			},
		}},
		Temperature: p.cfg.temperature(),
		MaxTokens:   p.cfg.maxTokens(),
	})
	endpoint := strings.TrimRight(p.cfg.BaseURL, "/") + "/v1/chat/completions"

	resp, err := retry.Do(ctx, p.logger, p.cfg.policy(), func() (*netutil.JSONResponse, error) {
		return netutil.DoJSON(ctx, p.client, http.MethodPost, endpoint, p.headers(), payload)
	})
	if err != nil {
		return nil, err
	}

	var out grokChatResponse
	if derr := resp.Decode(&out); derr != nil {
		if !resp.OK {
			return nil, fmt.Errorf("Grok API error: %d", resp.Status)
		}
		return nil, derr
	}
	if !resp.OK || len(out.Error) > 0 {
		return nil, errors.New(grokErrorMessage(out.Error, out.Code, resp.Status))
	}
	if len(out.Choices) == 0 {
		return nil, errors.New("empty response from Grok")
	}

	jsonText, ok := ai.ExtractFirstJSONObject(out.Choices[0].Message.Content)
	if !ok {
		return nil, errors.New("failed to parse Grok response")
	}

	var result types.AnalysisResult
	if err := json.Unmarshal([]byte(jsonText), &result); err != nil {
		return nil, fmt.Errorf("failed to parse analysis JSON: %w", err)
	}
	return &result, nil
}

// Restore 做简单模板替换后单次调用图像生成。结果可能是远程 URL，
// 也可能是内联 base64，统一归一成 URL 形式的字符串。
// originalImageURL 在这里用不上：grok-2-image 不接受参考图。
func (p *GrokProvider) Restore(ctx context.Context, prompt, promptTemplate, originalImageURL string) (*types.RestorationResult, error) {
	_ = originalImageURL

	payload, _ := json.Marshal(grokImageRequest{
		Model:  p.cfg.ImageModel,
		Prompt: ai.RenderTemplate(promptTemplate, prompt),
		N:      1,
	})
	endpoint := strings.TrimRight(p.cfg.BaseURL, "/") + "/v1/images/generations"

	resp, err := retry.Do(ctx, p.logger, p.cfg.policy(), func() (*netutil.JSONResponse, error) {
		return netutil.DoJSON(ctx, p.client, http.MethodPost, endpoint, p.headers(), payload)
	})
	if err != nil {
		return nil, err
	}

	var out grokImageResponse
	if derr := resp.Decode(&out); derr != nil {
		if !resp.OK {
			return nil, fmt.Errorf("Grok image generation error: %d", resp.Status)
		}
		return nil, derr
	}
	if !resp.OK || len(out.Error) > 0 {
		return nil, errors.New(grokErrorMessage(out.Error, out.Code, resp.Status))
	}
	if len(out.Data) == 0 {
		return nil, errors.New("empty image response from Grok")
	}

	imageURL := out.Data[0].URL
	if imageURL == "" {
		imageURL = "data:image/png;base64," + out.Data[0].B64JSON
	}
	return &types.RestorationResult{ImageURL: imageURL}, nil
}

func (p *GrokProvider) headers() map[string]string {
	return map[string]string{
		"Content-Type":  "application/json",
		"Authorization": "Bearer " + p.cfg.APIKey,
	}
}
