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

// GeminiProvider 使用 Gemini Vision 执行文物分析。
// Gemini 没有图像生成能力，因此只实现分析接口。
type GeminiProvider struct {
	cfg    Config
	client *http.Client
	logger *zap.Logger
}

// NewGeminiProvider creates a Gemini adapter.
func NewGeminiProvider(cfg Config, logger *zap.Logger) *GeminiProvider {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://generativelanguage.googleapis.com"
	}
	if cfg.Model == "" {
		cfg.Model = "gemini-2.0-flash"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = netutil.JSONTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GeminiProvider{
		cfg:    cfg,
		client: netutil.Client(cfg.Timeout),
		logger: logger,
	}
}

func (p *GeminiProvider) Name() string { return "gemini" }

type geminiInlineData struct {
	MimeType string `json:"mime_type"`
	Data     string `json:"data"`
}

type geminiPart struct {
	Text       string            `json:"text,omitempty"`
	InlineData *geminiInlineData `json:"inline_data,omitempty"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiGenerationConfig struct {
	Temperature      float64 `json:"temperature"`
	MaxOutputTokens  int     `json:"maxOutputTokens"`
	ResponseMimeType string  `json:"responseMimeType"`
}

type geminiRequest struct {
	Contents         []geminiContent        `json:"contents"`
	GenerationConfig geminiGenerationConfig `json:"generationConfig"`
}

type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
	Error *geminiError `json:"error,omitempty"`
}

type geminiError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Status  string `json:"status"`
}

// geminiErrorMessage 标注已知错误码，让下游分类器能准确归类：
// 429 是每日配额，403/401 是密钥问题，其它透传原始消息。
func geminiErrorMessage(e *geminiError) string {
	switch e.Code {
	case 429:
		return "Gemini: daily quota exhausted. Wait until tomorrow or enable billing in Google Cloud Console."
	case 403, 401:
		return "Gemini: API key not valid or blocked. Check the key in the admin panel."
	}
	if e.Message != "" {
		return e.Message
	}
	return "Gemini API error"
}

// Analyze 从 data URL 中拆出 MIME 与 base64 负载，以 inline_data
// 形式随分析模板发给 generateContent，要求 JSON 输出。
func (p *GeminiProvider) Analyze(ctx context.Context, imageData, promptTemplate string) (*types.AnalysisResult, error) {
	mimeType, base64Data, err := ai.ParseDataURL(imageData)
	if err != nil {
		return nil, err
	}

	payload, _ := json.Marshal(geminiRequest{
		Contents: []geminiContent{{
			Parts: []geminiPart{
				{Text: promptTemplate},
				{InlineData: &geminiInlineData{MimeType: mimeType, Data: base64Data}},
			},
		}},
		GenerationConfig: geminiGenerationConfig{
			Temperature:      p.cfg.temperature(),
			MaxOutputTokens:  p.cfg.maxTokens(),
			ResponseMimeType: "application/json",
		},
	})

	endpoint := fmt.Sprintf("%s/v1beta/models/%s:generateContent?key=%s",
		strings.TrimRight(p.cfg.BaseURL, "/"), p.cfg.Model, p.cfg.APIKey)

	resp, err := retry.Do(ctx, p.logger, p.cfg.policy(), func() (*netutil.JSONResponse, error) {
		return netutil.DoJSON(ctx, p.client, http.MethodPost, endpoint,
			map[string]string{"Content-Type": "application/json"}, payload)
	})
	if err != nil {
		return nil, err
	}

	var out geminiResponse
	if derr := resp.Decode(&out); derr != nil {
		if !resp.OK {
			return nil, fmt.Errorf("Gemini API error: %d", resp.Status)
		}
		return nil, derr
	}
	if out.Error != nil {
		return nil, errors.New(geminiErrorMessage(out.Error))
	}

	if len(out.Candidates) == 0 || len(out.Candidates[0].Content.Parts) == 0 ||
		out.Candidates[0].Content.Parts[0].Text == "" {
		return nil, errors.New("empty response from Gemini")
	}

	var result types.AnalysisResult
	if err := json.Unmarshal([]byte(out.Candidates[0].Content.Parts[0].Text), &result); err != nil {
		return nil, fmt.Errorf("failed to parse analysis JSON: %w", err)
	}
	return &result, nil
}
