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

// OpenAIProvider 使用 GPT-4o Vision 执行文物分析，并通过
// GPT-4o + DALL-E 3 两阶段流水线执行图像修复。
type OpenAIProvider struct {
	cfg    Config
	client *http.Client
	logger *zap.Logger
}

// NewOpenAIProvider creates an OpenAI adapter.
func NewOpenAIProvider(cfg Config, logger *zap.Logger) *OpenAIProvider {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.openai.com"
	}
	if cfg.Model == "" {
		cfg.Model = "gpt-4o"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = netutil.JSONTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OpenAIProvider{
		cfg:    cfg,
		client: netutil.Client(cfg.Timeout),
		logger: logger,
	}
}

func (p *OpenAIProvider) Name() string { return "openai" }

type chatContentPart struct {
	Type     string        `json:"type"`
	Text     string        `json:"text,omitempty"`
	ImageURL *chatImageURL `json:"image_url,omitempty"`
}

type chatImageURL struct {
	URL    string `json:"url"`
	Detail string `json:"detail,omitempty"`
}

type chatMessage struct {
	Role    string            `json:"role"`
	Content []chatContentPart `json:"content"`
}

type chatResponseFormat struct {
	Type string `json:"type"`
}

type openaiChatRequest struct {
	Model          string              `json:"model"`
	Messages       []chatMessage       `json:"messages"`
	MaxTokens      int                 `json:"max_tokens,omitempty"`
	Temperature    float64             `json:"temperature"`
	ResponseFormat *chatResponseFormat `json:"response_format,omitempty"`
}

type openaiChatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error json.RawMessage `json:"error,omitempty"`
}

type openaiImageRequest struct {
	Model   string `json:"model"`
	Prompt  string `json:"prompt"`
	N       int    `json:"n"`
	Size    string `json:"size,omitempty"`
	Quality string `json:"quality,omitempty"`
}

type openaiImageResponse struct {
	Data []struct {
		URL           string `json:"url,omitempty"`
		B64JSON       string `json:"b64_json,omitempty"`
		RevisedPrompt string `json:"revised_prompt,omitempty"`
	} `json:"data"`
	Error json.RawMessage `json:"error,omitempty"`
}

// openaiErrorMessage 从 OpenAI 错误信封中提取单条可读消息。
// 信封可能是裸字符串，也可能是 {message} 对象。
func openaiErrorMessage(raw json.RawMessage, status int) string {
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
	return fmt.Sprintf("OpenAI API error: %d", status)
}

func (p *OpenAIProvider) headers() map[string]string {
	return map[string]string{
		"Content-Type":  "application/json",
		"Authorization": "Bearer " + p.cfg.APIKey,
	}
}

func (p *OpenAIProvider) chat(ctx context.Context, req openaiChatRequest) (string, error) {
	payload, _ := json.Marshal(req)
	endpoint := strings.TrimRight(p.cfg.BaseURL, "/") + "/v1/chat/completions"

	resp, err := retry.Do(ctx, p.logger, p.cfg.policy(), func() (*netutil.JSONResponse, error) {
		return netutil.DoJSON(ctx, p.client, http.MethodPost, endpoint, p.headers(), payload)
	})
	if err != nil {
		return "", err
	}

	var out openaiChatResponse
	if derr := resp.Decode(&out); derr != nil {
		if !resp.OK {
			return "", fmt.Errorf("OpenAI API error: %d", resp.Status)
		}
		return "", derr
	}
	if !resp.OK || len(out.Error) > 0 {
		return "", errors.New(openaiErrorMessage(out.Error, resp.Status))
	}
	if len(out.Choices) == 0 {
		return "", errors.New("empty response from OpenAI")
	}
	return out.Choices[0].Message.Content, nil
}

// Analyze 将文物照片与分析模板发给 GPT-4o Vision，要求 JSON 输出。
func (p *OpenAIProvider) Analyze(ctx context.Context, imageData, promptTemplate string) (*types.AnalysisResult, error) {
	if _, _, err := ai.ParseDataURL(imageData); err != nil {
		return nil, err
	}

	text, err := p.chat(ctx, openaiChatRequest{
		Model: p.cfg.Model,
		Messages: []chatMessage{{
			Role: "user",
			Content: []chatContentPart{
				{Type: "text", Text: promptTemplate},
				{Type: "image_url", ImageURL: &chatImageURL{URL: imageData, Detail: "high"}},
			},
		}},
		MaxTokens:      p.cfg.maxTokens(),
		Temperature:    p.cfg.temperature(),
		ResponseFormat: &chatResponseFormat{Type: "json_object"},
	})
	if err != nil {
		return nil, err
	}

	var result types.AnalysisResult
	if err := json.Unmarshal([]byte(text), &result); err != nil {
		return nil, fmt.Errorf("failed to parse analysis JSON: %w", err)
	}
	return &result, nil
}

// Restore 执行两阶段修复：图像生成模型只接受文本提示，所以先让
// 视觉模型对照原始照片产出详细描述，再用该描述驱动 DALL-E 3。
// 阶段二必须等待阶段一完成，严格串行。
func (p *OpenAIProvider) Restore(ctx context.Context, prompt, promptTemplate, originalImageURL string) (*types.RestorationResult, error) {
	if originalImageURL == "" {
		return nil, errors.New("original image URL is required for restoration: analyze the image first or provide the URL")
	}

	enhancedPrompt := restorationBrief(prompt, promptTemplate)

	// 阶段一：视觉模型观察原件，产出给 DALL-E 的描述。
	description, err := p.chat(ctx, openaiChatRequest{
		Model: p.cfg.Model,
		Messages: []chatMessage{{
			Role: "user",
			Content: []chatContentPart{
				{
					Type: "text",
					Text: "Look at this artifact image carefully and create a detailed description for DALL-E 3 to generate a perfectly restored version. " + enhancedPrompt,
				},
				{Type: "image_url", ImageURL: &chatImageURL{URL: originalImageURL, Detail: "high"}},
			},
		}},
		MaxTokens:   500,
		Temperature: p.cfg.temperature(),
	})
	if err != nil {
		return nil, err
	}

	p.logger.Debug("restoration description ready", zap.Int("length", len(description)))

	// 阶段二：DALL-E 3 生成修复图。
	size := p.cfg.ImageSize
	if size == "" {
		size = "1024x1024"
	}
	quality := p.cfg.ImageQuality
	if quality == "" {
		quality = "standard"
	}

	payload, _ := json.Marshal(openaiImageRequest{
		Model:   "dall-e-3",
		Prompt:  description + imageHardConstraints,
		N:       1,
		Size:    size,
		Quality: quality,
	})
	endpoint := strings.TrimRight(p.cfg.BaseURL, "/") + "/v1/images/generations"

	resp, err := retry.Do(ctx, p.logger, p.cfg.policy(), func() (*netutil.JSONResponse, error) {
		return netutil.DoJSON(ctx, p.client, http.MethodPost, endpoint, p.headers(), payload)
	})
	if err != nil {
		return nil, err
	}

	var out openaiImageResponse
	if derr := resp.Decode(&out); derr != nil {
		if !resp.OK {
			return nil, fmt.Errorf("OpenAI image error: %d", resp.Status)
		}
		return nil, derr
	}
	if !resp.OK || len(out.Error) > 0 {
		return nil, errors.New(openaiErrorMessage(out.Error, resp.Status))
	}
	if len(out.Data) == 0 {
		return nil, errors.New("empty image response from OpenAI")
	}

	return &types.RestorationResult{
		ImageURL:      out.Data[0].URL,
		RevisedPrompt: out.Data[0].RevisedPrompt,
	}, nil
}

// restorationBrief builds the stage-one instruction: the user prompt plus
// the hard presentation constraints the generated image must satisfy.
func restorationBrief(prompt, promptTemplate string) string {
	return strings.TrimSpace(fmt.Sprintf(`
Based on the artifact shown in the reference image, create a RESTORED version with these specifications:

Artifact description: %s

Requirements:
- Maintain the EXACT same shape, proportions, and style as the original artifact
- Preserve all decorative patterns and design elements
- Show it in PERFECT restored condition (no cracks, chips, or damage)
- Place ONLY the artifact on a pure solid white background (#FFFFFF)
- No other objects, no hands, no people, no shadows
- Professional museum product photography
- Centered composition, well-lit, high detail
- The artifact should look identical to the original but completely restored

Additional context from template: %s`,
		prompt, ai.RenderTemplate(promptTemplate, "")))
}

const imageHardConstraints = `

CRITICAL REQUIREMENTS:
- Pure white background ONLY (#FFFFFF)
- NO other objects in frame
- NO hands, NO people
- Isolated artifact centered
- Professional product photography
- High quality museum documentation style`
