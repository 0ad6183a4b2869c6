// Package registry selects a configured AI vendor for each capability and
// assembles the matching adapter from stored credentials.
package registry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/BaSui01/artiflow/ai"
	"github.com/BaSui01/artiflow/ai/providers"
	"github.com/BaSui01/artiflow/internal/store"
)

// Vendor priority per capability. Order is a product decision: OpenAI
// first for quality, Gemini as the free-tier analysis fallback, Grok last.
var (
	AnalysisPriority    = []string{"openai", "gemini", "grok"}
	RestorationPriority = []string{"openai", "grok"}
)

// MeshyService 是 3D 生成的唯一厂商，不参与优先级选择。
const MeshyService = "meshy"

// CredentialSource is the slice of the store the registry reads.
type CredentialSource interface {
	CredentialByService(ctx context.Context, serviceName string) (*store.ServiceCredential, error)
	TemplateByName(ctx context.Context, name string) (*store.PromptTemplate, error)
}

// SelectCredential 按优先级顺序返回第一个可用凭证（isActive 且
// apiKey 非空）。纯选择逻辑，不触碰网络。
func SelectCredential(priority []string, creds map[string]*store.ServiceCredential) *store.ServiceCredential {
	for _, name := range priority {
		if c, ok := creds[name]; ok && c != nil && c.Usable() {
			return c
		}
	}
	return nil
}

// extraConfig is the vendor-specific tail of a credential, stored as an
// opaque JSON blob and splatted onto the adapter config.
type extraConfig struct {
	BaseURL        string `json:"baseUrl"`
	ImageModel     string `json:"imageModel"`
	ImageSize      string `json:"imageSize"`
	ImageQuality   string `json:"imageQuality"`
	ArtStyle       string `json:"artStyle"`
	NegativePrompt string `json:"negativePrompt"`
}

// BuildConfig maps a stored credential onto a generic adapter config.
// A malformed extraConfig blob is logged and ignored rather than blocking
// the whole capability.
func BuildConfig(cred *store.ServiceCredential, logger *zap.Logger) providers.Config {
	cfg := providers.Config{
		APIKey:      cred.APIKey,
		Model:       cred.Model,
		Temperature: cred.Temperature,
		MaxTokens:   cred.MaxTokens,
	}
	if cred.ExtraConfig == "" {
		return cfg
	}

	var extra extraConfig
	if err := json.Unmarshal([]byte(cred.ExtraConfig), &extra); err != nil {
		if logger != nil {
			logger.Warn("ignoring malformed extraConfig",
				zap.String("service", cred.ServiceName), zap.Error(err))
		}
		return cfg
	}
	cfg.BaseURL = extra.BaseURL
	cfg.ImageModel = extra.ImageModel
	cfg.ImageSize = extra.ImageSize
	cfg.ImageQuality = extra.ImageQuality
	cfg.ArtStyle = extra.ArtStyle
	cfg.NegativePrompt = extra.NegativePrompt
	return cfg
}

// Resolver 每次请求即时从数据库装配适配器：管理员改完密钥立即生效，
// 不需要重启或缓存失效。
type Resolver struct {
	source CredentialSource
	logger *zap.Logger
}

func NewResolver(source CredentialSource, logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{source: source, logger: logger}
}

func (r *Resolver) load(ctx context.Context, names []string) (map[string]*store.ServiceCredential, error) {
	creds := make(map[string]*store.ServiceCredential, len(names))
	for _, name := range names {
		c, err := r.source.CredentialByService(ctx, name)
		if errors.Is(err, store.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		creds[name] = c
	}
	return creds, nil
}

// ResolveAnalyzer picks the highest-priority configured analysis vendor.
func (r *Resolver) ResolveAnalyzer(ctx context.Context) (ai.Analyzer, error) {
	creds, err := r.load(ctx, AnalysisPriority)
	if err != nil {
		return nil, err
	}
	cred := SelectCredential(AnalysisPriority, creds)
	if cred == nil {
		return nil, notConfigured("analysis", AnalysisPriority)
	}

	cfg := BuildConfig(cred, r.logger)
	r.logger.Debug("analysis provider selected", zap.String("service", cred.ServiceName))
	switch cred.ServiceName {
	case "openai":
		return providers.NewOpenAIProvider(cfg, r.logger), nil
	case "gemini":
		return providers.NewGeminiProvider(cfg, r.logger), nil
	case "grok":
		return providers.NewGrokProvider(cfg, r.logger), nil
	}
	return nil, fmt.Errorf("unknown analysis service %q", cred.ServiceName)
}

// ResolveRestorer picks the highest-priority configured restoration vendor.
// Gemini is absent here: it has no image generation capability.
func (r *Resolver) ResolveRestorer(ctx context.Context) (ai.Restorer, error) {
	creds, err := r.load(ctx, RestorationPriority)
	if err != nil {
		return nil, err
	}
	cred := SelectCredential(RestorationPriority, creds)
	if cred == nil {
		return nil, notConfigured("restoration", RestorationPriority)
	}

	cfg := BuildConfig(cred, r.logger)
	r.logger.Debug("restoration provider selected", zap.String("service", cred.ServiceName))
	switch cred.ServiceName {
	case "openai":
		return providers.NewOpenAIProvider(cfg, r.logger), nil
	case "grok":
		return providers.NewGrokProvider(cfg, r.logger), nil
	}
	return nil, fmt.Errorf("unknown restoration service %q", cred.ServiceName)
}

// ResolveModelGenerator returns the Meshy adapter; 3D generation has a
// single fixed vendor.
func (r *Resolver) ResolveModelGenerator(ctx context.Context) (ai.ModelGenerator, error) {
	cred, err := r.source.CredentialByService(ctx, MeshyService)
	if errors.Is(err, store.ErrNotFound) || (err == nil && !cred.Usable()) {
		return nil, errors.New("Meshy API is not configured: you must provide an API key in the admin panel")
	}
	if err != nil {
		return nil, err
	}
	return providers.NewMeshyProvider(BuildConfig(cred, r.logger), r.logger), nil
}

// ResolveTemplate fetches a prompt template body by name.
func (r *Resolver) ResolveTemplate(ctx context.Context, name string) (string, error) {
	t, err := r.source.TemplateByName(ctx, name)
	if errors.Is(err, store.ErrNotFound) {
		return "", fmt.Errorf("prompt template %q not found", name)
	}
	if err != nil {
		return "", err
	}
	return t.Template, nil
}

// notConfigured 的措辞与 types.Classify 的配置类目对齐（503）。
func notConfigured(capability string, priority []string) error {
	return fmt.Errorf("no %s service is configured: you must provide an active API key for one of %s in the admin panel",
		capability, strings.Join(priority, ", "))
}
