package registry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BaSui01/artiflow/internal/store"
	"github.com/BaSui01/artiflow/types"
)

type fakeSource struct {
	creds     map[string]*store.ServiceCredential
	templates map[string]*store.PromptTemplate
}

func (f *fakeSource) CredentialByService(_ context.Context, name string) (*store.ServiceCredential, error) {
	if c, ok := f.creds[name]; ok {
		return c, nil
	}
	return nil, store.ErrNotFound
}

func (f *fakeSource) TemplateByName(_ context.Context, name string) (*store.PromptTemplate, error) {
	if t, ok := f.templates[name]; ok {
		return t, nil
	}
	return nil, store.ErrNotFound
}

func cred(name, key string, active bool) *store.ServiceCredential {
	return &store.ServiceCredential{ServiceName: name, APIKey: key, IsActive: active}
}

func TestSelectCredential(t *testing.T) {
	creds := map[string]*store.ServiceCredential{
		"openai": cred("openai", "", true),       // no key
		"gemini": cred("gemini", "g-key", false), // disabled
		"grok":   cred("grok", "x-key", true),
	}

	got := SelectCredential(AnalysisPriority, creds)
	require.NotNil(t, got)
	assert.Equal(t, "grok", got.ServiceName)

	// Once OpenAI gains a key it wins on priority.
	creds["openai"] = cred("openai", "sk-key", true)
	got = SelectCredential(AnalysisPriority, creds)
	require.NotNil(t, got)
	assert.Equal(t, "openai", got.ServiceName)

	assert.Nil(t, SelectCredential(AnalysisPriority, nil))
}

func TestBuildConfigMergesExtraConfig(t *testing.T) {
	c := &store.ServiceCredential{
		ServiceName: "openai",
		APIKey:      "sk-key",
		Model:       "gpt-4o",
		Temperature: 0.5,
		MaxTokens:   1500,
		ExtraConfig: `{"imageSize":"1792x1024","imageQuality":"hd","baseUrl":"https://proxy.internal"}`,
	}

	cfg := BuildConfig(c, nil)
	assert.Equal(t, "sk-key", cfg.APIKey)
	assert.Equal(t, "gpt-4o", cfg.Model)
	assert.Equal(t, 0.5, cfg.Temperature)
	assert.Equal(t, 1500, cfg.MaxTokens)
	assert.Equal(t, "1792x1024", cfg.ImageSize)
	assert.Equal(t, "hd", cfg.ImageQuality)
	assert.Equal(t, "https://proxy.internal", cfg.BaseURL)
}

func TestBuildConfigIgnoresMalformedExtraConfig(t *testing.T) {
	c := &store.ServiceCredential{ServiceName: "meshy", APIKey: "m-key", ExtraConfig: "{broken"}

	cfg := BuildConfig(c, nil)
	assert.Equal(t, "m-key", cfg.APIKey)
	assert.Empty(t, cfg.ArtStyle)
}

func TestResolveAnalyzerPriority(t *testing.T) {
	src := &fakeSource{creds: map[string]*store.ServiceCredential{
		"gemini": cred("gemini", "g-key", true),
		"grok":   cred("grok", "x-key", true),
	}}

	analyzer, err := NewResolver(src, nil).ResolveAnalyzer(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "gemini", analyzer.Name())
}

func TestResolveAnalyzerNothingConfigured(t *testing.T) {
	src := &fakeSource{creds: map[string]*store.ServiceCredential{
		"openai": cred("openai", "", true),
	}}

	_, err := NewResolver(src, nil).ResolveAnalyzer(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "openai, gemini, grok")
	assert.Equal(t, 503, types.Classify(err).Status)
}

func TestResolveRestorerSkipsGemini(t *testing.T) {
	// Gemini is configured but cannot restore; only OpenAI and Grok count.
	src := &fakeSource{creds: map[string]*store.ServiceCredential{
		"gemini": cred("gemini", "g-key", true),
		"grok":   cred("grok", "x-key", true),
	}}

	restorer, err := NewResolver(src, nil).ResolveRestorer(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "grok", restorer.Name())
}

func TestResolveModelGeneratorRequiresMeshyKey(t *testing.T) {
	src := &fakeSource{creds: map[string]*store.ServiceCredential{
		"meshy": cred("meshy", "", true),
	}}
	r := NewResolver(src, nil)

	_, err := r.ResolveModelGenerator(context.Background())
	require.Error(t, err)
	assert.Equal(t, 503, types.Classify(err).Status)

	src.creds["meshy"] = cred("meshy", "m-key", true)
	gen, err := r.ResolveModelGenerator(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "meshy", gen.Name())
}

func TestResolveTemplate(t *testing.T) {
	src := &fakeSource{templates: map[string]*store.PromptTemplate{
		"analysis": {Name: "analysis", Template: "Describe: {{prompt}}"},
	}}
	r := NewResolver(src, nil)

	body, err := r.ResolveTemplate(context.Background(), "analysis")
	require.NoError(t, err)
	assert.Equal(t, "Describe: {{prompt}}", body)

	_, err = r.ResolveTemplate(context.Background(), "restoration")
	require.Error(t, err)
	assert.Equal(t, 503, types.Classify(err).Status)
}
