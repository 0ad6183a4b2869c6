package providers

import (
	"time"

	"github.com/BaSui01/artiflow/ai/retry"
)

// Config is the generic adapter configuration the registry assembles from
// a stored credential: the explicit columns plus whatever the vendor's
// opaque extraConfig blob carried.
type Config struct {
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float64
	MaxTokens   int
	Timeout     time.Duration
	Retry       retry.Policy

	// extraConfig-driven options, interpreted per vendor.
	ImageModel     string // grok: image generation model
	ImageSize      string // openai: dall-e output size
	ImageQuality   string // openai: dall-e quality
	ArtStyle       string // meshy: text-to-3d art style
	NegativePrompt string // meshy: text-to-3d negative prompt
}

func (c Config) policy() retry.Policy {
	if c.Retry == (retry.Policy{}) {
		return retry.DefaultPolicy()
	}
	return c.Retry
}

func (c Config) temperature() float64 {
	if c.Temperature == 0 {
		return 0.7
	}
	return c.Temperature
}

func (c Config) maxTokens() int {
	if c.MaxTokens == 0 {
		return 2000
	}
	return c.MaxTokens
}
