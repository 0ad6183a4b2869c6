package ai

import (
	"context"

	"github.com/BaSui01/artiflow/types"
)

// Analyzer produces a structured analysis from an artifact photograph
// supplied as a data URL.
type Analyzer interface {
	Name() string
	Analyze(ctx context.Context, imageData, promptTemplate string) (*types.AnalysisResult, error)
}

// Restorer generates an AI-restored image of the artifact.
// originalImageURL is required by vision-grounded implementations and
// ignored by prompt-only ones; it is always an explicit parameter.
type Restorer interface {
	Name() string
	Restore(ctx context.Context, prompt, promptTemplate, originalImageURL string) (*types.RestorationResult, error)
}

// ModelGenerator drives an asynchronous 3D generation job at a vendor.
// Generate and GenerateFromImage return task identifiers that CheckStatus
// accepts; identifiers from the two operations live in separate vendor
// namespaces and must not be mixed up.
type ModelGenerator interface {
	Name() string
	Generate(ctx context.Context, prompt, promptTemplate string) (*types.GenerationResult, error)
	GenerateFromImage(ctx context.Context, imageURL string) (*types.GenerationResult, error)
	CheckStatus(ctx context.Context, taskID string) (*types.StatusResult, error)
}
