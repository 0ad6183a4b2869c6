package types

// ShapeProfile describes the silhouette of an artifact body.
type ShapeProfile string

const (
	ShapeConvex  ShapeProfile = "convex"
	ShapeLinear  ShapeProfile = "linear"
	ShapeConcave ShapeProfile = "concave"
)

// Dimensions holds artifact measurements in centimeters.
type Dimensions struct {
	Height    float64 `json:"height"`
	BaseWidth float64 `json:"baseWidth"`
	TopWidth  float64 `json:"topWidth"`
}

// AnalysisResult is the structured output of a vision analysis call.
// It is produced once per call, immutable once returned, and serialized
// into the owning artifact record. A new analysis overwrites the prior one.
type AnalysisResult struct {
	Type         string       `json:"type"`
	Period       string       `json:"period"`
	Culture      string       `json:"culture"`
	Material     string       `json:"material"`
	Purpose      string       `json:"purpose"`
	Dimensions   Dimensions   `json:"dimensions"`
	ShapeProfile ShapeProfile `json:"shapeProfile"`
	Condition    string       `json:"condition"`
	Restoration  string       `json:"restoration"`
	Description  string       `json:"description"`
}

// RestorationResult is the output of an image restoration call.
type RestorationResult struct {
	ImageURL      string `json:"imageUrl"`
	RevisedPrompt string `json:"revisedPrompt,omitempty"`
}

// GenerationStatus is the vendor-controlled state of a 3D generation job.
// PENDING -> IN_PROGRESS -> SUCCEEDED | FAILED; terminal states never
// transition again.
type GenerationStatus string

const (
	StatusPending    GenerationStatus = "PENDING"
	StatusInProgress GenerationStatus = "IN_PROGRESS"
	StatusSucceeded  GenerationStatus = "SUCCEEDED"
	StatusFailed     GenerationStatus = "FAILED"
)

// Terminal reports whether no further transition can occur.
func (s GenerationStatus) Terminal() bool {
	return s == StatusSucceeded || s == StatusFailed
}

// ModelURLs carries the downloadable assets of a finished generation job.
// Only a SUCCEEDED status carries a non-nil ModelURLs.
type ModelURLs struct {
	GLB       string `json:"glb,omitempty"`
	FBX       string `json:"fbx,omitempty"`
	Thumbnail string `json:"thumbnail,omitempty"`
}

// GenerationResult is the response to a 3D generation request.
type GenerationResult struct {
	TaskID string `json:"taskId"`
}

// StatusResult is the response to a 3D generation status check.
type StatusResult struct {
	Status    GenerationStatus `json:"status"`
	ModelURLs *ModelURLs       `json:"modelUrls,omitempty"`
	Progress  int              `json:"progress,omitempty"`
}
