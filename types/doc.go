// Package types defines the shared value objects and the error taxonomy
// used across the artifact analysis, restoration, and 3D generation
// pipelines.
package types
