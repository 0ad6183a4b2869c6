// Package ai defines the three vendor capability contracts (analysis,
// restoration, 3D model generation) and the helpers shared by all vendor
// adapters.
//
// Adapters are stateless and cheap to construct: any per-call context such
// as the original image URL is threaded through parameters, never kept on
// the adapter instance. The registry package selects and constructs
// adapters at runtime from persisted credentials.
package ai
