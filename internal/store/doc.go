// Package store is the persistence layer: users, projects, artifacts,
// per-vendor service credentials, and prompt templates. The AI core only
// reads credentials and templates; they are mutated exclusively through
// the admin operations.
package store
