// Package registry resolves the published digest of OCI image references,
// so image freshness can be judged without pulling.
package registry

import (
	"context"
	"errors"
)

// Sentinel errors for registry operations.
var (
	// ErrImageNotFound is returned when the requested image does not exist.
	ErrImageNotFound = errors.New("image not found")

	// ErrUnauthorized is returned when authentication fails.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrInvalidRef is returned when the image reference is malformed.
	ErrInvalidRef = errors.New("invalid image reference")
)

// ClientConfig configures the registry client.
type ClientConfig struct {
	// Insecure allows HTTP (non-TLS) connections to registries.
	Insecure bool
}

// Client resolves image references against their registry.
//
//go:generate go run github.com/matryer/moq@latest -pkg mocks -out mocks/client.go . Client
type Client interface {
	// Digest returns the digest the registry currently serves for ref
	// (e.g. "sha256:..."). The reference can be a tag
	// ("ghcr.io/foo/bar:latest") or already pinned by digest.
	Digest(ctx context.Context, ref string) (string, error)
}
