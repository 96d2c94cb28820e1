// Package identity verifies social-login ID tokens against their providers.
package identity

import (
	"context"

	"triplog/internal/models"
)

// Identity is the provider-asserted profile extracted from a verified token.
type Identity struct {
	Provider   string
	ProviderID string
	Email      string
	Name       string
	Picture    string
}

// Verifier validates a provider ID token and returns the asserted identity.
type Verifier interface {
	Verify(ctx context.Context, idToken string) (*Identity, error)
}

// Registry dispatches verification by provider name.
type Registry struct {
	verifiers map[string]Verifier
}

// NewRegistry returns a registry over the given verifiers keyed by provider.
func NewRegistry(verifiers map[string]Verifier) *Registry {
	return &Registry{verifiers: verifiers}
}

// Verify dispatches to the provider's verifier. Unknown providers are a
// validation error, not an upstream one.
func (r *Registry) Verify(ctx context.Context, provider, idToken string) (*Identity, error) {
	v, ok := r.verifiers[provider]
	if !ok {
		return nil, models.NewValidationError("Unsupported auth provider: " + provider)
	}
	return v.Verify(ctx, idToken)
}
