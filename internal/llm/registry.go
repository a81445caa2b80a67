package llm

import (
	"fmt"

	"loom/internal/domain"
	llmsvc "loom/internal/domain/services/llm"
)

// Registry dispatches models to the provider that serves them.
type Registry struct {
	providers []llmsvc.Provider
}

// NewRegistry creates a registry over the given providers, consulted in
// order.
func NewRegistry(providers ...llmsvc.Provider) *Registry {
	return &Registry{providers: providers}
}

// ForModel returns the first provider that supports the model.
func (r *Registry) ForModel(model string) (llmsvc.Provider, error) {
	for _, p := range r.providers {
		if p.SupportsModel(model) {
			return p, nil
		}
	}
	return nil, fmt.Errorf("%w: no provider for model %q", domain.ErrValidation, model)
}
