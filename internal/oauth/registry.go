package oauth

import (
	"fmt"

	"github.com/prperemyshlev/bridge-service/internal/config"
)

// Registry holds one adapter per configured provider, selected by name.
// Adapters are built once at startup and reused across requests.
type Registry struct {
	adapters map[string]*Adapter
}

// NewRegistry builds adapters for every provider with configured credentials
func NewRegistry(cfg config.OAuthConfig, flows FlowStore) *Registry {
	adapters := make(map[string]*Adapter)

	if cfg.GitHub.Enabled() {
		adapters["github"] = NewGitHubAdapter(cfg.GitHub.ClientID, cfg.GitHub.ClientSecret, flows, cfg.FlowTTL.Duration)
	}
	if cfg.Google.Enabled() {
		adapters["google"] = NewGoogleAdapter(cfg.Google.ClientID, cfg.Google.ClientSecret, flows, cfg.FlowTTL.Duration)
	}

	return &Registry{adapters: adapters}
}

// Get returns the adapter for a provider name
func (r *Registry) Get(name string) (*Adapter, error) {
	adapter, ok := r.adapters[name]
	if !ok {
		return nil, fmt.Errorf("provider %q is not configured: %w", name, ErrUnknownProvider)
	}
	return adapter, nil
}

// Names returns the configured provider names
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.adapters))
	for name := range r.adapters {
		names = append(names, name)
	}
	return names
}
