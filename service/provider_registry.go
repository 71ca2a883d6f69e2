// ABOUTME: Registry of pluggable content providers, looked up per feed URL
// ABOUTME: Injected into router and pipeline rather than held as process-global state

package service

import "sync"

// ProviderRegistry holds the content providers available for URL
// lookup. An owner claim beats an available claim; among equal claims
// registration order wins.
type ProviderRegistry struct {
	mu        sync.RWMutex
	providers []ContentProvider
}

// NewProviderRegistry returns an empty registry.
func NewProviderRegistry() *ProviderRegistry {
	return &ProviderRegistry{}
}

// Register adds a provider to the registry.
func (r *ProviderRegistry) Register(provider ContentProvider) {
	r.mu.Lock()
	r.providers = append(r.providers, provider)
	r.mu.Unlock()
}

// Lookup returns the provider claiming url, if any.
func (r *ProviderRegistry) Lookup(url string) (ContentProvider, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var available ContentProvider
	for _, provider := range r.providers {
		switch provider.Ability(url) {
		case AbilityOwner:
			return provider, true
		case AbilityAvailable:
			if available == nil {
				available = provider
			}
		}
	}

	if available != nil {
		return available, true
	}
	return nil, false
}

// Len returns the number of registered providers.
func (r *ProviderRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.providers)
}
