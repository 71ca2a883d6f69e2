package service

import (
	"context"
	"strings"
	"testing"

	"github.com/HieuLsw/NetNewsWire/models"

	"github.com/stretchr/testify/assert"
)

type stubProvider struct {
	name    string
	ability func(url string) ProviderAbility
}

func (s *stubProvider) Ability(url string) ProviderAbility { return s.ability(url) }

func (s *stubProvider) AssignName(ctx context.Context, url string) (string, error) {
	return s.name, nil
}

func (s *stubProvider) Refresh(ctx context.Context, feed *models.Feed) ([]models.ParsedItem, error) {
	return nil, nil
}

func TestProviderRegistry_OwnerBeatsAvailable(t *testing.T) {
	available := &stubProvider{name: "available", ability: func(string) ProviderAbility {
		return AbilityAvailable
	}}
	owner := &stubProvider{name: "owner", ability: func(url string) ProviderAbility {
		if strings.Contains(url, "owned.example.com") {
			return AbilityOwner
		}
		return AbilityNone
	}}

	registry := NewProviderRegistry()
	registry.Register(available)
	registry.Register(owner)

	provider, ok := registry.Lookup("https://owned.example.com/feed")
	assert.True(t, ok)
	assert.Same(t, owner, provider)

	provider, ok = registry.Lookup("https://other.example.com/feed")
	assert.True(t, ok)
	assert.Same(t, available, provider)
}

func TestProviderRegistry_NoClaimMeansGeneric(t *testing.T) {
	registry := NewProviderRegistry()
	registry.Register(&stubProvider{ability: func(string) ProviderAbility { return AbilityNone }})

	_, ok := registry.Lookup("https://example.com/feed")
	assert.False(t, ok)

	empty := NewProviderRegistry()
	_, ok = empty.Lookup("https://example.com/feed")
	assert.False(t, ok)
	assert.Equal(t, 0, empty.Len())
}
