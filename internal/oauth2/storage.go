package oauth2

import (
	"context"
	"sync"
	"time"

	"newsletter-gate/internal/settings"
)

// SecretSettings is the subset of the settings service tokens are kept in.
// *settings.Service satisfies it.
type SecretSettings interface {
	SetSecretJSON(ctx context.Context, key string, v interface{}) error
	GetSecretJSON(ctx context.Context, key string, v interface{}) (bool, error)
	Raw(ctx context.Context, key string) (string, error)
	SetRaw(ctx context.Context, key, value string) error
}

// SettingsTokenStorage keeps each provider's token encrypted under
// newslettergate_<provider>_oauth and its refresh time under
// newslettergate_<provider>_oauth_refresh_at.
type SettingsTokenStorage struct {
	settings SecretSettings
}

func NewSettingsTokenStorage(s SecretSettings) *SettingsTokenStorage {
	return &SettingsTokenStorage{settings: s}
}

func (s *SettingsTokenStorage) SaveToken(ctx context.Context, provider string, token *Token, refreshAt time.Time) error {
	if err := s.settings.SetSecretJSON(ctx, settings.OAuthTokenKey(provider), token); err != nil {
		return err
	}

	value := ""
	if !refreshAt.IsZero() {
		value = refreshAt.UTC().Format(time.RFC3339)
	}
	return s.settings.SetRaw(ctx, settings.OAuthRefreshKey(provider), value)
}

func (s *SettingsTokenStorage) LoadToken(ctx context.Context, provider string) (*Token, error) {
	var token Token
	found, err := s.settings.GetSecretJSON(ctx, settings.OAuthTokenKey(provider), &token)
	if err != nil || !found {
		return nil, err
	}
	return &token, nil
}

func (s *SettingsTokenStorage) RefreshAt(ctx context.Context, provider string) (time.Time, error) {
	value, err := s.settings.Raw(ctx, settings.OAuthRefreshKey(provider))
	if err != nil || value == "" {
		return time.Time{}, err
	}
	return time.Parse(time.RFC3339, value)
}

// MemoryTokenStorage is a TokenStorage for tests and the CLI
type MemoryTokenStorage struct {
	mu        sync.RWMutex
	tokens    map[string]*Token
	refreshAt map[string]time.Time
}

func NewMemoryTokenStorage() *MemoryTokenStorage {
	return &MemoryTokenStorage{
		tokens:    make(map[string]*Token),
		refreshAt: make(map[string]time.Time),
	}
}

func (m *MemoryTokenStorage) SaveToken(_ context.Context, provider string, token *Token, refreshAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *token
	m.tokens[provider] = &copied
	m.refreshAt[provider] = refreshAt
	return nil
}

func (m *MemoryTokenStorage) LoadToken(_ context.Context, provider string) (*Token, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	token, ok := m.tokens[provider]
	if !ok {
		return nil, nil
	}
	copied := *token
	return &copied, nil
}

func (m *MemoryTokenStorage) RefreshAt(_ context.Context, provider string) (time.Time, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.refreshAt[provider], nil
}
