// Package settings stores the gate's options: form copy, colors and the
// per-provider enable flag and credentials. Secrets are encrypted at rest
// when an encryptor is configured and never leave the service in a View.
package settings

import (
	"context"
	"fmt"
	"sort"

	"newsletter-gate/internal/common/errors"
	"newsletter-gate/internal/common/logging"
	"newsletter-gate/internal/common/validation"
	"newsletter-gate/internal/crypto"
	"newsletter-gate/internal/providers"
	"newsletter-gate/internal/storage"
)

// Service reads and writes settings through storage
type Service struct {
	store     storage.Storage
	encryptor *crypto.ConfigEncryptor
	fields    map[string]Field
	providers []string
	logger    logging.Logger
}

// NewService registers the form fields and the fields of each provider.
// encryptor may be nil, in which case secrets are stored as plain text.
func NewService(store storage.Storage, encryptor *crypto.ConfigEncryptor, providerIDs ...string) *Service {
	s := &Service{
		store:     store,
		encryptor: encryptor,
		fields:    make(map[string]Field),
		providers: append([]string(nil), providerIDs...),
		logger:    logging.GetGlobalLogger().WithFields(logging.String("component", "settings")),
	}

	for _, f := range formFields {
		s.fields[f.Key] = f
	}
	for _, id := range providerIDs {
		for _, f := range providerFields(id) {
			s.fields[f.Key] = f
		}
	}

	if encryptor == nil {
		s.logger.Warn("CONFIG_ENCRYPTION_KEY is not set; provider credentials are stored unencrypted")
	}
	return s
}

// Field returns the definition of key
func (s *Service) Field(key string) (Field, bool) {
	f, ok := s.fields[key]
	return f, ok
}

// Keys returns every known key in sorted order
func (s *Service) Keys() []string {
	keys := make([]string, 0, len(s.fields))
	for k := range s.fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Raw returns the stored value of key, decrypted, or "" when unset
func (s *Service) Raw(ctx context.Context, key string) (string, error) {
	value, err := s.store.GetSetting(ctx, key)
	if err != nil {
		return "", err
	}
	return s.decrypt(value)
}

// Get returns the stored value of key or its default
func (s *Service) Get(ctx context.Context, key string) (string, error) {
	value, err := s.Raw(ctx, key)
	if err != nil {
		return "", err
	}
	if value == "" {
		if f, ok := s.fields[key]; ok {
			return f.Default, nil
		}
	}
	return value, nil
}

// Bool reports whether key holds "1"
func (s *Service) Bool(ctx context.Context, key string) (bool, error) {
	value, err := s.Get(ctx, key)
	if err != nil {
		return false, err
	}
	b, _ := parseBool(value)
	return b == "1", nil
}

// Update validates every value first and writes nothing when one fails.
// Unknown keys are rejected; an empty value clears the setting.
func (s *Service) Update(ctx context.Context, values map[string]string) error {
	normalized, err := s.normalizeAll(values)
	if err != nil {
		return err
	}

	for _, key := range sortedKeys(normalized) {
		if err := s.write(ctx, key, normalized[key]); err != nil {
			return err
		}
	}

	s.logger.Info("Settings updated", logging.Int("count", len(normalized)))
	return nil
}

// Seed writes values only for keys that have never been set. Unknown keys
// are skipped with a warning. Returns the number of keys written.
func (s *Service) Seed(ctx context.Context, values map[string]string) (int, error) {
	known := make(map[string]string, len(values))
	for key, value := range values {
		if _, ok := s.fields[key]; !ok {
			s.logger.Warn("Ignoring unknown setting in seed", logging.String("key", key))
			continue
		}
		known[key] = value
	}

	normalized, err := s.normalizeAll(known)
	if err != nil {
		return 0, err
	}

	existing, err := s.store.GetAllSettings(ctx)
	if err != nil {
		return 0, err
	}

	written := 0
	for _, key := range sortedKeys(normalized) {
		if _, set := existing[key]; set {
			continue
		}
		if err := s.write(ctx, key, normalized[key]); err != nil {
			return written, err
		}
		written++
	}
	return written, nil
}

func (s *Service) normalizeAll(values map[string]string) (map[string]string, error) {
	v := validation.NewFluentValidatorWithPrefix("settings")
	normalized := make(map[string]string, len(values))

	for _, key := range sortedKeys(values) {
		f, ok := s.fields[key]
		if !ok {
			return nil, errors.ValidationError(fmt.Sprintf("unknown setting: %s", key))
		}
		normalized[key] = normalize(f, values[key], v)
	}

	if err := v.Error(); err != nil {
		return nil, err
	}
	return normalized, nil
}

func (s *Service) write(ctx context.Context, key, value string) error {
	if f := s.fields[key]; f.Kind == KindSecret {
		var err error
		if value, err = s.encrypt(value); err != nil {
			return err
		}
	}
	return s.store.SetSetting(ctx, key, value)
}

func (s *Service) encrypt(value string) (string, error) {
	if s.encryptor == nil || value == "" {
		return value, nil
	}
	return s.encryptor.Encrypt(value)
}

func (s *Service) decrypt(value string) (string, error) {
	if !crypto.IsEncrypted(value) {
		return value, nil
	}
	if s.encryptor == nil {
		return "", errors.ConfigError("setting is encrypted but CONFIG_ENCRYPTION_KEY is not set")
	}
	return s.encryptor.Decrypt(value)
}

// SetSecretJSON stores v as encrypted JSON under key
func (s *Service) SetSecretJSON(ctx context.Context, key string, v interface{}) error {
	if s.encryptor == nil {
		raw, err := jsonString(v)
		if err != nil {
			return err
		}
		return s.store.SetSetting(ctx, key, raw)
	}

	sealed, err := s.encryptor.EncryptJSON(v)
	if err != nil {
		return err
	}
	return s.store.SetSetting(ctx, key, sealed)
}

// GetSecretJSON loads the JSON stored under key into v. The bool is false
// when nothing is stored.
func (s *Service) GetSecretJSON(ctx context.Context, key string, v interface{}) (bool, error) {
	value, err := s.Raw(ctx, key)
	if err != nil || value == "" {
		return false, err
	}
	if err := unmarshalString(value, v); err != nil {
		return false, err
	}
	return true, nil
}

// SetRaw writes an internal value that is not a user-editable field
func (s *Service) SetRaw(ctx context.Context, key, value string) error {
	return s.store.SetSetting(ctx, key, value)
}

// Enabled implements providers.CredentialStore
func (s *Service) Enabled(ctx context.Context, providerID string) (bool, error) {
	return s.Bool(ctx, ProviderKey(providerID, SuffixEnabled))
}

// Credentials implements providers.CredentialStore
func (s *Service) Credentials(ctx context.Context, providerID string) (providers.Credentials, error) {
	var creds providers.Credentials

	fields := map[string]*string{
		SuffixAPIKey:            &creds.APIKey,
		SuffixAPISecret:         &creds.APISecret,
		SuffixOAuthAuthorizeURL: &creds.OAuth.AuthorizeURL,
		SuffixOAuthTokenURL:     &creds.OAuth.TokenURL,
	}
	for suffix, dst := range fields {
		value, err := s.Raw(ctx, ProviderKey(providerID, suffix))
		if err != nil {
			return creds, err
		}
		*dst = value
	}

	var token struct {
		AccessToken string `json:"access_token"`
	}
	if _, err := s.GetSecretJSON(ctx, OAuthTokenKey(providerID), &token); err != nil {
		s.logger.Warn("Stored OAuth token is unreadable",
			logging.String("provider", providerID),
			logging.Err(err),
		)
	}
	creds.AccessToken = token.AccessToken

	return creds, nil
}

var _ providers.CredentialStore = (*Service)(nil)

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
