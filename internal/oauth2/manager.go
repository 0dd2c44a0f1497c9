package oauth2

import (
	"context"
	"crypto/md5"
	"crypto/subtle"
	"encoding/hex"
	stderrors "errors"
	"fmt"
	"net/http"
	"time"

	xoauth2 "golang.org/x/oauth2"

	"newsletter-gate/internal/circuitbreaker"
	"newsletter-gate/internal/common/errors"
	commonhttp "newsletter-gate/internal/common/http"
	"newsletter-gate/internal/common/logging"
	"newsletter-gate/internal/common/utils"
	"newsletter-gate/internal/providers"
)

// refreshMargin is how long before expiry a token becomes due for refresh
const refreshMargin = time.Hour

// Token is a provider token as persisted in settings
type Token struct {
	AccessToken  string    `json:"access_token"`
	TokenType    string    `json:"token_type,omitempty"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	ExpiresIn    int64     `json:"expires_in,omitempty"`
	Expiry       time.Time `json:"expiry,omitempty"`
	Scope        string    `json:"scope,omitempty"`
}

// TokenStorage persists one token per provider together with the time
// after which the refresh sweep should renew it. A zero refreshAt means the
// token does not expire.
type TokenStorage interface {
	SaveToken(ctx context.Context, provider string, token *Token, refreshAt time.Time) error
	// LoadToken returns nil, nil when no token is stored
	LoadToken(ctx context.Context, provider string) (*Token, error)
	RefreshAt(ctx context.Context, provider string) (time.Time, error)
}

// Manager runs the authorization code flow against a provider's OAuth
// endpoints. The API key is the client id and the API secret the client
// secret; endpoints and credentials are read from settings on every call.
type Manager struct {
	credentials providers.CredentialStore
	storage     TokenStorage
	redirectURL string
	httpClient  *http.Client
	breaker     *circuitbreaker.Breaker
	retry       utils.RetryConfig
	now         func() time.Time
	logger      logging.Logger
}

type Option func(*Manager)

// WithHTTPClient replaces the client used for token requests
func WithHTTPClient(client *http.Client) Option {
	return func(m *Manager) { m.httpClient = client }
}

// WithRetryConfig replaces the retry policy for token requests
func WithRetryConfig(cfg utils.RetryConfig) Option {
	return func(m *Manager) { m.retry = cfg }
}

// WithClock replaces time.Now
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// NewManager creates a manager redirecting back to redirectURL, the
// service's home URL.
func NewManager(credentials providers.CredentialStore, storage TokenStorage, redirectURL string, opts ...Option) *Manager {
	retry := utils.DefaultRetryConfig()
	retry.RetryableErrors = isTransient

	m := &Manager{
		credentials: credentials,
		storage:     storage,
		redirectURL: redirectURL,
		httpClient:  commonhttp.NewHTTPClient(commonhttp.WithTimeout(30 * time.Second)),
		breaker:     circuitbreaker.New("oauth2", circuitbreaker.ProviderConfig, logging.GetGlobalLogger()),
		retry:       retry,
		now:         time.Now,
		logger:      logging.GetGlobalLogger().WithFields(logging.String("component", "oauth2")),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// State is the anti-forgery value for one provider and admin: the first ten
// hex characters of md5("newslettergate_<provider>_<admin>").
func State(provider, admin string) string {
	sum := md5.Sum([]byte("newslettergate_" + provider + "_" + admin))
	return hex.EncodeToString(sum[:])[:10]
}

// VerifyState compares a callback state with the expected one
func VerifyState(provider, admin, state string) bool {
	expected := State(provider, admin)
	return subtle.ConstantTimeCompare([]byte(expected), []byte(state)) == 1
}

// AuthorizeURL returns the provider's consent page URL
func (m *Manager) AuthorizeURL(ctx context.Context, provider, admin string) (string, error) {
	cfg, err := m.config(ctx, provider)
	if err != nil {
		return "", err
	}
	return cfg.AuthCodeURL(State(provider, admin)), nil
}

// Exchange trades an authorization code for a token and saves it
func (m *Manager) Exchange(ctx context.Context, provider, code string) (*Token, error) {
	if code == "" {
		return nil, errors.ValidationError("missing authorization code")
	}
	cfg, err := m.config(ctx, provider)
	if err != nil {
		return nil, err
	}

	var tok *xoauth2.Token
	err = m.request(ctx, provider, func(ctx context.Context) error {
		var exErr error
		tok, exErr = cfg.Exchange(ctx, code)
		return exErr
	})
	if err != nil {
		return nil, err
	}

	return m.save(ctx, provider, tok)
}

// Refresh renews the stored token with its refresh token and saves the result
func (m *Manager) Refresh(ctx context.Context, provider string) (*Token, error) {
	cfg, err := m.config(ctx, provider)
	if err != nil {
		return nil, err
	}

	current, err := m.storage.LoadToken(ctx, provider)
	if err != nil {
		return nil, err
	}
	if current == nil || current.RefreshToken == "" {
		return nil, errors.NotFoundError(fmt.Sprintf("refresh token for %s", provider))
	}

	var tok *xoauth2.Token
	err = m.request(ctx, provider, func(ctx context.Context) error {
		// An expired token forces the source to hit the token endpoint
		src := cfg.TokenSource(ctx, &xoauth2.Token{
			RefreshToken: current.RefreshToken,
			Expiry:       m.now().Add(-time.Minute),
		})
		var refreshErr error
		tok, refreshErr = src.Token()
		return refreshErr
	})
	if err != nil {
		return nil, err
	}

	return m.save(ctx, provider, tok)
}

// Token returns the stored token, or nil when the provider is not connected
func (m *Manager) Token(ctx context.Context, provider string) (*Token, error) {
	return m.storage.LoadToken(ctx, provider)
}

// RefreshDue refreshes every provider whose refresh time has passed and
// returns how many were renewed. Failures are logged and skipped.
func (m *Manager) RefreshDue(ctx context.Context, providerIDs []string) int {
	refreshed := 0
	now := m.now()

	for _, id := range providerIDs {
		creds, err := m.credentials.Credentials(ctx, id)
		if err != nil || !creds.OAuth.Enabled() {
			continue
		}

		due, err := m.storage.RefreshAt(ctx, id)
		if err != nil {
			m.logger.Warn("Unreadable OAuth refresh time", logging.String("provider", id), logging.Err(err))
			continue
		}
		if due.IsZero() || due.After(now) {
			continue
		}

		if _, err := m.Refresh(ctx, id); err != nil {
			m.logger.Error("OAuth token refresh failed", err, logging.String("provider", id))
			continue
		}
		refreshed++
		m.logger.Info("Refreshed OAuth token", logging.String("provider", id))
	}

	return refreshed
}

func (m *Manager) config(ctx context.Context, provider string) (*xoauth2.Config, error) {
	creds, err := m.credentials.Credentials(ctx, provider)
	if err != nil {
		return nil, err
	}
	if !creds.OAuth.Enabled() {
		return nil, errors.ValidationError(fmt.Sprintf("OAuth is not configured for %s", provider))
	}
	if creds.APIKey == "" {
		return nil, errors.ValidationError("No API Key")
	}
	if creds.APISecret == "" {
		return nil, errors.ValidationError("OAuth requires a secret")
	}

	return &xoauth2.Config{
		ClientID:     creds.APIKey,
		ClientSecret: creds.APISecret,
		RedirectURL:  m.redirectURL,
		Endpoint: xoauth2.Endpoint{
			AuthURL:   creds.OAuth.AuthorizeURL,
			TokenURL:  creds.OAuth.TokenURL,
			AuthStyle: xoauth2.AuthStyleInHeader,
		},
	}, nil
}

// request runs a token endpoint call through the breaker and retry policy
func (m *Manager) request(ctx context.Context, provider string, fn func(ctx context.Context) error) error {
	ctx = context.WithValue(ctx, xoauth2.HTTPClient, m.httpClient)

	return utils.RetryWithBackoff(ctx, m.retry, func() error {
		return m.breaker.Execute(func() error {
			return classify(provider, fn(ctx))
		})
	})
}

func (m *Manager) save(ctx context.Context, provider string, tok *xoauth2.Token) (*Token, error) {
	now := m.now()
	token := &Token{
		AccessToken:  tok.AccessToken,
		TokenType:    tok.TokenType,
		RefreshToken: tok.RefreshToken,
		Expiry:       tok.Expiry,
	}
	if scope, ok := tok.Extra("scope").(string); ok {
		token.Scope = scope
	}

	var refreshAt time.Time
	if !tok.Expiry.IsZero() {
		token.ExpiresIn = int64(tok.Expiry.Sub(now).Round(time.Second) / time.Second)
		refreshAt = tok.Expiry.Add(-refreshMargin)
		if refreshAt.Before(now) {
			refreshAt = now
		}
	}

	if err := m.storage.SaveToken(ctx, provider, token, refreshAt); err != nil {
		return nil, errors.InternalError("failed to save OAuth token", err)
	}
	return token, nil
}

// classify turns token endpoint failures into application errors. An answer
// from the endpoint is a provider error; anything else is a connection error
// and may be retried.
func classify(provider string, err error) error {
	if err == nil {
		return nil
	}

	var retrieveErr *xoauth2.RetrieveError
	if stderrors.As(err, &retrieveErr) {
		msg := retrieveErr.ErrorDescription
		if msg == "" {
			msg = retrieveErr.ErrorCode
		}
		if msg == "" {
			msg = providers.DefaultErrorMessage
		}
		appErr := errors.ProviderError(provider, msg, err)
		if retrieveErr.Response != nil {
			appErr = appErr.WithContext("status", retrieveErr.Response.StatusCode)
			if retrieveErr.Response.StatusCode >= 500 {
				return errors.ConnectionError(msg, err)
			}
		}
		return appErr
	}

	return errors.ConnectionError("token request failed", err)
}

func isTransient(err error) bool {
	return errors.IsType(err, errors.ErrTypeConnection) && !stderrors.Is(err, context.Canceled)
}
