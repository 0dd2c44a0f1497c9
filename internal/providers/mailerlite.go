package providers

import (
	"context"
	"encoding/json"
	"net/url"

	"newsletter-gate/internal/common/errors"
	gatehttp "newsletter-gate/internal/common/http"
)

const (
	MailerLiteID = "mailerlite"

	mailerliteBaseURL = "https://api.mailerlite.com/api/v2/"
)

// MailerLite talks to the v2 API, where lists are groups
type MailerLite struct {
	api
}

func NewMailerLite(creds Credentials, client *gatehttp.Client, opts ...Option) *MailerLite {
	m := &MailerLite{api: api{
		id:           MailerLiteID,
		name:         "MailerLite",
		baseURL:      mailerliteBaseURL,
		creds:        creds,
		client:       client,
		errorMessage: mailerliteError,
	}}
	m.headers = func() map[string]string {
		return map[string]string{
			"Content-Type":        "application/json",
			"X-MailerLite-ApiKey": m.creds.APIKey,
		}
	}
	for _, opt := range opts {
		opt(&m.api)
	}
	return m
}

func mailerliteError(body []byte) string {
	var e struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if json.Unmarshal(body, &e) != nil {
		return ""
	}
	return e.Error.Message
}

func (m *MailerLite) Lists(ctx context.Context) ([]List, error) {
	var groups []rawList
	if err := m.get(ctx, "lists", "groups", &groups); err != nil {
		return nil, err
	}
	return toLists(groups), nil
}

// IsSubscribed looks for listID among the subscriber's groups
func (m *MailerLite) IsSubscribed(ctx context.Context, email, listID string) (bool, error) {
	var groups []rawList
	if err := m.get(ctx, "is_subscribed", "subscribers/"+url.PathEscape(email)+"/groups", &groups); err != nil {
		if errors.IsType(err, errors.ErrTypeProvider) {
			return false, nil
		}
		return false, err
	}

	for _, g := range groups {
		if string(g.ID) == listID {
			return true, nil
		}
	}
	return false, nil
}

func (m *MailerLite) Subscribe(ctx context.Context, email, listID string) error {
	body := map[string]interface{}{
		"email":          email,
		"resubscribe":    true,
		"autoresponders": true,
		"type":           "active",
	}
	return m.post(ctx, "subscribe", "groups/"+url.PathEscape(listID)+"/subscribers", body, nil)
}

func (m *MailerLite) CheckConnection(ctx context.Context) ([]List, error) {
	if err := m.preflight(); err != nil {
		return nil, err
	}
	return m.Lists(ctx)
}

var _ Provider = (*MailerLite)(nil)
