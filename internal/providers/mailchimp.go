package providers

import (
	"context"
	"crypto/md5"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"net/url"
	"strings"

	"newsletter-gate/internal/common/errors"
	gatehttp "newsletter-gate/internal/common/http"
)

const (
	MailChimpID = "mailchimp"

	mailchimpURLTemplate = "https://<dc>.api.mailchimp.com/3.0/"
)

// MailChimp talks to the Marketing API v3. The data center is encoded in
// the API key after the last dash.
type MailChimp struct {
	api
}

func NewMailChimp(creds Credentials, client *gatehttp.Client, opts ...Option) *MailChimp {
	m := &MailChimp{api: api{
		id:           MailChimpID,
		name:         "MailChimp",
		baseURL:      mailchimpBaseURL(creds.APIKey),
		creds:        creds,
		client:       client,
		errorMessage: mailchimpError,
	}}
	m.headers = func() map[string]string {
		token := base64.StdEncoding.EncodeToString([]byte("newslettergate:" + m.creds.APIKey))
		return map[string]string{"Authorization": "Basic " + token}
	}
	for _, opt := range opts {
		opt(&m.api)
	}
	return m
}

// mailchimpBaseURL returns "" when the key carries no data center
func mailchimpBaseURL(apiKey string) string {
	i := strings.LastIndex(apiKey, "-")
	if i < 0 || i == len(apiKey)-1 {
		return ""
	}
	return strings.Replace(mailchimpURLTemplate, "<dc>", apiKey[i+1:], 1)
}

// SubscriberHash is MailChimp's member id: md5 of the lower-cased address
func SubscriberHash(email string) string {
	sum := md5.Sum([]byte(strings.ToLower(email)))
	return hex.EncodeToString(sum[:])
}

func mailchimpError(body []byte) string {
	var e struct {
		Title  string `json:"title"`
		Detail string `json:"detail"`
	}
	if json.Unmarshal(body, &e) != nil {
		return ""
	}
	if e.Detail != "" {
		return e.Detail
	}
	return e.Title
}

func (m *MailChimp) memberResource(email, listID string) string {
	return "lists/" + url.PathEscape(listID) + "/members/" + SubscriberHash(email)
}

func (m *MailChimp) Lists(ctx context.Context) ([]List, error) {
	var resp struct {
		Lists []rawList `json:"lists"`
	}
	if err := m.get(ctx, "lists", "lists?count=1000", &resp); err != nil {
		return nil, err
	}
	return toLists(resp.Lists), nil
}

// IsSubscribed is true only for members whose status is "subscribed";
// pending, unsubscribed and cleaned members do not pass the gate.
func (m *MailChimp) IsSubscribed(ctx context.Context, email, listID string) (bool, error) {
	var member struct {
		Status json.RawMessage `json:"status"`
	}
	if err := m.get(ctx, "is_subscribed", m.memberResource(email, listID), &member); err != nil {
		if errors.IsType(err, errors.ErrTypeProvider) {
			return false, nil
		}
		return false, err
	}

	// Error documents carry a numeric status
	var status string
	if json.Unmarshal(member.Status, &status) != nil {
		return false, nil
	}
	return status == "subscribed", nil
}

func (m *MailChimp) Subscribe(ctx context.Context, email, listID string) error {
	body := map[string]string{
		"email_address": email,
		"status":        "subscribed",
		"status_if_new": "subscribed",
	}
	return m.put(ctx, "subscribe", m.memberResource(email, listID), body, nil)
}

func (m *MailChimp) CheckConnection(ctx context.Context) ([]List, error) {
	if err := m.preflight(); err != nil {
		return nil, err
	}
	return m.Lists(ctx)
}

var _ Provider = (*MailChimp)(nil)
