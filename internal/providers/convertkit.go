package providers

import (
	"context"
	"encoding/json"
	"net/url"

	"newsletter-gate/internal/common/errors"
	gatehttp "newsletter-gate/internal/common/http"
)

const (
	ConvertKitID = "convertkit"

	convertkitBaseURL = "https://api.convertkit.com/v3/"
)

// ConvertKit talks to the v3 API. Lists are forms; the API secret is passed
// as a query parameter and is what the settings call the API key.
type ConvertKit struct {
	api
}

func NewConvertKit(creds Credentials, client *gatehttp.Client, opts ...Option) *ConvertKit {
	c := &ConvertKit{api: api{
		id:           ConvertKitID,
		name:         "ConvertKit",
		baseURL:      convertkitBaseURL,
		creds:        creds,
		client:       client,
		errorMessage: convertkitError,
		headers: func() map[string]string {
			return map[string]string{"Content-Type": "application/json; charset=utf-8"}
		},
	}}
	for _, opt := range opts {
		opt(&c.api)
	}
	return c
}

func convertkitError(body []byte) string {
	var e struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if json.Unmarshal(body, &e) != nil || e.Error == "" {
		return ""
	}
	return e.Error + ": " + e.Message
}

func (c *ConvertKit) secret() string {
	return url.QueryEscape(c.creds.APIKey)
}

func (c *ConvertKit) Lists(ctx context.Context) ([]List, error) {
	var resp struct {
		Forms []rawList `json:"forms"`
	}
	if err := c.get(ctx, "lists", "forms?api_secret="+c.secret(), &resp); err != nil {
		return nil, err
	}
	return toLists(resp.Forms), nil
}

type convertkitSubscriptions struct {
	TotalPages    int `json:"total_pages"`
	Subscriptions []struct {
		Subscriber struct {
			EmailAddress string `json:"email_address"`
		} `json:"subscriber"`
	} `json:"subscriptions"`
}

// IsSubscribed pages through the active subscriptions of the form
func (c *ConvertKit) IsSubscribed(ctx context.Context, email, listID string) (bool, error) {
	want := normalizeEmail(email)

	for page, totalPages := 1, 1; page <= totalPages; page++ {
		var resp convertkitSubscriptions
		resource := "forms/" + url.PathEscape(listID) + "/subscriptions?subscriber_state=active&api_secret=" +
			c.secret() + "&page=" + itoa(page)
		if err := c.get(ctx, "is_subscribed", resource, &resp); err != nil {
			if errors.IsType(err, errors.ErrTypeProvider) {
				return false, nil
			}
			return false, err
		}
		if len(resp.Subscriptions) == 0 {
			return false, nil
		}

		for _, s := range resp.Subscriptions {
			if normalizeEmail(s.Subscriber.EmailAddress) == want {
				return true, nil
			}
		}
		totalPages = resp.TotalPages
	}
	return false, nil
}

func (c *ConvertKit) Subscribe(ctx context.Context, email, listID string) error {
	body := map[string]string{
		"email":      email,
		"api_secret": c.creds.APIKey,
	}
	return c.post(ctx, "subscribe", "forms/"+url.PathEscape(listID)+"/subscribe", body, nil)
}

func (c *ConvertKit) CheckConnection(ctx context.Context) ([]List, error) {
	if err := c.preflight(); err != nil {
		return nil, err
	}
	return c.Lists(ctx)
}

var _ Provider = (*ConvertKit)(nil)
