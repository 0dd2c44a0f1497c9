// Package providers adapts newsletter provider APIs (MailChimp, ConvertKit,
// MailerLite) to one question: is this email subscribed to this list.
package providers

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"
)

// DefaultErrorMessage is shown when a provider error carries no message
const DefaultErrorMessage = "Something went wrong."

// Provider is one newsletter service
type Provider interface {
	ID() string
	Name() string
	Lists(ctx context.Context) ([]List, error)
	// IsSubscribed asks the provider directly. Any failure to get a positive
	// answer is reported as false; err is set only for transport failures.
	IsSubscribed(ctx context.Context, email, listID string) (bool, error)
	Subscribe(ctx context.Context, email, listID string) error
	// CheckConnection validates the credentials and returns the lists
	CheckConnection(ctx context.Context) ([]List, error)
	// OAuth returns nil when the provider has no OAuth code flow
	OAuth() *OAuthEndpoints
}

// List is a provider list, form or group
type List struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Credentials are read from settings for each request
type Credentials struct {
	APIKey    string
	APISecret string
	// AccessToken is the stored OAuth token, empty when not connected
	AccessToken string
	// OAuth endpoints are optional; both must be set for the code flow
	OAuth OAuthEndpoints
}

// OAuthEndpoints locate a provider's OAuth code flow
type OAuthEndpoints struct {
	AuthorizeURL string `json:"authorize_url"`
	TokenURL     string `json:"token_url"`
}

// Enabled reports whether both endpoints are set
func (e OAuthEndpoints) Enabled() bool {
	return e.AuthorizeURL != "" && e.TokenURL != ""
}

// flexID decodes an id the API may send as a number or a string
type flexID string

func (f *flexID) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = flexID(s)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = flexID(n.String())
	return nil
}

type rawList struct {
	ID   flexID `json:"id"`
	Name string `json:"name"`
}

func toLists(raw []rawList) []List {
	lists := make([]List, 0, len(raw))
	for _, r := range raw {
		lists = append(lists, List{ID: string(r.ID), Name: r.Name})
	}
	return lists
}

// Shortcode returns the embed snippet for a list
func Shortcode(providerID, listID string) string {
	return `[newslettergate provider="` + providerID + `" list="` + listID + `"]Content To Gate[/newslettergate]`
}

// normalizeEmail lower-cases and trims an address for comparison
func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func itoa(n int) string {
	return strconv.Itoa(n)
}
