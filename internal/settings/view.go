package settings

import (
	"context"
	"encoding/json"

	"newsletter-gate/internal/common/errors"
)

// Form is the resolved copy of the gate forms
type Form struct {
	Heading          string `json:"heading"`
	Text             string `json:"text"`
	Button           string `json:"button"`
	EnableSubscribe  bool   `json:"enable_subscribe"`
	HeadingSubscribe string `json:"heading_subscribe"`
	TextSubscribe    string `json:"text_subscribe"`
	ButtonSubscribe  string `json:"button_subscribe"`
}

// Colors holds only the colors that were explicitly saved
type Colors struct {
	Background       string `json:"bg_color,omitempty"`
	Heading          string `json:"color,omitempty"`
	Text             string `json:"text_color,omitempty"`
	ButtonBackground string `json:"button_bg_color,omitempty"`
	ButtonText       string `json:"button_text_color,omitempty"`
}

// ProviderView is the admin view of one provider, without secrets
type ProviderView struct {
	ID                string `json:"id"`
	Enabled           bool   `json:"enabled"`
	HasAPIKey         bool   `json:"has_api_key"`
	HasAPISecret      bool   `json:"has_api_secret"`
	OAuthAuthorizeURL string `json:"oauth_authorize_url,omitempty"`
	OAuthTokenURL     string `json:"oauth_token_url,omitempty"`
	OAuthConnected    bool   `json:"oauth_connected"`
}

// View is what the admin API returns
type View struct {
	Values    map[string]string `json:"values"`
	Defaults  map[string]string `json:"defaults"`
	Providers []ProviderView    `json:"providers"`
}

// Form resolves the form copy with defaults applied
func (s *Service) Form(ctx context.Context) (*Form, error) {
	form := &Form{}
	targets := map[string]*string{
		KeyHeading:          &form.Heading,
		KeyText:             &form.Text,
		KeyButton:           &form.Button,
		KeyHeadingSubscribe: &form.HeadingSubscribe,
		KeyTextSubscribe:    &form.TextSubscribe,
		KeyButtonSubscribe:  &form.ButtonSubscribe,
	}
	for key, dst := range targets {
		value, err := s.Get(ctx, key)
		if err != nil {
			return nil, err
		}
		*dst = value
	}

	enabled, err := s.Bool(ctx, KeyEnableSubscribe)
	if err != nil {
		return nil, err
	}
	form.EnableSubscribe = enabled
	return form, nil
}

// Colors returns the saved colors; unset ones stay empty
func (s *Service) Colors(ctx context.Context) (*Colors, error) {
	colors := &Colors{}
	targets := map[string]*string{
		KeyBgColor:         &colors.Background,
		KeyColor:           &colors.Heading,
		KeyTextColor:       &colors.Text,
		KeyButtonBgColor:   &colors.ButtonBackground,
		KeyButtonTextColor: &colors.ButtonText,
	}
	for key, dst := range targets {
		value, err := s.Raw(ctx, key)
		if err != nil {
			return nil, err
		}
		*dst = value
	}
	return colors, nil
}

// View returns every non-secret value plus per-provider status
func (s *Service) View(ctx context.Context) (*View, error) {
	view := &View{
		Values:   make(map[string]string),
		Defaults: make(map[string]string),
	}

	for _, f := range formFields {
		value, err := s.Get(ctx, f.Key)
		if err != nil {
			return nil, err
		}
		view.Values[f.Key] = value
		view.Defaults[f.Key] = f.Default
	}

	for _, id := range s.providers {
		pv, err := s.providerView(ctx, id)
		if err != nil {
			return nil, err
		}
		view.Providers = append(view.Providers, pv)
	}
	return view, nil
}

func (s *Service) providerView(ctx context.Context, id string) (ProviderView, error) {
	pv := ProviderView{ID: id}

	enabled, err := s.Enabled(ctx, id)
	if err != nil {
		return pv, err
	}
	pv.Enabled = enabled

	// Presence only; stored secrets need no decryption
	for suffix, dst := range map[string]*bool{SuffixAPIKey: &pv.HasAPIKey, SuffixAPISecret: &pv.HasAPISecret} {
		value, err := s.store.GetSetting(ctx, ProviderKey(id, suffix))
		if err != nil {
			return pv, err
		}
		*dst = value != ""
	}

	if pv.OAuthAuthorizeURL, err = s.Raw(ctx, ProviderKey(id, SuffixOAuthAuthorizeURL)); err != nil {
		return pv, err
	}
	if pv.OAuthTokenURL, err = s.Raw(ctx, ProviderKey(id, SuffixOAuthTokenURL)); err != nil {
		return pv, err
	}

	token, err := s.store.GetSetting(ctx, OAuthTokenKey(id))
	if err != nil {
		return pv, err
	}
	pv.OAuthConnected = token != ""
	return pv, nil
}

func jsonString(v interface{}) (string, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return "", errors.InternalError("failed to marshal JSON", err)
	}
	return string(raw), nil
}

func unmarshalString(value string, v interface{}) error {
	if err := json.Unmarshal([]byte(value), v); err != nil {
		return errors.InternalError("failed to unmarshal JSON", err)
	}
	return nil
}
