package providers

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"newsletter-gate/internal/common/errors"
	gatehttp "newsletter-gate/internal/common/http"
	"newsletter-gate/internal/metrics"
)

// api is the request plumbing shared by the provider adapters
type api struct {
	id      string
	name    string
	baseURL string
	creds   Credentials
	client  *gatehttp.Client

	// headers returns the provider's default request headers
	headers func() map[string]string
	// errorMessage extracts the provider's message from an error body
	errorMessage func(body []byte) string
}

// Option customizes a provider at construction
type Option func(*api)

// WithBaseURL replaces the provider's API base URL
func WithBaseURL(baseURL string) Option {
	return func(a *api) {
		a.baseURL = baseURL
	}
}

func (a *api) ID() string   { return a.id }
func (a *api) Name() string { return a.name }

func (a *api) OAuth() *OAuthEndpoints {
	if !a.creds.OAuth.Enabled() {
		return nil
	}
	endpoints := a.creds.OAuth
	return &endpoints
}

// urlFor joins the base URL and resource with exactly one slash
func (a *api) urlFor(resource string) string {
	return strings.TrimRight(a.baseURL, "/") + "/" + strings.TrimLeft(resource, "/")
}

// preflight runs the connection checks that need no network call
func (a *api) preflight() error {
	if a.baseURL == "" {
		return errors.ValidationError("No API URL")
	}
	if a.creds.APIKey == "" {
		return errors.ValidationError("No API Key")
	}
	if a.OAuth() != nil && a.creds.APISecret == "" {
		return errors.ValidationError("OAuth requires a secret")
	}
	return nil
}

func (a *api) get(ctx context.Context, op, resource string, out interface{}) error {
	return a.do(ctx, op, http.MethodGet, resource, nil, out)
}

func (a *api) post(ctx context.Context, op, resource string, body, out interface{}) error {
	return a.do(ctx, op, http.MethodPost, resource, body, out)
}

func (a *api) put(ctx context.Context, op, resource string, body, out interface{}) error {
	return a.do(ctx, op, http.MethodPut, resource, body, out)
}

// do sends one request. A non-2xx answer becomes a provider error carrying
// the provider's message; transport failures keep their connection type.
func (a *api) do(ctx context.Context, op, method, resource string, body, out interface{}) (err error) {
	started := time.Now()
	defer func() {
		metrics.ObserveProviderRequest(a.id, op, started, err)
	}()

	if a.baseURL == "" {
		return errors.ConnectionError(fmt.Sprintf("%s has no API URL", a.name), nil)
	}

	headers := map[string]string{"Accept": "application/json"}
	for k, v := range a.headers() {
		headers[k] = v
	}
	if a.creds.AccessToken != "" && a.OAuth() != nil {
		headers["Authorization"] = "Bearer " + a.creds.AccessToken
	}

	req := &gatehttp.Request{
		Service: a.id,
		Method:  method,
		URL:     a.urlFor(resource),
		Headers: headers,
	}
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return errors.InternalError("failed to encode request body", err)
		}
		req.Body = raw
		if _, ok := headers["Content-Type"]; !ok {
			headers["Content-Type"] = "application/json"
		}
	}

	resp, err := a.client.Do(ctx, req)
	if err != nil {
		if resp != nil && !resp.IsSuccess() {
			return errors.ProviderError(a.id, a.message(resp.Body), err)
		}
		return err
	}

	if !resp.IsSuccess() {
		return errors.ProviderError(a.id, a.message(resp.Body), nil).
			WithContext("status", resp.StatusCode)
	}

	if out == nil || len(resp.Body) == 0 {
		return nil
	}
	if err := json.Unmarshal(resp.Body, out); err != nil {
		return errors.ProviderError(a.id, DefaultErrorMessage, err)
	}
	return nil
}

func (a *api) message(body []byte) string {
	if msg := a.errorMessage(body); msg != "" {
		return msg
	}
	return DefaultErrorMessage
}

// Status returns the HTTP status recorded on a provider error, or 0
func Status(err error) int {
	var appErr *errors.AppError
	if !stderrors.As(err, &appErr) {
		return 0
	}
	status, _ := appErr.Context["status"].(int)
	return status
}
