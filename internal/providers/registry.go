package providers

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"newsletter-gate/internal/common/errors"
	gatehttp "newsletter-gate/internal/common/http"
)

// Constructor builds a provider for one set of credentials
type Constructor func(creds Credentials, client *gatehttp.Client, opts ...Option) Provider

// CredentialStore supplies per-provider settings. It is implemented by the
// settings service.
type CredentialStore interface {
	Enabled(ctx context.Context, providerID string) (bool, error)
	Credentials(ctx context.Context, providerID string) (Credentials, error)
}

// Registry knows the supported providers and builds them from stored
// credentials on demand, so settings changes apply to the next request.
type Registry struct {
	mu           sync.RWMutex
	constructors map[string]Constructor
	names        map[string]string
	baseURLs     map[string]string

	client *gatehttp.Client
	store  CredentialStore
}

// NewRegistry returns a registry with the built-in providers
func NewRegistry(client *gatehttp.Client, store CredentialStore) *Registry {
	r := &Registry{
		constructors: make(map[string]Constructor),
		names:        make(map[string]string),
		baseURLs:     make(map[string]string),
		client:       client,
		store:        store,
	}

	r.Register(MailChimpID, "MailChimp", func(c Credentials, cl *gatehttp.Client, o ...Option) Provider {
		return NewMailChimp(c, cl, o...)
	})
	r.Register(ConvertKitID, "ConvertKit", func(c Credentials, cl *gatehttp.Client, o ...Option) Provider {
		return NewConvertKit(c, cl, o...)
	})
	r.Register(MailerLiteID, "MailerLite", func(c Credentials, cl *gatehttp.Client, o ...Option) Provider {
		return NewMailerLite(c, cl, o...)
	})

	return r
}

func (r *Registry) Register(id, name string, constructor Constructor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.constructors[id] = constructor
	r.names[id] = name
}

// SetBaseURL points a provider at another API host
func (r *Registry) SetBaseURL(id, baseURL string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.baseURLs[id] = baseURL
}

// IDs returns the registered provider ids in sorted order
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.constructors))
	for id := range r.constructors {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Name returns the display name, or "" for an unknown id
func (r *Registry) Name(id string) string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.names[id]
}

func (r *Registry) Has(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.constructors[id]
	return ok
}

// Get builds the provider with its current credentials. Unknown ids are a
// not_found error; the enabled flag is not checked.
func (r *Registry) Get(ctx context.Context, id string) (Provider, error) {
	r.mu.RLock()
	constructor, ok := r.constructors[id]
	baseURL := r.baseURLs[id]
	r.mu.RUnlock()

	if !ok {
		return nil, errors.NotFoundError(fmt.Sprintf("provider %s", id))
	}

	creds, err := r.store.Credentials(ctx, id)
	if err != nil {
		return nil, err
	}

	var opts []Option
	if baseURL != "" {
		opts = append(opts, WithBaseURL(baseURL))
	}
	return constructor(creds, r.client, opts...), nil
}

// GetEnabled is Get restricted to enabled providers. The bool is false when
// the provider is unknown or disabled.
func (r *Registry) GetEnabled(ctx context.Context, id string) (Provider, bool, error) {
	if !r.Has(id) {
		return nil, false, nil
	}

	enabled, err := r.store.Enabled(ctx, id)
	if err != nil || !enabled {
		return nil, false, err
	}

	p, err := r.Get(ctx, id)
	if err != nil {
		return nil, false, err
	}
	return p, true, nil
}
