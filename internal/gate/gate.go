// Package gate decides whether a visitor may see gated content.
//
// A visitor is subscribed when, in order:
//
//  1. one of their ngate_<provider>_<n> cookies references an unexpired
//     cached row for the list,
//  2. an unexpired cached row exists for their email and the list, or
//  3. the provider API says so.
//
// A positive provider answer is cached for one month and the row's reference
// id is handed to the visitor in a new cookie, so the next visit stops at
// step 1.
package gate

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"newsletter-gate/internal/common/errors"
	"newsletter-gate/internal/common/logging"
	"newsletter-gate/internal/common/templates"
	"newsletter-gate/internal/common/utils"
	"newsletter-gate/internal/common/validation"
	"newsletter-gate/internal/events"
	"newsletter-gate/internal/locks"
	"newsletter-gate/internal/metrics"
	"newsletter-gate/internal/providers"
	"newsletter-gate/internal/settings"
	"newsletter-gate/internal/storage"
)

// Messages shown in the forms
const (
	MsgNotSubscribed   = "Your email is not subscribed to our email list. Please contact us to learn more."
	MsgSubscribeFailed = "We could not subscribe you. Please contact us"
	MsgInvalidEmail    = "Please enter a valid email address."
)

const (
	saveLockTTL = 10 * time.Second
	// lookupTimeout bounds a provider call shared by concurrent visitors
	lookupTimeout = 15 * time.Second
)

// Providers resolves enabled providers. *providers.Registry satisfies it.
type Providers interface {
	GetEnabled(ctx context.Context, id string) (providers.Provider, bool, error)
}

// Settings supplies the form copy and colors. *settings.Service satisfies it.
type Settings interface {
	Form(ctx context.Context) (*settings.Form, error)
	Colors(ctx context.Context) (*settings.Colors, error)
}

// Renderer renders the form templates
type Renderer interface {
	RenderForm(name string, data templates.FormData) (string, error)
}

// NonceIssuer signs the nonce embedded in every form
type NonceIssuer interface {
	IssueNonce() (string, error)
}

type Config struct {
	CookieTTL    time.Duration
	CookieDomain string
	CookieSecure bool
}

// Request is one check or subscribe submission
type Request struct {
	Provider string `json:"ng_integration"`
	Email    string `json:"ng_email"`
	ListID   string `json:"ng_list"`
}

// Result is the data of a successful AJAX answer: either reload the page or
// replace the form with HTML.
type Result struct {
	Reload bool   `json:"reload,omitempty"`
	HTML   string `json:"html,omitempty"`
}

type Gate struct {
	store     storage.Storage
	providers Providers
	settings  Settings
	templates Renderer
	nonces    NonceIssuer
	locks     locks.Manager
	events    events.Publisher
	config    Config

	lookups singleflight.Group
	now     func() time.Time
	logger  logging.Logger
}

type Option func(*Gate)

// WithLocks serializes saves of the same subscriber across instances
func WithLocks(m locks.Manager) Option {
	return func(g *Gate) { g.locks = m }
}

func WithEvents(p events.Publisher) Option {
	return func(g *Gate) { g.events = p }
}

func WithClock(now func() time.Time) Option {
	return func(g *Gate) { g.now = now }
}

func New(store storage.Storage, p Providers, s Settings, r Renderer, nonces NonceIssuer, config Config, opts ...Option) *Gate {
	if config.CookieTTL <= 0 {
		config.CookieTTL = 30 * 24 * time.Hour
	}

	g := &Gate{
		store:     store,
		providers: p,
		settings:  s,
		templates: r,
		nonces:    nonces,
		locks:     locks.NewLocalManager(),
		events:    events.Noop{},
		config:    config,
		now:       time.Now,
		logger:    logging.GetGlobalLogger().WithFields(logging.String("component", "gate")),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// NormalizeEmail trims and lower-cases an address so cache lookups match
// however the visitor typed it.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (g *Gate) timestamp() time.Time {
	return g.now().UTC().Truncate(time.Second)
}

// anyActive reports whether a row is unexpired and, when listID is set, for that list
func anyActive(rows []*storage.Subscriber, listID string, now time.Time) bool {
	for _, row := range rows {
		if !row.IsActive(now) {
			continue
		}
		if listID != "" && row.ListID != listID {
			continue
		}
		return true
	}
	return false
}

// IsSubscribedByCookie checks the cached rows referenced by the visitor's cookies
func (g *Gate) IsSubscribedByCookie(ctx context.Context, r *http.Request, provider, listID string) (bool, error) {
	cookies := CookiesForProvider(r, provider)
	if len(cookies) == 0 {
		return false, nil
	}

	rows, err := g.store.FindSubscribersByRefIDs(ctx, provider, refIDs(cookies))
	if err != nil {
		return false, err
	}
	return anyActive(rows, listID, g.now()), nil
}

// IsSubscribedByEmail checks the cached rows for the address
func (g *Gate) IsSubscribedByEmail(ctx context.Context, provider, email, listID string) (bool, error) {
	email = NormalizeEmail(email)
	if email == "" {
		return false, nil
	}

	rows, err := g.store.FindSubscribersByEmail(ctx, provider, email)
	if err != nil {
		return false, err
	}
	return anyActive(rows, listID, g.now()), nil
}

// IsSubscribed walks the three tiers and returns the one that answered, or
// metrics.SourceNone. Cache read failures fall through to the next tier.
// Concurrent provider lookups for the same address and list share one call.
func (g *Gate) IsSubscribed(ctx context.Context, r *http.Request, p providers.Provider, email, listID string) (bool, string) {
	provider := p.ID()
	source := metrics.SourceNone
	defer func() { metrics.ObserveResolution(provider, source) }()

	if r != nil {
		ok, err := g.IsSubscribedByCookie(ctx, r, provider, listID)
		if err != nil {
			g.logger.Warn("Cookie lookup failed", logging.String("provider", provider), logging.Err(err))
		}
		if ok {
			source = metrics.SourceCookie
			return true, source
		}
	}

	email = NormalizeEmail(email)
	if email == "" {
		return false, source
	}

	ok, err := g.IsSubscribedByEmail(ctx, provider, email, listID)
	if err != nil {
		g.logger.Warn("Email lookup failed", logging.String("provider", provider), logging.Err(err))
	}
	if ok {
		source = metrics.SourceEmail
		return true, source
	}

	key := provider + "\x00" + listID + "\x00" + email
	v, _, _ := g.lookups.Do(key, func() (interface{}, error) {
		// Waiters share this call, so it must outlive the caller that started it
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), lookupTimeout)
		defer cancel()

		subscribed, err := p.IsSubscribed(ctx, email, listID)
		if err != nil {
			g.logger.Warn("Provider lookup failed",
				logging.String("provider", provider),
				logging.String("list_id", listID),
				logging.Err(err),
			)
			return false, nil
		}
		return subscribed, nil
	})

	if subscribed, _ := v.(bool); subscribed {
		source = metrics.SourceProvider
		return true, source
	}
	return false, source
}

// Save caches the subscription for one month and gives the visitor a cookie
// for it unless they already hold one. An existing row keeps its reference
// id and only moves its expiry.
func (g *Gate) Save(ctx context.Context, w http.ResponseWriter, r *http.Request, email, provider, listID string) (*storage.Subscriber, error) {
	email = NormalizeEmail(email)
	key := fmt.Sprintf("subscriber:%s:%s:%s", provider, listID, email)

	var sub *storage.Subscriber
	err := locks.WithLock(ctx, g.locks, key, saveLockTTL, func(ctx context.Context) error {
		now := g.timestamp()

		existing, err := g.store.FindSubscriber(ctx, email, provider, listID)
		switch {
		case err == nil:
			sub = existing
		case stderrors.Is(err, storage.ErrNotFound):
			sub = &storage.Subscriber{
				Email:    email,
				Provider: provider,
				ListID:   listID,
				RefID:    NewRefID(),
				Date:     now,
			}
		default:
			return err
		}

		sub.ExpiresAt = utils.AddMonth(now)
		return g.store.UpsertSubscriber(ctx, sub)
	})
	if err != nil {
		return nil, errors.InternalError("failed to save subscriber", err)
	}

	if w != nil && r != nil {
		g.setRefCookie(w, r, provider, sub.RefID)
	}
	return sub, nil
}

// NewRefID returns 32 random hex characters
func NewRefID() string {
	id := uuid.New()
	return strings.ReplaceAll(id.String(), "-", "")
}

func (g *Gate) emit(ctx context.Context, eventType string, sub *storage.Subscriber) {
	event := events.Event{
		Type:       eventType,
		Provider:   sub.Provider,
		ListID:     sub.ListID,
		Email:      sub.Email,
		RefID:      sub.RefID,
		OccurredAt: g.timestamp(),
	}
	if err := g.events.Publish(ctx, event); err != nil {
		g.logger.Warn("Failed to publish event", logging.String("type", eventType), logging.Err(err))
	}
}

// enabledProvider returns a validation error for unknown or disabled providers
func (g *Gate) enabledProvider(ctx context.Context, id string) (providers.Provider, error) {
	p, ok, err := g.providers.GetEnabled(ctx, id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errors.ValidationError("integration is not available")
	}
	return p, nil
}

func validateRequest(req *Request) error {
	req.Email = NormalizeEmail(req.Email)
	req.ListID = strings.TrimSpace(req.ListID)

	v := validation.NewFluentValidator().
		RequireString(req.Provider, "ng_integration").
		RequireString(req.ListID, "ng_list")
	if !v.HasErrors() {
		v.RequireTag(req.Provider, "provider_id", "ng_integration", "a provider id").
			RequireTag(req.ListID, "list_id", "ng_list", "a list id")
	}
	if v.HasErrors() {
		return v.Error()
	}
	if !validation.IsEmail(req.Email) {
		return errors.ValidationError(MsgInvalidEmail)
	}
	return nil
}

// Check answers the unlock form. A subscribed visitor is cached and told to
// reload; anyone else gets the subscribe form, or the check form with an
// error when subscribing through the gate is disabled.
func (g *Gate) Check(ctx context.Context, w http.ResponseWriter, r *http.Request, req Request) (*Result, error) {
	if err := validateRequest(&req); err != nil {
		return nil, err
	}

	p, err := g.enabledProvider(ctx, req.Provider)
	if err != nil {
		return nil, err
	}

	subscribed, source := g.IsSubscribed(ctx, r, p, req.Email, req.ListID)
	if subscribed {
		sub, err := g.Save(ctx, w, r, req.Email, req.Provider, req.ListID)
		if err != nil {
			return nil, err
		}
		if source == metrics.SourceProvider {
			g.emit(ctx, events.TypeVerified, sub)
		}
		return &Result{Reload: true}, nil
	}

	form, err := g.settings.Form(ctx)
	if err != nil {
		return nil, err
	}
	if !form.EnableSubscribe {
		return g.subscribeCopyForm(templates.FormDefault, form, req, MsgNotSubscribed)
	}
	return g.subscribeCopyForm(templates.FormSubscribe, form, req, "")
}

// Subscribe adds the visitor to the list through the provider
func (g *Gate) Subscribe(ctx context.Context, w http.ResponseWriter, r *http.Request, req Request) (*Result, error) {
	if err := validateRequest(&req); err != nil {
		return nil, err
	}

	form, err := g.settings.Form(ctx)
	if err != nil {
		return nil, err
	}
	if !form.EnableSubscribe {
		return g.subscribeCopyForm(templates.FormDefault, form, req, MsgNotSubscribed)
	}

	p, err := g.enabledProvider(ctx, req.Provider)
	if err != nil {
		return nil, err
	}

	if err := p.Subscribe(ctx, req.Email, req.ListID); err != nil {
		metrics.ObserveSubscription(req.Provider, false)
		g.logger.Warn("Subscribe failed",
			logging.String("provider", req.Provider),
			logging.String("list_id", req.ListID),
			logging.Err(err),
		)
		return g.subscribeCopyForm(templates.FormSubscribe, form, req, visitorMessage(err))
	}
	metrics.ObserveSubscription(req.Provider, true)

	sub, err := g.Save(ctx, w, r, req.Email, req.Provider, req.ListID)
	if err != nil {
		return nil, err
	}
	g.emit(ctx, events.TypeSubscribed, sub)
	return &Result{Reload: true}, nil
}

// visitorMessage shows provider and validation messages as-is and hides
// everything else behind a generic one.
func visitorMessage(err error) string {
	switch errors.GetType(err) {
	case errors.ErrTypeProvider, errors.ErrTypeValidation:
		return errors.Message(err, MsgSubscribeFailed)
	}
	return MsgSubscribeFailed
}

// Render returns content when the visitor may see it and the unlock form
// otherwise. Content is not gated when the provider is unknown or disabled.
func (g *Gate) Render(ctx context.Context, r *http.Request, provider, listID, content string) (string, error) {
	p, ok, err := g.providers.GetEnabled(ctx, provider)
	if err != nil {
		return "", err
	}
	if !ok {
		return content, nil
	}

	if subscribed, _ := g.IsSubscribed(ctx, r, p, "", listID); subscribed {
		return content, nil
	}

	form, err := g.settings.Form(ctx)
	if err != nil {
		return "", err
	}
	return g.render(templates.FormDefault, templates.FormData{
		Heading:     form.Heading,
		Text:        form.Text,
		Button:      form.Button,
		Integration: provider,
		ListID:      listID,
	})
}

// subscribeCopyForm renders name with the "subscribe" copy of the settings
func (g *Gate) subscribeCopyForm(name string, form *settings.Form, req Request, errMsg string) (*Result, error) {
	data := templates.FormData{
		Heading:     form.HeadingSubscribe,
		Text:        form.TextSubscribe,
		Button:      form.ButtonSubscribe,
		Integration: req.Provider,
		ListID:      req.ListID,
		Email:       req.Email,
	}
	if errMsg != "" {
		data.Errors = []string{errMsg}
	}

	html, err := g.render(name, data)
	if err != nil {
		return nil, err
	}
	return &Result{HTML: html}, nil
}

func (g *Gate) render(name string, data templates.FormData) (string, error) {
	nonce, err := g.nonces.IssueNonce()
	if err != nil {
		return "", err
	}
	data.Nonce = nonce
	return g.templates.RenderForm(name, data)
}

// Styles returns the CSS setting the gate's color variables, "" when no
// color was saved.
func (g *Gate) Styles(ctx context.Context) (string, error) {
	c, err := g.settings.Colors(ctx)
	if err != nil {
		return "", err
	}
	return templates.Styles(
		templates.StyleVar{Name: "--newslettergate-background", Value: c.Background},
		templates.StyleVar{Name: "--newslettergate-heading", Value: c.Heading},
		templates.StyleVar{Name: "--newslettergate-text", Value: c.Text},
		templates.StyleVar{Name: "--newslettergate-button-bg", Value: c.ButtonBackground},
		templates.StyleVar{Name: "--newslettergate-button-text", Value: c.ButtonText},
	), nil
}
