package handlers

import (
	"net/http"

	"github.com/gorilla/mux"

	"newsletter-gate/internal/auth"
	"newsletter-gate/internal/common/cache"
	"newsletter-gate/internal/common/errors"
	"newsletter-gate/internal/common/logging"
	"newsletter-gate/internal/providers"
)

// Integration handlers

// Integration summarizes one provider for the admin
type Integration struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Enabled        bool   `json:"enabled"`
	OAuth          bool   `json:"oauth"`
	OAuthConnected bool   `json:"oauth_connected"`
}

// ListWithShortcode is a provider list and the shortcode that gates content on it
type ListWithShortcode struct {
	providers.List
	Shortcode string `json:"shortcode"`
}

// OAuthAuthorizeResponse carries the provider consent URL
type OAuthAuthorizeResponse struct {
	URL string `json:"url"`
}

func withShortcodes(provider string, lists []providers.List) []ListWithShortcode {
	out := make([]ListWithShortcode, 0, len(lists))
	for _, l := range lists {
		out = append(out, ListWithShortcode{List: l, Shortcode: providers.Shortcode(provider, l.ID)})
	}
	return out
}

func listsKey(provider string) string {
	return "lists:" + provider
}

// cacheLists keeps a provider's lists for the admin UI. Failures only cost
// a provider call next time.
func (h *Handlers) cacheLists(r *http.Request, provider string, lists []providers.List) {
	if err := cache.SetJSON(r.Context(), h.lists, listsKey(provider), lists, 0); err != nil {
		h.logger.Warn("Failed to cache provider lists", logging.String("provider", provider), logging.Err(err))
	}
}

// forgetLists drops every cached list, e.g. after credentials change
func (h *Handlers) forgetLists(r *http.Request) {
	ids := h.providers.IDs()
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = listsKey(id)
	}
	if err := h.lists.Delete(r.Context(), keys...); err != nil {
		h.logger.Warn("Failed to clear cached provider lists", logging.Err(err))
	}
}

// provider resolves the {provider} path variable, enabled or not
func (h *Handlers) provider(r *http.Request) (providers.Provider, error) {
	return h.providers.Get(r.Context(), mux.Vars(r)["provider"])
}

// ListIntegrations returns every supported provider
// @Summary List integrations
// @Tags integrations
// @Produce json
// @Security SessionAuth
// @Success 200 {object} Response{data=[]Integration}
// @Failure 401 {object} Response
// @Router /api/integrations [get]
func (h *Handlers) ListIntegrations(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	ids := h.providers.IDs()
	out := make([]Integration, 0, len(ids))

	for _, id := range ids {
		item := Integration{ID: id, Name: h.providers.Name(id)}

		enabled, err := h.settings.Enabled(ctx, id)
		if err != nil {
			h.sendJSONError(w, r, err)
			return
		}
		item.Enabled = enabled

		p, err := h.providers.Get(ctx, id)
		if err != nil {
			h.sendJSONError(w, r, err)
			return
		}
		item.OAuth = p.OAuth() != nil

		if item.OAuth && h.oauth != nil {
			tok, err := h.oauth.Token(ctx, id)
			if err != nil {
				h.logger.Warn("Unreadable OAuth token", logging.String("provider", id), logging.Err(err))
			}
			item.OAuthConnected = tok != nil && tok.AccessToken != ""
		}
		out = append(out, item)
	}

	h.sendJSONResponse(w, out)
}

// GetIntegrationLists returns the provider's lists with shortcodes
// @Summary Provider lists
// @Description Fetches the lists, forms or groups from the provider. Answers are cached for a few minutes; ?refresh=1 bypasses the cache.
// @Tags integrations
// @Produce json
// @Security SessionAuth
// @Param provider path string true "Provider id"
// @Param refresh query bool false "Skip the cache"
// @Success 200 {object} Response{data=[]ListWithShortcode}
// @Failure 404 {object} Response "Unknown provider"
// @Failure 502 {object} Response "Provider error"
// @Router /api/integrations/{provider}/lists [get]
func (h *Handlers) GetIntegrationLists(w http.ResponseWriter, r *http.Request) {
	p, err := h.provider(r)
	if err != nil {
		h.sendJSONError(w, r, err)
		return
	}

	var lists []providers.List
	if r.URL.Query().Get("refresh") == "" && cache.GetJSON(r.Context(), h.lists, listsKey(p.ID()), &lists) {
		h.sendJSONResponse(w, withShortcodes(p.ID(), lists))
		return
	}

	lists, err = p.Lists(r.Context())
	if err != nil {
		h.sendJSONError(w, r, err)
		return
	}
	h.cacheLists(r, p.ID(), lists)
	h.sendJSONResponse(w, withShortcodes(p.ID(), lists))
}

// CheckIntegrationConnection validates the stored credentials
// @Summary Check connection
// @Description Calls the provider with the saved credentials and returns its lists on success
// @Tags integrations
// @Produce json
// @Security SessionAuth
// @Param provider path string true "Provider id"
// @Success 200 {object} Response{data=[]ListWithShortcode}
// @Failure 400 {object} Response "Missing credentials"
// @Failure 404 {object} Response "Unknown provider"
// @Failure 502 {object} Response "Provider error"
// @Router /api/integrations/{provider}/connection [post]
func (h *Handlers) CheckIntegrationConnection(w http.ResponseWriter, r *http.Request) {
	p, err := h.provider(r)
	if err != nil {
		h.sendJSONError(w, r, err)
		return
	}

	lists, err := p.CheckConnection(r.Context())
	if err != nil {
		h.lists.Delete(r.Context(), listsKey(p.ID()))
		h.sendJSONError(w, r, err)
		return
	}
	h.cacheLists(r, p.ID(), lists)
	h.sendJSONResponse(w, withShortcodes(p.ID(), lists))
}

// AuthorizeIntegration starts the OAuth code flow
// @Summary OAuth authorize URL
// @Description Returns the provider consent URL. The provider redirects back to /oauth/callback.
// @Tags integrations
// @Produce json
// @Security SessionAuth
// @Param provider path string true "Provider id"
// @Success 200 {object} Response{data=OAuthAuthorizeResponse}
// @Failure 400 {object} Response "OAuth not configured"
// @Router /api/integrations/{provider}/oauth/authorize [get]
func (h *Handlers) AuthorizeIntegration(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		h.sendJSONError(w, r, errors.AuthError("Authentication required"))
		return
	}

	id := mux.Vars(r)["provider"]
	if !h.providers.Has(id) {
		h.sendJSONError(w, r, errors.NotFoundError("provider "+id))
		return
	}

	url, err := h.oauth.AuthorizeURL(r.Context(), id, claims.Username)
	if err != nil {
		h.sendJSONError(w, r, err)
		return
	}
	h.sendJSONResponse(w, OAuthAuthorizeResponse{URL: url})
}
