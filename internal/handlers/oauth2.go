package handlers

import (
	"net/http"
	"time"

	"newsletter-gate/internal/auth"
	"newsletter-gate/internal/common/errors"
	"newsletter-gate/internal/common/logging"
	"newsletter-gate/internal/oauth2"
)

// OAuthCallbackResponse reports a completed OAuth connection
type OAuthCallbackResponse struct {
	Provider  string     `json:"provider"`
	Connected bool       `json:"connected"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

// stateProvider finds the provider whose state for admin matches
func (h *Handlers) stateProvider(admin, state string) (string, bool) {
	for _, id := range h.providers.IDs() {
		if oauth2.VerifyState(id, admin, state) {
			return id, true
		}
	}
	return "", false
}

// HandleOAuthCallback completes the OAuth code flow
// @Summary OAuth callback
// @Description Redirect target of the provider consent page. The state must match the logged in admin; the code is exchanged for a token that is stored encrypted.
// @Tags integrations
// @Produce json
// @Security SessionAuth
// @Param code query string true "Authorization code"
// @Param state query string true "State"
// @Success 200 {object} Response{data=OAuthCallbackResponse}
// @Failure 400 {object} Response "Missing code or state mismatch"
// @Failure 502 {object} Response "Token exchange failed"
// @Router /oauth/callback [get]
func (h *Handlers) HandleOAuthCallback(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		h.sendJSONError(w, r, errors.AuthError("Authentication required"))
		return
	}

	query := r.URL.Query()
	if providerErr := query.Get("error"); providerErr != "" {
		h.sendJSONError(w, r, errors.ValidationError("authorization denied: "+providerErr))
		return
	}

	code, state := query.Get("code"), query.Get("state")
	if code == "" || state == "" {
		h.sendJSONError(w, r, errors.ValidationError("missing code or state"))
		return
	}

	provider, ok := h.stateProvider(claims.Username, state)
	if !ok {
		h.sendJSONError(w, r, errors.ValidationError("state mismatch"))
		return
	}

	tok, err := h.oauth.Exchange(r.Context(), provider, code)
	if err != nil {
		h.sendJSONError(w, r, err)
		return
	}
	h.lists.Delete(r.Context(), listsKey(provider))

	h.logger.Info("OAuth connected",
		logging.String("provider", provider),
		logging.String("admin", claims.Username),
	)

	resp := OAuthCallbackResponse{Provider: provider, Connected: true}
	if !tok.Expiry.IsZero() {
		expiry := tok.Expiry
		resp.ExpiresAt = &expiry
	}
	h.sendJSONResponse(w, resp)
}
