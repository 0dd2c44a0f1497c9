package handlers

import (
	"mime"
	"net/http"
	"strings"

	"newsletter-gate/internal/common/errors"
	"newsletter-gate/internal/common/logging"
	"newsletter-gate/internal/gate"
)

// Gate handlers

// GateRequest is the body of a check or subscribe submission, form encoded
// or JSON.
type GateRequest struct {
	gate.Request
	Nonce string `json:"nonce"`
}

// NonceResponse carries a fresh form nonce
type NonceResponse struct {
	Nonce string `json:"nonce"`
}

func readGateRequest(r *http.Request) (*GateRequest, error) {
	req := &GateRequest{}
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "application/json" {
		if err := decodeJSON(r, req); err != nil {
			return nil, err
		}
		return req, nil
	}

	if err := r.ParseForm(); err != nil {
		return nil, errors.ValidationError("Invalid form data")
	}
	req.Provider = r.PostForm.Get("ng_integration")
	req.Email = r.PostForm.Get("ng_email")
	req.ListID = r.PostForm.Get("ng_list")
	req.Nonce = r.PostForm.Get("nonce")
	return req, nil
}

// readVerified parses the submission and checks its nonce
func (h *Handlers) readVerified(r *http.Request) (*GateRequest, error) {
	req, err := readGateRequest(r)
	if err != nil {
		return nil, err
	}
	if err := h.auth.VerifyNonce(req.Nonce); err != nil {
		return nil, err
	}
	return req, nil
}

// HandleCheck checks whether the visitor is subscribed
// @Summary Check subscription
// @Description Unlocks the content when the email is subscribed to the list. A subscribed visitor gets a reference cookie and reload=true; anyone else gets the next form as HTML.
// @Tags gate
// @Accept json,x-www-form-urlencoded
// @Produce json
// @Param request body GateRequest true "Submission"
// @Success 200 {object} Response{data=gate.Result}
// @Failure 400 {object} Response "Invalid submission"
// @Failure 401 {object} Response "Invalid nonce"
// @Router /api/gate/check [post]
func (h *Handlers) HandleCheck(w http.ResponseWriter, r *http.Request) {
	req, err := h.readVerified(r)
	if err != nil {
		h.sendGateError(w, r, err)
		return
	}

	result, err := h.gate.Check(r.Context(), w, r, req.Request)
	if err != nil {
		h.sendGateError(w, r, err)
		return
	}
	h.sendJSONResponse(w, result)
}

// HandleSubscribe subscribes the visitor through the provider
// @Summary Subscribe
// @Description Adds the email to the provider list and unlocks the content. Provider errors come back inside the re-rendered subscribe form.
// @Tags gate
// @Accept json,x-www-form-urlencoded
// @Produce json
// @Param request body GateRequest true "Submission"
// @Success 200 {object} Response{data=gate.Result}
// @Failure 400 {object} Response "Invalid submission"
// @Failure 401 {object} Response "Invalid nonce"
// @Router /api/gate/subscribe [post]
func (h *Handlers) HandleSubscribe(w http.ResponseWriter, r *http.Request) {
	req, err := h.readVerified(r)
	if err != nil {
		h.sendGateError(w, r, err)
		return
	}

	result, err := h.gate.Subscribe(r.Context(), w, r, req.Request)
	if err != nil {
		h.sendGateError(w, r, err)
		return
	}
	h.sendJSONResponse(w, result)
}

// HandleRender renders gated content
// @Summary Render gated content
// @Description Returns the content when the visitor's cookies unlock the list, otherwise the unlock form. Content is posted as the "content" form field.
// @Tags gate
// @Accept x-www-form-urlencoded
// @Produce html
// @Param provider query string true "Provider id"
// @Param list query string false "List id; empty unlocks for any list of the provider"
// @Param content formData string false "Gated content"
// @Success 200 {string} string "Content or form HTML"
// @Router /api/gate/render [get]
// @Router /api/gate/render [post]
func (h *Handlers) HandleRender(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.sendGateError(w, r, errors.ValidationError("Invalid form data"))
		return
	}

	provider := strings.TrimSpace(r.Form.Get("provider"))
	list := strings.TrimSpace(r.Form.Get("list"))
	if provider == "" {
		h.sendGateError(w, r, errors.ValidationError("provider is required"))
		return
	}

	html, err := h.gate.Render(r.Context(), r, provider, list, r.PostForm.Get("content"))
	if err != nil {
		h.sendGateError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "private, no-store")
	_, _ = w.Write([]byte(html))
}

// HandleNonce issues a form nonce
// @Summary Issue nonce
// @Description Returns a nonce for pages that build the forms themselves
// @Tags gate
// @Produce json
// @Success 200 {object} Response{data=NonceResponse}
// @Router /api/gate/nonce [get]
func (h *Handlers) HandleNonce(w http.ResponseWriter, r *http.Request) {
	nonce, err := h.auth.IssueNonce()
	if err != nil {
		h.sendGateError(w, r, err)
		return
	}
	w.Header().Set("Cache-Control", "no-store")
	h.sendJSONResponse(w, NonceResponse{Nonce: nonce})
}

// HandleStyles serves the color variables
// @Summary Gate styles
// @Description CSS custom properties from the saved colors
// @Tags gate
// @Produce text/css
// @Success 200 {string} string "CSS"
// @Router /api/gate/styles.css [get]
func (h *Handlers) HandleStyles(w http.ResponseWriter, r *http.Request) {
	css, err := h.gate.Styles(r.Context())
	if err != nil {
		h.logger.Warn("Failed to build styles", logging.Err(err))
		css = ""
	}
	w.Header().Set("Content-Type", "text/css; charset=utf-8")
	w.Header().Set("Cache-Control", "public, max-age=300")
	_, _ = w.Write([]byte(css))
}
