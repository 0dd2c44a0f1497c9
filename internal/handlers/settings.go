package handlers

import (
	"net/http"
)

// Settings handlers

// GetSettings returns the form settings and provider status
// @Summary Get settings
// @Description Returns every form setting with its default and, per provider, whether it is enabled and which credentials are set. Secrets are never returned.
// @Tags settings
// @Produce json
// @Security SessionAuth
// @Success 200 {object} Response{data=settings.View}
// @Failure 401 {object} Response
// @Router /api/settings [get]
func (h *Handlers) GetSettings(w http.ResponseWriter, r *http.Request) {
	view, err := h.settings.View(r.Context())
	if err != nil {
		h.sendJSONError(w, r, err)
		return
	}
	h.sendJSONResponse(w, view)
}

// UpdateSettings updates settings
// @Summary Update settings
// @Description Validates and stores the given keys. Nothing is written when one value is invalid; an empty value resets the key to its default.
// @Tags settings
// @Accept json
// @Produce json
// @Security SessionAuth
// @Param settings body map[string]string true "Settings to update"
// @Success 200 {object} Response{data=settings.View}
// @Failure 400 {object} Response "Invalid key or value"
// @Failure 401 {object} Response
// @Router /api/settings [post]
func (h *Handlers) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	var values map[string]string
	if err := decodeJSON(r, &values); err != nil {
		h.sendJSONError(w, r, err)
		return
	}

	if err := h.settings.Update(r.Context(), values); err != nil {
		h.sendJSONError(w, r, err)
		return
	}
	h.forgetLists(r)

	view, err := h.settings.View(r.Context())
	if err != nil {
		h.sendJSONError(w, r, err)
		return
	}
	h.sendJSONResponse(w, view)
}
