package handlers

import (
	"net/http"

	"newsletter-gate/internal/common/pagination"
	"newsletter-gate/internal/storage"
)

// ListSubscribers returns the local cache table a page at a time
// @Summary List cached subscribers
// @Description Verified subscriptions held locally, newest first. Expired rows are listed until the purge job removes them.
// @Tags subscribers
// @Produce json
// @Security SessionAuth
// @Param page query int false "Page, from 1"
// @Param per_page query int false "Rows per page, at most 100"
// @Success 200 {object} Response{data=pagination.Page[storage.Subscriber]}
// @Failure 400 {object} Response "Invalid page parameters"
// @Failure 401 {object} Response
// @Router /api/subscribers [get]
func (h *Handlers) ListSubscribers(w http.ResponseWriter, r *http.Request) {
	params, err := pagination.Parse(r)
	if err != nil {
		h.sendJSONError(w, r, err)
		return
	}

	total, err := h.storage.CountSubscribers(r.Context())
	if err != nil {
		h.sendJSONError(w, r, err)
		return
	}

	rows, err := h.storage.ListSubscribers(r.Context(), params.Limit, params.Offset)
	if err != nil {
		h.sendJSONError(w, r, err)
		return
	}
	h.sendJSONResponse(w, pagination.NewPage[*storage.Subscriber](rows, params, total))
}
