package handlers

import (
	"io/fs"
	"net/http"
)

// Frontend handlers

// ServeAssets serves the browser script and stylesheet that submit the
// gate forms. Sites include them next to /api/gate/styles.css.
// @Summary Serve gate assets
// @Description Serves newslettergate.js and newslettergate.css
// @Tags frontend
// @Produce plain
// @Success 200 {string} string "Asset"
// @Failure 404 {string} string "Asset not found"
// @Router /assets/{file} [get]
func (h *Handlers) ServeAssets() http.Handler {
	if h.webFS == nil {
		return http.NotFoundHandler()
	}

	assets, err := fs.Sub(h.webFS, "web")
	if err != nil {
		return http.NotFoundHandler()
	}

	files := http.StripPrefix("/assets/", http.FileServer(http.FS(assets)))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "public, max-age=3600")
		files.ServeHTTP(w, r)
	})
}
