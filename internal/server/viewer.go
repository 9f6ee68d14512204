package server

import (
	_ "embed"
	"net/http"

	"github.com/go-chi/chi/v5"
)

//go:embed viewer.html
var viewerHTML []byte

// handleViewer serves the embedded preview page. The page resolves the app
// id from its own URL and drives the API from the browser.
func (s *Server) handleViewer(w http.ResponseWriter, r *http.Request) {
	if _, err := s.db.GetApp(r.Context(), chi.URLParam(r, "id")); err != nil {
		appError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(viewerHTML)
}
