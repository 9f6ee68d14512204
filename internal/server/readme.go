package server

import (
	"bytes"
	"net/http"
	"os"
	"path/filepath"

	chromahtml "github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/go-chi/chi/v5"
	"github.com/yuin/goldmark"
	highlighting "github.com/yuin/goldmark-highlighting/v2"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	gmhtml "github.com/yuin/goldmark/renderer/html"
)

// readmeNames are the filenames probed for a project README, in order.
var readmeNames = []string{"README.md", "readme.md", "Readme.md"}

// markdown renders README content with GFM tables and highlighted code
// fences for the viewer's about panel.
var markdown = goldmark.New(
	goldmark.WithExtensions(
		extension.GFM,
		highlighting.NewHighlighting(
			highlighting.WithStyle("github"),
			highlighting.WithFormatOptions(chromahtml.WithLineNumbers(false)),
		),
	),
	goldmark.WithParserOptions(parser.WithAutoHeadingID()),
	goldmark.WithRendererOptions(gmhtml.WithHardWraps()),
)

func (s *Server) handleReadme(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := s.db.GetApp(r.Context(), id); err != nil {
		appError(w, err)
		return
	}

	var data []byte
	found := false
	for _, name := range readmeNames {
		if b, err := os.ReadFile(filepath.Join(s.appDir(id), name)); err == nil {
			data, found = b, true
			break
		}
	}
	if !found {
		apiError(w, http.StatusNotFound, "no README in this app")
		return
	}

	var buf bytes.Buffer
	if err := markdown.Convert(data, &buf); err != nil {
		apiError(w, http.StatusInternalServerError, err.Error())
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(buf.Bytes())
}
