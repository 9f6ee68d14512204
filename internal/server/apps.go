package server

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"mime"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/stagebox/stagebox/internal/archive"
	"github.com/stagebox/stagebox/internal/store"
	"github.com/stagebox/stagebox/internal/tree"
)

// FileContent is the payload of the content endpoint. Content is null for
// binary files; clients must not attempt to render it in that case.
type FileContent struct {
	Content *string `json:"content"`
	Type    string  `json:"type"`
	Message string  `json:"message,omitempty"`
}

// registerAppRoutes mounts all app endpoints under /api/apps.
func (s *Server) registerAppRoutes(r chi.Router) {
	r.Route("/api/apps", func(r chi.Router) {
		r.Get("/", s.handleListApps)
		r.Post("/upload", s.handleUpload)
		r.Get("/{id}", s.handleGetApp)
		r.Delete("/{id}", s.handleDeleteApp)
		r.Get("/{id}/files", s.handleFiles)
		r.Get("/{id}/readme", s.handleReadme)
		r.Get("/{id}/content/*", s.handleContent)
		r.Get("/{id}/serve/*", s.handleServe)
	})
}

func (s *Server) handleListApps(w http.ResponseWriter, r *http.Request) {
	apps, err := s.db.ListApps(r.Context())
	if err != nil {
		apiError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, apps)
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		apiError(w, http.StatusBadRequest, "reading upload: "+err.Error())
		return
	}

	f, hdr, err := r.FormFile("file")
	if err != nil {
		apiError(w, http.StatusBadRequest, "multipart field 'file' is required")
		return
	}
	defer f.Close()

	if !strings.HasSuffix(strings.ToLower(hdr.Filename), ".zip") {
		apiError(w, http.StatusBadRequest, "only ZIP files are allowed")
		return
	}

	id := uuid.NewString()
	if err := os.MkdirAll(s.appsDir(), 0o755); err != nil {
		apiError(w, http.StatusInternalServerError, err.Error())
		return
	}

	// Spool the archive to disk, extract, then drop the zip.
	zipPath := filepath.Join(s.appsDir(), id+".zip")
	dst, err := os.Create(zipPath)
	if err != nil {
		apiError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if _, err := io.Copy(dst, f); err != nil {
		dst.Close()
		os.Remove(zipPath)
		apiError(w, http.StatusInternalServerError, "saving upload: "+err.Error())
		return
	}
	dst.Close()
	defer os.Remove(zipPath)

	appDir := s.appDir(id)
	if err := archive.Extract(zipPath, appDir); err != nil {
		os.RemoveAll(appDir)
		if errors.Is(err, archive.ErrBadArchive) {
			apiError(w, http.StatusBadRequest, "invalid ZIP file")
		} else {
			log.Printf("server: extracting upload %s: %v", hdr.Filename, err)
			apiError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}

	name := r.FormValue("name")
	if name == "" {
		name = strings.TrimSuffix(hdr.Filename, filepath.Ext(hdr.Filename))
	}

	count, size := archive.Stats(appDir)
	app := &store.App{
		ID:        id,
		Name:      name,
		Framework: archive.DetectFramework(appDir),
		EntryFile: archive.FindEntryFile(appDir),
		FileCount: count,
		SizeBytes: size,
	}

	if err := s.db.InsertApp(r.Context(), app); err != nil {
		os.RemoveAll(appDir)
		apiError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.hub.broadcast("created", id)
	writeJSON(w, http.StatusOK, app)
}

func (s *Server) handleGetApp(w http.ResponseWriter, r *http.Request) {
	app, err := s.db.GetApp(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		appError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, app)
}

func (s *Server) handleDeleteApp(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := s.db.GetApp(r.Context(), id); err != nil {
		appError(w, err)
		return
	}

	if err := os.RemoveAll(s.appDir(id)); err != nil {
		apiError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if err := s.db.DeleteApp(r.Context(), id); err != nil {
		appError(w, err)
		return
	}

	s.hub.broadcast("deleted", id)
	writeJSON(w, http.StatusOK, map[string]string{"message": "app deleted"})
}

func (s *Server) handleFiles(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := s.db.GetApp(r.Context(), id); err != nil {
		appError(w, err)
		return
	}

	appDir := s.appDir(id)
	if _, err := os.Stat(appDir); err != nil {
		apiError(w, http.StatusNotFound, "app files not found")
		return
	}

	t, err := tree.BuildDir(appDir, archive.Skipper(s.cfg.IgnoreGlobs))
	if err != nil {
		apiError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]*tree.FileNode{"tree": t})
}

// textTypePrefixes marks mime types rendered as text in the code view.
var textTypePrefixes = []string{"text/", "application/json", "application/javascript", "application/xml"}

// extraTextExts covers source extensions the mime table misses.
var extraTextExts = map[string]bool{
	".md": true, ".markdown": true, ".jsx": true, ".tsx": true, ".ts": true,
	".vue": true, ".svelte": true, ".yml": true, ".yaml": true, ".toml": true,
	".env": true, ".map": true, ".lock": true, ".gitignore": true,
}

func isTextType(fullPath string) bool {
	ext := strings.ToLower(filepath.Ext(fullPath))
	if extraTextExts[ext] {
		return true
	}
	ctype := mime.TypeByExtension(ext)
	for _, p := range textTypePrefixes {
		if strings.Contains(ctype, p) {
			return true
		}
	}
	return false
}

func (s *Server) handleContent(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := s.db.GetApp(r.Context(), id); err != nil {
		appError(w, err)
		return
	}

	full, ok := s.resolvePath(w, id, chi.URLParam(r, "*"))
	if !ok {
		return
	}

	info, err := os.Stat(full)
	if err != nil || info.IsDir() {
		apiError(w, http.StatusNotFound, "file not found")
		return
	}

	if isTextType(full) {
		data, err := os.ReadFile(full)
		if err == nil && utf8.Valid(data) {
			content := string(data)
			writeJSON(w, http.StatusOK, FileContent{Content: &content, Type: "text"})
			return
		}
	}

	writeJSON(w, http.StatusOK, FileContent{Type: "binary", Message: "Binary file - cannot display"})
}

func (s *Server) handleServe(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := s.db.GetApp(r.Context(), id); err != nil {
		appError(w, err)
		return
	}

	full, ok := s.resolvePath(w, id, chi.URLParam(r, "*"))
	if !ok {
		return
	}

	info, err := os.Stat(full)
	if err != nil {
		apiError(w, http.StatusNotFound, "file not found")
		return
	}
	if info.IsDir() {
		index := filepath.Join(full, "index.html")
		if _, err := os.Stat(index); err != nil {
			apiError(w, http.StatusNotFound, "directory listing not allowed")
			return
		}
		full = index
	}

	ctype := mime.TypeByExtension(filepath.Ext(full))
	if ctype == "" {
		ctype = "application/octet-stream"
	}

	// HTML gets a <base> tag so the app's relative assets resolve back
	// through the serve endpoint.
	if strings.HasPrefix(ctype, "text/html") {
		data, err := os.ReadFile(full)
		if err != nil {
			apiError(w, http.StatusInternalServerError, err.Error())
			return
		}
		w.Header().Set("Content-Type", ctype)
		w.Write(injectBaseHref(data, "/api/apps/"+id+"/serve/"))
		return
	}

	src, err := os.Open(full)
	if err != nil {
		apiError(w, http.StatusInternalServerError, err.Error())
		return
	}
	defer src.Close()

	w.Header().Set("Content-Type", ctype)
	io.Copy(w, src)
}

// injectBaseHref inserts a <base> tag after the opening <head> so relative
// sub-resource URLs resolve under the serve endpoint.
func injectBaseHref(doc []byte, baseURL string) []byte {
	base := `<base href="` + baseURL + `">`
	content := string(doc)
	switch {
	case strings.Contains(content, "<head>"):
		content = strings.Replace(content, "<head>", "<head>"+base, 1)
	case strings.Contains(content, "<HEAD>"):
		content = strings.Replace(content, "<HEAD>", "<HEAD>"+base, 1)
	default:
		content = base + content
	}
	return []byte(content)
}

// resolvePath turns the wildcard URL segment into an absolute path inside
// the app directory, writing a 403 when the path escapes it.
func (s *Server) resolvePath(w http.ResponseWriter, id, raw string) (string, bool) {
	rel, err := url.PathUnescape(raw)
	if err != nil {
		rel = raw
	}
	rel = path.Clean(strings.TrimPrefix(rel, "/"))
	if rel == ".." || strings.HasPrefix(rel, "../") {
		apiError(w, http.StatusForbidden, "access denied")
		return "", false
	}
	return filepath.Join(s.appDir(id), filepath.FromSlash(rel)), true
}

// appError maps store errors onto API responses.
func appError(w http.ResponseWriter, err error) {
	if errors.Is(err, store.ErrNotFound) {
		apiError(w, http.StatusNotFound, "app not found")
		return
	}
	apiError(w, http.StatusInternalServerError, err.Error())
}

func apiError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
