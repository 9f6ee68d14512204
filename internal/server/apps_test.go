package server

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stagebox/stagebox/internal/store"
	"github.com/stagebox/stagebox/internal/tree"
)

// zipBytes builds an in-memory zip with the given entries.
func zipBytes(t *testing.T, entries map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, content := range entries {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := w.Write([]byte(content)); err != nil {
			t.Fatal(err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

// postUpload sends a multipart upload and returns the recorder.
func postUpload(t *testing.T, srv *Server, filename string, payload []byte) *httptest.ResponseRecorder {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := part.Write(payload); err != nil {
		t.Fatal(err)
	}
	mw.Close()

	req := httptest.NewRequest("POST", "/api/apps/upload", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)
	return w
}

var sampleProject = map[string]string{
	"index.html":        "<html><head></head><body>hi</body></html>",
	"package.json":      `{"dependencies": {"react": "^18.0.0"}}`,
	"src/app.js":        "console.log('hello')",
	"node_modules/x.js": "module.exports = 1",
	"logo.png":          "\x89PNG\x0d\x0a\x1a\x0a\x00\xff\xfe",
	"README.md":         "# Sample\n\nA test project.\n",
}

// uploadSample uploads the fixture project and returns its app record.
func uploadSample(t *testing.T, srv *Server) store.App {
	t.Helper()
	w := postUpload(t, srv, "sample.zip", zipBytes(t, sampleProject))
	if w.Code != http.StatusOK {
		t.Fatalf("upload status = %d: %s", w.Code, w.Body.String())
	}
	var app store.App
	if err := json.Unmarshal(w.Body.Bytes(), &app); err != nil {
		t.Fatalf("decoding upload response: %v", err)
	}
	return app
}

func get(srv *Server, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest("GET", path, nil)
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)
	return w
}

func TestUploadAndGet(t *testing.T) {
	srv := newTestServer(t)
	app := uploadSample(t, srv)

	if app.ID == "" {
		t.Fatal("upload response has no id")
	}
	if app.Name != "sample" {
		t.Errorf("name = %q, want sample", app.Name)
	}
	if app.Framework != "React" {
		t.Errorf("framework = %q, want React", app.Framework)
	}
	if app.EntryFile != "index.html" {
		t.Errorf("entry = %q, want index.html", app.EntryFile)
	}
	if app.FileCount != len(sampleProject) {
		t.Errorf("file_count = %d, want %d", app.FileCount, len(sampleProject))
	}
	if app.CreatedAt == "" {
		t.Error("created_at missing")
	}

	w := get(srv, "/api/apps/"+app.ID)
	if w.Code != http.StatusOK {
		t.Fatalf("get status = %d", w.Code)
	}

	if w := get(srv, "/api/apps/nope"); w.Code != http.StatusNotFound {
		t.Errorf("unknown app status = %d, want 404", w.Code)
	}
}

func TestUploadRejectsNonZip(t *testing.T) {
	srv := newTestServer(t)
	w := postUpload(t, srv, "project.tar.gz", []byte("whatever"))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
	if !strings.Contains(w.Body.String(), "ZIP") {
		t.Errorf("detail should mention ZIP: %s", w.Body.String())
	}
}

func TestUploadRejectsBadArchive(t *testing.T) {
	srv := newTestServer(t)
	w := postUpload(t, srv, "broken.zip", []byte("not actually a zip"))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}

	// Nothing half-extracted left behind.
	if w := get(srv, "/api/apps"); !strings.Contains(w.Body.String(), "[]") {
		t.Errorf("app list should stay empty, got %s", w.Body.String())
	}
}

func TestListApps(t *testing.T) {
	srv := newTestServer(t)

	w := get(srv, "/api/apps")
	if w.Code != http.StatusOK {
		t.Fatalf("list status = %d", w.Code)
	}
	var apps []store.App
	if err := json.Unmarshal(w.Body.Bytes(), &apps); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(apps) != 0 {
		t.Fatalf("expected empty list, got %d", len(apps))
	}

	uploadSample(t, srv)
	w = get(srv, "/api/apps")
	if err := json.Unmarshal(w.Body.Bytes(), &apps); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(apps) != 1 {
		t.Fatalf("expected 1 app, got %d", len(apps))
	}
}

func TestFilesTree(t *testing.T) {
	srv := newTestServer(t)
	app := uploadSample(t, srv)

	w := get(srv, "/api/apps/"+app.ID+"/files")
	if w.Code != http.StatusOK {
		t.Fatalf("files status = %d: %s", w.Code, w.Body.String())
	}

	var body struct {
		Tree map[string]any `json:"tree"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}

	root, err := tree.Build(body.Tree)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	// node_modules is hidden; directories come first.
	var names []string
	for _, c := range root.Children {
		names = append(names, c.Name)
	}
	want := []string{"src", "index.html", "logo.png", "package.json", "README.md"}
	if len(names) != len(want) {
		t.Fatalf("children = %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("child %d = %q, want %q", i, names[i], want[i])
		}
	}
	if tree.Find(root, "src/app.js") == nil {
		t.Error("src/app.js missing from tree")
	}
}

func TestContentText(t *testing.T) {
	srv := newTestServer(t)
	app := uploadSample(t, srv)

	w := get(srv, "/api/apps/"+app.ID+"/content/src/app.js")
	if w.Code != http.StatusOK {
		t.Fatalf("content status = %d", w.Code)
	}
	var fc FileContent
	if err := json.Unmarshal(w.Body.Bytes(), &fc); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if fc.Type != "text" {
		t.Fatalf("type = %q, want text", fc.Type)
	}
	if fc.Content == nil || *fc.Content != sampleProject["src/app.js"] {
		t.Errorf("content = %v", fc.Content)
	}
}

func TestContentBinary(t *testing.T) {
	srv := newTestServer(t)
	app := uploadSample(t, srv)

	w := get(srv, "/api/apps/"+app.ID+"/content/logo.png")
	if w.Code != http.StatusOK {
		t.Fatalf("content status = %d", w.Code)
	}
	var fc FileContent
	if err := json.Unmarshal(w.Body.Bytes(), &fc); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if fc.Type != "binary" {
		t.Fatalf("type = %q, want binary", fc.Type)
	}
	if fc.Content != nil {
		t.Error("binary content must be null")
	}
	if fc.Message == "" {
		t.Error("binary responses carry a message")
	}
}

func TestContentMissingAndTraversal(t *testing.T) {
	srv := newTestServer(t)
	app := uploadSample(t, srv)

	if w := get(srv, "/api/apps/"+app.ID+"/content/ghost.js"); w.Code != http.StatusNotFound {
		t.Errorf("missing file status = %d, want 404", w.Code)
	}
	if w := get(srv, "/api/apps/"+app.ID+"/content/../../../etc/passwd"); w.Code != http.StatusForbidden {
		t.Errorf("traversal status = %d, want 403", w.Code)
	}
}

func TestServeInjectsBaseHref(t *testing.T) {
	srv := newTestServer(t)
	app := uploadSample(t, srv)

	w := get(srv, "/api/apps/"+app.ID+"/serve/index.html")
	if w.Code != http.StatusOK {
		t.Fatalf("serve status = %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Errorf("content type = %q", ct)
	}
	wantBase := `<base href="/api/apps/` + app.ID + `/serve/">`
	if !strings.Contains(w.Body.String(), "<head>"+wantBase) {
		t.Errorf("base tag not injected after <head>: %s", w.Body.String())
	}
}

func TestServeSubResource(t *testing.T) {
	srv := newTestServer(t)
	app := uploadSample(t, srv)

	w := get(srv, "/api/apps/"+app.ID+"/serve/src/app.js")
	if w.Code != http.StatusOK {
		t.Fatalf("serve status = %d", w.Code)
	}
	if w.Body.String() != sampleProject["src/app.js"] {
		t.Errorf("body = %q", w.Body.String())
	}

	if w := get(srv, "/api/apps/"+app.ID+"/serve/missing.css"); w.Code != http.StatusNotFound {
		t.Errorf("missing asset status = %d, want 404", w.Code)
	}
}

func TestServeDirectoryFallsBackToIndex(t *testing.T) {
	srv := newTestServer(t)
	app := uploadSample(t, srv)

	// The app root falls back to its index.html.
	w := get(srv, "/api/apps/"+app.ID+"/serve/")
	if w.Code != http.StatusOK {
		t.Fatalf("serve root status = %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "<base href=") {
		t.Error("directory fallback should serve the injected index.html")
	}

	// A directory without an index is not listable.
	if w := get(srv, "/api/apps/"+app.ID+"/serve/src"); w.Code != http.StatusNotFound {
		t.Errorf("dir without index status = %d, want 404", w.Code)
	}
}

func TestDeleteApp(t *testing.T) {
	srv := newTestServer(t)
	app := uploadSample(t, srv)

	req := httptest.NewRequest("DELETE", "/api/apps/"+app.ID, nil)
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("delete status = %d", w.Code)
	}

	if w := get(srv, "/api/apps/"+app.ID); w.Code != http.StatusNotFound {
		t.Errorf("app still present after delete: %d", w.Code)
	}

	// A second delete of the same id is a normal 404.
	req = httptest.NewRequest("DELETE", "/api/apps/"+app.ID, nil)
	w = httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)
	if w.Code != http.StatusNotFound {
		t.Errorf("second delete status = %d, want 404", w.Code)
	}
}

func TestReadme(t *testing.T) {
	srv := newTestServer(t)
	app := uploadSample(t, srv)

	w := get(srv, "/api/apps/"+app.ID+"/readme")
	if w.Code != http.StatusOK {
		t.Fatalf("readme status = %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "<h1") {
		t.Errorf("readme should render markdown headings: %s", w.Body.String())
	}
}

func TestReadmeMissing(t *testing.T) {
	srv := newTestServer(t)
	w := postUpload(t, srv, "bare.zip", zipBytes(t, map[string]string{"index.html": "<html></html>"}))
	if w.Code != http.StatusOK {
		t.Fatalf("upload status = %d", w.Code)
	}
	var app store.App
	json.Unmarshal(w.Body.Bytes(), &app)

	if w := get(srv, "/api/apps/"+app.ID+"/readme"); w.Code != http.StatusNotFound {
		t.Errorf("readme status = %d, want 404", w.Code)
	}
}

func TestViewerPage(t *testing.T) {
	srv := newTestServer(t)
	app := uploadSample(t, srv)

	w := get(srv, "/viewer/"+app.ID)
	if w.Code != http.StatusOK {
		t.Fatalf("viewer status = %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "allow-scripts allow-same-origin allow-forms allow-popups allow-modals") {
		t.Error("viewer must carry the exact sandbox allowlist")
	}

	if w := get(srv, "/viewer/ghost"); w.Code != http.StatusNotFound {
		t.Errorf("unknown viewer status = %d, want 404", w.Code)
	}
}

func TestUploadFlattensWrapperDirectory(t *testing.T) {
	srv := newTestServer(t)
	wrapped := map[string]string{
		"my-app/index.html": "<html></html>",
		"my-app/app.js":     "1",
	}
	w := postUpload(t, srv, "wrapped.zip", zipBytes(t, wrapped))
	if w.Code != http.StatusOK {
		t.Fatalf("upload status = %d", w.Code)
	}
	var app store.App
	json.Unmarshal(w.Body.Bytes(), &app)

	if app.EntryFile != "index.html" {
		t.Errorf("entry = %q, want index.html (wrapper flattened)", app.EntryFile)
	}
}
