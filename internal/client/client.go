// Package client is a typed HTTP client for the stagebox backend API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// ErrNotZip is the client-side pre-flight failure for uploads that are
// not .zip archives. The file never leaves the machine in that case.
var ErrNotZip = errors.New("only .zip archives can be uploaded")

// APIError is a non-2xx response from the backend, carrying the
// backend-supplied detail when present.
type APIError struct {
	StatusCode int
	Detail     string
}

func (e *APIError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("server returned %d: %s", e.StatusCode, e.Detail)
	}
	return fmt.Sprintf("server returned %d", e.StatusCode)
}

// App mirrors the backend's app metadata payload.
type App struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Framework string `json:"framework,omitempty"`
	EntryFile string `json:"entry_file"`
	FileCount int    `json:"file_count"`
	SizeBytes int64  `json:"size_bytes"`
	CreatedAt string `json:"created_at"`
}

// FileContent is the payload of the content endpoint.
type FileContent struct {
	Type    string  `json:"type"` // "text" or "binary"
	Content *string `json:"content"`
	Message string  `json:"message,omitempty"`
}

// Client talks to a stagebox server.
type Client struct {
	baseURL string
	http    *http.Client
}

// New creates a client for the given base URL (e.g. http://localhost:8080).
func New(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 60 * time.Second},
	}
}

// ListApps returns all uploaded apps.
func (c *Client) ListApps(ctx context.Context) ([]App, error) {
	var apps []App
	if err := c.getJSON(ctx, "/api/apps", &apps); err != nil {
		return nil, err
	}
	return apps, nil
}

// GetApp returns one app's metadata.
func (c *Client) GetApp(ctx context.Context, id string) (*App, error) {
	var app App
	if err := c.getJSON(ctx, "/api/apps/"+url.PathEscape(id), &app); err != nil {
		return nil, err
	}
	return &app, nil
}

// DeleteApp removes an app and its files.
func (c *Client) DeleteApp(ctx context.Context, id string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.baseURL+"/api/apps/"+url.PathEscape(id), nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("deleting app: %w", err)
	}
	defer resp.Body.Close()
	return checkStatus(resp)
}

// Files returns the raw nested tree for an app, ready for tree.Build.
func (c *Client) Files(ctx context.Context, id string) (map[string]any, error) {
	var body struct {
		Tree map[string]any `json:"tree"`
	}
	if err := c.getJSON(ctx, "/api/apps/"+url.PathEscape(id)+"/files", &body); err != nil {
		return nil, err
	}
	return body.Tree, nil
}

// Content fetches one file's classified content.
func (c *Client) Content(ctx context.Context, id, path string) (*FileContent, error) {
	var fc FileContent
	if err := c.getJSON(ctx, "/api/apps/"+url.PathEscape(id)+"/content/"+escapePath(path), &fc); err != nil {
		return nil, err
	}
	return &fc, nil
}

// ServeURL is the URL the preview surface and the external-open action
// both resolve. Keeping a single constructor prevents drift between them.
func (c *Client) ServeURL(id, path string) string {
	return c.baseURL + "/api/apps/" + url.PathEscape(id) + "/serve/" + escapePath(path)
}

// ViewerURL is the embedded viewer page for an app.
func (c *Client) ViewerURL(id string) string {
	return c.baseURL + "/viewer/" + url.PathEscape(id)
}

// Upload sends a zip archive and returns the created app. onProgress, when
// non-nil, receives the transferred byte fraction in [0, 1], strictly
// non-decreasing, ending at 1 on success.
func (c *Client) Upload(ctx context.Context, zipPath, name string, onProgress func(fraction float64)) (*App, error) {
	if !strings.HasSuffix(strings.ToLower(zipPath), ".zip") {
		return nil, ErrNotZip
	}

	data, err := os.ReadFile(zipPath)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", zipPath, err)
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if name != "" {
		if err := mw.WriteField("name", name); err != nil {
			return nil, err
		}
	}
	part, err := mw.CreateFormFile("file", filepath.Base(zipPath))
	if err != nil {
		return nil, err
	}
	if _, err := part.Write(data); err != nil {
		return nil, err
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}

	reader := io.Reader(&body)
	if onProgress != nil {
		onProgress(0)
		reader = &progressReader{r: &body, total: int64(body.Len()), onProgress: onProgress}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/apps/upload", reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("uploading: %w", err)
	}
	defer resp.Body.Close()
	if err := checkStatus(resp); err != nil {
		return nil, err
	}

	var app App
	if err := json.NewDecoder(resp.Body).Decode(&app); err != nil {
		return nil, fmt.Errorf("decoding upload response: %w", err)
	}
	if onProgress != nil {
		onProgress(1)
	}
	return &app, nil
}

// progressReader reports cumulative read fractions to a callback.
type progressReader struct {
	r          io.Reader
	total      int64
	read       int64
	onProgress func(float64)
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	if n > 0 {
		p.read += int64(n)
		frac := float64(p.read) / float64(p.total)
		if frac > 1 {
			frac = 1
		}
		p.onProgress(frac)
	}
	return n, err
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("requesting %s: %w", path, err)
	}
	defer resp.Body.Close()
	if err := checkStatus(resp); err != nil {
		return err
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding %s: %w", path, err)
	}
	return nil
}

// checkStatus converts non-2xx responses into APIError, pulling the
// backend's detail message when the body carries one.
func checkStatus(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	apiErr := &APIError{StatusCode: resp.StatusCode}
	var body struct {
		Detail string `json:"detail"`
	}
	if data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<16)); err == nil {
		if json.Unmarshal(data, &body) == nil {
			apiErr.Detail = body.Detail
		}
	}
	return apiErr
}

// escapePath escapes each segment of a slash path for use in a URL.
func escapePath(p string) string {
	segs := strings.Split(p, "/")
	for i, s := range segs {
		segs[i] = url.PathEscape(s)
	}
	return strings.Join(segs, "/")
}
