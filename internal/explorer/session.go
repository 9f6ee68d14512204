// Package explorer holds the runtime state of one app-preview session:
// the file tree, its expansion overlay, the current selection and file
// content, the preview/code view machine, and the preview surface.
package explorer

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/stagebox/stagebox/internal/client"
	"github.com/stagebox/stagebox/internal/tree"
)

// ViewMode is the active tab of the viewer.
type ViewMode string

const (
	ModePreview ViewMode = "preview"
	ModeCode    ViewMode = "code"
)

// ContentKind classifies loaded file content.
type ContentKind string

const (
	ContentText   ContentKind = "text"
	ContentBinary ContentKind = "binary"
	ContentError  ContentKind = "error"
)

// Content is the result of loading one file.
type Content struct {
	Kind    ContentKind
	Payload string // set when Kind == ContentText
	Message string // set when Kind is binary or error
}

// ErrNotFile is returned when Select is called with a directory node.
var ErrNotFile = errors.New("only file nodes can be selected")

// API is the slice of the backend client a session needs.
type API interface {
	GetApp(ctx context.Context, id string) (*client.App, error)
	Files(ctx context.Context, id string) (map[string]any, error)
	Content(ctx context.Context, id, path string) (*client.FileContent, error)
	ServeURL(id, path string) string
}

// Session is the aggregate state of one app-preview activation. All
// mutation is a full state replacement under one lock; content loads are
// superseded by request issuance order, so a slow response for an old
// selection can never surface under a new one.
type Session struct {
	api   API
	appID string

	mu           sync.Mutex
	app          *client.App
	root         *tree.FileNode
	expanded     map[string]bool // overlay keyed by path; nodes stay immutable
	selectedPath string
	content      *Content
	loading      bool
	mode         ViewMode
	fullscreen   bool
	requestSeq   uint64
	surface      *Surface

	// OnChange, when set, is invoked (without the lock held) after an
	// asynchronous content load lands. UIs use it to re-render.
	OnChange func()
}

// NewSession fetches the app's metadata and file tree and builds the
// session. Any failure aborts the whole activation; callers fall back to
// the app list rather than presenting a half-loaded explorer.
func NewSession(ctx context.Context, api API, appID string) (*Session, error) {
	app, err := api.GetApp(ctx, appID)
	if err != nil {
		return nil, fmt.Errorf("loading app %s: %w", appID, err)
	}
	raw, err := api.Files(ctx, appID)
	if err != nil {
		return nil, fmt.Errorf("loading file tree: %w", err)
	}
	root, err := tree.Build(raw)
	if err != nil {
		return nil, err
	}

	s := &Session{
		api:      api,
		appID:    appID,
		app:      app,
		root:     root,
		expanded: make(map[string]bool),
		mode:     ModePreview,
		surface:  NewSurface(api.ServeURL(appID, app.EntryFile), nil),
	}

	// Root and first-level directories start open, deeper ones closed.
	tree.Walk(root, func(n *tree.FileNode, depth int) bool {
		if n.IsDir() {
			s.expanded[n.Path] = depth < 2
		}
		return true
	})

	return s, nil
}

// App returns the app metadata the session was activated for.
func (s *Session) App() *client.App { return s.app }

// Tree returns the immutable node graph.
func (s *Session) Tree() *tree.FileNode { return s.root }

// Surface returns the preview surface controller.
func (s *Session) Surface() *Surface { return s.surface }

// IsExpanded reports the expansion overlay state for a directory path.
func (s *Session) IsExpanded(path string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.expanded[path]
}

// Toggle flips the expansion state of the directory at path. Toggling a
// file path or an unknown path is a no-op.
func (s *Session) Toggle(path string) {
	n := tree.Find(s.root, path)
	if n == nil || !n.IsDir() {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.expanded[path] = !s.expanded[path]
}

// Select makes node the current selection, switches the view to code
// mode, and starts an asynchronous content load. A new Select supersedes
// any in-flight load.
func (s *Session) Select(ctx context.Context, node *tree.FileNode) error {
	if node == nil || node.IsDir() {
		return ErrNotFile
	}

	s.mu.Lock()
	s.selectedPath = node.Path
	s.content = nil // never show stale content under a new path
	s.loading = true
	s.mode = ModeCode
	s.requestSeq++
	seq := s.requestSeq
	s.mu.Unlock()

	go s.load(ctx, seq, node.Path)
	return nil
}

// load fetches and classifies content, then installs it only if this
// request is still the authoritative one.
func (s *Session) load(ctx context.Context, seq uint64, path string) {
	var c Content
	fc, err := s.api.Content(ctx, s.appID, path)
	switch {
	case err != nil:
		c = Content{Kind: ContentError, Message: err.Error()}
	case fc.Type == "text" && fc.Content != nil:
		c = Content{Kind: ContentText, Payload: *fc.Content}
	default:
		// Binary payloads are never rendered, even if the backend
		// unexpectedly sent content alongside the discriminator.
		msg := fc.Message
		if msg == "" {
			msg = "Binary file - cannot display"
		}
		c = Content{Kind: ContentBinary, Message: msg}
	}

	s.mu.Lock()
	if seq != s.requestSeq || s.selectedPath != path {
		s.mu.Unlock()
		return // superseded by a newer selection
	}
	s.content = &c
	s.loading = false
	notify := s.OnChange
	s.mu.Unlock()

	if notify != nil {
		notify()
	}
}

// SelectedPath returns the current selection, or "" when none.
func (s *Session) SelectedPath() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selectedPath
}

// Content returns the loaded content for the current selection and
// whether a load is still in flight.
func (s *Session) Content() (*Content, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.content, s.loading
}

// Mode returns the active view mode.
func (s *Session) Mode() ViewMode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mode
}

// SetMode switches tabs. Both states are cheap: loaded content stays put
// when switching back to code without reloading.
func (s *Session) SetMode(m ViewMode) {
	if m != ModePreview && m != ModeCode {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mode = m
}

// Fullscreen reports the chrome-visibility flag.
func (s *Session) Fullscreen() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fullscreen
}

// ToggleFullscreen flips chrome visibility. It is independent of the tab
// state.
func (s *Session) ToggleFullscreen() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fullscreen = !s.fullscreen
}
