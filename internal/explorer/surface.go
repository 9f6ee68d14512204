package explorer

import (
	"sync"

	"github.com/pkg/browser"
)

// SandboxAllowlist is the capability grant for the embedded preview
// surface: enough for a typical SPA to run, and nothing broader. The
// viewer page applies it verbatim to its iframe.
const SandboxAllowlist = "allow-scripts allow-same-origin allow-forms allow-popups allow-modals"

// Opener launches a URL in an independent top-level browsing context.
type Opener func(url string) error

// Surface controls the sandboxed preview: one URL, a monotonic
// generation counter forcing full remounts, and the external-open escape
// hatch. Both the embedded surface and the external open resolve the
// same URL; there is exactly one constructor for it.
type Surface struct {
	mu         sync.Mutex
	url        string
	generation uint64
	open       Opener
}

// NewSurface creates a surface for the given serve URL. A nil opener
// falls back to the system browser.
func NewSurface(url string, open Opener) *Surface {
	if open == nil {
		open = browser.OpenURL
	}
	return &Surface{url: url, open: open}
}

// URL returns the address of the served entry file.
func (s *Surface) URL() string { return s.url }

// Generation returns the current remount counter. Renderers key the
// surface instance on it: a changed generation means a fresh instance.
func (s *Surface) Generation() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generation
}

// Refresh tears the surface down and recreates it by bumping the
// generation counter. This resets any client-side state inside the
// previewed app (router history included), unlike a soft re-navigation.
// It returns the new generation.
func (s *Surface) Refresh() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.generation++
	return s.generation
}

// OpenExternal opens the identical URL outside the sandbox.
func (s *Surface) OpenExternal() error {
	return s.open(s.url)
}
