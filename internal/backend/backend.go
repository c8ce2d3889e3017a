// Package backend unifies the two subtitle provider generations behind one
// capability interface: the token-based REST API and the session-based
// legacy service. Provider quirks stay inside the adapters; callers only see
// normalized queries, results, and download handles.
package backend

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/ciefp/CiefpOpenSubtitles/internal/models"
)

// Adapter is the capability interface implemented by each provider variant.
// Adapters perform network calls only; they never touch the filesystem.
type Adapter interface {
	// Name identifies the backend in logs and error messages.
	Name() string

	// Authenticate establishes a session with the provider. It is
	// idempotent: calling again before expiry returns the cached session.
	Authenticate(ctx context.Context) (*Session, error)

	// Search translates the unified query into the provider's request shape
	// and returns normalized results.
	Search(ctx context.Context, query models.SearchQuery) ([]models.SubtitleResult, error)

	// Fetch resolves a result's download handle into raw subtitle content,
	// transparently unpacking compressed envelopes.
	Fetch(ctx context.Context, handle models.DownloadHandle) ([]byte, error)
}

// Session is an authenticated provider session. Token is either a bearer
// token (REST) or a session cookie value (legacy).
type Session struct {
	Token     string
	ExpiresAt time.Time
}

// Valid reports whether the session can still be used.
func (s *Session) Valid() bool {
	return s != nil && s.Token != "" && time.Now().Before(s.ExpiresAt)
}

// sessionCache guards the single cached session per backend. A single
// credential set implies a single active session, so concurrent operations
// serialize on acquisition.
type sessionCache struct {
	mu      sync.Mutex
	session *Session
}

// get returns the cached session when still valid, otherwise calls renew and
// caches its result. Only one renewal runs at a time.
func (c *sessionCache) get(ctx context.Context, renew func(ctx context.Context) (*Session, error)) (*Session, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.session.Valid() {
		return c.session, nil
	}

	session, err := renew(ctx)
	if err != nil {
		return nil, err
	}
	c.session = session
	return session, nil
}

// invalidate drops the cached session so the next call re-authenticates.
func (c *sessionCache) invalidate() {
	c.mu.Lock()
	c.session = nil
	c.mu.Unlock()
}

// newHTTPClient builds the shared HTTP client: bounded timeout and
// transparent response decompression.
func newHTTPClient(timeout time.Duration) *http.Client {
	baseTransport := http.DefaultTransport.(*http.Transport).Clone()
	return &http.Client{
		Timeout:   timeout,
		Transport: newCompressionTransport(baseTransport),
	}
}
