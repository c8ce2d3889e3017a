package apperrors

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// AuthError is returned when a backend rejects the configured credentials or
// an expired session cannot be renewed. It is never retried.
type AuthError struct {
	Backend string
	Reason  string
}

// Error implements the error interface.
func (e *AuthError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("authentication with %s failed: %s", e.Backend, e.Reason)
	}
	return fmt.Sprintf("authentication with %s failed", e.Backend)
}

// Is allows for error checking with errors.Is().
func (e *AuthError) Is(target error) bool {
	_, ok := target.(*AuthError)
	return ok
}

// NewAuthError creates a new AuthError.
func NewAuthError(backend, reason string) *AuthError {
	return &AuthError{Backend: backend, Reason: reason}
}

// SearchError is returned when a search against a provider fails for
// transient reasons (network, provider-side failure). It is retried with
// backoff before being surfaced.
type SearchError struct {
	Language string
	Err      error
}

// Error implements the error interface.
func (e *SearchError) Error() string {
	if e.Language != "" {
		return fmt.Sprintf("search for language %q failed: %v", e.Language, e.Err)
	}
	return fmt.Sprintf("search failed: %v", e.Err)
}

// Unwrap exposes the underlying cause.
func (e *SearchError) Unwrap() error {
	return e.Err
}

// Is allows for error checking with errors.Is().
func (e *SearchError) Is(target error) bool {
	_, ok := target.(*SearchError)
	return ok
}

// NewSearchError creates a new SearchError for the given language context.
func NewSearchError(language string, err error) *SearchError {
	return &SearchError{Language: language, Err: err}
}

// AllLanguagesError is the aggregate failure returned when every requested
// language failed. It records the per-language reasons so each one is
// surfaced to the user, and matches SearchError via errors.Is().
type AllLanguagesError struct {
	Reasons map[string]error
}

// Error implements the error interface.
func (e *AllLanguagesError) Error() string {
	langs := make([]string, 0, len(e.Reasons))
	for lang := range e.Reasons {
		langs = append(langs, lang)
	}
	sort.Strings(langs)

	parts := make([]string, 0, len(langs))
	for _, lang := range langs {
		parts = append(parts, fmt.Sprintf("%s: %v", lang, e.Reasons[lang]))
	}
	return fmt.Sprintf("search failed for all requested languages (%s)", strings.Join(parts, "; "))
}

// Is allows for error checking with errors.Is(). An all-languages failure is
// still a search failure.
func (e *AllLanguagesError) Is(target error) bool {
	switch target.(type) {
	case *AllLanguagesError, *SearchError:
		return true
	}
	return false
}

// RateLimitError is returned when a provider throttles the client. The caller
// must wait at least RetryAfter (or a configured cooldown when the provider
// did not say) before issuing any further call on that backend.
type RateLimitError struct {
	Backend    string
	RetryAfter time.Duration
}

// Error implements the error interface.
func (e *RateLimitError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("%s rate limit exceeded, retry after %s", e.Backend, e.RetryAfter)
	}
	return fmt.Sprintf("%s rate limit exceeded", e.Backend)
}

// Is allows for error checking with errors.Is().
func (e *RateLimitError) Is(target error) bool {
	_, ok := target.(*RateLimitError)
	return ok
}

// NewRateLimitError creates a new RateLimitError.
func NewRateLimitError(backend string, retryAfter time.Duration) *RateLimitError {
	return &RateLimitError{Backend: backend, RetryAfter: retryAfter}
}

// DownloadError is returned when resolving a chosen result to subtitle bytes
// fails. It is retried once, then surfaced for that language only.
type DownloadError struct {
	Language string
	Err      error
}

// Error implements the error interface.
func (e *DownloadError) Error() string {
	if e.Language != "" {
		return fmt.Sprintf("download for language %q failed: %v", e.Language, e.Err)
	}
	return fmt.Sprintf("download failed: %v", e.Err)
}

// Unwrap exposes the underlying cause.
func (e *DownloadError) Unwrap() error {
	return e.Err
}

// Is allows for error checking with errors.Is().
func (e *DownloadError) Is(target error) bool {
	_, ok := target.(*DownloadError)
	return ok
}

// NewDownloadError creates a new DownloadError for the given language context.
func NewDownloadError(language string, err error) *DownloadError {
	return &DownloadError{Language: language, Err: err}
}

// FileSystemError is returned when the configured subtitle directory or a
// target file cannot be written. It is fatal for the whole operation and
// reported once, never retried.
type FileSystemError struct {
	Path string
	Err  error
}

// Error implements the error interface.
func (e *FileSystemError) Error() string {
	return fmt.Sprintf("cannot write to %s: %v", e.Path, e.Err)
}

// Unwrap exposes the underlying cause.
func (e *FileSystemError) Unwrap() error {
	return e.Err
}

// Is allows for error checking with errors.Is().
func (e *FileSystemError) Is(target error) bool {
	_, ok := target.(*FileSystemError)
	return ok
}

// NewFileSystemError creates a new FileSystemError.
func NewFileSystemError(path string, err error) *FileSystemError {
	return &FileSystemError{Path: path, Err: err}
}
