package backend

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/ciefp/CiefpOpenSubtitles/internal/apperrors"
	"github.com/ciefp/CiefpOpenSubtitles/internal/config"
	"github.com/ciefp/CiefpOpenSubtitles/internal/credentials"
	"github.com/ciefp/CiefpOpenSubtitles/internal/language"
	"github.com/ciefp/CiefpOpenSubtitles/internal/models"
)

// legacySessionTTL is how long a legacy session cookie is reused. The
// service invalidates idle sessions server-side well past this.
const legacySessionTTL = time.Hour

// legacySessionCookie is the cookie carrying the session token.
const legacySessionCookie = "sid"

// LegacyAdapter talks to the old username/password provider. The service
// predates the REST API: search results are an HTML page and there is no
// native season/episode filtering, so episode queries degrade to substring
// matching against release names.
type LegacyAdapter struct {
	httpClient   *http.Client
	baseURL      string
	username     string
	password     string
	userAgent    string
	sessions     sessionCache
	payloadCache *lru.LRU[string, []byte]
}

// NewLegacy creates the legacy backend adapter.
func NewLegacy(cfg *config.Config, creds *credentials.Store) *LegacyAdapter {
	return &LegacyAdapter{
		httpClient:   newHTTPClient(cfg.ClientTimeoutDuration()),
		baseURL:      strings.TrimRight(cfg.Legacy.BaseURL, "/"),
		username:     creds.Username,
		password:     creds.Password,
		userAgent:    cfg.UserAgent,
		payloadCache: lru.NewLRU[string, []byte](cfg.Cache.Size, nil, cfg.CacheTTLDuration()),
	}
}

// Name identifies the backend in logs and error messages.
func (a *LegacyAdapter) Name() string {
	return "legacy"
}

// Authenticate exchanges the username/password pair for a session cookie.
// The session is cached; calling again before expiry is a no-op.
func (a *LegacyAdapter) Authenticate(ctx context.Context) (*Session, error) {
	return a.sessions.get(ctx, a.login)
}

func (a *LegacyAdapter) login(ctx context.Context) (*Session, error) {
	if a.username == "" || a.password == "" {
		return nil, apperrors.NewAuthError(a.Name(), "no username/password configured")
	}

	logger := config.GetLogger()
	logger.Debug().Str("backend", a.Name()).Str("user", a.username).Msg("Logging in")

	form := url.Values{}
	form.Set("user", a.username)
	form.Set("pass", a.password)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/login", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("creating login request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", a.userAgent)

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, apperrors.NewAuthError(a.Name(), err.Error())
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
	}()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, apperrors.NewAuthError(a.Name(), "invalid username or password")
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, apperrors.NewRateLimitError(a.Name(), retryAfter(resp))
	case resp.StatusCode != http.StatusOK:
		return nil, apperrors.NewAuthError(a.Name(), fmt.Sprintf("login returned status %d", resp.StatusCode))
	}

	for _, cookie := range resp.Cookies() {
		if cookie.Name == legacySessionCookie && cookie.Value != "" {
			logger.Info().Str("backend", a.Name()).Msg("Authenticated")
			return &Session{Token: cookie.Value, ExpiresAt: time.Now().Add(legacySessionTTL)}, nil
		}
	}
	return nil, apperrors.NewAuthError(a.Name(), "login response carried no session cookie")
}

// Search queries the HTML search page. Language codes are widened to the
// 3-letter alphabet the service expects; for episode queries the SxxEyy token
// is appended to the title and matched as a substring against release names,
// since the service cannot filter by season/episode itself.
func (a *LegacyAdapter) Search(ctx context.Context, query models.SearchQuery) ([]models.SubtitleResult, error) {
	session, err := a.Authenticate(ctx)
	if err != nil {
		return nil, err
	}

	legacyLangs := make([]string, 0, len(query.Languages))
	for _, code := range query.Languages {
		widened, err := language.ToLegacy(code)
		if err != nil {
			continue
		}
		legacyLangs = append(legacyLangs, widened)
	}

	params := url.Values{}
	params.Set("MovieName", query.Title)
	params.Set("SubLanguageID", strings.Join(legacyLangs, "|"))
	params.Set("action", "search")

	endpoint := a.baseURL + "/search?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("creating search request: %w", err)
	}
	req.Header.Set("User-Agent", a.userAgent)
	req.AddCookie(&http.Cookie{Name: legacySessionCookie, Value: session.Token})

	logger := config.GetLogger()
	logger.Debug().Str("backend", a.Name()).Str("title", query.Title).Strs("languages", legacyLangs).Msg("Searching")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, apperrors.NewSearchError(firstLanguage(query), err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		a.sessions.invalidate()
		return nil, apperrors.NewAuthError(a.Name(), "session rejected")
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, apperrors.NewRateLimitError(a.Name(), retryAfter(resp))
	case resp.StatusCode != http.StatusOK:
		return nil, apperrors.NewSearchError(firstLanguage(query), fmt.Errorf("provider returned status %d", resp.StatusCode))
	}

	results, err := parseLegacyResults(resp.Body, a.baseURL, a.Name())
	if err != nil {
		return nil, apperrors.NewSearchError(firstLanguage(query), err)
	}

	if query.IsEpisode() {
		results = filterByEpisodeToken(results, query.Season, query.Episode)
	}
	if query.Limit > 0 && len(results) > query.Limit {
		results = results[:query.Limit]
	}

	logger.Info().
		Str("backend", a.Name()).
		Str("title", query.Title).
		Int("returned", len(results)).
		Msg("Search finished")

	return results, nil
}

// filterByEpisodeToken keeps results whose release name mentions the
// requested episode. The token format matches scene naming conventions.
func filterByEpisodeToken(results []models.SubtitleResult, season, episode int) []models.SubtitleResult {
	token := strings.ToLower(fmt.Sprintf("s%02de%02d", season, episode))
	alt := strings.ToLower(fmt.Sprintf("%dx%02d", season, episode))

	filtered := make([]models.SubtitleResult, 0, len(results))
	for _, result := range results {
		name := strings.ToLower(result.ReleaseName)
		if strings.Contains(name, token) || strings.Contains(name, alt) {
			filtered = append(filtered, result)
		}
	}
	return filtered
}

// Fetch downloads subtitle content from the result's URL. The service
// serves payloads gzip-compressed, sometimes inside ZIP or RAR archives;
// unpackEnvelope handles all of them.
func (a *LegacyAdapter) Fetch(ctx context.Context, handle models.DownloadHandle) ([]byte, error) {
	if cached, found := a.payloadCache.Get(handle.URL); found {
		logger := config.GetLogger()
		logger.Debug().Str("url", handle.URL).Msg("Fetched payload from cache")
		return cached, nil
	}

	session, err := a.Authenticate(ctx)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, handle.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating download request: %w", err)
	}
	req.Header.Set("User-Agent", a.userAgent)
	req.AddCookie(&http.Cookie{Name: legacySessionCookie, Value: session.Token})

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, apperrors.NewDownloadError("", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		a.sessions.invalidate()
		return nil, apperrors.NewAuthError(a.Name(), "session rejected")
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, apperrors.NewRateLimitError(a.Name(), retryAfter(resp))
	case resp.StatusCode != http.StatusOK:
		return nil, apperrors.NewDownloadError("", fmt.Errorf("download returned status %d", resp.StatusCode))
	}

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apperrors.NewDownloadError("", err)
	}

	content, err := unpackEnvelope(payload)
	if err != nil {
		return nil, apperrors.NewDownloadError("", err)
	}

	a.payloadCache.Add(handle.URL, content)
	return content, nil
}
