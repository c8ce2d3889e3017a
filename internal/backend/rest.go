package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/ciefp/CiefpOpenSubtitles/internal/apperrors"
	"github.com/ciefp/CiefpOpenSubtitles/internal/config"
	"github.com/ciefp/CiefpOpenSubtitles/internal/credentials"
	"github.com/ciefp/CiefpOpenSubtitles/internal/models"
)

// restSessionTTL is how long an exchanged bearer token is reused before
// re-authenticating. The provider issues 24h tokens; renewing slightly early
// avoids racing the expiry.
const restSessionTTL = 23 * time.Hour

// RESTAdapter talks to the modern token-based REST provider.
type RESTAdapter struct {
	httpClient   *http.Client
	baseURL      string
	apiKey       string
	userAgent    string
	sessions     sessionCache
	payloadCache *lru.LRU[string, []byte]
}

// NewREST creates the REST backend adapter. The credential store is read
// once at construction; a missing API key surfaces as AuthError on first use.
func NewREST(cfg *config.Config, creds *credentials.Store) *RESTAdapter {
	return &RESTAdapter{
		httpClient:   newHTTPClient(cfg.ClientTimeoutDuration()),
		baseURL:      strings.TrimRight(cfg.REST.BaseURL, "/"),
		apiKey:       creds.APIKey,
		userAgent:    cfg.UserAgent,
		payloadCache: lru.NewLRU[string, []byte](cfg.Cache.Size, nil, cfg.CacheTTLDuration()),
	}
}

// Name identifies the backend in logs and error messages.
func (a *RESTAdapter) Name() string {
	return "rest"
}

// Authenticate exchanges the API key for a short-lived bearer token. The
// session is cached until close to expiry.
func (a *RESTAdapter) Authenticate(ctx context.Context) (*Session, error) {
	return a.sessions.get(ctx, a.login)
}

func (a *RESTAdapter) login(ctx context.Context) (*Session, error) {
	if a.apiKey == "" {
		return nil, apperrors.NewAuthError(a.Name(), "no API key configured")
	}

	logger := config.GetLogger()
	logger.Debug().Str("backend", a.Name()).Msg("Exchanging API key for token")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/login", bytes.NewReader([]byte("{}")))
	if err != nil {
		return nil, fmt.Errorf("creating login request: %w", err)
	}
	a.setHeaders(req, "")
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, apperrors.NewAuthError(a.Name(), err.Error())
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, apperrors.NewAuthError(a.Name(), "invalid API key")
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, apperrors.NewRateLimitError(a.Name(), retryAfter(resp))
	case resp.StatusCode != http.StatusOK:
		return nil, apperrors.NewAuthError(a.Name(), fmt.Sprintf("login returned status %d", resp.StatusCode))
	}

	var loginResp struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&loginResp); err != nil {
		return nil, apperrors.NewAuthError(a.Name(), fmt.Sprintf("decoding login response: %v", err))
	}
	if loginResp.Token == "" {
		return nil, apperrors.NewAuthError(a.Name(), "login response carried no token")
	}

	logger.Info().Str("backend", a.Name()).Msg("Authenticated")
	return &Session{Token: loginResp.Token, ExpiresAt: time.Now().Add(restSessionTTL)}, nil
}

// restAttributes mirrors the provider's result metadata shape.
type restAttributes struct {
	Language        string  `json:"language"`
	Release         string  `json:"release"`
	DownloadCount   int     `json:"download_count"`
	Ratings         float64 `json:"ratings"`
	FPS             float64 `json:"fps"`
	HD              bool    `json:"hd"`
	HearingImpaired bool    `json:"hearing_impaired"`
	Uploader        struct {
		Name string `json:"name"`
	} `json:"uploader"`
	FeatureDetails struct {
		Year int `json:"year"`
	} `json:"feature_details"`
	Files []struct {
		FileID   int64  `json:"file_id"`
		FileName string `json:"file_name"`
	} `json:"files"`
}

type restSearchResponse struct {
	TotalCount int `json:"total_count"`
	Data       []struct {
		ID         string         `json:"id"`
		Attributes restAttributes `json:"attributes"`
	} `json:"data"`
}

// Search queries the provider with its native season/episode filtering.
func (a *RESTAdapter) Search(ctx context.Context, query models.SearchQuery) ([]models.SubtitleResult, error) {
	session, err := a.Authenticate(ctx)
	if err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Set("query", query.Title)
	params.Set("languages", strings.Join(query.Languages, ","))
	if query.IsEpisode() {
		params.Set("season_number", strconv.Itoa(query.Season))
		params.Set("episode_number", strconv.Itoa(query.Episode))
		params.Set("type", "episode")
	}

	endpoint := a.baseURL + "/subtitles?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("creating search request: %w", err)
	}
	a.setHeaders(req, session.Token)

	logger := config.GetLogger()
	logger.Debug().Str("backend", a.Name()).Str("title", query.Title).Strs("languages", query.Languages).Msg("Searching")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, apperrors.NewSearchError(firstLanguage(query), err)
	}
	defer resp.Body.Close()

	if err := a.checkStatus(resp, firstLanguage(query)); err != nil {
		return nil, err
	}

	var searchResp restSearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&searchResp); err != nil {
		return nil, apperrors.NewSearchError(firstLanguage(query), fmt.Errorf("decoding search response: %w", err))
	}

	results := make([]models.SubtitleResult, 0, len(searchResp.Data))
	for _, item := range searchResp.Data {
		attr := item.Attributes
		if len(attr.Files) == 0 {
			continue
		}

		release := attr.Release
		if release == "" && attr.Files[0].FileName != "" {
			release = attr.Files[0].FileName
		}

		results = append(results, models.SubtitleResult{
			ProviderID:      item.ID,
			Language:        strings.ToLower(attr.Language),
			ReleaseName:     release,
			Year:            attr.FeatureDetails.Year,
			DownloadCount:   attr.DownloadCount,
			Rating:          attr.Ratings,
			FrameRate:       attr.FPS,
			HD:              attr.HD,
			HearingImpaired: attr.HearingImpaired,
			Uploader:        attr.Uploader.Name,
			Handle: models.DownloadHandle{
				Backend: a.Name(),
				FileID:  strconv.FormatInt(attr.Files[0].FileID, 10),
			},
		})
		if query.Limit > 0 && len(results) >= query.Limit {
			break
		}
	}

	logger.Info().
		Str("backend", a.Name()).
		Str("title", query.Title).
		Int("totalCount", searchResp.TotalCount).
		Int("returned", len(results)).
		Msg("Search finished")

	return results, nil
}

// Fetch resolves a file ID to subtitle bytes: request a download link, fetch
// it, and unpack any envelope. Payloads are cached per file ID.
func (a *RESTAdapter) Fetch(ctx context.Context, handle models.DownloadHandle) ([]byte, error) {
	if cached, found := a.payloadCache.Get(handle.FileID); found {
		logger := config.GetLogger()
		logger.Debug().Str("fileID", handle.FileID).Msg("Fetched payload from cache")
		return cached, nil
	}

	session, err := a.Authenticate(ctx)
	if err != nil {
		return nil, err
	}

	fileID, err := strconv.ParseInt(handle.FileID, 10, 64)
	if err != nil {
		return nil, apperrors.NewDownloadError("", fmt.Errorf("invalid file ID %q: %w", handle.FileID, err))
	}

	body, err := json.Marshal(map[string]any{"file_id": fileID, "sub_format": "srt"})
	if err != nil {
		return nil, fmt.Errorf("encoding download request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/download", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating download request: %w", err)
	}
	a.setHeaders(req, session.Token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, apperrors.NewDownloadError("", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		a.sessions.invalidate()
		return nil, apperrors.NewAuthError(a.Name(), "session rejected")
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, apperrors.NewRateLimitError(a.Name(), retryAfter(resp))
	case resp.StatusCode != http.StatusOK:
		return nil, apperrors.NewDownloadError("", fmt.Errorf("download request returned status %d", resp.StatusCode))
	}

	var downloadResp struct {
		Link string `json:"link"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&downloadResp); err != nil {
		return nil, apperrors.NewDownloadError("", fmt.Errorf("decoding download response: %w", err))
	}
	if downloadResp.Link == "" {
		return nil, apperrors.NewDownloadError("", fmt.Errorf("download response carried no link"))
	}

	payload, err := a.fetchLink(ctx, downloadResp.Link)
	if err != nil {
		return nil, err
	}

	content, err := unpackEnvelope(payload)
	if err != nil {
		return nil, apperrors.NewDownloadError("", err)
	}

	a.payloadCache.Add(handle.FileID, content)
	return content, nil
}

func (a *RESTAdapter) fetchLink(ctx context.Context, link string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, link, nil)
	if err != nil {
		return nil, fmt.Errorf("creating content request: %w", err)
	}
	req.Header.Set("User-Agent", a.userAgent)

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, apperrors.NewDownloadError("", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, apperrors.NewDownloadError("", fmt.Errorf("content link returned status %d", resp.StatusCode))
	}
	return io.ReadAll(resp.Body)
}

// checkStatus maps provider error statuses to the error taxonomy. A 401
// invalidates the cached session so the next call re-authenticates.
func (a *RESTAdapter) checkStatus(resp *http.Response, language string) error {
	switch {
	case resp.StatusCode == http.StatusOK:
		return nil
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		a.sessions.invalidate()
		return apperrors.NewAuthError(a.Name(), "session rejected")
	case resp.StatusCode == http.StatusTooManyRequests:
		return apperrors.NewRateLimitError(a.Name(), retryAfter(resp))
	default:
		return apperrors.NewSearchError(language, fmt.Errorf("provider returned status %d", resp.StatusCode))
	}
}

func (a *RESTAdapter) setHeaders(req *http.Request, token string) {
	req.Header.Set("Api-Key", a.apiKey)
	req.Header.Set("User-Agent", a.userAgent)
	req.Header.Set("Accept", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
}

// retryAfter parses the Retry-After response header (seconds form). Zero
// means the provider gave no hint.
func retryAfter(resp *http.Response) time.Duration {
	header := resp.Header.Get("Retry-After")
	if header == "" {
		return 0
	}
	seconds, err := strconv.Atoi(strings.TrimSpace(header))
	if err != nil || seconds < 0 {
		return 0
	}
	return time.Duration(seconds) * time.Second
}

func firstLanguage(query models.SearchQuery) string {
	if len(query.Languages) > 0 {
		return query.Languages[0]
	}
	return ""
}
