// Package testutil provides fixture builders shared by the package tests: a
// scripted in-memory backend adapter, JSON documents shaped like the REST
// provider's responses, and HTML pages shaped like the legacy provider's
// search results.
package testutil

import (
	"context"
	"fmt"
	"strings"

	"github.com/ciefp/CiefpOpenSubtitles/internal/backend"
	"github.com/ciefp/CiefpOpenSubtitles/internal/models"
)

// FakeAdapter is a scripted backend.Adapter for tests that must not touch
// the network.
type FakeAdapter struct {
	BackendName string
	AuthErr     error
	SearchFunc  func(ctx context.Context, query models.SearchQuery) ([]models.SubtitleResult, error)
	FetchFunc   func(ctx context.Context, handle models.DownloadHandle) ([]byte, error)

	// SearchCalls records every query passed to Search, in order.
	SearchCalls []models.SearchQuery
}

// Name implements backend.Adapter.
func (f *FakeAdapter) Name() string {
	if f.BackendName == "" {
		return "fake"
	}
	return f.BackendName
}

// Authenticate implements backend.Adapter.
func (f *FakeAdapter) Authenticate(ctx context.Context) (*backend.Session, error) {
	if f.AuthErr != nil {
		return nil, f.AuthErr
	}
	return &backend.Session{Token: "fake-token"}, nil
}

// Search implements backend.Adapter.
func (f *FakeAdapter) Search(ctx context.Context, query models.SearchQuery) ([]models.SubtitleResult, error) {
	f.SearchCalls = append(f.SearchCalls, query)
	if f.SearchFunc == nil {
		return nil, nil
	}
	return f.SearchFunc(ctx, query)
}

// Fetch implements backend.Adapter.
func (f *FakeAdapter) Fetch(ctx context.Context, handle models.DownloadHandle) ([]byte, error) {
	if f.FetchFunc == nil {
		return []byte("1\n00:00:01,000 --> 00:00:02,000\nfixture\n"), nil
	}
	return f.FetchFunc(ctx, handle)
}

// RESTResultOptions describes one entry in a generated REST search response.
type RESTResultOptions struct {
	ID              string
	Language        string
	Release         string
	Year            int
	DownloadCount   int
	Rating          float64
	FPS             float64
	HD              bool
	HearingImpaired bool
	Uploader        string
	FileID          int64
	FileName        string
}

// GenerateRESTSearchJSON builds a REST search response document.
func GenerateRESTSearchJSON(results []RESTResultOptions) string {
	items := make([]string, 0, len(results))
	for _, r := range results {
		items = append(items, fmt.Sprintf(`{
			"id": %q,
			"type": "subtitle",
			"attributes": {
				"language": %q,
				"release": %q,
				"download_count": %d,
				"ratings": %g,
				"fps": %g,
				"hd": %t,
				"hearing_impaired": %t,
				"uploader": {"name": %q},
				"feature_details": {"year": %d},
				"files": [{"file_id": %d, "file_name": %q}]
			}
		}`, r.ID, r.Language, r.Release, r.DownloadCount, r.Rating, r.FPS,
			r.HD, r.HearingImpaired, r.Uploader, r.Year, r.FileID, r.FileName))
	}
	return fmt.Sprintf(`{"total_count": %d, "data": [%s]}`, len(results), strings.Join(items, ","))
}

// LegacyRowOptions describes one row in a generated legacy results page.
type LegacyRowOptions struct {
	SubtitleID    int
	Language      string // 3-letter code as the legacy service renders it
	ReleaseName   string
	Year          int
	DownloadCount int
	Rating        float64
	FPS           float64
	Flags         string // e.g. "HD", "HI", "HD HI"
	Uploader      string
}

// GenerateLegacyResultsHTML builds a legacy search results page.
func GenerateLegacyResultsHTML(rows []LegacyRowOptions) string {
	var b strings.Builder
	b.WriteString(`<!DOCTYPE html><html><head><meta charset="utf-8"><title>Search results</title></head><body><table id="search_results">`)
	b.WriteString(`<tr><th>Release</th><th>Lang</th><th>Year</th><th>DL</th><th>Rating</th><th>FPS</th><th>Flags</th><th>Uploader</th></tr>`)
	for _, row := range rows {
		fmt.Fprintf(&b, `<tr class="change">`+
			`<td class="a1"><a href="/en/subtitles/%d/release">%s</a></td>`+
			`<td class="lang">%s</td>`+
			`<td class="year">%d</td>`+
			`<td class="downloads">%d</td>`+
			`<td class="rating">%g</td>`+
			`<td class="fps">%g</td>`+
			`<td class="flags">%s</td>`+
			`<td class="uploader">%s</td>`+
			`</tr>`,
			row.SubtitleID, row.ReleaseName, row.Language, row.Year,
			row.DownloadCount, row.Rating, row.FPS, row.Flags, row.Uploader)
	}
	b.WriteString(`</table></body></html>`)
	return b.String()
}
