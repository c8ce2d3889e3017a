package backend

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html/charset"

	"github.com/ciefp/CiefpOpenSubtitles/internal/config"
	"github.com/ciefp/CiefpOpenSubtitles/internal/language"
	"github.com/ciefp/CiefpOpenSubtitles/internal/models"
)

// parseLegacyResults extracts subtitle results from the legacy service's
// HTML search page. The page is a table of result rows; each row carries the
// release link, a 3-letter language tag, and the popularity columns.
//
// The reader is wrapped with charset detection first: the service still
// serves some pages in ISO-8859 encodings and goquery needs UTF-8.
func parseLegacyResults(body io.Reader, baseURL, backendName string) ([]models.SubtitleResult, error) {
	utf8Body, err := charset.NewReader(body, "")
	if err != nil {
		return nil, fmt.Errorf("detecting page charset: %w", err)
	}

	doc, err := goquery.NewDocumentFromReader(utf8Body)
	if err != nil {
		return nil, fmt.Errorf("parsing results page: %w", err)
	}

	logger := config.GetLogger()
	var results []models.SubtitleResult

	doc.Find("tr.change").Each(func(i int, row *goquery.Selection) {
		link := row.Find(`a[href*="/subtitles/"]`).First()
		href, ok := link.Attr("href")
		if !ok {
			return
		}

		providerID := subtitleIDFromHref(href)
		if providerID == "" {
			logger.Debug().Str("href", href).Msg("Skipping row without subtitle ID")
			return
		}

		langTag := strings.TrimSpace(row.Find("td.lang").Text())
		canonical, err := language.Normalize(langTag)
		if err != nil {
			logger.Debug().Str("lang", langTag).Msg("Skipping row with unknown language")
			return
		}

		downloadURL := baseURL + "/download/" + providerID
		if custom, ok := row.Find(`a[href*="/download/"]`).First().Attr("href"); ok {
			downloadURL = absoluteURL(baseURL, custom)
		}

		flags := strings.ToUpper(row.Find("td.flags").Text())

		results = append(results, models.SubtitleResult{
			ProviderID:      providerID,
			Language:        canonical,
			ReleaseName:     strings.TrimSpace(link.Text()),
			Year:            intCell(row, "td.year"),
			DownloadCount:   intCell(row, "td.downloads"),
			Rating:          floatCell(row, "td.rating"),
			FrameRate:       floatCell(row, "td.fps"),
			HD:              strings.Contains(flags, "HD"),
			HearingImpaired: strings.Contains(flags, "HI"),
			Uploader:        strings.TrimSpace(row.Find("td.uploader").Text()),
			Handle: models.DownloadHandle{
				Backend: backendName,
				URL:     downloadURL,
			},
		})
	})

	return results, nil
}

// subtitleIDFromHref pulls the numeric ID out of a /subtitles/<id>/... path.
func subtitleIDFromHref(href string) string {
	const marker = "/subtitles/"
	idx := strings.Index(href, marker)
	if idx < 0 {
		return ""
	}
	rest := href[idx+len(marker):]
	if end := strings.IndexByte(rest, '/'); end >= 0 {
		rest = rest[:end]
	}
	if _, err := strconv.Atoi(rest); err != nil {
		return ""
	}
	return rest
}

func absoluteURL(baseURL, href string) string {
	if strings.HasPrefix(href, "http://") || strings.HasPrefix(href, "https://") {
		return href
	}
	return baseURL + "/" + strings.TrimLeft(href, "/")
}

func intCell(row *goquery.Selection, selector string) int {
	value, _ := strconv.Atoi(strings.TrimSpace(row.Find(selector).Text()))
	return value
}

func floatCell(row *goquery.Selection, selector string) float64 {
	value, _ := strconv.ParseFloat(strings.TrimSpace(row.Find(selector).Text()), 64)
	return value
}
