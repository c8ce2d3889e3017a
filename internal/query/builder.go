// Package query validates raw user input into a SearchQuery.
package query

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ciefp/CiefpOpenSubtitles/internal/config"
	"github.com/ciefp/CiefpOpenSubtitles/internal/language"
	"github.com/ciefp/CiefpOpenSubtitles/internal/models"
)

// Build turns raw user input into a validated SearchQuery.
//
// Season and episode must be given together or not at all; a bare title is a
// movie search. Language codes are normalized to the canonical 2-letter
// form; unknown codes are dropped with a warning rather than failing the
// whole query, but at least one code must survive.
func Build(title string, season, episode int, langCodes []string, limit int) (models.SearchQuery, error) {
	trimmedTitle := strings.TrimSpace(title)
	if trimmedTitle == "" {
		return models.SearchQuery{}, errors.New("title must not be empty")
	}

	if (season > 0) != (episode > 0) {
		return models.SearchQuery{}, errors.New("season and episode must be given together")
	}
	if season < 0 || episode < 0 {
		return models.SearchQuery{}, errors.New("season and episode must be positive")
	}

	languages, err := normalizeLanguages(langCodes)
	if err != nil {
		return models.SearchQuery{}, err
	}

	if limit < 0 {
		limit = 0
	}

	return models.SearchQuery{
		Title:     trimmedTitle,
		Season:    season,
		Episode:   episode,
		Languages: languages,
		Limit:     limit,
	}, nil
}

// normalizeLanguages expands the "all" wildcard, normalizes every code, and
// deduplicates while preserving the configured priority order.
func normalizeLanguages(codes []string) ([]string, error) {
	logger := config.GetLogger()
	expanded := language.ExpandWildcard(codes)

	seen := make(map[string]bool, len(expanded))
	normalized := make([]string, 0, len(expanded))
	for _, code := range expanded {
		canonical, err := language.Normalize(code)
		if err != nil {
			logger.Warn().Str("code", code).Msg("Dropping unknown language code")
			continue
		}
		if seen[canonical] {
			continue
		}
		seen[canonical] = true
		normalized = append(normalized, canonical)
	}

	if len(normalized) == 0 {
		return nil, fmt.Errorf("no valid language codes in %v", codes)
	}
	return normalized, nil
}
