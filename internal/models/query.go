package models

// SearchQuery is the unified, validated query passed to backend adapters.
// Season and Episode are either both zero (movie search) or both positive
// (episode search); the query builder enforces this.
type SearchQuery struct {
	Title     string   `json:"title"`
	Season    int      `json:"season,omitempty"`
	Episode   int      `json:"episode,omitempty"`
	Languages []string `json:"languages"` // canonical 2-letter codes, priority order
	Limit     int      `json:"limit"`     // maximum results per language, 0 = backend default
}

// IsEpisode reports whether the query targets a TV episode rather than a movie.
func (q SearchQuery) IsEpisode() bool {
	return q.Season > 0 && q.Episode > 0
}

// ForLanguage returns a copy of the query narrowed to a single language.
// The orchestrator issues one backend search per language.
func (q SearchQuery) ForLanguage(lang string) SearchQuery {
	narrowed := q
	narrowed.Languages = []string{lang}
	return narrowed
}
