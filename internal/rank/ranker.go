// Package rank filters and orders subtitle results for one language.
package rank

import (
	"sort"

	"github.com/ciefp/CiefpOpenSubtitles/internal/models"
)

// Rank applies the hard filters and sorts the surviving results by the given
// sort key, descending. Ties break on download count, then rating, then
// provider ID so the ordering is stable across runs regardless of the order
// the backend returned results in. The input slice is not modified.
func Rank(results []models.SubtitleResult, lang string, key models.SortKey, filters models.Filters) models.RankedResultSet {
	filtered := applyFilters(results, filters)

	sort.SliceStable(filtered, func(i, j int) bool {
		return less(filtered[i], filtered[j], key)
	})

	return models.RankedResultSet{
		Language: lang,
		SortedBy: key,
		Results:  filtered,
	}
}

func applyFilters(results []models.SubtitleResult, filters models.Filters) []models.SubtitleResult {
	kept := make([]models.SubtitleResult, 0, len(results))
	for _, result := range results {
		if filters.RequireHD && !result.HD {
			continue
		}
		switch filters.HearingImpaired {
		case models.HearingImpairedRequire:
			if !result.HearingImpaired {
				continue
			}
		case models.HearingImpairedForbid:
			if result.HearingImpaired {
				continue
			}
		}
		kept = append(kept, result)
	}
	return kept
}

// less orders a before b for a descending sort on the active key. Results
// equal on every comparable field keep their provider ID order.
func less(a, b models.SubtitleResult, key models.SortKey) bool {
	if primary := compareKey(a, b, key); primary != 0 {
		return primary > 0
	}
	if a.DownloadCount != b.DownloadCount {
		return a.DownloadCount > b.DownloadCount
	}
	if a.Rating != b.Rating {
		return a.Rating > b.Rating
	}
	return a.ProviderID < b.ProviderID
}

func compareKey(a, b models.SubtitleResult, key models.SortKey) int {
	switch key {
	case models.SortByYear:
		return a.Year - b.Year
	case models.SortByRating:
		return compareFloat(a.Rating, b.Rating)
	case models.SortByFrameRate:
		return compareFloat(a.FrameRate, b.FrameRate)
	default:
		return a.DownloadCount - b.DownloadCount
	}
}

func compareFloat(a, b float64) int {
	switch {
	case a > b:
		return 1
	case a < b:
		return -1
	default:
		return 0
	}
}
