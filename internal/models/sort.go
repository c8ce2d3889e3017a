package models

import "strings"

// SortKey selects the primary ordering of a ranked result set.
type SortKey int

const (
	SortByDownloads SortKey = iota
	SortByYear
	SortByRating
	SortByFrameRate
)

// String returns the string representation of the sort key.
func (k SortKey) String() string {
	switch k {
	case SortByYear:
		return "year"
	case SortByRating:
		return "rating"
	case SortByFrameRate:
		return "fps"
	default:
		return "downloads"
	}
}

// ParseSortKey converts a sort key string to a SortKey. Unknown values fall
// back to download count, the original default ordering.
func ParseSortKey(s string) SortKey {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "year":
		return SortByYear
	case "rating":
		return SortByRating
	case "fps", "framerate", "frame_rate":
		return SortByFrameRate
	default:
		return SortByDownloads
	}
}

// MarshalJSON implements json.Marshaler interface
func (k SortKey) MarshalJSON() ([]byte, error) {
	return []byte(`"` + k.String() + `"`), nil
}

// UnmarshalJSON implements json.Unmarshaler interface
func (k *SortKey) UnmarshalJSON(data []byte) error {
	*k = ParseSortKey(strings.Trim(string(data), `"`))
	return nil
}

// HearingImpairedFilter is the tri-state hearing-impaired hard filter.
type HearingImpairedFilter int

const (
	HearingImpairedAny HearingImpairedFilter = iota
	HearingImpairedRequire
	HearingImpairedForbid
)

// String returns the string representation of the filter.
func (f HearingImpairedFilter) String() string {
	switch f {
	case HearingImpairedRequire:
		return "require"
	case HearingImpairedForbid:
		return "forbid"
	default:
		return "any"
	}
}

// ParseHearingImpairedFilter converts a filter string to a
// HearingImpairedFilter. Unknown values mean no filtering.
func ParseHearingImpairedFilter(s string) HearingImpairedFilter {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "require", "required", "yes":
		return HearingImpairedRequire
	case "forbid", "forbidden", "no":
		return HearingImpairedForbid
	default:
		return HearingImpairedAny
	}
}

// Filters are the hard filters applied before ranking.
type Filters struct {
	RequireHD       bool
	HearingImpaired HearingImpairedFilter
}
