package models

// DownloadHandle is a backend-specific reference to subtitle content that has
// not yet been resolved to bytes. The REST backend stores a file ID, the
// legacy backend a download URL; neither interpretation leaks past the
// adapter boundary.
type DownloadHandle struct {
	Backend string `json:"backend"`
	FileID  string `json:"fileId,omitempty"`
	URL     string `json:"url,omitempty"`
}

// SubtitleResult represents one normalized subtitle search result.
// ProviderID plus Language is unique within a single result set.
type SubtitleResult struct {
	ProviderID      string         `json:"providerId"`
	Language        string         `json:"language"` // canonical 2-letter code
	ReleaseName     string         `json:"releaseName"`
	Year            int            `json:"year,omitempty"`
	DownloadCount   int            `json:"downloadCount"`
	Rating          float64        `json:"rating"` // 0-10
	FrameRate       float64        `json:"frameRate,omitempty"`
	HD              bool           `json:"hd"`
	HearingImpaired bool           `json:"hearingImpaired"`
	Uploader        string         `json:"uploader,omitempty"`
	Handle          DownloadHandle `json:"handle"`
}

// RankedResultSet is an ordered result sequence for one language, sorted by
// the active sort key with deterministic tie-breaks.
type RankedResultSet struct {
	Language string           `json:"language"`
	SortedBy SortKey          `json:"sortedBy"`
	Results  []SubtitleResult `json:"results"`
}

// Top returns the best match used by auto-download mode, or false when the
// set is empty.
func (r RankedResultSet) Top() (SubtitleResult, bool) {
	if len(r.Results) == 0 {
		return SubtitleResult{}, false
	}
	return r.Results[0], true
}

// VideoFile is a local media file considered by the file matcher.
type VideoFile struct {
	Path     string `json:"path"`
	BaseName string `json:"baseName"` // filename without directory or extension
}

// DownloadOutcome records one completed download attempt. It is immutable
// after creation; the download manager is its sole producer.
type DownloadOutcome struct {
	Language   string `json:"language"`
	TargetPath string `json:"targetPath"`
	Success    bool   `json:"success"`
	Err        error  `json:"-"`
}
