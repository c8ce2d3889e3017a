// Package match pairs downloaded subtitles with local video files.
package match

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/ciefp/CiefpOpenSubtitles/internal/models"
)

var (
	videoFileRe = regexp.MustCompile(`(?i)\.(mp4|mkv|avi|mov|wmv|flv|webm|mpeg|mpg|m4v|ts|m2ts|vob|divx)$`)

	// Release metadata carries no information about which title the file
	// holds, so it is stripped before comparing.
	releaseTagsRe = regexp.MustCompile(`(?i)\b(?:x265|x264|h\.?264|h\.?265|hevc|avc|aac|ac3|dd|dts|flac|web-?dl|web-?rip|bluray|bdrip|dvdrip|hdtv|hdr|720p|1080p|2160p|4k|uhd|10bit|8bit|proper|repack|internal|limited|unrated|extended|complete|multi|dual|dubbed|subbed|retail|ntsc|pal)\b`)

	punctuationRe = regexp.MustCompile(`[\.\-_\[\](){}',:!?]+`)
	whitespaceRe  = regexp.MustCompile(`\s+`)
)

// Matcher scores local video files against a subtitle release name and
// decides the base name subtitle files are saved under.
type Matcher struct {
	minScore float64
}

// New returns a matcher that accepts pairs scoring at or above minScore.
func New(minScore float64) *Matcher {
	return &Matcher{minScore: minScore}
}

// ListVideoFiles returns the video files directly inside dir, sorted by
// path. Subdirectories are not descended into; the receiver box keeps all
// recordings flat in one directory.
func ListVideoFiles(dir string) ([]models.VideoFile, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("listing video files in %s: %w", dir, err)
	}

	var videos []models.VideoFile
	for _, entry := range entries {
		if entry.IsDir() || !videoFileRe.MatchString(entry.Name()) {
			continue
		}
		name := entry.Name()
		videos = append(videos, models.VideoFile{
			Path:     filepath.Join(dir, name),
			BaseName: strings.TrimSuffix(name, filepath.Ext(name)),
		})
	}
	sort.Slice(videos, func(i, j int) bool { return videos[i].Path < videos[j].Path })
	return videos, nil
}

// BestMatch returns the video file whose name scores highest against the
// release name, provided the score clears the threshold. Equal scores break
// on the lexicographically smaller path. The second return is false when no
// candidate qualifies.
func (m *Matcher) BestMatch(videos []models.VideoFile, releaseName string) (models.VideoFile, bool) {
	var (
		best      models.VideoFile
		bestScore = -1.0
		found     bool
	)
	for _, video := range videos {
		score := Score(video.BaseName, releaseName)
		if score < m.minScore {
			continue
		}
		if score > bestScore || (score == bestScore && video.Path < best.Path) {
			best = video
			bestScore = score
			found = true
		}
	}
	return best, found
}

// BaseNameFor picks the base name for the saved subtitle file: the matched
// video's name when one qualifies, otherwise a sanitized form of the search
// title.
func (m *Matcher) BaseNameFor(videos []models.VideoFile, releaseName, searchTitle string) string {
	if video, ok := m.BestMatch(videos, releaseName); ok {
		return video.BaseName
	}
	fallback := whitespaceRe.ReplaceAllString(strings.TrimSpace(searchTitle), ".")
	if fallback == "" {
		fallback = "subtitle"
	}
	return fallback
}

// Score computes the token-set Dice coefficient of two release strings
// after normalization, in [0, 1].
func Score(a, b string) float64 {
	tokensA := tokenSet(a)
	tokensB := tokenSet(b)
	if len(tokensA) == 0 || len(tokensB) == 0 {
		return 0
	}

	shared := 0
	for token := range tokensA {
		if tokensB[token] {
			shared++
		}
	}
	return 2 * float64(shared) / float64(len(tokensA)+len(tokensB))
}

func tokenSet(s string) map[string]bool {
	normalized := strings.ToLower(s)
	normalized = releaseTagsRe.ReplaceAllString(normalized, " ")
	normalized = punctuationRe.ReplaceAllString(normalized, " ")

	set := make(map[string]bool)
	for _, token := range strings.Fields(normalized) {
		set[token] = true
	}
	return set
}

// TargetPath returns the path a subtitle for lang should be written to
// under dir, as <base>.<lang>.srt. When that file already exists a numeric
// suffix is inserted, <base>.<lang>.1.srt and so on, never overwriting an
// earlier download.
func TargetPath(dir, base, lang string) string {
	candidate := filepath.Join(dir, fmt.Sprintf("%s.%s.srt", base, lang))
	for n := 1; exists(candidate); n++ {
		candidate = filepath.Join(dir, fmt.Sprintf("%s.%s.%d.srt", base, lang, n))
	}
	return candidate
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
