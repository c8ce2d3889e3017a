// Package download fetches ranked subtitles and writes them next to the
// local recordings.
package download

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"github.com/ciefp/CiefpOpenSubtitles/internal/apperrors"
	"github.com/ciefp/CiefpOpenSubtitles/internal/backend"
	"github.com/ciefp/CiefpOpenSubtitles/internal/config"
	"github.com/ciefp/CiefpOpenSubtitles/internal/match"
	"github.com/ciefp/CiefpOpenSubtitles/internal/models"
)

// Manager downloads subtitle content through a backend adapter and saves it
// under the configured directory.
type Manager struct {
	adapter  backend.Adapter
	matcher  *match.Matcher
	saveDir  string
	delay    time.Duration
	cooldown time.Duration
	logger   zerolog.Logger
}

// NewManager validates the save directory once and returns a Manager bound
// to it. An unusable directory is a FileSystemError; nothing is downloaded
// into a target that cannot be written.
func NewManager(adapter backend.Adapter, matcher *match.Matcher, cfg *config.Config) (*Manager, error) {
	saveDir := cfg.SavePath
	if err := validateDir(saveDir); err != nil {
		return nil, err
	}
	return &Manager{
		adapter:  adapter,
		matcher:  matcher,
		saveDir:  saveDir,
		delay:    cfg.DownloadDelayDuration(),
		cooldown: cfg.RateLimitCooldownDuration(),
		logger:   config.GetLogger().With().Str("backend", adapter.Name()).Logger(),
	}, nil
}

// SaveDir returns the validated target directory.
func (m *Manager) SaveDir() string {
	return m.saveDir
}

func validateDir(dir string) error {
	info, err := os.Stat(dir)
	if err != nil {
		return apperrors.NewFileSystemError(dir, err)
	}
	if !info.IsDir() {
		return apperrors.NewFileSystemError(dir, errors.New("not a directory"))
	}
	marker, err := os.CreateTemp(dir, ".writecheck-*")
	if err != nil {
		return apperrors.NewFileSystemError(dir, err)
	}
	marker.Close()
	os.Remove(marker.Name())
	return nil
}

// Download fetches one subtitle and writes it atomically to targetPath. A
// transient fetch failure is retried once; a partially written file is
// never left behind.
func (m *Manager) Download(ctx context.Context, result models.SubtitleResult, targetPath string) error {
	content, err := m.fetch(ctx, result.Handle)
	if err != nil {
		return apperrors.NewDownloadError(result.Language, err)
	}
	if len(content) == 0 {
		return apperrors.NewDownloadError(result.Language, errors.New("provider returned empty subtitle content"))
	}

	if err := writeAtomic(targetPath, content); err != nil {
		return apperrors.NewFileSystemError(targetPath, err)
	}

	m.logger.Info().
		Str("language", result.Language).
		Str("path", targetPath).
		Int("bytes", len(content)).
		Msg("Subtitle saved")
	return nil
}

func (m *Manager) fetch(ctx context.Context, handle models.DownloadHandle) ([]byte, error) {
	content, err := m.adapter.Fetch(ctx, handle)
	if err == nil {
		return content, nil
	}
	if errors.Is(err, &apperrors.AuthError{}) || ctx.Err() != nil {
		return nil, err
	}

	// A throttled backend must not see another call before the cooldown
	// has passed.
	var rateErr *apperrors.RateLimitError
	if errors.As(err, &rateErr) {
		wait := rateErr.RetryAfter
		if wait <= 0 {
			wait = m.cooldown
		}
		m.logger.Warn().Dur("wait", wait).Msg("Rate limited, waiting before retrying")
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(wait):
		}
	} else {
		m.logger.Warn().Err(err).Msg("Fetch failed, retrying once")
	}
	return m.adapter.Fetch(ctx, handle)
}

// DownloadAll downloads the top result of each ranked set in order. The
// target file name comes from the best-matching local video file, falling
// back to the search title; an existing file is never overwritten. A pause
// separates consecutive downloads so multi-language runs stay under the
// provider's rate limit. The returned error is non-nil only when every
// language failed.
func (m *Manager) DownloadAll(ctx context.Context, searchTitle string, sets []models.RankedResultSet, videos []models.VideoFile) ([]models.DownloadOutcome, error) {
	outcomes := make([]models.DownloadOutcome, 0, len(sets))
	succeeded := 0

	for i, set := range sets {
		if i > 0 && m.delay > 0 {
			select {
			case <-ctx.Done():
				return outcomes, ctx.Err()
			case <-time.After(m.delay):
			}
		}

		outcome := models.DownloadOutcome{Language: set.Language}
		top, ok := set.Top()
		if !ok {
			outcome.Err = fmt.Errorf("no results for language %q", set.Language)
			outcomes = append(outcomes, outcome)
			continue
		}

		base := m.matcher.BaseNameFor(videos, top.ReleaseName, searchTitle)
		outcome.TargetPath = match.TargetPath(m.saveDir, base, set.Language)

		if err := m.Download(ctx, top, outcome.TargetPath); err != nil {
			m.logger.Warn().Err(err).Str("language", set.Language).Msg("Download failed")
			outcome.Err = err
		} else {
			outcome.Success = true
			succeeded++
		}
		outcomes = append(outcomes, outcome)
	}

	if succeeded == 0 && len(outcomes) > 0 {
		return outcomes, fmt.Errorf("all %d downloads failed", len(outcomes))
	}
	return outcomes, nil
}

func writeAtomic(targetPath string, content []byte) error {
	dir := filepath.Dir(targetPath)
	tmp, err := os.CreateTemp(dir, ".subtitle-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(content); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, targetPath); err != nil {
		os.Remove(tmpName)
		return err
	}
	return os.Chmod(targetPath, 0o644)
}
