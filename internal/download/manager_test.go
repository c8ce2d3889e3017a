package download_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ciefp/CiefpOpenSubtitles/internal/apperrors"
	"github.com/ciefp/CiefpOpenSubtitles/internal/config"
	"github.com/ciefp/CiefpOpenSubtitles/internal/download"
	"github.com/ciefp/CiefpOpenSubtitles/internal/match"
	"github.com/ciefp/CiefpOpenSubtitles/internal/models"
	"github.com/ciefp/CiefpOpenSubtitles/internal/testutil"
)

const srtFixture = "1\n00:00:01,000 --> 00:00:02,500\nTest subtitle line\n"

func newManager(t *testing.T, adapter *testutil.FakeAdapter) (*download.Manager, string) {
	t.Helper()
	dir := t.TempDir()
	cfg := &config.Config{SavePath: dir, DownloadDelay: "1ms"}
	m, err := download.NewManager(adapter, match.New(0.5), cfg)
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}
	return m, dir
}

func rankedSet(lang, id, release string) models.RankedResultSet {
	return models.RankedResultSet{
		Language: lang,
		Results: []models.SubtitleResult{{
			ProviderID:  id,
			Language:    lang,
			ReleaseName: release,
			Handle:      models.DownloadHandle{Backend: "fake", FileID: id},
		}},
	}
}

func TestNewManager_RejectsMissingDir(t *testing.T) {
	t.Parallel()
	cfg := &config.Config{SavePath: "/nonexistent/subtitles"}
	_, err := download.NewManager(&testutil.FakeAdapter{}, match.New(0.5), cfg)

	if !errors.Is(err, &apperrors.FileSystemError{}) {
		t.Errorf("err = %v, want FileSystemError", err)
	}
}

func TestNewManager_RejectsFileAsDir(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	file := filepath.Join(dir, "file")
	if err := os.WriteFile(file, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := &config.Config{SavePath: file}
	if _, err := download.NewManager(&testutil.FakeAdapter{}, match.New(0.5), cfg); err == nil {
		t.Error("expected error for non-directory save path")
	}
}

func TestDownload_WritesFile(t *testing.T) {
	t.Parallel()
	adapter := &testutil.FakeAdapter{
		FetchFunc: func(_ context.Context, _ models.DownloadHandle) ([]byte, error) {
			return []byte(srtFixture), nil
		},
	}
	m, dir := newManager(t, adapter)

	target := filepath.Join(dir, "Fargo.S01E03.sr.srt")
	result := models.SubtitleResult{Language: "sr", Handle: models.DownloadHandle{FileID: "1"}}
	if err := m.Download(context.Background(), result, target); err != nil {
		t.Fatalf("Download failed: %v", err)
	}

	content, err := os.ReadFile(target)
	if err != nil {
		t.Fatalf("reading saved subtitle: %v", err)
	}
	if string(content) != srtFixture {
		t.Errorf("content = %q, want fixture", content)
	}

	// No temp files left behind.
	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 {
		t.Errorf("dir has %d entries, want just the subtitle", len(entries))
	}
}

func TestDownload_RetriesOnceOnTransientFailure(t *testing.T) {
	t.Parallel()
	attempts := 0
	adapter := &testutil.FakeAdapter{
		FetchFunc: func(_ context.Context, _ models.DownloadHandle) ([]byte, error) {
			attempts++
			if attempts == 1 {
				return nil, apperrors.NewDownloadError("sr", errors.New("connection reset"))
			}
			return []byte(srtFixture), nil
		},
	}
	m, dir := newManager(t, adapter)

	target := filepath.Join(dir, "out.sr.srt")
	result := models.SubtitleResult{Language: "sr", Handle: models.DownloadHandle{FileID: "1"}}
	if err := m.Download(context.Background(), result, target); err != nil {
		t.Fatalf("Download should succeed on second attempt: %v", err)
	}
	if attempts != 2 {
		t.Errorf("attempts = %d, want 2", attempts)
	}
}

func TestDownload_RateLimitWaitsBeforeRetry(t *testing.T) {
	t.Parallel()
	const retryAfter = 80 * time.Millisecond

	attempts := 0
	var secondAttemptAt time.Time
	adapter := &testutil.FakeAdapter{
		FetchFunc: func(_ context.Context, _ models.DownloadHandle) ([]byte, error) {
			attempts++
			if attempts == 1 {
				return nil, apperrors.NewRateLimitError("rest", retryAfter)
			}
			secondAttemptAt = time.Now()
			return []byte(srtFixture), nil
		},
	}
	m, dir := newManager(t, adapter)

	start := time.Now()
	result := models.SubtitleResult{Language: "sr", Handle: models.DownloadHandle{FileID: "1"}}
	if err := m.Download(context.Background(), result, filepath.Join(dir, "out.sr.srt")); err != nil {
		t.Fatalf("Download should succeed after the cooldown: %v", err)
	}

	if attempts != 2 {
		t.Fatalf("attempts = %d, want 2", attempts)
	}
	if waited := secondAttemptAt.Sub(start); waited < retryAfter {
		t.Errorf("retried after %v, before the %v cooldown", waited, retryAfter)
	}
}

func TestDownload_RateLimitFallsBackToConfiguredCooldown(t *testing.T) {
	t.Parallel()
	const cooldown = 60 * time.Millisecond

	attempts := 0
	var secondAttemptAt time.Time
	adapter := &testutil.FakeAdapter{
		FetchFunc: func(_ context.Context, _ models.DownloadHandle) ([]byte, error) {
			attempts++
			if attempts == 1 {
				// The provider gave no Retry-After hint.
				return nil, apperrors.NewRateLimitError("rest", 0)
			}
			secondAttemptAt = time.Now()
			return []byte(srtFixture), nil
		},
	}

	cfg := &config.Config{SavePath: t.TempDir()}
	cfg.Search.RateLimitCooldown = cooldown.String()
	m, err := download.NewManager(adapter, match.New(0.5), cfg)
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}

	start := time.Now()
	result := models.SubtitleResult{Language: "sr", Handle: models.DownloadHandle{FileID: "1"}}
	if err := m.Download(context.Background(), result, filepath.Join(cfg.SavePath, "out.sr.srt")); err != nil {
		t.Fatalf("Download should succeed after the cooldown: %v", err)
	}

	if waited := secondAttemptAt.Sub(start); waited < cooldown {
		t.Errorf("retried after %v, before the %v cooldown", waited, cooldown)
	}
}

func TestDownload_NoRetryOnAuthError(t *testing.T) {
	t.Parallel()
	attempts := 0
	adapter := &testutil.FakeAdapter{
		FetchFunc: func(_ context.Context, _ models.DownloadHandle) ([]byte, error) {
			attempts++
			return nil, apperrors.NewAuthError("rest", "token expired")
		},
	}
	m, dir := newManager(t, adapter)

	result := models.SubtitleResult{Language: "sr", Handle: models.DownloadHandle{FileID: "1"}}
	err := m.Download(context.Background(), result, filepath.Join(dir, "out.srt"))
	if err == nil {
		t.Fatal("expected failure")
	}
	if attempts != 1 {
		t.Errorf("attempts = %d, want 1", attempts)
	}
}

func TestDownload_EmptyContentFails(t *testing.T) {
	t.Parallel()
	adapter := &testutil.FakeAdapter{
		FetchFunc: func(_ context.Context, _ models.DownloadHandle) ([]byte, error) {
			return nil, nil
		},
	}
	m, dir := newManager(t, adapter)

	result := models.SubtitleResult{Language: "sr", Handle: models.DownloadHandle{FileID: "1"}}
	err := m.Download(context.Background(), result, filepath.Join(dir, "out.srt"))
	if !errors.Is(err, &apperrors.DownloadError{}) {
		t.Errorf("err = %v, want DownloadError", err)
	}
}

func TestDownloadAll_NamesAfterMatchedVideo(t *testing.T) {
	t.Parallel()
	adapter := &testutil.FakeAdapter{}
	m, dir := newManager(t, adapter)

	videos := []models.VideoFile{
		{Path: filepath.Join(dir, "Fargo.S01E03.mkv"), BaseName: "Fargo.S01E03"},
	}
	sets := []models.RankedResultSet{rankedSet("sr", "1", "Fargo.S01E03.720p.HDTV.x264-NTb")}

	outcomes, err := m.DownloadAll(context.Background(), "Fargo", sets, videos)
	if err != nil {
		t.Fatalf("DownloadAll failed: %v", err)
	}
	if len(outcomes) != 1 || !outcomes[0].Success {
		t.Fatalf("outcomes = %+v", outcomes)
	}
	if want := filepath.Join(dir, "Fargo.S01E03.sr.srt"); outcomes[0].TargetPath != want {
		t.Errorf("TargetPath = %q, want %q", outcomes[0].TargetPath, want)
	}
	if _, err := os.Stat(outcomes[0].TargetPath); err != nil {
		t.Errorf("saved file missing: %v", err)
	}
}

func TestDownloadAll_FallsBackToSearchTitle(t *testing.T) {
	t.Parallel()
	adapter := &testutil.FakeAdapter{}
	m, dir := newManager(t, adapter)

	sets := []models.RankedResultSet{rankedSet("sr", "1", "Fargo.S01E03.720p")}

	outcomes, err := m.DownloadAll(context.Background(), "Fargo S01E03", sets, nil)
	if err != nil {
		t.Fatalf("DownloadAll failed: %v", err)
	}
	if want := filepath.Join(dir, "Fargo.S01E03.sr.srt"); outcomes[0].TargetPath != want {
		t.Errorf("TargetPath = %q, want %q", outcomes[0].TargetPath, want)
	}
}

func TestDownloadAll_PartialSuccess(t *testing.T) {
	t.Parallel()
	adapter := &testutil.FakeAdapter{
		FetchFunc: func(_ context.Context, handle models.DownloadHandle) ([]byte, error) {
			if handle.FileID == "bad" {
				return nil, apperrors.NewDownloadError("hr", errors.New("gone"))
			}
			return []byte(srtFixture), nil
		},
	}
	m, _ := newManager(t, adapter)

	sets := []models.RankedResultSet{
		rankedSet("sr", "1", "Fargo.S01E03"),
		rankedSet("hr", "bad", "Fargo.S01E03"),
	}

	outcomes, err := m.DownloadAll(context.Background(), "Fargo", sets, nil)
	if err != nil {
		t.Fatalf("one success should make the run a success: %v", err)
	}
	if !outcomes[0].Success || outcomes[1].Success {
		t.Errorf("outcomes = %+v, want sr ok and hr failed", outcomes)
	}
	if outcomes[1].Err == nil {
		t.Error("failed outcome should record its error")
	}
}

func TestDownloadAll_AllFail(t *testing.T) {
	t.Parallel()
	adapter := &testutil.FakeAdapter{
		FetchFunc: func(_ context.Context, _ models.DownloadHandle) ([]byte, error) {
			return nil, apperrors.NewDownloadError("", errors.New("gone"))
		},
	}
	m, _ := newManager(t, adapter)

	sets := []models.RankedResultSet{rankedSet("sr", "1", "x"), rankedSet("hr", "2", "x")}
	if _, err := m.DownloadAll(context.Background(), "Fargo", sets, nil); err == nil {
		t.Error("expected error when every download fails")
	}
}

func TestDownloadAll_EmptySetSkipped(t *testing.T) {
	t.Parallel()
	adapter := &testutil.FakeAdapter{}
	m, _ := newManager(t, adapter)

	sets := []models.RankedResultSet{
		{Language: "sr"},
		rankedSet("hr", "1", "Fargo.S01E03"),
	}

	outcomes, err := m.DownloadAll(context.Background(), "Fargo", sets, nil)
	if err != nil {
		t.Fatalf("DownloadAll failed: %v", err)
	}
	if outcomes[0].Success || outcomes[0].Err == nil {
		t.Errorf("empty set should fail its language: %+v", outcomes[0])
	}
	if !outcomes[1].Success {
		t.Errorf("second language should succeed: %+v", outcomes[1])
	}
}

func TestDownloadAll_CollisionGetsSuffix(t *testing.T) {
	t.Parallel()
	adapter := &testutil.FakeAdapter{}
	m, dir := newManager(t, adapter)

	sets := []models.RankedResultSet{rankedSet("sr", "1", "Fargo.S01E03")}

	first, err := m.DownloadAll(context.Background(), "Fargo S01E03", sets, nil)
	if err != nil {
		t.Fatal(err)
	}
	second, err := m.DownloadAll(context.Background(), "Fargo S01E03", sets, nil)
	if err != nil {
		t.Fatal(err)
	}

	if first[0].TargetPath == second[0].TargetPath {
		t.Errorf("second run should not overwrite: %q", second[0].TargetPath)
	}
	if want := filepath.Join(dir, "Fargo.S01E03.sr.1.srt"); second[0].TargetPath != want {
		t.Errorf("TargetPath = %q, want %q", second[0].TargetPath, want)
	}
}

func TestDownloadAll_ContextCancelled(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	adapter := &testutil.FakeAdapter{
		FetchFunc: func(_ context.Context, _ models.DownloadHandle) ([]byte, error) {
			cancel()
			return []byte(srtFixture), nil
		},
	}
	m, _ := newManager(t, adapter)

	sets := []models.RankedResultSet{rankedSet("sr", "1", "x"), rankedSet("hr", "2", "x")}
	outcomes, err := m.DownloadAll(ctx, "Fargo", sets, nil)

	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if len(outcomes) != 1 {
		t.Errorf("outcomes = %d, want only the first language", len(outcomes))
	}
}
