package backend

import (
	"archive/zip"
	"bytes"
	"compress/gzip"
	"testing"
)

func zipPayload(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, content := range files {
		f, err := zw.Create(name)
		if err != nil {
			t.Fatalf("creating zip entry %s: %v", name, err)
		}
		if _, err := f.Write([]byte(content)); err != nil {
			t.Fatalf("writing zip entry %s: %v", name, err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("closing zip: %v", err)
	}
	return buf.Bytes()
}

func TestUnpackEnvelope_PlainTextPassthrough(t *testing.T) {
	t.Parallel()
	payload := []byte("1\n00:00:01,000 --> 00:00:02,000\nplain\n")
	content, err := unpackEnvelope(payload)
	if err != nil {
		t.Fatalf("unpackEnvelope failed: %v", err)
	}
	if !bytes.Equal(content, payload) {
		t.Errorf("plain payload should pass through unchanged")
	}
}

func TestUnpackEnvelope_ZipPicksSubtitleFile(t *testing.T) {
	t.Parallel()
	payload := zipPayload(t, map[string]string{
		"readme.nfo":          "release notes",
		"Fargo.S01E03.srt":    "subtitle content",
	})

	content, err := unpackEnvelope(payload)
	if err != nil {
		t.Fatalf("unpackEnvelope failed: %v", err)
	}
	if string(content) != "subtitle content" {
		t.Errorf("expected the .srt entry, got %q", content)
	}
}

func TestUnpackEnvelope_ZipFallsBackToFirstFile(t *testing.T) {
	t.Parallel()
	payload := zipPayload(t, map[string]string{"oddly.named": "still a subtitle"})

	content, err := unpackEnvelope(payload)
	if err != nil {
		t.Fatalf("unpackEnvelope failed: %v", err)
	}
	if string(content) != "still a subtitle" {
		t.Errorf("expected fallback to first file, got %q", content)
	}
}

func TestUnpackEnvelope_EmptyZip(t *testing.T) {
	t.Parallel()
	payload := zipPayload(t, nil)
	if _, err := unpackEnvelope(payload); err == nil {
		t.Errorf("empty ZIP should be an error")
	}
}

func TestUnpackEnvelope_Gzip(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	gw := gzip.NewWriter(&buf)
	if _, err := gw.Write([]byte("gzipped subtitle")); err != nil {
		t.Fatalf("writing gzip: %v", err)
	}
	if err := gw.Close(); err != nil {
		t.Fatalf("closing gzip: %v", err)
	}

	content, err := unpackEnvelope(buf.Bytes())
	if err != nil {
		t.Fatalf("unpackEnvelope failed: %v", err)
	}
	if string(content) != "gzipped subtitle" {
		t.Errorf("expected gunzipped content, got %q", content)
	}
}

func TestIsSubtitleFile(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		want bool
	}{
		{"Fargo.S01E03.srt", true},
		{"Fargo.S01E03.SRT", true},
		{"styles.ass", true},
		{"notes.nfo", false},
		{"cover.jpg", false},
		{"no-extension", false},
	}
	for _, tt := range tests {
		if got := isSubtitleFile(tt.name); got != tt.want {
			t.Errorf("isSubtitleFile(%q) = %v, want %v", tt.name, got, tt.want)
		}
	}
}
