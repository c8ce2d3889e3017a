package backend

import (
	"archive/zip"
	"bytes"
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/nwaples/rardecode/v2"
)

// Providers wrap subtitle content in assorted envelopes: the legacy service
// gzips raw payloads, and both serve ZIP or RAR archives for release packs.
// unpackEnvelope sniffs the payload, returns the inner subtitle bytes, and
// converts WEBVTT payloads to SRT. Plain text passes through unchanged.
func unpackEnvelope(payload []byte) ([]byte, error) {
	content, err := unwrapEnvelope(payload)
	if err != nil {
		return nil, err
	}
	if isWebVTT(content) {
		return vttToSRT(content), nil
	}
	return content, nil
}

func unwrapEnvelope(payload []byte) ([]byte, error) {
	switch {
	case bytes.HasPrefix(payload, []byte("PK")):
		// Covers empty and spanned archives too; zip.NewReader rejects
		// anything malformed.
		return extractFromZip(payload)
	case bytes.HasPrefix(payload, []byte("Rar!")):
		return extractFromRar(payload)
	case bytes.HasPrefix(payload, []byte{0x1f, 0x8b}):
		return gunzip(payload)
	default:
		return payload, nil
	}
}

// subtitleExtensions are the file types searched for inside archives, in
// preference order.
var subtitleExtensions = []string{".srt", ".ass", ".ssa", ".sub", ".vtt", ".txt"}

func isSubtitleFile(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, candidate := range subtitleExtensions {
		if ext == candidate {
			return true
		}
	}
	return false
}

func extractFromZip(payload []byte) ([]byte, error) {
	reader, err := zip.NewReader(bytes.NewReader(payload), int64(len(payload)))
	if err != nil {
		return nil, fmt.Errorf("opening ZIP envelope: %w", err)
	}

	var fallback *zip.File
	for _, file := range reader.File {
		if file.FileInfo().IsDir() {
			continue
		}
		if isSubtitleFile(file.Name) {
			return readZipFile(file)
		}
		if fallback == nil {
			fallback = file
		}
	}

	// No recognized subtitle extension; take the first file like the
	// original receivers did, so oddly named payloads still work.
	if fallback != nil {
		return readZipFile(fallback)
	}
	return nil, errors.New("ZIP envelope contains no files")
}

func readZipFile(file *zip.File) ([]byte, error) {
	rc, err := file.Open()
	if err != nil {
		return nil, fmt.Errorf("opening %s in ZIP: %w", file.Name, err)
	}
	defer rc.Close()

	content, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("reading %s from ZIP: %w", file.Name, err)
	}
	return content, nil
}

func extractFromRar(payload []byte) ([]byte, error) {
	reader, err := rardecode.NewReader(bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("opening RAR envelope: %w", err)
	}

	var fallback []byte
	for {
		header, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading RAR envelope: %w", err)
		}
		if header.IsDir {
			continue
		}

		content, err := io.ReadAll(reader)
		if err != nil {
			return nil, fmt.Errorf("reading %s from RAR: %w", header.Name, err)
		}
		if isSubtitleFile(header.Name) {
			return content, nil
		}
		if fallback == nil {
			fallback = content
		}
	}

	if fallback != nil {
		return fallback, nil
	}
	return nil, errors.New("RAR envelope contains no files")
}

func gunzip(payload []byte) ([]byte, error) {
	reader, err := gzip.NewReader(bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("opening gzip envelope: %w", err)
	}
	defer reader.Close()

	content, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("reading gzip envelope: %w", err)
	}
	return content, nil
}
