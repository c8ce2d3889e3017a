package backend

import (
	"bytes"
	"strconv"
	"strings"
)

// isWebVTT reports whether the payload is a WEBVTT document. The magic word
// sits in the first line, possibly after a byte order mark.
func isWebVTT(content []byte) bool {
	head := content
	if len(head) > 100 {
		head = head[:100]
	}
	return bytes.Contains(head, []byte("WEBVTT"))
}

// vttToSRT converts a WEBVTT document to SRT: cues are renumbered from 1,
// timestamp fractions switch from dot to comma, and cue settings after the
// end timestamp are dropped, as are header, NOTE and STYLE blocks and cue
// identifiers. A document with no parseable cues is returned unchanged
// rather than replaced with an empty file.
func vttToSRT(content []byte) []byte {
	lines := strings.Split(string(content), "\n")

	var out []string
	counter := 1
	for i := 0; i < len(lines); {
		line := strings.TrimSpace(lines[i])
		if !strings.Contains(line, "-->") {
			i++
			continue
		}

		parts := strings.SplitN(line, "-->", 2)
		start := srtTimestamp(parts[0])
		end := srtTimestamp(parts[1])
		i++

		var text []string
		for i < len(lines) {
			next := strings.TrimSpace(lines[i])
			if next == "" || strings.Contains(next, "-->") {
				break
			}
			text = append(text, next)
			i++
		}
		if len(text) == 0 {
			continue
		}

		out = append(out,
			strconv.Itoa(counter),
			start+" --> "+end,
			strings.Join(text, "\n"),
			"",
		)
		counter++
	}

	if counter == 1 {
		return content
	}
	return []byte(strings.Join(out, "\n"))
}

// srtTimestamp normalizes one side of a VTT cue timing line: cue settings
// after the timestamp are cut and the millisecond separator becomes a comma.
func srtTimestamp(s string) string {
	s = strings.TrimSpace(s)
	if idx := strings.IndexByte(s, ' '); idx != -1 {
		s = s[:idx]
	}
	return strings.ReplaceAll(s, ".", ",")
}
