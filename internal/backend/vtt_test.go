package backend

import (
	"strings"
	"testing"
)

func TestVTTToSRT(t *testing.T) {
	t.Parallel()
	vtt := strings.Join([]string{
		"WEBVTT",
		"",
		"NOTE a comment the output must not carry",
		"",
		"some-cue-id",
		"00:00:01.000 --> 00:00:02.500 align:start position:10%",
		"First line",
		"Second line",
		"",
		"00:00:03.250 --> 00:00:04.000",
		"Another cue",
		"",
	}, "\n")

	want := strings.Join([]string{
		"1",
		"00:00:01,000 --> 00:00:02,500",
		"First line",
		"Second line",
		"",
		"2",
		"00:00:03,250 --> 00:00:04,000",
		"Another cue",
		"",
	}, "\n")

	if got := string(vttToSRT([]byte(vtt))); got != want {
		t.Errorf("vttToSRT:\ngot:\n%s\nwant:\n%s", got, want)
	}
}

func TestVTTToSRT_NoCuesPassesThrough(t *testing.T) {
	t.Parallel()
	vtt := []byte("WEBVTT\n\nNOTE nothing else here\n")
	if got := vttToSRT(vtt); string(got) != string(vtt) {
		t.Errorf("cue-less document should pass through unchanged, got %q", got)
	}
}

func TestIsWebVTT(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		payload string
		want    bool
	}{
		{"plain header", "WEBVTT\n\n00:00:01.000 --> 00:00:02.000\nhi\n", true},
		{"bom prefixed", "\ufeffWEBVTT\n", true},
		{"srt content", "1\n00:00:01,000 --> 00:00:02,000\nhi\n", false},
		{"empty", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := isWebVTT([]byte(tt.payload)); got != tt.want {
				t.Errorf("isWebVTT = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestUnpackEnvelope_ConvertsVTT(t *testing.T) {
	t.Parallel()
	vtt := "WEBVTT\n\n00:00:01.000 --> 00:00:02.000\nconverted\n"

	content, err := unpackEnvelope([]byte(vtt))
	if err != nil {
		t.Fatalf("unpackEnvelope failed: %v", err)
	}

	got := string(content)
	if !strings.HasPrefix(got, "1\n00:00:01,000 --> 00:00:02,000\nconverted") {
		t.Errorf("expected SRT output, got %q", got)
	}
	if strings.Contains(got, "WEBVTT") {
		t.Errorf("converted output still carries the VTT header: %q", got)
	}
}

func TestUnpackEnvelope_ConvertsVTTInsideZip(t *testing.T) {
	t.Parallel()
	payload := zipPayload(t, map[string]string{
		"Fargo.S01E03.vtt": "WEBVTT\n\n00:00:01.000 --> 00:00:02.000\nzipped cue\n",
	})

	content, err := unpackEnvelope(payload)
	if err != nil {
		t.Fatalf("unpackEnvelope failed: %v", err)
	}
	if strings.Contains(string(content), "WEBVTT") {
		t.Errorf("VTT inside a ZIP should be converted, got %q", content)
	}
	if !strings.Contains(string(content), "zipped cue") {
		t.Errorf("cue text lost in conversion: %q", content)
	}
}
