package cmd

import (
	"bytes"
	"context"
	"testing"

	"github.com/spf13/cobra"

	"github.com/ciefp/CiefpOpenSubtitles/internal/config"
	"github.com/ciefp/CiefpOpenSubtitles/internal/models"
	"github.com/ciefp/CiefpOpenSubtitles/internal/search"
	"github.com/ciefp/CiefpOpenSubtitles/internal/testutil"
)

func testResults(langs ...string) search.Results {
	r := search.Results{Sets: make(map[string]models.RankedResultSet)}
	for _, lang := range langs {
		r.Sets[lang] = models.RankedResultSet{
			Language: lang,
			Results:  []models.SubtitleResult{{ProviderID: "1", Language: lang}},
		}
	}
	return r
}

func TestSetsToDownload_SingleLanguage(t *testing.T) {
	results := testResults("sr", "hr")
	q := models.SearchQuery{Languages: []string{"sr", "hr"}}

	sets := setsToDownload(results, q, false)
	if len(sets) != 1 || sets[0].Language != "sr" {
		t.Errorf("sets = %+v, want only sr", sets)
	}
}

func TestSetsToDownload_SkipsEmptyLanguages(t *testing.T) {
	// sr produced nothing; the first language with results wins.
	results := testResults("hr")
	q := models.SearchQuery{Languages: []string{"sr", "hr"}}

	sets := setsToDownload(results, q, false)
	if len(sets) != 1 || sets[0].Language != "hr" {
		t.Errorf("sets = %+v, want hr", sets)
	}
}

func TestSetsToDownload_MultiLanguage(t *testing.T) {
	results := testResults("sr", "hr")
	q := models.SearchQuery{Languages: []string{"sr", "hr"}}

	sets := setsToDownload(results, q, true)
	if len(sets) != 2 {
		t.Errorf("sets = %+v, want both languages", sets)
	}
}

func TestDownloadResults_ReusesSearchAdapter(t *testing.T) {
	// Downloads must go through the adapter that ran the search so one
	// invocation holds a single session.
	fetches := 0
	adapter := &testutil.FakeAdapter{
		FetchFunc: func(_ context.Context, _ models.DownloadHandle) ([]byte, error) {
			fetches++
			return []byte("1\n00:00:01,000 --> 00:00:02,000\ncue\n"), nil
		},
	}

	cfg := &config.Config{SavePath: t.TempDir(), DownloadDelay: "1ms"}
	results := testResults("sr")
	q := models.SearchQuery{Title: "Fargo", Languages: []string{"sr"}}

	command := &cobra.Command{}
	command.SetContext(context.Background())
	var out, errOut bytes.Buffer
	command.SetOut(&out)
	command.SetErr(&errOut)

	if err := downloadResults(command, cfg, adapter, results, q, false); err != nil {
		t.Fatalf("downloadResults failed: %v", err)
	}
	if fetches != 1 {
		t.Errorf("fetches = %d, want 1 through the provided adapter", fetches)
	}
	if out.Len() == 0 {
		t.Error("expected a saved-path line on stdout")
	}
}

func TestFiltersFromConfig_FlagOverridesConfig(t *testing.T) {
	cfg := &config.Config{RequireHD: true, HearingOption: "forbid"}

	cmd := &cobra.Command{}
	var hd bool
	var hi string
	cmd.Flags().BoolVar(&hd, "hd", false, "")
	cmd.Flags().StringVar(&hi, "hi", "", "")

	// No flags set: config wins.
	filters := filtersFromConfig(cfg, cmd, hd, hi)
	if !filters.RequireHD || filters.HearingImpaired != models.HearingImpairedForbid {
		t.Errorf("filters = %+v, want config values", filters)
	}

	// Explicit flags win over config.
	if err := cmd.Flags().Set("hd", "false"); err != nil {
		t.Fatal(err)
	}
	if err := cmd.Flags().Set("hi", "require"); err != nil {
		t.Fatal(err)
	}
	filters = filtersFromConfig(cfg, cmd, false, "require")
	if filters.RequireHD || filters.HearingImpaired != models.HearingImpairedRequire {
		t.Errorf("filters = %+v, want flag values", filters)
	}
}

func TestSortKeyFromConfig(t *testing.T) {
	cfg := &config.Config{SortBy: "rating"}

	cmd := &cobra.Command{}
	var sortFlag string
	cmd.Flags().StringVar(&sortFlag, "sort", "", "")

	if got := sortKeyFromConfig(cfg, cmd, ""); got != models.SortByRating {
		t.Errorf("sort key = %v, want rating from config", got)
	}

	if err := cmd.Flags().Set("sort", "year"); err != nil {
		t.Fatal(err)
	}
	if got := sortKeyFromConfig(cfg, cmd, "year"); got != models.SortByYear {
		t.Errorf("sort key = %v, want year from flag", got)
	}
}
