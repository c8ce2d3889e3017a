package cmd

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ciefp/CiefpOpenSubtitles/internal/backend"
	"github.com/ciefp/CiefpOpenSubtitles/internal/config"
	"github.com/ciefp/CiefpOpenSubtitles/internal/language"
	"github.com/ciefp/CiefpOpenSubtitles/internal/models"
	"github.com/ciefp/CiefpOpenSubtitles/internal/query"
	"github.com/ciefp/CiefpOpenSubtitles/internal/search"
)

var (
	searchSeason  int
	searchEpisode int
	searchLangs   []string
	searchSort    string
	searchHD      bool
	searchHI      string
	searchLimit   int
)

var searchCmd = &cobra.Command{
	Use:   "search <title>",
	Short: "Search for subtitles without downloading",
	Long: `Search the configured provider for subtitles matching a title, optionally
narrowed to one episode, and print the ranked results per language.

Use "all" as the language to search every supported language.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSearchCommand,
}

func init() {
	searchCmd.Flags().IntVarP(&searchSeason, "season", "s", 0, "Season number (requires --episode)")
	searchCmd.Flags().IntVarP(&searchEpisode, "episode", "e", 0, "Episode number (requires --season)")
	searchCmd.Flags().StringSliceVarP(&searchLangs, "langs", "l", nil, "Language codes in priority order (defaults to the configured list)")
	searchCmd.Flags().StringVar(&searchSort, "sort", "", "Sort key: downloads, year, rating or fps")
	searchCmd.Flags().BoolVar(&searchHD, "hd", false, "Only keep results tagged HD")
	searchCmd.Flags().StringVar(&searchHI, "hi", "", "Hearing impaired filter: any, require or forbid")
	searchCmd.Flags().IntVarP(&searchLimit, "limit", "n", 0, "Maximum results per language (defaults to the configured limit)")
	rootCmd.AddCommand(searchCmd)
}

func runSearchCommand(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	adapter, results, q, err := runSearch(cmd, cfg, args)
	if err != nil {
		return err
	}

	printResults(cmd, results, q)

	if cfg.AutoDownload {
		return downloadResults(cmd, cfg, adapter, results, q, cfg.MultiLanguage)
	}
	return nil
}

// runSearch builds the query from flags and config and fans it out over the
// requested languages. The adapter is returned so downloads reuse its
// session instead of authenticating again. Shared by the search and get
// commands.
func runSearch(cmd *cobra.Command, cfg *config.Config, args []string) (backend.Adapter, search.Results, models.SearchQuery, error) {
	langs := searchLangs
	if len(langs) == 0 {
		langs = cfg.Languages
	}
	limit := searchLimit
	if limit == 0 {
		limit = cfg.ResultLimit
	}

	q, err := query.Build(strings.Join(args, " "), searchSeason, searchEpisode, langs, limit)
	if err != nil {
		return nil, search.Results{}, models.SearchQuery{}, err
	}

	adapter, err := newAdapter(cfg)
	if err != nil {
		return nil, search.Results{}, models.SearchQuery{}, err
	}

	orch := search.New(
		adapter,
		cfg,
		sortKeyFromConfig(cfg, cmd, searchSort),
		filtersFromConfig(cfg, cmd, searchHD, searchHI),
	)
	results, err := orch.Search(cmd.Context(), q)
	if err != nil {
		return nil, search.Results{}, models.SearchQuery{}, err
	}
	return adapter, results, q, nil
}

func printResults(cmd *cobra.Command, results search.Results, q models.SearchQuery) {
	for _, lang := range results.Languages(q.Languages) {
		set := results.Sets[lang]
		fmt.Fprintf(cmd.OutOrStdout(), "\n%s (%d results, sorted by %s):\n",
			language.DisplayName(lang), len(set.Results), set.SortedBy)

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 2, 4, 2, ' ', 0)
		fmt.Fprintln(w, "  RELEASE\tYEAR\tDOWNLOADS\tRATING\tFPS\tHD\tHI\tUPLOADER")
		for _, r := range set.Results {
			fmt.Fprintf(w, "  %s\t%s\t%d\t%.1f\t%s\t%s\t%s\t%s\n",
				r.ReleaseName,
				orDash(r.Year),
				r.DownloadCount,
				r.Rating,
				fpsColumn(r.FrameRate),
				yesNo(r.HD),
				yesNo(r.HearingImpaired),
				r.Uploader,
			)
		}
		w.Flush()
	}

	for lang, reason := range results.Failures {
		fmt.Fprintf(cmd.ErrOrStderr(), "\n%s: search failed: %v\n", language.DisplayName(lang), reason)
	}
}

func orDash(year int) string {
	if year == 0 {
		return "-"
	}
	return fmt.Sprintf("%d", year)
}

func fpsColumn(fps float64) string {
	if fps == 0 {
		return "-"
	}
	return fmt.Sprintf("%.3f", fps)
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
