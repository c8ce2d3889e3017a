package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ciefp/CiefpOpenSubtitles/internal/backend"
	"github.com/ciefp/CiefpOpenSubtitles/internal/config"
	"github.com/ciefp/CiefpOpenSubtitles/internal/download"
	"github.com/ciefp/CiefpOpenSubtitles/internal/match"
	"github.com/ciefp/CiefpOpenSubtitles/internal/models"
	"github.com/ciefp/CiefpOpenSubtitles/internal/search"
)

var getAllLangs bool

var getCmd = &cobra.Command{
	Use:   "get <title>",
	Short: "Search and download the best subtitle",
	Long: `Search the configured provider and download the top-ranked subtitle into
the save directory. The file is named after the local video file that best
matches the subtitle release, falling back to the search title.

By default only the first language that produced results is downloaded;
--all-langs (or multi_lang_download in the settings) downloads one subtitle
per language.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runGetCommand,
}

func init() {
	getCmd.Flags().IntVarP(&searchSeason, "season", "s", 0, "Season number (requires --episode)")
	getCmd.Flags().IntVarP(&searchEpisode, "episode", "e", 0, "Episode number (requires --season)")
	getCmd.Flags().StringSliceVarP(&searchLangs, "langs", "l", nil, "Language codes in priority order (defaults to the configured list)")
	getCmd.Flags().StringVar(&searchSort, "sort", "", "Sort key: downloads, year, rating or fps")
	getCmd.Flags().BoolVar(&searchHD, "hd", false, "Only keep results tagged HD")
	getCmd.Flags().StringVar(&searchHI, "hi", "", "Hearing impaired filter: any, require or forbid")
	getCmd.Flags().BoolVar(&getAllLangs, "all-langs", false, "Download one subtitle per requested language")
	rootCmd.AddCommand(getCmd)
}

func runGetCommand(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	adapter, results, q, err := runSearch(cmd, cfg, args)
	if err != nil {
		return err
	}

	return downloadResults(cmd, cfg, adapter, results, q, cfg.MultiLanguage || getAllLangs)
}

// downloadResults downloads the top result of the selected language sets
// and reports each outcome, reusing the adapter (and thus its session) that
// ran the search. Shared by the get command and the search command's
// auto-download mode.
func downloadResults(cmd *cobra.Command, cfg *config.Config, adapter backend.Adapter, results search.Results, q models.SearchQuery, multiLang bool) error {
	sets := setsToDownload(results, q, multiLang)
	if len(sets) == 0 {
		return fmt.Errorf("no subtitles found for %q", q.Title)
	}

	manager, err := download.NewManager(adapter, match.New(cfg.Match.MinScore), cfg)
	if err != nil {
		return err
	}
	videos, err := match.ListVideoFiles(manager.SaveDir())
	if err != nil {
		return err
	}

	outcomes, err := manager.DownloadAll(cmd.Context(), q.Title, sets, videos)
	for _, outcome := range outcomes {
		if outcome.Success {
			fmt.Fprintf(cmd.OutOrStdout(), "%s: saved %s\n", outcome.Language, outcome.TargetPath)
		} else {
			fmt.Fprintf(cmd.ErrOrStderr(), "%s: failed: %v\n", outcome.Language, outcome.Err)
		}
	}
	return err
}

// setsToDownload picks which ranked sets to download: every language with
// results in multi-language mode, otherwise just the highest-priority one.
func setsToDownload(results search.Results, q models.SearchQuery, multiLang bool) []models.RankedResultSet {
	var sets []models.RankedResultSet
	for _, lang := range results.Languages(q.Languages) {
		sets = append(sets, results.Sets[lang])
		if !multiLang {
			break
		}
	}
	return sets
}
