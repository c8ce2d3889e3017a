// Package cmd wires the command line interface to the search and download
// pipeline.
package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/ciefp/CiefpOpenSubtitles/internal/backend"
	"github.com/ciefp/CiefpOpenSubtitles/internal/config"
	"github.com/ciefp/CiefpOpenSubtitles/internal/credentials"
	"github.com/ciefp/CiefpOpenSubtitles/internal/models"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "ciefp-opensubtitles",
	Short: "Search and download subtitles from OpenSubtitles",
	Long: `ciefp-opensubtitles searches OpenSubtitles for movie and episode subtitles
in one or more languages and saves them next to your recordings.

Two provider backends are supported: the REST API on opensubtitles.com
(API key) and the legacy site on opensubtitles.org (username/password).
Credentials and settings are read from the configuration directory.`,
	SilenceUsage: true,
}

// Execute runs the root command. It is called once from main.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var (
	configDir   string
	backendName string
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configDir, "config-dir", config.DefaultConfigDir, "Directory holding settings.yaml and credential files")
	rootCmd.PersistentFlags().StringVar(&backendName, "backend", "", "Provider backend to use: rest or legacy (overrides the configured one)")
}

// loadConfig reads the settings file and applies command line overrides.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configDir)
	if err != nil {
		return nil, err
	}
	if backendName != "" {
		cfg.Backend = backendName
	}
	return cfg, nil
}

// newAdapter builds the configured backend adapter with the stored
// credentials. Missing credentials surface later as an authentication
// failure so that commands needing no network still work.
func newAdapter(cfg *config.Config) (backend.Adapter, error) {
	creds, err := credentials.Load(configDir)
	if err != nil {
		return nil, err
	}

	switch cfg.Backend {
	case "legacy":
		return backend.NewLegacy(cfg, creds), nil
	default:
		return backend.NewREST(cfg, creds), nil
	}
}

// filtersFromConfig resolves the hard filters, letting flags that were set
// on the command line win over the settings file.
func filtersFromConfig(cfg *config.Config, cmd *cobra.Command, hdFlag bool, hiFlag string) models.Filters {
	filters := models.Filters{
		RequireHD:       cfg.RequireHD,
		HearingImpaired: models.ParseHearingImpairedFilter(cfg.HearingOption),
	}
	if cmd.Flags().Changed("hd") {
		filters.RequireHD = hdFlag
	}
	if cmd.Flags().Changed("hi") {
		filters.HearingImpaired = models.ParseHearingImpairedFilter(hiFlag)
	}
	return filters
}

func sortKeyFromConfig(cfg *config.Config, cmd *cobra.Command, sortFlag string) models.SortKey {
	if cmd.Flags().Changed("sort") {
		return models.ParseSortKey(sortFlag)
	}
	return models.ParseSortKey(cfg.SortBy)
}
