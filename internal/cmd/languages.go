package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ciefp/CiefpOpenSubtitles/internal/language"
)

var languagesCmd = &cobra.Command{
	Use:   "languages [code...]",
	Short: "Show language codes and their canonical form",
	Long: `Without arguments, list the languages covered by the "all" wildcard.
With arguments, resolve each given 2- or 3-letter code to its canonical
form and English name, which is useful for checking a settings entry.`,
	RunE: runLanguagesCommand,
}

func init() {
	rootCmd.AddCommand(languagesCmd)
}

func runLanguagesCommand(cmd *cobra.Command, args []string) error {
	codes := args
	if len(codes) == 0 {
		codes = language.ExpandWildcard([]string{language.Wildcard})
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 2, 4, 2, ' ', 0)
	fmt.Fprintln(w, "CODE\tLEGACY\tNAME")
	for _, code := range codes {
		canonical, err := language.Normalize(code)
		if err != nil {
			fmt.Fprintf(w, "%s\t-\tunknown code\n", code)
			continue
		}
		legacy, err := language.ToLegacy(canonical)
		if err != nil {
			legacy = "-"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\n", canonical, legacy, language.DisplayName(canonical))
	}
	return w.Flush()
}
