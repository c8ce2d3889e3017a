// Package language normalizes user-supplied subtitle language codes.
//
// Users configure either 2-letter or 3-letter ISO-639 codes (the two
// provider generations expect different alphabets); everything is normalized
// to the canonical 2-letter form internally and widened back to 3 letters
// for the legacy backend.
package language

import (
	"fmt"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// legacyAliases maps deprecated or provider-specific codes that
// language.ParseBase does not resolve to their current ISO-639-1 form.
var legacyAliases = map[string]string{
	"scc": "sr", // deprecated code for Serbian, still used by the legacy provider
	"scr": "hr", // deprecated code for Croatian
}

// wildcardSet is what the "all" wildcard expands to: the language set the
// original set-top deployments search.
var wildcardSet = []string{"sr", "hr", "bs", "sl", "en"}

// Wildcard is the user-facing value that expands to the default language set.
const Wildcard = "all"

// Normalize converts a 2- or 3-letter ISO-639 code to its canonical 2-letter
// form (for example "srp" and "sr" both yield "sr"). An error is returned
// for codes that are not recognized ISO-639 at all.
func Normalize(code string) (string, error) {
	trimmed := strings.ToLower(strings.TrimSpace(code))
	if trimmed == "" {
		return "", fmt.Errorf("empty language code")
	}
	if alias, ok := legacyAliases[trimmed]; ok {
		trimmed = alias
	}

	base, err := language.ParseBase(trimmed)
	if err != nil {
		return "", fmt.Errorf("unknown language code %q: %w", code, err)
	}
	return base.String(), nil
}

// ToLegacy widens a canonical code to the 3-letter ISO-639-2 form the legacy
// backend expects (for example "sr" yields "srp").
func ToLegacy(code string) (string, error) {
	canonical, err := Normalize(code)
	if err != nil {
		return "", err
	}
	base, err := language.ParseBase(canonical)
	if err != nil {
		return "", fmt.Errorf("unknown language code %q: %w", code, err)
	}
	return base.ISO3(), nil
}

// DisplayName returns a human-readable English name for a language code, or
// the code itself when no name is known.
func DisplayName(code string) string {
	canonical, err := Normalize(code)
	if err != nil {
		return code
	}
	tag := language.Make(canonical)
	if name := display.English.Languages().Name(tag); name != "" {
		return name
	}
	return canonical
}

// ExpandWildcard returns the default language set for the "all" wildcard, or
// the input unchanged when it is not the wildcard.
func ExpandWildcard(codes []string) []string {
	for _, code := range codes {
		if strings.EqualFold(strings.TrimSpace(code), Wildcard) {
			expanded := make([]string, len(wildcardSet))
			copy(expanded, wildcardSet)
			return expanded
		}
	}
	return codes
}
