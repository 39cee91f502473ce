// ABOUTME: Language identifies one column of the correspondence table and one store directory
// ABOUTME: Parsed from BCP 47 codes or English names into a canonical lowercase base code
package models

import (
	"fmt"
	"regexp"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// Language is a canonical lowercase BCP 47 base code such as "en" or "fr"
type Language string

var codePattern = regexp.MustCompile(`^[a-z]{2,3}$`)

// English names accepted as aliases for the most common codes
var languageAliases = map[string]string{
	"english":    "en",
	"french":     "fr",
	"german":     "de",
	"spanish":    "es",
	"ukrainian":  "uk",
	"italian":    "it",
	"portuguese": "pt",
	"russian":    "ru",
	"chinese":    "zh",
	"japanese":   "ja",
}

// ParseLanguage accepts "fr", "fr-FR", "French" and returns the canonical base code
func ParseLanguage(s string) (Language, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", fmt.Errorf("language is required")
	}
	if code, ok := languageAliases[strings.ToLower(s)]; ok {
		s = code
	}

	tag, err := language.Parse(s)
	if err != nil {
		return "", fmt.Errorf("invalid language %q: %w", s, err)
	}
	// Base guesses a language for "und" and script-only tags; only an explicit one counts
	base, conf := tag.Base()
	if conf != language.Exact || base.String() == "und" {
		return "", fmt.Errorf("invalid language %q", s)
	}
	return Language(strings.ToLower(base.String())), nil
}

// MustParseLanguage is ParseLanguage for constants; it panics on error
func MustParseLanguage(s string) Language {
	l, err := ParseLanguage(s)
	if err != nil {
		panic(err)
	}
	return l
}

// Valid reports whether l is a canonical code, safe to use as a path element or column name
func (l Language) Valid() bool {
	return codePattern.MatchString(string(l))
}

// String returns the canonical code
func (l Language) String() string {
	return string(l)
}

// DisplayName returns the English name of the language, falling back to the code
func (l Language) DisplayName() string {
	tag, err := language.Parse(string(l))
	if err != nil {
		return string(l)
	}
	if name := display.English.Languages().Name(tag); name != "" {
		return name
	}
	return string(l)
}
