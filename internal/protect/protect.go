// ABOUTME: Placeholder protection for spans that must survive translation verbatim
// ABOUTME: Inline math, references, inline code, link targets and URLs become <ph id="N"/> tokens
package protect

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// Inline code, link targets, inline math, reference commands, \href targets and URLs.
// Alternatives are tried left to right at each position, so more specific forms come first.
var protectedPattern = regexp.MustCompile(strings.Join([]string{
	"`[^`\n]+`",
	`\]\([^)\s]+(?:\s+"[^"]*")?\)`,
	`\\\(.+?\\\)`,
	`\$[^$\n]+\$`,
	`\\(?:ref|eqref|autoref|cref|Cref|pageref|cite|citep|citet|label|url|includegraphics)\*?(?:\[[^\]]*\])*\{[^}]*\}`,
	`\\href\{[^}]*\}`,
	`https?://[^\s<>()\[\]"]+[^\s<>()\[\]".,;:!?]`,
}, "|"))

var tokenPattern = regexp.MustCompile(`<ph\s+id=["']?([0-9]+)["']?\s*/?>`)

// Protected is text with its verbatim spans swapped for tokens
type Protected struct {
	Text  string
	Spans []string
}

// Token returns the placeholder for the i-th span (1-based)
func Token(i int) string {
	return fmt.Sprintf(`<ph id="%d"/>`, i)
}

// Protect replaces every protected span in text with a numbered token
func Protect(text string) Protected {
	var spans []string
	out := protectedPattern.ReplaceAllStringFunc(text, func(m string) string {
		spans = append(spans, m)
		return Token(len(spans))
	})
	return Protected{Text: out, Spans: spans}
}

// Restore puts the original spans back. Every token must appear exactly once
// and no unknown token may appear.
func Restore(translated string, spans []string) (string, error) {
	counts := make(map[int]int)
	for _, m := range tokenPattern.FindAllStringSubmatch(translated, -1) {
		id, _ := strconv.Atoi(m[1])
		counts[id]++
	}

	var problems []string
	for id, n := range counts {
		switch {
		case id < 1 || id > len(spans):
			problems = append(problems, fmt.Sprintf("unknown placeholder %d", id))
		case n > 1:
			problems = append(problems, fmt.Sprintf("placeholder %d appears %d times", id, n))
		}
	}
	for id := 1; id <= len(spans); id++ {
		if counts[id] == 0 {
			problems = append(problems, fmt.Sprintf("placeholder %d missing", id))
		}
	}
	if len(problems) > 0 {
		sort.Strings(problems)
		return "", fmt.Errorf("placeholder check failed: %s", strings.Join(problems, "; "))
	}

	return tokenPattern.ReplaceAllStringFunc(translated, func(m string) string {
		id, _ := strconv.Atoi(tokenPattern.FindStringSubmatch(m)[1])
		return spans[id-1]
	}), nil
}
