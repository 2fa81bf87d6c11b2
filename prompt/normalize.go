package prompt

import (
	"regexp"
	"strings"
)

const (
	maxSubjectLen  = 100
	fallbackPrefix = 50
)

var (
	// The color slider emits "dominant color hsl(<numbers>%)"; the parametrized
	// form is stripped before the literal vocabulary so the parenthesized tail
	// cannot leak into the subject.
	hslColorPattern = regexp.MustCompile(`[,\s]*dominant color hsl\([0-9\s,]+%\)`)

	doubleCommaPattern   = regexp.MustCompile(`,\s*,`)
	trailingCommaPattern = regexp.MustCompile(`,\s*$`)

	tagPatterns = compileTagPatterns()
)

func compileTagPatterns() []*regexp.Regexp {
	groups := [][]string{StyleTags, ArtistTags, LightingTags, CameraTags, QualityTags, SliderTags}
	patterns := make([]*regexp.Regexp, 0, 32)
	for _, group := range groups {
		for _, tag := range group {
			patterns = append(patterns, regexp.MustCompile(`[,\s]*`+regexp.QuoteMeta(strings.ToLower(tag))))
		}
	}
	return patterns
}

// Normalize reduces a free-text prompt to its canonical subject key: the text
// before the first comma once every known modifier phrase has been stripped,
// capped at 100 characters. Prompts made up entirely of modifiers fall back to
// the first 50 characters of the raw prompt so the key is never empty for a
// non-blank input. Deterministic and side-effect free.
func Normalize(raw string) string {
	normalized := strings.ToLower(strings.TrimSpace(raw))

	normalized = hslColorPattern.ReplaceAllString(normalized, "")
	for _, pattern := range tagPatterns {
		normalized = pattern.ReplaceAllString(normalized, "")
	}

	normalized = doubleCommaPattern.ReplaceAllString(normalized, ",")
	normalized = trailingCommaPattern.ReplaceAllString(normalized, "")

	subject, _, _ := strings.Cut(normalized, ",")
	subject = strings.ReplaceAll(strings.TrimSpace(subject), ".", "")

	if subject == "" {
		subject = strings.TrimSpace(truncate(raw, fallbackPrefix))
	}

	return truncate(subject, maxSubjectLen)
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
