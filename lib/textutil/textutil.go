// Package textutil holds the title normalization used for identity keys.
// Identity resolution is exact-match on the normalized form, so every
// caller must go through the same functions here.
package textutil

import (
	"regexp"
	"strings"
)

var whitespaceRegex = regexp.MustCompile(`\s+`)

// bracket pairs recognized as annotation markers. Sources decorate titles
// with things like "(완결)" or "[독점]" which are not part of the title.
var bracketPatterns = []struct {
	prefix *regexp.Regexp
	suffix *regexp.Regexp
}{
	{regexp.MustCompile(`^\s*\([^()]*\)\s*`), regexp.MustCompile(`\s*\([^()]*\)\s*$`)},
	{regexp.MustCompile(`^\s*\[[^\[\]]*\]\s*`), regexp.MustCompile(`\s*\[[^\[\]]*\]\s*$`)},
	{regexp.MustCompile(`^\s*\{[^{}]*\}\s*`), regexp.MustCompile(`\s*\{[^{}]*\}\s*$`)},
	{regexp.MustCompile(`^\s*【[^【】]*】\s*`), regexp.MustCompile(`\s*【[^【】]*】\s*$`)},
	{regexp.MustCompile(`^\s*（[^（）]*）\s*`), regexp.MustCompile(`\s*（[^（）]*）\s*$`)},
	{regexp.MustCompile(`^\s*＜[^＜＞]*＞\s*`), regexp.MustCompile(`\s*＜[^＜＞]*＞\s*$`)},
}

// StripBrackets removes bracketed annotation prefixes and suffixes,
// repeating until the title stops changing so stacked annotations like
// "[독점] 제목 (완결)" fully unwrap. Brackets in the middle of a title are
// left alone.
func StripBrackets(title string) string {
	for {
		stripped := title
		for _, p := range bracketPatterns {
			stripped = p.prefix.ReplaceAllString(stripped, "")
			stripped = p.suffix.ReplaceAllString(stripped, "")
		}
		if stripped == title {
			return strings.TrimSpace(stripped)
		}
		title = stripped
	}
}

// CollapseWhitespace trims and squashes runs of whitespace into single
// spaces.
func CollapseWhitespace(s string) string {
	return whitespaceRegex.ReplaceAllString(strings.TrimSpace(s), " ")
}

// NormalizeTitle produces the identity key form of a title: case-folded,
// whitespace-collapsed, bracket annotations stripped.
func NormalizeTitle(title string) string {
	return CollapseWhitespace(strings.ToLower(StripBrackets(title)))
}
