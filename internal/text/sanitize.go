// Package text cleans user-submitted confession and comment text.
// This is defense-in-depth text cleaning, not full HTML sanitization:
// the output is rendered as chat text, never as HTML.
package text

import (
	"regexp"
	"strings"
)

var (
	scriptRe    = regexp.MustCompile(`(?is)<script\b.*?</script>`)
	styleRe     = regexp.MustCompile(`(?is)<style\b.*?</style>`)
	eventAttrRe = regexp.MustCompile(`(?i)on\w+\s*=\s*("[^"]*"|'[^']*')`)
	jsURIRe     = regexp.MustCompile(`(?i)javascript:`)
	tagRe       = regexp.MustCompile(`<[^>]*>`)
	hashtagRe   = regexp.MustCompile(`#[a-zA-Z0-9_]+`)
	spaceRe     = regexp.MustCompile(`\s+`)
)

// Sanitize strips script/style blocks, inline event handlers,
// javascript: URIs and remaining HTML tags, then trims whitespace.
func Sanitize(s string) string {
	s = scriptRe.ReplaceAllString(s, "")
	s = styleRe.ReplaceAllString(s, "")
	s = jsURIRe.ReplaceAllString(s, "")
	s = eventAttrRe.ReplaceAllString(s, "")
	s = tagRe.ReplaceAllString(s, "")
	return strings.TrimSpace(s)
}

// ExtractHashtags returns every #word token in order of appearance,
// without deduplication.
func ExtractHashtags(s string) []string {
	return hashtagRe.FindAllString(s, -1)
}

// StripHashtags removes hashtag tokens and collapses the leftover
// whitespace. Hashtags are stored separately on the confession record.
func StripHashtags(s string) string {
	s = hashtagRe.ReplaceAllString(s, "")
	s = spaceRe.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// Truncate shortens s to at most max characters, appending "..." when
// anything was cut. Slicing happens on runes so a multibyte character is
// never split.
func Truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "..."
}
