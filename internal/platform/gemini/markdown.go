package gemini

import (
	"regexp"
	"strings"
)

// Patterns for the markdown artifacts the model habitually wraps answers in.
var (
	fenceRe   = regexp.MustCompile("(?m)^```[a-zA-Z0-9]*[ \t]*$")
	boldRe    = regexp.MustCompile(`\*\*([^*]+)\*\*`)
	italicRe  = regexp.MustCompile(`(^|[^*])\*([^*\n]+)\*`)
	inlineRe  = regexp.MustCompile("`([^`\n]+)`")
	headerRe  = regexp.MustCompile(`(?m)^#{1,6}[ \t]+`)
	bulletRe  = regexp.MustCompile(`(?m)^[ \t]*[-*+][ \t]+`)
	linkRe    = regexp.MustCompile(`\[([^\]]+)\]\([^)]*\)`)
	blankRuns = regexp.MustCompile(`\n{3,}`)
)

// StripMarkdown removes the formatting the model decorates plain answers
// with: code fences, bold/italic markers, inline code, headings, bullet
// prefixes, and link syntax. Content inside the markers is kept, so JSON
// payloads wrapped in a ```json fence come out intact.
func StripMarkdown(s string) string {
	s = fenceRe.ReplaceAllString(s, "")
	s = boldRe.ReplaceAllString(s, "$1")
	s = italicRe.ReplaceAllString(s, "$1$2")
	s = inlineRe.ReplaceAllString(s, "$1")
	s = headerRe.ReplaceAllString(s, "")
	s = bulletRe.ReplaceAllString(s, "")
	s = linkRe.ReplaceAllString(s, "$1")
	s = blankRuns.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}
