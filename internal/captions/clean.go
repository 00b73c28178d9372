package captions

import (
	"html"
	"regexp"
	"strings"
)

var (
	headerRe   = regexp.MustCompile(`^(WEBVTT|Kind:|Language:|NOTE\b|STYLE\b|REGION\b)`)
	cueIndexRe = regexp.MustCompile(`^\d+$`)
	markupRe   = regexp.MustCompile(`<[^>]*>`)
	bracketRe  = regexp.MustCompile(`\[[^\]]*\]`)
	spacesRe   = regexp.MustCompile(`\s+`)
)

// Clean turns a timed-text subtitle file into one paragraph of plain text.
// Header, cue-timing and cue-index lines are dropped, markup tags and
// bracketed annotations like [Music] are removed, and each distinct line is
// kept once in first-seen order. Auto-generated tracks repeat rolling lines
// across cues, so deduplication is over the whole file.
func Clean(raw string) string {
	seen := make(map[string]struct{})
	var kept []string

	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(strings.TrimPrefix(line, "\ufeff"))
		if line == "" || headerRe.MatchString(line) || strings.Contains(line, "-->") || cueIndexRe.MatchString(line) {
			continue
		}

		line = markupRe.ReplaceAllString(line, "")
		line = bracketRe.ReplaceAllString(line, "")
		line = html.UnescapeString(line)
		line = strings.TrimSpace(spacesRe.ReplaceAllString(line, " "))
		if line == "" {
			continue
		}

		if _, dup := seen[line]; dup {
			continue
		}
		seen[line] = struct{}{}
		kept = append(kept, line)
	}

	return strings.Join(kept, " ")
}
