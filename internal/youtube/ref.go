package youtube

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"tidyoux/ytsum/internal/apperr"
)

// Ref identifies one video: the URL as given and the platform's opaque ID.
type Ref struct {
	URL string
	ID  string
}

var (
	idRe      = regexp.MustCompile(`^[A-Za-z0-9_-]{11}$`)
	pathIDRes = []*regexp.Regexp{
		regexp.MustCompile(`youtu\.be/([A-Za-z0-9_-]{11})`),
		regexp.MustCompile(`youtube(?:-nocookie)?\.com/(?:embed|shorts|live|v)/([A-Za-z0-9_-]{11})`),
	}
)

// ExtractID extracts the video ID from the known YouTube URL shapes:
// watch?v=, youtu.be/, /embed/, /shorts/, /live/, /v/ and a bare ID.
func ExtractID(raw string) (string, bool) {
	raw = strings.TrimSpace(raw)
	if idRe.MatchString(raw) {
		return raw, true
	}

	parsedURL, err := url.Parse(raw)
	if err == nil && strings.Contains(parsedURL.Host, "youtube.com") {
		if v := parsedURL.Query().Get("v"); idRe.MatchString(v) {
			return v, true
		}
	}

	for _, re := range pathIDRes {
		if m := re.FindStringSubmatch(raw); len(m) > 1 {
			return m[1], true
		}
	}
	return "", false
}

// ParseRef validates user input before any network access.
func ParseRef(raw string) (Ref, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Ref{}, fmt.Errorf("%w: a YouTube URL or video ID is required", apperr.ErrMissingInput)
	}
	id, ok := ExtractID(raw)
	if !ok {
		return Ref{}, fmt.Errorf("%w: could not extract video ID from %q", apperr.ErrUnrecognizedVideo, raw)
	}
	ref := Ref{URL: raw, ID: id}
	if idRe.MatchString(raw) {
		ref.URL = WatchURL(id)
	}
	return ref, nil
}

// WatchURL returns the canonical watch page for id.
func WatchURL(id string) string {
	return "https://www.youtube.com/watch?v=" + id
}
