// Package apperr defines the error kinds shared across ytsum and the
// troubleshooting hints shown to the user for well-known failures.
package apperr

import (
	"errors"
	"strings"
)

// Kind is a sentinel error category. Wrap it with fmt.Errorf("%w: ...") and
// test with errors.Is.
type Kind string

func (k Kind) Error() string {
	return string(k)
}

const (
	ErrMissingInput      = Kind("missing required input")
	ErrUnrecognizedVideo = Kind("unrecognized video reference")
	ErrMissingConfig     = Kind("missing configuration")
	ErrToolUnavailable   = Kind("external tool unavailable")
	ErrService           = Kind("service error")
	ErrNoAudioFormat     = Kind("no suitable audio format")
	ErrDownloadTimeout   = Kind("download timed out")
)

// IsFatal reports whether err must abort the run instead of triggering a
// fallback: bad input and missing configuration are never retried.
func IsFatal(err error) bool {
	return errors.Is(err, ErrMissingInput) ||
		errors.Is(err, ErrUnrecognizedVideo) ||
		errors.Is(err, ErrMissingConfig)
}

type hint struct {
	kinds   []Kind
	markers []string
	text    string
}

var hints = []hint{
	{
		kinds: []Kind{ErrMissingInput, ErrUnrecognizedVideo},
		text:  "Pass a YouTube watch, youtu.be, shorts, live or embed URL, or an 11-character video ID.",
	},
	{
		kinds: []Kind{ErrMissingConfig},
		text:  "Copy .env.example to .env and fill in the required API keys.",
	},
	{
		kinds: []Kind{ErrDownloadTimeout},
		text:  "The audio download was too slow. Check your connection or raise DOWNLOAD_TIMEOUT.",
	},
	{
		markers: []string{"429", "too many requests", "rate limit"},
		text:    "YouTube or the API provider is rate limiting this machine. Wait a few minutes before trying again.",
	},
	{
		kinds:   []Kind{ErrToolUnavailable},
		markers: []string{"executable file not found"},
		text:    "yt-dlp is not installed or not on PATH. Install it with `pip install -U yt-dlp` or your package manager.",
	},
	{
		markers: []string{"signature", "cipher", "playability", "could not extract", "unable to extract"},
		text:    "YouTube may have changed its player. Update yt-dlp (`yt-dlp -U`) and this tool to the latest version.",
	},
	{
		markers: []string{"login required", "private", "sign in"},
		text:    "The video is private, age restricted or requires sign-in and cannot be processed.",
	},
}

// Hint returns troubleshooting text for a recognized failure, or "" when
// nothing useful can be suggested. Error kinds take precedence over message
// markers, which only classify errors reported by external tools and services.
func Hint(err error) string {
	if err == nil {
		return ""
	}
	for _, h := range hints {
		for _, k := range h.kinds {
			if errors.Is(err, k) {
				return h.text
			}
		}
	}
	msg := strings.ToLower(err.Error())
	for _, h := range hints {
		for _, m := range h.markers {
			if strings.Contains(msg, m) {
				return h.text
			}
		}
	}
	return ""
}
