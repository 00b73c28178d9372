// Package youtube parses video references and talks to the video platform:
// metadata lookup, audio format selection and audio streaming.
package youtube

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	yt "github.com/kkdai/youtube/v2"

	"tidyoux/ytsum/internal/apperr"
)

// Metadata is the subset of video details the summary needs.
type Metadata struct {
	Title           string `json:"title" yaml:"title"`
	Author          string `json:"author" yaml:"author"`
	DurationSeconds int    `json:"duration_seconds" yaml:"duration_seconds"`
}

// Format describes one downloadable stream.
type Format struct {
	Itag          int
	MimeType      string
	Bitrate       int
	AudioChannels int
	ContentLength int64
}

// AudioOnly reports whether the stream carries audio without video.
func (f Format) AudioOnly() bool {
	return strings.HasPrefix(f.MimeType, "audio/")
}

// Ext returns a file extension matching the container in MimeType.
func (f Format) Ext() string {
	mime := f.MimeType
	if i := strings.Index(mime, ";"); i >= 0 {
		mime = mime[:i]
	}
	switch strings.TrimSpace(mime) {
	case "audio/mp4":
		return "m4a"
	case "audio/webm":
		return "webm"
	case "audio/mpeg":
		return "mp3"
	}
	return "audio"
}

// Video is the result of a metadata lookup.
type Video struct {
	ID       string
	Metadata Metadata
	Formats  []Format

	raw *yt.Video
}

// ChooseAudio picks the highest-bitrate audio-only format. Equal bitrates
// prefer more audio channels.
func ChooseAudio(formats []Format) (Format, error) {
	var (
		best  Format
		found bool
	)
	for _, f := range formats {
		if !f.AudioOnly() {
			continue
		}
		if !found || f.Bitrate > best.Bitrate ||
			(f.Bitrate == best.Bitrate && f.AudioChannels > best.AudioChannels) {
			best = f
			found = true
		}
	}
	if !found {
		return Format{}, fmt.Errorf("%w: no audio-only stream among %d formats", apperr.ErrNoAudioFormat, len(formats))
	}
	return best, nil
}

// Client wraps the kkdai/youtube client.
type Client struct {
	yt *yt.Client
}

// NewClient creates a platform client. A nil httpClient uses http.DefaultClient.
func NewClient(httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{yt: &yt.Client{HTTPClient: httpClient}}
}

// Video fetches title, author, duration and the available formats.
func (c *Client) Video(ctx context.Context, videoURL string) (*Video, error) {
	v, err := c.yt.GetVideoContext(ctx, videoURL)
	if err != nil {
		return nil, fmt.Errorf("%w: fetch video info: %v", apperr.ErrService, err)
	}

	out := &Video{
		ID: v.ID,
		Metadata: Metadata{
			Title:           v.Title,
			Author:          v.Author,
			DurationSeconds: int(v.Duration.Seconds()),
		},
		raw: v,
	}
	for _, f := range v.Formats {
		out.Formats = append(out.Formats, Format{
			Itag:          f.ItagNo,
			MimeType:      f.MimeType,
			Bitrate:       f.Bitrate,
			AudioChannels: f.AudioChannels,
			ContentLength: f.ContentLength,
		})
	}
	return out, nil
}

// Metadata fetches only the video details.
func (c *Client) Metadata(ctx context.Context, videoURL string) (*Metadata, error) {
	v, err := c.Video(ctx, videoURL)
	if err != nil {
		return nil, err
	}
	return &v.Metadata, nil
}

// OpenStream opens the media stream for format f of a video returned by Video.
// The stream is bound to ctx: cancelling ctx aborts the transfer.
func (c *Client) OpenStream(ctx context.Context, v *Video, f Format) (io.ReadCloser, int64, error) {
	if v == nil || v.raw == nil {
		return nil, 0, fmt.Errorf("%w: video was not fetched by this client", apperr.ErrService)
	}
	for i := range v.raw.Formats {
		if v.raw.Formats[i].ItagNo != f.Itag {
			continue
		}
		stream, size, err := c.yt.GetStreamContext(ctx, v.raw, &v.raw.Formats[i])
		if err != nil {
			return nil, 0, fmt.Errorf("%w: open audio stream: %v", apperr.ErrService, err)
		}
		return stream, size, nil
	}
	return nil, 0, fmt.Errorf("%w: itag %d not found", apperr.ErrNoAudioFormat, f.Itag)
}
