package acquire

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tidyoux/ytsum/internal/apperr"
	"tidyoux/ytsum/internal/captions"
	"tidyoux/ytsum/internal/speech"
	"tidyoux/ytsum/internal/store"
	"tidyoux/ytsum/internal/youtube"
)

var ref = youtube.Ref{URL: "https://youtu.be/dQw4w9WgXcQ", ID: "dQw4w9WgXcQ"}

var meta = youtube.Metadata{Title: "Never Gonna", Author: "Rick", DurationSeconds: 213}

type fakeCaptions struct {
	text  string
	err   error
	calls int
}

func (f *fakeCaptions) Fetch(context.Context, youtube.Ref) (string, error) {
	f.calls++
	return f.text, f.err
}

type fakeMetadata struct {
	err error
}

func (f fakeMetadata) Metadata(context.Context, string) (*youtube.Metadata, error) {
	if f.err != nil {
		return nil, f.err
	}
	m := meta
	return &m, nil
}

type fakeVideos struct {
	formats   []youtube.Format
	videoErr  error
	openErr   error
	stream    func(ctx context.Context) io.ReadCloser
	videoHits int
}

func (f *fakeVideos) Video(context.Context, string) (*youtube.Video, error) {
	f.videoHits++
	if f.videoErr != nil {
		return nil, f.videoErr
	}
	return &youtube.Video{ID: ref.ID, Metadata: meta, Formats: f.formats}, nil
}

func (f *fakeVideos) OpenStream(ctx context.Context, _ *youtube.Video, _ youtube.Format) (io.ReadCloser, int64, error) {
	if f.openErr != nil {
		return nil, 0, f.openErr
	}
	return f.stream(ctx), -1, nil
}

type fakeTranscriber struct {
	t     *speech.Transcript
	err   error
	calls int
	audio string
	ctype string
}

func (f *fakeTranscriber) Transcribe(_ context.Context, audio io.Reader, contentType string) (*speech.Transcript, error) {
	f.calls++
	b, _ := io.ReadAll(audio)
	f.audio = string(b)
	f.ctype = contentType
	return f.t, f.err
}

// stallingStream yields one chunk and then blocks until closed or cancelled.
type stallingStream struct {
	ctx    context.Context
	sent   bool
	closed chan struct{}
	once   sync.Once
}

func newStallingStream(ctx context.Context) io.ReadCloser {
	return &stallingStream{ctx: ctx, closed: make(chan struct{})}
}

func (s *stallingStream) Read(p []byte) (int, error) {
	if !s.sent {
		s.sent = true
		return copy(p, "partial audio"), nil
	}
	select {
	case <-s.closed:
		return 0, io.ErrClosedPipe
	case <-s.ctx.Done():
		return 0, s.ctx.Err()
	}
}

func (s *stallingStream) Close() error {
	s.once.Do(func() { close(s.closed) })
	return nil
}

// deafStream ignores both Close and cancellation until released.
type deafStream struct {
	sent    bool
	release <-chan struct{}
}

func (s *deafStream) Read(p []byte) (int, error) {
	if !s.sent {
		s.sent = true
		return copy(p, "partial audio"), nil
	}
	<-s.release
	return 0, io.EOF
}

func (s *deafStream) Close() error { return nil }

var audioFormats = []youtube.Format{
	{Itag: 18, MimeType: "video/mp4", Bitrate: 500000},
	{Itag: 140, MimeType: `audio/mp4; codecs="mp4a.40.2"`, Bitrate: 130000},
	{Itag: 251, MimeType: `audio/webm; codecs="opus"`, Bitrate: 160000},
}

func okStream(context.Context) io.ReadCloser {
	return io.NopCloser(strings.NewReader("AUDIO BYTES"))
}

type fixture struct {
	dir         string
	captions    *fakeCaptions
	videos      *fakeVideos
	transcriber *fakeTranscriber
	speech      *SpeechStrategy
	pipeline    *Pipeline
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		dir:      t.TempDir(),
		captions: &fakeCaptions{},
		videos:   &fakeVideos{formats: audioFormats, stream: okStream},
		transcriber: &fakeTranscriber{t: &speech.Transcript{
			Text:       "spoken words",
			Confidence: 0.87,
			Speakers:   []string{"0", "1"},
		}},
	}
	f.speech = &SpeechStrategy{
		APIKey:      "key",
		Videos:      f.videos,
		Transcriber: f.transcriber,
		WorkDir:     f.dir,
		Timeout:     time.Second,
	}
	f.pipeline = NewPipeline(nil,
		&CaptionStrategy{Captions: f.captions, Metadata: fakeMetadata{}},
		f.speech,
	)
	return f
}

func (f *fixture) assertNoArtifacts(t *testing.T) {
	t.Helper()
	entries, err := os.ReadDir(f.dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestAcquireCaptions(t *testing.T) {
	f := newFixture(t)
	f.captions.text = "caption text"

	res, err := f.pipeline.Acquire(context.Background(), ref)
	require.NoError(t, err)
	assert.True(t, res.Found())
	assert.Equal(t, MethodCaptions, res.Method)
	assert.Equal(t, "caption text", res.Text)
	assert.Nil(t, res.Confidence)
	assert.Nil(t, res.Speakers)
	require.NotNil(t, res.Metadata)
	assert.Equal(t, "Never Gonna", res.Metadata.Title)

	assert.Zero(t, f.videos.videoHits)
	assert.Zero(t, f.transcriber.calls)
}

func TestAcquireCaptionsMetadataFailureIsNotFatal(t *testing.T) {
	f := newFixture(t)
	f.captions.text = "caption text"
	f.pipeline.Strategies[0] = &CaptionStrategy{
		Captions: f.captions,
		Metadata: fakeMetadata{err: errors.New("boom")},
	}

	res, err := f.pipeline.Acquire(context.Background(), ref)
	require.NoError(t, err)
	assert.Equal(t, MethodCaptions, res.Method)
	assert.Nil(t, res.Metadata)
}

func TestAcquireFallsBackToSpeech(t *testing.T) {
	tests := []struct {
		name        string
		captionText string
		captionErr  error
	}{
		{"empty captions", "", nil},
		{"no subtitle file", "", fmt.Errorf("%w: not created", captions.ErrNoCaptions)},
		{"tool missing", "", fmt.Errorf("%w: yt-dlp", apperr.ErrToolUnavailable)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.captions.text, f.captions.err = tt.captionText, tt.captionErr

			res, err := f.pipeline.Acquire(context.Background(), ref)
			require.NoError(t, err)
			assert.Equal(t, MethodSpeech, res.Method)
			assert.Equal(t, "spoken words", res.Text)
			require.NotNil(t, res.Confidence)
			assert.InDelta(t, 0.87, *res.Confidence, 1e-9)
			assert.Equal(t, []string{"0", "1"}, res.Speakers)
			assert.Equal(t, &meta, res.Metadata)

			assert.Equal(t, "AUDIO BYTES", f.transcriber.audio)
			assert.Equal(t, "audio/webm", f.transcriber.ctype)
			f.assertNoArtifacts(t)
		})
	}
}

func TestAcquireMissingKeyFailsBeforeNetwork(t *testing.T) {
	f := newFixture(t)
	f.speech.APIKey = ""

	res, err := f.pipeline.Acquire(context.Background(), ref)
	assert.Nil(t, res)
	assert.ErrorIs(t, err, apperr.ErrMissingConfig)
	assert.Zero(t, f.videos.videoHits)
	assert.Zero(t, f.transcriber.calls)
}

func TestAcquireDownloadTimeout(t *testing.T) {
	f := newFixture(t)
	f.videos.stream = newStallingStream
	f.speech.Timeout = 50 * time.Millisecond

	res, err := f.pipeline.Acquire(context.Background(), ref)
	assert.ErrorIs(t, err, apperr.ErrDownloadTimeout)
	require.NotNil(t, res)
	assert.False(t, res.Found())
	assert.ErrorIs(t, res.Err, apperr.ErrDownloadTimeout)
	assert.Zero(t, f.transcriber.calls)
	f.assertNoArtifacts(t)
}

func TestAcquireDownloadTimeoutWithUnresponsiveStream(t *testing.T) {
	grace := copierGrace
	copierGrace = 20 * time.Millisecond
	release := make(chan struct{})
	t.Cleanup(func() {
		close(release)
		copierGrace = grace
	})

	f := newFixture(t)
	f.videos.stream = func(context.Context) io.ReadCloser { return &deafStream{release: release} }
	f.speech.Timeout = 30 * time.Millisecond

	done := make(chan struct{})
	var err error
	go func() {
		defer close(done)
		_, err = f.pipeline.Acquire(context.Background(), ref)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Acquire did not return after the download timed out")
	}
	assert.ErrorIs(t, err, apperr.ErrDownloadTimeout)
	assert.Zero(t, f.transcriber.calls)
	f.assertNoArtifacts(t)
}

func TestExpectedSize(t *testing.T) {
	assert.Equal(t, int64(100), expectedSize(100, youtube.Format{ContentLength: 50}))
	assert.Equal(t, int64(50), expectedSize(-1, youtube.Format{ContentLength: 50}))
	assert.Equal(t, int64(-1), expectedSize(0, youtube.Format{}))
}

func TestAcquireDownloadWithProgress(t *testing.T) {
	f := newFixture(t)
	f.videos.formats = []youtube.Format{{Itag: 251, MimeType: `audio/webm; codecs="opus"`, Bitrate: 160000, ContentLength: 11}}
	var progress bytes.Buffer
	f.speech.Progress = &progress
	f.captions.err = captions.ErrNoCaptions

	res, err := f.pipeline.Acquire(context.Background(), ref)
	require.NoError(t, err)
	assert.Equal(t, MethodSpeech, res.Method)
	assert.Equal(t, "AUDIO BYTES", f.transcriber.audio)
	assert.Contains(t, progress.String(), "Downloading audio")
	f.assertNoArtifacts(t)
}

func TestAcquireAllMethodsExhausted(t *testing.T) {
	tests := []struct {
		name    string
		setup   func(f *fixture)
		wantErr error
	}{
		{
			name:    "video lookup fails",
			setup:   func(f *fixture) { f.videos.videoErr = fmt.Errorf("%w: 429", apperr.ErrService) },
			wantErr: apperr.ErrService,
		},
		{
			name:    "no audio format",
			setup:   func(f *fixture) { f.videos.formats = audioFormats[:1] },
			wantErr: apperr.ErrNoAudioFormat,
		},
		{
			name:    "stream fails",
			setup:   func(f *fixture) { f.videos.openErr = fmt.Errorf("%w: 403", apperr.ErrService) },
			wantErr: apperr.ErrService,
		},
		{
			name:    "transcriber fails",
			setup:   func(f *fixture) { f.transcriber.t, f.transcriber.err = nil, fmt.Errorf("%w: 500", apperr.ErrService) },
			wantErr: apperr.ErrService,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			tt.setup(f)

			res, err := f.pipeline.Acquire(context.Background(), ref)
			assert.ErrorIs(t, err, tt.wantErr)
			require.NotNil(t, res)
			assert.False(t, res.Found())
			assert.Empty(t, res.Method)
			f.assertNoArtifacts(t)
		})
	}
}

func TestAcquireEmptySpeechTranscript(t *testing.T) {
	f := newFixture(t)
	f.transcriber.t = &speech.Transcript{}

	res, err := f.pipeline.Acquire(context.Background(), ref)
	require.Error(t, err)
	assert.False(t, res.Found())
	f.assertNoArtifacts(t)
}

func TestAcquireRejectsMissingID(t *testing.T) {
	f := newFixture(t)

	res, err := f.pipeline.Acquire(context.Background(), youtube.Ref{URL: "https://example.com/watch"})
	assert.Nil(t, res)
	assert.ErrorIs(t, err, apperr.ErrUnrecognizedVideo)
	assert.Zero(t, f.captions.calls)
}

func TestAudioPath(t *testing.T) {
	s := &SpeechStrategy{WorkDir: "tmp"}
	assert.Equal(t, "tmp/abc.audio.m4a", s.AudioPath("abc", youtube.Format{MimeType: "audio/mp4"}))

	for _, f := range audioFormats {
		name := filepath.Base(s.AudioPath(ref.ID, f))
		assert.True(t, store.IsWorkFile(name), "%s must be swept when stale", name)
	}
}
