package service

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/tubegrab/tubegrab/internal/config"
	"github.com/tubegrab/tubegrab/internal/models"
	"github.com/tubegrab/tubegrab/internal/repository"
)

type stubProvider struct {
	info      *models.StreamInfo
	fetchErr  error
	renderURL string
	renderErr error

	fetchCalls  int
	renderCalls int
}

func (p *stubProvider) Fetch(ctx context.Context, videoID string) (*models.StreamInfo, error) {
	p.fetchCalls++
	if p.fetchErr != nil {
		return nil, p.fetchErr
	}
	return p.info, nil
}

func (p *stubProvider) ResolveRender(ctx context.Context, renderURL string) (string, error) {
	p.renderCalls++
	if p.renderErr != nil {
		return "", p.renderErr
	}
	return p.renderURL, nil
}

func (p *stubProvider) Ping(ctx context.Context) error { return nil }

func testConfig(t *testing.T) *config.Config {
	t.Helper()

	conf := &config.Config{}
	conf.Provider.Key = "test-key"
	conf.Selection.Policy = config.PolicyAudioFirst
	conf.Selection.MaxHeight = 1080
	conf.Selection.AssumeAudio = true

	return conf
}

func newTestService(t *testing.T, conf *config.Config, p *stubProvider) *VideoService {
	t.Helper()

	repo, err := repository.NewInMemRepository()
	if err != nil {
		t.Fatal(err)
	}

	vs, err := NewVideoService(conf, p, repo)
	if err != nil {
		t.Fatal(err)
	}

	return vs
}

func TestExtractVideoID(t *testing.T) {
	tests := []struct {
		in     string
		want   string
		wantOK bool
	}{
		{"dQw4w9WgXcQ", "dQw4w9WgXcQ", true},
		{"https://youtube.com/watch?v=dQw4w9WgXcQ", "dQw4w9WgXcQ", true},
		{"https://www.youtube.com/watch?v=dQw4w9WgXcQ&t=10", "dQw4w9WgXcQ", true},
		{"https://youtu.be/dQw4w9WgXcQ", "dQw4w9WgXcQ", true},
		{"https://youtube.com/embed/dQw4w9WgXcQ", "dQw4w9WgXcQ", true},
		{"not a link", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		got, ok := ExtractVideoID(tt.in)
		if ok != tt.wantOK || got != tt.want {
			t.Errorf("ExtractVideoID(%q) = (%q, %v), want (%q, %v)", tt.in, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestResolveAudioRanking(t *testing.T) {
	p := &stubProvider{
		info: &models.StreamInfo{
			Metadata: models.VideoMetadata{Title: "test"},
			Audios: []models.RawAudioItem{
				{URL: "u128", Bitrate: "128"},
				{URL: "u256", Bitrate: "256"},
				{URL: "u64", Bitrate: "64"},
			},
		},
	}

	vs := newTestService(t, testConfig(t), p)

	result, err := vs.Resolve(context.Background(), "abc", models.FormatMP3, "")
	if err != nil {
		t.Fatal(err)
	}

	want := []string{"256kbps", "128kbps", "64kbps"}
	if len(result.AvailableQualities) != len(want) {
		t.Fatalf("got %d qualities, want %d", len(result.AvailableQualities), len(want))
	}
	for i, label := range want {
		if result.AvailableQualities[i].Label != label {
			t.Errorf("quality[%d] = %q, want %q", i, result.AvailableQualities[i].Label, label)
		}
	}

	if result.DownloadURL != "u256" {
		t.Errorf("downloadUrl = %q, want the 256kbps url", result.DownloadURL)
	}
	if result.Quality != "256kbps" {
		t.Errorf("quality = %q, want 256kbps", result.Quality)
	}
}

func TestResolveVideoOnlyWarning(t *testing.T) {
	noAudio := false
	hasAudio := true

	p := &stubProvider{
		info: &models.StreamInfo{
			Videos: []models.RawVideoItem{
				{URL: "u1080", Height: "1080", HasAudio: &noAudio},
				{URL: "u720", Height: "720", HasAudio: &hasAudio},
			},
		},
	}

	vs := newTestService(t, testConfig(t), p)

	result, err := vs.Resolve(context.Background(), "abc", models.FormatMP4, "")
	if err != nil {
		t.Fatal(err)
	}

	// Policy A: the audio-capable 720p outranks the silent 1080p.
	if result.Quality != "720p" || result.DownloadURL != "u720" {
		t.Errorf("picked %q (%q), want 720p", result.Quality, result.DownloadURL)
	}
	if !result.VideoOnlyWarning {
		t.Error("video-only warning must be set when a silent entry is selectable")
	}
}

func TestResolveRequestedQuality(t *testing.T) {
	p := &stubProvider{
		info: &models.StreamInfo{
			Videos: []models.RawVideoItem{
				{URL: "u1080", Height: "1080"},
				{URL: "u480", Height: "480"},
			},
		},
	}

	vs := newTestService(t, testConfig(t), p)

	result, err := vs.Resolve(context.Background(), "abc", models.FormatMP4, "480p")
	if err != nil {
		t.Fatal(err)
	}
	if result.DownloadURL != "u480" {
		t.Errorf("downloadUrl = %q, want u480", result.DownloadURL)
	}

	_, err = vs.Resolve(context.Background(), "abc", models.FormatMP4, "4320p")
	if !errors.Is(err, ErrQualityNotFound) {
		t.Errorf("err = %v, want ErrQualityNotFound", err)
	}
}

func TestResolveRenderableVariant(t *testing.T) {
	p := &stubProvider{
		info: &models.StreamInfo{
			Videos: []models.RawVideoItem{
				{RenderURL: "exec-720", Height: "720", Renderable: true},
			},
		},
		renderURL: "https://cdn.example.com/merged.mp4",
	}

	vs := newTestService(t, testConfig(t), p)

	result, err := vs.Resolve(context.Background(), "abc", models.FormatMP4, "")
	if err != nil {
		t.Fatal(err)
	}

	if result.DownloadURL != "https://cdn.example.com/merged.mp4" {
		t.Errorf("downloadUrl = %q, want the resolved render url", result.DownloadURL)
	}
	if p.renderCalls != 1 {
		t.Errorf("renderCalls = %d, want 1", p.renderCalls)
	}

	// The resolved url must also land in the published list.
	if result.AvailableQualities[0].URL != result.DownloadURL {
		t.Error("resolved url not reflected in availableQualities")
	}

	// Second request for the same variant hits the memo.
	if _, err := vs.Resolve(context.Background(), "abc", models.FormatMP4, ""); err != nil {
		t.Fatal(err)
	}
	if p.renderCalls != 1 {
		t.Errorf("renderCalls = %d after repeat, want memoized 1", p.renderCalls)
	}
}

func TestResolveRenderFailureFallsBackToProgressive(t *testing.T) {
	p := &stubProvider{
		info: &models.StreamInfo{
			Videos: []models.RawVideoItem{
				{RenderURL: "exec-720", Height: "720", Renderable: true},
				{URL: "u720-progressive", Height: "720"},
			},
		},
		renderErr: errors.New("muxer down"),
	}

	vs := newTestService(t, testConfig(t), p)

	result, err := vs.Resolve(context.Background(), "abc", models.FormatMP4, "")
	if err != nil {
		t.Fatal(err)
	}

	if result.DownloadURL != "u720-progressive" {
		t.Errorf("downloadUrl = %q, want same-label progressive fallback", result.DownloadURL)
	}
}

func TestResolveRenderFailureWithoutFallback(t *testing.T) {
	p := &stubProvider{
		info: &models.StreamInfo{
			Videos: []models.RawVideoItem{
				{RenderURL: "exec-1080", Height: "1080", Renderable: true},
				{URL: "u480", Height: "480"},
			},
		},
		renderErr: errors.New("muxer down"),
	}

	vs := newTestService(t, testConfig(t), p)

	// No silent substitution of a different quality.
	_, err := vs.Resolve(context.Background(), "abc", models.FormatMP4, "")
	if !errors.Is(err, ErrResolutionFailed) {
		t.Errorf("err = %v, want ErrResolutionFailed", err)
	}
}

func TestResolveEmptyLists(t *testing.T) {
	vs := newTestService(t, testConfig(t), &stubProvider{info: &models.StreamInfo{}})

	_, err := vs.Resolve(context.Background(), "abc", models.FormatMP3, "")
	if !errors.Is(err, ErrNoFormats) {
		t.Errorf("err = %v, want ErrNoFormats", err)
	}
}

func TestResolveAV1FiltersByCodec(t *testing.T) {
	p := &stubProvider{
		info: &models.StreamInfo{
			Videos: []models.RawVideoItem{
				{URL: "u-avc", Height: "1080", MimeType: `video/mp4; codecs="avc1.64001F"`},
				{URL: "u-av1", Height: "720", MimeType: `video/mp4; codecs="av01.0.08M.08"`},
			},
		},
	}

	vs := newTestService(t, testConfig(t), p)

	result, err := vs.Resolve(context.Background(), "abc", models.FormatAV1, "")
	if err != nil {
		t.Fatal(err)
	}
	if result.DownloadURL != "u-av1" {
		t.Errorf("downloadUrl = %q, want the av1 stream", result.DownloadURL)
	}

	p.info.Videos = p.info.Videos[:1]
	if _, err := vs.Resolve(context.Background(), "abc", models.FormatAV1, ""); !errors.Is(err, ErrNoFormats) {
		t.Errorf("err = %v, want ErrNoFormats when no av1 stream exists", err)
	}
}

func TestResolveCeilingFiltersPremiumResolutions(t *testing.T) {
	p := &stubProvider{
		info: &models.StreamInfo{
			Videos: []models.RawVideoItem{
				{URL: "u2160", Height: "2160"},
				{URL: "u1080", Height: "1080"},
			},
		},
	}

	vs := newTestService(t, testConfig(t), p)

	result, err := vs.Resolve(context.Background(), "abc", models.FormatMP4, "")
	if err != nil {
		t.Fatal(err)
	}
	if result.Quality != "1080p" {
		t.Errorf("quality = %q, want 1080p under the default ceiling", result.Quality)
	}
	for _, opt := range result.AvailableQualities {
		if opt.Label == "2160p" {
			t.Error("2160p must be filtered by the 1080 ceiling")
		}
	}
}

func TestResolveResultCache(t *testing.T) {
	conf := testConfig(t)
	conf.Cache.Enabled = true
	conf.Cache.TTL = 0 // go-cache: no expiration

	p := &stubProvider{
		info: &models.StreamInfo{
			Audios: []models.RawAudioItem{{URL: "u", Bitrate: "128"}},
		},
	}

	vs := newTestService(t, conf, p)

	if _, err := vs.Resolve(context.Background(), "abc", models.FormatMP3, ""); err != nil {
		t.Fatal(err)
	}
	if _, err := vs.Resolve(context.Background(), "abc", models.FormatMP3, ""); err != nil {
		t.Fatal(err)
	}

	if p.fetchCalls != 1 {
		t.Errorf("fetchCalls = %d, want 1 with cache enabled", p.fetchCalls)
	}
}
