package service

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/pkg/errors"
	"github.com/tubegrab/tubegrab/internal/config"
	"github.com/tubegrab/tubegrab/internal/models"
	"github.com/tubegrab/tubegrab/internal/pkg/hash"
	"github.com/tubegrab/tubegrab/internal/pkg/log"
	"github.com/tubegrab/tubegrab/internal/provider"
	"github.com/tubegrab/tubegrab/internal/repository"
)

var videoIDPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?:youtube\.com/watch\?v=|youtu\.be/|youtube\.com/embed/|youtube\.com/v/)([a-zA-Z0-9_-]{11})`),
	regexp.MustCompile(`^([a-zA-Z0-9_-]{11})$`),
}

// ExtractVideoID reduces a pasted YouTube link (or a bare 11-char id) to
// the canonical video id.
func ExtractVideoID(s string) (string, bool) {
	s = strings.TrimSpace(s)

	for _, p := range videoIDPatterns {
		if m := p.FindStringSubmatch(s); m != nil {
			return m[1], true
		}
	}

	return "", false
}

// VideoService turns one provider payload into a ranked canonical
// quality list and resolves the requested variant to a download url. It
// holds no per-request state; requests never share data.
type VideoService struct {
	conf     *config.Config
	provider provider.Provider
	repo     *repository.InMemRepository

	// results is an optional short-TTL cache of complete resolutions;
	// nil when disabled (the default).
	results *cache.Cache
}

func NewVideoService(conf *config.Config, p provider.Provider, repo *repository.InMemRepository) (*VideoService, error) {
	s := &VideoService{
		conf:     conf,
		provider: p,
		repo:     repo,
	}

	if conf.Cache.Enabled {
		s.results = cache.New(conf.Cache.TTL, 10*time.Minute)
	}

	return s, nil
}

// Resolve handles one download request end to end: fetch the stream
// listing, build the canonical list for the format, select the variant,
// and resolve a renderable selection to a final url.
func (s *VideoService) Resolve(ctx context.Context, videoID string, format models.Format, requestedQuality string) (*models.DownloadResult, error) {
	cacheKey := hash.Sha256(videoID + "|" + string(format) + "|" + requestedQuality)
	if s.results != nil {
		if v, ok := s.results.Get(cacheKey); ok {
			if result, ok := v.(*models.DownloadResult); ok {
				return result, nil
			}
		}
	}

	info, err := s.provider.Fetch(ctx, videoID)
	if err != nil {
		return nil, err
	}

	var (
		list        []models.QualityOption
		fallback    map[string]string
		onlyWarning bool
	)

	if format.IsAudio() {
		list = s.buildAudioList(info.Audios)
	} else {
		list, fallback = s.buildVideoList(info.Videos, format)
		onlyWarning = hasVideoOnlyEntries(list)
	}

	selected, err := selectOption(list, requestedQuality)
	if err != nil {
		return nil, err
	}

	if len(selected.URL) == 0 {
		url, errR := s.resolveRender(ctx, selected.RenderURL)
		if errR != nil {
			// A progressive stream with the same label is an equivalent
			// delivery; anything else would silently change quality.
			if fb, ok := fallback[selected.Label]; ok {
				log.Logger.Warnw("render failed, using progressive stream",
					"video_id", videoID, "quality", selected.Label)
				url = fb
			} else {
				return nil, errors.Wrapf(ErrResolutionFailed, "%v", errR)
			}
		}

		selected.URL = url
		for i := range list {
			if list[i].Label == selected.Label {
				list[i].URL = url
				break
			}
		}
	}

	result := &models.DownloadResult{
		Metadata:           info.Metadata,
		DownloadURL:        selected.URL,
		Quality:            selected.Label,
		FileSize:           selected.FileSize,
		Format:             format,
		AvailableQualities: list,
		VideoOnlyWarning:   onlyWarning,
	}

	if s.results != nil {
		s.results.Set(cacheKey, result, cache.DefaultExpiration)
	}

	return result, nil
}

func (s *VideoService) buildAudioList(raw []models.RawAudioItem) []models.QualityOption {
	opts := make([]models.QualityOption, 0, len(raw))
	for _, item := range raw {
		if opt, ok := normalizeAudio(item); ok {
			opts = append(opts, opt)
		}
	}

	opts = dedupe(opts)
	rankAudio(opts)

	return opts
}

func (s *VideoService) buildVideoList(raw []models.RawVideoItem, format models.Format) ([]models.QualityOption, map[string]string) {
	opts := make([]models.QualityOption, 0, len(raw))
	fallback := make(map[string]string)

	for _, item := range raw {
		if format == models.FormatAV1 && !strings.Contains(strings.ToLower(item.MimeType), "av01") {
			continue
		}

		opt, ok := normalizeVideo(item, s.conf.Selection.AssumeAudio)
		if !ok {
			continue
		}

		// Remember every directly downloadable url per label before
		// deduplication collapses the list, so a failed render can fall
		// back to an equivalent progressive stream.
		if len(opt.URL) > 0 {
			if _, exists := fallback[opt.Label]; !exists {
				fallback[opt.Label] = opt.URL
			}
		}

		opts = append(opts, opt)
	}

	opts = applyCeiling(opts, s.conf.Selection.MaxHeight)
	opts = dedupe(opts)
	rankVideo(opts, s.conf.Selection.Policy)

	return opts, fallback
}

// resolveRender performs the single muxing-on-demand call, memoized per
// render url within the process because execution urls are stable for
// the lifetime of a provider session.
func (s *VideoService) resolveRender(ctx context.Context, renderURL string) (string, error) {
	if len(renderURL) == 0 {
		return "", errors.Wrap(ErrResolutionFailed, "variant has no render url")
	}

	memoKey := hash.Sha256(renderURL)
	if url, ok := s.repo.GetURL(memoKey); ok {
		return url, nil
	}

	url, err := s.provider.ResolveRender(ctx, renderURL)
	if err != nil {
		return "", err
	}

	s.repo.AddURL(memoKey, url)

	return url, nil
}
