package service

import (
	"fmt"
	"sort"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/tubegrab/tubegrab/internal/config"
	"github.com/tubegrab/tubegrab/internal/models"
	"github.com/tubegrab/tubegrab/internal/pkg/numparse"
)

const (
	// defaultAudioBitrate stands in when no bitrate field resolves.
	defaultAudioBitrate = 128

	// qualityGap is one step of the accepted quality ladder
	// (144/240/360/480/720/1080/1440/2160/4320) as a vertical-pixel
	// distance; quality-first ranking trades at most this much
	// resolution for an audio track.
	qualityGap = 360
)

// normalizeAudio converts one raw audio variant into a canonical option.
// Variants without a url are dropped.
func normalizeAudio(raw models.RawAudioItem) (models.QualityOption, bool) {
	if len(raw.URL) == 0 {
		return models.QualityOption{}, false
	}

	rate := numparse.Extract(raw.Bitrate)
	if rate == 0 {
		rate = defaultAudioBitrate
	}

	return models.QualityOption{
		URL:       raw.URL,
		Label:     fmt.Sprintf("%dkbps", rate),
		RankValue: rate,
		HasAudio:  true,
		FileSize:  sizeLabel(raw.Size, raw.SizeByte),
	}, true
}

// normalizeVideo converts one raw video variant into a canonical option.
// Variants with neither a direct url nor a render url are dropped, as are
// variants whose quality cannot be named at all.
func normalizeVideo(raw models.RawVideoItem, assumeAudio bool) (models.QualityOption, bool) {
	if len(raw.URL) == 0 && len(raw.RenderURL) == 0 {
		return models.QualityOption{}, false
	}

	height := numparse.Extract(raw.Height)
	if height == 0 {
		height = numparse.Extract(raw.Quality)
	}

	label := raw.Quality
	if height > 0 {
		label = fmt.Sprintf("%dp", height)
	}
	if len(label) == 0 {
		return models.QualityOption{}, false
	}

	return models.QualityOption{
		URL:       raw.URL,
		Label:     label,
		RankValue: height,
		HasAudio:  videoHasAudio(raw, assumeAudio),
		FileSize:  sizeLabel(raw.Size, raw.SizeByte),
		RenderURL: raw.RenderURL,
	}, true
}

// videoHasAudio derives audio capability from whichever signal the
// provider exposed. With no signal at all the configured default applies:
// high-resolution streams are often video-only on the source platform,
// but many payloads simply omit the flag, so the shipped default is true.
func videoHasAudio(raw models.RawVideoItem, assumeAudio bool) bool {
	if raw.Renderable {
		return true
	}

	if raw.HasAudio != nil {
		return *raw.HasAudio
	}

	if raw.AudioChans != nil {
		return *raw.AudioChans > 0
	}

	if strings.Contains(strings.ToLower(raw.MimeType), "mp4a") {
		return true
	}

	return assumeAudio
}

// dedupe collapses options to one entry per label, keeping the position
// of the first occurrence. An audio-capable duplicate replaces a
// video-only one; otherwise the first encountered wins.
func dedupe(opts []models.QualityOption) []models.QualityOption {
	out := make([]models.QualityOption, 0, len(opts))
	seen := make(map[string]int, len(opts))

	for _, opt := range opts {
		i, ok := seen[opt.Label]
		if !ok {
			seen[opt.Label] = len(out)
			out = append(out, opt)
			continue
		}

		if opt.HasAudio && !out[i].HasAudio {
			out[i] = opt
		}
	}

	return out
}

// rankAudio orders audio options by bitrate descending, stable.
func rankAudio(opts []models.QualityOption) {
	sort.SliceStable(opts, func(i, j int) bool {
		return opts[i].RankValue > opts[j].RankValue
	})
}

// rankVideo orders video options under the named policy. Both policies
// keep the audio-first partition layout; quality-first may promote the
// globally sharpest entry to the front when no audio-capable variant
// comes close enough to it.
func rankVideo(opts []models.QualityOption, policy config.RankPolicy) {
	sort.SliceStable(opts, func(i, j int) bool {
		if opts[i].HasAudio != opts[j].HasAudio {
			return opts[i].HasAudio
		}
		return opts[i].RankValue > opts[j].RankValue
	})

	if policy != config.PolicyQualityFirst || len(opts) < 2 {
		return
	}

	top := 0
	for i, opt := range opts {
		if opt.RankValue > opts[top].RankValue {
			top = i
		}
	}

	// The best audio-capable entry sits at index 0 after the partition
	// sort. Keep it in front only when it is within one quality step of
	// the sharpest entry overall.
	if opts[0].HasAudio && opts[top].RankValue-opts[0].RankValue <= qualityGap {
		return
	}

	promoted := opts[top]
	copy(opts[1:top+1], opts[:top])
	opts[0] = promoted
}

// applyCeiling drops video options above the configured maximum vertical
// resolution. Zero disables the ceiling.
func applyCeiling(opts []models.QualityOption, maxHeight int) []models.QualityOption {
	if maxHeight <= 0 {
		return opts
	}

	out := opts[:0]
	for _, opt := range opts {
		if opt.RankValue <= maxHeight {
			out = append(out, opt)
		}
	}

	return out
}

// hasVideoOnlyEntries reports whether any selectable entry lacks audio,
// so the client can warn before the user downloads a silent file.
func hasVideoOnlyEntries(opts []models.QualityOption) bool {
	for _, opt := range opts {
		if !opt.HasAudio {
			return true
		}
	}
	return false
}

// selectOption resolves the requested label against the canonical list.
// An empty label means the top-ranked entry. A requested label either
// matches exactly or fails; near-matches are never substituted.
func selectOption(opts []models.QualityOption, label string) (models.QualityOption, error) {
	if len(opts) == 0 {
		return models.QualityOption{}, ErrNoFormats
	}

	if len(label) == 0 {
		return opts[0], nil
	}

	for _, opt := range opts {
		if opt.Label == label {
			return opt, nil
		}
	}

	return models.QualityOption{}, ErrQualityNotFound
}

// sizeLabel passes a provider-supplied size string through verbatim,
// falling back to a humanized byte count when only a number was given.
func sizeLabel(size string, sizeByte int64) string {
	if len(size) > 0 {
		// Some providers put the raw byte count into the string field.
		if n := parseAllDigits(size); n > 0 {
			return humanize.Bytes(uint64(n))
		}
		return size
	}

	if sizeByte > 0 {
		return humanize.Bytes(uint64(sizeByte))
	}

	return ""
}

func parseAllDigits(s string) int64 {
	var n int64
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0
		}
		n = n*10 + int64(r-'0')
	}
	if len(s) == 0 {
		return 0
	}
	return n
}
