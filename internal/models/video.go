package models

// Format is the delivery format requested by the client.
type Format string

const (
	FormatMP3 Format = "mp3"
	FormatMP4 Format = "mp4"
	FormatAV1 Format = "av1"
)

// IsAudio reports whether the format resolves against the audio list.
func (f Format) IsAudio() bool {
	return f == FormatMP3
}

// Valid reports whether f is one of the accepted formats.
func (f Format) Valid() bool {
	switch f {
	case FormatMP3, FormatMP4, FormatAV1:
		return true
	}
	return false
}

// QualityOption is one selectable delivery variant after normalization.
// Label is the dedup and selection key ("320kbps", "1080p"). RankValue is
// used for ordering only and is never shown to the client.
type QualityOption struct {
	URL       string `json:"url"`
	Label     string `json:"label"`
	RankValue int    `json:"-"`
	HasAudio  bool   `json:"hasAudio"`
	FileSize  string `json:"fileSize,omitempty"`

	// RenderURL is set on renderable variants whose final URL requires a
	// second provider call. It is cleared once resolved and never serialized.
	RenderURL string `json:"-"`
}

// VideoMetadata is passed through from the provider with best-effort
// field fallback; the core logic never modifies it.
type VideoMetadata struct {
	Title     string
	Thumbnail string
	Duration  int64
	Channel   string
}

// RawAudioItem is one audio variant as the upstream adapter saw it. Field
// values keep the provider's loose formatting; the normalizer owns parsing.
type RawAudioItem struct {
	URL      string
	Bitrate  string
	Size     string
	SizeByte int64
}

// RawVideoItem is one video variant as the upstream adapter saw it.
// Renderable entries carry a RenderURL instead of (or in addition to) a
// direct URL and are always delivered with audio by the provider.
type RawVideoItem struct {
	URL        string
	Height     string
	Quality    string
	MimeType   string
	Size       string
	SizeByte   int64
	HasAudio   *bool
	AudioChans *int
	Renderable bool
	RenderURL  string
}

// StreamInfo is the adapter's view of one upstream payload: metadata plus
// the raw variant lists in provider enumeration order (renderable entries
// first where the provider distinguishes them).
type StreamInfo struct {
	Metadata VideoMetadata
	Audios   []RawAudioItem
	Videos   []RawVideoItem
}

// DownloadResult is the fully resolved answer for one request.
type DownloadResult struct {
	Metadata           VideoMetadata
	DownloadURL        string
	Quality            string
	FileSize           string
	Format             Format
	AvailableQualities []QualityOption
	VideoOnlyWarning   bool
}
