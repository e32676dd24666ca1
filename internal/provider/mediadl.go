package provider

import (
	"context"
	"net/url"

	"github.com/pkg/errors"
	"github.com/tubegrab/tubegrab/internal/config"
	"github.com/tubegrab/tubegrab/internal/models"
	"github.com/valyala/fastjson"
)

// MediaDL adapts the youtube-media-downloader API: a single details call
// returning progressive audio and video variants under audios.items and
// videos.items. It has no renderable streams.
type MediaDL struct {
	api *apiClient
}

func NewMediaDL(conf *config.Config) (*MediaDL, error) {
	return &MediaDL{
		api: newAPIClient(conf),
	}, nil
}

func (p *MediaDL) Fetch(ctx context.Context, videoID string) (*models.StreamInfo, error) {
	q := url.Values{}
	q.Set("videoId", videoID)
	q.Set("videos", "true")
	q.Set("audios", "true")
	q.Set("subtitles", "false")
	q.Set("related", "false")

	body, err := p.api.get(ctx, p.api.base+"/v2/video/details?"+q.Encode())
	if err != nil {
		return nil, err
	}

	json, err := new(fastjson.Parser).ParseBytes(body)
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse upstream payload")
	}

	// The API reports content-level problems (private, removed, region
	// locked) inside a 200 payload.
	if status := json.Get("status"); status != nil {
		if ok, errB := status.Bool(); errB == nil && !ok {
			return nil, &UpstreamError{
				Status: 400,
				Body:   stringField(json, "errorId", "reason", "error"),
			}
		}
	}

	info := &models.StreamInfo{
		Metadata: parseMetadata(json),
	}

	if items := json.GetArray("audios", "items"); items != nil {
		for _, item := range items {
			info.Audios = append(info.Audios, models.RawAudioItem{
				URL:      stringField(item, "url"),
				Bitrate:  stringField(item, "bitrate", "audioBitrate", "abr", "audioQuality"),
				Size:     stringField(item, "size", "contentLength"),
				SizeByte: int64Field(item, "sizeBytes", "contentLength"),
			})
		}
	}

	if items := json.GetArray("videos", "items"); items != nil {
		for _, item := range items {
			info.Videos = append(info.Videos, models.RawVideoItem{
				URL:        stringField(item, "url"),
				Height:     stringField(item, "height"),
				Quality:    stringField(item, "quality", "qualityLabel"),
				MimeType:   stringField(item, "mimeType", "type"),
				Size:       stringField(item, "size", "contentLength"),
				SizeByte:   int64Field(item, "sizeBytes", "contentLength"),
				HasAudio:   boolField(item, "hasAudio"),
				AudioChans: intField(item, "audioChannels"),
			})
		}
	}

	return info, nil
}

func (p *MediaDL) ResolveRender(ctx context.Context, renderURL string) (string, error) {
	return p.api.resolveRender(ctx, renderURL)
}

func (p *MediaDL) Ping(ctx context.Context) error {
	return p.api.ping(ctx)
}

func parseMetadata(json *fastjson.Value) models.VideoMetadata {
	meta := models.VideoMetadata{
		Title:    stringField(json, "title"),
		Duration: int64Field(json, "lengthSeconds", "duration", "durationSeconds"),
		Channel:  stringField(json.Get("channel"), "name", "title"),
	}

	if thumbs := json.GetArray("thumbnails"); len(thumbs) > 0 {
		meta.Thumbnail = stringField(thumbs[0], "url")
	}
	if len(meta.Thumbnail) == 0 {
		meta.Thumbnail = stringField(json.Get("thumbnail"), "url")
	}
	if len(meta.Channel) == 0 {
		meta.Channel = stringField(json, "author", "channelTitle")
	}

	return meta
}
