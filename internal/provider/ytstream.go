package provider

import (
	"context"
	"net/url"

	"github.com/pkg/errors"
	"github.com/tubegrab/tubegrab/internal/config"
	"github.com/tubegrab/tubegrab/internal/models"
	"github.com/valyala/fastjson"
)

// YTStream adapts a provider whose video listing mixes server-merged
// "render" descriptors with progressive streams. A render descriptor has
// no direct URL; its execution URL must be fetched separately to make the
// muxing service produce one. Merged renders always carry audio.
type YTStream struct {
	api *apiClient
}

func NewYTStream(conf *config.Config) (*YTStream, error) {
	return &YTStream{
		api: newAPIClient(conf),
	}, nil
}

func (p *YTStream) Fetch(ctx context.Context, videoID string) (*models.StreamInfo, error) {
	q := url.Values{}
	q.Set("id", videoID)

	body, err := p.api.get(ctx, p.api.base+"/v2/video/streams?"+q.Encode())
	if err != nil {
		return nil, err
	}

	json, err := new(fastjson.Parser).ParseBytes(body)
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse upstream payload")
	}

	if e := stringField(json, "error", "errorId"); len(e) > 0 {
		return nil, &UpstreamError{
			Status: 400,
			Body:   e,
		}
	}

	info := &models.StreamInfo{
		Metadata: parseMetadata(json),
	}

	for _, item := range json.GetArray("audios") {
		info.Audios = append(info.Audios, models.RawAudioItem{
			URL:      stringField(item, "url"),
			Bitrate:  stringField(item, "abr", "bitrate", "audioQuality"),
			Size:     stringField(item, "size"),
			SizeByte: int64Field(item, "filesize", "contentLength"),
		})
	}

	// Renders go first so deduplication prefers merged variants over a
	// progressive stream with the same label.
	for _, item := range json.GetArray("renders") {
		info.Videos = append(info.Videos, models.RawVideoItem{
			URL:        stringField(item, "url"),
			RenderURL:  stringField(item, "executionUrl", "renderUrl"),
			Height:     stringField(item, "height"),
			Quality:    stringField(item, "quality", "qualityLabel"),
			MimeType:   stringField(item, "mime", "mimeType"),
			Size:       stringField(item, "size"),
			SizeByte:   int64Field(item, "filesize", "contentLength"),
			Renderable: true,
		})
	}

	for _, item := range json.GetArray("streams") {
		info.Videos = append(info.Videos, models.RawVideoItem{
			URL:        stringField(item, "url"),
			Height:     stringField(item, "height"),
			Quality:    stringField(item, "quality", "qualityLabel"),
			MimeType:   stringField(item, "mime", "mimeType"),
			Size:       stringField(item, "size"),
			SizeByte:   int64Field(item, "filesize", "contentLength"),
			HasAudio:   boolField(item, "hasAudio"),
			AudioChans: intField(item, "audioChannels"),
		})
	}

	return info, nil
}

func (p *YTStream) ResolveRender(ctx context.Context, renderURL string) (string, error) {
	return p.api.resolveRender(ctx, renderURL)
}

func (p *YTStream) Ping(ctx context.Context) error {
	return p.api.ping(ctx)
}
