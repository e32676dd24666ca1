package provider

import (
	"context"
	"io"
	"net/http"

	"github.com/pkg/errors"
	"github.com/tubegrab/tubegrab/internal/config"
	"github.com/valyala/fastjson"
)

var ErrRenderFailed = errors.New("render resolution failed")

// apiClient is the HTTP plumbing shared by the adapters: key/host header
// auth, status mapping, and the secondary render call.
type apiClient struct {
	http *http.Client
	key  string
	host string
	base string
}

func newAPIClient(conf *config.Config) *apiClient {
	return &apiClient{
		http: newHTTPClient(conf),
		key:  conf.Provider.Key,
		host: conf.Provider.Host,
		base: "https://" + conf.Provider.Host,
	}
}

func (c *apiClient) get(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to build upstream request")
	}

	req.Header.Set("X-RapidAPI-Key", c.key)
	req.Header.Set("X-RapidAPI-Host", c.host)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "upstream request failed")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read upstream response")
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &UpstreamError{
			Status: resp.StatusCode,
			Body:   string(body),
		}
	}

	return body, nil
}

// resolveRender fetches a renderable variant's execution URL once and
// extracts the final download URL from whichever field the muxing
// service used. Any transport error or absent URL is ErrRenderFailed.
func (c *apiClient) resolveRender(ctx context.Context, renderURL string) (string, error) {
	body, err := c.get(ctx, renderURL)
	if err != nil {
		return "", errors.Wrapf(ErrRenderFailed, "%v", err)
	}

	json, err := new(fastjson.Parser).ParseBytes(body)
	if err != nil {
		return "", errors.Wrap(ErrRenderFailed, "render response is not json")
	}

	url := stringField(json, "downloadUrl", "url", "fileUrl", "file")
	if len(url) == 0 {
		return "", errors.Wrap(ErrRenderFailed, "render response has no url")
	}

	return url, nil
}

func (c *apiClient) ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+"/", nil)
	if err != nil {
		return errors.Wrap(err, "failed to build probe request")
	}

	req.Header.Set("X-RapidAPI-Key", c.key)
	req.Header.Set("X-RapidAPI-Host", c.host)

	resp, err := c.http.Do(req)
	if err != nil {
		return errors.Wrap(err, "provider unreachable")
	}
	resp.Body.Close()

	return nil
}
