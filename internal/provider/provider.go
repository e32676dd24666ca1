package provider

import (
	"context"
	"fmt"
	"net/http"

	"github.com/pkg/errors"
	"github.com/tubegrab/tubegrab/internal/config"
	"github.com/tubegrab/tubegrab/internal/models"
)

var ErrUnknownName = fmt.Errorf("unknown provider name")

// UpstreamError carries a non-success status from the extraction provider
// so the transport layer can mirror it to the client.
type UpstreamError struct {
	Status int
	Body   string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream returned status %d: %s", e.Status, e.Body)
}

// Provider fetches the raw stream listing for one video and resolves
// renderable variants to final URLs. Implementations must treat every
// upstream field as optional and never log credentials.
type Provider interface {
	// Fetch performs the metadata/stream-listing call. Renderable video
	// entries must be enumerated before progressive ones.
	Fetch(ctx context.Context, videoID string) (*models.StreamInfo, error)

	// ResolveRender performs the secondary muxing-on-demand call for one
	// renderable variant. Single attempt, no retry.
	ResolveRender(ctx context.Context, renderURL string) (string, error)

	// Ping checks the provider is reachable. Any HTTP answer counts;
	// only transport failures are errors.
	Ping(ctx context.Context) error
}

// New builds the adapter selected by provider.name. A missing API key is
// not checked here: the transport layer reports it per request.
func New(conf *config.Config) (Provider, error) {
	switch conf.Provider.Name {
	case "mediadl":
		return NewMediaDL(conf)
	case "ytstream":
		return NewYTStream(conf)
	}

	return nil, errors.Wrapf(ErrUnknownName, "'%s'", conf.Provider.Name)
}

func newHTTPClient(conf *config.Config) *http.Client {
	return &http.Client{
		Timeout: conf.Provider.Timeout,
	}
}
