package syncer

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/hashicorp/go-cleanhttp"

	"github.com/mishaschwartz/Magpie/pkg/logx"
	"github.com/mishaschwartz/Magpie/pkg/magpie"
)

// Fetcher retrieves the authoritative resource listing of a backing
// service.
type Fetcher interface {
	Fetch(
		ctx context.Context,
		logger logx.Logger,
		serviceType string,
	) ([]magpie.RemoteResource, error)
}

// HTTPFetcher reads listings from per-service HTTP endpoints returning a
// JSON array of {"remote_id", "name", "parent_remote_id"} objects.
type HTTPFetcher struct {
	client    *http.Client
	endpoints map[string]string
}

func NewHTTPFetcher(endpoints map[string]string) *HTTPFetcher {
	return &HTTPFetcher{
		client:    cleanhttp.DefaultPooledClient(),
		endpoints: endpoints,
	}
}

type remoteResourceJSON struct {
	RemoteID       string `json:"remote_id"`
	Name           string `json:"name"`
	ParentRemoteID string `json:"parent_remote_id"`
}

func (f *HTTPFetcher) Fetch(
	ctx context.Context,
	logger logx.Logger,
	serviceType string,
) ([]magpie.RemoteResource, error) {
	endpoint, ok := f.endpoints[serviceType]
	if !ok {
		return nil, magpie.ErrServiceNotFound
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}

	resp, err := f.client.Do(req)
	if err != nil {
		logger.Error(failedToFetchListing, err, logx.Data{Key: "endpoint", Value: endpoint})
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		err = fmt.Errorf("unexpected status %d from %s", resp.StatusCode, endpoint)
		logger.Error(failedToFetchListing, err)
		return nil, err
	}

	var descriptors []remoteResourceJSON
	if err := json.NewDecoder(resp.Body).Decode(&descriptors); err != nil {
		logger.Error(failedToDecodeListing, err)
		return nil, err
	}

	listing := make([]magpie.RemoteResource, len(descriptors))
	for i, d := range descriptors {
		listing[i] = magpie.RemoteResource{
			RemoteID:       d.RemoteID,
			Name:           d.Name,
			ParentRemoteID: d.ParentRemoteID,
		}
	}

	return listing, nil
}
