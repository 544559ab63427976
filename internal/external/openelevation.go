package external

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/sony/gobreaker"
)

// OpenElevationClient looks up terrain elevation via the
// Open-Elevation public API.
type OpenElevationClient struct {
	baseURL string
	httpCfg HTTPClientConfig
	circuit *gobreaker.CircuitBreaker
}

// NewOpenElevationClient creates an OpenElevationClient.
func NewOpenElevationClient(client *http.Client) *OpenElevationClient {
	return &OpenElevationClient{
		baseURL: "https://api.open-elevation.com/api/v1/lookup",
		httpCfg: DefaultHTTPConfig(client),
		circuit: newCircuit("openelevation"),
	}
}

// Lookup returns the upstream elevation payload for a coordinate.
func (c *OpenElevationClient) Lookup(ctx context.Context, lat, lng float64) (json.RawMessage, error) {
	buildRequest := func() (*http.Request, error) {
		values := url.Values{}
		values.Set("locations", fmt.Sprintf("%f,%f", lat, lng))

		return http.NewRequest(http.MethodGet, c.baseURL+"?"+values.Encode(), nil)
	}

	resp, err := doRequestWithResilience(ctx, c.httpCfg, c.circuit, buildRequest)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	return io.ReadAll(resp.Body)
}
