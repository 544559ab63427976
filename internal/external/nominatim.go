package external

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/sony/gobreaker"
)

const userAgent = "GW-Monitor/1.0"

// NominatimClient talks to the OSM Nominatim geocoding API.
type NominatimClient struct {
	baseURL string
	httpCfg HTTPClientConfig
	circuit *gobreaker.CircuitBreaker
}

// NewNominatimClient creates a NominatimClient.
func NewNominatimClient(client *http.Client) *NominatimClient {
	return &NominatimClient{
		baseURL: "https://nominatim.openstreetmap.org",
		httpCfg: DefaultHTTPConfig(client),
		circuit: newCircuit("nominatim"),
	}
}

// Place is one forward-geocoding hit.
type Place struct {
	DisplayName string
	Lat         float64
	Lng         float64
}

// Search forward-geocodes a free-text query, returning at most limit
// places. Hits with unparseable coordinates are skipped.
func (c *NominatimClient) Search(ctx context.Context, query string, limit int) ([]Place, error) {
	buildRequest := func() (*http.Request, error) {
		values := url.Values{}
		values.Set("q", query)
		values.Set("format", "json")
		values.Set("limit", strconv.Itoa(limit))

		req, err := http.NewRequest(http.MethodGet, c.baseURL+"/search?"+values.Encode(), nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("User-Agent", userAgent)
		return req, nil
	}

	resp, err := doRequestWithResilience(ctx, c.httpCfg, c.circuit, buildRequest)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var payload []struct {
		DisplayName string `json:"display_name"`
		Lat         string `json:"lat"`
		Lon         string `json:"lon"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decoding nominatim response: %w", err)
	}

	places := make([]Place, 0, len(payload))
	for _, item := range payload {
		lat, latErr := strconv.ParseFloat(item.Lat, 64)
		lng, lngErr := strconv.ParseFloat(item.Lon, 64)
		if latErr != nil || lngErr != nil {
			continue
		}
		places = append(places, Place{DisplayName: item.DisplayName, Lat: lat, Lng: lng})
	}
	return places, nil
}

// Reverse reverse-geocodes a coordinate and returns the upstream
// payload unmodified.
func (c *NominatimClient) Reverse(ctx context.Context, lat, lng float64) (json.RawMessage, error) {
	buildRequest := func() (*http.Request, error) {
		values := url.Values{}
		values.Set("lat", fmt.Sprintf("%f", lat))
		values.Set("lon", fmt.Sprintf("%f", lng))
		values.Set("format", "jsonv2")

		req, err := http.NewRequest(http.MethodGet, c.baseURL+"/reverse?"+values.Encode(), nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("User-Agent", userAgent)
		return req, nil
	}

	resp, err := doRequestWithResilience(ctx, c.httpCfg, c.circuit, buildRequest)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	return io.ReadAll(resp.Body)
}
