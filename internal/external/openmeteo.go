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

// OpenMeteoClient fetches current weather and a short hourly forecast
// from the Open-Meteo free API.
type OpenMeteoClient struct {
	baseURL string
	httpCfg HTTPClientConfig
	circuit *gobreaker.CircuitBreaker
}

// NewOpenMeteoClient creates an OpenMeteoClient.
func NewOpenMeteoClient(client *http.Client) *OpenMeteoClient {
	return &OpenMeteoClient{
		baseURL: "https://api.open-meteo.com/v1/forecast",
		httpCfg: DefaultHTTPConfig(client),
		circuit: newCircuit("openmeteo"),
	}
}

// Forecast returns the upstream payload for a coordinate unmodified:
// current conditions plus hourly temperature/precipitation for one
// past and one forecast day.
func (c *OpenMeteoClient) Forecast(ctx context.Context, lat, lng float64) (json.RawMessage, error) {
	buildRequest := func() (*http.Request, error) {
		values := url.Values{}
		values.Set("latitude", fmt.Sprintf("%f", lat))
		values.Set("longitude", fmt.Sprintf("%f", lng))
		values.Set("current", "temperature_2m,relative_humidity_2m,precipitation,wind_speed_10m,weather_code")
		values.Set("hourly", "temperature_2m,precipitation")
		values.Set("past_days", "1")
		values.Set("forecast_days", "1")

		return http.NewRequest(http.MethodGet, c.baseURL+"?"+values.Encode(), nil)
	}

	resp, err := doRequestWithResilience(ctx, c.httpCfg, c.circuit, buildRequest)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	return io.ReadAll(resp.Body)
}
