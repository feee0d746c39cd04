// File: internal/services/tools/weather.go
package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

const weatherAPITimeout = 10 * time.Second

// NewWeatherTool returns the read-only weather lookup. It has no side
// effects, so the gate auto-executes it without an approval round-trip.
func NewWeatherTool(baseURL string) Descriptor {
	if baseURL == "" {
		baseURL = "https://api.open-meteo.com/v1/forecast"
	}
	client := &http.Client{Timeout: weatherAPITimeout}

	return Descriptor{
		Name:        "getWeather",
		Description: "Get the current weather at a location given its latitude and longitude.",
		Parameters: json.RawMessage(`{
			"type": "object",
			"properties": {
				"latitude":  {"type": "number"},
				"longitude": {"type": "number"}
			},
			"required": ["latitude", "longitude"]
		}`),
		SideEffectFree: true,
		Execute: func(ctx context.Context, inv Invocation) (json.RawMessage, error) {
			var input struct {
				Latitude  float64 `json:"latitude"`
				Longitude float64 `json:"longitude"`
			}
			if err := json.Unmarshal(inv.Input, &input); err != nil {
				return nil, fmt.Errorf("invalid getWeather input: %w", err)
			}

			q := url.Values{}
			q.Set("latitude", fmt.Sprintf("%.4f", input.Latitude))
			q.Set("longitude", fmt.Sprintf("%.4f", input.Longitude))
			q.Set("current", "temperature_2m,weather_code")

			req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"?"+q.Encode(), nil)
			if err != nil {
				return nil, err
			}

			resp, err := client.Do(req)
			if err != nil {
				return nil, fmt.Errorf("weather lookup failed: %w", err)
			}
			defer resp.Body.Close()

			if resp.StatusCode != http.StatusOK {
				return nil, fmt.Errorf("weather lookup returned status %d", resp.StatusCode)
			}

			body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
			if err != nil {
				return nil, fmt.Errorf("weather lookup read failed: %w", err)
			}
			return json.RawMessage(body), nil
		},
	}
}
