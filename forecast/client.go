package forecast

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"time"

	"github.com/passage-nav/passage-server/latlon"
)

// Client queries a hosted marine point-forecast API.
type Client struct {
	baseURL    string
	apiKey     string
	userAgent  string
	httpClient *http.Client
}

type ClientConfig struct {
	BaseURL   string
	APIKey    string
	UserAgent string
	Timeout   time.Duration
}

func NewClient(cfg ClientConfig) *Client {
	if cfg.UserAgent == "" {
		cfg.UserAgent = "passage-server/1.0"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &Client{
		baseURL:   cfg.BaseURL,
		apiKey:    cfg.APIKey,
		userAgent: cfg.UserAgent,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

// conditionsResponse mirrors the provider's /v1/marine/current payload.
type conditionsResponse struct {
	Time          time.Time `json:"time"`
	WindSpeedKt   float64   `json:"wind_speed_kt"`
	WindDirDeg    float64   `json:"wind_direction_deg"`
	GustSpeedKt   float64   `json:"gust_speed_kt"`
	WaveHeightM   float64   `json:"wave_height_m"`
	ErrorMessage  string    `json:"error,omitempty"`
}

// CurrentConditions fetches the forecast for one point.
func (c *Client) CurrentConditions(ctx context.Context, pos latlon.LatLon) (WindForecast, error) {
	if c.apiKey == "" {
		return WindForecast{}, ErrMissingAPIKey
	}
	if err := pos.Validate(); err != nil {
		return WindForecast{}, err
	}

	q := url.Values{}
	q.Set("lat", fmt.Sprintf("%.6f", pos.Lat))
	q.Set("lon", fmt.Sprintf("%.6f", pos.Lon))
	q.Set("key", c.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/marine/current?"+q.Encode(), nil)
	if err != nil {
		return WindForecast{}, err
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return WindForecast{}, fmt.Errorf("forecast: fetch (%f, %f): %w", pos.Lat, pos.Lon, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return WindForecast{}, fmt.Errorf("forecast: api error: %d %s", resp.StatusCode, resp.Status)
	}

	var payload conditionsResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return WindForecast{}, fmt.Errorf("forecast: decode response: %w", err)
	}
	if payload.ErrorMessage != "" {
		return WindForecast{}, fmt.Errorf("forecast: provider error: %s", payload.ErrorMessage)
	}
	if math.IsNaN(payload.WindSpeedKt) || payload.WindSpeedKt < 0 {
		return WindForecast{}, fmt.Errorf("forecast: invalid wind speed %f", payload.WindSpeedKt)
	}

	dir := math.Mod(payload.WindDirDeg, 360)
	if dir < 0 {
		dir += 360
	}

	ts := payload.Time
	if ts.IsZero() {
		ts = time.Now().UTC()
	}

	return WindForecast{
		Time:          ts,
		WindSpeed:     payload.WindSpeedKt,
		WindDirection: dir,
		GustSpeed:     payload.GustSpeedKt,
		WaveHeight:    payload.WaveHeightM,
	}, nil
}
