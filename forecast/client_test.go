package forecast

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/passage-nav/passage-server/latlon"
)

func TestCurrentConditions(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/marine/current", r.URL.Path)
		assert.Equal(t, "secret", r.URL.Query().Get("key"))
		assert.NotEmpty(t, r.URL.Query().Get("lat"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"time":"2026-06-10T12:00:00Z","wind_speed_kt":14.5,"wind_direction_deg":225,"gust_speed_kt":19,"wave_height_m":1.8}`))
	}))
	defer srv.Close()

	c := NewClient(ClientConfig{BaseURL: srv.URL, APIKey: "secret"})

	fc, err := c.CurrentConditions(context.Background(), latlon.LatLon{Lat: 40, Lon: -70})
	require.NoError(t, err)

	assert.Equal(t, 14.5, fc.WindSpeed)
	assert.Equal(t, 225.0, fc.WindDirection)
	assert.Equal(t, 19.0, fc.GustSpeed)
	assert.Equal(t, 1.8, fc.WaveHeight)
	assert.Equal(t, time.Date(2026, 6, 10, 12, 0, 0, 0, time.UTC), fc.Time)
}

func TestCurrentConditionsNormalizesDirection(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"wind_speed_kt":10,"wind_direction_deg":-45}`))
	}))
	defer srv.Close()

	c := NewClient(ClientConfig{BaseURL: srv.URL, APIKey: "secret"})

	fc, err := c.CurrentConditions(context.Background(), latlon.LatLon{Lat: 40, Lon: -70})
	require.NoError(t, err)
	assert.Equal(t, 315.0, fc.WindDirection)
}

func TestCurrentConditionsMissingKey(t *testing.T) {
	c := NewClient(ClientConfig{BaseURL: "http://localhost:0"})

	_, err := c.CurrentConditions(context.Background(), latlon.LatLon{Lat: 40, Lon: -70})
	assert.ErrorIs(t, err, ErrMissingAPIKey)
}

func TestCurrentConditionsInvalidCoordinates(t *testing.T) {
	c := NewClient(ClientConfig{BaseURL: "http://localhost:0", APIKey: "secret"})

	_, err := c.CurrentConditions(context.Background(), latlon.LatLon{Lat: 95, Lon: 0})
	assert.Error(t, err)
}

func TestCurrentConditionsProviderError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"error":"upstream model unavailable"}`))
	}))
	defer srv.Close()

	c := NewClient(ClientConfig{BaseURL: srv.URL, APIKey: "secret"})

	_, err := c.CurrentConditions(context.Background(), latlon.LatLon{Lat: 40, Lon: -70})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "upstream model unavailable")
}

func TestCurrentConditionsHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewClient(ClientConfig{BaseURL: srv.URL, APIKey: "secret"})

	_, err := c.CurrentConditions(context.Background(), latlon.LatLon{Lat: 40, Lon: -70})
	assert.Error(t, err)
}

func TestRateLimitedForwards(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"wind_speed_kt":8,"wind_direction_deg":180}`))
	}))
	defer srv.Close()

	p := NewRateLimited(NewClient(ClientConfig{BaseURL: srv.URL, APIKey: "secret"}), 100, 1)

	fc, err := p.CurrentConditions(context.Background(), latlon.LatLon{Lat: 40, Lon: -70})
	require.NoError(t, err)
	assert.Equal(t, 8.0, fc.WindSpeed)
}

func TestRateLimitedHonorsCancel(t *testing.T) {
	// burst 1, second call must wait; a canceled context fails it fast
	p := NewRateLimited(NewClient(ClientConfig{BaseURL: "http://localhost:0", APIKey: "secret"}), 0.001, 1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := p.CurrentConditions(ctx, latlon.LatLon{Lat: 40, Lon: -70})
	assert.Error(t, err)
}
