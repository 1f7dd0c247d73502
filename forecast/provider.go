package forecast

import (
	"context"
	"errors"
	"time"

	"github.com/passage-nav/passage-server/latlon"
)

// WindForecast is one point-in-time weather sample.
type WindForecast struct {
	Time          time.Time `json:"time"`
	WindSpeed     float64   `json:"windSpeed"`     // knots
	WindDirection float64   `json:"windDirection"` // degrees true, blowing FROM, [0, 360)
	GustSpeed     float64   `json:"gustSpeed"`     // knots
	WaveHeight    float64   `json:"waveHeight"`    // meters
}

// ErrMissingAPIKey is returned when the hosted provider is queried without a
// configured key. Callers treat it like any other per-point failure.
var ErrMissingAPIKey = errors.New("forecast: api key not configured")

// Provider yields current conditions for a point. Implementations return
// either a forecast or an error, never a half-filled sample.
type Provider interface {
	CurrentConditions(ctx context.Context, pos latlon.LatLon) (WindForecast, error)
}
