package corridor

import (
	"context"
	"fmt"
	"math"

	log "github.com/sirupsen/logrus"

	"github.com/passage-nav/passage-server/forecast"
	"github.com/passage-nav/passage-server/latlon"
	"github.com/passage-nav/passage-server/metrics"
)

// Point is one successfully sampled position along the corridor.
type Point struct {
	Position latlon.LatLon         `json:"position"`
	Forecast forecast.WindForecast `json:"forecast"`
}

// Weather aggregates the corridor samples. All statistics cover only the
// points that fetched successfully; with zero successes every aggregate is 0
// and Points is empty, which is not an error.
type Weather struct {
	Points        []Point `json:"points"`
	AvgWindSpeed  float64 `json:"avgWindSpeed"`
	MaxWindSpeed  float64 `json:"maxWindSpeed"`
	AvgWaveHeight float64 `json:"avgWaveHeight"`
	MaxWaveHeight float64 `json:"maxWaveHeight"`
}

// Sampler probes forecast data at fixed-distance intervals along the great
// circle between two points.
type Sampler struct {
	provider forecast.Provider
	metrics  *metrics.Metrics
}

func NewSampler(provider forecast.Provider, m *metrics.Metrics) *Sampler {
	return &Sampler{provider: provider, metrics: m}
}

// Sample places ceil(distance/intervalNm)+1 points at even fractions of the
// track and fetches each one. A failed fetch skips that point; it never
// fails the whole sample. Points keep sample-index order so positional
// nearest-match lookups stay stable.
func (s *Sampler) Sample(ctx context.Context, start, end latlon.LatLon, intervalNm float64) (Weather, error) {
	if err := start.Validate(); err != nil {
		return Weather{}, fmt.Errorf("corridor: start: %w", err)
	}
	if err := end.Validate(); err != nil {
		return Weather{}, fmt.Errorf("corridor: end: %w", err)
	}
	if intervalNm <= 0 {
		return Weather{}, fmt.Errorf("corridor: interval must be positive, got %f", intervalNm)
	}

	distance := latlon.Distance(start, end)
	numPoints := int(math.Ceil(distance/intervalNm)) + 1
	if numPoints < 2 {
		numPoints = 2
	}
	s.metrics.CorridorPoints.Observe(float64(numPoints))

	var w Weather
	var sumWind, sumWave float64

	for i := 0; i < numPoints; i++ {
		fraction := float64(i) / float64(numPoints-1)
		pos := latlon.Intermediate(start, end, fraction)

		fc, err := s.provider.CurrentConditions(ctx, pos)
		if err != nil {
			s.metrics.ForecastFetches.WithLabelValues("error").Inc()
			log.Warnf("Corridor point %d (%f, %f) skipped: %v", i, pos.Lat, pos.Lon, err)
			continue
		}
		s.metrics.ForecastFetches.WithLabelValues("success").Inc()

		w.Points = append(w.Points, Point{Position: pos, Forecast: fc})
		sumWind += fc.WindSpeed
		sumWave += fc.WaveHeight
		if fc.WindSpeed > w.MaxWindSpeed {
			w.MaxWindSpeed = fc.WindSpeed
		}
		if fc.WaveHeight > w.MaxWaveHeight {
			w.MaxWaveHeight = fc.WaveHeight
		}
	}

	if n := len(w.Points); n > 0 {
		w.AvgWindSpeed = sumWind / float64(n)
		w.AvgWaveHeight = sumWave / float64(n)
	}

	return w, nil
}
