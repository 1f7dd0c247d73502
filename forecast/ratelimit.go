package forecast

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"

	"github.com/passage-nav/passage-server/latlon"
)

// RateLimited wraps a Provider with a token-bucket limiter so corridor
// sampling cannot hammer the upstream API.
type RateLimited struct {
	provider Provider
	limiter  *rate.Limiter
}

// NewRateLimited allows rps requests per second (fractional values are fine)
// with the given burst size.
func NewRateLimited(provider Provider, rps float64, burst int) *RateLimited {
	return &RateLimited{
		provider: provider,
		limiter:  rate.NewLimiter(rate.Limit(rps), burst),
	}
}

// CurrentConditions waits for limiter permission, then forwards to the
// underlying provider.
func (r *RateLimited) CurrentConditions(ctx context.Context, pos latlon.LatLon) (WindForecast, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return WindForecast{}, fmt.Errorf("forecast: rate limit wait canceled: %w", err)
	}
	return r.provider.CurrentConditions(ctx, pos)
}
