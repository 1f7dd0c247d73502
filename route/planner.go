package route

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	log "github.com/sirupsen/logrus"

	"github.com/passage-nav/passage-server/corridor"
	"github.com/passage-nav/passage-server/daylight"
	"github.com/passage-nav/passage-server/forecast"
	"github.com/passage-nav/passage-server/latlon"
	"github.com/passage-nav/passage-server/metrics"
	"github.com/passage-nav/passage-server/sail"
)

// NominalSpeedKt is the fixed speed used for timing estimates. Leg times are
// planned conservatively at hull-average speed, not polar speed.
const NominalSpeedKt = 6.0

// stormForceWind is the wind speed above which storm avoidance overrides the
// requested sailing mode with comfort sail choices.
const stormForceWind = 40.0

const defaultWaypointIntervalNm = 50.0

// PlanConfig carries everything one planning call needs.
type PlanConfig struct {
	Name                string        `json:"name"`
	Start               latlon.LatLon `json:"start"`
	Destination         latlon.LatLon `json:"destination"`
	Mode                sail.Mode     `json:"mode"`
	EngineWindThreshold float64       `json:"engineWindThreshold"` // knots; below it, motor
	AvoidStorms         bool          `json:"avoidStorms"`
	DaylightArrival     bool          `json:"daylightArrival"`
	MaxDailyDistanceNm  float64       `json:"maxDailyDistance"`
	WaypointIntervalNm  float64       `json:"waypointInterval"`
	Departure           time.Time     `json:"departure"`
}

// Planner synthesizes passage plans from corridor weather, the polar-backed
// sail advisor, and the daylight solver.
type Planner struct {
	sampler  *corridor.Sampler
	advisor  *sail.Advisor
	daylight daylight.Validator
	clock    clockwork.Clock
	metrics  *metrics.Metrics
}

func NewPlanner(sampler *corridor.Sampler, advisor *sail.Advisor, v daylight.Validator, clock clockwork.Clock, m *metrics.Metrics) *Planner {
	return &Planner{
		sampler:  sampler,
		advisor:  advisor,
		daylight: v,
		clock:    clock,
		metrics:  m,
	}
}

// Plan produces a complete route or an error, never a partial route.
// Forecast failures along the corridor degrade waypoints to an unknown
// forecast (nil) rather than aborting the plan.
func (p *Planner) Plan(ctx context.Context, cfg PlanConfig) (*Route, error) {
	started := p.clock.Now()

	if err := cfg.Start.Validate(); err != nil {
		return nil, fmt.Errorf("route: start: %w", err)
	}
	if err := cfg.Destination.Validate(); err != nil {
		return nil, fmt.Errorf("route: destination: %w", err)
	}
	interval := cfg.WaypointIntervalNm
	if interval <= 0 {
		interval = defaultWaypointIntervalNm
	}

	totalDistance, initialBearing := latlon.DistanceAndBearing(cfg.Start, cfg.Destination)
	log.Infof("Plan %s: %.1f nm, initial bearing %.0f°", cfg.Name, totalDistance, initialBearing)

	weather, err := p.sampler.Sample(ctx, cfg.Start, cfg.Destination, interval)
	if err != nil {
		return nil, err
	}

	numWaypoints := int(math.Ceil(totalDistance/interval)) + 1
	if numWaypoints < 2 {
		numWaypoints = 2
	}

	var warnings []string

	departure := cfg.Departure
	if departure.IsZero() {
		departure = p.clock.Now()
	}
	if cfg.DaylightArrival {
		totalHours := totalDistance / NominalSpeedKt
		adv := p.daylight.RequiredDeparture(cfg.Destination, totalHours, departure)
		if adv.Adjusted {
			warnings = append(warnings, adv.Message)
		}
		departure = adv.DepartureTime
	}

	waypoints := make([]Waypoint, 0, numWaypoints)
	prev := cfg.Start
	elapsedHours := 0.0
	cumulativeNm := 0.0

	for i := 0; i < numWaypoints; i++ {
		fraction := float64(i) / float64(numWaypoints-1)
		pos := latlon.Intermediate(cfg.Start, cfg.Destination, fraction)

		var legDistance, cog float64
		if i > 0 {
			legDistance, cog = latlon.DistanceAndBearing(prev, pos)
		}
		legHours := legDistance / NominalSpeedKt
		elapsedHours += legHours
		cumulativeNm += legDistance
		eta := departure.Add(time.Duration(elapsedHours * float64(time.Hour)))

		fc := nearestForecast(weather.Points, pos)
		plan, sog := p.legPlan(cfg, fc, cog)

		name := fmt.Sprintf("Waypoint %d", i)
		if i == 0 {
			name = "Start"
		} else if i == numWaypoints-1 {
			name = "Destination"
		}

		if !p.daylight.IsDaylight(eta, pos) {
			msg := fmt.Sprintf("night arrival at %s (%s)", name, eta.Format(time.RFC3339))
			log.Warnf("Plan %s: %s", cfg.Name, msg)
			warnings = append(warnings, msg)
		}

		waypoints = append(waypoints, Waypoint{
			ID:                  uuid.NewString(),
			Name:                name,
			Position:            pos,
			Order:               i + 1,
			Plan:                plan,
			Forecast:            fc,
			EstimatedArrival:    eta,
			ElapsedHours:        elapsedHours,
			LegHours:            legHours,
			DistanceFromStartNm: cumulativeNm,
			LegDistanceNm:       legDistance,
			Cog:                 cog,
			Sog:                 sog,
		})
		prev = pos
	}

	now := p.clock.Now()
	r := &Route{
		ID:        uuid.NewString(),
		Name:      cfg.Name,
		Waypoints: waypoints,
		CreatedAt: now,
		UpdatedAt: now,
		StartDate: departure,
		Warnings:  warnings,
	}

	p.metrics.RoutesPlanned.Inc()
	p.metrics.PlanDuration.Observe(p.clock.Since(started).Seconds())

	return r, nil
}

// legPlan decides engine versus sails for one leg. A nil forecast means the
// conditions are unknown: the plan falls back to plain main and jib at
// nominal speed and the nil forecast is surfaced on the waypoint.
func (p *Planner) legPlan(cfg PlanConfig, fc *forecast.WindForecast, cog float64) (SailPlan, float64) {
	if fc == nil {
		c := sail.Configuration{Main: true, Jib: true}
		return SailPlan{Sails: &c}, NominalSpeedKt
	}

	if fc.WindSpeed < cfg.EngineWindThreshold {
		return SailPlan{Engine: true}, NominalSpeedKt
	}

	mode := cfg.Mode
	if cfg.AvoidStorms && fc.WindSpeed > stormForceWind {
		mode = sail.ModeComfort
	}

	twa := math.Abs(latlon.AngleDiff(fc.WindDirection, cog))
	adv := p.advisor.Recommend(fc.WindSpeed, twa, mode)

	sog := adv.BoatSpeed
	if sog <= 0 {
		sog = NominalSpeedKt
	}
	return SailPlan{Sails: &adv.Config}, sog
}

// nearestForecast picks the sampled point closest to pos by planar distance.
// Corridor points and waypoints share the same track, so the planar
// approximation is adequate here.
func nearestForecast(points []corridor.Point, pos latlon.LatLon) *forecast.WindForecast {
	if len(points) == 0 {
		return nil
	}
	best := 0
	bestD := math.MaxFloat64
	for i, pt := range points {
		dLat := pt.Position.Lat - pos.Lat
		dLon := pt.Position.Lon - pos.Lon
		d := dLat*dLat + dLon*dLon
		if d < bestD {
			bestD = d
			best = i
		}
	}
	fc := points[best].Forecast
	return &fc
}
