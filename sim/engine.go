package sim

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	log "github.com/sirupsen/logrus"

	"github.com/passage-nav/passage-server/latlon"
	"github.com/passage-nav/passage-server/metrics"
	"github.com/passage-nav/passage-server/route"
)

// Policy constants inherited from the original behaviour. Overridable
// through Options rather than re-derived: the intended values are ambiguous.
const (
	// DefaultStormVisibilityThreshold is the interpolation fraction past
	// which the upcoming keyframe's storm becomes visible. The step keeps a
	// storm from flickering in and out near keyframe boundaries.
	DefaultStormVisibilityThreshold = 0.5

	// DefaultHoursPerTick is how many virtual hours one tick advances.
	DefaultHoursPerTick = 12.0

	// DefaultTickPeriod is the wall-clock spacing of ticks.
	DefaultTickPeriod = 5 * time.Second
)

const (
	highWindThresholdKt = 35.0
	highWaveThresholdM  = 4.0
)

// Deviation waypoint offset from the storm center, degrees.
const (
	avoidanceLatOffset = 1.5
	avoidanceLonOffset = 2.0
)

// Conditions is the interpolated weather of one simulation tick.
type Conditions struct {
	Hour          float64       `json:"hour"`
	WindSpeed     float64       `json:"windSpeed"`
	WindDirection float64       `json:"windDirection"`
	WaveHeight    float64       `json:"waveHeight"`
	GustSpeed     float64       `json:"gustSpeed"`
	HasStorm      bool          `json:"hasStorm"`
	Storm         *Storm        `json:"storm,omitempty"`
	Squalls       []Squall      `json:"squalls,omitempty"`
	BoatPosition  latlon.LatLon `json:"boatPosition"`
}

// AlertType classifies a hazard alert.
type AlertType string

const (
	AlertStorm     AlertType = "storm"
	AlertHighWind  AlertType = "high_wind"
	AlertHighWaves AlertType = "high_waves"
	AlertSquall    AlertType = "squall"
)

// Severity ranks an alert.
type Severity string

const (
	SeverityWarning  Severity = "warning"
	SeverityWatch    Severity = "watch"
	SeverityAdvisory Severity = "advisory"
)

// Alert is one detected hazard, emitted at most once per tick per hazard.
type Alert struct {
	ID                string        `json:"id"`
	Type              AlertType     `json:"type"`
	Severity          Severity      `json:"severity"`
	Message           string        `json:"message"`
	Location          latlon.LatLon `json:"location"`
	Timestamp         time.Time     `json:"timestamp"`
	AffectedWaypoints []string      `json:"affectedWaypoints,omitempty"`
}

// Callbacks receive simulation events. Nil members are skipped. No callback
// fires after Stop returns.
type Callbacks struct {
	OnWeatherUpdate  func(Conditions)
	OnStormAlert     func(Alert)
	OnRouteDeviation func(route.Route)
}

// Engine replays a keyframe weather scenario against a route, advancing a
// virtual clock in fixed ticks. One engine owns one run at a time: Start
// while running stops the previous run first, so there is never more than
// one tick stream.
type Engine struct {
	clock           clockwork.Clock
	tickPeriod      time.Duration
	hoursPerTick    float64
	stormVisibility float64
	scenario        []Keyframe
	metrics         *metrics.Metrics

	mu       sync.Mutex
	running  bool
	stopCh   chan struct{}
	doneCh   chan struct{}
	cb       Callbacks
	original route.Route
	current  route.Route
	hour     float64
}

// Option adjusts an Engine at construction.
type Option func(*Engine)

func WithClock(c clockwork.Clock) Option {
	return func(e *Engine) { e.clock = c }
}

func WithTickPeriod(d time.Duration) Option {
	return func(e *Engine) { e.tickPeriod = d }
}

func WithHoursPerTick(h float64) Option {
	return func(e *Engine) { e.hoursPerTick = h }
}

func WithScenario(frames []Keyframe) Option {
	return func(e *Engine) { e.scenario = frames }
}

func WithStormVisibility(threshold float64) Option {
	return func(e *Engine) { e.stormVisibility = threshold }
}

func New(m *metrics.Metrics, opts ...Option) *Engine {
	e := &Engine{
		clock:           clockwork.NewRealClock(),
		tickPeriod:      DefaultTickPeriod,
		hoursPerTick:    DefaultHoursPerTick,
		stormVisibility: DefaultStormVisibilityThreshold,
		scenario:        DefaultScenario(),
		metrics:         m,
	}
	for _, opt := range opts {
		opt(e)
	}
	// ticking indexes the keyframe table, an empty one would panic
	if len(e.scenario) == 0 {
		e.scenario = DefaultScenario()
	}
	return e
}

// Start begins a simulation run over the route. A previous run is fully
// stopped first. The hour-0 weather update is emitted synchronously before
// the tick stream is armed.
func (e *Engine) Start(r route.Route, cb Callbacks) {
	e.Stop()

	e.mu.Lock()
	e.running = true
	e.hour = 0
	e.cb = cb
	e.original = r
	e.current = r.Clone()
	e.stopCh = make(chan struct{})
	e.doneCh = make(chan struct{})
	stopCh, doneCh := e.stopCh, e.doneCh
	e.mu.Unlock()

	e.metrics.SimulationRunning.Set(1)
	log.Infof("Simulation started for route %s (%d waypoints)", r.Name, len(r.Waypoints))

	cond := e.conditionsAt(0)
	cond.BoatPosition = boatPosition(r, 0)
	if cb.OnWeatherUpdate != nil {
		cb.OnWeatherUpdate(cond)
	}

	// The ticker is armed before the goroutine launches so a fake clock
	// advanced right after Start still lands on it.
	ticker := e.clock.NewTicker(e.tickPeriod)

	go func() {
		defer close(doneCh)
		defer ticker.Stop()
		for {
			select {
			case <-stopCh:
				return
			case <-ticker.Chan():
				e.tick()
			}
		}
	}()
}

// Stop cancels the tick stream and clears callbacks. Idempotent; when it
// returns, no further callback will fire.
func (e *Engine) Stop() {
	e.mu.Lock()
	if !e.running {
		e.mu.Unlock()
		return
	}
	e.running = false
	stopCh, doneCh := e.stopCh, e.doneCh
	e.mu.Unlock()

	close(stopCh)
	<-doneCh

	e.mu.Lock()
	e.cb = Callbacks{}
	e.mu.Unlock()

	e.metrics.SimulationRunning.Set(0)
	log.Info("Simulation stopped")
}

// Running reports whether a run is active.
func (e *Engine) Running() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.running
}

func (e *Engine) tick() {
	e.mu.Lock()
	e.hour += e.hoursPerTick
	if e.hour > e.scenario[len(e.scenario)-1].Hour {
		// the scenario loops: a long run replays the same weather story
		e.hour = 0
	}
	hour := e.hour
	cb := e.cb
	current := e.current
	original := e.original
	e.mu.Unlock()

	cond := e.conditionsAt(hour)
	cond.BoatPosition = boatPosition(current, hour)

	if cb.OnWeatherUpdate != nil {
		cb.OnWeatherUpdate(cond)
	}

	alerts, deviated := e.detectHazards(cond, current, original)
	for _, a := range alerts {
		e.metrics.StormAlerts.WithLabelValues(string(a.Type)).Inc()
		log.Warnf("Simulation alert %s/%s: %s", a.Type, a.Severity, a.Message)
		if cb.OnStormAlert != nil {
			cb.OnStormAlert(a)
		}
	}

	if deviated != nil {
		e.mu.Lock()
		e.current = *deviated
		e.mu.Unlock()
		e.metrics.RouteDeviations.Inc()
		if cb.OnRouteDeviation != nil {
			cb.OnRouteDeviation(*deviated)
		}
	}
}

// conditionsAt interpolates the scenario at a virtual hour. Numeric fields
// blend linearly between the bracketing keyframes; the storm and squall
// lists step from the lower to the upper keyframe once the fraction passes
// the visibility threshold.
func (e *Engine) conditionsAt(hour float64) Conditions {
	frames := e.scenario
	last := len(frames) - 1
	if last == 0 {
		k := frames[0]
		return Conditions{
			Hour: hour, WindSpeed: k.WindSpeed, WindDirection: k.WindDirection,
			WaveHeight: k.WaveHeight, GustSpeed: k.GustSpeed,
			HasStorm: k.Storm != nil, Storm: k.Storm, Squalls: k.Squalls,
		}
	}

	i := 0
	for i < last-1 && frames[i+1].Hour <= hour {
		i++
	}
	k0, k1 := frames[i], frames[i+1]

	fraction := 0.0
	if k1.Hour > k0.Hour {
		fraction = (hour - k0.Hour) / (k1.Hour - k0.Hour)
	}
	if fraction < 0 {
		fraction = 0
	}
	if fraction > 1 {
		fraction = 1
	}

	lerp := func(a, b float64) float64 { return a + (b-a)*fraction }

	storm := k0.Storm
	squalls := k0.Squalls
	if fraction > e.stormVisibility {
		storm = k1.Storm
		squalls = k1.Squalls
	}

	return Conditions{
		Hour:          hour,
		WindSpeed:     lerp(k0.WindSpeed, k1.WindSpeed),
		WindDirection: lerp(k0.WindDirection, k1.WindDirection),
		WaveHeight:    lerp(k0.WaveHeight, k1.WaveHeight),
		GustSpeed:     lerp(k0.GustSpeed, k1.GustSpeed),
		HasStorm:      storm != nil,
		Storm:         storm,
		Squalls:       squalls,
	}
}

// detectHazards runs one detection pass and returns the alerts of this tick,
// plus a deviated route when the main storm first intersects the track.
//
// Priority: squalls report independently; the main storm reports when it
// contains a waypoint; a generic high-wind alert is suppressed if any
// storm or squall alert already fired this tick; high waves are independent.
func (e *Engine) detectHazards(cond Conditions, current, original route.Route) ([]Alert, *route.Route) {
	var alerts []Alert
	now := e.clock.Now()
	stormOrSquallFired := false

	for _, sq := range cond.Squalls {
		affected := waypointsWithin(current, sq.Center, sq.RadiusNm)
		if len(affected) == 0 {
			continue
		}
		stormOrSquallFired = true
		alerts = append(alerts, Alert{
			ID:                uuid.NewString(),
			Type:              AlertSquall,
			Severity:          SeverityWatch,
			Message:           fmt.Sprintf("Squall %s within %.0f nm of the route", sq.ID, sq.RadiusNm),
			Location:          sq.Center,
			Timestamp:         now,
			AffectedWaypoints: affected,
		})
	}

	var deviated *route.Route
	if cond.HasStorm {
		affected := waypointsWithin(current, cond.Storm.Center, cond.Storm.RadiusNm)
		if len(affected) > 0 {
			stormOrSquallFired = true
			alerts = append(alerts, Alert{
				ID:                uuid.NewString(),
				Type:              AlertStorm,
				Severity:          SeverityWarning,
				Message:           fmt.Sprintf("Storm of radius %.0f nm over the route, %d waypoints affected", cond.Storm.RadiusNm, len(affected)),
				Location:          cond.Storm.Center,
				Timestamp:         now,
				AffectedWaypoints: affected,
			})

			// Deviate once per storm lifecycle: once the avoidance waypoint
			// is in, the current route outnumbers the original.
			if len(current.Waypoints) == len(original.Waypoints) {
				d := deviateRoute(current, *cond.Storm, now)
				deviated = &d
			}
		}
	}

	if !stormOrSquallFired && cond.WindSpeed > highWindThresholdKt {
		alerts = append(alerts, Alert{
			ID:        uuid.NewString(),
			Type:      AlertHighWind,
			Severity:  SeverityWatch,
			Message:   fmt.Sprintf("Sustained wind %.0f kt", cond.WindSpeed),
			Location:  cond.BoatPosition,
			Timestamp: now,
		})
	}

	if cond.WaveHeight > highWaveThresholdM {
		alerts = append(alerts, Alert{
			ID:        uuid.NewString(),
			Type:      AlertHighWaves,
			Severity:  SeverityAdvisory,
			Message:   fmt.Sprintf("Significant wave height %.1f m", cond.WaveHeight),
			Location:  cond.BoatPosition,
			Timestamp: now,
		})
	}

	return alerts, deviated
}

// waypointsWithin returns the names of the waypoints inside the hazard
// radius, by haversine distance.
func waypointsWithin(r route.Route, center latlon.LatLon, radiusNm float64) []string {
	var names []string
	for _, wp := range r.Waypoints {
		if latlon.Distance(wp.Position, center) <= radiusNm {
			names = append(names, wp.Name)
		}
	}
	return names
}

// deviateRoute synthesizes a new route with a single avoidance waypoint
// north-east of the storm center, inserted before the first affected
// waypoint. The input route is not mutated.
func deviateRoute(r route.Route, storm Storm, now time.Time) route.Route {
	firstAffected := len(r.Waypoints)
	for i, wp := range r.Waypoints {
		if latlon.Distance(wp.Position, storm.Center) <= storm.RadiusNm {
			firstAffected = i
			break
		}
	}

	avoid := route.Waypoint{
		ID:   uuid.NewString(),
		Name: "Storm Avoidance",
		Position: latlon.LatLon{
			Lat: storm.Center.Lat + avoidanceLatOffset,
			Lon: storm.Center.Lon + avoidanceLonOffset,
		},
		Plan: route.SailPlan{},
	}

	d := r.Clone()
	d.ID = uuid.NewString()
	d.Name = r.Name + " (storm avoidance)"
	d.UpdatedAt = now
	d.Waypoints = append(d.Waypoints[:firstAffected:firstAffected], append([]route.Waypoint{avoid}, d.Waypoints[firstAffected:]...)...)
	for i := range d.Waypoints {
		d.Waypoints[i].Order = i + 1
	}

	log.Warnf("Storm avoidance waypoint inserted at (%f, %f)", avoid.Position.Lat, avoid.Position.Lon)
	return d
}

// boatPosition maps voyage progress at the virtual hour onto the route's leg
// sequence.
func boatPosition(r route.Route, hour float64) latlon.LatLon {
	if len(r.Waypoints) == 0 {
		return latlon.LatLon{}
	}
	if len(r.Waypoints) == 1 {
		return r.Waypoints[0].Position
	}

	totalHours := r.TotalHours()
	if totalHours <= 0 {
		return r.Waypoints[0].Position
	}

	progress := hour / totalHours
	if progress <= 0 {
		return r.Waypoints[0].Position
	}
	if progress >= 1 {
		return r.Waypoints[len(r.Waypoints)-1].Position
	}

	target := progress * r.TotalDistanceNm()
	for i := 1; i < len(r.Waypoints); i++ {
		wp := r.Waypoints[i]
		if wp.DistanceFromStartNm >= target {
			prev := r.Waypoints[i-1]
			leg := wp.DistanceFromStartNm - prev.DistanceFromStartNm
			if leg <= 0 {
				return prev.Position
			}
			f := (target - prev.DistanceFromStartNm) / leg
			return latlon.Intermediate(prev.Position, wp.Position, f)
		}
	}
	return r.Waypoints[len(r.Waypoints)-1].Position
}
