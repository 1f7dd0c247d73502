package sim

import (
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/passage-nav/passage-server/latlon"
	"github.com/passage-nav/passage-server/metrics"
	"github.com/passage-nav/passage-server/route"
)

const testTick = time.Second

// makeRoute builds a minimal navigable route through the given positions
// with consistent cumulative distance and timing.
func makeRoute(positions ...latlon.LatLon) route.Route {
	wps := make([]route.Waypoint, len(positions))
	cum := 0.0
	for i, pos := range positions {
		var leg float64
		if i > 0 {
			leg = latlon.Distance(positions[i-1], pos)
		}
		cum += leg
		wps[i] = route.Waypoint{
			ID:                  "wp",
			Name:                "Waypoint",
			Position:            pos,
			Order:               i + 1,
			LegDistanceNm:       leg,
			DistanceFromStartNm: cum,
			LegHours:            leg / 6.0,
			ElapsedHours:        cum / 6.0,
		}
	}
	wps[0].Name = "Start"
	wps[len(wps)-1].Name = "Destination"
	return route.Route{ID: "r", Name: "test", Waypoints: wps}
}

type recorder struct {
	updates chan Conditions
	alerts  chan Alert
	routes  chan route.Route
}

func newRecorder() *recorder {
	return &recorder{
		updates: make(chan Conditions, 64),
		alerts:  make(chan Alert, 64),
		routes:  make(chan route.Route, 64),
	}
}

func (r *recorder) callbacks() Callbacks {
	return Callbacks{
		OnWeatherUpdate:  func(c Conditions) { r.updates <- c },
		OnStormAlert:     func(a Alert) { r.alerts <- a },
		OnRouteDeviation: func(rt route.Route) { r.routes <- rt },
	}
}

func recvUpdate(t *testing.T, r *recorder) Conditions {
	t.Helper()
	select {
	case c := <-r.updates:
		return c
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for weather update")
		return Conditions{}
	}
}

func drainAlerts(r *recorder) []Alert {
	var out []Alert
	for {
		select {
		case a := <-r.alerts:
			out = append(out, a)
		default:
			return out
		}
	}
}

func calmScenario() []Keyframe {
	return []Keyframe{
		{Hour: 0, WindSpeed: 10, WindDirection: 200, WaveHeight: 1, GustSpeed: 14},
		{Hour: 12, WindSpeed: 14, WindDirection: 220, WaveHeight: 2, GustSpeed: 18},
		{Hour: 24, WindSpeed: 18, WindDirection: 240, WaveHeight: 3, GustSpeed: 24},
		{Hour: 36, WindSpeed: 10, WindDirection: 200, WaveHeight: 1, GustSpeed: 14},
	}
}

var stormCenter = latlon.LatLon{Lat: 38.5, Lon: -68.0}

func stormScenario() []Keyframe {
	return []Keyframe{
		{Hour: 0, WindSpeed: 15, WindDirection: 230, WaveHeight: 1.5, GustSpeed: 20},
		{
			Hour: 12, WindSpeed: 40, WindDirection: 250, WaveHeight: 3, GustSpeed: 52,
			Storm: &Storm{Center: stormCenter, RadiusNm: 30},
		},
		{
			Hour: 24, WindSpeed: 40, WindDirection: 255, WaveHeight: 3, GustSpeed: 52,
			Storm: &Storm{Center: stormCenter, RadiusNm: 30},
		},
		{Hour: 36, WindSpeed: 15, WindDirection: 230, WaveHeight: 1.5, GustSpeed: 20},
	}
}

func newEngine(fc clockwork.Clock, frames []Keyframe) *Engine {
	return New(metrics.NewForTesting(),
		WithClock(fc),
		WithTickPeriod(testTick),
		WithScenario(frames),
	)
}

func TestStartEmitsImmediateUpdate(t *testing.T) {
	fc := clockwork.NewFakeClock()
	eng := newEngine(fc, calmScenario())
	rec := newRecorder()

	eng.Start(makeRoute(latlon.LatLon{Lat: 40, Lon: -70}, latlon.LatLon{Lat: 39, Lon: -69}), rec.callbacks())
	defer eng.Stop()

	c := recvUpdate(t, rec)
	assert.Equal(t, 0.0, c.Hour)
	assert.Equal(t, 10.0, c.WindSpeed)
	assert.InDelta(t, 40.0, c.BoatPosition.Lat, 1e-9, "boat starts at the first waypoint")
}

func TestTickInterpolatesKeyframes(t *testing.T) {
	fc := clockwork.NewFakeClock()
	eng := New(metrics.NewForTesting(),
		WithClock(fc),
		WithTickPeriod(testTick),
		WithScenario(calmScenario()),
		WithHoursPerTick(6),
	)
	rec := newRecorder()

	eng.Start(makeRoute(latlon.LatLon{Lat: 40, Lon: -70}, latlon.LatLon{Lat: 39, Lon: -69}), rec.callbacks())
	defer eng.Stop()
	recvUpdate(t, rec) // hour 0

	fc.Advance(testTick)
	c := recvUpdate(t, rec)

	// hour 6 is halfway between the 0 and 12 keyframes
	assert.Equal(t, 6.0, c.Hour)
	assert.InDelta(t, 12.0, c.WindSpeed, 1e-9)
	assert.InDelta(t, 210.0, c.WindDirection, 1e-9)
	assert.InDelta(t, 1.5, c.WaveHeight, 1e-9)
}

func TestHourWrapsPastScenarioSpan(t *testing.T) {
	fc := clockwork.NewFakeClock()
	eng := newEngine(fc, calmScenario())
	rec := newRecorder()

	eng.Start(makeRoute(latlon.LatLon{Lat: 40, Lon: -70}, latlon.LatLon{Lat: 39, Lon: -69}), rec.callbacks())
	defer eng.Stop()
	recvUpdate(t, rec) // hour 0

	var hours []float64
	for i := 0; i < 4; i++ {
		fc.Advance(testTick)
		hours = append(hours, recvUpdate(t, rec).Hour)
	}
	assert.Equal(t, []float64{12, 24, 36, 0}, hours)
}

func TestEmptyScenarioFallsBackToDefault(t *testing.T) {
	fc := clockwork.NewFakeClock()
	eng := newEngine(fc, nil)
	rec := newRecorder()

	eng.Start(makeRoute(latlon.LatLon{Lat: 40, Lon: -70}, latlon.LatLon{Lat: 39, Lon: -69}), rec.callbacks())
	defer eng.Stop()

	c := recvUpdate(t, rec)
	assert.Equal(t, DefaultScenario()[0].WindSpeed, c.WindSpeed)

	fc.Advance(testTick)
	c = recvUpdate(t, rec)
	assert.Equal(t, 12.0, c.Hour)
}

func TestStopSilencesCallbacks(t *testing.T) {
	fc := clockwork.NewFakeClock()
	eng := newEngine(fc, calmScenario())
	rec := newRecorder()

	eng.Start(makeRoute(latlon.LatLon{Lat: 40, Lon: -70}, latlon.LatLon{Lat: 39, Lon: -69}), rec.callbacks())
	recvUpdate(t, rec)

	eng.Stop()
	assert.False(t, eng.Running())

	fc.Advance(10 * testTick)
	select {
	case c := <-rec.updates:
		t.Fatalf("callback fired after Stop: %+v", c)
	case <-time.After(100 * time.Millisecond):
	}

	eng.Stop() // idempotent
}

func TestDoubleStartSingleTickStream(t *testing.T) {
	fc := clockwork.NewFakeClock()
	eng := newEngine(fc, calmScenario())
	first := newRecorder()
	second := newRecorder()

	r := makeRoute(latlon.LatLon{Lat: 40, Lon: -70}, latlon.LatLon{Lat: 39, Lon: -69})
	eng.Start(r, first.callbacks())
	recvUpdate(t, first)

	eng.Start(r, second.callbacks())
	defer eng.Stop()
	recvUpdate(t, second)

	fc.Advance(testTick)
	c := recvUpdate(t, second)
	assert.Equal(t, 12.0, c.Hour)

	// exactly one tick stream: the first run is fully stopped
	select {
	case c := <-first.updates:
		t.Fatalf("stopped run still ticking: %+v", c)
	case <-time.After(100 * time.Millisecond):
	}
	select {
	case c := <-second.updates:
		t.Fatalf("more than one tick per period: %+v", c)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestStormAlertAndDeviation(t *testing.T) {
	fc := clockwork.NewFakeClock()
	eng := newEngine(fc, stormScenario())
	rec := newRecorder()

	// second waypoint sits on the storm center
	r := makeRoute(latlon.LatLon{Lat: 40, Lon: -70}, stormCenter, latlon.LatLon{Lat: 37, Lon: -66})
	eng.Start(r, rec.callbacks())
	defer eng.Stop()
	recvUpdate(t, rec)

	fc.Advance(testTick)
	recvUpdate(t, rec) // hour 12, storm visible

	var deviated route.Route
	select {
	case deviated = <-rec.routes:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for route deviation")
	}

	alerts := drainAlerts(rec)
	require.Len(t, alerts, 1)
	assert.Equal(t, AlertStorm, alerts[0].Type)
	assert.Equal(t, SeverityWarning, alerts[0].Severity)
	assert.Equal(t, []string{"Waypoint"}, alerts[0].AffectedWaypoints)

	// the deviated route gains one waypoint, inserted before the affected
	// one, offset north-east of the storm center, with dense orders
	require.Len(t, deviated.Waypoints, 4)
	avoid := deviated.Waypoints[1]
	assert.Equal(t, "Storm Avoidance", avoid.Name)
	assert.InDelta(t, stormCenter.Lat+1.5, avoid.Position.Lat, 1e-9)
	assert.InDelta(t, stormCenter.Lon+2.0, avoid.Position.Lon, 1e-9)
	for i, wp := range deviated.Waypoints {
		assert.Equal(t, i+1, wp.Order)
	}

	// the caller's route is untouched
	require.Len(t, r.Waypoints, 3)
	assert.Equal(t, "Waypoint", r.Waypoints[1].Name)
}

func TestDeviationOncePerStormLifecycle(t *testing.T) {
	fc := clockwork.NewFakeClock()
	eng := newEngine(fc, stormScenario())
	rec := newRecorder()

	r := makeRoute(latlon.LatLon{Lat: 40, Lon: -70}, stormCenter, latlon.LatLon{Lat: 37, Lon: -66})
	eng.Start(r, rec.callbacks())
	defer eng.Stop()
	recvUpdate(t, rec)

	fc.Advance(testTick)
	recvUpdate(t, rec) // hour 12: storm, first deviation
	fc.Advance(testTick)
	recvUpdate(t, rec) // hour 24: storm persists

	// storm alerts fire each tick, the deviation only once
	require.Eventually(t, func() bool { return len(rec.alerts) >= 2 }, 2*time.Second, 10*time.Millisecond)
	assert.Len(t, rec.routes, 1)

	alerts := drainAlerts(rec)
	storms := 0
	for _, a := range alerts {
		if a.Type == AlertStorm {
			storms++
		}
	}
	assert.Equal(t, 2, storms)
}

func TestSquallAndStormSingleAlertEach(t *testing.T) {
	frames := []Keyframe{
		{
			Hour: 0, WindSpeed: 40, WindDirection: 250, WaveHeight: 3, GustSpeed: 52,
			Storm:   &Storm{Center: stormCenter, RadiusNm: 30},
			Squalls: []Squall{{ID: "sq-1", Center: stormCenter, RadiusNm: 25}},
		},
		{Hour: 12, WindSpeed: 15, WindDirection: 230, WaveHeight: 1, GustSpeed: 20},
	}
	fc := clockwork.NewFakeClock()
	eng := New(metrics.NewForTesting(),
		WithClock(fc),
		WithTickPeriod(testTick),
		WithScenario(frames),
		WithHoursPerTick(3), // hour 3 still brackets to the stormy keyframe
	)
	rec := newRecorder()

	// waypoint inside both the squall and the storm radius
	r := makeRoute(latlon.LatLon{Lat: 40, Lon: -70}, stormCenter, latlon.LatLon{Lat: 37, Lon: -66})
	eng.Start(r, rec.callbacks())
	defer eng.Stop()
	recvUpdate(t, rec)

	fc.Advance(testTick)
	recvUpdate(t, rec)

	require.Eventually(t, func() bool { return len(rec.alerts) >= 2 }, 2*time.Second, 10*time.Millisecond)
	alerts := drainAlerts(rec)

	counts := map[AlertType]int{}
	for _, a := range alerts {
		counts[a.Type]++
	}
	assert.Equal(t, 1, counts[AlertSquall], "exactly one squall alert")
	assert.Equal(t, 1, counts[AlertStorm], "exactly one storm alert")
	assert.Zero(t, counts[AlertHighWind], "high wind suppressed when a storm alert fired")
}

func TestHighWindAndHighWaveAlerts(t *testing.T) {
	frames := []Keyframe{
		{Hour: 0, WindSpeed: 42, WindDirection: 250, WaveHeight: 5.5, GustSpeed: 55},
		{Hour: 12, WindSpeed: 42, WindDirection: 250, WaveHeight: 5.5, GustSpeed: 55},
	}
	fc := clockwork.NewFakeClock()
	eng := newEngine(fc, frames)
	rec := newRecorder()

	eng.Start(makeRoute(latlon.LatLon{Lat: 40, Lon: -70}, latlon.LatLon{Lat: 39, Lon: -69}), rec.callbacks())
	defer eng.Stop()
	recvUpdate(t, rec)

	fc.Advance(testTick)
	recvUpdate(t, rec)

	require.Eventually(t, func() bool { return len(rec.alerts) >= 2 }, 2*time.Second, 10*time.Millisecond)
	alerts := drainAlerts(rec)

	counts := map[AlertType]int{}
	for _, a := range alerts {
		counts[a.Type]++
	}
	assert.Equal(t, 1, counts[AlertHighWind])
	assert.Equal(t, 1, counts[AlertHighWaves])
}

func TestBoatPositionProgress(t *testing.T) {
	r := makeRoute(latlon.LatLon{Lat: 0, Lon: 0}, latlon.LatLon{Lat: 1, Lon: 0})

	// halfway through the voyage time puts the boat mid-leg
	mid := boatPosition(r, r.TotalHours()/2)
	assert.InDelta(t, 0.5, mid.Lat, 1e-6)

	assert.Equal(t, r.Waypoints[0].Position, boatPosition(r, 0))
	assert.Equal(t, r.Waypoints[1].Position, boatPosition(r, r.TotalHours()*2))
}
