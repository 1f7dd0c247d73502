package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for route
// planning, forecast sampling, and the weather simulation.
type Metrics struct {
	RoutesPlanned prometheus.Counter
	PlanDuration  prometheus.Histogram

	ForecastFetches *prometheus.CounterVec // labels: outcome={success,error}
	CorridorPoints  prometheus.Histogram

	SimulationRunning prometheus.Gauge
	StormAlerts       *prometheus.CounterVec // labels: type={storm,high_wind,high_waves,squall}
	RouteDeviations   prometheus.Counter
}

// New creates and registers all metrics with the default Prometheus registry.
func New() *Metrics {
	return newMetrics(prometheus.DefaultRegisterer)
}

// NewForTesting registers on a private registry to avoid "already
// registered" panics across test cases.
func NewForTesting() *Metrics {
	return newMetrics(prometheus.NewRegistry())
}

func newMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		RoutesPlanned: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "passage",
			Name:      "routes_planned_total",
			Help:      "Total passage plans produced.",
		}),
		PlanDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "passage",
			Name:      "plan_duration_seconds",
			Help:      "Duration of a complete route planning call.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30},
		}),
		ForecastFetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "passage",
			Name:      "forecast_fetches_total",
			Help:      "Point forecast fetches by outcome.",
		}, []string{"outcome"}),
		CorridorPoints: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "passage",
			Name:      "corridor_points",
			Help:      "Number of sample points per corridor.",
			Buckets:   []float64{2, 5, 10, 20, 40, 80, 160},
		}),
		SimulationRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "passage",
			Name:      "simulation_running",
			Help:      "1 while a weather simulation is active.",
		}),
		StormAlerts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "passage",
			Name:      "storm_alerts_total",
			Help:      "Simulation hazard alerts by type.",
		}, []string{"type"}),
		RouteDeviations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "passage",
			Name:      "route_deviations_total",
			Help:      "Storm-avoidance routes synthesized by the simulation.",
		}),
	}

	reg.MustRegister(
		m.RoutesPlanned,
		m.PlanDuration,
		m.ForecastFetches,
		m.CorridorPoints,
		m.SimulationRunning,
		m.StormAlerts,
		m.RouteDeviations,
	)
	return m
}
