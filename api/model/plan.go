package model

import (
	"time"

	"github.com/passage-nav/passage-server/latlon"
	"github.com/passage-nav/passage-server/route"
	"github.com/passage-nav/passage-server/sail"
	"github.com/passage-nav/passage-server/sim"
)

// PlanRequest is the wire form of a planning call.
type PlanRequest struct {
	Name                string        `json:"name"`
	Start               latlon.LatLon `json:"start"`
	Destination         latlon.LatLon `json:"destination"`
	Mode                sail.Mode     `json:"mode"`
	EngineWindThreshold float64       `json:"engineWindThreshold"`
	AvoidStorms         bool          `json:"avoidStorms"`
	DaylightArrival     bool          `json:"daylightArrival"`
	MaxDailyDistanceNm  float64       `json:"maxDailyDistance"`
	WaypointIntervalNm  float64       `json:"waypointInterval"`
	Departure           time.Time     `json:"departure"`
}

// ToConfig maps the request onto a planner config.
func (r PlanRequest) ToConfig() route.PlanConfig {
	return route.PlanConfig{
		Name:                r.Name,
		Start:               r.Start,
		Destination:         r.Destination,
		Mode:                r.Mode,
		EngineWindThreshold: r.EngineWindThreshold,
		AvoidStorms:         r.AvoidStorms,
		DaylightArrival:     r.DaylightArrival,
		MaxDailyDistanceNm:  r.MaxDailyDistanceNm,
		WaypointIntervalNm:  r.WaypointIntervalNm,
		Departure:           r.Departure,
	}
}

// SimulationRequest starts a simulation run over a previously planned route.
type SimulationRequest struct {
	Route route.Route `json:"route"`
}

// SimulationStatus is the current snapshot of a simulation run.
type SimulationStatus struct {
	Running       bool            `json:"running"`
	Conditions    *sim.Conditions `json:"conditions,omitempty"`
	Alerts        []sim.Alert     `json:"alerts,omitempty"`
	DeviatedRoute *route.Route    `json:"deviatedRoute,omitempty"`
}
