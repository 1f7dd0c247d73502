package route

import (
	"time"

	"github.com/passage-nav/passage-server/forecast"
	"github.com/passage-nav/passage-server/latlon"
	"github.com/passage-nav/passage-server/sail"
)

// SailPlan is the propulsion decision for one leg: either the engine or a
// sail configuration, never both.
type SailPlan struct {
	Engine bool                `json:"engine"`
	Sails  *sail.Configuration `json:"sails,omitempty"`
}

// Label renders a compact display string for the plan, defaulting to
// "Main+Jib" when no sail is recorded.
func (p SailPlan) Label() string {
	if p.Engine {
		return "Engine"
	}
	if p.Sails == nil {
		return "Main+Jib"
	}
	return p.Sails.Label()
}

// Waypoint is one vertex of a passage plan. Order is a dense 1-based
// sequence over the route.
type Waypoint struct {
	ID                  string                 `json:"id"`
	Name                string                 `json:"name"`
	Position            latlon.LatLon          `json:"position"`
	Order               int                    `json:"order"`
	Plan                SailPlan               `json:"sailPlan"`
	Forecast            *forecast.WindForecast `json:"weatherForecast,omitempty"`
	EstimatedArrival    time.Time              `json:"estimatedArrival"`
	ElapsedHours        float64                `json:"elapsedTime"`
	LegHours            float64                `json:"legTime"`
	DistanceFromStartNm float64                `json:"distanceFromStart"`
	LegDistanceNm       float64                `json:"legDistance"`
	Cog                 float64                `json:"cog"`
	Sog                 float64                `json:"sog"`
}

// Route is an ordered passage plan. It is an immutable snapshot: the planner
// never returns a partially built route, and the simulation derives its own
// copy rather than mutating one.
type Route struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Waypoints []Waypoint `json:"waypoints"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
	StartDate time.Time  `json:"startDate"`
	Warnings  []string   `json:"warnings,omitempty"`
}

// TotalDistanceNm is the cumulative distance to the final waypoint.
func (r Route) TotalDistanceNm() float64 {
	if len(r.Waypoints) == 0 {
		return 0
	}
	return r.Waypoints[len(r.Waypoints)-1].DistanceFromStartNm
}

// TotalHours is the elapsed sailing time to the final waypoint.
func (r Route) TotalHours() float64 {
	if len(r.Waypoints) == 0 {
		return 0
	}
	return r.Waypoints[len(r.Waypoints)-1].ElapsedHours
}

// Clone copies the route and its waypoint slice so a caller can mutate the
// copy without touching the original.
func (r Route) Clone() Route {
	c := r
	c.Waypoints = make([]Waypoint, len(r.Waypoints))
	copy(c.Waypoints, r.Waypoints)
	c.Warnings = append([]string(nil), r.Warnings...)
	return c
}
