package sim

import "github.com/passage-nav/passage-server/latlon"

// Storm is the primary hazard of a keyframe.
type Storm struct {
	Center   latlon.LatLon `json:"center"`
	RadiusNm float64       `json:"radiusNm"`
}

// Squall is a short-lived secondary hazard, evaluated independently of the
// main storm.
type Squall struct {
	ID       string        `json:"id"`
	Center   latlon.LatLon `json:"center"`
	RadiusNm float64       `json:"radiusNm"`
}

// Keyframe is one named weather state at a fixed virtual hour. Hours between
// keyframes interpolate linearly; storms and squalls switch as a step
// function instead (see StormVisibilityThreshold).
type Keyframe struct {
	Hour          float64  `json:"hour"`
	WindSpeed     float64  `json:"windSpeed"`     // knots
	WindDirection float64  `json:"windDirection"` // degrees, FROM
	WaveHeight    float64  `json:"waveHeight"`    // meters
	GustSpeed     float64  `json:"gustSpeed"`     // knots
	Storm         *Storm   `json:"storm,omitempty"`
	Squalls       []Squall `json:"squalls,omitempty"`
}

// DefaultScenario models a three day passage: a building breeze, a storm
// crossing the track on the second day with an outrunning squall, then
// moderating conditions. Geometry sits on the Newport-Bermuda track so the
// demo route sails straight through it.
func DefaultScenario() []Keyframe {
	return []Keyframe{
		{Hour: 0, WindSpeed: 12, WindDirection: 225, WaveHeight: 1.0, GustSpeed: 16},
		{Hour: 12, WindSpeed: 15, WindDirection: 230, WaveHeight: 1.5, GustSpeed: 20},
		{Hour: 24, WindSpeed: 18, WindDirection: 240, WaveHeight: 2.2, GustSpeed: 25},
		{
			Hour: 36, WindSpeed: 28, WindDirection: 250, WaveHeight: 3.5, GustSpeed: 36,
			Storm: &Storm{Center: latlon.LatLon{Lat: 38.5, Lon: -68.0}, RadiusNm: 60},
			Squalls: []Squall{
				{ID: "squall-1", Center: latlon.LatLon{Lat: 37.2, Lon: -66.8}, RadiusNm: 15},
			},
		},
		{
			Hour: 48, WindSpeed: 34, WindDirection: 260, WaveHeight: 5.0, GustSpeed: 45,
			Storm: &Storm{Center: latlon.LatLon{Lat: 37.8, Lon: -67.2}, RadiusNm: 90},
			Squalls: []Squall{
				{ID: "squall-1", Center: latlon.LatLon{Lat: 36.6, Lon: -66.2}, RadiusNm: 20},
				{ID: "squall-2", Center: latlon.LatLon{Lat: 35.9, Lon: -65.8}, RadiusNm: 12},
			},
		},
		{Hour: 60, WindSpeed: 20, WindDirection: 250, WaveHeight: 3.0, GustSpeed: 26},
		{Hour: 72, WindSpeed: 12, WindDirection: 240, WaveHeight: 1.5, GustSpeed: 16},
	}
}
