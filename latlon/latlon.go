package latlon

import (
	"fmt"
	"math"
)

const π = math.Pi

// EarthRadiusNm is the mean Earth radius in nautical miles.
const EarthRadiusNm = 3440.065

type LatLon struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Validate rejects non-finite or out-of-range coordinates. Every geometric
// operation assumes its inputs passed this check.
func (p LatLon) Validate() error {
	if math.IsNaN(p.Lat) || math.IsInf(p.Lat, 0) || math.IsNaN(p.Lon) || math.IsInf(p.Lon, 0) {
		return fmt.Errorf("latlon: coordinates must be finite, got (%v, %v)", p.Lat, p.Lon)
	}
	if p.Lat < -90 || p.Lat > 90 {
		return fmt.Errorf("latlon: latitude %v out of range [-90, 90]", p.Lat)
	}
	if p.Lon < -180 || p.Lon > 180 {
		return fmt.Errorf("latlon: longitude %v out of range [-180, 180]", p.Lon)
	}
	return nil
}

func toRadians(a float64) float64 {
	return a * π / 180.0
}

func toDegrees(a float64) float64 {
	return a * 180.0 / π
}

func wrap360(d float64) float64 {
	if 0.0 <= d && d < 360.0 {
		return d
	}
	d1 := d + 360.0
	d2 := d1 - float64(int(d1/360.0)*360)
	return d2
}

// Distance returns the haversine great-circle distance between from and to
// in nautical miles.
func Distance(from, to LatLon) float64 {
	φ1 := toRadians(from.Lat)
	φ2 := toRadians(to.Lat)
	Δφ := φ2 - φ1

	Δλ := toRadians(to.Lon - from.Lon)

	a := math.Sin(Δφ/2)*math.Sin(Δφ/2) + math.Cos(φ1)*math.Cos(φ2)*math.Sin(Δλ/2)*math.Sin(Δλ/2)
	δ := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return EarthRadiusNm * δ
}

// Bearing returns the initial bearing from from to to in degrees [0, 360).
// The bearing is undefined for identical or antipodal points; 0 is returned
// in that degenerate case rather than NaN.
func Bearing(from, to LatLon) float64 {
	φ1 := toRadians(from.Lat)
	φ2 := toRadians(to.Lat)

	Δλ := toRadians(to.Lon - from.Lon)
	x := math.Cos(φ1)*math.Sin(φ2) - math.Sin(φ1)*math.Cos(φ2)*math.Cos(Δλ)
	y := math.Sin(Δλ) * math.Cos(φ2)

	if x == 0 && y == 0 {
		return 0
	}

	// Antipodal points leave x at 0 with only floating-point residue in y,
	// which would turn into a spurious ±90°. Treat them as degenerate too.
	// The haversine loses ~1e-4 nm of precision that close to the antipode,
	// so the margin is a few meters wide.
	if Distance(from, to) > π*EarthRadiusNm-1e-3 {
		return 0
	}

	θ := math.Atan2(y, x)
	b := toDegrees(θ)
	if math.IsNaN(b) {
		return 0
	}

	return wrap360(b)
}

// DistanceAndBearing computes both in a single pass over the trigonometry.
func DistanceAndBearing(from, to LatLon) (float64, float64) {
	return Distance(from, to), Bearing(from, to)
}

// Intermediate returns the point at the given fraction along the great
// circle from from to to: fraction 0 is from, 1 is to. Interpolation is
// angular, not a linear lat/lon blend, so it stays on the great circle over
// long distances. Degenerate input (identical or antipodal points) returns
// from.
func Intermediate(from, to LatLon, fraction float64) LatLon {
	φ1 := toRadians(from.Lat)
	λ1 := toRadians(from.Lon)
	φ2 := toRadians(to.Lat)
	λ2 := toRadians(to.Lon)

	Δφ := φ2 - φ1
	Δλ := λ2 - λ1

	h := math.Sin(Δφ/2)*math.Sin(Δφ/2) + math.Cos(φ1)*math.Cos(φ2)*math.Sin(Δλ/2)*math.Sin(Δλ/2)
	δ := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
	sinδ := math.Sin(δ)

	if sinδ == 0 {
		return from
	}

	a := math.Sin((1-fraction)*δ) / sinδ
	b := math.Sin(fraction*δ) / sinδ

	x := a*math.Cos(φ1)*math.Cos(λ1) + b*math.Cos(φ2)*math.Cos(λ2)
	y := a*math.Cos(φ1)*math.Sin(λ1) + b*math.Cos(φ2)*math.Sin(λ2)
	z := a*math.Sin(φ1) + b*math.Sin(φ2)

	φ := math.Atan2(z, math.Sqrt(x*x+y*y))
	λ := math.Atan2(y, x)

	return LatLon{Lat: toDegrees(φ), Lon: toDegrees(λ)}
}

// AngleDiff returns the signed difference a-b normalized to [-180, 180).
func AngleDiff(a, b float64) float64 {
	return math.Mod(a-b+540.0, 360.0) - 180.0
}
