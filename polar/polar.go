package polar

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"sort"

	log "github.com/sirupsen/logrus"
)

// Point is one tabulated (true wind angle, boat speed) pair of a curve.
type Point struct {
	Twa   float64 `json:"twa"`
	Speed float64 `json:"speed"`
}

// Curve gives boat speed against TWA at one fixed true wind speed.
type Curve struct {
	Tws    float64 `json:"tws"`
	Points []Point `json:"points"`
}

// SailPolar is the curve set of one named sail configuration.
type SailPolar struct {
	Name   string  `json:"name"`
	Curves []Curve `json:"curves"`
}

// Diagram is the full performance model of one boat and sail inventory.
type Diagram struct {
	Label string      `json:"label"`
	Sails []SailPolar `json:"sails"`
}

// Result carries an interpolated boat speed and the velocity made good
// toward the wind (negative downwind).
type Result struct {
	Speed float64 `json:"speed"`
	VMG   float64 `json:"vmg"`
}

// Load reads a polar diagram from a JSON file.
func Load(path string) (*Diagram, error) {
	log.Infof("Load polar diagram %s", path)

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("polar: read %s: %w", path, err)
	}

	var d Diagram
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("polar: parse %s: %w", path, err)
	}
	if len(d.Sails) == 0 {
		return nil, fmt.Errorf("polar: %s defines no sail configuration", path)
	}
	for _, s := range d.Sails {
		if len(s.Curves) == 0 {
			return nil, fmt.Errorf("polar: sail %q has no curves", s.Name)
		}
	}

	d.normalize()
	return &d, nil
}

// normalize sorts curves by TWS and points by TWA so interpolation can
// assume ordered tables.
func (d *Diagram) normalize() {
	for i := range d.Sails {
		sort.Slice(d.Sails[i].Curves, func(a, b int) bool {
			return d.Sails[i].Curves[a].Tws < d.Sails[i].Curves[b].Tws
		})
		for j := range d.Sails[i].Curves {
			pts := d.Sails[i].Curves[j].Points
			sort.Slice(pts, func(a, b int) bool { return pts[a].Twa < pts[b].Twa })
		}
	}
}

// sailPolar selects the curve set for a named configuration. An unknown name
// falls back to the first configuration; this is a defined fallback, not an
// error, to keep the planning pipeline total.
func (d *Diagram) sailPolar(name string) SailPolar {
	for _, s := range d.Sails {
		if s.Name == name {
			return s
		}
	}
	return d.Sails[0]
}

// normalizeTwa folds any real angle onto [0, 180]. Polar curves are
// symmetric port/starboard.
func normalizeTwa(twa float64) float64 {
	t := math.Mod(twa, 360)
	if t < 0 {
		t = -t
	}
	if t > 180 {
		t = 360 - t
	}
	return t
}

// interpolationIndex finds the bracketing pair around value in an ascending
// table and the weight of the lower index. Values outside the table clamp to
// the boundary; a zero-width bracket gets weight 0 to avoid dividing by zero.
func interpolationIndex(values []float64, value float64) (int, int, float64) {
	if value <= values[0] {
		return 0, 0, 0
	}
	last := len(values) - 1
	if value >= values[last] {
		return last, last, 0
	}

	i := 1
	for values[i] < value {
		i++
	}
	if values[i] == values[i-1] {
		return i - 1, i, 0
	}
	return i - 1, i, (values[i] - value) / (values[i] - values[i-1])
}

func (c Curve) speedAt(twa float64) float64 {
	twas := make([]float64, len(c.Points))
	for i, p := range c.Points {
		twas[i] = p.Twa
	}
	i0, i1, w := interpolationIndex(twas, twa)
	return c.Points[i0].Speed*w + c.Points[i1].Speed*(1-w)
}

// Speed returns the interpolated boat speed and VMG for a sail configuration
// at the given true wind speed (knots) and true wind angle (degrees). Double
// linear interpolation: first within the two bracketing TWS curves along
// TWA, then between the curves by the TWS fraction. TWS outside the table is
// clamped to the boundary curve, never extrapolated.
func (d *Diagram) Speed(config string, tws, twa float64) Result {
	t := normalizeTwa(twa)
	sp := d.sailPolar(config)

	twss := make([]float64, len(sp.Curves))
	for i, c := range sp.Curves {
		twss[i] = c.Tws
	}
	i0, i1, w := interpolationIndex(twss, tws)

	s0 := sp.Curves[i0].speedAt(t)
	s1 := sp.Curves[i1].speedAt(t)
	speed := s0*w + s1*(1-w)

	return Result{Speed: speed, VMG: speed * math.Cos(toRadians(t))}
}

// VMGPoint is one angle of the optimal-VMG search.
type VMGPoint struct {
	Twa   float64 `json:"twa"`
	Speed float64 `json:"speed"`
	VMG   float64 `json:"vmg"`
}

// OptimalVMG holds the best upwind and downwind angles for one wind speed.
// Downwind VMG is reported as a positive magnitude.
type OptimalVMG struct {
	Upwind   VMGPoint `json:"upwind"`
	Downwind VMGPoint `json:"downwind"`
}

// FindOptimalVMG scans TWA from 30 to 180 in 1° steps and returns the angle
// maximizing VMG below 90° and the angle of greatest VMG magnitude above
// 90°. The search is discrete, exact only to the 1° step.
func (d *Diagram) FindOptimalVMG(tws float64, config string) OptimalVMG {
	var best OptimalVMG

	for twa := 30.0; twa <= 180.0; twa++ {
		r := d.Speed(config, tws, twa)
		if twa < 90 && r.VMG > best.Upwind.VMG {
			best.Upwind = VMGPoint{Twa: twa, Speed: r.Speed, VMG: r.VMG}
		}
		if twa > 90 && -r.VMG > best.Downwind.VMG {
			best.Downwind = VMGPoint{Twa: twa, Speed: r.Speed, VMG: -r.VMG}
		}
	}

	return best
}

func toRadians(a float64) float64 {
	return a * math.Pi / 180.0
}
