package sail

import (
	"fmt"
	"strings"

	"github.com/passage-nav/passage-server/polar"
)

// Mode is the requested sailing style.
type Mode string

const (
	ModeSpeed   Mode = "speed"
	ModeComfort Mode = "comfort"
	ModeMixed   Mode = "mixed"
)

// Configuration records which sails are set. The advisor never sets more
// than one downwind sail (asymmetric, spinnaker, code zero) at a time.
type Configuration struct {
	Main       bool `json:"main"`
	Jib        bool `json:"jib"`
	Asymmetric bool `json:"asymmetric"`
	Spinnaker  bool `json:"spinnaker"`
	CodeZero   bool `json:"codeZero"`
	StormJib   bool `json:"stormJib"`
}

// Label renders the configuration as a compact display string, e.g.
// "Main+Jib". An empty configuration defaults to "Main+Jib".
func (c Configuration) Label() string {
	var parts []string
	if c.Main {
		parts = append(parts, "Main")
	}
	if c.Jib {
		parts = append(parts, "Jib")
	}
	if c.Asymmetric {
		parts = append(parts, "Asym")
	}
	if c.Spinnaker {
		parts = append(parts, "Spinnaker")
	}
	if c.CodeZero {
		parts = append(parts, "CodeZero")
	}
	if c.StormJib {
		parts = append(parts, "StormJib")
	}
	if len(parts) == 0 {
		return "Main+Jib"
	}
	return strings.Join(parts, "+")
}

// PolarName maps the boolean set onto the named curve set of the polar
// diagram. Unmapped combinations resolve to "Main + Jib"; the diagram itself
// falls back to its first configuration for names it does not know.
func (c Configuration) PolarName() string {
	switch {
	case c.StormJib:
		return "Storm Jib"
	case c.Main && c.Asymmetric:
		return "Main + Asymmetric"
	case c.Main && c.Spinnaker:
		return "Main + Spinnaker"
	case c.Main && c.CodeZero:
		return "Main + Code Zero"
	default:
		return "Main + Jib"
	}
}

// Advice is a complete sail recommendation for one wind condition.
type Advice struct {
	Config          Configuration `json:"config"`
	Label           string        `json:"label"`
	Rationale       string        `json:"rationale"`
	SpeedMultiplier float64       `json:"speedMultiplier"`
	BoatSpeed       float64       `json:"boatSpeed"` // polar speed × multiplier, knots
	VMG             float64       `json:"vmg"`
	Confidence      int           `json:"confidence"`
}

// Advisor maps wind conditions and a sailing mode onto a sail configuration
// through a fixed decision table, then prices the choice against the polar
// diagram.
type Advisor struct {
	diagram *polar.Diagram
}

func NewAdvisor(d *polar.Diagram) *Advisor {
	return &Advisor{diagram: d}
}

// Wind-speed band edges in knots. Lower edge inclusive, upper exclusive,
// except the storm band which opens strictly above 35 and the very-light
// band which closes at 4 inclusive.
const (
	stormWind    = 35.0
	heavyWind    = 25.0
	moderateWind = 15.0
	lightWind    = 8.0
	veryLight    = 4.0
)

// TWA band edges in degrees.
const (
	reachTwa    = 60.0
	downwindTwa = 135.0
)

// Recommend returns the sail plan for a true wind speed (knots) and true
// wind angle. Confidence drops in very light air where the forecast wind is
// barely above the noise floor.
func (a *Advisor) Recommend(windSpeed, twa float64, mode Mode) Advice {
	cfg, rationale, mult := decide(windSpeed, twa, mode)

	confidence := 85
	if windSpeed <= veryLight {
		confidence = 65
	}

	r := a.diagram.Speed(cfg.PolarName(), windSpeed, twa)

	return Advice{
		Config:          cfg,
		Label:           cfg.Label(),
		Rationale:       rationale,
		SpeedMultiplier: mult,
		BoatSpeed:       r.Speed * mult,
		VMG:             r.VMG * mult,
		Confidence:      confidence,
	}
}

func decide(ws, twa float64, mode Mode) (Configuration, string, float64) {
	mainJib := Configuration{Main: true, Jib: true}
	asym := Configuration{Main: true, Asymmetric: true}
	spin := Configuration{Main: true, Spinnaker: true}
	codeZero := Configuration{Main: true, CodeZero: true}

	point := pointOfSail(twa)

	switch {
	case ws > stormWind:
		return Configuration{StormJib: true},
			fmt.Sprintf("Storm conditions (%.0f kt): storm jib only", ws), 0.7

	case ws >= heavyWind:
		mult := 1.0
		if mode == ModeComfort {
			mult = 0.9
		} else if mode == ModeMixed {
			mult = 0.95
		}
		return mainJib,
			fmt.Sprintf("Heavy air (%.0f kt): reefed main and jib", ws), mult

	case ws >= moderateWind:
		switch point {
		case "upwind":
			return mainJib, "Fresh breeze upwind: full main and jib", 1.0
		case "reaching":
			switch mode {
			case ModeSpeed:
				return asym, "Fresh breeze reaching: asymmetric for speed", 1.15
			case ModeComfort:
				return mainJib, "Fresh breeze reaching: main and jib for comfort", 0.95
			default:
				return asym, "Fresh breeze reaching: asymmetric", 1.05
			}
		default:
			switch mode {
			case ModeSpeed:
				return spin, "Fresh breeze downwind: spinnaker for speed", 1.2
			case ModeComfort:
				return mainJib, "Fresh breeze downwind: main and jib for comfort", 0.9
			default:
				return spin, "Fresh breeze downwind: spinnaker", 1.1
			}
		}

	case ws >= lightWind:
		switch point {
		case "upwind":
			return mainJib, "Moderate breeze upwind: full main and jib", 1.0
		case "reaching":
			switch mode {
			case ModeSpeed:
				return asym, "Moderate breeze reaching: asymmetric for speed", 1.1
			case ModeComfort:
				return mainJib, "Moderate breeze reaching: main and jib", 1.0
			default:
				return asym, "Moderate breeze reaching: asymmetric", 1.05
			}
		default:
			switch mode {
			case ModeSpeed:
				return spin, "Moderate breeze downwind: spinnaker for speed", 1.15
			case ModeComfort:
				return mainJib, "Moderate breeze downwind: main and jib", 1.0
			default:
				return spin, "Moderate breeze downwind: spinnaker", 1.05
			}
		}

	case ws > veryLight:
		switch mode {
		case ModeComfort:
			if point == "upwind" {
				return mainJib, "Light air upwind: main and jib", 1.0
			}
			return mainJib, "Light air: main and jib for comfort", 1.0
		case ModeSpeed:
			return codeZero, "Light air: code zero for speed", 1.1
		default:
			return codeZero, "Light air: code zero", 1.05
		}

	default:
		// Very light air: the code zero is the only sail that keeps the
		// boat moving, whatever the mode or angle.
		mult := 1.0
		if mode == ModeSpeed {
			mult = 1.1
		} else if mode == ModeMixed {
			mult = 1.05
		}
		return codeZero,
			fmt.Sprintf("Very light air (%.0f kt): code zero", ws), mult
	}
}

func pointOfSail(twa float64) string {
	t := twa
	if t < 0 {
		t = -t
	}
	if t > 180 {
		t = 360 - t
	}
	switch {
	case t < reachTwa:
		return "upwind"
	case t < downwindTwa:
		return "reaching"
	default:
		return "downwind"
	}
}
