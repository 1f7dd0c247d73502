package daylight

import (
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/passage-nav/passage-server/latlon"
)

// Validator checks arrival instants against daylight hours. Sunrise and
// sunset use a fixed local-clock approximation; the hour fields are
// overridable so a solar-position model can replace them without touching
// call sites. EarliestDepartureHour is the policy cut-off below which a
// same-day earlier departure is rejected in favour of a next-day arrival.
type Validator struct {
	SunriseHour           int
	SunsetHour            int
	EarliestDepartureHour int
	ArrivalBuffer         time.Duration
}

// NewValidator returns a Validator with the standard 06:00-18:00 window,
// a one hour buffer after sunrise / before sunset, and 04:00 as the earliest
// acceptable departure hour.
func NewValidator() Validator {
	return Validator{
		SunriseHour:           6,
		SunsetHour:            18,
		EarliestDepartureHour: 4,
		ArrivalBuffer:         time.Hour,
	}
}

// IsDaylight reports whether the instant falls between sunrise and sunset at
// the given location. The coordinates are kept in the signature for a future
// solar model; the fixed approximation only reads the local clock.
func (v Validator) IsDaylight(t time.Time, _ latlon.LatLon) bool {
	h := t.Hour()
	return h >= v.SunriseHour && h < v.SunsetHour
}

// Departure is the outcome of a departure-time solve.
type Departure struct {
	DepartureTime time.Time `json:"departureTime"`
	Adjusted      bool      `json:"adjusted"`
	Message       string    `json:"message,omitempty"`
}

// RequiredDeparture shifts the preferred departure so that arrival at the
// destination after totalSailingHours falls in daylight. Arrivals before
// sunrise delay the departure; arrivals after sunset advance it the same
// day, unless the advanced departure's clock hour would precede
// EarliestDepartureHour, in which case arrival is pushed to the next
// morning instead.
func (v Validator) RequiredDeparture(dest latlon.LatLon, totalSailingHours float64, preferred time.Time) Departure {
	arrival := preferred.Add(hoursToDuration(totalSailingHours))

	if v.IsDaylight(arrival, dest) {
		return Departure{DepartureTime: preferred}
	}

	sunrise := time.Date(arrival.Year(), arrival.Month(), arrival.Day(), v.SunriseHour, 0, 0, 0, arrival.Location())
	sunset := time.Date(arrival.Year(), arrival.Month(), arrival.Day(), v.SunsetHour, 0, 0, 0, arrival.Location())

	if arrival.Before(sunrise) {
		delay := sunrise.Add(v.ArrivalBuffer).Sub(arrival)
		dep := preferred.Add(delay)
		log.Infof("Arrival %s precedes sunrise, delaying departure by %s", arrival.Format(time.RFC3339), delay)
		return Departure{
			DepartureTime: dep,
			Adjusted:      true,
			Message:       fmt.Sprintf("departure delayed %s to arrive after sunrise", delay),
		}
	}

	// Arrival follows sunset: prefer leaving earlier the same day.
	advance := arrival.Sub(sunset.Add(-v.ArrivalBuffer))
	dep := preferred.Add(-advance)

	if dep.Hour() < v.EarliestDepartureHour {
		// Too early to sensibly leave; wait for the next morning instead.
		nextArrival := sunrise.AddDate(0, 0, 1).Add(v.ArrivalBuffer)
		dep = nextArrival.Add(-hoursToDuration(totalSailingHours))
		log.Infof("Advanced departure %s too early, delaying arrival to %s", dep.Format(time.RFC3339), nextArrival.Format(time.RFC3339))
		return Departure{
			DepartureTime: dep,
			Adjusted:      true,
			Message:       "departure shifted to arrive the next morning after sunrise",
		}
	}

	log.Infof("Arrival %s follows sunset, advancing departure by %s", arrival.Format(time.RFC3339), advance)
	return Departure{
		DepartureTime: dep,
		Adjusted:      true,
		Message:       fmt.Sprintf("departure advanced %s to arrive before sunset", advance),
	}
}

func hoursToDuration(h float64) time.Duration {
	return time.Duration(h * float64(time.Hour))
}
