// README: Classifies a pickup date/time against "now" and a lead-time threshold.
package leadtime

import (
	"math"
	"strings"
	"time"
)

const dateLayout = "2006-01-02"

var timeLayouts = []string{"15:04", "15:04:05"}

// Classify reports whether a pickup is immediate (less than thresholdMinutes away)
// or a reservation. A missing or unparsable pickup falls back to reservation with
// a nil delta. Date and time are read in now's location.
func Classify(pickupDate, pickupTime string, thresholdMinutes float64, now time.Time) Result {
	res := Result{Mode: ModeReservation, ThresholdMinutes: thresholdMinutes}

	pickup, ok := PickupInstant(pickupDate, pickupTime, now.Location())
	if !ok {
		return res
	}
	delta := pickup.Sub(now).Minutes()
	if math.IsNaN(delta) || math.IsInf(delta, 0) {
		return res
	}
	res.DeltaMinutes = &delta
	if delta < thresholdMinutes {
		res.Mode = ModeImmediate
	}
	return res
}

// PickupInstant combines a YYYY-MM-DD date and an HH:MM[:SS] time. An empty time
// means midnight.
func PickupInstant(pickupDate, pickupTime string, loc *time.Location) (time.Time, bool) {
	pickupDate = strings.TrimSpace(pickupDate)
	if pickupDate == "" {
		return time.Time{}, false
	}
	if loc == nil {
		loc = time.Local
	}
	day, err := time.ParseInLocation(dateLayout, pickupDate, loc)
	if err != nil {
		return time.Time{}, false
	}
	pickupTime = strings.TrimSpace(pickupTime)
	if pickupTime == "" {
		return day, true
	}
	clock, ok := parseClock(pickupTime)
	if !ok {
		return time.Time{}, false
	}
	return time.Date(day.Year(), day.Month(), day.Day(), clock.Hour(), clock.Minute(), clock.Second(), 0, loc), true
}

// PickupHour returns the hour of an HH:MM[:SS] string.
func PickupHour(pickupTime string) (int, bool) {
	clock, ok := parseClock(strings.TrimSpace(pickupTime))
	if !ok {
		return 0, false
	}
	return clock.Hour(), true
}

func parseClock(v string) (time.Time, bool) {
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
