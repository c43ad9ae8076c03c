package stock

import (
	"fmt"
	"math"
	"time"
)

// WarningWindow is how many days ahead an expiration date raises a warning.
const WarningWindow = 5

// Status is the freshness of an entry relative to a given day.
type Status string

const (
	StatusExpired Status = "expired"
	StatusWarning Status = "warning"
	StatusGood    Status = "good"
	StatusUnknown Status = "unknown"
)

// Classify maps every entry to exactly one Status.
func Classify(e Entry, today time.Time) Status {
	days, ok := DaysLeft(e, today)
	switch {
	case !ok:
		return StatusUnknown
	case days < 0:
		return StatusExpired
	case days <= WarningWindow:
		return StatusWarning
	default:
		return StatusGood
	}
}

// DaysLeft returns the number of calendar days from today to the entry's
// expiration date, negative once expired. ok is false without a date.
func DaysLeft(e Entry, today time.Time) (days int, ok bool) {
	if e.ExpirationDate == nil {
		return 0, false
	}
	return daysBetween(today, *e.ExpirationDate), true
}

// Describe returns a short human message for the entry's freshness.
func Describe(e Entry, today time.Time) string {
	days, ok := DaysLeft(e, today)
	switch {
	case !ok:
		return "unknown date"
	case days < 0:
		return fmt.Sprintf("expired %s ago", plural(-days, "day"))
	case days == 0:
		return "expires today"
	default:
		return fmt.Sprintf("expires in %s", plural(days, "day"))
	}
}

// daysBetween compares calendar dates: both sides are taken at midnight in
// today's location, so the time of day never shifts the result.
func daysBetween(today, date time.Time) int {
	loc := today.Location()
	y, m, d := today.Date()
	from := time.Date(y, m, d, 0, 0, 0, 0, loc)
	y, m, d = date.Date()
	to := time.Date(y, m, d, 0, 0, 0, 0, loc)
	// Rounding absorbs 23h and 25h days around DST changes.
	return int(math.Round(to.Sub(from).Hours() / 24))
}

func plural(n int, unit string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s", unit)
	}
	return fmt.Sprintf("%d %ss", n, unit)
}
