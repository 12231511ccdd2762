package domain

import "time"

// activityZone is the fixed UTC+5:30 offset used to bucket editing activity
// into calendar days. A fixed zone keeps day attribution independent of the
// server's local timezone.
var activityZone = time.FixedZone("IST", 5*3600+30*60)

// LocalDate returns the YYYY-MM-DD calendar date of the instant in IST.
// An interval that crosses local midnight stays attributed to the day its
// start instant falls on.
func LocalDate(t time.Time) string {
	return t.In(activityZone).Format("2006-01-02")
}
