package calendar

import "time"

// IsBusinessDay reports whether t falls on Monday through Friday. Exchange
// holidays are not modelled.
func IsBusinessDay(t time.Time) bool {
	switch t.Weekday() {
	case time.Saturday, time.Sunday:
		return false
	default:
		return true
	}
}

// NextBusinessDays returns the n weekdays strictly after last, keeping last's
// clock and location.
func NextBusinessDays(last time.Time, n int) []time.Time {
	if n <= 0 {
		return nil
	}
	out := make([]time.Time, 0, n)
	d := last
	for len(out) < n {
		d = d.AddDate(0, 0, 1)
		if IsBusinessDay(d) {
			out = append(out, d)
		}
	}
	return out
}
