package models

import "time"

// DayOf truncates t to its calendar day in t's own location and returns it as
// UTC midnight. Every Date column is written and queried through it.
func DayOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
