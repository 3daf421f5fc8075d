package model

import "time"

// UnixMillisecond returns a unix timestamp in milliseconds.
func UnixMillisecond(t time.Time) int64 {
	return t.UnixNano() / int64(time.Millisecond)
}

// FromUnixMillisecond returns a time based on the given unix timestamp in milliseconds.
func FromUnixMillisecond(t int64) time.Time {
	return time.Unix(0, t*int64(time.Millisecond)).UTC()
}

// Truncate drops the sub-millisecond part of t.
// Remote documents carry milliseconds so local dates are kept at the same precision.
func Truncate(t time.Time) time.Time {
	return t.UTC().Truncate(time.Millisecond)
}

// StartOfDay returns the first instant of the calendar day of t, in t's location.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
