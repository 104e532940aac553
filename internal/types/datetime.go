package types

import "time"

// DateTime represents the Date value: 64-bit signed milliseconds since
// the Unix epoch, UTC. All date-extraction and date-arithmetic operators
// operate on this integer directly, per the engine's "date arithmetic
// operates on the underlying epoch-milliseconds integer" invariant.
type DateTime int64

// NewDateTime converts a [time.Time] to a DateTime, truncating to millisecond precision.
func NewDateTime(t time.Time) DateTime {
	return DateTime(t.UnixMilli())
}

// Time converts a DateTime back to a UTC [time.Time].
func (d DateTime) Time() time.Time {
	return time.UnixMilli(int64(d)).UTC()
}

// AddMillis returns d advanced by the given number of milliseconds (negative to go back).
func (d DateTime) AddMillis(ms int64) DateTime {
	return DateTime(int64(d) + ms)
}
