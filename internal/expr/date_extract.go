package expr

import (
	"github.com/docbase/docbase/internal/dberrors"
	"github.com/docbase/docbase/internal/types"
	"time"
)

func init() {
	dateExtract("$year", func(t time.Time) int32 { return int32(t.Year()) })
	dateExtract("$month", func(t time.Time) int32 { return int32(t.Month()) })
	dateExtract("$dayOfMonth", func(t time.Time) int32 { return int32(t.Day()) })
	dateExtract("$hour", func(t time.Time) int32 { return int32(t.Hour()) })
	dateExtract("$minute", func(t time.Time) int32 { return int32(t.Minute()) })
	dateExtract("$second", func(t time.Time) int32 { return int32(t.Second()) })
	dateExtract("$millisecond", func(t time.Time) int32 { return int32(t.Nanosecond() / 1e6) })
	dateExtract("$dayOfYear", func(t time.Time) int32 { return int32(t.YearDay()) })
	dateExtract("$dayOfWeek", func(t time.Time) int32 { return int32(t.Weekday()) + 1 })
	dateExtract("$week", weekOfYear)
	dateExtract("$isoWeek", isoWeek)
	dateExtract("$isoWeekYear", isoWeekYear)
	dateExtract("$isoDayOfWeek", isoDayOfWeek)
}

func asDateTime(op string, v any) (types.DateTime, error) {
	dt, ok := v.(types.DateTime)
	if !ok {
		return 0, dberrors.Errorf(op, "%s requires a date argument", op)
	}

	return dt, nil
}

// dateExtract registers a unary operator extracting a field from a
// Date. Per the Date row of §4.3, the argument may also be a {date,
// timezone} document; timezone is accepted but always interpreted as
// UTC (no IANA database is wired in).
func dateExtract(name string, fn func(time.Time) int32) {
	unary(name, func(v any) (any, error) {
		dt, err := dateArg(name, v)
		if err != nil {
			return nil, err
		}

		return fn(dt.Time()), nil
	})
}

func dateArg(op string, v any) (types.DateTime, error) {
	if doc, ok := v.(*types.Document); ok {
		d, ok := doc.Get("date")
		if !ok {
			return 0, dberrors.Errorf(op, "%s requires a 'date' field", op)
		}

		return asDateTime(op, d)
	}

	return asDateTime(op, v)
}

// weekOfYear matches MongoDB's $week: a Sunday-based week number, with
// week 0 covering the days before the year's first Sunday.
func weekOfYear(t time.Time) int32 {
	jan1 := time.Date(t.Year(), time.January, 1, 0, 0, 0, 0, time.UTC)
	daysSinceJan1 := int(t.Sub(jan1).Hours() / 24)
	offset := int(jan1.Weekday())

	return int32((daysSinceJan1 + offset) / 7)
}

func isoWeek(t time.Time) int32 {
	_, w := t.ISOWeek()
	return int32(w)
}

func isoWeekYear(t time.Time) int32 {
	y, _ := t.ISOWeek()
	return int32(y)
}

func isoDayOfWeek(t time.Time) int32 {
	d := int(t.Weekday())
	if d == 0 {
		return 7
	}

	return int32(d)
}
