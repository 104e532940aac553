package expr

import (
	"strings"
	"time"

	"github.com/docbase/docbase/internal/dberrors"
	"github.com/docbase/docbase/internal/types"
)

const defaultDateFormat = "%Y-%m-%dT%H:%M:%S.%LZ"

func init() {
	registerNamed("$dateAdd", []string{"startDate", "unit", "amount"}, []string{"timezone"}, opDateAdd)
	registerNamed("$dateSubtract", []string{"startDate", "unit", "amount"}, []string{"timezone"}, opDateSubtract)
	registerNamed("$dateDiff", []string{"startDate", "endDate", "unit"}, []string{"timezone", "startOfWeek"}, opDateDiff)
	register("$dateFromParts", buildDateFromParts)
	registerNamed("$dateToParts", []string{"date"}, []string{"timezone", "iso8601"}, opDateToParts)
	registerNamed("$dateFromString", []string{"dateString"}, []string{"format", "timezone", "onError", "onNull"}, opDateFromString)
	registerNamed("$dateToString", []string{"date"}, []string{"format", "timezone", "onNull"}, opDateToString)
}

// unitMillis returns the length of a fixed-length unit in milliseconds,
// or 0 for the calendar units (year/quarter/month) that $dateAdd/
// $dateSubtract handle via time.AddDate instead.
func unitMillis(unit string) (int64, bool) {
	switch unit {
	case "week":
		return 7 * 24 * 3600 * 1000, true
	case "day":
		return 24 * 3600 * 1000, true
	case "hour":
		return 3600 * 1000, true
	case "minute":
		return 60 * 1000, true
	case "second":
		return 1000, true
	case "millisecond":
		return 1, true
	default:
		return 0, false
	}
}

func addUnit(t time.Time, unit string, amount int64) (time.Time, error) {
	switch unit {
	case "year":
		return t.AddDate(int(amount), 0, 0), nil
	case "quarter":
		return t.AddDate(0, int(amount)*3, 0), nil
	case "month":
		return t.AddDate(0, int(amount), 0), nil
	}

	if ms, ok := unitMillis(unit); ok {
		return t.Add(time.Duration(amount*ms) * time.Millisecond), nil
	}

	return t, dberrors.Errorf("$dateAdd", "unknown date unit %q", unit)
}

func opDateAdd(args map[string]any) (any, error) {
	return dateAddOrSubtract("$dateAdd", args, 1)
}

func opDateSubtract(args map[string]any) (any, error) {
	return dateAddOrSubtract("$dateSubtract", args, -1)
}

func dateAddOrSubtract(op string, args map[string]any, sign int64) (any, error) {
	if anyNullish(args["startDate"], args["unit"], args["amount"]) {
		return types.Null, nil
	}

	dt, err := asDateTime(op, args["startDate"])
	if err != nil {
		return nil, err
	}

	unit, ok := args["unit"].(string)
	if !ok {
		return nil, dberrors.Errorf(op, "%s requires a string 'unit'", op)
	}

	amount, ok := asInt(args["amount"])
	if !ok {
		return nil, dberrors.Errorf(op, "%s requires a numeric 'amount'", op)
	}

	result, err := addUnit(dt.Time(), unit, sign*amount)
	if err != nil {
		return nil, err
	}

	return types.NewDateTime(result), nil
}

func opDateDiff(args map[string]any) (any, error) {
	if anyNullish(args["startDate"], args["endDate"], args["unit"]) {
		return types.Null, nil
	}

	start, err := asDateTime("$dateDiff", args["startDate"])
	if err != nil {
		return nil, err
	}

	end, err := asDateTime("$dateDiff", args["endDate"])
	if err != nil {
		return nil, err
	}

	unit, ok := args["unit"].(string)
	if !ok {
		return nil, dberrors.Errorf("$dateDiff", "$dateDiff requires a string 'unit'")
	}

	if ms, ok := unitMillis(unit); ok {
		return int64(end-start) / ms, nil
	}

	st, et := start.Time(), end.Time()

	switch unit {
	case "year":
		return int64(et.Year() - st.Year()), nil
	case "quarter":
		return int64((et.Year()*12+int(et.Month()))-(st.Year()*12+int(st.Month()))) / 3, nil
	case "month":
		return int64((et.Year()*12 + int(et.Month())) - (st.Year()*12 + int(st.Month()))), nil
	}

	return nil, dberrors.Errorf("$dateDiff", "unknown date unit %q", unit)
}

func buildDateFromParts(raw any, compileFn CompileFunc) (Expr, error) {
	doc, ok := raw.(*types.Document)
	if !ok {
		return nil, dberrors.Errorf("$dateFromParts", "$dateFromParts requires a document of date parts")
	}

	fields := make(map[string]Expr, doc.Len())

	for _, k := range doc.Keys() {
		v, _ := doc.Get(k)

		e, err := compileFn(v)
		if err != nil {
			return nil, err
		}

		fields[k] = e
	}

	return dateFromPartsExpr{fields: fields}, nil
}

type dateFromPartsExpr struct{ fields map[string]Expr }

func (e dateFromPartsExpr) Eval(scope *Scope) (any, error) {
	args, err := evalNamed(scope, e.fields)
	if err != nil {
		return nil, err
	}

	partInt := func(name string, def int) int {
		if v, ok := args[name]; ok {
			if n, ok := asInt(v); ok {
				return int(n)
			}
		}

		return def
	}

	year, ok := args["year"]
	if ok {
		y, _ := asInt(year)

		t := time.Date(
			int(y), time.Month(partInt("month", 1)), partInt("day", 1),
			partInt("hour", 0), partInt("minute", 0), partInt("second", 0),
			partInt("millisecond", 0)*1e6, time.UTC,
		)

		return types.NewDateTime(t), nil
	}

	isoYear, ok := args["isoWeekYear"]
	if !ok {
		return nil, dberrors.Errorf("$dateFromParts", "$dateFromParts requires 'year' or 'isoWeekYear'")
	}

	y, _ := asInt(isoYear)
	week := partInt("isoWeek", 1)
	dow := partInt("isoDayOfWeek", 1)

	t := isoDate(int(y), week, dow)
	t = t.Add(time.Duration(partInt("hour", 0))*time.Hour +
		time.Duration(partInt("minute", 0))*time.Minute +
		time.Duration(partInt("second", 0))*time.Second +
		time.Duration(partInt("millisecond", 0))*time.Millisecond)

	return types.NewDateTime(t), nil
}

// isoDate returns the UTC midnight of the given ISO week-date.
func isoDate(year, week, weekday int) time.Time {
	jan4 := time.Date(year, time.January, 4, 0, 0, 0, 0, time.UTC)
	isoWd := int(jan4.Weekday())

	if isoWd == 0 {
		isoWd = 7
	}

	monday := jan4.AddDate(0, 0, -(isoWd - 1))

	return monday.AddDate(0, 0, (week-1)*7+(weekday-1))
}

func opDateToParts(args map[string]any) (any, error) {
	dt, err := asDateTime("$dateToParts", args["date"])
	if err != nil {
		return nil, err
	}

	t := dt.Time()

	iso, _ := args["iso8601"].(bool)

	doc := types.MakeDocument(7)

	if iso {
		y, w := t.ISOWeek()
		doc.Set("isoWeekYear", int32(y))
		doc.Set("isoWeek", int32(w))
		doc.Set("isoDayOfWeek", isoDayOfWeek(t))
	} else {
		doc.Set("year", int32(t.Year()))
		doc.Set("month", int32(t.Month()))
		doc.Set("day", int32(t.Day()))
	}

	doc.Set("hour", int32(t.Hour()))
	doc.Set("minute", int32(t.Minute()))
	doc.Set("second", int32(t.Second()))
	doc.Set("millisecond", int32(t.Nanosecond()/1e6))

	return doc, nil
}

func opDateFromString(args map[string]any) (any, error) {
	if isNullish(args["dateString"]) {
		if v, ok := args["onNull"]; ok {
			return v, nil
		}

		return types.Null, nil
	}

	s, ok := args["dateString"].(string)
	if !ok {
		return nil, dberrors.Errorf("$dateFromString", "$dateFromString requires a string 'dateString'")
	}

	format := defaultDateFormat
	if f, ok := args["format"].(string); ok {
		format = f
	}

	t, err := time.Parse(mongoFormatToGoLayout(format), s)
	if err != nil {
		if v, ok := args["onError"]; ok {
			return v, nil
		}

		return nil, dberrors.Errorf("$dateFromString", "Error parsing date string '%s': %s", s, err)
	}

	return types.NewDateTime(t), nil
}

func opDateToString(args map[string]any) (any, error) {
	if isNullish(args["date"]) {
		if v, ok := args["onNull"]; ok {
			return v, nil
		}

		return types.Null, nil
	}

	dt, err := asDateTime("$dateToString", args["date"])
	if err != nil {
		return nil, err
	}

	format := defaultDateFormat
	if f, ok := args["format"].(string); ok {
		format = f
	}

	return dt.Time().Format(mongoFormatToGoLayout(format)), nil
}

// mongoFormatToGoLayout translates the subset of MongoDB's strftime-style
// $dateToString/$dateFromString directives this engine supports into a
// Go reference-time layout string.
func mongoFormatToGoLayout(format string) string {
	var sb strings.Builder

	for i := 0; i < len(format); i++ {
		if format[i] != '%' || i+1 >= len(format) {
			sb.WriteByte(format[i])
			continue
		}

		i++

		switch format[i] {
		case 'Y':
			sb.WriteString("2006")
		case 'm':
			sb.WriteString("01")
		case 'd':
			sb.WriteString("02")
		case 'H':
			sb.WriteString("15")
		case 'M':
			sb.WriteString("04")
		case 'S':
			sb.WriteString("05")
		case 'L':
			sb.WriteString("000")
		case 'Z':
			sb.WriteString("Z07:00")
		case 'z':
			sb.WriteString("-0700")
		case '%':
			sb.WriteByte('%')
		default:
			sb.WriteByte('%')
			sb.WriteByte(format[i])
		}
	}

	return sb.String()
}
