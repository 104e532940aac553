package expr

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/docbase/docbase/internal/dberrors"
	"github.com/docbase/docbase/internal/types"
)

func init() {
	register("$type", buildType)
	unary("$isNumber", opIsNumber)
	register("$convert", buildConvert)
	unary("$toInt", func(v any) (any, error) { return convertTo("int", v, nil, nil) })
	unary("$toLong", func(v any) (any, error) { return convertTo("long", v, nil, nil) })
	unary("$toDouble", func(v any) (any, error) { return convertTo("double", v, nil, nil) })
	unary("$toDecimal", func(v any) (any, error) { return convertTo("decimal", v, nil, nil) })
	unary("$toBool", func(v any) (any, error) { return convertTo("bool", v, nil, nil) })
	unary("$toString", func(v any) (any, error) { return convertTo("string", v, nil, nil) })
	unary("$toDate", func(v any) (any, error) { return convertTo("date", v, nil, nil) })
}

// buildType bypasses evalArgs/coerceMissing: it is one of the few
// operators that must observe Missing directly, to distinguish "field
// absent" from "field explicitly null".
func buildType(raw any, compileFn CompileFunc) (Expr, error) {
	exprs, err := argsOf(raw, compileFn)
	if err != nil {
		return nil, err
	}

	if len(exprs) != 1 {
		return nil, dberrors.Errorf("$type", "$type requires exactly 1 argument, got %d", len(exprs))
	}

	return typeExpr{arg: exprs[0]}, nil
}

type typeExpr struct{ arg Expr }

func (e typeExpr) Eval(scope *Scope) (any, error) {
	v, err := e.arg.Eval(scope)
	if err != nil {
		return nil, err
	}

	return types.TypeName(v), nil
}

func opIsNumber(v any) (any, error) {
	return types.IsNumber(v), nil
}

func buildConvert(raw any, compileFn CompileFunc) (Expr, error) {
	doc, ok := raw.(*types.Document)
	if !ok {
		return nil, dberrors.Errorf("$convert", "$convert requires a document of {input, to, onError, onNull}")
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

	if _, ok := fields["input"]; !ok {
		return nil, dberrors.Errorf("$convert", "$convert requires an 'input' expression")
	}

	if _, ok := fields["to"]; !ok {
		return nil, dberrors.Errorf("$convert", "$convert requires a 'to' expression")
	}

	return namedExpr{fields: fields, fn: func(args map[string]any) (any, error) {
		to, ok := args["to"].(string)
		if !ok {
			return nil, dberrors.Errorf("$convert", "$convert 'to' must be a string type name")
		}

		onError, hasOnError := args["onError"]
		onNull, hasOnNull := args["onNull"]

		var onErrorP, onNullP *any
		if hasOnError {
			onErrorP = &onError
		}

		if hasOnNull {
			onNullP = &onNull
		}

		return convertTo(to, args["input"], onErrorP, onNullP)
	}}, nil
}

// convertTo performs the $convert/$toX family's conversion, honoring
// onError/onNull overrides when supplied (nil means "propagate the
// default behavior": error on failure, Null on null input).
func convertTo(to string, v any, onError, onNull *any) (any, error) {
	if isNullish(v) {
		if onNull != nil {
			return *onNull, nil
		}

		return types.Null, nil
	}

	result, err := doConvert(to, v)
	if err != nil {
		if onError != nil {
			return *onError, nil
		}

		return nil, err
	}

	return result, nil
}

func doConvert(to string, v any) (any, error) {
	switch to {
	case "int", "16":
		return convertToInt32(v)
	case "long", "18":
		return convertToInt64(v)
	case "double", "1":
		return convertToDouble(v)
	case "decimal", "19":
		return convertToDouble(v)
	case "bool", "8":
		return convertToBool(v)
	case "string", "2":
		return convertToString(v)
	case "date", "9":
		return convertToDate(v)
	default:
		return nil, dberrors.Errorf("$convert", "unsupported conversion target type %q", to)
	}
}

func convertToInt32(v any) (any, error) {
	i, err := convertToInt64(v)
	if err != nil {
		return nil, err
	}

	n := i.(int64)
	if n < math.MinInt32 || n > math.MaxInt32 {
		return int64(n), nil
	}

	return int32(n), nil
}

func convertToInt64(v any) (any, error) {
	switch x := v.(type) {
	case int32:
		return int64(x), nil
	case int64:
		return x, nil
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return nil, dberrors.Errorf("$convert", "Failed to parse number to int: value is out of range")
		}

		return int64(x), nil
	case bool:
		if x {
			return int64(1), nil
		}

		return int64(0), nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil || math.IsInf(f, 0) || math.IsNaN(f) {
			return nil, dberrors.Errorf("$convert", "Failed to parse number from string: %q", x)
		}

		return int64(f), nil
	default:
		return nil, dberrors.Errorf("$convert", "cannot convert %s to int/long", types.TypeName(v))
	}
}

func convertToDouble(v any) (any, error) {
	switch x := v.(type) {
	case int32:
		return float64(x), nil
	case int64:
		return float64(x), nil
	case float64:
		return x, nil
	case bool:
		if x {
			return float64(1), nil
		}

		return float64(0), nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil {
			return nil, dberrors.Errorf("$convert", "Failed to parse number from string: %q", x)
		}

		return f, nil
	default:
		return nil, dberrors.Errorf("$convert", "cannot convert %s to double", types.TypeName(v))
	}
}

// convertToBool converts every value to true except false and the
// numeric zeros, the same way $and/$or/$cond treat them; every string,
// the empty string included, converts to true, as in general truthiness.
func convertToBool(v any) (any, error) {
	switch x := v.(type) {
	case int32:
		return x != 0, nil
	case int64:
		return x != 0, nil
	case float64:
		return x != 0, nil
	case bool:
		return x, nil
	case string:
		return true, nil
	default:
		return true, nil
	}
}

func convertToString(v any) (any, error) {
	switch x := v.(type) {
	case string:
		return x, nil
	case int32:
		return strconv.FormatInt(int64(x), 10), nil
	case int64:
		return strconv.FormatInt(x, 10), nil
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64), nil
	case bool:
		return strconv.FormatBool(x), nil
	case types.DateTime:
		return x.Time().Format(mongoFormatToGoLayout(defaultDateFormat)), nil
	case types.ObjectID:
		return x.String(), nil
	default:
		return fmt.Sprintf("%v", x), nil
	}
}

func convertToDate(v any) (any, error) {
	switch x := v.(type) {
	case types.DateTime:
		return x, nil
	case string:
		t, err := time.Parse(mongoFormatToGoLayout(defaultDateFormat), x)
		if err != nil {
			return nil, dberrors.Errorf("$convert", "Error parsing date string '%s'", x)
		}

		return types.NewDateTime(t), nil
	case int64:
		return types.DateTime(x), nil
	case int32:
		return types.DateTime(int64(x)), nil
	default:
		return nil, dberrors.Errorf("$convert", "cannot convert %s to date", types.TypeName(v))
	}
}
