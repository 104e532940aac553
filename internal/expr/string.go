package expr

import (
	"strings"
	"unicode/utf8"

	"github.com/docbase/docbase/internal/dberrors"
	"github.com/docbase/docbase/internal/types"
)

func init() {
	simple("$concat", opConcat)
	unary("$toUpper", opToUpper)
	unary("$toLower", opToLower)
	rangeArity("$substrCP", 3, 3, opSubstrCP)
	unary("$strLenCP", opStrLenCP)
	unary("$strLenBytes", opStrLenBytes)
	binary("$split", opSplit)
	binary("$strcasecmp", opStrcasecmp)
	rangeArity("$indexOfCP", 2, 4, opIndexOfCP)

	registerNamed("$trim", []string{"input"}, []string{"chars"}, func(a map[string]any) (any, error) { return trimOp(a, true, true) })
	registerNamed("$ltrim", []string{"input"}, []string{"chars"}, func(a map[string]any) (any, error) { return trimOp(a, true, false) })
	registerNamed("$rtrim", []string{"input"}, []string{"chars"}, func(a map[string]any) (any, error) { return trimOp(a, false, true) })

	registerNamed("$replaceOne", []string{"input", "find", "replacement"}, nil, opReplaceOne)
	registerNamed("$replaceAll", []string{"input", "find", "replacement"}, nil, opReplaceAll)

	registerNamed("$regexFind", []string{"input", "regex"}, []string{"options"}, opRegexFind)
	registerNamed("$regexFindAll", []string{"input", "regex"}, []string{"options"}, opRegexFindAll)
	registerNamed("$regexMatch", []string{"input", "regex"}, []string{"options"}, opRegexMatch)
}

func opConcat(args []any) (any, error) {
	if anyNullish(args...) {
		return types.Null, nil
	}

	var sb strings.Builder

	for _, a := range args {
		s, ok := a.(string)
		if !ok {
			return nil, dberrors.Errorf("$concat", "$concat only supports strings, not %s", types.TypeName(a))
		}

		sb.WriteString(s)
	}

	return sb.String(), nil
}

func opToUpper(v any) (any, error) {
	if isNullish(v) {
		return "", nil
	}

	s, ok := v.(string)
	if !ok {
		return nil, dberrors.Errorf("$toUpper", "$toUpper requires a string argument")
	}

	return strings.ToUpper(s), nil
}

func opToLower(v any) (any, error) {
	if isNullish(v) {
		return "", nil
	}

	s, ok := v.(string)
	if !ok {
		return nil, dberrors.Errorf("$toLower", "$toLower requires a string argument")
	}

	return strings.ToLower(s), nil
}

// opSubstrCP indexes by code points (runes), not bytes; a start beyond
// the string's length returns "", and a negative length means "to end".
func opSubstrCP(args []any) (any, error) {
	s, ok := args[0].(string)
	if !ok {
		return nil, dberrors.Errorf("$substrCP", "$substrCP requires a string as the first argument")
	}

	start, ok := asInt(args[1])
	if !ok {
		return nil, dberrors.Errorf("$substrCP", "$substrCP requires a numeric start index")
	}

	length, ok := asInt(args[2])
	if !ok {
		return nil, dberrors.Errorf("$substrCP", "$substrCP requires a numeric length")
	}

	runes := []rune(s)
	if start < 0 || int(start) >= len(runes) {
		return "", nil
	}

	end := len(runes)
	if length >= 0 && int(start)+int(length) < end {
		end = int(start) + int(length)
	}

	return string(runes[start:end]), nil
}

func opStrLenCP(v any) (any, error) {
	s, ok := v.(string)
	if !ok {
		return nil, dberrors.Errorf("$strLenCP", "$strLenCP requires a string argument")
	}

	return int32(utf8.RuneCountInString(s)), nil
}

func opStrLenBytes(v any) (any, error) {
	s, ok := v.(string)
	if !ok {
		return nil, dberrors.Errorf("$strLenBytes", "$strLenBytes requires a string argument")
	}

	return int32(len(s)), nil
}

// opSplit of a Null input returns Null, matching $split's general
// null-propagation rather than erroring (Design Notes Open Question,
// resolved in favor of the more forgiving behavior).
func opSplit(a, b any) (any, error) {
	if anyNullish(a, b) {
		return types.Null, nil
	}

	s, ok := a.(string)
	if !ok {
		return nil, dberrors.Errorf("$split", "$split requires a string as the first argument")
	}

	delim, ok := b.(string)
	if !ok {
		return nil, dberrors.Errorf("$split", "$split requires a string delimiter")
	}

	parts := strings.Split(s, delim)

	out := types.MakeArray(len(parts))
	for _, p := range parts {
		_ = out.Append(p)
	}

	return out, nil
}

func opStrcasecmp(a, b any) (any, error) {
	sa, ok1 := a.(string)
	sb, ok2 := b.(string)

	if !ok1 || !ok2 {
		return nil, dberrors.Errorf("$strcasecmp", "$strcasecmp requires two string arguments")
	}

	switch strings.Compare(strings.ToUpper(sa), strings.ToUpper(sb)) {
	case -1:
		return int32(-1), nil
	case 1:
		return int32(1), nil
	default:
		return int32(0), nil
	}
}

// opIndexOfCP searches for substr within s, honoring optional [start,
// end) code-point bounds, and returns the code-point index or -1.
func opIndexOfCP(args []any) (any, error) {
	s, ok := args[0].(string)
	if !ok {
		return nil, dberrors.Errorf("$indexOfCP", "$indexOfCP requires a string as the first argument")
	}

	substr, ok := args[1].(string)
	if !ok {
		return nil, dberrors.Errorf("$indexOfCP", "$indexOfCP requires a string to search for")
	}

	runes := []rune(s)

	start := 0
	if len(args) > 2 {
		n, ok := asInt(args[2])
		if !ok {
			return nil, dberrors.Errorf("$indexOfCP", "$indexOfCP requires a numeric start index")
		}

		start = int(n)
	}

	end := len(runes)
	if len(args) > 3 {
		n, ok := asInt(args[3])
		if !ok {
			return nil, dberrors.Errorf("$indexOfCP", "$indexOfCP requires a numeric end index")
		}

		end = int(n)
	}

	if start < 0 {
		start = 0
	}

	if end > len(runes) {
		end = len(runes)
	}

	if start > end {
		return int32(-1), nil
	}

	idx := strings.Index(string(runes[start:end]), substr)
	if idx < 0 {
		return int32(-1), nil
	}

	return int32(start + utf8.RuneCountInString(string(runes[start:end])[:idx])), nil
}


func trimOp(args map[string]any, left, right bool) (any, error) {
	input := args["input"]
	if isNullish(input) {
		return types.Null, nil
	}

	s, ok := input.(string)
	if !ok {
		return nil, dberrors.Errorf("$trim", "$trim requires a string 'input'")
	}

	cutset := " \t\n\v\f\r"

	if chars, ok := args["chars"]; ok && !isNullish(chars) {
		cs, ok := chars.(string)
		if !ok {
			return nil, dberrors.Errorf("$trim", "$trim requires a string 'chars'")
		}

		cutset = cs
	}

	switch {
	case left && right:
		return strings.Trim(s, cutset), nil
	case left:
		return strings.TrimLeft(s, cutset), nil
	default:
		return strings.TrimRight(s, cutset), nil
	}
}

func opReplaceOne(args map[string]any) (any, error) {
	return replaceOp(args, 1)
}

func opReplaceAll(args map[string]any) (any, error) {
	return replaceOp(args, -1)
}

func replaceOp(args map[string]any, n int) (any, error) {
	if anyNullish(args["input"], args["find"], args["replacement"]) {
		return types.Null, nil
	}

	input, ok1 := args["input"].(string)
	find, ok2 := args["find"].(string)
	replacement, ok3 := args["replacement"].(string)

	if !ok1 || !ok2 || !ok3 {
		return nil, dberrors.Errorf("$replaceOne", "$replaceOne/$replaceAll require string 'input', 'find' and 'replacement'")
	}

	return strings.Replace(input, find, replacement, n), nil
}

func compileRegex(args map[string]any) (*types.Regex, error) {
	pattern, ok := args["regex"].(string)
	if !ok {
		return nil, dberrors.Errorf("$regexFind", "regex must be a string pattern")
	}

	options, _ := args["options"].(string)

	return &types.Regex{Pattern: pattern, Options: options}, nil
}

func opRegexFind(args map[string]any) (any, error) {
	input, ok := args["input"].(string)
	if !ok {
		if isNullish(args["input"]) {
			return types.Null, nil
		}

		return nil, dberrors.Errorf("$regexFind", "$regexFind requires a string 'input'")
	}

	rx, err := compileRegex(args)
	if err != nil {
		return nil, err
	}

	re, err := rx.Compile()
	if err != nil {
		return nil, dberrors.Errorf("$regexFind", "%s", err)
	}

	loc := re.FindStringSubmatchIndex(input)
	if loc == nil {
		return types.Null, nil
	}

	return regexMatchDoc(input, re, loc), nil
}

func opRegexFindAll(args map[string]any) (any, error) {
	input, ok := args["input"].(string)
	if !ok {
		if isNullish(args["input"]) {
			return types.Null, nil
		}

		return nil, dberrors.Errorf("$regexFindAll", "$regexFindAll requires a string 'input'")
	}

	rx, err := compileRegex(args)
	if err != nil {
		return nil, err
	}

	re, err := rx.Compile()
	if err != nil {
		return nil, dberrors.Errorf("$regexFindAll", "%s", err)
	}

	locs := re.FindAllStringSubmatchIndex(input, -1)

	out := types.MakeArray(len(locs))
	for _, loc := range locs {
		_ = out.Append(regexMatchDoc(input, re, loc))
	}

	return out, nil
}

func opRegexMatch(args map[string]any) (any, error) {
	input, ok := args["input"].(string)
	if !ok {
		if isNullish(args["input"]) {
			return false, nil
		}

		return nil, dberrors.Errorf("$regexMatch", "$regexMatch requires a string 'input'")
	}

	rx, err := compileRegex(args)
	if err != nil {
		return nil, err
	}

	re, err := rx.Compile()
	if err != nil {
		return nil, dberrors.Errorf("$regexMatch", "%s", err)
	}

	return re.MatchString(input), nil
}

// regexMatchDoc builds the {match, idx, captures} result document from a
// FindStringSubmatchIndex-style location slice.
func regexMatchDoc(input string, re interface{ NumSubexp() int }, loc []int) *types.Document {
	match := input[loc[0]:loc[1]]
	idx := int32(utf8.RuneCountInString(input[:loc[0]]))

	captures := types.MakeArray(re.NumSubexp())

	for i := 1; i <= re.NumSubexp(); i++ {
		start, end := loc[2*i], loc[2*i+1]

		if start < 0 {
			_ = captures.Append(types.Null)
			continue
		}

		_ = captures.Append(input[start:end])
	}

	doc := types.MakeDocument(3)
	doc.Set("match", match)
	doc.Set("idx", idx)
	doc.Set("captures", captures)

	return doc
}
