package types

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// Regex represents a query/aggregation regular expression value: a
// pattern plus option flags. Only 'i', 'm', 's', and 'x' are legal;
// 'g' is rejected by the matcher at compile time.
type Regex struct {
	Pattern string
	Options string
}

// String returns the conventional "/pattern/options" representation.
func (re Regex) String() string {
	return fmt.Sprintf("/%s/%s", re.Pattern, re.Options)
}

// Compile translates the Mongo-style pattern/options pair into a Go
// [regexp.Regexp], translating the option flags to the (?flags) prefix
// Go's RE2 engine understands. The 'x' (extended, whitespace-insensitive)
// flag has no RE2 equivalent and is emulated by stripping unescaped
// whitespace and '#'-to-end-of-line comments from the pattern before compiling.
func (re Regex) Compile() (*regexp.Regexp, error) {
	pattern := re.Pattern

	var flags []byte

	for _, o := range re.Options {
		switch o {
		case 'i', 'm', 's':
			flags = append(flags, byte(o))
		case 'x':
			pattern = stripExtendedWhitespace(pattern)
		default:
			return nil, fmt.Errorf("invalid flag in regex options: %c", o)
		}
	}

	if len(flags) > 0 {
		sort.Slice(flags, func(i, j int) bool { return flags[i] < flags[j] })
		pattern = "(?" + string(flags) + ")" + pattern
	}

	return regexp.Compile(pattern)
}

// stripExtendedWhitespace removes unescaped whitespace and '#' comments,
// as PCRE's /x modifier does.
func stripExtendedWhitespace(pattern string) string {
	var b strings.Builder

	escaped := false
	inClass := false

	for i := 0; i < len(pattern); i++ {
		c := pattern[i]

		switch {
		case escaped:
			b.WriteByte(c)
			escaped = false
		case c == '\\':
			b.WriteByte(c)
			escaped = true
		case c == '[':
			inClass = true
			b.WriteByte(c)
		case c == ']':
			inClass = false
			b.WriteByte(c)
		case !inClass && (c == ' ' || c == '\t' || c == '\n' || c == '\r'):
			// skip
		case !inClass && c == '#':
			for i < len(pattern) && pattern[i] != '\n' {
				i++
			}
		default:
			b.WriteByte(c)
		}
	}

	return b.String()
}
