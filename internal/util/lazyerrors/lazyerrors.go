// Package lazyerrors provides a simple error wrapper that captures the caller's
// file, line, and function name lazily (only when the error is formatted),
// so that error chains accumulate a readable stack trace without the cost of
// a full stack capture at every wrap point.
package lazyerrors

import (
	"errors"
	"fmt"
	"path/filepath"
	"runtime"
	"strings"
)

// lazyerror wraps another error with the program counter of its creation site.
type lazyerror struct {
	err error
	pc  uintptr
}

// New returns a new error with the given message, annotated with the caller's location.
func New(msg string) error {
	return newLazyError(errors.New(msg), 2)
}

// Errorf is similar to [fmt.Errorf], but the resulting error is annotated with the caller's location.
func Errorf(format string, args ...any) error {
	return newLazyError(fmt.Errorf(format, args...), 2)
}

// Error wraps err, annotating it with the caller's location.
//
// It is a no-op (except for the annotation) and is typically used at error-propagation points:
//
//	if err != nil {
//	    return nil, lazyerrors.Error(err)
//	}
func Error(err error) error {
	if err == nil {
		return nil
	}

	return newLazyError(err, 2)
}

func newLazyError(err error, skip int) error {
	var pcs [1]uintptr
	runtime.Callers(skip+1, pcs[:])

	return &lazyerror{
		err: err,
		pc:  pcs[0],
	}
}

func (l *lazyerror) frame() (file string, line int, function string) {
	frames := runtime.CallersFrames([]uintptr{l.pc})
	f, _ := frames.Next()

	function = f.Function
	if idx := strings.LastIndex(function, "/"); idx >= 0 {
		function = function[idx+1:]
	}

	return filepath.Base(f.File), f.Line, function
}

// Error implements the error interface.
func (l *lazyerror) Error() string {
	file, line, function := l.frame()
	return fmt.Sprintf("[%s:%d %s] %s", file, line, function, l.err.Error())
}

// GoString implements fmt.GoStringer, used by the "%#v" verb.
func (l *lazyerror) GoString() string {
	return "lazyerror(" + l.Error() + ")"
}

// Unwrap returns the wrapped error, for use with [errors.Is] and [errors.As].
func (l *lazyerror) Unwrap() error {
	return l.err
}

// check interfaces
var (
	_ error = (*lazyerror)(nil)
)
