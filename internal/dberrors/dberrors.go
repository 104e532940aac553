// Package dberrors implements the two error taxonomies described by the
// engine's error handling design: structural CommandErrors, carrying the
// integer codes external callers switch on, and EvaluationErrors, raised
// mid-pipeline by the expression/matcher layers and identified by a
// stable message substring naming the offending operator.
package dberrors

import "fmt"

// Known command error codes, matching the external wire protocol's taxonomy.
const (
	CodeBadValue            = 2
	CodeFailedToParse       = 9
	CodeNamespaceNotFound   = 26
	CodeNamespaceExists     = 48
	CodeDuplicateKey        = 11000
	CodeIndexOptionsInvalid = 67
)

// CommandError is a structural error: an invalid pipeline, a namespace
// conflict, a bad index spec. It carries a code from the taxonomy above
// and a message whose substrings are part of the external contract.
type CommandError struct {
	Code    int
	Message string
}

// Error implements error.
func (e *CommandError) Error() string {
	return e.Message
}

// NewCommandError returns a CommandError with the given code and message.
func NewCommandError(code int, format string, args ...any) *CommandError {
	return &CommandError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// EvaluationError is raised by the expression/matcher layers: numeric
// domain violations, type mismatches, regex compile failures, and the
// like. Op names the offending operator so that callers can
// pattern-match the stable message substring (e.g. "$abs only supports
// numeric types").
type EvaluationError struct {
	Op      string
	Message string
}

// Error implements error.
func (e *EvaluationError) Error() string {
	return e.Message
}

// NewEvaluationError returns an EvaluationError for operator op whose
// message is exactly msg (the caller is responsible for including op's
// name in msg when the external contract names a specific substring).
func NewEvaluationError(op, msg string) *EvaluationError {
	return &EvaluationError{Op: op, Message: msg}
}

// Errorf is a convenience constructor: Errorf("$abs", "%s only supports numeric types", "$abs").
func Errorf(op, format string, args ...any) *EvaluationError {
	return &EvaluationError{Op: op, Message: fmt.Sprintf(format, args...)}
}
