package stat

import (
	"errors"
	"fmt"
)

// Error represents a misuse of the container or simulation API.
//
// Errors include:
//   - Invalid operation: simulation calls made in the wrong state
//   - Unsupported operation: setting the base value of a calculated stat
//   - Duplicate stat: adding a stat key that is already present
//   - Stat owned: adding a StatValue another container already owns
//   - Invariant violation: runner state is corrupt (raised as a panic)
type Error struct {
	// Code identifies the error category.
	Code ErrorCode

	// Op names the operation that failed.
	Op string

	// Message is a human-readable description.
	Message string
}

// ErrorCode categorizes stat errors.
type ErrorCode string

const (
	// CodeInvalidOperation indicates a call made in the wrong runner state.
	CodeInvalidOperation ErrorCode = "INVALID_OPERATION"

	// CodeUnsupportedOperation indicates a call the stat kind does not support.
	CodeUnsupportedOperation ErrorCode = "UNSUPPORTED_OPERATION"

	// CodeInvariantViolation indicates internal state is inconsistent.
	CodeInvariantViolation ErrorCode = "INVARIANT_VIOLATION"

	// CodeDuplicateStat indicates the stat key is already registered.
	CodeDuplicateStat ErrorCode = "DUPLICATE_STAT"

	// CodeStatOwned indicates the StatValue belongs to another container.
	CodeStatOwned ErrorCode = "STAT_OWNED"
)

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Op != "" {
		return fmt.Sprintf("%s: %s: %s", e.Code, e.Op, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func newError(code ErrorCode, op, format string, args ...any) *Error {
	return &Error{Code: code, Op: op, Message: fmt.Sprintf(format, args...)}
}

func hasCode(err error, code ErrorCode) bool {
	var se *Error
	if errors.As(err, &se) {
		return se.Code == code
	}
	return false
}

// IsInvalidOperation returns true if err is an invalid-operation error.
// Uses errors.As to handle wrapped errors.
func IsInvalidOperation(err error) bool { return hasCode(err, CodeInvalidOperation) }

// IsUnsupportedOperation returns true if err is an unsupported-operation error.
func IsUnsupportedOperation(err error) bool { return hasCode(err, CodeUnsupportedOperation) }

// IsInvariantViolation returns true if err is an invariant violation.
// Invariant violations are raised with panic; this helper is for recover sites.
func IsInvariantViolation(err error) bool { return hasCode(err, CodeInvariantViolation) }

// IsDuplicateStat returns true if err reports a duplicate stat key.
func IsDuplicateStat(err error) bool { return hasCode(err, CodeDuplicateStat) }
