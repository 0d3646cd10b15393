package harness

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingBinary matches any *MissingBinaryError.
	ErrMissingBinary = errors.New("benchmark binary not found")
	// ErrInsufficientData matches any *InsufficientDataError.
	ErrInsufficientData = errors.New("insufficient measurement data")
)

// MissingBinaryError reports a declared executable that does not exist.
// It stops the remaining targets of its family.
type MissingBinaryError struct {
	Family string
	Target string
	Path   string
}

func (e *MissingBinaryError) Error() string {
	return fmt.Sprintf("%s: target %s: binary not found at %s",
		e.Family, e.Target, e.Path)
}

func (e *MissingBinaryError) Is(target error) bool {
	return target == ErrMissingBinary
}

// InsufficientDataError reports output with fewer numeric tokens than
// the protocol requires. Cause is the process exit error, if any.
type InsufficientDataError struct {
	Target string
	Got    int
	Want   int
	Cause  error
}

func (e *InsufficientDataError) Error() string {
	msg := fmt.Sprintf(
		"%s: insufficient measurement data: got %d values, want %d (protocol v%d)",
		e.Target, e.Got, e.Want, ProtocolVersion)
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}

	return msg
}

func (e *InsufficientDataError) Is(target error) bool {
	return target == ErrInsufficientData
}

func (e *InsufficientDataError) Unwrap() error {
	return e.Cause
}

// ExecError reports a binary that could not be started or was killed
// before it produced output.
type ExecError struct {
	Target string
	Err    error
}

func (e *ExecError) Error() string {
	return fmt.Sprintf("%s: exec: %v", e.Target, e.Err)
}

func (e *ExecError) Unwrap() error {
	return e.Err
}
