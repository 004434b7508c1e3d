package convert

import (
	"errors"
	"fmt"
)

var (
	// ErrConfig is returned for an invalid conversion config, catalog or dictionary.
	ErrConfig = errors.New("invalid configuration")

	// ErrFormat is returned when a raw input line cannot be decoded.
	ErrFormat = errors.New("bad format")

	// ErrUnrecognizedSignal is returned in safe mode for a code with no signal mapping.
	ErrUnrecognizedSignal = errors.New("unrecognized signal name")

	// ErrOutOfOrder is returned in safe mode when pids decrease within a file.
	ErrOutOfOrder = errors.New("input out of order")

	// ErrMissingDictionaryValue is returned in safe mode when a string value
	// is missing from its dictionary too often.
	ErrMissingDictionaryValue = errors.New("missing dictionary value")

	// ErrThreshold is returned when a file's load statistics are implausible.
	ErrThreshold = errors.New("load threshold exceeded")

	// ErrForcedSignal is returned in safe mode when too many patients lack a
	// forced signal.
	ErrForcedSignal = errors.New("forced signal missing")

	// ErrLocked is returned when another run holds the output directory.
	ErrLocked = errors.New("output directory locked")
)

// IOError reports a failed file operation.
type IOError struct {
	Op   string
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

// DecodeError reports a field of a raw input line that could not be decoded.
type DecodeError struct {
	Line  int64
	Field string
	Err   error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("line %d: field %s: %v", e.Line, e.Field, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

func ioErr(op, path string, err error) error {
	if err == nil {
		return nil
	}
	var ioe *IOError
	if errors.As(err, &ioe) {
		return err
	}
	return &IOError{Op: op, Path: path, Err: err}
}
