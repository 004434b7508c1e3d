package repository

import "errors"

var (
	// ErrInvalidConfig is returned for a malformed repository_config.
	ErrInvalidConfig = errors.New("invalid repository config")
	// ErrUnknownSignal is returned for a signal id or name missing from the catalog.
	ErrUnknownSignal = errors.New("unknown signal")
	// ErrCorrupt is returned when index and data files disagree.
	ErrCorrupt = errors.New("corrupt repository")
	// ErrClosed is returned by reads after Close.
	ErrClosed = errors.New("repository closed")
	// ErrVersion is returned for a DynamicRec version out of range.
	ErrVersion = errors.New("version out of range")
)
