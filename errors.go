package inframed

import (
	"github.com/inframed/inframed/blobstore"
	"github.com/inframed/inframed/internal/convert"
	"github.com/inframed/inframed/repository"
)

// Conversion errors. Every error Convert returns wraps one of these or an
// *IOError.
var (
	ErrConfig                 = convert.ErrConfig
	ErrFormat                 = convert.ErrFormat
	ErrUnrecognizedSignal     = convert.ErrUnrecognizedSignal
	ErrOutOfOrder             = convert.ErrOutOfOrder
	ErrMissingDictionaryValue = convert.ErrMissingDictionaryValue
	ErrThreshold              = convert.ErrThreshold
	ErrForcedSignal           = convert.ErrForcedSignal
	ErrLocked                 = convert.ErrLocked
)

// Repository errors.
var (
	ErrInvalidRepository = repository.ErrInvalidConfig
	ErrUnknownSignal     = repository.ErrUnknownSignal
	ErrCorrupt           = repository.ErrCorrupt
	ErrClosed            = repository.ErrClosed
	ErrNotFound          = blobstore.ErrNotFound
)

// IOError reports a failed file operation during conversion.
type IOError = convert.IOError

// DecodeError reports an input field that could not be decoded.
type DecodeError = convert.DecodeError
