package blobstore

import "errors"

func isNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

// IsNotFound reports whether err means a blob does not exist.
func IsNotFound(err error) bool { return isNotFound(err) }
