package journal

import "errors"

// ErrInvalidInput indicates a nil or empty event.
var ErrInvalidInput = errors.New("invalid journal input")
