package repository

import "errors"

var (
	// ErrValueTooLarge is returned when a value exceeds the tier's size quota
	ErrValueTooLarge = errors.New("value exceeds storage quota")

	// ErrUnavailable is returned when a storage backend cannot be reached
	ErrUnavailable = errors.New("storage backend unavailable")
)
