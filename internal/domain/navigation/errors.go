package navigation

import "errors"

// ErrInvalidActivityID indicates a navigation request without an activity id.
var ErrInvalidActivityID = errors.New("activity id is required")
