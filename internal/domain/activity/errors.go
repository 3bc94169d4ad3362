package activity

import "errors"

var (
	// ErrInvalidID indicates a descriptor without an id.
	ErrInvalidID = errors.New("activity id is required")
	// ErrNoPageData indicates a page without an activity data island.
	ErrNoPageData = errors.New("page carries no activity data")
)
