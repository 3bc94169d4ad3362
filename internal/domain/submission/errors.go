package submission

import "errors"

var (
	// ErrInvalidActivityID indicates a submission without an activity id.
	ErrInvalidActivityID = errors.New("activity id is required")
	// ErrSubmissionInFlight indicates another submission for the same activity
	// has not finished.
	ErrSubmissionInFlight = errors.New("submission already in progress")
	// ErrNoBackup indicates there is no retained code to retry or restore.
	ErrNoBackup = errors.New("no code backup for activity")
)
