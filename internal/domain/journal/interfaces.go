package journal

import "context"

// Repository provides persistence operations for journal events.
type Repository interface {
	Log(ctx context.Context, event *Event) error
	List(ctx context.Context, opts ListOptions) ([]Event, error)
}
