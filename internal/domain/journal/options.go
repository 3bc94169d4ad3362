package journal

// ListOptions provides filtering options for listing events.
type ListOptions struct {
	ActivityID string
	Type       *EventType
	Limit      int
	Offset     int
}
