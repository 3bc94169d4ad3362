package journal

import "time"

// EventType represents the type of a journaled client event
type EventType string

const (
	TypeNavigationStarted   EventType = "navigation_started"
	TypeFallbackStep        EventType = "fallback_step"
	TypeNavigationEscalated EventType = "navigation_escalated"
	TypeArrivalConfirmed    EventType = "arrival_confirmed"
	TypeRecoveryOffered     EventType = "recovery_offered"
	TypeRecoveryDismissed   EventType = "recovery_dismissed"
	TypeSubmissionAttempt   EventType = "submission_attempt"
	TypeSubmissionSucceeded EventType = "submission_succeeded"
	TypeSubmissionFailed    EventType = "submission_failed"
)

// Event represents an entry in the client event journal
type Event struct {
	ID         int64     `json:"id"`
	Type       EventType `json:"type"`
	ActivityID string    `json:"activity_id,omitempty"`
	URL        string    `json:"url,omitempty"`
	Summary    string    `json:"summary"`
	Details    string    `json:"details,omitempty"` // JSON string
	Generation uint64    `json:"generation,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}
