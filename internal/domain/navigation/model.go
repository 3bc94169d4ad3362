package navigation

import "time"

// Persisted keys. They are owned by the client and never shared with the server.
const (
	KeyLastActivityID  = "last_activity_id"
	KeyActivityHistory = "activity_history"
	KeyLastPageAttempt = "last_page_attempt"
)

// DefaultHistoryLimit bounds the recently visited activity list.
const DefaultHistoryLimit = 10

// Phase is the controller's position in the navigation state machine.
type Phase string

const (
	PhaseIdle       Phase = "idle"
	PhaseResolving  Phase = "resolving"
	PhasePersisting Phase = "persisting"
	PhaseNavigating Phase = "navigating"
	PhaseConfirmed  Phase = "confirmed"
	PhaseStalled    Phase = "stalled"
	PhaseRecovering Phase = "recovering"
	PhaseEscalated  Phase = "escalated"
)

// AttemptStatus records how far a navigation attempt got before the page
// that started it went away.
type AttemptStatus string

const (
	StatusPending   AttemptStatus = "pending"
	StatusStalled   AttemptStatus = "stalled"
	StatusEscalated AttemptStatus = "escalated"
)

// Attempt is the persisted record of the last navigation attempt.
type Attempt struct {
	ActivityID string        `json:"activity_id"`
	URL        string        `json:"url"`
	Timestamp  time.Time     `json:"timestamp"`
	Status     AttemptStatus `json:"status"`
	Prompted   bool          `json:"prompted,omitempty"`
}

// Troubled reports whether the attempt stalled or escalated.
func (a Attempt) Troubled() bool {
	return a.Status == StatusStalled || a.Status == StatusEscalated
}

// State is the navigation state visible to callers.
type State struct {
	LastActivityID   string        `json:"last_activity_id,omitempty"`
	LastAttemptURL   string        `json:"last_attempt_url,omitempty"`
	AttemptTimestamp time.Time     `json:"attempt_timestamp,omitempty"`
	Status           AttemptStatus `json:"status,omitempty"`
	Prompted         bool          `json:"prompted,omitempty"`
	History          []string      `json:"history"`
	Phase            Phase         `json:"phase"`
}

// ArrivalOutcome is the result of the page-load recovery check.
type ArrivalOutcome string

const (
	// ArrivalNone means there was no outstanding attempt.
	ArrivalNone ArrivalOutcome = "none"
	// ArrivalConfirmed means the page is the activity last navigated to.
	ArrivalConfirmed ArrivalOutcome = "confirmed"
	// ArrivalRecoveryOffered means a list page was loaded after a stalled
	// attempt and the user was offered to resume it.
	ArrivalRecoveryOffered ArrivalOutcome = "recovery_offered"
	// ArrivalPending means an attempt is outstanding but this page neither
	// confirms it nor qualifies for a recovery prompt.
	ArrivalPending ArrivalOutcome = "pending"
)

// Arrival describes what CheckArrival decided.
type Arrival struct {
	Outcome    ArrivalOutcome `json:"outcome"`
	ActivityID string         `json:"activity_id,omitempty"`
}
