package feedback

import "time"

// Severity ranks a notification and selects its auto-dismiss timeout.
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeveritySuccess Severity = "success"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// Valid reports whether s is a known severity.
func (s Severity) Valid() bool {
	switch s {
	case SeverityInfo, SeveritySuccess, SeverityWarning, SeverityError:
		return true
	}
	return false
}

// Record is one user-visible notification. Records live in memory only.
type Record struct {
	ID        string    `json:"id"`
	Message   string    `json:"message"`
	Details   string    `json:"details,omitempty"`
	Severity  Severity  `json:"severity"`
	CreatedAt time.Time `json:"created_at"`
}

// Action identifies a dialog choice.
type Action string

// ActionNone is returned when no dialog collaborator is available or the user
// closed the dialog without choosing.
const ActionNone Action = ""

// DialogAction is one button offered by a confirm dialog.
type DialogAction struct {
	ID    Action `json:"id"`
	Label string `json:"label"`
}
