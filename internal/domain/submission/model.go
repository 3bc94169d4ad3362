package submission

import (
	"fmt"
	"strings"
	"time"
)

// Kind classifies the response to one submission request.
type Kind string

const (
	KindSuccess           Kind = "success"
	KindServerRejected    Kind = "server_rejected"
	KindMalformedResponse Kind = "malformed_response"
	KindNetworkError      Kind = "network_error"
)

// Request is the body posted to the submission endpoint.
type Request struct {
	ActivityID string `json:"activity_id"`
	Code       string `json:"code"`
	Language   string `json:"language"`
}

// Response is a completed HTTP exchange with the submission endpoint.
type Response struct {
	StatusCode  int
	ContentType string
	Body        []byte
}

// Result is the classification of a single request.
type Result struct {
	Kind    Kind
	Message string
	// ServerError is the PHP error line found in a malformed response, if any.
	ServerError string
	// Diagnostic is the raw body or transport error, truncated.
	Diagnostic string
}

// RecoveryAction is a follow-up offered after a failed submission.
type RecoveryAction string

const (
	ActionDownloadCode RecoveryAction = "download_code"
	ActionShowDetails  RecoveryAction = "show_details"
	ActionRetry        RecoveryAction = "retry"
)

// Outcome is what Submit and Retry report to the caller.
type Outcome struct {
	Kind           Kind             `json:"kind"`
	ActivityID     string           `json:"activity_id"`
	Message        string           `json:"message,omitempty"`
	ServerError    string           `json:"server_error,omitempty"`
	Diagnostic     string           `json:"diagnostic,omitempty"`
	Attempts       int              `json:"attempts"`
	BackupRetained bool             `json:"backup_retained"`
	Actions        []RecoveryAction `json:"actions,omitempty"`
}

// Succeeded reports whether the submission was accepted.
func (o Outcome) Succeeded() bool { return o.Kind == KindSuccess }

// Origin records what wrote a backup.
type Origin string

const (
	OriginPreSubmit Origin = "pre_submit"
	OriginAutoSave  Origin = "auto_save"
)

// Backup is the locally retained copy of an activity's code. Each activity
// has a single slot.
type Backup struct {
	ActivityID string    `json:"activity_id"`
	Code       string    `json:"code"`
	Language   string    `json:"language"`
	SavedAt    time.Time `json:"saved_at"`
	Generation uint64    `json:"generation"`
	Origin     Origin    `json:"origin"`
}

// BackupKey is the store key of an activity's backup.
func BackupKey(activityID string) string { return "code_backup_" + activityID }

// BackupTimeKey is the store key of an activity's backup timestamp.
func BackupTimeKey(activityID string) string { return "code_backup_time_" + activityID }

// FailedKey is the store key of the snapshot whose submission last failed.
func FailedKey(activityID string) string { return "failed_submission_" + activityID }

var extensions = map[string]string{
	"python":     "py",
	"python3":    "py",
	"java":       "java",
	"c":          "c",
	"cpp":        "cpp",
	"c++":        "cpp",
	"javascript": "js",
	"js":         "js",
	"php":        "php",
	"sql":        "sql",
	"html":       "html",
}

// FileName is the download name offered for the backup.
func (b Backup) FileName() string {
	ext, ok := extensions[strings.ToLower(b.Language)]
	if !ok {
		ext = "txt"
	}
	return fmt.Sprintf("activity_%s_backup.%s", b.ActivityID, ext)
}
