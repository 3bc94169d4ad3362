package mcp

import (
	"time"

	"github.com/labspace/labnav/internal/domain/activity"
	"github.com/labspace/labnav/internal/domain/feedback"
	"github.com/labspace/labnav/internal/domain/journal"
	"github.com/labspace/labnav/internal/domain/navigation"
	"github.com/labspace/labnav/internal/domain/submission"
)

type ActivityParams struct {
	ActivityID string `json:"activity_id" jsonschema:"the activity id"`
}

type PageLoadedParams struct {
	URL  string `json:"url" jsonschema:"URL of the page that finished loading"`
	HTML string `json:"html,omitempty" jsonschema:"optional page markup carrying the activity data island"`
}

type SubmitCodeParams struct {
	ActivityID string `json:"activity_id" jsonschema:"the activity id"`
	Code       string `json:"code" jsonschema:"source code to submit"`
	Language   string `json:"language" jsonschema:"programming language, for example python"`
}

type DismissNotificationParams struct {
	ID string `json:"id" jsonschema:"notification id"`
}

type RecentEventsParams struct {
	ActivityID string `json:"activity_id,omitempty" jsonschema:"only events for this activity"`
	Type       string `json:"type,omitempty" jsonschema:"only events of this type"`
	Limit      int    `json:"limit,omitempty" jsonschema:"maximum number of events"`
	Offset     int    `json:"offset,omitempty" jsonschema:"offset for pagination"`
}

type EmptyParams struct{}

type NavigateResponse struct {
	ActivityID string           `json:"activity_id"`
	URL        string           `json:"url"`
	State      navigation.State `json:"state"`
}

type PageLoadedResponse struct {
	Arrival    navigation.Arrival `json:"arrival"`
	Activities int                `json:"activities"`
}

type DismissRecoveryResponse struct {
	Cleared bool `json:"cleared"`
}

type ActivityListResponse struct {
	Activities []activity.Descriptor `json:"activities"`
}

type SubmissionResponse struct {
	Outcome submission.Outcome `json:"outcome"`
}

type BackupResponse struct {
	Found    bool               `json:"found"`
	FileName string             `json:"file_name,omitempty"`
	Backup   *submission.Backup `json:"backup,omitempty"`
}

type NotificationListResponse struct {
	Notifications []feedback.Record `json:"notifications"`
}

type DismissNotificationResponse struct {
	Dismissed bool `json:"dismissed"`
}

type EventResponse struct {
	Timestamp  time.Time         `json:"timestamp"`
	Type       journal.EventType `json:"type"`
	ActivityID string            `json:"activity_id,omitempty"`
	URL        string            `json:"url,omitempty"`
	Summary    string            `json:"summary"`
	Details    string            `json:"details,omitempty"`
	Generation uint64            `json:"generation,omitempty"`
}

type RecentEventsResponse struct {
	Events []EventResponse `json:"events"`
}
