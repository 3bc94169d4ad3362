package mcp

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/labspace/labnav/internal/domain/activity"
	"github.com/labspace/labnav/internal/domain/feedback"
	"github.com/labspace/labnav/internal/domain/journal"
	"github.com/labspace/labnav/internal/domain/navigation"
	"github.com/labspace/labnav/internal/domain/submission"
	"github.com/stretchr/testify/require"
)

type navigationStub struct {
	navigateFn  func(context.Context, string) error
	nowFn       func(context.Context, string) error
	emergencyFn func(context.Context, string) error
	dismissFn   func(context.Context) bool
	stateFn     func(context.Context) navigation.State
}

func (n navigationStub) NavigateTo(ctx context.Context, id string) error {
	return n.navigateFn(ctx, id)
}
func (n navigationStub) NavigateNow(ctx context.Context, id string) error {
	return n.nowFn(ctx, id)
}
func (n navigationStub) OpenEmergencyView(ctx context.Context, id string) error {
	return n.emergencyFn(ctx, id)
}
func (n navigationStub) DismissRecovery(ctx context.Context) bool { return n.dismissFn(ctx) }
func (n navigationStub) State(ctx context.Context) navigation.State {
	if n.stateFn == nil {
		return navigation.State{Phase: navigation.PhaseIdle}
	}
	return n.stateFn(ctx)
}
func (n navigationStub) ResolveURL(id string) string { return "http://lab/view?id=" + id }

type pageStub struct {
	loadFn func(context.Context, string, []byte) navigation.Arrival
}

func (p pageStub) Load(ctx context.Context, pageURL string, body []byte) navigation.Arrival {
	return p.loadFn(ctx, pageURL, body)
}

type submissionStub struct {
	submitFn func(context.Context, string, string, string) (submission.Outcome, error)
	retryFn  func(context.Context, string) (submission.Outcome, error)
	backupFn func(context.Context, string) (submission.Backup, bool)
}

func (s submissionStub) Submit(ctx context.Context, id, code, language string) (submission.Outcome, error) {
	return s.submitFn(ctx, id, code, language)
}
func (s submissionStub) Retry(ctx context.Context, id string) (submission.Outcome, error) {
	return s.retryFn(ctx, id)
}
func (s submissionStub) Backup(ctx context.Context, id string) (submission.Backup, bool) {
	return s.backupFn(ctx, id)
}

type feedbackStub struct {
	records   []feedback.Record
	dismissed []string
}

func (f *feedbackStub) Active() []feedback.Record { return f.records }
func (f *feedbackStub) Dismiss(id string) bool {
	f.dismissed = append(f.dismissed, id)
	return id == "n1"
}

type journalStub struct {
	recentFn func(context.Context, journal.ListOptions) ([]journal.Event, error)
}

func (j journalStub) Recent(ctx context.Context, opts journal.ListOptions) ([]journal.Event, error) {
	return j.recentFn(ctx, opts)
}

func TestHandler_NavigationCommands(t *testing.T) {
	ctx := context.Background()
	var calls []string
	registry := activity.NewRegistry()

	handler := NewHandler(Services{
		Navigation: navigationStub{
			navigateFn: func(_ context.Context, id string) error {
				calls = append(calls, "navigate:"+id)
				return nil
			},
			nowFn: func(_ context.Context, id string) error {
				calls = append(calls, "now:"+id)
				return nil
			},
			emergencyFn: func(_ context.Context, id string) error {
				calls = append(calls, "emergency:"+id)
				return nil
			},
			dismissFn: func(context.Context) bool { return true },
			stateFn: func(context.Context) navigation.State {
				return navigation.State{LastActivityID: "7", LastAttemptURL: "http://lab/student?id=7", Phase: navigation.PhaseNavigating}
			},
		},
		Pages: pageStub{loadFn: func(_ context.Context, pageURL string, body []byte) navigation.Arrival {
			n, err := activity.ParsePageData(body)
			if err == nil {
				registry.RegisterAll(n)
			}
			return navigation.Arrival{Outcome: navigation.ArrivalConfirmed, ActivityID: "7"}
		}},
		Registry: registry,
	})

	result, err := handler.Handle(ctx, "navigate_to", mustJSON(t, ActivityParams{ActivityID: "7"}))
	require.NoError(t, err)
	resp := result.(NavigateResponse)
	require.Equal(t, "7", resp.ActivityID)
	require.Equal(t, "http://lab/student?id=7", resp.URL)
	require.Equal(t, navigation.PhaseNavigating, resp.State.Phase)

	_, err = handler.Handle(ctx, "navigate_now", mustJSON(t, ActivityParams{ActivityID: "8"}))
	require.NoError(t, err)
	_, err = handler.Handle(ctx, "open_emergency_view", mustJSON(t, ActivityParams{ActivityID: "9"}))
	require.NoError(t, err)
	require.Equal(t, []string{"navigate:7", "now:8", "emergency:9"}, calls)

	result, err = handler.Handle(ctx, "page_loaded", mustJSON(t, PageLoadedParams{
		URL:  "http://lab/activities.php",
		HTML: `<script type="application/json" id="labspace-activities">[{"id":7,"title":"Loops"},{"id":8,"title":"Lists"}]</script>`,
	}))
	require.NoError(t, err)
	loaded := result.(PageLoadedResponse)
	require.Equal(t, navigation.ArrivalConfirmed, loaded.Arrival.Outcome)
	require.Equal(t, 2, loaded.Activities)

	result, err = handler.Handle(ctx, "list_activities", nil)
	require.NoError(t, err)
	require.Len(t, result.(ActivityListResponse).Activities, 2)

	result, err = handler.Handle(ctx, "dismiss_recovery", nil)
	require.NoError(t, err)
	require.True(t, result.(DismissRecoveryResponse).Cleared)

	result, err = handler.Handle(ctx, "navigation_state", nil)
	require.NoError(t, err)
	require.Equal(t, "7", result.(navigation.State).LastActivityID)
}

func TestHandler_NavigateFallsBackToResolvedURL(t *testing.T) {
	handler := NewHandler(Services{Navigation: navigationStub{
		navigateFn: func(context.Context, string) error { return nil },
	}})

	result, err := handler.Handle(context.Background(), "navigate_to", mustJSON(t, ActivityParams{ActivityID: "3"}))
	require.NoError(t, err)
	require.Equal(t, "http://lab/view?id=3", result.(NavigateResponse).URL)
}

func TestHandler_SubmissionCommands(t *testing.T) {
	ctx := context.Background()
	saved := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	handler := NewHandler(Services{Submission: submissionStub{
		submitFn: func(_ context.Context, id, code, language string) (submission.Outcome, error) {
			require.Equal(t, "print(1)", code)
			require.Equal(t, "python", language)
			return submission.Outcome{Kind: submission.KindSuccess, ActivityID: id, Attempts: 1}, nil
		},
		retryFn: func(_ context.Context, id string) (submission.Outcome, error) {
			return submission.Outcome{
				Kind:           submission.KindNetworkError,
				ActivityID:     id,
				Attempts:       3,
				BackupRetained: true,
			}, nil
		},
		backupFn: func(_ context.Context, id string) (submission.Backup, bool) {
			if id != "5" {
				return submission.Backup{}, false
			}
			return submission.Backup{ActivityID: id, Code: "x = 1", Language: "python", SavedAt: saved}, true
		},
	}})

	result, err := handler.Handle(ctx, "submit_code", mustJSON(t, SubmitCodeParams{ActivityID: "5", Code: "print(1)", Language: "python"}))
	require.NoError(t, err)
	require.True(t, result.(SubmissionResponse).Outcome.Succeeded())

	result, err = handler.Handle(ctx, "retry_submission", mustJSON(t, ActivityParams{ActivityID: "5"}))
	require.NoError(t, err)
	require.True(t, result.(SubmissionResponse).Outcome.BackupRetained)

	result, err = handler.Handle(ctx, "get_backup", mustJSON(t, ActivityParams{ActivityID: "5"}))
	require.NoError(t, err)
	backup := result.(BackupResponse)
	require.True(t, backup.Found)
	require.Equal(t, "x = 1", backup.Backup.Code)
	require.NotEmpty(t, backup.FileName)

	result, err = handler.Handle(ctx, "get_backup", mustJSON(t, ActivityParams{ActivityID: "6"}))
	require.NoError(t, err)
	require.False(t, result.(BackupResponse).Found)
}

func TestHandler_FeedbackAndJournalCommands(t *testing.T) {
	ctx := context.Background()
	notes := &feedbackStub{records: []feedback.Record{{ID: "n1", Message: "saved", Severity: feedback.SeveritySuccess}}}
	var gotOpts journal.ListOptions

	handler := NewHandler(Services{
		Feedback: notes,
		Journal: journalStub{recentFn: func(_ context.Context, opts journal.ListOptions) ([]journal.Event, error) {
			gotOpts = opts
			return []journal.Event{{ID: 1, Type: journal.TypeFallbackStep, ActivityID: "7", Summary: "retry", Generation: 2}}, nil
		}},
	})

	result, err := handler.Handle(ctx, "list_notifications", nil)
	require.NoError(t, err)
	require.Len(t, result.(NotificationListResponse).Notifications, 1)

	result, err = handler.Handle(ctx, "dismiss_notification", mustJSON(t, DismissNotificationParams{ID: "n1"}))
	require.NoError(t, err)
	require.True(t, result.(DismissNotificationResponse).Dismissed)
	require.Equal(t, []string{"n1"}, notes.dismissed)

	result, err = handler.Handle(ctx, "recent_events", mustJSON(t, RecentEventsParams{ActivityID: "7", Type: "fallback_step"}))
	require.NoError(t, err)
	events := result.(RecentEventsResponse).Events
	require.Len(t, events, 1)
	require.Equal(t, uint64(2), events[0].Generation)
	require.Equal(t, 50, gotOpts.Limit)
	require.NotNil(t, gotOpts.Type)
	require.Equal(t, journal.TypeFallbackStep, *gotOpts.Type)
}

func TestHandler_Errors(t *testing.T) {
	ctx := context.Background()
	handler := NewHandler(Services{
		Navigation: navigationStub{navigateFn: func(context.Context, string) error {
			return navigation.ErrInvalidActivityID
		}},
		Submission: submissionStub{
			submitFn: func(context.Context, string, string, string) (submission.Outcome, error) {
				return submission.Outcome{BackupRetained: true}, submission.ErrSubmissionInFlight
			},
			retryFn: func(context.Context, string) (submission.Outcome, error) {
				return submission.Outcome{}, submission.ErrNoBackup
			},
		},
	})

	cases := []struct {
		method string
		params json.RawMessage
		code   string
	}{
		{"navigate_to", mustJSON(t, ActivityParams{}), "INVALID_ACTIVITY_ID"},
		{"submit_code", mustJSON(t, SubmitCodeParams{ActivityID: "1"}), "SUBMISSION_IN_FLIGHT"},
		{"retry_submission", mustJSON(t, ActivityParams{ActivityID: "1"}), "NO_BACKUP"},
		{"navigate_to", json.RawMessage(`{"activity_id":`), "INVALID_PARAMS"},
		{"page_loaded", mustJSON(t, PageLoadedParams{}), "INVALID_PARAMS"},
		{"reticulate_splines", nil, "UNKNOWN_METHOD"},
	}
	for _, tc := range cases {
		t.Run(tc.method+"/"+tc.code, func(t *testing.T) {
			_, err := handler.Handle(ctx, tc.method, tc.params)
			require.Error(t, err)
			apiErr := MapError(err)
			require.NotNil(t, apiErr)
			require.Equal(t, tc.code, apiErr.Code)
		})
	}
}

func TestMapError_Unknown(t *testing.T) {
	require.Nil(t, MapError(nil))
	require.Nil(t, MapError(context.Canceled))
}

func mustJSON(t *testing.T, v any) json.RawMessage {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	return data
}
