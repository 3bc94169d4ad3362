package feedback_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/labspace/labnav/internal/clock"
	"github.com/labspace/labnav/internal/domain/feedback"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type recordingPresenter struct {
	shown  []feedback.Record
	hidden []string
}

func (p *recordingPresenter) Show(r feedback.Record) { p.shown = append(p.shown, r) }
func (p *recordingPresenter) Hide(id string)         { p.hidden = append(p.hidden, id) }

type mockDialog struct {
	mock.Mock
}

func (m *mockDialog) Confirm(ctx context.Context, title, body string, actions []feedback.DialogAction) (feedback.Action, error) {
	args := m.Called(ctx, title, body, actions)
	return args.Get(0).(feedback.Action), args.Error(1)
}

func newNotifier(t *testing.T, dialog feedback.Dialog) (*feedback.Notifier, *clock.Manual, *recordingPresenter) {
	t.Helper()
	sched := clock.NewManual(time.Unix(1700000000, 0))
	presenter := &recordingPresenter{}
	n := feedback.New(feedback.Options{
		Presenter: presenter,
		Dialog:    dialog,
		Scheduler: sched,
	})
	return n, sched, presenter
}

func TestNotifier_AutoDismissBySeverity(t *testing.T) {
	n, sched, presenter := newNotifier(t, nil)

	info := n.Notify("saved", feedback.SeverityInfo)
	warn := n.Notify("slow network", feedback.SeverityWarning)
	failure := n.NotifyDetails("submission failed", "Fatal error: boom", feedback.SeverityError)
	require.NotEmpty(t, info.ID)
	require.Len(t, presenter.shown, 3)
	require.Equal(t, "Fatal error: boom", presenter.shown[2].Details)

	sched.Advance(5 * time.Second)
	require.Equal(t, []string{info.ID}, presenter.hidden)

	sched.Advance(10 * time.Second)
	require.Equal(t, []string{info.ID, warn.ID}, presenter.hidden)

	sched.Advance(time.Hour)
	active := n.Active()
	require.Len(t, active, 1)
	require.Equal(t, failure.ID, active[0].ID, "errors require manual dismissal")
}

func TestNotifier_DismissIsIdempotent(t *testing.T) {
	n, sched, presenter := newNotifier(t, nil)
	rec := n.Notify("hello", feedback.SeveritySuccess)

	require.True(t, n.Dismiss(rec.ID))
	require.False(t, n.Dismiss(rec.ID))
	require.False(t, n.Dismiss("unknown"))

	sched.Advance(time.Minute)
	require.Equal(t, []string{rec.ID}, presenter.hidden)
	require.Empty(t, n.Active())
	require.Zero(t, sched.Pending())
}

func TestNotifier_UnknownSeverityFallsBackToInfo(t *testing.T) {
	n, _, _ := newNotifier(t, nil)
	rec := n.Notify("odd", feedback.Severity("fatal"))
	require.Equal(t, feedback.SeverityInfo, rec.Severity)
}

func TestNotifier_ConfirmDialog(t *testing.T) {
	actions := []feedback.DialogAction{
		{ID: "navigate_now", Label: "Navigate now"},
		{ID: "dismiss", Label: "Dismiss"},
	}

	t.Run("returns selected action", func(t *testing.T) {
		dialog := &mockDialog{}
		dialog.On("Confirm", mock.Anything, "Stuck", "body", actions).Return(feedback.Action("navigate_now"), nil)
		n, _, _ := newNotifier(t, dialog)

		require.Equal(t, feedback.Action("navigate_now"), n.ConfirmDialog(context.Background(), "Stuck", "body", actions))
		dialog.AssertExpectations(t)
	})

	t.Run("unknown choice and errors yield none", func(t *testing.T) {
		dialog := &mockDialog{}
		dialog.On("Confirm", mock.Anything, "a", "b", actions).Return(feedback.Action("bogus"), nil).Once()
		dialog.On("Confirm", mock.Anything, "a", "b", actions).Return(feedback.ActionNone, errors.New("closed")).Once()
		n, _, _ := newNotifier(t, dialog)

		require.Equal(t, feedback.ActionNone, n.ConfirmDialog(context.Background(), "a", "b", actions))
		require.Equal(t, feedback.ActionNone, n.ConfirmDialog(context.Background(), "a", "b", actions))
	})

	t.Run("no dialog", func(t *testing.T) {
		n, _, _ := newNotifier(t, nil)
		require.Equal(t, feedback.ActionNone, n.ConfirmDialog(context.Background(), "a", "b", actions))
	})
}
