package feedback

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/labspace/labnav/internal/clock"
)

func TestNotifier_DismissReleasesRecord(t *testing.T) {
	sched := clock.NewManual(time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC))
	n := New(Options{Scheduler: sched, ShortTimeout: time.Second})

	for i := 0; i < 50; i++ {
		n.Notify("saved", SeverityInfo)
	}
	kept := n.Notify("grader offline", SeverityError)
	sched.Advance(time.Second)

	n.mu.Lock()
	require.Len(t, n.records, 1, "auto-dismissed notifications are released without a listing")
	require.Equal(t, []string{kept.ID}, n.order)
	require.Empty(t, n.timers)
	n.mu.Unlock()

	require.True(t, n.Dismiss(kept.ID))
	require.False(t, n.Dismiss(kept.ID))
	n.mu.Lock()
	require.Empty(t, n.records)
	require.Empty(t, n.order)
	n.mu.Unlock()
}
