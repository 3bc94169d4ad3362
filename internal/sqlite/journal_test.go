package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/labspace/labnav/internal/domain/journal"
	"github.com/stretchr/testify/require"
)

func TestJournalRepository_LogList(t *testing.T) {
	db := NewTestDB(t)
	ctx := context.Background()
	repo := NewJournalRepository(db)

	first := &journal.Event{
		Type:       journal.TypeNavigationStarted,
		ActivityID: "42",
		URL:        "http://portal/student/view_activity.php?id=42",
		Summary:    "navigating to activity 42",
		Generation: 1,
	}
	second := &journal.Event{
		Type:       journal.TypeArrivalConfirmed,
		ActivityID: "42",
		Summary:    "arrived",
		Details:    `{"url":"x"}`,
	}

	require.NoError(t, repo.Log(ctx, first))
	time.Sleep(10 * time.Millisecond)
	require.NoError(t, repo.Log(ctx, second))
	require.NotZero(t, first.ID)

	events, err := repo.List(ctx, journal.ListOptions{ActivityID: "42"})
	require.NoError(t, err)
	require.Len(t, events, 2)
	require.Equal(t, journal.TypeArrivalConfirmed, events[0].Type)
	require.Equal(t, journal.TypeNavigationStarted, events[1].Type)
	require.Equal(t, uint64(1), events[1].Generation)
	require.Equal(t, first.URL, events[1].URL)
}

func TestJournalRepository_Filters(t *testing.T) {
	db := NewTestDB(t)
	ctx := context.Background()
	repo := NewJournalRepository(db)

	for _, e := range []*journal.Event{
		{Type: journal.TypeSubmissionAttempt, ActivityID: "1", Summary: "a"},
		{Type: journal.TypeSubmissionFailed, ActivityID: "1", Summary: "b"},
		{Type: journal.TypeSubmissionAttempt, ActivityID: "2", Summary: "c"},
	} {
		require.NoError(t, repo.Log(ctx, e))
	}

	typ := journal.TypeSubmissionAttempt
	events, err := repo.List(ctx, journal.ListOptions{Type: &typ})
	require.NoError(t, err)
	require.Len(t, events, 2)

	events, err = repo.List(ctx, journal.ListOptions{ActivityID: "1", Type: &typ})
	require.NoError(t, err)
	require.Len(t, events, 1)
	require.Empty(t, events[0].URL)

	events, err = repo.List(ctx, journal.ListOptions{Limit: 1})
	require.NoError(t, err)
	require.Len(t, events, 1)

	events, err = repo.List(ctx, journal.ListOptions{Offset: 2})
	require.NoError(t, err)
	require.Len(t, events, 1)
}
