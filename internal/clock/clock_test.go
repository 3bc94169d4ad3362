package clock_test

import (
	"testing"
	"time"

	"github.com/labspace/labnav/internal/clock"
	"github.com/stretchr/testify/require"
)

func TestManual_RunsDueTimersInOrder(t *testing.T) {
	m := clock.NewManual(time.Unix(0, 0))
	var fired []string
	m.AfterFunc(300*time.Millisecond, func() { fired = append(fired, "b") })
	m.AfterFunc(100*time.Millisecond, func() {
		fired = append(fired, "a")
		m.AfterFunc(100*time.Millisecond, func() { fired = append(fired, "a2") })
	})
	m.AfterFunc(time.Second, func() { fired = append(fired, "late") })

	m.Advance(400 * time.Millisecond)
	require.Equal(t, []string{"a", "a2", "b"}, fired)
	require.Equal(t, 1, m.Pending())
	require.Equal(t, time.Unix(0, 0).Add(400*time.Millisecond), m.Now())
}

func TestManual_StopPreventsCallback(t *testing.T) {
	m := clock.NewManual(time.Unix(0, 0))
	called := false
	timer := m.AfterFunc(time.Millisecond, func() { called = true })

	require.True(t, timer.Stop())
	require.False(t, timer.Stop())
	m.Advance(time.Second)
	require.False(t, called)
	require.Zero(t, m.Pending())
}
