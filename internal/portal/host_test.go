package portal_test

import (
	"context"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/labspace/labnav/internal/domain/activity"
	"github.com/labspace/labnav/internal/portal"
	"github.com/labspace/labnav/internal/testserver"
)

func TestHost_AssignLandsOnPage(t *testing.T) {
	fake := testserver.NewPortal(t)
	c := newClient(fake)
	host := portal.NewHost(c, c.ActivityListURL(), time.Second, nil)

	var loaded []string
	host.OnLoad(func(_ context.Context, page *portal.Page) {
		require.False(t, host.Unloading())
		loaded = append(loaded, page.URL)
	})

	target := fake.URL(fake.Paths.StudentViewPath + "?id=101")
	require.NoError(t, host.Assign(target))
	require.Equal(t, target, host.Location())
	require.Equal(t, []string{target}, loaded)
	require.False(t, host.Unloading())
}

func TestHost_FailedNavigationKeepsPage(t *testing.T) {
	fake := testserver.NewPortal(t)
	fake.FailPath(fake.Paths.StudentViewPath, http.StatusBadGateway)
	c := newClient(fake)
	host := portal.NewHost(c, c.ActivityListURL(), time.Second, nil)

	called := false
	host.OnLoad(func(context.Context, *portal.Page) { called = true })

	require.Error(t, host.Replace(fake.URL(fake.Paths.StudentViewPath+"?id=5")))
	require.Equal(t, c.ActivityListURL(), host.Location())
	require.False(t, called)
	require.False(t, host.Unloading())
}

func TestHost_SubmitFormPosts(t *testing.T) {
	fake := testserver.NewPortal(t)
	c := newClient(fake)
	host := portal.NewHost(c, c.ActivityListURL(), time.Second, nil)

	require.NoError(t, host.SubmitForm(fake.URL(fake.Paths.TeacherEditPath+"?id=9")))

	reqs := fake.RequestsTo(fake.Paths.TeacherEditPath)
	require.Len(t, reqs, 1)
	require.Equal(t, http.MethodPost, reqs[0].Method)
	require.Equal(t, "9", reqs[0].ActivityID)
}

func TestHost_LoadFeedsActivityList(t *testing.T) {
	fake := testserver.NewPortal(t)
	fake.SetActivities(activity.NewDescriptor("7", "Recursion", ""))
	c := newClient(fake)
	host := portal.NewHost(c, c.ActivityListURL(), time.Second, nil)

	var got []activity.Descriptor
	host.OnLoad(func(_ context.Context, page *portal.Page) {
		descriptors, err := activity.ParsePageData(page.Body)
		require.NoError(t, err)
		got = descriptors
	})

	require.NoError(t, host.Load(context.Background(), c.ActivityListURL()))
	require.Equal(t, []activity.Descriptor{{ID: "7", Title: "Recursion"}}, got)
}

func TestHost_NewerNavigationWins(t *testing.T) {
	fake := testserver.NewPortal(t)
	c := newClient(fake)
	host := portal.NewHost(c, c.ActivityListURL(), time.Second, nil)

	held := make(chan struct{})
	release := make(chan struct{})
	fake.Observe(func(req testserver.RecordedRequest) {
		if req.ActivityID == "1" {
			close(held)
			<-release
		}
	})

	var mu sync.Mutex
	var loaded []string
	host.OnLoad(func(_ context.Context, page *portal.Page) {
		mu.Lock()
		defer mu.Unlock()
		loaded = append(loaded, page.URL)
	})

	older := fake.URL(fake.Paths.StudentViewPath + "?id=1")
	newer := fake.URL(fake.Paths.StudentViewPath + "?id=2")
	done := make(chan error, 1)
	go func() { done <- host.Assign(older) }()
	<-held

	require.NoError(t, host.Assign(newer))
	require.Equal(t, newer, host.Location())
	require.True(t, host.Unloading(), "the older request is still in flight")

	close(release)
	require.NoError(t, <-done)
	require.Equal(t, newer, host.Location())
	require.False(t, host.Unloading())

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, []string{newer}, loaded)
}
