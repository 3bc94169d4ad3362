package navigation_test

import (
	"fmt"
	"testing"

	"github.com/labspace/labnav/internal/domain/navigation"
	"github.com/labspace/labnav/internal/session"
	"github.com/stretchr/testify/require"
)

func testEndpoints() navigation.Endpoints {
	return navigation.Endpoints{
		BaseURL:       "https://labspace.test/",
		StudentView:   "/student/view_activity.php",
		TeacherEdit:   "/teacher/edit_activity.php",
		DirectView:    "direct_view.php",
		EmergencyView: "/emergency_view.php",
	}
}

func TestResolver_ByRole(t *testing.T) {
	r := navigation.NewResolver(testEndpoints())

	tests := []struct {
		role session.Role
		want string
	}{
		{session.RoleStudent, "https://labspace.test/student/view_activity.php?id=42"},
		{session.RoleTeacher, "https://labspace.test/teacher/edit_activity.php?id=42"},
		{session.RoleAdmin, "https://labspace.test/teacher/edit_activity.php?id=42"},
		{session.RoleAnonymous, "https://labspace.test/direct_view.php?id=42"},
		{session.Role("janitor"), "https://labspace.test/direct_view.php?id=42"},
	}
	for _, tt := range tests {
		t.Run(string(tt.role), func(t *testing.T) {
			require.Equal(t, tt.want, r.Resolve("42", tt.role))
		})
	}
	require.Equal(t, "https://labspace.test/emergency_view.php?id=42", r.Emergency("42"))
}

func TestResolver_IsDeterministic(t *testing.T) {
	r := navigation.NewResolver(testEndpoints())
	roles := []session.Role{session.RoleStudent, session.RoleTeacher, session.RoleAnonymous}
	for i := 0; i < 50; i++ {
		id := fmt.Sprintf("%d&x=%d", i, i)
		for _, role := range roles {
			first := r.Resolve(id, role)
			for j := 0; j < 3; j++ {
				require.Equal(t, first, r.Resolve(id, role))
			}
			require.Equal(t, id, navigation.ActivityIDFromURL(first), "id must round-trip through the query string")
		}
	}
}

func TestActivityIDFromURL(t *testing.T) {
	require.Equal(t, "7", navigation.ActivityIDFromURL("/student/view_activity.php?id=7"))
	require.Equal(t, "8", navigation.ActivityIDFromURL("https://x/y.php?activity_id=8"))
	require.Empty(t, navigation.ActivityIDFromURL("https://x/activities.php"))
	require.Empty(t, navigation.ActivityIDFromURL("%zz"))
}

func TestPushHistory(t *testing.T) {
	var history []string
	for i := 1; i <= 15; i++ {
		history = navigation.PushHistory(history, fmt.Sprint(i), 10)
	}
	require.Equal(t, []string{"15", "14", "13", "12", "11", "10", "9", "8", "7", "6"}, history)

	history = navigation.PushHistory(history, "9", 10)
	require.Equal(t, []string{"9", "15", "14", "13", "12", "11", "10", "8", "7", "6"}, history)
	require.Len(t, navigation.PushHistory(nil, "1", 0), 1)
}
