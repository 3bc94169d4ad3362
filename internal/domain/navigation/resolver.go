package navigation

import (
	"net/url"
	"strings"

	"github.com/labspace/labnav/internal/session"
)

// Endpoints are the portal's activity view paths, each taking the activity id
// as the "id" query parameter.
type Endpoints struct {
	BaseURL       string
	StudentView   string
	TeacherEdit   string
	DirectView    string
	EmergencyView string
}

// Resolver maps an activity id and role to a view URL. It is pure: the same
// inputs always produce the same URL.
type Resolver struct {
	endpoints Endpoints
}

func NewResolver(endpoints Endpoints) *Resolver {
	return &Resolver{endpoints: endpoints}
}

// Resolve returns the role-specific view URL for id. Admins share the teacher
// edit view; anonymous or unknown roles get the generic direct view.
func (r *Resolver) Resolve(id string, role session.Role) string {
	switch role {
	case session.RoleStudent:
		return r.build(r.endpoints.StudentView, id)
	case session.RoleTeacher, session.RoleAdmin:
		return r.build(r.endpoints.TeacherEdit, id)
	default:
		return r.build(r.endpoints.DirectView, id)
	}
}

// Emergency returns the degraded direct-access URL for id. It bypasses role
// routing; the portal authorizes it on its own.
func (r *Resolver) Emergency(id string) string {
	return r.build(r.endpoints.EmergencyView, id)
}

func (r *Resolver) build(path, id string) string {
	base := strings.TrimRight(r.endpoints.BaseURL, "/")
	if path != "" && !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return base + path + "?" + url.Values{"id": {id}}.Encode()
}

// ActivityIDFromURL extracts the activity id a page URL refers to, or "" for
// pages that are not about a single activity.
func ActivityIDFromURL(pageURL string) string {
	u, err := url.Parse(pageURL)
	if err != nil {
		return ""
	}
	q := u.Query()
	if id := strings.TrimSpace(q.Get("id")); id != "" {
		return id
	}
	return strings.TrimSpace(q.Get("activity_id"))
}
