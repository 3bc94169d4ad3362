package testserver

import (
	"encoding/json"
	"fmt"
	"html"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/labspace/labnav/internal/config"
	"github.com/labspace/labnav/internal/domain/activity"
	"github.com/labspace/labnav/internal/domain/submission"
)

// DefaultActivities are rendered on the list page until SetActivities is called.
var DefaultActivities = []activity.Descriptor{
	activity.NewDescriptor("101", "Loops and ranges", ""),
	activity.NewDescriptor("102", "Working with lists", ""),
	activity.NewDescriptor("103", "Dictionaries", ""),
}

// Reply scripts one response of the submit endpoint.
type Reply struct {
	Status      int
	ContentType string
	Body        string
	// Drop closes the connection without answering.
	Drop bool
}

// JSONReply is a scripted JSON submit response.
func JSONReply(body string) Reply {
	return Reply{Status: http.StatusOK, ContentType: "application/json", Body: body}
}

// RecordedRequest is a request the portal received.
type RecordedRequest struct {
	Method        string
	Path          string
	ActivityID    string
	Authorization string
}

// Portal is a fake LabSpace web server: activity list, view pages and the
// submit endpoint.
type Portal struct {
	Server *httptest.Server
	Paths  config.PortalConfig

	mu          sync.Mutex
	activities  []activity.Descriptor
	replies     []Reply
	failing     map[string]int
	requests    []RecordedRequest
	observer    func(RecordedRequest)
	submissions []submission.Request
}

// NewPortal starts a fake portal serving the default endpoint paths.
func NewPortal(t *testing.T) *Portal {
	t.Helper()

	p := &Portal{
		activities: append([]activity.Descriptor(nil), DefaultActivities...),
		failing:    make(map[string]int),
	}
	paths := config.Default().Portal

	r := chi.NewRouter()
	r.Use(p.record)
	r.Get(paths.ActivityListPath, p.handleActivityList)
	for _, view := range []string{paths.StudentViewPath, paths.TeacherEditPath, paths.DirectViewPath, paths.EmergencyViewPath} {
		r.Get(view, p.handleView)
		r.Post(view, p.handleView)
	}
	r.Post(paths.SubmitPath, p.handleSubmit)

	p.Server = httptest.NewServer(r)
	paths.BaseURL = p.Server.URL
	p.Paths = paths
	t.Cleanup(p.Server.Close)
	return p
}

// URL returns the absolute URL of path on the portal.
func (p *Portal) URL(path string) string {
	return p.Server.URL + path
}

// SetActivities replaces the activities rendered on the list page.
func (p *Portal) SetActivities(descriptors ...activity.Descriptor) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.activities = append([]activity.Descriptor(nil), descriptors...)
}

// QueueReplies scripts the next submit responses. Once the script runs out the
// endpoint accepts every submission.
func (p *Portal) QueueReplies(replies ...Reply) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.replies = append(p.replies, replies...)
}

// FailPath makes every request to path answer with status. A zero status
// restores normal handling.
func (p *Portal) FailPath(path string, status int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if status == 0 {
		delete(p.failing, path)
		return
	}
	p.failing[path] = status
}

// Observe registers f to run for each request before it is handled.
func (p *Portal) Observe(f func(RecordedRequest)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.observer = f
}

// Requests returns every request received so far.
func (p *Portal) Requests() []RecordedRequest {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]RecordedRequest(nil), p.requests...)
}

// RequestsTo returns the requests received for path.
func (p *Portal) RequestsTo(path string) []RecordedRequest {
	var out []RecordedRequest
	for _, req := range p.Requests() {
		if req.Path == path {
			out = append(out, req)
		}
	}
	return out
}

// Submissions returns the decoded bodies of submit requests.
func (p *Portal) Submissions() []submission.Request {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]submission.Request(nil), p.submissions...)
}

func (p *Portal) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		rec := RecordedRequest{
			Method:        r.Method,
			Path:          r.URL.Path,
			ActivityID:    r.Form.Get("id"),
			Authorization: r.Header.Get("Authorization"),
		}
		p.mu.Lock()
		p.requests = append(p.requests, rec)
		status := p.failing[r.URL.Path]
		observer := p.observer
		p.mu.Unlock()

		if observer != nil {
			observer(rec)
		}

		if status != 0 {
			http.Error(w, http.StatusText(status), status)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (p *Portal) handleActivityList(w http.ResponseWriter, _ *http.Request) {
	p.mu.Lock()
	activities := append([]activity.Descriptor(nil), p.activities...)
	p.mu.Unlock()

	island, err := json.Marshal(activities)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprintf(w, "<!doctype html>\n<html><head><title>Activities</title></head><body>\n<ul>\n")
	for _, a := range activities {
		fmt.Fprintf(w, "<li><a href=\"%s?id=%s\">%s</a></li>\n", p.Paths.StudentViewPath, html.EscapeString(a.ID), html.EscapeString(a.Title))
	}
	fmt.Fprintf(w, "</ul>\n<script type=\"application/json\" id=\"labspace-activities\">%s</script>\n</body></html>\n", island)
}

func (p *Portal) handleView(w http.ResponseWriter, r *http.Request) {
	id := r.Form.Get("id")
	if id == "" {
		http.Error(w, "missing activity id", http.StatusBadRequest)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprintf(w, "<!doctype html>\n<html><body><h1>Activity %s</h1><textarea id=\"editor\"></textarea></body></html>\n", html.EscapeString(id))
}

func (p *Portal) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var req submission.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid submission", http.StatusBadRequest)
		return
	}

	p.mu.Lock()
	p.submissions = append(p.submissions, req)
	reply := JSONReply(`{"success":true,"message":"Code submitted"}`)
	if len(p.replies) > 0 {
		reply = p.replies[0]
		p.replies = p.replies[1:]
	}
	p.mu.Unlock()

	if reply.Drop {
		hj, ok := w.(http.Hijacker)
		if !ok {
			http.Error(w, "hijack unsupported", http.StatusInternalServerError)
			return
		}
		conn, _, err := hj.Hijack()
		if err == nil {
			_ = conn.Close()
		}
		return
	}

	if reply.ContentType != "" {
		w.Header().Set("Content-Type", reply.ContentType)
	}
	status := reply.Status
	if status == 0 {
		status = http.StatusOK
	}
	w.WriteHeader(status)
	_, _ = w.Write([]byte(reply.Body))
}
