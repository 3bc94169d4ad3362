package mcp

import (
	"context"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

const serverInstructions = `labnav drives a LabSpace portal session: it opens activity views, detects stalled
navigations, recovers from them, and submits code without losing it.

Core concepts:
- Activity: a lab exercise with an id, title and view URL. Activities are learned from pages via page_loaded.
- Navigation attempt: the persisted record of the last activity you tried to open. It survives restarts.
- Fallback ladder: when a navigation stalls, labnav retries, then replaces the location, then submits a form, then escalates.
- Code backup: every submission first saves the code locally; the backup is removed only after the server accepts it.

Workflow:
1) list_activities to see what the current page offers (call page_loaded first if you loaded a page yourself).
2) navigate_to(activity_id). Check navigation_state; phase "confirmed" or a cleared state means you arrived.
3) If the state shows "stalled" or "escalated", use navigate_now or open_emergency_view, or dismiss_recovery to give up.
4) submit_code(activity_id, code, language). On failure the outcome lists recovery actions; use get_backup and retry_submission.
5) list_notifications shows what a user would see; dismiss_notification clears one.
6) recent_events explains what happened, newest first.

Docs:
- labnav://docs/index
- labnav://docs/navigation
- labnav://docs/submission
`

type docResource struct {
	URI         string
	Name        string
	Title       string
	Description string
	Content     string
}

var docResources = []docResource{
	{
		URI:         "labnav://docs/index",
		Name:        "docs_index",
		Title:       "labnav docs index",
		Description: "Entry point: what the tools do and which doc to read next.",
		Content: `# labnav docs

## Tools

| Tool | Purpose |
| --- | --- |
| ` + "`navigate_to`" + ` | open an activity with stall detection and fallbacks |
| ` + "`navigate_now`" + ` | open an activity immediately |
| ` + "`open_emergency_view`" + ` | open the minimal emergency view |
| ` + "`page_loaded`" + ` | report a page load; registers activities and confirms arrival |
| ` + "`navigation_state`" + ` | persisted last activity, attempt and history |
| ` + "`dismiss_recovery`" + ` | forget the pending attempt |
| ` + "`list_activities`" + ` | activities learned from pages |
| ` + "`submit_code`" + ` | back up, then submit code |
| ` + "`retry_submission`" + ` | resend the code from the last failed submission |
| ` + "`get_backup`" + ` | read the retained backup |
| ` + "`list_notifications`" + ` / ` + "`dismiss_notification`" + ` | user-facing messages |
| ` + "`recent_events`" + ` | event journal |

## Read next

- ` + "`labnav://docs/navigation`" + ` for the fallback ladder and recovery prompt.
- ` + "`labnav://docs/submission`" + ` for outcome kinds and backups.
`,
	},
	{
		URI:         "labnav://docs/navigation",
		Name:        "docs_navigation",
		Title:       "Navigation and recovery",
		Description: "How navigation attempts are persisted, detected as stalled, and recovered.",
		Content: `# Navigation and recovery

1. ` + "`navigate_to`" + ` saves the activity id and the attempt before the location changes.
2. If the page has not started unloading after the stall window, the attempt is marked stalled and the
   fallback ladder runs: retry, replace, form submit. Each step waits for its own timeout.
3. When every step fails the attempt is escalated: an error notification is shown with the choices
   "Navigate now", "Emergency view" and "Dismiss".
4. A newer navigation always wins; stale timers from older attempts do nothing.

## Arrival

` + "`page_loaded`" + ` compares the loaded URL's activity id to the pending attempt. A match clears the
attempt. Loading the activity list after a stalled or escalated attempt offers recovery once per attempt.

## Roles

Students open the student view, teachers and admins the edit view, and anonymous sessions the direct view.
`,
	},
	{
		URI:         "labnav://docs/submission",
		Name:        "docs_submission",
		Title:       "Code submission",
		Description: "Outcome kinds, retries and backups for submit_code.",
		Content: `# Code submission

Every submission writes a backup first. At most one submission per activity is in flight; a second
call is rejected with ` + "`SUBMISSION_IN_FLIGHT`" + ` but its code is still saved.

## Outcome kinds

- ` + "`success`" + `: the server accepted the code; the backup is removed.
- ` + "`server_rejected`" + `: the server answered with success=false; see ` + "`message`" + ` and ` + "`server_error`" + `.
- ` + "`malformed_response`" + `: the reply was not the expected JSON (often an HTML error page); see ` + "`diagnostic`" + `.
- ` + "`network_error`" + `: the server could not be reached. Only this kind is retried automatically, with exponential backoff.

Failed outcomes keep the backup and list the actions ` + "`download_code`" + `, ` + "`show_details`" + ` and ` + "`retry`" + `.
Backups expire after the configured TTL.
`,
	},
}

func registerDocResources(server *sdkmcp.Server) {
	for _, doc := range docResources {
		doc := doc

		server.AddResource(&sdkmcp.Resource{
			URI:         doc.URI,
			Name:        doc.Name,
			Title:       doc.Title,
			Description: doc.Description,
			MIMEType:    "text/markdown",
			Size:        int64(len(doc.Content)),
		}, func(_ context.Context, req *sdkmcp.ReadResourceRequest) (*sdkmcp.ReadResourceResult, error) {
			uri := doc.URI
			if req != nil && req.Params != nil && req.Params.URI != "" {
				uri = req.Params.URI
			}
			return &sdkmcp.ReadResourceResult{
				Contents: []*sdkmcp.ResourceContents{{
					URI:      uri,
					MIMEType: "text/markdown",
					Text:     doc.Content,
				}},
			}, nil
		})
	}
}
