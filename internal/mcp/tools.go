package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

type toolSpec struct {
	name        string
	description string
	register    func(server *sdkmcp.Server, h *Handler, tool *sdkmcp.Tool)
}

func tool[In any]() func(*sdkmcp.Server, *Handler, *sdkmcp.Tool) {
	return func(server *sdkmcp.Server, h *Handler, t *sdkmcp.Tool) {
		addTool[In](server, h, t)
	}
}

// toolCatalog lists every tool exposed by the server, in display order.
var toolCatalog = []toolSpec{
	// Navigation
	{"navigate_to", "Persist the activity as the navigation target and open its view for the current role. Stalled navigations fall back through retry, replace and form submit before escalating.", tool[ActivityParams]()},
	{"navigate_now", "Open the activity view immediately without stall detection.", tool[ActivityParams]()},
	{"open_emergency_view", "Open the minimal emergency view for an activity.", tool[ActivityParams]()},
	{"page_loaded", "Report that a page finished loading. Registers activities from the page data island and checks whether a pending navigation arrived.", tool[PageLoadedParams]()},
	{"navigation_state", "Get the persisted navigation state: last activity, last attempt and history.", tool[EmptyParams]()},
	{"dismiss_recovery", "Clear the pending navigation attempt and the last activity id.", tool[EmptyParams]()},
	{"list_activities", "List activities registered from loaded pages.", tool[EmptyParams]()},

	// Submission
	{"submit_code", "Back up and submit code for an activity. The backup is kept until the server confirms success.", tool[SubmitCodeParams]()},
	{"retry_submission", "Resend the code from the activity's last failed submission, or its retained backup if none failed.", tool[ActivityParams]()},
	{"get_backup", "Get the retained code backup for an activity, if any.", tool[ActivityParams]()},

	// Feedback
	{"list_notifications", "List notifications that are still visible.", tool[EmptyParams]()},
	{"dismiss_notification", "Dismiss a notification by id.", tool[DismissNotificationParams]()},

	// Journal
	{"recent_events", "List recent navigation and submission events, newest first.", tool[RecentEventsParams]()},
}

func registerTools(server *sdkmcp.Server, h *Handler) {
	for _, entry := range toolCatalog {
		entry.register(server, h, &sdkmcp.Tool{
			Name:        entry.name,
			Description: entry.description,
		})
	}
}

// addTool routes a typed tool call through Handler.Handle so MCP and
// JSON-RPC callers share one dispatch path.
func addTool[In any](server *sdkmcp.Server, h *Handler, t *sdkmcp.Tool) {
	name := t.Name
	sdkmcp.AddTool(server, t, func(ctx context.Context, _ *sdkmcp.CallToolRequest, in In) (*sdkmcp.CallToolResult, any, error) {
		params, err := json.Marshal(in)
		if err != nil {
			return nil, nil, fmt.Errorf("encode %s arguments: %w", name, err)
		}
		out, err := h.Handle(ctx, name, params)
		if err != nil {
			return nil, nil, err
		}
		return nil, out, nil
	})
}
