package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/labspace/labnav/internal/domain/activity"
	"github.com/labspace/labnav/internal/domain/feedback"
	"github.com/labspace/labnav/internal/domain/journal"
	"github.com/labspace/labnav/internal/domain/navigation"
	"github.com/labspace/labnav/internal/domain/submission"
)

// NavigationService defines navigation operations needed by MCP.
type NavigationService interface {
	NavigateTo(ctx context.Context, activityID string) error
	NavigateNow(ctx context.Context, activityID string) error
	OpenEmergencyView(ctx context.Context, activityID string) error
	DismissRecovery(ctx context.Context) bool
	State(ctx context.Context) navigation.State
	ResolveURL(activityID string) string
}

// PageService handles page loads.
type PageService interface {
	Load(ctx context.Context, pageURL string, body []byte) navigation.Arrival
}

// RegistryService lists the activities known on the current page.
type RegistryService interface {
	All() []activity.Descriptor
}

// SubmissionService defines submission operations needed by MCP.
type SubmissionService interface {
	Submit(ctx context.Context, activityID, code, language string) (submission.Outcome, error)
	Retry(ctx context.Context, activityID string) (submission.Outcome, error)
	Backup(ctx context.Context, activityID string) (submission.Backup, bool)
}

// FeedbackService defines notification operations needed by MCP.
type FeedbackService interface {
	Active() []feedback.Record
	Dismiss(id string) bool
}

// JournalService defines event queries needed by MCP.
type JournalService interface {
	Recent(ctx context.Context, opts journal.ListOptions) ([]journal.Event, error)
}

// Services contains the page services exposed over MCP and JSON-RPC.
type Services struct {
	Navigation NavigationService
	Pages      PageService
	Registry   RegistryService
	Submission SubmissionService
	Feedback   FeedbackService
	Journal    JournalService
}

// Handler dispatches method calls to the page services.
type Handler struct {
	navigation NavigationService
	pages      PageService
	registry   RegistryService
	submission SubmissionService
	feedback   FeedbackService
	journal    JournalService
}

// NewHandler creates a new handler.
func NewHandler(services Services) *Handler {
	return &Handler{
		navigation: services.Navigation,
		pages:      services.Pages,
		registry:   services.Registry,
		submission: services.Submission,
		feedback:   services.Feedback,
		journal:    services.Journal,
	}
}

// Handle dispatches a request to the page services.
func (h *Handler) Handle(ctx context.Context, method string, params json.RawMessage) (any, error) {
	switch method {
	case "navigate_to", "navigate_now", "open_emergency_view":
		var req ActivityParams
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		var err error
		switch method {
		case "navigate_to":
			err = h.navigation.NavigateTo(ctx, req.ActivityID)
		case "navigate_now":
			err = h.navigation.NavigateNow(ctx, req.ActivityID)
		default:
			err = h.navigation.OpenEmergencyView(ctx, req.ActivityID)
		}
		if err != nil {
			return nil, mapError(err)
		}
		state := h.navigation.State(ctx)
		url := state.LastAttemptURL
		if url == "" {
			url = h.navigation.ResolveURL(req.ActivityID)
		}
		return NavigateResponse{ActivityID: req.ActivityID, URL: url, State: state}, nil
	case "page_loaded":
		var req PageLoadedParams
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		if req.URL == "" {
			return nil, mapError(fmt.Errorf("%w: url is required", ErrInvalidParams))
		}
		before := len(h.registry.All())
		arrival := h.pages.Load(ctx, req.URL, []byte(req.HTML))
		return PageLoadedResponse{Arrival: arrival, Activities: len(h.registry.All()) - before}, nil
	case "navigation_state":
		return h.navigation.State(ctx), nil
	case "dismiss_recovery":
		return DismissRecoveryResponse{Cleared: h.navigation.DismissRecovery(ctx)}, nil
	case "list_activities":
		return ActivityListResponse{Activities: h.registry.All()}, nil
	case "submit_code":
		var req SubmitCodeParams
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		outcome, err := h.submission.Submit(ctx, req.ActivityID, req.Code, req.Language)
		if err != nil {
			return nil, mapError(err)
		}
		return SubmissionResponse{Outcome: outcome}, nil
	case "retry_submission":
		var req ActivityParams
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		outcome, err := h.submission.Retry(ctx, req.ActivityID)
		if err != nil {
			return nil, mapError(err)
		}
		return SubmissionResponse{Outcome: outcome}, nil
	case "get_backup":
		var req ActivityParams
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		backup, ok := h.submission.Backup(ctx, req.ActivityID)
		if !ok {
			return BackupResponse{Found: false}, nil
		}
		return BackupResponse{Found: true, FileName: backup.FileName(), Backup: &backup}, nil
	case "list_notifications":
		return NotificationListResponse{Notifications: h.feedback.Active()}, nil
	case "dismiss_notification":
		var req DismissNotificationParams
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		return DismissNotificationResponse{Dismissed: h.feedback.Dismiss(req.ID)}, nil
	case "recent_events":
		var req RecentEventsParams
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		opts := journal.ListOptions{
			ActivityID: req.ActivityID,
			Limit:      req.Limit,
			Offset:     req.Offset,
		}
		if req.Type != "" {
			typ := journal.EventType(req.Type)
			opts.Type = &typ
		}
		if opts.Limit == 0 {
			opts.Limit = 50
		}
		events, err := h.journal.Recent(ctx, opts)
		if err != nil {
			return nil, mapError(err)
		}
		resp := make([]EventResponse, 0, len(events))
		for _, event := range events {
			resp = append(resp, EventResponse{
				Timestamp:  event.CreatedAt,
				Type:       event.Type,
				ActivityID: event.ActivityID,
				URL:        event.URL,
				Summary:    event.Summary,
				Details:    event.Details,
				Generation: event.Generation,
			})
		}
		return RecentEventsResponse{Events: resp}, nil
	default:
		return nil, mapError(fmt.Errorf("%w: %s", ErrUnknownMethod, method))
	}
}

func decodeParams(params json.RawMessage, out any) error {
	if len(params) == 0 || string(params) == "null" {
		return nil
	}
	if err := json.Unmarshal(params, out); err != nil {
		return mapError(fmt.Errorf("%w: %v", ErrInvalidParams, err))
	}
	return nil
}

func mapError(err error) error {
	if apiErr := MapError(err); apiErr != nil {
		return apiErr
	}
	return err
}
