package journal

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"
)

// Service records client events for later troubleshooting.
type Service struct {
	repo   Repository
	logger *slog.Logger
}

// NewService creates a new journal service.
func NewService(repo Repository, logger *slog.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

// Log stores an event with the current timestamp if missing.
func (s *Service) Log(ctx context.Context, event *Event) error {
	if event == nil || event.Type == "" {
		return ErrInvalidInput
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}
	if err := s.repo.Log(ctx, event); err != nil {
		return fmt.Errorf("logging event: %w", err)
	}
	return nil
}

// Record is the fire-and-forget form of Log used by the controllers. Details
// are JSON encoded into the event. The journal is advisory, so failures are
// only logged.
func (s *Service) Record(ctx context.Context, event Event, details any) {
	if s == nil {
		return
	}
	if details != nil {
		if data, err := json.Marshal(details); err == nil {
			event.Details = string(data)
		}
	}
	if err := s.Log(ctx, &event); err != nil && s.logger != nil {
		s.logger.Warn("journal write failed", "type", event.Type, "activity_id", event.ActivityID, "error", err)
	}
}

// Recent lists events, newest first.
func (s *Service) Recent(ctx context.Context, opts ListOptions) ([]Event, error) {
	return s.repo.List(ctx, opts)
}
