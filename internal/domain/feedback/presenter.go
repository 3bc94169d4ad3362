package feedback

import (
	"context"
	"log/slog"
)

// LogPresenter writes notifications to a structured logger. It is the
// presenter used when no UI is attached.
type LogPresenter struct {
	Logger *slog.Logger
}

func (p LogPresenter) Show(record Record) {
	if p.Logger == nil {
		return
	}
	level := slog.LevelInfo
	switch record.Severity {
	case SeverityWarning:
		level = slog.LevelWarn
	case SeverityError:
		level = slog.LevelError
	}
	attrs := []any{"id", record.ID, "severity", record.Severity}
	if record.Details != "" {
		attrs = append(attrs, "details", record.Details)
	}
	p.Logger.Log(context.Background(), level, record.Message, attrs...)
}

func (p LogPresenter) Hide(id string) {
	if p.Logger != nil {
		p.Logger.Debug("notification dismissed", "id", id)
	}
}
