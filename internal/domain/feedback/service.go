package feedback

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/labspace/labnav/internal/clock"
	"github.com/labspace/labnav/internal/metrics"
)

const (
	DefaultShortTimeout = 5 * time.Second
	DefaultLongTimeout  = 15 * time.Second
)

// Options configures a Notifier.
type Options struct {
	// ShortTimeout expires info and success notifications.
	ShortTimeout time.Duration
	// LongTimeout expires warnings. Errors never expire on their own.
	LongTimeout time.Duration
	Presenter   Presenter
	Dialog      Dialog
	Scheduler   clock.Scheduler
	Logger      *slog.Logger
	Metrics     *metrics.Metrics
}

// Notifier is the page's user feedback channel. Notifications are purely
// presentational and never influence other components.
type Notifier struct {
	mu      sync.Mutex
	records map[string]*Record
	order   []string
	timers  map[string]clock.Timer

	shortTimeout time.Duration
	longTimeout  time.Duration
	presenter    Presenter
	dialog       Dialog
	scheduler    clock.Scheduler
	logger       *slog.Logger
	metrics      *metrics.Metrics
}

// New creates a Notifier.
func New(opts Options) *Notifier {
	n := &Notifier{
		records:      make(map[string]*Record),
		timers:       make(map[string]clock.Timer),
		shortTimeout: opts.ShortTimeout,
		longTimeout:  opts.LongTimeout,
		presenter:    opts.Presenter,
		dialog:       opts.Dialog,
		scheduler:    opts.Scheduler,
		logger:       opts.Logger,
		metrics:      opts.Metrics,
	}
	if n.shortTimeout <= 0 {
		n.shortTimeout = DefaultShortTimeout
	}
	if n.longTimeout <= 0 {
		n.longTimeout = DefaultLongTimeout
	}
	if n.presenter == nil {
		n.presenter = LogPresenter{Logger: opts.Logger}
	}
	if n.scheduler == nil {
		n.scheduler = clock.Real{}
	}
	return n
}

// Notify shows a message and schedules its auto-dismissal.
func (n *Notifier) Notify(message string, severity Severity) Record {
	return n.NotifyDetails(message, "", severity)
}

// NotifyDetails shows a message with diagnostic details attached.
func (n *Notifier) NotifyDetails(message, details string, severity Severity) Record {
	if !severity.Valid() {
		severity = SeverityInfo
	}
	record := &Record{
		ID:        uuid.New().String(),
		Message:   message,
		Details:   details,
		Severity:  severity,
		CreatedAt: n.scheduler.Now(),
	}

	n.mu.Lock()
	n.records[record.ID] = record
	n.order = append(n.order, record.ID)
	if timeout := n.timeoutFor(severity); timeout > 0 {
		id := record.ID
		n.timers[id] = n.scheduler.AfterFunc(timeout, func() { n.Dismiss(id) })
	}
	snapshot := *record
	n.mu.Unlock()

	n.metrics.Notification(string(severity))
	n.presenter.Show(snapshot)
	return snapshot
}

// Dismiss hides a notification. Dismissing an unknown or already dismissed
// notification is a no-op; the return value reports whether anything changed.
func (n *Notifier) Dismiss(id string) bool {
	n.mu.Lock()
	if _, ok := n.records[id]; !ok {
		n.mu.Unlock()
		return false
	}
	delete(n.records, id)
	for i, live := range n.order {
		if live == id {
			n.order = append(n.order[:i], n.order[i+1:]...)
			break
		}
	}
	if timer, ok := n.timers[id]; ok {
		timer.Stop()
		delete(n.timers, id)
	}
	n.mu.Unlock()

	n.presenter.Hide(id)
	return true
}

// Active lists notifications that have not been dismissed, oldest first.
func (n *Notifier) Active() []Record {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]Record, 0, len(n.order))
	for _, id := range n.order {
		out = append(out, *n.records[id])
	}
	return out
}

// ConfirmDialog asks the user to choose one of actions. Without a dialog
// collaborator, or when the dialog fails, it returns ActionNone.
func (n *Notifier) ConfirmDialog(ctx context.Context, title, body string, actions []DialogAction) Action {
	if n.dialog == nil {
		if n.logger != nil {
			n.logger.Info("confirm dialog skipped", "title", title)
		}
		return ActionNone
	}
	choice, err := n.dialog.Confirm(ctx, title, body, actions)
	if err != nil {
		if n.logger != nil {
			n.logger.Warn("confirm dialog failed", "title", title, "error", err)
		}
		return ActionNone
	}
	for _, a := range actions {
		if a.ID == choice {
			return choice
		}
	}
	return ActionNone
}

func (n *Notifier) timeoutFor(severity Severity) time.Duration {
	switch severity {
	case SeverityInfo, SeveritySuccess:
		return n.shortTimeout
	case SeverityWarning:
		return n.longTimeout
	default:
		return 0
	}
}
