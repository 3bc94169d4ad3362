package submission

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/labspace/labnav/internal/clock"
	"github.com/labspace/labnav/internal/domain/feedback"
	"github.com/labspace/labnav/internal/domain/journal"
	"github.com/labspace/labnav/internal/metrics"
	"github.com/labspace/labnav/internal/store"
)

const (
	DefaultMaxAttempts = 3
	DefaultBaseDelay   = 250 * time.Millisecond
	DefaultBackupTTL   = 7 * 24 * time.Hour
)

// SleepFunc waits for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Options configures a Guard.
type Options struct {
	Transport Transport
	Store     *store.Store
	Feedback  *feedback.Notifier
	Journal   *journal.Service
	Control   Control

	// MaxAttempts counts the first request; only network errors are retried.
	MaxAttempts int
	// BaseDelay is the wait before the first retry; it doubles per retry.
	BaseDelay time.Duration
	// BackupTTL expires backups lazily on read.
	BackupTTL time.Duration

	Scheduler clock.Scheduler
	Sleep     SleepFunc
	Logger    *slog.Logger
	Metrics   *metrics.Metrics
}

// Guard submits code while keeping a local backup until the server confirms
// it. At most one submission per activity is in flight.
type Guard struct {
	transport Transport
	store     *store.Store
	feedback  *feedback.Notifier
	journal   *journal.Service
	control   Control

	maxAttempts int
	baseDelay   time.Duration
	backupTTL   time.Duration

	scheduler clock.Scheduler
	sleep     SleepFunc
	logger    *slog.Logger
	metrics   *metrics.Metrics

	mu       sync.Mutex
	inFlight map[string]bool

	// backupMu orders read-modify-write cycles on the backup slots so each
	// snapshot gets a distinct generation.
	backupMu sync.Mutex
}

// NewGuard creates a submission guard.
func NewGuard(opts Options) *Guard {
	g := &Guard{
		transport:   opts.Transport,
		store:       opts.Store,
		feedback:    opts.Feedback,
		journal:     opts.Journal,
		control:     opts.Control,
		maxAttempts: opts.MaxAttempts,
		baseDelay:   opts.BaseDelay,
		backupTTL:   opts.BackupTTL,
		scheduler:   opts.Scheduler,
		sleep:       opts.Sleep,
		logger:      opts.Logger,
		metrics:     opts.Metrics,
		inFlight:    make(map[string]bool),
	}
	if g.maxAttempts <= 0 {
		g.maxAttempts = DefaultMaxAttempts
	}
	if g.baseDelay <= 0 {
		g.baseDelay = DefaultBaseDelay
	}
	if g.backupTTL <= 0 {
		g.backupTTL = DefaultBackupTTL
	}
	if g.scheduler == nil {
		g.scheduler = clock.Real{}
	}
	if g.sleep == nil {
		g.sleep = sleepContext
	}
	if g.store == nil {
		g.store = store.New(store.Config{Logger: opts.Logger})
	}
	return g
}

// Submit backs up code, sends it, and classifies the result. Network errors
// are retried with exponential backoff; malformed and rejected responses are
// final. The backup is removed only on success.
//
// The returned error is non-nil only when the submission was not attempted:
// a missing activity id or another submission for the same activity in flight.
func (g *Guard) Submit(ctx context.Context, activityID, code, language string) (Outcome, error) {
	id := strings.TrimSpace(activityID)
	if id == "" {
		g.notify("Cannot submit: no activity was selected.", "", feedback.SeverityError)
		return Outcome{}, ErrInvalidActivityID
	}

	// The snapshot is written even when the request is not sent.
	g.backupMu.Lock()
	backup := g.writeBackupLocked(ctx, id, code, language, OriginPreSubmit)
	acquired := g.acquire(id)
	g.backupMu.Unlock()
	if !acquired {
		return Outcome{ActivityID: id, BackupRetained: true}, fmt.Errorf("activity %s: %w", id, ErrSubmissionInFlight)
	}
	defer g.release(id)
	g.setBusy(true)
	defer g.setBusy(false)

	return g.send(ctx, backup), nil
}

// Retry resends the snapshot whose submission last failed. When none was
// recorded it falls back to the retained backup.
func (g *Guard) Retry(ctx context.Context, activityID string) (Outcome, error) {
	id := strings.TrimSpace(activityID)
	if id == "" {
		return Outcome{}, ErrInvalidActivityID
	}
	backup, ok := g.failedSnapshot(ctx, id)
	if !ok {
		backup, ok = g.Backup(ctx, id)
	}
	if !ok {
		g.notify("There is no saved code to resubmit.", "", feedback.SeverityWarning)
		return Outcome{ActivityID: id}, fmt.Errorf("activity %s: %w", id, ErrNoBackup)
	}
	if !g.acquire(id) {
		return Outcome{ActivityID: id}, fmt.Errorf("activity %s: %w", id, ErrSubmissionInFlight)
	}
	defer g.release(id)
	g.setBusy(true)
	defer g.setBusy(false)

	return g.send(ctx, backup), nil
}

// AutoSave stores code in the activity's backup slot without submitting it.
func (g *Guard) AutoSave(ctx context.Context, activityID, code, language string) (Backup, error) {
	id := strings.TrimSpace(activityID)
	if id == "" {
		return Backup{}, ErrInvalidActivityID
	}
	g.backupMu.Lock()
	defer g.backupMu.Unlock()
	return g.writeBackupLocked(ctx, id, code, language, OriginAutoSave), nil
}

// Backup returns the retained backup for activityID. Backups older than the
// configured TTL are removed and reported missing.
func (g *Guard) Backup(ctx context.Context, activityID string) (Backup, bool) {
	g.backupMu.Lock()
	defer g.backupMu.Unlock()
	var backup Backup
	if !g.store.Get(ctx, store.Durable, BackupKey(activityID), &backup) {
		return Backup{}, false
	}
	if g.scheduler.Now().Sub(backup.SavedAt) > g.backupTTL {
		g.removeBackupLocked(ctx, activityID)
		if g.logger != nil {
			g.logger.Info("expired code backup removed", "activity_id", activityID, "saved_at", backup.SavedAt)
		}
		return Backup{}, false
	}
	return backup, true
}

// RestoreInto loads the retained backup into editor.
func (g *Guard) RestoreInto(ctx context.Context, activityID string, editor Editor) (Backup, error) {
	backup, ok := g.Backup(ctx, activityID)
	if !ok {
		return Backup{}, fmt.Errorf("activity %s: %w", activityID, ErrNoBackup)
	}
	editor.SetValue(backup.Code)
	return backup, nil
}

// InFlight reports whether a submission for activityID is running.
func (g *Guard) InFlight(activityID string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.inFlight[activityID]
}

func (g *Guard) send(ctx context.Context, backup Backup) Outcome {
	req := Request{ActivityID: backup.ActivityID, Code: backup.Code, Language: backup.Language}

	var result Result
	attempts := 0
	for {
		attempts++
		g.metrics.SubmissionAttempt()
		g.record(ctx, journal.TypeSubmissionAttempt, backup, "submission attempt", map[string]any{"attempt": attempts})

		resp, err := g.transport.Submit(ctx, req)
		result = Classify(resp, err)
		if result.Kind != KindNetworkError || attempts >= g.maxAttempts || ctx.Err() != nil {
			break
		}

		delay := g.baseDelay << (attempts - 1)
		if g.logger != nil {
			g.logger.Warn("submission network error, retrying",
				"activity_id", backup.ActivityID, "attempt", attempts, "delay", delay, "error", result.Diagnostic)
		}
		if err := g.sleep(ctx, delay); err != nil {
			break
		}
	}

	outcome := Outcome{
		Kind:        result.Kind,
		ActivityID:  backup.ActivityID,
		Message:     result.Message,
		ServerError: result.ServerError,
		Diagnostic:  result.Diagnostic,
		Attempts:    attempts,
	}
	g.metrics.SubmissionOutcome(string(result.Kind))

	if result.Kind == KindSuccess {
		g.clearBackupIf(ctx, backup)
		g.store.Remove(ctx, store.Durable, FailedKey(backup.ActivityID))
		g.record(ctx, journal.TypeSubmissionSucceeded, backup, "submission accepted", map[string]any{"attempts": attempts})
		message := "Your code was submitted."
		if result.Message != "" {
			message = result.Message
		}
		g.notify(message, "", feedback.SeveritySuccess)
		return outcome
	}

	outcome.BackupRetained = true
	g.store.Set(ctx, store.Durable, FailedKey(backup.ActivityID), backup)
	outcome.Actions = []RecoveryAction{ActionDownloadCode, ActionShowDetails, ActionRetry}
	g.record(ctx, journal.TypeSubmissionFailed, backup, string(result.Kind), outcome)
	if g.logger != nil {
		g.logger.Error("submission failed", "activity_id", backup.ActivityID, "kind", result.Kind,
			"attempts", attempts, "server_error", result.ServerError)
	}
	g.notify(failureMessage(outcome), details(outcome), feedback.SeverityError)
	return outcome
}

func failureMessage(o Outcome) string {
	const saved = " Your code is saved on this device; you can download it or try again."
	switch o.Kind {
	case KindServerRejected:
		if o.Message != "" {
			return "Submission rejected: " + strings.TrimRight(o.Message, ".") + "." + saved
		}
		return "The server rejected the submission." + saved
	case KindMalformedResponse:
		return "The server returned an unexpected response." + saved
	default:
		return fmt.Sprintf("Could not reach the server after %d attempts.", o.Attempts) + saved
	}
}

func details(o Outcome) string {
	if o.ServerError != "" {
		return o.ServerError
	}
	return o.Diagnostic
}

// writeBackupLocked must be called with backupMu held.
func (g *Guard) writeBackupLocked(ctx context.Context, id, code, language string, origin Origin) Backup {
	var previous Backup
	g.store.Get(ctx, store.Durable, BackupKey(id), &previous)
	backup := Backup{
		ActivityID: id,
		Code:       code,
		Language:   language,
		SavedAt:    g.scheduler.Now(),
		Generation: previous.Generation + 1,
		Origin:     origin,
	}
	if g.store.Set(ctx, store.Durable, BackupKey(id), backup) {
		g.store.Set(ctx, store.Durable, BackupTimeKey(id), backup.SavedAt)
	}
	return backup
}

// clearBackupIf removes the backup unless a newer one replaced it while the
// submission was in flight.
func (g *Guard) clearBackupIf(ctx context.Context, sent Backup) {
	g.backupMu.Lock()
	defer g.backupMu.Unlock()
	var current Backup
	if g.store.Get(ctx, store.Durable, BackupKey(sent.ActivityID), &current) && current.Generation != sent.Generation {
		return
	}
	g.removeBackupLocked(ctx, sent.ActivityID)
}

// failedSnapshot returns the snapshot of the last failed submission unless it
// has outlived the backup TTL.
func (g *Guard) failedSnapshot(ctx context.Context, id string) (Backup, bool) {
	var snapshot Backup
	if !g.store.Get(ctx, store.Durable, FailedKey(id), &snapshot) {
		return Backup{}, false
	}
	if g.scheduler.Now().Sub(snapshot.SavedAt) > g.backupTTL {
		g.store.Remove(ctx, store.Durable, FailedKey(id))
		return Backup{}, false
	}
	return snapshot, true
}

func (g *Guard) removeBackupLocked(ctx context.Context, id string) {
	g.store.Remove(ctx, store.Durable, BackupKey(id))
	g.store.Remove(ctx, store.Durable, BackupTimeKey(id))
}

func (g *Guard) acquire(id string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.inFlight[id] {
		return false
	}
	g.inFlight[id] = true
	return true
}

func (g *Guard) release(id string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.inFlight, id)
}

func (g *Guard) setBusy(busy bool) {
	if g.control != nil {
		g.control.SetBusy(busy)
	}
}

func (g *Guard) notify(message, details string, severity feedback.Severity) {
	if g.feedback != nil {
		g.feedback.NotifyDetails(message, details, severity)
	}
}

func (g *Guard) record(ctx context.Context, typ journal.EventType, backup Backup, summary string, details any) {
	g.journal.Record(ctx, journal.Event{
		Type:       typ,
		ActivityID: backup.ActivityID,
		Summary:    summary,
		Generation: backup.Generation,
	}, details)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
