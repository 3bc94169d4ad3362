package navigation

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/labspace/labnav/internal/clock"
	"github.com/labspace/labnav/internal/domain/activity"
	"github.com/labspace/labnav/internal/domain/feedback"
	"github.com/labspace/labnav/internal/domain/journal"
	"github.com/labspace/labnav/internal/metrics"
	"github.com/labspace/labnav/internal/session"
	"github.com/labspace/labnav/internal/store"
)

const DefaultStallWindow = 500 * time.Millisecond

// DefaultStepTimeouts are the waits after each fallback step.
var DefaultStepTimeouts = []time.Duration{200 * time.Millisecond, 400 * time.Millisecond, 600 * time.Millisecond}

// Dialog actions offered when a navigation cannot complete.
const (
	ActionNavigateNow   feedback.Action = "navigate_now"
	ActionEmergencyView feedback.Action = "emergency_view"
	ActionDismiss       feedback.Action = "dismiss"
)

type fallbackStep struct {
	name string
	run  func(h Host, url string) error
}

// The fallback ladder, in order of increasing force.
var ladder = []fallbackStep{
	{name: "retry", run: func(h Host, url string) error { return h.Assign(url) }},
	{name: "replace", run: func(h Host, url string) error { return h.Replace(url) }},
	{name: "form_submit", run: func(h Host, url string) error { return h.SubmitForm(url) }},
}

// Options configures a Controller.
type Options struct {
	Host     Host
	Resolver *Resolver
	Store    *store.Store
	Session  session.Context
	Registry *activity.Registry
	Feedback *feedback.Notifier
	Journal  *journal.Service

	Scheduler    clock.Scheduler
	StallWindow  time.Duration
	StepTimeouts []time.Duration
	HistoryLimit int

	Logger  *slog.Logger
	Metrics *metrics.Metrics
}

// Controller opens activities and recovers navigations that do not take
// effect. One Controller serves one page.
//
// Every navigation captures a generation number. Starting another navigation,
// or observing a page load, advances the generation; scheduled callbacks from
// older generations are dropped.
type Controller struct {
	host     Host
	resolver *Resolver
	store    *store.Store
	session  session.Context
	registry *activity.Registry
	feedback *feedback.Notifier
	journal  *journal.Service

	scheduler    clock.Scheduler
	stallWindow  time.Duration
	stepTimeouts []time.Duration
	historyLimit int

	logger  *slog.Logger
	metrics *metrics.Metrics

	mu         sync.Mutex
	generation uint64
	phase      Phase
	timer      clock.Timer
}

// NewController creates a navigation controller.
func NewController(opts Options) *Controller {
	c := &Controller{
		host:         opts.Host,
		resolver:     opts.Resolver,
		store:        opts.Store,
		session:      opts.Session,
		registry:     opts.Registry,
		feedback:     opts.Feedback,
		journal:      opts.Journal,
		scheduler:    opts.Scheduler,
		stallWindow:  opts.StallWindow,
		historyLimit: opts.HistoryLimit,
		logger:       opts.Logger,
		metrics:      opts.Metrics,
		phase:        PhaseIdle,
	}
	if c.scheduler == nil {
		c.scheduler = clock.Real{}
	}
	if c.stallWindow <= 0 {
		c.stallWindow = DefaultStallWindow
	}
	if c.historyLimit <= 0 {
		c.historyLimit = DefaultHistoryLimit
	}
	if c.store == nil {
		c.store = store.New(store.Config{Logger: opts.Logger})
	}
	if c.resolver == nil {
		c.resolver = NewResolver(Endpoints{})
	}
	c.stepTimeouts = make([]time.Duration, len(ladder))
	for i := range ladder {
		c.stepTimeouts[i] = DefaultStepTimeouts[i]
		if i < len(opts.StepTimeouts) && opts.StepTimeouts[i] > 0 {
			c.stepTimeouts[i] = opts.StepTimeouts[i]
		}
	}
	return c
}

// Phase returns the controller's current state.
func (c *Controller) Phase() Phase {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.phase
}

// ResolveURL returns the view URL NavigateTo would open for id.
func (c *Controller) ResolveURL(id string) string {
	return c.resolver.Resolve(id, c.session.EffectiveRole(c.host.Location()))
}

// NavigateTo opens the activity view for activityID. A blank id is reported to
// the user and returns ErrInvalidActivityID without navigating. If the page is
// still resident after the stall window, the fallback ladder runs and, when it
// is exhausted, the user is offered manual recovery.
func (c *Controller) NavigateTo(ctx context.Context, activityID string) error {
	id := strings.TrimSpace(activityID)
	if id == "" {
		return c.invalidID("navigate")
	}
	return c.start(ctx, id, c.ResolveURL(id), true)
}

// NavigateNow opens the resolved view for activityID immediately, without
// stall detection. It is the manual recovery action.
func (c *Controller) NavigateNow(ctx context.Context, activityID string) error {
	id := strings.TrimSpace(activityID)
	if id == "" {
		return c.invalidID("navigate now")
	}
	return c.start(ctx, id, c.ResolveURL(id), false)
}

// OpenEmergencyView opens the degraded direct-access view for activityID.
func (c *Controller) OpenEmergencyView(ctx context.Context, activityID string) error {
	id := strings.TrimSpace(activityID)
	if id == "" {
		return c.invalidID("open emergency view")
	}
	return c.start(ctx, id, c.resolver.Emergency(id), false)
}

func (c *Controller) invalidID(op string) error {
	if c.logger != nil {
		c.logger.Warn("navigation request without activity id", "op", op)
	}
	c.notify("Cannot open the activity: no activity was selected.", "", feedback.SeverityError)
	return fmt.Errorf("%s: %w", op, ErrInvalidActivityID)
}

func (c *Controller) start(ctx context.Context, id, target string, detectStall bool) error {
	bg := context.WithoutCancel(ctx)

	c.mu.Lock()
	gen := c.supersedeLocked()
	c.phase = PhasePersisting
	c.persistAttemptLocked(ctx, id, target)
	c.phase = PhaseNavigating
	c.mu.Unlock()

	c.metrics.NavigationStarted()
	c.record(ctx, journal.TypeNavigationStarted, gen, id, target, "navigation started", nil)
	if c.logger != nil {
		c.logger.Info("navigating to activity", "activity_id", id, "url", target, "generation", gen)
	}

	if !c.isCurrent(gen) {
		return nil
	}
	if err := c.host.Assign(target); err != nil && c.logger != nil {
		c.logger.Warn("navigation did not start", "activity_id", id, "url", target, "error", err)
	}

	if detectStall {
		c.schedule(gen, c.stallWindow, func() { c.onStall(bg, gen, id, target) })
	}
	return nil
}

// supersedeLocked starts a new generation and cancels pending callbacks.
func (c *Controller) supersedeLocked() uint64 {
	c.generation++
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	c.phase = PhaseResolving
	return c.generation
}

func (c *Controller) isCurrent(gen uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return gen == c.generation
}

func (c *Controller) schedule(gen uint64, d time.Duration, f func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.generation {
		return
	}
	c.timer = c.scheduler.AfterFunc(d, f)
}

// resident reports whether the attempt of generation gen still owns the page.
func (c *Controller) resident(gen uint64) bool {
	return !c.host.Unloading() && c.isCurrent(gen)
}

func (c *Controller) onStall(ctx context.Context, gen uint64, id, target string) {
	if !c.resident(gen) {
		return
	}
	c.mu.Lock()
	if gen != c.generation {
		c.mu.Unlock()
		return
	}
	c.phase = PhaseStalled
	c.setStatusLocked(ctx, StatusStalled)
	c.mu.Unlock()

	if c.logger != nil {
		c.logger.Warn("navigation stalled", "activity_id", id, "url", target, "window", c.stallWindow)
	}
	c.runStep(ctx, gen, 0, id, target)
}

func (c *Controller) runStep(ctx context.Context, gen uint64, i int, id, target string) {
	if !c.resident(gen) {
		return
	}
	step := ladder[i]
	c.metrics.FallbackStep(step.name)
	c.record(ctx, journal.TypeFallbackStep, gen, id, target, "fallback "+step.name, map[string]any{"step": i + 1})
	if err := step.run(c.host, target); err != nil && c.logger != nil {
		c.logger.Warn("fallback step failed", "step", step.name, "activity_id", id, "error", err)
	}
	c.schedule(gen, c.stepTimeouts[i], func() { c.afterStep(ctx, gen, i, id, target) })
}

func (c *Controller) afterStep(ctx context.Context, gen uint64, i int, id, target string) {
	if !c.resident(gen) {
		return
	}
	if i+1 < len(ladder) {
		c.runStep(ctx, gen, i+1, id, target)
		return
	}
	c.escalate(ctx, gen, id, target)
}

func (c *Controller) escalate(ctx context.Context, gen uint64, id, target string) {
	c.mu.Lock()
	if gen != c.generation {
		c.mu.Unlock()
		return
	}
	c.phase = PhaseEscalated
	c.timer = nil
	c.setStatusLocked(ctx, StatusEscalated)
	c.mu.Unlock()

	c.metrics.Escalated()
	c.record(ctx, journal.TypeNavigationEscalated, gen, id, target, "fallbacks exhausted", nil)
	if c.logger != nil {
		c.logger.Error("navigation escalated", "activity_id", id, "url", target)
	}

	title := c.title(id)
	c.notify(fmt.Sprintf("%s did not open.", title), target, feedback.SeverityError)
	choice := c.confirm(ctx, "Activity did not open",
		fmt.Sprintf("The browser did not leave this page while opening %s. You can try again or open the emergency view.", title),
		[]feedback.DialogAction{
			{ID: ActionNavigateNow, Label: "Navigate now"},
			{ID: ActionEmergencyView, Label: "Open emergency view"},
			{ID: ActionDismiss, Label: "Dismiss"},
		})
	if !c.isCurrent(gen) {
		return
	}
	switch choice {
	case ActionNavigateNow:
		_ = c.NavigateNow(ctx, id)
	case ActionEmergencyView:
		_ = c.OpenEmergencyView(ctx, id)
	}
}

// CheckArrival runs on every page load with the URL of the loaded page. A page
// for the activity last navigated to confirms the attempt and clears the
// navigation state; history is kept. A page without an activity id, loaded
// after an attempt stalled or escalated, gets a one-time recovery prompt.
func (c *Controller) CheckArrival(ctx context.Context, pageURL string) Arrival {
	pageID := ActivityIDFromURL(pageURL)

	c.mu.Lock()
	gen := c.supersedeLocked()
	var lastID string
	c.store.Get(ctx, store.Durable, KeyLastActivityID, &lastID)
	var attempt Attempt
	hasAttempt := c.store.Get(ctx, store.Durable, KeyLastPageAttempt, &attempt)
	if lastID == "" {
		lastID = attempt.ActivityID
	}

	switch {
	case lastID == "":
		c.phase = PhaseIdle
		c.mu.Unlock()
		return Arrival{Outcome: ArrivalNone}

	case pageID != "" && pageID == lastID:
		c.clearLocked(ctx)
		c.phase = PhaseConfirmed
		c.mu.Unlock()
		c.metrics.Arrived()
		c.record(ctx, journal.TypeArrivalConfirmed, gen, lastID, pageURL, "arrival confirmed", nil)
		if c.logger != nil {
			c.logger.Info("navigation confirmed", "activity_id", lastID, "url", pageURL)
		}
		return Arrival{Outcome: ArrivalConfirmed, ActivityID: lastID}

	case pageID == "" && hasAttempt && attempt.Troubled() && !attempt.Prompted:
		attempt.Prompted = true
		c.store.Set(ctx, store.Durable, KeyLastPageAttempt, attempt)
		c.phase = PhaseRecovering
		c.mu.Unlock()
		c.offerRecovery(ctx, gen, lastID, attempt)
		return Arrival{Outcome: ArrivalRecoveryOffered, ActivityID: lastID}

	default:
		c.phase = PhaseIdle
		c.mu.Unlock()
		return Arrival{Outcome: ArrivalPending, ActivityID: lastID}
	}
}

func (c *Controller) offerRecovery(ctx context.Context, gen uint64, id string, attempt Attempt) {
	c.record(ctx, journal.TypeRecoveryOffered, gen, id, attempt.URL, "recovery offered", map[string]any{"status": attempt.Status})
	title := c.title(id)
	c.notify(fmt.Sprintf("Opening %s did not finish last time.", title), attempt.URL, feedback.SeverityWarning)

	choice := c.confirm(ctx, "Resume activity?",
		fmt.Sprintf("%s did not open on your last attempt. Open it now?", title),
		[]feedback.DialogAction{
			{ID: ActionNavigateNow, Label: "Open activity"},
			{ID: ActionEmergencyView, Label: "Open emergency view"},
			{ID: ActionDismiss, Label: "Dismiss"},
		})
	if !c.isCurrent(gen) {
		return
	}
	switch choice {
	case ActionNavigateNow:
		_ = c.NavigateTo(ctx, id)
	case ActionEmergencyView:
		_ = c.OpenEmergencyView(ctx, id)
	case ActionDismiss:
		c.DismissRecovery(ctx)
	}
}

// DismissRecovery clears the navigation state without touching history. It
// reports whether there was anything to clear.
func (c *Controller) DismissRecovery(ctx context.Context) bool {
	c.mu.Lock()
	gen := c.supersedeLocked()
	var lastID string
	c.store.Get(ctx, store.Durable, KeyLastActivityID, &lastID)
	var attempt Attempt
	hasAttempt := c.store.Get(ctx, store.Durable, KeyLastPageAttempt, &attempt)
	c.clearLocked(ctx)
	c.phase = PhaseIdle
	c.mu.Unlock()

	if lastID == "" && !hasAttempt {
		return false
	}
	if lastID == "" {
		lastID = attempt.ActivityID
	}
	c.record(ctx, journal.TypeRecoveryDismissed, gen, lastID, attempt.URL, "recovery dismissed", nil)
	return true
}

// State returns the persisted navigation state.
func (c *Controller) State(ctx context.Context) State {
	c.mu.Lock()
	defer c.mu.Unlock()
	state := State{Phase: c.phase}
	c.store.Get(ctx, store.Durable, KeyLastActivityID, &state.LastActivityID)
	var attempt Attempt
	if c.store.Get(ctx, store.Durable, KeyLastPageAttempt, &attempt) {
		state.LastAttemptURL = attempt.URL
		state.AttemptTimestamp = attempt.Timestamp
		state.Status = attempt.Status
		state.Prompted = attempt.Prompted
	}
	if !c.store.Get(ctx, store.Durable, KeyActivityHistory, &state.History) || state.History == nil {
		state.History = []string{}
	}
	return state
}

// History returns the recently visited activity ids, most recent first.
func (c *Controller) History(ctx context.Context) []string {
	return c.State(ctx).History
}

func (c *Controller) persistAttemptLocked(ctx context.Context, id, target string) {
	attempt := Attempt{
		ActivityID: id,
		URL:        target,
		Timestamp:  c.scheduler.Now(),
		Status:     StatusPending,
	}
	c.store.Set(ctx, store.Durable, KeyLastActivityID, id)
	c.store.Set(ctx, store.Durable, KeyLastPageAttempt, attempt)

	var history []string
	c.store.Get(ctx, store.Durable, KeyActivityHistory, &history)
	c.store.Set(ctx, store.Durable, KeyActivityHistory, PushHistory(history, id, c.historyLimit))
}

func (c *Controller) setStatusLocked(ctx context.Context, status AttemptStatus) {
	var attempt Attempt
	if !c.store.Get(ctx, store.Durable, KeyLastPageAttempt, &attempt) {
		return
	}
	attempt.Status = status
	c.store.Set(ctx, store.Durable, KeyLastPageAttempt, attempt)
}

func (c *Controller) clearLocked(ctx context.Context) {
	c.store.Remove(ctx, store.Durable, KeyLastActivityID)
	c.store.Remove(ctx, store.Durable, KeyLastPageAttempt)
}

func (c *Controller) title(id string) string {
	if c.registry != nil {
		if d, ok := c.registry.Resolve(id); ok {
			return d.Title
		}
	}
	return activity.DisplayTitle(id, "")
}

func (c *Controller) notify(message, details string, severity feedback.Severity) {
	if c.feedback != nil {
		c.feedback.NotifyDetails(message, details, severity)
	}
}

func (c *Controller) confirm(ctx context.Context, title, body string, actions []feedback.DialogAction) feedback.Action {
	if c.feedback == nil {
		return feedback.ActionNone
	}
	return c.feedback.ConfirmDialog(ctx, title, body, actions)
}

func (c *Controller) record(ctx context.Context, typ journal.EventType, gen uint64, id, url, summary string, details any) {
	c.journal.Record(ctx, journal.Event{
		Type:       typ,
		ActivityID: id,
		URL:        url,
		Summary:    summary,
		Generation: gen,
	}, details)
}
