// Package app assembles the components that serve one page: activity
// registry, feedback, navigation and submission. Components are constructed
// explicitly and shared only through the Page value.
package app

import (
	"context"
	"log/slog"

	"github.com/labspace/labnav/internal/clock"
	"github.com/labspace/labnav/internal/config"
	"github.com/labspace/labnav/internal/domain/activity"
	"github.com/labspace/labnav/internal/domain/feedback"
	"github.com/labspace/labnav/internal/domain/journal"
	"github.com/labspace/labnav/internal/domain/navigation"
	"github.com/labspace/labnav/internal/domain/submission"
	"github.com/labspace/labnav/internal/metrics"
	"github.com/labspace/labnav/internal/portal"
	"github.com/labspace/labnav/internal/session"
	"github.com/labspace/labnav/internal/store"
)

// KeyActivityCatalog caches the registered activities for the session so a
// restarted client can title activities before the first page load.
const KeyActivityCatalog = "activity_catalog"

// Options carries the page's collaborators.
type Options struct {
	Config  config.Config
	Store   *store.Store
	Journal *journal.Service
	Metrics *metrics.Metrics
	Session session.Context

	Host      navigation.Host
	Transport submission.Transport
	Presenter feedback.Presenter
	Dialog    feedback.Dialog
	Control   submission.Control

	Scheduler clock.Scheduler
	Sleep     submission.SleepFunc
	Logger    *slog.Logger
}

// Page is the component set of one page.
type Page struct {
	Registry   *activity.Registry
	Feedback   *feedback.Notifier
	Navigation *navigation.Controller
	Submission *submission.Guard
	Journal    *journal.Service

	store  *store.Store
	logger *slog.Logger
}

// NewPage builds the components for a page.
func NewPage(opts Options) *Page {
	cfg := opts.Config
	registry := activity.NewRegistry()
	if opts.Store != nil {
		var cached []activity.Descriptor
		if opts.Store.Get(context.Background(), store.Volatile, KeyActivityCatalog, &cached) {
			registry.RegisterAll(cached)
		}
	}
	notifier := feedback.New(feedback.Options{
		ShortTimeout: cfg.Feedback.ShortTimeout,
		LongTimeout:  cfg.Feedback.LongTimeout,
		Presenter:    opts.Presenter,
		Dialog:       opts.Dialog,
		Scheduler:    opts.Scheduler,
		Logger:       opts.Logger,
		Metrics:      opts.Metrics,
	})
	controller := navigation.NewController(navigation.Options{
		Host:         opts.Host,
		Resolver:     navigation.NewResolver(Endpoints(cfg.Portal)),
		Store:        opts.Store,
		Session:      opts.Session,
		Registry:     registry,
		Feedback:     notifier,
		Journal:      opts.Journal,
		Scheduler:    opts.Scheduler,
		StallWindow:  cfg.Navigation.StallWindow,
		StepTimeouts: cfg.Navigation.StepTimeouts,
		HistoryLimit: cfg.Navigation.HistoryLimit,
		Logger:       opts.Logger,
		Metrics:      opts.Metrics,
	})
	guard := submission.NewGuard(submission.Options{
		Transport:   opts.Transport,
		Store:       opts.Store,
		Feedback:    notifier,
		Journal:     opts.Journal,
		Control:     opts.Control,
		MaxAttempts: cfg.Submission.MaxAttempts,
		BaseDelay:   cfg.Submission.BaseDelay,
		BackupTTL:   cfg.Submission.BackupTTL,
		Scheduler:   opts.Scheduler,
		Sleep:       opts.Sleep,
		Logger:      opts.Logger,
		Metrics:     opts.Metrics,
	})
	return &Page{
		Registry:   registry,
		Feedback:   notifier,
		Navigation: controller,
		Submission: guard,
		Journal:    opts.Journal,
		store:      opts.Store,
		logger:     opts.Logger,
	}
}

// Load handles a page load: it registers the activities the page renders and
// runs the arrival check for the page URL.
func (p *Page) Load(ctx context.Context, pageURL string, body []byte) navigation.Arrival {
	if len(body) > 0 {
		descriptors, err := activity.ParsePageData(body)
		switch {
		case err == nil:
			n := p.Registry.RegisterAll(descriptors)
			if n > 0 && p.store != nil {
				p.store.Set(ctx, store.Volatile, KeyActivityCatalog, p.Registry.All())
			}
			if p.logger != nil {
				p.logger.Debug("activities registered", "url", pageURL, "count", n)
			}
		case p.logger != nil:
			p.logger.Debug("page has no activity data", "url", pageURL, "error", err)
		}
	}
	return p.Navigation.CheckArrival(ctx, pageURL)
}

// Endpoints maps portal configuration to navigation endpoints.
func Endpoints(cfg config.PortalConfig) navigation.Endpoints {
	return navigation.Endpoints{
		BaseURL:       cfg.BaseURL,
		StudentView:   cfg.StudentViewPath,
		TeacherEdit:   cfg.TeacherEditPath,
		DirectView:    cfg.DirectViewPath,
		EmergencyView: cfg.EmergencyViewPath,
	}
}

// NewHeadless wires a page to a headless HTTP host on the portal. Every page
// the host lands on is fed back through Page.Load.
func NewHeadless(opts Options, client *portal.Client) (*Page, *portal.Host) {
	host := portal.NewHost(client, client.ActivityListURL(), opts.Config.Navigation.RequestTimeout, opts.Logger)
	opts.Host = host
	if opts.Transport == nil {
		opts.Transport = client
	}
	page := NewPage(opts)
	host.OnLoad(func(ctx context.Context, pg *portal.Page) {
		page.Load(ctx, pg.URL, pg.Body)
	})
	return page, host
}
