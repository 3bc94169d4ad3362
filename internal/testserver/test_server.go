package testserver

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/stretchr/testify/require"

	"github.com/labspace/labnav/internal/app"
	"github.com/labspace/labnav/internal/clock"
	"github.com/labspace/labnav/internal/config"
	"github.com/labspace/labnav/internal/domain/feedback"
	"github.com/labspace/labnav/internal/domain/journal"
	"github.com/labspace/labnav/internal/mcp"
	"github.com/labspace/labnav/internal/metrics"
	"github.com/labspace/labnav/internal/portal"
	"github.com/labspace/labnav/internal/session"
	"github.com/labspace/labnav/internal/sqlite"
	"github.com/labspace/labnav/internal/store"
	"github.com/labspace/labnav/internal/transport"
)

// SessionToken is the portal session token the daemon forwards.
const SessionToken = "portal-session"

// TestServer is a labnav daemon driving a fake portal. Timers run on a manual
// clock so tests decide when stall windows and notification timeouts elapse.
type TestServer struct {
	Server *httptest.Server
	Portal *Portal
	DB     *sqlite.DB
	Store  *store.Store
	Config config.Config
	Page   *app.Page
	Host   *portal.Host
	Clock  *clock.Manual
	Token  string
}

// New starts a daemon for a student session, authenticated with apiKey.
func New(t *testing.T, apiKey string) *TestServer {
	t.Helper()
	return NewWithConfig(t, apiKey, nil)
}

// NewWithConfig is New with a hook to adjust the configuration before wiring.
func NewWithConfig(t *testing.T, apiKey string, configure func(*config.Config)) *TestServer {
	t.Helper()
	ctx := context.Background()

	fake := NewPortal(t)

	cfg := config.Default()
	cfg.Portal = fake.Paths
	cfg.Session.Role = string(session.RoleStudent)
	if configure != nil {
		configure(&cfg)
	}

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := sqlite.New(dsn)
	require.NoError(t, err)
	require.NoError(t, db.RunMigrations())

	registry := prometheus.NewRegistry()
	m := metrics.New(registry)
	kv := store.New(store.Config{
		Durable:       sqlite.NewKVRepository(db),
		MaxValueBytes: cfg.Store.MaxValueBytes,
		Metrics:       m,
	})
	events := journal.NewService(sqlite.NewJournalRepository(db), nil)

	sess, err := session.New(cfg.Session.Role, cfg.Session.Token, cfg.Session.JWTSecret)
	require.NoError(t, err)

	manual := clock.NewManual(time.Date(2026, 1, 5, 9, 0, 0, 0, time.UTC))
	client := portal.NewClient(cfg.Portal.BaseURL, portal.Paths{
		Submit:       cfg.Portal.SubmitPath,
		ActivityList: cfg.Portal.ActivityListPath,
	}, portal.WithSessionToken(SessionToken))

	page, host := app.NewHeadless(app.Options{
		Config:    cfg,
		Store:     kv,
		Journal:   events,
		Metrics:   m,
		Session:   sess,
		Presenter: feedback.LogPresenter{},
		Scheduler: manual,
		Sleep:     func(context.Context, time.Duration) error { return nil },
	}, client)

	services := mcp.Services{
		Navigation: page.Navigation,
		Pages:      page,
		Registry:   page.Registry,
		Submission: page.Submission,
		Feedback:   page.Feedback,
		Journal:    page.Journal,
	}
	resolver := transport.APIKeyResolver{Key: apiKey, Caller: "test"}
	mcpServer := mcp.NewServer(mcp.Config{
		Services:      services,
		Resolver:      resolver,
		AuthEnabled:   true,
		TransportMode: "http",
	})
	mcpHandler := sdkmcp.NewStreamableHTTPHandler(
		func(*http.Request) *sdkmcp.Server { return mcpServer },
		&sdkmcp.StreamableHTTPOptions{SessionTimeout: time.Minute},
	)

	server := httptest.NewServer(transport.NewServer(transport.Options{
		Handler: mcp.NewHandler(services),
		Auth:    transport.AuthMiddleware(resolver),
		MCP:     mcpHandler,
		Metrics: promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
	}))

	require.NoError(t, host.Load(ctx, client.ActivityListURL()))

	t.Cleanup(func() {
		server.Close()
		_ = db.Close()
	})

	return &TestServer{
		Server: server,
		Portal: fake,
		DB:     db,
		Store:  kv,
		Config: cfg,
		Page:   page,
		Host:   host,
		Clock:  manual,
		Token:  apiKey,
	}
}
