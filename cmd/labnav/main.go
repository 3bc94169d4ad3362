package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/labspace/labnav/internal/app"
	"github.com/labspace/labnav/internal/config"
	"github.com/labspace/labnav/internal/domain/feedback"
	"github.com/labspace/labnav/internal/domain/journal"
	"github.com/labspace/labnav/internal/mcp"
	"github.com/labspace/labnav/internal/metrics"
	"github.com/labspace/labnav/internal/portal"
	"github.com/labspace/labnav/internal/repository"
	"github.com/labspace/labnav/internal/session"
	"github.com/labspace/labnav/internal/sqlite"
	"github.com/labspace/labnav/internal/store"
	"github.com/labspace/labnav/internal/transport"
)

const version = "0.1.0"

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}

	// Use stderr for logs in stdio mode to keep stdout clean for JSON-RPC.
	logWriter := io.Writer(os.Stdout)
	if cfg.Transport.Mode == "stdio" {
		logWriter = os.Stderr
	}
	if logPath := os.Getenv("LABNAV_LOG_PATH"); logPath != "" {
		fileWriter, file, err := newLogFileWriter(logPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "log file error: %v\n", err)
		} else {
			defer file.Close()
			logWriter = fileWriter
		}
	}
	logger := slog.New(slog.NewTextHandler(logWriter, &slog.HandlerOptions{
		Level: parseLogLevel(cfg.Log.Level),
	}))

	if err := ensureDBDir(cfg.Store.DurablePath); err != nil {
		logger.Error("failed to prepare database path", "error", err)
		os.Exit(1)
	}

	db, err := sqlite.New(cfg.Store.DurablePath)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := db.RunMigrations(); err != nil {
		logger.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}

	var volatile repository.KVRepository
	if cfg.Store.RedisAddr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.Store.RedisAddr,
			Password: cfg.Store.RedisPassword,
		})
		pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err := redisClient.Ping(pingCtx).Err()
		cancel()
		if err != nil {
			// The volatile tier is optional; fall back to process memory.
			logger.Warn("redis unavailable, volatile tier kept in memory", "addr", cfg.Store.RedisAddr, "error", err)
			_ = redisClient.Close()
		} else {
			defer func() {
				if err := redisClient.Close(); err != nil {
					logger.Warn("redis close error", "error", err)
				}
			}()
			volatile = store.NewRedisRepository(redisClient, "labnav:", cfg.Store.VolatileTTL)
		}
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(registry)

	kv := store.New(store.Config{
		Durable:       sqlite.NewKVRepository(db),
		Volatile:      volatile,
		MaxValueBytes: cfg.Store.MaxValueBytes,
		Logger:        logger,
		Metrics:       m,
	})
	events := journal.NewService(sqlite.NewJournalRepository(db), logger)

	sess, err := session.New(cfg.Session.Role, cfg.Session.Token, cfg.Session.JWTSecret)
	if err != nil {
		logger.Error("invalid session token", "error", err)
		os.Exit(1)
	}
	logger.Info("session resolved", "user_id", sess.UserID, "role", sess.Role)

	client := portal.NewClient(cfg.Portal.BaseURL, portal.Paths{
		Submit:       cfg.Portal.SubmitPath,
		ActivityList: cfg.Portal.ActivityListPath,
	},
		portal.WithHTTPClient(&http.Client{Timeout: cfg.Submission.Timeout}),
		portal.WithSessionToken(cfg.Session.Token),
	)

	page, host := app.NewHeadless(app.Options{
		Config:    cfg,
		Store:     kv,
		Journal:   events,
		Metrics:   m,
		Session:   sess,
		Presenter: feedback.LogPresenter{Logger: logger},
		Logger:    logger,
	}, client)

	loadCtx, cancel := context.WithTimeout(context.Background(), cfg.Navigation.RequestTimeout)
	if err := host.Load(loadCtx, client.ActivityListURL()); err != nil {
		logger.Warn("initial page load failed", "url", client.ActivityListURL(), "error", err)
	}
	cancel()

	services := mcp.Services{
		Navigation: page.Navigation,
		Pages:      page,
		Registry:   page.Registry,
		Submission: page.Submission,
		Feedback:   page.Feedback,
		Journal:    page.Journal,
	}
	resolver := transport.APIKeyResolver{Key: cfg.Server.APIKey}
	mcpServer := mcp.NewServer(mcp.Config{
		Services:      services,
		Resolver:      resolver,
		AuthEnabled:   cfg.Server.APIKey != "",
		TransportMode: cfg.Transport.Mode,
		Version:       version,
		Logger:        logger,
	})

	// Branch based on transport mode
	if cfg.Transport.Mode == "stdio" {
		runStdioMode(logger, mcpServer)
	} else {
		var auth func(http.Handler) http.Handler
		if cfg.Server.APIKey != "" {
			auth = transport.AuthMiddleware(resolver)
		} else {
			logger.Warn("no api key configured, http endpoints are unauthenticated")
		}
		runHTTPMode(logger, mcpServer, transport.Options{
			Handler: mcp.NewHandler(services),
			Auth:    auth,
			Metrics: promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
			Logger:  logger,
		}, cfg.Server.Host, cfg.Server.Port)
	}
}

func runStdioMode(logger *slog.Logger, mcpServer *sdkmcp.Server) {
	logger.Info("starting stdio transport", "auth", "disabled")

	transport := &sdkmcp.StdioTransport{}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-stop
		logger.Info("shutting down")
		cancel()
	}()

	// Run blocks until stdin closes or context is canceled
	if err := mcpServer.Run(ctx, transport); err != nil {
		logger.Error("stdio server error", "error", err)
		os.Exit(1)
	}
}

func runHTTPMode(logger *slog.Logger, mcpServer *sdkmcp.Server, opts transport.Options, host string, port int) {
	opts.MCP = sdkmcp.NewStreamableHTTPHandler(
		func(r *http.Request) *sdkmcp.Server { return mcpServer },
		&sdkmcp.StreamableHTTPOptions{
			Stateless:      false,
			SessionTimeout: 30 * time.Minute,
		},
	)

	addr := fmt.Sprintf("%s:%d", host, port)
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           transport.NewServer(opts),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
		}
	}()

	waitForShutdown(logger, httpServer)
}

func ensureDBDir(path string) error {
	if path == ":memory:" || path == "" {
		return nil
	}
	dir := filepath.Dir(path)
	if dir == "." {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}

func waitForShutdown(logger *slog.Logger, server *http.Server) {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	logger.Info("shutting down")
	if err := server.Shutdown(ctx); err != nil {
		logger.Error("shutdown error", "error", err)
	}
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
