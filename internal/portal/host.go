package portal

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"
)

// LoadFunc runs after the host lands on a new page.
type LoadFunc func(ctx context.Context, page *Page)

// Host is a headless page host. Navigation is performed as an HTTP request;
// the host is unloading while any request is in flight and lands on the new
// page when it succeeds. A failed request leaves the current page in place,
// and a request overtaken by a newer navigation never lands.
type Host struct {
	client  *Client
	timeout time.Duration
	logger  *slog.Logger

	mu       sync.Mutex
	location string
	seq      uint64
	inFlight int
	onLoad   LoadFunc
}

// NewHost creates a host positioned at startURL.
func NewHost(client *Client, startURL string, timeout time.Duration, logger *slog.Logger) *Host {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Host{client: client, location: client.URL(startURL), timeout: timeout, logger: logger}
}

// OnLoad registers the page load callback.
func (h *Host) OnLoad(f LoadFunc) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onLoad = f
}

func (h *Host) Location() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.location
}

func (h *Host) Unloading() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.inFlight > 0
}

func (h *Host) Assign(url string) error { return h.navigate(http.MethodGet, url) }

// Replace has no history to rewrite, so it loads the page like Assign.
func (h *Host) Replace(url string) error { return h.navigate(http.MethodGet, url) }

func (h *Host) SubmitForm(url string) error { return h.navigate(http.MethodPost, url) }

// Load fetches url as the initial page without counting as navigation.
func (h *Host) Load(ctx context.Context, url string) error {
	return h.fetch(ctx, http.MethodGet, url)
}

func (h *Host) navigate(method, url string) error {
	ctx, cancel := context.WithTimeout(context.Background(), h.timeout)
	defer cancel()
	return h.fetch(ctx, method, url)
}

func (h *Host) fetch(ctx context.Context, method, url string) error {
	h.mu.Lock()
	h.seq++
	seq := h.seq
	h.inFlight++
	h.mu.Unlock()

	page, err := h.client.Fetch(ctx, method, url)

	h.mu.Lock()
	h.inFlight--
	if seq != h.seq {
		h.mu.Unlock()
		if h.logger != nil {
			h.logger.Debug("superseded page load dropped", "method", method, "url", url)
		}
		return nil
	}
	if err != nil {
		h.mu.Unlock()
		if h.logger != nil {
			h.logger.Warn("page load failed", "method", method, "url", url, "error", err)
		}
		return err
	}
	h.location = page.URL
	onLoad := h.onLoad
	h.mu.Unlock()

	if h.logger != nil {
		h.logger.Debug("page loaded", "url", page.URL, "status", page.StatusCode)
	}
	if onLoad != nil {
		onLoad(ctx, page)
	}
	return nil
}
