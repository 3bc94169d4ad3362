// Package portal talks to the LabSpace web server: it posts submissions and
// fetches pages for the headless host.
package portal

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/labspace/labnav/internal/domain/submission"
)

// maxBodyBytes bounds how much of a response is read.
const maxBodyBytes = 2 << 20

// Paths are the portal endpoints the client calls directly.
type Paths struct {
	Submit       string
	ActivityList string
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets the underlying HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(p *Client) {
		p.http = c
	}
}

// WithSessionToken forwards the user's portal session token as a bearer token.
func WithSessionToken(token string) Option {
	return func(p *Client) {
		p.token = token
	}
}

// Client is an HTTP client for the LabSpace portal.
type Client struct {
	baseURL string
	paths   Paths
	token   string
	http    *http.Client
}

// NewClient creates a portal client rooted at baseURL.
func NewClient(baseURL string, paths Paths, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		paths:   paths,
		http:    &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// URL resolves ref against the portal base URL.
func (c *Client) URL(ref string) string {
	base, err := url.Parse(c.baseURL + "/")
	if err != nil {
		return ref
	}
	rel, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	if rel.IsAbs() {
		return rel.String()
	}
	if strings.HasPrefix(ref, "/") {
		return c.baseURL + ref
	}
	return base.ResolveReference(rel).String()
}

// ActivityListURL is the page that lists the user's activities.
func (c *Client) ActivityListURL() string {
	return c.URL(c.paths.ActivityList)
}

// Submit posts a submission and returns the raw response. Errors mean the
// request did not complete; HTTP error statuses are returned as responses.
func (c *Client) Submit(ctx context.Context, req submission.Request) (*submission.Response, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encode submission: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.URL(c.paths.Submit), bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	c.authorize(httpReq)

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read submission response: %w", err)
	}
	return &submission.Response{
		StatusCode:  resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
		Body:        body,
	}, nil
}

// Page is a fetched portal page.
type Page struct {
	URL        string
	StatusCode int
	Body       []byte
}

// StatusError reports a page that the server refused to render.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s: status %d", e.URL, e.StatusCode)
}

// Fetch loads a page. The returned URL is the final one after redirects.
// Statuses of 400 and above are returned as *StatusError.
func (c *Client) Fetch(ctx context.Context, method, rawURL string) (*Page, error) {
	target := c.URL(rawURL)
	var body io.Reader
	if method == http.MethodPost {
		// A synthesized form carries the activity id as its only field.
		u, err := url.Parse(target)
		if err != nil {
			return nil, err
		}
		body = strings.NewReader(u.Query().Encode())
	}
	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	req.Header.Set("Accept", "text/html,application/json")
	c.authorize(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyBytes))
		return nil, &StatusError{URL: target, StatusCode: resp.StatusCode}
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read page: %w", err)
	}
	return &Page{URL: resp.Request.URL.String(), StatusCode: resp.StatusCode, Body: data}, nil
}

func (c *Client) authorize(req *http.Request) {
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
}
