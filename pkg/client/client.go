// Package client wraps http.Client for browsers-like use of the API: it
// carries the token cookies in a jar and transparently refreshes an expired
// session once before giving up.
package client

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
)

const refreshPath = "/api/auth/refresh"

// ErrSessionExpired is returned when a request was rejected and the
// follow-up refresh could not restore the session.
var ErrSessionExpired = errors.New("session expired")

type Option func(*Client)

// WithHTTPClient substitutes the underlying client. Its Jar is replaced so
// token cookies survive across calls.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithSessionExpiredHandler installs a callback fired when a refresh fails
// and the session is gone for good, e.g. to redirect to the login screen.
func WithSessionExpiredHandler(fn func()) Option {
	return func(c *Client) { c.onSessionExpired = fn }
}

type Client struct {
	base             *url.URL
	http             *http.Client
	onSessionExpired func()
}

func New(baseURL string, opts ...Option) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, err
	}
	c := &Client{base: base, http: &http.Client{}}
	for _, opt := range opts {
		opt(c)
	}
	if c.http.Jar == nil {
		jar, err := cookiejar.New(nil)
		if err != nil {
			return nil, err
		}
		c.http.Jar = jar
	}
	return c, nil
}

// NewRequest builds a request against the API base URL.
func (c *Client) NewRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	u := c.base.JoinPath(path)
	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req, nil
}

// Do sends the request. A 401 or 403 on anything but the refresh endpoint
// triggers one refresh and one replay; if the refresh itself is refused the
// session-expired handler fires and ErrSessionExpired is returned. The
// refresh endpoint is never wrapped, otherwise a dead session would loop.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	if !shouldRetry(req, resp) {
		return resp, nil
	}
	drain(resp)

	if err := c.refresh(req.Context()); err != nil {
		if c.onSessionExpired != nil {
			c.onSessionExpired()
		}
		return nil, err
	}

	retry, err := rewind(req)
	if err != nil {
		return nil, err
	}
	return c.http.Do(retry)
}

func (c *Client) refresh(ctx context.Context) error {
	req, err := c.NewRequest(ctx, http.MethodPost, refreshPath, nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	drain(resp)
	if resp.StatusCode != http.StatusOK {
		return ErrSessionExpired
	}
	return nil
}

func shouldRetry(req *http.Request, resp *http.Response) bool {
	if resp.StatusCode != http.StatusUnauthorized && resp.StatusCode != http.StatusForbidden {
		return false
	}
	if strings.HasSuffix(req.URL.Path, refreshPath) {
		return false
	}
	// A consumed one-shot body cannot be replayed.
	return req.Body == nil || req.GetBody != nil
}

func rewind(req *http.Request) (*http.Request, error) {
	retry := req.Clone(req.Context())
	if req.GetBody != nil {
		body, err := req.GetBody()
		if err != nil {
			return nil, err
		}
		retry.Body = body
	}
	return retry, nil
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()
}
