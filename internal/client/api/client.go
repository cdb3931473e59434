// Package api is the client of the supportdesk REST API. It injects the
// session's bearer token, turns error bodies into *Error values and forces a
// logout when the server answers 401 outside the login call.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/dmitrijs2005/supportdesk/internal/common"
	"github.com/dmitrijs2005/supportdesk/internal/logging"
)

const loginPath = "/auth/login"

// Session is the part of the session store the client needs.
type Session interface {
	Token() string
	Logout(ctx context.Context) error
}

type Client struct {
	http    *resty.Client
	session Session
	log     logging.Logger

	mu             sync.Mutex
	onUnauthorized func()
}

type Option func(*Client)

func WithLogger(l logging.Logger) Option {
	return func(c *Client) { c.log = l }
}

// WithHTTPClient swaps the underlying transport, e.g. for httptest.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = resty.NewWithClient(hc) }
}

// New builds a client rooted at baseURL (e.g. http://localhost:8080/api/v1).
func New(baseURL string, session Session, timeout time.Duration, opts ...Option) *Client {
	c := &Client{session: session, log: logging.Discard()}
	for _, o := range opts {
		o(c)
	}
	if c.http == nil {
		c.http = resty.New()
	}

	c.http.
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json").
		SetRetryCount(0).
		OnBeforeRequest(c.injectToken).
		OnAfterResponse(c.checkUnauthorized)
	if timeout > 0 {
		c.http.SetTimeout(timeout)
	}
	return c
}

// OnUnauthorized registers the handler run after a forced logout.
func (c *Client) OnUnauthorized(fn func()) {
	c.mu.Lock()
	c.onUnauthorized = fn
	c.mu.Unlock()
}

func (c *Client) injectToken(_ *resty.Client, req *resty.Request) error {
	if c.session == nil {
		return nil
	}
	if tok := c.session.Token(); tok != "" {
		req.SetAuthToken(tok)
	}
	return nil
}

func (c *Client) checkUnauthorized(_ *resty.Client, resp *resty.Response) error {
	if resp.StatusCode() != http.StatusUnauthorized {
		return nil
	}
	if isLoginCall(resp.Request.URL) {
		return nil
	}

	ctx := resp.Request.Context()
	c.log.Warn(ctx, "session rejected by server, logging out", "url", resp.Request.URL)
	if c.session != nil {
		if err := c.session.Logout(context.WithoutCancel(ctx)); err != nil {
			c.log.Error(ctx, "forced logout failed", "error", err)
		}
	}

	c.mu.Lock()
	fn := c.onUnauthorized
	c.mu.Unlock()
	if fn != nil {
		fn()
	}
	return nil
}

func isLoginCall(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return strings.HasSuffix(raw, loginPath)
	}
	return strings.HasSuffix(u.Path, loginPath)
}

// do executes one call. body may be nil; out may be nil to discard the
// response. prepare customizes the request (query params and the like).
func (c *Client) do(ctx context.Context, method, path string, body, out any, prepare func(*resty.Request)) error {
	req := c.http.R().SetContext(ctx)
	if body != nil {
		req.SetBody(body)
	}
	if prepare != nil {
		prepare(req)
	}

	resp, err := req.Execute(method, path)
	if err != nil {
		return fmt.Errorf("%s %s: %w: %w", method, path, common.ErrNetwork, err)
	}

	if resp.IsError() || resp.StatusCode() < 200 || resp.StatusCode() > 299 {
		return decodeError(resp)
	}

	if out == nil || len(resp.Body()) == 0 {
		return nil
	}
	if err := json.Unmarshal(resp.Body(), out); err != nil {
		return fmt.Errorf("%s %s: decode response: %w", method, path, err)
	}
	return nil
}

func decodeError(resp *resty.Response) *Error {
	e := &Error{StatusCode: resp.StatusCode()}
	var payload struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	}
	if json.Unmarshal(resp.Body(), &payload) == nil {
		e.Code = payload.Code
		e.Message = payload.Message
	}
	return e
}
