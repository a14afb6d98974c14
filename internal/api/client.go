package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/google/uuid"

	"github.com/julianstephens/habitual/internal/constants"
	"github.com/julianstephens/habitual/internal/logger"
)

// ErrSessionExpired wraps the failure of a request whose credentials could not be recovered
var ErrSessionExpired = errors.New("session expired")

// Authenticator supplies and renews the bearer credential. session.Manager implements it.
type Authenticator interface {
	AccessToken() string
	Refresh(ctx context.Context) (string, error)
	Logout()
}

// Request describes one logical API call
type Request struct {
	Method string
	Path   string
	Query  url.Values
	Body   any
}

// Client is the single outbound point for authenticated API calls
type Client struct {
	t         *transport
	auth      Authenticator
	onExpired func(error)
}

// Option configures a Client
type Option func(*Client)

// WithSessionExpiredHook registers fn to run after a forced logout. The CLI uses it to
// point the user at the login command.
func WithSessionExpiredHook(fn func(error)) Option {
	return func(c *Client) {
		c.onExpired = fn
	}
}

// NewClient creates a gateway that authenticates every request through auth
func NewClient(cfg Config, auth Authenticator, opts ...Option) (*Client, error) {
	t, err := newTransport(cfg)
	if err != nil {
		return nil, err
	}
	c := &Client{t: t, auth: auth}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// BaseURL returns the resolved API root.
func (c *Client) BaseURL() string {
	return c.t.base.String()
}

// Do runs req and decodes a successful response body into out.
func (c *Client) Do(ctx context.Context, req Request, out any) error {
	body, err := encodeBody(req.Body)
	if err != nil {
		return err
	}

	id := uuid.NewString()
	x := &exchange{
		id:    id,
		req:   req,
		body:  body,
		state: StateSent,
		log:   logger.With("request_id", id, "method", req.Method, "path", req.Path),
	}
	resp, err := c.run(ctx, x)
	if err != nil {
		return err
	}
	return decodeBody(req.Method, req.Path, resp.body, out)
}

// Get fetches path with the given query parameters.
func (c *Client) Get(ctx context.Context, path string, query url.Values, out any) error {
	return c.Do(ctx, Request{Method: http.MethodGet, Path: path, Query: query}, out)
}

// Post sends body to path.
func (c *Client) Post(ctx context.Context, path string, body, out any) error {
	return c.Do(ctx, Request{Method: http.MethodPost, Path: path, Body: body}, out)
}

// Patch sends a partial update to path.
func (c *Client) Patch(ctx context.Context, path string, body, out any) error {
	return c.Do(ctx, Request{Method: http.MethodPatch, Path: path, Body: body}, out)
}

// Delete removes the resource at path.
func (c *Client) Delete(ctx context.Context, path string) error {
	return c.Do(ctx, Request{Method: http.MethodDelete, Path: path}, nil)
}

func (c *Client) run(ctx context.Context, x *exchange) (response, error) {
	for {
		switch x.state {
		case StateSent:
			resp, err := c.attempt(ctx, x, c.auth.AccessToken())
			if err != nil {
				return response{}, x.fail(err)
			}
			if resp.status == http.StatusUnauthorized {
				x.log.Debug("access token rejected, refreshing")
				x.state = StateRetrying
				continue
			}
			return x.settle(resp)

		case StateRetrying:
			token, err := c.auth.Refresh(ctx)
			if err != nil {
				return response{}, c.expire(x, err)
			}
			resp, err := c.attempt(ctx, x, token)
			if err != nil {
				return response{}, x.fail(err)
			}
			if resp.status == http.StatusUnauthorized {
				return response{}, c.expire(x, newError(x.req.Method, x.req.Path, resp.status, resp.body))
			}
			return x.settle(resp)

		default:
			return response{}, fmt.Errorf("request %s already %s", x.id, x.state)
		}
	}
}

func (c *Client) attempt(ctx context.Context, x *exchange, token string) (response, error) {
	header := http.Header{}
	header.Set(constants.RequestIDHeader, x.id)
	if token != "" {
		header.Set("Authorization", "Bearer "+token)
	}
	x.attempts++
	return c.t.send(ctx, x.log, x.req.Method, x.req.Path, x.req.Query, x.body, header)
}

// expire ends the session after a request could not be authenticated on its single retry.
func (c *Client) expire(x *exchange, cause error) error {
	err := x.fail(fmt.Errorf("%w: %w", ErrSessionExpired, cause))
	x.log.Warn("session could not be refreshed, logging out", "error", cause)
	c.auth.Logout()
	if c.onExpired != nil {
		c.onExpired(err)
	}
	return err
}
