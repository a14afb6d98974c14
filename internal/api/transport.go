package api

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

	"github.com/julianstephens/habitual/internal/constants"
	"github.com/julianstephens/habitual/internal/logger"
)

// Config holds the connection settings shared by every API client
type Config struct {
	BaseURL    string
	Timeout    time.Duration
	HTTPClient *http.Client
}

// transport sends JSON requests relative to the API base URL. It knows nothing about credentials.
type transport struct {
	base *url.URL
	http *http.Client
}

func newTransport(cfg Config) (*transport, error) {
	raw := strings.TrimSpace(cfg.BaseURL)
	if raw == "" {
		raw = constants.DefaultAPIURL
	}
	// Relative paths resolve under the base only when it ends with a slash
	if !strings.HasSuffix(raw, "/") {
		raw += "/"
	}
	base, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid API base URL %q: %w", cfg.BaseURL, err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("invalid API base URL %q: scheme must be http or https", cfg.BaseURL)
	}

	client := cfg.HTTPClient
	if client == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = constants.DefaultTimeout
		}
		client = &http.Client{Timeout: timeout}
	}

	return &transport{base: base, http: client}, nil
}

// response is a fully read HTTP response
type response struct {
	status int
	body   []byte
}

func (r response) ok() bool {
	return r.status >= 200 && r.status < 300
}

func (t *transport) resolve(path string, query url.Values) (string, error) {
	rel, err := url.Parse(strings.TrimPrefix(path, "/"))
	if err != nil {
		return "", fmt.Errorf("invalid request path %q: %w", path, err)
	}
	u := t.base.ResolveReference(rel)
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}
	return u.String(), nil
}

// send performs one HTTP round trip. log carries the caller's request fields.
func (t *transport) send(ctx context.Context, log *logger.Scope, method, path string, query url.Values, body []byte, header http.Header) (response, error) {
	target, err := t.resolve(path, query)
	if err != nil {
		return response{}, err
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return response{}, fmt.Errorf("failed to build request: %w", err)
	}
	for key, values := range header {
		for _, v := range values {
			req.Header.Add(key, v)
		}
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := t.http.Do(req)
	if err != nil {
		return response{}, fmt.Errorf("%w: %s %s: %v", ErrTransport, method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return response{}, fmt.Errorf("%w: reading %s %s: %v", ErrTransport, method, path, err)
	}

	log.Debug("api response", "status", resp.StatusCode, "duration", time.Since(start))

	return response{status: resp.StatusCode, body: data}, nil
}

func encodeBody(body any) ([]byte, error) {
	if body == nil {
		return nil, nil
	}
	if raw, ok := body.(json.RawMessage); ok {
		return raw, nil
	}
	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request body: %w", err)
	}
	return data, nil
}

func decodeBody(method, path string, data []byte, out any) error {
	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode %s %s response: %w", method, path, err)
	}
	return nil
}

// RawClient posts to endpoints that must not pass through the credential interceptors
type RawClient struct {
	t *transport
}

// NewRawClient creates an unauthenticated client
func NewRawClient(cfg Config) (*RawClient, error) {
	t, err := newTransport(cfg)
	if err != nil {
		return nil, err
	}
	return &RawClient{t: t}, nil
}

// Post sends body as JSON and decodes a 2xx response into out.
func (c *RawClient) Post(ctx context.Context, path string, body, out any) error {
	data, err := encodeBody(body)
	if err != nil {
		return err
	}
	resp, err := c.t.send(ctx, logger.With("method", http.MethodPost, "path", path), http.MethodPost, path, nil, data, nil)
	if err != nil {
		return err
	}
	if !resp.ok() {
		return newError(http.MethodPost, path, resp.status, resp.body)
	}
	return decodeBody(http.MethodPost, path, resp.body, out)
}

// Ping reports whether the API root answers at all. Any HTTP status counts as reachable.
func (c *RawClient) Ping(ctx context.Context) (int, error) {
	resp, err := c.t.send(ctx, logger.With("method", http.MethodGet, "path", "/"), http.MethodGet, "", nil, nil, nil)
	if err != nil {
		return 0, err
	}
	return resp.status, nil
}

// BaseURL returns the resolved API root.
func (c *RawClient) BaseURL() string {
	return c.t.base.String()
}
