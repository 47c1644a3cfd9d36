package chargify

import (
	"context"
	"fmt"
	"maps"
	"net/http"
	"strings"
	"time"

	"github.com/samvad-hq/chargify-go/pkg/httpclient"
)

const (
	// BaseURL is the API root for every call. No trailing slash.
	BaseURL = "https://api.chargify.com/api/v2"

	// DefaultFormat is the response format requested when none is configured.
	DefaultFormat = "json"

	// UserAgent identifies this SDK to the API.
	UserAgent = "chargify-go/1.0 (https://github.com/samvad-hq/chargify-go)"

	// Settings keys read by New.
	KeyAPIID       = "api_id"
	KeyAPIPassword = "api_password"
	KeyAPISecret   = "api_secret"

	requestTimeout = 10 * time.Second
)

// ClientConfig is the immutable connection configuration of a Client.
type ClientConfig struct {
	APIID       string
	APIPassword string
	APISecret   string
	Format      string
}

// Client issues requests against the Chargify v2 API.
type Client struct {
	cfg       ClientConfig
	settings  map[string]string
	baseURL   string
	transport httpclient.Client
	log       Logger

	lastResponse Result
}

type clientOptions struct {
	baseURL   string
	format    string
	log       Logger
	transport httpclient.Client
}

// Option customizes a Client at construction.
type Option func(*clientOptions)

// WithBaseURL points the client at another API root, e.g. a local test server.
func WithBaseURL(u string) Option {
	return func(o *clientOptions) { o.baseURL = strings.TrimRight(u, "/") }
}

// WithFormat selects the response format ("json" or "xml").
func WithFormat(format string) Option {
	return func(o *clientOptions) { o.format = strings.ToLower(strings.TrimSpace(format)) }
}

// WithLogger sets the logger used for request tracing.
func WithLogger(log Logger) Option {
	return func(o *clientOptions) { o.log = log }
}

// WithTransport replaces the default resty transport. The caller becomes
// responsible for auth, timeout and redirect handling.
func WithTransport(t httpclient.Client) Option {
	return func(o *clientOptions) { o.transport = t }
}

// New builds a Client from a settings mapping holding api_id, api_password
// and api_secret. Missing keys read as empty strings. The mapping is copied
// and retained for Settings.
func New(settings map[string]string, opts ...Option) *Client {
	o := clientOptions{baseURL: BaseURL, format: DefaultFormat}
	for _, opt := range opts {
		opt(&o)
	}
	if o.format == "" {
		o.format = DefaultFormat
	}

	cfg := ClientConfig{
		APIID:       settings[KeyAPIID],
		APIPassword: settings[KeyAPIPassword],
		APISecret:   settings[KeyAPISecret],
		Format:      o.format,
	}

	transport := o.transport
	if transport == nil {
		transport = httpclient.NewRestyClient(httpclient.Options{
			BaseURL:  o.baseURL,
			Timeout:  requestTimeout,
			Username: cfg.APIID,
			Password: cfg.APIPassword,
			Logger:   ensureLogger(o.log),
			Headers: map[string]string{
				"User-Agent":   UserAgent,
				"Content-Type": "application/" + cfg.Format,
			},
		})
	}

	return &Client{
		cfg:       cfg,
		settings:  maps.Clone(settings),
		baseURL:   o.baseURL,
		transport: transport,
		log:       ensureLogger(o.log),
	}
}

// BaseURL returns the API root requests are resolved against.
func (c *Client) BaseURL() string { return c.baseURL }

// APIID returns the configured api id.
func (c *Client) APIID() string { return c.cfg.APIID }

// APISecret returns the api secret. It is sensitive: never put it in logs,
// URLs, HTML or error messages.
func (c *Client) APISecret() string { return c.cfg.APISecret }

// Format returns the response format, e.g. "json".
func (c *Client) Format() string { return c.cfg.Format }

// Settings returns a copy of the mapping the client was built from.
func (c *Client) Settings() map[string]string { return maps.Clone(c.settings) }

// HTTPClient returns the transport shared by every request.
func (c *Client) HTTPClient() httpclient.Client { return c.transport }

// Request sends one call to the API.
//
// path may carry a leading slash; the response format is appended as an
// extension, so "subscriptions/1" becomes "/subscriptions/1.json". method is
// case-insensitive. rawData is sent verbatim; nil means no body. POST and PUT
// require a non-nil rawData and fail with ErrInvalidUsage before any network
// activity otherwise. GET and DELETE forward a non-empty rawData as the body.
// params are sent as the query string for all four methods.
//
// Every HTTP status, including 4xx and 5xx, comes back as a Result with a
// Response. A network failure comes back as a Result without one. Either way
// the Result is stored for LastResponse. The returned error is only ever an
// ErrInvalidUsage.
func (c *Client) Request(ctx context.Context, path, method string, rawData []byte, params map[string]string) (Result, error) {
	method = strings.ToUpper(strings.TrimSpace(method))
	if method == "" {
		return Result{}, fmt.Errorf("%w: http method is required", ErrInvalidUsage)
	}
	path = c.resourcePath(path)

	req := httpclient.Request{Method: method, Path: path}
	switch method {
	case http.MethodPost, http.MethodPut:
		if rawData == nil {
			return Result{}, fmt.Errorf("%w: you must send raw data in a %s request", ErrInvalidUsage, method)
		}
		if len(params) > 0 {
			req.Query = params
		}
		req.Body = rawData
	case http.MethodGet, http.MethodDelete:
		if len(rawData) > 0 {
			req.Body = rawData
		}
		if len(params) > 0 {
			req.Query = params
		}
	}

	start := time.Now()
	resp, err := c.transport.Do(ctx, req)

	var result Result
	switch {
	case resp != nil:
		// A transport error that still carries a response is treated as that response.
		result = Result{Response: resp}
		c.log.DebugObj("chargify request completed", "chargify_request", map[string]any{
			"method":     method,
			"path":       path,
			"status":     resp.StatusCode(),
			"elapsed_ms": time.Since(start).Milliseconds(),
		})
	default:
		if err == nil {
			err = ErrNoResponse
		}
		result = Result{Err: err}
		c.log.WarnObj("chargify request got no response", "chargify_request", map[string]any{
			"method":     method,
			"path":       path,
			"error":      err.Error(),
			"elapsed_ms": time.Since(start).Milliseconds(),
		})
	}

	c.lastResponse = result
	return result, nil
}

// LastResponse returns the Result of the most recent Request that reached the
// transport. It is a snapshot and is racy under concurrent use of one Client.
func (c *Client) LastResponse() Result {
	return c.lastResponse
}

// Session returns a Client that shares c's configuration and transport but
// records its own LastResponse. Hand one to each concurrent caller.
func (c *Client) Session() *Client {
	return &Client{
		cfg:       c.cfg,
		settings:  c.settings,
		baseURL:   c.baseURL,
		transport: c.transport,
		log:       c.log,
	}
}

// Direct returns a helper for building Chargify Direct forms.
func (c *Client) Direct() *Direct {
	return newDirect(c)
}

// Call returns a helper for the calls resource.
func (c *Client) Call() *Call {
	return &Call{client: c}
}

func (c *Client) resourcePath(path string) string {
	return "/" + strings.TrimLeft(path, "/") + "." + c.cfg.Format
}
