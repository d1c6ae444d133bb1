// Package apiclient is the typed REST client for the remote booking service.
// Every response is wrapped in an Envelope; a call succeeds only when the
// envelope code is CodeOK, whatever the HTTP status was.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/wolfman30/store-dashboard/internal/observability/metrics"
	"github.com/wolfman30/store-dashboard/pkg/logging"
)

const (
	defaultTimeout = 15 * time.Second
	maxLoggedBody  = 300
)

// CodeOK is the only envelope code that signals success.
const CodeOK = 200

var tracer = otel.Tracer("store-dashboard/apiclient")

// ErrTransport marks network, timeout and undecodable-response failures.
var ErrTransport = errors.New("apiclient: transport failure")

// Envelope is the uniform {code, message, data} wrapper used by the API.
type Envelope[T any] struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    T      `json:"data"`
}

// APIError is an application-level failure: the envelope code was not 200.
type APIError struct {
	Method  string
	Path    string
	Code    int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("apiclient: %s %s: code %d", e.Method, e.Path, e.Code)
	}
	return fmt.Sprintf("apiclient: %s %s: code %d: %s", e.Method, e.Path, e.Code, e.Message)
}

// Client calls the booking API. A Client is immutable; WithToken returns a
// copy bound to one session's bearer token.
type Client struct {
	baseURL    string
	httpClient *http.Client
	token      string
	logger     *logging.Logger
	metrics    *metrics.UpstreamMetrics
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithTimeout sets the per-request timeout of the default http.Client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.httpClient = &http.Client{Timeout: d}
		}
	}
}

// WithLogger sets the logger used for failed calls.
func WithLogger(logger *logging.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithMetrics records every call on m.
func WithMetrics(m *metrics.UpstreamMetrics) Option {
	return func(c *Client) { c.metrics = m }
}

// New constructs a client for baseURL (e.g. https://api.example.com/api).
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		httpClient: &http.Client{Timeout: defaultTimeout},
		logger:     logging.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// WithToken returns a copy of c that sends "Authorization: Bearer <token>".
// An empty token yields an unauthenticated copy.
func (c *Client) WithToken(token string) *Client {
	clone := *c
	clone.token = strings.TrimSpace(token)
	return &clone
}

// Token returns the bearer token attached to c, if any.
func (c *Client) Token() string {
	return c.token
}

// Call performs one request and returns the decoded envelope. It returns an
// *APIError when the envelope code is not CodeOK and an error wrapping
// ErrTransport when the request fails or the body is not an envelope.
func Call[T any](ctx context.Context, c *Client, method, path string, query url.Values, body any) (*Envelope[T], error) {
	ctx, span := tracer.Start(ctx, "apiclient "+method,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.method", method),
			attribute.String("http.route", metrics.Route(path)),
		),
	)
	defer span.End()

	start := time.Now()
	env, err := do[T](ctx, c, method, path, query, body)
	outcome := "ok"
	var apiErr *APIError
	switch {
	case errors.As(err, &apiErr):
		outcome = "api_error"
		span.SetAttributes(attribute.Int("api.code", apiErr.Code))
		span.SetStatus(codes.Error, apiErr.Message)
	case err != nil:
		outcome = "transport_error"
		span.RecordError(err)
		span.SetStatus(codes.Error, "transport failure")
	default:
		span.SetAttributes(attribute.Int("api.code", env.Code))
	}
	c.metrics.ObserveRequest(method, path, outcome, time.Since(start).Seconds())
	if err != nil {
		c.logger.Warn("booking api call failed", "method", method, "path", path, "outcome", outcome, "error", err)
	}
	return env, err
}

func do[T any](ctx context.Context, c *Client, method, path string, query url.Values, body any) (*Envelope[T], error) {
	endpoint := c.baseURL + "/" + strings.TrimLeft(path, "/")
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var bodyReader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("apiclient: marshal request: %w", err)
		}
		bodyReader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("apiclient: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s %s: %v", ErrTransport, method, path, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %v", ErrTransport, err)
	}

	var env Envelope[T]
	if len(respBody) > 0 {
		if err := json.Unmarshal(respBody, &env); err != nil {
			// Not an envelope: a gateway error page or a broken response. The
			// body is for logs only, never for the operator.
			return nil, fmt.Errorf("%w: %s %s: status %d: %s", ErrTransport, method, path, resp.StatusCode, truncate(string(respBody)))
		}
	}
	if env.Code == 0 && (resp.StatusCode < 200 || resp.StatusCode > 299) {
		env.Code = resp.StatusCode
	}
	if env.Code != CodeOK {
		return &env, &APIError{Method: method, Path: path, Code: env.Code, Message: env.Message}
	}
	return &env, nil
}

// Get issues GET path and returns the envelope data.
func Get[T any](ctx context.Context, c *Client, path string, query url.Values) (T, error) {
	return data(Call[T](ctx, c, http.MethodGet, path, query, nil))
}

// Post issues POST path with a JSON body and returns the envelope data.
func Post[T any](ctx context.Context, c *Client, path string, body any) (T, error) {
	return data(Call[T](ctx, c, http.MethodPost, path, nil, body))
}

// Put issues PUT path with a JSON body and returns the envelope data.
func Put[T any](ctx context.Context, c *Client, path string, body any) (T, error) {
	return data(Call[T](ctx, c, http.MethodPut, path, nil, body))
}

// Delete issues DELETE path without a body.
func Delete(ctx context.Context, c *Client, path string) error {
	_, err := Call[json.RawMessage](ctx, c, http.MethodDelete, path, nil, nil)
	return err
}

func data[T any](env *Envelope[T], err error) (T, error) {
	if err != nil {
		var zero T
		return zero, err
	}
	return env.Data, nil
}

// Message returns the text to show an operator for err: the envelope message
// for application failures when the API supplied one, fallback otherwise.
func Message(err error, fallback string) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) && strings.TrimSpace(apiErr.Message) != "" {
		return apiErr.Message
	}
	return fallback
}

// IsTransport reports whether err is a network/decoding failure.
func IsTransport(err error) bool {
	return errors.Is(err, ErrTransport)
}

// PathEscape joins path segments, escaping each one.
func PathEscape(segments ...string) string {
	escaped := make([]string, 0, len(segments))
	for _, s := range segments {
		escaped = append(escaped, url.PathEscape(s))
	}
	return "/" + strings.Join(escaped, "/")
}

// truncate shortens s to at most maxLoggedBody bytes on a rune boundary.
func truncate(s string) string {
	s = strings.TrimSpace(s)
	if len(s) <= maxLoggedBody {
		return s
	}
	cut := maxLoggedBody
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}
