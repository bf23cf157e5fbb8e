// Package gateway issues JSON requests against the credential service and
// classifies failed responses into *Error values.
package gateway

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

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	slogctx "github.com/veqryn/slog-context"

	"github.com/openkcm/session-client/internal/serviceerr"
)

const (
	headerRequestID = "X-Request-ID"
	mediaTypeJSON   = "application/json"
)

// TokenSource returns the access token to attach to authenticated requests.
// An empty string means no credential is present.
type TokenSource func() string

// Request describes a single call to the credential service.
type Request struct {
	Method string
	Path   string
	Body   any
	// Auth attaches the bearer credential when one is present.
	Auth bool
	// Capability names the configured endpoint, e.g. "forgot". It only
	// improves the message of a 404 response.
	Capability string
}

type Client struct {
	baseURL string
	http    *http.Client
	token   TokenSource
	tracer  trace.Tracer
	meters  meters
}

func NewClient(baseURL string, httpClient *http.Client, token TokenSource) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if token == nil {
		token = func() string { return "" }
	}

	return &Client{
		baseURL: baseURL,
		http:    httpClient,
		token:   token,
		tracer:  otel.Tracer("session-client/gateway"),
		meters:  newMeters(),
	}
}

// BaseURL returns the URL every request path is joined to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Send performs req and decodes a JSON success body into a new T.
// An empty success body yields nil without an error.
func Send[T any](ctx context.Context, c *Client, req Request) (*T, error) {
	body, err := c.do(ctx, req)
	if err != nil {
		return nil, err
	}

	if len(bytes.TrimSpace(body)) == 0 {
		return nil, nil
	}

	var out T
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("decoding response: %w: %w", serviceerr.ErrServerFault, err)
	}

	return &out, nil
}

func (c *Client) do(ctx context.Context, req Request) ([]byte, error) {
	u, err := JoinURL(c.baseURL, req.Path)
	if err != nil {
		return nil, fmt.Errorf("building request url: %w", err)
	}

	method := req.Method
	if method == "" {
		method = http.MethodGet
	}

	ctx, span := c.tracer.Start(ctx, "gateway.send", trace.WithAttributes(
		attribute.String("http.request.method", method),
		attribute.String("url.full", u),
		attribute.Bool("session.auth", req.Auth),
	))
	defer span.End()

	requestID := uuid.NewString()
	ctx = slogctx.With(ctx, "request_id", requestID, "method", method, "url", u)

	var reader io.Reader
	if req.Body != nil {
		payload, err := json.Marshal(req.Body)
		if err != nil {
			return nil, fmt.Errorf("encoding request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header.Set("Content-Type", mediaTypeJSON)
	httpReq.Header.Set("Accept", mediaTypeJSON)
	httpReq.Header.Set(headerRequestID, requestID)
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(httpReq.Header))

	if req.Auth {
		if token := c.token(); token != "" {
			httpReq.Header.Set("Authorization", "Bearer "+token)
		}
	}

	start := time.Now()
	resp, err := c.http.Do(httpReq)
	if err != nil {
		c.meters.record(ctx, start, method, req.Capability, 0)
		span.RecordError(err)
		span.SetStatus(codes.Error, "transport failure")
		return nil, fmt.Errorf("executing request: %w: %w", serviceerr.ErrNetwork, err)
	}
	defer resp.Body.Close()

	span.SetAttributes(attribute.Int("http.response.status_code", resp.StatusCode))

	body, err := io.ReadAll(resp.Body)
	c.meters.record(ctx, start, method, req.Capability, resp.StatusCode)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("reading response: %w: %w", serviceerr.ErrNetwork, err)
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		gerr := classify(ctx, resp, body, u, req.Capability)
		span.SetStatus(codes.Error, gerr.Message)
		slogctx.Debug(ctx, "Request failed", "status", resp.StatusCode, "error", gerr.Message)
		return nil, gerr
	}

	return body, nil
}

// JoinURL appends path to base with exactly one slash between them. The
// query of path is kept and its segments are taken literally, so ".." is
// never resolved against base.
func JoinURL(base, path string) (string, error) {
	if _, err := url.Parse(base); err != nil {
		return "", fmt.Errorf("parsing base url %q: %w", base, err)
	}

	p, err := url.Parse(path)
	if err != nil {
		return "", fmt.Errorf("parsing path %q: %w", path, err)
	}

	u := strings.TrimRight(base, "/") + "/" + strings.TrimLeft(p.EscapedPath(), "/")
	if p.RawQuery != "" {
		u += "?" + p.RawQuery
	}

	return u, nil
}
