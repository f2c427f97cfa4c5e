package client

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strconv"
	"strings"
	"time"

	"console-http-go/internal/adorn"
	"console-http-go/internal/config"
	"console-http-go/internal/interceptor"
	"console-http-go/internal/metrics"
	"console-http-go/internal/model"
)

const (
	HeaderContentType = "Content-Type"
	ContentTypeJSON   = "application/json; charset=utf-8"
	ContentTypeForm   = "application/x-www-form-urlencoded; charset=utf-8"
)

var errUnexpectedStatus = errors.New("client: unexpected status")

// Doer is the transport used by ConsoleClient.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

var _ Doer = (*http.Client)(nil)

// ConsoleClient calls the console API through the interception pipeline.
type ConsoleClient struct {
	baseURL        string
	httpClient     Doer
	pipeline       *interceptor.Pipeline
	adorner        *adorn.Adorner
	defaultHeaders http.Header
	expired        int
	logger         *slog.Logger
	metrics        *metrics.Metrics
}

// ConsoleOption customizes a ConsoleClient.
type ConsoleOption func(*ConsoleClient)

// WithDoer replaces the HTTP transport.
func WithDoer(d Doer) ConsoleOption {
	return func(c *ConsoleClient) {
		c.httpClient = d
	}
}

// WithMetrics enables client metrics.
func WithMetrics(m *metrics.Metrics) ConsoleOption {
	return func(c *ConsoleClient) {
		c.metrics = m
	}
}

// NewConsoleClient creates a ConsoleClient from the [client] config section.
// Cookies set by the back end are kept and sent on later calls.
func NewConsoleClient(cfg *config.Config, p *interceptor.Pipeline, logger *slog.Logger, opts ...ConsoleOption) *ConsoleClient {
	jar, _ := cookiejar.New(nil) // only fails for a non-nil options value

	c := &ConsoleClient{
		baseURL: strings.TrimSuffix(cfg.Client.BaseURL, "/"),
		httpClient: &http.Client{
			Jar:     jar,
			Timeout: time.Duration(cfg.Client.TimeoutSeconds) * time.Second,
		},
		pipeline: p,
		adorner:  adorn.New(cfg.Client.BaseAPI),
		defaultHeaders: http.Header{
			HeaderContentType: {ContentTypeJSON},
		},
		expired: cfg.Client.SessionExpiredStatus,
		logger:  logger.With("component", "console_client"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Adorner returns the helper used to build URLs, params and bodies.
func (c *ConsoleClient) Adorner() *adorn.Adorner {
	return c.adorner
}

// Get calls actionName with params in the query string and the default
// timestamp parameter added.
func (c *ConsoleClient) Get(ctx context.Context, actionName string, params map[string]any) (*model.IncomingResponse, error) {
	adorned, err := c.adorner.Params(params, true)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", interceptor.ErrRequestRejected, err)
	}
	req := model.NewOutgoingRequest(http.MethodGet, c.adorner.URL(actionName), nil)
	req.Params = adorned
	return c.Do(ctx, req)
}

// Post calls actionName with data serialized as JSON, timestamp included.
func (c *ConsoleClient) Post(ctx context.Context, actionName string, data map[string]any) (*model.IncomingResponse, error) {
	body, err := c.adorner.Data(data, true, adorn.ContentTypeJSON)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", interceptor.ErrRequestRejected, err)
	}
	return c.Do(ctx, model.NewOutgoingRequest(http.MethodPost, c.adorner.URL(actionName), []byte(body)))
}

// PostForm calls actionName with data form-encoded, timestamp included.
func (c *ConsoleClient) PostForm(ctx context.Context, actionName string, data map[string]any) (*model.IncomingResponse, error) {
	body, err := c.adorner.Data(data, true, adorn.ContentTypeForm)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", interceptor.ErrRequestRejected, err)
	}
	req := model.NewOutgoingRequest(http.MethodPost, c.adorner.URL(actionName), []byte(body))
	req.Header.Set(HeaderContentType, ContentTypeForm)
	return c.Do(ctx, req)
}

// Do runs req through the pipeline and the transport. It returns the
// response for 2xx statuses. Every other outcome is an error: a rejected
// request wraps interceptor.ErrRequestRejected and was never sent; a failed
// exchange is an *interceptor.FailureError whose alert was already shown.
func (c *ConsoleClient) Do(ctx context.Context, req *model.OutgoingRequest) (*model.IncomingResponse, error) {
	req, err := c.pipeline.Request(req)
	if err != nil {
		c.countFailure("rejected")
		return nil, err
	}

	httpReq, err := c.buildRequest(ctx, req)
	if err != nil {
		c.countFailure("rejected")
		return nil, fmt.Errorf("%w: %w", interceptor.ErrRequestRejected, err)
	}

	c.logger.Debug("console request", "method", req.Method, "url", httpReq.URL.Path)

	start := time.Now()
	resp, err := c.send(httpReq)
	if c.metrics != nil {
		c.metrics.ClientDuration.WithLabelValues(metrics.NormalizeMethod(req.Method)).Observe(time.Since(start).Seconds())
	}
	if err != nil {
		c.countFailure("transport")
		return nil, c.pipeline.Failure(&model.ErrorContext{Cause: err})
	}

	if c.metrics != nil {
		c.metrics.ClientResponses.WithLabelValues(metrics.NormalizeMethod(req.Method), strconv.Itoa(resp.StatusCode)).Inc()
		if resp.Payload.SessionStatus == c.expired {
			c.metrics.SessionExpirations.Inc()
		}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.countFailure("status")
		return nil, c.pipeline.Failure(&model.ErrorContext{
			Response: resp,
			Cause:    fmt.Errorf("%w: %d", errUnexpectedStatus, resp.StatusCode),
		})
	}

	return c.pipeline.Response(resp)
}

func (c *ConsoleClient) send(req *http.Request) (*model.IncomingResponse, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}
	return model.NewIncomingResponse(resp.StatusCode, resp.Header, body), nil
}

func (c *ConsoleClient) buildRequest(ctx context.Context, req *model.OutgoingRequest) (*http.Request, error) {
	u, err := url.Parse(c.resolve(req.URL))
	if err != nil {
		return nil, fmt.Errorf("parse url: %w", err)
	}
	if len(req.Params) > 0 {
		q := u.Query()
		for k, vals := range adorn.Query(req.Params) {
			q[k] = vals
		}
		u.RawQuery = q.Encode()
	}

	var body io.Reader
	if req.Body != nil {
		body = bytes.NewReader(req.Body)
	}
	httpReq, err := http.NewRequestWithContext(ctx, req.Method, u.String(), body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	for k, vals := range c.defaultHeaders {
		httpReq.Header[k] = append([]string(nil), vals...)
	}
	for k, vals := range req.Header {
		httpReq.Header[k] = append([]string(nil), vals...)
	}
	return httpReq, nil
}

// resolve makes a relative action URL absolute against the base URL.
func (c *ConsoleClient) resolve(raw string) string {
	if strings.HasPrefix(raw, "http://") || strings.HasPrefix(raw, "https://") {
		return raw
	}
	if !strings.HasPrefix(raw, "/") {
		raw = "/" + raw
	}
	return c.baseURL + raw
}

func (c *ConsoleClient) countFailure(kind string) {
	if c.metrics != nil {
		c.metrics.ClientFailures.WithLabelValues(kind).Inc()
	}
}
