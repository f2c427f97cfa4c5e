// Package client provides the outbound HTTP clients: the dev proxy's
// upstream transport and the interceptor-driven console client.
package client

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"console-http-go/internal/config"
	"console-http-go/internal/metrics"
	"console-http-go/internal/model"
)

// UpstreamClient sends proxied requests to the active profile's target.
type UpstreamClient struct {
	httpClient *http.Client
	logger     *slog.Logger
	metrics    *metrics.Metrics
}

// NewUpstreamClient creates an UpstreamClient for the active proxy profile.
// Redirects are returned to the browser rather than followed. The metrics
// parameter is optional; pass nil to disable upstream metrics recording.
func NewUpstreamClient(cfg *config.Config, logger *slog.Logger, m *metrics.Metrics) *UpstreamClient {
	_, profile := cfg.ActiveProfile()
	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConns:        profile.IdleConnections,
		MaxIdleConnsPerHost: profile.IdleConnections,
		IdleConnTimeout:     90 * time.Second,
		DialContext: (&net.Dialer{
			Timeout:   30 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSClientConfig: &tls.Config{
			InsecureSkipVerify: !profile.VerifyTLS, //nolint:gosec // dev proxy targets often use self-signed certificates
		},
	}

	return &UpstreamClient{
		httpClient: &http.Client{
			Transport: transport,
			Timeout:   time.Duration(profile.TimeoutSeconds) * time.Second,
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		logger:  logger.With("component", "upstream_client"),
		metrics: m,
	}
}

// Do executes an HTTP request against the upstream and returns the raw response.
// The caller is responsible for closing the response body.
func (c *UpstreamClient) Do(req *http.Request) (*model.ProxyResponse, error) {
	c.logger.Debug("upstream request",
		"method", req.Method,
		"host", req.Host,
		"path", req.URL.Path,
	)

	start := time.Now()
	resp, err := c.httpClient.Do(req) //nolint:bodyclose // body ownership transfers to caller via ProxyResponse
	duration := time.Since(start).Seconds()
	method := metrics.NormalizeMethod(req.Method)

	if c.metrics != nil {
		c.metrics.UpstreamDuration.WithLabelValues(method).Observe(duration)
	}
	if err != nil {
		return nil, fmt.Errorf("upstream request: %w", err)
	}
	if c.metrics != nil {
		c.metrics.UpstreamResponses.WithLabelValues(method, strconv.Itoa(resp.StatusCode)).Inc()
	}

	return &model.ProxyResponse{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       resp.Body,
	}, nil
}

// DoStream executes a request and returns the response body as a stream.
// host, when non-empty, is sent as the Host header. The context controls the
// lifetime of the upstream request, so a disconnecting browser cancels it.
func (c *UpstreamClient) DoStream(ctx context.Context, method, url, host string, header http.Header, body io.Reader) (*model.ProxyResponse, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, fmt.Errorf("build upstream request: %w", err)
	}
	req.Header = header
	if n, err := strconv.ParseInt(header.Get("Content-Length"), 10, 64); err == nil && n > 0 {
		req.ContentLength = n
	}
	if host != "" {
		req.Host = host
	}
	return c.Do(req)
}
