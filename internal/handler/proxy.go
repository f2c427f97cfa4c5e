package handler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"mime"
	"net"
	"net/http"
	"net/url"
	"regexp"

	"github.com/labstack/echo/v4"

	"console-http-go/internal/model"
	"console-http-go/internal/service"
)

// streamChunk is the read size for event streams, flushed after every read.
const streamChunk = 4 << 10

// tokenPattern matches token query parameter values in URLs embedded in error messages.
var tokenPattern = regexp.MustCompile(`(?i)((?:access[_-]?)?token=)[^&\s"]+`)

// ProxyHandler forwards browser API calls to the active profile's target.
type ProxyHandler struct {
	service *service.ProxyService
	profile string
	logger  *slog.Logger
}

// NewProxyHandler creates a ProxyHandler bound to the service's profile.
func NewProxyHandler(svc *service.ProxyService, logger *slog.Logger) *ProxyHandler {
	name, _ := svc.Profile()
	return &ProxyHandler{
		service: svc,
		profile: name,
		logger:  logger.With("component", "proxy_handler", "profile", name),
	}
}

// proxyError is the body sent when the upstream could not be reached.
type proxyError struct {
	Error   string `json:"error"`
	Profile string `json:"profile"`
}

// Handle proxies the request upstream and relays the response. Event streams
// are flushed chunk by chunk; other bodies are copied as they arrive.
func (h *ProxyHandler) Handle(c echo.Context) error {
	req := c.Request()

	resp, err := h.service.Forward(&model.ProxyRequest{
		Ctx:    req.Context(),
		Method: req.Method,
		Path:   req.URL.Path,
		Query:  req.URL.Query(),
		Host:   req.Host,
		Header: req.Header,
		Body:   req.Body,
	})
	if err != nil {
		return h.mapError(c, err)
	}
	defer func() { _ = resp.Body.Close() }()

	out := c.Response()
	dst := out.Header()
	for key, vals := range resp.Header {
		dst[key] = append(dst[key], vals...)
	}
	out.WriteHeader(resp.StatusCode)

	relay := io.Copy
	if isEventStream(resp.Header) {
		relay = flushingCopy(out)
	}
	if n, err := relay(out, resp.Body); err != nil {
		h.logger.Warn("response body truncated",
			"err", sanitizeError(err),
			"path", req.URL.Path,
			"status", resp.StatusCode,
			"bytes", n,
		)
	}
	return nil
}

func isEventStream(header http.Header) bool {
	mediaType, _, err := mime.ParseMediaType(header.Get(echo.HeaderContentType))
	return err == nil && mediaType == "text/event-stream"
}

// flushingCopy returns a copy func that pushes every chunk to the client
// before reading the next one.
func flushingCopy(out *echo.Response) func(io.Writer, io.Reader) (int64, error) {
	return func(w io.Writer, r io.Reader) (int64, error) {
		buf := make([]byte, streamChunk)
		var written int64
		for {
			n, rerr := r.Read(buf)
			if n > 0 {
				wn, werr := w.Write(buf[:n])
				written += int64(wn)
				if werr != nil {
					return written, werr
				}
				out.Flush()
			}
			if errors.Is(rerr, io.EOF) {
				return written, nil
			}
			if rerr != nil {
				return written, rerr
			}
		}
	}
}

// classify maps a forwarding error to a status code and a client-facing reason.
func classify(err error) (int, string) {
	var (
		dnsErr *net.DNSError
		urlErr *url.Error
	)
	switch {
	case errors.Is(err, service.ErrMissingTarget):
		return http.StatusServiceUnavailable, "no proxy target configured"
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "console back end timed out"
	case errors.Is(err, context.Canceled):
		return http.StatusBadGateway, "client disconnected"
	case errors.As(err, &dnsErr):
		return http.StatusBadGateway, "console back end host not found"
	case errors.As(err, &urlErr) && urlErr.Timeout():
		return http.StatusGatewayTimeout, "console back end timed out"
	case errors.As(err, &urlErr):
		return http.StatusBadGateway, "console back end unreachable"
	default:
		return http.StatusBadGateway, "console back end request failed"
	}
}

func (h *ProxyHandler) mapError(c echo.Context, err error) error {
	status, reason := classify(err)
	h.logger.Error("proxy error",
		"err", sanitizeError(err),
		"path", c.Request().URL.Path,
		"status", status,
	)
	return c.JSON(status, proxyError{Error: reason, Profile: h.profile})
}

// sanitizeError redacts token query values from error messages that may contain upstream URLs.
func sanitizeError(err error) string {
	return tokenPattern.ReplaceAllString(err.Error(), "${1}[REDACTED]")
}
