// Package service implements the dev proxy forwarding logic.
package service

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"console-http-go/internal/client"
	"console-http-go/internal/config"
	"console-http-go/internal/model"
)

// ErrMissingTarget is returned when the active profile has no upstream target.
var ErrMissingTarget = errors.New("proxy target required: set proxy.profiles.<name>.target in config or CONSOLE_TARGET")

// ProxyService forwards browser requests under the active profile's prefix
// to its upstream target.
type ProxyService struct {
	client  *client.UpstreamClient
	name    string
	profile config.ProfileConfig
	target  *url.URL
	logger  *slog.Logger
}

// NewProxyService creates a ProxyService for the active profile. A profile
// without a target is accepted; Forward then fails with ErrMissingTarget.
func NewProxyService(c *client.UpstreamClient, cfg *config.Config, logger *slog.Logger) (*ProxyService, error) {
	name, profile := cfg.ActiveProfile()

	var target *url.URL
	if profile.Target != "" {
		u, err := url.Parse(profile.Target)
		if err != nil {
			return nil, fmt.Errorf("parse proxy target: %w", err)
		}
		target = u
	}

	return &ProxyService{
		client:  c,
		name:    name,
		profile: profile,
		target:  target,
		logger:  logger.With("component", "proxy_service", "profile", name),
	}, nil
}

// Profile returns the active profile name and its settings.
func (s *ProxyService) Profile() (string, config.ProfileConfig) {
	return s.name, s.profile
}

// Forward sends a ProxyRequest to the upstream target and returns the response.
// The caller is responsible for closing the response body.
func (s *ProxyService) Forward(pr *model.ProxyRequest) (*model.ProxyResponse, error) {
	if s.target == nil {
		return nil, ErrMissingTarget
	}

	upstreamURL := s.buildUpstreamURL(pr.Path, pr.Query)
	header := filterHeaders(pr.Header)

	host := s.target.Host
	if s.profile.PreserveHost {
		host = pr.Host
	}

	s.logger.Debug("forwarding request",
		"method", pr.Method,
		"path", pr.Path,
		"upstream", upstreamURL,
	)

	resp, err := s.client.DoStream(pr.Ctx, pr.Method, upstreamURL, host, header, pr.Body)
	if err != nil {
		return nil, fmt.Errorf("forward to upstream: %w", err)
	}

	resp.Header = filterHeaders(resp.Header)
	return resp, nil
}

// rewritePath removes the profile prefix unless the profile keeps it.
func (s *ProxyService) rewritePath(path string) string {
	if s.profile.KeepPrefix || s.profile.Prefix == "/" {
		return path
	}
	switch {
	case path == s.profile.Prefix:
		return "/"
	case strings.HasPrefix(path, s.profile.Prefix+"/"):
		return path[len(s.profile.Prefix):]
	default:
		return path
	}
}

func (s *ProxyService) buildUpstreamURL(path string, query url.Values) string {
	u := *s.target
	u.Path = strings.TrimSuffix(u.Path, "/") + s.rewritePath(path)
	u.RawPath = ""
	u.RawQuery = query.Encode()
	return u.String()
}

// filterHeaders copies src without hop-by-hop headers or any header named
// in its Connection header.
func filterHeaders(src http.Header) http.Header {
	dst := src.Clone()
	if dst == nil {
		return make(http.Header)
	}
	for _, v := range src.Values("Connection") {
		for _, name := range strings.Split(v, ",") {
			if name = strings.TrimSpace(name); name != "" {
				dst.Del(name)
			}
		}
	}
	for _, h := range model.HopByHopHeaders {
		dst.Del(h)
	}
	return dst
}
