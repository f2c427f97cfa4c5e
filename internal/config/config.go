// Package config handles TOML configuration loading and validation.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"sort"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
)

// ErrNoConfig is returned when no config file was given and none was found.
var ErrNoConfig = errors.New("config: no config file found")

// configSearchPaths lists paths checked in order when no explicit config is given.
var configSearchPaths = []string{
	"/etc/console-http/config.toml",
	"configs/config.toml",
}

// Stock profiles mirror the two dev-server layouts: a single-level /api
// prefix and a nested /api/console prefix.
const (
	ProfileDev     = "dev"
	ProfileConsole = "console"
)

// CLI holds command-line arguments parsed by Kong.
type CLI struct {
	Config   string `kong:"short='c',help='Path to TOML config file.',env='CONFIG_PATH'"`
	Host     string `kong:"help='Listen host (overrides config).',env='HOST'"`
	Port     int    `kong:"short='p',help='Listen port (overrides config).',env='PORT'"`
	Profile  string `kong:"help='Proxy profile to serve (overrides config).',env='PROXY_PROFILE'"`
	Target   string `kong:"help='Upstream target of the active profile (overrides config).',env='CONSOLE_TARGET'"`
	BaseURL  string `kong:"help='Console back-end URL used by the client (overrides config).',env='CONSOLE_BASE_URL'"`
	BaseAPI  string `kong:"help='Base API path prepended to console actions (overrides config).',env='BASE_API'"`
	LogLevel string `kong:"help='Log level: debug|info|warn|error (overrides config).',env='LOG_LEVEL'"`
}

// Config is the top-level application configuration.
type Config struct {
	Server  ServerConfig  `toml:"server"`
	Proxy   ProxyConfig   `toml:"proxy"`
	Client  ClientConfig  `toml:"client"`
	Log     LogConfig     `toml:"log"`
	Metrics MetricsConfig `toml:"metrics"`

	filePath string    // resolved config file path (unexported)
	explicit LogConfig // log settings as given by file and CLI, before defaults
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host         string          `toml:"host"`
	Port         int             `toml:"port"` // 0 means "use default" (8080)
	BodyMaxBytes int64           `toml:"body_max_bytes"`
	StaticDir    string          `toml:"static_dir"` // built SPA to serve; empty disables
	RateLimit    RateLimitConfig `toml:"rate_limit"`
}

// RateLimitConfig controls per-IP request rate limiting.
type RateLimitConfig struct {
	Enabled           bool    `toml:"enabled"`
	RequestsPerSecond float64 `toml:"requests_per_second"`
}

// ProxyConfig selects one of several named forwarding profiles.
type ProxyConfig struct {
	Profile  string                   `toml:"profile"`
	Profiles map[string]ProfileConfig `toml:"profiles"`
}

// ProfileConfig describes one dev-proxy rule. The boolean fields are named so
// that their zero value matches the dev-server defaults: the prefix is
// stripped, Host is rewritten to the target and TLS is not verified.
type ProfileConfig struct {
	Prefix          string `toml:"prefix"`
	Target          string `toml:"target"`
	KeepPrefix      bool   `toml:"keep_prefix"`
	PreserveHost    bool   `toml:"preserve_host"`
	VerifyTLS       bool   `toml:"verify_tls"`
	TimeoutSeconds  int    `toml:"timeout_seconds"`
	IdleConnections int    `toml:"idle_connections"`
}

// ClientConfig holds settings of the interceptor client.
type ClientConfig struct {
	BaseURL              string `toml:"base_url"`
	BaseAPI              string `toml:"base_api"`
	TimeoutSeconds       int    `toml:"timeout_seconds"`
	TokenHeader          string `toml:"token_header"`
	LoginRoute           string `toml:"login_route"`
	SessionExpiredStatus int    `toml:"session_expired_status"` // 0 means "use default" (2)
	SessionFile          string `toml:"session_file"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// MetricsConfig holds Prometheus metrics settings.
type MetricsConfig struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"`
}

// Load reads the TOML config file and applies CLI overrides.
// When no explicit path is given (via --config or CONFIG_PATH), it searches
// /etc/console-http/config.toml then configs/config.toml.
func Load(cli *CLI) (*Config, error) {
	path := cli.Config
	if path == "" {
		path = findConfig()
	}
	if path == "" {
		return nil, fmt.Errorf("%w (searched %v)", ErrNoConfig, configSearchPaths)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}

	cfg.filePath = path
	return finish(&cfg, cli)
}

// LoadOptional behaves like Load but falls back to built-in defaults when no
// config file exists. An explicitly named file must still exist.
func LoadOptional(cli *CLI) (*Config, error) {
	cfg, err := Load(cli)
	if errors.Is(err, ErrNoConfig) {
		return finish(&Config{}, cli)
	}
	return cfg, err
}

func finish(cfg *Config, cli *CLI) (*Config, error) {
	cfg.addStockProfiles()
	cfg.applyCLI(cli)

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config: validate: %w", err)
	}

	cfg.explicit = cfg.Log
	cfg.setDefaults()
	return cfg, nil
}

// addStockProfiles registers the dev and console profiles unless the file
// defines profiles with those names.
func (c *Config) addStockProfiles() {
	if c.Proxy.Profiles == nil {
		c.Proxy.Profiles = make(map[string]ProfileConfig)
	}
	if _, ok := c.Proxy.Profiles[ProfileDev]; !ok {
		c.Proxy.Profiles[ProfileDev] = ProfileConfig{Prefix: "/api"}
	}
	if _, ok := c.Proxy.Profiles[ProfileConsole]; !ok {
		c.Proxy.Profiles[ProfileConsole] = ProfileConfig{Prefix: "/api/console"}
	}
	if c.Proxy.Profile == "" {
		c.Proxy.Profile = ProfileDev
	}
}

// applyCLI overrides config values with non-zero CLI flags.
func (c *Config) applyCLI(cli *CLI) {
	if cli.Host != "" {
		c.Server.Host = cli.Host
	}
	if cli.Port != 0 {
		c.Server.Port = cli.Port
	}
	if cli.Profile != "" {
		c.Proxy.Profile = cli.Profile
	}
	if cli.Target != "" {
		if p, ok := c.Proxy.Profiles[c.Proxy.Profile]; ok {
			p.Target = cli.Target
			c.Proxy.Profiles[c.Proxy.Profile] = p
		}
	}
	if cli.BaseURL != "" {
		c.Client.BaseURL = cli.BaseURL
	}
	if cli.BaseAPI != "" {
		c.Client.BaseAPI = cli.BaseAPI
	}
	if cli.LogLevel != "" {
		c.Log.Level = cli.LogLevel
	}
}

func (c *Config) validate() error {
	if _, ok := c.Proxy.Profiles[c.Proxy.Profile]; !ok {
		return fmt.Errorf("proxy.profile %q is not defined; known profiles: %v", c.Proxy.Profile, c.ProfileNames())
	}
	for name, p := range c.Proxy.Profiles {
		if err := p.validate(); err != nil {
			return fmt.Errorf("proxy.profiles.%s: %w", name, err)
		}
	}

	if c.Client.BaseURL != "" {
		if err := validateHTTPURL(c.Client.BaseURL); err != nil {
			return fmt.Errorf("client.base_url: %w", err)
		}
	}
	if c.Client.TimeoutSeconds < 0 {
		return fmt.Errorf("client.timeout_seconds must be non-negative; got %d", c.Client.TimeoutSeconds)
	}
	if c.Client.SessionExpiredStatus < 0 {
		return fmt.Errorf("client.session_expired_status must be non-negative; got %d", c.Client.SessionExpiredStatus)
	}

	// Numeric bounds.
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be 0–65535; got %d", c.Server.Port)
	}
	if c.Server.BodyMaxBytes < 0 {
		return fmt.Errorf("server.body_max_bytes must be non-negative; got %d", c.Server.BodyMaxBytes)
	}
	if c.Server.RateLimit.Enabled && c.Server.RateLimit.RequestsPerSecond <= 0 {
		return fmt.Errorf("server.rate_limit.requests_per_second must be > 0 when rate limiting is enabled; got %v", c.Server.RateLimit.RequestsPerSecond)
	}
	if c.Server.StaticDir != "" {
		info, err := os.Stat(c.Server.StaticDir)
		if err != nil || !info.IsDir() {
			return fmt.Errorf("server.static_dir %q is not a directory", c.Server.StaticDir)
		}
	}

	// Log fields.
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error", "":
	default:
		return fmt.Errorf("log.level must be one of: debug, info, warn, error; got %q", c.Log.Level)
	}
	switch strings.ToLower(c.Log.Format) {
	case "json", "text", "":
	default:
		return fmt.Errorf("log.format must be one of: json, text; got %q", c.Log.Format)
	}

	// Metrics path validation (only when metrics are enabled).
	if c.Metrics.Enabled && c.Metrics.Path != "" {
		p := c.Metrics.Path
		if p[0] != '/' {
			return fmt.Errorf("metrics.path must start with '/'; got %q", p)
		}
		reserved := []string{"/healthz", "/proxy/status", c.Proxy.Profiles[c.Proxy.Profile].Prefix}
		for _, r := range reserved {
			if p == r || strings.HasPrefix(p, r+"/") {
				return fmt.Errorf("metrics.path %q conflicts with reserved route %q", p, r)
			}
		}
	}

	return nil
}

func (p ProfileConfig) validate() error {
	if p.Prefix == "" || p.Prefix[0] != '/' {
		return fmt.Errorf("prefix must start with '/'; got %q", p.Prefix)
	}
	if p.Prefix != "/" && strings.HasSuffix(p.Prefix, "/") {
		return fmt.Errorf("prefix must not end with '/'; got %q", p.Prefix)
	}
	if p.Target != "" {
		if err := validateHTTPURL(p.Target); err != nil {
			return fmt.Errorf("target: %w", err)
		}
	}
	if p.TimeoutSeconds < 0 {
		return fmt.Errorf("timeout_seconds must be non-negative; got %d", p.TimeoutSeconds)
	}
	if p.IdleConnections < 0 {
		return fmt.Errorf("idle_connections must be non-negative; got %d", p.IdleConnections)
	}
	return nil
}

func validateHTTPURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("not a valid URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("must use http or https; got %q", raw)
	}
	if u.Host == "" {
		return fmt.Errorf("missing host in %q", raw)
	}
	return nil
}

// setDefaults fills zero-valued fields with sensible defaults.
// For integer fields, zero means "unset" because TOML cannot distinguish
// between an explicit 0 and an omitted key.
func (c *Config) setDefaults() {
	if c.Server.Host == "" {
		c.Server.Host = "0.0.0.0"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.BodyMaxBytes == 0 {
		c.Server.BodyMaxBytes = 10 * 1024 * 1024 // 10 MB
	}
	for name, p := range c.Proxy.Profiles {
		if p.TimeoutSeconds == 0 {
			p.TimeoutSeconds = 120
		}
		if p.IdleConnections == 0 {
			p.IdleConnections = 100
		}
		c.Proxy.Profiles[name] = p
	}
	if c.Client.BaseURL == "" {
		c.Client.BaseURL = fmt.Sprintf("http://127.0.0.1:%d", c.Server.Port)
	}
	if c.Client.BaseAPI == "" {
		c.Client.BaseAPI = "/api/"
	}
	if c.Client.TimeoutSeconds == 0 {
		c.Client.TimeoutSeconds = 30
	}
	if c.Client.TokenHeader == "" {
		c.Client.TokenHeader = "X-Access-Token"
	}
	if c.Client.LoginRoute == "" {
		c.Client.LoginRoute = "login"
	}
	if c.Client.SessionExpiredStatus == 0 {
		c.Client.SessionExpiredStatus = 2
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "json"
	}
	if c.Metrics.Path == "" {
		c.Metrics.Path = "/metrics"
	}
}

// ActiveProfile returns the name and settings of the selected proxy profile.
func (c *Config) ActiveProfile() (string, ProfileConfig) {
	return c.Proxy.Profile, c.Proxy.Profiles[c.Proxy.Profile]
}

// LogWithFallback returns the log settings with fields that neither the file
// nor the CLI set taken from fallback instead of the server defaults.
func (c *Config) LogWithFallback(fallback LogConfig) LogConfig {
	out := c.explicit
	if out.Level == "" {
		out.Level = fallback.Level
	}
	if out.Format == "" {
		out.Format = fallback.Format
	}
	return out
}

// ProfileNames returns the defined profile names in sorted order.
func (c *Config) ProfileNames() []string {
	names := make([]string, 0, len(c.Proxy.Profiles))
	for name := range c.Proxy.Profiles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// findConfig returns the first config path that exists, or empty string.
func findConfig() string {
	return findConfigInPaths(configSearchPaths)
}

// findConfigInPaths returns the first path that exists on disk, or empty string.
func findConfigInPaths(paths []string) string {
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// Addr returns the server listen address as host:port.
func (c *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// WarnPermissions logs a warning if the config file is readable by group or others.
func (c *Config) WarnPermissions(logger *slog.Logger) {
	if c.filePath == "" {
		return
	}
	info, err := os.Stat(c.filePath)
	if err != nil {
		return
	}
	if perm := info.Mode().Perm(); perm&0o077 != 0 {
		logger.Warn("config file is readable by group/others; consider chmod 600",
			"path", c.filePath,
			"mode", fmt.Sprintf("%04o", perm),
		)
	}
}
