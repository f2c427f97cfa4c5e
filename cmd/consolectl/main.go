package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/alecthomas/kong"

	"console-http-go/internal/client"
	"console-http-go/internal/config"
	"console-http-go/internal/interceptor"
	"console-http-go/internal/model"
	"console-http-go/internal/navigation"
	"console-http-go/internal/notify"
	"console-http-go/internal/session"
)

// Set by goreleaser ldflags.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

type cli struct {
	config.CLI `kong:"embed"`

	Session string `kong:"help='Session file holding the access token (overrides config).',env='CONSOLE_SESSION',type='path'"`

	Get    getCmd    `kong:"cmd,help='Call a console action with GET.'"`
	Post   postCmd   `kong:"cmd,help='Call a console action with POST.'"`
	Login  loginCmd  `kong:"cmd,help='Store an access token for later calls.'"`
	Logout logoutCmd `kong:"cmd,help='Clear the stored login info.'"`
	Whoami whoamiCmd `kong:"cmd,help='Show the stored login info.'"`
}

type app struct {
	ctx    context.Context
	cfg    *config.Config
	store  *session.Store
	client *client.ConsoleClient
	out    io.Writer
}

type getCmd struct {
	Action    string            `kong:"arg,help='Action path relative to the base API, e.g. sys/user/info.'"`
	Param     map[string]string `kong:"short='q',help='Query parameter as key=value.'"`
	NoDefault bool              `kong:"help='Do not add the timestamp parameter.'"`
}

func (c *getCmd) Run(a *app) error {
	params := toAny(c.Param)
	if c.NoDefault {
		adorned, err := a.client.Adorner().Params(params, false)
		if err != nil {
			return err
		}
		req := model.NewOutgoingRequest(http.MethodGet, a.client.Adorner().URL(c.Action), nil)
		req.Params = adorned
		return a.print(a.client.Do(a.ctx, req))
	}
	return a.print(a.client.Get(a.ctx, c.Action, params))
}

type postCmd struct {
	Action string            `kong:"arg,help='Action path relative to the base API, e.g. sys/login.'"`
	Data   map[string]string `kong:"short='d',help='Body field as key=value.'"`
	JSON   string            `kong:"name='json',help='Body as a JSON object; merged under --data fields.'"`
	Form   bool              `kong:"help='Send the body form-encoded instead of JSON.'"`
}

func (c *postCmd) Run(a *app) error {
	data := map[string]any{}
	if c.JSON != "" {
		if err := json.Unmarshal([]byte(c.JSON), &data); err != nil {
			return fmt.Errorf("parse --json: %w", err)
		}
	}
	for k, v := range c.Data {
		data[k] = v
	}
	if c.Form {
		return a.print(a.client.PostForm(a.ctx, c.Action, data))
	}
	return a.print(a.client.Post(a.ctx, c.Action, data))
}

type loginCmd struct {
	Token    string `kong:"arg,help='Access token issued by the console back end.'"`
	Username string `kong:"short='u',help='User name shown by whoami.'"`
}

func (c *loginCmd) Run(a *app) error {
	if err := a.store.SetLogin(c.Token, c.Username); err != nil {
		return err
	}
	_, _ = fmt.Fprintln(a.out, "login info saved")
	return nil
}

type logoutCmd struct{}

func (c *logoutCmd) Run(a *app) error {
	a.store.ResetLoginInfo()
	_, _ = fmt.Fprintln(a.out, "login info cleared")
	return nil
}

type whoamiCmd struct{}

func (c *whoamiCmd) Run(a *app) error {
	token, err := a.store.Token()
	if err != nil {
		return err
	}
	if token == "" {
		_, _ = fmt.Fprintln(a.out, "not logged in")
		return nil
	}
	name := a.store.Username()
	if name == "" {
		name = "(unknown user)"
	}
	_, _ = fmt.Fprintf(a.out, "%s at %s\n", name, a.cfg.Client.BaseURL)

	claims, err := session.DecodeClaims(token)
	if err != nil || claims.ExpiresAt == nil {
		return nil
	}
	state := "valid"
	if claims.Expired(time.Now()) {
		state = "expired"
	}
	_, _ = fmt.Fprintf(a.out, "token %s, expires %s\n", state, claims.ExpiresAt.Time.Local().Format(time.RFC3339))
	return nil
}

func main() {
	var c cli
	kctx := kong.Parse(&c,
		kong.Name("consolectl"),
		kong.Description("Call the console API with the same token and session handling as the web front end."),
		kong.Vars{"version": fmt.Sprintf("%s (%s, %s)", version, commit, date)},
		kong.UsageOnError(),
	)

	cfg, err := config.LoadOptional(&c.CLI)
	kctx.FatalIfErrorf(err)

	// Failures reach the user through the alert box, so log lines stay quiet
	// unless the file or --log-level asks for more.
	logCfg := cfg.LogWithFallback(config.LogConfig{Level: "error", Format: "text"})
	logger := newLogger(logCfg)

	sessionPath := c.Session
	if sessionPath == "" {
		sessionPath = cfg.Client.SessionFile
	}
	if sessionPath == "" {
		sessionPath = defaultSessionPath()
	}
	store, err := session.Open(sessionPath)
	kctx.FatalIfErrorf(err)

	router := navigation.NewRouter(logger, cfg.Client.LoginRoute)
	router.OnEnter(cfg.Client.LoginRoute, func() {
		_, _ = fmt.Fprintln(os.Stderr, "session expired: run `consolectl login <token>` to sign in again")
	})

	presenter := notify.MultiPresenter{notify.NewBoxPresenter(os.Stderr)}
	if strings.EqualFold(logCfg.Level, "debug") {
		presenter = append(presenter, notify.NewLogPresenter(logger))
	}
	pipeline := interceptor.NewPipeline(store, router, presenter,
		interceptor.WithTokenHeader(cfg.Client.TokenHeader),
		interceptor.WithLoginRoute(cfg.Client.LoginRoute),
		interceptor.WithSessionExpiredStatus(cfg.Client.SessionExpiredStatus),
		interceptor.WithLogger(logger),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err = kctx.Run(&app{
		ctx:    ctx,
		cfg:    cfg,
		store:  store,
		client: client.NewConsoleClient(cfg, pipeline, logger),
		out:    os.Stdout,
	})
	if _, ok := interceptor.AsFailure(err); ok {
		// The alert was already shown.
		stop()
		os.Exit(1)
	}
	kctx.FatalIfErrorf(err)
}

// print writes the response body, indented when it is JSON.
func (a *app) print(resp *model.IncomingResponse, err error) error {
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	if json.Indent(&buf, resp.Body, "", "  ") == nil {
		_, _ = fmt.Fprintln(a.out, buf.String())
		return nil
	}
	_, _ = a.out.Write(resp.Body)
	return nil
}

func newLogger(cfg config.LogConfig) *slog.Logger {
	level := slog.LevelError
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	}

	opts := &slog.HandlerOptions{Level: level}

	var h slog.Handler
	switch strings.ToLower(cfg.Format) {
	case "json":
		h = slog.NewJSONHandler(os.Stderr, opts)
	default:
		h = slog.NewTextHandler(os.Stderr, opts)
	}

	return slog.New(h)
}

func defaultSessionPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return filepath.Join(".", "session.toml")
	}
	return filepath.Join(dir, "console-http", "session.toml")
}

func toAny(m map[string]string) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
