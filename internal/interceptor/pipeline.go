package interceptor

import (
	"io"
	"log/slog"

	"console-http-go/internal/model"
)

// Pipeline runs the ordered interception stages around one exchange.
type Pipeline struct {
	RequestStages  []RequestStage
	ResponseStages []ResponseStage
	FailureStages  []FailureStage
}

type pipelineConfig struct {
	tokenHeader string
	loginRoute  string
	expired     int
	logger      *slog.Logger
}

// Option customizes the default pipeline.
type Option func(*pipelineConfig)

// WithTokenHeader sets the header that carries the access token.
func WithTokenHeader(header string) Option {
	return func(c *pipelineConfig) {
		c.tokenHeader = header
	}
}

// WithLoginRoute sets the view shown after the session expires.
func WithLoginRoute(route string) Option {
	return func(c *pipelineConfig) {
		c.loginRoute = route
	}
}

// WithSessionExpiredStatus sets the payload status that signals an expired session.
func WithSessionExpiredStatus(status int) Option {
	return func(c *pipelineConfig) {
		c.expired = status
	}
}

// WithLogger sets the pipeline logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *pipelineConfig) {
		c.logger = logger
	}
}

// NewPipeline assembles the standard chain: token and request id on the way
// out, the session check on success and alert classification on failure.
func NewPipeline(store TokenStore, nav Navigator, presenter Presenter, opts ...Option) *Pipeline {
	cfg := &pipelineConfig{
		tokenHeader: DefaultTokenHeader,
		loginRoute:  DefaultLoginRoute,
		expired:     SessionExpired,
		logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(cfg)
	}
	logger := cfg.logger.With("component", "interceptor")

	req := NewRequestInterceptor(store, cfg.tokenHeader)
	resp := &ResponseInterceptor{
		store:      store,
		nav:        nav,
		loginRoute: cfg.loginRoute,
		expired:    cfg.expired,
		logger:     logger,
	}
	fail := &ErrorInterceptor{
		store:      store,
		nav:        nav,
		presenter:  presenter,
		loginRoute: cfg.loginRoute,
		expired:    cfg.expired,
		logger:     logger,
	}

	return &Pipeline{
		RequestStages:  []RequestStage{req.Intercept, RequestID},
		ResponseStages: []ResponseStage{resp.Intercept},
		FailureStages:  []FailureStage{fail.Intercept},
	}
}

// Request runs the request stages in order and stops at the first error.
func (p *Pipeline) Request(req *model.OutgoingRequest) (*model.OutgoingRequest, error) {
	var err error
	for _, stage := range p.RequestStages {
		if req, err = stage(req); err != nil {
			return nil, err
		}
	}
	return req, nil
}

// Response runs the response stages in order and stops at the first error.
func (p *Pipeline) Response(resp *model.IncomingResponse) (*model.IncomingResponse, error) {
	var err error
	for _, stage := range p.ResponseStages {
		if resp, err = stage(resp); err != nil {
			return nil, err
		}
	}
	return resp, nil
}

// Failure runs every failure stage and returns the last non-nil error.
// The exchange is terminal whatever the stages return.
func (p *Pipeline) Failure(ectx *model.ErrorContext) error {
	if ectx == nil {
		ectx = &model.ErrorContext{}
	}
	var result error
	for _, stage := range p.FailureStages {
		if err := stage(ectx); err != nil {
			result = err
		}
	}
	if result == nil {
		result = causeOrDefault(ectx.Cause)
	}
	return result
}
