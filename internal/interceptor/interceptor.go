// Package interceptor implements the request/response interception pipeline
// that every console API call passes through.
package interceptor

import "console-http-go/internal/model"

const (
	// DefaultTokenHeader carries the console access token.
	DefaultTokenHeader = "X-Access-Token"
	// DefaultLoginRoute is the view shown after the session expires.
	DefaultLoginRoute = "login"
	// SessionExpired is the payload status the back end uses for an
	// invalidated session.
	SessionExpired = 2
)

// TokenStore holds the caller's credential. Token may return an empty
// string for unauthenticated callers.
type TokenStore interface {
	Token() (string, error)
	ResetLoginInfo()
}

// Navigator moves the user to another view. onComplete, when non-nil, runs
// once the transition has finished.
type Navigator interface {
	NavigateTo(route string, onComplete func())
}

// Presenter shows an alert to the user.
type Presenter interface {
	Alert(alert model.Alert)
}

// RequestStage transforms an outgoing request. An error rejects the request.
type RequestStage func(req *model.OutgoingRequest) (*model.OutgoingRequest, error)

// ResponseStage inspects a successful response.
type ResponseStage func(resp *model.IncomingResponse) (*model.IncomingResponse, error)

// FailureStage handles a failed exchange and returns the error the caller sees.
type FailureStage func(ectx *model.ErrorContext) error
