package interceptor

import (
	"fmt"
	"net/http"

	"github.com/google/uuid"

	"console-http-go/internal/model"
)

const HeaderXRequestID = "X-Request-ID"

// RequestInterceptor attaches the current access token to every request.
type RequestInterceptor struct {
	store  TokenStore
	header string
}

// NewRequestInterceptor creates a RequestInterceptor writing the token to header.
func NewRequestInterceptor(store TokenStore, header string) *RequestInterceptor {
	if header == "" {
		header = DefaultTokenHeader
	}
	return &RequestInterceptor{store: store, header: header}
}

// Intercept sets the token header. An empty token is attached as-is; a store
// error rejects the request so it is never sent half-processed.
func (i *RequestInterceptor) Intercept(req *model.OutgoingRequest) (*model.OutgoingRequest, error) {
	if req == nil {
		return nil, fmt.Errorf("%w: %w", ErrRequestRejected, ErrNilRequest)
	}
	token, err := i.store.Token()
	if err != nil {
		return nil, fmt.Errorf("%w: read token: %w", ErrRequestRejected, err)
	}
	if req.Header == nil {
		req.Header = make(http.Header)
	}
	req.Header.Set(i.header, token)
	return req, nil
}

// RequestID sets X-Request-ID to a fresh UUID unless the caller set one.
func RequestID(req *model.OutgoingRequest) (*model.OutgoingRequest, error) {
	if req == nil {
		return nil, fmt.Errorf("%w: %w", ErrRequestRejected, ErrNilRequest)
	}
	if req.Header == nil {
		req.Header = make(http.Header)
	}
	if req.Header.Get(HeaderXRequestID) == "" {
		req.Header.Set(HeaderXRequestID, uuid.New().String())
	}
	return req, nil
}
