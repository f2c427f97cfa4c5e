package model

import (
	"encoding/json"
	"math"
	"net/http"
)

// OutgoingRequest is a console API call before it reaches the transport.
// Interceptor stages may mutate it in place.
type OutgoingRequest struct {
	Method string
	URL    string
	Header http.Header
	Params map[string]any
	Body   []byte
}

// NewOutgoingRequest returns a request with an initialized header map.
func NewOutgoingRequest(method, url string, body []byte) *OutgoingRequest {
	return &OutgoingRequest{
		Method: method,
		URL:    url,
		Header: make(http.Header),
		Body:   body,
	}
}

// Payload is the common envelope returned by the console back end.
// SessionStatus is application level and unrelated to the HTTP status.
type Payload struct {
	SessionStatus int    `json:"status"`
	Message       string `json:"message"`
}

// IncomingResponse is a fully read transport response.
type IncomingResponse struct {
	StatusCode int
	Header     http.Header
	Body       []byte
	Payload    Payload
}

// NewIncomingResponse builds a response and decodes its envelope.
// Bodies that are not a JSON object leave Payload zero.
func NewIncomingResponse(status int, header http.Header, body []byte) *IncomingResponse {
	return &IncomingResponse{
		StatusCode: status,
		Header:     header,
		Body:       body,
		Payload:    decodePayload(body),
	}
}

// decodePayload reads each envelope field on its own so that a field of an
// unexpected type does not hide the others. status counts only when it is a
// whole number; a non-string message keeps its JSON text.
func decodePayload(body []byte) Payload {
	var p Payload
	var fields map[string]json.RawMessage
	if len(body) == 0 || json.Unmarshal(body, &fields) != nil {
		return p
	}
	if raw, ok := fields["status"]; ok {
		var n float64
		if json.Unmarshal(raw, &n) == nil && n == math.Trunc(n) && math.Abs(n) <= math.MaxInt32 {
			p.SessionStatus = int(n)
		}
	}
	if raw, ok := fields["message"]; ok {
		var msg string
		switch {
		case json.Unmarshal(raw, &msg) == nil:
			p.Message = msg
		case string(raw) != "null":
			p.Message = string(raw)
		}
	}
	return p
}

// Decode unmarshals the raw body into v.
func (r *IncomingResponse) Decode(v any) error {
	return json.Unmarshal(r.Body, v)
}

// ErrorContext describes a failed exchange. Response is nil when the
// transport produced no readable response at all.
type ErrorContext struct {
	Response *IncomingResponse
	Cause    error
}

// Severity controls how an alert is presented.
type Severity string

const (
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// Alert is a titled message shown to the user.
type Alert struct {
	Message  string
	Title    string
	Severity Severity
}
