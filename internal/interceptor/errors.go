package interceptor

import (
	"errors"
	"fmt"

	"console-http-go/internal/model"
)

var (
	ErrRequestRejected = errors.New("interceptor: request rejected")
	ErrRequestFailed   = errors.New("interceptor: request failed")
	ErrNilRequest      = errors.New("interceptor: nil request")
)

// FailureError is returned for every failed exchange. The alert it carries
// has already been presented to the user.
type FailureError struct {
	StatusCode int // 0 when no response was received
	Alert      model.Alert
	Cause      error
}

func (e *FailureError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("interceptor: %s: %v", e.Alert.Title, e.Cause)
	}
	return fmt.Sprintf("interceptor: status %d (%s): %s", e.StatusCode, e.Alert.Title, e.Alert.Message)
}

func (e *FailureError) Is(target error) bool {
	return target == ErrRequestFailed
}

func (e *FailureError) Unwrap() error {
	return e.Cause
}

// AsFailure extracts a *FailureError from err.
func AsFailure(err error) (*FailureError, bool) {
	var fe *FailureError
	if errors.As(err, &fe) {
		return fe, true
	}
	return nil, false
}
