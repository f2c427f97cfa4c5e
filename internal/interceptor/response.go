package interceptor

import (
	"log/slog"

	"console-http-go/internal/model"
)

// ResponseInterceptor watches successful responses for an expired session.
type ResponseInterceptor struct {
	store      TokenStore
	nav        Navigator
	loginRoute string
	expired    int
	logger     *slog.Logger
}

// Intercept resets the login info and then navigates to the login view when
// the payload reports an expired session. The response is always returned
// unchanged; callers do not wait for the navigation.
func (i *ResponseInterceptor) Intercept(resp *model.IncomingResponse) (*model.IncomingResponse, error) {
	if resp == nil || resp.Payload.SessionStatus != i.expired {
		return resp, nil
	}
	i.logger.Info("session expired", "status_code", resp.StatusCode, "route", i.loginRoute)
	i.store.ResetLoginInfo()
	i.nav.NavigateTo(i.loginRoute, nil)
	return resp, nil
}
