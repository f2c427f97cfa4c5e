package interceptor

import (
	"log/slog"

	"console-http-go/internal/model"
)

// ErrorInterceptor classifies failed exchanges and presents them to the user.
type ErrorInterceptor struct {
	store      TokenStore
	nav        Navigator
	presenter  Presenter
	loginRoute string
	expired    int
	logger     *slog.Logger
}

// Intercept presents an alert for ectx and returns the terminal error.
//
// On an expired session the login info is reset only after navigation to the
// login view completes, the reverse of the success path.
func (i *ErrorInterceptor) Intercept(ectx *model.ErrorContext) error {
	if ectx == nil {
		ectx = &model.ErrorContext{}
	}

	resp := ectx.Response
	if resp == nil {
		alert := model.Alert{
			Message:  GenericMessage,
			Title:    GenericTitle,
			Severity: model.SeverityError,
		}
		i.logger.Warn("request failed without response", "err", ectx.Cause)
		i.presenter.Alert(alert)
		return &FailureError{Alert: alert, Cause: causeOrDefault(ectx.Cause)}
	}

	if resp.Payload.SessionStatus == i.expired {
		i.logger.Info("session expired", "status_code", resp.StatusCode, "route", i.loginRoute)
		i.nav.NavigateTo(i.loginRoute, i.store.ResetLoginInfo)
	}

	alert := model.Alert{
		Message:  resp.Payload.Message,
		Title:    StatusTitle(resp.StatusCode),
		Severity: model.SeverityWarning,
	}
	i.logger.Warn("request failed",
		"status_code", resp.StatusCode,
		"title", alert.Title,
	)
	i.presenter.Alert(alert)
	return &FailureError{
		StatusCode: resp.StatusCode,
		Alert:      alert,
		Cause:      causeOrDefault(ectx.Cause),
	}
}

func causeOrDefault(err error) error {
	if err != nil {
		return err
	}
	return ErrRequestFailed
}
