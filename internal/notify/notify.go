// Package notify presents interceptor alerts to the user.
package notify

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/charmbracelet/lipgloss"

	"console-http-go/internal/interceptor"
	"console-http-go/internal/model"
)

// LogPresenter writes alerts to a structured logger.
type LogPresenter struct {
	logger *slog.Logger
}

// NewLogPresenter creates a LogPresenter.
func NewLogPresenter(logger *slog.Logger) *LogPresenter {
	return &LogPresenter{logger: logger.With("component", "alert")}
}

// Alert logs warnings at Warn level and everything else at Error level.
func (p *LogPresenter) Alert(a model.Alert) {
	level := slog.LevelError
	if a.Severity == model.SeverityWarning {
		level = slog.LevelWarn
	}
	p.logger.Log(context.Background(), level, a.Title, "message", a.Message, "severity", string(a.Severity))
}

var severityColors = map[model.Severity]lipgloss.Color{
	model.SeverityWarning: lipgloss.Color("214"),
	model.SeverityError:   lipgloss.Color("196"),
}

// BoxPresenter renders each alert as a bordered dialog on a terminal.
type BoxPresenter struct {
	mu  sync.Mutex
	out io.Writer
}

// NewBoxPresenter creates a BoxPresenter writing to out.
func NewBoxPresenter(out io.Writer) *BoxPresenter {
	return &BoxPresenter{out: out}
}

// Alert writes the rendered dialog followed by a newline.
func (p *BoxPresenter) Alert(a model.Alert) {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, _ = fmt.Fprintln(p.out, Render(a))
}

// Render formats a as a dialog box.
func Render(a model.Alert) string {
	color, ok := severityColors[a.Severity]
	if !ok {
		color = severityColors[model.SeverityError]
	}
	title := lipgloss.NewStyle().Bold(true).Foreground(color).Render(a.Title)
	body := lipgloss.JoinVertical(lipgloss.Left, title, "", a.Message)
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(color).
		Padding(0, 1).
		Render(body)
}

// MultiPresenter fans one alert out to several presenters in order.
type MultiPresenter []interceptor.Presenter

// Alert forwards a to every presenter.
func (m MultiPresenter) Alert(a model.Alert) {
	for _, p := range m {
		p.Alert(a)
	}
}
