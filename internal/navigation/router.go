// Package navigation tracks the active console view and runs hooks when
// the view changes.
package navigation

import (
	"log/slog"
	"slices"
	"sync"
)

// Router is a minimal view router. Only registered routes can be entered.
type Router struct {
	mu      sync.Mutex
	routes  map[string][]func()
	current string
	history []string
	logger  *slog.Logger
}

// NewRouter creates a Router that knows the given route names.
func NewRouter(logger *slog.Logger, routes ...string) *Router {
	r := &Router{
		routes: make(map[string][]func(), len(routes)),
		logger: logger.With("component", "router"),
	}
	for _, name := range routes {
		r.routes[name] = nil
	}
	return r
}

// OnEnter registers fn to run whenever route becomes active. The route is
// registered if it was not known yet.
func (r *Router) OnEnter(route string, fn func()) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.routes[route] = append(r.routes[route], fn)
}

// NavigateTo makes route the active view, runs its enter hooks and then
// onComplete. Navigation to an unknown route is dropped without calling
// onComplete.
func (r *Router) NavigateTo(route string, onComplete func()) {
	r.mu.Lock()
	hooks, ok := r.routes[route]
	if !ok {
		r.mu.Unlock()
		r.logger.Warn("navigation to unknown route", "route", route)
		return
	}
	from := r.current
	r.current = route
	r.history = append(r.history, route)
	hooks = slices.Clone(hooks)
	r.mu.Unlock()

	r.logger.Debug("navigated", "from", from, "to", route)
	for _, fn := range hooks {
		fn()
	}
	if onComplete != nil {
		onComplete()
	}
}

// Current returns the active route, empty before the first navigation.
func (r *Router) Current() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.current
}

// History returns every route entered, oldest first.
func (r *Router) History() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.history)
}
