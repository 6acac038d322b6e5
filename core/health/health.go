package health

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/dmitrymomot/mfakit/core/logger"
)

const (
	StatusAlive       = "ALIVE"
	StatusReady       = "READY"
	StatusUnavailable = "UNAVAILABLE"

	DefaultTimeout = 2 * time.Second
)

// Check is a named dependency probe, e.g. pg.Healthcheck(pool).
type Check struct {
	Name string
	Fn   func(context.Context) error
}

// Report is the readiness response body.
type Report struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
	Info   map[string]string `json:"info,omitempty"`
}

// Liveness answers 200 ALIVE without touching dependencies.
func Liveness(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, StatusAlive)
}

// Option configures the readiness handler.
type Option func(*readiness)

// WithTimeout bounds the whole set of checks.
func WithTimeout(d time.Duration) Option {
	return func(r *readiness) {
		if d > 0 {
			r.timeout = d
		}
	}
}

// WithLogger sets the logger for failed checks.
func WithLogger(l *slog.Logger) Option {
	return func(r *readiness) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithInfo adds a value computed per request to the report, such as the
// lockout mode. Info never affects the status code.
func WithInfo(key string, fn func() string) Option {
	return func(r *readiness) {
		r.info[key] = fn
	}
}

type readiness struct {
	checks  []Check
	timeout time.Duration
	logger  *slog.Logger
	info    map[string]func() string
}

// Readiness runs every check and answers 200 READY when all pass, or 503 with
// the failing checks otherwise.
func Readiness(checks []Check, opts ...Option) http.Handler {
	r := &readiness{
		checks:  checks,
		timeout: DefaultTimeout,
		logger:  logger.Discard(),
		info:    make(map[string]func() string),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (h *readiness) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	ctx, cancel := context.WithTimeout(req.Context(), h.timeout)
	defer cancel()

	rep := Report{Status: StatusReady, Checks: make(map[string]string, len(h.checks))}
	for _, c := range h.checks {
		if err := c.Fn(ctx); err != nil {
			h.logger.ErrorContext(ctx, "readiness check failed",
				logger.Component(c.Name), logger.Error(err))
			rep.Status = StatusUnavailable
			rep.Checks[c.Name] = err.Error()
			continue
		}
		rep.Checks[c.Name] = "ok"
	}

	if len(h.info) > 0 {
		rep.Info = make(map[string]string, len(h.info))
		for k, fn := range h.info {
			rep.Info[k] = fn()
		}
	}

	code := http.StatusOK
	if rep.Status != StatusReady {
		code = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(rep)
}
