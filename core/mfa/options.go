package mfa

import (
	"log/slog"

	"go.opentelemetry.io/otel/trace"

	"github.com/dmitrymomot/mfakit/pkg/hasher"
)

// Option configures a Service.
type Option func(*Service)

// WithClock sets the time source.
func WithClock(c Clock) Option {
	return func(s *Service) {
		if c != nil {
			s.clock = c
		}
	}
}

// WithHasher sets the recovery code hasher. The default is bcrypt.
func WithHasher(h hasher.Hasher) Option {
	return func(s *Service) {
		if h != nil {
			s.hasher = h
		}
	}
}

// WithQRRenderer sets the provisioning image renderer. Without one, Setup
// returns an empty QRCode.
func WithQRRenderer(r QRRenderer) Option {
	return func(s *Service) {
		if r != nil {
			s.qr = r
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithTracer sets the tracer used for operation spans.
func WithTracer(t trace.Tracer) Option {
	return func(s *Service) {
		if t != nil {
			s.tracer = t
		}
	}
}
