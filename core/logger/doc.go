// Package logger builds slog loggers and provides attribute helpers.
//
// # Basic Usage
//
//	log := logger.New(
//		logger.WithProduction("mfactl"),
//		logger.WithOutput(os.Stderr),
//	)
//
//	log.Info("lockout backend connected",
//		logger.Component("lockout"),
//		logger.Mode(tracker.Mode()),
//	)
//
// WithDevelopment selects text output at debug level. WithStaging and
// WithProduction select JSON at info level. Every preset tags records with the
// service name and environment.
//
// # Context Values
//
//	log := logger.New(
//		logger.WithJSONFormatter(),
//		logger.WithContextValue("request_id", requestIDKey{}),
//	)
//	log.InfoContext(ctx, "verification attempt")
//
// # Attribute Helpers
//
// Helpers return an empty slog.Attr for nil or empty input, which slog drops:
//
//	log.Warn("verification failed",
//		logger.Principal(p.ID),
//		logger.Tenant(p.TenantID),
//		logger.Error(err), // nil-safe
//	)
//
// Library packages in this module accept a *slog.Logger through options and
// default to Discard.
package logger
