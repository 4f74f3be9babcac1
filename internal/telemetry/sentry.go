package telemetry

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/getsentry/sentry-go"
)

// SentryConfig holds configuration for Sentry error tracking
type SentryConfig struct {
	DSN         string
	Enabled     bool
	Environment string
	Release     string

	// SampleRate is the share of errors sent, 0 means 1.0.
	SampleRate float64

	// TracesSampleRate is the share of requests traced; 0 disables tracing.
	TracesSampleRate float64

	Debug bool
}

var enabled bool

// InitSentry initializes the Sentry client and returns a flush function for
// shutdown. A disabled config or missing DSN leaves every helper a no-op.
func InitSentry(cfg SentryConfig, logger *slog.Logger) (func(), error) {
	enabled = false

	if !cfg.Enabled {
		logger.Info("Sentry disabled")
		return func() {}, nil
	}
	if cfg.DSN == "" {
		logger.Warn("Sentry DSN not configured, disabling error tracking")
		return func() {}, nil
	}

	sampleRate := cfg.SampleRate
	if sampleRate == 0 {
		sampleRate = 1.0
	}

	err := sentry.Init(sentry.ClientOptions{
		Dsn:              cfg.DSN,
		Environment:      cfg.Environment,
		Release:          cfg.Release,
		SampleRate:       sampleRate,
		TracesSampleRate: cfg.TracesSampleRate,
		EnableTracing:    cfg.TracesSampleRate > 0,
		Debug:            cfg.Debug,
		BeforeSend:       scrubEvent,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Sentry: %w", err)
	}
	enabled = true

	logger.Info("Sentry initialized",
		"environment", cfg.Environment,
		"release", cfg.Release,
		"sample_rate", sampleRate,
		"traces_sample_rate", cfg.TracesSampleRate,
	)

	return func() { sentry.Flush(2 * time.Second) }, nil
}

// scrubEvent keeps session cookies and checkout bodies (shopper contact
// details) out of error reports.
func scrubEvent(event *sentry.Event, hint *sentry.EventHint) *sentry.Event {
	if event.Request != nil {
		event.Request.Cookies = ""
		event.Request.Data = ""
		delete(event.Request.Headers, "Cookie")
		delete(event.Request.Headers, "X-Csrf-Token")
	}
	return event
}

// IsEnabled returns whether Sentry is currently enabled
func IsEnabled() bool {
	return enabled
}

// hubFrom returns the request hub, falling back to the global one.
func hubFrom(ctx context.Context) *sentry.Hub {
	if ctx != nil {
		if hub := sentry.GetHubFromContext(ctx); hub != nil {
			return hub
		}
	}
	return sentry.CurrentHub()
}

func setExtras(scope *sentry.Scope, extras map[string]interface{}) {
	for key, value := range extras {
		scope.SetExtra(key, value)
	}
}

// CaptureError reports an error outside a request. Safe to call when Sentry
// is disabled.
func CaptureError(err error, extras ...map[string]interface{}) {
	if !enabled || err == nil {
		return
	}
	sentry.WithScope(func(scope *sentry.Scope) {
		if len(extras) > 0 {
			setExtras(scope, extras[0])
		}
		sentry.CaptureException(err)
	})
}

// CaptureErrorFromContext reports an error with the request tags set by
// SentryContextMiddleware.
func CaptureErrorFromContext(ctx context.Context, err error, extras map[string]interface{}) {
	if !enabled || err == nil {
		return
	}
	hub := hubFrom(ctx)
	hub.WithScope(func(scope *sentry.Scope) {
		setExtras(scope, extras)
		hub.CaptureException(err)
	})
}

// CaptureMessage reports a non-error event such as a payment amount mismatch.
func CaptureMessage(message string, level sentry.Level, extras ...map[string]interface{}) {
	if !enabled {
		return
	}
	sentry.WithScope(func(scope *sentry.Scope) {
		scope.SetLevel(level)
		if len(extras) > 0 {
			setExtras(scope, extras[0])
		}
		sentry.CaptureMessage(message)
	})
}

// AddBreadcrumb records a step on the request hub so a later error shows
// what the shopper did before it.
func AddBreadcrumb(ctx context.Context, category, message string, data map[string]interface{}) {
	if !enabled {
		return
	}
	hubFrom(ctx).AddBreadcrumb(&sentry.Breadcrumb{
		Category:  category,
		Message:   message,
		Data:      data,
		Level:     sentry.LevelInfo,
		Timestamp: time.Now(),
	}, nil)
}

// StartSpan starts a tracing span and returns its context and finish func.
func StartSpan(ctx context.Context, operation, description string) (context.Context, func()) {
	if !enabled {
		return ctx, func() {}
	}
	span := sentry.StartSpan(ctx, operation)
	span.Description = description
	return span.Context(), span.Finish
}

// SentryMiddleware gives each request its own hub. Panics are reported and
// re-raised so the router's Recovery writes the response.
func SentryMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !enabled {
				next.ServeHTTP(w, r)
				return
			}

			hub := sentry.GetHubFromContext(r.Context())
			if hub == nil {
				hub = sentry.CurrentHub().Clone()
			}
			hub.Scope().SetRequest(r)
			ctx := sentry.SetHubOnContext(r.Context(), hub)

			defer func() {
				if rec := recover(); rec != nil {
					if rec != http.ErrAbortHandler {
						hub.RecoverWithContext(ctx, rec)
					}
					panic(rec)
				}
			}()

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// SentryContextMiddleware tags the request hub with the request id and route
// so errors captured later in the request carry them.
func SentryContextMiddleware(requestID func(ctx context.Context) string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !enabled {
				next.ServeHTTP(w, r)
				return
			}

			hub := sentry.GetHubFromContext(r.Context())
			if hub == nil {
				hub = sentry.CurrentHub().Clone()
			}

			hub.ConfigureScope(func(scope *sentry.Scope) {
				if requestID != nil {
					if id := requestID(r.Context()); id != "" {
						scope.SetTag("request_id", id)
					}
				}
				scope.SetContext("request", map[string]interface{}{
					"method": r.Method,
					"path":   r.URL.Path,
				})
			})

			next.ServeHTTP(w, r.WithContext(sentry.SetHubOnContext(r.Context(), hub)))
		})
	}
}
