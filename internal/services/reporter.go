package services

import (
	"context"

	"github.com/getsentry/sentry-go"
)

// ErrorReporter forwards unexpected failures to an error tracker.
type ErrorReporter interface {
	Report(ctx context.Context, err error, tags map[string]string)
}

// SentryReporter reports to the hub on the context, or the current hub.
// Without sentry.Init it reports nowhere.
type SentryReporter struct{}

func (SentryReporter) Report(ctx context.Context, err error, tags map[string]string) {
	hub := sentry.GetHubFromContext(ctx)
	if hub == nil {
		hub = sentry.CurrentHub()
	}
	hub.WithScope(func(scope *sentry.Scope) {
		scope.SetTags(tags)
		hub.CaptureException(err)
	})
}
