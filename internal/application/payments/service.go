// Package payments holds the use cases behind the payments API: resolving
// the caller's billing customer, subscribing and cancelling, changing the
// card on file, reading billing history and ingesting processor webhooks.
package payments

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/payments/backend/internal/infrastructure/logger"
	"go.uber.org/zap"
)

// User is the authenticated account holder a request acts for
type User struct {
	ID    uuid.UUID
	Email string
}

// WebhookMetrics receives webhook intake outcomes
type WebhookMetrics interface {
	WebhookAccepted(ctx context.Context, kind string)
	WebhookDuplicate(ctx context.Context, kind string)
	WebhookInvalid(ctx context.Context, kind string)
	WebhookFailed(ctx context.Context, kind string)
	WebhookHandled(ctx context.Context, kind string, d time.Duration)
}

type noopMetrics struct{}

func (noopMetrics) WebhookAccepted(context.Context, string)                {}
func (noopMetrics) WebhookDuplicate(context.Context, string)               {}
func (noopMetrics) WebhookInvalid(context.Context, string)                 {}
func (noopMetrics) WebhookFailed(context.Context, string)                  {}
func (noopMetrics) WebhookHandled(context.Context, string, time.Duration) {}

// requestLogger prefers the request-scoped logger carried by ctx, which adds
// request and trace ids, and falls back to base outside a request
func requestLogger(ctx context.Context, base *zap.Logger) *zap.Logger {
	return logger.FromContext(ctx, base)
}

// errorTrace renders the wrap chain of err, outermost first, one per line
func errorTrace(err error) string {
	var b strings.Builder
	for e := err; e != nil; e = errors.Unwrap(e) {
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		b.WriteString(e.Error())
	}
	return b.String()
}
