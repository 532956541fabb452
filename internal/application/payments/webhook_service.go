package payments

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/payments/backend/internal/domain/payments"
	"github.com/payments/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// DuplicateEventMessage is stored on the exception recorded for a redelivery
const DuplicateEventMessage = "Duplicate event record"

// DefaultClaimTTL bounds how long a delivery holds its idempotency claim
const DefaultClaimTTL = 24 * time.Hour

// WebhookService ingests processor events delivered to the webhook
type WebhookService struct {
	events      payments.EventRepository
	gateway     payments.Gateway
	processor   *EventProcessor
	idempotency shared.IdempotencyStore
	claimTTL    time.Duration
	metrics     WebhookMetrics
	now         func() time.Time
	logger      *zap.Logger
}

// WebhookServiceConfig contains dependencies for WebhookService
type WebhookServiceConfig struct {
	Events      payments.EventRepository
	Gateway     payments.Gateway
	Processor   *EventProcessor
	Idempotency shared.IdempotencyStore
	ClaimTTL    time.Duration
	Metrics     WebhookMetrics // optional
	Logger      *zap.Logger
}

// NewWebhookService creates a new WebhookService
func NewWebhookService(cfg WebhookServiceConfig) *WebhookService {
	ttl := cfg.ClaimTTL
	if ttl <= 0 {
		ttl = DefaultClaimTTL
	}
	var metrics WebhookMetrics = noopMetrics{}
	if cfg.Metrics != nil {
		metrics = cfg.Metrics
	}
	return &WebhookService{
		events:      cfg.Events,
		gateway:     cfg.Gateway,
		processor:   cfg.Processor,
		idempotency: cfg.Idempotency,
		claimTTL:    ttl,
		metrics:     metrics,
		now:         time.Now,
		logger:      cfg.Logger,
	}
}

// WebhookResult is either the stored event or, for a redelivery, the
// exception recorded in its place.
type WebhookResult struct {
	Event     *payments.Event
	Exception *payments.EventProcessingException
}

// IsDuplicate reports whether the delivery was a redelivery
func (r *WebhookResult) IsDuplicate() bool {
	return r.Exception != nil
}

// Receive handles one delivery. data is the event object and body the
// request payload it arrived in, kept verbatim on duplicate records.
func (s *WebhookService) Receive(ctx context.Context, body []byte, data json.RawMessage) (*WebhookResult, error) {
	msg, err := payments.ParseWebhookMessage(data)
	if err != nil {
		return nil, err
	}
	started := s.now()
	defer func() { s.metrics.WebhookHandled(ctx, msg.Type, s.now().Sub(started)) }()

	logger := requestLogger(ctx, s.logger).With(zap.String("event_id", msg.ID), zap.String("kind", msg.Type))

	claimed, err := s.idempotency.MarkProcessed(ctx, msg.ID, s.claimTTL)
	if err != nil {
		// the unique index on events still rejects duplicates
		logger.Warn("Idempotency store unavailable, relying on database", zap.Error(err))
		claimed = true
	}
	if !claimed {
		return s.recordDuplicate(ctx, msg, body)
	}

	exists, err := s.events.ExistsByStripeID(ctx, msg.ID)
	if err != nil {
		s.release(ctx, msg.ID, logger)
		return nil, fmt.Errorf("failed to check event: %w", err)
	}
	if exists {
		return s.recordDuplicate(ctx, msg, body)
	}

	event := payments.NewEvent(msg)
	if err := s.events.Create(ctx, event); err != nil {
		if errors.Is(err, payments.ErrEventAlreadyReceived) {
			return s.recordDuplicate(ctx, msg, body)
		}
		s.release(ctx, msg.ID, logger)
		return nil, fmt.Errorf("failed to store event: %w", err)
	}
	s.metrics.WebhookAccepted(ctx, msg.Type)
	logger.Info("Webhook event stored", zap.Bool("livemode", msg.Livemode))

	if err := s.validate(ctx, event); err != nil {
		s.metrics.WebhookFailed(ctx, msg.Type)
		return nil, err
	}
	if !event.IsValid() {
		s.metrics.WebhookInvalid(ctx, msg.Type)
		logger.Warn("Webhook event does not match the processor's copy")
		return &WebhookResult{Event: event}, nil
	}

	if err := s.processor.Process(ctx, event); err != nil {
		s.metrics.WebhookFailed(ctx, msg.Type)
		return nil, err
	}
	if !event.Processed {
		s.metrics.WebhookFailed(ctx, msg.Type)
	}
	return &WebhookResult{Event: event}, nil
}

// validate re-fetches the event from the processor and stores the verdict
func (s *WebhookService) validate(ctx context.Context, event *payments.Event) error {
	retrieved, err := s.gateway.RetrieveEvent(ctx, event.StripeID)
	if err != nil {
		return err
	}
	if err := event.Validate(retrieved); err != nil {
		return fmt.Errorf("failed to validate event: %w", err)
	}
	if err := s.events.Save(ctx, event); err != nil {
		return fmt.Errorf("failed to save event: %w", err)
	}
	return nil
}

func (s *WebhookService) recordDuplicate(ctx context.Context, msg *payments.WebhookMessage, body []byte) (*WebhookResult, error) {
	exc := payments.NewEventProcessingException(nil, string(body), DuplicateEventMessage, "")
	if err := s.events.SaveException(ctx, exc); err != nil {
		return nil, fmt.Errorf("failed to record duplicate event: %w", err)
	}
	s.metrics.WebhookDuplicate(ctx, msg.Type)
	requestLogger(ctx, s.logger).Info("Duplicate webhook event",
		zap.String("event_id", msg.ID),
		zap.String("kind", msg.Type))
	return &WebhookResult{Exception: exc}, nil
}

func (s *WebhookService) release(ctx context.Context, key string, logger *zap.Logger) {
	if err := s.idempotency.Release(ctx, key); err != nil {
		logger.Warn("Failed to release idempotency claim", zap.Error(err))
	}
}
