package payments

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/payments/backend/internal/domain/payments"
	"github.com/payments/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// EventProcessor applies validated webhook events to local state
type EventProcessor struct {
	customers payments.CustomerRepository
	events    payments.EventRepository
	sync      *SyncService
	logger    *zap.Logger
}

// NewEventProcessor creates a new EventProcessor
func NewEventProcessor(customers payments.CustomerRepository, events payments.EventRepository, sync *SyncService, logger *zap.Logger) *EventProcessor {
	return &EventProcessor{
		customers: customers,
		events:    events,
		sync:      sync,
		logger:    logger,
	}
}

// Process handles a valid, unprocessed event. A failure while applying the
// event is stored as a processing exception on the event and leaves it
// unprocessed; only persistence failures are returned.
func (p *EventProcessor) Process(ctx context.Context, event *payments.Event) error {
	if !event.CanProcess() {
		return nil
	}

	var customer *payments.Customer
	if event.LinksCustomer() {
		c, err := p.linkCustomer(ctx, event)
		if err != nil {
			return err
		}
		customer = c
	}

	if err := p.apply(ctx, event, customer); err != nil {
		requestLogger(ctx, p.logger).Warn("Webhook event processing failed",
			zap.String("event_id", event.StripeID),
			zap.String("kind", event.Kind),
			zap.Error(err))

		exc := payments.NewEventProcessingException(&event.ID, string(event.Message()), err.Error(), errorTrace(err))
		if saveErr := p.events.SaveException(ctx, exc); saveErr != nil {
			return fmt.Errorf("failed to save processing exception: %w", saveErr)
		}
		event.ProcessingExceptions = append(event.ProcessingExceptions, *exc)
		return p.save(ctx, event)
	}

	event.MarkProcessed()
	requestLogger(ctx, p.logger).Info("Webhook event processed",
		zap.String("event_id", event.StripeID),
		zap.String("kind", event.Kind))
	return p.save(ctx, event)
}

func (p *EventProcessor) apply(ctx context.Context, event *payments.Event, customer *payments.Customer) error {
	switch {
	case strings.HasPrefix(event.Kind, payments.KindPrefixInvoice):
		id, err := event.ObjectID()
		if err != nil {
			return err
		}
		_, err = p.sync.SyncInvoiceByID(ctx, id)
		return err

	case strings.HasPrefix(event.Kind, payments.KindPrefixCharge):
		id, err := event.ObjectID()
		if err != nil {
			return err
		}
		_, err = p.sync.RecordCharge(ctx, id)
		return err

	case strings.HasPrefix(event.Kind, payments.KindPrefixSubscription):
		if customer == nil {
			return nil
		}
		_, err := p.sync.SyncCurrentSubscription(ctx, customer)
		return err

	case event.Kind == payments.KindCustomerDeleted:
		if customer == nil {
			return nil
		}
		return p.sync.PurgeCustomer(ctx, customer)
	}
	return nil
}

// linkCustomer attaches the event to the local customer it names. Events for
// customers this service never created are left unlinked.
func (p *EventProcessor) linkCustomer(ctx context.Context, event *payments.Event) (*payments.Customer, error) {
	stripeID := event.CustomerStripeID()
	if stripeID == "" {
		return nil, nil
	}

	customer, err := p.customers.FindByStripeID(ctx, stripeID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load customer: %w", err)
	}
	event.LinkCustomer(customer.ID)
	return customer, nil
}

func (p *EventProcessor) save(ctx context.Context, event *payments.Event) error {
	if err := p.events.Save(ctx, event); err != nil {
		return fmt.Errorf("failed to save event: %w", err)
	}
	return nil
}
