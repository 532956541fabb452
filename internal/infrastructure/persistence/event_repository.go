package persistence

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/payments/backend/internal/domain/payments"
	"github.com/payments/backend/internal/domain/shared"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ToEntity converts the model to a domain entity
func (m *EventModel) ToEntity() *payments.Event {
	e := &payments.Event{
		BaseEntity: shared.BaseEntity{
			ID:        m.ID,
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		StripeID:             m.StripeID,
		Kind:                 m.Kind,
		Livemode:             m.Livemode,
		CustomerID:           m.CustomerID,
		WebhookMessage:       m.WebhookMessage,
		ValidatedMessage:     m.ValidatedMessage,
		Valid:                m.Valid,
		Processed:            m.Processed,
		ProcessingExceptions: make([]payments.EventProcessingException, 0, len(m.Exceptions)),
	}
	for i := range m.Exceptions {
		e.ProcessingExceptions = append(e.ProcessingExceptions, *m.Exceptions[i].ToEntity())
	}
	return e
}

// EventModelFromEntity creates a model from a domain entity
func EventModelFromEntity(e *payments.Event) *EventModel {
	return &EventModel{
		ID:               e.ID,
		StripeID:         e.StripeID,
		Kind:             e.Kind,
		Livemode:         e.Livemode,
		CustomerID:       e.CustomerID,
		WebhookMessage:   e.WebhookMessage,
		ValidatedMessage: e.ValidatedMessage,
		Valid:            e.Valid,
		Processed:        e.Processed,
		CreatedAt:        e.CreatedAt,
		UpdatedAt:        e.UpdatedAt,
	}
}

// ToEntity converts the model to a domain entity
func (m *EventProcessingExceptionModel) ToEntity() *payments.EventProcessingException {
	return &payments.EventProcessingException{
		ID:        m.ID,
		EventID:   m.EventID,
		Data:      m.Data,
		Message:   m.Message,
		Traceback: m.Traceback,
		CreatedAt: m.CreatedAt,
	}
}

// GormEventRepository implements payments.EventRepository
type GormEventRepository struct {
	db *gorm.DB
}

// NewGormEventRepository creates a new event repository
func NewGormEventRepository(db *gorm.DB) *GormEventRepository {
	return &GormEventRepository{db: db}
}

// ExistsByStripeID reports whether an event with the processor id was stored
func (r *GormEventRepository) ExistsByStripeID(ctx context.Context, stripeID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&EventModel{}).
		Where("stripe_id = ?", stripeID).
		Limit(1).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("check event: %w", err)
	}
	return count > 0, nil
}

// Create inserts a new event
func (r *GormEventRepository) Create(ctx context.Context, event *payments.Event) error {
	err := r.db.WithContext(ctx).Omit(clause.Associations).Create(EventModelFromEntity(event)).Error
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return payments.ErrEventAlreadyReceived
		}
		return fmt.Errorf("create event: %w", err)
	}
	return nil
}

// Save updates an existing event
func (r *GormEventRepository) Save(ctx context.Context, event *payments.Event) error {
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Save(EventModelFromEntity(event)).Error; err != nil {
		return fmt.Errorf("save event: %w", err)
	}
	return nil
}

// FindByCustomerID returns the customer's events, newest first
func (r *GormEventRepository) FindByCustomerID(ctx context.Context, customerID uuid.UUID) ([]payments.Event, error) {
	var models []EventModel
	err := r.db.WithContext(ctx).
		Preload("Exceptions", orderByCreated).
		Where("customer_id = ?", customerID).
		Order("created_at DESC").
		Find(&models).Error
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}

	events := make([]payments.Event, len(models))
	for i := range models {
		events[i] = *models[i].ToEntity()
	}
	return events, nil
}

// SaveException stores a processing failure
func (r *GormEventRepository) SaveException(ctx context.Context, exc *payments.EventProcessingException) error {
	model := &EventProcessingExceptionModel{
		ID:        exc.ID,
		EventID:   exc.EventID,
		Data:      exc.Data,
		Message:   exc.Message,
		Traceback: exc.Traceback,
		CreatedAt: exc.CreatedAt,
	}
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return fmt.Errorf("save event processing exception: %w", err)
	}
	return nil
}

var _ payments.EventRepository = (*GormEventRepository)(nil)
