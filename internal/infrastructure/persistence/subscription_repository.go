package persistence

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/payments/backend/internal/domain/payments"
	"github.com/payments/backend/internal/domain/shared"
	"gorm.io/gorm"
)

// ToEntity converts the model to a domain entity
func (m *CurrentSubscriptionModel) ToEntity() *payments.CurrentSubscription {
	return &payments.CurrentSubscription{
		BaseEntity: shared.BaseEntity{
			ID:        m.ID,
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		CustomerID:         m.CustomerID,
		StripeID:           m.StripeID,
		Plan:               m.Plan,
		Quantity:           m.Quantity,
		Start:              m.Start,
		Status:             payments.SubscriptionStatus(m.Status),
		CancelAtPeriodEnd:  m.CancelAtPeriodEnd,
		CanceledAt:         m.CanceledAt,
		CurrentPeriodStart: m.CurrentPeriodStart,
		CurrentPeriodEnd:   m.CurrentPeriodEnd,
		EndedAt:            m.EndedAt,
		TrialStart:         m.TrialStart,
		TrialEnd:           m.TrialEnd,
		Amount:             m.Amount,
	}
}

// CurrentSubscriptionModelFromEntity creates a model from a domain entity
func CurrentSubscriptionModelFromEntity(e *payments.CurrentSubscription) *CurrentSubscriptionModel {
	return &CurrentSubscriptionModel{
		ID:                 e.ID,
		CustomerID:         e.CustomerID,
		StripeID:           e.StripeID,
		Plan:               e.Plan,
		Quantity:           e.Quantity,
		Start:              e.Start,
		Status:             string(e.Status),
		CancelAtPeriodEnd:  e.CancelAtPeriodEnd,
		CanceledAt:         e.CanceledAt,
		CurrentPeriodStart: e.CurrentPeriodStart,
		CurrentPeriodEnd:   e.CurrentPeriodEnd,
		EndedAt:            e.EndedAt,
		TrialStart:         e.TrialStart,
		TrialEnd:           e.TrialEnd,
		Amount:             e.Amount,
		CreatedAt:          e.CreatedAt,
		UpdatedAt:          e.UpdatedAt,
	}
}

// GormSubscriptionRepository implements payments.SubscriptionRepository
type GormSubscriptionRepository struct {
	db *gorm.DB
}

// NewGormSubscriptionRepository creates a new subscription repository
func NewGormSubscriptionRepository(db *gorm.DB) *GormSubscriptionRepository {
	return &GormSubscriptionRepository{db: db}
}

// FindByCustomerID returns the customer's current subscription
func (r *GormSubscriptionRepository) FindByCustomerID(ctx context.Context, customerID uuid.UUID) (*payments.CurrentSubscription, error) {
	var model CurrentSubscriptionModel
	if err := r.db.WithContext(ctx).First(&model, "customer_id = ?", customerID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, fmt.Errorf("find subscription: %w", err)
	}
	return model.ToEntity(), nil
}

// Save inserts or updates the subscription
func (r *GormSubscriptionRepository) Save(ctx context.Context, sub *payments.CurrentSubscription) error {
	if err := r.db.WithContext(ctx).Save(CurrentSubscriptionModelFromEntity(sub)).Error; err != nil {
		return fmt.Errorf("save subscription: %w", err)
	}
	return nil
}

// DeleteByCustomerID removes the customer's subscription row, if any
func (r *GormSubscriptionRepository) DeleteByCustomerID(ctx context.Context, customerID uuid.UUID) error {
	err := r.db.WithContext(ctx).
		Where("customer_id = ?", customerID).
		Delete(&CurrentSubscriptionModel{}).Error
	if err != nil {
		return fmt.Errorf("delete subscription: %w", err)
	}
	return nil
}

var _ payments.SubscriptionRepository = (*GormSubscriptionRepository)(nil)
