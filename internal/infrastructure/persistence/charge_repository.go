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
func (m *ChargeModel) ToEntity() *payments.Charge {
	return &payments.Charge{
		BaseEntity: shared.BaseEntity{
			ID:        m.ID,
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		CustomerID:     m.CustomerID,
		InvoiceID:      m.InvoiceID,
		StripeID:       m.StripeID,
		CardLast4:      m.CardLast4,
		CardKind:       m.CardKind,
		Amount:         m.Amount,
		AmountRefunded: m.AmountRefunded,
		Fee:            m.Fee,
		Description:    m.Description,
		Paid:           m.Paid,
		Disputed:       m.Disputed,
		Refunded:       m.Refunded,
		ReceiptSent:    m.ReceiptSent,
		ChargeCreated:  m.ChargeCreated,
	}
}

// ChargeModelFromEntity creates a model from a domain entity
func ChargeModelFromEntity(e *payments.Charge) *ChargeModel {
	return &ChargeModel{
		ID:             e.ID,
		CustomerID:     e.CustomerID,
		InvoiceID:      e.InvoiceID,
		StripeID:       e.StripeID,
		CardLast4:      e.CardLast4,
		CardKind:       e.CardKind,
		Amount:         e.Amount,
		AmountRefunded: e.AmountRefunded,
		Fee:            e.Fee,
		Description:    e.Description,
		Paid:           e.Paid,
		Disputed:       e.Disputed,
		Refunded:       e.Refunded,
		ReceiptSent:    e.ReceiptSent,
		ChargeCreated:  e.ChargeCreated,
		CreatedAt:      e.CreatedAt,
		UpdatedAt:      e.UpdatedAt,
	}
}

// GormChargeRepository implements payments.ChargeRepository
type GormChargeRepository struct {
	db *gorm.DB
}

// NewGormChargeRepository creates a new charge repository
func NewGormChargeRepository(db *gorm.DB) *GormChargeRepository {
	return &GormChargeRepository{db: db}
}

// FindByStripeID returns the charge with the given processor id
func (r *GormChargeRepository) FindByStripeID(ctx context.Context, stripeID string) (*payments.Charge, error) {
	var model ChargeModel
	if err := r.db.WithContext(ctx).First(&model, "stripe_id = ?", stripeID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, fmt.Errorf("find charge: %w", err)
	}
	return model.ToEntity(), nil
}

// FindByCustomerID returns the customer's charges, newest first
func (r *GormChargeRepository) FindByCustomerID(ctx context.Context, customerID uuid.UUID) ([]payments.Charge, error) {
	var models []ChargeModel
	err := r.db.WithContext(ctx).
		Where("customer_id = ?", customerID).
		Order("charge_created DESC").
		Order("created_at DESC").
		Find(&models).Error
	if err != nil {
		return nil, fmt.Errorf("list charges: %w", err)
	}

	charges := make([]payments.Charge, len(models))
	for i := range models {
		charges[i] = *models[i].ToEntity()
	}
	return charges, nil
}

// Save inserts or updates the charge
func (r *GormChargeRepository) Save(ctx context.Context, charge *payments.Charge) error {
	if err := r.db.WithContext(ctx).Save(ChargeModelFromEntity(charge)).Error; err != nil {
		return fmt.Errorf("save charge: %w", err)
	}
	return nil
}

var _ payments.ChargeRepository = (*GormChargeRepository)(nil)
