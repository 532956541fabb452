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
func (m *InvoiceModel) ToEntity() *payments.Invoice {
	inv := &payments.Invoice{
		BaseEntity: shared.BaseEntity{
			ID:        m.ID,
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		CustomerID:     m.CustomerID,
		StripeID:       m.StripeID,
		Attempted:      m.Attempted,
		Attempts:       m.Attempts,
		Closed:         m.Closed,
		Paid:           m.Paid,
		PeriodStart:    m.PeriodStart,
		PeriodEnd:      m.PeriodEnd,
		Subtotal:       m.Subtotal,
		Total:          m.Total,
		Date:           m.Date,
		ChargeStripeID: m.ChargeStripeID,
		Items:          make([]payments.InvoiceItem, 0, len(m.Items)),
		Charges:        make([]payments.Charge, 0, len(m.Charges)),
	}
	for i := range m.Items {
		inv.Items = append(inv.Items, *m.Items[i].ToEntity())
	}
	for i := range m.Charges {
		inv.Charges = append(inv.Charges, *m.Charges[i].ToEntity())
	}
	return inv
}

// InvoiceModelFromEntity creates a model from a domain entity. Charges are
// owned by the charge repository and are not copied.
func InvoiceModelFromEntity(e *payments.Invoice) *InvoiceModel {
	m := &InvoiceModel{
		ID:             e.ID,
		CustomerID:     e.CustomerID,
		StripeID:       e.StripeID,
		Attempted:      e.Attempted,
		Attempts:       e.Attempts,
		Closed:         e.Closed,
		Paid:           e.Paid,
		PeriodStart:    e.PeriodStart,
		PeriodEnd:      e.PeriodEnd,
		Subtotal:       e.Subtotal,
		Total:          e.Total,
		Date:           e.Date,
		ChargeStripeID: e.ChargeStripeID,
		CreatedAt:      e.CreatedAt,
		UpdatedAt:      e.UpdatedAt,
	}
	for i := range e.Items {
		m.Items = append(m.Items, *InvoiceItemModelFromEntity(&e.Items[i]))
	}
	return m
}

// ToEntity converts the model to a domain entity
func (m *InvoiceItemModel) ToEntity() *payments.InvoiceItem {
	return &payments.InvoiceItem{
		BaseEntity: shared.BaseEntity{
			ID:        m.ID,
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		InvoiceID:   m.InvoiceID,
		StripeID:    m.StripeID,
		Amount:      m.Amount,
		Currency:    m.Currency,
		PeriodStart: m.PeriodStart,
		PeriodEnd:   m.PeriodEnd,
		Proration:   m.Proration,
		LineType:    m.LineType,
		Description: m.Description,
		Plan:        m.Plan,
		Quantity:    m.Quantity,
	}
}

// InvoiceItemModelFromEntity creates a model from a domain entity
func InvoiceItemModelFromEntity(e *payments.InvoiceItem) *InvoiceItemModel {
	return &InvoiceItemModel{
		ID:          e.ID,
		InvoiceID:   e.InvoiceID,
		StripeID:    e.StripeID,
		Amount:      e.Amount,
		Currency:    e.Currency,
		PeriodStart: e.PeriodStart,
		PeriodEnd:   e.PeriodEnd,
		Proration:   e.Proration,
		LineType:    e.LineType,
		Description: e.Description,
		Plan:        e.Plan,
		Quantity:    e.Quantity,
		CreatedAt:   e.CreatedAt,
		UpdatedAt:   e.UpdatedAt,
	}
}

// GormInvoiceRepository implements payments.InvoiceRepository
type GormInvoiceRepository struct {
	db *gorm.DB
}

// NewGormInvoiceRepository creates a new invoice repository
func NewGormInvoiceRepository(db *gorm.DB) *GormInvoiceRepository {
	return &GormInvoiceRepository{db: db}
}

// FindByStripeID returns the invoice and its items
func (r *GormInvoiceRepository) FindByStripeID(ctx context.Context, stripeID string) (*payments.Invoice, error) {
	var model InvoiceModel
	err := r.db.WithContext(ctx).
		Preload("Items", orderByCreated).
		First(&model, "stripe_id = ?", stripeID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, fmt.Errorf("find invoice: %w", err)
	}
	return model.ToEntity(), nil
}

// FindByCustomerID returns the customer's invoices, newest first, with items and charges
func (r *GormInvoiceRepository) FindByCustomerID(ctx context.Context, customerID uuid.UUID) ([]payments.Invoice, error) {
	return r.find(ctx, r.db.WithContext(ctx).Where("customer_id = ?", customerID))
}

// FindUnpaidByCustomerID returns invoices that are neither paid nor closed
func (r *GormInvoiceRepository) FindUnpaidByCustomerID(ctx context.Context, customerID uuid.UUID) ([]payments.Invoice, error) {
	return r.find(ctx, r.db.WithContext(ctx).
		Where("customer_id = ? AND paid = ? AND closed = ?", customerID, false, false))
}

func (r *GormInvoiceRepository) find(_ context.Context, query *gorm.DB) ([]payments.Invoice, error) {
	var models []InvoiceModel
	err := query.
		Preload("Items", orderByCreated).
		Preload("Charges", orderByCreated).
		Order("date DESC").
		Find(&models).Error
	if err != nil {
		return nil, fmt.Errorf("list invoices: %w", err)
	}

	invoices := make([]payments.Invoice, len(models))
	for i := range models {
		invoices[i] = *models[i].ToEntity()
	}
	return invoices, nil
}

// Save upserts the invoice and its items in one transaction
func (r *GormInvoiceRepository) Save(ctx context.Context, invoice *payments.Invoice) error {
	model := InvoiceModelFromEntity(invoice)
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Save(model).Error; err != nil {
			return fmt.Errorf("save invoice: %w", err)
		}
		for i := range model.Items {
			if err := tx.Save(&model.Items[i]).Error; err != nil {
				return fmt.Errorf("save invoice item %s: %w", model.Items[i].StripeID, err)
			}
		}
		return nil
	})
}

func orderByCreated(db *gorm.DB) *gorm.DB {
	return db.Order("created_at ASC")
}

var _ payments.InvoiceRepository = (*GormInvoiceRepository)(nil)
