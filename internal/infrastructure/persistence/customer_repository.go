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
func (m *CustomerModel) ToEntity() *payments.Customer {
	c := &payments.Customer{
		BaseEntity: shared.BaseEntity{
			ID:        m.ID,
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		StripeID:        m.StripeID,
		CardFingerprint: m.CardFingerprint,
		CardLast4:       m.CardLast4,
		CardKind:        m.CardKind,
		DatePurged:      m.DatePurged,
	}
	if m.UserID != nil {
		c.UserID = *m.UserID
	}
	if m.Subscription != nil {
		c.Subscription = m.Subscription.ToEntity()
	}
	return c
}

// CustomerModelFromEntity creates a model from a domain entity
func CustomerModelFromEntity(e *payments.Customer) *CustomerModel {
	m := &CustomerModel{
		ID:              e.ID,
		StripeID:        e.StripeID,
		CardFingerprint: e.CardFingerprint,
		CardLast4:       e.CardLast4,
		CardKind:        e.CardKind,
		DatePurged:      e.DatePurged,
		CreatedAt:       e.CreatedAt,
		UpdatedAt:       e.UpdatedAt,
	}
	if e.UserID != uuid.Nil {
		userID := e.UserID
		m.UserID = &userID
	}
	return m
}

// GormCustomerRepository implements payments.CustomerRepository
type GormCustomerRepository struct {
	db *gorm.DB
}

// NewGormCustomerRepository creates a new customer repository
func NewGormCustomerRepository(db *gorm.DB) *GormCustomerRepository {
	return &GormCustomerRepository{db: db}
}

// FindByUserID returns the customer owned by userID
func (r *GormCustomerRepository) FindByUserID(ctx context.Context, userID uuid.UUID) (*payments.Customer, error) {
	return r.findOne(ctx, "user_id = ?", userID)
}

// FindByStripeID returns the customer with the given processor id
func (r *GormCustomerRepository) FindByStripeID(ctx context.Context, stripeID string) (*payments.Customer, error) {
	return r.findOne(ctx, "stripe_id = ?", stripeID)
}

func (r *GormCustomerRepository) findOne(ctx context.Context, query string, arg any) (*payments.Customer, error) {
	var model CustomerModel
	err := r.db.WithContext(ctx).
		Preload("Subscription").
		Where(query, arg).
		First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, fmt.Errorf("find customer: %w", err)
	}
	return model.ToEntity(), nil
}

// Save inserts or updates the customer. The loaded subscription is not written.
func (r *GormCustomerRepository) Save(ctx context.Context, customer *payments.Customer) error {
	model := CustomerModelFromEntity(customer)
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Save(model).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return shared.ErrAlreadyExists
		}
		return fmt.Errorf("save customer: %w", err)
	}
	return nil
}

var _ payments.CustomerRepository = (*GormCustomerRepository)(nil)
