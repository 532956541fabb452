package payments

import (
	"context"
	"fmt"

	"github.com/payments/backend/internal/domain/payments"
)

// HistoryService lists the caller's billing records
type HistoryService struct {
	accounts *AccountService
	charges  payments.ChargeRepository
	invoices payments.InvoiceRepository
	events   payments.EventRepository
}

// NewHistoryService creates a new HistoryService
func NewHistoryService(accounts *AccountService, charges payments.ChargeRepository, invoices payments.InvoiceRepository, events payments.EventRepository) *HistoryService {
	return &HistoryService{
		accounts: accounts,
		charges:  charges,
		invoices: invoices,
		events:   events,
	}
}

// Charges returns the user's charges, newest first
func (s *HistoryService) Charges(ctx context.Context, user User) ([]payments.Charge, error) {
	customer, err := s.accounts.GetOrCreateCustomer(ctx, user)
	if err != nil {
		return nil, err
	}
	charges, err := s.charges.FindByCustomerID(ctx, customer.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list charges: %w", err)
	}
	return charges, nil
}

// Invoices returns the user's invoices with items and charges
func (s *HistoryService) Invoices(ctx context.Context, user User) ([]payments.Invoice, error) {
	customer, err := s.accounts.GetOrCreateCustomer(ctx, user)
	if err != nil {
		return nil, err
	}
	invoices, err := s.invoices.FindByCustomerID(ctx, customer.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list invoices: %w", err)
	}
	return invoices, nil
}

// Events returns webhook events linked to the user's customer
func (s *HistoryService) Events(ctx context.Context, user User) ([]payments.Event, error) {
	customer, err := s.accounts.GetOrCreateCustomer(ctx, user)
	if err != nil {
		return nil, err
	}
	events, err := s.events.FindByCustomerID(ctx, customer.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}
	return events, nil
}
