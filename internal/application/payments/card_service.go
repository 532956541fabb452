package payments

import (
	"context"
	"fmt"

	"github.com/payments/backend/internal/domain/payments"
	"go.uber.org/zap"
)

// CardService replaces the card on file
type CardService struct {
	accounts  *AccountService
	sync      *SyncService
	customers payments.CustomerRepository
	gateway   payments.Gateway
	logger    *zap.Logger
}

// NewCardService creates a new CardService
func NewCardService(accounts *AccountService, sync *SyncService, customers payments.CustomerRepository, gateway payments.Gateway, logger *zap.Logger) *CardService {
	return &CardService{
		accounts:  accounts,
		sync:      sync,
		customers: customers,
		gateway:   gateway,
		logger:    logger,
	}
}

// ChangeCard tokenizes card, makes it the default source and records its
// summary. A customer adding a first card is billed for pending items and
// has unpaid invoices retried.
func (s *CardService) ChangeCard(ctx context.Context, user User, card payments.CardDetails) (*payments.Customer, error) {
	customer, err := s.accounts.GetOrCreateCustomer(ctx, user)
	if err != nil {
		return nil, err
	}
	firstCard := !customer.HasCard()

	token, err := s.gateway.CreateCardToken(ctx, card)
	if err != nil {
		return nil, err
	}
	onFile, err := s.gateway.UpdateCard(ctx, customer.StripeID, token)
	if err != nil {
		return nil, err
	}

	customer.UpdateCard(onFile)
	if err := s.customers.Save(ctx, customer); err != nil {
		return nil, fmt.Errorf("failed to save customer: %w", err)
	}

	if firstCard {
		invoiced, err := s.sync.SendInvoice(ctx, customer)
		if err != nil {
			return nil, err
		}
		if err := s.sync.RetryUnpaidInvoices(ctx, customer); err != nil {
			return nil, err
		}
		requestLogger(ctx, s.logger).Info("First card added",
			zap.String("customer_id", customer.ID.String()),
			zap.Bool("invoiced", invoiced))
	}
	return customer, nil
}
