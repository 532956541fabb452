package billing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/payments/backend/internal/domain/payments"
	"github.com/stripe/stripe-go/v81"
	"github.com/stripe/stripe-go/v81/client"
	"go.uber.org/zap"
)

// StripeAdapter implements payments.Gateway on the Stripe API
type StripeAdapter struct {
	api    *client.API
	logger *zap.Logger
}

// NewStripeAdapter creates a new Stripe adapter
func NewStripeAdapter(api *client.API, logger *zap.Logger) *StripeAdapter {
	return &StripeAdapter{
		api:    api,
		logger: logger,
	}
}

// CreateCustomer creates a Stripe customer for userID
func (a *StripeAdapter) CreateCustomer(ctx context.Context, userID uuid.UUID, email string) (string, error) {
	a.logger.Debug("Creating Stripe customer", zap.String("user_id", userID.String()))

	params := &stripe.CustomerParams{}
	params.Context = ctx
	if email != "" {
		params.Email = stripe.String(email)
	}
	params.AddMetadata("user_id", userID.String())

	cust, err := a.api.Customers.New(params)
	if err != nil {
		a.logger.Error("Failed to create Stripe customer",
			zap.String("user_id", userID.String()),
			zap.Error(err))
		return "", wrapError("create customer", err)
	}

	a.logger.Info("Created Stripe customer",
		zap.String("user_id", userID.String()),
		zap.String("customer_id", cust.ID))
	return cust.ID, nil
}

// CreateCardToken tokenizes raw card details
func (a *StripeAdapter) CreateCardToken(ctx context.Context, card payments.CardDetails) (string, error) {
	params := &stripe.TokenParams{
		Card: &stripe.CardParams{
			Number:         stripe.String(card.Number),
			ExpMonth:       stripe.String(card.ExpMonth),
			ExpYear:        stripe.String(card.ExpYear),
			CVC:            stripe.String(card.CVC),
			Name:           card.Name,
			AddressLine1:   card.AddressLine1,
			AddressLine2:   card.AddressLine2,
			AddressCity:    card.AddressCity,
			AddressZip:     card.AddressZip,
			AddressState:   card.AddressState,
			AddressCountry: card.AddressCountry,
		},
	}
	params.Context = ctx

	tok, err := a.api.Tokens.New(params)
	if err != nil {
		a.logger.Warn("Failed to create card token", zap.Error(err))
		return "", wrapError("create card token", err)
	}
	return tok.ID, nil
}

// UpdateCard makes token the customer's default source
func (a *StripeAdapter) UpdateCard(ctx context.Context, customerStripeID, token string) (payments.Card, error) {
	a.logger.Debug("Updating Stripe customer card", zap.String("customer_id", customerStripeID))

	params := &stripe.CustomerParams{Source: stripe.String(token)}
	params.Context = ctx
	params.AddExpand("default_source")

	cust, err := a.api.Customers.Update(customerStripeID, params)
	if err != nil {
		a.logger.Error("Failed to update Stripe customer card",
			zap.String("customer_id", customerStripeID),
			zap.Error(err))
		return payments.Card{}, wrapError("update card", err)
	}

	if cust.DefaultSource != nil && cust.DefaultSource.Card != nil {
		return toCard(cust.DefaultSource.Card), nil
	}

	// the default source was not expanded; read the card from the token
	tok, err := a.api.Tokens.Get(token, &stripe.TokenParams{Params: stripe.Params{Context: ctx}})
	if err != nil {
		return payments.Card{}, wrapError("get card token", err)
	}
	return toCard(tok.Card), nil
}

// Subscribe creates a subscription, or moves the existing one to a new plan
func (a *StripeAdapter) Subscribe(ctx context.Context, req payments.SubscribeRequest) (*payments.RemoteSubscription, error) {
	a.logger.Debug("Subscribing Stripe customer",
		zap.String("customer_id", req.CustomerStripeID),
		zap.String("plan_id", req.PlanStripeID))

	quantity := req.Quantity
	if quantity < 1 {
		quantity = 1
	}

	var (
		sub *stripe.Subscription
		err error
	)
	if req.SubscriptionStripeID != "" {
		sub, err = a.changePlan(ctx, req.SubscriptionStripeID, req.PlanStripeID, quantity)
	} else {
		params := &stripe.SubscriptionParams{
			Customer: stripe.String(req.CustomerStripeID),
			Items: []*stripe.SubscriptionItemsParams{
				{
					Price:    stripe.String(req.PlanStripeID),
					Quantity: stripe.Int64(quantity),
				},
			},
		}
		if req.TrialPeriodDays > 0 {
			params.TrialPeriodDays = stripe.Int64(req.TrialPeriodDays)
		}
		params.Context = ctx
		sub, err = a.api.Subscriptions.New(params)
	}
	if err != nil {
		a.logger.Error("Failed to subscribe Stripe customer",
			zap.String("customer_id", req.CustomerStripeID),
			zap.String("plan_id", req.PlanStripeID),
			zap.Error(err))
		return nil, wrapError("subscribe", err)
	}

	a.logger.Info("Subscribed Stripe customer",
		zap.String("customer_id", req.CustomerStripeID),
		zap.String("subscription_id", sub.ID),
		zap.String("status", string(sub.Status)))
	return toRemoteSubscription(sub), nil
}

func (a *StripeAdapter) changePlan(ctx context.Context, subscriptionID, planID string, quantity int64) (*stripe.Subscription, error) {
	getParams := &stripe.SubscriptionParams{}
	getParams.Context = ctx
	current, err := a.api.Subscriptions.Get(subscriptionID, getParams)
	if err != nil {
		return nil, err
	}
	if current.Items == nil || len(current.Items.Data) == 0 {
		return nil, fmt.Errorf("subscription %s has no items", subscriptionID)
	}

	params := &stripe.SubscriptionParams{
		Items: []*stripe.SubscriptionItemsParams{
			{
				ID:       stripe.String(current.Items.Data[0].ID),
				Price:    stripe.String(planID),
				Quantity: stripe.Int64(quantity),
			},
		},
		CancelAtPeriodEnd: stripe.Bool(false),
		ProrationBehavior: stripe.String("create_prorations"),
	}
	params.Context = ctx
	return a.api.Subscriptions.Update(subscriptionID, params)
}

// CancelSubscription cancels a subscription, at period end or immediately
func (a *StripeAdapter) CancelSubscription(ctx context.Context, subscriptionStripeID string, atPeriodEnd bool) (*payments.RemoteSubscription, error) {
	a.logger.Debug("Canceling Stripe subscription",
		zap.String("subscription_id", subscriptionStripeID),
		zap.Bool("cancel_at_period_end", atPeriodEnd))

	var (
		sub *stripe.Subscription
		err error
	)
	if atPeriodEnd {
		params := &stripe.SubscriptionParams{CancelAtPeriodEnd: stripe.Bool(true)}
		params.Context = ctx
		sub, err = a.api.Subscriptions.Update(subscriptionStripeID, params)
	} else {
		params := &stripe.SubscriptionCancelParams{}
		params.Context = ctx
		sub, err = a.api.Subscriptions.Cancel(subscriptionStripeID, params)
	}
	if err != nil {
		a.logger.Error("Failed to cancel Stripe subscription",
			zap.String("subscription_id", subscriptionStripeID),
			zap.Error(err))
		return nil, wrapError("cancel subscription", err)
	}

	a.logger.Info("Canceled Stripe subscription",
		zap.String("subscription_id", sub.ID),
		zap.String("status", string(sub.Status)),
		zap.Bool("cancel_at_period_end", sub.CancelAtPeriodEnd))
	return toRemoteSubscription(sub), nil
}

// CurrentSubscription returns the customer's first live subscription
func (a *StripeAdapter) CurrentSubscription(ctx context.Context, customerStripeID string) (*payments.RemoteSubscription, error) {
	params := &stripe.SubscriptionListParams{
		Customer: stripe.String(customerStripeID),
	}
	params.Context = ctx
	params.Limit = stripe.Int64(1)
	params.Single = true

	iter := a.api.Subscriptions.List(params)
	if iter.Next() {
		return toRemoteSubscription(iter.Subscription()), nil
	}
	if err := iter.Err(); err != nil {
		a.logger.Error("Failed to list Stripe subscriptions",
			zap.String("customer_id", customerStripeID),
			zap.Error(err))
		return nil, wrapError("list subscriptions", err)
	}
	return nil, nil
}

// SendInvoice invoices the customer's pending items and collects payment
func (a *StripeAdapter) SendInvoice(ctx context.Context, customerStripeID string) error {
	params := &stripe.InvoiceParams{
		Customer:                    stripe.String(customerStripeID),
		PendingInvoiceItemsBehavior: stripe.String("include"),
	}
	params.Context = ctx

	inv, err := a.api.Invoices.New(params)
	if err != nil {
		if isNothingToInvoice(err) {
			return payments.ErrNothingToInvoice
		}
		a.logger.Error("Failed to create Stripe invoice",
			zap.String("customer_id", customerStripeID),
			zap.Error(err))
		return wrapError("create invoice", err)
	}

	a.logger.Info("Created Stripe invoice",
		zap.String("customer_id", customerStripeID),
		zap.String("invoice_id", inv.ID),
		zap.Int64("amount_due", inv.AmountDue))

	if inv.AmountDue > 0 {
		return a.PayInvoice(ctx, inv.ID)
	}
	return nil
}

// ListInvoices returns every invoice of the customer
func (a *StripeAdapter) ListInvoices(ctx context.Context, customerStripeID string) ([]*payments.RemoteInvoice, error) {
	params := &stripe.InvoiceListParams{
		Customer: stripe.String(customerStripeID),
	}
	params.Context = ctx

	var invoices []*payments.RemoteInvoice
	iter := a.api.Invoices.List(params)
	for iter.Next() {
		invoices = append(invoices, toRemoteInvoice(iter.Invoice()))
	}
	if err := iter.Err(); err != nil {
		a.logger.Error("Failed to list Stripe invoices",
			zap.String("customer_id", customerStripeID),
			zap.Error(err))
		return nil, wrapError("list invoices", err)
	}
	return invoices, nil
}

// GetInvoice retrieves one invoice with its lines
func (a *StripeAdapter) GetInvoice(ctx context.Context, invoiceStripeID string) (*payments.RemoteInvoice, error) {
	params := &stripe.InvoiceParams{}
	params.Context = ctx

	inv, err := a.api.Invoices.Get(invoiceStripeID, params)
	if err != nil {
		return nil, wrapError("get invoice", err)
	}
	return toRemoteInvoice(inv), nil
}

// PayInvoice attempts to collect an open invoice
func (a *StripeAdapter) PayInvoice(ctx context.Context, invoiceStripeID string) error {
	params := &stripe.InvoicePayParams{}
	params.Context = ctx

	if _, err := a.api.Invoices.Pay(invoiceStripeID, params); err != nil {
		if isAlreadyPaid(err) {
			return payments.ErrInvoiceAlreadyPaid
		}
		a.logger.Warn("Failed to pay Stripe invoice",
			zap.String("invoice_id", invoiceStripeID),
			zap.Error(err))
		return wrapError("pay invoice", err)
	}

	a.logger.Info("Paid Stripe invoice", zap.String("invoice_id", invoiceStripeID))
	return nil
}

// GetCharge retrieves a charge with its balance transaction for the fee
func (a *StripeAdapter) GetCharge(ctx context.Context, chargeStripeID string) (*payments.RemoteCharge, error) {
	params := &stripe.ChargeParams{}
	params.Context = ctx
	params.AddExpand("balance_transaction")

	ch, err := a.api.Charges.Get(chargeStripeID, params)
	if err != nil {
		return nil, wrapError("get charge", err)
	}
	return toRemoteCharge(ch), nil
}

// RetrieveEvent returns Stripe's copy of the event as raw JSON
func (a *StripeAdapter) RetrieveEvent(ctx context.Context, eventStripeID string) (json.RawMessage, error) {
	params := &stripe.EventParams{}
	params.Context = ctx

	evt, err := a.api.Events.Get(eventStripeID, params)
	if err != nil {
		a.logger.Warn("Failed to retrieve Stripe event",
			zap.String("event_id", eventStripeID),
			zap.Error(err))
		return nil, wrapError("retrieve event", err)
	}

	if evt.LastResponse != nil && len(evt.LastResponse.RawJSON) > 0 {
		return json.RawMessage(evt.LastResponse.RawJSON), nil
	}
	raw, err := json.Marshal(evt)
	if err != nil {
		return nil, fmt.Errorf("encode event %s: %w", eventStripeID, err)
	}
	return raw, nil
}

func isNothingToInvoice(err error) bool {
	var stripeErr *stripe.Error
	if !errors.As(err, &stripeErr) {
		return false
	}
	return stripeErr.Code == stripe.ErrorCodeInvoiceNoCustomerLineItems ||
		strings.Contains(stripeErr.Msg, "Nothing to invoice")
}

func isAlreadyPaid(err error) bool {
	var stripeErr *stripe.Error
	if !errors.As(err, &stripeErr) {
		return false
	}
	return strings.Contains(strings.ToLower(stripeErr.Msg), "already paid")
}

var _ payments.Gateway = (*StripeAdapter)(nil)
