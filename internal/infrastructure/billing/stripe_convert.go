package billing

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/payments/backend/internal/domain/payments"
	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v81"
)

// fromMinorUnits converts an integer amount in cents to a decimal
func fromMinorUnits(cents int64) decimal.Decimal {
	return decimal.New(cents, -2)
}

// unixTime converts a Stripe timestamp; zero stays the zero time
func unixTime(ts int64) time.Time {
	if ts == 0 {
		return time.Time{}
	}
	return time.Unix(ts, 0).UTC()
}

// optionalUnixTime converts a Stripe timestamp where zero means unset
func optionalUnixTime(ts int64) *time.Time {
	if ts == 0 {
		return nil
	}
	t := time.Unix(ts, 0).UTC()
	return &t
}

func toRemoteSubscription(sub *stripe.Subscription) *payments.RemoteSubscription {
	out := &payments.RemoteSubscription{
		ID:                 sub.ID,
		Start:              unixTime(sub.StartDate),
		Status:             payments.SubscriptionStatus(sub.Status),
		CancelAtPeriodEnd:  sub.CancelAtPeriodEnd,
		CanceledAt:         optionalUnixTime(sub.CanceledAt),
		CurrentPeriodStart: optionalUnixTime(sub.CurrentPeriodStart),
		CurrentPeriodEnd:   optionalUnixTime(sub.CurrentPeriodEnd),
		EndedAt:            optionalUnixTime(sub.EndedAt),
		TrialStart:         optionalUnixTime(sub.TrialStart),
		TrialEnd:           optionalUnixTime(sub.TrialEnd),
	}
	if sub.Customer != nil {
		out.CustomerStripeID = sub.Customer.ID
	}

	if sub.Items != nil && len(sub.Items.Data) > 0 {
		item := sub.Items.Data[0]
		out.Quantity = item.Quantity
		switch {
		case item.Plan != nil:
			out.PlanStripeID = item.Plan.ID
			out.Amount = fromMinorUnits(item.Plan.Amount)
		case item.Price != nil:
			out.PlanStripeID = item.Price.ID
			out.Amount = fromMinorUnits(item.Price.UnitAmount)
		}
	}
	return out
}

func toRemoteInvoice(inv *stripe.Invoice) *payments.RemoteInvoice {
	out := &payments.RemoteInvoice{
		ID:           inv.ID,
		Attempted:    inv.Attempted,
		AttemptCount: inv.AttemptCount,
		Closed:       inv.Status == stripe.InvoiceStatusVoid || inv.Status == stripe.InvoiceStatusUncollectible,
		Paid:         inv.Paid,
		AmountDue:    fromMinorUnits(inv.AmountDue),
		PeriodStart:  unixTime(inv.PeriodStart),
		PeriodEnd:    unixTime(inv.PeriodEnd),
		Subtotal:     fromMinorUnits(inv.Subtotal),
		Total:        fromMinorUnits(inv.Total),
		Date:         unixTime(inv.Created),
	}
	if inv.Customer != nil {
		out.CustomerStripeID = inv.Customer.ID
	}
	if inv.Charge != nil {
		out.ChargeID = inv.Charge.ID
	}

	if inv.Lines != nil {
		for _, line := range inv.Lines.Data {
			out.Lines = append(out.Lines, toRemoteInvoiceLine(line))
		}
	}
	return out
}

func toRemoteInvoiceLine(line *stripe.InvoiceLineItem) payments.RemoteInvoiceLine {
	out := payments.RemoteInvoiceLine{
		ID:          line.ID,
		Amount:      fromMinorUnits(line.Amount),
		Currency:    string(line.Currency),
		Proration:   line.Proration,
		Type:        string(line.Type),
		Description: line.Description,
	}
	if line.Period != nil {
		out.PeriodStart = unixTime(line.Period.Start)
		out.PeriodEnd = unixTime(line.Period.End)
	}
	switch {
	case line.Plan != nil:
		out.PlanID = line.Plan.ID
	case line.Price != nil:
		out.PlanID = line.Price.ID
	}
	if line.Quantity > 0 {
		q := line.Quantity
		out.Quantity = &q
	}
	return out
}

func toRemoteCharge(ch *stripe.Charge) *payments.RemoteCharge {
	out := &payments.RemoteCharge{
		ID:             ch.ID,
		Amount:         fromMinorUnits(ch.Amount),
		AmountRefunded: fromMinorUnits(ch.AmountRefunded),
		Description:    ch.Description,
		Paid:           ch.Paid,
		Disputed:       ch.Disputed,
		Refunded:       ch.Refunded,
		Created:        unixTime(ch.Created),
	}
	if ch.Customer != nil {
		out.CustomerStripeID = ch.Customer.ID
	}
	if ch.Invoice != nil {
		out.InvoiceStripeID = ch.Invoice.ID
	}
	if ch.BalanceTransaction != nil {
		out.Fee = fromMinorUnits(ch.BalanceTransaction.Fee)
	}

	switch {
	case ch.PaymentMethodDetails != nil && ch.PaymentMethodDetails.Card != nil:
		out.CardLast4 = ch.PaymentMethodDetails.Card.Last4
		out.CardKind = cardKind(string(ch.PaymentMethodDetails.Card.Brand))
	case ch.Source != nil && ch.Source.Card != nil:
		out.CardLast4 = ch.Source.Card.Last4
		out.CardKind = string(ch.Source.Card.Brand)
	}
	return out
}

func toCard(card *stripe.Card) payments.Card {
	if card == nil {
		return payments.Card{}
	}
	return payments.Card{
		Fingerprint: card.Fingerprint,
		Last4:       card.Last4,
		Kind:        string(card.Brand),
	}
}

// cardKind normalises payment-method brand codes ("visa", "amex") to the
// display names used on card objects ("Visa", "American Express").
func cardKind(brand string) string {
	switch brand {
	case "amex":
		return "American Express"
	case "diners":
		return "Diners Club"
	case "mastercard":
		return "MasterCard"
	case "jcb":
		return "JCB"
	case "unionpay":
		return "UnionPay"
	case "":
		return ""
	}
	return strings.ToUpper(brand[:1]) + brand[1:]
}

// wrapError converts Stripe API failures into payments.ProcessorError. Any
// other failure, such as a transport error, is only annotated with op.
func wrapError(op string, err error) error {
	var stripeErr *stripe.Error
	if errors.As(err, &stripeErr) {
		msg := stripeErr.Msg
		if msg == "" {
			msg = "Unknown error"
		}
		return &payments.ProcessorError{
			Op:      op,
			Code:    string(stripeErr.Code),
			Message: msg,
			Err:     err,
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}
