// Package payments holds the billing records kept for each account holder:
// the processor-side customer, its current subscription, charges, invoices
// and the processor events received through the webhook.
//
// Aggregates:
//   - Customer: the account holder's processor identity and card on file
//   - CurrentSubscription: at most one per customer
//   - Invoice: owns its InvoiceItems, references Charges
//   - Event: a received webhook message and the failures met while handling it
//
// Processor access goes through the Gateway port; the plan catalog is static
// configuration.
package payments
