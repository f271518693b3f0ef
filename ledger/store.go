/*
store.go - Persistence interface for the rent ledger

PURPOSE:
  Defines the interface between the ledger core and the database. The store
  is a local, single-device transactional store; every mutating operation
  (allocate, reverse, sweep) runs inside WithTx, and the store serializes
  concurrent transactions. Read-only queries need no transaction.

LOOKUP CONVENTION:
  Get* methods return (nil, nil) when the record is absent. Callers decide
  whether absence is an error.

MOST-RECENT PAYMENT:
  LatestPayment orders by next_due_date desc, then insertion order desc.
  That payment defines the tenant's current due date; it is the only payment
  a reversal may delete.

IMPLEMENTATIONS:
  - store/sqlite: production SQLite store (also used in tests via :memory:)
*/
package ledger

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Store is the persistence surface used by the ledger core.
type Store interface {
	// Tenants
	InsertTenant(ctx context.Context, t Tenant) error
	UpdateTenant(ctx context.Context, t Tenant) error
	GetTenant(ctx context.Context, id TenantID) (*Tenant, error)
	ListTenants(ctx context.Context) ([]Tenant, error)
	// DeleteTenant cascades to the tenant's payments and reminders.
	DeleteTenant(ctx context.Context, id TenantID) error
	// UpdateTenantLedgerState atomically sets the derived fields the ledger
	// owns (credit balance and status) without touching identity fields.
	// updatedAt is the caller's clock; the store never stamps its own.
	UpdateTenantLedgerState(ctx context.Context, id TenantID, credit decimal.Decimal, status Status, updatedAt time.Time) error
	UpdateTenantStatus(ctx context.Context, id TenantID, status Status, updatedAt time.Time) error

	// Payments
	InsertPayment(ctx context.Context, p Payment) error
	GetPayment(ctx context.Context, id PaymentID) (*Payment, error)
	// LatestPayment returns the payment defining the tenant's current due
	// date, or (nil, nil) if the tenant has no payment history.
	LatestPayment(ctx context.Context, tenantID TenantID) (*Payment, error)
	// PaymentsByTenant returns payments newest-first (same ordering as
	// LatestPayment).
	PaymentsByTenant(ctx context.Context, tenantID TenantID) ([]Payment, error)
	DeletePayment(ctx context.Context, id PaymentID) error
	// TenantPaymentTotals returns total amount paid, payment count, and the
	// most recent payment date (nil when no payments exist).
	TenantPaymentTotals(ctx context.Context, tenantID TenantID) (decimal.Decimal, int, *time.Time, error)
	// SumPaymentsBetween sums amount_paid for payment dates in [from, to].
	SumPaymentsBetween(ctx context.Context, from, to time.Time) (decimal.Decimal, error)

	// Cancellations (append-only audit trail)
	InsertCancellation(ctx context.Context, c Cancellation) error
	CancellationsByTenant(ctx context.Context, tenantID TenantID) ([]Cancellation, error)

	// Reminders (written on behalf of the gateway)
	InsertReminder(ctx context.Context, r Reminder) error
	// PendingReminderExists reports whether the tenant already has a pending
	// reminder for the given due date.
	PendingReminderExists(ctx context.Context, tenantID TenantID, dueDate time.Time) (bool, error)
	CancelPendingReminders(ctx context.Context, tenantID TenantID) error
	// UpcomingReminders returns pending reminders with a reminder date in
	// [from, to], soonest first.
	UpcomingReminders(ctx context.Context, from, to time.Time) ([]Reminder, error)

	// Settings (global singleton; defaults when no row exists)
	GetSettings(ctx context.Context) (Settings, error)
	SaveSettings(ctx context.Context, s Settings) error

	// Sweep audit trail
	InsertSweepRun(ctx context.Context, run SweepRun) error
	ListSweepRuns(ctx context.Context, limit int) ([]SweepRun, error)
}

// TxStore wraps Store with transaction support. If fn returns an error the
// transaction rolls back; otherwise it commits. The Store passed to fn sees
// uncommitted writes made earlier in the same transaction.
type TxStore interface {
	Store

	WithTx(ctx context.Context, fn func(Store) error) error
}
