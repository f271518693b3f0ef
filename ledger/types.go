/*
Package ledger implements the rent ledger and tenant-status engine.

PURPOSE:
  This package contains the core domain types and algorithms for turning a
  stream of irregular cash payments into a consistent per-tenant financial
  state: credit balance, next due date, and lifecycle status. It also owns
  the periodic reconciliation sweep that re-derives that state from
  persisted facts.

KEY CONCEPTS IN THIS FILE (types.go):
  - Tenant: a renter with a unique room, a rent amount, and a billing cycle
  - Payment: an immutable record of one cash payment and its allocation
  - Reminder: a scheduled due-date notification (owned by the gateway)
  - Cancellation: append-only audit record for reversed payments
  - Settings: global thresholds for the reconciliation sweep

DESIGN PRINCIPLES:
  1. Precision: uses decimal.Decimal for all money - never float
  2. Derive, don't cache: the next due date is always re-derived from the
     most recent payment (or the start date), never trusted from a field
  3. Snapshots: every payment stores the rent amount and cycle in effect
     when it was recorded, so later rent edits never corrupt history
  4. Type safety: typed IDs and typed enums for status/cycle/method

SEE ALSO:
  - cycle.go:     next-due-date arithmetic per billing cycle
  - classify.go:  lifecycle status derivation
  - allocator.go: payment recording and credit carry-forward
  - reversal.go:  most-recent-only payment cancellation
  - sweep.go:     periodic reconciliation
*/
package ledger

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

type TenantID string
type PaymentID string
type ReminderID string

// =============================================================================
// CYCLE KIND - Billing interval
// =============================================================================

type CycleKind string

const (
	CycleMonthly   CycleKind = "monthly"   // +1 calendar month, day clamped
	CycleBiweekly  CycleKind = "biweekly"  // +14 days
	CycleQuarterly CycleKind = "quarterly" // +3 calendar months, day clamped
)

func (c CycleKind) Valid() bool {
	switch c {
	case CycleMonthly, CycleBiweekly, CycleQuarterly:
		return true
	}
	return false
}

// =============================================================================
// STATUS - Tenant lifecycle status
// =============================================================================

type Status string

const (
	StatusPaid      Status = "paid"
	StatusDueSoon   Status = "due_soon"
	StatusOverdue   Status = "overdue"
	StatusSuspended Status = "suspended" // assigned only by the sweep
)

// =============================================================================
// PAYMENT METHOD
// =============================================================================

type PaymentMethod string

const (
	MethodCash     PaymentMethod = "cash"
	MethodTransfer PaymentMethod = "transfer"
	MethodCard     PaymentMethod = "card"
	MethodOther    PaymentMethod = "other"
)

func (m PaymentMethod) Valid() bool {
	switch m {
	case MethodCash, MethodTransfer, MethodCard, MethodOther:
		return true
	}
	return false
}

// =============================================================================
// ENTITIES
// =============================================================================

// Tenant is a renter occupying a single room.
//
// INVARIANT: at rest, 0 <= CreditBalance < MonthlyRent. A full cycle's worth
// of credit is always converted into an advanced due date by the allocator,
// never left as dormant credit.
type Tenant struct {
	ID              TenantID
	Name            string
	RoomNumber      string // unique across tenants
	Phone           string
	Email           string
	MonthlyRent     decimal.Decimal
	RentCycle       CycleKind
	CreditBalance   decimal.Decimal
	Status          Status
	StartDate       time.Time
	// StartDateRaw is the stored text form of StartDate, populated when the
	// tenant is loaded from the store. Classification consumes the raw form
	// so a corrupted row fails closed instead of parsing as the zero time.
	StartDateRaw    string
	ContractEndDate *time.Time
	Notes           string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Payment records one cash payment and how it was allocated. Immutable once
// written; the only permitted mutation is deletion by reversal, and only for
// the tenant's most recent payment.
//
// RentAtPayment and CycleAtPayment snapshot the tenant's rent terms at the
// moment of recording so later rent edits never retroactively change what
// this payment covered.
type Payment struct {
	ID             PaymentID
	TenantID       TenantID
	AmountPaid     decimal.Decimal
	CyclesCovered  int // may be 0 for a payment that only adds credit
	PaymentDate    time.Time
	NextDueDate    time.Time // due date after this payment is applied
	NextDueDateRaw string    // stored text form of NextDueDate, set on reads
	Method         PaymentMethod
	RentAtPayment  decimal.Decimal
	CycleAtPayment CycleKind
	Notes          string
	CreatedAt      time.Time
}

// ReminderStatus is the lifecycle of a scheduled reminder.
type ReminderStatus string

const (
	ReminderPending   ReminderStatus = "pending"
	ReminderSent      ReminderStatus = "sent"
	ReminderCancelled ReminderStatus = "cancelled"
)

// Reminder is a scheduled due-date notification. The ledger core only issues
// create/cancel requests through the ReminderGateway; it never reads reminder
// state back to make financial decisions.
type Reminder struct {
	ID           ReminderID
	TenantID     TenantID
	DueDate      time.Time
	ReminderDate time.Time
	Status       ReminderStatus
	Message      string
	CreatedAt    time.Time
}

// Cancellation is the append-only audit record written when a payment is
// reversed.
type Cancellation struct {
	ID                string
	OriginalPaymentID PaymentID
	TenantID          TenantID
	Amount            decimal.Decimal
	Reason            string
	CancelledAt       time.Time
}

// Settings is the global singleton read by the reconciliation sweep.
type Settings struct {
	ReminderLeadDays     int // days before due date a reminder fires
	AutoSuspendDays      int // days overdue before forced suspension
	ContractReminderDays int // lead window for contract-expiry alerts
	UpdatedAt            time.Time
}

// DefaultSettings are applied when no settings row exists yet.
func DefaultSettings() Settings {
	return Settings{
		ReminderLeadDays:     3,
		AutoSuspendDays:      14,
		ContractReminderDays: 30,
	}
}

// =============================================================================
// DATE HELPERS - All ledger dates are day-granular UTC
// =============================================================================

// DateLayout is the storage format for all ledger dates.
const DateLayout = "2006-01-02"

// Date truncates t to a day-granular UTC date.
func Date(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// NewDate builds a day-granular UTC date.
func NewDate(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// DaysBetween returns to - from in whole days, ignoring time of day.
func DaysBetween(from, to time.Time) int {
	return int(Date(to).Sub(Date(from)).Hours() / 24)
}
