/*
reversal.go - Most-recent-only payment cancellation

PURPOSE:
  Undoes the tenant's most recent payment, restoring the prior credit
  balance and due date exactly, and appends a Cancellation audit record.
  Only the most recent payment (by the same ordering the allocator uses for
  its base date) may be cancelled: that preserves the invariant that credit
  and due date are always re-derivable by walking forward from a consistent
  prefix of history.

EXACT RESTORE:
  The cancelled payment stored a snapshot of the rent in effect when it was
  recorded, so the pre-payment credit is recoverable exactly:

    prior credit = credit + cycles_covered * rent_at_payment - amount_paid

  This reduces to credit - amount_paid for credit-only payments and is
  immune to rent edits made after the payment. The result is clamped at
  zero only as a guard against corrupted rows.
*/
package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// Reversal cancels payments.
type Reversal struct {
	store   TxStore
	gateway ReminderGateway
	log     *logrus.Logger
	now     func() time.Time
}

func NewReversal(store TxStore, gateway ReminderGateway, log *logrus.Logger) *Reversal {
	return &Reversal{store: store, gateway: gateway, log: log, now: time.Now}
}

// Cancel reverses a payment. Returns the tenant's restored state. All ledger
// writes happen in one transaction; reminder rescheduling runs after commit.
func (r *Reversal) Cancel(ctx context.Context, paymentID PaymentID, reason string) (*Tenant, error) {
	var (
		restored    Tenant
		restoredDue time.Time
		hasHistory  bool
	)

	err := r.store.WithTx(ctx, func(s Store) error {
		payment, err := s.GetPayment(ctx, paymentID)
		if err != nil {
			return err
		}
		if payment == nil {
			return &NotFoundError{Resource: "payment", ID: string(paymentID)}
		}

		tenant, err := s.GetTenant(ctx, payment.TenantID)
		if err != nil {
			return err
		}
		if tenant == nil {
			return &NotFoundError{Resource: "tenant", ID: string(payment.TenantID)}
		}

		latest, err := s.LatestPayment(ctx, tenant.ID)
		if err != nil {
			return err
		}
		if latest == nil || latest.ID != payment.ID {
			return &ConflictError{
				Resource: "payment",
				ID:       string(paymentID),
				Message:  "only the tenant's most recent payment can be cancelled",
			}
		}

		if err := s.DeletePayment(ctx, payment.ID); err != nil {
			return err
		}

		// Re-derive the due date from what remains of history.
		prior, err := s.LatestPayment(ctx, tenant.ID)
		if err != nil {
			return err
		}
		hasHistory = prior != nil
		rawDue := tenant.StartDateRaw
		restoredDue = Date(tenant.StartDate)
		if prior != nil {
			rawDue = prior.NextDueDateRaw
			restoredDue = Date(prior.NextDueDate)
		}

		priorCredit := tenant.CreditBalance.
			Add(payment.RentAtPayment.Mul(decimal.NewFromInt(int64(payment.CyclesCovered)))).
			Sub(payment.AmountPaid)
		if priorCredit.IsNegative() {
			priorCredit = decimal.Zero
		}

		status := ClassifyRaw(rawDue, hasHistory, Date(r.now()), r.log)
		cancelledAt := r.now().UTC()

		if err := s.UpdateTenantLedgerState(ctx, tenant.ID, priorCredit, status, cancelledAt); err != nil {
			return err
		}
		if err := s.InsertCancellation(ctx, Cancellation{
			ID:                uuid.NewString(),
			OriginalPaymentID: payment.ID,
			TenantID:          tenant.ID,
			Amount:            payment.AmountPaid,
			Reason:            reason,
			CancelledAt:       cancelledAt,
		}); err != nil {
			return err
		}

		tenant.CreditBalance = priorCredit
		tenant.Status = status
		tenant.UpdatedAt = cancelledAt
		restored = *tenant
		return nil
	})
	if err != nil {
		return nil, err
	}

	r.reschedule(ctx, &restored, restoredDue)
	return &restored, nil
}

func (r *Reversal) reschedule(ctx context.Context, tenant *Tenant, dueDate time.Time) {
	if r.gateway == nil {
		return
	}
	if err := r.gateway.CancelReminders(ctx, tenant.ID); err != nil && r.log != nil {
		r.log.WithError(err).WithField("tenant_id", tenant.ID).
			Warn("reminder gateway failed while cancelling reminders")
	}
	msg := fmt.Sprintf("Rent for room %s is due on %s", tenant.RoomNumber, dueDate.Format(DateLayout))
	if err := r.gateway.CreateReminder(ctx, tenant.ID, dueDate, msg); err != nil && r.log != nil {
		r.log.WithError(err).WithField("tenant_id", tenant.ID).
			Warn("reminder gateway failed while rescheduling reminder")
	}
}
