/*
allocator.go - Payment recording and credit carry-forward

PURPOSE:
  Turns an incoming cash payment into ledger state: how many full cycles it
  covers (together with any existing credit), the new credit balance, and
  the new next due date. Writes the Payment row and updates the Tenant in a
  single transaction, then asks the reminder gateway to reschedule.

ALGORITHM (per payment):
  1. base date    = next due date of the most recent payment, or the
                    tenant's start date if no payments exist yet
  2. total        = amount paid + current credit balance
  3. new credit   = total mod rent        (exact decimal arithmetic)
     cycles       = (total - new credit) / rent
  4. next due     = base date advanced `cycles` times through the cycle
                    calculator (clamping applies at every step)
  5. persist Payment (with rent/cycle snapshot) + updated Tenant atomically
  6. after commit: cancel pending reminders, create one at the new due date

EDGE POLICY:
  - Partial payment is NOT an error: cycles = 0, the full amount becomes
    credit, the due date does not move.
  - A payment dated before the tenant's last recorded payment is accepted
    with a warning. Cash collection is frequently out of order; the date
    math is unaffected because it anchors on the stored due date.
  - Overpayment simply advances the due date several cycles.
  - Coverage extending past a contract end date is applied with a warning.
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

// PaymentRequest is the input to RecordPayment.
type PaymentRequest struct {
	TenantID    TenantID
	Amount      decimal.Decimal
	PaymentDate time.Time
	Method      PaymentMethod
	Notes       string
}

// PaymentResult reports the applied payment, the tenant's post-payment
// state, and any non-blocking warnings.
type PaymentResult struct {
	Payment  Payment
	Tenant   Tenant
	Warnings []string
}

// Allocator records payments against the ledger.
type Allocator struct {
	store   TxStore
	gateway ReminderGateway
	log     *logrus.Logger
	now     func() time.Time
}

func NewAllocator(store TxStore, gateway ReminderGateway, log *logrus.Logger) *Allocator {
	return &Allocator{store: store, gateway: gateway, log: log, now: time.Now}
}

// Record applies a payment. On any storage failure the entire transaction
// rolls back: no Payment row, no Tenant mutation, no reminder side effect.
func (a *Allocator) Record(ctx context.Context, req PaymentRequest) (*PaymentResult, error) {
	if !req.Amount.IsPositive() {
		return nil, &ValidationError{Field: "amount_paid", Message: "must be greater than zero"}
	}
	if req.Method != "" && !req.Method.Valid() {
		return nil, &ValidationError{Field: "payment_method", Message: fmt.Sprintf("unknown method %q", req.Method)}
	}
	if req.PaymentDate.IsZero() {
		req.PaymentDate = Date(a.now())
	}

	var result PaymentResult

	err := a.store.WithTx(ctx, func(s Store) error {
		tenant, err := s.GetTenant(ctx, req.TenantID)
		if err != nil {
			return err
		}
		if tenant == nil {
			return &NotFoundError{Resource: "tenant", ID: string(req.TenantID)}
		}

		latest, err := s.LatestPayment(ctx, tenant.ID)
		if err != nil {
			return err
		}

		rawBase := tenant.StartDateRaw
		if latest != nil {
			rawBase = latest.NextDueDateRaw
		}
		// A corrupted stored date cannot anchor an allocation.
		baseDate, perr := time.Parse(DateLayout, rawBase)
		if perr != nil {
			return fmt.Errorf("%w: unreadable base due date %q for tenant %s", ErrStorage, rawBase, tenant.ID)
		}

		total := req.Amount.Add(tenant.CreditBalance)
		newCredit := total.Mod(tenant.MonthlyRent)
		cycles := int(total.Sub(newCredit).Div(tenant.MonthlyRent).IntPart())
		nextDue := Advance(baseDate, tenant.RentCycle, cycles)

		if latest != nil && Date(req.PaymentDate).Before(Date(latest.PaymentDate)) {
			result.Warnings = append(result.Warnings, fmt.Sprintf(
				"payment dated %s is earlier than the last recorded payment (%s)",
				Date(req.PaymentDate).Format(DateLayout), Date(latest.PaymentDate).Format(DateLayout)))
		}
		if tenant.ContractEndDate != nil && nextDue.After(Date(*tenant.ContractEndDate)) {
			result.Warnings = append(result.Warnings, fmt.Sprintf(
				"coverage extends to %s, past the contract end date %s",
				nextDue.Format(DateLayout), Date(*tenant.ContractEndDate).Format(DateLayout)))
		}

		payment := Payment{
			ID:             PaymentID(uuid.NewString()),
			TenantID:       tenant.ID,
			AmountPaid:     req.Amount,
			CyclesCovered:  cycles,
			PaymentDate:    Date(req.PaymentDate),
			NextDueDate:    nextDue,
			Method:         req.Method,
			RentAtPayment:  tenant.MonthlyRent,
			CycleAtPayment: tenant.RentCycle,
			Notes:          req.Notes,
			CreatedAt:      a.now().UTC(),
		}
		if payment.Method == "" {
			payment.Method = MethodCash
		}

		status := Classify(nextDue, true, Date(a.now()))

		if err := s.InsertPayment(ctx, payment); err != nil {
			return err
		}
		if err := s.UpdateTenantLedgerState(ctx, tenant.ID, newCredit, status, payment.CreatedAt); err != nil {
			return err
		}

		tenant.CreditBalance = newCredit
		tenant.Status = status
		tenant.UpdatedAt = payment.CreatedAt
		result.Payment = payment
		result.Tenant = *tenant
		return nil
	})
	if err != nil {
		return nil, err
	}

	a.reschedule(ctx, &result)
	return &result, nil
}

// reschedule runs the post-commit reminder side effects. Failures become
// warnings; the ledger write has already committed and stays committed.
func (a *Allocator) reschedule(ctx context.Context, result *PaymentResult) {
	if a.gateway == nil {
		return
	}
	if err := a.gateway.CancelReminders(ctx, result.Tenant.ID); err != nil {
		a.warnGateway(result, "cancelling reminders", err)
	}
	msg := fmt.Sprintf("Rent for room %s is due on %s",
		result.Tenant.RoomNumber, result.Payment.NextDueDate.Format(DateLayout))
	if err := a.gateway.CreateReminder(ctx, result.Tenant.ID, result.Payment.NextDueDate, msg); err != nil {
		a.warnGateway(result, "scheduling reminder", err)
	}
}

func (a *Allocator) warnGateway(result *PaymentResult, action string, err error) {
	if a.log != nil {
		a.log.WithError(err).WithField("tenant_id", result.Tenant.ID).
			Warnf("reminder gateway failed while %s", action)
	}
	result.Warnings = append(result.Warnings, fmt.Sprintf("%s failed: %v", action, err))
}
