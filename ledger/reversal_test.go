package ledger_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ijara/rent-engine/ledger"
)

// =============================================================================
// ROUND TRIP
// =============================================================================

func TestCancelPayment_RestoresPriorStateExactly(t *testing.T) {
	// GIVEN: a tenant whose last payment consumed prior credit
	//        (credit 150000 + payment 450000 = 2 cycles, credit 0)
	// WHEN: cancelling that payment
	// THEN: credit returns to exactly 150000 and the due date rewinds,
	//       because the restore uses the payment's rent snapshot:
	//       0 + 2*300000 - 450000 = 150000

	now := date(2025, time.June, 1)
	svc, _, _ := newTestService(t, now)
	ctx := context.Background()

	tenant := addTenant(t, svc, "101", "300000", ledger.CycleMonthly, now)

	_, err := svc.RecordPayment(ctx, ledger.PaymentRequest{TenantID: tenant.ID, Amount: dec("150000")})
	require.NoError(t, err)

	second, err := svc.RecordPayment(ctx, ledger.PaymentRequest{TenantID: tenant.ID, Amount: dec("450000")})
	require.NoError(t, err)
	require.True(t, second.Tenant.CreditBalance.IsZero())

	restored, err := svc.CancelPayment(ctx, second.Payment.ID, "recorded twice")
	require.NoError(t, err)

	assert.True(t, restored.CreditBalance.Equal(dec("150000")),
		"credit should be restored exactly, got %s", restored.CreditBalance)

	// The surviving partial payment anchors the due date back at June 1.
	latest, err := svc.PaymentHistory(ctx, tenant.ID)
	require.NoError(t, err)
	require.Len(t, latest, 1)
	assert.Equal(t, date(2025, time.June, 1), latest[0].NextDueDate)
}

func TestCancelPayment_RoundTripAfterRentEdit(t *testing.T) {
	// GIVEN: a payment recorded at rent 300000, then the rent edited to 500000
	// WHEN: cancelling the payment
	// THEN: the restore uses the snapshot (300000), not the current rent

	now := date(2025, time.June, 1)
	svc, _, _ := newTestService(t, now)
	ctx := context.Background()

	tenant := addTenant(t, svc, "101", "300000", ledger.CycleMonthly, now)

	result, err := svc.RecordPayment(ctx, ledger.PaymentRequest{TenantID: tenant.ID, Amount: dec("350000")})
	require.NoError(t, err)
	require.Equal(t, 1, result.Payment.CyclesCovered)
	require.True(t, result.Tenant.CreditBalance.Equal(dec("50000")))

	_, err = svc.UpdateTenant(ctx, ledger.TenantUpdate{
		ID: tenant.ID, Name: tenant.Name, RoomNumber: tenant.RoomNumber,
		MonthlyRent: dec("500000"), RentCycle: ledger.CycleMonthly,
	})
	require.NoError(t, err)

	restored, err := svc.CancelPayment(ctx, result.Payment.ID, "")
	require.NoError(t, err)

	// 50000 + 1*300000 - 350000 = 0
	assert.True(t, restored.CreditBalance.IsZero(),
		"credit should restore to zero, got %s", restored.CreditBalance)
}

func TestCancelPayment_LastPayment_RewindsToStartDate(t *testing.T) {
	// Cancelling the only payment leaves the tenant with no history: the due
	// date falls back to the start date and the status reflects that.

	now := date(2025, time.June, 10)
	svc, _, _ := newTestService(t, now)
	ctx := context.Background()

	tenant := addTenant(t, svc, "101", "300000", ledger.CycleMonthly, date(2025, time.June, 1))

	result, err := svc.RecordPayment(ctx, ledger.PaymentRequest{TenantID: tenant.ID, Amount: dec("300000")})
	require.NoError(t, err)

	restored, err := svc.CancelPayment(ctx, result.Payment.ID, "")
	require.NoError(t, err)

	// Start date June 1 is in the past relative to June 10.
	assert.Equal(t, ledger.StatusOverdue, restored.Status)
	assert.True(t, restored.CreditBalance.IsZero())

	history, err := svc.PaymentHistory(ctx, tenant.ID)
	require.NoError(t, err)
	assert.Empty(t, history)
}

// =============================================================================
// MOST-RECENT-ONLY RULE
// =============================================================================

func TestCancelPayment_NotMostRecent_Conflict(t *testing.T) {
	// GIVEN: two recorded payments
	// WHEN: cancelling the older one
	// THEN: ConflictError, and nothing changes

	now := date(2025, time.June, 1)
	svc, _, _ := newTestService(t, now)
	ctx := context.Background()

	tenant := addTenant(t, svc, "101", "300000", ledger.CycleMonthly, now)

	first, err := svc.RecordPayment(ctx, ledger.PaymentRequest{TenantID: tenant.ID, Amount: dec("300000")})
	require.NoError(t, err)
	_, err = svc.RecordPayment(ctx, ledger.PaymentRequest{TenantID: tenant.ID, Amount: dec("150000")})
	require.NoError(t, err)

	_, err = svc.CancelPayment(ctx, first.Payment.ID, "")
	var cerr *ledger.ConflictError
	require.ErrorAs(t, err, &cerr)

	history, err := svc.PaymentHistory(ctx, tenant.ID)
	require.NoError(t, err)
	assert.Len(t, history, 2, "failed cancellation must not delete anything")

	current, err := svc.GetTenant(ctx, tenant.ID)
	require.NoError(t, err)
	assert.True(t, current.CreditBalance.Equal(dec("150000")))
}

func TestCancelPayment_UnknownPayment_NotFound(t *testing.T) {
	now := date(2025, time.June, 1)
	svc, _, _ := newTestService(t, now)

	_, err := svc.CancelPayment(context.Background(), "missing", "")
	var nferr *ledger.NotFoundError
	require.ErrorAs(t, err, &nferr)
	assert.Equal(t, "payment", nferr.Resource)
}

// =============================================================================
// AUDIT TRAIL
// =============================================================================

func TestCancelPayment_WritesAuditRecord(t *testing.T) {
	now := date(2025, time.June, 1)
	svc, store, _ := newTestService(t, now)
	ctx := context.Background()

	tenant := addTenant(t, svc, "101", "300000", ledger.CycleMonthly, now)

	result, err := svc.RecordPayment(ctx, ledger.PaymentRequest{TenantID: tenant.ID, Amount: dec("300000")})
	require.NoError(t, err)

	_, err = svc.CancelPayment(ctx, result.Payment.ID, "tenant dispute")
	require.NoError(t, err)

	cancellations, err := store.CancellationsByTenant(ctx, tenant.ID)
	require.NoError(t, err)
	require.Len(t, cancellations, 1)
	assert.Equal(t, result.Payment.ID, cancellations[0].OriginalPaymentID)
	assert.True(t, cancellations[0].Amount.Equal(dec("300000")))
	assert.Equal(t, "tenant dispute", cancellations[0].Reason)
}
