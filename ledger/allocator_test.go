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
// CYCLE COVERAGE
// =============================================================================

func TestRecordPayment_ExactMultiple_AdvancesCycles(t *testing.T) {
	// GIVEN: rent 300000, no payment history, start date June 1
	// WHEN: paying 900000
	// THEN: 3 cycles covered, zero credit, next due September 1, status Paid

	now := date(2025, time.June, 1)
	svc, _, _ := newTestService(t, now)
	ctx := context.Background()

	tenant := addTenant(t, svc, "101", "300000", ledger.CycleMonthly, now)

	result, err := svc.RecordPayment(ctx, ledger.PaymentRequest{
		TenantID: tenant.ID,
		Amount:   dec("900000"),
		Method:   ledger.MethodTransfer,
	})
	require.NoError(t, err)

	assert.Equal(t, 3, result.Payment.CyclesCovered)
	assert.Equal(t, date(2025, time.September, 1), result.Payment.NextDueDate)
	assert.True(t, result.Tenant.CreditBalance.IsZero(),
		"credit should be zero, got %s", result.Tenant.CreditBalance)
	assert.Equal(t, ledger.StatusPaid, result.Tenant.Status)
	assert.Empty(t, result.Warnings)
}

func TestRecordPayment_Partial_BecomesCredit(t *testing.T) {
	// GIVEN: rent 300000
	// WHEN: paying 150000 (half a cycle)
	// THEN: zero cycles, the full amount is credit, the due date does not move

	now := date(2025, time.June, 1)
	svc, _, _ := newTestService(t, now)
	ctx := context.Background()

	tenant := addTenant(t, svc, "101", "300000", ledger.CycleMonthly, now)

	result, err := svc.RecordPayment(ctx, ledger.PaymentRequest{
		TenantID: tenant.ID,
		Amount:   dec("150000"),
	})
	require.NoError(t, err)

	assert.Equal(t, 0, result.Payment.CyclesCovered)
	assert.Equal(t, date(2025, time.June, 1), result.Payment.NextDueDate)
	assert.True(t, result.Tenant.CreditBalance.Equal(dec("150000")))
	// Due today: still DueSoon, not Paid.
	assert.Equal(t, ledger.StatusDueSoon, result.Tenant.Status)
}

func TestRecordPayment_CreditCombinesWithNextPayment(t *testing.T) {
	// GIVEN: 150000 credit from an earlier partial payment
	// WHEN: paying another 450000 (total 600000 against rent 300000)
	// THEN: 2 cycles covered, credit back to zero

	now := date(2025, time.June, 1)
	svc, _, _ := newTestService(t, now)
	ctx := context.Background()

	tenant := addTenant(t, svc, "101", "300000", ledger.CycleMonthly, now)

	_, err := svc.RecordPayment(ctx, ledger.PaymentRequest{TenantID: tenant.ID, Amount: dec("150000")})
	require.NoError(t, err)

	result, err := svc.RecordPayment(ctx, ledger.PaymentRequest{TenantID: tenant.ID, Amount: dec("450000")})
	require.NoError(t, err)

	assert.Equal(t, 2, result.Payment.CyclesCovered)
	assert.Equal(t, date(2025, time.August, 1), result.Payment.NextDueDate)
	assert.True(t, result.Tenant.CreditBalance.IsZero())
}

func TestRecordPayment_InvariantCreditBelowRent(t *testing.T) {
	// credit is always total mod rent, strictly below one cycle's rent

	now := date(2025, time.June, 1)
	svc, _, _ := newTestService(t, now)
	ctx := context.Background()

	tenant := addTenant(t, svc, "101", "300000", ledger.CycleMonthly, now)

	amounts := []string{"100000", "250000", "700000", "50000", "899999.99"}
	for _, amount := range amounts {
		result, err := svc.RecordPayment(ctx, ledger.PaymentRequest{TenantID: tenant.ID, Amount: dec(amount)})
		require.NoError(t, err)
		assert.True(t, result.Tenant.CreditBalance.LessThan(dec("300000")),
			"after paying %s credit %s must stay below rent", amount, result.Tenant.CreditBalance)
		assert.False(t, result.Tenant.CreditBalance.IsNegative())
	}
}

func TestRecordPayment_SnapshotsRentAndCycle(t *testing.T) {
	// The payment row captures the rent and cycle in effect when recorded,
	// so later rent edits cannot corrupt reversal math.

	now := date(2025, time.June, 1)
	svc, _, _ := newTestService(t, now)
	ctx := context.Background()

	tenant := addTenant(t, svc, "101", "300000", ledger.CycleBiweekly, now)

	result, err := svc.RecordPayment(ctx, ledger.PaymentRequest{TenantID: tenant.ID, Amount: dec("300000")})
	require.NoError(t, err)

	assert.True(t, result.Payment.RentAtPayment.Equal(dec("300000")))
	assert.Equal(t, ledger.CycleBiweekly, result.Payment.CycleAtPayment)
	assert.Equal(t, date(2025, time.June, 15), result.Payment.NextDueDate)
}

// =============================================================================
// EDGE POLICY
// =============================================================================

func TestRecordPayment_OutOfOrderDate_WarnsButApplies(t *testing.T) {
	// GIVEN: a payment dated June 10 already recorded
	// WHEN: recording a payment dated June 5
	// THEN: the payment applies (anchored on the stored due date) with a warning

	now := date(2025, time.June, 12)
	svc, _, _ := newTestService(t, now)
	ctx := context.Background()

	tenant := addTenant(t, svc, "101", "300000", ledger.CycleMonthly, date(2025, time.June, 1))

	_, err := svc.RecordPayment(ctx, ledger.PaymentRequest{
		TenantID: tenant.ID, Amount: dec("300000"), PaymentDate: date(2025, time.June, 10),
	})
	require.NoError(t, err)

	result, err := svc.RecordPayment(ctx, ledger.PaymentRequest{
		TenantID: tenant.ID, Amount: dec("300000"), PaymentDate: date(2025, time.June, 5),
	})
	require.NoError(t, err)

	require.Len(t, result.Warnings, 1)
	assert.Contains(t, result.Warnings[0], "earlier than the last recorded payment")
	// Date math anchors on the stored due date, not the payment date.
	assert.Equal(t, date(2025, time.August, 1), result.Payment.NextDueDate)
}

func TestRecordPayment_CoveragePastContractEnd_Warns(t *testing.T) {
	now := date(2025, time.June, 1)
	svc, _, _ := newTestService(t, now)
	ctx := context.Background()

	end := date(2025, time.July, 15)
	tenant, err := svc.AddTenant(ctx, ledger.NewTenant{
		Name:            "Tenant 101",
		RoomNumber:      "101",
		MonthlyRent:     dec("300000"),
		StartDate:       now,
		ContractEndDate: &end,
	})
	require.NoError(t, err)

	result, err := svc.RecordPayment(ctx, ledger.PaymentRequest{TenantID: tenant.ID, Amount: dec("900000")})
	require.NoError(t, err)

	require.Len(t, result.Warnings, 1)
	assert.Contains(t, result.Warnings[0], "past the contract end date")
	assert.Equal(t, date(2025, time.September, 1), result.Payment.NextDueDate)
}

// =============================================================================
// VALIDATION & FAILURE
// =============================================================================

func TestRecordPayment_NonPositiveAmount_Rejected(t *testing.T) {
	now := date(2025, time.June, 1)
	svc, _, _ := newTestService(t, now)
	ctx := context.Background()

	tenant := addTenant(t, svc, "101", "300000", ledger.CycleMonthly, now)

	for _, amount := range []string{"0", "-100"} {
		_, err := svc.RecordPayment(ctx, ledger.PaymentRequest{TenantID: tenant.ID, Amount: dec(amount)})
		var verr *ledger.ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, "amount_paid", verr.Field)
	}
}

func TestRecordPayment_UnknownTenant_NotFound(t *testing.T) {
	now := date(2025, time.June, 1)
	svc, _, _ := newTestService(t, now)

	_, err := svc.RecordPayment(context.Background(), ledger.PaymentRequest{
		TenantID: "missing", Amount: dec("100"),
	})
	var nferr *ledger.NotFoundError
	require.ErrorAs(t, err, &nferr)
	assert.Equal(t, "tenant", nferr.Resource)
}

func TestRecordPayment_UnknownMethod_Rejected(t *testing.T) {
	now := date(2025, time.June, 1)
	svc, _, _ := newTestService(t, now)
	ctx := context.Background()

	tenant := addTenant(t, svc, "101", "300000", ledger.CycleMonthly, now)

	_, err := svc.RecordPayment(ctx, ledger.PaymentRequest{
		TenantID: tenant.ID, Amount: dec("100"), Method: "bitcoin",
	})
	var verr *ledger.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "payment_method", verr.Field)
}

func TestRecordPayment_UnreadableAnchorDate_StorageError(t *testing.T) {
	// A mangled stored date cannot anchor an allocation; the payment is
	// rejected instead of advancing from the zero time.

	now := date(2025, time.June, 1)
	svc, store, gw := newTestService(t, now)
	ctx := context.Background()

	tenant := addTenant(t, svc, "101", "300000", ledger.CycleMonthly, now)

	alloc := ledger.NewAllocator(&corruptDateStore{TxStore: store, raw: "06/01/2025"}, gw, quietLogger())
	alloc.SetClock(func() time.Time { return now })

	_, err := alloc.Record(ctx, ledger.PaymentRequest{TenantID: tenant.ID, Amount: dec("300000")})
	require.ErrorIs(t, err, ledger.ErrStorage)

	history, err := svc.PaymentHistory(ctx, tenant.ID)
	require.NoError(t, err)
	assert.Empty(t, history, "rejected allocation must leave no payment row")
}

// =============================================================================
// REMINDER SIDE EFFECTS
// =============================================================================

func TestRecordPayment_ReschedulesReminder(t *testing.T) {
	now := date(2025, time.June, 1)
	svc, _, gw := newTestService(t, now)
	ctx := context.Background()

	tenant := addTenant(t, svc, "101", "300000", ledger.CycleMonthly, now)

	result, err := svc.RecordPayment(ctx, ledger.PaymentRequest{TenantID: tenant.ID, Amount: dec("300000")})
	require.NoError(t, err)

	require.Len(t, gw.cancelled, 1)
	require.Len(t, gw.created, 1)
	assert.Equal(t, tenant.ID, gw.created[0].TenantID)
	assert.Equal(t, result.Payment.NextDueDate, gw.created[0].DueDate)
}

func TestRecordPayment_GatewayFailure_PaymentStillCommitted(t *testing.T) {
	// GIVEN: a reminder gateway that is down
	// WHEN: recording a payment
	// THEN: the ledger write commits; the gateway failure surfaces as warnings

	now := date(2025, time.June, 1)
	svc, _, gw := newTestService(t, now)
	ctx := context.Background()

	tenant := addTenant(t, svc, "101", "300000", ledger.CycleMonthly, now)
	gw.fail = true

	result, err := svc.RecordPayment(ctx, ledger.PaymentRequest{TenantID: tenant.ID, Amount: dec("300000")})
	require.NoError(t, err)
	assert.Len(t, result.Warnings, 2)

	history, err := svc.PaymentHistory(ctx, tenant.ID)
	require.NoError(t, err)
	assert.Len(t, history, 1)
}
