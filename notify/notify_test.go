package notify_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ijara/rent-engine/ledger"
	"github.com/ijara/rent-engine/notify"
	"github.com/ijara/rent-engine/store/sqlite"
)

func newTestGateway(t *testing.T) (*notify.Gateway, *sqlite.Store, ledger.TenantID) {
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)

	tenant := ledger.Tenant{
		ID:          "tenant-1",
		Name:        "Tenant 101",
		RoomNumber:  "101",
		MonthlyRent: decimal.RequireFromString("300000"),
		RentCycle:   ledger.CycleMonthly,
		Status:      ledger.StatusDueSoon,
		StartDate:   time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC),
		CreatedAt:   time.Now().UTC(),
		UpdatedAt:   time.Now().UTC(),
	}
	require.NoError(t, store.InsertTenant(context.Background(), tenant))

	return notify.New(store, notify.SMTPConfig{}, log), store, tenant.ID
}

func TestCreateReminder_PersistsAheadOfDueDate(t *testing.T) {
	// GIVEN: the default reminder lead of 3 days
	// WHEN: creating a reminder for a July 1 due date
	// THEN: a pending reminder row is scheduled for June 28

	gw, store, tenantID := newTestGateway(t)
	ctx := context.Background()

	due := time.Date(2025, time.July, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, gw.CreateReminder(ctx, tenantID, due, "Rent for room 101 is due on 2025-07-01"))

	reminders, err := store.UpcomingReminders(ctx,
		time.Date(2025, time.June, 25, 0, 0, 0, 0, time.UTC),
		time.Date(2025, time.June, 30, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Len(t, reminders, 1)

	assert.Equal(t, tenantID, reminders[0].TenantID)
	assert.Equal(t, ledger.ReminderPending, reminders[0].Status)
	assert.Equal(t, time.Date(2025, time.June, 28, 0, 0, 0, 0, time.UTC), reminders[0].ReminderDate)
	assert.Equal(t, due, reminders[0].DueDate)
}

func TestCreateReminder_SameDueDateNotDuplicated(t *testing.T) {
	// GIVEN: a pending reminder for a due date
	// WHEN: the same alert arrives again, as repeated sweeps produce
	// THEN: no second row is inserted; a different due date still is

	gw, store, tenantID := newTestGateway(t)
	ctx := context.Background()

	due := time.Date(2025, time.July, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, gw.CreateReminder(ctx, tenantID, due, "contract ends soon"))
	require.NoError(t, gw.CreateReminder(ctx, tenantID, due, "contract ends soon"))

	reminders, err := store.UpcomingReminders(ctx,
		time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2025, time.September, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Len(t, reminders, 1)

	require.NoError(t, gw.CreateReminder(ctx, tenantID, due.AddDate(0, 1, 0), "next month"))

	reminders, err = store.UpcomingReminders(ctx,
		time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2025, time.September, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Len(t, reminders, 2)
}

func TestCancelReminders_VoidsPending(t *testing.T) {
	gw, store, tenantID := newTestGateway(t)
	ctx := context.Background()

	due := time.Date(2025, time.July, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, gw.CreateReminder(ctx, tenantID, due, "first"))
	require.NoError(t, gw.CreateReminder(ctx, tenantID, due, "second"))

	require.NoError(t, gw.CancelReminders(ctx, tenantID))

	reminders, err := store.UpcomingReminders(ctx,
		time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2025, time.August, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Empty(t, reminders, "cancelled reminders must not show as upcoming")
}

func TestCreateReminder_RespectsConfiguredLead(t *testing.T) {
	gw, store, tenantID := newTestGateway(t)
	ctx := context.Background()

	require.NoError(t, store.SaveSettings(ctx, ledger.Settings{
		ReminderLeadDays: 7, AutoSuspendDays: 14, ContractReminderDays: 30,
		UpdatedAt: time.Now().UTC(),
	}))

	due := time.Date(2025, time.July, 10, 0, 0, 0, 0, time.UTC)
	require.NoError(t, gw.CreateReminder(ctx, tenantID, due, "msg"))

	reminders, err := store.UpcomingReminders(ctx,
		time.Date(2025, time.July, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2025, time.July, 5, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Len(t, reminders, 1)
	assert.Equal(t, time.Date(2025, time.July, 3, 0, 0, 0, 0, time.UTC), reminders[0].ReminderDate)
}
