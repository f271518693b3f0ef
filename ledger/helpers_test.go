package ledger_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/ijara/rent-engine/ledger"
	"github.com/ijara/rent-engine/store/sqlite"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestService(t *testing.T, now time.Time) (*ledger.Service, *sqlite.Store, *fakeGateway) {
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	gw := &fakeGateway{}
	svc := ledger.NewService(store, gw, quietLogger())
	svc.SetClock(func() time.Time { return now })
	return svc, store, gw
}

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	return log
}

func addTenant(t *testing.T, svc *ledger.Service, room string, rent string, cycle ledger.CycleKind, start time.Time) *ledger.Tenant {
	t.Helper()
	tenant, err := svc.AddTenant(context.Background(), ledger.NewTenant{
		Name:        "Tenant " + room,
		RoomNumber:  room,
		MonthlyRent: dec(rent),
		RentCycle:   cycle,
		StartDate:   start,
	})
	require.NoError(t, err)
	return tenant
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// =============================================================================
// CORRUPTED-DATE STORE
// =============================================================================

// corruptDateStore serves tenants and payments whose stored due-date text is
// mangled, simulating a hand-edited database row.
type corruptDateStore struct {
	ledger.TxStore
	raw string
}

func (c *corruptDateStore) WithTx(ctx context.Context, fn func(ledger.Store) error) error {
	return c.TxStore.WithTx(ctx, func(s ledger.Store) error {
		return fn(&corruptDateReads{Store: s, raw: c.raw})
	})
}

type corruptDateReads struct {
	ledger.Store
	raw string
}

func (c *corruptDateReads) GetTenant(ctx context.Context, id ledger.TenantID) (*ledger.Tenant, error) {
	tenant, err := c.Store.GetTenant(ctx, id)
	if tenant != nil {
		tenant.StartDateRaw = c.raw
	}
	return tenant, err
}

func (c *corruptDateReads) ListTenants(ctx context.Context) ([]ledger.Tenant, error) {
	tenants, err := c.Store.ListTenants(ctx)
	for i := range tenants {
		tenants[i].StartDateRaw = c.raw
	}
	return tenants, err
}

// =============================================================================
// FAKE REMINDER GATEWAY
// =============================================================================

type reminderCall struct {
	TenantID ledger.TenantID
	DueDate  time.Time
	Message  string
}

// fakeGateway records reminder requests and can be told to fail.
type fakeGateway struct {
	created   []reminderCall
	cancelled []ledger.TenantID
	fail      bool
}

func (g *fakeGateway) CreateReminder(_ context.Context, tenantID ledger.TenantID, dueDate time.Time, message string) error {
	if g.fail {
		return errors.New("gateway down")
	}
	g.created = append(g.created, reminderCall{TenantID: tenantID, DueDate: dueDate, Message: message})
	return nil
}

func (g *fakeGateway) CancelReminders(_ context.Context, tenantID ledger.TenantID) error {
	if g.fail {
		return errors.New("gateway down")
	}
	g.cancelled = append(g.cancelled, tenantID)
	return nil
}
