/*
gateway.go - Reminder gateway contract

PURPOSE:
  The ledger never schedules notifications itself. After a ledger
  transaction commits, it asks the gateway to cancel a tenant's pending
  reminders and create a new one at the new due date. Gateway failures are
  best-effort: they surface as warnings and never roll back a committed
  ledger write.

IMPLEMENTATIONS:
  - notify.Gateway: persists reminder rows and optionally emails the tenant
  - LogGateway:     logs requests without persisting (degraded mode)
*/
package ledger

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

// ReminderGateway receives reminder scheduling requests from the ledger.
type ReminderGateway interface {
	// CreateReminder schedules a reminder for the tenant's next due date.
	CreateReminder(ctx context.Context, tenantID TenantID, dueDate time.Time, message string) error

	// CancelReminders cancels all pending reminders for the tenant.
	CancelReminders(ctx context.Context, tenantID TenantID) error
}

// LogGateway is a gateway that only logs requests. Used when no notification
// backend is configured; the ledger stays fully functional without one.
type LogGateway struct {
	Log *logrus.Logger
}

func (g *LogGateway) CreateReminder(ctx context.Context, tenantID TenantID, dueDate time.Time, message string) error {
	if g.Log != nil {
		g.Log.WithFields(logrus.Fields{
			"tenant_id": tenantID,
			"due_date":  dueDate.Format(DateLayout),
		}).Info("reminder requested")
	}
	return nil
}

func (g *LogGateway) CancelReminders(ctx context.Context, tenantID TenantID) error {
	if g.Log != nil {
		g.Log.WithField("tenant_id", tenantID).Info("reminder cancellation requested")
	}
	return nil
}
