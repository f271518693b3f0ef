/*
sweep.go - Reconciliation sweep ("heartbeat")

PURPOSE:
  Re-derives every tenant's status purely from persisted facts: the most
  recent payment's next due date (or the start date when no history exists).
  No cached counter is trusted. Runs on app start and on a schedule.

PASSES:
  1. Status: reclassify each tenant; persist only on change.
  2. Auto-suspension: a tenant overdue for more than the configured
     threshold transitions to Suspended, with an alert.
  3. Contract expiry: tenants whose contract ends within the configured
     lead window (and not already past) produce an alert.

IDEMPOTENCE:
  Running the sweep twice in a row with no intervening payments produces
  zero writes on the second run. A tenant already Suspended and still past
  the threshold is left untouched; a Suspended tenant whose ledger now
  covers today is unsuspended to the derived status.

TRANSACTION SCOPE:
  The whole sweep runs in one transaction: a mid-sweep failure rolls back
  entirely rather than leaving a half-updated tenant. Gateway alerts go out
  after commit, best-effort.
*/
package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// SuspensionAlert reports a tenant forced into Suspended by the sweep.
type SuspensionAlert struct {
	TenantID    TenantID
	Name        string
	RoomNumber  string
	DaysOverdue int
}

// ContractAlert reports a contract ending within the lead window.
type ContractAlert struct {
	TenantID   TenantID
	Name       string
	RoomNumber string
	EndDate    time.Time
	DaysLeft   int
}

// SweepSummary is returned to callers, who render it as notifications. The
// sweep itself never presents UI.
type SweepSummary struct {
	RunID          string
	StartedAt      time.Time
	CompletedAt    time.Time
	TenantsChecked int
	StatusChanges  int
	Suspensions    []SuspensionAlert
	ContractAlerts []ContractAlert
	Warnings       []string
}

// SweepRun is the persisted audit record of one sweep.
type SweepRun struct {
	ID             string
	StartedAt      time.Time
	CompletedAt    time.Time
	TenantsChecked int
	StatusChanges  int
	Suspensions    int
	ContractAlerts int
}

// Sweeper runs reconciliation sweeps.
type Sweeper struct {
	store   TxStore
	gateway ReminderGateway
	log     *logrus.Logger
	now     func() time.Time
}

func NewSweeper(store TxStore, gateway ReminderGateway, log *logrus.Logger) *Sweeper {
	return &Sweeper{store: store, gateway: gateway, log: log, now: time.Now}
}

// Run executes one reconciliation sweep.
func (sw *Sweeper) Run(ctx context.Context) (*SweepSummary, error) {
	started := sw.now().UTC()
	today := Date(started)

	summary := &SweepSummary{
		RunID:     uuid.NewString(),
		StartedAt: started,
	}

	err := sw.store.WithTx(ctx, func(s Store) error {
		settings, err := s.GetSettings(ctx)
		if err != nil {
			return err
		}
		tenants, err := s.ListTenants(ctx)
		if err != nil {
			return err
		}

		for _, tenant := range tenants {
			summary.TenantsChecked++

			latest, err := s.LatestPayment(ctx, tenant.ID)
			if err != nil {
				return err
			}
			hasHistory := latest != nil
			rawDue := tenant.StartDateRaw
			if latest != nil {
				rawDue = latest.NextDueDateRaw
			}

			// Classification consumes the raw stored date so a corrupted
			// row fails closed instead of parsing as the zero time.
			target := ClassifyRaw(rawDue, hasHistory, today, sw.log)

			daysOverdue := 0
			if target == StatusOverdue {
				// Suspension needs a real overdue count; a fail-closed
				// Overdue with an unreadable date never escalates.
				if due, perr := time.Parse(DateLayout, rawDue); perr == nil {
					daysOverdue = DaysBetween(due, today)
					if daysOverdue > settings.AutoSuspendDays {
						target = StatusSuspended
					}
				}
			}

			if target != tenant.Status {
				if err := s.UpdateTenantStatus(ctx, tenant.ID, target, started); err != nil {
					return err
				}
				summary.StatusChanges++
				if target == StatusSuspended {
					summary.Suspensions = append(summary.Suspensions, SuspensionAlert{
						TenantID:    tenant.ID,
						Name:        tenant.Name,
						RoomNumber:  tenant.RoomNumber,
						DaysOverdue: daysOverdue,
					})
				}
			}

			if tenant.ContractEndDate != nil {
				daysLeft := DaysBetween(today, Date(*tenant.ContractEndDate))
				if daysLeft >= 0 && daysLeft <= settings.ContractReminderDays {
					summary.ContractAlerts = append(summary.ContractAlerts, ContractAlert{
						TenantID:   tenant.ID,
						Name:       tenant.Name,
						RoomNumber: tenant.RoomNumber,
						EndDate:    Date(*tenant.ContractEndDate),
						DaysLeft:   daysLeft,
					})
				}
			}
		}

		summary.CompletedAt = sw.now().UTC()
		return s.InsertSweepRun(ctx, SweepRun{
			ID:             summary.RunID,
			StartedAt:      summary.StartedAt,
			CompletedAt:    summary.CompletedAt,
			TenantsChecked: summary.TenantsChecked,
			StatusChanges:  summary.StatusChanges,
			Suspensions:    len(summary.Suspensions),
			ContractAlerts: len(summary.ContractAlerts),
		})
	})
	if err != nil {
		return nil, err
	}

	sw.notify(ctx, summary)

	if sw.log != nil {
		sw.log.WithFields(logrus.Fields{
			"run_id":         summary.RunID,
			"tenants":        summary.TenantsChecked,
			"status_changes": summary.StatusChanges,
			"suspensions":    len(summary.Suspensions),
			"contracts":      len(summary.ContractAlerts),
		}).Info("reconciliation sweep completed")
	}
	return summary, nil
}

// notify emits post-commit gateway requests for the sweep's alerts.
// Failures are warnings; the sweep's ledger writes are already durable.
func (sw *Sweeper) notify(ctx context.Context, summary *SweepSummary) {
	if sw.gateway == nil {
		return
	}
	for _, alert := range summary.Suspensions {
		msg := fmt.Sprintf("Room %s suspended after %d days overdue", alert.RoomNumber, alert.DaysOverdue)
		if err := sw.gateway.CreateReminder(ctx, alert.TenantID, Date(sw.now()), msg); err != nil {
			sw.warn(summary, alert.TenantID, "suspension alert", err)
		}
	}
	for _, alert := range summary.ContractAlerts {
		msg := fmt.Sprintf("Contract for room %s ends on %s", alert.RoomNumber, alert.EndDate.Format(DateLayout))
		if err := sw.gateway.CreateReminder(ctx, alert.TenantID, alert.EndDate, msg); err != nil {
			sw.warn(summary, alert.TenantID, "contract alert", err)
		}
	}
}

func (sw *Sweeper) warn(summary *SweepSummary, tenantID TenantID, what string, err error) {
	if sw.log != nil {
		sw.log.WithError(err).WithField("tenant_id", tenantID).
			Warnf("reminder gateway failed for %s", what)
	}
	summary.Warnings = append(summary.Warnings, fmt.Sprintf("%s for tenant %s failed: %v", what, tenantID, err))
}
