/*
Package notify implements the ledger's reminder gateway.

PURPOSE:
  Receives reminder requests from the ledger after its transactions commit.
  Persists a reminder row (scheduled ahead of the due date by the configured
  lead time) and, when SMTP is configured and the tenant has an email
  address, sends the reminder by email.

IDEMPOTENCE:
  The reconciliation sweep re-emits its alerts on every run. CreateReminder
  skips the insert when the tenant already has a pending reminder for the
  same due date, so hourly sweeps do not pile up duplicate rows.

FAILURE MODEL:
  All errors wrap ledger.ErrReminderGateway. The ledger treats them as
  warnings: a failed reminder never undoes a committed payment. Email
  delivery in particular is best-effort; the persisted reminder row is the
  source of truth for the upcoming-reminders view.

SEE ALSO:
  - ledger/gateway.go: the interface this package implements
*/
package notify

import (
	"context"
	"fmt"
	"net/smtp"
	"time"

	"github.com/google/uuid"
	"github.com/jordan-wright/email"
	"github.com/sirupsen/logrus"

	"github.com/ijara/rent-engine/ledger"
)

// SMTPConfig carries the optional mail transport settings. A zero Host
// disables email delivery; reminders are still persisted.
type SMTPConfig struct {
	Host     string
	Port     string
	Username string
	Password string
	Sender   string
}

func (c SMTPConfig) enabled() bool {
	return c.Host != ""
}

// Gateway persists reminders and optionally emails them.
type Gateway struct {
	store ledger.TxStore
	smtp  SMTPConfig
	log   *logrus.Logger
	now   func() time.Time

	// send is swappable for tests.
	send func(e *email.Email, addr string, auth smtp.Auth) error
}

// New builds a gateway around the same store handle the ledger uses.
func New(store ledger.TxStore, smtpCfg SMTPConfig, log *logrus.Logger) *Gateway {
	return &Gateway{
		store: store,
		smtp:  smtpCfg,
		log:   log,
		now:   time.Now,
		send: func(e *email.Email, addr string, auth smtp.Auth) error {
			return e.Send(addr, auth)
		},
	}
}

// CreateReminder schedules a reminder ahead of dueDate by the configured
// lead time and emails the tenant when possible. An equivalent pending
// reminder (same tenant and due date) is not duplicated.
func (g *Gateway) CreateReminder(ctx context.Context, tenantID ledger.TenantID, dueDate time.Time, message string) error {
	exists, err := g.store.PendingReminderExists(ctx, tenantID, ledger.Date(dueDate))
	if err != nil {
		return fmt.Errorf("%w: checking reminders: %v", ledger.ErrReminderGateway, err)
	}
	if exists {
		return nil
	}

	settings, err := g.store.GetSettings(ctx)
	if err != nil {
		return fmt.Errorf("%w: loading settings: %v", ledger.ErrReminderGateway, err)
	}

	reminderDate := ledger.Date(dueDate).AddDate(0, 0, -settings.ReminderLeadDays)

	reminder := ledger.Reminder{
		ID:           ledger.ReminderID(uuid.NewString()),
		TenantID:     tenantID,
		DueDate:      ledger.Date(dueDate),
		ReminderDate: reminderDate,
		Status:       ledger.ReminderPending,
		Message:      message,
		CreatedAt:    g.now().UTC(),
	}
	if err := g.store.InsertReminder(ctx, reminder); err != nil {
		return fmt.Errorf("%w: persisting reminder: %v", ledger.ErrReminderGateway, err)
	}

	if !g.smtp.enabled() {
		return nil
	}

	tenant, err := g.store.GetTenant(ctx, tenantID)
	if err != nil || tenant == nil || tenant.Email == "" {
		return nil
	}
	if err := g.sendEmail(tenant, message); err != nil {
		// The reminder row is already persisted; delivery is best-effort.
		if g.log != nil {
			g.log.WithError(err).WithField("tenant_id", tenantID).
				Warn("reminder email delivery failed")
		}
	}
	return nil
}

// CancelReminders voids the tenant's pending reminders.
func (g *Gateway) CancelReminders(ctx context.Context, tenantID ledger.TenantID) error {
	if err := g.store.CancelPendingReminders(ctx, tenantID); err != nil {
		return fmt.Errorf("%w: cancelling reminders: %v", ledger.ErrReminderGateway, err)
	}
	return nil
}

func (g *Gateway) sendEmail(tenant *ledger.Tenant, message string) error {
	e := email.NewEmail()
	e.From = g.smtp.Sender
	e.To = []string{tenant.Email}
	e.Subject = fmt.Sprintf("Rent reminder for room %s", tenant.RoomNumber)
	e.Text = []byte(fmt.Sprintf("Hello %s,\n\n%s\n", tenant.Name, message))

	auth := smtp.PlainAuth("", g.smtp.Username, g.smtp.Password, g.smtp.Host)
	addr := g.smtp.Host + ":" + g.smtp.Port
	return g.send(e, addr, auth)
}
