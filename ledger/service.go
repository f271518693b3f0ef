/*
service.go - Public ledger API

PURPOSE:
  The facade consumed by the UI layer (in-process calls only; the HTTP
  layer in api/ is a thin adapter over this). Owns the explicitly
  constructed store handle and the reminder gateway; nothing in this
  package reaches for a global connection.

OPERATIONS:
  AddTenant, UpdateTenant, DeleteTenant
  RecordPayment, CancelPayment, PaymentHistory
  RunReconciliationSweep
  TenantStats, DashboardStats, UpcomingReminders
  GetSettings, UpdateSettings
*/
package ledger

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// Service is the public surface of the rent ledger.
type Service struct {
	store   TxStore
	gateway ReminderGateway
	log     *logrus.Logger

	alloc    *Allocator
	reversal *Reversal
	sweeper  *Sweeper

	now func() time.Time
}

// NewService wires the ledger components around one store handle. The store
// is opened once at process start and closed at shutdown by the caller.
func NewService(store TxStore, gateway ReminderGateway, log *logrus.Logger) *Service {
	return &Service{
		store:    store,
		gateway:  gateway,
		log:      log,
		alloc:    NewAllocator(store, gateway, log),
		reversal: NewReversal(store, gateway, log),
		sweeper:  NewSweeper(store, gateway, log),
		now:      time.Now,
	}
}

// =============================================================================
// TENANT REGISTRATION
// =============================================================================

// NewTenant is the input to AddTenant.
type NewTenant struct {
	Name            string
	RoomNumber      string
	Phone           string
	Email           string
	MonthlyRent     decimal.Decimal
	RentCycle       CycleKind
	StartDate       time.Time
	ContractEndDate *time.Time
	Notes           string
}

// AddTenant registers a tenant. The room number must be unique; a duplicate
// fails with a ConflictError and creates no row.
func (svc *Service) AddTenant(ctx context.Context, req NewTenant) (*Tenant, error) {
	if req.Name == "" {
		return nil, &ValidationError{Field: "name", Message: "required"}
	}
	if req.RoomNumber == "" {
		return nil, &ValidationError{Field: "room_number", Message: "required"}
	}
	if !req.MonthlyRent.IsPositive() {
		return nil, &ValidationError{Field: "monthly_rent", Message: "must be greater than zero"}
	}
	if req.RentCycle == "" {
		req.RentCycle = CycleMonthly
	}
	if !req.RentCycle.Valid() {
		return nil, &ValidationError{Field: "rent_cycle", Message: "must be monthly, biweekly or quarterly"}
	}
	if req.StartDate.IsZero() {
		return nil, &ValidationError{Field: "start_date", Message: "required"}
	}

	now := svc.now().UTC()
	tenant := Tenant{
		ID:            TenantID(uuid.NewString()),
		Name:          req.Name,
		RoomNumber:    req.RoomNumber,
		Phone:         req.Phone,
		Email:         req.Email,
		MonthlyRent:   req.MonthlyRent,
		RentCycle:     req.RentCycle,
		CreditBalance: decimal.Zero,
		Status:        Classify(Date(req.StartDate), false, Date(now)),
		StartDate:     Date(req.StartDate),
		Notes:         req.Notes,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if req.ContractEndDate != nil {
		end := Date(*req.ContractEndDate)
		tenant.ContractEndDate = &end
	}

	if err := svc.store.InsertTenant(ctx, tenant); err != nil {
		return nil, err
	}
	return &tenant, nil
}

// TenantUpdate carries the editable identity fields. Ledger-derived fields
// (credit balance, status) are not editable here; they belong to the
// allocator, reversal, and sweep. A rent change takes effect for future
// payments only - history keeps its snapshots.
type TenantUpdate struct {
	ID              TenantID
	Name            string
	RoomNumber      string
	Phone           string
	Email           string
	MonthlyRent     decimal.Decimal
	RentCycle       CycleKind
	ContractEndDate *time.Time
	Notes           string
}

func (svc *Service) UpdateTenant(ctx context.Context, req TenantUpdate) (*Tenant, error) {
	if req.Name == "" {
		return nil, &ValidationError{Field: "name", Message: "required"}
	}
	if req.RoomNumber == "" {
		return nil, &ValidationError{Field: "room_number", Message: "required"}
	}
	if !req.MonthlyRent.IsPositive() {
		return nil, &ValidationError{Field: "monthly_rent", Message: "must be greater than zero"}
	}
	if !req.RentCycle.Valid() {
		return nil, &ValidationError{Field: "rent_cycle", Message: "must be monthly, biweekly or quarterly"}
	}

	var updated Tenant
	err := svc.store.WithTx(ctx, func(s Store) error {
		tenant, err := s.GetTenant(ctx, req.ID)
		if err != nil {
			return err
		}
		if tenant == nil {
			return &NotFoundError{Resource: "tenant", ID: string(req.ID)}
		}

		tenant.Name = req.Name
		tenant.RoomNumber = req.RoomNumber
		tenant.Phone = req.Phone
		tenant.Email = req.Email
		tenant.MonthlyRent = req.MonthlyRent
		tenant.RentCycle = req.RentCycle
		tenant.Notes = req.Notes
		tenant.ContractEndDate = nil
		if req.ContractEndDate != nil {
			end := Date(*req.ContractEndDate)
			tenant.ContractEndDate = &end
		}
		tenant.UpdatedAt = svc.now().UTC()

		if err := s.UpdateTenant(ctx, *tenant); err != nil {
			return err
		}
		updated = *tenant
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

// DeleteTenant removes a tenant; payments and reminders cascade with it.
func (svc *Service) DeleteTenant(ctx context.Context, id TenantID) error {
	err := svc.store.WithTx(ctx, func(s Store) error {
		tenant, err := s.GetTenant(ctx, id)
		if err != nil {
			return err
		}
		if tenant == nil {
			return &NotFoundError{Resource: "tenant", ID: string(id)}
		}
		return s.DeleteTenant(ctx, id)
	})
	if err != nil {
		return err
	}

	if svc.gateway != nil {
		if gerr := svc.gateway.CancelReminders(ctx, id); gerr != nil && svc.log != nil {
			svc.log.WithError(gerr).WithField("tenant_id", id).
				Warn("reminder gateway failed while cancelling reminders for deleted tenant")
		}
	}
	return nil
}

// GetTenant loads one tenant.
func (svc *Service) GetTenant(ctx context.Context, id TenantID) (*Tenant, error) {
	tenant, err := svc.store.GetTenant(ctx, id)
	if err != nil {
		return nil, err
	}
	if tenant == nil {
		return nil, &NotFoundError{Resource: "tenant", ID: string(id)}
	}
	return tenant, nil
}

// ListTenants returns all tenants.
func (svc *Service) ListTenants(ctx context.Context) ([]Tenant, error) {
	return svc.store.ListTenants(ctx)
}

// =============================================================================
// PAYMENTS
// =============================================================================

// RecordPayment applies a payment through the allocator.
func (svc *Service) RecordPayment(ctx context.Context, req PaymentRequest) (*PaymentResult, error) {
	return svc.alloc.Record(ctx, req)
}

// CancelPayment reverses the tenant's most recent payment.
func (svc *Service) CancelPayment(ctx context.Context, id PaymentID, reason string) (*Tenant, error) {
	return svc.reversal.Cancel(ctx, id, reason)
}

// PaymentHistory returns a tenant's payments, newest first.
func (svc *Service) PaymentHistory(ctx context.Context, tenantID TenantID) ([]Payment, error) {
	tenant, err := svc.store.GetTenant(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	if tenant == nil {
		return nil, &NotFoundError{Resource: "tenant", ID: string(tenantID)}
	}
	return svc.store.PaymentsByTenant(ctx, tenantID)
}

// =============================================================================
// RECONCILIATION
// =============================================================================

// RunReconciliationSweep runs one sweep and returns its summary.
func (svc *Service) RunReconciliationSweep(ctx context.Context) (*SweepSummary, error) {
	return svc.sweeper.Run(ctx)
}

// SweepHistory returns the most recent sweep audit records.
func (svc *Service) SweepHistory(ctx context.Context, limit int) ([]SweepRun, error) {
	if limit <= 0 {
		limit = 20
	}
	return svc.store.ListSweepRuns(ctx, limit)
}

// =============================================================================
// STATS
// =============================================================================

// TenantStats is the per-tenant summary shown on a tenant detail screen.
type TenantStats struct {
	TenantID        TenantID
	Name            string
	RoomNumber      string
	Status          Status
	CreditBalance   decimal.Decimal
	NextDueDate     time.Time
	HasHistory      bool
	TotalCollected  decimal.Decimal
	PaymentCount    int
	LastPaymentDate *time.Time
}

// GetTenantStats derives a tenant's summary from the ledger.
func (svc *Service) GetTenantStats(ctx context.Context, id TenantID) (*TenantStats, error) {
	tenant, err := svc.store.GetTenant(ctx, id)
	if err != nil {
		return nil, err
	}
	if tenant == nil {
		return nil, &NotFoundError{Resource: "tenant", ID: string(id)}
	}

	latest, err := svc.store.LatestPayment(ctx, id)
	if err != nil {
		return nil, err
	}
	total, count, lastDate, err := svc.store.TenantPaymentTotals(ctx, id)
	if err != nil {
		return nil, err
	}

	stats := &TenantStats{
		TenantID:        tenant.ID,
		Name:            tenant.Name,
		RoomNumber:      tenant.RoomNumber,
		Status:          tenant.Status,
		CreditBalance:   tenant.CreditBalance,
		NextDueDate:     Date(tenant.StartDate),
		HasHistory:      latest != nil,
		TotalCollected:  total,
		PaymentCount:    count,
		LastPaymentDate: lastDate,
	}
	if latest != nil {
		stats.NextDueDate = Date(latest.NextDueDate)
	}
	return stats, nil
}

// DashboardStats is the landlord's overview.
type DashboardStats struct {
	TotalTenants       int
	Paid               int
	DueSoon            int
	Overdue            int
	Suspended          int
	ExpectedMonthly    decimal.Decimal
	CollectedThisMonth decimal.Decimal
}

// GetDashboardStats aggregates across all tenants.
func (svc *Service) GetDashboardStats(ctx context.Context) (*DashboardStats, error) {
	tenants, err := svc.store.ListTenants(ctx)
	if err != nil {
		return nil, err
	}

	stats := &DashboardStats{
		ExpectedMonthly:    decimal.Zero,
		CollectedThisMonth: decimal.Zero,
	}
	for _, t := range tenants {
		stats.TotalTenants++
		switch t.Status {
		case StatusPaid:
			stats.Paid++
		case StatusDueSoon:
			stats.DueSoon++
		case StatusOverdue:
			stats.Overdue++
		case StatusSuspended:
			stats.Suspended++
		}
		if t.Status != StatusSuspended {
			stats.ExpectedMonthly = stats.ExpectedMonthly.Add(t.MonthlyRent)
		}
	}

	now := Date(svc.now())
	monthStart := NewDate(now.Year(), now.Month(), 1)
	monthEnd := monthStart.AddDate(0, 1, -1)
	collected, err := svc.store.SumPaymentsBetween(ctx, monthStart, monthEnd)
	if err != nil {
		return nil, err
	}
	stats.CollectedThisMonth = collected
	return stats, nil
}

// =============================================================================
// REMINDERS & SETTINGS
// =============================================================================

// UpcomingReminders lists pending reminders firing within the next `days`.
func (svc *Service) UpcomingReminders(ctx context.Context, days int) ([]Reminder, error) {
	if days <= 0 {
		days = 7
	}
	from := Date(svc.now())
	return svc.store.UpcomingReminders(ctx, from, from.AddDate(0, 0, days))
}

// GetSettings returns the sweep configuration.
func (svc *Service) GetSettings(ctx context.Context) (Settings, error) {
	return svc.store.GetSettings(ctx)
}

// UpdateSettings replaces the sweep configuration.
func (svc *Service) UpdateSettings(ctx context.Context, s Settings) (Settings, error) {
	if s.ReminderLeadDays < 0 {
		return Settings{}, &ValidationError{Field: "reminder_lead_days", Message: "must not be negative"}
	}
	if s.AutoSuspendDays < 0 {
		return Settings{}, &ValidationError{Field: "auto_suspend_days", Message: "must not be negative"}
	}
	if s.ContractReminderDays < 0 {
		return Settings{}, &ValidationError{Field: "contract_reminder_days", Message: "must not be negative"}
	}
	s.UpdatedAt = svc.now().UTC()
	if err := svc.store.SaveSettings(ctx, s); err != nil {
		return Settings{}, err
	}
	return s, nil
}
