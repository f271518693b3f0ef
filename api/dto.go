/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

MONEY:
  Amounts travel as strings ("300000.00") so clients never round them
  through floats. Dates travel as YYYY-MM-DD.

SEE ALSO:
  - handlers.go: Uses these types
*/
package api

import (
	"time"

	"github.com/ijara/rent-engine/ledger"
)

// =============================================================================
// TENANTS
// =============================================================================

// TenantDTO represents a tenant in API responses.
type TenantDTO struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	RoomNumber      string `json:"room_number"`
	Phone           string `json:"phone,omitempty"`
	Email           string `json:"email,omitempty"`
	MonthlyRent     string `json:"monthly_rent"`
	RentCycle       string `json:"rent_cycle"`
	CreditBalance   string `json:"credit_balance"`
	Status          string `json:"status"`
	StartDate       string `json:"start_date"`
	ContractEndDate string `json:"contract_end_date,omitempty"`
	Notes           string `json:"notes,omitempty"`
	CreatedAt       string `json:"created_at,omitempty"`
	UpdatedAt       string `json:"updated_at,omitempty"`
}

func tenantDTO(t *ledger.Tenant) TenantDTO {
	dto := TenantDTO{
		ID:            string(t.ID),
		Name:          t.Name,
		RoomNumber:    t.RoomNumber,
		Phone:         t.Phone,
		Email:         t.Email,
		MonthlyRent:   t.MonthlyRent.String(),
		RentCycle:     string(t.RentCycle),
		CreditBalance: t.CreditBalance.String(),
		Status:        string(t.Status),
		StartDate:     t.StartDate.Format(ledger.DateLayout),
		Notes:         t.Notes,
		CreatedAt:     t.CreatedAt.Format(time.RFC3339),
		UpdatedAt:     t.UpdatedAt.Format(time.RFC3339),
	}
	if t.ContractEndDate != nil {
		dto.ContractEndDate = t.ContractEndDate.Format(ledger.DateLayout)
	}
	return dto
}

// CreateTenantRequest is the request to register a tenant.
type CreateTenantRequest struct {
	Name            string `json:"name"`
	RoomNumber      string `json:"room_number"`
	Phone           string `json:"phone"`
	Email           string `json:"email"`
	MonthlyRent     string `json:"monthly_rent"`
	RentCycle       string `json:"rent_cycle"`
	StartDate       string `json:"start_date"`
	ContractEndDate string `json:"contract_end_date"`
	Notes           string `json:"notes"`
}

// UpdateTenantRequest carries the editable identity fields.
type UpdateTenantRequest struct {
	Name            string `json:"name"`
	RoomNumber      string `json:"room_number"`
	Phone           string `json:"phone"`
	Email           string `json:"email"`
	MonthlyRent     string `json:"monthly_rent"`
	RentCycle       string `json:"rent_cycle"`
	ContractEndDate string `json:"contract_end_date"`
	Notes           string `json:"notes"`
}

// =============================================================================
// PAYMENTS
// =============================================================================

// RecordPaymentRequest is the request to record a payment.
type RecordPaymentRequest struct {
	Amount      string `json:"amount_paid"`
	PaymentDate string `json:"payment_date"`
	Method      string `json:"payment_method"`
	Notes       string `json:"notes"`
}

// PaymentDTO represents a payment in API responses.
type PaymentDTO struct {
	ID            string `json:"id"`
	TenantID      string `json:"tenant_id"`
	AmountPaid    string `json:"amount_paid"`
	CyclesCovered int    `json:"cycles_covered"`
	PaymentDate   string `json:"payment_date"`
	NextDueDate   string `json:"next_due_date"`
	Method        string `json:"payment_method"`
	RentAtPayment string `json:"rent_at_payment"`
	Notes         string `json:"notes,omitempty"`
	CreatedAt     string `json:"created_at,omitempty"`
}

func paymentDTO(p *ledger.Payment) PaymentDTO {
	return PaymentDTO{
		ID:            string(p.ID),
		TenantID:      string(p.TenantID),
		AmountPaid:    p.AmountPaid.String(),
		CyclesCovered: p.CyclesCovered,
		PaymentDate:   p.PaymentDate.Format(ledger.DateLayout),
		NextDueDate:   p.NextDueDate.Format(ledger.DateLayout),
		Method:        string(p.Method),
		RentAtPayment: p.RentAtPayment.String(),
		Notes:         p.Notes,
		CreatedAt:     p.CreatedAt.Format(time.RFC3339),
	}
}

// PaymentResultDTO wraps an applied payment with the tenant's new state and
// any non-blocking warnings.
type PaymentResultDTO struct {
	Payment  PaymentDTO `json:"payment"`
	Tenant   TenantDTO  `json:"tenant"`
	Warnings []string   `json:"warnings,omitempty"`
}

// CancelPaymentRequest is the request body for a payment cancellation.
type CancelPaymentRequest struct {
	Reason string `json:"reason"`
}

// =============================================================================
// SWEEP
// =============================================================================

// SuspensionAlertDTO reports an auto-suspension from the sweep.
type SuspensionAlertDTO struct {
	TenantID    string `json:"tenant_id"`
	Name        string `json:"name"`
	RoomNumber  string `json:"room_number"`
	DaysOverdue int    `json:"days_overdue"`
}

// ContractAlertDTO reports a contract ending soon.
type ContractAlertDTO struct {
	TenantID   string `json:"tenant_id"`
	Name       string `json:"name"`
	RoomNumber string `json:"room_number"`
	EndDate    string `json:"end_date"`
	DaysLeft   int    `json:"days_left"`
}

// SweepSummaryDTO is the result of one reconciliation sweep.
type SweepSummaryDTO struct {
	RunID          string               `json:"run_id"`
	StartedAt      string               `json:"started_at"`
	CompletedAt    string               `json:"completed_at"`
	TenantsChecked int                  `json:"tenants_checked"`
	StatusChanges  int                  `json:"status_changes"`
	Suspensions    []SuspensionAlertDTO `json:"suspensions"`
	ContractAlerts []ContractAlertDTO   `json:"contract_alerts"`
	Warnings       []string             `json:"warnings,omitempty"`
}

func sweepSummaryDTO(s *ledger.SweepSummary) SweepSummaryDTO {
	dto := SweepSummaryDTO{
		RunID:          s.RunID,
		StartedAt:      s.StartedAt.Format(time.RFC3339),
		CompletedAt:    s.CompletedAt.Format(time.RFC3339),
		TenantsChecked: s.TenantsChecked,
		StatusChanges:  s.StatusChanges,
		Suspensions:    []SuspensionAlertDTO{},
		ContractAlerts: []ContractAlertDTO{},
		Warnings:       s.Warnings,
	}
	for _, a := range s.Suspensions {
		dto.Suspensions = append(dto.Suspensions, SuspensionAlertDTO{
			TenantID:    string(a.TenantID),
			Name:        a.Name,
			RoomNumber:  a.RoomNumber,
			DaysOverdue: a.DaysOverdue,
		})
	}
	for _, a := range s.ContractAlerts {
		dto.ContractAlerts = append(dto.ContractAlerts, ContractAlertDTO{
			TenantID:   string(a.TenantID),
			Name:       a.Name,
			RoomNumber: a.RoomNumber,
			EndDate:    a.EndDate.Format(ledger.DateLayout),
			DaysLeft:   a.DaysLeft,
		})
	}
	return dto
}

// SweepRunDTO is one persisted sweep audit record.
type SweepRunDTO struct {
	ID             string `json:"id"`
	StartedAt      string `json:"started_at"`
	CompletedAt    string `json:"completed_at"`
	TenantsChecked int    `json:"tenants_checked"`
	StatusChanges  int    `json:"status_changes"`
	Suspensions    int    `json:"suspensions"`
	ContractAlerts int    `json:"contract_alerts"`
}

// =============================================================================
// STATS, REMINDERS, SETTINGS
// =============================================================================

// TenantStatsDTO is the per-tenant summary.
type TenantStatsDTO struct {
	TenantID        string `json:"tenant_id"`
	Name            string `json:"name"`
	RoomNumber      string `json:"room_number"`
	Status          string `json:"status"`
	CreditBalance   string `json:"credit_balance"`
	NextDueDate     string `json:"next_due_date"`
	HasHistory      bool   `json:"has_history"`
	TotalCollected  string `json:"total_collected"`
	PaymentCount    int    `json:"payment_count"`
	LastPaymentDate string `json:"last_payment_date,omitempty"`
}

// DashboardStatsDTO is the landlord's overview.
type DashboardStatsDTO struct {
	TotalTenants       int    `json:"total_tenants"`
	Paid               int    `json:"paid"`
	DueSoon            int    `json:"due_soon"`
	Overdue            int    `json:"overdue"`
	Suspended          int    `json:"suspended"`
	ExpectedMonthly    string `json:"expected_monthly"`
	CollectedThisMonth string `json:"collected_this_month"`
}

// ReminderDTO is a pending reminder in API responses.
type ReminderDTO struct {
	ID           string `json:"id"`
	TenantID     string `json:"tenant_id"`
	DueDate      string `json:"due_date"`
	ReminderDate string `json:"reminder_date"`
	Status       string `json:"status"`
	Message      string `json:"message,omitempty"`
}

// SettingsDTO is the sweep configuration.
type SettingsDTO struct {
	ReminderLeadDays     int `json:"reminder_lead_days"`
	AutoSuspendDays      int `json:"auto_suspend_days"`
	ContractReminderDays int `json:"contract_reminder_days"`
}

// ErrorResponse is the JSON error envelope.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
