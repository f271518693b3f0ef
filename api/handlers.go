/*
handlers.go - HTTP API handlers for the rent ledger

PURPOSE:
  Exposes the rent ledger via REST API. Handles HTTP request/response,
  JSON serialization, and delegates to the ledger service. No business
  logic lives here.

ENDPOINTS:
  Tenants:
    GET    /api/tenants                 List all tenants
    POST   /api/tenants                 Register tenant
    GET    /api/tenants/{id}            Get tenant
    PUT    /api/tenants/{id}            Update tenant identity fields
    DELETE /api/tenants/{id}            Delete tenant (cascades)
    GET    /api/tenants/{id}/payments   Payment history
    POST   /api/tenants/{id}/payments   Record payment
    GET    /api/tenants/{id}/stats      Per-tenant summary

  Payments:
    DELETE /api/payments/{id}           Cancel most recent payment

  Sweep:
    POST   /api/sweep                   Run reconciliation sweep now
    GET    /api/sweep/runs              Sweep audit history

  Misc:
    GET    /api/stats/dashboard         Landlord overview
    GET    /api/reminders/upcoming      Pending reminders in a window
    GET    /api/settings                Sweep configuration
    PUT    /api/settings                Replace sweep configuration

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, invalid input
  - 404: Resource not found
  - 409: Conflict (occupied room, non-latest cancellation)
  - 500: Internal errors

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/ijara/rent-engine/ledger"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Service *ledger.Service
	Log     *logrus.Logger
}

// NewHandler creates a new handler around the ledger service.
func NewHandler(service *ledger.Service, log *logrus.Logger) *Handler {
	return &Handler{Service: service, Log: log}
}

// =============================================================================
// TENANT HANDLERS
// =============================================================================

// ListTenants returns all tenants.
func (h *Handler) ListTenants(w http.ResponseWriter, r *http.Request) {
	tenants, err := h.Service.ListTenants(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}

	dtos := make([]TenantDTO, len(tenants))
	for i := range tenants {
		dtos[i] = tenantDTO(&tenants[i])
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateTenant registers a tenant.
func (h *Handler) CreateTenant(w http.ResponseWriter, r *http.Request) {
	var req CreateTenantRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, &ledger.ValidationError{Field: "body", Message: "invalid JSON"})
		return
	}

	input, err := tenantInput(req)
	if err != nil {
		h.writeError(w, err)
		return
	}

	tenant, err := h.Service.AddTenant(r.Context(), *input)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, tenantDTO(tenant))
}

// GetTenant returns a single tenant.
func (h *Handler) GetTenant(w http.ResponseWriter, r *http.Request) {
	tenant, err := h.Service.GetTenant(r.Context(), ledger.TenantID(chi.URLParam(r, "id")))
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tenantDTO(tenant))
}

// UpdateTenant replaces a tenant's identity fields.
func (h *Handler) UpdateTenant(w http.ResponseWriter, r *http.Request) {
	var req UpdateTenantRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, &ledger.ValidationError{Field: "body", Message: "invalid JSON"})
		return
	}

	rent, err := parseAmount("monthly_rent", req.MonthlyRent)
	if err != nil {
		h.writeError(w, err)
		return
	}
	end, err := parseOptionalDate("contract_end_date", req.ContractEndDate)
	if err != nil {
		h.writeError(w, err)
		return
	}

	tenant, err := h.Service.UpdateTenant(r.Context(), ledger.TenantUpdate{
		ID:              ledger.TenantID(chi.URLParam(r, "id")),
		Name:            req.Name,
		RoomNumber:      req.RoomNumber,
		Phone:           req.Phone,
		Email:           req.Email,
		MonthlyRent:     rent,
		RentCycle:       ledger.CycleKind(req.RentCycle),
		ContractEndDate: end,
		Notes:           req.Notes,
	})
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tenantDTO(tenant))
}

// DeleteTenant removes a tenant and everything attached to it.
func (h *Handler) DeleteTenant(w http.ResponseWriter, r *http.Request) {
	if err := h.Service.DeleteTenant(r.Context(), ledger.TenantID(chi.URLParam(r, "id"))); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// PAYMENT HANDLERS
// =============================================================================

// RecordPayment applies a payment to a tenant's ledger.
func (h *Handler) RecordPayment(w http.ResponseWriter, r *http.Request) {
	var req RecordPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, &ledger.ValidationError{Field: "body", Message: "invalid JSON"})
		return
	}

	amount, err := parseAmount("amount_paid", req.Amount)
	if err != nil {
		h.writeError(w, err)
		return
	}
	var paymentDate time.Time
	if req.PaymentDate != "" {
		paymentDate, err = time.Parse(ledger.DateLayout, req.PaymentDate)
		if err != nil {
			h.writeError(w, &ledger.ValidationError{Field: "payment_date", Message: "must be YYYY-MM-DD"})
			return
		}
	}

	result, err := h.Service.RecordPayment(r.Context(), ledger.PaymentRequest{
		TenantID:    ledger.TenantID(chi.URLParam(r, "id")),
		Amount:      amount,
		PaymentDate: paymentDate,
		Method:      ledger.PaymentMethod(req.Method),
		Notes:       req.Notes,
	})
	if err != nil {
		h.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, PaymentResultDTO{
		Payment:  paymentDTO(&result.Payment),
		Tenant:   tenantDTO(&result.Tenant),
		Warnings: result.Warnings,
	})
}

// PaymentHistory returns a tenant's payments, newest first.
func (h *Handler) PaymentHistory(w http.ResponseWriter, r *http.Request) {
	payments, err := h.Service.PaymentHistory(r.Context(), ledger.TenantID(chi.URLParam(r, "id")))
	if err != nil {
		h.writeError(w, err)
		return
	}

	dtos := make([]PaymentDTO, len(payments))
	for i := range payments {
		dtos[i] = paymentDTO(&payments[i])
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CancelPayment reverses the tenant's most recent payment.
func (h *Handler) CancelPayment(w http.ResponseWriter, r *http.Request) {
	var req CancelPaymentRequest
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&req) // reason is optional
	}

	tenant, err := h.Service.CancelPayment(r.Context(), ledger.PaymentID(chi.URLParam(r, "id")), req.Reason)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tenantDTO(tenant))
}

// =============================================================================
// SWEEP HANDLERS
// =============================================================================

// RunSweep triggers a reconciliation sweep immediately.
func (h *Handler) RunSweep(w http.ResponseWriter, r *http.Request) {
	summary, err := h.Service.RunReconciliationSweep(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sweepSummaryDTO(summary))
}

// ListSweepRuns returns the sweep audit history.
func (h *Handler) ListSweepRuns(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	runs, err := h.Service.SweepHistory(r.Context(), limit)
	if err != nil {
		h.writeError(w, err)
		return
	}

	dtos := make([]SweepRunDTO, len(runs))
	for i, run := range runs {
		dtos[i] = SweepRunDTO{
			ID:             run.ID,
			StartedAt:      run.StartedAt.Format(time.RFC3339),
			CompletedAt:    run.CompletedAt.Format(time.RFC3339),
			TenantsChecked: run.TenantsChecked,
			StatusChanges:  run.StatusChanges,
			Suspensions:    run.Suspensions,
			ContractAlerts: run.ContractAlerts,
		}
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// STATS HANDLERS
// =============================================================================

// GetTenantStats returns the per-tenant summary.
func (h *Handler) GetTenantStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.Service.GetTenantStats(r.Context(), ledger.TenantID(chi.URLParam(r, "id")))
	if err != nil {
		h.writeError(w, err)
		return
	}

	dto := TenantStatsDTO{
		TenantID:       string(stats.TenantID),
		Name:           stats.Name,
		RoomNumber:     stats.RoomNumber,
		Status:         string(stats.Status),
		CreditBalance:  stats.CreditBalance.String(),
		NextDueDate:    stats.NextDueDate.Format(ledger.DateLayout),
		HasHistory:     stats.HasHistory,
		TotalCollected: stats.TotalCollected.String(),
		PaymentCount:   stats.PaymentCount,
	}
	if stats.LastPaymentDate != nil {
		dto.LastPaymentDate = stats.LastPaymentDate.Format(ledger.DateLayout)
	}
	writeJSON(w, http.StatusOK, dto)
}

// GetDashboardStats returns the landlord overview.
func (h *Handler) GetDashboardStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.Service.GetDashboardStats(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, DashboardStatsDTO{
		TotalTenants:       stats.TotalTenants,
		Paid:               stats.Paid,
		DueSoon:            stats.DueSoon,
		Overdue:            stats.Overdue,
		Suspended:          stats.Suspended,
		ExpectedMonthly:    stats.ExpectedMonthly.String(),
		CollectedThisMonth: stats.CollectedThisMonth.String(),
	})
}

// =============================================================================
// REMINDER & SETTINGS HANDLERS
// =============================================================================

// UpcomingReminders lists pending reminders firing within ?days (default 7).
func (h *Handler) UpcomingReminders(w http.ResponseWriter, r *http.Request) {
	days, _ := strconv.Atoi(r.URL.Query().Get("days"))
	reminders, err := h.Service.UpcomingReminders(r.Context(), days)
	if err != nil {
		h.writeError(w, err)
		return
	}

	dtos := make([]ReminderDTO, len(reminders))
	for i, rem := range reminders {
		dtos[i] = ReminderDTO{
			ID:           string(rem.ID),
			TenantID:     string(rem.TenantID),
			DueDate:      rem.DueDate.Format(ledger.DateLayout),
			ReminderDate: rem.ReminderDate.Format(ledger.DateLayout),
			Status:       string(rem.Status),
			Message:      rem.Message,
		}
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetSettings returns the sweep configuration.
func (h *Handler) GetSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := h.Service.GetSettings(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, settingsDTO(settings))
}

// UpdateSettings replaces the sweep configuration.
func (h *Handler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	var req SettingsDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, &ledger.ValidationError{Field: "body", Message: "invalid JSON"})
		return
	}

	saved, err := h.Service.UpdateSettings(r.Context(), ledger.Settings{
		ReminderLeadDays:     req.ReminderLeadDays,
		AutoSuspendDays:      req.AutoSuspendDays,
		ContractReminderDays: req.ContractReminderDays,
	})
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, settingsDTO(saved))
}

func settingsDTO(s ledger.Settings) SettingsDTO {
	return SettingsDTO{
		ReminderLeadDays:     s.ReminderLeadDays,
		AutoSuspendDays:      s.AutoSuspendDays,
		ContractReminderDays: s.ContractReminderDays,
	}
}

// =============================================================================
// HELPERS
// =============================================================================

func tenantInput(req CreateTenantRequest) (*ledger.NewTenant, error) {
	rent, err := parseAmount("monthly_rent", req.MonthlyRent)
	if err != nil {
		return nil, err
	}
	var start time.Time
	if req.StartDate != "" {
		start, err = time.Parse(ledger.DateLayout, req.StartDate)
		if err != nil {
			return nil, &ledger.ValidationError{Field: "start_date", Message: "must be YYYY-MM-DD"}
		}
	}
	end, err := parseOptionalDate("contract_end_date", req.ContractEndDate)
	if err != nil {
		return nil, err
	}

	return &ledger.NewTenant{
		Name:            req.Name,
		RoomNumber:      req.RoomNumber,
		Phone:           req.Phone,
		Email:           req.Email,
		MonthlyRent:     rent,
		RentCycle:       ledger.CycleKind(req.RentCycle),
		StartDate:       start,
		ContractEndDate: end,
		Notes:           req.Notes,
	}, nil
}

func parseAmount(field, raw string) (decimal.Decimal, error) {
	if raw == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, &ledger.ValidationError{Field: field, Message: "must be a decimal number"}
	}
	return d, nil
}

func parseOptionalDate(field, raw string) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	d, err := time.Parse(ledger.DateLayout, raw)
	if err != nil {
		return nil, &ledger.ValidationError{Field: field, Message: "must be YYYY-MM-DD"}
	}
	return &d, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps domain errors to HTTP statuses. Storage internals never
// leak to clients; they are logged server-side.
func (h *Handler) writeError(w http.ResponseWriter, err error) {
	var (
		verr  *ledger.ValidationError
		nferr *ledger.NotFoundError
		cerr  *ledger.ConflictError
	)
	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: verr.Error()})
	case errors.As(err, &nferr):
		writeJSON(w, http.StatusNotFound, ErrorResponse{Error: nferr.Error()})
	case errors.As(err, &cerr):
		writeJSON(w, http.StatusConflict, ErrorResponse{Error: cerr.Error()})
	default:
		if h.Log != nil {
			h.Log.WithError(err).Error("request failed")
		}
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "internal error"})
	}
}
