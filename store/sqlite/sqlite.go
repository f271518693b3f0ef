/*
Package sqlite provides the SQLite-backed implementation of ledger.TxStore.

PURPOSE:
  Implements the persistence surface of the rent ledger using SQLite.
  The store is local and single-device; correctness under concurrent use
  relies on the database's transaction isolation plus a coarse mutex.

KEY TABLES:
  tenants:       identity + ledger-derived state (credit, status)
  payments:      immutable allocation records with rent/cycle snapshots
  reminders:     scheduled due-date notifications (gateway-owned)
  cancellations: append-only reversal audit trail
  settings:      single-row sweep configuration
  sweep_runs:    reconciliation audit trail

SCHEMA RULES:
  - room_number is UNIQUE; violations surface as ledger.ConflictError
  - payments and reminders cascade-delete with their tenant
  - cancellations carry no FK: the audit trail survives tenant removal
  - money is stored as TEXT (decimal.Decimal.String), dates as YYYY-MM-DD,
    timestamps as RFC3339

TRANSACTIONS:
  WithTx runs a closure against a transaction-scoped store. All reads and
  writes inside the closure go through the same *sql.Tx, so earlier writes
  in the transaction are visible to later reads.

WAL MODE:
  Opened with WAL and foreign keys on. Use ":memory:" for tests.

SEE ALSO:
  - ledger/store.go: interface definitions
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/ijara/rent-engine/ledger"
)

// dbtx is the subset of *sql.DB and *sql.Tx the queries need.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Store implements ledger.TxStore using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New opens (or creates) the database at dbPath and migrates the schema.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS tenants (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		room_number TEXT NOT NULL UNIQUE,
		phone TEXT,
		email TEXT,
		monthly_rent TEXT NOT NULL,
		rent_cycle TEXT NOT NULL,
		credit_balance TEXT NOT NULL DEFAULT '0',
		status TEXT NOT NULL,
		start_date TEXT NOT NULL,
		contract_end_date TEXT,
		notes TEXT,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS payments (
		id TEXT PRIMARY KEY,
		tenant_id TEXT NOT NULL REFERENCES tenants(id) ON DELETE CASCADE,
		amount_paid TEXT NOT NULL,
		cycles_covered INTEGER NOT NULL,
		payment_date TEXT NOT NULL,
		next_due_date TEXT NOT NULL,
		payment_method TEXT NOT NULL,
		rent_at_payment TEXT NOT NULL,
		cycle_at_payment TEXT NOT NULL,
		notes TEXT,
		created_at TEXT NOT NULL
	);

	-- Hot path: the most recent payment defines the tenant's due date
	CREATE INDEX IF NOT EXISTS idx_payments_tenant_due
		ON payments(tenant_id, next_due_date DESC);
	CREATE INDEX IF NOT EXISTS idx_payments_date
		ON payments(payment_date);

	CREATE TABLE IF NOT EXISTS reminders (
		id TEXT PRIMARY KEY,
		tenant_id TEXT NOT NULL REFERENCES tenants(id) ON DELETE CASCADE,
		due_date TEXT NOT NULL,
		reminder_date TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'pending',
		message TEXT,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_reminders_tenant_status
		ON reminders(tenant_id, status);
	CREATE INDEX IF NOT EXISTS idx_reminders_date
		ON reminders(reminder_date);

	-- No FK on purpose: the audit trail survives tenant removal
	CREATE TABLE IF NOT EXISTS cancellations (
		id TEXT PRIMARY KEY,
		original_payment_id TEXT NOT NULL,
		tenant_id TEXT NOT NULL,
		amount TEXT NOT NULL,
		reason TEXT,
		cancelled_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_cancellations_tenant
		ON cancellations(tenant_id);

	CREATE TABLE IF NOT EXISTS settings (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		reminder_lead_days INTEGER NOT NULL,
		auto_suspend_days INTEGER NOT NULL,
		contract_reminder_days INTEGER NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS sweep_runs (
		id TEXT PRIMARY KEY,
		started_at TEXT NOT NULL,
		completed_at TEXT NOT NULL,
		tenants_checked INTEGER NOT NULL,
		status_changes INTEGER NOT NULL,
		suspensions INTEGER NOT NULL,
		contract_alerts INTEGER NOT NULL
	);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// TENANTS
// =============================================================================

func (s *Store) InsertTenant(ctx context.Context, t ledger.Tenant) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.insertTenant(ctx, s.db, t)
}

func (s *Store) insertTenant(ctx context.Context, db dbtx, t ledger.Tenant) error {
	query := `
		INSERT INTO tenants
		(id, name, room_number, phone, email, monthly_rent, rent_cycle,
		 credit_balance, status, start_date, contract_end_date, notes,
		 created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := db.ExecContext(ctx, query,
		t.ID, t.Name, t.RoomNumber, t.Phone, t.Email,
		t.MonthlyRent.String(), t.RentCycle,
		t.CreditBalance.String(), t.Status,
		t.StartDate.Format(ledger.DateLayout),
		nullDate(t.ContractEndDate),
		t.Notes,
		t.CreatedAt.Format(time.RFC3339),
		t.UpdatedAt.Format(time.RFC3339),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return &ledger.ConflictError{
				Resource: "tenant",
				Message:  fmt.Sprintf("room number %s is already in use", t.RoomNumber),
			}
		}
		return fmt.Errorf("failed to insert tenant: %w", err)
	}
	return nil
}

func (s *Store) UpdateTenant(ctx context.Context, t ledger.Tenant) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.updateTenant(ctx, s.db, t)
}

func (s *Store) updateTenant(ctx context.Context, db dbtx, t ledger.Tenant) error {
	query := `
		UPDATE tenants SET
			name = ?, room_number = ?, phone = ?, email = ?,
			monthly_rent = ?, rent_cycle = ?, contract_end_date = ?,
			notes = ?, updated_at = ?
		WHERE id = ?
	`
	_, err := db.ExecContext(ctx, query,
		t.Name, t.RoomNumber, t.Phone, t.Email,
		t.MonthlyRent.String(), t.RentCycle,
		nullDate(t.ContractEndDate),
		t.Notes,
		t.UpdatedAt.Format(time.RFC3339),
		t.ID,
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return &ledger.ConflictError{
				Resource: "tenant",
				ID:       string(t.ID),
				Message:  fmt.Sprintf("room number %s is already in use", t.RoomNumber),
			}
		}
		return fmt.Errorf("failed to update tenant: %w", err)
	}
	return nil
}

func (s *Store) UpdateTenantLedgerState(ctx context.Context, id ledger.TenantID, credit decimal.Decimal, status ledger.Status, updatedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.updateTenantLedgerState(ctx, s.db, id, credit, status, updatedAt)
}

func (s *Store) updateTenantLedgerState(ctx context.Context, db dbtx, id ledger.TenantID, credit decimal.Decimal, status ledger.Status, updatedAt time.Time) error {
	_, err := db.ExecContext(ctx,
		`UPDATE tenants SET credit_balance = ?, status = ?, updated_at = ? WHERE id = ?`,
		credit.String(), status, updatedAt.UTC().Format(time.RFC3339), id,
	)
	if err != nil {
		return fmt.Errorf("failed to update tenant ledger state: %w", err)
	}
	return nil
}

func (s *Store) UpdateTenantStatus(ctx context.Context, id ledger.TenantID, status ledger.Status, updatedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.updateTenantStatus(ctx, s.db, id, status, updatedAt)
}

func (s *Store) updateTenantStatus(ctx context.Context, db dbtx, id ledger.TenantID, status ledger.Status, updatedAt time.Time) error {
	_, err := db.ExecContext(ctx,
		`UPDATE tenants SET status = ?, updated_at = ? WHERE id = ?`,
		status, updatedAt.UTC().Format(time.RFC3339), id,
	)
	if err != nil {
		return fmt.Errorf("failed to update tenant status: %w", err)
	}
	return nil
}

const tenantColumns = `id, name, room_number, phone, email, monthly_rent, rent_cycle,
	credit_balance, status, start_date, contract_end_date, notes, created_at, updated_at`

func (s *Store) GetTenant(ctx context.Context, id ledger.TenantID) (*ledger.Tenant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.getTenant(ctx, s.db, id)
}

func (s *Store) getTenant(ctx context.Context, db dbtx, id ledger.TenantID) (*ledger.Tenant, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT `+tenantColumns+` FROM tenants WHERE id = ?`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query tenant: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, rows.Err()
	}
	t, err := scanTenant(rows)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (s *Store) ListTenants(ctx context.Context) ([]ledger.Tenant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.listTenants(ctx, s.db)
}

func (s *Store) listTenants(ctx context.Context, db dbtx) ([]ledger.Tenant, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT `+tenantColumns+` FROM tenants ORDER BY room_number`)
	if err != nil {
		return nil, fmt.Errorf("failed to list tenants: %w", err)
	}
	defer rows.Close()

	var tenants []ledger.Tenant
	for rows.Next() {
		t, err := scanTenant(rows)
		if err != nil {
			return nil, err
		}
		tenants = append(tenants, t)
	}
	return tenants, rows.Err()
}

func (s *Store) DeleteTenant(ctx context.Context, id ledger.TenantID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.deleteTenant(ctx, s.db, id)
}

func (s *Store) deleteTenant(ctx context.Context, db dbtx, id ledger.TenantID) error {
	_, err := db.ExecContext(ctx, `DELETE FROM tenants WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete tenant: %w", err)
	}
	return nil
}

func scanTenant(rows *sql.Rows) (ledger.Tenant, error) {
	var (
		t                    ledger.Tenant
		phone, email, notes  sql.NullString
		rent, credit         string
		startDate            string
		contractEnd          sql.NullString
		createdAt, updatedAt string
	)

	err := rows.Scan(
		&t.ID, &t.Name, &t.RoomNumber, &phone, &email,
		&rent, &t.RentCycle, &credit, &t.Status,
		&startDate, &contractEnd, &notes, &createdAt, &updatedAt,
	)
	if err != nil {
		return t, fmt.Errorf("failed to scan tenant: %w", err)
	}

	t.Phone = phone.String
	t.Email = email.String
	t.Notes = notes.String
	t.MonthlyRent = parseDecimal(rent)
	t.CreditBalance = parseDecimal(credit)
	// The raw text is kept alongside the parsed date: the classifier fails
	// closed on a corrupted value instead of trusting the zero time.
	t.StartDateRaw = startDate
	t.StartDate, _ = time.Parse(ledger.DateLayout, startDate)
	if contractEnd.Valid && contractEnd.String != "" {
		end, _ := time.Parse(ledger.DateLayout, contractEnd.String)
		t.ContractEndDate = &end
	}
	t.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	t.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	return t, nil
}

// =============================================================================
// PAYMENTS
// =============================================================================

const paymentColumns = `id, tenant_id, amount_paid, cycles_covered, payment_date,
	next_due_date, payment_method, rent_at_payment, cycle_at_payment, notes, created_at`

// latestPaymentOrder makes "most recent" deterministic: the payment with the
// furthest due date wins; insertion order (rowid) breaks ties because UUIDs
// carry no ordering.
const latestPaymentOrder = ` ORDER BY next_due_date DESC, created_at DESC, rowid DESC`

func (s *Store) InsertPayment(ctx context.Context, p ledger.Payment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.insertPayment(ctx, s.db, p)
}

func (s *Store) insertPayment(ctx context.Context, db dbtx, p ledger.Payment) error {
	query := `
		INSERT INTO payments
		(id, tenant_id, amount_paid, cycles_covered, payment_date, next_due_date,
		 payment_method, rent_at_payment, cycle_at_payment, notes, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := db.ExecContext(ctx, query,
		p.ID, p.TenantID,
		p.AmountPaid.String(), p.CyclesCovered,
		p.PaymentDate.Format(ledger.DateLayout),
		p.NextDueDate.Format(ledger.DateLayout),
		p.Method,
		p.RentAtPayment.String(), p.CycleAtPayment,
		p.Notes,
		p.CreatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to insert payment: %w", err)
	}
	return nil
}

func (s *Store) GetPayment(ctx context.Context, id ledger.PaymentID) (*ledger.Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.getPayment(ctx, s.db, id)
}

func (s *Store) getPayment(ctx context.Context, db dbtx, id ledger.PaymentID) (*ledger.Payment, error) {
	payments, err := s.queryPayments(ctx, db,
		`SELECT `+paymentColumns+` FROM payments WHERE id = ?`, id)
	if err != nil {
		return nil, err
	}
	if len(payments) == 0 {
		return nil, nil
	}
	return &payments[0], nil
}

func (s *Store) LatestPayment(ctx context.Context, tenantID ledger.TenantID) (*ledger.Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.latestPayment(ctx, s.db, tenantID)
}

func (s *Store) latestPayment(ctx context.Context, db dbtx, tenantID ledger.TenantID) (*ledger.Payment, error) {
	payments, err := s.queryPayments(ctx, db,
		`SELECT `+paymentColumns+` FROM payments WHERE tenant_id = ?`+latestPaymentOrder+` LIMIT 1`,
		tenantID)
	if err != nil {
		return nil, err
	}
	if len(payments) == 0 {
		return nil, nil
	}
	return &payments[0], nil
}

func (s *Store) PaymentsByTenant(ctx context.Context, tenantID ledger.TenantID) ([]ledger.Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.paymentsByTenant(ctx, s.db, tenantID)
}

func (s *Store) paymentsByTenant(ctx context.Context, db dbtx, tenantID ledger.TenantID) ([]ledger.Payment, error) {
	return s.queryPayments(ctx, db,
		`SELECT `+paymentColumns+` FROM payments WHERE tenant_id = ?`+latestPaymentOrder,
		tenantID)
}

func (s *Store) DeletePayment(ctx context.Context, id ledger.PaymentID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.deletePayment(ctx, s.db, id)
}

func (s *Store) deletePayment(ctx context.Context, db dbtx, id ledger.PaymentID) error {
	_, err := db.ExecContext(ctx, `DELETE FROM payments WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete payment: %w", err)
	}
	return nil
}

func (s *Store) TenantPaymentTotals(ctx context.Context, tenantID ledger.TenantID) (decimal.Decimal, int, *time.Time, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tenantPaymentTotals(ctx, s.db, tenantID)
}

func (s *Store) tenantPaymentTotals(ctx context.Context, db dbtx, tenantID ledger.TenantID) (decimal.Decimal, int, *time.Time, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT amount_paid, payment_date FROM payments WHERE tenant_id = ?`, tenantID)
	if err != nil {
		return decimal.Zero, 0, nil, fmt.Errorf("failed to query payment totals: %w", err)
	}
	defer rows.Close()

	// Summed in Go to keep decimal arithmetic exact; SQLite would coerce the
	// TEXT amounts to floats.
	total := decimal.Zero
	count := 0
	var lastDate *time.Time
	for rows.Next() {
		var amount, date string
		if err := rows.Scan(&amount, &date); err != nil {
			return decimal.Zero, 0, nil, fmt.Errorf("failed to scan payment totals: %w", err)
		}
		total = total.Add(parseDecimal(amount))
		count++
		if d, perr := time.Parse(ledger.DateLayout, date); perr == nil {
			if lastDate == nil || d.After(*lastDate) {
				paid := d
				lastDate = &paid
			}
		}
	}
	return total, count, lastDate, rows.Err()
}

func (s *Store) SumPaymentsBetween(ctx context.Context, from, to time.Time) (decimal.Decimal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sumPaymentsBetween(ctx, s.db, from, to)
}

func (s *Store) sumPaymentsBetween(ctx context.Context, db dbtx, from, to time.Time) (decimal.Decimal, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT amount_paid FROM payments WHERE payment_date >= ? AND payment_date <= ?`,
		from.Format(ledger.DateLayout), to.Format(ledger.DateLayout))
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to sum payments: %w", err)
	}
	defer rows.Close()

	total := decimal.Zero
	for rows.Next() {
		var amount string
		if err := rows.Scan(&amount); err != nil {
			return decimal.Zero, fmt.Errorf("failed to scan payment amount: %w", err)
		}
		total = total.Add(parseDecimal(amount))
	}
	return total, rows.Err()
}

func (s *Store) queryPayments(ctx context.Context, db dbtx, query string, args ...any) ([]ledger.Payment, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query payments: %w", err)
	}
	defer rows.Close()

	var payments []ledger.Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		payments = append(payments, p)
	}
	return payments, rows.Err()
}

func scanPayment(rows *sql.Rows) (ledger.Payment, error) {
	var (
		p                     ledger.Payment
		amount, rentAtPayment string
		paymentDate, dueDate  string
		notes                 sql.NullString
		createdAt             string
	)

	err := rows.Scan(
		&p.ID, &p.TenantID, &amount, &p.CyclesCovered,
		&paymentDate, &dueDate, &p.Method,
		&rentAtPayment, &p.CycleAtPayment, &notes, &createdAt,
	)
	if err != nil {
		return p, fmt.Errorf("failed to scan payment: %w", err)
	}

	p.AmountPaid = parseDecimal(amount)
	p.RentAtPayment = parseDecimal(rentAtPayment)
	p.PaymentDate, _ = time.Parse(ledger.DateLayout, paymentDate)
	p.NextDueDateRaw = dueDate
	p.NextDueDate, _ = time.Parse(ledger.DateLayout, dueDate)
	p.Notes = notes.String
	p.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return p, nil
}

// =============================================================================
// CANCELLATIONS
// =============================================================================

func (s *Store) InsertCancellation(ctx context.Context, c ledger.Cancellation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.insertCancellation(ctx, s.db, c)
}

func (s *Store) insertCancellation(ctx context.Context, db dbtx, c ledger.Cancellation) error {
	_, err := db.ExecContext(ctx,
		`INSERT INTO cancellations (id, original_payment_id, tenant_id, amount, reason, cancelled_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		c.ID, c.OriginalPaymentID, c.TenantID,
		c.Amount.String(), c.Reason,
		c.CancelledAt.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to insert cancellation: %w", err)
	}
	return nil
}

func (s *Store) CancellationsByTenant(ctx context.Context, tenantID ledger.TenantID) ([]ledger.Cancellation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cancellationsByTenant(ctx, s.db, tenantID)
}

func (s *Store) cancellationsByTenant(ctx context.Context, db dbtx, tenantID ledger.TenantID) ([]ledger.Cancellation, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT id, original_payment_id, tenant_id, amount, reason, cancelled_at
		 FROM cancellations WHERE tenant_id = ? ORDER BY cancelled_at DESC`, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to query cancellations: %w", err)
	}
	defer rows.Close()

	var cancellations []ledger.Cancellation
	for rows.Next() {
		var (
			c           ledger.Cancellation
			amount      string
			reason      sql.NullString
			cancelledAt string
		)
		if err := rows.Scan(&c.ID, &c.OriginalPaymentID, &c.TenantID, &amount, &reason, &cancelledAt); err != nil {
			return nil, fmt.Errorf("failed to scan cancellation: %w", err)
		}
		c.Amount = parseDecimal(amount)
		c.Reason = reason.String
		c.CancelledAt, _ = time.Parse(time.RFC3339, cancelledAt)
		cancellations = append(cancellations, c)
	}
	return cancellations, rows.Err()
}

// =============================================================================
// REMINDERS
// =============================================================================

func (s *Store) InsertReminder(ctx context.Context, r ledger.Reminder) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.insertReminder(ctx, s.db, r)
}

func (s *Store) insertReminder(ctx context.Context, db dbtx, r ledger.Reminder) error {
	_, err := db.ExecContext(ctx,
		`INSERT INTO reminders (id, tenant_id, due_date, reminder_date, status, message, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.TenantID,
		r.DueDate.Format(ledger.DateLayout),
		r.ReminderDate.Format(ledger.DateLayout),
		r.Status, r.Message,
		r.CreatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to insert reminder: %w", err)
	}
	return nil
}

func (s *Store) PendingReminderExists(ctx context.Context, tenantID ledger.TenantID, dueDate time.Time) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pendingReminderExists(ctx, s.db, tenantID, dueDate)
}

func (s *Store) pendingReminderExists(ctx context.Context, db dbtx, tenantID ledger.TenantID, dueDate time.Time) (bool, error) {
	var n int
	err := db.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM reminders WHERE tenant_id = ? AND due_date = ? AND status = ?`,
		tenantID, dueDate.Format(ledger.DateLayout), ledger.ReminderPending,
	).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("failed to query pending reminders: %w", err)
	}
	return n > 0, nil
}

func (s *Store) CancelPendingReminders(ctx context.Context, tenantID ledger.TenantID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cancelPendingReminders(ctx, s.db, tenantID)
}

func (s *Store) cancelPendingReminders(ctx context.Context, db dbtx, tenantID ledger.TenantID) error {
	_, err := db.ExecContext(ctx,
		`UPDATE reminders SET status = ? WHERE tenant_id = ? AND status = ?`,
		ledger.ReminderCancelled, tenantID, ledger.ReminderPending,
	)
	if err != nil {
		return fmt.Errorf("failed to cancel reminders: %w", err)
	}
	return nil
}

func (s *Store) UpcomingReminders(ctx context.Context, from, to time.Time) ([]ledger.Reminder, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.upcomingReminders(ctx, s.db, from, to)
}

func (s *Store) upcomingReminders(ctx context.Context, db dbtx, from, to time.Time) ([]ledger.Reminder, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT id, tenant_id, due_date, reminder_date, status, message, created_at
		 FROM reminders
		 WHERE status = ? AND reminder_date >= ? AND reminder_date <= ?
		 ORDER BY reminder_date ASC`,
		ledger.ReminderPending,
		from.Format(ledger.DateLayout), to.Format(ledger.DateLayout))
	if err != nil {
		return nil, fmt.Errorf("failed to query reminders: %w", err)
	}
	defer rows.Close()

	var reminders []ledger.Reminder
	for rows.Next() {
		var (
			r                   ledger.Reminder
			dueDate, remindDate string
			message             sql.NullString
			createdAt           string
		)
		if err := rows.Scan(&r.ID, &r.TenantID, &dueDate, &remindDate, &r.Status, &message, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan reminder: %w", err)
		}
		r.DueDate, _ = time.Parse(ledger.DateLayout, dueDate)
		r.ReminderDate, _ = time.Parse(ledger.DateLayout, remindDate)
		r.Message = message.String
		r.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		reminders = append(reminders, r)
	}
	return reminders, rows.Err()
}

// =============================================================================
// SETTINGS
// =============================================================================

func (s *Store) GetSettings(ctx context.Context) (ledger.Settings, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.getSettings(ctx, s.db)
}

func (s *Store) getSettings(ctx context.Context, db dbtx) (ledger.Settings, error) {
	var (
		cfg       ledger.Settings
		updatedAt string
	)
	err := db.QueryRowContext(ctx,
		`SELECT reminder_lead_days, auto_suspend_days, contract_reminder_days, updated_at
		 FROM settings WHERE id = 1`,
	).Scan(&cfg.ReminderLeadDays, &cfg.AutoSuspendDays, &cfg.ContractReminderDays, &updatedAt)
	if err == sql.ErrNoRows {
		return ledger.DefaultSettings(), nil
	}
	if err != nil {
		return ledger.Settings{}, fmt.Errorf("failed to query settings: %w", err)
	}
	cfg.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	return cfg, nil
}

func (s *Store) SaveSettings(ctx context.Context, cfg ledger.Settings) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveSettings(ctx, s.db, cfg)
}

func (s *Store) saveSettings(ctx context.Context, db dbtx, cfg ledger.Settings) error {
	_, err := db.ExecContext(ctx,
		`INSERT INTO settings (id, reminder_lead_days, auto_suspend_days, contract_reminder_days, updated_at)
		 VALUES (1, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			reminder_lead_days = excluded.reminder_lead_days,
			auto_suspend_days = excluded.auto_suspend_days,
			contract_reminder_days = excluded.contract_reminder_days,
			updated_at = excluded.updated_at`,
		cfg.ReminderLeadDays, cfg.AutoSuspendDays, cfg.ContractReminderDays,
		cfg.UpdatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to save settings: %w", err)
	}
	return nil
}

// =============================================================================
// SWEEP RUNS
// =============================================================================

func (s *Store) InsertSweepRun(ctx context.Context, run ledger.SweepRun) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.insertSweepRun(ctx, s.db, run)
}

func (s *Store) insertSweepRun(ctx context.Context, db dbtx, run ledger.SweepRun) error {
	_, err := db.ExecContext(ctx,
		`INSERT INTO sweep_runs
		 (id, started_at, completed_at, tenants_checked, status_changes, suspensions, contract_alerts)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		run.ID,
		run.StartedAt.Format(time.RFC3339),
		run.CompletedAt.Format(time.RFC3339),
		run.TenantsChecked, run.StatusChanges, run.Suspensions, run.ContractAlerts,
	)
	if err != nil {
		return fmt.Errorf("failed to insert sweep run: %w", err)
	}
	return nil
}

func (s *Store) ListSweepRuns(ctx context.Context, limit int) ([]ledger.SweepRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.listSweepRuns(ctx, s.db, limit)
}

func (s *Store) listSweepRuns(ctx context.Context, db dbtx, limit int) ([]ledger.SweepRun, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT id, started_at, completed_at, tenants_checked, status_changes, suspensions, contract_alerts
		 FROM sweep_runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query sweep runs: %w", err)
	}
	defer rows.Close()

	var runs []ledger.SweepRun
	for rows.Next() {
		var (
			run                  ledger.SweepRun
			startedAt, completed string
		)
		if err := rows.Scan(&run.ID, &startedAt, &completed,
			&run.TenantsChecked, &run.StatusChanges, &run.Suspensions, &run.ContractAlerts); err != nil {
			return nil, fmt.Errorf("failed to scan sweep run: %w", err)
		}
		run.StartedAt, _ = time.Parse(time.RFC3339, startedAt)
		run.CompletedAt, _ = time.Parse(time.RFC3339, completed)
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// =============================================================================
// TRANSACTIONS (ledger.TxStore)
// =============================================================================

// WithTx executes fn within a database transaction. All store calls made
// through the passed Store see the transaction's uncommitted writes.
func (s *Store) WithTx(ctx context.Context, fn func(ledger.Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	if err := fn(&txStore{tx: sqlTx, parent: s}); err != nil {
		return err
	}

	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// txStore routes every Store method through the open transaction.
type txStore struct {
	tx     *sql.Tx
	parent *Store
}

func (ts *txStore) InsertTenant(ctx context.Context, t ledger.Tenant) error {
	return ts.parent.insertTenant(ctx, ts.tx, t)
}
func (ts *txStore) UpdateTenant(ctx context.Context, t ledger.Tenant) error {
	return ts.parent.updateTenant(ctx, ts.tx, t)
}
func (ts *txStore) GetTenant(ctx context.Context, id ledger.TenantID) (*ledger.Tenant, error) {
	return ts.parent.getTenant(ctx, ts.tx, id)
}
func (ts *txStore) ListTenants(ctx context.Context) ([]ledger.Tenant, error) {
	return ts.parent.listTenants(ctx, ts.tx)
}
func (ts *txStore) DeleteTenant(ctx context.Context, id ledger.TenantID) error {
	return ts.parent.deleteTenant(ctx, ts.tx, id)
}
func (ts *txStore) UpdateTenantLedgerState(ctx context.Context, id ledger.TenantID, credit decimal.Decimal, status ledger.Status, updatedAt time.Time) error {
	return ts.parent.updateTenantLedgerState(ctx, ts.tx, id, credit, status, updatedAt)
}
func (ts *txStore) UpdateTenantStatus(ctx context.Context, id ledger.TenantID, status ledger.Status, updatedAt time.Time) error {
	return ts.parent.updateTenantStatus(ctx, ts.tx, id, status, updatedAt)
}
func (ts *txStore) InsertPayment(ctx context.Context, p ledger.Payment) error {
	return ts.parent.insertPayment(ctx, ts.tx, p)
}
func (ts *txStore) GetPayment(ctx context.Context, id ledger.PaymentID) (*ledger.Payment, error) {
	return ts.parent.getPayment(ctx, ts.tx, id)
}
func (ts *txStore) LatestPayment(ctx context.Context, tenantID ledger.TenantID) (*ledger.Payment, error) {
	return ts.parent.latestPayment(ctx, ts.tx, tenantID)
}
func (ts *txStore) PaymentsByTenant(ctx context.Context, tenantID ledger.TenantID) ([]ledger.Payment, error) {
	return ts.parent.paymentsByTenant(ctx, ts.tx, tenantID)
}
func (ts *txStore) DeletePayment(ctx context.Context, id ledger.PaymentID) error {
	return ts.parent.deletePayment(ctx, ts.tx, id)
}
func (ts *txStore) TenantPaymentTotals(ctx context.Context, tenantID ledger.TenantID) (decimal.Decimal, int, *time.Time, error) {
	return ts.parent.tenantPaymentTotals(ctx, ts.tx, tenantID)
}
func (ts *txStore) SumPaymentsBetween(ctx context.Context, from, to time.Time) (decimal.Decimal, error) {
	return ts.parent.sumPaymentsBetween(ctx, ts.tx, from, to)
}
func (ts *txStore) InsertCancellation(ctx context.Context, c ledger.Cancellation) error {
	return ts.parent.insertCancellation(ctx, ts.tx, c)
}
func (ts *txStore) CancellationsByTenant(ctx context.Context, tenantID ledger.TenantID) ([]ledger.Cancellation, error) {
	return ts.parent.cancellationsByTenant(ctx, ts.tx, tenantID)
}
func (ts *txStore) InsertReminder(ctx context.Context, r ledger.Reminder) error {
	return ts.parent.insertReminder(ctx, ts.tx, r)
}
func (ts *txStore) PendingReminderExists(ctx context.Context, tenantID ledger.TenantID, dueDate time.Time) (bool, error) {
	return ts.parent.pendingReminderExists(ctx, ts.tx, tenantID, dueDate)
}
func (ts *txStore) CancelPendingReminders(ctx context.Context, tenantID ledger.TenantID) error {
	return ts.parent.cancelPendingReminders(ctx, ts.tx, tenantID)
}
func (ts *txStore) UpcomingReminders(ctx context.Context, from, to time.Time) ([]ledger.Reminder, error) {
	return ts.parent.upcomingReminders(ctx, ts.tx, from, to)
}
func (ts *txStore) GetSettings(ctx context.Context) (ledger.Settings, error) {
	return ts.parent.getSettings(ctx, ts.tx)
}
func (ts *txStore) SaveSettings(ctx context.Context, cfg ledger.Settings) error {
	return ts.parent.saveSettings(ctx, ts.tx, cfg)
}
func (ts *txStore) InsertSweepRun(ctx context.Context, run ledger.SweepRun) error {
	return ts.parent.insertSweepRun(ctx, ts.tx, run)
}
func (ts *txStore) ListSweepRuns(ctx context.Context, limit int) ([]ledger.SweepRun, error) {
	return ts.parent.listSweepRuns(ctx, ts.tx, limit)
}

// =============================================================================
// HELPERS
// =============================================================================

func nullDate(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: t.Format(ledger.DateLayout), Valid: true}
}

func parseDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

func isUniqueConstraintError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
