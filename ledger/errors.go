/*
errors.go - Centralized error taxonomy for the rent ledger

PURPOSE:
  All ledger error categories in one place. Mutating operations reject with
  one of these before or during their transaction; nothing is ever partially
  applied.

ERROR CATEGORIES:
  1. Validation - bad amount, missing field; rejected before any mutation
  2. Not found  - tenant/payment absent; rejected, no mutation
  3. Conflict   - duplicate room, cancel-non-latest; rejected, no mutation
  4. Storage    - transaction/commit failure; full rollback
  5. Gateway    - reminder scheduling failure; NON-FATAL, never rolls back
                  a committed ledger write

USAGE:
  if errors.Is(err, ledger.ErrConflict) { ... }

  var nf *ledger.NotFoundError
  if errors.As(err, &nf) { log.Warn(nf.Resource) }
*/
package ledger

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrValidation is the category for rejected input. No mutation occurred.
	ErrValidation = errors.New("validation failed")

	// ErrNotFound is the category for absent tenants/payments.
	ErrNotFound = errors.New("not found")

	// ErrConflict is the category for duplicate rooms and
	// cancel-non-latest-payment attempts.
	ErrConflict = errors.New("conflict")

	// ErrStorage indicates a transaction or commit failure. The whole
	// operation rolled back; nothing was applied.
	ErrStorage = errors.New("storage failure")

	// ErrReminderGateway indicates the reminder gateway failed. The ledger
	// write already committed; this is surfaced as a warning only.
	ErrReminderGateway = errors.New("reminder gateway failure")
)

// =============================================================================
// STRUCTURED ERRORS - Carry the offending field/resource
// =============================================================================

// ValidationError names the offending field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// NotFoundError names the missing resource.
type NotFoundError struct {
	Resource string // "tenant", "payment"
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Resource, e.ID)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// ConflictError identifies the conflicting resource.
type ConflictError struct {
	Resource string
	ID       string
	Message  string
}

func (e *ConflictError) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("%s %s: %s", e.Resource, e.ID, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Resource, e.Message)
}

func (e *ConflictError) Unwrap() error { return ErrConflict }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError reports whether the error is the caller's fault (maps to a
// 4xx response) rather than a storage failure.
func IsClientError(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrConflict)
}
