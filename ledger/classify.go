/*
classify.go - Tenant lifecycle status derivation

PURPOSE:
  Pure function mapping (next due date, has-history flag, today) to a
  lifecycle status. Suspended is assigned only by the reconciliation sweep,
  never here.

RULE SET:
  Let d = next_due_date - today in whole days.

  No payment history yet:
    d >= 0  -> DueSoon   (the first rent hasn't fallen due)
    d <  0  -> Overdue

  With history:
    d >  3          -> Paid
    0 <= d <= 3     -> DueSoon
    d <  0          -> Overdue

  Divergent thresholds existed in earlier revisions of this logic; this rule
  set is the one the engine commits to.

FAIL-CLOSED PARSING:
  Stored dates are TEXT. ClassifyRaw never panics on a malformed date: it
  logs the anomaly and returns the conservative status (Overdue with
  history, DueSoon without). A tenant must never look "Paid" because their
  due date failed to parse.
*/
package ledger

import (
	"time"

	"github.com/sirupsen/logrus"
)

// dueSoonWindowDays is the inclusive DueSoon window for tenants with history.
const dueSoonWindowDays = 3

// Classify derives the lifecycle status of a tenant whose next due date is
// nextDue as of today. It never returns StatusSuspended.
func Classify(nextDue time.Time, hasHistory bool, today time.Time) Status {
	days := DaysBetween(today, nextDue)

	if !hasHistory {
		if days >= 0 {
			return StatusDueSoon
		}
		return StatusOverdue
	}

	switch {
	case days > dueSoonWindowDays:
		return StatusPaid
	case days >= 0:
		return StatusDueSoon
	default:
		return StatusOverdue
	}
}

// ClassifyRaw parses a stored date string and classifies it, failing closed
// on unparsable input.
func ClassifyRaw(raw string, hasHistory bool, today time.Time, log *logrus.Logger) Status {
	nextDue, err := time.Parse(DateLayout, raw)
	if err != nil {
		if log != nil {
			log.WithError(err).WithField("next_due_date", raw).
				Warn("unparsable due date, failing closed")
		}
		if hasHistory {
			return StatusOverdue
		}
		return StatusDueSoon
	}
	return Classify(nextDue, hasHistory, today)
}
