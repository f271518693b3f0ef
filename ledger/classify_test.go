package ledger_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/ijara/rent-engine/ledger"
)

func TestClassify_WithHistory_Boundaries(t *testing.T) {
	today := date(2025, time.June, 10)

	cases := []struct {
		name    string
		nextDue time.Time
		want    ledger.Status
	}{
		{"four days out is paid", date(2025, time.June, 14), ledger.StatusPaid},
		{"three days out is due soon", date(2025, time.June, 13), ledger.StatusDueSoon},
		{"due today is due soon", date(2025, time.June, 10), ledger.StatusDueSoon},
		{"one day past is overdue", date(2025, time.June, 9), ledger.StatusOverdue},
		{"far future is paid", date(2026, time.June, 10), ledger.StatusPaid},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ledger.Classify(tc.nextDue, true, today))
		})
	}
}

func TestClassify_NoHistory_NeverPaid(t *testing.T) {
	// GIVEN: a tenant with no payments yet
	// THEN: the status is DueSoon until the start date passes, Overdue after.
	// "Paid" requires at least one payment.

	today := date(2025, time.June, 10)

	assert.Equal(t, ledger.StatusDueSoon, ledger.Classify(date(2025, time.December, 1), false, today))
	assert.Equal(t, ledger.StatusDueSoon, ledger.Classify(today, false, today))
	assert.Equal(t, ledger.StatusOverdue, ledger.Classify(date(2025, time.June, 9), false, today))
}

func TestClassify_IgnoresTimeOfDay(t *testing.T) {
	today := time.Date(2025, time.June, 10, 23, 59, 0, 0, time.UTC)
	nextDue := time.Date(2025, time.June, 13, 0, 1, 0, 0, time.UTC)

	// 3 whole days apart regardless of clock time.
	assert.Equal(t, ledger.StatusDueSoon, ledger.Classify(nextDue, true, today))
}

func TestClassifyRaw_UnparsableFailsClosed(t *testing.T) {
	// GIVEN: a corrupted due date string
	// THEN: a tenant with history reads Overdue, never Paid

	today := date(2025, time.June, 10)

	assert.Equal(t, ledger.StatusOverdue, ledger.ClassifyRaw("not-a-date", true, today, nil))
	assert.Equal(t, ledger.StatusDueSoon, ledger.ClassifyRaw("not-a-date", false, today, nil))
}

func TestClassifyRaw_ValidDateDelegates(t *testing.T) {
	today := date(2025, time.June, 10)
	assert.Equal(t, ledger.StatusPaid, ledger.ClassifyRaw("2025-07-01", true, today, nil))
}
