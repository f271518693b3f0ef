/*
cycle.go - Billing-cycle date arithmetic

PURPOSE:
  Pure, total functions mapping (anchor date, cycle kind) to the next anchor
  date. No I/O, no failure modes for valid dates.

CLAMPING RULE:
  Monthly and quarterly steps land on the same day-of-month, clamped to the
  last valid day of the target month: Jan 31 -> Feb 28 (29 in leap years),
  never overflowing into March. Because Advance steps one cycle at a time,
  clamping is sticky: Jan 31 -> Feb 28 -> Mar 28.
*/
package ledger

import "time"

// NextAnchor returns the next due-date anchor after date for the given cycle.
func NextAnchor(date time.Time, cycle CycleKind) time.Time {
	switch cycle {
	case CycleBiweekly:
		return Date(date).AddDate(0, 0, 14)
	case CycleQuarterly:
		return addMonthsClamped(date, 3)
	default:
		return addMonthsClamped(date, 1)
	}
}

// Advance steps date forward n cycles, one cycle at a time so the month-end
// clamping rule applies at every step.
func Advance(date time.Time, cycle CycleKind, n int) time.Time {
	d := Date(date)
	for i := 0; i < n; i++ {
		d = NextAnchor(d, cycle)
	}
	return d
}

// addMonthsClamped adds n calendar months, clamping the day-of-month to the
// last valid day of the target month. time.AddDate would normalize Jan 31 +1
// month into Mar 2/3, which is exactly the overflow this avoids.
func addMonthsClamped(date time.Time, n int) time.Time {
	d := Date(date)
	firstOfTarget := time.Date(d.Year(), d.Month()+time.Month(n), 1, 0, 0, 0, 0, time.UTC)
	lastDay := firstOfTarget.AddDate(0, 1, -1).Day()
	day := d.Day()
	if day > lastDay {
		day = lastDay
	}
	return time.Date(firstOfTarget.Year(), firstOfTarget.Month(), day, 0, 0, 0, 0, time.UTC)
}
