package ledger

import "time"

// Test hooks for pinning the clock.

func (a *Allocator) SetClock(now func() time.Time) { a.now = now }
func (r *Reversal) SetClock(now func() time.Time)  { r.now = now }
func (sw *Sweeper) SetClock(now func() time.Time)  { sw.now = now }

func (svc *Service) SetClock(now func() time.Time) {
	svc.now = now
	svc.alloc.now = now
	svc.reversal.now = now
	svc.sweeper.now = now
}
