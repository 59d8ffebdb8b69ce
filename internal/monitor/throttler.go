// internal/monitor/throttler.go
package monitor

import (
	"sync"
	"time"
)

// Throttler limits how often snapshots reach the console. Between sends
// only the newest snapshot is kept; Flush delivers it once the interval
// has passed.
type Throttler struct {
	mu       sync.Mutex
	interval time.Duration
	last     time.Time
	pending  *Snapshot
	out      func(Snapshot)
	now      func() time.Time

	sent    uint64
	dropped uint64
}

func NewThrottler(interval time.Duration, out func(Snapshot)) *Throttler {
	return &Throttler{interval: interval, out: out, now: time.Now}
}

// Offer sends s right away if the interval has passed, otherwise parks it.
func (t *Throttler) Offer(s Snapshot) {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	if now.Sub(t.last) < t.interval {
		if t.pending != nil {
			t.dropped++
		}
		t.pending = &s
		return
	}
	t.send(now, s)
}

// Flush sends the parked snapshot if its turn has come.
func (t *Throttler) Flush() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.pending == nil {
		return
	}
	now := t.now()
	if now.Sub(t.last) >= t.interval {
		t.send(now, *t.pending)
	}
}

func (t *Throttler) send(now time.Time, s Snapshot) {
	t.last = now
	t.pending = nil
	t.sent++
	t.out(s)
}

// Stats returns how many snapshots were shown and how many were superseded.
func (t *Throttler) Stats() (sent, dropped uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.sent, t.dropped
}
