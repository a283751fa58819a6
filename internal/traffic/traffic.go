package traffic

import (
	"sync"
	"time"
)

// Outcome classifies a request for health accounting.
type Outcome int

const (
	// Success is a request whose upstream work completed.
	Success Outcome = iota
	// Failure is a request that failed on an upstream or transport error.
	Failure
	// Denied is a request rejected by the rate limiter (429).
	Denied
)

// retention bounds how long events are kept; windows longer than this undercount.
const retention = 5 * time.Minute

var defaultTracker = NewTracker(time.Now)

// RecordSuccess records a successful upstream-backed request.
func RecordSuccess() { defaultTracker.Record(Success) }

// RecordError records a request that failed upstream.
func RecordError() { defaultTracker.Record(Failure) }

// RecordDenied records a rate-limit denial.
func RecordDenied() { defaultTracker.Record(Denied) }

// RequestCount returns all outcomes (success + error + denied) within the window.
func RequestCount(window time.Duration) int { return defaultTracker.RequestCount(window) }

// DenialCount returns the denials within the window.
func DenialCount(window time.Duration) int { return defaultTracker.DenialCount(window) }

// ErrorRate returns (errors, successes+errors) within the window.
func ErrorRate(window time.Duration) (errors, total int) { return defaultTracker.ErrorRate(window) }

// Reset clears the process-wide tracker. For tests only.
func Reset() { defaultTracker.Reset() }

type event struct {
	at      time.Time
	outcome Outcome
}

// Tracker keeps a time-ordered log of request outcomes for sliding-window queries.
// It feeds both the overload (denials) and degraded (error rate) health checks.
type Tracker struct {
	mu     sync.Mutex
	now    func() time.Time
	events []event
}

// NewTracker returns a Tracker reading time from now.
func NewTracker(now func() time.Time) *Tracker {
	return &Tracker{now: now}
}

// Record appends an outcome at the current time.
func (t *Tracker) Record(o Outcome) {
	t.mu.Lock()
	defer t.mu.Unlock()
	now := t.now()
	t.events = append(t.events, event{at: now, outcome: o})
	t.pruneLocked(now)
}

// RequestCount returns the number of outcomes of any kind within the window.
func (t *Tracker) RequestCount(window time.Duration) int {
	counts := t.count(window)
	return counts[Success] + counts[Failure] + counts[Denied]
}

// DenialCount returns the number of denials within the window.
func (t *Tracker) DenialCount(window time.Duration) int {
	return t.count(window)[Denied]
}

// ErrorRate returns (errors, successes+errors) within the window. Denials are excluded.
func (t *Tracker) ErrorRate(window time.Duration) (errors, total int) {
	counts := t.count(window)
	return counts[Failure], counts[Failure] + counts[Success]
}

// Reset clears all recorded outcomes.
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.events = nil
}

func (t *Tracker) count(window time.Duration) [3]int {
	t.mu.Lock()
	defer t.mu.Unlock()
	var counts [3]int
	cutoff := t.now().Add(-window)
	for i := len(t.events) - 1; i >= 0; i-- {
		e := t.events[i]
		if e.at.Before(cutoff) {
			break
		}
		counts[e.outcome]++
	}
	return counts
}

// pruneLocked drops events older than retention. Must be called with mu held.
func (t *Tracker) pruneLocked(now time.Time) {
	cutoff := now.Add(-retention)
	i := 0
	for ; i < len(t.events) && t.events[i].at.Before(cutoff); i++ {
	}
	if i > 0 {
		t.events = append(t.events[:0], t.events[i:]...)
	}
}
