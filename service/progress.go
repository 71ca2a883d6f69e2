// ABOUTME: Progress tracking for one refresh cycle's outstanding work units
// ABOUTME: The idle check doubles as the orchestrator's reentrancy gate

package service

import "sync"

// ProgressSnapshot is a point-in-time copy of the counters, for the
// admin API.
type ProgressSnapshot struct {
	TotalTasks     int  `json:"total_tasks"`
	RemainingTasks int  `json:"remaining_tasks"`
	Idle           bool `json:"idle"`
}

// ProgressTracker counts outstanding versus total work units for the
// cycle in flight. Counters never go negative: completion saturates at
// zero. Safe for concurrent use, though by convention only the
// orchestrating goroutine mutates it.
type ProgressTracker struct {
	mu        sync.Mutex
	total     int
	remaining int
}

// NewProgressTracker returns an idle tracker.
func NewProgressTracker() *ProgressTracker {
	return &ProgressTracker{}
}

// Reset starts a new cycle with total work units outstanding.
func (p *ProgressTracker) Reset(total int) {
	if total < 0 {
		total = 0
	}
	p.mu.Lock()
	p.total = total
	p.remaining = total
	p.mu.Unlock()
}

// Grow adds n work units discovered mid-cycle, such as one per feed
// once the feed count is known.
func (p *ProgressTracker) Grow(n int) {
	if n <= 0 {
		return
	}
	p.mu.Lock()
	p.total += n
	p.remaining += n
	p.mu.Unlock()
}

// CompleteOne marks one work unit done. Completing past zero is a no-op.
func (p *ProgressTracker) CompleteOne() {
	p.mu.Lock()
	if p.remaining > 0 {
		p.remaining--
	}
	p.mu.Unlock()
}

// IsIdle reports whether no work is outstanding.
func (p *ProgressTracker) IsIdle() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.remaining == 0
}

// Clear forces both counters to zero. Called on success and on every
// failure exit so the tracker always returns to idle.
func (p *ProgressTracker) Clear() {
	p.mu.Lock()
	p.total = 0
	p.remaining = 0
	p.mu.Unlock()
}

// Snapshot returns a copy of the current counters.
func (p *ProgressTracker) Snapshot() ProgressSnapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	return ProgressSnapshot{
		TotalTasks:     p.total,
		RemainingTasks: p.remaining,
		Idle:           p.remaining == 0,
	}
}
