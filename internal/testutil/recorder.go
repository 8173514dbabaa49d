package testutil

import (
	"sync"

	"github.com/HerbHall/hostpulse/internal/diagnostics"
)

// Recorder is a thread-safe snapshot consumer that records every delivery
// for later inspection.
type Recorder struct {
	mu        sync.Mutex
	snapshots []diagnostics.SystemStats
}

// NewRecorder returns a new Recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// Record stores a snapshot. Pass it to Scheduler.Start as the consumer.
func (r *Recorder) Record(s diagnostics.SystemStats) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.snapshots = append(r.snapshots, s)
}

// Snapshots returns a copy of all recorded snapshots.
func (r *Recorder) Snapshots() []diagnostics.SystemStats {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]diagnostics.SystemStats, len(r.snapshots))
	copy(out, r.snapshots)
	return out
}

// Len returns the number of recorded snapshots.
func (r *Recorder) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.snapshots)
}

// Reset clears all recorded snapshots.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.snapshots = nil
}
