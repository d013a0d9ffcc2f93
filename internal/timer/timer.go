// Package timer implements the per-worker timer slots the time poller reads
// and the session workers write: a small tristate machine (Off/On/RW)
// guarding when elapsed-time samples are meaningful.
package timer

import (
	"sync"
	"time"
)

// Mode is a timer slot's state.
type Mode int

const (
	// Off means no game is running; the slot carries no elapsed time.
	Off Mode = iota
	// On means a game is running; the poller should sample and emit TIME.
	On
	// RW means the owning worker is finalizing a win and holds the slot;
	// the poller must skip it until it returns to Off.
	RW
)

func (m Mode) String() string {
	switch m {
	case On:
		return "ON"
	case RW:
		return "RW"
	default:
		return "OFF"
	}
}

// Slot is one worker's timer state, safe for concurrent use by that worker
// and the time poller.
type Slot struct {
	mu     sync.Mutex
	mode   Mode
	tStart time.Time
}

// Mode reports the slot's current mode.
func (s *Slot) Mode() Mode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mode
}

// Start begins timing a new game: mode becomes On and the start time is
// sampled now.
func (s *Slot) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mode = On
	s.tStart = time.Now()
}

// SetMode transitions the slot without resampling tStart. Used to move to
// Off (STOP, MINE hit, post-win cleanup) or RW (win finalization).
func (s *Slot) SetMode(m Mode) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mode = m
}

// Sample reports the elapsed time since Start if the slot is On; ok is
// false for Off or RW, the signal for the time poller to skip this slot
// without emitting a TIME frame.
func (s *Slot) Sample() (dt time.Duration, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.mode != On {
		return 0, false
	}
	return time.Since(s.tStart), true
}

// Snapshot captures elapsed time regardless of mode, for the win path: the
// worker calls SetMode(RW) then Snapshot to read the final time while the
// poller is guaranteed to be skipping the slot.
func (s *Slot) Snapshot() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return time.Since(s.tStart)
}

// Registry holds one Slot per worker, indexed by worker id — the Go
// equivalent of the source's timer_mode[NUM_THREADS] array plus its
// protecting mutex, split into one mutex per slot instead of one mutex for
// the whole array, since the time poller and a worker only ever care about
// their own slot's consistency.
type Registry struct {
	slots []*Slot
}

// NewRegistry allocates n slots, all starting Off.
func NewRegistry(n int) *Registry {
	r := &Registry{slots: make([]*Slot, n)}
	for i := range r.slots {
		r.slots[i] = &Slot{}
	}
	return r
}

// Get returns slot i. Panics on an out-of-range index, same as a bare
// slice index would — worker ids are assigned once at pool startup and
// never exceed Len().
func (r *Registry) Get(i int) *Slot { return r.slots[i] }

// Len reports the number of slots.
func (r *Registry) Len() int { return len(r.slots) }
