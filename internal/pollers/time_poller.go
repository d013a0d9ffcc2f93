package pollers

import (
	"context"
	"time"

	"minesweep-server/internal/timer"
	"minesweep-server/internal/wire"
)

// Conn is the minimal send surface the time poller needs from whatever
// connection a worker currently has attached.
type Conn interface {
	Send(frame []byte) error
}

// WorkerView exposes one session worker's identity and attached connection
// to the time poller without exposing the rest of its state machine.
type WorkerView interface {
	ID() int
	Conn() Conn
}

// TimePoller periodically emits TIME frames for every worker slot in
// timer.On, carrying elapsed time since that slot's Start.
type TimePoller struct {
	timers  *timer.Registry
	workers []WorkerView
	period  time.Duration
	log     Logger
}

// NewTimePoller builds a poller ticking at hz (75 nominally), configurable
// rather than hardcoded.
func NewTimePoller(timers *timer.Registry, workers []WorkerView, hz int, log Logger) *TimePoller {
	return &TimePoller{timers: timers, workers: workers, period: time.Second / time.Duration(hz), log: log}
}

// Run ticks until ctx is cancelled.
func (p *TimePoller) Run(ctx context.Context) {
	ticker := time.NewTicker(p.period)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.tick()
		}
	}
}

func (p *TimePoller) tick() {
	for _, w := range p.workers {
		slot := p.timers.Get(w.ID())
		dt, ok := slot.Sample()
		if !ok {
			continue
		}
		conn := w.Conn()
		if conn == nil {
			continue
		}
		frame := wire.EncodeTime(uint64(dt/time.Second), uint64(dt%time.Second))
		if err := conn.Send(frame.Bytes()); err != nil {
			p.log.Printf("time: send failed for worker %d: %v", w.ID(), err)
		}
	}
}
