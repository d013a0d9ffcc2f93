// Package pollers implements the two background loops that push unsolicited
// frames to clients outside the request/response flow: queue position
// broadcasts and the per-game elapsed-time stream.
package pollers

import (
	"context"
	"time"

	"minesweep-server/internal/queue"
	"minesweep-server/internal/wire"
)

// Logger is the minimal structured-logging surface the pollers need.
type Logger interface {
	Printf(format string, args ...any)
}

// QueuePoller periodically tells every waiting connection its position in
// the admission queue, evicting any connection whose send fails.
type QueuePoller struct {
	q        *queue.Queue
	interval time.Duration
	log      Logger
}

// NewQueuePoller builds a poller that scans q once per interval.
func NewQueuePoller(q *queue.Queue, interval time.Duration, log Logger) *QueuePoller {
	return &QueuePoller{q: q, interval: interval, log: log}
}

// Run scans the queue once per interval until ctx is cancelled. Unlike the
// source, which restarts its outer chunk scan the moment it sees an empty
// slot (an artifact of modelling the queue as fixed chunks with holes),
// this queue never has holes — Evict and Pop compact immediately — so every
// scan covers every waiting connection; Open Question 5 no longer applies
// under this representation.
func (p *QueuePoller) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.scan()
		}
	}
}

func (p *QueuePoller) scan() {
	var toEvict [][2]int
	p.q.ForEach(func(i, j int, c queue.Conn) bool {
		position := uint16(i*queue.Chunk + j)
		frame := wire.EncodeQueue(position)
		if err := c.Send(frame.Bytes()); err != nil {
			toEvict = append(toEvict, [2]int{i, j})
		}
		return true
	})
	// Evict back-to-front so compaction never shifts an index still queued
	// for eviction in this batch.
	for k := len(toEvict) - 1; k >= 0; k-- {
		i, j := toEvict[k][0], toEvict[k][1]
		p.log.Printf("admission: evicting dead connection at position %d", i*queue.Chunk+j)
		p.q.Evict(i, j)
	}
}
